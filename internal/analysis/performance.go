package analysis

import (
	"regexp"
	"strings"

	"github.com/dshills/prgate/internal/patch"
	"github.com/dshills/prgate/internal/review"
)

var loopHeaders = map[string]*regexp.Regexp{
	"go":     regexp.MustCompile(`^\s*for\b`),
	"python": regexp.MustCompile(`^\s*(async\s+)?(for|while)\b.*:\s*(#.*)?$`),
	"ruby":   regexp.MustCompile(`(^\s*(for|while|until)\b)|\.(each|each_with_index|map|times)\b.*\b(do|\{)`),
	"shell":  regexp.MustCompile(`^\s*(for|while|until)\b`),
	"c-like": regexp.MustCompile(`(^\s*(for|foreach|while|do)\b)|\.forEach\s*\(`),
}

var sameLineNested = regexp.MustCompile(`\bfor\b.*\bfor\b`)

var performanceRules = []lineRule{
	{
		id: "string-concat-in-loop", severity: review.SeverityWarning, category: review.CategoryPerformance,
		pattern:    regexp.MustCompile("(\\w+)\\s*(\\+=\\s*(\"|'|`|str\\(|f\"|f'|fmt\\.Sprint|String\\()|=\\s*(\\w+)\\s*\\+\\s*(\"|'|`|str\\())"),
		inLoop:     true,
		accept:     func(m []string) bool { return m[4] == "" || m[4] == m[1] },
		message:    "String built by repeated concatenation inside a loop",
		suggestion: "Collect parts and join once, or use a string builder",
	},
	{
		id: "dom-query-in-loop", severity: review.SeverityWarning, category: review.CategoryPerformance,
		pattern:    regexp.MustCompile(`document\.(getElementById|getElementsBy\w+|querySelector(All)?)\s*\(`),
		languages:  jsLike,
		inLoop:     true,
		message:    "DOM query inside a loop",
		suggestion: "Query the element once before the loop",
	},
	{
		id: "regex-compile-in-loop", severity: review.SeverityWarning, category: review.CategoryPerformance,
		pattern:    regexp.MustCompile(`(regexp\.(Must)?Compile(POSIX)?\(|\bre\.compile\(|new\s+RegExp\(|Pattern\.compile\(|Regex\.new\()`),
		inLoop:     true,
		message:    "Regular expression compiled inside a loop",
		suggestion: "Compile the expression once outside the loop",
	},
	{
		id: "defer-in-loop", severity: review.SeverityWarning, category: review.CategoryPerformance,
		pattern:    regexp.MustCompile(`^\s*defer\b`),
		languages:  []string{"go"},
		inLoop:     true,
		message:    "defer inside a loop runs only when the function returns",
		suggestion: "Move the loop body into a function or release resources explicitly",
	},
}

// Performance flags nested loops and expensive work repeated inside loops.
type Performance struct{}

// NewPerformance returns a performance analyzer.
func NewPerformance() *Performance { return &Performance{} }

func (p *Performance) Name() string { return "performance" }

func (p *Performance) CanHandle(path string) bool {
	return patch.IsSource(patch.Language(path))
}

func loopHeader(lang string) *regexp.Regexp {
	if re, ok := loopHeaders[lang]; ok {
		return re
	}
	return loopHeaders["c-like"]
}

// loopTracker follows loop nesting by brace depth or indentation.
type loopTracker struct {
	indent bool
	delta  func(string) int // block depth change of a line
	depth  int
	stack  []int // body depth (brace) or header indent
}

// enter updates the tracker for a new line before it is inspected.
func (lt *loopTracker) enter(line string) {
	if lt.indent {
		ind := indentOf(line)
		for len(lt.stack) > 0 && ind <= lt.stack[len(lt.stack)-1] {
			lt.stack = lt.stack[:len(lt.stack)-1]
		}
		return
	}
	for len(lt.stack) > 0 && lt.depth < lt.stack[len(lt.stack)-1] {
		lt.stack = lt.stack[:len(lt.stack)-1]
	}
}

func (lt *loopTracker) push(line string) {
	if lt.indent {
		lt.stack = append(lt.stack, indentOf(line))
		return
	}
	lt.stack = append(lt.stack, lt.depth+1)
}

// leave applies the line's braces after it was inspected.
func (lt *loopTracker) leave(line string) {
	if !lt.indent {
		lt.depth += lt.delta(line)
	}
}

func (lt *loopTracker) inLoop() bool { return len(lt.stack) > 0 }

func (p *Performance) Analyze(path, content string) (review.AnalysisResult, error) {
	lang := patch.Language(path)
	lines := splitLines(content)
	res := review.AnalysisResult{Path: path, Language: lang}
	res.Metrics.Lines = len(lines)

	header := loopHeader(lang)
	lt := &loopTracker{indent: indentBased(lang), delta: braceDelta}
	if keywordBased(lang) {
		lt.delta = rubyDelta
	}
	for i, line := range lines {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || isComment(trimmed, lang) {
			continue
		}
		lt.enter(line)
		code := stripStrings(line)
		isHeader := header.MatchString(code)

		if isHeader && lt.inLoop() || lang == "python" && sameLineNested.MatchString(code) {
			res.Issues = append(res.Issues, review.Issue{
				Severity:   review.SeverityWarning,
				Category:   review.CategoryPerformance,
				Line:       i + 1,
				RuleID:     "nested-loop",
				Message:    "Nested loop; cost grows with the product of both sizes",
				Suggestion: "Index the inner collection in a map or set before looping",
				Analyzer:   p.Name(),
			})
		}
		for _, r := range performanceRules {
			if r.inLoop && !lt.inLoop() || !r.appliesTo(lang) {
				continue
			}
			if r.match(line) {
				res.Issues = append(res.Issues, r.issue(i+1, p.Name()))
			}
		}
		if isHeader {
			lt.push(line)
		}
		lt.leave(line)
	}
	return res, nil
}
