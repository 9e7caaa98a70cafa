package analysis

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/dshills/prgate/internal/patch"
	"github.com/dshills/prgate/internal/review"
)

// maxLineReports caps line-too-long issues per file.
const maxLineReports = 10

// Structure measures file size, function size, parameter counts and
// cyclomatic complexity.
type Structure struct {
	t Thresholds
}

// NewStructure returns a structure analyzer using t.
func NewStructure(t Thresholds) *Structure {
	return &Structure{t: t.withDefaults()}
}

func (s *Structure) Name() string { return "structure" }

func (s *Structure) CanHandle(path string) bool {
	return patch.IsSource(patch.Language(path))
}

var funcPatterns = map[string]*regexp.Regexp{
	"go":         regexp.MustCompile(`^func\b`),
	"python":     regexp.MustCompile(`^\s*(async\s+)?def\s+(\w+)\s*\(`),
	"ruby":       regexp.MustCompile(`^\s*def\s+([\w.?!]+)`),
	"rust":       regexp.MustCompile(`^\s*(pub(\([\w:]+\))?\s+)?(async\s+)?(unsafe\s+)?fn\s+\w+`),
	"javascript": regexp.MustCompile(`(^\s*(export\s+)?(default\s+)?(async\s+)?function\b)|(^\s*(export\s+)?(const|let|var)\s+\w+\s*=\s*(async\s*)?(\([^)]*\)|\w+)\s*=>)`),
	"php":        regexp.MustCompile(`^\s*((public|private|protected|static|abstract|final)\s+)*function\s+\w+`),
	"kotlin":     regexp.MustCompile(`^\s*((public|private|protected|internal|override|suspend|inline|open)\s+)*fun\s+`),
	"swift":      regexp.MustCompile(`^\s*((public|private|internal|fileprivate|open|static|override|@\w+)\s+)*func\s+\w+`),
	"scala":      regexp.MustCompile(`^\s*((private|protected|override|final)\s+)*def\s+\w+`),
	"shell":      regexp.MustCompile(`^\s*(function\s+)?[\w-]+\s*\(\)\s*\{?`),
	// java, c, cpp, csharp: a typed declaration ending in an opening brace
	"c-like": regexp.MustCompile(`^\s*([\w<>\[\],*&:~]+\s+)+[*&]?[\w:~]+\s*\([^;]*\)\s*(const\s*)?(throws\s+[\w.,\s]+)?\{?\s*$`),
}

var controlWords = regexp.MustCompile(`^\s*(if|else|for|while|switch|do|return|catch|try|case|new|sizeof|using|lock|foreach)\b`)

var decisionPattern = regexp.MustCompile(`\b(if|elif|for|foreach|while|case|catch|except|when|unless|until)\b|&&|\|\||\band\b|\bor\b`)

func funcPattern(lang string) *regexp.Regexp {
	switch lang {
	case "typescript", "vue":
		return funcPatterns["javascript"]
	case "java", "c", "cpp", "csharp":
		return funcPatterns["c-like"]
	}
	return funcPatterns[lang]
}

// function is a detected function span, 0-based inclusive line indexes.
type function struct {
	name       string
	start, end int
	params     int
	documented bool
}

func (s *Structure) Analyze(path, content string) (review.AnalysisResult, error) {
	lang := patch.Language(path)
	lines := splitLines(content)
	res := review.AnalysisResult{Path: path, Language: lang}
	res.Metrics.Lines = len(lines)

	if len(lines) > s.t.MaxFileLines {
		res.Issues = append(res.Issues, review.Issue{
			Severity:   review.SeverityWarning,
			Category:   review.CategoryStructure,
			RuleID:     "file-too-long",
			Message:    fmt.Sprintf("File has %d lines (max %d)", len(lines), s.t.MaxFileLines),
			Suggestion: "Split the file into smaller, focused units",
		})
	}

	long := 0
	for i, line := range lines {
		if n := runeLen(line); n > s.t.MaxLineLength {
			long++
			if long > maxLineReports {
				break
			}
			res.Issues = append(res.Issues, review.Issue{
				Severity: review.SeverityInfo,
				Category: review.CategoryStructure,
				Line:     i + 1,
				RuleID:   "line-too-long",
				Message:  fmt.Sprintf("Line is %d characters (max %d)", n, s.t.MaxLineLength),
			})
		}
	}

	funcs := findFunctions(lines, lang)
	res.Metrics.Functions = len(funcs)
	res.Metrics.Complexity = complexity(lines, 0, len(lines)-1, lang)

	for _, f := range funcs {
		if n := f.end - f.start + 1; n > s.t.MaxFunctionLines {
			res.Issues = append(res.Issues, review.Issue{
				Severity:   review.SeverityWarning,
				Category:   review.CategoryStructure,
				Line:       f.start + 1,
				RuleID:     "function-too-long",
				Message:    fmt.Sprintf("Function %s is %d lines (max %d)", f.name, n, s.t.MaxFunctionLines),
				Suggestion: "Extract helpers to shorten the function",
			})
		}
		if c := complexity(lines, f.start, f.end, lang); c > s.t.MaxComplexity {
			res.Issues = append(res.Issues, review.Issue{
				Severity:   review.SeverityWarning,
				Category:   review.CategoryStructure,
				Line:       f.start + 1,
				RuleID:     "high-complexity",
				Message:    fmt.Sprintf("Function %s has cyclomatic complexity %d (max %d)", f.name, c, s.t.MaxComplexity),
				Suggestion: "Reduce branching or split the function",
			})
		}
		if f.params > s.t.MaxParameters {
			res.Issues = append(res.Issues, review.Issue{
				Severity:   review.SeverityWarning,
				Category:   review.CategoryStructure,
				Line:       f.start + 1,
				RuleID:     "too-many-parameters",
				Message:    fmt.Sprintf("Function %s takes %d parameters (max %d)", f.name, f.params, s.t.MaxParameters),
				Suggestion: "Group related parameters into a struct or options object",
			})
		}
		if !f.documented && exported(f.name, lang) {
			res.Issues = append(res.Issues, review.Issue{
				Severity: review.SeverityInfo,
				Category: review.CategoryDocumentation,
				Line:     f.start + 1,
				RuleID:   "missing-doc",
				Message:  fmt.Sprintf("Exported function %s has no doc comment", f.name),
			})
		}
	}

	// scripts without functions still get a file-level complexity check
	if len(funcs) == 0 && res.Metrics.Complexity > s.t.MaxComplexity {
		res.Issues = append(res.Issues, review.Issue{
			Severity: review.SeverityWarning,
			Category: review.CategoryStructure,
			RuleID:   "high-complexity",
			Message:  fmt.Sprintf("File has cyclomatic complexity %d (max %d)", res.Metrics.Complexity, s.t.MaxComplexity),
		})
	}
	return res, nil
}

// findFunctions locates function declarations and their bodies.
func findFunctions(lines []string, lang string) []function {
	re := funcPattern(lang)
	if re == nil {
		return nil
	}
	var funcs []function
	for i := 0; i < len(lines); i++ {
		line := lines[i]
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || isComment(trimmed, lang) || !re.MatchString(line) || controlWords.MatchString(line) {
			continue
		}
		f := function{start: i, name: funcName(line)}
		switch {
		case indentBased(lang):
			f.end = indentEnd(lines, i)
		case keywordBased(lang):
			f.end = keywordEnd(lines, i)
		default:
			f.end = braceEnd(lines, i)
		}
		f.params = countParams(strings.Join(lines[i:min(i+5, len(lines))], " "), lang)
		f.documented = hasDoc(lines, i, lang)
		funcs = append(funcs, f)
		// nested functions are measured as part of their parent
		i = max(i, f.end)
	}
	return funcs
}

// braceEnd returns the line closing the block opened at or after start. A
// declaration with no body within three lines is a single line.
func braceEnd(lines []string, start int) int {
	depth := 0
	opened := false
	for i := start; i < len(lines); i++ {
		d := braceDelta(lines[i])
		if d > 0 || strings.Contains(lines[i], "{") {
			opened = true
		}
		depth += d
		if opened && depth <= 0 {
			return i
		}
		if !opened && i-start >= 3 {
			return start
		}
	}
	return len(lines) - 1
}

// indentEnd returns the last line of an indentation-delimited block.
func indentEnd(lines []string, start int) int {
	base := indentOf(lines[start])
	end := start
	for i := start + 1; i < len(lines); i++ {
		if strings.TrimSpace(lines[i]) == "" {
			continue
		}
		if indentOf(lines[i]) <= base {
			return end
		}
		end = i
	}
	return end
}

// keywordEnd returns the line holding the end that closes the block opened
// at start. A one-line or endless definition ends where it starts.
func keywordEnd(lines []string, start int) int {
	depth := 0
	for i := start; i < len(lines); i++ {
		depth += rubyDelta(lines[i])
		if depth <= 0 {
			return i
		}
	}
	return len(lines) - 1
}

var nameAfterKeyword = regexp.MustCompile(`\b(?:func|def|fn|fun|function)\s+(?:\([^)]*\)\s*)?([\w.?!]+)`)
var nameBeforeParen = regexp.MustCompile(`([\w~]+)\s*\(`)
var nameBeforeAssign = regexp.MustCompile(`(?:const|let|var)\s+(\w+)\s*=`)

func funcName(line string) string {
	if m := nameAfterKeyword.FindStringSubmatch(line); m != nil {
		return m[1]
	}
	if m := nameBeforeAssign.FindStringSubmatch(line); m != nil {
		return m[1]
	}
	if m := nameBeforeParen.FindStringSubmatch(line); m != nil {
		return m[1]
	}
	return "<anonymous>"
}

// countParams counts the parameters of the declaration starting in decl.
func countParams(decl, lang string) int {
	open := strings.Index(decl, "(")
	if open < 0 {
		return 0
	}
	// Go methods: skip the receiver list
	if lang == "go" && strings.TrimSpace(decl[:open]) == "func" {
		closeIdx := matchParen(decl, open)
		if closeIdx < 0 {
			return 0
		}
		next := strings.Index(decl[closeIdx+1:], "(")
		if next < 0 {
			return 0
		}
		open = closeIdx + 1 + next
	}
	closeIdx := matchParen(decl, open)
	if closeIdx < 0 {
		return 0
	}
	inner := strings.TrimSpace(decl[open+1 : closeIdx])
	if inner == "" {
		return 0
	}
	n := 0
	depth := 0
	start := 0
	count := func(part string) {
		part = strings.TrimSpace(part)
		if part == "" || part == "self" || part == "cls" || part == "*" || part == "/" || strings.HasPrefix(part, "&self") || strings.HasPrefix(part, "self:") {
			return
		}
		n++
	}
	for i, r := range inner {
		switch r {
		case '(', '[', '{', '<':
			depth++
		case ')', ']', '}', '>':
			depth--
		case ',':
			if depth == 0 {
				count(inner[start:i])
				start = i + 1
			}
		}
	}
	count(inner[start:])
	return n
}

func matchParen(s string, open int) int {
	depth := 0
	for i := open; i < len(s); i++ {
		switch s[i] {
		case '(':
			depth++
		case ')':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

// complexity is 1 plus the number of decision points in lines[from..to].
func complexity(lines []string, from, to int, lang string) int {
	c := 1
	for i := from; i <= to && i < len(lines); i++ {
		trimmed := strings.TrimSpace(lines[i])
		if trimmed == "" || isComment(trimmed, lang) {
			continue
		}
		c += len(decisionPattern.FindAllString(stripStrings(trimmed), -1))
	}
	return c
}

// stripStrings blanks out quoted text so keywords inside literals are ignored.
func stripStrings(line string) string {
	var b strings.Builder
	var quote rune
	escaped := false
	for _, r := range line {
		switch {
		case escaped:
			escaped = false
			continue
		case quote != 0:
			if r == '\\' {
				escaped = true
			} else if r == quote {
				quote = 0
				b.WriteRune(r)
			}
			continue
		case r == '"' || r == '\'' || r == '`':
			quote = r
		}
		b.WriteRune(r)
	}
	return b.String()
}

// hasDoc reports whether the function at start is preceded by a comment, or
// for python, followed by a docstring.
func hasDoc(lines []string, start int, lang string) bool {
	if lang == "python" {
		for i := start + 1; i < len(lines) && i <= start+3; i++ {
			t := strings.TrimSpace(lines[i])
			if t == "" {
				continue
			}
			return strings.HasPrefix(t, `"""`) || strings.HasPrefix(t, `'''`)
		}
		return false
	}
	for i := start - 1; i >= 0; i-- {
		t := strings.TrimSpace(lines[i])
		if strings.HasPrefix(t, "@") || strings.HasPrefix(t, "#[") {
			continue
		}
		return isComment(t, lang) || strings.HasSuffix(t, "*/")
	}
	return false
}

// exported reports whether a function name is part of a public API that
// should carry documentation. Only Go and Python conventions are checked.
func exported(name, lang string) bool {
	if name == "" || name == "<anonymous>" {
		return false
	}
	switch lang {
	case "go":
		r := name[0]
		return r >= 'A' && r <= 'Z'
	case "python":
		return !strings.HasPrefix(name, "_")
	}
	return false
}
