package analysis

import (
	"regexp"
	"slices"

	"github.com/dshills/prgate/internal/review"
)

// lineRule is a single-line pattern check.
type lineRule struct {
	id         string
	group      string // at most one issue per (line, group)
	severity   review.Severity
	category   string
	pattern    *regexp.Regexp
	languages  []string // empty matches every language
	inLoop     bool     // only reported inside a loop body
	message    string
	suggestion string
	// accept, if set, filters regexp matches
	accept func(match []string) bool
}

func (r lineRule) appliesTo(lang string) bool {
	return len(r.languages) == 0 || slices.Contains(r.languages, lang)
}

func (r lineRule) match(line string) bool {
	m := r.pattern.FindStringSubmatch(line)
	if m == nil {
		return false
	}
	return r.accept == nil || r.accept(m)
}

func (r lineRule) issue(line int, analyzer string) review.Issue {
	return review.Issue{
		Severity:   r.severity,
		Category:   r.category,
		Line:       line,
		Message:    r.message,
		RuleID:     r.id,
		Suggestion: r.suggestion,
		Analyzer:   analyzer,
	}
}
