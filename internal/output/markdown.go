package output

import (
	"io"
	"strings"

	"github.com/dshills/prgate/internal/review"
)

// MarkdownWriter outputs a PR-comment-friendly markdown report.
type MarkdownWriter struct{}

func (m *MarkdownWriter) Write(w io.Writer, res *review.ReviewResult) error {
	ew := &errWriter{w: w}
	sum := review.ComputeSummary(res.Files)

	ew.printf("## prgate review: %s\n\n", recommendationLabel(res.Feedback.Recommendation))
	if res.PR.Title != "" {
		ew.printf("**%s**", res.PR.Title)
		if res.PR.URL != "" {
			ew.printf(" ([#%d](%s))", res.PR.Number, res.PR.URL)
		}
		ew.printf("\n\n")
	}
	if res.Feedback.Summary != "" {
		ew.printf("%s\n\n", res.Feedback.Summary)
	}

	ew.printf("**Score:** %.1f (%s)\n\n", res.Score.Overall, res.Score.Grade)
	if len(res.Score.Categories) > 0 {
		ew.printf("| Category | Score |\n")
		ew.printf("|----------|-------|\n")
		for _, c := range sortedCategories(res.Score.Categories) {
			ew.printf("| %s | %.1f |\n", c, res.Score.Categories[c])
		}
		ew.printf("\n")
	}

	ew.printf("| Severity | Count |\n")
	ew.printf("|----------|-------|\n")
	ew.printf("| Error | %d |\n", sum.Counts.Error)
	ew.printf("| Warning | %d |\n", sum.Counts.Warning)
	ew.printf("| Info | %d |\n", sum.Counts.Info)
	ew.printf("| **Total** | **%d** |\n\n", sum.Counts.Total())

	if len(res.Feedback.ActionItems) > 0 {
		ew.printf("### Action items\n\n")
		for _, a := range res.Feedback.ActionItems {
			ew.printf("- **%s**: %s\n", a.Priority, a.Text)
		}
		ew.printf("\n")
	}

	issues := flatten(res)
	if len(issues) == 0 {
		ew.printf("No issues found. :white_check_mark:\n\n")
	}
	grouped := groupBySeverity(issues)
	for _, sev := range severityOrder {
		group := grouped[sev]
		if len(group) == 0 {
			continue
		}
		ew.printf("<details>\n<summary>%s %s (%d)</summary>\n\n",
			mdSeverityIcon(sev), strings.ToUpper(string(sev)), len(group))
		for _, is := range group {
			ew.printf("- **`%s`** %s _(%s, %s)_\n", location(is), is.Message, is.Category, is.RuleID)
			if is.Suggestion == "" {
				continue
			}
			if looksLikeCode(is.Suggestion) {
				ew.printf("\n  ```%s\n  %s\n  ```\n", is.Language, strings.ReplaceAll(is.Suggestion, "\n", "\n  "))
			} else {
				ew.printf("  > %s\n", strings.ReplaceAll(is.Suggestion, "\n", "\n  > "))
			}
		}
		ew.printf("\n</details>\n\n")
	}

	if posted := postedLabel(res); posted != "" {
		ew.printf("Review %s.\n\n", posted)
	}
	ew.printf("*%d files analyzed in %dms. Feedback by %s.*\n", sum.Files, res.Timing.TotalMs, res.Feedback.Provider)
	return ew.err
}

func mdSeverityIcon(s review.Severity) string {
	switch s {
	case review.SeverityError:
		return ":red_circle:"
	case review.SeverityWarning:
		return ":orange_circle:"
	case review.SeverityInfo:
		return ":large_blue_circle:"
	default:
		return ":white_circle:"
	}
}

func looksLikeCode(s string) bool {
	for _, indicator := range []string{
		"func ", "return ", ":=", "==", "=>", "->", "();", "{\n", "import ",
	} {
		if strings.Contains(s, indicator) {
			return true
		}
	}
	return false
}
