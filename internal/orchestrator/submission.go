package orchestrator

import (
	"fmt"
	"sort"
	"strings"

	"github.com/dshills/prgate/internal/adapters"
	"github.com/dshills/prgate/internal/patch"
	"github.com/dshills/prgate/internal/review"
)

const maxGeneralFindings = 20

// BuildSubmission renders a review for posting. Error and warning issues on
// lines the diff shows become inline comments; the rest of the error and
// warning issues are listed in the summary.
func BuildSubmission(res *review.ReviewResult, files []review.FileChange) adapters.Submission {
	visible := make(map[string]map[int]bool, len(files))
	for _, f := range files {
		if f.Diff != "" {
			visible[f.Path] = patch.VisibleLines(f.Diff)
		}
	}

	var comments []adapters.Comment
	var general []string
	for _, r := range res.Files {
		for _, is := range r.Issues {
			if review.SeverityRank(is.Severity) < review.SeverityRank(review.SeverityWarning) {
				continue
			}
			if is.Line > 0 && visible[r.Path][is.Line] {
				comments = append(comments, adapters.Comment{Path: r.Path, Line: is.Line, Body: commentBody(is)})
				continue
			}
			general = append(general, generalFinding(r.Path, is))
		}
	}

	return adapters.Submission{
		Summary:        summaryMarkdown(res, general),
		Comments:       comments,
		Recommendation: res.Feedback.Recommendation,
	}
}

func commentBody(is review.Issue) string {
	var b strings.Builder
	fmt.Fprintf(&b, "**%s** `%s`: %s", is.Severity, is.RuleID, is.Message)
	if is.Suggestion != "" {
		fmt.Fprintf(&b, "\n\nSuggestion: %s", is.Suggestion)
	}
	return b.String()
}

func generalFinding(path string, is review.Issue) string {
	loc := path
	if is.Line > 0 {
		loc = fmt.Sprintf("%s:%d", path, is.Line)
	}
	return fmt.Sprintf("- **%s** `%s` %s: %s", is.Severity, is.RuleID, loc, is.Message)
}

var recommendationLabel = map[review.Recommendation]string{
	review.RecommendApprove:        "Approve",
	review.RecommendComment:        "Comment",
	review.RecommendRequestChanges: "Request changes",
}

func summaryMarkdown(res *review.ReviewResult, general []string) string {
	var b strings.Builder
	label := recommendationLabel[res.Feedback.Recommendation]
	if label == "" {
		label = string(res.Feedback.Recommendation)
	}
	fmt.Fprintf(&b, "## %s review: %s\n\n", Tool, label)
	if res.Feedback.Summary != "" {
		b.WriteString(res.Feedback.Summary)
		b.WriteString("\n\n")
	}

	fmt.Fprintf(&b, "**Score:** %.1f / 100 (%s)\n\n", res.Score.Overall, res.Score.Grade)
	cats := make([]string, 0, len(res.Score.Categories))
	for c := range res.Score.Categories {
		cats = append(cats, c)
	}
	sort.Strings(cats)
	if len(cats) > 0 {
		b.WriteString("| Category | Score |\n|----------|-------|\n")
		for _, c := range cats {
			fmt.Fprintf(&b, "| %s | %.1f |\n", c, res.Score.Categories[c])
		}
		b.WriteString("\n")
	}

	if len(res.Feedback.ActionItems) > 0 {
		b.WriteString("### Action items\n\n")
		for _, it := range res.Feedback.ActionItems {
			fmt.Fprintf(&b, "- **%s** %s\n", it.Priority, it.Text)
		}
		b.WriteString("\n")
	}

	if len(general) > 0 {
		b.WriteString("### Other findings\n\n")
		for i, g := range general {
			if i == maxGeneralFindings {
				fmt.Fprintf(&b, "- ... and %d more\n", len(general)-maxGeneralFindings)
				break
			}
			b.WriteString(g)
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}

	sum := review.ComputeSummary(res.Files)
	fmt.Fprintf(&b, "<sub>%d files analyzed, %d issues. Feedback by %s.</sub>\n", sum.Files, sum.Counts.Total(), res.Feedback.Provider)
	return b.String()
}
