package feedback

import (
	"context"
	"fmt"
	"sort"

	"github.com/dshills/prgate/internal/review"
)

// OfflineName is the name of the built-in provider.
const OfflineName = "offline"

const (
	maxActionItems = 10
	largeChange    = 10
)

// Offline writes feedback from the analysis without any network access.
type Offline struct{}

func (Offline) Name() string { return OfflineName }

// Generate never fails and returns the same result for the same request.
func (o Offline) Generate(_ context.Context, req Request) (review.FeedbackResult, error) {
	return o.feedback(req), nil
}

func (Offline) feedback(req Request) review.FeedbackResult {
	sum := review.ComputeSummary(req.Results)
	files := req.changedFiles()

	text := fmt.Sprintf("Found %d issues across %d files.", sum.Counts.Total(), files)
	if sum.Counts.Total() > 0 {
		text += fmt.Sprintf(" %d error(s), %d warning(s), %d info.", sum.Counts.Error, sum.Counts.Warning, sum.Counts.Info)
	}
	if req.Score.Grade != "" {
		text += fmt.Sprintf(" Overall score %.1f (%s).", req.Score.Overall, req.Score.Grade)
	}

	items := topIssues(req.Results, maxActionItems)
	if files > largeChange {
		items = append(items, review.ActionItem{Priority: "low", Text: "Consider breaking large changes into smaller PRs"})
	}

	return review.FeedbackResult{
		Summary:        text,
		ActionItems:    items,
		Recommendation: Recommend(req.Results, req.Score),
		Provider:       OfflineName,
	}
}

type located struct {
	path  string
	issue review.Issue
}

// topIssues returns action items for the most severe issues, most severe
// first, then by path and line.
func topIssues(results []review.AnalysisResult, limit int) []review.ActionItem {
	var all []located
	for _, r := range results {
		for _, is := range r.Issues {
			all = append(all, located{path: r.Path, issue: is})
		}
	}
	sort.SliceStable(all, func(i, j int) bool {
		ri, rj := review.SeverityRank(all[i].issue.Severity), review.SeverityRank(all[j].issue.Severity)
		if ri != rj {
			return ri > rj
		}
		if all[i].path != all[j].path {
			return all[i].path < all[j].path
		}
		return all[i].issue.Line < all[j].issue.Line
	})
	if len(all) > limit {
		all = all[:limit]
	}

	items := make([]review.ActionItem, 0, len(all)+1)
	for _, l := range all {
		loc := l.path
		if l.issue.Line > 0 {
			loc = fmt.Sprintf("%s:%d", l.path, l.issue.Line)
		}
		text := fmt.Sprintf("%s: %s", loc, l.issue.Message)
		if l.issue.Suggestion != "" {
			text += " (" + l.issue.Suggestion + ")"
		}
		items = append(items, review.ActionItem{Priority: Priority(l.issue.Severity), Text: text})
	}
	return items
}

// Priority maps an issue severity onto an action item priority.
func Priority(s review.Severity) string {
	switch s {
	case review.SeverityError:
		return "high"
	case review.SeverityWarning:
		return "medium"
	default:
		return "low"
	}
}
