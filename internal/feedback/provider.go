package feedback

import (
	"context"

	"github.com/dshills/prgate/internal/review"
)

// Request is everything a provider may use to write feedback.
type Request struct {
	PR      review.PRInfo
	Files   []review.FileChange
	Results []review.AnalysisResult
	Score   review.ScoreBreakdown
}

// changedFiles is the number of files the review covered.
func (r Request) changedFiles() int {
	if len(r.Files) > 0 {
		return len(r.Files)
	}
	return len(r.Results)
}

// Provider produces feedback for one review.
type Provider interface {
	Name() string
	Generate(ctx context.Context, req Request) (review.FeedbackResult, error)
}
