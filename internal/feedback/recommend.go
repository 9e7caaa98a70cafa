package feedback

import "github.com/dshills/prgate/internal/review"

const (
	requestChangesBelow = 60.0
	securityFloor       = 70.0
	approveFrom         = 85.0
)

// Recommend derives a recommendation from the analysis alone.
func Recommend(results []review.AnalysisResult, score review.ScoreBreakdown) review.Recommendation {
	sum := review.ComputeSummary(results)
	if sum.Counts.Error > 0 || score.Overall < requestChangesBelow {
		return review.RecommendRequestChanges
	}
	if sec, ok := score.Categories[review.CategorySecurity]; ok && sec < securityFloor {
		return review.RecommendRequestChanges
	}
	if score.Overall >= approveFrom && !hasSecurityConcern(results) {
		return review.RecommendApprove
	}
	return review.RecommendComment
}

// Reconcile combines a provider's recommendation with the analysis. The
// analysis can only make the outcome stricter: an approval the analysis does
// not support becomes a comment, and a request for changes is always kept.
func Reconcile(proposed review.Recommendation, results []review.AnalysisResult, score review.ScoreBreakdown) review.Recommendation {
	derived := Recommend(results, score)
	switch {
	case derived == review.RecommendRequestChanges, proposed == review.RecommendRequestChanges:
		return review.RecommendRequestChanges
	case proposed == review.RecommendComment:
		return review.RecommendComment
	default:
		return derived
	}
}

func hasSecurityConcern(results []review.AnalysisResult) bool {
	for _, r := range results {
		for _, is := range r.Issues {
			if is.Category == review.CategorySecurity && review.SeverityRank(is.Severity) >= review.SeverityRank(review.SeverityWarning) {
				return true
			}
		}
	}
	return false
}
