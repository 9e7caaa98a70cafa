package review

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSeverityRank(t *testing.T) {
	tests := []struct {
		severity Severity
		want     int
	}{
		{SeverityInfo, 1},
		{SeverityWarning, 2},
		{SeverityError, 3},
		{Severity("unknown"), 0},
	}
	for _, tt := range tests {
		got := SeverityRank(tt.severity)
		if got != tt.want {
			t.Errorf("SeverityRank(%q) = %d, want %d", tt.severity, got, tt.want)
		}
	}
}

func TestParseSeverity(t *testing.T) {
	if s, ok := ParseSeverity("warning"); !ok || s != SeverityWarning {
		t.Errorf("ParseSeverity(warning) = %q, %v", s, ok)
	}
	if _, ok := ParseSeverity("critical"); ok {
		t.Error("ParseSeverity(critical) should be unknown")
	}
}

func TestRecommendationValid(t *testing.T) {
	for _, r := range []Recommendation{RecommendApprove, RecommendComment, RecommendRequestChanges} {
		if !r.Valid() {
			t.Errorf("%q should be valid", r)
		}
	}
	if Recommendation("merge").Valid() {
		t.Error("merge should be invalid")
	}
}

func TestComputeSummary(t *testing.T) {
	results := []AnalysisResult{
		{Path: "a.go", Metrics: Metrics{Lines: 10}, Issues: []Issue{
			{Severity: SeverityError, Category: CategorySecurity},
			{Severity: SeverityWarning, Category: CategoryStructure},
		}},
		{Path: "b.go", Metrics: Metrics{Lines: 5}, Issues: []Issue{
			{Severity: SeverityInfo, Category: CategoryStructure},
		}},
	}

	s := ComputeSummary(results)
	assert.Equal(t, 2, s.Files)
	assert.Equal(t, 15, s.Lines)
	assert.Equal(t, SeverityCounts{Info: 1, Warning: 1, Error: 1}, s.Counts)
	assert.Equal(t, 3, s.Counts.Total())
	assert.Equal(t, SeverityError, s.HighestSeverity)
	assert.Equal(t, 2, s.ByCategory[CategoryStructure])
}

func TestComputeSummaryEmpty(t *testing.T) {
	s := ComputeSummary(nil)
	if s.HighestSeverity != "" {
		t.Errorf("HighestSeverity = %q, want empty", s.HighestSeverity)
	}
	if s.Counts.Total() != 0 {
		t.Errorf("Total = %d, want 0", s.Counts.Total())
	}
}

func TestReviewResultJSONFields(t *testing.T) {
	posted := false
	r := ReviewResult{
		PR:       PRInfo{Number: 7, Title: "t"},
		Files:    []AnalysisResult{{Path: "a.go"}},
		Score:    ScoreBreakdown{Overall: 90, Grade: "A-"},
		Feedback: FeedbackResult{Recommendation: RecommendComment},
		Posted:   &posted,
	}
	data, err := json.Marshal(r)
	require.NoError(t, err)

	var m map[string]any
	require.NoError(t, json.Unmarshal(data, &m))
	for _, key := range []string{"pr", "files", "score", "feedback", "posted"} {
		assert.Contains(t, m, key)
	}
	assert.Equal(t, false, m["posted"])
}

func TestReviewResultPostedNullWhenNotRequested(t *testing.T) {
	data, err := json.Marshal(ReviewResult{})
	require.NoError(t, err)
	assert.Contains(t, string(data), `"posted":null`)
}
