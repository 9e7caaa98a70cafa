package review

import "time"

// Severity represents the severity level of an issue.
type Severity string

const (
	SeverityInfo    Severity = "info"
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

// SeverityRank returns a numeric rank for sorting (higher = more severe).
func SeverityRank(s Severity) int {
	switch s {
	case SeverityError:
		return 3
	case SeverityWarning:
		return 2
	case SeverityInfo:
		return 1
	default:
		return 0
	}
}

// ParseSeverity converts a string to a Severity, reporting whether it is known.
func ParseSeverity(s string) (Severity, bool) {
	sev := Severity(s)
	return sev, SeverityRank(sev) > 0
}

// Issue categories emitted by the built-in analyzers. Scoring weights are
// keyed by these names; other categories are reported but carry no weight
// unless configured.
const (
	CategorySecurity      = "security"
	CategoryStructure     = "structure"
	CategoryPerformance   = "performance"
	CategoryDocumentation = "documentation"
	CategoryTesting       = "testing"
	CategoryAnalyzerError = "analyzer-error"
)

// ChangeKind describes how a file changed in a pull request.
type ChangeKind string

const (
	ChangeAdded    ChangeKind = "added"
	ChangeModified ChangeKind = "modified"
	ChangeDeleted  ChangeKind = "deleted"
)

// PRInfo is the pull request metadata fetched from a git host.
type PRInfo struct {
	ID          string   `json:"id"`
	Number      int      `json:"number"`
	Title       string   `json:"title"`
	Description string   `json:"description,omitempty"`
	Author      string   `json:"author"`
	BaseRef     string   `json:"baseRef"`
	HeadRef     string   `json:"headRef"`
	HeadSHA     string   `json:"headSha,omitempty"`
	URL         string   `json:"url,omitempty"`
	Repository  string   `json:"repository"`
	Files       []string `json:"files"`
	Additions   int      `json:"additions"`
	Deletions   int      `json:"deletions"`
	Commits     int      `json:"commits,omitempty"`
}

// FileChange is one changed file of a pull request.
//
// Content holds the post-change text when the host supplies it. When it is
// empty, analyzers see the new side of Diff with line numbers preserved.
type FileChange struct {
	Path      string     `json:"path"`
	Kind      ChangeKind `json:"kind"`
	Diff      string     `json:"diff,omitempty"`
	Language  string     `json:"language,omitempty"`
	Content   string     `json:"-"`
	Additions int        `json:"additions"`
	Deletions int        `json:"deletions"`
}

// Issue is a single finding produced by one analyzer invocation.
// Line is 1-based; zero means the issue applies to the whole file.
type Issue struct {
	Severity   Severity `json:"severity"`
	Category   string   `json:"category"`
	Line       int      `json:"line,omitempty"`
	Message    string   `json:"message"`
	RuleID     string   `json:"ruleId"`
	Suggestion string   `json:"suggestion,omitempty"`
	Analyzer   string   `json:"analyzer"`
}

// Metrics are per-file measurements collected during analysis.
type Metrics struct {
	Lines      int `json:"lines"`
	Functions  int `json:"functions"`
	Complexity int `json:"complexity"`
}

// AnalysisResult holds the issues and metrics for one file.
type AnalysisResult struct {
	Path     string  `json:"path"`
	Language string  `json:"language,omitempty"`
	Issues   []Issue `json:"issues"`
	Metrics  Metrics `json:"metrics"`
}

// ScoreBreakdown is the weighted quality score of a review.
type ScoreBreakdown struct {
	Categories map[string]float64 `json:"categories"`
	Overall    float64            `json:"overall"`
	Grade      string             `json:"grade"`
}

// Recommendation is the suggested review outcome.
type Recommendation string

const (
	RecommendApprove        Recommendation = "approve"
	RecommendComment        Recommendation = "comment"
	RecommendRequestChanges Recommendation = "request-changes"
)

// Valid reports whether r is one of the known recommendations.
func (r Recommendation) Valid() bool {
	switch r {
	case RecommendApprove, RecommendComment, RecommendRequestChanges:
		return true
	}
	return false
}

// ActionItem is one prioritized piece of advice for the author.
type ActionItem struct {
	Priority string `json:"priority"`
	Text     string `json:"text"`
}

// FeedbackResult is the human-readable review produced by a feedback provider.
type FeedbackResult struct {
	Summary        string         `json:"summary"`
	ActionItems    []ActionItem   `json:"actionItems"`
	Recommendation Recommendation `json:"recommendation"`
	Provider       string         `json:"provider"`
}

// Timing contains per-stage durations in milliseconds.
type Timing struct {
	FetchMs    int64 `json:"fetchMs"`
	AnalyzeMs  int64 `json:"analyzeMs"`
	FeedbackMs int64 `json:"feedbackMs"`
	PostMs     int64 `json:"postMs,omitempty"`
	TotalMs    int64 `json:"totalMs"`
}

// ReviewResult is the terminal artifact of a review.
//
// Posted is nil when posting was not requested.
type ReviewResult struct {
	Tool      string           `json:"tool"`
	Version   string           `json:"version"`
	RunID     string           `json:"runId"`
	PR        PRInfo           `json:"pr"`
	Files     []AnalysisResult `json:"files"`
	Score     ScoreBreakdown   `json:"score"`
	Feedback  FeedbackResult   `json:"feedback"`
	Posted    *bool            `json:"posted"`
	PostError string           `json:"postError,omitempty"`
	Timing    Timing           `json:"timing"`
}

// SeverityCounts holds counts by severity level.
type SeverityCounts struct {
	Info    int `json:"info"`
	Warning int `json:"warning"`
	Error   int `json:"error"`
}

// Total returns the number of counted issues.
func (c SeverityCounts) Total() int {
	return c.Info + c.Warning + c.Error
}

// Summary provides an overview of the issues in a set of results.
type Summary struct {
	Files           int            `json:"files"`
	Counts          SeverityCounts `json:"counts"`
	ByCategory      map[string]int `json:"byCategory"`
	HighestSeverity Severity       `json:"highestSeverity,omitempty"`
	Lines           int            `json:"lines"`
}

// ComputeSummary totals issues by severity and category.
func ComputeSummary(results []AnalysisResult) Summary {
	s := Summary{Files: len(results), ByCategory: map[string]int{}}
	for _, r := range results {
		s.Lines += r.Metrics.Lines
		for _, is := range r.Issues {
			switch is.Severity {
			case SeverityInfo:
				s.Counts.Info++
			case SeverityWarning:
				s.Counts.Warning++
			case SeverityError:
				s.Counts.Error++
			}
			s.ByCategory[is.Category]++
			if SeverityRank(is.Severity) > SeverityRank(s.HighestSeverity) {
				s.HighestSeverity = is.Severity
			}
		}
	}
	return s
}

// Since returns the milliseconds elapsed since start.
func Since(start time.Time) int64 {
	return time.Since(start).Milliseconds()
}
