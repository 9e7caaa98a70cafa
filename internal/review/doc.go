// Package review defines the data model shared by every stage of a pull
// request review: the fetched PRInfo and FileChange values, analyzer Issues
// and AnalysisResults, the ScoreBreakdown, the FeedbackResult and the terminal
// ReviewResult whose JSON form (pr, files, score, feedback, posted) is a stable
// contract.
//
// errors.go holds the failure taxonomy. Adapters, providers and the scoring
// engine return *Error values tagged with a Kind; the orchestrator adds the
// Stage at which the failure surfaced before handing it to callers.
package review
