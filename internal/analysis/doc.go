// Package analysis runs static analyzers over the changed files of a pull
// request.
//
// An [Analyzer] inspects one file's post-change text and reports Issues and
// Metrics. The built-in analyzers (structure, security, performance) are
// line-oriented and language-aware but do not parse source; they trade
// precision for speed and breadth across languages. The opt-in testing
// analyzer is a [ChangeSetAnalyzer]: it flags changed sources whose tests
// were not changed alongside them.
//
// The [Manager] fans (file, analyzer) pairs out over a bounded worker pool,
// isolates analyzer failures into synthetic "analyzer-error" issues, and
// merges the per-analyzer results into one deterministic AnalysisResult per
// file: issues are ordered by line, then by analyzer registration order.
package analysis
