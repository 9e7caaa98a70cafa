// Package scoring reduces analysis results to per-category scores, a weighted
// overall score and a letter grade.
//
// Each weighted category starts at 100 and loses a fixed penalty per issue
// severity, floored at zero. Weights are normalized to sum to one. The grade
// is the first row of a descending threshold table that the overall score
// meets. Scoring is pure: the same results always produce the same breakdown.
package scoring
