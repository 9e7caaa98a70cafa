// Package orchestrator runs one pull request review from fetch to post.
//
// A review moves through fetching, analyzing, scoring and
// generating-feedback, then optionally posting, and ends in done or failed.
// Fetch errors, scoring contract violations and cancellation before posting
// fail the review with the stage recorded on the error. Posting runs detached
// from cancellation; if it fails, the review still completes with posted set
// to false and the reason in postError.
package orchestrator
