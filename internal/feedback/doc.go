// Package feedback turns analysis results and a score into a human-readable
// review.
//
// A Manager tries an ordered chain of providers. The first provider that
// answers wins; a provider that fails (auth, quota, transient) is recorded as
// an attempt and the chain moves on without retrying it. The chain always ends
// with Offline, which derives feedback deterministically from the results and
// never fails, so a review never lacks feedback.
//
// Whatever provider answers, its recommendation is reconciled against the
// analysis: error issues or a low score force request-changes, and an
// approval is only kept when the score and security findings allow it.
package feedback
