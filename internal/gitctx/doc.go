// Package gitctx reads branches, commits and diffs from a local git
// repository by shelling out to git. The local adapter uses it to review a
// branch against its base without a hosting service, and the CLI uses it to
// detect the remote a review should target.
//
// [MatchesAny] is the glob matcher shared with the analysis manager's
// exclude patterns.
package gitctx
