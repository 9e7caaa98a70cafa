// Prgate reviews pull requests: it fetches the change set from GitHub,
// GitLab, Bitbucket or a local git repository, runs static analyzers over the
// changed files, scores the result, generates feedback through an ordered
// chain of AI backends ending in an offline generator, and optionally posts
// the review back to the host.
//
// Usage:
//
//	prgate review --repo acme/widgets --pr 42         # review a GitHub pull request
//	prgate review --server gitlab --repo g/p --pr 7 --post
//	prgate review --server local --repo main..HEAD    # review a revision range
//	prgate analyze ./src                              # analyze files on disk
//	prgate serve --addr :8080                         # run the HTTP service
//
// Exit codes: 0 success, 1 gate failed, 2 usage error, 3 auth error,
// 4 runtime error.
package main
