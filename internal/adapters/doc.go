// Package adapters connects the review pipeline to git hosts.
//
// Every host is reached through the same Adapter contract: fetch pull
// request metadata, fetch per-file diffs, post a review. Failures are typed
// review errors (not-found, auth, rate-limited, transient, post) so the
// orchestrator can report them uniformly whatever the host.
//
// Adapters are built from a Factory, an immutable table of host type to
// constructor. DefaultFactory knows github, gitlab, bitbucket and local.
package adapters
