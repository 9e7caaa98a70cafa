// Package cache stores AI feedback on disk so that re-reviewing an unchanged
// pull request does not pay for the same completion twice.
//
// Entries are JSON files named by the SHA-256 of their key, which is built
// from the backend, model and the redacted prompt. Each entry carries its
// creation time; entries older than the TTL are treated as misses and
// removed when read.
//
// The default directory is $XDG_CACHE_HOME/prgate (or the OS-appropriate
// equivalent). Only redacted prompts contribute to keys, and only feedback
// payloads are stored.
package cache
