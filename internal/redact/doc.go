// Package redact masks credentials in diff text before it leaves the process
// for an AI feedback backend.
//
// Assignment-shaped secrets keep their variable name and lose their value, so
// the model still sees that a credential was hardcoded. Bare tokens with a
// recognizable shape (provider API keys, JWTs, private key headers) are
// replaced outright. Files matching the configured path globs are withheld
// entirely.
package redact
