// Package output formats review results for display or machine consumption.
//
// Four formats are supported:
//   - text: terminal output, styled with lipgloss when colour is enabled
//   - json: the ReviewResult document
//   - markdown: PR-comment friendly, findings collapsed per severity
//   - sarif: SARIF v2.1.0 for code scanning upload
//
// Use [GetWriter] to obtain a [Writer] for a format name, or [WriteReport]
// to write straight to a file or stdout.
package output
