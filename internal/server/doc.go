// Package server exposes the review orchestrator over HTTP.
//
// Routes:
//
//	GET  /health        liveness and configured servers
//	GET  /api/servers   configured server names
//	POST /api/reviews   review a pull request (orchestrator.Request body)
//	POST /api/analyze   analyze in-memory files ({"files": {path: content}})
//
// Failures are returned as {"error": {"kind", "message", "stage"}} with a
// status code derived from the error kind.
package server
