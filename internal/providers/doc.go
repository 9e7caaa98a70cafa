// Package providers is the transport layer for the AI feedback backends.
//
// Each backend (Anthropic, OpenAI, Gemini, and Ollama / LM Studio for local
// models) implements [Client]: one prompt in, one completion out. A call is a
// single attempt bounded by the configured timeout. Failures are classified
// into the review error taxonomy: 401/403 are auth failures, exhausted quota
// or billing is quota-exceeded, 429 is rate-limited, and 5xx, network errors
// and timeouts are transient. The feedback chain decides what to try next.
//
// Use [New] to obtain a Client by backend name.
package providers
