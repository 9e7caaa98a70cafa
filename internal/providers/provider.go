package providers

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"
)

// DefaultTimeout bounds a single completion when none is configured.
const DefaultTimeout = 120 * time.Second

// Request is one prompt sent to a backend.
type Request struct {
	SystemPrompt string
	UserPrompt   string
	MaxTokens    int
	Temperature  float64
}

// Response is the raw completion from a backend.
type Response struct {
	Content    string
	TokensUsed int
}

// Client sends prompts to one AI backend.
type Client interface {
	Complete(ctx context.Context, req Request) (Response, error)
	Name() string
	Model() string
}

// Options configures a client. Empty fields fall back to environment
// variables and defaults.
type Options struct {
	Model   string
	APIKey  string
	BaseURL string
	Timeout time.Duration
	// HTTPClient overrides the transport, mainly for tests.
	HTTPClient *http.Client
}

func (o Options) httpClient() *http.Client {
	if o.HTTPClient != nil {
		return o.HTTPClient
	}
	timeout := o.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &http.Client{Timeout: timeout}
}

func (o Options) timeout() time.Duration {
	if o.Timeout > 0 {
		return o.Timeout
	}
	return DefaultTimeout
}

var defaultModels = map[string]string{
	"anthropic": "claude-sonnet-4-20250514",
	"openai":    "gpt-4o-mini",
	"gemini":    "gemini-2.0-flash",
	"ollama":    "llama3",
}

// canonical maps aliases onto backend names.
func canonical(name string) string {
	switch n := strings.ToLower(strings.TrimSpace(name)); n {
	case "google":
		return "gemini"
	case "lmstudio":
		return "ollama"
	case "claude":
		return "anthropic"
	default:
		return n
	}
}

// Names returns the supported backend names.
func Names() []string {
	names := make([]string, 0, len(defaultModels))
	for n := range defaultModels {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// DefaultModel returns the model used for a backend when none is configured.
func DefaultModel(name string) string {
	return defaultModels[canonical(name)]
}

// Known reports whether name (or an alias) is a supported backend.
func Known(name string) bool {
	_, ok := defaultModels[canonical(name)]
	return ok
}

// New creates a client by backend name.
func New(name string, opts Options) (Client, error) {
	n := canonical(name)
	if opts.Model == "" {
		opts.Model = defaultModels[n]
	}
	switch n {
	case "anthropic":
		return NewAnthropic(opts)
	case "openai":
		return NewOpenAI(opts)
	case "gemini":
		return NewGemini(opts)
	case "ollama":
		return NewOllama(opts)
	default:
		return nil, fmt.Errorf("unknown provider: %s", name)
	}
}
