package providers

import (
	"context"
	"net/http"
	"os"
	"strings"
	"time"
)

const (
	defaultOllamaURL = "http://localhost:11434"
	// local models are slow; they get a longer default budget
	defaultOllamaTimeout = 300 * time.Second
)

// Ollama implements Client for Ollama and LM Studio through their
// OpenAI-compatible endpoint.
type Ollama struct {
	apiKey  string
	model   string
	baseURL string
	timeout time.Duration
	client  *http.Client
}

// NewOllama creates an Ollama client. The host defaults to OLLAMA_HOST; an
// optional bearer key is read from PRGATE_OLLAMA_API_KEY.
func NewOllama(opts Options) (*Ollama, error) {
	baseURL := opts.BaseURL
	if baseURL == "" {
		baseURL = os.Getenv("OLLAMA_HOST")
	}
	if baseURL == "" {
		baseURL = defaultOllamaURL
	}
	if !strings.Contains(baseURL, "://") {
		baseURL = "http://" + baseURL
	}
	baseURL = strings.TrimRight(baseURL, "/")
	baseURL = strings.TrimSuffix(baseURL, "/v1/chat/completions")
	baseURL = strings.TrimSuffix(baseURL, "/v1")

	apiKey := opts.APIKey
	if apiKey == "" {
		apiKey = os.Getenv("PRGATE_OLLAMA_API_KEY")
	}
	if opts.Timeout <= 0 {
		opts.Timeout = defaultOllamaTimeout
	}
	return &Ollama{
		apiKey:  apiKey,
		model:   opts.Model,
		baseURL: baseURL + "/v1/chat/completions",
		timeout: opts.Timeout,
		client:  opts.httpClient(),
	}, nil
}

func (o *Ollama) Name() string  { return "ollama" }
func (o *Ollama) Model() string { return o.model }

func (o *Ollama) Complete(ctx context.Context, req Request) (Response, error) {
	headers := map[string]string{}
	if o.apiKey != "" {
		headers["Authorization"] = "Bearer " + o.apiKey
	}
	return chatCompletion(ctx, o.client, o.timeout, o.Name(), o.baseURL, headers, o.model, req)
}
