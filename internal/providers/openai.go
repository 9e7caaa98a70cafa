package providers

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"
)

const defaultOpenAIURL = "https://api.openai.com/v1/chat/completions"

// OpenAI implements Client for the Chat Completions API.
type OpenAI struct {
	apiKey  string
	model   string
	baseURL string
	opts    Options
	client  *http.Client
}

// NewOpenAI creates an OpenAI client. The key defaults to OPENAI_API_KEY and
// the endpoint to PRGATE_OPENAI_BASE_URL when set.
func NewOpenAI(opts Options) (*OpenAI, error) {
	key := opts.APIKey
	if key == "" {
		key = os.Getenv("OPENAI_API_KEY")
	}
	if key == "" {
		return nil, fmt.Errorf("OPENAI_API_KEY environment variable is not set")
	}
	baseURL := opts.BaseURL
	if baseURL == "" {
		baseURL = os.Getenv("PRGATE_OPENAI_BASE_URL")
	}
	if baseURL == "" {
		baseURL = defaultOpenAIURL
	}
	return &OpenAI{apiKey: key, model: opts.Model, baseURL: baseURL, opts: opts, client: opts.httpClient()}, nil
}

func (o *OpenAI) Name() string  { return "openai" }
func (o *OpenAI) Model() string { return o.model }

func (o *OpenAI) Complete(ctx context.Context, req Request) (Response, error) {
	headers := map[string]string{"Authorization": "Bearer " + o.apiKey}
	return chatCompletion(ctx, o.client, o.opts.timeout(), o.Name(), o.baseURL, headers, o.model, req)
}

// chatCompletion speaks the OpenAI-compatible chat protocol shared by OpenAI,
// Ollama and LM Studio.
func chatCompletion(ctx context.Context, client *http.Client, timeout time.Duration, backend, url string, headers map[string]string, model string, req Request) (Response, error) {
	maxTokens := req.MaxTokens
	if maxTokens == 0 {
		maxTokens = 4096
	}
	body := openaiRequest{
		Model: model,
		Messages: []openaiMessage{
			{Role: "system", Content: req.SystemPrompt},
			{Role: "user", Content: req.UserPrompt},
		},
		MaxTokens: maxTokens,
	}
	if req.Temperature > 0 {
		body.Temperature = &req.Temperature
	}

	var result openaiResponse
	if err := postJSON(ctx, client, timeout, backend, url, headers, body, &result); err != nil {
		return Response{}, err
	}
	if len(result.Choices) == 0 {
		return Response{}, malformed(backend, "no choices in response")
	}
	if result.Choices[0].Message.Content == "" {
		return Response{}, malformed(backend, "empty text content in API response")
	}
	return Response{
		Content:    result.Choices[0].Message.Content,
		TokensUsed: result.Usage.TotalTokens,
	}, nil
}

type openaiRequest struct {
	Model       string          `json:"model"`
	Messages    []openaiMessage `json:"messages"`
	MaxTokens   int             `json:"max_tokens"`
	Temperature *float64        `json:"temperature,omitempty"`
}

type openaiMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type openaiResponse struct {
	Choices []openaiChoice `json:"choices"`
	Usage   openaiUsage    `json:"usage"`
}

type openaiChoice struct {
	Message openaiMessage `json:"message"`
}

type openaiUsage struct {
	TotalTokens int `json:"total_tokens"`
}
