package providers

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"strings"
)

const (
	anthropicAPIURL     = "https://api.anthropic.com/v1/messages"
	anthropicAPIVersion = "2023-06-01"
)

// Anthropic implements Client for Anthropic's Messages API.
type Anthropic struct {
	apiKey string
	model  string
	url    string
	opts   Options
	client *http.Client
}

// NewAnthropic creates an Anthropic client. The key defaults to ANTHROPIC_API_KEY.
func NewAnthropic(opts Options) (*Anthropic, error) {
	key := opts.APIKey
	if key == "" {
		key = os.Getenv("ANTHROPIC_API_KEY")
	}
	if key == "" {
		return nil, fmt.Errorf("ANTHROPIC_API_KEY environment variable is not set")
	}
	url := opts.BaseURL
	if url == "" {
		url = anthropicAPIURL
	} else if !strings.HasSuffix(url, "/v1/messages") {
		url = strings.TrimRight(url, "/") + "/v1/messages"
	}
	return &Anthropic{apiKey: key, model: opts.Model, url: url, opts: opts, client: opts.httpClient()}, nil
}

func (a *Anthropic) Name() string  { return "anthropic" }
func (a *Anthropic) Model() string { return a.model }

func (a *Anthropic) Complete(ctx context.Context, req Request) (Response, error) {
	maxTokens := req.MaxTokens
	if maxTokens == 0 {
		maxTokens = 4096
	}
	body := anthropicRequest{
		Model:     a.model,
		MaxTokens: maxTokens,
		System:    req.SystemPrompt,
		Messages:  []anthropicMessage{{Role: "user", Content: req.UserPrompt}},
	}
	if req.Temperature > 0 {
		body.Temperature = &req.Temperature
	}

	var result anthropicResponse
	headers := map[string]string{
		"x-api-key":         a.apiKey,
		"anthropic-version": anthropicAPIVersion,
	}
	if err := postJSON(ctx, a.client, a.opts.timeout(), a.Name(), a.url, headers, body, &result); err != nil {
		return Response{}, err
	}

	var content strings.Builder
	for _, block := range result.Content {
		if block.Type == "text" {
			content.WriteString(block.Text)
		}
	}
	if content.Len() == 0 {
		return Response{}, malformed(a.Name(), "empty text content in API response")
	}
	return Response{
		Content:    content.String(),
		TokensUsed: result.Usage.InputTokens + result.Usage.OutputTokens,
	}, nil
}

type anthropicRequest struct {
	Model       string             `json:"model"`
	MaxTokens   int                `json:"max_tokens"`
	System      string             `json:"system,omitempty"`
	Messages    []anthropicMessage `json:"messages"`
	Temperature *float64           `json:"temperature,omitempty"`
}

type anthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type anthropicResponse struct {
	Content []anthropicBlock `json:"content"`
	Usage   anthropicUsage   `json:"usage"`
}

type anthropicBlock struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type anthropicUsage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}
