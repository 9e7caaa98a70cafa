package feedback

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/dshills/prgate/internal/cache"
	"github.com/dshills/prgate/internal/providers"
	"github.com/dshills/prgate/internal/redact"
	"github.com/dshills/prgate/internal/review"
)

const answerSchema = `{
  "type": "object",
  "required": ["summary", "recommendation"],
  "properties": {
    "summary": {"type": "string", "pattern": "\\S"},
    "actionItems": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["text"],
        "properties": {
          "priority": {"enum": ["high", "medium", "low"]},
          "text": {"type": "string", "pattern": "\\S"}
        }
      }
    },
    "recommendation": {"enum": ["approve", "comment", "request-changes", "request_changes"]}
  }
}`

var schema = jsonschema.MustCompileString("prgate-feedback.json", answerSchema)

const defaultMaxTokens = 4096

// LLMOptions configures an AI-backed provider.
type LLMOptions struct {
	Redactor  *redact.Redactor
	Cache     *cache.Cache
	MaxTokens int
	// Focus lists areas the answer should prioritize.
	Focus  []string
	Logger *slog.Logger
}

// LLM asks an AI backend for feedback.
type LLM struct {
	client   providers.Client
	redactor *redact.Redactor
	cache    *cache.Cache
	tokens   int
	focus    []string
	log      *slog.Logger
}

// NewLLM wraps client as a feedback provider.
func NewLLM(client providers.Client, opts LLMOptions) *LLM {
	l := &LLM{client: client, redactor: opts.Redactor, cache: opts.Cache, tokens: opts.MaxTokens, focus: opts.Focus, log: opts.Logger}
	if l.redactor == nil {
		l.redactor = redact.New()
	}
	if l.tokens <= 0 {
		l.tokens = defaultMaxTokens
	}
	if l.log == nil {
		l.log = slog.New(slog.DiscardHandler)
	}
	return l
}

func (l *LLM) Name() string { return l.client.Name() }

// Generate sends one prompt. It does not retry; an answer that is not valid
// feedback JSON is a transient failure.
func (l *LLM) Generate(ctx context.Context, req Request) (review.FeedbackResult, error) {
	prompt, masked := BuildPrompt(req, l.redactor)
	prompt += focusSection(l.focus)
	if masked > 0 {
		l.log.Debug("redacted prompt", "provider", l.Name(), "secrets", masked)
	}

	key := cache.Key(l.client.Name(), l.client.Model(), systemPrompt, prompt)
	var cached review.FeedbackResult
	if l.cache != nil && l.cache.Get(key, &cached) {
		l.log.Debug("feedback cache hit", "provider", l.Name())
		return cached, nil
	}

	resp, err := l.client.Complete(ctx, providers.Request{
		SystemPrompt: systemPrompt,
		UserPrompt:   prompt,
		MaxTokens:    l.tokens,
		Temperature:  0.2,
	})
	if err != nil {
		return review.FeedbackResult{}, err
	}

	result, err := ParseAnswer(resp.Content)
	if err != nil {
		return review.FeedbackResult{}, review.NewError(review.KindTransient, l.Name()+" returned unusable feedback", err)
	}
	result.Provider = l.Name()

	if l.cache != nil {
		if err := l.cache.Put(key, result); err != nil {
			l.log.Warn("caching feedback", "provider", l.Name(), "error", err)
		}
	}
	return result, nil
}

type answer struct {
	Summary     string `json:"summary"`
	ActionItems []struct {
		Priority string `json:"priority"`
		Text     string `json:"text"`
	} `json:"actionItems"`
	Recommendation string `json:"recommendation"`
}

// ParseAnswer decodes and validates an AI answer. Markdown code fences around
// the JSON are tolerated.
func ParseAnswer(content string) (review.FeedbackResult, error) {
	content = stripFences(content)

	var doc any
	if err := json.Unmarshal([]byte(content), &doc); err != nil {
		return review.FeedbackResult{}, fmt.Errorf("invalid JSON: %w", err)
	}
	if err := schema.Validate(doc); err != nil {
		return review.FeedbackResult{}, fmt.Errorf("schema validation: %w", err)
	}

	var a answer
	if err := json.Unmarshal([]byte(content), &a); err != nil {
		return review.FeedbackResult{}, fmt.Errorf("decoding answer: %w", err)
	}
	out := review.FeedbackResult{
		Summary:        strings.TrimSpace(a.Summary),
		ActionItems:    make([]review.ActionItem, 0, len(a.ActionItems)),
		Recommendation: review.Recommendation(strings.ReplaceAll(a.Recommendation, "_", "-")),
	}
	for _, it := range a.ActionItems {
		p := it.Priority
		if p == "" {
			p = "medium"
		}
		out.ActionItems = append(out.ActionItems, review.ActionItem{Priority: p, Text: strings.TrimSpace(it.Text)})
	}
	return out, nil
}

func stripFences(content string) string {
	content = strings.TrimSpace(content)
	if !strings.HasPrefix(content, "```") {
		return content
	}
	lines := strings.Split(content, "\n")
	if len(lines) < 2 {
		return content
	}
	end := len(lines)
	if strings.TrimSpace(lines[end-1]) == "```" {
		end--
	}
	return strings.Join(lines[1:end], "\n")
}
