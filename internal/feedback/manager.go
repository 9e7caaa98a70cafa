package feedback

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/dshills/prgate/internal/providers"
	"github.com/dshills/prgate/internal/review"
)

// Attempt records a provider that failed during a review.
type Attempt struct {
	Provider string      `json:"provider"`
	Kind     review.Kind `json:"kind"`
	Message  string      `json:"message"`
}

// Manager runs the provider chain.
type Manager struct {
	chain   []Provider
	offline Offline
	log     *slog.Logger
}

// NewManager returns a manager over chain. Offline is always tried last and
// need not be included.
func NewManager(logger *slog.Logger, chain ...Provider) *Manager {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	m := &Manager{log: logger}
	for _, p := range chain {
		if p == nil || p.Name() == OfflineName {
			continue
		}
		m.chain = append(m.chain, p)
	}
	return m
}

// Providers returns the provider names in the order they are tried.
func (m *Manager) Providers() []string {
	names := make([]string, 0, len(m.chain)+1)
	for _, p := range m.chain {
		names = append(names, p.Name())
	}
	return append(names, OfflineName)
}

// Generate returns feedback from the first provider that succeeds, plus the
// failed attempts before it. It cannot fail. Once ctx is done, remaining
// remote providers are skipped.
func (m *Manager) Generate(ctx context.Context, req Request) (review.FeedbackResult, []Attempt) {
	var attempts []Attempt
	for _, p := range m.chain {
		if ctx.Err() != nil {
			break
		}
		res, err := p.Generate(ctx, req)
		if err != nil {
			pub := review.PublicError(err)
			attempts = append(attempts, Attempt{Provider: p.Name(), Kind: pub.Kind, Message: pub.Message})
			m.log.Warn("feedback provider failed", "provider", p.Name(), "kind", pub.Kind, "error", pub.Message)
			continue
		}
		return m.finish(res, p.Name(), req), attempts
	}
	return m.finish(m.offline.feedback(req), OfflineName, req), attempts
}

func (m *Manager) finish(res review.FeedbackResult, name string, req Request) review.FeedbackResult {
	res.Provider = name
	if res.ActionItems == nil {
		res.ActionItems = []review.ActionItem{}
	}
	res.Recommendation = Reconcile(res.Recommendation, req.Results, req.Score)
	return res
}

// Build creates the provider chain named by order. "offline" entries are
// accepted and ignored since Offline always ends the chain. clients supplies
// per-backend client options.
func Build(order []string, clients map[string]providers.Options, opts LLMOptions) ([]Provider, error) {
	var chain []Provider
	for _, name := range order {
		if name == OfflineName {
			continue
		}
		if !providers.Known(name) {
			return nil, fmt.Errorf("unknown feedback provider %q", name)
		}
		client, err := providers.New(name, clients[name])
		if err != nil {
			// A backend without credentials stays in the chain and fails as
			// an auth attempt, so the review still records why it was skipped.
			chain = append(chain, unavailable{name: name, err: review.NewError(review.KindAuth, "provider not configured", err)})
			continue
		}
		chain = append(chain, NewLLM(client, opts))
	}
	return chain, nil
}

type unavailable struct {
	name string
	err  error
}

func (u unavailable) Name() string { return u.name }

func (u unavailable) Generate(context.Context, Request) (review.FeedbackResult, error) {
	return review.FeedbackResult{}, u.err
}
