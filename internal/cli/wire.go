package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"golang.org/x/term"

	"github.com/dshills/prgate/internal/adapters"
	"github.com/dshills/prgate/internal/analysis"
	"github.com/dshills/prgate/internal/cache"
	"github.com/dshills/prgate/internal/config"
	"github.com/dshills/prgate/internal/feedback"
	"github.com/dshills/prgate/internal/orchestrator"
	"github.com/dshills/prgate/internal/providers"
	"github.com/dshills/prgate/internal/redact"
	"github.com/dshills/prgate/internal/review"
	"github.com/dshills/prgate/internal/scoring"
)

// loadConfig reads and validates the effective configuration.
func loadConfig(overrides map[string]string) (config.Config, error) {
	cfg, err := config.Load(flagConfig, overrides)
	if err != nil {
		return config.Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return config.Config{}, fmt.Errorf("invalid configuration:\n%w", err)
	}
	if cfg.Source != "" {
		logger.Debug("config loaded", "path", cfg.Source)
	}
	return cfg, nil
}

// buildAdapters creates one adapter per configured server. A server whose
// adapter cannot be constructed stays addressable and fails every call with
// the construction error.
func buildAdapters(cfg config.Config) map[string]adapters.Adapter {
	factory := adapters.DefaultFactory()
	out := make(map[string]adapters.Adapter, len(cfg.Servers))
	for name := range cfg.Servers {
		ac, _ := cfg.AdapterConfig(name)
		a, err := factory.New(ac)
		if err != nil {
			logger.Debug("server unavailable", "server", name, "err", err)
			a = unavailable{name: name, err: err}
		}
		out[name] = a
	}
	return out
}

type unavailable struct {
	name string
	err  error
}

func (u unavailable) Name() string { return u.name }

func (u unavailable) FetchPR(context.Context, string, int) (review.PRInfo, error) {
	return review.PRInfo{}, u.err
}

func (u unavailable) FetchDiffs(context.Context, string, int) ([]review.FileChange, error) {
	return nil, u.err
}

func (u unavailable) PostReview(context.Context, string, int, adapters.Submission) error {
	return u.err
}

func buildAnalysis(cfg config.Config) (*analysis.Manager, error) {
	analyzers, err := analysis.Build(cfg.Analysis.EnabledAnalyzers, cfg.Analysis.Thresholds)
	if err != nil {
		return nil, err
	}
	return analysis.NewManager(analyzers, analysis.Options{
		Concurrency:       cfg.Analysis.ConcurrencyLimit,
		Exclude:           cfg.Analysis.ExcludePatterns,
		MaxFileBytes:      cfg.Analysis.MaxFileBytes,
		SeverityOverrides: cfg.Analysis.Overrides(),
		Logger:            logger,
	}), nil
}

func openCache(cfg config.Config) (*cache.Cache, error) {
	c, err := cache.New(cache.Options{
		Enabled: cfg.Feedback.Cache.On(),
		Dir:     cfg.Feedback.Cache.Dir,
		TTL:     cfg.Feedback.Cache.TTL(),
	})
	if err != nil {
		return nil, fmt.Errorf("opening cache: %w", err)
	}
	return c, nil
}

// clientOptions returns the per-backend client options from cfg.
func clientOptions(cfg config.Config) map[string]providers.Options {
	out := make(map[string]providers.Options)
	for _, name := range providers.Names() {
		out[name] = providers.Options{
			Model:   cfg.Feedback.Models[name],
			BaseURL: cfg.Feedback.BaseURLs[name],
			Timeout: cfg.Feedback.NetworkTimeout,
		}
	}
	return out
}

func buildFeedback(cfg config.Config) (*feedback.Manager, error) {
	var r *redact.Redactor
	if cfg.Feedback.Redact() {
		r = redact.New(cfg.Feedback.RedactPaths...)
	} else {
		logger.Warn("secret redaction is disabled")
		r = redact.Disabled()
	}
	c, err := openCache(cfg)
	if err != nil {
		return nil, err
	}
	chain, err := feedback.Build(cfg.Feedback.ProviderOrder, clientOptions(cfg), feedback.LLMOptions{
		Redactor:  r,
		Cache:     c,
		MaxTokens: cfg.Feedback.MaxTokens,
		Focus:     cfg.Feedback.Focus,
		Logger:    logger,
	})
	if err != nil {
		return nil, err
	}
	return feedback.NewManager(logger, chain...), nil
}

// buildOrchestrator wires every pipeline component from cfg.
func buildOrchestrator(cfg config.Config) (*orchestrator.Orchestrator, error) {
	am, err := buildAnalysis(cfg)
	if err != nil {
		return nil, err
	}
	engine, err := scoring.New(cfg.Scoring)
	if err != nil {
		return nil, err
	}
	fm, err := buildFeedback(cfg)
	if err != nil {
		return nil, err
	}
	return orchestrator.New(orchestrator.Deps{
		Adapters: buildAdapters(cfg),
		Analysis: am,
		Scoring:  engine,
		Feedback: fm,
		Logger:   logger,
		OnTransition: func(tr orchestrator.Transition) {
			logger.Debug("stage", "run", tr.RunID, "from", tr.From, "to", tr.To)
		},
		Version: version,
	}), nil
}

// newOfflineOrchestrator wires analysis and scoring only; feedback is the
// offline generator.
func newOfflineOrchestrator(cfg config.Config, am *analysis.Manager) (*orchestrator.Orchestrator, error) {
	engine, err := scoring.New(cfg.Scoring)
	if err != nil {
		return nil, err
	}
	return orchestrator.New(orchestrator.Deps{
		Analysis: am,
		Scoring:  engine,
		Logger:   logger,
		Version:  version,
	}), nil
}

// exitFor maps an error to the process exit code.
func exitFor(err error) int {
	switch review.KindOf(err) {
	case review.KindAuth:
		return ExitAuthError
	case review.KindInvalidRequest:
		return ExitUsageError
	default:
		return ExitRuntimeError
	}
}

// fail reports err on w and records its exit code.
func fail(w io.Writer, err error) {
	fmt.Fprintf(w, "Error: %v\n", err)
	exitCode = exitFor(err)
}

// useColor reports whether text output to outPath should be styled.
func useColor(outPath string) bool {
	if outPath != "" || os.Getenv("NO_COLOR") != "" {
		return false
	}
	return term.IsTerminal(int(os.Stdout.Fd()))
}

func splitComma(s string) []string {
	var result []string
	for _, p := range strings.Split(s, ",") {
		p = strings.TrimSpace(p)
		if p != "" {
			result = append(result, p)
		}
	}
	return result
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
