package analysis

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/dshills/prgate/internal/gitctx"
	"github.com/dshills/prgate/internal/patch"
	"github.com/dshills/prgate/internal/review"
)

// DefaultConcurrency is the worker limit when none is configured.
const DefaultConcurrency = 4

// DefaultMaxFileBytes skips files larger than 1MB.
const DefaultMaxFileBytes = 1 << 20

// Options controls which files are analyzed and how many analyzers run at once.
type Options struct {
	Concurrency  int
	Exclude      []string
	MaxFileBytes int
	// SeverityOverrides re-rate issues by rule ID, or by category when no
	// rule ID matches.
	SeverityOverrides map[string]review.Severity
	Logger            *slog.Logger
}

// Manager runs a fixed, ordered set of analyzers over changed files.
type Manager struct {
	analyzers []Analyzer
	opts      Options
	log       *slog.Logger
}

// NewManager returns a manager for analyzers in registration order.
func NewManager(analyzers []Analyzer, opts Options) *Manager {
	if opts.Concurrency <= 0 {
		opts.Concurrency = DefaultConcurrency
	}
	if opts.MaxFileBytes <= 0 {
		opts.MaxFileBytes = DefaultMaxFileBytes
	}
	log := opts.Logger
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &Manager{analyzers: analyzers, opts: opts, log: log}
}

// Analyzers returns the registered analyzer names in order.
func (m *Manager) Analyzers() []string {
	names := make([]string, len(m.analyzers))
	for i, a := range m.analyzers {
		names[i] = a.Name()
	}
	return names
}

// Skipped reports why a file would not be analyzed, or "" if it would be.
func (m *Manager) Skipped(f review.FileChange) string {
	switch {
	case f.Kind == review.ChangeDeleted:
		return "deleted"
	case gitctx.MatchesAny(f.Path, m.opts.Exclude):
		return "excluded"
	case len(f.Content) > m.opts.MaxFileBytes || len(f.Diff) > m.opts.MaxFileBytes:
		return "too large"
	}
	return ""
}

// Analyze runs every analyzer that can handle each file and returns one
// merged result per analyzed file, in input order. Analyzer failures are
// recorded as analyzer-error issues; the only error returned is the
// context's.
func (m *Manager) Analyze(ctx context.Context, files []review.FileChange) ([]review.AnalysisResult, error) {
	type target struct {
		file    review.FileChange
		content string
	}
	var targets []target
	for _, f := range files {
		if reason := m.Skipped(f); reason != "" {
			m.log.Debug("skipping file", "path", f.Path, "reason", reason)
			continue
		}
		content := f.Content
		if content == "" {
			content = patch.NewSide(f.Diff)
		}
		targets = append(targets, target{file: f, content: content})
	}

	// partial[i][j] is analyzer j's result for target i; nil if not applicable
	partial := make([][]*review.AnalysisResult, len(targets))
	for i := range partial {
		partial[i] = make([]*review.AnalysisResult, len(m.analyzers))
	}

	active := make([]Analyzer, len(m.analyzers))
	for j, a := range m.analyzers {
		active[j] = a
		if cs, ok := a.(ChangeSetAnalyzer); ok {
			active[j] = cs.ForChangeSet(files)
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(m.opts.Concurrency)
	for i, t := range targets {
		for j, a := range active {
			if gctx.Err() != nil {
				break
			}
			g.Go(func() error {
				if err := gctx.Err(); err != nil {
					return err
				}
				partial[i][j] = m.invoke(a, t.file.Path, t.content)
				return nil
			})
		}
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	results := make([]review.AnalysisResult, len(targets))
	for i, t := range targets {
		results[i] = merge(t.file, t.content, partial[i])
		m.override(results[i].Issues)
	}
	return results, nil
}

func (m *Manager) override(issues []review.Issue) {
	if len(m.opts.SeverityOverrides) == 0 {
		return
	}
	for k := range issues {
		if sev, ok := m.opts.SeverityOverrides[issues[k].RuleID]; ok {
			issues[k].Severity = sev
		} else if sev, ok := m.opts.SeverityOverrides[issues[k].Category]; ok {
			issues[k].Severity = sev
		}
	}
}

// invoke runs one analyzer on one file, converting errors and panics into a
// synthetic issue. It returns nil when the analyzer does not handle the file.
func (m *Manager) invoke(a Analyzer, path, content string) (res *review.AnalysisResult) {
	defer func() {
		if r := recover(); r != nil {
			m.log.Error("analyzer panicked", "analyzer", a.Name(), "path", path, "panic", r, "stack", string(debug.Stack()))
			res = failure(a.Name(), path, fmt.Errorf("panic: %v", r))
		}
	}()
	if !a.CanHandle(path) {
		return nil
	}
	out, err := a.Analyze(path, content)
	if err != nil {
		m.log.Warn("analyzer failed", "analyzer", a.Name(), "path", path, "error", err)
		return failure(a.Name(), path, err)
	}
	for k := range out.Issues {
		if out.Issues[k].Analyzer == "" {
			out.Issues[k].Analyzer = a.Name()
		}
	}
	return &out
}

func failure(analyzer, path string, err error) *review.AnalysisResult {
	return &review.AnalysisResult{
		Path: path,
		Issues: []review.Issue{{
			Severity: review.SeverityWarning,
			Category: review.CategoryAnalyzerError,
			RuleID:   review.CategoryAnalyzerError,
			Message:  fmt.Sprintf("analyzer %s failed: %v", analyzer, err),
			Analyzer: analyzer,
		}},
	}
}

// merge combines per-analyzer results for one file. Issues are appended in
// analyzer registration order and then stably sorted by line, so ties keep
// registration order and each analyzer's own emission order.
func merge(f review.FileChange, content string, parts []*review.AnalysisResult) review.AnalysisResult {
	lang := f.Language
	if lang == "" {
		lang = patch.Language(f.Path)
	}
	res := review.AnalysisResult{
		Path:     f.Path,
		Language: lang,
		Issues:   []review.Issue{},
		Metrics:  review.Metrics{Lines: len(splitLines(content))},
	}
	for _, p := range parts {
		if p == nil {
			continue
		}
		res.Issues = append(res.Issues, p.Issues...)
		res.Metrics.Lines = max(res.Metrics.Lines, p.Metrics.Lines)
		res.Metrics.Functions = max(res.Metrics.Functions, p.Metrics.Functions)
		res.Metrics.Complexity = max(res.Metrics.Complexity, p.Metrics.Complexity)
	}
	sort.SliceStable(res.Issues, func(a, b int) bool {
		return res.Issues[a].Line < res.Issues[b].Line
	})
	return res
}
