package analysis

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/prgate/internal/review"
)

// fakeAnalyzer returns canned issues, an error, or panics.
type fakeAnalyzer struct {
	name   string
	issues []review.Issue
	err    error
	panic  bool
	only   string // if set, CanHandle matches only this path
	delay  time.Duration
	calls  atomic.Int32
}

func (f *fakeAnalyzer) Name() string { return f.name }

func (f *fakeAnalyzer) CanHandle(path string) bool { return f.only == "" || f.only == path }

func (f *fakeAnalyzer) Analyze(path, content string) (review.AnalysisResult, error) {
	f.calls.Add(1)
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	if f.panic {
		panic("boom")
	}
	if f.err != nil {
		return review.AnalysisResult{}, f.err
	}
	return review.AnalysisResult{Path: path, Issues: f.issues, Metrics: review.Metrics{Functions: len(f.issues)}}, nil
}

func files(paths ...string) []review.FileChange {
	var out []review.FileChange
	for _, p := range paths {
		out = append(out, review.FileChange{Path: p, Kind: review.ChangeModified, Content: "line1\nline2\n"})
	}
	return out
}

func TestManagerMergeOrder(t *testing.T) {
	a := &fakeAnalyzer{name: "a", issues: []review.Issue{
		{Line: 5, RuleID: "a5"}, {Line: 2, RuleID: "a2-first"}, {Line: 2, RuleID: "a2-second"},
	}}
	b := &fakeAnalyzer{name: "b", issues: []review.Issue{
		{Line: 2, RuleID: "b2"}, {Line: 1, RuleID: "b1"},
	}}
	m := NewManager([]Analyzer{a, b}, Options{Concurrency: 3})

	results, err := m.Analyze(context.Background(), files("x.go"))
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, []string{"b1", "a2-first", "a2-second", "b2", "a5"}, ruleIDs(results[0].Issues))
	assert.Equal(t, "a", results[0].Issues[1].Analyzer)
	assert.Equal(t, 2, results[0].Metrics.Lines)
	assert.Equal(t, 3, results[0].Metrics.Functions)
}

func TestManagerDeterministicAcrossConcurrency(t *testing.T) {
	as, err := Build(nil, Thresholds{})
	require.NoError(t, err)
	input := []review.FileChange{
		{Path: "a.py", Kind: review.ChangeAdded, Content: "API_KEY = \"sk-...\"\nfor a in x:\n    for b in y:\n        s += str(b)\n"},
		{Path: "b.go", Kind: review.ChangeModified, Content: cleanGo},
		{Path: "c.js", Kind: review.ChangeModified, Content: "el.innerHTML = x\neval(y)\n"},
	}

	want, err := NewManager(as, Options{Concurrency: 1}).Analyze(context.Background(), input)
	require.NoError(t, err)
	for _, n := range []int{2, 4, 16} {
		for i := 0; i < 5; i++ {
			got, err := NewManager(as, Options{Concurrency: n}).Analyze(context.Background(), input)
			require.NoError(t, err)
			assert.Equal(t, want, got, "concurrency %d", n)
		}
	}
	assert.Equal(t, []string{"a.py", "b.go", "c.js"}, []string{want[0].Path, want[1].Path, want[2].Path})
}

func TestManagerIsolatesFailures(t *testing.T) {
	good := &fakeAnalyzer{name: "good", issues: []review.Issue{{Line: 1, RuleID: "ok"}}}
	failing := &fakeAnalyzer{name: "failing", err: errors.New("bad input"), only: "x.go"}
	panicking := &fakeAnalyzer{name: "panicking", panic: true, only: "y.go"}
	m := NewManager([]Analyzer{good, failing, panicking}, Options{})

	results, err := m.Analyze(context.Background(), files("x.go", "y.go", "z.go"))
	require.NoError(t, err)
	require.Len(t, results, 3)

	x := results[0].Issues
	require.Len(t, x, 2)
	assert.Equal(t, review.CategoryAnalyzerError, x[0].Category)
	assert.Equal(t, "failing", x[0].Analyzer)
	assert.Contains(t, x[0].Message, "bad input")
	assert.Equal(t, "ok", x[1].RuleID)

	y := results[1].Issues
	require.Len(t, y, 2)
	assert.Equal(t, review.CategoryAnalyzerError, y[0].Category)
	assert.Contains(t, y[0].Message, "panic")

	assert.Equal(t, []string{"ok"}, ruleIDs(results[2].Issues))
}

func TestManagerSkipsFiles(t *testing.T) {
	a := &fakeAnalyzer{name: "a"}
	m := NewManager([]Analyzer{a}, Options{Exclude: []string{"vendor/**"}, MaxFileBytes: 10})

	input := []review.FileChange{
		{Path: "gone.go", Kind: review.ChangeDeleted},
		{Path: "vendor/lib.go", Kind: review.ChangeModified, Content: "x"},
		{Path: "big.go", Kind: review.ChangeModified, Content: "0123456789abc"},
		{Path: "keep.go", Kind: review.ChangeModified, Content: "x"},
	}
	results, err := m.Analyze(context.Background(), input)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "keep.go", results[0].Path)
	assert.Equal(t, int32(1), a.calls.Load())
	assert.NotNil(t, results[0].Issues)
}

func TestManagerUsesDiffWhenNoContent(t *testing.T) {
	sec := NewSecurity()
	m := NewManager([]Analyzer{sec}, Options{})
	input := []review.FileChange{{
		Path: "cfg.py",
		Kind: review.ChangeModified,
		Diff: "--- a/cfg.py\n+++ b/cfg.py\n@@ -10,1 +10,2 @@\n x = 1\n+SECRET = \"abcdef123\"\n",
	}}
	results, err := m.Analyze(context.Background(), input)
	require.NoError(t, err)
	require.Len(t, results[0].Issues, 1)
	assert.Equal(t, 11, results[0].Issues[0].Line)
}

func TestManagerCanceled(t *testing.T) {
	slow := &fakeAnalyzer{name: "slow", delay: 20 * time.Millisecond}
	m := NewManager([]Analyzer{slow}, Options{Concurrency: 1})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	var many []string
	for i := 0; i < 50; i++ {
		many = append(many, fmt.Sprintf("f%d.go", i))
	}
	_, err := m.Analyze(ctx, files(many...))
	assert.ErrorIs(t, err, context.Canceled)
	assert.Less(t, slow.calls.Load(), int32(50))
}

func TestManagerBoundedConcurrency(t *testing.T) {
	var active, peak atomic.Int32
	probe := &probeAnalyzer{active: &active, peak: &peak}
	m := NewManager([]Analyzer{probe}, Options{Concurrency: 2})

	_, err := m.Analyze(context.Background(), files("a", "b", "c", "d", "e", "f"))
	require.NoError(t, err)
	assert.LessOrEqual(t, peak.Load(), int32(2))
}

type probeAnalyzer struct {
	active, peak *atomic.Int32
}

func (p *probeAnalyzer) Name() string          { return "probe" }
func (p *probeAnalyzer) CanHandle(string) bool { return true }
func (p *probeAnalyzer) Analyze(path, _ string) (review.AnalysisResult, error) {
	n := p.active.Add(1)
	for {
		old := p.peak.Load()
		if n <= old || p.peak.CompareAndSwap(old, n) {
			break
		}
	}
	time.Sleep(5 * time.Millisecond)
	p.active.Add(-1)
	return review.AnalysisResult{Path: path}, nil
}

func TestManagerAnalyzers(t *testing.T) {
	m := NewManager([]Analyzer{NewSecurity(), NewPerformance()}, Options{})
	assert.Equal(t, []string{"security", "performance"}, m.Analyzers())
}

func TestManagerSeverityOverrides(t *testing.T) {
	a := &fakeAnalyzer{name: "a", issues: []review.Issue{
		{Line: 1, RuleID: "line-too-long", Category: review.CategoryStructure, Severity: review.SeverityInfo},
		{Line: 2, RuleID: "todo", Category: review.CategoryStructure, Severity: review.SeverityInfo},
		{Line: 3, RuleID: "query-in-loop", Category: review.CategoryPerformance, Severity: review.SeverityWarning},
	}}
	m := NewManager([]Analyzer{a}, Options{SeverityOverrides: map[string]review.Severity{
		"line-too-long":            review.SeverityWarning,
		review.CategoryPerformance: review.SeverityError,
	}})

	res, err := m.Analyze(context.Background(), files("x.go"))
	require.NoError(t, err)
	require.Len(t, res[0].Issues, 3)
	assert.Equal(t, review.SeverityWarning, res[0].Issues[0].Severity, "rule override")
	assert.Equal(t, review.SeverityInfo, res[0].Issues[1].Severity, "untouched")
	assert.Equal(t, review.SeverityError, res[0].Issues[2].Severity, "category override")
	assert.Equal(t, review.SeverityInfo, a.issues[0].Severity, "analyzer output must not be mutated")
}
