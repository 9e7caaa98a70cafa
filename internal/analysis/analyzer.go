package analysis

import (
	"fmt"
	"strings"

	"github.com/dshills/prgate/internal/review"
)

// Analyzer inspects a single file. Implementations must be safe for
// concurrent use; the manager may run one analyzer on many files at once.
type Analyzer interface {
	Name() string
	CanHandle(path string) bool
	Analyze(path, content string) (review.AnalysisResult, error)
}

// Thresholds configures the structure analyzer.
type Thresholds struct {
	MaxFileLines     int `yaml:"max_file_lines" json:"maxFileLines"`
	MaxFunctionLines int `yaml:"max_function_lines" json:"maxFunctionLines"`
	MaxLineLength    int `yaml:"max_line_length" json:"maxLineLength"`
	MaxComplexity    int `yaml:"max_complexity" json:"maxComplexity"`
	MaxParameters    int `yaml:"max_parameters" json:"maxParameters"`
}

// DefaultThresholds returns the thresholds used when none are configured.
func DefaultThresholds() Thresholds {
	return Thresholds{
		MaxFileLines:     500,
		MaxFunctionLines: 80,
		MaxLineLength:    120,
		MaxComplexity:    10,
		MaxParameters:    5,
	}
}

// withDefaults fills zero fields from DefaultThresholds.
func (t Thresholds) withDefaults() Thresholds {
	d := DefaultThresholds()
	if t.MaxFileLines <= 0 {
		t.MaxFileLines = d.MaxFileLines
	}
	if t.MaxFunctionLines <= 0 {
		t.MaxFunctionLines = d.MaxFunctionLines
	}
	if t.MaxLineLength <= 0 {
		t.MaxLineLength = d.MaxLineLength
	}
	if t.MaxComplexity <= 0 {
		t.MaxComplexity = d.MaxComplexity
	}
	if t.MaxParameters <= 0 {
		t.MaxParameters = d.MaxParameters
	}
	return t
}

// Constructor builds an analyzer from thresholds.
type Constructor func(Thresholds) Analyzer

type builtin struct {
	name  string
	build Constructor
	optIn bool // only built when named explicitly
}

// builtins is the registration order of the built-in analyzers.
var builtins = []builtin{
	{"structure", func(t Thresholds) Analyzer { return NewStructure(t) }, false},
	{"security", func(Thresholds) Analyzer { return NewSecurity() }, false},
	{"performance", func(Thresholds) Analyzer { return NewPerformance() }, false},
	{"testing", func(Thresholds) Analyzer { return NewCoverage() }, true},
}

// Names returns the built-in analyzer names in registration order.
func Names() []string {
	names := make([]string, len(builtins))
	for i, b := range builtins {
		names[i] = b.name
	}
	return names
}

// Defaults returns the built-ins enabled when none are named.
func Defaults() []string {
	var names []string
	for _, b := range builtins {
		if !b.optIn {
			names = append(names, b.name)
		}
	}
	return names
}

// Build returns the enabled analyzers in registration order: built-ins in
// table order, then custom analyzers in the order given. An empty enabled
// list enables the Defaults.
func Build(enabled []string, t Thresholds, custom ...Analyzer) ([]Analyzer, error) {
	want := map[string]bool{}
	for _, name := range enabled {
		want[strings.ToLower(strings.TrimSpace(name))] = true
	}
	known := map[string]bool{}
	var out []Analyzer
	for _, b := range builtins {
		known[b.name] = true
		if (len(want) == 0 && !b.optIn) || want[b.name] {
			out = append(out, b.build(t.withDefaults()))
		}
	}
	for _, a := range custom {
		if known[a.Name()] {
			return nil, fmt.Errorf("analyzer %q registered twice", a.Name())
		}
		known[a.Name()] = true
		out = append(out, a)
	}
	for name := range want {
		if !known[name] {
			return nil, fmt.Errorf("unknown analyzer %q (available: %s)", name, strings.Join(Names(), ", "))
		}
	}
	return out, nil
}
