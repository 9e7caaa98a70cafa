package scoring

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/dshills/prgate/internal/review"
)

// Grade is one row of the grade table.
type Grade struct {
	Min   float64 `yaml:"min" json:"min"`
	Grade string  `yaml:"grade" json:"grade"`
}

// Config holds the scoring parameters.
type Config struct {
	Weights   map[string]float64          `yaml:"category_weights" json:"categoryWeights"`
	Penalties map[review.Severity]float64 `yaml:"severity_penalties" json:"severityPenalties"`
	Grades    []Grade                     `yaml:"grade_thresholds" json:"gradeThresholds"`
}

// DefaultWeights returns the default category weights.
func DefaultWeights() map[string]float64 {
	return map[string]float64{
		review.CategorySecurity:    0.40,
		review.CategoryStructure:   0.35,
		review.CategoryPerformance: 0.25,
	}
}

// DefaultPenalties returns the default per-issue penalties.
func DefaultPenalties() map[review.Severity]float64 {
	return map[review.Severity]float64{
		review.SeverityError:   15,
		review.SeverityWarning: 5,
		review.SeverityInfo:    1,
	}
}

// DefaultGrades returns the default grade table, highest first.
func DefaultGrades() []Grade {
	return []Grade{
		{97, "A+"}, {93, "A"}, {90, "A-"},
		{87, "B+"}, {83, "B"}, {80, "B-"},
		{77, "C+"}, {73, "C"}, {70, "C-"},
		{67, "D+"}, {63, "D"}, {60, "D-"},
		{0, "F"},
	}
}

// DefaultConfig returns the default scoring configuration.
func DefaultConfig() Config {
	return Config{Weights: DefaultWeights(), Penalties: DefaultPenalties(), Grades: DefaultGrades()}
}

// Engine computes score breakdowns. It is immutable and safe for concurrent use.
type Engine struct {
	weights   map[string]float64
	total     float64
	penalties map[review.Severity]float64
	grades    []Grade
}

// New validates cfg and returns an engine. Missing sections fall back to the
// defaults; an invalid configuration is a scoring-contract error.
func New(cfg Config) (*Engine, error) {
	if cfg.Weights == nil {
		cfg.Weights = DefaultWeights()
	}
	if cfg.Penalties == nil {
		cfg.Penalties = DefaultPenalties()
	}
	if cfg.Grades == nil {
		cfg.Grades = DefaultGrades()
	}
	if err := cfg.Validate(); err != nil {
		return nil, review.NewError(review.KindScoringContract, "invalid scoring configuration", err)
	}

	e := &Engine{
		weights:   make(map[string]float64, len(cfg.Weights)),
		penalties: make(map[review.Severity]float64, len(cfg.Penalties)),
		grades:    append([]Grade(nil), cfg.Grades...),
	}
	for c, w := range cfg.Weights {
		e.weights[c] = w
		e.total += w
	}
	for s, p := range cfg.Penalties {
		e.penalties[s] = p
	}
	return e, nil
}

// Validate reports every problem with the configuration.
func (c Config) Validate() error {
	var errs []error
	if len(c.Weights) == 0 {
		errs = append(errs, errors.New("no category weights"))
	}
	var sum float64
	for _, cat := range sortedKeys(c.Weights) {
		w := c.Weights[cat]
		if math.IsNaN(w) || math.IsInf(w, 0) || w < 0 {
			errs = append(errs, fmt.Errorf("weight for %q must be a non-negative number, got %v", cat, w))
			continue
		}
		sum += w
	}
	if len(c.Weights) > 0 && sum <= 0 {
		errs = append(errs, errors.New("category weights sum to zero"))
	}
	for s, p := range c.Penalties {
		if _, ok := review.ParseSeverity(string(s)); !ok {
			errs = append(errs, fmt.Errorf("unknown severity %q in penalties", s))
		}
		if math.IsNaN(p) || p < 0 {
			errs = append(errs, fmt.Errorf("penalty for %q must be non-negative, got %v", s, p))
		}
	}
	if len(c.Grades) == 0 {
		errs = append(errs, errors.New("empty grade table"))
	}
	for i, g := range c.Grades {
		if strings.TrimSpace(g.Grade) == "" {
			errs = append(errs, fmt.Errorf("grade row %d has no label", i))
		}
		if i > 0 && g.Min >= c.Grades[i-1].Min {
			errs = append(errs, fmt.Errorf("grade thresholds must strictly descend: %s (%v) after %s (%v)",
				g.Grade, g.Min, c.Grades[i-1].Grade, c.Grades[i-1].Min))
		}
	}
	if n := len(c.Grades); n > 0 && c.Grades[n-1].Min > 0 {
		errs = append(errs, fmt.Errorf("lowest grade %s must have minimum 0", c.Grades[n-1].Grade))
	}
	return errors.Join(errs...)
}

// scorePrecision is the resolution of an overall score.
const scorePrecision = 1e6

func roundScore(x float64) float64 {
	return math.Round(x*scorePrecision) / scorePrecision
}

// Categories returns the weighted categories in sorted order.
func (e *Engine) Categories() []string {
	return sortedKeys(e.weights)
}

// Weight returns the normalized weight of a category.
func (e *Engine) Weight(category string) float64 {
	return e.weights[category] / e.total
}

// Score computes the breakdown for results. Issues in categories without a
// weight do not affect the score.
func (e *Engine) Score(results []review.AnalysisResult) (review.ScoreBreakdown, error) {
	deductions := make(map[string]float64, len(e.weights))
	for _, r := range results {
		for _, is := range r.Issues {
			if _, ok := e.weights[is.Category]; !ok {
				continue
			}
			deductions[is.Category] += e.penalties[is.Severity]
		}
	}

	b := review.ScoreBreakdown{Categories: make(map[string]float64, len(e.weights))}
	var weighted float64
	for _, cat := range e.Categories() {
		s := math.Max(0, 100-deductions[cat])
		b.Categories[cat] = s
		weighted += s * e.weights[cat]
	}
	// rounded so float drift never moves a score across a grade threshold
	b.Overall = math.Min(100, math.Max(0, roundScore(weighted/e.total)))
	if math.IsNaN(b.Overall) {
		return review.ScoreBreakdown{}, review.Errorf(review.KindScoringContract, "overall score is not a number")
	}
	b.Grade = e.Grade(b.Overall)
	return b, nil
}

// Grade maps an overall score to its letter grade: the first row, top to
// bottom, whose minimum the score meets.
func (e *Engine) Grade(overall float64) string {
	for _, g := range e.grades {
		if overall >= g.Min {
			return g.Grade
		}
	}
	return e.grades[len(e.grades)-1].Grade
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
