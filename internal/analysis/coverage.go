package analysis

import (
	"fmt"
	"path"
	"strings"

	"github.com/dshills/prgate/internal/patch"
	"github.com/dshills/prgate/internal/review"
)

// ChangeSetAnalyzer is an Analyzer whose findings depend on the other files
// of the change. The manager calls ForChangeSet once per run and uses the
// returned analyzer for every file of that run.
type ChangeSetAnalyzer interface {
	Analyzer
	ForChangeSet(files []review.FileChange) Analyzer
}

// Coverage flags changed source files whose tests were not touched in the
// same change. A test counts when its name, stripped of test markers,
// matches the source file's name.
type Coverage struct {
	tested map[string]bool // stems of changed test files
}

func NewCoverage() *Coverage { return &Coverage{tested: map[string]bool{}} }

func (c *Coverage) Name() string { return "testing" }

// ForChangeSet returns a Coverage bound to the test files in files.
func (c *Coverage) ForChangeSet(files []review.FileChange) Analyzer {
	bound := &Coverage{tested: map[string]bool{}}
	for _, f := range files {
		if f.Kind != review.ChangeDeleted && IsTestPath(f.Path) {
			bound.tested[testStem(f.Path)] = true
		}
	}
	return bound
}

func (c *Coverage) CanHandle(p string) bool {
	lang := patch.Language(p)
	return lang != "" && lang != "shell" && patch.IsSource(lang) && !IsTestPath(p)
}

func (c *Coverage) Analyze(p, content string) (review.AnalysisResult, error) {
	res := review.AnalysisResult{Path: p, Language: patch.Language(p)}
	if c.tested[sourceStem(p)] {
		return res, nil
	}
	res.Issues = append(res.Issues, review.Issue{
		Severity:   review.SeverityInfo,
		Category:   review.CategoryTesting,
		RuleID:     "missing-test",
		Message:    fmt.Sprintf("%s changed without a matching test change", path.Base(p)),
		Suggestion: "Add or update tests covering this change",
	})
	return res, nil
}

var testDirs = map[string]bool{"test": true, "tests": true, "__tests__": true, "spec": true}

var testSuffixes = []string{"_test", ".test", ".spec", "_spec"}

// IsTestPath reports whether p names a test file by directory or file name
// convention.
func IsTestPath(p string) bool {
	p = path.Clean(strings.ReplaceAll(p, "\\", "/"))
	for _, dir := range strings.Split(strings.ToLower(path.Dir(p)), "/") {
		if testDirs[dir] {
			return true
		}
	}
	stem := fileStem(p)
	if patch.Language(p) == "java" && (strings.HasSuffix(stem, "Test") || strings.HasSuffix(stem, "Tests")) {
		return true
	}
	stem = strings.ToLower(stem)
	if strings.HasPrefix(stem, "test_") {
		return true
	}
	for _, suffix := range testSuffixes {
		if strings.HasSuffix(stem, suffix) {
			return true
		}
	}
	return false
}

func fileStem(p string) string {
	base := path.Base(strings.ReplaceAll(p, "\\", "/"))
	return strings.TrimSuffix(base, path.Ext(base))
}

// sourceStem is the lowercased file name without extension.
func sourceStem(p string) string { return strings.ToLower(fileStem(p)) }

// testStem reduces a test path to the stem of the source it covers:
// foo_test.go, test_foo.py, foo.spec.ts and FooTest.java all become "foo".
func testStem(p string) string {
	stem := fileStem(p)
	if patch.Language(p) == "java" {
		for _, suffix := range []string{"Tests", "Test"} {
			if s, ok := strings.CutSuffix(stem, suffix); ok && s != "" {
				return strings.ToLower(s)
			}
		}
	}
	stem = strings.ToLower(stem)
	if s, ok := strings.CutPrefix(stem, "test_"); ok && s != "" {
		return s
	}
	for _, suffix := range testSuffixes {
		if s, ok := strings.CutSuffix(stem, suffix); ok && s != "" {
			return s
		}
	}
	return stem
}
