package analysis

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/prgate/internal/review"
)

func TestIsTestPath(t *testing.T) {
	tests := []struct {
		path string
		want bool
	}{
		{"pkg/foo_test.go", true},
		{"tests/helpers.py", true},
		{"app/test_views.py", true},
		{"src/button.spec.ts", true},
		{"src/__tests__/button.js", true},
		{"src/main/java/FooTest.java", true},
		{"spec/models/user_spec.rb", true},
		{"pkg/foo.go", false},
		{"pkg/latest.go", false},
		{"src/Contest.java", false},
		{"testdata.go", false},
	}
	for _, tt := range tests {
		if got := IsTestPath(tt.path); got != tt.want {
			t.Errorf("IsTestPath(%q) = %v, want %v", tt.path, got, tt.want)
		}
	}
}

func TestTestStem(t *testing.T) {
	tests := map[string]string{
		"pkg/foo_test.go":    "foo",
		"app/test_views.py":  "views",
		"src/button.spec.ts": "button",
		"src/FooTest.java":   "foo",
		"src/FooTests.java":  "foo",
		"tests/helpers.py":   "helpers",
		"spec/user_spec.rb":  "user",
		"web/app.test.jsx":   "app",
		"pkg/latest_test.go": "latest",
	}
	for path, want := range tests {
		if got := testStem(path); got != want {
			t.Errorf("testStem(%q) = %q, want %q", path, got, want)
		}
	}
}

func TestCoverageCanHandle(t *testing.T) {
	c := NewCoverage()
	assert.True(t, c.CanHandle("pkg/foo.go"))
	assert.False(t, c.CanHandle("pkg/foo_test.go"))
	assert.False(t, c.CanHandle("README.md"))
	assert.False(t, c.CanHandle("deploy.sh"))
	assert.False(t, c.CanHandle("config.yaml"))
}

func TestCoverageFlagsUntestedSources(t *testing.T) {
	bound := NewCoverage().ForChangeSet([]review.FileChange{
		{Path: "pkg/foo.go", Kind: review.ChangeModified},
		{Path: "pkg/foo_test.go", Kind: review.ChangeModified},
		{Path: "pkg/latest.go", Kind: review.ChangeModified},
		{Path: "pkg/bar_test.go", Kind: review.ChangeDeleted},
		{Path: "pkg/bar.go", Kind: review.ChangeModified},
	})

	res, err := bound.Analyze("pkg/foo.go", "package pkg\n")
	require.NoError(t, err)
	assert.Empty(t, res.Issues)

	for _, p := range []string{"pkg/latest.go", "pkg/bar.go"} {
		res, err = bound.Analyze(p, "package pkg\n")
		require.NoError(t, err)
		require.Len(t, res.Issues, 1, p)
		is := res.Issues[0]
		assert.Equal(t, "missing-test", is.RuleID)
		assert.Equal(t, review.CategoryTesting, is.Category)
		assert.Equal(t, review.SeverityInfo, is.Severity)
		assert.Zero(t, is.Line)
	}
}

func TestManagerBindsChangeSet(t *testing.T) {
	as, err := Build([]string{"testing"}, Thresholds{})
	require.NoError(t, err)
	input := []review.FileChange{
		{Path: "a.py", Kind: review.ChangeModified, Content: "x = 1\n"},
		{Path: "tests/test_a.py", Kind: review.ChangeAdded, Content: "def test_x():\n    pass\n"},
		{Path: "b.py", Kind: review.ChangeModified, Content: "y = 2\n"},
	}

	results, err := NewManager(as, Options{Concurrency: 2}).Analyze(context.Background(), input)
	require.NoError(t, err)
	require.Len(t, results, 3)
	assert.Empty(t, results[0].Issues, "a.py has a test in the change")
	assert.Empty(t, results[1].Issues, "test files are not checked")
	assert.Equal(t, []string{"missing-test"}, ruleIDs(results[2].Issues))
	assert.Equal(t, "testing", results[2].Issues[0].Analyzer)
}
