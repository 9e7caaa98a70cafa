package analysis

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/prgate/internal/review"
)

func ruleIDs(issues []review.Issue) []string {
	var ids []string
	for _, is := range issues {
		ids = append(ids, is.RuleID)
	}
	return ids
}

const cleanGo = `package calc

// Add returns the sum of a and b.
func Add(a, b int) int {
	return a + b
}
`

func TestStructureCleanFile(t *testing.T) {
	res, err := NewStructure(Thresholds{}).Analyze("calc.go", cleanGo)
	require.NoError(t, err)
	assert.Empty(t, res.Issues)
	assert.Equal(t, 6, res.Metrics.Lines)
	assert.Equal(t, 1, res.Metrics.Functions)
	assert.Equal(t, 1, res.Metrics.Complexity)
	assert.Equal(t, "go", res.Language)
}

func TestStructureFileTooLong(t *testing.T) {
	content := strings.Repeat("x := 1\n", 30)
	res, err := NewStructure(Thresholds{MaxFileLines: 20}).Analyze("a.go", content)
	require.NoError(t, err)
	assert.Contains(t, ruleIDs(res.Issues), "file-too-long")
	assert.Equal(t, 0, res.Issues[0].Line)
}

func TestStructureLineTooLongIsCapped(t *testing.T) {
	long := strings.Repeat("a", 50)
	content := strings.Repeat("// "+long+"\n", 20)
	res, err := NewStructure(Thresholds{MaxLineLength: 40}).Analyze("a.go", content)
	require.NoError(t, err)
	assert.Len(t, res.Issues, maxLineReports)
	assert.Equal(t, review.SeverityInfo, res.Issues[0].Severity)
	assert.Equal(t, 1, res.Issues[0].Line)
}

func TestStructureComplexity(t *testing.T) {
	var b strings.Builder
	b.WriteString("package p\n\n// F branches a lot.\nfunc F(x int) int {\n")
	for i := 0; i < 12; i++ {
		fmt.Fprintf(&b, "\tif x == %d {\n\t\treturn %d\n\t}\n", i, i)
	}
	b.WriteString("\treturn 0\n}\n")

	res, err := NewStructure(Thresholds{}).Analyze("p.go", b.String())
	require.NoError(t, err)
	require.Contains(t, ruleIDs(res.Issues), "high-complexity")
	assert.Equal(t, 13, res.Metrics.Complexity)
	for _, is := range res.Issues {
		if is.RuleID == "high-complexity" {
			assert.Equal(t, 4, is.Line)
			assert.Equal(t, review.SeverityWarning, is.Severity)
		}
	}
}

func TestStructureFunctionTooLong(t *testing.T) {
	content := "def handler(event):\n    \"\"\"Handle.\"\"\"\n" + strings.Repeat("    x = 1\n", 10) + "\nprint(1)\n"
	res, err := NewStructure(Thresholds{MaxFunctionLines: 5}).Analyze("h.py", content)
	require.NoError(t, err)
	assert.Equal(t, []string{"function-too-long"}, ruleIDs(res.Issues))
}

func TestStructureTooManyParameters(t *testing.T) {
	tests := []struct {
		path    string
		content string
	}{
		{"a.go", "// F does it.\nfunc F(a, b, c int, d string, e, f bool) {\n}\n"},
		{"a.go", "// M does it.\nfunc (s *S) M(a, b, c, d, e, f int) {\n}\n"},
		{"a.py", "def f(self, a, b, c, d, e, g):\n    \"\"\"Doc.\"\"\"\n    pass\n"},
		{"a.js", "function f(a, b, c, d, e, g) {\n  return a\n}\n"},
		{"A.java", "  public int f(int a, int b, int c, int d, int e, Map<String, Integer> g) {\n    return a;\n  }\n"},
	}
	for _, tt := range tests {
		res, err := NewStructure(Thresholds{}).Analyze(tt.path, tt.content)
		require.NoError(t, err)
		assert.Contains(t, ruleIDs(res.Issues), "too-many-parameters", tt.content)
	}
}

func TestStructureReceiverNotCounted(t *testing.T) {
	res, err := NewStructure(Thresholds{MaxParameters: 2}).Analyze("a.go", "// M does it.\nfunc (s *S) M(a, b int) {\n}\n")
	require.NoError(t, err)
	assert.Empty(t, res.Issues)
}

func TestStructureMissingDoc(t *testing.T) {
	res, err := NewStructure(Thresholds{}).Analyze("a.go", "package a\n\nfunc Exported() {}\n\nfunc private() {}\n")
	require.NoError(t, err)
	require.Equal(t, []string{"missing-doc"}, ruleIDs(res.Issues))
	assert.Equal(t, 3, res.Issues[0].Line)
	assert.Equal(t, review.CategoryDocumentation, res.Issues[0].Category)
	assert.Equal(t, 2, res.Metrics.Functions)
}

func TestStructureCanHandle(t *testing.T) {
	s := NewStructure(Thresholds{})
	assert.True(t, s.CanHandle("main.go"))
	assert.True(t, s.CanHandle("app.py"))
	assert.False(t, s.CanHandle("README.md"))
	assert.False(t, s.CanHandle("config.yaml"))
}

func TestCountParams(t *testing.T) {
	tests := []struct {
		decl string
		lang string
		want int
	}{
		{"func F() {", "go", 0},
		{"func F(a int) {", "go", 1},
		{"func (r R) F(a, b int, m map[string]int) {", "go", 3},
		{"def f(self, *, a, b=1):", "python", 2},
		{"fn go(&self, a: Vec<(u8, u8)>) {", "rust", 1},
	}
	for _, tt := range tests {
		if got := countParams(tt.decl, tt.lang); got != tt.want {
			t.Errorf("countParams(%q) = %d, want %d", tt.decl, got, tt.want)
		}
	}
}

func TestKeywordEnd(t *testing.T) {
	lines := []string{
		"def run(x)",
		"  if x",
		"    y unless z",
		"  end",
		"  items.each { |i| puts i }",
		"end",
		"def noop; end",
		"def twice(n) = n * 2",
		"def tail",
		"  \"the end\" # end",
		"end",
	}
	tests := []struct{ start, want int }{{0, 5}, {6, 6}, {7, 7}, {8, 10}}
	for _, tt := range tests {
		if got := keywordEnd(lines, tt.start); got != tt.want {
			t.Errorf("keywordEnd(%d) = %d, want %d", tt.start, got, tt.want)
		}
	}
}

func TestStructureRubyFunctionLength(t *testing.T) {
	content := "def handler(event)\n" + strings.Repeat("x = 1\n", 10) + "end\n\ndef short\nx = 2\nend\n"
	res, err := NewStructure(Thresholds{MaxFunctionLines: 5}).Analyze("h.rb", content)
	require.NoError(t, err)
	require.Equal(t, []string{"function-too-long"}, ruleIDs(res.Issues))
	assert.Equal(t, 1, res.Issues[0].Line)
	assert.Contains(t, res.Issues[0].Message, "12 lines")
	assert.Equal(t, 2, res.Metrics.Functions)
}
