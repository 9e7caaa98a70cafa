package analysis

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPerformanceNestedLoops(t *testing.T) {
	tests := []struct {
		name    string
		path    string
		content string
		line    int
	}{
		{"go", "a.go", "func f() {\n\tfor i := range a {\n\t\tfor j := range b {\n\t\t\t_ = i + j\n\t\t}\n\t}\n}\n", 3},
		{"python", "a.py", "for a in xs:\n    for b in ys:\n        print(a, b)\n", 2},
		{"js", "a.js", "for (let i = 0; i < n; i++) {\n  while (x) {\n    x--\n  }\n}\n", 2},
		{"comprehension", "a.py", "pairs = [(a, b) for a in xs for b in ys]\n", 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := NewPerformance().Analyze(tt.path, tt.content)
			require.NoError(t, err)
			require.Equal(t, []string{"nested-loop"}, ruleIDs(res.Issues))
			assert.Equal(t, tt.line, res.Issues[0].Line)
		})
	}
}

func TestPerformanceSequentialLoopsNotNested(t *testing.T) {
	goCode := "func f() {\n\tfor i := range a {\n\t\t_ = i\n\t}\n\tfor j := range b {\n\t\t_ = j\n\t}\n}\n"
	res, err := NewPerformance().Analyze("a.go", goCode)
	require.NoError(t, err)
	assert.Empty(t, res.Issues)

	pyCode := "for a in xs:\n    print(a)\nfor b in ys:\n    print(b)\n"
	res, err = NewPerformance().Analyze("a.py", pyCode)
	require.NoError(t, err)
	assert.Empty(t, res.Issues)
}

func TestPerformanceWorkInLoop(t *testing.T) {
	tests := []struct {
		name    string
		path    string
		content string
		rule    string
	}{
		{"concat py", "a.py", "for x in xs:\n    out += str(x)\n", "string-concat-in-loop"},
		{"concat js", "a.js", "for (const x of xs) {\n  s = s + \"x\";\n}\n", "string-concat-in-loop"},
		{"dom", "a.js", "items.forEach(i => {\n  document.querySelector('#list').append(i)\n})\n", "dom-query-in-loop"},
		{"regex", "a.go", "for _, l := range lines {\n\tre := regexp.MustCompile(p)\n\t_ = re\n}\n", "regex-compile-in-loop"},
		{"defer", "a.go", "for _, f := range files {\n\tfh, _ := os.Open(f)\n\tdefer fh.Close()\n}\n", "defer-in-loop"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := NewPerformance().Analyze(tt.path, tt.content)
			require.NoError(t, err)
			assert.Equal(t, []string{tt.rule}, ruleIDs(res.Issues))
		})
	}
}

func TestPerformanceOutsideLoopIgnored(t *testing.T) {
	res, err := NewPerformance().Analyze("a.go", "func f() {\n\tre := regexp.MustCompile(p)\n\tdefer c.Close()\n\ts += \"x\"\n}\n")
	require.NoError(t, err)
	assert.Empty(t, res.Issues)
}

func TestPerformanceConcatOtherVariable(t *testing.T) {
	res, err := NewPerformance().Analyze("a.js", "for (const x of xs) {\n  t = s + \"x\";\n}\n")
	require.NoError(t, err)
	assert.Empty(t, res.Issues)
}

func TestPerformanceRubyBlocksCloseWithEnd(t *testing.T) {
	nested := "items.each do |a|\nothers.each do |b|\nputs a\nend\nend\n"
	res, err := NewPerformance().Analyze("a.rb", nested)
	require.NoError(t, err)
	require.Equal(t, []string{"nested-loop"}, ruleIDs(res.Issues))
	assert.Equal(t, 2, res.Issues[0].Line)

	sequential := "items.each do |a|\n  puts a\nend\nothers.each do |b|\n  puts b\nend\n"
	res, err = NewPerformance().Analyze("a.rb", sequential)
	require.NoError(t, err)
	assert.Empty(t, res.Issues)
}
