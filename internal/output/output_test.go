package output

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/dshills/prgate/internal/review"
)

func sampleResult() *review.ReviewResult {
	posted := false
	return &review.ReviewResult{
		Tool:    "prgate",
		Version: "1.0",
		RunID:   "run-1",
		PR: review.PRInfo{
			Number:     7,
			Title:      "Add config loader",
			Author:     "dev",
			BaseRef:    "main",
			HeadRef:    "feature",
			Repository: "acme/widgets",
			URL:        "https://example.com/acme/widgets/pull/7",
		},
		Files: []review.AnalysisResult{
			{
				Path:     "config.py",
				Language: "python",
				Issues: []review.Issue{
					{Severity: review.SeverityError, Category: review.CategorySecurity, Line: 3, Message: "Hardcoded API key", RuleID: "hardcoded-secret", Suggestion: "Load secrets from the environment", Analyzer: "security"},
					{Severity: review.SeverityInfo, Category: review.CategoryStructure, Message: "Missing module docstring", RuleID: "missing-docstring", Analyzer: "structure"},
				},
			},
			{
				Path: "app.py",
				Issues: []review.Issue{
					{Severity: review.SeverityWarning, Category: review.CategoryPerformance, Line: 10, Message: "Query in loop", RuleID: "query-in-loop", Analyzer: "performance"},
				},
			},
		},
		Score: review.ScoreBreakdown{
			Categories: map[string]float64{"security": 85, "structure": 99, "performance": 95},
			Overall:    92.3,
			Grade:      "A-",
		},
		Feedback: review.FeedbackResult{
			Summary:        "Found 3 issues across 2 files.",
			ActionItems:    []review.ActionItem{{Priority: "high", Text: "config.py:3: Hardcoded API key"}},
			Recommendation: review.RecommendRequestChanges,
			Provider:       "offline",
		},
		Posted:    &posted,
		PostError: "auth: bad credentials",
		Timing:    review.Timing{TotalMs: 42},
	}
}

func TestGetWriter(t *testing.T) {
	tests := []struct {
		format string
		want   string
	}{
		{"", "*output.TextWriter"},
		{"text", "*output.TextWriter"},
		{"JSON", "*output.JSONWriter"},
		{"markdown", "*output.MarkdownWriter"},
		{"md", "*output.MarkdownWriter"},
		{"sarif", "*output.SARIFWriter"},
	}
	for _, tt := range tests {
		w, err := GetWriter(tt.format, Options{})
		if err != nil {
			t.Fatalf("GetWriter(%q): %v", tt.format, err)
		}
		if got := typeName(w); got != tt.want {
			t.Errorf("GetWriter(%q) = %s, want %s", tt.format, got, tt.want)
		}
	}

	if _, err := GetWriter("xml", Options{}); err == nil || !strings.Contains(err.Error(), "sarif") {
		t.Errorf("expected error listing formats, got %v", err)
	}
}

func typeName(w Writer) string {
	switch w.(type) {
	case *TextWriter:
		return "*output.TextWriter"
	case *JSONWriter:
		return "*output.JSONWriter"
	case *MarkdownWriter:
		return "*output.MarkdownWriter"
	case *SARIFWriter:
		return "*output.SARIFWriter"
	}
	return "unknown"
}

func TestWriteReport_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.json")
	if err := WriteReport(sampleResult(), "json", path, Options{}); err != nil {
		t.Fatalf("WriteReport: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), `"runId": "run-1"`) {
		t.Errorf("file missing run id:\n%s", data)
	}
}

func TestFlattenOrdersByPathThenLine(t *testing.T) {
	got := flatten(sampleResult())
	if len(got) != 3 {
		t.Fatalf("flatten returned %d issues, want 3", len(got))
	}
	order := []string{location(got[0]), location(got[1]), location(got[2])}
	want := []string{"app.py:10", "config.py", "config.py:3"}
	for i := range want {
		if order[i] != want[i] {
			t.Errorf("order[%d] = %q, want %q", i, order[i], want[i])
		}
	}
}

func TestTextWriter(t *testing.T) {
	var buf bytes.Buffer
	if err := (&TextWriter{}).Write(&buf, sampleResult()); err != nil {
		t.Fatalf("Write error: %v", err)
	}
	out := buf.String()
	for _, want := range []string{
		"prgate review: acme/widgets #7",
		"Grade: A-",
		"Recommendation: Request changes",
		"(1 error, 1 warning, 1 info)",
		"[!!] ERROR (1)",
		"config.py:3  Hardcoded API key [hardcoded-secret]",
		"Load secrets from the environment",
		"[high] config.py:3",
		"Review not posted: auth: bad credentials",
		"Feedback by offline.",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "\x1b[") {
		t.Error("plain output should not contain escape sequences")
	}
}

func TestTextWriter_NoIssues(t *testing.T) {
	res := &review.ReviewResult{
		Files:    []review.AnalysisResult{{Path: "a.go"}},
		Score:    review.ScoreBreakdown{Overall: 100, Grade: "A+", Categories: map[string]float64{"security": 100}},
		Feedback: review.FeedbackResult{Recommendation: review.RecommendApprove, Provider: "offline"},
	}
	var buf bytes.Buffer
	if err := (&TextWriter{Color: true}).Write(&buf, res); err != nil {
		t.Fatalf("Write error: %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, "No issues found") {
		t.Errorf("expected no-issues line:\n%s", out)
	}
	if strings.Contains(out, "Review ") {
		t.Error("posting status should be omitted when posting was not requested")
	}
}

func TestJSONWriter(t *testing.T) {
	var buf bytes.Buffer
	if err := (&JSONWriter{}).Write(&buf, &review.ReviewResult{Tool: "prgate"}); err != nil {
		t.Fatalf("Write error: %v", err)
	}
	var doc map[string]any
	if err := json.Unmarshal(buf.Bytes(), &doc); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	for _, key := range []string{"pr", "files", "score", "feedback", "posted"} {
		if _, ok := doc[key]; !ok {
			t.Errorf("missing key %q", key)
		}
	}
	if files, ok := doc["files"].([]any); !ok || len(files) != 0 {
		t.Errorf("files = %v, want empty array", doc["files"])
	}
	if doc["posted"] != nil {
		t.Errorf("posted = %v, want null", doc["posted"])
	}
}

func TestMarkdownWriter(t *testing.T) {
	var buf bytes.Buffer
	if err := (&MarkdownWriter{}).Write(&buf, sampleResult()); err != nil {
		t.Fatalf("Write error: %v", err)
	}
	out := buf.String()
	for _, want := range []string{
		"## prgate review: Request changes",
		"([#7](https://example.com/acme/widgets/pull/7))",
		"**Score:** 92.3 (A-)",
		"| security | 85.0 |",
		"| **Total** | **3** |",
		"<summary>:red_circle: ERROR (1)</summary>",
		"- **`config.py:3`** Hardcoded API key _(security, hardcoded-secret)_",
		"  > Load secrets from the environment",
		"- **high**: config.py:3: Hardcoded API key",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("markdown missing %q:\n%s", want, out)
		}
	}
	if strings.Count(out, "<details>") != 3 {
		t.Errorf("expected one collapsible section per severity:\n%s", out)
	}
}

func TestLooksLikeCode(t *testing.T) {
	if !looksLikeCode("key := os.Getenv(\"API_KEY\")") {
		t.Error("assignment should look like code")
	}
	if looksLikeCode("Load secrets from the environment") {
		t.Error("prose should not look like code")
	}
}

func TestSARIFWriter(t *testing.T) {
	var buf bytes.Buffer
	if err := (&SARIFWriter{}).Write(&buf, sampleResult()); err != nil {
		t.Fatalf("Write error: %v", err)
	}
	var log sarifLog
	if err := json.Unmarshal(buf.Bytes(), &log); err != nil {
		t.Fatalf("invalid SARIF JSON: %v", err)
	}
	if log.Version != "2.1.0" || len(log.Runs) != 1 {
		t.Fatalf("unexpected log header: %+v", log)
	}
	run := log.Runs[0]
	if run.Tool.Driver.Name != "prgate" {
		t.Errorf("driver = %q", run.Tool.Driver.Name)
	}
	if len(run.Results) != 3 || len(run.Tool.Driver.Rules) != 3 {
		t.Fatalf("results=%d rules=%d, want 3/3", len(run.Results), len(run.Tool.Driver.Rules))
	}

	levels := map[string]string{}
	for _, r := range run.Results {
		levels[r.RuleID] = r.Level
	}
	want := map[string]string{
		"prgate/security/hardcoded-secret":   "error",
		"prgate/performance/query-in-loop":   "warning",
		"prgate/structure/missing-docstring": "note",
	}
	for id, lvl := range want {
		if levels[id] != lvl {
			t.Errorf("level[%s] = %q, want %q", id, levels[id], lvl)
		}
	}

	for _, r := range run.Results {
		region := r.Locations[0].PhysicalLocation.Region
		if r.RuleID == "prgate/structure/missing-docstring" && region != nil {
			t.Error("file-level issue should have no region")
		}
		if r.RuleID == "prgate/security/hardcoded-secret" && (region == nil || region.StartLine != 3) {
			t.Errorf("region = %+v, want startLine 3", region)
		}
	}
}

func TestSARIFWriter_Empty(t *testing.T) {
	var buf bytes.Buffer
	if err := (&SARIFWriter{}).Write(&buf, &review.ReviewResult{}); err != nil {
		t.Fatalf("Write error: %v", err)
	}
	if !strings.Contains(buf.String(), `"results": []`) {
		t.Errorf("expected empty results array:\n%s", buf.String())
	}
}

func TestWrapText(t *testing.T) {
	lines := wrapText("one two three four five six seven", 10)
	for _, l := range lines {
		if len(l) > 10 {
			t.Errorf("line %q exceeds width", l)
		}
	}
	if strings.Join(lines, " ") != "one two three four five six seven" {
		t.Errorf("words lost: %v", lines)
	}
}
