package feedback

import (
	"fmt"
	"sort"
	"strings"

	"github.com/dshills/prgate/internal/redact"
	"github.com/dshills/prgate/internal/review"
)

const systemPrompt = `You are a strict, expert code reviewer. You receive a pull request, the findings of static analyzers and a quality score. Write a short review for the author.

Rules:
1. Base your review on the changes and findings shown. Do not invent files or line numbers.
2. Focus on bugs, security issues, performance problems and maintainability. Avoid style nitpicks.
3. Every action item must be concrete and actionable.
4. Priorities are "high", "medium" or "low".
5. Recommend "approve", "comment" or "request-changes".

You MUST respond with ONLY a JSON object. No markdown, no explanation, no preamble.

The object must have this exact structure:
{
  "summary": "Two to four sentences on the change and its quality",
  "actionItems": [{"priority": "high|medium|low", "text": "What to change and why"}],
  "recommendation": "approve|comment|request-changes"
}`

const (
	issuesPerFile = 5
	maxSnippets   = 3
	maxDiffBytes  = 48 * 1024
)

// SystemPrompt returns the system prompt sent to AI backends.
func SystemPrompt() string { return systemPrompt }

// BuildPrompt renders the user prompt for req. File diffs pass through the
// redactor before they are included. The second return value counts the
// masked secrets.
func BuildPrompt(req Request, r *redact.Redactor) (string, int) {
	if r == nil {
		r = redact.New()
	}
	var b strings.Builder
	masked := 0

	b.WriteString("# Pull Request\n\n")
	if req.PR.Title != "" {
		fmt.Fprintf(&b, "Title: %s\n", req.PR.Title)
	}
	if req.PR.Repository != "" {
		fmt.Fprintf(&b, "Repository: %s (#%d)\n", req.PR.Repository, req.PR.Number)
	}
	if desc := strings.TrimSpace(req.PR.Description); desc != "" {
		text, n := r.Secrets(desc)
		masked += n
		fmt.Fprintf(&b, "\n%s\n", text)
	}

	b.WriteString("\n## Changed files\n")
	for _, f := range req.Files {
		fmt.Fprintf(&b, "- %s (%s): +%d/-%d\n", f.Path, f.Kind, f.Additions, f.Deletions)
	}

	b.WriteString("\n## Score\n")
	fmt.Fprintf(&b, "Overall: %.1f (%s)\n", req.Score.Overall, req.Score.Grade)
	cats := make([]string, 0, len(req.Score.Categories))
	for c := range req.Score.Categories {
		cats = append(cats, c)
	}
	sort.Strings(cats)
	for _, c := range cats {
		fmt.Fprintf(&b, "- %s: %.1f\n", c, req.Score.Categories[c])
	}

	b.WriteString("\n## Analyzer findings\n")
	total := 0
	for _, res := range req.Results {
		if len(res.Issues) == 0 {
			continue
		}
		total += len(res.Issues)
		fmt.Fprintf(&b, "\n### %s\n", res.Path)
		for i, is := range res.Issues {
			if i == issuesPerFile {
				fmt.Fprintf(&b, "- ... and %d more issues\n", len(res.Issues)-issuesPerFile)
				break
			}
			fmt.Fprintf(&b, "- Line %d: %s [%s] %s\n", is.Line, strings.ToUpper(string(is.Severity)), is.Category, is.Message)
		}
	}
	fmt.Fprintf(&b, "\nTotal issues: %d\n", total)

	b.WriteString("\n## Diffs\n")
	budget := maxDiffBytes
	for _, f := range req.Files {
		if f.Diff == "" {
			continue
		}
		diff, n := r.Content(f.Path, f.Diff)
		masked += n
		if len(diff) > budget {
			fmt.Fprintf(&b, "\n(remaining diffs omitted)\n")
			break
		}
		budget -= len(diff)
		fmt.Fprintf(&b, "\n--- %s ---\n%s\n", f.Path, diff)
	}

	if snippets, n := errorSnippets(req, r); snippets != "" {
		masked += n
		b.WriteString("\n## Key code snippets\n")
		b.WriteString(snippets)
	}
	return b.String(), masked
}

// errorSnippets shows a few lines around the first error issues.
func errorSnippets(req Request, r *redact.Redactor) (string, int) {
	content := make(map[string]string, len(req.Files))
	for _, f := range req.Files {
		content[f.Path] = f.Content
	}
	var b strings.Builder
	count, masked := 0, 0
	for _, res := range req.Results {
		for _, is := range res.Issues {
			if count == maxSnippets {
				return b.String(), masked
			}
			if is.Severity != review.SeverityError || is.Line == 0 || content[res.Path] == "" || r.Withheld(res.Path) {
				continue
			}
			lines := strings.Split(content[res.Path], "\n")
			if is.Line > len(lines) {
				continue
			}
			start, end := max(0, is.Line-3), min(len(lines), is.Line+2)
			text, n := r.Secrets(strings.Join(lines[start:end], "\n"))
			masked += n
			fmt.Fprintf(&b, "\n### %s (line %d)\n```\n%s\n```\n", res.Path, is.Line, text)
			count++
		}
	}
	return b.String(), masked
}

// focusSection asks the backend to weigh the named areas first.
func focusSection(focus []string) string {
	if len(focus) == 0 {
		return ""
	}
	return fmt.Sprintf("\nFocus areas: %s. Prioritize feedback in these areas.\n", strings.Join(focus, ", "))
}
