package output

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/dshills/prgate/internal/review"
)

// TextWriter outputs a human-readable text report.
type TextWriter struct {
	Color bool
}

// palette renders text through lipgloss styles, or verbatim when colour is off.
type palette struct {
	on       bool
	title    lipgloss.Style
	rule     lipgloss.Style
	dim      lipgloss.Style
	grade    map[byte]lipgloss.Style
	severity map[review.Severity]lipgloss.Style
}

func newPalette(w io.Writer, on bool) palette {
	r := lipgloss.NewRenderer(w)
	return palette{
		on:    on,
		title: r.NewStyle().Bold(true),
		rule:  r.NewStyle().Foreground(lipgloss.Color("8")),
		dim:   r.NewStyle().Faint(true),
		grade: map[byte]lipgloss.Style{
			'A': r.NewStyle().Bold(true).Foreground(lipgloss.Color("10")),
			'B': r.NewStyle().Bold(true).Foreground(lipgloss.Color("14")),
			'C': r.NewStyle().Bold(true).Foreground(lipgloss.Color("11")),
			'D': r.NewStyle().Bold(true).Foreground(lipgloss.Color("208")),
			'F': r.NewStyle().Bold(true).Foreground(lipgloss.Color("9")),
		},
		severity: map[review.Severity]lipgloss.Style{
			review.SeverityError:   r.NewStyle().Bold(true).Foreground(lipgloss.Color("9")),
			review.SeverityWarning: r.NewStyle().Foreground(lipgloss.Color("11")),
			review.SeverityInfo:    r.NewStyle().Foreground(lipgloss.Color("12")),
		},
	}
}

func (p palette) render(s lipgloss.Style, text string) string {
	if !p.on {
		return text
	}
	return s.Render(text)
}

func (p palette) gradeText(g string) string {
	if g == "" {
		return g
	}
	s, ok := p.grade[g[0]]
	if !ok {
		return g
	}
	return p.render(s, g)
}

func (t *TextWriter) Write(w io.Writer, res *review.ReviewResult) error {
	ew := &errWriter{w: w}
	p := newPalette(w, t.Color)
	line := p.render(p.rule, strings.Repeat("─", 60))

	header := "prgate review"
	if res.PR.Number > 0 {
		header = fmt.Sprintf("%s: %s #%d", header, res.PR.Repository, res.PR.Number)
	} else if res.PR.Repository != "" {
		header = fmt.Sprintf("%s: %s", header, res.PR.Repository)
	}
	ew.println(p.render(p.title, header))
	if res.PR.Title != "" {
		ew.printf("Title: %s\n", res.PR.Title)
	}
	if res.PR.Author != "" {
		ew.printf("Author: %s (%s → %s)\n", res.PR.Author, res.PR.HeadRef, res.PR.BaseRef)
	}
	ew.println(line)

	sum := review.ComputeSummary(res.Files)
	ew.printf("Score: %.1f  Grade: %s  Recommendation: %s\n",
		res.Score.Overall, p.gradeText(res.Score.Grade), recommendationLabel(res.Feedback.Recommendation))
	for _, c := range sortedCategories(res.Score.Categories) {
		ew.printf("  %-14s %6.1f\n", c, res.Score.Categories[c])
	}
	ew.printf("Files: %d  Issues: %d", sum.Files, sum.Counts.Total())
	if sum.Counts.Total() > 0 {
		ew.printf(" (%d error, %d warning, %d info)", sum.Counts.Error, sum.Counts.Warning, sum.Counts.Info)
	}
	ew.println("")
	ew.println(line)

	if res.Feedback.Summary != "" {
		ew.println("")
		for _, l := range wrapText(res.Feedback.Summary, 70) {
			ew.println(l)
		}
	}
	if len(res.Feedback.ActionItems) > 0 {
		ew.println("\nAction items:")
		for _, a := range res.Feedback.ActionItems {
			prefix := fmt.Sprintf("  [%s] ", a.Priority)
			for i, l := range wrapText(a.Text, 70) {
				if i > 0 {
					prefix = strings.Repeat(" ", len(prefix))
				}
				ew.printf("%s%s\n", prefix, l)
			}
		}
	}

	issues := flatten(res)
	if len(issues) == 0 {
		ew.println("\nNo issues found. Looks good!")
	}
	grouped := groupBySeverity(issues)
	for _, sev := range severityOrder {
		group := grouped[sev]
		if len(group) == 0 {
			continue
		}
		label := fmt.Sprintf("%s %s (%d)", severityIcon(sev), strings.ToUpper(string(sev)), len(group))
		ew.printf("\n%s\n", p.render(p.severity[sev], label))
		ew.println(p.render(p.rule, strings.Repeat("─", 40)))
		for _, is := range group {
			ew.printf("  %s  %s [%s]\n", location(is), is.Message, is.RuleID)
			if is.Suggestion != "" {
				for _, l := range wrapText(is.Suggestion, 66) {
					ew.printf("    %s\n", p.render(p.dim, l))
				}
			}
		}
	}

	ew.printf("\n%s\n", line)
	if posted := postedLabel(res); posted != "" {
		ew.printf("Review %s\n", posted)
	}
	ew.println(p.render(p.dim, fmt.Sprintf("Feedback by %s. Completed in %dms (fetch: %dms, analyze: %dms, feedback: %dms)",
		res.Feedback.Provider, res.Timing.TotalMs, res.Timing.FetchMs, res.Timing.AnalyzeMs, res.Timing.FeedbackMs)))

	return ew.err
}

// errWriter wraps an io.Writer and captures the first error.
type errWriter struct {
	w   io.Writer
	err error
}

func (ew *errWriter) printf(format string, args ...any) {
	if ew.err != nil {
		return
	}
	_, ew.err = fmt.Fprintf(ew.w, format, args...)
}

func (ew *errWriter) println(s string) {
	if ew.err != nil {
		return
	}
	_, ew.err = fmt.Fprintln(ew.w, s)
}

func severityIcon(s review.Severity) string {
	switch s {
	case review.SeverityError:
		return "[!!]"
	case review.SeverityWarning:
		return "[!]"
	case review.SeverityInfo:
		return "[-]"
	default:
		return "[?]"
	}
}

func wrapText(text string, width int) []string {
	if len(text) <= width {
		return []string{text}
	}
	var lines []string
	var current strings.Builder
	for _, word := range strings.Fields(text) {
		if current.Len()+len(word)+1 > width && current.Len() > 0 {
			lines = append(lines, current.String())
			current.Reset()
		}
		if current.Len() > 0 {
			current.WriteString(" ")
		}
		current.WriteString(word)
	}
	if current.Len() > 0 {
		lines = append(lines, current.String())
	}
	return lines
}
