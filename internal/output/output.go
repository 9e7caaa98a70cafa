package output

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/dshills/prgate/internal/review"
)

// Writer writes a review result in a specific format.
type Writer interface {
	Write(w io.Writer, res *review.ReviewResult) error
}

// Options tune the writers that support them.
type Options struct {
	// Color enables ANSI styling in the text format.
	Color bool
}

// Formats lists the supported format names.
var Formats = []string{"text", "json", "markdown", "sarif"}

// GetWriter returns a writer for the specified format.
func GetWriter(format string, opts Options) (Writer, error) {
	switch strings.ToLower(format) {
	case "", "text":
		return &TextWriter{Color: opts.Color}, nil
	case "json":
		return &JSONWriter{}, nil
	case "markdown", "md":
		return &MarkdownWriter{}, nil
	case "sarif":
		return &SARIFWriter{}, nil
	default:
		return nil, fmt.Errorf("unsupported output format %q (supported: %s)", format, strings.Join(Formats, ", "))
	}
}

// WriteReport writes res to outPath, or to stdout when outPath is empty.
func WriteReport(res *review.ReviewResult, format, outPath string, opts Options) error {
	writer, err := GetWriter(format, opts)
	if err != nil {
		return err
	}

	var w io.Writer = os.Stdout
	if outPath != "" {
		f, err := os.Create(outPath)
		if err != nil {
			return fmt.Errorf("creating output file: %w", err)
		}
		defer f.Close()
		w = f
	}

	return writer.Write(w, res)
}

// located is an issue together with the file it was reported on.
type located struct {
	Path     string
	Language string
	review.Issue
}

// flatten returns every issue of res ordered by path then line.
func flatten(res *review.ReviewResult) []located {
	var out []located
	for _, f := range res.Files {
		for _, is := range f.Issues {
			out = append(out, located{Path: f.Path, Language: f.Language, Issue: is})
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Path != out[j].Path {
			return out[i].Path < out[j].Path
		}
		return out[i].Line < out[j].Line
	})
	return out
}

func groupBySeverity(issues []located) map[review.Severity][]located {
	m := make(map[review.Severity][]located)
	for _, is := range issues {
		m[is.Severity] = append(m[is.Severity], is)
	}
	return m
}

var severityOrder = []review.Severity{review.SeverityError, review.SeverityWarning, review.SeverityInfo}

func location(is located) string {
	if is.Line > 0 {
		return fmt.Sprintf("%s:%d", is.Path, is.Line)
	}
	return is.Path
}

func sortedCategories(scores map[string]float64) []string {
	cats := make([]string, 0, len(scores))
	for c := range scores {
		cats = append(cats, c)
	}
	sort.Strings(cats)
	return cats
}

func recommendationLabel(r review.Recommendation) string {
	switch r {
	case review.RecommendApprove:
		return "Approve"
	case review.RecommendRequestChanges:
		return "Request changes"
	default:
		return "Comment"
	}
}

func postedLabel(res *review.ReviewResult) string {
	switch {
	case res.Posted == nil:
		return ""
	case *res.Posted:
		return "posted"
	case res.PostError != "":
		return "not posted: " + res.PostError
	default:
		return "not posted"
	}
}
