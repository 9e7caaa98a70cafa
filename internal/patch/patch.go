package patch

import (
	"path/filepath"
	"strconv"
	"strings"
)

// Stats counts added and removed lines in a unified diff. File headers
// ("+++", "---") are not counted.
func Stats(diff string) (additions, deletions int) {
	inHunk := false
	for _, line := range strings.Split(diff, "\n") {
		switch {
		case strings.HasPrefix(line, "@@"):
			inHunk = true
		case strings.HasPrefix(line, "diff --git"):
			inHunk = false
		case !inHunk:
		case strings.HasPrefix(line, "+"):
			additions++
		case strings.HasPrefix(line, "-"):
			deletions++
		}
	}
	return additions, deletions
}

// NewSide rebuilds the post-change text visible in a unified diff. Line N of
// the result is line N of the new file; lines the diff does not show are
// left blank so issue line numbers still point at the right place.
func NewSide(diff string) string {
	var out []string
	next := 0 // next new-file line number, 1-based; 0 until the first hunk
	for _, line := range strings.Split(diff, "\n") {
		if strings.HasPrefix(line, "@@") {
			start, ok := newStart(line)
			if !ok {
				continue
			}
			next = start
			for len(out) < next-1 {
				out = append(out, "")
			}
			continue
		}
		if next == 0 {
			continue
		}
		switch {
		case strings.HasPrefix(line, "+"):
			out = append(out, line[1:])
			next++
		case strings.HasPrefix(line, " "):
			out = append(out, line[1:])
			next++
		case line == "":
			// blank context line emitted without its leading space
		}
	}
	return strings.Join(out, "\n")
}

// AddedLines returns the new-file line numbers of lines added by the diff.
func AddedLines(diff string) map[int]bool {
	return newLines(diff, false)
}

// VisibleLines returns the new-file line numbers shown in the diff, added and
// context lines alike. Hosts accept inline comments only on these lines.
func VisibleLines(diff string) map[int]bool {
	return newLines(diff, true)
}

func newLines(diff string, context bool) map[int]bool {
	lines := map[int]bool{}
	next := 0
	for _, line := range strings.Split(diff, "\n") {
		if strings.HasPrefix(line, "@@") {
			if start, ok := newStart(line); ok {
				next = start
			}
			continue
		}
		if next == 0 {
			continue
		}
		switch {
		case strings.HasPrefix(line, "+"):
			lines[next] = true
			next++
		case strings.HasPrefix(line, " "):
			if context {
				lines[next] = true
			}
			next++
		}
	}
	return lines
}

// newStart parses the "+c" part of "@@ -a,b +c,d @@".
func newStart(header string) (int, bool) {
	i := strings.Index(header, " +")
	if i < 0 {
		return 0, false
	}
	rest := header[i+2:]
	end := strings.IndexAny(rest, ", ")
	if end < 0 {
		return 0, false
	}
	n, err := strconv.Atoi(rest[:end])
	if err != nil {
		return 0, false
	}
	if n == 0 {
		n = 1
	}
	return n, true
}

var langByExt = map[string]string{
	".go":    "go",
	".py":    "python",
	".js":    "javascript",
	".mjs":   "javascript",
	".cjs":   "javascript",
	".jsx":   "javascript",
	".ts":    "typescript",
	".tsx":   "typescript",
	".rs":    "rust",
	".java":  "java",
	".kt":    "kotlin",
	".swift": "swift",
	".scala": "scala",
	".rb":    "ruby",
	".cpp":   "cpp",
	".cc":    "cpp",
	".hpp":   "cpp",
	".c":     "c",
	".h":     "c",
	".cs":    "csharp",
	".php":   "php",
	".sh":    "shell",
	".bash":  "shell",
	".sql":   "sql",
	".yaml":  "yaml",
	".yml":   "yaml",
	".json":  "json",
	".tf":    "hcl",
	".md":    "markdown",
	".html":  "html",
	".vue":   "vue",
}

// Language infers a language name from the file extension, or "" if unknown.
func Language(path string) string {
	return langByExt[strings.ToLower(filepath.Ext(path))]
}

// IsSource reports whether lang is a programming language rather than data
// or markup.
func IsSource(lang string) bool {
	switch lang {
	case "", "yaml", "json", "markdown", "html", "sql", "hcl":
		return false
	}
	return true
}
