package analysis

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// splitLines splits content into lines, dropping the empty tail left by a
// trailing newline.
func splitLines(content string) []string {
	if content == "" {
		return nil
	}
	lines := strings.Split(strings.ReplaceAll(content, "\r\n", "\n"), "\n")
	if lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return lines
}

// isComment reports whether a trimmed line is a whole-line comment.
func isComment(trimmed, lang string) bool {
	switch {
	case strings.HasPrefix(trimmed, "//"), strings.HasPrefix(trimmed, "/*"), strings.HasPrefix(trimmed, "*"):
		return lang != "python" && lang != "ruby" && lang != "shell"
	case strings.HasPrefix(trimmed, "#"):
		return lang == "python" || lang == "ruby" || lang == "shell"
	}
	return false
}

// indentOf returns the width of leading whitespace, counting a tab as four.
func indentOf(line string) int {
	n := 0
	for _, r := range line {
		switch r {
		case ' ':
			n++
		case '\t':
			n += 4
		default:
			return n
		}
	}
	return n
}

// braceDelta returns the change in brace depth across a line, ignoring braces
// inside string literals and after a line comment.
func braceDelta(line string) int {
	depth := 0
	var quote rune
	escaped := false
	prev := rune(0)
	for _, r := range line {
		switch {
		case escaped:
			escaped = false
		case quote != 0:
			if r == '\\' {
				escaped = true
			} else if r == quote {
				quote = 0
			}
		case r == '"' || r == '\'' || r == '`':
			quote = r
		case r == '/' && prev == '/':
			return depth
		case r == '{':
			depth++
		case r == '}':
			depth--
		}
		prev = r
	}
	return depth
}

// indentBased reports whether blocks in lang are delimited by indentation.
func indentBased(lang string) bool {
	return lang == "python"
}

// keywordBased reports whether blocks in lang close with an end keyword.
func keywordBased(lang string) bool {
	return lang == "ruby"
}

var (
	rubyOpener  = regexp.MustCompile(`^\s*(def|class|module|if|unless|while|until|for|case|begin)\b|\bdo\s*(\|[^|]*\|)?\s*$`)
	rubyEndless = regexp.MustCompile(`^\s*def\s+[\w.?!]+\s*(\([^)]*\))?\s*=[^=~]`)
	rubyCloser  = regexp.MustCompile(`(^|[^.\w])end\b`)
)

// rubyDelta is the net number of blocks a ruby line opens. Modifier forms
// such as "x if y" do not open a block; braces count like in C-like code.
func rubyDelta(line string) int {
	code := stripStrings(line)
	if i := strings.IndexByte(code, '#'); i >= 0 {
		code = code[:i]
	}
	d := braceDelta(code)
	if rubyOpener.MatchString(code) && !rubyEndless.MatchString(code) {
		d++
	}
	d -= len(rubyCloser.FindAllStringIndex(code, -1))
	return d
}

func runeLen(s string) int {
	return utf8.RuneCountInString(s)
}
