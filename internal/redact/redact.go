package redact

import (
	"regexp"

	"github.com/dshills/prgate/internal/gitctx"
)

// Placeholder replaces every masked value.
const Placeholder = "[REDACTED]"

// valuePatterns mask only their "value" group.
var valuePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)((?:api[_-]?key|apikey|api[_-]?secret|access[_-]?key|client[_-]?secret|aws[_-]?secret[_-]?access[_-]?key)["']?\s*(?::=|=|:)\s*["']?)(?P<value>[A-Za-z0-9/+=_.-]{8,})`),
	regexp.MustCompile(`(?i)((?:secret|token|password|passwd|credential)[\w-]*["']?\s*(?::=|=|:)\s*["'])(?P<value>[^"']{4,})`),
	regexp.MustCompile(`(?i)(Bearer\s+)(?P<value>[A-Za-z0-9._~+/-]{20,})`),
	regexp.MustCompile(`(?i)(://[^:/\s]+:)(?P<value>[^@/\s]{3,})@`),
}

// tokenPatterns are replaced entirely.
var tokenPatterns = []*regexp.Regexp{
	regexp.MustCompile(`AKIA[0-9A-Z]{16}`),
	regexp.MustCompile(`eyJ[A-Za-z0-9_-]{10,}\.eyJ[A-Za-z0-9_-]{10,}\.[A-Za-z0-9_-]{10,}`),
	regexp.MustCompile(`-----BEGIN\s+([A-Z]+\s+)?PRIVATE KEY-----`),
	regexp.MustCompile(`gh[pousr]_[A-Za-z0-9_]{36,}`),
	regexp.MustCompile(`xox[bporas]-[A-Za-z0-9-]{10,}`),
	regexp.MustCompile(`sk-(ant-)?[A-Za-z0-9_-]{20,}`),
}

// Redactor masks secrets in text and withholds files by path.
type Redactor struct {
	// Paths are globs whose files are withheld entirely.
	Paths []string
	off   bool
}

// New returns a redactor that also withholds files matching paths.
func New(paths ...string) *Redactor {
	return &Redactor{Paths: paths}
}

// Disabled returns a redactor that passes everything through.
func Disabled() *Redactor {
	return &Redactor{off: true}
}

// Secrets masks secrets in text and reports how many were masked.
func (r *Redactor) Secrets(text string) (string, int) {
	if r.off {
		return text, 0
	}
	n := 0
	for _, pat := range valuePatterns {
		vi := pat.SubexpIndex("value")
		text = pat.ReplaceAllStringFunc(text, func(match string) string {
			m := pat.FindStringSubmatchIndex(match)
			if m == nil || m[2*vi] < 0 {
				return match
			}
			n++
			return match[:m[2*vi]] + Placeholder + match[m[2*vi+1]:]
		})
	}
	for _, pat := range tokenPatterns {
		text = pat.ReplaceAllStringFunc(text, func(string) string {
			n++
			return Placeholder
		})
	}
	return text, n
}

// Withheld reports whether a file's content must not be sent at all.
func (r *Redactor) Withheld(path string) bool {
	return !r.off && gitctx.MatchesAny(path, r.Paths)
}

// Content masks a file's content, or withholds it entirely by path policy.
func (r *Redactor) Content(path, content string) (string, int) {
	if r.Withheld(path) {
		return Placeholder + " (file content withheld by path policy)\n", 1
	}
	return r.Secrets(content)
}
