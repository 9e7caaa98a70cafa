package analysis

import (
	"path/filepath"
	"regexp"
	"strings"

	"github.com/dshills/prgate/internal/patch"
	"github.com/dshills/prgate/internal/review"
)

var (
	jsLike     = []string{"javascript", "typescript", "vue", "html"}
	scriptLike = []string{"javascript", "typescript", "vue", "python", "php", "ruby"}
)

var placeholderValue = regexp.MustCompile(`(?i)^(x+|\*+|\.+|<[^>]*>|\$\{?[\w.]+\}?|%\(?\w+\)?s?|\{\{.*\}\}|your[_-]?\w*|example\w*|changeme|placeholder|dummy|redacted|none|null|true|false)$`)

var securityRules = []lineRule{
	{
		id: "hardcoded-credential", group: "credential",
		severity: review.SeverityError, category: review.CategorySecurity,
		pattern: regexp.MustCompile(`(?i)\b[\w-]*(password|passwd|pwd|secret|api[_-]?key|apikey|access[_-]?key|auth[_-]?token|token|private[_-]?key)[\w-]*["']?\s*(?::=|=|:|=>)\s*["']([^"'\s]{4,})["']`),
		accept: func(m []string) bool {
			return !placeholderValue.MatchString(m[2])
		},
		message:    "Hardcoded credential assigned to a variable",
		suggestion: "Load secrets from the environment or a secret manager",
	},
	{
		id: "hardcoded-credential", group: "credential",
		severity: review.SeverityError, category: review.CategorySecurity,
		pattern:    regexp.MustCompile(`\b(sk-(ant-)?[A-Za-z0-9_-]{16,}|AKIA[0-9A-Z]{16}|gh[pousr]_[A-Za-z0-9]{36,}|xox[baprs]-[A-Za-z0-9-]{10,})`),
		message:    "Provider API key embedded in source",
		suggestion: "Revoke the key and load it from the environment",
	},
	{
		id: "hardcoded-credential", group: "credential",
		severity: review.SeverityError, category: review.CategorySecurity,
		pattern:    regexp.MustCompile(`-----BEGIN ((RSA|EC|DSA|OPENSSH|PGP) )?PRIVATE KEY( BLOCK)?-----`),
		message:    "Private key committed to the repository",
		suggestion: "Remove the key from history and rotate it",
	},
	{
		id: "sql-injection", group: "sql",
		severity: review.SeverityError, category: review.CategorySecurity,
		pattern:    regexp.MustCompile("(?i)[\"'`][^\"'`]*\\b(select\\s.+\\sfrom|insert\\s+into|update\\s+\\w+\\s+set|delete\\s+from)\\b[^\"'`]*[\"'`]\\s*(\\+|\\.\\s*format\\s*\\(|%\\s*[\\w(])"),
		message:    "SQL query built by string concatenation",
		suggestion: "Use parameterized queries",
	},
	{
		id: "sql-injection", group: "sql",
		severity: review.SeverityError, category: review.CategorySecurity,
		pattern:    regexp.MustCompile("(?i)\\b(sprintf|format)\\s*\\(\\s*[\"'`][^\"'`]*\\b(select\\s.+\\sfrom|insert\\s+into|update\\s+\\w+\\s+set|delete\\s+from)\\b[^\"'`]*%[sdv]"),
		message:    "SQL query built with string formatting",
		suggestion: "Use parameterized queries",
	},
	{
		id: "sql-injection", group: "sql",
		severity: review.SeverityError, category: review.CategorySecurity,
		pattern:    regexp.MustCompile("(?i)(\\bf[\"'][^\"']*|`[^`]*)\\b(select\\s.+\\sfrom|insert\\s+into|update\\s+\\w+\\s+set|delete\\s+from)\\b[^\"'`]*(\\{|\\$\\{)"),
		message:    "SQL query built with string interpolation",
		suggestion: "Use parameterized queries",
	},
	{
		id: "dangerous-eval", severity: review.SeverityError, category: review.CategorySecurity,
		pattern:    regexp.MustCompile(`(\beval\s*\(|\bnew\s+Function\s*\()`),
		languages:  scriptLike,
		message:    "Dynamic code evaluation",
		suggestion: "Avoid eval; parse data explicitly",
	},
	{
		id: "shell-injection", group: "shell",
		severity: review.SeverityWarning, category: review.CategorySecurity,
		pattern:    regexp.MustCompile(`(shell\s*=\s*True|\bos\.system\s*\(|\bos\.popen\s*\(|exec\.Command(Context)?\((ctx,\s*)?"(sh|bash)"\s*,\s*"-c"|child_process.*\bexecSync?\s*\()`),
		message:    "Command executed through a shell",
		suggestion: "Pass arguments as a list without invoking a shell",
	},
	{
		id: "xss-inner-html", severity: review.SeverityWarning, category: review.CategorySecurity,
		pattern:    regexp.MustCompile(`(\.innerHTML\s*=[^=]|\.outerHTML\s*=[^=]|dangerouslySetInnerHTML|document\.write\s*\()`),
		languages:  jsLike,
		message:    "Unescaped HTML assignment can enable XSS",
		suggestion: "Use textContent or sanitize the markup",
	},
	{
		id: "insecure-tls", severity: review.SeverityWarning, category: review.CategorySecurity,
		pattern:    regexp.MustCompile(`(InsecureSkipVerify\s*:\s*true|verify\s*=\s*False|rejectUnauthorized\s*:\s*false|CURLOPT_SSL_VERIFYPEER,\s*(false|0))`),
		message:    "TLS certificate verification disabled",
		suggestion: "Keep certificate verification enabled",
	},
	{
		id: "weak-hash", severity: review.SeverityInfo, category: review.CategorySecurity,
		pattern:    regexp.MustCompile(`(?i)(hashlib\.(md5|sha1)\b|"crypto/(md5|sha1)"|\b(md5|sha1)\.(New|Sum)\b|createHash\(\s*["'](md5|sha1)["']|MessageDigest\.getInstance\(\s*"(MD5|SHA-?1)")`),
		message:    "Weak hash algorithm",
		suggestion: "Use SHA-256 or stronger for security-sensitive hashing",
	},
}

var binaryExts = map[string]bool{
	".png": true, ".jpg": true, ".jpeg": true, ".gif": true, ".ico": true, ".webp": true,
	".pdf": true, ".zip": true, ".gz": true, ".tar": true, ".jar": true, ".woff": true,
	".woff2": true, ".ttf": true, ".exe": true, ".dll": true, ".so": true, ".bin": true,
	".sum": true, ".lock": true,
}

// Security flags credentials, injection sinks and unsafe APIs.
type Security struct{}

// NewSecurity returns a security analyzer.
func NewSecurity() *Security { return &Security{} }

func (s *Security) Name() string { return "security" }

func (s *Security) CanHandle(path string) bool {
	return !binaryExts[strings.ToLower(filepath.Ext(path))]
}

func (s *Security) Analyze(path, content string) (review.AnalysisResult, error) {
	lang := patch.Language(path)
	lines := splitLines(content)
	res := review.AnalysisResult{Path: path, Language: lang}
	res.Metrics.Lines = len(lines)

	for i, line := range lines {
		seen := map[string]bool{}
		for _, r := range securityRules {
			if !r.appliesTo(lang) {
				continue
			}
			key := r.group
			if key == "" {
				key = r.id
			}
			if seen[key] || !r.match(line) {
				continue
			}
			seen[key] = true
			res.Issues = append(res.Issues, r.issue(i+1, s.Name()))
		}
	}
	return res, nil
}
