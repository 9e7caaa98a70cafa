package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/prgate/internal/review"
)

// isolate points every lookup location at empty temp directories.
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(dir, "xdg"))
	t.Setenv("PRGATE_CONFIG", "")
	t.Setenv("PRGATE_PROVIDERS", "")
	t.Setenv("PRGATE_FORMAT", "")
	t.Setenv("PRGATE_CONCURRENCY", "")
	t.Setenv("PRGATE_TIMEOUT", "")
	t.Chdir(dir)
	return dir
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestDefault(t *testing.T) {
	cfg := Default()
	if cfg.Output.Format != "text" {
		t.Errorf("Default format = %q, want %q", cfg.Output.Format, "text")
	}
	if cfg.Analysis.ConcurrencyLimit != 4 {
		t.Errorf("Default concurrency = %d, want 4", cfg.Analysis.ConcurrencyLimit)
	}
	assert.Equal(t, []string{"structure", "security", "performance"}, cfg.Analysis.EnabledAnalyzers)
	assert.Equal(t, []string{"offline"}, cfg.Feedback.ProviderOrder)
	assert.True(t, cfg.Feedback.Redact())
	assert.True(t, cfg.Feedback.Cache.On())
	assert.Equal(t, 24*time.Hour, cfg.Feedback.Cache.TTL())
	assert.Contains(t, cfg.Servers, "github")
	assert.NoError(t, cfg.Validate())
}

func TestLoadFileMerge(t *testing.T) {
	dir := isolate(t)
	t.Setenv("GH_TEST_TOKEN", "ghp_secret")
	path := filepath.Join(dir, "custom.yaml")
	writeFile(t, path, `
servers:
  corp:
    type: github
    base_url: https://ghe.example.com/api/v3
    token: ${GH_TEST_TOKEN}
    timeout: 10s
analysis:
  concurrency_limit: 8
  thresholds:
    max_line_length: 100
feedback:
  provider_order: [anthropic, openai]
  network_timeout: 30s
  redact_secrets: false
  cache:
    enabled: false
scoring:
  category_weights: {security: 0.5, structure: 0.5}
output:
  format: json
`)

	cfg, err := Load(path, nil)
	require.NoError(t, err)
	assert.Equal(t, path, cfg.Source)

	require.Len(t, cfg.Servers, 1)
	corp := cfg.Servers["corp"]
	assert.Equal(t, "ghp_secret", corp.Token)
	assert.Equal(t, 10*time.Second, corp.Timeout)
	ac, ok := cfg.AdapterConfig("corp")
	require.True(t, ok)
	assert.Equal(t, "github", ac.Type)
	assert.Equal(t, 10*time.Second, ac.Timeout, "own timeout wins")

	assert.Equal(t, 8, cfg.Analysis.ConcurrencyLimit)
	assert.Equal(t, 100, cfg.Analysis.Thresholds.MaxLineLength)
	assert.Equal(t, 80, cfg.Analysis.Thresholds.MaxFunctionLines, "unset thresholds keep defaults")
	assert.Equal(t, []string{"anthropic", "openai"}, cfg.Feedback.ProviderOrder)
	assert.Equal(t, 30*time.Second, cfg.Feedback.NetworkTimeout)
	assert.False(t, cfg.Feedback.Redact())
	assert.False(t, cfg.Feedback.Cache.On())
	assert.Equal(t, map[string]float64{"security": 0.5, "structure": 0.5}, cfg.Scoring.Weights)
	assert.Equal(t, map[review.Severity]float64{"error": 15, "warning": 5, "info": 1}, cfg.Scoring.Penalties)
	assert.Equal(t, "json", cfg.Output.Format)
	assert.NoError(t, cfg.Validate())
}

func TestLocatePrecedence(t *testing.T) {
	dir := isolate(t)

	got, err := Locate("")
	require.NoError(t, err)
	assert.Empty(t, got, "no config anywhere")

	user := filepath.Join(dir, "xdg", "prgate", "config.yaml")
	writeFile(t, user, "output: {format: markdown}\n")
	got, _ = Locate("")
	assert.Equal(t, user, got)

	writeFile(t, filepath.Join(dir, "prgate.yaml"), "output: {format: sarif}\n")
	got, _ = Locate("")
	assert.Equal(t, "prgate.yaml", got)

	t.Setenv("PRGATE_CONFIG", "/etc/prgate.yaml")
	got, _ = Locate("")
	assert.Equal(t, "/etc/prgate.yaml", got)

	got, _ = Locate("flag.yaml")
	assert.Equal(t, "flag.yaml", got)
}

func TestLoadMissingExplicitFile(t *testing.T) {
	isolate(t)
	_, err := Load("does-not-exist.yaml", nil)
	assert.Error(t, err)
}

func TestLoadInvalidYAML(t *testing.T) {
	dir := isolate(t)
	writeFile(t, filepath.Join(dir, "prgate.yaml"), "analysis: [unclosed\n")
	_, err := Load("", nil)
	assert.ErrorContains(t, err, "parsing config file")
}

func TestMergeEnv(t *testing.T) {
	isolate(t)
	t.Setenv("PRGATE_PROVIDERS", "openai, ollama")
	t.Setenv("PRGATE_FORMAT", "markdown")
	t.Setenv("PRGATE_CONCURRENCY", "2")
	t.Setenv("PRGATE_TIMEOUT", "5s")

	cfg, err := Load("", nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"openai", "ollama"}, cfg.Feedback.ProviderOrder)
	assert.Equal(t, "markdown", cfg.Output.Format)
	assert.Equal(t, 2, cfg.Analysis.ConcurrencyLimit)
	assert.Equal(t, 5*time.Second, cfg.Feedback.NetworkTimeout)
	ac, ok := cfg.AdapterConfig("github")
	require.True(t, ok)
	assert.Equal(t, 5*time.Second, ac.Timeout, "adapters share the network timeout")
}

func TestAdapterConfigTimeout(t *testing.T) {
	cfg := Default()
	cfg.Feedback.NetworkTimeout = 45 * time.Second
	cfg.Servers["slow"] = Server{Type: "gitlab", Timeout: 2 * time.Minute}

	ac, ok := cfg.AdapterConfig("github")
	require.True(t, ok)
	assert.Equal(t, 45*time.Second, ac.Timeout)

	ac, ok = cfg.AdapterConfig("slow")
	require.True(t, ok)
	assert.Equal(t, 2*time.Minute, ac.Timeout)

	_, ok = cfg.AdapterConfig("missing")
	assert.False(t, ok)
}

func TestMergeEnvInvalid(t *testing.T) {
	isolate(t)
	t.Setenv("PRGATE_CONCURRENCY", "many")
	_, err := Load("", nil)
	assert.ErrorContains(t, err, "PRGATE_CONCURRENCY")

	t.Setenv("PRGATE_CONCURRENCY", "")
	t.Setenv("PRGATE_TIMEOUT", "soon")
	_, err = Load("", nil)
	assert.ErrorContains(t, err, "PRGATE_TIMEOUT")
}

func TestOverridesBeatEnv(t *testing.T) {
	isolate(t)
	t.Setenv("PRGATE_FORMAT", "markdown")

	cfg, err := Load("", map[string]string{"format": "sarif", "concurrency": "3", "exclude": "gen/**", "providers": ""})
	require.NoError(t, err)
	assert.Equal(t, "sarif", cfg.Output.Format)
	assert.Equal(t, 3, cfg.Analysis.ConcurrencyLimit)
	assert.Contains(t, cfg.Analysis.ExcludePatterns, "gen/**")
	assert.Equal(t, []string{"offline"}, cfg.Feedback.ProviderOrder, "empty override is ignored")

	_, err = Load("", map[string]string{"timeout": "forever"})
	assert.Error(t, err)
}

func TestSetField(t *testing.T) {
	cfg := Default()
	tests := []struct {
		key, value string
		check      func() bool
	}{
		{"output.format", "json", func() bool { return cfg.Output.Format == "json" }},
		{"analysis.concurrency_limit", "6", func() bool { return cfg.Analysis.ConcurrencyLimit == 6 }},
		{"feedback.provider_order", "anthropic,offline", func() bool { return len(cfg.Feedback.ProviderOrder) == 2 }},
		{"feedback.network_timeout", "2m", func() bool { return cfg.Feedback.NetworkTimeout == 2*time.Minute }},
		{"feedback.redact_secrets", "false", func() bool { return !cfg.Feedback.Redact() }},
		{"feedback.cache.enabled", "false", func() bool { return !cfg.Feedback.Cache.On() }},
		{"feedback.models.openai", "gpt-4o", func() bool { return cfg.Feedback.Models["openai"] == "gpt-4o" }},
		{"servers.work.type", "gitlab", func() bool { return cfg.Servers["work"].Type == "gitlab" }},
		{"servers.work.base_url", "https://git.example.com", func() bool { return cfg.Servers["work"].BaseURL == "https://git.example.com" }},
		{"serve.addr", ":9090", func() bool { return cfg.Serve.Addr == ":9090" }},
		{"feedback.focus", "security, tests", func() bool { return len(cfg.Feedback.Focus) == 2 && cfg.Feedback.Focus[1] == "tests" }},
		{"analysis.severity_overrides.line-too-long", "warning", func() bool { return cfg.Analysis.SeverityOverrides["line-too-long"] == "warning" }},
	}
	for _, tt := range tests {
		if err := SetField(&cfg, tt.key, tt.value); err != nil {
			t.Errorf("SetField(%q) error: %v", tt.key, err)
			continue
		}
		if !tt.check() {
			t.Errorf("SetField(%q, %q) did not apply", tt.key, tt.value)
		}
	}
}

func TestSetFieldErrors(t *testing.T) {
	cfg := Default()
	assert.ErrorContains(t, SetField(&cfg, "nonsense", "x"), "unknown config key")
	assert.ErrorContains(t, SetField(&cfg, "servers.work.color", "x"), "unknown config key")
	assert.ErrorContains(t, SetField(&cfg, "analysis.concurrency_limit", "abc"), "integer")
	assert.ErrorContains(t, SetField(&cfg, "feedback.cache.enabled", "maybe"), "true or false")
}

func TestValidateCollectsEveryProblem(t *testing.T) {
	cfg := Default()
	cfg.Servers["weird"] = Server{Type: "gitea"}
	cfg.Analysis.EnabledAnalyzers = []string{"structure", "style"}
	cfg.Analysis.ConcurrencyLimit = 0
	cfg.Feedback.ProviderOrder = []string{"mystery"}
	cfg.Scoring.Weights = map[string]float64{"security": -1}
	cfg.Output.Format = "xml"
	cfg.Analysis.SeverityOverrides = map[string]string{"todo": "fatal"}

	err := cfg.Validate()
	require.Error(t, err)
	for _, want := range []string{"gitea", "style", "concurrency_limit", "mystery", "scoring", "xml", "fatal"} {
		assert.Contains(t, err.Error(), want)
	}
}

func TestInitAndSave(t *testing.T) {
	dir := isolate(t)
	path := filepath.Join(dir, "out", "config.yaml")

	require.NoError(t, Init(path, false))
	assert.ErrorContains(t, Init(path, false), "already exists")
	require.NoError(t, Init(path, true))

	loaded, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, Default().Analysis, loaded.Analysis)
	assert.Equal(t, Default().Feedback.NetworkTimeout, loaded.Feedback.NetworkTimeout)
	assert.Equal(t, Default().Scoring, loaded.Scoring)

	cfg, err := Load(path, nil)
	require.NoError(t, err)
	assert.NoError(t, cfg.Validate())
}

func TestConfigDirXDG(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/tmp/xdg-test")
	dir, err := ConfigDir()
	require.NoError(t, err)
	assert.Equal(t, "/tmp/xdg-test/prgate", dir)

	path, err := ConfigPath()
	require.NoError(t, err)
	assert.Equal(t, "/tmp/xdg-test/prgate/config.yaml", path)
}

func TestAnalysisOverrides(t *testing.T) {
	a := AnalysisConfig{SeverityOverrides: map[string]string{
		"line-too-long": "warning",
		"performance":   "error",
		"todo":          "loud",
	}}
	got := a.Overrides()
	assert.Equal(t, map[string]review.Severity{
		"line-too-long": review.SeverityWarning,
		"performance":   review.SeverityError,
	}, got)
	assert.Nil(t, AnalysisConfig{}.Overrides())
}
