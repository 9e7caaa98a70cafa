package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"slices"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/dshills/prgate/internal/adapters"
	"github.com/dshills/prgate/internal/analysis"
	"github.com/dshills/prgate/internal/providers"
	"github.com/dshills/prgate/internal/review"
	"github.com/dshills/prgate/internal/scoring"
)

// Formats are the supported output formats.
var Formats = []string{"text", "json", "markdown", "sarif"}

// Config represents the prgate configuration.
type Config struct {
	Servers  map[string]Server `yaml:"servers"`
	Analysis AnalysisConfig    `yaml:"analysis"`
	Feedback FeedbackConfig    `yaml:"feedback"`
	Scoring  scoring.Config    `yaml:"scoring"`
	Output   OutputConfig      `yaml:"output"`
	Serve    ServeConfig       `yaml:"serve"`

	// Source is the file the configuration was read from, if any.
	Source string `yaml:"-"`
}

// Server is one git host connection.
type Server struct {
	Type     string        `yaml:"type"`
	BaseURL  string        `yaml:"base_url,omitempty"`
	Token    string        `yaml:"token,omitempty"`
	Username string        `yaml:"username,omitempty"`
	Timeout  time.Duration `yaml:"timeout,omitempty"`
	Dir      string        `yaml:"dir,omitempty"`
	Base     string        `yaml:"base,omitempty"`
}

func (s Server) adapterConfig() adapters.Config {
	return adapters.Config{
		Type:     s.Type,
		BaseURL:  s.BaseURL,
		Token:    s.Token,
		Username: s.Username,
		Timeout:  s.Timeout,
		Dir:      s.Dir,
		Base:     s.Base,
	}
}

// AdapterConfig converts the named server entry for the adapter factory.
// A server without its own timeout uses the network timeout shared with the
// feedback providers.
func (c Config) AdapterConfig(name string) (adapters.Config, bool) {
	s, ok := c.Servers[name]
	if !ok {
		return adapters.Config{}, false
	}
	ac := s.adapterConfig()
	if ac.Timeout <= 0 {
		ac.Timeout = c.Feedback.NetworkTimeout
	}
	return ac, true
}

// AnalysisConfig controls the analyzers.
type AnalysisConfig struct {
	EnabledAnalyzers []string            `yaml:"enabled_analyzers"`
	ConcurrencyLimit int                 `yaml:"concurrency_limit"`
	ExcludePatterns  []string            `yaml:"exclude_patterns"`
	MaxFileBytes     int                 `yaml:"max_file_bytes"`
	Thresholds       analysis.Thresholds `yaml:"thresholds"`
	// SeverityOverrides maps a rule ID or category to the severity its
	// issues are reported with.
	SeverityOverrides map[string]string `yaml:"severity_overrides,omitempty"`
}

// Overrides returns the severity overrides in typed form. Unknown severities
// are dropped; Validate reports them.
func (a AnalysisConfig) Overrides() map[string]review.Severity {
	if len(a.SeverityOverrides) == 0 {
		return nil
	}
	out := make(map[string]review.Severity, len(a.SeverityOverrides))
	for k, v := range a.SeverityOverrides {
		if sev, ok := review.ParseSeverity(v); ok {
			out[k] = sev
		}
	}
	return out
}

// FeedbackConfig controls the feedback provider chain.
type FeedbackConfig struct {
	ProviderOrder  []string          `yaml:"provider_order"`
	Models         map[string]string `yaml:"models,omitempty"`
	BaseURLs       map[string]string `yaml:"base_urls,omitempty"`
	NetworkTimeout time.Duration     `yaml:"network_timeout"`
	MaxTokens      int               `yaml:"max_tokens,omitempty"`
	RedactSecrets  *bool             `yaml:"redact_secrets,omitempty"`
	RedactPaths    []string          `yaml:"redact_paths,omitempty"`
	// Focus names areas the AI feedback should prioritize.
	Focus []string    `yaml:"focus,omitempty"`
	Cache CacheConfig `yaml:"cache"`
}

// Redact reports whether secrets are masked before prompts leave the process.
func (f FeedbackConfig) Redact() bool { return f.RedactSecrets == nil || *f.RedactSecrets }

// CacheConfig controls caching of AI feedback.
type CacheConfig struct {
	Enabled    *bool  `yaml:"enabled,omitempty"`
	Dir        string `yaml:"dir,omitempty"`
	TTLSeconds int    `yaml:"ttl_seconds"`
}

// On reports whether the cache is enabled.
func (c CacheConfig) On() bool { return c.Enabled == nil || *c.Enabled }

// TTL returns the entry lifetime.
func (c CacheConfig) TTL() time.Duration { return time.Duration(c.TTLSeconds) * time.Second }

// OutputConfig controls result rendering.
type OutputConfig struct {
	Format string `yaml:"format"`
}

// ServeConfig controls the HTTP service.
type ServeConfig struct {
	Addr string `yaml:"addr"`
}

// Default returns a Config with all defaults applied.
func Default() Config {
	return Config{
		Servers: map[string]Server{
			"github":    {Type: "github"},
			"gitlab":    {Type: "gitlab"},
			"bitbucket": {Type: "bitbucket"},
			"local":     {Type: "local"},
		},
		Analysis: AnalysisConfig{
			EnabledAnalyzers: analysis.Defaults(),
			ConcurrencyLimit: analysis.DefaultConcurrency,
			ExcludePatterns:  []string{"vendor/**", "**/node_modules/**", "**/*.min.js", "**/*.gen.go"},
			MaxFileBytes:     analysis.DefaultMaxFileBytes,
			Thresholds:       analysis.DefaultThresholds(),
		},
		Feedback: FeedbackConfig{
			ProviderOrder:  []string{"offline"},
			NetworkTimeout: 60 * time.Second,
			RedactPaths:    []string{"**/.env", "**/*secrets*"},
			Cache:          CacheConfig{TTLSeconds: 86400},
		},
		Scoring: scoring.DefaultConfig(),
		Output:  OutputConfig{Format: "text"},
		Serve:   ServeConfig{Addr: "127.0.0.1:8080"},
	}
}

// ConfigDir returns the platform-appropriate config directory for prgate.
func ConfigDir() (string, error) {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "prgate"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	switch runtime.GOOS {
	case "darwin":
		return filepath.Join(home, "Library", "Application Support", "prgate"), nil
	case "windows":
		if appData := os.Getenv("APPDATA"); appData != "" {
			return filepath.Join(appData, "prgate"), nil
		}
		return filepath.Join(home, "AppData", "Roaming", "prgate"), nil
	default:
		return filepath.Join(home, ".config", "prgate"), nil
	}
}

// ConfigPath returns the path of the user config file.
func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.yaml"), nil
}

// Locate picks the config file to read: explicit, then PRGATE_CONFIG, then
// ./prgate.yaml, then the user config file. It returns "" when none exists.
// An explicit or PRGATE_CONFIG path is returned even if missing so the read
// reports it.
func Locate(explicit string) (string, error) {
	if explicit != "" {
		return explicit, nil
	}
	if env := os.Getenv("PRGATE_CONFIG"); env != "" {
		return env, nil
	}
	if _, err := os.Stat("prgate.yaml"); err == nil {
		return "prgate.yaml", nil
	}
	path, err := ConfigPath()
	if err != nil {
		return "", err
	}
	if _, err := os.Stat(path); err == nil {
		return path, nil
	}
	return "", nil
}

// LoadFile reads a config file. The result holds only what the file sets.
func LoadFile(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("reading config file: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parsing config file %s: %w", path, err)
	}
	return cfg, nil
}

// Save writes cfg to path as YAML.
func Save(path string, cfg Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	return os.WriteFile(path, data, 0o600)
}

// Init writes the default configuration to path. It refuses to overwrite an
// existing file unless force is set.
func Init(path string, force bool) error {
	if _, err := os.Stat(path); err == nil && !force {
		return fmt.Errorf("config file already exists: %s (use --force to overwrite)", path)
	}
	return Save(path, Default())
}

// Load builds the effective config by merging: defaults <- file <- env <-
// overrides. path is the --config flag value and may be empty. The overrides
// map comes from CLI flags (only non-empty values should be set).
func Load(path string, overrides map[string]string) (Config, error) {
	cfg := Default()

	src, err := Locate(path)
	if err != nil {
		return Config{}, err
	}
	if src != "" {
		fileCfg, err := LoadFile(src)
		if err != nil {
			return Config{}, err
		}
		mergeFile(&cfg, fileCfg)
		cfg.Source = src
	}
	if err := mergeEnv(&cfg); err != nil {
		return Config{}, err
	}
	if err := mergeOverrides(&cfg, overrides); err != nil {
		return Config{}, err
	}
	expandServers(&cfg)
	return cfg, nil
}

func mergeFile(dst *Config, src Config) {
	if len(src.Servers) > 0 {
		dst.Servers = src.Servers
	}

	a := src.Analysis
	if len(a.EnabledAnalyzers) > 0 {
		dst.Analysis.EnabledAnalyzers = a.EnabledAnalyzers
	}
	if a.ConcurrencyLimit != 0 {
		dst.Analysis.ConcurrencyLimit = a.ConcurrencyLimit
	}
	if a.ExcludePatterns != nil {
		dst.Analysis.ExcludePatterns = a.ExcludePatterns
	}
	if a.MaxFileBytes != 0 {
		dst.Analysis.MaxFileBytes = a.MaxFileBytes
	}
	mergeThresholds(&dst.Analysis.Thresholds, a.Thresholds)
	if a.SeverityOverrides != nil {
		dst.Analysis.SeverityOverrides = a.SeverityOverrides
	}

	f := src.Feedback
	if len(f.ProviderOrder) > 0 {
		dst.Feedback.ProviderOrder = f.ProviderOrder
	}
	if f.Models != nil {
		dst.Feedback.Models = f.Models
	}
	if f.BaseURLs != nil {
		dst.Feedback.BaseURLs = f.BaseURLs
	}
	if f.NetworkTimeout != 0 {
		dst.Feedback.NetworkTimeout = f.NetworkTimeout
	}
	if f.MaxTokens != 0 {
		dst.Feedback.MaxTokens = f.MaxTokens
	}
	if f.RedactSecrets != nil {
		dst.Feedback.RedactSecrets = f.RedactSecrets
	}
	if f.RedactPaths != nil {
		dst.Feedback.RedactPaths = f.RedactPaths
	}
	if f.Focus != nil {
		dst.Feedback.Focus = f.Focus
	}
	if f.Cache.Enabled != nil {
		dst.Feedback.Cache.Enabled = f.Cache.Enabled
	}
	if f.Cache.Dir != "" {
		dst.Feedback.Cache.Dir = f.Cache.Dir
	}
	if f.Cache.TTLSeconds != 0 {
		dst.Feedback.Cache.TTLSeconds = f.Cache.TTLSeconds
	}

	// Each scoring table is replaced as a whole; partial tables would mix
	// weights the user never meant to combine.
	if src.Scoring.Weights != nil {
		dst.Scoring.Weights = src.Scoring.Weights
	}
	if src.Scoring.Penalties != nil {
		dst.Scoring.Penalties = src.Scoring.Penalties
	}
	if src.Scoring.Grades != nil {
		dst.Scoring.Grades = src.Scoring.Grades
	}

	if src.Output.Format != "" {
		dst.Output.Format = src.Output.Format
	}
	if src.Serve.Addr != "" {
		dst.Serve.Addr = src.Serve.Addr
	}
}

func mergeThresholds(dst *analysis.Thresholds, src analysis.Thresholds) {
	if src.MaxFileLines != 0 {
		dst.MaxFileLines = src.MaxFileLines
	}
	if src.MaxFunctionLines != 0 {
		dst.MaxFunctionLines = src.MaxFunctionLines
	}
	if src.MaxLineLength != 0 {
		dst.MaxLineLength = src.MaxLineLength
	}
	if src.MaxComplexity != 0 {
		dst.MaxComplexity = src.MaxComplexity
	}
	if src.MaxParameters != 0 {
		dst.MaxParameters = src.MaxParameters
	}
}

func mergeEnv(cfg *Config) error {
	if v := os.Getenv("PRGATE_PROVIDERS"); v != "" {
		cfg.Feedback.ProviderOrder = splitList(v)
	}
	if v := os.Getenv("PRGATE_FORMAT"); v != "" {
		cfg.Output.Format = v
	}
	if v := os.Getenv("PRGATE_CONCURRENCY"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("PRGATE_CONCURRENCY must be an integer: %w", err)
		}
		cfg.Analysis.ConcurrencyLimit = n
	}
	if v := os.Getenv("PRGATE_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("PRGATE_TIMEOUT must be a duration: %w", err)
		}
		cfg.Feedback.NetworkTimeout = d
	}
	return nil
}

func mergeOverrides(cfg *Config, overrides map[string]string) error {
	for _, key := range []string{"providers", "format", "concurrency", "timeout", "exclude", "addr"} {
		v, ok := overrides[key]
		if !ok || v == "" {
			continue
		}
		var err error
		switch key {
		case "providers":
			err = SetField(cfg, "feedback.provider_order", v)
		case "format":
			err = SetField(cfg, "output.format", v)
		case "concurrency":
			err = SetField(cfg, "analysis.concurrency_limit", v)
		case "timeout":
			err = SetField(cfg, "feedback.network_timeout", v)
		case "exclude":
			cfg.Analysis.ExcludePatterns = append(cfg.Analysis.ExcludePatterns, splitList(v)...)
		case "addr":
			err = SetField(cfg, "serve.addr", v)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// expandServers resolves ${VAR} references in server credentials and URLs.
func expandServers(cfg *Config) {
	for name, s := range cfg.Servers {
		s.Token = os.ExpandEnv(s.Token)
		s.BaseURL = os.ExpandEnv(s.BaseURL)
		s.Username = os.ExpandEnv(s.Username)
		cfg.Servers[name] = s
	}
}

// Validate reports every problem in cfg.
func (c Config) Validate() error {
	var errs []error
	types := adapters.DefaultFactory().Types()
	for name, s := range c.Servers {
		if !slices.Contains(types, s.Type) {
			errs = append(errs, fmt.Errorf("servers.%s.type: unsupported type %q (supported: %s)", name, s.Type, strings.Join(types, ", ")))
		}
		if s.Timeout < 0 {
			errs = append(errs, fmt.Errorf("servers.%s.timeout: must not be negative", name))
		}
	}

	known := analysis.Names()
	for _, a := range c.Analysis.EnabledAnalyzers {
		if !slices.Contains(known, a) {
			errs = append(errs, fmt.Errorf("analysis.enabled_analyzers: unknown analyzer %q", a))
		}
	}
	if c.Analysis.ConcurrencyLimit < 1 {
		errs = append(errs, fmt.Errorf("analysis.concurrency_limit: must be at least 1, got %d", c.Analysis.ConcurrencyLimit))
	}
	if c.Analysis.MaxFileBytes < 1 {
		errs = append(errs, fmt.Errorf("analysis.max_file_bytes: must be positive"))
	}
	for key, sev := range c.Analysis.SeverityOverrides {
		if _, ok := review.ParseSeverity(sev); !ok {
			errs = append(errs, fmt.Errorf("analysis.severity_overrides.%s: unknown severity %q (use error, warning or info)", key, sev))
		}
	}

	for _, p := range c.Feedback.ProviderOrder {
		if p != "offline" && !providers.Known(p) {
			errs = append(errs, fmt.Errorf("feedback.provider_order: unknown provider %q", p))
		}
	}
	if c.Feedback.NetworkTimeout <= 0 {
		errs = append(errs, fmt.Errorf("feedback.network_timeout: must be positive"))
	}
	if c.Feedback.Cache.TTLSeconds < 0 {
		errs = append(errs, fmt.Errorf("feedback.cache.ttl_seconds: must not be negative"))
	}

	if err := c.Scoring.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("scoring: %w", err))
	}
	if !slices.Contains(Formats, c.Output.Format) {
		errs = append(errs, fmt.Errorf("output.format: unknown format %q (supported: %s)", c.Output.Format, strings.Join(Formats, ", ")))
	}
	return errors.Join(errs...)
}

// SetField sets a single config field by its dotted YAML key. Returns an
// error if the key is unknown or the value does not parse.
func SetField(cfg *Config, key, value string) error {
	if rest, ok := strings.CutPrefix(key, "servers."); ok {
		return setServerField(cfg, rest, value)
	}
	switch key {
	case "analysis.enabled_analyzers":
		cfg.Analysis.EnabledAnalyzers = splitList(value)
	case "analysis.concurrency_limit":
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("%s must be an integer: %w", key, err)
		}
		cfg.Analysis.ConcurrencyLimit = n
	case "analysis.exclude_patterns":
		cfg.Analysis.ExcludePatterns = splitList(value)
	case "analysis.max_file_bytes":
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("%s must be an integer: %w", key, err)
		}
		cfg.Analysis.MaxFileBytes = n
	case "feedback.provider_order":
		cfg.Feedback.ProviderOrder = splitList(value)
	case "feedback.focus":
		cfg.Feedback.Focus = splitList(value)
	case "feedback.network_timeout":
		d, err := time.ParseDuration(value)
		if err != nil {
			return fmt.Errorf("%s must be a duration: %w", key, err)
		}
		cfg.Feedback.NetworkTimeout = d
	case "feedback.redact_secrets":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("%s must be true or false: %w", key, err)
		}
		cfg.Feedback.RedactSecrets = &b
	case "feedback.cache.enabled":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("%s must be true or false: %w", key, err)
		}
		cfg.Feedback.Cache.Enabled = &b
	case "feedback.cache.ttl_seconds":
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("%s must be an integer: %w", key, err)
		}
		cfg.Feedback.Cache.TTLSeconds = n
	case "output.format":
		cfg.Output.Format = value
	case "serve.addr":
		cfg.Serve.Addr = value
	default:
		if rule, ok := strings.CutPrefix(key, "analysis.severity_overrides."); ok && rule != "" {
			if cfg.Analysis.SeverityOverrides == nil {
				cfg.Analysis.SeverityOverrides = map[string]string{}
			}
			cfg.Analysis.SeverityOverrides[rule] = value
			return nil
		}
		if backend, ok := strings.CutPrefix(key, "feedback.models."); ok && backend != "" {
			if cfg.Feedback.Models == nil {
				cfg.Feedback.Models = map[string]string{}
			}
			cfg.Feedback.Models[backend] = value
			return nil
		}
		return fmt.Errorf("unknown config key: %s", key)
	}
	return nil
}

func setServerField(cfg *Config, rest, value string) error {
	name, field, ok := strings.Cut(rest, ".")
	if !ok || name == "" {
		return fmt.Errorf("unknown config key: servers.%s", rest)
	}
	if cfg.Servers == nil {
		cfg.Servers = map[string]Server{}
	}
	s := cfg.Servers[name]
	switch field {
	case "type":
		s.Type = value
	case "base_url":
		s.BaseURL = value
	case "token":
		s.Token = value
	case "username":
		s.Username = value
	case "dir":
		s.Dir = value
	case "base":
		s.Base = value
	case "timeout":
		d, err := time.ParseDuration(value)
		if err != nil {
			return fmt.Errorf("servers.%s.timeout must be a duration: %w", name, err)
		}
		s.Timeout = d
	default:
		return fmt.Errorf("unknown config key: servers.%s", rest)
	}
	cfg.Servers[name] = s
	return nil
}

func splitList(v string) []string {
	var out []string
	for _, p := range strings.Split(v, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
