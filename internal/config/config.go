// Package config loads, validates and merges the screening configuration.
//
// Values come from, in increasing priority: built-in defaults, a JSON or YAML
// file, environment variables, and CLI flags that were explicitly set.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/13maks37/sanctions-checker/internal/schemas"
	"github.com/13maks37/sanctions-checker/internal/similarity"
	"github.com/13maks37/sanctions-checker/internal/sources"
	embedded "github.com/13maks37/sanctions-checker/schemas"
)

// Built-in defaults.
const (
	DefaultWorkers       = 4
	DefaultSourceTimeout = "2m"
	DefaultDownloadDir   = "tmp/scraper_uploads"
	DefaultResultDir     = "tmp/scraper_result"
	DefaultUploadDir     = "tmp/bot_uploads"
	DefaultCompanyColumn = "Company"
	DefaultLogLevel      = "info"
	DefaultLogFormat     = "text"
	DefaultPort          = 8080
)

// Config is the screening configuration. Zero values mean "not set" and are
// filled by MergeWithDefaults.
type Config struct {
	// Matching
	Threshold float64 `json:"threshold,omitempty" yaml:"threshold,omitempty" validate:"gte=0,lte=100"`
	Scorer    string  `json:"scorer,omitempty" yaml:"scorer,omitempty" validate:"omitempty,oneof=token_set token_jaccard"`

	// Fetching
	Workers        int    `json:"workers,omitempty" yaml:"workers,omitempty" validate:"gte=0,lte=64"`
	SourceTimeout  string `json:"source_timeout,omitempty" yaml:"source_timeout,omitempty"`
	CacheTTL       string `json:"cache_ttl,omitempty" yaml:"cache_ttl,omitempty"`
	DisableBrowser bool   `json:"disable_browser,omitempty" yaml:"disable_browser,omitempty"`

	// Files
	DownloadDir   string `json:"download_dir,omitempty" yaml:"download_dir,omitempty"`
	ResultDir     string `json:"result_dir,omitempty" yaml:"result_dir,omitempty"`
	UploadDir     string `json:"upload_dir,omitempty" yaml:"upload_dir,omitempty"`
	CompanyColumn string `json:"company_column,omitempty" yaml:"company_column,omitempty"`

	// Storage, logging and server
	DatabaseURL  string   `json:"database_url,omitempty" yaml:"database_url,omitempty"`
	LogLevel     string   `json:"log_level,omitempty" yaml:"log_level,omitempty" validate:"omitempty,oneof=debug info warn error"`
	LogFormat    string   `json:"log_format,omitempty" yaml:"log_format,omitempty" validate:"omitempty,oneof=text json"`
	ErrorLog     string   `json:"error_log,omitempty" yaml:"error_log,omitempty"`
	Port         int      `json:"port,omitempty" yaml:"port,omitempty" validate:"gte=0,lte=65535"`
	AllowedUsers []string `json:"allowed_users,omitempty" yaml:"allowed_users,omitempty" validate:"dive,required"`

	// Sources replaces the built-in source table when non-empty.
	Sources []SourceConfig `json:"sources,omitempty" yaml:"sources,omitempty" validate:"dive"`
}

// SourceConfig is the file representation of a sources.Source.
type SourceConfig struct {
	Name   string              `json:"name" yaml:"name" validate:"required"`
	URL    string              `json:"url" yaml:"url" validate:"required,url"`
	Format string              `json:"format" yaml:"format" validate:"required,oneof=csv xml html"`
	Schema *sources.SchemaSpec `json:"schema,omitempty" yaml:"schema,omitempty"`
	// NormalizeCandidates defaults to true.
	NormalizeCandidates *bool `json:"normalize_candidates,omitempty" yaml:"normalize_candidates,omitempty"`
	RenderJS            bool  `json:"render_js,omitempty" yaml:"render_js,omitempty"`
}

// Defaults returns the built-in configuration.
func Defaults() Config {
	return Config{
		Threshold:     similarity.DefaultThreshold,
		Scorer:        similarity.NameTokenSet,
		Workers:       DefaultWorkers,
		SourceTimeout: DefaultSourceTimeout,
		DownloadDir:   DefaultDownloadDir,
		ResultDir:     DefaultResultDir,
		UploadDir:     DefaultUploadDir,
		CompanyColumn: DefaultCompanyColumn,
		LogLevel:      DefaultLogLevel,
		LogFormat:     DefaultLogFormat,
		Port:          DefaultPort,
	}
}

// LoadConfig loads configuration from a JSON or YAML file, chosen by
// extension. The document is checked against the embedded config schema
// before it is decoded.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		return nil, fmt.Errorf("config path is empty")
	}

	if !filepath.IsAbs(path) {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get current directory: %w", err)
		}
		path = filepath.Join(cwd, path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var cfg Config
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".json":
		if err := schemas.Validate(embedded.Config, data); err != nil {
			return nil, fmt.Errorf("invalid config file %s: %w", path, err)
		}
		if err := json.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config JSON: %w", err)
		}
	case ".yaml", ".yml":
		var doc map[string]any
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("failed to parse config YAML: %w", err)
		}
		if doc == nil {
			doc = map[string]any{}
		}
		if err := schemas.ValidateValue(embedded.Config, doc); err != nil {
			return nil, fmt.Errorf("invalid config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config YAML: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported config file extension %q (want .json, .yaml or .yml)", ext)
	}

	return &cfg, nil
}

// Load returns the effective configuration: defaults, then the file at path
// when path is non-empty, then environment overrides. The result is
// validated.
func Load(path string, getenv func(string) string) (*Config, error) {
	cfg := Defaults()
	if path != "" {
		fileCfg, err := LoadConfig(path)
		if err != nil {
			return nil, err
		}
		cfg = fileCfg.MergeWithDefaults(cfg)
	}
	if err := cfg.ApplyEnv(getenv); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

var validate = validator.New()

// Validate checks that the configuration has valid values, including that
// every configured source can be built.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("config error: %w", err)
	}
	if c.SourceTimeout != "" {
		d, err := time.ParseDuration(c.SourceTimeout)
		if err != nil {
			return fmt.Errorf("config error: 'source_timeout': %w", err)
		}
		if d <= 0 {
			return fmt.Errorf("config error: 'source_timeout' must be positive")
		}
	}
	if c.CacheTTL != "" {
		if _, err := time.ParseDuration(c.CacheTTL); err != nil {
			return fmt.Errorf("config error: 'cache_ttl': %w", err)
		}
	}
	if _, err := similarity.ByName(c.Scorer); err != nil {
		return fmt.Errorf("config error: %w", err)
	}
	if _, err := c.BuildSources(); err != nil {
		return err
	}
	return nil
}

// MergeWithDefaults returns a new Config with unset fields filled from
// defaults. Bool fields cannot be told apart from false and are kept as is.
func (c *Config) MergeWithDefaults(defaults Config) Config {
	result := *c

	if result.Threshold == 0 {
		result.Threshold = defaults.Threshold
	}
	if result.Workers == 0 {
		result.Workers = defaults.Workers
	}
	if result.Port == 0 {
		result.Port = defaults.Port
	}

	strs := []struct {
		dst *string
		def string
	}{
		{&result.Scorer, defaults.Scorer},
		{&result.SourceTimeout, defaults.SourceTimeout},
		{&result.CacheTTL, defaults.CacheTTL},
		{&result.DownloadDir, defaults.DownloadDir},
		{&result.ResultDir, defaults.ResultDir},
		{&result.UploadDir, defaults.UploadDir},
		{&result.CompanyColumn, defaults.CompanyColumn},
		{&result.DatabaseURL, defaults.DatabaseURL},
		{&result.LogLevel, defaults.LogLevel},
		{&result.LogFormat, defaults.LogFormat},
		{&result.ErrorLog, defaults.ErrorLog},
	}
	for _, s := range strs {
		if *s.dst == "" {
			*s.dst = s.def
		}
	}

	if len(result.AllowedUsers) == 0 {
		result.AllowedUsers = defaults.AllowedUsers
	}
	if len(result.Sources) == 0 {
		result.Sources = defaults.Sources
	}
	return result
}

// Environment variables read by ApplyEnv.
const (
	EnvDatabaseURL  = "DATABASE_URL"
	EnvThreshold    = "SANCTIONS_THRESHOLD"
	EnvWorkers      = "SANCTIONS_WORKERS"
	EnvLogLevel     = "SANCTIONS_LOG_LEVEL"
	EnvAllowedUsers = "SANCTIONS_ALLOWED_USERS"
)

// ApplyEnv overrides fields from the environment. A nil getenv reads the
// process environment.
func (c *Config) ApplyEnv(getenv func(string) string) error {
	if getenv == nil {
		getenv = os.Getenv
	}
	if v := getenv(EnvDatabaseURL); v != "" {
		c.DatabaseURL = v
	}
	if v := getenv(EnvThreshold); v != "" {
		t, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", EnvThreshold, err)
		}
		c.Threshold = t
	}
	if v := getenv(EnvWorkers); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", EnvWorkers, err)
		}
		c.Workers = n
	}
	if v := getenv(EnvLogLevel); v != "" {
		c.LogLevel = strings.ToLower(v)
	}
	if v := getenv(EnvAllowedUsers); v != "" {
		var users []string
		for _, u := range strings.Split(v, ",") {
			if u = strings.TrimSpace(u); u != "" {
				users = append(users, u)
			}
		}
		c.AllowedUsers = users
	}
	return nil
}

// Timeout returns the per-source timeout, or zero when unset or invalid.
func (c *Config) Timeout() time.Duration {
	d, _ := time.ParseDuration(c.SourceTimeout)
	return d
}

// CacheDuration returns how long downloaded copies are reused.
func (c *Config) CacheDuration() time.Duration {
	d, _ := time.ParseDuration(c.CacheTTL)
	return d
}

// SimilarityScorer returns the configured scorer.
func (c *Config) SimilarityScorer() (similarity.Scorer, error) {
	return similarity.ByName(c.Scorer)
}

// BuildSources converts the configured source list. An empty list yields the
// built-in table. Errors are *sources.ConfigError.
func (c *Config) BuildSources() ([]sources.Source, error) {
	if len(c.Sources) == 0 {
		return sources.Defaults(), nil
	}

	out := make([]sources.Source, 0, len(c.Sources))
	for _, sc := range c.Sources {
		src, err := sc.Source()
		if err != nil {
			return nil, err
		}
		out = append(out, src)
	}
	if err := sources.ValidateAll(out); err != nil {
		return nil, err
	}
	return out, nil
}

// Source converts sc.
func (sc SourceConfig) Source() (sources.Source, error) {
	format, err := sources.ParseFormat(sc.Format)
	if err != nil {
		return sources.Source{}, &sources.ConfigError{Source: sc.Name, Message: "unsupported format", Cause: err}
	}
	schema, err := sources.ParseSchema(format, sc.Schema)
	if err != nil {
		return sources.Source{}, &sources.ConfigError{Source: sc.Name, Message: "invalid schema", Cause: err}
	}
	normalizeCandidates := true
	if sc.NormalizeCandidates != nil {
		normalizeCandidates = *sc.NormalizeCandidates
	}
	return sources.Source{
		Name:                sc.Name,
		URL:                 sc.URL,
		Format:              format,
		Schema:              schema,
		NormalizeCandidates: normalizeCandidates,
		RenderJS:            sc.RenderJS,
	}, nil
}

// FromSource is the inverse of SourceConfig.Source.
func FromSource(src sources.Source) SourceConfig {
	normalizeCandidates := src.NormalizeCandidates
	return SourceConfig{
		Name:                src.Name,
		URL:                 src.URL,
		Format:              string(src.Format),
		Schema:              sources.Spec(src.Schema),
		NormalizeCandidates: &normalizeCandidates,
		RenderJS:            src.RenderJS,
	}
}
