package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"
)

// Load reads the YAML configuration file at path and returns a validated
// [Config] with defaults applied. It is a convenience wrapper around
// [LoadFromReader].
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()

	cfg, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader decodes a YAML config from r, expands ${ENV_VAR} references
// in credential fields, applies defaults and validates the result. Useful in
// tests where configs are constructed from string literals.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := &Config{}
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}

	cfg.Providers.APIKey = os.ExpandEnv(cfg.Providers.APIKey)
	cfg.Catalog.PostgresDSN = os.ExpandEnv(cfg.Catalog.PostgresDSN)

	cfg.ApplyDefaults()
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that cfg contains a coherent set of values.
// It returns a joined error listing all validation failures found.
func Validate(cfg *Config) error {
	var errs []error

	if !cfg.Server.LogLevel.IsValid() {
		errs = append(errs, fmt.Errorf("server.log_level %q is invalid; valid values: debug, info, warn, error", cfg.Server.LogLevel))
	}
	if !cfg.Providers.Backend.IsValid() {
		errs = append(errs, fmt.Errorf("providers.backend %q is invalid; valid values: gemini, anyllm", cfg.Providers.Backend))
	}
	if cfg.Providers.Backend == BackendAnyLLM && cfg.Providers.AnyLLMBackend == "" {
		errs = append(errs, fmt.Errorf("providers.anyllm_backend must be set when providers.backend is anyllm"))
	}
	if !cfg.Narration.Backend.IsValid() {
		errs = append(errs, fmt.Errorf("narration.backend %q is invalid; valid values: console, coqui, none", cfg.Narration.Backend))
	}
	if cfg.Narration.Backend == NarrationCoqui && cfg.Narration.Coqui.BaseURL == "" {
		errs = append(errs, fmt.Errorf("narration.coqui.base_url must be set when narration.backend is coqui"))
	}
	if cfg.Narration.Rate < 0 {
		errs = append(errs, fmt.Errorf("narration.rate must not be negative, got %v", cfg.Narration.Rate))
	}
	if cfg.Narration.SegmentGapMS < 0 {
		errs = append(errs, fmt.Errorf("narration.segment_gap_ms must not be negative, got %d", cfg.Narration.SegmentGapMS))
	}
	if !cfg.Catalog.Source.IsValid() {
		errs = append(errs, fmt.Errorf("catalog.source %q is invalid; valid values: static, file, postgres", cfg.Catalog.Source))
	}
	if cfg.Catalog.Source == CatalogFile && cfg.Catalog.Path == "" {
		errs = append(errs, fmt.Errorf("catalog.path must be set when catalog.source is file"))
	}
	if cfg.Catalog.Source == CatalogPostgres && cfg.Catalog.PostgresDSN == "" {
		errs = append(errs, fmt.Errorf("catalog.postgres_dsn must be set when catalog.source is postgres"))
	}

	// Advisory only: running without a credential is a supported mode.
	if cfg.Providers.APIKey == "" {
		slog.Warn("no provider API key configured; routes will be served from the catalog only")
	}

	return errors.Join(errs...)
}
