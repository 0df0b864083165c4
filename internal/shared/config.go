package shared

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
)

//go:embed config.example.toml
var exampleConf []byte

// Bounds enforced on search settings before an engine is constructed.
const (
	MinDelay       = 0.1
	MaxDelay       = 10.0
	MinRetries     = 1
	MaxRetries     = 10
	MinConcurrency = 1
	MaxConcurrency = 3
	DefaultTimeout = 10
)

// Config represents the application configuration loaded from a TOML file.
type Config struct {
	Search   SearchConfig   `toml:"search"`
	Sources  SourcesConfig  `toml:"sources"`
	Database DatabaseConfig `toml:"database"`
}

// SearchConfig contains pacing and retry settings for a resolution run.
type SearchConfig struct {
	Delay       float64 `toml:"delay"`       // seconds slept between tracks
	MaxRetries  int     `toml:"max_retries"` // attempts per source call
	Concurrency int     `toml:"concurrency"` // worker count, at most 3
	Timeout     int     `toml:"timeout"`     // seconds per network call
}

// SourcesConfig contains the base URLs of the lookup providers.
type SourcesConfig struct {
	CatalogURL    string `toml:"catalog_url"`
	ResultsURL    string `toml:"results_url"`
	FourSharedURL string `toml:"fourshared_url"`
}

// DatabaseConfig contains run store settings.
type DatabaseConfig struct {
	Path string `toml:"path"`
}

// DelayDuration returns the inter-track delay as a [time.Duration].
func (s SearchConfig) DelayDuration() time.Duration {
	return time.Duration(s.Delay * float64(time.Second))
}

// TimeoutDuration returns the per-request network timeout as a [time.Duration].
func (s SearchConfig) TimeoutDuration() time.Duration {
	return time.Duration(s.Timeout) * time.Second
}

// Validate checks that every search setting falls inside its accepted range.
func (s SearchConfig) Validate() error {
	if s.Delay < MinDelay || s.Delay > MaxDelay {
		return fmt.Errorf("%w: delay must be between %.1f and %.1f seconds", ErrInvalidConfig, MinDelay, MaxDelay)
	}
	if s.MaxRetries < MinRetries || s.MaxRetries > MaxRetries {
		return fmt.Errorf("%w: max_retries must be between %d and %d", ErrInvalidConfig, MinRetries, MaxRetries)
	}
	if s.Concurrency < MinConcurrency || s.Concurrency > MaxConcurrency {
		return fmt.Errorf("%w: concurrency must be between %d and %d", ErrInvalidConfig, MinConcurrency, MaxConcurrency)
	}
	if s.Timeout <= 0 {
		return fmt.Errorf("%w: timeout must be positive", ErrInvalidConfig)
	}
	return nil
}

// withDefaults fills zero values from the embedded example config.
func (s SearchConfig) withDefaults() SearchConfig {
	def := DefaultConfig().Search
	if s.Delay == 0 {
		s.Delay = def.Delay
	}
	if s.MaxRetries == 0 {
		s.MaxRetries = def.MaxRetries
	}
	if s.Concurrency == 0 {
		s.Concurrency = def.Concurrency
	}
	if s.Timeout == 0 {
		s.Timeout = DefaultTimeout
	}
	return s
}

// Clamp returns a copy of the settings with every value forced into its accepted range.
//
// Zero values fall back to the embedded defaults.
func (s SearchConfig) Clamp() SearchConfig {
	s = s.withDefaults()

	s.Delay = min(max(s.Delay, MinDelay), MaxDelay)
	s.MaxRetries = min(max(s.MaxRetries, MinRetries), MaxRetries)
	s.Concurrency = min(max(s.Concurrency, MinConcurrency), MaxConcurrency)
	return s
}

// LoadConfig reads and parses a TOML configuration file from the specified path.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrMissingConfig, path)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := toml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	// Omitted settings take their defaults, but settings the file spells out
	// must be in range. Only CLI flag overrides are clamped silently.
	config.Search = config.Search.withDefaults()
	if err := config.Search.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	return &config, nil
}

// DefaultConfig returns a Config with sensible defaults loaded from the embedded example config.
func DefaultConfig() *Config {
	var config Config
	if err := toml.Unmarshal(exampleConf, &config); err != nil {
		panic(fmt.Sprintf("failed to parse embedded default config: %v", err))
	}
	return &config
}

// CreateConfigFile creates a config.toml file at the specified path using the embedded example config.
func CreateConfigFile(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := os.WriteFile(path, exampleConf, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}
