package config

import (
	"fmt"
	"path/filepath"

	"github.com/kelseyhightower/envconfig"
	"github.com/rs/zerolog/log"
)

// Environment represents different deployment environments
type Environment string

const (
	EnvDevelopment Environment = "development"
	EnvTesting     Environment = "testing"
	EnvProduction  Environment = "production"
)

// Config holds the configuration for the diary service.
// Environment variables are parsed from the DIARY_ prefix.
type Config struct {
	Environment Environment `envconfig:"ENVIRONMENT" default:"development"`

	// HTTP Configuration
	HTTPPort int `envconfig:"HTTP_PORT" default:"8080"`
	// APIKey protects the entry and index routes when set; empty leaves
	// the API open (local single-user deployments).
	APIKey string `envconfig:"API_KEY" default:""`

	// Storage Configuration
	// StoreDriver selects the entry store: pebble, sqlite, postgres, memory
	// or auto (pebble, or postgres when a DSN is set).
	StoreDriver string `envconfig:"STORE_DRIVER" default:"auto"`
	DataDir     string `envconfig:"DATA_DIR" default:"./data"`
	PostgresDSN string `envconfig:"POSTGRES_DSN" default:""`
	// CacheSize bounds the pebble driver's decoded-entry LRU.
	CacheSize int `envconfig:"CACHE_SIZE" default:"256"`

	// Event Configuration
	EventBuffer int `envconfig:"EVENT_BUFFER" default:"64"`

	// Tag generation Configuration
	TagProvider    string `envconfig:"TAG_PROVIDER" default:"keyword"`
	OllamaURL      string `envconfig:"OLLAMA_URL" default:"http://localhost:11434"`
	OllamaModel    string `envconfig:"OLLAMA_MODEL" default:"llama3.2"`
	TagTimeoutSecs int    `envconfig:"TAG_TIMEOUT_SECONDS" default:"30"`
	TagMaxAttempts int    `envconfig:"TAG_MAX_ATTEMPTS" default:"3"`

	// Health Configuration
	HealthIntervalSecs     int `envconfig:"HEALTH_INTERVAL_SECONDS" default:"15"`
	HealthProbeTimeoutSecs int `envconfig:"HEALTH_PROBE_TIMEOUT_SECONDS" default:"2"`
}

// ResolveDefaults validates the driver selection and derives "auto" values.
func (c *Config) ResolveDefaults() error {
	if c.StoreDriver == "" || c.StoreDriver == "auto" {
		if c.PostgresDSN != "" {
			c.StoreDriver = "postgres"
		} else {
			c.StoreDriver = "pebble"
		}
	}
	allowed := map[string]bool{"pebble": true, "sqlite": true, "postgres": true, "memory": true}
	if !allowed[c.StoreDriver] {
		return fmt.Errorf("unsupported STORE_DRIVER: %s", c.StoreDriver)
	}
	if c.StoreDriver == "postgres" && c.PostgresDSN == "" {
		return fmt.Errorf("STORE_DRIVER=postgres requires POSTGRES_DSN")
	}

	allowedTags := map[string]bool{"ollama": true, "keyword": true, "none": true}
	if !allowedTags[c.TagProvider] {
		return fmt.Errorf("unsupported TAG_PROVIDER: %s", c.TagProvider)
	}
	return nil
}

// PebblePath returns the pebble database directory under DataDir.
func (c *Config) PebblePath() string { return filepath.Join(c.DataDir, "pebble") }

// SQLitePath returns the sqlite database file under DataDir.
func (c *Config) SQLitePath() string { return filepath.Join(c.DataDir, "diary.db") }

// New creates a Config by parsing DIARY_-prefixed environment variables.
// Example: DIARY_HTTP_PORT, DIARY_STORE_DRIVER.
func New() (*Config, error) {
	var cfg Config

	if err := envconfig.Process("DIARY", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process environment variables: %w", err)
	}

	if err := cfg.ResolveDefaults(); err != nil {
		return nil, err
	}

	log.Info().
		Str("environment", string(cfg.Environment)).
		Int("port", cfg.HTTPPort).
		Str("store_driver", cfg.StoreDriver).
		Str("data_dir", cfg.DataDir).
		Str("tag_provider", cfg.TagProvider).
		Str("postgres_dsn_present", func() string {
			if cfg.PostgresDSN != "" {
				return "true"
			}
			return "false"
		}()).
		Msg("Configuration loaded")

	return &cfg, nil
}

// NewForTesting creates a config for tests: in-memory store, no AI calls.
func NewForTesting() *Config {
	return &Config{
		Environment:            EnvTesting,
		HTTPPort:               8080,
		StoreDriver:            "memory",
		CacheSize:              16,
		EventBuffer:            16,
		TagProvider:            "none",
		TagTimeoutSecs:         1,
		TagMaxAttempts:         1,
		HealthIntervalSecs:     1,
		HealthProbeTimeoutSecs: 1,
	}
}

// IsTesting returns true if the environment is set to testing
func (c *Config) IsTesting() bool {
	return c.Environment == EnvTesting
}

// IsProduction returns true if the environment is set to production
func (c *Config) IsProduction() bool {
	return c.Environment == EnvProduction
}

// GetHTTPAddr returns the HTTP server address
func (c *Config) GetHTTPAddr() string {
	return fmt.Sprintf(":%d", c.HTTPPort)
}
