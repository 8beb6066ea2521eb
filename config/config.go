// Package config loads runtime configuration from the environment and
// outcome tuning from an optional YAML file.
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config is the environment-driven runtime configuration. Every field has a
// usable default so a bare environment still runs with in-memory storage and
// static oracles.
type Config struct {
	// Provider selects the oracle backend: static, openai, or anthropic.
	Provider string `env:"WORLDSIM_PROVIDER" envDefault:"static"`

	DecisionModel string `env:"WORLDSIM_DECISION_MODEL"`
	WorldModel    string `env:"WORLDSIM_WORLD_MODEL"`

	DecisionTimeout   time.Duration `env:"WORLDSIM_DECISION_TIMEOUT" envDefault:"60s"`
	ResolutionTimeout time.Duration `env:"WORLDSIM_RESOLUTION_TIMEOUT" envDefault:"120s"`
	MaxRetries        int           `env:"WORLDSIM_MAX_RETRIES" envDefault:"3"`
	RetryBackoff      time.Duration `env:"WORLDSIM_RETRY_BACKOFF" envDefault:"2s"`

	MaxConcurrentDecisions int `env:"WORLDSIM_MAX_CONCURRENT_DECISIONS" envDefault:"8"`

	// SQLitePath enables the SQLite store when non-empty; empty keeps the
	// in-memory store.
	SQLitePath string `env:"WORLDSIM_SQLITE_PATH"`

	// TuningPath points at an optional YAML outcome tuning file.
	TuningPath string `env:"WORLDSIM_TUNING_PATH"`

	LogLevel  string `env:"WORLDSIM_LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"WORLDSIM_LOG_FORMAT" envDefault:"text"`
}

// Load parses the configuration from the process environment.
func Load() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects configurations that cannot run.
func (c *Config) Validate() error {
	switch c.Provider {
	case "static", "openai", "anthropic":
	default:
		return fmt.Errorf("unknown provider %q", c.Provider)
	}
	if c.MaxRetries < 1 {
		return fmt.Errorf("max retries must be at least 1, got %d", c.MaxRetries)
	}
	if c.MaxConcurrentDecisions < 1 {
		return fmt.Errorf("max concurrent decisions must be at least 1, got %d", c.MaxConcurrentDecisions)
	}
	if c.DecisionTimeout <= 0 || c.ResolutionTimeout <= 0 {
		return fmt.Errorf("timeouts must be positive")
	}
	return nil
}
