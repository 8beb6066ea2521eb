package engine

import (
	"time"

	"github.com/simforge/worldsim/config"
)

// Config tunes the round processor.
type Config struct {
	// MaxConcurrentDecisions bounds the decision-phase fan-out.
	MaxConcurrentDecisions int

	DecisionTimeout   time.Duration
	ResolutionTimeout time.Duration
	MaxRetries        int
	RetryBackoff      time.Duration

	// Per-actor bounds applied to decision payloads. Entries exceeding a
	// bound are dropped, never truncated.
	MaxActionsPerActor  int
	MaxMessagesPerActor int
	MaxActionLength     int
	MaxMessageLength    int
}

// DefaultConfig returns the baseline configuration.
func DefaultConfig() Config {
	return Config{
		MaxConcurrentDecisions: 8,
		DecisionTimeout:        60 * time.Second,
		ResolutionTimeout:      120 * time.Second,
		MaxRetries:             3,
		RetryBackoff:           2 * time.Second,
		MaxActionsPerActor:     3,
		MaxMessagesPerActor:    5,
		MaxActionLength:        100,
		MaxMessageLength:       200,
	}
}

// ConfigFrom merges the environment configuration and tuning file into an
// engine configuration.
func ConfigFrom(c *config.Config, t *config.Tuning) Config {
	cfg := DefaultConfig()
	if c != nil {
		cfg.MaxConcurrentDecisions = c.MaxConcurrentDecisions
		cfg.DecisionTimeout = c.DecisionTimeout
		cfg.ResolutionTimeout = c.ResolutionTimeout
		cfg.MaxRetries = c.MaxRetries
		cfg.RetryBackoff = c.RetryBackoff
	}
	if t != nil {
		cfg.MaxActionsPerActor = t.Limits.MaxActionsPerActor
		cfg.MaxMessagesPerActor = t.Limits.MaxMessagesPerActor
		cfg.MaxActionLength = t.Limits.MaxActionLength
		cfg.MaxMessageLength = t.Limits.MaxMessageLength
	}
	return cfg
}
