package config

import (
	"fmt"
	"os"

	"github.com/simforge/worldsim/outcome"
	"gopkg.in/yaml.v3"
)

// Limits bound what a single decision may schedule per round.
type Limits struct {
	MaxActionsPerActor  int `yaml:"max_actions_per_actor"`
	MaxMessagesPerActor int `yaml:"max_messages_per_actor"`
	MaxActionLength     int `yaml:"max_action_length"`
	MaxMessageLength    int `yaml:"max_message_length"`
}

// Tuning bundles the outcome policy and the per-actor limits. Operators
// override pieces of it from a YAML file; unset fields keep their defaults.
type Tuning struct {
	Outcome *outcome.Policy `yaml:"outcome"`
	Limits  Limits          `yaml:"limits"`
}

// DefaultTuning returns the built-in tuning.
func DefaultTuning() *Tuning {
	return &Tuning{
		Outcome: outcome.DefaultPolicy(),
		Limits: Limits{
			MaxActionsPerActor:  3,
			MaxMessagesPerActor: 5,
			MaxActionLength:     100,
			MaxMessageLength:    200,
		},
	}
}

// LoadTuning reads a tuning file over the defaults. An empty path returns
// the defaults unchanged.
func LoadTuning(path string) (*Tuning, error) {
	t := DefaultTuning()
	if path == "" {
		return t, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read tuning file: %w", err)
	}
	if err := yaml.Unmarshal(data, t); err != nil {
		return nil, fmt.Errorf("parse tuning file %s: %w", path, err)
	}
	if err := t.Outcome.Validate(); err != nil {
		return nil, fmt.Errorf("tuning file %s: %w", path, err)
	}
	return t, nil
}
