// Package oracle defines the collaborator interfaces the round processor
// consults: a decision oracle that produces each actor's intended actions and
// messages, and a world oracle that narrates the consequences of a resolved
// round. Implementations wrap LLM providers; the engine never depends on a
// concrete provider.
package oracle

import (
	"context"

	"github.com/simforge/worldsim/core"
)

// Info describes an oracle implementation.
type Info struct {
	Name     string
	Provider string
}

// DecisionRequest carries everything one actor may see when deciding:
// its own profile and latest state, the delivered messages, and the shared
// world summary. Other actors' private reasoning is never included.
type DecisionRequest struct {
	SimulationID string
	Round        int
	Actor        *core.Actor
	State        *core.ActorState
	WorldSummary string
	Messages     []core.DeliveredMessage
	// ActiveAction is set when the actor is mid-execution of a multi-round
	// action; the oracle should not schedule conflicting work.
	ActiveAction *core.ActiveAction
	// MaxActions and MaxMessages bound what the response may contain.
	MaxActions  int
	MaxMessages int
}

// ResolutionRequest carries the material for narrating one round: the
// actions executing this round with their mechanical outcomes already
// determined, the completed multi-round actions, the messages delivered, and
// the previous world summary. Reasoning fields are stripped before the
// request is built so private intent never reaches the shared narration.
type ResolutionRequest struct {
	SimulationID  string
	Round         int
	WorldSummary  string
	Scenario      string
	Results       []core.ActionResult
	Completions   []core.ActionResult
	Delivered     []core.DeliveredMessage
	ActorProfiles []*core.Actor
}

// Decision produces an actor's raw decision payload for a round. The
// response is a model string; the engine parses and validates it.
type Decision interface {
	Decide(ctx context.Context, req DecisionRequest) (string, error)
	Info() Info
}

// World produces the raw world-update payload for a resolved round.
type World interface {
	Resolve(ctx context.Context, req ResolutionRequest) (string, error)
	Info() Info
}
