// Package worldsim provides a high-level façade over the round engine and
// its services (stores, oracles, outcome policy, logging) for building
// discrete-time multi-actor world simulations. Most applications interact
// with this package by:
//  1. Creating a WorldSim via New() (optionally overriding default in-memory services)
//  2. Creating a simulation and completing its enrichment phase
//  3. Calling ProcessRound (or Run) until the simulation completes
//
// The façade delegates all semantics to engine.Engine while keeping setup
// ergonomics concise. All defaults are safe for local development and
// testing: an in-memory store and static oracles. Production deployments
// supply the SQLite store, a provider-backed oracle pair, and a structured
// logger.
package worldsim

import (
	"context"

	"github.com/simforge/worldsim/core"
	"github.com/simforge/worldsim/engine"
	"github.com/simforge/worldsim/logging"
	"github.com/simforge/worldsim/oracle"
	"github.com/simforge/worldsim/outcome"
	"github.com/simforge/worldsim/store"
)

// Sentinel errors re-exported for callers that only import the façade.
var (
	ErrInvalidSchedule       = core.ErrInvalidSchedule
	ErrInvalidTransition     = core.ErrInvalidTransition
	ErrAlreadyExecuting      = core.ErrAlreadyExecuting
	ErrDuplicateActiveAction = core.ErrDuplicateActiveAction
	ErrNotFound              = core.ErrNotFound
	ErrInvalidDelivery       = core.ErrInvalidDelivery
	ErrUnparseableResponse   = core.ErrUnparseableResponse
	ErrOracleTimeout         = core.ErrOracleTimeout
	ErrConcurrentRound       = core.ErrConcurrentRound
)

// Options configures the WorldSim instance.
type Options struct {
	// EngineConfig tunes timeouts, retries, concurrency, and per-actor bounds.
	EngineConfig engine.Config

	// Store persists simulations (defaults to in-memory).
	Store core.Store

	// Oracles (default to static fakes so a bare instance still runs).
	DecisionOracle oracle.Decision
	WorldOracle    oracle.World

	// Policy determines action outcomes (defaults to the built-in bands).
	Policy *outcome.Policy

	// Logger (defaults to a discarding logger if nil).
	Logger *logging.SimLogger

	// SeedFn supplies the random seed fixed onto each scheduled action.
	// Override for reproducible runs.
	SeedFn func() float64
}

// WorldSim is the high-level façade aggregating the round engine and its
// services.
type WorldSim struct {
	opts   Options
	engine *engine.Engine
}

// New creates a WorldSim with optional overrides. Any unset service is
// initialized with a local default.
func New(optFns ...func(o *Options)) *WorldSim {
	opts := Options{
		EngineConfig:   engine.DefaultConfig(),
		Store:          store.NewMemory(),
		DecisionOracle: &oracle.StaticDecision{},
		WorldOracle:    &oracle.StaticWorld{},
		Policy:         outcome.DefaultPolicy(),
		Logger:         logging.Nop(),
	}
	for _, fn := range optFns {
		fn(&opts)
	}

	e := engine.New(func(o *engine.Options) {
		o.Config = opts.EngineConfig
		o.Store = opts.Store
		o.DecisionOracle = opts.DecisionOracle
		o.WorldOracle = opts.WorldOracle
		o.Policy = opts.Policy
		o.Logger = opts.Logger
		if opts.SeedFn != nil {
			o.SeedFn = opts.SeedFn
		}
	})

	return &WorldSim{opts: opts, engine: e}
}

// CreateSimulation persists a new simulation in status created.
func (w *WorldSim) CreateSimulation(ctx context.Context, sim *core.Simulation) (*core.Simulation, error) {
	return w.engine.CreateSimulation(ctx, sim)
}

// BeginEnrichment moves a created simulation into enriching.
func (w *WorldSim) BeginEnrichment(ctx context.Context, simID string) error {
	return w.engine.BeginEnrichment(ctx, simID)
}

// CompleteEnrichment installs enriched actor profiles and initial actor
// states and moves the simulation into enriched.
func (w *WorldSim) CompleteEnrichment(ctx context.Context, simID string, actors []core.Actor, initial map[string]*core.ActorState) error {
	return w.engine.CompleteEnrichment(ctx, simID, actors, initial)
}

// ScheduleAction enqueues an actor's intent to act at a future round.
func (w *WorldSim) ScheduleAction(ctx context.Context, simID, actorID, action, reasoning string, executeRound, duration int) (*core.ScheduledAction, error) {
	return w.engine.ScheduleAction(ctx, simID, actorID, action, reasoning, executeRound, duration)
}

// CancelAction cancels a still-pending action.
func (w *WorldSim) CancelAction(ctx context.Context, simID, actionID string) error {
	return w.engine.CancelAction(ctx, simID, actionID)
}

// ProcessRound advances the simulation by exactly one round and returns the
// committed transcript entry.
func (w *WorldSim) ProcessRound(ctx context.Context, simID string) (*core.Round, error) {
	return w.engine.ProcessRound(ctx, simID)
}

// Run processes rounds until the simulation completes or maxRounds have been
// processed in this call (0 means no cap beyond the simulation's own).
func (w *WorldSim) Run(ctx context.Context, simID string, maxRounds int) ([]*core.Round, error) {
	var rounds []*core.Round
	for i := 0; maxRounds <= 0 || i < maxRounds; i++ {
		if ctx.Err() != nil {
			return rounds, ctx.Err()
		}
		round, err := w.engine.ProcessRound(ctx, simID)
		if err != nil {
			return rounds, err
		}
		rounds = append(rounds, round)
		if !round.ContinueSimulation {
			break
		}
	}
	return rounds, nil
}

// Simulation returns the current aggregate.
func (w *WorldSim) Simulation(ctx context.Context, simID string) (*core.Simulation, error) {
	return w.engine.Simulation(ctx, simID)
}

// Rounds returns the public transcript in round order.
func (w *WorldSim) Rounds(ctx context.Context, simID string) ([]*core.Round, error) {
	return w.engine.Rounds(ctx, simID)
}

// ScheduledActions returns every action scheduled for the given round.
func (w *WorldSim) ScheduledActions(ctx context.Context, simID string, round int) ([]*core.ScheduledAction, error) {
	return w.engine.ScheduledActions(ctx, simID, round)
}

// ActiveActions returns the open multi-round actions.
func (w *WorldSim) ActiveActions(ctx context.Context, simID string) ([]*core.ActiveAction, error) {
	return w.engine.ActiveActions(ctx, simID)
}

// ActorState returns one actor's private snapshot for a round.
func (w *WorldSim) ActorState(ctx context.Context, simID, actorID string, round int) (*core.ActorState, error) {
	return w.engine.ActorState(ctx, simID, actorID, round)
}
