// Package engine implements the round processor: the state machine that
// advances a simulation one discrete time step at a time. Each ProcessRound
// gathers the work due at the next round, fans out actor decisions with
// bounded concurrency, resolves outcomes serially, and commits the whole
// round through the persistence boundary as one logical unit.
package engine

import (
	"context"
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/simforge/worldsim/core"
	"github.com/simforge/worldsim/history"
	"github.com/simforge/worldsim/logging"
	"github.com/simforge/worldsim/mailbox"
	"github.com/simforge/worldsim/oracle"
	"github.com/simforge/worldsim/outcome"
	"github.com/simforge/worldsim/schedule"
	"github.com/simforge/worldsim/store"
	"github.com/simforge/worldsim/tracker"
)

// Options configure an Engine.
type Options struct {
	Config         Config
	Store          core.Store
	DecisionOracle oracle.Decision
	WorldOracle    oracle.World
	Policy         *outcome.Policy
	Logger         *logging.SimLogger
	// SeedFn supplies the random seed fixed onto each scheduled action.
	SeedFn func() float64
}

// Engine drives simulations round by round. It keeps one runtime per
// simulation, hydrated lazily from the store, and serializes all round
// processing per simulation.
type Engine struct {
	cfg      Config
	store    core.Store
	decision oracle.Decision
	world    oracle.World
	policy   *outcome.Policy
	logger   *logging.SimLogger
	seedFn   func() float64

	mu   sync.Mutex
	sims map[string]*runtime
}

// runtime is the in-memory working set of one simulation. Its mutex
// serializes round processing; caller-facing mutations take it blocking,
// ProcessRound takes it with TryLock.
type runtime struct {
	mu          sync.Mutex
	sim         *core.Simulation
	queue       *schedule.Queue
	tracker     *tracker.Tracker
	mailbox     *mailbox.Mailbox
	history     *history.History
	lastSummary string
}

// New constructs an Engine. Without options it runs entirely in memory with
// static oracles, suitable for tests and examples.
func New(optFns ...func(o *Options)) *Engine {
	opts := Options{
		Config:         DefaultConfig(),
		Store:          store.NewMemory(),
		DecisionOracle: &oracle.StaticDecision{},
		WorldOracle:    &oracle.StaticWorld{},
		Policy:         outcome.DefaultPolicy(),
		Logger:         logging.Nop(),
		SeedFn:         rand.Float64,
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Engine{
		cfg:      opts.Config,
		store:    opts.Store,
		decision: opts.DecisionOracle,
		world:    opts.WorldOracle,
		policy:   opts.Policy,
		logger:   opts.Logger.WithComponent("engine"),
		seedFn:   opts.SeedFn,
		sims:     make(map[string]*runtime),
	}
}

// CreateSimulation persists a new simulation in status created at round
// zero. A missing id is generated; an empty active set defaults to every
// actor.
func (e *Engine) CreateSimulation(ctx context.Context, sim *core.Simulation) (*core.Simulation, error) {
	s := sim.Clone()
	if s.ID == "" {
		s.ID = core.NewID()
	}
	s.Status = core.SimulationCreated
	s.CurrentRound = 0
	now := time.Now().UTC()
	s.CreatedAt = now
	s.UpdatedAt = now
	if len(s.ActiveActorIDs) == 0 {
		for _, a := range s.Actors {
			s.ActiveActorIDs = append(s.ActiveActorIDs, a.ID)
		}
	}
	if err := e.store.CreateSimulation(ctx, s); err != nil {
		return nil, err
	}

	e.mu.Lock()
	e.sims[s.ID] = &runtime{
		sim:     s,
		queue:   schedule.New(),
		tracker: tracker.New(),
		mailbox: mailbox.New(),
		history: history.New(),
	}
	e.mu.Unlock()

	e.logger.WithSimulation(s.ID).Info("Simulation created with %d actors", len(s.Actors))
	return s.Clone(), nil
}

// BeginEnrichment moves a created simulation into enriching.
func (e *Engine) BeginEnrichment(ctx context.Context, simID string) error {
	rt, err := e.runtime(ctx, simID)
	if err != nil {
		return err
	}
	rt.mu.Lock()
	defer rt.mu.Unlock()

	if rt.sim.Status != core.SimulationCreated {
		return fmt.Errorf("%w: cannot enrich simulation in status %s", core.ErrInvalidTransition, rt.sim.Status)
	}
	updated := rt.sim.Clone()
	updated.Status = core.SimulationEnriching
	updated.UpdatedAt = time.Now().UTC()
	if err := e.store.PutSimulation(ctx, updated); err != nil {
		return err
	}
	rt.sim = updated
	return nil
}

// CompleteEnrichment installs the enriched actor profiles and each actor's
// initial state snapshot, recorded at round zero, and moves the simulation
// into enriched.
func (e *Engine) CompleteEnrichment(ctx context.Context, simID string, actors []core.Actor, initial map[string]*core.ActorState) error {
	rt, err := e.runtime(ctx, simID)
	if err != nil {
		return err
	}
	rt.mu.Lock()
	defer rt.mu.Unlock()

	if rt.sim.Status != core.SimulationEnriching {
		return fmt.Errorf("%w: cannot complete enrichment in status %s", core.ErrInvalidTransition, rt.sim.Status)
	}
	updated := rt.sim.Clone()
	if len(actors) > 0 {
		updated.Actors = actors
	}
	for i := range updated.Actors {
		updated.Actors[i].Enriched = true
	}
	updated.Status = core.SimulationEnriched
	updated.UpdatedAt = time.Now().UTC()
	if err := e.store.PutSimulation(ctx, updated); err != nil {
		return err
	}

	states := make(map[string]*core.ActorState, len(initial))
	for actorID, s := range initial {
		c := s.Clone()
		c.ActorID = actorID
		c.RoundNumber = 0
		states[actorID] = c
	}
	commit := &core.RoundCommit{
		SimulationID: simID,
		ActorStates:  states,
		Status:       core.SimulationEnriched,
		CurrentRound: 0,
	}
	if err := e.store.CommitRound(ctx, commit); err != nil {
		return err
	}

	rt.sim = updated
	if len(states) > 0 {
		if err := rt.history.Record(0, states); err != nil {
			return err
		}
	}
	e.logger.WithSimulation(simID).Info("Enrichment completed for %d actors", len(updated.Actors))
	return nil
}

// ScheduleAction enqueues an actor's intent to act at a future round. The
// random seed deciding the eventual outcome is fixed here.
func (e *Engine) ScheduleAction(ctx context.Context, simID, actorID, action, reasoning string, executeRound, duration int) (*core.ScheduledAction, error) {
	rt, err := e.runtime(ctx, simID)
	if err != nil {
		return nil, err
	}
	rt.mu.Lock()
	defer rt.mu.Unlock()

	if _, ok := rt.sim.ActorByID(actorID); !ok {
		return nil, fmt.Errorf("%w: actor %s in simulation %s", core.ErrNotFound, actorID, simID)
	}
	if e.cfg.MaxActionLength > 0 && len(action) > e.cfg.MaxActionLength {
		return nil, fmt.Errorf("%w: action exceeds %d characters", core.ErrInvalidSchedule, e.cfg.MaxActionLength)
	}

	a := &core.ScheduledAction{
		ID:               core.NewID(),
		SimulationID:     simID,
		ActorID:          actorID,
		Action:           action,
		Reasoning:        reasoning,
		ScheduledRound:   executeRound,
		Duration:         duration,
		Seed:             e.seedFn(),
		ScheduledAtRound: rt.sim.CurrentRound,
		Status:           core.ActionPending,
	}
	if err := rt.queue.Enqueue(a, rt.sim.CurrentRound+1); err != nil {
		return nil, err
	}
	if err := e.store.PutScheduledAction(ctx, a); err != nil {
		// Keep runtime and store consistent: the unpersisted action must
		// not execute.
		_ = rt.queue.Cancel(a.ID)
		return nil, err
	}
	return a.Clone(), nil
}

// CancelAction cancels a pending action. Executing or completed actions are
// rejected; cancelling twice is a no-op.
func (e *Engine) CancelAction(ctx context.Context, simID, actionID string) error {
	rt, err := e.runtime(ctx, simID)
	if err != nil {
		return err
	}
	rt.mu.Lock()
	defer rt.mu.Unlock()

	if err := rt.queue.Cancel(actionID); err != nil {
		return err
	}
	a, err := rt.queue.Get(actionID)
	if err != nil {
		return err
	}
	return e.store.PutScheduledAction(ctx, a)
}

// Simulation returns the current aggregate.
func (e *Engine) Simulation(ctx context.Context, simID string) (*core.Simulation, error) {
	rt, err := e.runtime(ctx, simID)
	if err != nil {
		return nil, err
	}
	rt.mu.Lock()
	defer rt.mu.Unlock()
	return rt.sim.Clone(), nil
}

// Rounds returns the public transcript in round order.
func (e *Engine) Rounds(ctx context.Context, simID string) ([]*core.Round, error) {
	if _, err := e.runtime(ctx, simID); err != nil {
		return nil, err
	}
	return e.store.Rounds(ctx, simID)
}

// ScheduledActions returns every action scheduled for the given round.
func (e *Engine) ScheduledActions(ctx context.Context, simID string, round int) ([]*core.ScheduledAction, error) {
	rt, err := e.runtime(ctx, simID)
	if err != nil {
		return nil, err
	}
	return rt.queue.ByRound(round), nil
}

// ActiveActions returns the open multi-round actions.
func (e *Engine) ActiveActions(ctx context.Context, simID string) ([]*core.ActiveAction, error) {
	rt, err := e.runtime(ctx, simID)
	if err != nil {
		return nil, err
	}
	return rt.tracker.Snapshot(), nil
}

// ActorState returns one actor's snapshot for a round.
func (e *Engine) ActorState(ctx context.Context, simID, actorID string, round int) (*core.ActorState, error) {
	rt, err := e.runtime(ctx, simID)
	if err != nil {
		return nil, err
	}
	return rt.history.State(actorID, round)
}

// runtime returns the simulation's working set, hydrating it from the store
// on first access.
func (e *Engine) runtime(ctx context.Context, simID string) (*runtime, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if rt, ok := e.sims[simID]; ok {
		return rt, nil
	}

	sim, err := e.store.Simulation(ctx, simID)
	if err != nil {
		return nil, err
	}
	actions, err := e.store.AllScheduledActions(ctx, simID)
	if err != nil {
		return nil, err
	}
	active, err := e.store.ActiveActions(ctx, simID)
	if err != nil {
		return nil, err
	}
	msgs, err := e.store.Messages(ctx, simID)
	if err != nil {
		return nil, err
	}
	hist := history.New()
	for r := 0; r <= sim.CurrentRound; r++ {
		states, err := e.store.ActorStates(ctx, simID, r)
		if err != nil {
			return nil, err
		}
		for _, s := range states {
			hist.Put(r, s)
		}
	}
	var lastSummary string
	rounds, err := e.store.Rounds(ctx, simID)
	if err != nil {
		return nil, err
	}
	if len(rounds) > 0 {
		lastSummary = rounds[len(rounds)-1].WorldSummary
	}

	rt := &runtime{
		sim:         sim,
		queue:       schedule.Hydrate(actions),
		tracker:     tracker.Hydrate(active),
		mailbox:     mailbox.Hydrate(msgs),
		history:     hist,
		lastSummary: lastSummary,
	}
	e.sims[simID] = rt
	return rt, nil
}
