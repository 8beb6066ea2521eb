package core

import "context"

// ActiveKey identifies an active-action record for completion.
type ActiveKey struct {
	ActorID      string `json:"actor_id"`
	StartedRound int    `json:"started_round"`
}

// RoundCommit is the full set of derived mutations produced by resolving one
// round. A Store applies it as a single logical unit: if CommitRound fails,
// none of its effects may be observable, so the round stays retryable from
// the same current_round value.
type RoundCommit struct {
	SimulationID string

	// Round is the immutable transcript entry being appended. It is nil for
	// commits outside the round protocol (the initial enrichment snapshot).
	Round *Round
	// ActorStates are the new per-actor snapshots, keyed at CurrentRound.
	ActorStates map[string]*ActorState

	// ActionUpdates carries scheduled actions whose status (and outcome
	// fields) changed this round, as full updated records.
	ActionUpdates []*ScheduledAction
	// NewActions are actions emitted by the decision phase, scheduled for
	// future rounds.
	NewActions []*ScheduledAction
	// NewMessages are messages emitted by the decision phase, awaiting a
	// future delivery round.
	NewMessages []*Message

	// ActiveStarts are multi-round actions beginning this round.
	ActiveStarts []*ActiveAction
	// ActiveCompletions identify tracker records removed this round.
	ActiveCompletions []ActiveKey
	// DeliveredMessageIDs identify messages drained from the deferral store.
	DeliveredMessageIDs []string

	// EliminatedActorIDs identify actors removed from the active set this
	// round. Stores move them from ActiveActorIDs to EliminatedActorIDs on
	// the aggregate.
	EliminatedActorIDs []string

	// Status and CurrentRound are the aggregate fields advanced by the
	// round processor.
	Status       SimulationStatus
	CurrentRound int
}

// Store is the persistence boundary required by the engine: a key-value /
// document store addressable by simulation id, round number, and execution
// round. No specific storage engine is assumed; implementations include the
// in-memory store (store.Memory) and a SQLite-backed document store
// (store/sqlite.Store).
type Store interface {
	// CreateSimulation persists a new aggregate. Fails if the id exists.
	CreateSimulation(ctx context.Context, sim *Simulation) error
	// Simulation returns the aggregate by id, ErrNotFound if absent.
	Simulation(ctx context.Context, id string) (*Simulation, error)
	// PutSimulation overwrites the aggregate (status transitions outside the
	// round protocol, e.g. enrichment).
	PutSimulation(ctx context.Context, sim *Simulation) error

	// PutScheduledAction persists a single scheduled action (caller-facing
	// scheduleAction / cancelAction outside the round protocol).
	PutScheduledAction(ctx context.Context, a *ScheduledAction) error
	// ScheduledActions returns actions keyed by (simulation, execution round).
	ScheduledActions(ctx context.Context, simID string, round int) ([]*ScheduledAction, error)
	// AllScheduledActions returns every action of a simulation (hydration).
	AllScheduledActions(ctx context.Context, simID string) ([]*ScheduledAction, error)

	// ActiveActions returns the open multi-round actions of a simulation.
	ActiveActions(ctx context.Context, simID string) ([]*ActiveAction, error)
	// Messages returns the undelivered messages of a simulation.
	Messages(ctx context.Context, simID string) ([]*Message, error)

	// Rounds returns the public transcript in round order.
	Rounds(ctx context.Context, simID string) ([]*Round, error)
	// ActorState returns one actor's snapshot for a round, ErrNotFound if absent.
	ActorState(ctx context.Context, simID, actorID string, round int) (*ActorState, error)
	// ActorStates returns all snapshots recorded for a round.
	ActorStates(ctx context.Context, simID string, round int) (map[string]*ActorState, error)

	// CommitRound applies a whole round's derived mutations atomically from
	// the caller's perspective.
	CommitRound(ctx context.Context, commit *RoundCommit) error
}
