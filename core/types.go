package core

import (
	"maps"
	"slices"
	"time"

	"github.com/google/uuid"
)

// NewID returns a fresh unique identifier for simulations, actions, and messages.
func NewID() string { return uuid.NewString() }

// ActionStatus is the lifecycle state of a scheduled action.
type ActionStatus string

const (
	// ActionPending means the action waits in the queue for its round.
	ActionPending ActionStatus = "pending"
	// ActionExecuting means the action's round has been consumed and, for
	// multi-round actions, the work is still in progress.
	ActionExecuting ActionStatus = "executing"
	// ActionCompleted is a terminal state carrying a resolved outcome.
	ActionCompleted ActionStatus = "completed"
	// ActionCancelled is a terminal state reached only from pending.
	ActionCancelled ActionStatus = "cancelled"
)

// ValidTransition reports whether the status edge from→to is allowed.
// The graph is monotonic: pending→executing→completed, or pending→cancelled.
func ValidTransition(from, to ActionStatus) bool {
	switch from {
	case ActionPending:
		return to == ActionExecuting || to == ActionCancelled
	case ActionExecuting:
		return to == ActionCompleted
	default:
		return false
	}
}

// Terminal reports whether a status admits no further transitions.
func (s ActionStatus) Terminal() bool {
	return s == ActionCompleted || s == ActionCancelled
}

// Outcome is the binary result of a resolved action.
type Outcome string

const (
	// OutcomeSuccess means the action's seed exceeded its difficulty.
	OutcomeSuccess Outcome = "SUCCESS"
	// OutcomeFailure means the seed fell at or below the difficulty.
	OutcomeFailure Outcome = "FAILURE"
)

// Quality grades the strength of an outcome.
type Quality string

const (
	QualityStrong       Quality = "strong"
	QualityModest       Quality = "modest"
	QualityWeak         Quality = "weak"
	QualityCatastrophic Quality = "catastrophic"
)

// SimulationStatus is the top-level lifecycle state of a simulation.
type SimulationStatus string

const (
	SimulationCreated   SimulationStatus = "created"
	SimulationEnriching SimulationStatus = "enriching"
	SimulationEnriched  SimulationStatus = "enriched"
	SimulationRunning   SimulationStatus = "running"
	SimulationCompleted SimulationStatus = "completed"
)

// ScheduledAction is one actor's intent to act at a specific round. Records
// are never deleted; they transition through ActionStatus and serve as the
// permanent audit trail. The Seed is fixed at creation so the action's
// outcome is reproducible from stored data alone.
type ScheduledAction struct {
	ID               string       `json:"id"`
	SimulationID     string       `json:"simulation_id"`
	ActorID          string       `json:"actor_id"`
	Action           string       `json:"action"`
	Reasoning        string       `json:"reasoning"` // private, never sent to the world oracle
	ScheduledRound   int          `json:"scheduled_round"`
	Duration         int          `json:"duration"`
	Seed             float64      `json:"seed"`
	ScheduledAtRound int          `json:"scheduled_at_round"`
	Status           ActionStatus `json:"status"`

	// Outcome fields, filled when the action completes.
	Outcome     Outcome `json:"outcome,omitempty"`
	Quality     Quality `json:"quality,omitempty"`
	Explanation string  `json:"explanation,omitempty"`
}

// Clone returns a value copy of the action.
func (a *ScheduledAction) Clone() *ScheduledAction {
	c := *a
	return &c
}

// ActionOutcome bundles the resolved result attached to a terminal status update.
type ActionOutcome struct {
	Outcome     Outcome `json:"outcome"`
	Quality     Quality `json:"quality"`
	Explanation string  `json:"explanation"`
}

// ActiveAction is a multi-round action in progress, derived from a
// ScheduledAction with Duration > 1 at the round it begins executing. It is
// removed from the tracker on completion; the scheduled record keeps the
// audit trail.
type ActiveAction struct {
	ActorID        string  `json:"actor_id"`
	ActionID       string  `json:"action_id"`
	Action         string  `json:"action"`
	Reasoning      string  `json:"reasoning"`
	StartedRound   int     `json:"started_round"`
	Duration       int     `json:"duration"`
	CompletesRound int     `json:"completes_round"` // StartedRound + Duration
	Seed           float64 `json:"seed"`
}

// Clone returns a value copy of the active action.
func (a *ActiveAction) Clone() *ActiveAction {
	c := *a
	return &c
}

// Message is a directed communication between actors, held in the deferral
// store until its delivery round.
type Message struct {
	ID             string `json:"id"`
	SimulationID   string `json:"simulation_id"`
	FromActorID    string `json:"from_actor_id"`
	FromIdentifier string `json:"from_identifier"`
	ToActorID      string `json:"to_actor_id"`
	Content        string `json:"content"`
	Reasoning      string `json:"reasoning"` // private to the sender
	SentRound      int    `json:"sent_round"`
	DeliverRound   int    `json:"deliver_round"`
}

// Clone returns a value copy of the message.
func (m *Message) Clone() *Message {
	c := *m
	return &c
}

// Delivered converts the message into the value copied into the recipient's
// state snapshot. The copy omits the sender's private reasoning and survives
// the deferral store's deletion of the original record.
func (m *Message) Delivered() DeliveredMessage {
	return DeliveredMessage{
		FromActorID:    m.FromActorID,
		FromIdentifier: m.FromIdentifier,
		Content:        m.Content,
		SentRound:      m.SentRound,
	}
}

// DeliveredMessage is the recipient-visible copy of a delivered message.
type DeliveredMessage struct {
	FromActorID    string `json:"from_actor_id"`
	FromIdentifier string `json:"from_identifier"`
	Content        string `json:"content"`
	SentRound      int    `json:"sent_round"`
}

// ActorActionItem is one entry in an actor's private action history. Items
// are append/update-only: status and outcome fields may advance, the item is
// never removed.
type ActorActionItem struct {
	ActionID       string       `json:"action_id"`
	Action         string       `json:"action"`
	Reasoning      string       `json:"reasoning"`
	ScheduledRound int          `json:"scheduled_round"`
	Duration       int          `json:"duration"`
	Status         ActionStatus `json:"status"`
	Outcome        Outcome      `json:"outcome,omitempty"`
	Quality        Quality      `json:"quality,omitempty"`
	Explanation    string       `json:"explanation,omitempty"`
	Seed           float64      `json:"seed"`
}

// ActorState is the private per-round snapshot of one actor.
type ActorState struct {
	ActorID          string             `json:"actor_id"`
	RoundNumber      int                `json:"round_number"`
	WorldSummary     string             `json:"world_summary"`
	Observations     string             `json:"observations"`
	AvailableActions []string           `json:"available_actions"`
	DisabledActions  []string           `json:"disabled_actions"`
	Resources        map[string]any     `json:"resources"`
	Constraints      []string           `json:"constraints"`
	MessagesReceived []DeliveredMessage `json:"messages_received"`
	MyActions        []ActorActionItem  `json:"my_actions"`
	DirectImpacts    string             `json:"direct_impacts"`
	IndirectImpacts  string             `json:"indirect_impacts"`
}

// Clone returns a deep copy of the state so callers can never mutate a
// stored snapshot through a returned reference.
func (s *ActorState) Clone() *ActorState {
	c := *s
	c.AvailableActions = slices.Clone(s.AvailableActions)
	c.DisabledActions = slices.Clone(s.DisabledActions)
	c.Constraints = slices.Clone(s.Constraints)
	c.MessagesReceived = slices.Clone(s.MessagesReceived)
	c.MyActions = slices.Clone(s.MyActions)
	if s.Resources != nil {
		c.Resources = maps.Clone(s.Resources)
	}
	return &c
}

// ActionResult is the public record of one resolved action inside a Round.
// It carries no private reasoning.
type ActionResult struct {
	ActorID     string  `json:"actor_id"`
	Action      string  `json:"action"`
	Threshold   float64 `json:"success_threshold"`
	Seed        float64 `json:"random_seed"`
	Outcome     Outcome `json:"outcome"`
	Quality     Quality `json:"outcome_quality"`
	Explanation string  `json:"explanation"`
}

// Round is the immutable public transcript entry for one simulated time
// step. A Round is created exactly once per round number and never mutated.
type Round struct {
	RoundNumber          int            `json:"round_number"`
	WorldSummary         string         `json:"world_state_summary"`
	KeyChanges           []string       `json:"key_changes"`
	EmergentDevelopments []string       `json:"emergent_developments"`
	ActionResults        []ActionResult `json:"action_results"`
	ContinueSimulation   bool           `json:"continue_simulation"`
	ContinuationReason   string         `json:"continuation_reasoning"`
	Timestamp            time.Time      `json:"timestamp"`
}

// Clone returns a deep copy of the round.
func (r *Round) Clone() *Round {
	c := *r
	c.KeyChanges = slices.Clone(r.KeyChanges)
	c.EmergentDevelopments = slices.Clone(r.EmergentDevelopments)
	c.ActionResults = slices.Clone(r.ActionResults)
	return &c
}

// Actor is the static profile of one simulation participant, including the
// enrichment text supplied by the (external) enrichment phase.
type Actor struct {
	ID              string   `json:"actor_id"`
	Identifier      string   `json:"identifier"`
	Role            string   `json:"role_in_simulation"`
	Granularity     string   `json:"granularity"`
	KeyInteractions []string `json:"key_interactions,omitempty"`
	Memory          string   `json:"memory,omitempty"`
	Characteristics string   `json:"intrinsic_characteristics,omitempty"`
	Predispositions string   `json:"predispositions,omitempty"`
	Enriched        bool     `json:"enriched"`
}

// Simulation is the aggregate root. The round processor writes exactly two
// fields per invocation: CurrentRound and Status.
type Simulation struct {
	ID           string           `json:"simulation_id"`
	Question     string           `json:"question"`
	TimeUnit     string           `json:"time_unit"`
	Duration     int              `json:"simulation_duration"`
	CurrentRound int              `json:"current_round"`
	Status       SimulationStatus `json:"status"`
	CreatedAt    time.Time        `json:"created_at"`
	UpdatedAt    time.Time        `json:"updated_at"`

	Actors             []Actor  `json:"actors"`
	ActiveActorIDs     []string `json:"active_actor_ids"`
	EliminatedActorIDs []string `json:"eliminated_actor_ids"`
}

// Clone returns a deep copy of the aggregate.
func (s *Simulation) Clone() *Simulation {
	c := *s
	c.Actors = slices.Clone(s.Actors)
	c.ActiveActorIDs = slices.Clone(s.ActiveActorIDs)
	c.EliminatedActorIDs = slices.Clone(s.EliminatedActorIDs)
	return &c
}

// Eliminate moves an actor from the active set to the eliminated set.
// Eliminating an already eliminated actor is a no-op.
func (s *Simulation) Eliminate(actorID string) {
	s.ActiveActorIDs = slices.DeleteFunc(s.ActiveActorIDs, func(id string) bool { return id == actorID })
	if !slices.Contains(s.EliminatedActorIDs, actorID) {
		s.EliminatedActorIDs = append(s.EliminatedActorIDs, actorID)
	}
}

// ActorByID returns the profile for the given actor id.
func (s *Simulation) ActorByID(id string) (Actor, bool) {
	for _, a := range s.Actors {
		if a.ID == id {
			return a, true
		}
	}
	return Actor{}, false
}
