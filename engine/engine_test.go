package engine

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/simforge/worldsim/core"
	"github.com/simforge/worldsim/oracle"
	"github.com/simforge/worldsim/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// blockingWorld parks inside Resolve until released, to exercise the
// per-simulation mutual exclusion.
type blockingWorld struct {
	startedOnce sync.Once
	started     chan struct{}
	release     chan struct{}
}

func newBlockingWorld() *blockingWorld {
	return &blockingWorld{started: make(chan struct{}), release: make(chan struct{})}
}

func (w *blockingWorld) Resolve(ctx context.Context, req oracle.ResolutionRequest) (string, error) {
	w.startedOnce.Do(func() { close(w.started) })
	select {
	case <-w.release:
	case <-ctx.Done():
		return "", ctx.Err()
	}
	return (&oracle.StaticWorld{}).Resolve(ctx, req)
}

func (w *blockingWorld) Info() oracle.Info { return oracle.Info{Name: "blocking", Provider: "test"} }

// stallingWorld never answers; it waits out its context.
type stallingWorld struct{}

func (stallingWorld) Resolve(ctx context.Context, _ oracle.ResolutionRequest) (string, error) {
	<-ctx.Done()
	return "", ctx.Err()
}

func (stallingWorld) Info() oracle.Info { return oracle.Info{Name: "stalling", Provider: "test"} }

var (
	_ oracle.World = (*blockingWorld)(nil)
	_ oracle.World = stallingWorld{}
)

func fastConfig() Config {
	cfg := DefaultConfig()
	cfg.MaxRetries = 2
	cfg.RetryBackoff = 0
	return cfg
}

func newTestEngine(optFns ...func(*Options)) *Engine {
	base := func(o *Options) {
		o.Config = fastConfig()
		o.SeedFn = func() float64 { return 0.9 }
	}
	return New(append([]func(o *Options){base}, optFns...)...)
}

func setupSim(t *testing.T, e *Engine, duration int) *core.Simulation {
	t.Helper()
	ctx := context.Background()
	sim, err := e.CreateSimulation(ctx, &core.Simulation{
		Question: "does the alliance hold?",
		TimeUnit: "day",
		Duration: duration,
		Actors: []core.Actor{
			{ID: "actor-1", Identifier: "Alder"},
			{ID: "actor-2", Identifier: "Birch"},
		},
	})
	require.NoError(t, err)
	require.NoError(t, e.BeginEnrichment(ctx, sim.ID))
	require.NoError(t, e.CompleteEnrichment(ctx, sim.ID, nil, map[string]*core.ActorState{
		"actor-1": {AvailableActions: []string{"negotiate", "scout"}, Resources: map[string]any{"gold": 10}},
		"actor-2": {AvailableActions: []string{"trade"}},
	}))
	return sim
}

func TestEngine_StatusMachine(t *testing.T) {
	e := newTestEngine()
	ctx := context.Background()

	sim, err := e.CreateSimulation(ctx, &core.Simulation{Actors: []core.Actor{{ID: "actor-1"}}})
	require.NoError(t, err)
	assert.Equal(t, core.SimulationCreated, sim.Status)
	assert.Equal(t, []string{"actor-1"}, sim.ActiveActorIDs)

	// Rounds cannot run before enrichment.
	_, err = e.ProcessRound(ctx, sim.ID)
	assert.ErrorIs(t, err, core.ErrInvalidTransition)

	// Enrichment cannot complete before it begins.
	err = e.CompleteEnrichment(ctx, sim.ID, nil, nil)
	assert.ErrorIs(t, err, core.ErrInvalidTransition)

	require.NoError(t, e.BeginEnrichment(ctx, sim.ID))
	err = e.BeginEnrichment(ctx, sim.ID)
	assert.ErrorIs(t, err, core.ErrInvalidTransition)

	require.NoError(t, e.CompleteEnrichment(ctx, sim.ID, nil, nil))
	got, err := e.Simulation(ctx, sim.ID)
	require.NoError(t, err)
	assert.Equal(t, core.SimulationEnriched, got.Status)

	// First round moves the simulation into running.
	round, err := e.ProcessRound(ctx, sim.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, round.RoundNumber)
	got, err = e.Simulation(ctx, sim.ID)
	require.NoError(t, err)
	assert.Equal(t, core.SimulationRunning, got.Status)
	assert.Equal(t, 1, got.CurrentRound)
}

func TestEngine_QuietRound(t *testing.T) {
	e := newTestEngine()
	ctx := context.Background()
	sim := setupSim(t, e, 10)

	round, err := e.ProcessRound(ctx, sim.ID)
	require.NoError(t, err)
	assert.Empty(t, round.ActionResults)
	assert.True(t, round.ContinueSimulation)

	// Actor states still advance, carried forward from round zero.
	s, err := e.ActorState(ctx, sim.ID, "actor-1", 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"negotiate", "scout"}, s.AvailableActions)
}

func TestEngine_SingleRoundAction(t *testing.T) {
	e := newTestEngine()
	ctx := context.Background()
	sim := setupSim(t, e, 10)

	a, err := e.ScheduleAction(ctx, sim.ID, "actor-1", "negotiate the tariff", "first mover", 1, 1)
	require.NoError(t, err)
	assert.Equal(t, core.ActionPending, a.Status)
	assert.Equal(t, 0.9, a.Seed)

	round, err := e.ProcessRound(ctx, sim.ID)
	require.NoError(t, err)
	require.Len(t, round.ActionResults, 1)
	res := round.ActionResults[0]
	assert.Equal(t, "actor-1", res.ActorID)
	assert.Equal(t, core.OutcomeSuccess, res.Outcome)
	assert.Equal(t, core.QualityStrong, res.Quality)
	assert.Equal(t, 0.9, res.Seed)
	assert.Less(t, res.Threshold, 0.9)

	actions, err := e.ScheduledActions(ctx, sim.ID, 1)
	require.NoError(t, err)
	require.Len(t, actions, 1)
	assert.Equal(t, core.ActionCompleted, actions[0].Status)
	assert.Equal(t, core.OutcomeSuccess, actions[0].Outcome)

	s, err := e.ActorState(ctx, sim.ID, "actor-1", 1)
	require.NoError(t, err)
	require.Len(t, s.MyActions, 1)
	assert.Equal(t, a.ID, s.MyActions[0].ActionID)
	assert.Equal(t, core.ActionCompleted, s.MyActions[0].Status)
}

func TestEngine_MultiRoundAction(t *testing.T) {
	e := newTestEngine()
	ctx := context.Background()
	sim := setupSim(t, e, 10)

	a, err := e.ScheduleAction(ctx, sim.ID, "actor-1", "build the river bridge", "long haul", 1, 3)
	require.NoError(t, err)

	// Round 1: the action begins executing.
	round, err := e.ProcessRound(ctx, sim.ID)
	require.NoError(t, err)
	assert.Empty(t, round.ActionResults, "a started action is not yet a result")

	active, err := e.ActiveActions(ctx, sim.ID)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, 1, active[0].StartedRound)
	assert.Equal(t, 4, active[0].CompletesRound)

	actions, err := e.ScheduledActions(ctx, sim.ID, 1)
	require.NoError(t, err)
	assert.Equal(t, core.ActionExecuting, actions[0].Status)

	// Rounds 2 and 3 pass without anything due.
	for r := 2; r <= 3; r++ {
		round, err = e.ProcessRound(ctx, sim.ID)
		require.NoError(t, err)
		assert.Empty(t, round.ActionResults)
	}

	// Round 4: completion resolves the outcome.
	round, err = e.ProcessRound(ctx, sim.ID)
	require.NoError(t, err)
	require.Len(t, round.ActionResults, 1)
	assert.Equal(t, core.OutcomeSuccess, round.ActionResults[0].Outcome)

	active, err = e.ActiveActions(ctx, sim.ID)
	require.NoError(t, err)
	assert.Empty(t, active)

	actions, err = e.ScheduledActions(ctx, sim.ID, 1)
	require.NoError(t, err)
	assert.Equal(t, core.ActionCompleted, actions[0].Status)

	s, err := e.ActorState(ctx, sim.ID, "actor-1", 4)
	require.NoError(t, err)
	require.Len(t, s.MyActions, 1)
	assert.Equal(t, a.ID, s.MyActions[0].ActionID)
	assert.Equal(t, core.ActionCompleted, s.MyActions[0].Status)
}

func TestEngine_SecondMultiRoundActionCancelled(t *testing.T) {
	e := newTestEngine()
	ctx := context.Background()
	sim := setupSim(t, e, 10)

	_, err := e.ScheduleAction(ctx, sim.ID, "actor-1", "dig the canal", "", 1, 3)
	require.NoError(t, err)
	second, err := e.ScheduleAction(ctx, sim.ID, "actor-1", "raise the militia", "", 2, 2)
	require.NoError(t, err)

	_, err = e.ProcessRound(ctx, sim.ID)
	require.NoError(t, err)
	_, err = e.ProcessRound(ctx, sim.ID)
	require.NoError(t, err)

	actions, err := e.ScheduledActions(ctx, sim.ID, 2)
	require.NoError(t, err)
	require.Len(t, actions, 1)
	assert.Equal(t, second.ID, actions[0].ID)
	assert.Equal(t, core.ActionCancelled, actions[0].Status)
	assert.NotEmpty(t, actions[0].Explanation)

	// Only the first action remains active.
	active, err := e.ActiveActions(ctx, sim.ID)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, "dig the canal", active[0].Action)
}

func TestEngine_DeferredMessageDelivery(t *testing.T) {
	decision := &oracle.StaticDecision{Responses: map[string]string{
		"actor-1": `{"actions": [], "messages": [{"to_actor_id": "actor-2", "content": "meet me at dawn", "reasoning": "secret", "deliver_round": 3}]}`,
	}}
	e := newTestEngine(func(o *Options) { o.DecisionOracle = decision })
	ctx := context.Background()
	sim := setupSim(t, e, 10)

	// Something must be due for the decision phase to run.
	_, err := e.ScheduleAction(ctx, sim.ID, "actor-2", "trade at the market", "", 1, 1)
	require.NoError(t, err)

	_, err = e.ProcessRound(ctx, sim.ID)
	require.NoError(t, err)
	decision.Responses = nil // one-shot: later rounds decide nothing

	// Round 2: the message is not yet due.
	round, err := e.ProcessRound(ctx, sim.ID)
	require.NoError(t, err)
	assert.Empty(t, round.ActionResults)
	s, err := e.ActorState(ctx, sim.ID, "actor-2", 2)
	require.NoError(t, err)
	assert.Empty(t, s.MessagesReceived)

	// Round 3: delivered, with the sender's private reasoning stripped.
	_, err = e.ProcessRound(ctx, sim.ID)
	require.NoError(t, err)
	s, err = e.ActorState(ctx, sim.ID, "actor-2", 3)
	require.NoError(t, err)
	require.Len(t, s.MessagesReceived, 1)
	assert.Equal(t, "meet me at dawn", s.MessagesReceived[0].Content)
	assert.Equal(t, "actor-1", s.MessagesReceived[0].FromActorID)
	assert.Equal(t, 1, s.MessagesReceived[0].SentRound)

	// Round 4: delivered exactly once, never again.
	_, err = e.ProcessRound(ctx, sim.ID)
	require.NoError(t, err)
	s, err = e.ActorState(ctx, sim.ID, "actor-2", 4)
	require.NoError(t, err)
	assert.Empty(t, s.MessagesReceived)
}

func TestEngine_DecisionSchedulesFutureAction(t *testing.T) {
	decision := &oracle.StaticDecision{Responses: map[string]string{
		"actor-1": `{"actions": [{"action": "scout the pass", "reasoning": "stay ahead", "execute_round": 2, "duration": 1}], "messages": []}`,
	}}
	e := newTestEngine(func(o *Options) { o.DecisionOracle = decision })
	ctx := context.Background()
	sim := setupSim(t, e, 10)

	_, err := e.ScheduleAction(ctx, sim.ID, "actor-2", "trade at the market", "", 1, 1)
	require.NoError(t, err)

	_, err = e.ProcessRound(ctx, sim.ID)
	require.NoError(t, err)
	decision.Responses = nil

	actions, err := e.ScheduledActions(ctx, sim.ID, 2)
	require.NoError(t, err)
	require.Len(t, actions, 1)
	assert.Equal(t, "scout the pass", actions[0].Action)
	assert.Equal(t, core.ActionPending, actions[0].Status)
	assert.Equal(t, 1, actions[0].ScheduledAtRound)

	round, err := e.ProcessRound(ctx, sim.ID)
	require.NoError(t, err)
	require.Len(t, round.ActionResults, 1)
	assert.Equal(t, "scout the pass", round.ActionResults[0].Action)
}

func TestEngine_ResolutionFailureLeavesRoundRetryable(t *testing.T) {
	world := &oracle.StaticWorld{Err: errors.New("provider unavailable")}
	e := newTestEngine(func(o *Options) { o.WorldOracle = world })
	ctx := context.Background()
	sim := setupSim(t, e, 10)

	a, err := e.ScheduleAction(ctx, sim.ID, "actor-1", "negotiate the tariff", "", 1, 1)
	require.NoError(t, err)

	_, err = e.ProcessRound(ctx, sim.ID)
	require.Error(t, err)

	// Nothing moved: the round is retryable from the same point.
	got, err := e.Simulation(ctx, sim.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, got.CurrentRound)
	actions, err := e.ScheduledActions(ctx, sim.ID, 1)
	require.NoError(t, err)
	assert.Equal(t, core.ActionPending, actions[0].Status)

	// Once the oracle recovers the same round commits.
	world.Err = nil
	round, err := e.ProcessRound(ctx, sim.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, round.RoundNumber)
	require.Len(t, round.ActionResults, 1)

	actions, err = e.ScheduledActions(ctx, sim.ID, 1)
	require.NoError(t, err)
	assert.Equal(t, a.ID, actions[0].ID)
	assert.Equal(t, core.ActionCompleted, actions[0].Status)
}

func TestEngine_ResolutionTimeout(t *testing.T) {
	e := newTestEngine(func(o *Options) {
		o.WorldOracle = stallingWorld{}
		cfg := fastConfig()
		cfg.ResolutionTimeout = 10 * time.Millisecond
		o.Config = cfg
	})
	ctx := context.Background()
	sim := setupSim(t, e, 10)

	_, err := e.ScheduleAction(ctx, sim.ID, "actor-1", "negotiate the tariff", "", 1, 1)
	require.NoError(t, err)

	_, err = e.ProcessRound(ctx, sim.ID)
	assert.ErrorIs(t, err, core.ErrOracleTimeout)

	got, err := e.Simulation(ctx, sim.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, got.CurrentRound)
}

func TestEngine_ConcurrentRoundRejected(t *testing.T) {
	world := newBlockingWorld()
	e := newTestEngine(func(o *Options) { o.WorldOracle = world })
	ctx := context.Background()
	sim := setupSim(t, e, 10)

	_, err := e.ScheduleAction(ctx, sim.ID, "actor-1", "negotiate the tariff", "", 1, 1)
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() {
		_, err := e.ProcessRound(ctx, sim.ID)
		done <- err
	}()

	<-world.started
	_, err = e.ProcessRound(ctx, sim.ID)
	assert.ErrorIs(t, err, core.ErrConcurrentRound)

	close(world.release)
	require.NoError(t, <-done)
}

func TestEngine_WorldHaltCompletesSimulation(t *testing.T) {
	e := newTestEngine(func(o *Options) { o.WorldOracle = &oracle.StaticWorld{Halt: true} })
	ctx := context.Background()
	sim := setupSim(t, e, 10)

	_, err := e.ScheduleAction(ctx, sim.ID, "actor-1", "sue for peace", "", 1, 1)
	require.NoError(t, err)

	round, err := e.ProcessRound(ctx, sim.ID)
	require.NoError(t, err)
	assert.False(t, round.ContinueSimulation)

	got, err := e.Simulation(ctx, sim.ID)
	require.NoError(t, err)
	assert.Equal(t, core.SimulationCompleted, got.Status)

	_, err = e.ProcessRound(ctx, sim.ID)
	assert.ErrorIs(t, err, core.ErrInvalidTransition)
}

func TestEngine_RoundCapCompletesSimulation(t *testing.T) {
	e := newTestEngine()
	ctx := context.Background()
	sim := setupSim(t, e, 2)

	for r := 1; r <= 2; r++ {
		round, err := e.ProcessRound(ctx, sim.ID)
		require.NoError(t, err)
		assert.Equal(t, r, round.RoundNumber)
	}
	got, err := e.Simulation(ctx, sim.ID)
	require.NoError(t, err)
	assert.Equal(t, core.SimulationCompleted, got.Status)
}

func TestEngine_ScheduleValidation(t *testing.T) {
	e := newTestEngine()
	ctx := context.Background()
	sim := setupSim(t, e, 10)

	_, err := e.ScheduleAction(ctx, sim.ID, "ghost", "haunt", "", 1, 1)
	assert.ErrorIs(t, err, core.ErrNotFound)

	_, err = e.ScheduleAction(ctx, sim.ID, "actor-1", "act", "", 0, 1)
	assert.ErrorIs(t, err, core.ErrInvalidSchedule)

	_, err = e.ScheduleAction(ctx, sim.ID, "actor-1", "act", "", 2, 0)
	assert.ErrorIs(t, err, core.ErrInvalidSchedule)
}

func TestEngine_CancelAction(t *testing.T) {
	e := newTestEngine()
	ctx := context.Background()
	sim := setupSim(t, e, 10)

	a, err := e.ScheduleAction(ctx, sim.ID, "actor-1", "raid the granary", "", 2, 2)
	require.NoError(t, err)
	require.NoError(t, e.CancelAction(ctx, sim.ID, a.ID))
	require.NoError(t, e.CancelAction(ctx, sim.ID, a.ID), "cancel is idempotent")

	b, err := e.ScheduleAction(ctx, sim.ID, "actor-1", "dig the canal", "", 1, 2)
	require.NoError(t, err)
	_, err = e.ProcessRound(ctx, sim.ID)
	require.NoError(t, err)

	err = e.CancelAction(ctx, sim.ID, b.ID)
	assert.ErrorIs(t, err, core.ErrAlreadyExecuting)
}

func TestEngine_RehydratesFromStore(t *testing.T) {
	st := store.NewMemory()
	e := newTestEngine(func(o *Options) { o.Store = st })
	ctx := context.Background()
	sim := setupSim(t, e, 10)

	_, err := e.ScheduleAction(ctx, sim.ID, "actor-1", "build the river bridge", "", 1, 3)
	require.NoError(t, err)
	_, err = e.ProcessRound(ctx, sim.ID)
	require.NoError(t, err)

	// A fresh engine over the same store resumes mid-flight.
	e2 := newTestEngine(func(o *Options) { o.Store = st })
	active, err := e2.ActiveActions(ctx, sim.ID)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, 4, active[0].CompletesRound)

	got, err := e2.Simulation(ctx, sim.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.CurrentRound)

	for r := 2; r <= 4; r++ {
		_, err = e2.ProcessRound(ctx, sim.ID)
		require.NoError(t, err)
	}
	actions, err := e2.ScheduledActions(ctx, sim.ID, 1)
	require.NoError(t, err)
	assert.Equal(t, core.ActionCompleted, actions[0].Status)
}

// scriptedWorld answers every resolution with a fixed payload.
type scriptedWorld struct{ payload string }

func (w scriptedWorld) Resolve(context.Context, oracle.ResolutionRequest) (string, error) {
	return w.payload, nil
}

func (w scriptedWorld) Info() oracle.Info { return oracle.Info{Name: "scripted", Provider: "test"} }

func TestEngine_SameRoundMultiRoundOverlapCancelled(t *testing.T) {
	e := newTestEngine()
	ctx := context.Background()
	sim := setupSim(t, e, 10)

	first, err := e.ScheduleAction(ctx, sim.ID, "actor-1", "dig the canal", "", 1, 3)
	require.NoError(t, err)
	second, err := e.ScheduleAction(ctx, sim.ID, "actor-1", "raise the militia", "", 1, 2)
	require.NoError(t, err)

	_, err = e.ProcessRound(ctx, sim.ID)
	require.NoError(t, err)

	// Only one action wins the start; the other is cancelled, not lost.
	active, err := e.ActiveActions(ctx, sim.ID)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, first.ID, active[0].ActionID)

	actions, err := e.ScheduledActions(ctx, sim.ID, 1)
	require.NoError(t, err)
	byID := make(map[string]*core.ScheduledAction, len(actions))
	for _, a := range actions {
		byID[a.ID] = a
	}
	assert.Equal(t, core.ActionExecuting, byID[first.ID].Status)
	assert.Equal(t, core.ActionCancelled, byID[second.ID].Status)
	assert.NotEmpty(t, byID[second.ID].Explanation)

	// The winner still completes on schedule.
	for r := 2; r <= 4; r++ {
		_, err = e.ProcessRound(ctx, sim.ID)
		require.NoError(t, err)
	}
	actions, err = e.ScheduledActions(ctx, sim.ID, 1)
	require.NoError(t, err)
	for _, a := range actions {
		byID[a.ID] = a
	}
	assert.Equal(t, core.ActionCompleted, byID[first.ID].Status)
	assert.Equal(t, core.ActionCancelled, byID[second.ID].Status)
}

func TestEngine_CorruptActionRecordAbortsRound(t *testing.T) {
	st := store.NewMemory()
	e := newTestEngine(func(o *Options) { o.Store = st })
	ctx := context.Background()
	sim := setupSim(t, e, 10)

	_, err := e.ScheduleAction(ctx, sim.ID, "actor-1", "build the river bridge", "", 1, 2)
	require.NoError(t, err)
	_, err = e.ProcessRound(ctx, sim.ID)
	require.NoError(t, err)
	_, err = e.ProcessRound(ctx, sim.ID)
	require.NoError(t, err)

	// Corrupt the stored record: terminal status while its tracker record
	// is still open.
	stored, err := st.AllScheduledActions(ctx, sim.ID)
	require.NoError(t, err)
	require.Len(t, stored, 1)
	stored[0].Status = core.ActionCompleted
	require.NoError(t, st.PutScheduledAction(ctx, stored[0]))

	// A fresh engine hydrates the corruption and refuses to paper over it.
	e2 := newTestEngine(func(o *Options) { o.Store = st })
	_, err = e2.ProcessRound(ctx, sim.ID)
	assert.ErrorIs(t, err, core.ErrInvalidTransition)

	got, err := e2.Simulation(ctx, sim.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, got.CurrentRound, "the aborted round must not advance")
}

func TestEngine_WorldEliminatesActor(t *testing.T) {
	payload := `{
		"world_state_update": {"summary": "Birch capitulates"},
		"action_results": [],
		"actor_updates": [{"actor_id": "actor-2", "state_changes": {"eliminated": true}}],
		"continue_simulation": true
	}`
	e := newTestEngine(func(o *Options) { o.WorldOracle = scriptedWorld{payload: payload} })
	ctx := context.Background()
	sim := setupSim(t, e, 10)

	_, err := e.ScheduleAction(ctx, sim.ID, "actor-1", "besiege the keep", "", 1, 1)
	require.NoError(t, err)
	_, err = e.ProcessRound(ctx, sim.ID)
	require.NoError(t, err)

	got, err := e.Simulation(ctx, sim.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"actor-1"}, got.ActiveActorIDs)
	assert.Equal(t, []string{"actor-2"}, got.EliminatedActorIDs)

	// The eliminated actor keeps its final snapshot but none after it.
	_, err = e.ActorState(ctx, sim.ID, "actor-2", 1)
	require.NoError(t, err)
	_, err = e.ProcessRound(ctx, sim.ID)
	require.NoError(t, err)
	_, err = e.ActorState(ctx, sim.ID, "actor-2", 2)
	assert.ErrorIs(t, err, core.ErrNotFound)
	_, err = e.ActorState(ctx, sim.ID, "actor-1", 2)
	require.NoError(t, err)
}
