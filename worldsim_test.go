package worldsim

import (
	"context"
	"testing"

	"github.com/simforge/worldsim/core"
	"github.com/simforge/worldsim/oracle"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSim(t *testing.T, w *WorldSim) *core.Simulation {
	t.Helper()
	ctx := context.Background()

	sim, err := w.CreateSimulation(ctx, &core.Simulation{
		Question: "does the caravan cross the pass before the snow?",
		TimeUnit: "day",
		Duration: 4,
		Actors: []core.Actor{
			{ID: "actor-1", Identifier: "Caravan Master"},
			{ID: "actor-2", Identifier: "Pass Warden"},
		},
	})
	require.NoError(t, err)

	require.NoError(t, w.BeginEnrichment(ctx, sim.ID))
	require.NoError(t, w.CompleteEnrichment(ctx, sim.ID, sim.Actors, map[string]*core.ActorState{
		"actor-1": {ActorID: "actor-1", AvailableActions: []string{"travel", "camp"}},
		"actor-2": {ActorID: "actor-2", AvailableActions: []string{"clear road"}},
	}))
	return sim
}

func TestWorldSim_DefaultsRunEndToEnd(t *testing.T) {
	w := New(func(o *Options) {
		o.SeedFn = func() float64 { return 0.9 }
	})
	ctx := context.Background()
	sim := newTestSim(t, w)

	_, err := w.ScheduleAction(ctx, sim.ID, "actor-1", "travel the ridge road", "the weather holds", 1, 1)
	require.NoError(t, err)

	rounds, err := w.Run(ctx, sim.ID, 4)
	require.NoError(t, err)
	require.Len(t, rounds, 4, "round cap equals the simulation duration")

	final, err := w.Simulation(ctx, sim.ID)
	require.NoError(t, err)
	assert.Equal(t, core.SimulationCompleted, final.Status)
	assert.Equal(t, 4, final.CurrentRound)

	state, err := w.ActorState(ctx, sim.ID, "actor-1", 1)
	require.NoError(t, err)
	require.Len(t, state.MyActions, 1)
	assert.Equal(t, core.OutcomeSuccess, state.MyActions[0].Outcome)
}

func TestWorldSim_RunStopsWhenWorldHalts(t *testing.T) {
	w := New(func(o *Options) {
		o.WorldOracle = &oracle.StaticWorld{Summary: "the question is settled", Halt: true}
	})
	ctx := context.Background()
	sim := newTestSim(t, w)

	_, err := w.ScheduleAction(ctx, sim.ID, "actor-1", "travel the ridge road", "", 1, 1)
	require.NoError(t, err)

	rounds, err := w.Run(ctx, sim.ID, 0)
	require.NoError(t, err)
	require.Len(t, rounds, 1)
	assert.False(t, rounds[0].ContinueSimulation)

	final, err := w.Simulation(ctx, sim.ID)
	require.NoError(t, err)
	assert.Equal(t, core.SimulationCompleted, final.Status)
}

func TestWorldSim_SentinelReexports(t *testing.T) {
	w := New()
	ctx := context.Background()
	sim := newTestSim(t, w)

	// Round 0 is already in the past relative to the next round.
	_, err := w.ScheduleAction(ctx, sim.ID, "actor-1", "travel", "", 0, 1)
	assert.ErrorIs(t, err, ErrInvalidSchedule)

	_, err = w.Simulation(ctx, "no-such-sim")
	assert.ErrorIs(t, err, ErrNotFound)
}
