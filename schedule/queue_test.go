package schedule

import (
	"testing"

	"github.com/simforge/worldsim/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testAction(id, actorID string, round, duration int) *core.ScheduledAction {
	return &core.ScheduledAction{
		ID:               id,
		SimulationID:     "sim-1",
		ActorID:          actorID,
		Action:           "scout the valley",
		ScheduledRound:   round,
		Duration:         duration,
		Seed:             0.42,
		ScheduledAtRound: 1,
		Status:           core.ActionPending,
	}
}

func TestQueue_EnqueueValidation(t *testing.T) {
	q := New()

	err := q.Enqueue(testAction("a1", "actor-1", 0, 1), 1)
	assert.ErrorIs(t, err, core.ErrInvalidSchedule)

	err = q.Enqueue(testAction("a2", "actor-1", 3, 0), 1)
	assert.ErrorIs(t, err, core.ErrInvalidSchedule)

	require.NoError(t, q.Enqueue(testAction("a3", "actor-1", 3, 1), 1))
	err = q.Enqueue(testAction("a3", "actor-1", 3, 1), 1)
	assert.ErrorIs(t, err, core.ErrInvalidSchedule)
}

func TestQueue_DueReturnsOnlyPending(t *testing.T) {
	q := New()
	require.NoError(t, q.Enqueue(testAction("a1", "actor-1", 3, 1), 1))
	require.NoError(t, q.Enqueue(testAction("a2", "actor-2", 3, 1), 1))
	require.NoError(t, q.Enqueue(testAction("a3", "actor-3", 4, 1), 1))
	require.NoError(t, q.Cancel("a2"))

	due := q.Due(3)
	require.Len(t, due, 1)
	assert.Equal(t, "a1", due[0].ID)

	// Mutating the returned clone must not leak into the queue.
	due[0].Status = core.ActionCompleted
	again := q.Due(3)
	require.Len(t, again, 1)
	assert.Equal(t, core.ActionPending, again[0].Status)
}

func TestQueue_StatusGraph(t *testing.T) {
	q := New()
	require.NoError(t, q.Enqueue(testAction("a1", "actor-1", 2, 1), 1))

	// pending cannot jump straight to completed
	err := q.UpdateStatus("a1", core.ActionCompleted, nil)
	assert.ErrorIs(t, err, core.ErrInvalidTransition)

	require.NoError(t, q.UpdateStatus("a1", core.ActionExecuting, nil))
	outcome := &core.ActionOutcome{Outcome: core.OutcomeSuccess, Quality: core.QualityModest, Explanation: "done"}
	require.NoError(t, q.UpdateStatus("a1", core.ActionCompleted, outcome))

	a, err := q.Get("a1")
	require.NoError(t, err)
	assert.Equal(t, core.ActionCompleted, a.Status)
	assert.Equal(t, core.OutcomeSuccess, a.Outcome)
	assert.Equal(t, core.QualityModest, a.Quality)

	// repeating the same terminal update is idempotent
	assert.NoError(t, q.UpdateStatus("a1", core.ActionCompleted, outcome))

	// terminal states admit no further transitions
	err = q.UpdateStatus("a1", core.ActionExecuting, nil)
	assert.ErrorIs(t, err, core.ErrInvalidTransition)
}

func TestQueue_Cancel(t *testing.T) {
	q := New()
	require.NoError(t, q.Enqueue(testAction("a1", "actor-1", 2, 1), 1))
	require.NoError(t, q.Enqueue(testAction("a2", "actor-2", 2, 1), 1))
	require.NoError(t, q.UpdateStatus("a2", core.ActionExecuting, nil))

	require.NoError(t, q.Cancel("a1"))
	assert.NoError(t, q.Cancel("a1"), "second cancel is a no-op")

	err := q.Cancel("a2")
	assert.ErrorIs(t, err, core.ErrAlreadyExecuting)

	err = q.Cancel("missing")
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestQueue_HydrateRoundTrip(t *testing.T) {
	q := New()
	require.NoError(t, q.Enqueue(testAction("a1", "actor-1", 2, 1), 1))
	require.NoError(t, q.Enqueue(testAction("a2", "actor-2", 5, 3), 1))

	restored := Hydrate(q.Snapshot())
	assert.Len(t, restored.Snapshot(), 2)
	due := restored.Due(5)
	require.Len(t, due, 1)
	assert.Equal(t, "a2", due[0].ID)
}
