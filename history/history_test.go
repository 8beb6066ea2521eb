package history

import (
	"testing"

	"github.com/simforge/worldsim/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testStates(round int) map[string]*core.ActorState {
	return map[string]*core.ActorState{
		"actor-1": {ActorID: "actor-1", RoundNumber: round, WorldSummary: "calm", AvailableActions: []string{"wait"}},
		"actor-2": {ActorID: "actor-2", RoundNumber: round, WorldSummary: "calm"},
	}
}

func TestHistory_RecordOncePerRound(t *testing.T) {
	h := New()
	require.NoError(t, h.Record(1, testStates(1)))
	err := h.Record(1, testStates(1))
	assert.ErrorIs(t, err, core.ErrInvalidTransition)
}

func TestHistory_StateLookup(t *testing.T) {
	h := New()
	require.NoError(t, h.Record(1, testStates(1)))

	s, err := h.State("actor-1", 1)
	require.NoError(t, err)
	assert.Equal(t, "calm", s.WorldSummary)

	_, err = h.State("actor-3", 1)
	assert.ErrorIs(t, err, core.ErrNotFound)
	_, err = h.State("actor-1", 9)
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestHistory_SnapshotsAreImmutable(t *testing.T) {
	h := New()
	states := testStates(1)
	require.NoError(t, h.Record(1, states))

	// Mutating the caller's map after recording changes nothing.
	states["actor-1"].WorldSummary = "storm"

	s, err := h.State("actor-1", 1)
	require.NoError(t, err)
	assert.Equal(t, "calm", s.WorldSummary)

	// Mutating a returned snapshot changes nothing either.
	s.AvailableActions[0] = "run"
	again, err := h.State("actor-1", 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"wait"}, again.AvailableActions)
}

func TestHistory_Latest(t *testing.T) {
	h := New()
	require.NoError(t, h.Record(0, testStates(0)))
	require.NoError(t, h.Record(1, testStates(1)))
	require.NoError(t, h.Record(2, map[string]*core.ActorState{
		"actor-1": {ActorID: "actor-1", RoundNumber: 2, WorldSummary: "tense"},
	}))

	s, ok := h.Latest("actor-1")
	require.True(t, ok)
	assert.Equal(t, 2, s.RoundNumber)

	s, ok = h.Latest("actor-2")
	require.True(t, ok)
	assert.Equal(t, 1, s.RoundNumber)

	_, ok = h.Latest("actor-9")
	assert.False(t, ok)
}
