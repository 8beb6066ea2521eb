package mailbox

import (
	"testing"

	"github.com/simforge/worldsim/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testMessage(id string, sent, deliver int) *core.Message {
	return &core.Message{
		ID:           id,
		SimulationID: "sim-1",
		FromActorID:  "actor-1",
		ToActorID:    "actor-2",
		Content:      "meet at the crossroads",
		SentRound:    sent,
		DeliverRound: deliver,
	}
}

func TestMailbox_EnqueueRejectsPastDelivery(t *testing.T) {
	m := New()
	err := m.Enqueue(testMessage("m1", 5, 3))
	assert.ErrorIs(t, err, core.ErrInvalidDelivery)
}

func TestMailbox_DuePeeksWithoutRemoving(t *testing.T) {
	m := New()
	require.NoError(t, m.Enqueue(testMessage("m1", 2, 5)))
	require.NoError(t, m.Enqueue(testMessage("m2", 2, 5)))
	require.NoError(t, m.Enqueue(testMessage("m3", 2, 6)))

	due := m.Due(5)
	assert.Len(t, due, 2)
	// Peeking again yields the same messages: nothing was removed.
	assert.Len(t, m.Due(5), 2)

	// Mutating a peeked clone must not leak into the store.
	due[0].Content = "changed"
	assert.Equal(t, "meet at the crossroads", m.Due(5)[0].Content)
}

func TestMailbox_DrainExactlyOnce(t *testing.T) {
	m := New()
	require.NoError(t, m.Enqueue(testMessage("m1", 2, 5)))
	require.NoError(t, m.Enqueue(testMessage("m2", 2, 6)))

	drained := m.Drain(5)
	require.Len(t, drained, 1)
	assert.Equal(t, "m1", drained[0].ID)

	assert.Empty(t, m.Drain(5), "a second drain of the same round yields nothing")
	assert.Len(t, m.Snapshot(), 1, "later rounds remain queued")
}

func TestMailbox_SameRoundDeliveryAllowed(t *testing.T) {
	m := New()
	require.NoError(t, m.Enqueue(testMessage("m1", 4, 4)))
	assert.Len(t, m.Due(4), 1)
}

func TestMailbox_HydrateRoundTrip(t *testing.T) {
	m := New()
	require.NoError(t, m.Enqueue(testMessage("m1", 2, 5)))
	require.NoError(t, m.Enqueue(testMessage("m2", 3, 7)))

	restored := Hydrate(m.Snapshot())
	assert.Len(t, restored.Snapshot(), 2)
	assert.Len(t, restored.Due(7), 1)
}
