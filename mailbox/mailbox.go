// Package mailbox holds inter-actor messages awaiting delivery at a future
// round. Messages leave the store the instant they are delivered; the
// recipient keeps a value copy in its state snapshot.
package mailbox

import (
	"fmt"
	"sync"

	"github.com/simforge/worldsim/core"
)

// Mailbox is the message deferral store, a multi-map from delivery round to
// insertion-ordered messages. Safe for concurrent access.
type Mailbox struct {
	mu      sync.RWMutex
	byRound map[int][]*core.Message
}

// New constructs an empty mailbox.
func New() *Mailbox {
	return &Mailbox{byRound: make(map[int][]*core.Message)}
}

// Hydrate rebuilds a mailbox from persisted undelivered messages.
func Hydrate(msgs []*core.Message) *Mailbox {
	m := New()
	for _, msg := range msgs {
		m.byRound[msg.DeliverRound] = append(m.byRound[msg.DeliverRound], msg.Clone())
	}
	return m
}

// Enqueue adds a message awaiting its delivery round. It fails with
// ErrInvalidDelivery if the delivery round precedes the sent round.
func (m *Mailbox) Enqueue(msg *core.Message) error {
	if msg.DeliverRound < msg.SentRound {
		return fmt.Errorf("%w: deliver round %d before sent round %d", core.ErrInvalidDelivery, msg.DeliverRound, msg.SentRound)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.byRound[msg.DeliverRound] = append(m.byRound[msg.DeliverRound], msg.Clone())
	return nil
}

// Due returns clones of the messages deliverable at the given round without
// removing them. The round processor peeks while staging and drains only at
// commit, so an aborted round redelivers on retry.
func (m *Mailbox) Due(round int) []*core.Message {
	m.mu.RLock()
	defer m.mu.RUnlock()
	due := make([]*core.Message, 0, len(m.byRound[round]))
	for _, msg := range m.byRound[round] {
		due = append(due, msg.Clone())
	}
	return due
}

// Drain removes and returns all messages deliverable at the given round.
// Under the per-simulation resolution lock each message is returned exactly
// once across its lifetime.
func (m *Mailbox) Drain(round int) []*core.Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	due := m.byRound[round]
	delete(m.byRound, round)
	return due
}

// Snapshot returns clones of every undelivered message.
func (m *Mailbox) Snapshot() []*core.Message {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var msgs []*core.Message
	for _, batch := range m.byRound {
		for _, msg := range batch {
			msgs = append(msgs, msg.Clone())
		}
	}
	return msgs
}
