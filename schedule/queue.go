// Package schedule implements the action queue: an ordered-by-round store of
// scheduled actions supporting enqueue, due-lookup, status update, and
// cancellation. Records are never deleted; they transition through the
// monotonic status graph and remain as the audit trail.
package schedule

import (
	"fmt"
	"sync"

	"github.com/simforge/worldsim/core"
)

// Queue holds scheduled actions in a multi-map from round number to an
// insertion-ordered set of records. Round numbers are first-class integers,
// never serialized keys. Safe for concurrent access; every returned action
// is a clone so callers cannot mutate internal state.
type Queue struct {
	mu      sync.RWMutex
	byRound map[int][]*core.ScheduledAction
	byID    map[string]*core.ScheduledAction
}

// New constructs an empty queue.
func New() *Queue {
	return &Queue{
		byRound: make(map[int][]*core.ScheduledAction),
		byID:    make(map[string]*core.ScheduledAction),
	}
}

// Hydrate rebuilds a queue from persisted action records.
func Hydrate(actions []*core.ScheduledAction) *Queue {
	q := New()
	for _, a := range actions {
		q.insert(a.Clone())
	}
	return q
}

func (q *Queue) insert(a *core.ScheduledAction) {
	q.byRound[a.ScheduledRound] = append(q.byRound[a.ScheduledRound], a)
	q.byID[a.ID] = a
}

// Enqueue adds a pending action. It fails with ErrInvalidSchedule if the
// action targets a round before currentRound or has a duration below one.
func (q *Queue) Enqueue(a *core.ScheduledAction, currentRound int) error {
	if a.ScheduledRound < currentRound {
		return fmt.Errorf("%w: round %d is before current round %d", core.ErrInvalidSchedule, a.ScheduledRound, currentRound)
	}
	if a.Duration < 1 {
		return fmt.Errorf("%w: duration %d must be at least 1", core.ErrInvalidSchedule, a.Duration)
	}
	if a.ScheduledRound < a.ScheduledAtRound {
		return fmt.Errorf("%w: round %d precedes scheduling round %d", core.ErrInvalidSchedule, a.ScheduledRound, a.ScheduledAtRound)
	}

	q.mu.Lock()
	defer q.mu.Unlock()
	if _, exists := q.byID[a.ID]; exists {
		return fmt.Errorf("%w: action %s already enqueued", core.ErrInvalidSchedule, a.ID)
	}
	c := a.Clone()
	c.Status = core.ActionPending
	q.insert(c)
	return nil
}

// Due returns all pending actions scheduled for the given round. Execution
// order across actors within a round carries no ordering guarantee.
func (q *Queue) Due(round int) []*core.ScheduledAction {
	q.mu.RLock()
	defer q.mu.RUnlock()
	var due []*core.ScheduledAction
	for _, a := range q.byRound[round] {
		if a.Status == core.ActionPending {
			due = append(due, a.Clone())
		}
	}
	return due
}

// ByRound returns every action scheduled for the round, regardless of status.
func (q *Queue) ByRound(round int) []*core.ScheduledAction {
	q.mu.RLock()
	defer q.mu.RUnlock()
	actions := make([]*core.ScheduledAction, 0, len(q.byRound[round]))
	for _, a := range q.byRound[round] {
		actions = append(actions, a.Clone())
	}
	return actions
}

// Get returns the action with the given id, ErrNotFound if absent.
func (q *Queue) Get(id string) (*core.ScheduledAction, error) {
	q.mu.RLock()
	defer q.mu.RUnlock()
	a, ok := q.byID[id]
	if !ok {
		return nil, fmt.Errorf("%w: action %s", core.ErrNotFound, id)
	}
	return a.Clone(), nil
}

// UpdateStatus transitions an action along the monotonic status graph,
// attaching the outcome on completion. A repeated update to the same
// terminal status succeeds idempotently; any other violation fails with
// ErrInvalidTransition.
func (q *Queue) UpdateStatus(id string, status core.ActionStatus, outcome *core.ActionOutcome) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	a, ok := q.byID[id]
	if !ok {
		return fmt.Errorf("%w: action %s", core.ErrNotFound, id)
	}
	if a.Status == status && status.Terminal() {
		return nil
	}
	if !core.ValidTransition(a.Status, status) {
		return fmt.Errorf("%w: %s → %s for action %s", core.ErrInvalidTransition, a.Status, status, id)
	}
	a.Status = status
	if outcome != nil {
		a.Outcome = outcome.Outcome
		a.Quality = outcome.Quality
		a.Explanation = outcome.Explanation
	}
	return nil
}

// Cancel transitions a pending action to cancelled. Cancelling an already
// cancelled action succeeds idempotently; an executing or completed action
// fails with ErrAlreadyExecuting.
func (q *Queue) Cancel(id string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	a, ok := q.byID[id]
	if !ok {
		return fmt.Errorf("%w: action %s", core.ErrNotFound, id)
	}
	switch a.Status {
	case core.ActionCancelled:
		return nil
	case core.ActionExecuting, core.ActionCompleted:
		return fmt.Errorf("%w: action %s is %s", core.ErrAlreadyExecuting, id, a.Status)
	}
	a.Status = core.ActionCancelled
	return nil
}

// Put inserts or overwrites a record unconditionally. It is the commit-time
// application path: the staged record already passed transition validation,
// so Put performs none.
func (q *Queue) Put(a *core.ScheduledAction) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if existing, ok := q.byID[a.ID]; ok {
		*existing = *a.Clone()
		return
	}
	q.insert(a.Clone())
}

// Snapshot returns clones of every action, in no particular order.
func (q *Queue) Snapshot() []*core.ScheduledAction {
	q.mu.RLock()
	defer q.mu.RUnlock()
	actions := make([]*core.ScheduledAction, 0, len(q.byID))
	for _, a := range q.byID {
		actions = append(actions, a.Clone())
	}
	return actions
}
