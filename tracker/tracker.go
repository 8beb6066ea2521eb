// Package tracker follows multi-round actions while they are in flight. A
// scheduled action with duration above one is promoted into the tracker at
// the round it begins executing and removed exactly once at its completion
// round.
package tracker

import (
	"fmt"
	"sync"

	"github.com/simforge/worldsim/core"
)

// Tracker holds at most one open active action per actor. Safe for
// concurrent access; returned records are clones.
type Tracker struct {
	mu   sync.RWMutex
	open map[string]*core.ActiveAction // keyed by actor id
}

// New constructs an empty tracker.
func New() *Tracker {
	return &Tracker{open: make(map[string]*core.ActiveAction)}
}

// Hydrate rebuilds a tracker from persisted active-action records.
func Hydrate(actions []*core.ActiveAction) *Tracker {
	t := New()
	for _, a := range actions {
		t.open[a.ActorID] = a.Clone()
	}
	return t
}

// Start promotes a scheduled action into an active action at the round it
// begins executing. It fails with ErrDuplicateActiveAction if the actor
// already has an open record.
func (t *Tracker) Start(a *core.ScheduledAction, round int) (*core.ActiveAction, error) {
	if a.Duration <= 1 {
		return nil, fmt.Errorf("%w: duration %d does not span rounds", core.ErrInvalidSchedule, a.Duration)
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if existing, ok := t.open[a.ActorID]; ok {
		return nil, fmt.Errorf("%w: actor %s started round %d", core.ErrDuplicateActiveAction, a.ActorID, existing.StartedRound)
	}
	active := &core.ActiveAction{
		ActorID:        a.ActorID,
		ActionID:       a.ID,
		Action:         a.Action,
		Reasoning:      a.Reasoning,
		StartedRound:   round,
		Duration:       a.Duration,
		CompletesRound: round + a.Duration,
		Seed:           a.Seed,
	}
	t.open[a.ActorID] = active
	return active.Clone(), nil
}

// Put inserts a staged record unconditionally, overwriting any open record
// for the actor. It is the commit-time application path; Start performs the
// validation.
func (t *Tracker) Put(a *core.ActiveAction) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.open[a.ActorID] = a.Clone()
}

// DueCompletions returns all active actions whose completion round is the
// given round.
func (t *Tracker) DueCompletions(round int) []*core.ActiveAction {
	t.mu.RLock()
	defer t.mu.RUnlock()
	var due []*core.ActiveAction
	for _, a := range t.open {
		if a.CompletesRound == round {
			due = append(due, a.Clone())
		}
	}
	return due
}

// Open returns the actor's open active action, if any.
func (t *Tracker) Open(actorID string) (*core.ActiveAction, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	a, ok := t.open[actorID]
	if !ok {
		return nil, false
	}
	return a.Clone(), true
}

// Complete removes the record for (actorID, startedRound) and returns it for
// outcome finalization. It fails with ErrNotFound if absent: completion is
// deliberately non-idempotent so a double completion surfaces as a bug
// instead of being silently ignored.
func (t *Tracker) Complete(actorID string, startedRound int) (*core.ActiveAction, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	a, ok := t.open[actorID]
	if !ok || a.StartedRound != startedRound {
		return nil, fmt.Errorf("%w: no active action for actor %s started round %d", core.ErrNotFound, actorID, startedRound)
	}
	delete(t.open, actorID)
	return a, nil
}

// Snapshot returns clones of every open record.
func (t *Tracker) Snapshot() []*core.ActiveAction {
	t.mu.RLock()
	defer t.mu.RUnlock()
	actions := make([]*core.ActiveAction, 0, len(t.open))
	for _, a := range t.open {
		actions = append(actions, a.Clone())
	}
	return actions
}
