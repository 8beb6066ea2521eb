// Package history keeps the append-only per-round, per-actor state
// snapshots, including each actor's private action history.
package history

import (
	"fmt"
	"sync"

	"github.com/simforge/worldsim/core"
)

// History stores actor states keyed by (round, actor). Snapshots are
// recorded once per round and never mutated afterwards; reads return deep
// clones.
type History struct {
	mu      sync.RWMutex
	byRound map[int]map[string]*core.ActorState
}

// New constructs an empty history.
func New() *History {
	return &History{byRound: make(map[int]map[string]*core.ActorState)}
}

// Record appends the snapshots for one round. Recording the same round
// twice fails: rounds are immutable once written.
func (h *History) Record(round int, states map[string]*core.ActorState) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, exists := h.byRound[round]; exists {
		return fmt.Errorf("%w: actor states for round %d already recorded", core.ErrInvalidTransition, round)
	}
	stored := make(map[string]*core.ActorState, len(states))
	for actorID, s := range states {
		stored[actorID] = s.Clone()
	}
	h.byRound[round] = stored
	return nil
}

// Put records a single actor's snapshot for a round (used during hydration).
func (h *History) Put(round int, state *core.ActorState) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.byRound[round]; !ok {
		h.byRound[round] = make(map[string]*core.ActorState)
	}
	h.byRound[round][state.ActorID] = state.Clone()
}

// State returns one actor's snapshot for a round, ErrNotFound if absent.
func (h *History) State(actorID string, round int) (*core.ActorState, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	states, ok := h.byRound[round]
	if !ok {
		return nil, fmt.Errorf("%w: no states for round %d", core.ErrNotFound, round)
	}
	s, ok := states[actorID]
	if !ok {
		return nil, fmt.Errorf("%w: actor %s in round %d", core.ErrNotFound, actorID, round)
	}
	return s.Clone(), nil
}

// StatesAt returns all snapshots recorded for a round (possibly empty).
func (h *History) StatesAt(round int) map[string]*core.ActorState {
	h.mu.RLock()
	defer h.mu.RUnlock()
	states := make(map[string]*core.ActorState, len(h.byRound[round]))
	for actorID, s := range h.byRound[round] {
		states[actorID] = s.Clone()
	}
	return states
}

// Latest returns the actor's most recent snapshot, if any.
func (h *History) Latest(actorID string) (*core.ActorState, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	var best *core.ActorState
	bestRound := -1
	for round, states := range h.byRound {
		if s, ok := states[actorID]; ok && round > bestRound {
			best, bestRound = s, round
		}
	}
	if best == nil {
		return nil, false
	}
	return best.Clone(), true
}
