// Package store provides implementations of the engine's persistence
// boundary. Memory is the default in-process store; the sqlite subpackage
// persists the same document shapes to disk.
package store

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/simforge/worldsim/core"
)

// Compile-time interface check.
var _ core.Store = (*Memory)(nil)

// Memory is a thread-safe in-memory document store keyed by simulation id,
// round number, and execution round. Every value crossing the boundary is
// cloned, so callers can never alias internal state.
type Memory struct {
	mu       sync.RWMutex
	sims     map[string]*core.Simulation
	actions  map[string]map[string]*core.ScheduledAction
	active   map[string]map[core.ActiveKey]*core.ActiveAction
	messages map[string]map[string]*core.Message
	rounds   map[string][]*core.Round
	states   map[string]map[int]map[string]*core.ActorState
}

// NewMemory constructs an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		sims:     make(map[string]*core.Simulation),
		actions:  make(map[string]map[string]*core.ScheduledAction),
		active:   make(map[string]map[core.ActiveKey]*core.ActiveAction),
		messages: make(map[string]map[string]*core.Message),
		rounds:   make(map[string][]*core.Round),
		states:   make(map[string]map[int]map[string]*core.ActorState),
	}
}

// CreateSimulation implements core.Store.
func (m *Memory) CreateSimulation(_ context.Context, sim *core.Simulation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.sims[sim.ID]; exists {
		return fmt.Errorf("simulation %s already exists", sim.ID)
	}
	m.sims[sim.ID] = sim.Clone()
	return nil
}

// Simulation implements core.Store.
func (m *Memory) Simulation(_ context.Context, id string) (*core.Simulation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	sim, ok := m.sims[id]
	if !ok {
		return nil, fmt.Errorf("%w: simulation %s", core.ErrNotFound, id)
	}
	return sim.Clone(), nil
}

// PutSimulation implements core.Store.
func (m *Memory) PutSimulation(_ context.Context, sim *core.Simulation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sims[sim.ID]; !ok {
		return fmt.Errorf("%w: simulation %s", core.ErrNotFound, sim.ID)
	}
	m.sims[sim.ID] = sim.Clone()
	return nil
}

// PutScheduledAction implements core.Store.
func (m *Memory) PutScheduledAction(_ context.Context, a *core.ScheduledAction) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.putAction(a)
	return nil
}

func (m *Memory) putAction(a *core.ScheduledAction) {
	byID, ok := m.actions[a.SimulationID]
	if !ok {
		byID = make(map[string]*core.ScheduledAction)
		m.actions[a.SimulationID] = byID
	}
	byID[a.ID] = a.Clone()
}

// ScheduledActions implements core.Store.
func (m *Memory) ScheduledActions(_ context.Context, simID string, round int) ([]*core.ScheduledAction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*core.ScheduledAction
	for _, a := range m.actions[simID] {
		if a.ScheduledRound == round {
			out = append(out, a.Clone())
		}
	}
	return out, nil
}

// AllScheduledActions implements core.Store.
func (m *Memory) AllScheduledActions(_ context.Context, simID string) ([]*core.ScheduledAction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*core.ScheduledAction, 0, len(m.actions[simID]))
	for _, a := range m.actions[simID] {
		out = append(out, a.Clone())
	}
	return out, nil
}

// ActiveActions implements core.Store.
func (m *Memory) ActiveActions(_ context.Context, simID string) ([]*core.ActiveAction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*core.ActiveAction, 0, len(m.active[simID]))
	for _, a := range m.active[simID] {
		out = append(out, a.Clone())
	}
	return out, nil
}

// Messages implements core.Store.
func (m *Memory) Messages(_ context.Context, simID string) ([]*core.Message, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*core.Message, 0, len(m.messages[simID]))
	for _, msg := range m.messages[simID] {
		out = append(out, msg.Clone())
	}
	return out, nil
}

// Rounds implements core.Store.
func (m *Memory) Rounds(_ context.Context, simID string) ([]*core.Round, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*core.Round, 0, len(m.rounds[simID]))
	for _, r := range m.rounds[simID] {
		out = append(out, r.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].RoundNumber < out[j].RoundNumber })
	return out, nil
}

// ActorState implements core.Store.
func (m *Memory) ActorState(_ context.Context, simID, actorID string, round int) (*core.ActorState, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.states[simID][round][actorID]
	if !ok {
		return nil, fmt.Errorf("%w: state for actor %s round %d", core.ErrNotFound, actorID, round)
	}
	return s.Clone(), nil
}

// ActorStates implements core.Store.
func (m *Memory) ActorStates(_ context.Context, simID string, round int) (map[string]*core.ActorState, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[string]*core.ActorState, len(m.states[simID][round]))
	for actorID, s := range m.states[simID][round] {
		out[actorID] = s.Clone()
	}
	return out, nil
}

// CommitRound implements core.Store. The whole commit applies under one
// lock hold: either every mutation lands or, on validation failure, none do.
func (m *Memory) CommitRound(_ context.Context, commit *core.RoundCommit) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	sim, ok := m.sims[commit.SimulationID]
	if !ok {
		return fmt.Errorf("%w: simulation %s", core.ErrNotFound, commit.SimulationID)
	}
	if commit.Round != nil {
		for _, r := range m.rounds[commit.SimulationID] {
			if r.RoundNumber == commit.Round.RoundNumber {
				return fmt.Errorf("%w: round %d already committed", core.ErrInvalidTransition, r.RoundNumber)
			}
		}
	}

	if commit.Round != nil {
		m.rounds[commit.SimulationID] = append(m.rounds[commit.SimulationID], commit.Round.Clone())
	}
	if len(commit.ActorStates) > 0 {
		byRound, ok := m.states[commit.SimulationID]
		if !ok {
			byRound = make(map[int]map[string]*core.ActorState)
			m.states[commit.SimulationID] = byRound
		}
		byActor := make(map[string]*core.ActorState, len(commit.ActorStates))
		for actorID, s := range commit.ActorStates {
			byActor[actorID] = s.Clone()
		}
		byRound[commit.CurrentRound] = byActor
	}
	for _, a := range commit.ActionUpdates {
		m.putAction(a)
	}
	for _, a := range commit.NewActions {
		m.putAction(a)
	}

	activeByKey, ok := m.active[commit.SimulationID]
	if !ok {
		activeByKey = make(map[core.ActiveKey]*core.ActiveAction)
		m.active[commit.SimulationID] = activeByKey
	}
	for _, k := range commit.ActiveCompletions {
		delete(activeByKey, k)
	}
	for _, a := range commit.ActiveStarts {
		activeByKey[core.ActiveKey{ActorID: a.ActorID, StartedRound: a.StartedRound}] = a.Clone()
	}

	msgs, ok := m.messages[commit.SimulationID]
	if !ok {
		msgs = make(map[string]*core.Message)
		m.messages[commit.SimulationID] = msgs
	}
	for _, id := range commit.DeliveredMessageIDs {
		delete(msgs, id)
	}
	for _, msg := range commit.NewMessages {
		msgs[msg.ID] = msg.Clone()
	}

	for _, id := range commit.EliminatedActorIDs {
		sim.Eliminate(id)
	}
	sim.Status = commit.Status
	sim.CurrentRound = commit.CurrentRound
	return nil
}
