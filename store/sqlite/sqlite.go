// Package sqlite persists simulations to a SQLite database. Records are
// stored as JSON documents with the lookup keys lifted into indexed columns,
// and a round commit is applied inside a single transaction.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/simforge/worldsim/core"
	_ "modernc.org/sqlite"
)

// Compile-time interface check.
var _ core.Store = (*Store)(nil)

const schema = `
CREATE TABLE IF NOT EXISTS simulations (
	id            TEXT PRIMARY KEY,
	status        TEXT NOT NULL,
	current_round INTEGER NOT NULL,
	doc           TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS rounds (
	sim_id       TEXT NOT NULL,
	round_number INTEGER NOT NULL,
	doc          TEXT NOT NULL,
	PRIMARY KEY (sim_id, round_number)
);
CREATE TABLE IF NOT EXISTS actions (
	id              TEXT PRIMARY KEY,
	sim_id          TEXT NOT NULL,
	scheduled_round INTEGER NOT NULL,
	doc             TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_actions_round ON actions (sim_id, scheduled_round);
CREATE TABLE IF NOT EXISTS active_actions (
	sim_id        TEXT NOT NULL,
	actor_id      TEXT NOT NULL,
	started_round INTEGER NOT NULL,
	doc           TEXT NOT NULL,
	PRIMARY KEY (sim_id, actor_id, started_round)
);
CREATE TABLE IF NOT EXISTS messages (
	id            TEXT PRIMARY KEY,
	sim_id        TEXT NOT NULL,
	deliver_round INTEGER NOT NULL,
	doc           TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_messages_sim ON messages (sim_id);
CREATE TABLE IF NOT EXISTS actor_states (
	sim_id       TEXT NOT NULL,
	round_number INTEGER NOT NULL,
	actor_id     TEXT NOT NULL,
	doc          TEXT NOT NULL,
	PRIMARY KEY (sim_id, round_number, actor_id)
);
`

// Store is a SQLite-backed implementation of core.Store.
type Store struct {
	db *sql.DB
}

// Open opens (and if needed creates) the database at path. Use ":memory:"
// for an ephemeral database.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// The driver serializes access itself, but a single connection keeps
	// transactions from contending over the file lock.
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error { return s.db.Close() }

// CreateSimulation implements core.Store.
func (s *Store) CreateSimulation(ctx context.Context, sim *core.Simulation) error {
	doc, err := json.Marshal(sim)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO simulations (id, status, current_round, doc) VALUES (?, ?, ?, ?)`,
		sim.ID, string(sim.Status), sim.CurrentRound, doc)
	if err != nil {
		return fmt.Errorf("create simulation %s: %w", sim.ID, err)
	}
	return nil
}

// Simulation implements core.Store.
func (s *Store) Simulation(ctx context.Context, id string) (*core.Simulation, error) {
	var doc []byte
	err := s.db.QueryRowContext(ctx, `SELECT doc FROM simulations WHERE id = ?`, id).Scan(&doc)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: simulation %s", core.ErrNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	var sim core.Simulation
	if err := json.Unmarshal(doc, &sim); err != nil {
		return nil, fmt.Errorf("decode simulation %s: %w", id, err)
	}
	return &sim, nil
}

// PutSimulation implements core.Store.
func (s *Store) PutSimulation(ctx context.Context, sim *core.Simulation) error {
	doc, err := json.Marshal(sim)
	if err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE simulations SET status = ?, current_round = ?, doc = ? WHERE id = ?`,
		string(sim.Status), sim.CurrentRound, doc, sim.ID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: simulation %s", core.ErrNotFound, sim.ID)
	}
	return nil
}

// PutScheduledAction implements core.Store.
func (s *Store) PutScheduledAction(ctx context.Context, a *core.ScheduledAction) error {
	return putAction(ctx, s.db, a)
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func putAction(ctx context.Context, db execer, a *core.ScheduledAction) error {
	doc, err := json.Marshal(a)
	if err != nil {
		return err
	}
	_, err = db.ExecContext(ctx,
		`INSERT INTO actions (id, sim_id, scheduled_round, doc) VALUES (?, ?, ?, ?)
		 ON CONFLICT (id) DO UPDATE SET scheduled_round = excluded.scheduled_round, doc = excluded.doc`,
		a.ID, a.SimulationID, a.ScheduledRound, doc)
	return err
}

// ScheduledActions implements core.Store.
func (s *Store) ScheduledActions(ctx context.Context, simID string, round int) ([]*core.ScheduledAction, error) {
	return scanDocs[core.ScheduledAction](ctx, s.db,
		`SELECT doc FROM actions WHERE sim_id = ? AND scheduled_round = ?`, simID, round)
}

// AllScheduledActions implements core.Store.
func (s *Store) AllScheduledActions(ctx context.Context, simID string) ([]*core.ScheduledAction, error) {
	return scanDocs[core.ScheduledAction](ctx, s.db,
		`SELECT doc FROM actions WHERE sim_id = ?`, simID)
}

// ActiveActions implements core.Store.
func (s *Store) ActiveActions(ctx context.Context, simID string) ([]*core.ActiveAction, error) {
	return scanDocs[core.ActiveAction](ctx, s.db,
		`SELECT doc FROM active_actions WHERE sim_id = ?`, simID)
}

// Messages implements core.Store.
func (s *Store) Messages(ctx context.Context, simID string) ([]*core.Message, error) {
	return scanDocs[core.Message](ctx, s.db,
		`SELECT doc FROM messages WHERE sim_id = ?`, simID)
}

// Rounds implements core.Store.
func (s *Store) Rounds(ctx context.Context, simID string) ([]*core.Round, error) {
	return scanDocs[core.Round](ctx, s.db,
		`SELECT doc FROM rounds WHERE sim_id = ? ORDER BY round_number`, simID)
}

// ActorState implements core.Store.
func (s *Store) ActorState(ctx context.Context, simID, actorID string, round int) (*core.ActorState, error) {
	var doc []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT doc FROM actor_states WHERE sim_id = ? AND round_number = ? AND actor_id = ?`,
		simID, round, actorID).Scan(&doc)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: state for actor %s round %d", core.ErrNotFound, actorID, round)
	}
	if err != nil {
		return nil, err
	}
	var state core.ActorState
	if err := json.Unmarshal(doc, &state); err != nil {
		return nil, err
	}
	return &state, nil
}

// ActorStates implements core.Store.
func (s *Store) ActorStates(ctx context.Context, simID string, round int) (map[string]*core.ActorState, error) {
	states, err := scanDocs[core.ActorState](ctx, s.db,
		`SELECT doc FROM actor_states WHERE sim_id = ? AND round_number = ?`, simID, round)
	if err != nil {
		return nil, err
	}
	out := make(map[string]*core.ActorState, len(states))
	for _, st := range states {
		out[st.ActorID] = st
	}
	return out, nil
}

// CommitRound implements core.Store: the whole commit lands in a single
// transaction, so a failed commit leaves the database at the previous round.
func (s *Store) CommitRound(ctx context.Context, commit *core.RoundCommit) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if commit.Round != nil {
		doc, err := json.Marshal(commit.Round)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO rounds (sim_id, round_number, doc) VALUES (?, ?, ?)`,
			commit.SimulationID, commit.Round.RoundNumber, doc); err != nil {
			return fmt.Errorf("%w: round %d already committed", core.ErrInvalidTransition, commit.Round.RoundNumber)
		}
	}

	for actorID, state := range commit.ActorStates {
		doc, err := json.Marshal(state)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO actor_states (sim_id, round_number, actor_id, doc) VALUES (?, ?, ?, ?)
			 ON CONFLICT (sim_id, round_number, actor_id) DO UPDATE SET doc = excluded.doc`,
			commit.SimulationID, commit.CurrentRound, actorID, doc); err != nil {
			return err
		}
	}

	for _, a := range commit.ActionUpdates {
		if err := putAction(ctx, tx, a); err != nil {
			return err
		}
	}
	for _, a := range commit.NewActions {
		if err := putAction(ctx, tx, a); err != nil {
			return err
		}
	}

	for _, k := range commit.ActiveCompletions {
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM active_actions WHERE sim_id = ? AND actor_id = ? AND started_round = ?`,
			commit.SimulationID, k.ActorID, k.StartedRound); err != nil {
			return err
		}
	}
	for _, a := range commit.ActiveStarts {
		doc, err := json.Marshal(a)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO active_actions (sim_id, actor_id, started_round, doc) VALUES (?, ?, ?, ?)`,
			commit.SimulationID, a.ActorID, a.StartedRound, doc); err != nil {
			return err
		}
	}

	for _, id := range commit.DeliveredMessageIDs {
		if _, err := tx.ExecContext(ctx, `DELETE FROM messages WHERE id = ?`, id); err != nil {
			return err
		}
	}
	for _, msg := range commit.NewMessages {
		doc, err := json.Marshal(msg)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO messages (id, sim_id, deliver_round, doc) VALUES (?, ?, ?, ?)`,
			msg.ID, msg.SimulationID, msg.DeliverRound, doc); err != nil {
			return err
		}
	}

	var simDoc []byte
	err = tx.QueryRowContext(ctx,
		`SELECT doc FROM simulations WHERE id = ?`, commit.SimulationID).Scan(&simDoc)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: simulation %s", core.ErrNotFound, commit.SimulationID)
	}
	if err != nil {
		return err
	}
	var sim core.Simulation
	if err := json.Unmarshal(simDoc, &sim); err != nil {
		return err
	}
	for _, id := range commit.EliminatedActorIDs {
		sim.Eliminate(id)
	}
	sim.Status = commit.Status
	sim.CurrentRound = commit.CurrentRound
	doc, err := json.Marshal(&sim)
	if err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE simulations SET status = ?, current_round = ?, doc = ? WHERE id = ?`,
		string(sim.Status), sim.CurrentRound, doc, sim.ID); err != nil {
		return err
	}

	return tx.Commit()
}

func scanDocs[T any](ctx context.Context, db *sql.DB, query string, args ...any) ([]*T, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*T
	for rows.Next() {
		var doc []byte
		if err := rows.Scan(&doc); err != nil {
			return nil, err
		}
		v := new(T)
		if err := json.Unmarshal(doc, v); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}
