// Package persistence defines the PersistenceAdapter boundary: how a run's
// events and final state are durably recorded, independent of any
// concrete store.
//
// Grounded on internal/storage/interfaces.go's small CRUD-shaped store
// interfaces plus the in-memory/SQL dual-implementation split of
// memory.go and cockroach.go, adapted from entity CRUD stores to an
// append-only event writer matching the swarm's event-sourced model (spec
// §3: "the event stream is the single source of truth").
package persistence

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/nexusswarm/swarm/internal/events"
)

// ErrRunNotFound is returned when a run ID has no recorded events.
var ErrRunNotFound = errors.New("run not found")

// Adapter persists a run's event stream and can replay it back.
type Adapter interface {
	AppendEvent(ctx context.Context, runID string, e events.Event) error
	LoadEvents(ctx context.Context, runID string) ([]events.Event, error)
}

// Nop is an Adapter that discards everything. It's the default when no
// persistence is configured (spec §6: persistence is optional).
type Nop struct{}

func (Nop) AppendEvent(ctx context.Context, runID string, e events.Event) error { return nil }

func (Nop) LoadEvents(ctx context.Context, runID string) ([]events.Event, error) {
	return nil, ErrRunNotFound
}

// InMemory is an Adapter backed by a process-local map, useful for tests
// and single-process deployments.
type InMemory struct {
	mu   sync.RWMutex
	runs map[string][]events.Event
}

// NewInMemory creates an empty InMemory adapter.
func NewInMemory() *InMemory {
	return &InMemory{runs: make(map[string][]events.Event)}
}

func (m *InMemory) AppendEvent(ctx context.Context, runID string, e events.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.runs[runID] = append(m.runs[runID], e)
	return nil
}

func (m *InMemory) LoadEvents(ctx context.Context, runID string) ([]events.Event, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	evs, ok := m.runs[runID]
	if !ok {
		return nil, ErrRunNotFound
	}
	out := make([]events.Event, len(evs))
	copy(out, evs)
	return out, nil
}

// SQL is an Adapter backed by any database/sql driver, appending events as
// JSON-encoded rows. Grounded on internal/storage/cockroach.go's direct
// database/sql usage (no ORM), generalized from a Postgres-specific DSN
// table layout to a driver-agnostic single-table schema:
//
//	CREATE TABLE swarm_events (
//	    run_id TEXT NOT NULL,
//	    seq    BIGINT NOT NULL,
//	    body   TEXT NOT NULL
//	);
type SQL struct {
	db *sql.DB
}

// NewSQL wraps an already-opened database handle. Schema creation is the
// caller's responsibility.
func NewSQL(db *sql.DB) *SQL {
	return &SQL{db: db}
}

func (s *SQL) AppendEvent(ctx context.Context, runID string, e events.Event) error {
	body, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO swarm_events (run_id, seq, body) VALUES (?, ?, ?)`,
		runID, e.Sequence, string(body),
	)
	if err != nil {
		return fmt.Errorf("insert event: %w", err)
	}
	return nil
}

func (s *SQL) LoadEvents(ctx context.Context, runID string) ([]events.Event, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT body FROM swarm_events WHERE run_id = ? ORDER BY seq ASC`, runID)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	var out []events.Event
	for rows.Next() {
		var body string
		if err := rows.Scan(&body); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		var e events.Event
		if err := json.Unmarshal([]byte(body), &e); err != nil {
			return nil, fmt.Errorf("unmarshal event: %w", err)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, ErrRunNotFound
	}
	return out, nil
}
