// Package trace is the scheduler's append-only execution trace: a
// SQLite-backed (modernc.org/sqlite, pure-Go, WAL mode) log of scan,
// dispatch, completion, and scoreboard-conflict events. Grounded on the
// teacher's internal/store.Store (schema-migration-on-open,
// database/sql access) and internal/audit.PDRWriter (SHA-256 hashing
// of an action's inputs for a reproducible record). This persists a
// record of what happened, not resumable scheduler state -- spec.md's
// "does not persist state across process restarts" non-goal is about
// the latter, not an audit log of the former.
package trace

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// Store is the SQLite-backed event log.
type Store struct {
	db *sql.DB
}

// New opens (creating if necessary) a trace database at dbPath and runs
// schema migration.
func New(dbPath string) (*Store, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("trace: create db directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath+"?_journal_mode=WAL&_busy_timeout=5000&_synchronous=NORMAL")
	if err != nil {
		return nil, fmt.Errorf("trace: open db: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("trace: migrate: %w", err)
	}
	return s, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping checks the database connection is alive.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) migrate() error {
	const schema = `
	CREATE TABLE IF NOT EXISTS events (
		id TEXT PRIMARY KEY,
		action TEXT NOT NULL,
		inputs_hash TEXT NOT NULL,
		fields TEXT,
		timestamp DATETIME NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_events_action ON events(action);
	CREATE INDEX IF NOT EXISTS idx_events_timestamp ON events(timestamp);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Record writes one event row, hashing fields for a reproducible
// record the way the teacher's audit.PDRWriter hashes an action's
// inputs.
func (s *Store) Record(action string, fields map[string]any) error {
	data, err := json.Marshal(fields)
	if err != nil {
		data = []byte("null")
	}
	sum := sha256.Sum256(data)

	_, err = s.db.Exec(
		`INSERT INTO events (id, action, inputs_hash, fields, timestamp) VALUES (?, ?, ?, ?, ?)`,
		uuid.New().String(), action, hex.EncodeToString(sum[:]), string(data), time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("trace: insert event: %w", err)
	}
	return nil
}

// RecentEvents returns the most recent n events, newest first.
func (s *Store) RecentEvents(n int) ([]Event, error) {
	rows, err := s.db.Query(
		`SELECT id, action, inputs_hash, fields, timestamp FROM events ORDER BY timestamp DESC LIMIT ?`,
		n,
	)
	if err != nil {
		return nil, fmt.Errorf("trace: query events: %w", err)
	}
	defer rows.Close()

	var out []Event
	for rows.Next() {
		var e Event
		var fields string
		if err := rows.Scan(&e.ID, &e.Action, &e.InputsHash, &fields, &e.Timestamp); err != nil {
			return nil, fmt.Errorf("trace: scan event: %w", err)
		}
		e.Fields = fields
		out = append(out, e)
	}
	return out, rows.Err()
}

// Event is one recorded trace row.
type Event struct {
	ID         string    `json:"id"`
	Action     string    `json:"action"`
	InputsHash string    `json:"inputs_hash"`
	Fields     string    `json:"fields"`
	Timestamp  time.Time `json:"timestamp"`
}

// Writer adapts a Store to the scheduler.Tracer contract
// (Event(action string, fields map[string]any)): the scheduler package
// only knows about that narrow interface, not about trace.Store, so
// scheduling logic never depends on SQLite.
type Writer struct {
	store *Store
}

// NewWriter creates a Writer backed by store. A nil store makes every
// Event call a no-op, matching "DebugPath disabled" from spec.md §6.
func NewWriter(store *Store) *Writer {
	return &Writer{store: store}
}

// Event implements scheduler.Tracer. Write failures are discarded rather
// than propagated: a broken trace log must never stall or abort the
// scheduler it is observing.
func (w *Writer) Event(action string, fields map[string]any) {
	if w == nil || w.store == nil {
		return
	}
	if err := w.store.Record(action, fields); err != nil {
		// Tracing is best-effort; a write failure here is never a
		// reason to disturb the scheduler it is observing.
		_ = err
	}
}
