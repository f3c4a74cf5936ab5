// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package history keeps a local record of submitted conversions in SQLite.
package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/pdiddy/rdfcsv/pkg/types"
)

const (
	dbFile = "history.db"

	// DefaultLimit is the number of entries List returns for limit <= 0.
	DefaultLimit = 20
)

// ErrDisabled is returned by Open when history is turned off.
var ErrDisabled = errors.New("history is disabled")

// Entry is one finished conversion.
type Entry struct {
	ID          string      `json:"id" yaml:"id"`
	SessionID   string      `json:"session_id,omitempty" yaml:"session_id,omitempty"`
	Source      string      `json:"source" yaml:"source"`
	State       types.State `json:"state" yaml:"state"`
	Attempts    int         `json:"attempts" yaml:"attempts"`
	ArchivePath string      `json:"archive_path,omitempty" yaml:"archive_path,omitempty"`
	Message     string      `json:"message,omitempty" yaml:"message,omitempty"`
	CreatedAt   time.Time   `json:"created_at" yaml:"created_at"`
	FinishedAt  time.Time   `json:"finished_at" yaml:"finished_at"`
}

// Store manages the history database.
type Store struct {
	db *sql.DB
}

// Open opens or creates {cfg.Dir}/history.db and its schema.
func Open(cfg types.HistoryConfig) (*Store, error) {
	if cfg.Disabled {
		return nil, ErrDisabled
	}
	dir := cfg.Dir
	if dir == "" {
		dir = types.DefaultClientConfig().History.Dir
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating history directory: %w", err)
	}

	dbPath := filepath.Join(dir, dbFile)
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Store{db: db}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return s, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS sessions (
			rowid INTEGER PRIMARY KEY AUTOINCREMENT,
			id TEXT NOT NULL UNIQUE,
			session_id TEXT,
			source TEXT NOT NULL,
			state TEXT NOT NULL,
			attempts INTEGER NOT NULL DEFAULT 0,
			archive_path TEXT,
			message TEXT,
			created_at TEXT,
			finished_at TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_sessions_finished ON sessions(finished_at)`,
	}
	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}
	return nil
}

// Record inserts e, or replaces the entry with the same ID. An empty ID is
// assigned a fresh UUID. The stored entry is returned.
func (s *Store) Record(ctx context.Context, e Entry) (Entry, error) {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO sessions (id, session_id, source, state, attempts, archive_path, message, created_at, finished_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			session_id = excluded.session_id,
			source = excluded.source,
			state = excluded.state,
			attempts = excluded.attempts,
			archive_path = excluded.archive_path,
			message = excluded.message,
			created_at = excluded.created_at,
			finished_at = excluded.finished_at`,
		e.ID, e.SessionID, e.Source, string(e.State), e.Attempts, e.ArchivePath, e.Message,
		formatTime(e.CreatedAt), formatTime(e.FinishedAt),
	)
	if err != nil {
		return Entry{}, fmt.Errorf("recording session %s: %w", e.ID, err)
	}
	return e, nil
}

// List returns up to limit entries, most recently finished first. A
// non-positive limit means DefaultLimit.
func (s *Store) List(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}
	return s.query(ctx, limit)
}

// All returns every entry, most recently finished first.
func (s *Store) All(ctx context.Context) ([]Entry, error) {
	// SQLite treats a negative LIMIT as no limit.
	return s.query(ctx, -1)
}

func (s *Store) query(ctx context.Context, limit int) ([]Entry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, session_id, source, state, attempts, archive_path, message, created_at, finished_at
		FROM sessions ORDER BY finished_at DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying history: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var (
			e                     Entry
			state                 string
			sessionID, archive    sql.NullString
			message               sql.NullString
			createdAt, finishedAt sql.NullString
		)
		if err := rows.Scan(&e.ID, &sessionID, &e.Source, &state, &e.Attempts,
			&archive, &message, &createdAt, &finishedAt); err != nil {
			return nil, fmt.Errorf("scanning history row: %w", err)
		}
		e.SessionID = sessionID.String
		e.State = types.State(state)
		e.ArchivePath = archive.String
		e.Message = message.String
		e.CreatedAt = parseTime(createdAt.String)
		e.FinishedAt = parseTime(finishedAt.String)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
