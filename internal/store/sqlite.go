// Package store provides SQLite-backed persistence for pages, blocks,
// page visits, calendars and synced events.
package store

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
)

// ErrNotFound is returned when a record does not exist.
var ErrNotFound = errors.New("not found")

const schema = `
CREATE TABLE IF NOT EXISTS pages (
    id           TEXT PRIMARY KEY,
    user_id      TEXT NOT NULL,
    title        TEXT NOT NULL,
    description  TEXT NOT NULL DEFAULT '',
    icon         TEXT NOT NULL DEFAULT '',
    cover_image  TEXT NOT NULL DEFAULT '',
    content      TEXT NOT NULL DEFAULT '',
    is_favorite  INTEGER NOT NULL DEFAULT 0,
    created_at   INTEGER NOT NULL,
    updated_at   INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_pages_user ON pages(user_id, created_at);

CREATE TABLE IF NOT EXISTS blocks (
    id        TEXT PRIMARY KEY,
    page_id   TEXT NOT NULL REFERENCES pages(id) ON DELETE CASCADE,
    type      TEXT NOT NULL,
    content   TEXT NOT NULL,
    ord       REAL NOT NULL,
    metadata  TEXT
);

CREATE INDEX IF NOT EXISTS idx_blocks_page ON blocks(page_id, ord);

CREATE TABLE IF NOT EXISTS page_visits (
    id          INTEGER PRIMARY KEY AUTOINCREMENT,
    page_id     TEXT NOT NULL REFERENCES pages(id) ON DELETE CASCADE,
    user_id     TEXT NOT NULL,
    visited_at  INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_page_visits_user ON page_visits(user_id, visited_at);

CREATE TABLE IF NOT EXISTS calendars (
    id           TEXT PRIMARY KEY,
    user_id      TEXT NOT NULL,
    name         TEXT NOT NULL,
    ical_url     TEXT NOT NULL,
    color        TEXT NOT NULL DEFAULT '',
    last_synced  INTEGER NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_calendars_user ON calendars(user_id);

CREATE TABLE IF NOT EXISTS events (
    id           TEXT PRIMARY KEY,
    calendar_id  TEXT NOT NULL REFERENCES calendars(id) ON DELETE CASCADE,
    uid          TEXT NOT NULL DEFAULT '',
    title        TEXT NOT NULL,
    description  TEXT NOT NULL DEFAULT '',
    location     TEXT NOT NULL DEFAULT '',
    url          TEXT NOT NULL DEFAULT '',
    start_ms     INTEGER NOT NULL,
    end_ms       INTEGER NOT NULL,
    all_day      INTEGER NOT NULL DEFAULT 0,
    last_synced  INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_events_calendar ON events(calendar_id);
CREATE INDEX IF NOT EXISTS idx_events_start ON events(start_ms);
`

// Store wraps the SQLite database.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// Open opens or creates the SQLite database at the given path and applies
// the schema.
func Open(path string) (*Store, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	db, err := sql.Open("sqlite3", path+"?_foreign_keys=on&_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	return &Store{db: db, now: time.Now}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func (s *Store) nowMs() int64 {
	return s.now().UnixMilli()
}

func newID() string {
	return uuid.NewString()
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// withTx runs fn in a transaction, rolling back on error.
func (s *Store) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}
