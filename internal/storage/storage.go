// Package storage persists coverage history in a local sqlite
// database.
package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"testpilot/internal/coverage"
)

const schema = `
CREATE TABLE IF NOT EXISTS coverage_history (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    recorded_at DATETIME NOT NULL,
    snapshot TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_coverage_history_recorded_at
    ON coverage_history(recorded_at);
`

// Store is a sqlite-backed implementation of coverage.Persister.
type Store struct {
	db *sql.DB
}

// Open creates or opens the database at path, initializing the schema.
// The special path ":memory:" creates an in-memory database for tests.
func Open(path string) (*Store, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("creating storage directory: %w", err)
		}
	}

	// WAL mode for better concurrency between the watcher loop and
	// one-shot CLI invocations.
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("initializing schema: %w", err)
	}

	return &Store{db: db}, nil
}

// AppendEntry inserts a coverage entry and evicts the oldest rows so at
// most limit remain. Implements coverage.Persister.
func (s *Store) AppendEntry(ctx context.Context, entry coverage.Entry, limit int) error {
	blob, err := json.Marshal(entry.Snapshot)
	if err != nil {
		return fmt.Errorf("serializing snapshot: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx,
		"INSERT INTO coverage_history (recorded_at, snapshot) VALUES (?, ?)",
		entry.Timestamp.UTC(), string(blob),
	); err != nil {
		return fmt.Errorf("inserting coverage entry: %w", err)
	}

	if limit > 0 {
		if _, err := tx.ExecContext(ctx, `
			DELETE FROM coverage_history WHERE id NOT IN (
				SELECT id FROM coverage_history ORDER BY id DESC LIMIT ?
			)`, limit,
		); err != nil {
			return fmt.Errorf("evicting old coverage entries: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing coverage entry: %w", err)
	}
	return nil
}

// LoadEntries returns up to limit entries, oldest first. Implements
// coverage.Persister.
func (s *Store) LoadEntries(ctx context.Context, limit int) ([]coverage.Entry, error) {
	query := "SELECT recorded_at, snapshot FROM coverage_history ORDER BY id ASC"
	args := []interface{}{}
	if limit > 0 {
		// Keep the newest rows when over limit.
		query = `SELECT recorded_at, snapshot FROM (
			SELECT id, recorded_at, snapshot FROM coverage_history
			ORDER BY id DESC LIMIT ?
		) ORDER BY id ASC`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying coverage history: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var entries []coverage.Entry
	for rows.Next() {
		var recordedAt time.Time
		var blob string
		if err := rows.Scan(&recordedAt, &blob); err != nil {
			return nil, fmt.Errorf("scanning coverage entry: %w", err)
		}

		var entry coverage.Entry
		entry.Timestamp = recordedAt
		if err := json.Unmarshal([]byte(blob), &entry.Snapshot); err != nil {
			return nil, fmt.Errorf("deserializing snapshot: %w", err)
		}
		entries = append(entries, entry)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating coverage history: %w", err)
	}
	return entries, nil
}

// Close releases the database handle.
func (s *Store) Close() error {
	return s.db.Close()
}
