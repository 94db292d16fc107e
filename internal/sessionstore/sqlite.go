// Package sessionstore persists EditSession attempt history to SQLite,
// following the schema/migration style of the teacher's internal/session
// chat-history store.
package sessionstore

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS edit_sessions (
    id TEXT PRIMARY KEY,
    request TEXT NOT NULL,
    root TEXT NOT NULL,
    format TEXT NOT NULL,
    created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
    finished_at TIMESTAMP,
    final_state TEXT,
    applied_files TEXT
);

CREATE TABLE IF NOT EXISTS attempts (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    session_id TEXT NOT NULL REFERENCES edit_sessions(id) ON DELETE CASCADE,
    attempt_number INTEGER NOT NULL,
    response TEXT,
    report TEXT,
    failed_count INTEGER DEFAULT 0,
    created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_attempts_session_id ON attempts(session_id, attempt_number);
`

// Store persists edit sessions and their per-attempt reflection history.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) a SQLite-backed Store at path, applying
// the same WAL/busy-timeout pragmas the teacher uses for concurrent CLI
// access.
func Open(path string) (*Store, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("sessionstore: create data dir: %w", err)
		}
	}

	dsn := path + "?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("sessionstore: open: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("sessionstore: init schema: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// CreateSession records a new session row before the first attempt runs.
func (s *Store) CreateSession(id, request, root, format string) error {
	_, err := s.db.Exec(
		`INSERT INTO edit_sessions (id, request, root, format) VALUES (?, ?, ?, ?)`,
		id, request, root, format,
	)
	if err != nil {
		return fmt.Errorf("sessionstore: create session: %w", err)
	}
	return nil
}

// RecordAttempt appends one attempt's response and reflection report.
func (s *Store) RecordAttempt(sessionID string, attemptNumber int, response, report string, failedCount int) error {
	_, err := s.db.Exec(
		`INSERT INTO attempts (session_id, attempt_number, response, report, failed_count) VALUES (?, ?, ?, ?, ?)`,
		sessionID, attemptNumber, response, report, failedCount,
	)
	if err != nil {
		return fmt.Errorf("sessionstore: record attempt: %w", err)
	}
	return nil
}

// FinishSession records the terminal state and the comma-joined applied
// file list.
func (s *Store) FinishSession(sessionID, finalState, appliedFiles string) error {
	_, err := s.db.Exec(
		`UPDATE edit_sessions SET finished_at = ?, final_state = ?, applied_files = ? WHERE id = ?`,
		time.Now().UTC(), finalState, appliedFiles, sessionID,
	)
	if err != nil {
		return fmt.Errorf("sessionstore: finish session: %w", err)
	}
	return nil
}

// AttemptCount returns how many attempts a session has recorded. The
// session controller does not call it.
func (s *Store) AttemptCount(sessionID string) (int, error) {
	var n int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM attempts WHERE session_id = ?`, sessionID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("sessionstore: attempt count: %w", err)
	}
	return n, nil
}
