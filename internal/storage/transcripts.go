// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver
)

// MemoryPath opens a private in-memory database.
const MemoryPath = ":memory:"

// ErrEmptySession is returned when an entry has no session ID.
var ErrEmptySession = errors.New("storage: session id is required")

// =============================================================================
// TRANSCRIPT TYPES
// =============================================================================

// Entry is one command line executed by a session.
type Entry struct {
	ID        int64     `json:"id"`
	SessionID string    `json:"session_id"`
	Seq       int       `json:"seq"`
	Line      string    `json:"line"`
	Output    []string  `json:"output"`
	Cwd       string    `json:"cwd"`
	Failed    bool      `json:"failed"`
	CreatedAt time.Time `json:"created_at"`
}

// SessionSummary describes the stored transcript of one session.
type SessionSummary struct {
	SessionID string    `json:"session_id"`
	Lines     int       `json:"lines"`
	FirstAt   time.Time `json:"first_at"`
	LastAt    time.Time `json:"last_at"`
}

// =============================================================================
// TRANSCRIPT STORE
// =============================================================================

// TranscriptStore persists session transcripts in SQLite.
type TranscriptStore struct {
	db  *sql.DB
	now func() time.Time
}

// Open opens or creates the transcript database at path. Use MemoryPath for
// a throwaway store.
func Open(path string) (*TranscriptStore, error) {
	if path != MemoryPath {
		if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite has one writer; a single connection also keeps an in-memory
	// database alive for the life of the store.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA busy_timeout=5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to set pragma: %w", err)
		}
	}

	s := &TranscriptStore{db: db, now: time.Now}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return s, nil
}

func (s *TranscriptStore) initSchema() error {
	if _, err := s.db.Exec(Schema); err != nil {
		return err
	}
	_, err := s.db.Exec(InitMetadata)
	return err
}

// Close closes the database.
func (s *TranscriptStore) Close() error {
	return s.db.Close()
}

// =============================================================================
// WRITE OPERATIONS
// =============================================================================

// Append stores e as the next line of its session and returns it with ID,
// Seq and CreatedAt filled in.
func (s *TranscriptStore) Append(ctx context.Context, e Entry) (Entry, error) {
	if e.SessionID == "" {
		return Entry{}, ErrEmptySession
	}
	if e.Output == nil {
		e.Output = []string{}
	}
	output, err := json.Marshal(e.Output)
	if err != nil {
		return Entry{}, fmt.Errorf("failed to encode output: %w", err)
	}
	e.CreatedAt = s.now()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Entry{}, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	err = tx.QueryRowContext(ctx,
		"SELECT COALESCE(MAX(seq), 0) + 1 FROM transcript WHERE session_id = ?",
		e.SessionID,
	).Scan(&e.Seq)
	if err != nil {
		return Entry{}, fmt.Errorf("failed to allocate sequence: %w", err)
	}

	res, err := tx.ExecContext(ctx,
		`INSERT INTO transcript (session_id, seq, line, output, cwd, failed, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		e.SessionID, e.Seq, e.Line, string(output), e.Cwd, e.Failed, e.CreatedAt.UnixNano(),
	)
	if err != nil {
		return Entry{}, fmt.Errorf("failed to insert entry: %w", err)
	}
	if e.ID, err = res.LastInsertId(); err != nil {
		return Entry{}, fmt.Errorf("failed to read entry id: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return Entry{}, fmt.Errorf("failed to commit entry: %w", err)
	}
	return e, nil
}

// DeleteSession removes a session's transcript and returns how many lines
// were removed.
func (s *TranscriptStore) DeleteSession(ctx context.Context, sessionID string) (int64, error) {
	res, err := s.db.ExecContext(ctx, "DELETE FROM transcript WHERE session_id = ?", sessionID)
	if err != nil {
		return 0, fmt.Errorf("failed to delete session: %w", err)
	}
	return res.RowsAffected()
}

// Prune removes every line recorded before cutoff.
func (s *TranscriptStore) Prune(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, "DELETE FROM transcript WHERE created_at < ?", cutoff.UnixNano())
	if err != nil {
		return 0, fmt.Errorf("failed to prune transcripts: %w", err)
	}
	return res.RowsAffected()
}

// =============================================================================
// READ OPERATIONS
// =============================================================================

// History returns the most recent limit lines of a session in execution
// order. A limit of 0 or less returns everything.
func (s *TranscriptStore) History(ctx context.Context, sessionID string, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, session_id, seq, line, output, cwd, failed, created_at FROM (
		     SELECT * FROM transcript WHERE session_id = ? ORDER BY seq DESC LIMIT ?
		 ) ORDER BY seq ASC`,
		sessionID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query history: %w", err)
	}
	defer rows.Close()

	entries := []Entry{}
	for rows.Next() {
		var (
			e       Entry
			output  string
			created int64
		)
		if err := rows.Scan(&e.ID, &e.SessionID, &e.Seq, &e.Line, &output, &e.Cwd, &e.Failed, &created); err != nil {
			return nil, fmt.Errorf("failed to scan entry: %w", err)
		}
		if err := json.Unmarshal([]byte(output), &e.Output); err != nil {
			return nil, fmt.Errorf("failed to decode output of entry %d: %w", e.ID, err)
		}
		e.CreatedAt = time.Unix(0, created)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Sessions lists every session with a stored transcript, most recently
// active first.
func (s *TranscriptStore) Sessions(ctx context.Context) ([]SessionSummary, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT session_id, COUNT(*), MIN(created_at), MAX(created_at)
		 FROM transcript GROUP BY session_id ORDER BY MAX(created_at) DESC, session_id`,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query sessions: %w", err)
	}
	defer rows.Close()

	summaries := []SessionSummary{}
	for rows.Next() {
		var (
			sum         SessionSummary
			first, last int64
		)
		if err := rows.Scan(&sum.SessionID, &sum.Lines, &first, &last); err != nil {
			return nil, fmt.Errorf("failed to scan session: %w", err)
		}
		sum.FirstAt = time.Unix(0, first)
		sum.LastAt = time.Unix(0, last)
		summaries = append(summaries, sum)
	}
	return summaries, rows.Err()
}
