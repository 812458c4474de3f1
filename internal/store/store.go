// Package store persists and fetches raw user-interaction records, keyed by
// user and session identifiers.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"replaylog/internal/event"
	"replaylog/internal/session"

	_ "modernc.org/sqlite" // CGO-free SQLite
)

// ErrStoreUnavailable wraps connectivity-level store failures. Callers may
// retry with backoff; this package does not.
var ErrStoreUnavailable = errors.New("event store unavailable")

// Store is a SQLite-backed event store. It implements session.Source.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the store at path.
func Open(path string) (*Store, error) {
	// WAL + busy timeout to avoid "database is locked". The modernc driver
	// takes pragmas via _pragma=name(value), not the mattn-style _journal_mode
	// form, which it would silently ignore.
	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %v", ErrStoreUnavailable, path, err)
	}

	if err := createTables(db); err != nil {
		db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

func createTables(db *sql.DB) error {
	_, err := db.Exec(`
	CREATE TABLE IF NOT EXISTS user_events(
	  id                  INTEGER PRIMARY KEY,
	  user_id             TEXT    NOT NULL,
	  session_id          TEXT    NOT NULL,
	  timestamp           INTEGER NOT NULL,
	  doc_id              TEXT    NOT NULL DEFAULT '',
	  event_type          TEXT    NOT NULL,
	  tag_name            TEXT    NOT NULL DEFAULT '',
	  text_content        TEXT    NOT NULL DEFAULT '',
	  event_source        TEXT    NOT NULL DEFAULT '',
	  offset_x            INTEGER NOT NULL DEFAULT 0,
	  offset_y            INTEGER NOT NULL DEFAULT 0,
	  interaction_context TEXT    NOT NULL DEFAULT ''
	);
	CREATE INDEX IF NOT EXISTS idx_user_events_session ON user_events(user_id, session_id, timestamp);
	CREATE INDEX IF NOT EXISTS idx_user_events_user_ts ON user_events(user_id, timestamp);
	`)
	if err != nil {
		return fmt.Errorf("%w: create tables: %v", ErrStoreUnavailable, err)
	}
	return nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// ValidateRecord checks the fields the store requires for a record to be
// addressable later. Unrecognized event types are accepted: they are tagged
// downstream, never dropped at ingest.
func (s *Store) ValidateRecord(rec event.RawRecord) error {
	if rec.SessionID == "" {
		return fmt.Errorf("session_id cannot be empty")
	}
	if rec.EventType == "" {
		return fmt.Errorf("event_type cannot be empty")
	}
	if rec.Timestamp <= 0 {
		return fmt.Errorf("timestamp must be positive")
	}
	return nil
}

// InsertEvents stores a batch of records for userID in one transaction.
func (s *Store) InsertEvents(ctx context.Context, userID string, records []event.RawRecord) error {
	if userID == "" {
		return fmt.Errorf("invalid record: user id cannot be empty")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: begin transaction: %v", ErrStoreUnavailable, err)
	}
	stmt, err := tx.PrepareContext(ctx, `INSERT INTO user_events(
		user_id, session_id, timestamp, doc_id, event_type, tag_name,
		text_content, event_source, offset_x, offset_y, interaction_context
	) VALUES(?,?,?,?,?,?,?,?,?,?,?)`)
	if err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("%w: prepare statement: %v", ErrStoreUnavailable, err)
	}
	defer stmt.Close()

	for _, rec := range records {
		if err := s.ValidateRecord(rec); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("invalid record: %w", err)
		}
		if _, err := stmt.ExecContext(ctx,
			userID, rec.SessionID, rec.Timestamp, rec.DocID, rec.EventType,
			rec.TagName, rec.TextContent, rec.EventSource,
			rec.OffsetX, rec.OffsetY, rec.InteractionContext,
		); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("%w: execute statement: %v", ErrStoreUnavailable, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: commit transaction: %v", ErrStoreUnavailable, err)
	}
	return nil
}

// ListSessions returns one row per session recorded for userID, most recent
// first. The task name is the first non-empty interaction context label seen
// in the session. A user with no events yields an empty result, not an error.
func (s *Store) ListSessions(ctx context.Context, userID string) ([]session.SummaryRow, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT e.session_id,
		       COALESCE((
		           SELECT interaction_context FROM user_events
		           WHERE user_id = e.user_id AND session_id = e.session_id
		                 AND interaction_context != ''
		           ORDER BY timestamp, id LIMIT 1
		       ), '') AS task_name
		FROM user_events e
		WHERE e.user_id = ?
		GROUP BY e.session_id
		ORDER BY MIN(e.timestamp) DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("%w: list sessions: %v", ErrStoreUnavailable, err)
	}
	defer rows.Close()

	var result []session.SummaryRow
	for rows.Next() {
		var row session.SummaryRow
		if err := rows.Scan(&row.SessionID, &row.TaskName); err != nil {
			return nil, fmt.Errorf("%w: scan session row: %v", ErrStoreUnavailable, err)
		}
		result = append(result, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterate sessions: %v", ErrStoreUnavailable, err)
	}
	return result, nil
}

// FetchEvents returns the raw records for one of userID's sessions in store
// order. An unknown user or session yields an empty result, not an error.
func (s *Store) FetchEvents(ctx context.Context, userID, sessionID string) ([]event.RawRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT session_id, timestamp, doc_id, event_type, tag_name,
		       text_content, event_source, offset_x, offset_y, interaction_context
		FROM user_events
		WHERE user_id = ? AND session_id = ?
		ORDER BY timestamp, id`, userID, sessionID)
	if err != nil {
		return nil, fmt.Errorf("%w: fetch events: %v", ErrStoreUnavailable, err)
	}
	defer rows.Close()

	var records []event.RawRecord
	for rows.Next() {
		var rec event.RawRecord
		if err := rows.Scan(
			&rec.SessionID, &rec.Timestamp, &rec.DocID, &rec.EventType,
			&rec.TagName, &rec.TextContent, &rec.EventSource,
			&rec.OffsetX, &rec.OffsetY, &rec.InteractionContext,
		); err != nil {
			return nil, fmt.Errorf("%w: scan event row: %v", ErrStoreUnavailable, err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterate events: %v", ErrStoreUnavailable, err)
	}
	return records, nil
}
