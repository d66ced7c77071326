package session

import (
	"context"
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite" // register pure-Go SQLite driver

	"github.com/hupe1980/knowledgenet/core"
)

// SQLiteStore persists transcripts in SQLite, one row per event in append order.
type SQLiteStore struct {
	db *sql.DB
}

var _ Store = (*SQLiteStore)(nil)

// NewSQLiteStore opens (or creates) the database at dsn, for example
// "file:transcripts.db" or ":memory:".
func NewSQLiteStore(ctx context.Context, dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// a single connection keeps ":memory:" databases shared and serializes writers
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	s := &SQLiteStore{db: db}
	if err := s.initialize(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	return s, nil
}

func (s *SQLiteStore) initialize(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS transcript_events (
		seq INTEGER PRIMARY KEY AUTOINCREMENT,
		session_id TEXT NOT NULL,
		event_type TEXT NOT NULL,
		payload TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_transcript_events_session ON transcript_events(session_id, seq);
	`
	_, err := s.db.ExecContext(ctx, schema)
	return err
}

// Append implements Store. All events of log are written in one transaction.
func (s *SQLiteStore) Append(ctx context.Context, sessionID string, log *core.ChatHistory) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO transcript_events (session_id, event_type, payload) VALUES (?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, e := range log.Events() {
		payload, err := core.MarshalEvent(e)
		if err != nil {
			return err
		}
		if _, err := stmt.ExecContext(ctx, sessionID, string(e.EventType()), string(payload)); err != nil {
			return fmt.Errorf("insert event: %w", err)
		}
	}
	return tx.Commit()
}

// Get implements Store.
func (s *SQLiteStore) Get(ctx context.Context, sessionID string) (*core.ChatHistory, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT payload FROM transcript_events WHERE session_id = ? ORDER BY seq`, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	h := core.NewChatHistory()
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, err
		}
		e, err := core.UnmarshalEvent([]byte(payload))
		if err != nil {
			return nil, fmt.Errorf("session %q: %w", sessionID, err)
		}
		h.Append(e)
	}
	return h, rows.Err()
}

// IDs implements Store.
func (s *SQLiteStore) IDs(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT DISTINCT session_id FROM transcript_events ORDER BY session_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ids := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// Delete implements Store.
func (s *SQLiteStore) Delete(ctx context.Context, sessionID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM transcript_events WHERE session_id = ?`, sessionID)
	return err
}

// Close closes the database.
func (s *SQLiteStore) Close() error { return s.db.Close() }
