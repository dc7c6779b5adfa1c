// Package repository archives finished conversations in SQLite.
package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/mateury/next-gen-consultant/internal/domain"
)

// SQLiteStore is an append-only archive of conversation transcripts.
// Live sessions are never loaded back from it.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens the archive at dsn and creates its tables.
func NewSQLiteStore(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// every connection to an in-memory database gets its own empty database
	if dsn == ":memory:" || strings.Contains(dsn, "mode=memory") {
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
	}

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	store := &SQLiteStore{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return store, nil
}

func (s *SQLiteStore) migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS transcripts (
			transcript_id TEXT PRIMARY KEY,
			session_id TEXT NOT NULL,
			reason TEXT NOT NULL,
			started_at DATETIME NOT NULL,
			ended_at DATETIME NOT NULL,
			total_messages INTEGER NOT NULL,
			user_messages INTEGER NOT NULL,
			ai_messages INTEGER NOT NULL,
			system_messages INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_transcripts_session ON transcripts(session_id, ended_at)`,
		`CREATE TABLE IF NOT EXISTS transcript_messages (
			transcript_id TEXT NOT NULL,
			seq INTEGER NOT NULL,
			role TEXT NOT NULL,
			content TEXT NOT NULL,
			PRIMARY KEY (transcript_id, seq),
			FOREIGN KEY (transcript_id) REFERENCES transcripts(transcript_id) ON DELETE CASCADE
		)`,
	}
	for _, m := range migrations {
		if _, err := s.db.Exec(m); err != nil {
			return err
		}
	}
	return nil
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// SaveTranscript stores t and its messages. An empty TranscriptID is filled in.
func (s *SQLiteStore) SaveTranscript(ctx context.Context, t *domain.Transcript) error {
	if t.TranscriptID == "" {
		t.TranscriptID = "tr_" + uuid.NewString()
	}
	if t.EndedAt.IsZero() {
		t.EndedAt = time.Now()
	}
	t.Stats = domain.CountStats(t.Messages)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO transcripts (transcript_id, session_id, reason, started_at, ended_at, total_messages, user_messages, ai_messages, system_messages)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.TranscriptID, t.SessionID, t.Reason, t.StartedAt.UTC(), t.EndedAt.UTC(),
		t.Stats.Total, t.Stats.User, t.Stats.Assistant, t.Stats.System)
	if err != nil {
		return fmt.Errorf("failed to insert transcript: %w", err)
	}

	for i, m := range t.Messages {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO transcript_messages (transcript_id, seq, role, content) VALUES (?, ?, ?, ?)`,
			t.TranscriptID, i, string(m.Role), m.Content); err != nil {
			return fmt.Errorf("failed to insert transcript message: %w", err)
		}
	}
	return tx.Commit()
}

// GetTranscript returns the transcript with its messages. An unknown id
// yields domain.ErrNotFound.
func (s *SQLiteStore) GetTranscript(ctx context.Context, transcriptID string) (*domain.Transcript, error) {
	var t domain.Transcript
	err := s.db.QueryRowContext(ctx,
		`SELECT transcript_id, session_id, reason, started_at, ended_at, total_messages, user_messages, ai_messages, system_messages
		 FROM transcripts WHERE transcript_id = ?`, transcriptID).
		Scan(&t.TranscriptID, &t.SessionID, &t.Reason, &t.StartedAt, &t.EndedAt,
			&t.Stats.Total, &t.Stats.User, &t.Stats.Assistant, &t.Stats.System)
	if err == sql.ErrNoRows {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT role, content FROM transcript_messages WHERE transcript_id = ? ORDER BY seq ASC`, transcriptID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var m domain.Message
		var role string
		if err := rows.Scan(&role, &m.Content); err != nil {
			return nil, err
		}
		m.Role = domain.Role(role)
		t.Messages = append(t.Messages, m)
	}
	return &t, rows.Err()
}

// ListTranscripts returns transcript summaries, newest first. A non-empty
// sessionID restricts the list to that session.
func (s *SQLiteStore) ListTranscripts(ctx context.Context, sessionID string, limit int) ([]domain.Transcript, error) {
	query := `SELECT transcript_id, session_id, reason, started_at, ended_at, total_messages, user_messages, ai_messages, system_messages FROM transcripts`
	var args []interface{}
	if sessionID != "" {
		query += ` WHERE session_id = ?`
		args = append(args, sessionID)
	}
	query += ` ORDER BY ended_at DESC, transcript_id ASC`
	if limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Transcript
	for rows.Next() {
		var t domain.Transcript
		if err := rows.Scan(&t.TranscriptID, &t.SessionID, &t.Reason, &t.StartedAt, &t.EndedAt,
			&t.Stats.Total, &t.Stats.User, &t.Stats.Assistant, &t.Stats.System); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}
