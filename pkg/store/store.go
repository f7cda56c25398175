// Package store persists finished live-session transcripts. The engine hands
// the caller a transcript on session end and persists nothing itself; this is
// the caller-side storage.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/vango-go/voice-lite/pkg/core"
	"github.com/vango-go/voice-lite/pkg/live"
)

const schema = `
CREATE TABLE IF NOT EXISTS sessions (
	id         TEXT PRIMARY KEY,
	title      TEXT NOT NULL,
	started_at INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS entries (
	session_id TEXT NOT NULL REFERENCES sessions(id),
	seq        INTEGER NOT NULL,
	role       TEXT NOT NULL,
	text       TEXT NOT NULL,
	at         INTEGER NOT NULL,
	PRIMARY KEY (session_id, seq)
);
`

// Session is one persisted transcript's header.
type Session struct {
	ID        string
	Title     string
	StartedAt time.Time
}

// Store is a SQLite-backed transcript archive.
type Store struct {
	db *sql.DB
}

// Open opens (and if needed initializes) the archive at path. Use ":memory:"
// for an ephemeral store.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open transcript store: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init transcript store: %w", err)
	}
	return &Store{db: db}, nil
}

// Close releases the database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// Save persists one finished transcript and returns its header. The title is
// the first utterance truncated to 30 characters, matching how sessions are
// listed in history.
func (s *Store) Save(ctx context.Context, entries []live.TranscriptEntry) (Session, error) {
	if len(entries) == 0 {
		return Session{}, core.NewInvalidRequestError("transcript must not be empty")
	}

	sess := Session{
		ID:        uuid.NewString(),
		Title:     titleFor(entries[0].Text),
		StartedAt: entries[0].Timestamp,
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Session{}, fmt.Errorf("save transcript: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO sessions (id, title, started_at) VALUES (?, ?, ?)`,
		sess.ID, sess.Title, sess.StartedAt.UnixMilli(),
	); err != nil {
		return Session{}, fmt.Errorf("save session: %w", err)
	}
	for i, entry := range entries {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO entries (session_id, seq, role, text, at) VALUES (?, ?, ?, ?, ?)`,
			sess.ID, i, string(entry.Role), entry.Text, entry.Timestamp.UnixMilli(),
		); err != nil {
			return Session{}, fmt.Errorf("save entry %d: %w", i, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return Session{}, fmt.Errorf("save transcript: %w", err)
	}
	return sess, nil
}

// List returns session headers, newest first.
func (s *Store) List(ctx context.Context) ([]Session, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, title, started_at FROM sessions ORDER BY started_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	var out []Session
	for rows.Next() {
		var sess Session
		var startedAt int64
		if err := rows.Scan(&sess.ID, &sess.Title, &startedAt); err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		sess.StartedAt = time.UnixMilli(startedAt)
		out = append(out, sess)
	}
	return out, rows.Err()
}

// Load returns one session's transcript in append order.
func (s *Store) Load(ctx context.Context, id string) ([]live.TranscriptEntry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT role, text, at FROM entries WHERE session_id = ? ORDER BY seq`, id)
	if err != nil {
		return nil, fmt.Errorf("load transcript: %w", err)
	}
	defer rows.Close()

	var out []live.TranscriptEntry
	for rows.Next() {
		var entry live.TranscriptEntry
		var role string
		var at int64
		if err := rows.Scan(&role, &entry.Text, &at); err != nil {
			return nil, fmt.Errorf("scan entry: %w", err)
		}
		entry.Role = live.Role(role)
		entry.Timestamp = time.UnixMilli(at)
		out = append(out, entry)
	}
	return out, rows.Err()
}

func titleFor(text string) string {
	text = strings.TrimSpace(text)
	if text == "" {
		return "Live Session"
	}
	runes := []rune(text)
	if len(runes) > 30 {
		return string(runes[:30])
	}
	return text
}
