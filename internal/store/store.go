// Package store implements Postgres persistence: workflow checkpoints keyed
// by thread id, and the thread bookkeeping rows behind the HTTP surface.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	_ "github.com/lib/pq"

	"github.com/mohammad-safakhou/stockpilot/internal/workflow"
)

type Store struct {
	DB *sql.DB
}

// New connects using DATABASE_URL or the POSTGRES_* environment variables.
func New(ctx context.Context) (*Store, error) {
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		host := getenvDefault("POSTGRES_HOST", "localhost")
		port := getenvDefault("POSTGRES_PORT", "5432")
		user := os.Getenv("POSTGRES_USER")
		pass := os.Getenv("POSTGRES_PASSWORD")
		db := os.Getenv("POSTGRES_DB")
		ssl := getenvDefault("POSTGRES_SSLMODE", "disable")
		dsn = fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s", user, pass, host, port, db, ssl)
	}
	return NewWithDSN(ctx, dsn)
}

// NewWithDSN constructs the Store using an explicit Postgres DSN.
func NewWithDSN(ctx context.Context, dsn string) (*Store, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		return nil, err
	}
	return &Store{DB: db}, nil
}

func getenvDefault(k, def string) string {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	return v
}

// Load implements workflow.CheckpointStore.
func (s *Store) Load(ctx context.Context, threadID string) (*workflow.State, bool, error) {
	var payload []byte
	err := s.DB.QueryRowContext(ctx, `SELECT state FROM checkpoints WHERE thread_id=$1`, threadID).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	var state workflow.State
	if err := json.Unmarshal(payload, &state); err != nil {
		return nil, false, fmt.Errorf("decode checkpoint for %s: %w", threadID, err)
	}
	return &state, true, nil
}

// Save implements workflow.CheckpointStore with an upsert so every step
// boundary overwrites the previous checkpoint.
func (s *Store) Save(ctx context.Context, threadID string, state *workflow.State) error {
	payload, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("encode checkpoint for %s: %w", threadID, err)
	}
	_, err = s.DB.ExecContext(ctx, `
INSERT INTO checkpoints (thread_id, state, updated_at) VALUES ($1,$2,NOW())
ON CONFLICT (thread_id) DO UPDATE SET state=EXCLUDED.state, updated_at=NOW()
`, threadID, payload)
	return err
}

// Purge implements workflow.CheckpointStore.
func (s *Store) Purge(ctx context.Context, threadID string) error {
	_, err := s.DB.ExecContext(ctx, `DELETE FROM checkpoints WHERE thread_id=$1`, threadID)
	return err
}

// Thread is one conversation's bookkeeping row.
type Thread struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ListThreads returns all threads, newest activity first.
func (s *Store) ListThreads(ctx context.Context) ([]Thread, error) {
	rows, err := s.DB.QueryContext(ctx, `SELECT id, title, updated_at FROM threads ORDER BY updated_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Thread
	for rows.Next() {
		var t Thread
		if err := rows.Scan(&t.ID, &t.Title, &t.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// EnsureThread creates the thread row on first contact, deriving the title
// from the opening query, or bumps updated_at on later runs.
func (s *Store) EnsureThread(ctx context.Context, threadID, firstQuery string) error {
	var title string
	err := s.DB.QueryRowContext(ctx, `SELECT title FROM threads WHERE id=$1`, threadID).Scan(&title)
	if errors.Is(err, sql.ErrNoRows) {
		_, err = s.DB.ExecContext(ctx,
			`INSERT INTO threads (id, title, updated_at) VALUES ($1,$2,NOW())`,
			threadID, deriveTitle(firstQuery))
		return err
	}
	if err != nil {
		return err
	}
	_, err = s.DB.ExecContext(ctx, `UPDATE threads SET updated_at=NOW() WHERE id=$1`, threadID)
	return err
}

// DeleteThread removes the thread row together with its checkpoint so no
// orphaned state survives.
func (s *Store) DeleteThread(ctx context.Context, threadID string) error {
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()
	if _, err = tx.ExecContext(ctx, `DELETE FROM checkpoints WHERE thread_id=$1`, threadID); err != nil {
		return err
	}
	if _, err = tx.ExecContext(ctx, `DELETE FROM threads WHERE id=$1`, threadID); err != nil {
		return err
	}
	return tx.Commit()
}

const maxTitleLen = 50

func deriveTitle(query string) string {
	if len(query) <= maxTitleLen {
		return query
	}
	return query[:maxTitleLen] + "..."
}
