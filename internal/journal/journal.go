// Package journal appends one row per completion request to a SQLite
// database. It is an audit trail only; the registry never reads it back.
package journal

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver
)

// Outcome of a journaled completion
const (
	StatusOK    = "ok"
	StatusError = "error"
)

// Entry is one journaled completion.
type Entry struct {
	ID               int64     `json:"id"`
	CompletionID     string    `json:"completionId,omitempty"`
	SessionID        string    `json:"sessionId"`
	Model            string    `json:"model"`
	Engine           string    `json:"engine"`
	Status           string    `json:"status"`
	Error            string    `json:"error,omitempty"`
	PromptTokens     int       `json:"promptTokens"`
	CompletionTokens int       `json:"completionTokens"`
	LatencyMs        int64     `json:"latencyMs"`
	CreatedAt        time.Time `json:"createdAt"`
}

// Journal is an open journal database.
type Journal struct {
	conn   *sql.DB
	logger *slog.Logger
	path   string
}

// Open opens or creates the journal at path, creating parent directories.
func Open(path string, logger *slog.Logger) (*Journal, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create journal directory: %w", err)
		}
	}

	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open journal: %w", err)
	}
	// one connection keeps the pragmas in effect and serializes writers
	conn.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA busy_timeout=5000",
	}
	for _, pragma := range pragmas {
		if _, err := conn.Exec(pragma); err != nil {
			_ = conn.Close()
			return nil, fmt.Errorf("failed to set pragma: %w", err)
		}
	}

	j := &Journal{conn: conn, logger: logger, path: path}
	if err := j.migrate(); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return j, nil
}

// Path returns the database file path.
func (j *Journal) Path() string { return j.path }

// Close closes the database connection
func (j *Journal) Close() error {
	if j.conn != nil {
		return j.conn.Close()
	}
	return nil
}

// Record appends e. A zero CreatedAt is set to now.
func (j *Journal) Record(ctx context.Context, e Entry) error {
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now()
	}
	if e.Status == "" {
		e.Status = StatusOK
	}
	_, err := j.conn.ExecContext(ctx, `
		INSERT INTO completions
			(completion_id, session_id, model, engine, status, error,
			 prompt_tokens, completion_tokens, latency_ms, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.CompletionID, e.SessionID, e.Model, e.Engine, e.Status, e.Error,
		e.PromptTokens, e.CompletionTokens, e.LatencyMs, e.CreatedAt.UTC().UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("journal insert: %w", err)
	}
	return nil
}

// Recent returns up to limit entries, newest first.
func (j *Journal) Recent(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := j.conn.QueryContext(ctx, `
		SELECT id, completion_id, session_id, model, engine, status, error,
		       prompt_tokens, completion_tokens, latency_ms, created_at
		FROM completions
		ORDER BY id DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("journal query: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var createdMs int64
		if err := rows.Scan(&e.ID, &e.CompletionID, &e.SessionID, &e.Model, &e.Engine, &e.Status, &e.Error,
			&e.PromptTokens, &e.CompletionTokens, &e.LatencyMs, &createdMs); err != nil {
			return nil, fmt.Errorf("journal scan: %w", err)
		}
		e.CreatedAt = time.UnixMilli(createdMs).UTC()
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Count returns the number of journaled completions.
func (j *Journal) Count(ctx context.Context) (int64, error) {
	var n int64
	err := j.conn.QueryRowContext(ctx, "SELECT COUNT(*) FROM completions").Scan(&n)
	return n, err
}
