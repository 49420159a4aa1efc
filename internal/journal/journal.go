// Package journal records every outbound API request in a local SQLite database.
package journal

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/RobinCoderZhao/futuur-mcp/pkg/marketapi"
	"github.com/RobinCoderZhao/futuur-mcp/pkg/mcpserver"
	"github.com/RobinCoderZhao/futuur-mcp/pkg/storage"
)

// Schema is the SQLite schema for the request journal.
const Schema = `
CREATE TABLE IF NOT EXISTS requests (
    seq          INTEGER PRIMARY KEY AUTOINCREMENT,
    id           TEXT NOT NULL UNIQUE,
    tool         TEXT NOT NULL DEFAULT '',
    method       TEXT NOT NULL,
    endpoint     TEXT NOT NULL,
    class        TEXT NOT NULL,
    status       INTEGER NOT NULL DEFAULT 0,
    outcome      TEXT NOT NULL,
    duration_ms  INTEGER NOT NULL DEFAULT 0,
    error        TEXT NOT NULL DEFAULT '',
    created_at   INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_requests_created ON requests(created_at);
CREATE INDEX IF NOT EXISTS idx_requests_outcome ON requests(outcome);
`

const maxErrorLen = 512

// Entry is one journaled request.
type Entry struct {
	ID        string
	Tool      string
	Method    string
	Endpoint  string
	Class     string
	Status    int
	Outcome   string
	Duration  time.Duration
	Error     string
	CreatedAt time.Time
}

// Journal persists request events. It implements marketapi.Observer.
type Journal struct {
	db     *storage.DB
	logger *slog.Logger
	now    func() time.Time
}

// Open opens (or creates) the journal at path.
func Open(ctx context.Context, path string) (*Journal, error) {
	db, err := storage.Open(storage.Config{Path: path})
	if err != nil {
		return nil, fmt.Errorf("open journal: %w", err)
	}
	if err := db.Migrate(ctx, Schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("open journal: %w", err)
	}
	return &Journal{db: db, logger: slog.Default(), now: time.Now}, nil
}

// Close releases the database.
func (j *Journal) Close() error {
	return j.db.Close()
}

// ObserveRequest records ev. Write failures are logged, never returned.
func (j *Journal) ObserveRequest(ctx context.Context, ev marketapi.RequestEvent) {
	entry := Entry{
		ID:        uuid.NewString(),
		Tool:      mcpserver.ToolNameFromContext(ctx),
		Method:    ev.Method,
		Endpoint:  ev.Endpoint,
		Class:     ev.Class.String(),
		Status:    ev.StatusCode,
		Outcome:   marketapi.Outcome(ev.Err),
		Duration:  ev.Duration,
		CreatedAt: j.now(),
	}
	if ev.Err != nil {
		entry.Error = ev.Err.Error()
		if len(entry.Error) > maxErrorLen {
			entry.Error = entry.Error[:maxErrorLen]
		}
	}

	// The call's context may already be cancelled; the row should still land.
	writeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
	defer cancel()
	if err := j.Record(writeCtx, entry); err != nil {
		j.logger.Warn("journal write failed", "endpoint", ev.Endpoint, "error", err)
	}
}

// Record inserts entry.
func (j *Journal) Record(ctx context.Context, e Entry) error {
	_, err := j.db.ExecContext(ctx, `
		INSERT INTO requests (id, tool, method, endpoint, class, status, outcome, duration_ms, error, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, e.ID, e.Tool, e.Method, e.Endpoint, e.Class, e.Status, e.Outcome, e.Duration.Milliseconds(), e.Error, e.CreatedAt.UnixMilli())
	if err != nil {
		return fmt.Errorf("insert request: %w", err)
	}
	return nil
}

// Recent returns up to limit entries, newest first.
func (j *Journal) Recent(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := j.db.QueryContext(ctx, `
		SELECT id, tool, method, endpoint, class, status, outcome, duration_ms, error, created_at
		FROM requests ORDER BY seq DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("query requests: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var (
			e          Entry
			durationMS int64
			createdMS  int64
		)
		if err := rows.Scan(&e.ID, &e.Tool, &e.Method, &e.Endpoint, &e.Class, &e.Status, &e.Outcome, &durationMS, &e.Error, &createdMS); err != nil {
			return nil, fmt.Errorf("scan request: %w", err)
		}
		e.Duration = time.Duration(durationMS) * time.Millisecond
		e.CreatedAt = time.UnixMilli(createdMS)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Prune deletes entries older than cutoff and reports how many were removed.
func (j *Journal) Prune(ctx context.Context, cutoff time.Time) (int64, error) {
	var removed int64
	err := j.db.Transaction(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `DELETE FROM requests WHERE created_at < ?`, cutoff.UnixMilli())
		if err != nil {
			return fmt.Errorf("prune requests: %w", err)
		}
		removed, err = res.RowsAffected()
		return err
	})
	return removed, err
}
