// Package persistence keeps batch run records in a small SQLite-backed
// store so they survive a process restart. The Batch Orchestrator
// itself only tracks the one currently-active run in memory; this
// store exists purely to back the batch history listing. Nothing in
// internal/batch calls RecordBatch, so a finished run appears in that
// listing only if some caller records it explicitly.
package persistence

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteStore is a pure-Go (no cgo) SQLite store for batch history.
type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(path string) (*SQLiteStore, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("db path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	store := &SQLiteStore{db: db}
	if err := store.init(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

func (s *SQLiteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// init bootstraps the schema inline rather than from an embedded
// migrations directory, since there is exactly one table and no
// migration history to track yet.
func (s *SQLiteStore) init(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, "PRAGMA journal_mode = WAL;"); err != nil {
		return fmt.Errorf("set WAL mode: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, "PRAGMA busy_timeout = 5000;"); err != nil {
		return fmt.Errorf("set busy timeout: %w", err)
	}
	_, err := s.db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS batch_history (
		id TEXT PRIMARY KEY,
		source_id TEXT NOT NULL,
		folder TEXT NOT NULL,
		target_language TEXT NOT NULL,
		total INTEGER NOT NULL,
		completed INTEGER NOT NULL,
		status TEXT NOT NULL,
		error TEXT,
		started_at DATETIME NOT NULL,
		finished_at DATETIME
	);`)
	if err != nil {
		return fmt.Errorf("create batch_history: %w", err)
	}
	return nil
}

// RecordBatch upserts one batch run's final state.
func (s *SQLiteStore) RecordBatch(ctx context.Context, entry BatchHistoryEntry) error {
	_, err := s.db.ExecContext(
		ctx,
		`INSERT INTO batch_history (
			id, source_id, folder, target_language, total, completed, status, error, started_at, finished_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			total=excluded.total,
			completed=excluded.completed,
			status=excluded.status,
			error=excluded.error,
			finished_at=excluded.finished_at`,
		entry.ID,
		entry.SourceID,
		entry.Folder,
		entry.TargetLanguage,
		entry.Total,
		entry.Completed,
		entry.Status,
		entry.Error,
		entry.StartedAt.UTC(),
		nullableTime(entry.FinishedAt),
	)
	return err
}

// ListBatchHistory returns the most recent batch runs, newest first.
func (s *SQLiteStore) ListBatchHistory(ctx context.Context, limit int) ([]BatchHistoryEntry, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT id, source_id, folder, target_language, total, completed, status, error, started_at, finished_at
		 FROM batch_history
		 ORDER BY started_at DESC
		 LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []BatchHistoryEntry
	for rows.Next() {
		var e BatchHistoryEntry
		var finishedAt sql.NullTime
		var errMsg sql.NullString
		if err := rows.Scan(
			&e.ID, &e.SourceID, &e.Folder, &e.TargetLanguage,
			&e.Total, &e.Completed, &e.Status, &errMsg, &e.StartedAt, &finishedAt,
		); err != nil {
			return nil, err
		}
		e.Error = errMsg.String
		if finishedAt.Valid {
			e.FinishedAt = finishedAt.Time
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// DeleteOlderThan removes batch history rows started before cutoff,
// bounding how far back the dashboard's history view can grow.
func (s *SQLiteStore) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM batch_history WHERE started_at < ?`, cutoff.UTC())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func nullableTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t.UTC()
}
