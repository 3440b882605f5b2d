package persistence

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestSQLiteStore_RecordAndListBatchHistory(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	store, err := NewSQLiteStore(filepath.Join(dir, "subproxy.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	ctx := context.Background()
	started := time.Now().UTC().Truncate(time.Second)

	require.NoError(t, store.RecordBatch(ctx, BatchHistoryEntry{
		ID:             "batch-1",
		SourceID:       "main",
		Folder:         "/media",
		TargetLanguage: "es",
		Total:          3,
		Completed:      1,
		Status:         "translating",
		StartedAt:      started,
	}))

	// a later update for the same ID must replace the row, not add one
	require.NoError(t, store.RecordBatch(ctx, BatchHistoryEntry{
		ID:             "batch-1",
		SourceID:       "main",
		Folder:         "/media",
		TargetLanguage: "es",
		Total:          3,
		Completed:      3,
		Status:         "completed",
		StartedAt:      started,
		FinishedAt:     started.Add(time.Minute),
	}))

	history, err := store.ListBatchHistory(ctx, 10)
	require.NoError(t, err)
	require.Len(t, history, 1)
	require.Equal(t, "completed", history[0].Status)
	require.Equal(t, 3, history[0].Completed)
	require.False(t, history[0].FinishedAt.IsZero())
}

func TestSQLiteStore_DeleteOlderThan(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	store, err := NewSQLiteStore(filepath.Join(dir, "subproxy.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	ctx := context.Background()
	old := time.Now().UTC().Add(-48 * time.Hour)
	require.NoError(t, store.RecordBatch(ctx, BatchHistoryEntry{
		ID: "old-batch", SourceID: "main", Folder: "/media",
		TargetLanguage: "de", Status: "completed", StartedAt: old,
	}))

	deleted, err := store.DeleteOlderThan(ctx, time.Now().UTC().Add(-24*time.Hour))
	require.NoError(t, err)
	require.Equal(t, int64(1), deleted)

	history, err := store.ListBatchHistory(ctx, 10)
	require.NoError(t, err)
	require.Empty(t, history)
}
