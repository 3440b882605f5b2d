package persistence

import "time"

// BatchHistoryEntry records one past batch run for the dashboard's
// history view. The live run itself is tracked in-memory by
// internal/batch; an entry passed to RecordBatch is persisted here so
// it survives a process restart. internal/batch does not call
// RecordBatch itself.
type BatchHistoryEntry struct {
	ID             string
	SourceID       string
	Folder         string
	TargetLanguage string
	Total          int
	Completed      int
	Status         string
	Error          string
	StartedAt      time.Time
	FinishedAt     time.Time
}
