package persistence

import "time"

// BatchCheckpoint is one persisted translation batch for a job,
// identified by the half-open line range [BatchStart, BatchEnd).
type BatchCheckpoint struct {
	JobID           string
	BatchStart      int
	BatchEnd        int
	TranslatedLines []string
	UpdatedAt       time.Time
}
