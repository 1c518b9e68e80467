package models

import (
	"time"

	"github.com/google/uuid"
)

// SyncResult describes one coordinate sync run
type SyncResult struct {
	RunID         uuid.UUID     `json:"run_id"`
	AccountNumber string        `json:"account_number,omitempty"`
	RowsAffected  int64         `json:"rows_affected"`
	Duration      time.Duration `json:"duration"`
	StartedAt     time.Time     `json:"started_at"`
}

// SyncStatus tracks the most recent sync attempts
type SyncStatus struct {
	Running     bool        `json:"running"`
	Interval    string      `json:"interval"`
	LastAttempt *time.Time  `json:"lastSyncAttempt"`
	LastSuccess *time.Time  `json:"lastSyncSuccess"`
	LastError   string      `json:"lastSyncError,omitempty"`
	LastResult  *SyncResult `json:"lastResult,omitempty"`
}
