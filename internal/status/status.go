// Package status persists a small record of the daemon's cleaning activity
// so operators can see when data was last cleared and whether it succeeded.
package status

import (
	"context"
	"time"
)

// Trigger names recorded with each cleaning run.
const (
	TriggerRequest = "request"
	TriggerStartup = "startup"
	TriggerClose   = "window-close"
	TriggerManual  = "manual"
)

// Status is the persisted record of the most recent cleaning runs.
type Status struct {
	// LastCleanAt is the completion time of the last successful run.
	LastCleanAt time.Time `json:"last_clean_at"`

	// LastAttemptAt is the completion time of the last run, failed or not.
	LastAttemptAt time.Time `json:"last_attempt_at"`

	// LastTrigger names what initiated the last run.
	LastTrigger string `json:"last_trigger"`

	// LastError is the message of the last failed run, cleared on success.
	LastError string `json:"last_error,omitempty"`

	// CleanCount is the number of successful runs recorded.
	CleanCount int `json:"clean_count"`
}

// IsEmpty reports whether no run has been recorded yet.
func (s Status) IsEmpty() bool {
	return s.LastAttemptAt.IsZero()
}

// RecordSuccess updates the status after a successful run.
func (s *Status) RecordSuccess(trigger string) {
	now := time.Now()
	s.LastCleanAt = now
	s.LastAttemptAt = now
	s.LastTrigger = trigger
	s.LastError = ""
	s.CleanCount++
}

// RecordFailure updates the status after a failed run.
func (s *Status) RecordFailure(trigger string, err error) {
	s.LastAttemptAt = time.Now()
	s.LastTrigger = trigger
	s.LastError = err.Error()
}

// Repository persists Status between daemon runs.
type Repository interface {
	Load(ctx context.Context) (Status, error)
	Save(ctx context.Context, st Status) error
}
