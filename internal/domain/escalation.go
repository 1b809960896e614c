package domain

import (
	"context"
	"time"
)

// EscalationJob is a durable one-shot schedule entry: at RunAt, the
// coordinator should re-check whether the event needs another invite.
// One job per event at most; rescheduling replaces the run time. Jobs
// survive restarts, which is why there is no in-process timer map.
type EscalationJob struct {
	ID        string    `json:"id"`
	EventID   string    `json:"event_id"`
	RunAt     time.Time `json:"run_at"`
	CreatedAt time.Time `json:"created_at"`
}

// EscalationJobRepository defines storage operations for escalation jobs.
type EscalationJobRepository interface {
	// Schedule upserts the event's job to run at runAt.
	Schedule(ctx context.Context, eventID string, runAt time.Time) error
	// Cancel removes the event's pending job, if any.
	Cancel(ctx context.Context, eventID string) error
	// ClaimDue atomically claims and removes up to limit due jobs,
	// returning their event ids. Concurrent sweepers never claim the
	// same job twice.
	ClaimDue(ctx context.Context, now time.Time, limit int) ([]string, error)
}
