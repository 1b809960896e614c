package workers

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"homieplanner/internal/domain"
)

const escalationRetryDelay = time.Minute

// EscalationSweeper claims due escalation jobs and runs the invite-more
// check for each. Claiming removes the job; a successful check reschedules
// its own follow-up, and a failed one is re-queued here so the event is
// not silently dropped from escalation.
type EscalationSweeper struct {
	jobRepo     domain.EscalationJobRepository
	coordinator domain.Coordinator
	batchSize   int
	logger      *slog.Logger
	now         func() time.Time
}

func NewEscalationSweeper(
	jobRepo domain.EscalationJobRepository,
	coordinator domain.Coordinator,
	batchSize int,
	logger *slog.Logger,
) *EscalationSweeper {
	return &EscalationSweeper{
		jobRepo:     jobRepo,
		coordinator: coordinator,
		batchSize:   batchSize,
		logger:      logger,
		now:         time.Now,
	}
}

func (w *EscalationSweeper) Sweep(ctx context.Context) error {
	now := w.now()
	eventIDs, err := w.jobRepo.ClaimDue(ctx, now, w.batchSize)
	if err != nil {
		return fmt.Errorf("claim due jobs: %w", err)
	}

	for _, eventID := range eventIDs {
		if err := w.coordinator.MaybeInviteMore(ctx, eventID); err != nil {
			w.logger.Error("escalation check failed", "event_id", eventID, "error", err)
			if err := w.jobRepo.Schedule(ctx, eventID, now.Add(escalationRetryDelay)); err != nil {
				w.logger.Error("requeue escalation failed", "event_id", eventID, "error", err)
			}
		}
	}
	return nil
}
