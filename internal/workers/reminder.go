package workers

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"homieplanner/internal/domain"
)

// ReminderSweeper nudges invitees whose invite is close to expiring.
// reminder_sent is claimed before the message goes out, so a reminder is
// sent at most once per invite; a crash between claim and send drops the
// nudge rather than repeating it.
type ReminderSweeper struct {
	eventRepo  domain.EventRepository
	memberRepo domain.EventMemberRepository
	messenger  domain.Messenger
	renderer   domain.MessageRenderer
	threshold  time.Duration
	batchSize  int
	logger     *slog.Logger
	now        func() time.Time
}

func NewReminderSweeper(
	eventRepo domain.EventRepository,
	memberRepo domain.EventMemberRepository,
	messenger domain.Messenger,
	renderer domain.MessageRenderer,
	threshold time.Duration,
	batchSize int,
	logger *slog.Logger,
) *ReminderSweeper {
	return &ReminderSweeper{
		eventRepo:  eventRepo,
		memberRepo: memberRepo,
		messenger:  messenger,
		renderer:   renderer,
		threshold:  threshold,
		batchSize:  batchSize,
		logger:     logger,
		now:        time.Now,
	}
}

func (w *ReminderSweeper) Sweep(ctx context.Context) error {
	now := w.now()
	due, err := w.memberRepo.ListReminderDue(ctx, now, w.threshold, w.batchSize)
	if err != nil {
		return fmt.Errorf("list reminders due: %w", err)
	}

	for _, m := range due {
		if err := w.memberRepo.ClaimReminder(ctx, m.EventID, m.HomieID, now); err != nil {
			if errors.Is(err, domain.ErrAlreadyClaimed) {
				continue
			}
			return fmt.Errorf("claim reminder: %w", err)
		}

		event, err := w.eventRepo.GetByID(ctx, m.EventID)
		if err != nil {
			w.logger.Error("load event for reminder failed", "event_id", m.EventID, "error", err)
			continue
		}
		body, err := w.renderer.Render("reminder", map[string]any{
			"HomieName": m.HomieName,
			"Location":  event.Location,
			"When":      event.StartsAt.Format("Mon Jan 2 at 3:04 PM"),
		})
		if err != nil {
			w.logger.Error("render reminder failed", "event_id", m.EventID, "error", err)
			continue
		}
		if _, err := w.messenger.Send(ctx, m.HomiePhone, body); err != nil {
			w.logger.Error("reminder send failed",
				"event_id", m.EventID, "homie_id", m.HomieID, "error", err)
		}
	}
	return nil
}
