package workers

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"homieplanner/internal/domain"
)

// TimeoutSweeper expires invites whose response window has passed. The
// expiry flip and the replacement promotion commit in one claim
// transaction; the replacement's invite message is sent after commit, so
// a crash can leave an un-notified invitee but never a double promotion.
type TimeoutSweeper struct {
	eventRepo  domain.EventRepository
	memberRepo domain.EventMemberRepository
	messenger  domain.Messenger
	renderer   domain.MessageRenderer
	inviteTTL  time.Duration
	batchSize  int
	logger     *slog.Logger
	now        func() time.Time
}

func NewTimeoutSweeper(
	eventRepo domain.EventRepository,
	memberRepo domain.EventMemberRepository,
	messenger domain.Messenger,
	renderer domain.MessageRenderer,
	inviteTTL time.Duration,
	batchSize int,
	logger *slog.Logger,
) *TimeoutSweeper {
	return &TimeoutSweeper{
		eventRepo:  eventRepo,
		memberRepo: memberRepo,
		messenger:  messenger,
		renderer:   renderer,
		inviteTTL:  inviteTTL,
		batchSize:  batchSize,
		logger:     logger,
		now:        time.Now,
	}
}

func (w *TimeoutSweeper) Sweep(ctx context.Context) error {
	now := w.now()
	expired, err := w.memberRepo.ListExpiredInvites(ctx, now, w.batchSize)
	if err != nil {
		return fmt.Errorf("list expired invites: %w", err)
	}

	for _, m := range expired {
		replacement, err := w.memberRepo.ClaimTimeout(ctx, m.EventID, m.HomieID, now, now.Add(w.inviteTTL))
		if err != nil {
			if errors.Is(err, domain.ErrAlreadyClaimed) {
				// Another sweeper, or the invitee's own late reply, won.
				continue
			}
			return fmt.Errorf("claim timeout: %w", err)
		}
		w.logger.Info("invite timed out",
			"event_id", m.EventID, "homie_id", m.HomieID, "replaced", replacement != nil)
		if replacement == nil {
			continue
		}

		event, err := w.eventRepo.GetByID(ctx, m.EventID)
		if err != nil {
			w.logger.Error("load event for replacement invite failed",
				"event_id", m.EventID, "error", err)
			continue
		}
		if err := sendInvite(ctx, w.messenger, w.renderer, event, replacement); err != nil {
			w.logger.Error("replacement invite send failed",
				"event_id", m.EventID, "homie_id", replacement.HomieID, "error", err)
		}
	}
	return nil
}

func sendInvite(ctx context.Context, messenger domain.Messenger, renderer domain.MessageRenderer, event *domain.Event, m *domain.EventMember) error {
	data := map[string]any{
		"HomieName": m.HomieName,
		"Location":  event.Location,
		"When":      event.StartsAt.Format("Mon Jan 2 at 3:04 PM"),
	}
	if event.InviteNote != nil {
		data["Note"] = *event.InviteNote
	}
	body, err := renderer.Render("invite", data)
	if err != nil {
		return fmt.Errorf("render invite: %w", err)
	}
	if _, err := messenger.Send(ctx, m.HomiePhone, body); err != nil {
		return fmt.Errorf("send invite: %w", err)
	}
	return nil
}
