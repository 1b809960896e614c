package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"homieplanner/internal/domain"
)

const (
	minEscalationDelay = time.Minute
	escalationCeiling  = 7 * 24 * time.Hour
)

type coordinator struct {
	eventRepo  domain.EventRepository
	memberRepo domain.EventMemberRepository
	jobRepo    domain.EscalationJobRepository
	msgRepo    domain.InboundMessageRepository
	messenger  domain.Messenger
	renderer   domain.MessageRenderer
	classifier domain.DecisionClassifier
	inviteTTL  time.Duration
	logger     *slog.Logger
	now        func() time.Time
}

// NewCoordinator returns the Coordinator that owns the invite lifecycle
// for committed events.
func NewCoordinator(
	eventRepo domain.EventRepository,
	memberRepo domain.EventMemberRepository,
	jobRepo domain.EscalationJobRepository,
	msgRepo domain.InboundMessageRepository,
	messenger domain.Messenger,
	renderer domain.MessageRenderer,
	classifier domain.DecisionClassifier,
	inviteTTL time.Duration,
	logger *slog.Logger,
) domain.Coordinator {
	return &coordinator{
		eventRepo:  eventRepo,
		memberRepo: memberRepo,
		jobRepo:    jobRepo,
		msgRepo:    msgRepo,
		messenger:  messenger,
		renderer:   renderer,
		classifier: classifier,
		inviteTTL:  inviteTTL,
		logger:     logger,
		now:        time.Now,
	}
}

// OnEventCreated sends the initial invites. Only members the gateway
// accepted a message for keep their invited status; failed sends are
// reverted to listed so backfill can pick someone else up later.
func (c *coordinator) OnEventCreated(ctx context.Context, eventID string) error {
	event, err := c.eventRepo.GetByID(ctx, eventID)
	if err != nil {
		return fmt.Errorf("get event: %w", err)
	}
	members, err := c.memberRepo.ListByEventID(ctx, eventID)
	if err != nil {
		return fmt.Errorf("list members: %w", err)
	}

	now := c.now()
	for _, m := range members {
		if m.Status != domain.StatusInvited {
			continue
		}
		if err := c.sendInvite(ctx, event, m); err != nil {
			c.logger.Error("initial invite send failed",
				"event_id", eventID, "homie_id", m.HomieID, "error", err)
			if err := c.memberRepo.RevertToListed(ctx, eventID, m.HomieID); err != nil {
				c.logger.Error("revert to listed failed",
					"event_id", eventID, "homie_id", m.HomieID, "error", err)
			}
			continue
		}
		if err := c.memberRepo.MarkInvited(ctx, eventID, m.HomieID, now.Add(c.inviteTTL)); err != nil {
			return fmt.Errorf("mark invited: %w", err)
		}
	}

	if event.InvitePolicy != domain.PolicyExact {
		runAt := now.Add(escalationDelay(event.StartsAt, now))
		if err := c.jobRepo.Schedule(ctx, eventID, runAt); err != nil {
			return fmt.Errorf("schedule escalation: %w", err)
		}
	}
	return nil
}

// MaybeInviteMore is the escalation check: invite exactly one more
// candidate when capacity, start time, and the remaining pool allow it,
// then reschedule. The cadence accelerates as the event approaches.
func (c *coordinator) MaybeInviteMore(ctx context.Context, eventID string) error {
	event, err := c.eventRepo.GetByID(ctx, eventID)
	if err != nil {
		return fmt.Errorf("get event: %w", err)
	}

	now := c.now()
	counts, err := c.memberRepo.CountByStatus(ctx, eventID)
	if err != nil {
		return fmt.Errorf("count members: %w", err)
	}

	if counts.Accepted >= event.MaxParticipants {
		if err := c.jobRepo.Cancel(ctx, eventID); err != nil {
			c.logger.Error("cancel escalation failed", "event_id", eventID, "error", err)
		}
		return nil
	}
	if !event.StartsAt.After(now) {
		return nil
	}
	if counts.Listed == 0 {
		return nil
	}

	promoted, err := c.memberRepo.PromoteRandomListed(ctx, eventID, now.Add(c.inviteTTL))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil
		}
		return fmt.Errorf("promote candidate: %w", err)
	}

	// The promotion is committed; a failed send leaves a silently
	// un-notified invitee, same accepted risk as the timeout sweep.
	if err := c.sendInvite(ctx, event, promoted); err != nil {
		c.logger.Error("escalation invite send failed",
			"event_id", eventID, "homie_id", promoted.HomieID, "error", err)
	}

	runAt := now.Add(escalationDelay(event.StartsAt, now))
	if err := c.jobRepo.Schedule(ctx, eventID, runAt); err != nil {
		return fmt.Errorf("reschedule escalation: %w", err)
	}
	return nil
}

// OnMemberInboundMessage handles an invitee's reply: record it, classify
// it, and either upsert their decision or ask them to clarify.
func (c *coordinator) OnMemberInboundMessage(ctx context.Context, eventID, homieID, deliveryID, text string) error {
	event, err := c.eventRepo.GetByID(ctx, eventID)
	if err != nil {
		return fmt.Errorf("get event: %w", err)
	}
	member, err := c.findMember(ctx, eventID, homieID)
	if err != nil {
		return err
	}

	err = c.msgRepo.Create(ctx, &domain.InboundMessage{
		DeliveryID: deliveryID,
		EventID:    &eventID,
		HomieID:    &homieID,
		From:       member.HomiePhone,
		Body:       text,
		ReceivedAt: c.now(),
	})
	if err != nil {
		if errors.Is(err, domain.ErrDuplicateDelivery) {
			// Gateway retry; the first delivery already handled it.
			return nil
		}
		return fmt.Errorf("record inbound message: %w", err)
	}

	reply, err := c.classifier.ClassifyInviteReply(ctx, c.inviteSummary(event), text)
	if err != nil {
		c.logger.Warn("invite reply classification degraded to unknown",
			"event_id", eventID, "homie_id", homieID, "error", err)
		reply = domain.InviteReplyUnknown
	}

	switch reply {
	case domain.InviteReplyUnknown:
		c.sendTemplate(ctx, member.HomiePhone, "clarify", map[string]any{
			"Location": event.Location,
			"When":     whenText(event),
		})
		return nil

	case domain.InviteReplyAccepted:
		err := c.memberRepo.ClaimAccept(ctx, eventID, homieID, event.MaxParticipants)
		if errors.Is(err, domain.ErrCapacityFull) {
			// Capacity-full override: the yes arrived too late.
			if err := c.memberRepo.SetStatus(ctx, eventID, homieID, domain.StatusDeclined); err != nil {
				return fmt.Errorf("set status: %w", err)
			}
			c.sendTemplate(ctx, member.HomiePhone, "regret", map[string]any{
				"HomieName": member.HomieName,
				"Location":  event.Location,
			})
			return nil
		}
		if err != nil {
			return fmt.Errorf("claim accept: %w", err)
		}
		c.notifyCreator(ctx, event, member, true)

	case domain.InviteReplyDeclined:
		if err := c.memberRepo.SetStatus(ctx, eventID, homieID, domain.StatusDeclined); err != nil {
			return fmt.Errorf("set status: %w", err)
		}
		c.notifyCreator(ctx, event, member, false)
	}

	// A decline may have opened a slot; an accept may mean escalation
	// should stop. Both are decided by the next escalation check.
	if event.InvitePolicy != domain.PolicyExact {
		if err := c.jobRepo.Schedule(ctx, eventID, c.now()); err != nil {
			return fmt.Errorf("schedule escalation: %w", err)
		}
	}
	return nil
}

func (c *coordinator) findMember(ctx context.Context, eventID, homieID string) (*domain.EventMember, error) {
	members, err := c.memberRepo.ListByEventID(ctx, eventID)
	if err != nil {
		return nil, fmt.Errorf("list members: %w", err)
	}
	for _, m := range members {
		if m.HomieID == homieID {
			return m, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (c *coordinator) sendInvite(ctx context.Context, event *domain.Event, m *domain.EventMember) error {
	data := map[string]any{
		"HomieName": m.HomieName,
		"Location":  event.Location,
		"When":      whenText(event),
	}
	if event.InviteNote != nil {
		data["Note"] = *event.InviteNote
	}
	body, err := c.renderer.Render("invite", data)
	if err != nil {
		return fmt.Errorf("render invite: %w", err)
	}
	if _, err := c.messenger.Send(ctx, m.HomiePhone, body); err != nil {
		return fmt.Errorf("send invite: %w", err)
	}
	return nil
}

func (c *coordinator) notifyCreator(ctx context.Context, event *domain.Event, m *domain.EventMember, accepted bool) {
	counts, err := c.memberRepo.CountByStatus(ctx, event.ID)
	if err != nil {
		c.logger.Error("count members for summary failed", "event_id", event.ID, "error", err)
		return
	}
	c.sendTemplate(ctx, event.CreatorPhone, "summary", map[string]any{
		"HomieName":     m.HomieName,
		"Accepted":      accepted,
		"Location":      event.Location,
		"AcceptedCount": counts.Accepted,
		"Capacity":      event.MaxParticipants,
	})
}

// sendTemplate renders and sends a best-effort message: failures are
// logged, never propagated, and never retried.
func (c *coordinator) sendTemplate(ctx context.Context, to, templateName string, data map[string]any) {
	body, err := c.renderer.Render(templateName, data)
	if err != nil {
		c.logger.Error("render message failed", "template", templateName, "error", err)
		return
	}
	if _, err := c.messenger.Send(ctx, to, body); err != nil {
		c.logger.Error("send message failed", "template", templateName, "to", to, "error", err)
	}
}

func (c *coordinator) inviteSummary(event *domain.Event) string {
	return fmt.Sprintf("%s %s", event.Location, whenText(event))
}

// escalationDelay spaces out invite escalation: 5% of the time remaining
// until the event, never under a minute, capped at 7 days. Invites
// speed up as the start approaches.
func escalationDelay(startsAt, now time.Time) time.Duration {
	remaining := startsAt.Sub(now)
	delay := remaining / 20
	if delay < minEscalationDelay {
		delay = minEscalationDelay
	}
	if delay > escalationCeiling {
		delay = escalationCeiling
	}
	return delay
}

func whenText(event *domain.Event) string {
	return event.StartsAt.Format("Mon Jan 2 at 3:04 PM")
}
