package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"homieplanner/internal/domain"
	"homieplanner/internal/planner"
)

type draftService struct {
	eventRepo   domain.EventRepository
	homieRepo   domain.HomieRepository
	convRepo    domain.ConversationRepository
	msgRepo     domain.InboundMessageRepository
	coordinator domain.Coordinator
	messenger   domain.Messenger
	renderer    domain.MessageRenderer
	classifier  domain.DecisionClassifier
	logger      *slog.Logger
	now         func() time.Time
}

// NewDraftService returns the DraftService that negotiates event drafts
// over the creator's conversation.
func NewDraftService(
	eventRepo domain.EventRepository,
	homieRepo domain.HomieRepository,
	convRepo domain.ConversationRepository,
	msgRepo domain.InboundMessageRepository,
	coordinator domain.Coordinator,
	messenger domain.Messenger,
	renderer domain.MessageRenderer,
	classifier domain.DecisionClassifier,
	logger *slog.Logger,
) domain.DraftService {
	return &draftService{
		eventRepo:   eventRepo,
		homieRepo:   homieRepo,
		convRepo:    convRepo,
		msgRepo:     msgRepo,
		coordinator: coordinator,
		messenger:   messenger,
		renderer:    renderer,
		classifier:  classifier,
		logger:      logger,
		now:         time.Now,
	}
}

// StartDraft records the collected details. Once everything needed is
// known it computes the invite plan, freezes it into the draft, and sends
// the preview. A later confirm materializes the frozen snapshot, never a
// recomputation, so the roster cannot reshuffle between preview and commit.
func (s *draftService) StartDraft(ctx context.Context, conv *domain.Conversation, details domain.DraftDetails) error {
	conv.Draft = domain.DraftState{
		Phase:   domain.PhaseCollectingDetails,
		Details: details,
	}

	if missing := missingDetails(details); len(missing) > 0 {
		if err := s.convRepo.Save(ctx, conv); err != nil {
			return fmt.Errorf("save conversation: %w", err)
		}
		s.send(ctx, conv.Phone, fmt.Sprintf("Almost there! I still need: %s.", strings.Join(missing, ", ")))
		return nil
	}

	return s.freezePlan(ctx, conv)
}

func (s *draftService) freezePlan(ctx context.Context, conv *domain.Conversation) error {
	details := conv.Draft.Details

	homies, err := s.homieRepo.ListByOwnerID(ctx, conv.UserID)
	if err != nil {
		return fmt.Errorf("list homies: %w", err)
	}
	names := make(map[string]string, len(homies))
	pool := make([]string, 0, len(homies))
	byName := make(map[string]string, len(homies))
	for _, h := range homies {
		names[h.ID] = h.Name
		pool = append(pool, h.ID)
		byName[strings.ToLower(h.Name)] = h.ID
	}

	preferred := make([]string, 0, len(details.PreferredNames))
	for _, name := range details.PreferredNames {
		id, ok := byName[strings.ToLower(strings.TrimSpace(name))]
		if !ok {
			s.send(ctx, conv.Phone, fmt.Sprintf("I don't know a homie called %q. Who did you mean?", name))
			return s.convRepo.Save(ctx, conv)
		}
		preferred = append(preferred, id)
	}

	policy := *details.InvitePolicy
	maxCount := *details.MaxParticipants
	// The engine does not reconcile an exact-policy count mismatch;
	// catching it here keeps it a conversation problem, not a crash.
	if policy == domain.PolicyExact && len(preferred) != maxCount {
		s.send(ctx, conv.Phone, fmt.Sprintf(
			"You named %d homies but capacity is %d. Match them up, or pick a different invite style.",
			len(preferred), maxCount))
		return s.convRepo.Save(ctx, conv)
	}

	plan, err := planner.InitialSelection(policy, maxCount, pool, preferred)
	if err != nil {
		return fmt.Errorf("initial selection: %w", err)
	}

	conv.Draft.Phase = domain.PhaseAwaitingConfirmation
	conv.Draft.Plan = plan
	conv.Draft.Names = names
	preview, err := s.renderPreview(conv.Draft)
	if err != nil {
		return fmt.Errorf("render preview: %w", err)
	}
	conv.Draft.Preview = preview

	if err := s.convRepo.Save(ctx, conv); err != nil {
		return fmt.Errorf("save conversation: %w", err)
	}
	s.send(ctx, conv.Phone, preview)
	return nil
}

// OnCreatorInboundMessage advances the state machine on a creator reply.
// The switch over the draft phase is exhaustive; there is no fallthrough
// default that guesses.
func (s *draftService) OnCreatorInboundMessage(ctx context.Context, conv *domain.Conversation, deliveryID, text string) error {
	err := s.msgRepo.Create(ctx, &domain.InboundMessage{
		DeliveryID: deliveryID,
		From:       conv.Phone,
		Body:       text,
		ReceivedAt: s.now(),
	})
	if err != nil {
		if errors.Is(err, domain.ErrDuplicateDelivery) {
			return nil
		}
		return fmt.Errorf("record inbound message: %w", err)
	}

	switch conv.Draft.Phase {
	case domain.PhaseIdle, "":
		s.send(ctx, conv.Phone, "Nothing in the works right now. Tell me what you want to plan!")
		return nil

	case domain.PhaseCollectingDetails:
		if missing := missingDetails(conv.Draft.Details); len(missing) > 0 {
			s.send(ctx, conv.Phone, fmt.Sprintf("Still need: %s.", strings.Join(missing, ", ")))
			return nil
		}
		return s.freezePlan(ctx, conv)

	case domain.PhaseAwaitingConfirmation:
		return s.handleAwaitingReply(ctx, conv, text)
	}

	return fmt.Errorf("%w: draft phase %q", domain.ErrInvalidInput, conv.Draft.Phase)
}

func (s *draftService) handleAwaitingReply(ctx context.Context, conv *domain.Conversation, text string) error {
	reply, err := s.classifier.ClassifyDraftReply(ctx, conv.Draft.Preview, text)
	if err != nil {
		s.logger.Warn("draft reply classification degraded to unknown",
			"conversation_id", conv.ID, "error", err)
		reply = domain.DraftReplyUnknown
	}

	switch reply {
	case domain.DraftReplyConfirm:
		return s.confirm(ctx, conv)

	case domain.DraftReplyEdit:
		return s.edit(ctx, conv, text)

	case domain.DraftReplyCancel:
		conv.Draft = domain.DraftState{Phase: domain.PhaseIdle}
		if err := s.convRepo.Save(ctx, conv); err != nil {
			return fmt.Errorf("save conversation: %w", err)
		}
		s.sendTemplate(ctx, conv.Phone, "cancelled", nil)
		return nil

	case domain.DraftReplyUnknown:
		s.sendTemplate(ctx, conv.Phone, "reprompt", nil)
		return nil
	}

	return fmt.Errorf("%w: draft reply %q", domain.ErrInvalidInput, reply)
}

// confirm materializes the frozen snapshot into Event and EventMember
// rows in one transaction, hands off to the coordinator, and clears the
// draft.
func (s *draftService) confirm(ctx context.Context, conv *domain.Conversation) error {
	draft := conv.Draft
	details := draft.Details
	now := s.now()

	event := &domain.Event{
		CreatorID:       conv.UserID,
		CreatorPhone:    conv.Phone,
		Location:        *details.Location,
		StartsAt:        *details.StartsAt,
		EndsAt:          *details.EndsAt,
		MaxParticipants: *details.MaxParticipants,
		InvitePolicy:    *details.InvitePolicy,
		InviteNote:      details.InviteNote,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	members := make([]*domain.EventMember, 0, len(draft.Plan.Immediate)+len(draft.Plan.FollowUp))
	for _, id := range draft.Plan.Immediate {
		members = append(members, &domain.EventMember{
			HomieID:   id,
			Status:    domain.StatusInvited,
			CreatedAt: now,
			UpdatedAt: now,
		})
	}
	// Exact policy persists only the named set; other policies keep the
	// backup pool around as listed rows, ranked by snapshot order.
	if event.InvitePolicy != domain.PolicyExact {
		for i, id := range draft.Plan.FollowUp {
			rank := i
			members = append(members, &domain.EventMember{
				HomieID:      id,
				Status:       domain.StatusListed,
				PriorityRank: &rank,
				CreatedAt:    now,
				UpdatedAt:    now,
			})
		}
	}

	if err := s.eventRepo.CreateWithMembers(ctx, event, members); err != nil {
		return fmt.Errorf("materialize event: %w", err)
	}

	conv.Draft = domain.DraftState{Phase: domain.PhaseIdle}
	if err := s.convRepo.Save(ctx, conv); err != nil {
		return fmt.Errorf("save conversation: %w", err)
	}

	if err := s.coordinator.OnEventCreated(ctx, event.ID); err != nil {
		return fmt.Errorf("hand off event: %w", err)
	}

	s.sendTemplate(ctx, conv.Phone, "confirmed", map[string]any{
		"Location": event.Location,
		"When":     whenText(event),
	})
	return nil
}

// edit applies an NLU-extracted patch to the frozen snapshot and re-sends
// the preview, staying in awaiting_confirmation.
func (s *draftService) edit(ctx context.Context, conv *domain.Conversation, text string) error {
	knownNames := make([]string, 0, len(conv.Draft.Names))
	for _, name := range conv.Draft.Names {
		knownNames = append(knownNames, name)
	}

	patch, err := s.classifier.ExtractPlanPatch(ctx, knownNames, text)
	if err != nil {
		s.logger.Warn("patch extraction failed", "conversation_id", conv.ID, "error", err)
		s.sendTemplate(ctx, conv.Phone, "reprompt", nil)
		return nil
	}
	if patch.Empty() {
		s.sendTemplate(ctx, conv.Phone, "reprompt", nil)
		return nil
	}

	newPlan, err := planner.ApplyEditPatch(conv.Draft.Plan, patch, conv.Draft.Names, *conv.Draft.Details.MaxParticipants)
	if err != nil {
		if errors.Is(err, domain.ErrUnknownHomie) {
			s.send(ctx, conv.Phone, fmt.Sprintf("%s. Nothing changed yet, who did you mean?", err))
			return nil
		}
		return fmt.Errorf("apply patch: %w", err)
	}

	conv.Draft.Plan = newPlan
	preview, err := s.renderPreview(conv.Draft)
	if err != nil {
		return fmt.Errorf("render preview: %w", err)
	}
	conv.Draft.Preview = preview

	if err := s.convRepo.Save(ctx, conv); err != nil {
		return fmt.Errorf("save conversation: %w", err)
	}
	s.send(ctx, conv.Phone, preview)
	return nil
}

func (s *draftService) renderPreview(draft domain.DraftState) (string, error) {
	details := draft.Details
	return s.renderer.Render("preview", map[string]any{
		"Location": *details.Location,
		"When":     details.StartsAt.Format("Mon Jan 2 at 3:04 PM"),
		"Capacity": *details.MaxParticipants,
		"Invited":  joinNames(draft.Plan.Immediate, draft.Names),
		"Backups":  joinNames(draft.Plan.FollowUp, draft.Names),
		"Excluded": joinNames(draft.Plan.Excluded, draft.Names),
	})
}

func (s *draftService) send(ctx context.Context, to, body string) {
	if _, err := s.messenger.Send(ctx, to, body); err != nil {
		s.logger.Error("send message failed", "to", to, "error", err)
	}
}

func (s *draftService) sendTemplate(ctx context.Context, to, templateName string, data map[string]any) {
	body, err := s.renderer.Render(templateName, data)
	if err != nil {
		s.logger.Error("render message failed", "template", templateName, "error", err)
		return
	}
	s.send(ctx, to, body)
}

func missingDetails(d domain.DraftDetails) []string {
	var missing []string
	if d.Location == nil {
		missing = append(missing, "a location")
	}
	if d.StartsAt == nil || d.EndsAt == nil {
		missing = append(missing, "a time")
	}
	if d.MaxParticipants == nil {
		missing = append(missing, "how many homies")
	}
	if d.InvitePolicy == nil {
		missing = append(missing, "how to pick them")
	}
	if d.InvitePolicy != nil && *d.InvitePolicy == domain.PolicyExact && len(d.PreferredNames) == 0 {
		missing = append(missing, "who exactly")
	}
	return missing
}

func joinNames(ids []string, names map[string]string) string {
	if len(ids) == 0 {
		return ""
	}
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if name, ok := names[id]; ok {
			out = append(out, name)
		} else {
			out = append(out, id)
		}
	}
	return strings.Join(out, ", ")
}
