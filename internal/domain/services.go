package domain

import "context"

// Coordinator owns the invite lifecycle for committed events.
type Coordinator interface {
	// OnEventCreated sends the initial invites for a freshly
	// materialized event and, for non-exact policies, schedules the
	// first escalation check.
	OnEventCreated(ctx context.Context, eventID string) error
	// MaybeInviteMore invites one more candidate if capacity, start
	// time, and the remaining pool allow it, then reschedules itself.
	MaybeInviteMore(ctx context.Context, eventID string) error
	// OnMemberInboundMessage handles an invitee's reply.
	OnMemberInboundMessage(ctx context.Context, eventID, homieID, deliveryID, text string) error
}

// DraftService drives the draft negotiation state machine for creator
// conversations.
type DraftService interface {
	// StartDraft begins or replaces a draft with the given details,
	// moving to awaiting_confirmation once enough is known.
	StartDraft(ctx context.Context, conv *Conversation, details DraftDetails) error
	// OnCreatorInboundMessage handles a creator reply: confirm, edit,
	// cancel, or a re-prompt for anything else.
	OnCreatorInboundMessage(ctx context.Context, conv *Conversation, deliveryID, text string) error
}
