package domain

import (
	"context"
	"time"
)

// DraftPhase tags the draft negotiation state. The union is exhaustive:
// code switching on it handles every phase explicitly.
type DraftPhase string

const (
	PhaseIdle                 DraftPhase = "idle"
	PhaseCollectingDetails    DraftPhase = "collecting_details"
	PhaseAwaitingConfirmation DraftPhase = "awaiting_confirmation"
)

// DraftDetails are the event fields gathered while collecting details.
// Pointer fields are nil until the creator has supplied them.
type DraftDetails struct {
	Location        *string       `json:"location,omitempty"`
	StartsAt        *time.Time    `json:"starts_at,omitempty"`
	EndsAt          *time.Time    `json:"ends_at,omitempty"`
	MaxParticipants *int          `json:"max_participants,omitempty"`
	InvitePolicy    *InvitePolicy `json:"invite_policy,omitempty"`
	InviteNote      *string       `json:"invite_note,omitempty"`
	PreferredNames  []string      `json:"preferred_names,omitempty"`
}

// DraftState is the per-conversation draft. While awaiting confirmation it
// carries the frozen invite-plan snapshot, the id→name map used to render
// and edit it, and the exact preview text last sent. Confirmation always
// materializes the snapshot, never a live recomputation.
type DraftState struct {
	Phase   DraftPhase        `json:"phase"`
	Details DraftDetails      `json:"details"`
	Plan    InvitePlan        `json:"plan"`
	Names   map[string]string `json:"names,omitempty"`
	Preview string            `json:"preview,omitempty"`
}

// Conversation is the persistent record of one creator's SMS thread.
// The draft is stored as an open-ended JSON document; unknown or legacy
// keys are tolerated and ignored on load.
type Conversation struct {
	ID        string     `json:"id"`
	UserID    string     `json:"user_id"`
	Phone     string     `json:"phone"`
	Draft     DraftState `json:"draft"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// ConversationRepository defines storage operations for conversations.
type ConversationRepository interface {
	GetByPhone(ctx context.Context, phone string) (*Conversation, error)
	Save(ctx context.Context, conv *Conversation) error
}
