package domain

import (
	"context"
	"time"
)

// MemberStatus is the lifecycle state of an EventMember row.
// listed → invited → {accepted, declined}. A timeout never changes the
// status; it only sets InviteTimedOut while the row stays invited.
type MemberStatus string

const (
	StatusListed   MemberStatus = "listed"
	StatusInvited  MemberStatus = "invited"
	StatusAccepted MemberStatus = "accepted"
	StatusDeclined MemberStatus = "declined"
)

// EventMember links a homie to an event. Unique per (event, homie).
// swagger:model EventMember
type EventMember struct {
	EventID         string       `json:"event_id"`
	HomieID         string       `json:"homie_id"`
	Status          MemberStatus `json:"status"`
	PriorityRank    *int         `json:"priority_rank,omitempty"`
	InviteExpiresAt *time.Time   `json:"invite_expires_at,omitempty"`
	InviteTimedOut  bool         `json:"invite_timed_out"`
	ReminderSent    bool         `json:"reminder_sent"`
	CreatedAt       time.Time    `json:"created_at"`
	UpdatedAt       time.Time    `json:"updated_at"`

	// HomieName and HomiePhone are joined in by list queries for
	// messaging; they are not columns of event_members.
	HomieName  string `json:"homie_name,omitempty"`
	HomiePhone string `json:"homie_phone,omitempty"`
}

// StatusCounts summarizes a roster by member status.
type StatusCounts struct {
	Listed   int
	Invited  int
	Accepted int
	Declined int
}

// EventMemberRepository defines storage operations for event members,
// including the claim transactions that guarantee at-most-once side
// effects under concurrent sweepers and handlers.
type EventMemberRepository interface {
	ListByEventID(ctx context.Context, eventID string) ([]*EventMember, error)
	CountByStatus(ctx context.Context, eventID string) (StatusCounts, error)

	// MarkInvited moves a row to invited with a fresh expiry.
	MarkInvited(ctx context.Context, eventID, homieID string, expiresAt time.Time) error
	// RevertToListed undoes a provisional invite whose send failed.
	RevertToListed(ctx context.Context, eventID, homieID string) error
	// SetStatus records a definite accept/decline.
	SetStatus(ctx context.Context, eventID, homieID string, status MemberStatus) error
	// ClaimAccept records an accept only while the event has room. The
	// accepted count is re-checked under an event-row lock in the same
	// transaction that flips the status, so two simultaneous replies can
	// never both land; the loser gets ErrCapacityFull.
	ClaimAccept(ctx context.Context, eventID, homieID string, capacity int) error

	// FindActiveInviteByPhone resolves an inbound sender to their most
	// recently invited, still-undecided membership.
	FindActiveInviteByPhone(ctx context.Context, phone string) (*EventMember, error)

	// ListExpiredInvites returns invited rows whose expiry passed and
	// which have not been timed out yet, bounded by limit.
	ListExpiredInvites(ctx context.Context, now time.Time, limit int) ([]*EventMember, error)
	// ClaimTimeout re-validates the row inside one transaction, flips
	// invite_timed_out, and promotes the best listed replacement
	// (priority_rank asc nulls last, created_at tiebreak) in the same
	// transaction. Returns the promoted replacement, nil if no candidate
	// remained, or ErrAlreadyClaimed if another worker got there first.
	ClaimTimeout(ctx context.Context, eventID, homieID string, now time.Time, replacementExpiry time.Time) (*EventMember, error)

	// ListReminderDue returns invited rows whose expiry falls inside
	// (now, now+threshold] with no reminder sent and a future event start.
	ListReminderDue(ctx context.Context, now time.Time, threshold time.Duration, limit int) ([]*EventMember, error)
	// ClaimReminder re-validates eligibility and sets reminder_sent in
	// one transaction, before any message is sent. ErrAlreadyClaimed on a
	// lost race.
	ClaimReminder(ctx context.Context, eventID, homieID string, now time.Time) error

	// PromoteRandomListed promotes one uniformly random listed row to
	// invited inside a transaction. ErrNotFound when no candidate exists.
	PromoteRandomListed(ctx context.Context, eventID string, expiresAt time.Time) (*EventMember, error)
}
