package domain

import (
	"context"
	"time"
)

// InvitePolicy controls how the invite plan is built for an event.
type InvitePolicy string

const (
	// PolicyExact invites only the creator-named set, no backfill.
	PolicyExact InvitePolicy = "exact"
	// PolicyPrioritized invites the named set first, then fills the
	// remaining capacity randomly from the pool.
	PolicyPrioritized InvitePolicy = "prioritized"
	// PolicyMaxOnly invites a random subset up to capacity.
	PolicyMaxOnly InvitePolicy = "max_only"
)

// Valid reports whether p is a known invite policy.
func (p InvitePolicy) Valid() bool {
	switch p {
	case PolicyExact, PolicyPrioritized, PolicyMaxOnly:
		return true
	}
	return false
}

// Event represents a planned hangout. MaxParticipants counts homies only,
// never the creator.
// swagger:model Event
type Event struct {
	ID              string       `json:"id"`
	CreatorID       string       `json:"creator_id"`
	CreatorPhone    string       `json:"creator_phone"`
	Location        string       `json:"location"`
	StartsAt        time.Time    `json:"starts_at"`
	EndsAt          time.Time    `json:"ends_at"`
	MaxParticipants int          `json:"max_participants"`
	InvitePolicy    InvitePolicy `json:"invite_policy"`
	InviteNote      *string      `json:"invite_note,omitempty"`
	CreatedAt       time.Time    `json:"created_at"`
	UpdatedAt       time.Time    `json:"updated_at"`
}

// EventRepository defines storage operations for events.
type EventRepository interface {
	// CreateWithMembers inserts the event and its initial member rows in
	// one transaction, so a confirmed draft materializes atomically.
	CreateWithMembers(ctx context.Context, event *Event, members []*EventMember) error
	GetByID(ctx context.Context, id string) (*Event, error)
}
