package domain

import (
	"context"
	"time"
)

// Homie is an invitee contact managed by an event creator.
// swagger:model Homie
type Homie struct {
	ID        string    `json:"id"`
	OwnerID   string    `json:"owner_id"`
	Name      string    `json:"name"`
	Phone     string    `json:"phone"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// HomieRepository defines storage operations for homies.
type HomieRepository interface {
	Create(ctx context.Context, h *Homie) error
	GetByID(ctx context.Context, id string) (*Homie, error)
	ListByOwnerID(ctx context.Context, ownerID string) ([]*Homie, error)
}
