package postgres

import (
	"context"
	"database/sql"

	"github.com/lib/pq"

	"homieplanner/internal/domain"
)

type inboundMessageRepository struct {
	DB *sql.DB
}

func NewInboundMessageRepository(db *sql.DB) domain.InboundMessageRepository {
	return &inboundMessageRepository{
		DB: db,
	}
}

// Create persists an inbound message. The unique constraint on delivery_id
// is the dedupe for gateway redeliveries: a second insert of the same
// delivery surfaces as ErrDuplicateDelivery.
func (r *inboundMessageRepository) Create(ctx context.Context, msg *domain.InboundMessage) error {
	query := `
		INSERT INTO inbound_messages (delivery_id, event_id, homie_id, sender, body, received_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`
	err := r.DB.QueryRowContext(ctx, query,
		msg.DeliveryID, msg.EventID, msg.HomieID, msg.From, msg.Body, msg.ReceivedAt,
	).Scan(&msg.ID)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
			return domain.ErrDuplicateDelivery
		}
		return err
	}
	return nil
}
