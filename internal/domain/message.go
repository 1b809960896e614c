package domain

import (
	"context"
	"time"
)

// InboundMessage is a message received from the SMS gateway. DeliveryID is
// unique: gateway retries that redeliver the same message are deduped by a
// constraint on it.
type InboundMessage struct {
	ID         string    `json:"id"`
	DeliveryID string    `json:"delivery_id"`
	EventID    *string   `json:"event_id,omitempty"`
	HomieID    *string   `json:"homie_id,omitempty"`
	From       string    `json:"from"`
	Body       string    `json:"body"`
	ReceivedAt time.Time `json:"received_at"`
}

// InboundMessageRepository defines storage operations for inbound messages.
type InboundMessageRepository interface {
	// Create persists the message. Returns ErrDuplicateDelivery when the
	// delivery id was already recorded.
	Create(ctx context.Context, msg *InboundMessage) error
}

// Messenger sends outbound SMS (infrastructure port). Failures are logged
// by callers and never auto-retried; a sent message cannot be recalled.
type Messenger interface {
	Send(ctx context.Context, to, body string) (deliveryID string, err error)
}

// MessageRenderer renders outbound message text from a named template.
type MessageRenderer interface {
	Render(templateName string, data any) (string, error)
}
