package domain

import "errors"

// Sentinel errors shared across repositories and services.
var (
	ErrNotFound          = errors.New("not found")
	ErrInvalidInput      = errors.New("invalid input")
	ErrForbidden         = errors.New("forbidden")
	ErrDuplicateMember   = errors.New("homie already on the event")
	ErrUnknownHomie      = errors.New("unknown homie")
	ErrCapacityFull      = errors.New("event is at capacity")
	ErrDuplicateDelivery = errors.New("inbound message already recorded")

	// ErrAlreadyClaimed is returned when a claim transaction loses the
	// race: another worker already timed out, reminded, or promoted the
	// row. Callers treat it as a silent no-op.
	ErrAlreadyClaimed = errors.New("row already claimed")
)
