package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"homieplanner/internal/domain"
)

type eventRepository struct {
	DB *sql.DB
}

func NewEventRepository(db *sql.DB) domain.EventRepository {
	return &eventRepository{
		DB: db,
	}
}

// CreateWithMembers materializes a confirmed draft: the event row and every
// member row land in one transaction or not at all.
func (r *eventRepository) CreateWithMembers(ctx context.Context, e *domain.Event, members []*domain.EventMember) error {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	eventQuery := `
		INSERT INTO events (creator_id, creator_phone, location, starts_at, ends_at, max_participants, invite_policy, invite_note, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id
	`
	err = tx.QueryRowContext(ctx, eventQuery,
		e.CreatorID, e.CreatorPhone, e.Location, e.StartsAt, e.EndsAt,
		e.MaxParticipants, e.InvitePolicy, e.InviteNote, e.CreatedAt, e.UpdatedAt,
	).Scan(&e.ID)
	if err != nil {
		return fmt.Errorf("insert event: %w", err)
	}

	memberQuery := `
		INSERT INTO event_members (event_id, homie_id, status, priority_rank, invite_expires_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	for _, m := range members {
		m.EventID = e.ID
		_, err := tx.ExecContext(ctx, memberQuery,
			e.ID, m.HomieID, m.Status, m.PriorityRank, m.InviteExpiresAt, m.CreatedAt, m.UpdatedAt,
		)
		if err != nil {
			if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
				return domain.ErrDuplicateMember
			}
			return fmt.Errorf("insert event member: %w", err)
		}
	}

	return tx.Commit()
}

func (r *eventRepository) GetByID(ctx context.Context, id string) (*domain.Event, error) {
	query := `
		SELECT id, creator_id, creator_phone, location, starts_at, ends_at, max_participants, invite_policy, invite_note, created_at, updated_at
		FROM events
		WHERE id = $1
	`
	e := &domain.Event{}
	var noteNull sql.NullString
	err := r.DB.QueryRowContext(ctx, query, id).Scan(
		&e.ID, &e.CreatorID, &e.CreatorPhone, &e.Location, &e.StartsAt, &e.EndsAt,
		&e.MaxParticipants, &e.InvitePolicy, &noteNull, &e.CreatedAt, &e.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	if noteNull.Valid {
		e.InviteNote = &noteNull.String
	}
	return e, nil
}
