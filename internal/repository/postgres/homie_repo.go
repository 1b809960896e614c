package postgres

import (
	"context"
	"database/sql"
	"errors"

	"homieplanner/internal/domain"
)

type homieRepository struct {
	DB *sql.DB
}

func NewHomieRepository(db *sql.DB) domain.HomieRepository {
	return &homieRepository{
		DB: db,
	}
}

func (r *homieRepository) Create(ctx context.Context, h *domain.Homie) error {
	query := `
		INSERT INTO homies (owner_id, name, phone, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`
	return r.DB.QueryRowContext(ctx, query, h.OwnerID, h.Name, h.Phone, h.CreatedAt, h.UpdatedAt).Scan(&h.ID)
}

func (r *homieRepository) GetByID(ctx context.Context, id string) (*domain.Homie, error) {
	query := `
		SELECT id, owner_id, name, phone, created_at, updated_at
		FROM homies
		WHERE id = $1
	`
	h := &domain.Homie{}
	err := r.DB.QueryRowContext(ctx, query, id).Scan(
		&h.ID, &h.OwnerID, &h.Name, &h.Phone, &h.CreatedAt, &h.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return h, nil
}

func (r *homieRepository) ListByOwnerID(ctx context.Context, ownerID string) ([]*domain.Homie, error) {
	query := `
		SELECT id, owner_id, name, phone, created_at, updated_at
		FROM homies
		WHERE owner_id = $1
		ORDER BY name
	`
	rows, err := r.DB.QueryContext(ctx, query, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	homies := make([]*domain.Homie, 0)
	for rows.Next() {
		h := &domain.Homie{}
		if err := rows.Scan(&h.ID, &h.OwnerID, &h.Name, &h.Phone, &h.CreatedAt, &h.UpdatedAt); err != nil {
			return nil, err
		}
		homies = append(homies, h)
	}
	return homies, rows.Err()
}
