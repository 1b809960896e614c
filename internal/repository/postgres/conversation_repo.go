package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"homieplanner/internal/domain"
)

type conversationRepository struct {
	DB *sql.DB
}

func NewConversationRepository(db *sql.DB) domain.ConversationRepository {
	return &conversationRepository{
		DB: db,
	}
}

func (r *conversationRepository) GetByPhone(ctx context.Context, phone string) (*domain.Conversation, error) {
	query := `
		SELECT id, user_id, phone, draft, updated_at
		FROM conversations
		WHERE phone = $1
	`
	conv := &domain.Conversation{}
	var draftJSON []byte
	err := r.DB.QueryRowContext(ctx, query, phone).Scan(
		&conv.ID, &conv.UserID, &conv.Phone, &draftJSON, &conv.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	// Unknown keys from older writers are dropped by the decode, never
	// rejected.
	if len(draftJSON) > 0 {
		if err := json.Unmarshal(draftJSON, &conv.Draft); err != nil {
			return nil, fmt.Errorf("decode draft state: %w", err)
		}
	}
	if conv.Draft.Phase == "" {
		conv.Draft.Phase = domain.PhaseIdle
	}
	return conv, nil
}

func (r *conversationRepository) Save(ctx context.Context, conv *domain.Conversation) error {
	draftJSON, err := json.Marshal(conv.Draft)
	if err != nil {
		return fmt.Errorf("encode draft state: %w", err)
	}
	if conv.ID == "" {
		query := `
			INSERT INTO conversations (user_id, phone, draft, updated_at)
			VALUES ($1, $2, $3, NOW())
			RETURNING id
		`
		return r.DB.QueryRowContext(ctx, query, conv.UserID, conv.Phone, draftJSON).Scan(&conv.ID)
	}
	query := `
		UPDATE conversations
		SET draft = $2, updated_at = NOW()
		WHERE id = $1
	`
	result, err := r.DB.ExecContext(ctx, query, conv.ID, draftJSON)
	if err != nil {
		return err
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return domain.ErrNotFound
	}
	return nil
}
