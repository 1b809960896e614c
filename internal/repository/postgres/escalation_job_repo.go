package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/lib/pq"

	"homieplanner/internal/domain"
)

type escalationJobRepository struct {
	DB *sql.DB
}

func NewEscalationJobRepository(db *sql.DB) domain.EscalationJobRepository {
	return &escalationJobRepository{
		DB: db,
	}
}

// Schedule upserts the single job row an event may hold. Rescheduling an
// event that already has a pending job just moves its run time.
func (r *escalationJobRepository) Schedule(ctx context.Context, eventID string, runAt time.Time) error {
	query := `
		INSERT INTO escalation_jobs (event_id, run_at, created_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (event_id) DO UPDATE SET run_at = EXCLUDED.run_at
	`
	_, err := r.DB.ExecContext(ctx, query, eventID, runAt)
	if err != nil {
		return fmt.Errorf("schedule escalation: %w", err)
	}
	return nil
}

func (r *escalationJobRepository) Cancel(ctx context.Context, eventID string) error {
	query := `DELETE FROM escalation_jobs WHERE event_id = $1`
	_, err := r.DB.ExecContext(ctx, query, eventID)
	return err
}

// ClaimDue removes up to limit due jobs and returns their event ids. The
// delete and the pick share a transaction with SKIP LOCKED, so overlapping
// sweep ticks divide the due set instead of double-claiming it.
func (r *escalationJobRepository) ClaimDue(ctx context.Context, now time.Time, limit int) ([]string, error) {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	pickQuery := `
		SELECT event_id
		FROM escalation_jobs
		WHERE run_at <= $1
		ORDER BY run_at ASC
		LIMIT $2
		FOR UPDATE SKIP LOCKED
	`
	rows, err := tx.QueryContext(ctx, pickQuery, now, limit)
	if err != nil {
		return nil, fmt.Errorf("select due jobs: %w", err)
	}
	eventIDs := make([]string, 0)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return nil, err
		}
		eventIDs = append(eventIDs, id)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	rows.Close()

	deleteQuery := `DELETE FROM escalation_jobs WHERE event_id = ANY($1)`
	if len(eventIDs) > 0 {
		if _, err := tx.ExecContext(ctx, deleteQuery, pq.Array(eventIDs)); err != nil {
			return nil, fmt.Errorf("delete claimed jobs: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit transaction: %w", err)
	}
	return eventIDs, nil
}
