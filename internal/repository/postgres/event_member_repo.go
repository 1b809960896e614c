package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"homieplanner/internal/domain"
)

type eventMemberRepository struct {
	DB *sql.DB
}

func NewEventMemberRepository(db *sql.DB) domain.EventMemberRepository {
	return &eventMemberRepository{
		DB: db,
	}
}

const memberColumns = `m.event_id, m.homie_id, m.status, m.priority_rank, m.invite_expires_at, m.invite_timed_out, m.reminder_sent, m.created_at, m.updated_at, h.name, h.phone`

func scanMember(row interface {
	Scan(dest ...any) error
}) (*domain.EventMember, error) {
	m := &domain.EventMember{}
	var rank sql.NullInt64
	var expires sql.NullTime
	err := row.Scan(
		&m.EventID, &m.HomieID, &m.Status, &rank, &expires,
		&m.InviteTimedOut, &m.ReminderSent, &m.CreatedAt, &m.UpdatedAt,
		&m.HomieName, &m.HomiePhone,
	)
	if err != nil {
		return nil, err
	}
	if rank.Valid {
		v := int(rank.Int64)
		m.PriorityRank = &v
	}
	if expires.Valid {
		m.InviteExpiresAt = &expires.Time
	}
	return m, nil
}

func (r *eventMemberRepository) ListByEventID(ctx context.Context, eventID string) ([]*domain.EventMember, error) {
	query := `
		SELECT ` + memberColumns + `
		FROM event_members m
		JOIN homies h ON h.id = m.homie_id
		WHERE m.event_id = $1
		ORDER BY m.priority_rank ASC NULLS LAST, m.created_at ASC
	`
	rows, err := r.DB.QueryContext(ctx, query, eventID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	members := make([]*domain.EventMember, 0)
	for rows.Next() {
		m, err := scanMember(rows)
		if err != nil {
			return nil, err
		}
		members = append(members, m)
	}
	return members, rows.Err()
}

func (r *eventMemberRepository) CountByStatus(ctx context.Context, eventID string) (domain.StatusCounts, error) {
	query := `
		SELECT
			COUNT(*) FILTER (WHERE status = 'listed'),
			COUNT(*) FILTER (WHERE status = 'invited'),
			COUNT(*) FILTER (WHERE status = 'accepted'),
			COUNT(*) FILTER (WHERE status = 'declined')
		FROM event_members
		WHERE event_id = $1
	`
	var c domain.StatusCounts
	err := r.DB.QueryRowContext(ctx, query, eventID).Scan(&c.Listed, &c.Invited, &c.Accepted, &c.Declined)
	if err != nil {
		return domain.StatusCounts{}, err
	}
	return c, nil
}

func (r *eventMemberRepository) MarkInvited(ctx context.Context, eventID, homieID string, expiresAt time.Time) error {
	query := `
		UPDATE event_members
		SET status = 'invited', invite_expires_at = $3, updated_at = NOW()
		WHERE event_id = $1 AND homie_id = $2
	`
	result, err := r.DB.ExecContext(ctx, query, eventID, homieID, expiresAt)
	if err != nil {
		return err
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *eventMemberRepository) RevertToListed(ctx context.Context, eventID, homieID string) error {
	query := `
		UPDATE event_members
		SET status = 'listed', invite_expires_at = NULL, updated_at = NOW()
		WHERE event_id = $1 AND homie_id = $2 AND status = 'invited'
	`
	result, err := r.DB.ExecContext(ctx, query, eventID, homieID)
	if err != nil {
		return err
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *eventMemberRepository) SetStatus(ctx context.Context, eventID, homieID string, status domain.MemberStatus) error {
	query := `
		UPDATE event_members
		SET status = $3, updated_at = NOW()
		WHERE event_id = $1 AND homie_id = $2
	`
	result, err := r.DB.ExecContext(ctx, query, eventID, homieID, status)
	if err != nil {
		return err
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// ClaimAccept is the accept claim transaction. Locking the event row
// serializes replies to the same event, so the capacity count and the
// status flip are one atomic step: the second of two simultaneous
// accepts re-counts after the first commits and sees the event full.
func (r *eventMemberRepository) ClaimAccept(ctx context.Context, eventID, homieID string, capacity int) error {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	var lockedID string
	lockQuery := `SELECT id FROM events WHERE id = $1 FOR UPDATE`
	if err := tx.QueryRowContext(ctx, lockQuery, eventID).Scan(&lockedID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.ErrNotFound
		}
		return fmt.Errorf("lock event: %w", err)
	}

	var accepted int
	countQuery := `SELECT COUNT(*) FROM event_members WHERE event_id = $1 AND status = 'accepted'`
	if err := tx.QueryRowContext(ctx, countQuery, eventID).Scan(&accepted); err != nil {
		return fmt.Errorf("count accepted: %w", err)
	}
	if accepted >= capacity {
		return domain.ErrCapacityFull
	}

	acceptQuery := `
		UPDATE event_members
		SET status = 'accepted', updated_at = NOW()
		WHERE event_id = $1 AND homie_id = $2
	`
	result, err := tx.ExecContext(ctx, acceptQuery, eventID, homieID)
	if err != nil {
		return fmt.Errorf("set accepted: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return domain.ErrNotFound
	}

	return tx.Commit()
}

func (r *eventMemberRepository) FindActiveInviteByPhone(ctx context.Context, phone string) (*domain.EventMember, error) {
	query := `
		SELECT ` + memberColumns + `
		FROM event_members m
		JOIN homies h ON h.id = m.homie_id
		WHERE h.phone = $1 AND m.status = 'invited'
		ORDER BY m.updated_at DESC
		LIMIT 1
	`
	m, err := scanMember(r.DB.QueryRowContext(ctx, query, phone))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return m, nil
}

func (r *eventMemberRepository) ListExpiredInvites(ctx context.Context, now time.Time, limit int) ([]*domain.EventMember, error) {
	query := `
		SELECT ` + memberColumns + `
		FROM event_members m
		JOIN homies h ON h.id = m.homie_id
		WHERE m.status = 'invited' AND m.invite_timed_out = FALSE AND m.invite_expires_at < $1
		ORDER BY m.invite_expires_at ASC
		LIMIT $2
	`
	rows, err := r.DB.QueryContext(ctx, query, now, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	members := make([]*domain.EventMember, 0)
	for rows.Next() {
		m, err := scanMember(rows)
		if err != nil {
			return nil, err
		}
		members = append(members, m)
	}
	return members, rows.Err()
}

// ClaimTimeout is the timeout claim transaction. It re-reads the invited
// row under lock, re-verifies it is still expired and not yet timed out,
// flips invite_timed_out, and promotes the single best listed replacement
// before committing. A concurrent tick that got there first surfaces as
// ErrAlreadyClaimed; the caller no-ops.
func (r *eventMemberRepository) ClaimTimeout(ctx context.Context, eventID, homieID string, now time.Time, replacementExpiry time.Time) (*domain.EventMember, error) {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	var status domain.MemberStatus
	var timedOut bool
	var expires sql.NullTime
	reread := `
		SELECT status, invite_timed_out, invite_expires_at
		FROM event_members
		WHERE event_id = $1 AND homie_id = $2
		FOR UPDATE
	`
	err = tx.QueryRowContext(ctx, reread, eventID, homieID).Scan(&status, &timedOut, &expires)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("reread invite: %w", err)
	}
	// A fresh response or a concurrent tick may have landed between the
	// sweep select and this lock.
	if status != domain.StatusInvited || timedOut || !expires.Valid || !expires.Time.Before(now) {
		return nil, domain.ErrAlreadyClaimed
	}

	markQuery := `
		UPDATE event_members
		SET invite_timed_out = TRUE, updated_at = NOW()
		WHERE event_id = $1 AND homie_id = $2
	`
	if _, err := tx.ExecContext(ctx, markQuery, eventID, homieID); err != nil {
		return nil, fmt.Errorf("mark timed out: %w", err)
	}

	// Best replacement: highest priority first (nulls last), then oldest
	// row. SKIP LOCKED keeps two workers from promoting the same homie.
	pickQuery := `
		SELECT ` + memberColumns + `
		FROM event_members m
		JOIN homies h ON h.id = m.homie_id
		WHERE m.event_id = $1 AND m.status = 'listed'
		ORDER BY m.priority_rank ASC NULLS LAST, m.created_at ASC
		LIMIT 1
		FOR UPDATE OF m SKIP LOCKED
	`
	replacement, err := scanMember(tx.QueryRowContext(ctx, pickQuery, eventID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			// Nobody left to promote; the timeout mark still commits.
			if err := tx.Commit(); err != nil {
				return nil, fmt.Errorf("commit transaction: %w", err)
			}
			return nil, nil
		}
		return nil, fmt.Errorf("pick replacement: %w", err)
	}

	promoteQuery := `
		UPDATE event_members
		SET status = 'invited', invite_expires_at = $3, updated_at = NOW()
		WHERE event_id = $1 AND homie_id = $2
	`
	if _, err := tx.ExecContext(ctx, promoteQuery, eventID, replacement.HomieID, replacementExpiry); err != nil {
		return nil, fmt.Errorf("promote replacement: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit transaction: %w", err)
	}
	replacement.Status = domain.StatusInvited
	replacement.InviteExpiresAt = &replacementExpiry
	return replacement, nil
}

func (r *eventMemberRepository) ListReminderDue(ctx context.Context, now time.Time, threshold time.Duration, limit int) ([]*domain.EventMember, error) {
	query := `
		SELECT ` + memberColumns + `
		FROM event_members m
		JOIN homies h ON h.id = m.homie_id
		JOIN events e ON e.id = m.event_id
		WHERE m.status = 'invited'
		  AND m.invite_timed_out = FALSE
		  AND m.reminder_sent = FALSE
		  AND m.invite_expires_at > $1
		  AND m.invite_expires_at <= $2
		  AND e.starts_at > $1
		ORDER BY m.invite_expires_at ASC
		LIMIT $3
	`
	rows, err := r.DB.QueryContext(ctx, query, now, now.Add(threshold), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	members := make([]*domain.EventMember, 0)
	for rows.Next() {
		m, err := scanMember(rows)
		if err != nil {
			return nil, err
		}
		members = append(members, m)
	}
	return members, rows.Err()
}

// ClaimReminder flips reminder_sent inside the same transaction that
// re-validates eligibility. That ordering is the at-most-once guarantee:
// the message is only sent after this commits, and a duplicate tick sees
// reminder_sent already set.
func (r *eventMemberRepository) ClaimReminder(ctx context.Context, eventID, homieID string, now time.Time) error {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	var status domain.MemberStatus
	var timedOut, reminderSent bool
	var expires sql.NullTime
	var startsAt time.Time
	reread := `
		SELECT m.status, m.invite_timed_out, m.reminder_sent, m.invite_expires_at, e.starts_at
		FROM event_members m
		JOIN events e ON e.id = m.event_id
		WHERE m.event_id = $1 AND m.homie_id = $2
		FOR UPDATE OF m
	`
	err = tx.QueryRowContext(ctx, reread, eventID, homieID).Scan(&status, &timedOut, &reminderSent, &expires, &startsAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.ErrNotFound
		}
		return fmt.Errorf("reread invite: %w", err)
	}
	if status != domain.StatusInvited || timedOut || reminderSent ||
		!expires.Valid || !expires.Time.After(now) || !startsAt.After(now) {
		return domain.ErrAlreadyClaimed
	}

	claimQuery := `
		UPDATE event_members
		SET reminder_sent = TRUE, updated_at = NOW()
		WHERE event_id = $1 AND homie_id = $2
	`
	if _, err := tx.ExecContext(ctx, claimQuery, eventID, homieID); err != nil {
		return fmt.Errorf("claim reminder: %w", err)
	}

	return tx.Commit()
}

// PromoteRandomListed promotes one uniformly random listed row to invited.
// The pick and the promotion share a transaction so concurrent escalations
// cannot double-invite the same homie.
func (r *eventMemberRepository) PromoteRandomListed(ctx context.Context, eventID string, expiresAt time.Time) (*domain.EventMember, error) {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	pickQuery := `
		SELECT ` + memberColumns + `
		FROM event_members m
		JOIN homies h ON h.id = m.homie_id
		WHERE m.event_id = $1 AND m.status = 'listed'
		ORDER BY random()
		LIMIT 1
		FOR UPDATE OF m SKIP LOCKED
	`
	m, err := scanMember(tx.QueryRowContext(ctx, pickQuery, eventID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("pick candidate: %w", err)
	}

	promoteQuery := `
		UPDATE event_members
		SET status = 'invited', invite_expires_at = $3, updated_at = NOW()
		WHERE event_id = $1 AND homie_id = $2
	`
	if _, err := tx.ExecContext(ctx, promoteQuery, eventID, m.HomieID, expiresAt); err != nil {
		return nil, fmt.Errorf("promote candidate: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit transaction: %w", err)
	}
	m.Status = domain.StatusInvited
	m.InviteExpiresAt = &expiresAt
	return m, nil
}
