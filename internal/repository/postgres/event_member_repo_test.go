package postgres

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"homieplanner/internal/domain"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"
)

var memberTestColumns = []string{
	"event_id", "homie_id", "status", "priority_rank", "invite_expires_at",
	"invite_timed_out", "reminder_sent", "created_at", "updated_at", "name", "phone",
}

func TestEventMemberRepository_ClaimTimeout(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 3, 7, 12, 0, 0, 0, time.UTC)
	expired := now.Add(-time.Minute)
	newExpiry := now.Add(4 * time.Hour)
	createdAt := now.Add(-24 * time.Hour)

	t.Run("promotes best listed replacement", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		mock.ExpectBegin()
		mock.ExpectQuery(`SELECT status, invite_timed_out, invite_expires_at`).
			WithArgs("ev-1", "h-alice").
			WillReturnRows(sqlmock.NewRows([]string{"status", "invite_timed_out", "invite_expires_at"}).
				AddRow("invited", false, expired))
		mock.ExpectExec(`UPDATE event_members`).
			WithArgs("ev-1", "h-alice").
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectQuery(`SELECT m.event_id, m.homie_id`).
			WithArgs("ev-1").
			WillReturnRows(sqlmock.NewRows(memberTestColumns).
				AddRow("ev-1", "h-bob", "listed", 0, nil, false, false, createdAt, createdAt, "Bob", "+15550000002"))
		mock.ExpectExec(`UPDATE event_members`).
			WithArgs("ev-1", "h-bob", newExpiry).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		repo := NewEventMemberRepository(db)
		replacement, err := repo.ClaimTimeout(ctx, "ev-1", "h-alice", now, newExpiry)
		require.NoError(t, err)
		require.NotNil(t, replacement)
		require.Equal(t, "h-bob", replacement.HomieID)
		require.Equal(t, domain.StatusInvited, replacement.Status)
		require.NotNil(t, replacement.InviteExpiresAt)
		require.Equal(t, newExpiry, *replacement.InviteExpiresAt)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("no replacement left still commits the mark", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		mock.ExpectBegin()
		mock.ExpectQuery(`SELECT status, invite_timed_out, invite_expires_at`).
			WithArgs("ev-1", "h-alice").
			WillReturnRows(sqlmock.NewRows([]string{"status", "invite_timed_out", "invite_expires_at"}).
				AddRow("invited", false, expired))
		mock.ExpectExec(`UPDATE event_members`).
			WithArgs("ev-1", "h-alice").
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectQuery(`SELECT m.event_id, m.homie_id`).
			WithArgs("ev-1").
			WillReturnRows(sqlmock.NewRows(memberTestColumns))
		mock.ExpectCommit()

		repo := NewEventMemberRepository(db)
		replacement, err := repo.ClaimTimeout(ctx, "ev-1", "h-alice", now, newExpiry)
		require.NoError(t, err)
		require.Nil(t, replacement)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	// The sweep saw an expired invite, but by the time the row is locked the
	// invitee has answered. The claim must lose without side effects.
	t.Run("late reply wins the claim", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		mock.ExpectBegin()
		mock.ExpectQuery(`SELECT status, invite_timed_out, invite_expires_at`).
			WithArgs("ev-1", "h-alice").
			WillReturnRows(sqlmock.NewRows([]string{"status", "invite_timed_out", "invite_expires_at"}).
				AddRow("accepted", false, expired))
		mock.ExpectRollback()

		repo := NewEventMemberRepository(db)
		replacement, err := repo.ClaimTimeout(ctx, "ev-1", "h-alice", now, newExpiry)
		require.ErrorIs(t, err, domain.ErrAlreadyClaimed)
		require.Nil(t, replacement)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("concurrent tick already marked the row", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		mock.ExpectBegin()
		mock.ExpectQuery(`SELECT status, invite_timed_out, invite_expires_at`).
			WithArgs("ev-1", "h-alice").
			WillReturnRows(sqlmock.NewRows([]string{"status", "invite_timed_out", "invite_expires_at"}).
				AddRow("invited", true, expired))
		mock.ExpectRollback()

		repo := NewEventMemberRepository(db)
		_, err = repo.ClaimTimeout(ctx, "ev-1", "h-alice", now, newExpiry)
		require.ErrorIs(t, err, domain.ErrAlreadyClaimed)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("row gone", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		mock.ExpectBegin()
		mock.ExpectQuery(`SELECT status, invite_timed_out, invite_expires_at`).
			WithArgs("ev-1", "h-missing").
			WillReturnError(sql.ErrNoRows)
		mock.ExpectRollback()

		repo := NewEventMemberRepository(db)
		_, err = repo.ClaimTimeout(ctx, "ev-1", "h-missing", now, newExpiry)
		require.ErrorIs(t, err, domain.ErrNotFound)
		require.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestEventMemberRepository_ClaimAccept(t *testing.T) {
	ctx := context.Background()

	t.Run("accepts while room remains", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		mock.ExpectBegin()
		mock.ExpectQuery(`SELECT id FROM events`).
			WithArgs("ev-1").
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("ev-1"))
		mock.ExpectQuery(`SELECT COUNT\(\*\) FROM event_members`).
			WithArgs("ev-1").
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(2))
		mock.ExpectExec(`UPDATE event_members`).
			WithArgs("ev-1", "h-alice").
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		repo := NewEventMemberRepository(db)
		require.NoError(t, repo.ClaimAccept(ctx, "ev-1", "h-alice", 3))
		require.NoError(t, mock.ExpectationsWereMet())
	})

	// The count runs after the event-row lock, so a reply that lost the
	// lock race sees the winner's accept and must not write its own.
	t.Run("full event rejects without writing", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		mock.ExpectBegin()
		mock.ExpectQuery(`SELECT id FROM events`).
			WithArgs("ev-1").
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("ev-1"))
		mock.ExpectQuery(`SELECT COUNT\(\*\) FROM event_members`).
			WithArgs("ev-1").
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
		mock.ExpectRollback()

		repo := NewEventMemberRepository(db)
		err = repo.ClaimAccept(ctx, "ev-1", "h-bob", 1)
		require.ErrorIs(t, err, domain.ErrCapacityFull)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("event gone", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		mock.ExpectBegin()
		mock.ExpectQuery(`SELECT id FROM events`).
			WithArgs("ev-missing").
			WillReturnError(sql.ErrNoRows)
		mock.ExpectRollback()

		repo := NewEventMemberRepository(db)
		err = repo.ClaimAccept(ctx, "ev-missing", "h-alice", 3)
		require.ErrorIs(t, err, domain.ErrNotFound)
		require.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestEventMemberRepository_ClaimReminder(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 3, 7, 12, 0, 0, 0, time.UTC)
	expiresSoon := now.Add(30 * time.Minute)
	startsLater := now.Add(24 * time.Hour)
	reminderRereadColumns := []string{"status", "invite_timed_out", "reminder_sent", "invite_expires_at", "starts_at"}

	t.Run("claims once", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		mock.ExpectBegin()
		mock.ExpectQuery(`SELECT m.status, m.invite_timed_out, m.reminder_sent, m.invite_expires_at, e.starts_at`).
			WithArgs("ev-1", "h-alice").
			WillReturnRows(sqlmock.NewRows(reminderRereadColumns).
				AddRow("invited", false, false, expiresSoon, startsLater))
		mock.ExpectExec(`UPDATE event_members`).
			WithArgs("ev-1", "h-alice").
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		repo := NewEventMemberRepository(db)
		require.NoError(t, repo.ClaimReminder(ctx, "ev-1", "h-alice", now))
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("already sent", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		mock.ExpectBegin()
		mock.ExpectQuery(`SELECT m.status, m.invite_timed_out, m.reminder_sent, m.invite_expires_at, e.starts_at`).
			WithArgs("ev-1", "h-alice").
			WillReturnRows(sqlmock.NewRows(reminderRereadColumns).
				AddRow("invited", false, true, expiresSoon, startsLater))
		mock.ExpectRollback()

		repo := NewEventMemberRepository(db)
		err = repo.ClaimReminder(ctx, "ev-1", "h-alice", now)
		require.ErrorIs(t, err, domain.ErrAlreadyClaimed)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("expiry already passed", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		mock.ExpectBegin()
		mock.ExpectQuery(`SELECT m.status, m.invite_timed_out, m.reminder_sent, m.invite_expires_at, e.starts_at`).
			WithArgs("ev-1", "h-alice").
			WillReturnRows(sqlmock.NewRows(reminderRereadColumns).
				AddRow("invited", false, false, now.Add(-time.Minute), startsLater))
		mock.ExpectRollback()

		repo := NewEventMemberRepository(db)
		err = repo.ClaimReminder(ctx, "ev-1", "h-alice", now)
		require.ErrorIs(t, err, domain.ErrAlreadyClaimed)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	// Expiry can outlive the event itself when the TTL crosses the start.
	// No reminder for a hangout that already began.
	t.Run("event already started", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		mock.ExpectBegin()
		mock.ExpectQuery(`SELECT m.status, m.invite_timed_out, m.reminder_sent, m.invite_expires_at, e.starts_at`).
			WithArgs("ev-1", "h-alice").
			WillReturnRows(sqlmock.NewRows(reminderRereadColumns).
				AddRow("invited", false, false, expiresSoon, now.Add(-time.Hour)))
		mock.ExpectRollback()

		repo := NewEventMemberRepository(db)
		err = repo.ClaimReminder(ctx, "ev-1", "h-alice", now)
		require.ErrorIs(t, err, domain.ErrAlreadyClaimed)
		require.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestEventMemberRepository_FindActiveInviteByPhone(t *testing.T) {
	ctx := context.Background()
	createdAt := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	t.Run("found", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		mock.ExpectQuery(`SELECT m.event_id, m.homie_id`).
			WithArgs("+15550000002").
			WillReturnRows(sqlmock.NewRows(memberTestColumns).
				AddRow("ev-1", "h-bob", "invited", nil, createdAt.Add(4*time.Hour), false, false, createdAt, createdAt, "Bob", "+15550000002"))

		repo := NewEventMemberRepository(db)
		m, err := repo.FindActiveInviteByPhone(ctx, "+15550000002")
		require.NoError(t, err)
		require.Equal(t, "ev-1", m.EventID)
		require.Equal(t, "h-bob", m.HomieID)
		require.Nil(t, m.PriorityRank)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("no active invite", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		mock.ExpectQuery(`SELECT m.event_id, m.homie_id`).
			WithArgs("+15559999999").
			WillReturnError(sql.ErrNoRows)

		repo := NewEventMemberRepository(db)
		m, err := repo.FindActiveInviteByPhone(ctx, "+15559999999")
		require.ErrorIs(t, err, domain.ErrNotFound)
		require.Nil(t, m)
		require.NoError(t, mock.ExpectationsWereMet())
	})
}
