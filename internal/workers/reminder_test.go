package workers

import (
	"context"
	"testing"
	"time"

	"homieplanner/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func reminderFixture(members *fakeMemberRepo, events *fakeEventRepo, now time.Time) (*ReminderSweeper, *fakeMessenger) {
	messenger := &fakeMessenger{}
	w := NewReminderSweeper(events, members, messenger, fakeRenderer{}, time.Hour, 50, testLogger())
	w.now = func() time.Time { return now }
	return w, messenger
}

func TestReminderSweeper_SendsOnceWithinThreshold(t *testing.T) {
	now := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
	members := &fakeMemberRepo{members: []*domain.EventMember{
		invitedMember("ev-1", "alice", now.Add(30*time.Minute)), // inside threshold
		invitedMember("ev-1", "bob", now.Add(3*time.Hour)),      // not yet
	}}
	events := newFakeEventRepo(&domain.Event{ID: "ev-1", Location: "the park", StartsAt: now.Add(24 * time.Hour)})
	w, messenger := reminderFixture(members, events, now)

	require.NoError(t, w.Sweep(context.Background()))

	require.Len(t, messenger.sent, 1)
	assert.Equal(t, "+1555alice", messenger.sent[0].To)
	assert.Equal(t, "reminder", messenger.sent[0].Body)
	assert.True(t, members.find("ev-1", "alice").ReminderSent)
	assert.False(t, members.find("ev-1", "bob").ReminderSent)

	// At most one reminder per invite, no matter how often it sweeps.
	require.NoError(t, w.Sweep(context.Background()))
	assert.Len(t, messenger.sent, 1)
}

func TestReminderSweeper_SkipsExpiredInvites(t *testing.T) {
	now := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
	members := &fakeMemberRepo{members: []*domain.EventMember{
		invitedMember("ev-1", "alice", now.Add(-time.Minute)),
	}}
	events := newFakeEventRepo(&domain.Event{ID: "ev-1", StartsAt: now.Add(24 * time.Hour)})
	w, messenger := reminderFixture(members, events, now)

	require.NoError(t, w.Sweep(context.Background()))

	// Past-expiry invites belong to the timeout sweep, not a reminder.
	assert.Empty(t, messenger.sent)
	assert.False(t, members.find("ev-1", "alice").ReminderSent)
}

func TestReminderSweeper_LostClaimSendsNothing(t *testing.T) {
	now := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
	alice := invitedMember("ev-1", "alice", now.Add(30*time.Minute))
	alice.ReminderSent = true // another instance claimed it first
	inner := &fakeMemberRepo{members: []*domain.EventMember{alice}}
	members := &racingReminderRepo{fakeMemberRepo: inner}
	events := newFakeEventRepo(&domain.Event{ID: "ev-1", StartsAt: now.Add(24 * time.Hour)})
	messenger := &fakeMessenger{}
	w := NewReminderSweeper(events, members, messenger, fakeRenderer{}, time.Hour, 50, testLogger())
	w.now = func() time.Time { return now }

	require.NoError(t, w.Sweep(context.Background()))
	assert.Empty(t, messenger.sent)
}

// racingReminderRepo reports the row as due even though it was already
// claimed, forcing the ClaimReminder re-validation to decide.
type racingReminderRepo struct {
	*fakeMemberRepo
}

func (r *racingReminderRepo) ListReminderDue(ctx context.Context, now time.Time, threshold time.Duration, limit int) ([]*domain.EventMember, error) {
	return r.fakeMemberRepo.members, nil
}
