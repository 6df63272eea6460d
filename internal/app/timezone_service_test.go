package app

import (
	"context"
	"testing"
	"time"

	"reminder_notification_bot/internal/domain/reminder"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeConvertsNaiveUTCToCanonicalZone(t *testing.T) {
	// Rows stored without a zone tag are read back as UTC by convention.
	// A 09:00 UTC wall time reads 12:00 in UTC+3, the same instant.
	moscow := time.FixedZone("MSK", 3*60*60)
	stored, err := time.Parse("2006-01-02 15:04", "2025-03-10 09:00")
	require.NoError(t, err)

	corrected, needsRepair := Normalize(stored, moscow)
	assert.True(t, needsRepair)
	assert.Equal(t, "2025-03-10 12:00", corrected.Format("2006-01-02 15:04"))
	assert.True(t, corrected.Equal(stored), "repair must preserve the instant")
}

func TestNormalizeIsNoOpForCanonicalRows(t *testing.T) {
	moscow := time.FixedZone("MSK", 3*60*60)
	already := time.Date(2025, 3, 10, 12, 0, 0, 0, moscow)

	_, needsRepair := Normalize(already, moscow)
	assert.False(t, needsRepair)
}

func TestNormalizeAllRepairsActiveRows(t *testing.T) {
	moscow := time.FixedZone("MSK", 3*60*60)
	repo := newFakeReminderRepo()
	svc := NewTimezoneService(repo, moscow, testLogger())

	naive, err := time.Parse("2006-01-02 15:04", "2025-03-10 09:00")
	require.NoError(t, err)
	broken := addReminder(t, repo, 1, "naive row", naive)
	addReminder(t, repo, 2, "canonical row", time.Date(2025, 4, 1, 10, 0, 0, 0, moscow))

	repaired, err := svc.NormalizeAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, repaired)

	got := repo.get(broken.ID).ScheduledAt
	assert.Equal(t, "2025-03-10 12:00", got.Format("2006-01-02 15:04"))

	// A second pass over the same rows is a no-op.
	repaired, err = svc.NormalizeAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, repaired)
}

// instantOnlyRepo models the relational store: a TIMESTAMPTZ column keeps
// only the instant, and reads hand every timestamp out in the canonical
// zone. Representation never round-trips through the rows themselves.
type instantOnlyRepo struct {
	*fakeReminderRepo
	loc *time.Location
}

func (r *instantOnlyRepo) FixTimezone(ctx context.Context, id int64, corrected time.Time) (bool, error) {
	return r.fakeReminderRepo.FixTimezone(ctx, id, corrected.UTC())
}

func (r *instantOnlyRepo) ListActive(ctx context.Context) ([]*reminder.Reminder, error) {
	out, err := r.fakeReminderRepo.ListActive(ctx)
	for _, rem := range out {
		rem.ScheduledAt = rem.ScheduledAt.In(r.loc)
	}
	return out, err
}

func TestNormalizeAllConvergesWhenStoreKeepsOnlyInstants(t *testing.T) {
	moscow := time.FixedZone("MSK", 3*60*60)
	base := newFakeReminderRepo()
	repo := &instantOnlyRepo{fakeReminderRepo: base, loc: moscow}
	svc := NewTimezoneService(repo, moscow, testLogger())

	naive, err := time.Parse("2006-01-02 15:04", "2025-03-10 09:00")
	require.NoError(t, err)
	rem := addReminder(t, base, 1, "legacy row", naive)

	// Reads already present the canonical zone, so no pass rewrites a row.
	// Against a store that forgets representation, rewriting could never
	// converge: every pass would see the session zone again.
	for pass := 0; pass < 2; pass++ {
		repaired, err := svc.NormalizeAll(context.Background())
		require.NoError(t, err)
		assert.Equal(t, 0, repaired, "pass %d must not rewrite rows", pass+1)
	}
	assert.Equal(t, 0, base.fixTimezoneCalls)
	assert.True(t, base.get(rem.ID).ScheduledAt.Equal(naive), "the instant must not drift")
}

func TestNormalizeRecipientTouchesOnlyThatRecipient(t *testing.T) {
	moscow := time.FixedZone("MSK", 3*60*60)
	repo := newFakeReminderRepo()
	svc := NewTimezoneService(repo, moscow, testLogger())

	naive, err := time.Parse("2006-01-02 15:04", "2025-03-10 09:00")
	require.NoError(t, err)
	mine := addReminder(t, repo, 1, "mine", naive)
	theirs := addReminder(t, repo, 2, "theirs", naive)

	repaired, err := svc.NormalizeRecipient(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, 1, repaired)

	assert.Equal(t, "12:00", repo.get(mine.ID).ScheduledAt.Format("15:04"))
	assert.Equal(t, "09:00", repo.get(theirs.ID).ScheduledAt.Format("15:04"))
}
