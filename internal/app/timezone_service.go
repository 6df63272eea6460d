// internal/app/timezone_service.go
package app

import (
	"context"
	"fmt"
	"time"

	"reminder_notification_bot/internal/domain/reminder"

	"github.com/sirupsen/logrus"
)

// TimezoneService repairs reminders whose scheduled_at does not carry the
// canonical zone. Legacy rows stored without a zone are read back as UTC by
// convention, so every conversion here is instant-preserving; the repair
// only rewrites the representation. Reconverting an already-correct row is a
// no-op, which makes the whole pass idempotent.
type TimezoneService struct {
	repo   reminder.Repository
	loc    *time.Location
	logger *logrus.Entry
}

func NewTimezoneService(repo reminder.Repository, loc *time.Location, logger *logrus.Entry) *TimezoneService {
	return &TimezoneService{repo: repo, loc: loc, logger: logger}
}

// NormalizeAll repairs every active reminder and returns the number of rows
// rewritten.
func (s *TimezoneService) NormalizeAll(ctx context.Context) (int, error) {
	active, err := s.repo.ListActive(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to list active reminders for normalization: %w", err)
	}
	return s.normalize(ctx, active)
}

// NormalizeRecipient repairs a single recipient's pending reminders.
func (s *TimezoneService) NormalizeRecipient(ctx context.Context, recipientID int64) (int, error) {
	reminders, err := s.repo.ListByRecipient(ctx, recipientID, false)
	if err != nil {
		return 0, fmt.Errorf("failed to list reminders of recipient %d for normalization: %w", recipientID, err)
	}
	return s.normalize(ctx, reminders)
}

func (s *TimezoneService) normalize(ctx context.Context, reminders []*reminder.Reminder) (int, error) {
	repaired := 0
	for _, rem := range reminders {
		corrected, ok := Normalize(rem.ScheduledAt, s.loc)
		if !ok {
			continue
		}
		updated, err := s.repo.FixTimezone(ctx, rem.ID, corrected)
		if err != nil {
			s.logger.WithError(err).WithField("reminder_id", rem.ID).Error("Failed to fix reminder timezone")
			continue
		}
		if updated {
			repaired++
			s.logger.WithFields(logrus.Fields{
				"reminder_id": rem.ID,
				"was":         rem.ScheduledAt.Format(time.RFC3339),
				"now":         corrected.Format(time.RFC3339),
			}).Info("Repaired reminder timezone")
		}
	}
	return repaired, nil
}

// Normalize returns the canonical-zone representation of t and whether a
// rewrite is needed. No rewrite is needed when t's offset already matches
// the canonical zone's offset at that instant.
func Normalize(t time.Time, loc *time.Location) (time.Time, bool) {
	corrected := t.In(loc)
	_, haveOffset := t.Zone()
	_, wantOffset := corrected.Zone()
	if haveOffset == wantOffset {
		return corrected, false
	}
	return corrected, true
}
