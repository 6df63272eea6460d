// internal/app/dispatch_service.go
package app

import (
	"context"
	"fmt"
	"time"

	"reminder_notification_bot/internal/domain/reminder"
	domainTelegram "reminder_notification_bot/internal/domain/telegram"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gopkg.in/telebot.v3"
)

// reminderPrefix wraps delivered texts with a bell marker. Purely
// presentational.
const reminderPrefix = "🔔 "

// defaultUnreachableLimit is how many consecutive unreachable failures one
// recipient may accumulate before their pending reminders are deactivated.
const defaultUnreachableLimit = 3

// DispatchService delivers due reminders: query the store, send each item,
// mark it sent. One failed item never aborts the batch; the failed reminder
// simply stays due and is retried on the next minute boundary.
type DispatchService struct {
	repo            reminder.Repository
	logger          *logrus.Entry
	dispatchTimeout time.Duration

	// Consecutive unreachable counts per recipient, process-lifetime only.
	// Reset on any successful delivery to that recipient.
	unreachableCounts map[int64]int
	unreachableLimit  int
}

func NewDispatchService(repo reminder.Repository, logger *logrus.Entry, dispatchTimeout time.Duration) *DispatchService {
	return &DispatchService{
		repo:              repo,
		logger:            logger,
		dispatchTimeout:   dispatchTimeout,
		unreachableCounts: make(map[int64]int),
		unreachableLimit:  defaultUnreachableLimit,
	}
}

// DispatchDue runs one Checking phase: every reminder due at 'now' is
// delivered through the given sender, in scheduled_at order. Only a failed
// due-query is reported as an error; per-item failures are logged and
// isolated.
func (s *DispatchService) DispatchDue(ctx context.Context, sender domainTelegram.Client, now time.Time) error {
	batchLogger := s.logger.WithField("batch_id", uuid.NewString())

	due, err := s.repo.ListDue(ctx, now)
	if err != nil {
		return fmt.Errorf("failed to query due reminders: %w", err)
	}
	if len(due) == 0 {
		batchLogger.Debug("No due reminders")
		return nil
	}
	batchLogger.WithField("count", len(due)).Info("Dispatching due reminders")

	for _, rem := range due {
		s.dispatchOne(ctx, sender, batchLogger, rem)
	}
	return nil
}

func (s *DispatchService) dispatchOne(ctx context.Context, sender domainTelegram.Client, batchLogger *logrus.Entry, rem *reminder.Reminder) {
	itemLogger := batchLogger.WithFields(logrus.Fields{
		"reminder_id":  rem.ID,
		"recipient_id": rem.RecipientID,
	})

	err := s.sendBounded(ctx, sender, rem.RecipientID, reminderPrefix+rem.Text)
	if err != nil {
		itemLogger.WithError(err).Error("Failed to deliver reminder; it stays due for the next cycle")
		if domainTelegram.IsUnreachable(err) {
			s.noteUnreachable(ctx, itemLogger, rem.RecipientID)
		}
		return
	}

	delete(s.unreachableCounts, rem.RecipientID)

	marked, err := s.repo.MarkSent(ctx, rem.ID)
	if err != nil {
		itemLogger.WithError(err).Error("Delivered but failed to mark sent; reminder may be re-delivered")
		return
	}
	if !marked {
		itemLogger.Warn("Reminder was already marked sent by a concurrent marker")
		return
	}
	itemLogger.Info("Reminder delivered and marked sent")
}

// sendBounded wraps a send in the dispatch timeout so a hung transport cannot
// stall the once-per-minute cadence. Expiry surfaces as a DeliveryError.
func (s *DispatchService) sendBounded(ctx context.Context, sender domainTelegram.Client, recipientID int64, text string) error {
	sendCtx, cancel := context.WithTimeout(ctx, s.dispatchTimeout)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- sender.SendMessage(recipientID, text, &telebot.SendOptions{})
	}()

	select {
	case err := <-done:
		return err
	case <-sendCtx.Done():
		return &domainTelegram.DeliveryError{
			Reason:      domainTelegram.ReasonTimeout,
			RecipientID: recipientID,
			Err:         sendCtx.Err(),
		}
	}
}

// noteUnreachable applies the deactivation policy: after unreachableLimit
// consecutive unreachable failures, all pending reminders of that recipient
// are soft-deleted. The rows remain in the store, flagged, rather than being
// silently dropped or retried forever.
func (s *DispatchService) noteUnreachable(ctx context.Context, itemLogger *logrus.Entry, recipientID int64) {
	s.unreachableCounts[recipientID]++
	count := s.unreachableCounts[recipientID]
	if count < s.unreachableLimit {
		itemLogger.WithField("consecutive_failures", count).Warn("Recipient unreachable")
		return
	}

	cancelled, err := s.repo.CancelAllForRecipient(ctx, recipientID)
	if err != nil {
		itemLogger.WithError(err).Error("Failed to deactivate unreachable recipient's reminders")
		return
	}
	delete(s.unreachableCounts, recipientID)
	itemLogger.WithField("cancelled", cancelled).Warn("Recipient unreachable repeatedly; pending reminders deactivated")
}
