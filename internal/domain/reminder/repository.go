// internal/domain/reminder/repository.go
package reminder

import (
	"context"
	"time"
)

// Repository defines storage operations for reminders. The reminder table is
// the sole source of truth for what is due; the scheduler only ever reads it
// through ListDue and writes it through MarkSent.
type Repository interface {
	// Create inserts an unsent reminder and fills in its generated ID and
	// CreatedAt.
	Create(ctx context.Context, r *Reminder) error

	// ListDue returns all unsent, undeleted reminders with scheduled_at at or
	// before now, earliest first (ties broken by id, so delivery order is
	// deterministic). Overdue rows from any point in the past are included.
	ListDue(ctx context.Context, now time.Time) ([]*Reminder, error)

	// ListByRecipient returns a recipient's reminders for "my reminders"
	// views. Sent reminders are included only when includeSent is set;
	// soft-deleted rows are never returned.
	ListByRecipient(ctx context.Context, recipientID int64, includeSent bool) ([]*Reminder, error)

	// MarkSent flips is_sent for an unsent reminder. Returns true iff a row
	// was updated; false means the id was unknown or the row was already
	// sent. Safe under concurrent calls for the same id: at most one caller
	// observes true.
	MarkSent(ctx context.Context, id int64) (bool, error)

	// FixTimezone rewrites scheduled_at for a single row. Used by the
	// timezone normalizer only.
	FixTimezone(ctx context.Context, id int64, corrected time.Time) (bool, error)

	// ListActive returns the full unsent, undeleted set, for diagnostics and
	// for the normalizer's repair scan.
	ListActive(ctx context.Context) ([]*Reminder, error)

	// Cancel soft-deletes an unsent reminder owned by recipientID. Returns
	// true iff a row was flagged.
	Cancel(ctx context.Context, id int64, recipientID int64) (bool, error)

	// CancelAllForRecipient soft-deletes every pending reminder of one
	// recipient and returns the number of rows flagged. Used when a
	// recipient is deemed unreachable.
	CancelAllForRecipient(ctx context.Context, recipientID int64) (int64, error)
}
