// internal/domain/reminder/reminder.go
package reminder

import "time"

// Reminder is a scheduled text delivery to one recipient at one point in time.
// Corresponds to the '<prefix>reminders' table.
type Reminder struct {
	ID          int64
	RecipientID int64 // Telegram chat ID the text is delivered to
	Text        string
	ScheduledAt time.Time // normalized to the canonical timezone
	CreatedAt   time.Time
	IsSent      bool
	IsDeleted   bool // soft-delete: user cancellation or recipient deactivation
}

// Due reports whether the reminder should be delivered at the given instant.
// Overdue reminders from any point in the past are due; late delivery is
// preferred over silently dropping them.
func (r *Reminder) Due(now time.Time) bool {
	return !r.IsSent && !r.IsDeleted && !r.ScheduledAt.After(now)
}
