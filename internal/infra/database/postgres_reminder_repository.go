// internal/infra/database/postgres_reminder_repository.go
package database

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"net"
	"time"

	"reminder_notification_bot/internal/domain/reminder"
)

const storeRetryAttempts = 3

// storeRetryDelay is a variable so tests can shorten the wait.
var storeRetryDelay = time.Second

// PostgresReminderRepository implements reminder.Repository on top of a
// shared *sql.DB pool. Every operation is a single statement on a
// per-statement connection, so no lock is held across waits.
//
// The scheduled_at column is TIMESTAMPTZ, which persists only the instant;
// rows come back from the driver in the server session zone. Scanning
// converts every timestamp to the canonical zone, so times leave the store
// in exactly one representation no matter what the session zone is.
type PostgresReminderRepository struct {
	db    *sql.DB
	table string
	loc   *time.Location
}

// NewPostgresReminderRepository builds a repository over the '<prefix>reminders'
// table, presenting all timestamps in loc.
func NewPostgresReminderRepository(db *sql.DB, tablePrefix string, loc *time.Location) *PostgresReminderRepository {
	return &PostgresReminderRepository{db: db, table: tablePrefix + "reminders", loc: loc}
}

func (r *PostgresReminderRepository) Create(ctx context.Context, rem *reminder.Reminder) error {
	query := fmt.Sprintf(`INSERT INTO %s (recipient_id, text, scheduled_at)
               VALUES ($1, $2, $3)
               RETURNING id, created_at`, r.table)
	err := withStoreRetry(ctx, func() error {
		return r.db.QueryRowContext(ctx, query, rem.RecipientID, rem.Text, rem.ScheduledAt).Scan(&rem.ID, &rem.CreatedAt)
	})
	if err != nil {
		return fmt.Errorf("error creating reminder: %w", storeErr(err))
	}
	rem.CreatedAt = rem.CreatedAt.In(r.loc)
	return nil
}

func (r *PostgresReminderRepository) ListDue(ctx context.Context, now time.Time) ([]*reminder.Reminder, error) {
	query := fmt.Sprintf(`SELECT id, recipient_id, text, scheduled_at, created_at, is_sent, is_deleted
               FROM %s
               WHERE is_sent = FALSE AND is_deleted = FALSE AND scheduled_at <= $1
               ORDER BY scheduled_at ASC, id ASC`, r.table)
	out, err := r.queryReminders(ctx, query, now)
	if err != nil {
		return nil, fmt.Errorf("error querying due reminders: %w", storeErr(err))
	}
	return out, nil
}

func (r *PostgresReminderRepository) ListByRecipient(ctx context.Context, recipientID int64, includeSent bool) ([]*reminder.Reminder, error) {
	query := fmt.Sprintf(`SELECT id, recipient_id, text, scheduled_at, created_at, is_sent, is_deleted
               FROM %s
               WHERE recipient_id = $1 AND is_deleted = FALSE AND (is_sent = FALSE OR $2)
               ORDER BY scheduled_at ASC, id ASC`, r.table)
	out, err := r.queryReminders(ctx, query, recipientID, includeSent)
	if err != nil {
		return nil, fmt.Errorf("error querying reminders by recipient: %w", storeErr(err))
	}
	return out, nil
}

// MarkSent performs the false→true transition as one guarded UPDATE, so two
// concurrent callers for the same id cannot both observe true.
func (r *PostgresReminderRepository) MarkSent(ctx context.Context, id int64) (bool, error) {
	query := fmt.Sprintf(`UPDATE %s SET is_sent = TRUE
               WHERE id = $1 AND is_sent = FALSE`, r.table)
	affected, err := r.execAffected(ctx, query, id)
	if err != nil {
		return false, fmt.Errorf("error marking reminder %d sent: %w", id, storeErr(err))
	}
	return affected == 1, nil
}

func (r *PostgresReminderRepository) FixTimezone(ctx context.Context, id int64, corrected time.Time) (bool, error) {
	query := fmt.Sprintf(`UPDATE %s SET scheduled_at = $2 WHERE id = $1`, r.table)
	affected, err := r.execAffected(ctx, query, id, corrected)
	if err != nil {
		return false, fmt.Errorf("error fixing timezone for reminder %d: %w", id, storeErr(err))
	}
	return affected == 1, nil
}

func (r *PostgresReminderRepository) ListActive(ctx context.Context) ([]*reminder.Reminder, error) {
	query := fmt.Sprintf(`SELECT id, recipient_id, text, scheduled_at, created_at, is_sent, is_deleted
               FROM %s
               WHERE is_sent = FALSE AND is_deleted = FALSE
               ORDER BY scheduled_at ASC, id ASC`, r.table)
	out, err := r.queryReminders(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("error querying active reminders: %w", storeErr(err))
	}
	return out, nil
}

func (r *PostgresReminderRepository) Cancel(ctx context.Context, id int64, recipientID int64) (bool, error) {
	query := fmt.Sprintf(`UPDATE %s SET is_deleted = TRUE
               WHERE id = $1 AND recipient_id = $2 AND is_sent = FALSE AND is_deleted = FALSE`, r.table)
	affected, err := r.execAffected(ctx, query, id, recipientID)
	if err != nil {
		return false, fmt.Errorf("error cancelling reminder %d: %w", id, storeErr(err))
	}
	return affected == 1, nil
}

func (r *PostgresReminderRepository) CancelAllForRecipient(ctx context.Context, recipientID int64) (int64, error) {
	query := fmt.Sprintf(`UPDATE %s SET is_deleted = TRUE
               WHERE recipient_id = $1 AND is_sent = FALSE AND is_deleted = FALSE`, r.table)
	affected, err := r.execAffected(ctx, query, recipientID)
	if err != nil {
		return 0, fmt.Errorf("error cancelling reminders for recipient %d: %w", recipientID, storeErr(err))
	}
	return affected, nil
}

func (r *PostgresReminderRepository) queryReminders(ctx context.Context, query string, args ...interface{}) ([]*reminder.Reminder, error) {
	var out []*reminder.Reminder
	err := withStoreRetry(ctx, func() error {
		rows, err := r.db.QueryContext(ctx, query, args...)
		if err != nil {
			return err
		}
		defer rows.Close()
		out, err = scanReminders(rows, r.loc)
		return err
	})
	return out, err
}

func (r *PostgresReminderRepository) execAffected(ctx context.Context, query string, args ...interface{}) (int64, error) {
	var affected int64
	err := withStoreRetry(ctx, func() error {
		res, err := r.db.ExecContext(ctx, query, args...)
		if err != nil {
			return err
		}
		affected, err = res.RowsAffected()
		return err
	})
	return affected, err
}

// Helper to scan multiple rows
func scanReminders(rows *sql.Rows, loc *time.Location) ([]*reminder.Reminder, error) {
	reminders := make([]*reminder.Reminder, 0)
	for rows.Next() {
		rem := reminder.Reminder{}
		if err := rows.Scan(
			&rem.ID, &rem.RecipientID, &rem.Text, &rem.ScheduledAt,
			&rem.CreatedAt, &rem.IsSent, &rem.IsDeleted,
		); err != nil {
			return nil, fmt.Errorf("error scanning reminder row: %w", err)
		}
		rem.ScheduledAt = rem.ScheduledAt.In(loc)
		rem.CreatedAt = rem.CreatedAt.In(loc)
		reminders = append(reminders, &rem)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating reminder rows: %w", err)
	}
	return reminders, nil
}

// withStoreRetry runs op, retrying connection-class failures up to
// storeRetryAttempts times with a short fixed delay. Statement errors are
// returned immediately. Safe for every operation here: the writes are all
// idempotent guarded statements.
func withStoreRetry(ctx context.Context, op func() error) error {
	var err error
	for attempt := 0; attempt < storeRetryAttempts; attempt++ {
		err = op()
		if err == nil || !isConnFailure(err) {
			return err
		}
		if attempt == storeRetryAttempts-1 {
			break
		}
		select {
		case <-ctx.Done():
			return err
		case <-time.After(storeRetryDelay):
		}
	}
	return err
}

// storeErr maps connection-class failures onto the ErrStoreUnavailable
// sentinel after retries are exhausted.
func storeErr(err error) error {
	if isConnFailure(err) {
		return reminder.ErrStoreUnavailable
	}
	return err
}

// isConnFailure distinguishes connection-class failures (retryable) from
// statement errors.
func isConnFailure(err error) bool {
	if errors.Is(err, driver.ErrBadConn) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}
