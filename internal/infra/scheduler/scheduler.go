package scheduler

import (
	"context"
	"time"

	domainTelegram "reminder_notification_bot/internal/domain/telegram"
	"reminder_notification_bot/internal/infra/bridge"

	"github.com/sirupsen/logrus"
)

// Dispatcher runs one Checking phase over everything due at 'now'.
type Dispatcher interface {
	DispatchDue(ctx context.Context, sender domainTelegram.Client, now time.Time) error
}

// State names for log fields.
const (
	stateIdle     = "IDLE"
	stateArmed    = "ARMED"
	stateChecking = "CHECKING"
	stateFaulted  = "FAULTED"
)

// Options tune the loop. Zero values fall back to the documented defaults.
type Options struct {
	BridgeAttempts int           // polls for a sender before giving up (default 30)
	BridgeInterval time.Duration // spacing between polls (default 2s)
	FaultCooldown  time.Duration // pause after a failed iteration (default 60s)
}

func (o *Options) withDefaults() Options {
	out := *o
	if out.BridgeAttempts <= 0 {
		out.BridgeAttempts = 30
	}
	if out.BridgeInterval <= 0 {
		out.BridgeInterval = 2 * time.Second
	}
	if out.FaultCooldown <= 0 {
		out.FaultCooldown = 60 * time.Second
	}
	return out
}

// Scheduler drives the periodic due-check. It starts Idle, waiting for the
// bridge to hand it a live sender, then alternates between Armed (sleeping
// to the next wall-clock minute boundary) and Checking (dispatching the due
// batch). A failed iteration moves it to Faulted for one cooldown; the loop
// never exits on a single bad iteration.
type Scheduler struct {
	bridge     *bridge.SenderBridge
	dispatcher Dispatcher
	logger     *logrus.Entry
	opts       Options
}

func NewScheduler(b *bridge.SenderBridge, d Dispatcher, logger *logrus.Entry, opts Options) *Scheduler {
	return &Scheduler{
		bridge:     b,
		dispatcher: d,
		logger:     logger,
		opts:       opts.withDefaults(),
	}
}

// Run blocks until ctx is cancelled. It returns bridge.ErrSenderUnavailable
// without ever dispatching when no sender appears within the bounded
// polling window; that is a fatal configuration error for the process.
func (s *Scheduler) Run(ctx context.Context) error {
	s.logger.WithField("state", stateIdle).Info("Waiting for a sender to become available")
	sender, err := s.bridge.Await(ctx, s.opts.BridgeAttempts, s.opts.BridgeInterval)
	if err != nil {
		s.logger.WithError(err).WithField("state", stateIdle).Error("No sender obtainable; scheduler will not start")
		return err
	}

	// One immediate check on startup, then minute-boundary cadence.
	s.check(ctx, sender)

	for {
		s.logger.WithField("state", stateArmed).Debug("Sleeping until next minute boundary")
		if err := sleepUntil(ctx, nextMinute(time.Now())); err != nil {
			s.logger.Info("Scheduler stopping")
			return nil
		}
		if !s.check(ctx, sender) {
			// Faulted: cool down before re-arming.
			s.logger.WithField("state", stateFaulted).Warn("Iteration failed; cooling down")
			if err := sleepUntil(ctx, time.Now().Add(s.opts.FaultCooldown)); err != nil {
				s.logger.Info("Scheduler stopping")
				return nil
			}
		}
	}
}

// check runs one Checking phase and reports whether it completed cleanly.
func (s *Scheduler) check(ctx context.Context, sender domainTelegram.Client) bool {
	s.logger.WithField("state", stateChecking).Debug("Running due-check")
	if err := s.dispatcher.DispatchDue(ctx, sender, time.Now()); err != nil {
		s.logger.WithError(err).Error("Due-check failed")
		return false
	}
	return true
}

// nextMinute returns the start of the wall-clock minute after t. Sleeping to
// the boundary rather than a fixed interval keeps checks aligned to :00 and
// avoids drift accumulating from processing time.
func nextMinute(t time.Time) time.Time {
	return t.Truncate(time.Minute).Add(time.Minute)
}

func sleepUntil(ctx context.Context, deadline time.Time) error {
	d := time.Until(deadline)
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
