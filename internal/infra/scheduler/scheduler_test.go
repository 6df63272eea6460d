package scheduler

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	domainTelegram "reminder_notification_bot/internal/domain/telegram"
	"reminder_notification_bot/internal/infra/bridge"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/telebot.v3"
)

type stubSender struct{}

func (s *stubSender) SendMessage(int64, string, *telebot.SendOptions) error { return nil }

type countingDispatcher struct {
	calls  atomic.Int64
	onCall func()
}

func (d *countingDispatcher) DispatchDue(context.Context, domainTelegram.Client, time.Time) error {
	d.calls.Add(1)
	if d.onCall != nil {
		d.onCall()
	}
	return nil
}

func quietLogger() *logrus.Entry {
	l := logrus.New()
	l.SetLevel(logrus.PanicLevel)
	return logrus.NewEntry(l)
}

func TestNextMinuteTruncatesToBoundary(t *testing.T) {
	at := time.Date(2025, 3, 10, 12, 34, 56, 700_000_000, time.UTC)
	assert.Equal(t, time.Date(2025, 3, 10, 12, 35, 0, 0, time.UTC), nextMinute(at))

	// Exactly on the boundary rolls to the next one.
	boundary := time.Date(2025, 3, 10, 12, 35, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2025, 3, 10, 12, 36, 0, 0, time.UTC), nextMinute(boundary))
}

func TestRunGivesUpWithoutSender(t *testing.T) {
	b := bridge.New()
	d := &countingDispatcher{}
	s := NewScheduler(b, d, quietLogger(), Options{BridgeAttempts: 3, BridgeInterval: time.Millisecond})

	err := s.Run(context.Background())
	require.ErrorIs(t, err, bridge.ErrSenderUnavailable)
	assert.Equal(t, int64(0), d.calls.Load(), "no checking phase may run without a sender")
}

func TestRunChecksImmediatelyOnceArmed(t *testing.T) {
	b := bridge.New()
	require.True(t, b.Set(&stubSender{}))

	ctx, cancel := context.WithCancel(context.Background())
	d := &countingDispatcher{onCall: cancel}
	s := NewScheduler(b, d, quietLogger(), Options{BridgeAttempts: 1, BridgeInterval: time.Millisecond})

	err := s.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), d.calls.Load())
}

func TestSleepUntilReturnsEarlyOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	start := time.Now()
	err := sleepUntil(ctx, time.Now().Add(time.Hour))
	assert.ErrorIs(t, err, context.Canceled)
	assert.Less(t, time.Since(start), time.Second)
}

func TestSleepUntilPastDeadlineReturnsImmediately(t *testing.T) {
	assert.NoError(t, sleepUntil(context.Background(), time.Now().Add(-time.Minute)))
}
