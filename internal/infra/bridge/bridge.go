// internal/infra/bridge/bridge.go
package bridge

import (
	"context"
	"fmt"
	"sync"
	"time"

	domainTelegram "reminder_notification_bot/internal/domain/telegram"
)

// ErrSenderUnavailable is returned by Await when no sender was published
// within the bounded polling window. The scheduler treats it as a fatal
// configuration error.
var ErrSenderUnavailable = fmt.Errorf("no sender available after bounded retries")

// SenderBridge decouples scheduler startup from chat-client readiness. The
// bot subsystem publishes a live Client once connected; the scheduler polls
// for it before arming. Single writer, single reader; first valid write wins.
type SenderBridge struct {
	mu     sync.RWMutex
	client domainTelegram.Client
}

func New() *SenderBridge {
	return &SenderBridge{}
}

// Set publishes a ready sender. A nil client is rejected. Idempotent: once a
// valid sender is held, later calls succeed without replacing it.
func (b *SenderBridge) Set(c domainTelegram.Client) bool {
	if c == nil {
		return false
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.client == nil {
		b.client = c
	}
	return true
}

// Get returns the current sender, if one has been published.
func (b *SenderBridge) Get() (domainTelegram.Client, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.client, b.client != nil
}

// Await polls Get up to attempts times, interval apart, and fails with
// ErrSenderUnavailable when the window is exhausted. It never spins tightly.
func (b *SenderBridge) Await(ctx context.Context, attempts int, interval time.Duration) (domainTelegram.Client, error) {
	for i := 0; i < attempts; i++ {
		if c, ok := b.Get(); ok {
			return c, nil
		}
		if i == attempts-1 {
			break
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(interval):
		}
	}
	return nil, ErrSenderUnavailable
}
