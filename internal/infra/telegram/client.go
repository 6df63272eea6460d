// internal/infra/telegram/client.go
package telegram

import (
	"errors"

	domainTelegram "reminder_notification_bot/internal/domain/telegram"

	"gopkg.in/telebot.v3"
)

// TelebotAdapter implements the Client interface using the gopkg.in/telebot.v3 library.
type TelebotAdapter struct {
	bot *telebot.Bot
}

func NewTelebotAdapter(b *telebot.Bot) *TelebotAdapter {
	return &TelebotAdapter{bot: b}
}

// SendMessage sends a text message to the specified recipient. Transport
// failures come back as *telegram.DeliveryError; "recipient unreachable"
// conditions are distinguishable from generic ones so callers can deactivate
// the recipient instead of retrying forever.
func (tba *TelebotAdapter) SendMessage(recipientChatID int64, text string, options *telebot.SendOptions) error {
	if options == nil {
		options = &telebot.SendOptions{}
	}

	recipient := &telebot.User{ID: recipientChatID}
	_, err := tba.bot.Send(recipient, text, options)
	if err != nil {
		return &domainTelegram.DeliveryError{
			Reason:      classify(err),
			RecipientID: recipientChatID,
			Err:         err,
		}
	}
	return nil
}

func classify(err error) domainTelegram.DeliveryReason {
	if errors.Is(err, telebot.ErrBlockedByUser) ||
		errors.Is(err, telebot.ErrUserIsDeactivated) ||
		errors.Is(err, telebot.ErrChatNotFound) {
		return domainTelegram.ReasonUnreachable
	}
	return domainTelegram.ReasonTransport
}
