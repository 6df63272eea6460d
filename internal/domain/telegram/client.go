package telegram

import (
	"errors"
	"fmt"

	"gopkg.in/telebot.v3"
)

// Client defines an interface for sending messages via a Telegram bot.
// This helps in decoupling the application logic from the specific bot library.
type Client interface {
	SendMessage(recipientChatID int64, text string, options *telebot.SendOptions) error
}

// DeliveryReason classifies why a delivery failed. Unreachable is the one
// case callers react to specially (recipient blocked the bot or deleted
// their account); everything else is retried implicitly by the reminder
// staying due.
type DeliveryReason string

const (
	ReasonTransport   DeliveryReason = "TRANSPORT"
	ReasonUnreachable DeliveryReason = "UNREACHABLE"
	ReasonTimeout     DeliveryReason = "TIMEOUT"
)

// DeliveryError is returned by Client implementations on any transport or
// protocol failure.
type DeliveryError struct {
	Reason      DeliveryReason
	RecipientID int64
	Err         error
}

func (e *DeliveryError) Error() string {
	return fmt.Sprintf("delivery to %d failed (%s): %v", e.RecipientID, e.Reason, e.Err)
}

func (e *DeliveryError) Unwrap() error { return e.Err }

// IsUnreachable reports whether err is a delivery failure caused by the
// recipient being unreachable (blocked the bot, deactivated account,
// unknown chat).
func IsUnreachable(err error) bool {
	var de *DeliveryError
	return errors.As(err, &de) && de.Reason == ReasonUnreachable
}

// IsDelivery reports whether err is any delivery failure.
func IsDelivery(err error) bool {
	var de *DeliveryError
	return errors.As(err, &de)
}
