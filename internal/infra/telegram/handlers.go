// internal/infra/telegram/handlers.go
package telegram

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"reminder_notification_bot/internal/domain/reminder"

	"github.com/sirupsen/logrus"
	"gopkg.in/telebot.v3"
)

// RegisterReminderHandlers wires the user-facing reminder commands. This is
// the thin conversational surface over the store; delivery itself is the
// scheduler's job.
func RegisterReminderHandlers(
	ctx context.Context,
	b *telebot.Bot,
	repo reminder.Repository,
	loc *time.Location,
	baseLogger *logrus.Entry,
) {
	handlerLogger := baseLogger.WithField("handler_group", "reminders")

	b.Handle("/start", func(c telebot.Context) error {
		logCtx := handlerLogger.WithField("command", "/start").WithField("sender_id", c.Sender().ID)
		logCtx.Info("Processing /start command")
		return c.Send("Привет! Я бот-напоминалка. Используйте /remind, чтобы создать напоминание, и /help для списка команд.")
	})

	b.Handle("/help", func(c telebot.Context) error {
		logCtx := handlerLogger.WithField("command", "/help").WithField("sender_id", c.Sender().ID)
		logCtx.Info("Processing /help command")
		var helpText strings.Builder
		helpText.WriteString("Доступные команды:\n\n")
		helpText.WriteString("`/remind <ЧЧ:ММ> <текст>`\n - Напоминание на сегодня (или завтра, если время уже прошло).\n\n")
		helpText.WriteString("`/remind <ГГГГ-ММ-ДД ЧЧ:ММ> <текст>`\n - Напоминание на конкретную дату.\n\n")
		helpText.WriteString("`/list`\n - Показать ваши будущие напоминания.\n\n")
		helpText.WriteString("`/cancel <ID>`\n - Отменить напоминание по номеру.\n\n")
		helpText.WriteString("`/help`\n - Показать это справочное сообщение.")
		return c.Send(helpText.String(), &telebot.SendOptions{ParseMode: telebot.ModeMarkdown})
	})

	b.Handle("/remind", func(c telebot.Context) error {
		senderID := c.Sender().ID
		logCtx := handlerLogger.WithField("command", "/remind").WithField("sender_id", senderID)

		scheduledAt, text, err := parseRemindPayload(c.Message().Payload, time.Now().In(loc), loc)
		if err != nil {
			logCtx.WithError(err).Info("Rejected malformed /remind payload")
			return c.Send("Не понял. Формат: `/remind 18:30 купить молоко` или `/remind 2025-03-10 09:00 отчёт`.", &telebot.SendOptions{ParseMode: telebot.ModeMarkdown})
		}

		rem := &reminder.Reminder{
			RecipientID: senderID,
			Text:        text,
			ScheduledAt: scheduledAt,
		}
		if err := repo.Create(ctx, rem); err != nil {
			logCtx.WithError(err).Error("Failed to create reminder")
			return c.Send("Не удалось сохранить напоминание. Попробуйте позже.")
		}

		logCtx.WithField("reminder_id", rem.ID).Info("Reminder created")
		return c.Send(fmt.Sprintf("Запомнил! Напомню %s (№%d).", scheduledAt.Format("2006-01-02 15:04"), rem.ID))
	})

	b.Handle("/list", func(c telebot.Context) error {
		senderID := c.Sender().ID
		logCtx := handlerLogger.WithField("command", "/list").WithField("sender_id", senderID)

		reminders, err := repo.ListByRecipient(ctx, senderID, false)
		if err != nil {
			logCtx.WithError(err).Error("Failed to list reminders")
			return c.Send("Не удалось получить список напоминаний. Попробуйте позже.")
		}
		if len(reminders) == 0 {
			return c.Send("У вас нет будущих напоминаний.")
		}

		var sb strings.Builder
		sb.WriteString("Ваши напоминания:\n")
		for _, rem := range reminders {
			sb.WriteString(fmt.Sprintf("№%d — %s — %s\n", rem.ID, rem.ScheduledAt.In(loc).Format("2006-01-02 15:04"), rem.Text))
		}
		return c.Send(sb.String())
	})

	b.Handle("/cancel", func(c telebot.Context) error {
		senderID := c.Sender().ID
		logCtx := handlerLogger.WithField("command", "/cancel").WithField("sender_id", senderID)

		id, err := strconv.ParseInt(strings.TrimSpace(c.Message().Payload), 10, 64)
		if err != nil {
			return c.Send("Укажите номер напоминания: `/cancel 42`.", &telebot.SendOptions{ParseMode: telebot.ModeMarkdown})
		}

		ok, err := repo.Cancel(ctx, id, senderID)
		if err != nil {
			logCtx.WithError(err).Error("Failed to cancel reminder")
			return c.Send("Не удалось отменить напоминание. Попробуйте позже.")
		}
		if !ok {
			return c.Send(fmt.Sprintf("Напоминание №%d не найдено среди ваших будущих напоминаний.", id))
		}

		logCtx.WithField("reminder_id", id).Info("Reminder cancelled")
		return c.Send(fmt.Sprintf("Напоминание №%d отменено.", id))
	})
}

// parseRemindPayload accepts "HH:MM text" or "YYYY-MM-DD HH:MM text". A
// time-only reminder whose moment already passed today rolls over to
// tomorrow.
func parseRemindPayload(payload string, now time.Time, loc *time.Location) (time.Time, string, error) {
	fields := strings.Fields(payload)
	if len(fields) < 2 {
		return time.Time{}, "", fmt.Errorf("payload too short")
	}

	if len(fields) >= 3 {
		if at, err := time.ParseInLocation("2006-01-02 15:04", fields[0]+" "+fields[1], loc); err == nil {
			return at, strings.Join(fields[2:], " "), nil
		}
	}

	clock, err := time.ParseInLocation("15:04", fields[0], loc)
	if err != nil {
		return time.Time{}, "", fmt.Errorf("unrecognized time %q", fields[0])
	}
	at := time.Date(now.Year(), now.Month(), now.Day(), clock.Hour(), clock.Minute(), 0, 0, loc)
	if !at.After(now) {
		at = at.AddDate(0, 0, 1)
	}
	return at, strings.Join(fields[1:], " "), nil
}
