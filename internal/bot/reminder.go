package bot

import (
	"context"

	"gitlab.com/yelinaung/split-bot/internal/logger"
	"gitlab.com/yelinaung/split-bot/internal/reminder"
)

// reminderProcessor builds the processor that sends one reminder per unpaid
// split.
func (b *Bot) reminderProcessor() *reminder.Processor {
	return reminder.NewProcessor(b.ledger, b.notifier, b.cfg.ReminderConcurrency, b.metrics)
}

// startDailyReminders blocks, running the reminder pass once a day at the
// configured local time until ctx is cancelled.
func (b *Bot) startDailyReminders(ctx context.Context) {
	if !b.cfg.DailyReminderEnabled {
		logger.Log.Info().Msg("Daily reminder is disabled")
		return
	}

	logger.Log.Info().
		Int("hour", b.cfg.ReminderHour).
		Int("minute", b.cfg.ReminderMinute).
		Str("timezone", b.cfg.ReminderTimezone).
		Msg("Daily reminder loop started")

	reminder.NewScheduler(b.reminderProcessor(), b.cfg.ReminderHour, b.cfg.ReminderMinute, b.cfg.Location()).Start(ctx)
}

// RunReminders runs a single reminder pass immediately.
func (b *Bot) RunReminders(ctx context.Context) (reminder.Report, error) {
	return b.reminderProcessor().Run(ctx)
}
