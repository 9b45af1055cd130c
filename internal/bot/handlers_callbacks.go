package bot

import (
	"context"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"gitlab.com/yelinaung/split-bot/internal/apperr"
	"gitlab.com/yelinaung/split-bot/internal/conversation"
	"gitlab.com/yelinaung/split-bot/internal/logger"
)

// handleCallback handles every inline button press.
func (b *Bot) handleCallback(ctx context.Context, tgBot *bot.Bot, update *models.Update) {
	b.handleCallbackCore(ctx, tgBot, update)
}

// handleCallbackCore decodes the payload once and dispatches it.
func (b *Bot) handleCallbackCore(ctx context.Context, tg TelegramAPI, update *models.Update) {
	q := update.CallbackQuery
	if q == nil {
		return
	}
	if q.Message.Message == nil {
		answer(ctx, tg, q.ID, "This message is too old. Use /add to start again.", true)
		return
	}

	cb, err := DecodeCallback(q.Data)
	if err != nil {
		logger.Log.Warn().Str("data", q.Data).Msg("Unknown callback data")
		answer(ctx, tg, q.ID, "", false)
		return
	}

	if cb.SplitID != "" {
		b.handlePaidCore(ctx, tg, q, cb.SplitID)
		return
	}
	b.handleDialogCallbackCore(ctx, tg, q, cb.Action)
}

// handleDialogCallbackCore applies a selection or confirmation and redraws
// the menu message.
func (b *Bot) handleDialogCallbackCore(ctx context.Context, tg TelegramAPI, q *models.CallbackQuery, action conversation.Action) {
	msg := q.Message.Message
	chatID := msg.Chat.ID

	r, err := b.engine.Handle(ctx, callbackInitiator(q, chatID), action)
	if err != nil {
		answer(ctx, tg, q.ID, userMessage(err), apperr.IsValidation(err))
		return
	}
	answer(ctx, tg, q.ID, "", false)

	params := &bot.EditMessageTextParams{
		ChatID:    chatID,
		MessageID: msg.ID,
	}
	if r.State == conversation.StateEnteringAmount {
		params.Text = "Great! Now send the total amount."
	} else {
		params.Text = selectionText(r)
		params.ReplyMarkup = selectionKeyboard(r)
	}
	if _, err := tg.EditMessageText(ctx, params); err != nil {
		logger.Log.Error().Err(err).Msg("Failed to update selection menu")
	}
}

// handlePaidCore settles a split and shows the refreshed board in place of
// the button.
func (b *Bot) handlePaidCore(ctx context.Context, tg TelegramAPI, q *models.CallbackQuery, splitID string) {
	msg := q.Message.Message

	board, err := b.ledger.MarkPaid(ctx, splitID)
	if err != nil {
		if apperr.IsStorage(err) {
			logger.Log.Error().Err(err).Str("split_id", splitID).Msg("Failed to mark split paid")
		}
		answer(ctx, tg, q.ID, userMessage(err), true)
		return
	}
	answer(ctx, tg, q.ID, "Marked as paid", false)

	_, err = tg.EditMessageText(ctx, &bot.EditMessageTextParams{
		ChatID:    msg.Chat.ID,
		MessageID: msg.ID,
		Text:      settledText(board),
	})
	if err != nil {
		logger.Log.Error().Err(err).Msg("Failed to show settled board")
	}
}

// answer acknowledges a callback query so the client stops its spinner.
func answer(ctx context.Context, tg TelegramAPI, id, text string, alert bool) {
	_, err := tg.AnswerCallbackQuery(ctx, &bot.AnswerCallbackQueryParams{
		CallbackQueryID: id,
		Text:            text,
		ShowAlert:       alert,
	})
	if err != nil {
		logger.Log.Warn().Err(err).Msg("Failed to answer callback query")
	}
}
