package bot

import (
	"context"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"gitlab.com/yelinaung/split-bot/internal/apperr"
	"gitlab.com/yelinaung/split-bot/internal/conversation"
	"gitlab.com/yelinaung/split-bot/internal/logger"
)

// handleAmountCore feeds a typed total into the sender's dialog.
func (b *Bot) handleAmountCore(ctx context.Context, tg TelegramAPI, update *models.Update) {
	chatID := update.Message.Chat.ID

	r, err := b.engine.Handle(ctx, messageInitiator(update.Message), conversation.AmountEntered{Text: update.Message.Text})
	if err != nil {
		if apperr.IsStorage(err) {
			logger.Log.Error().Err(err).Msg("Failed to record expense")
			reply(ctx, tg, chatID, "❌ Could not save the expense. Send the amount again to retry.")
			return
		}
		reply(ctx, tg, chatID, userMessage(err))
		return
	}

	_, err = tg.SendMessage(ctx, &bot.SendMessageParams{
		ChatID: chatID,
		Text:   creationText(r),
	})
	if err != nil {
		logger.Log.Error().Err(err).Msg("Failed to confirm recorded expense")
	}
}
