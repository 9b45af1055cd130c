package bot

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"gitlab.com/yelinaung/split-bot/internal/apperr"
	"gitlab.com/yelinaung/split-bot/internal/logger"
)

// handleExport handles the /export command.
func (b *Bot) handleExport(ctx context.Context, tgBot *bot.Bot, update *models.Update) {
	b.handleExportCore(ctx, tgBot, update)
}

// handleExportCore sends the splits of one expense as a CSV document.
func (b *Bot) handleExportCore(ctx context.Context, tg TelegramAPI, update *models.Update) {
	if update.Message == nil {
		return
	}
	chatID := update.Message.Chat.ID

	expenseID := strings.ToUpper(extractCommandArgs(update.Message.Text, "/export"))
	if expenseID == "" {
		_, _ = tg.SendMessage(ctx, &bot.SendMessageParams{
			ChatID:    chatID,
			Text:      "❌ Please specify an expense.\n\nUsage: <code>/export EXP-1A2B3C4D</code>",
			ParseMode: models.ParseModeHTML,
		})
		return
	}

	expense, splits, err := b.ledger.ExpenseSplits(ctx, expenseID)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			reply(ctx, tg, chatID, fmt.Sprintf("❌ Expense %s not found.", expenseID))
			return
		}
		logger.Log.Error().Err(err).Str("expense_id", expenseID).Msg("Failed to load expense for export")
		reply(ctx, tg, chatID, "❌ Failed to export. Please try again.")
		return
	}

	data, err := GenerateSplitsCSV(expense, splits)
	if err != nil {
		logger.Log.Error().Err(err).Msg("Failed to generate CSV")
		reply(ctx, tg, chatID, "❌ Failed to export. Please try again.")
		return
	}

	_, err = tg.SendDocument(ctx, &bot.SendDocumentParams{
		ChatID:   chatID,
		Document: &models.InputFileUpload{Filename: generateReportFilename(expenseID), Data: bytes.NewReader(data)},
		Caption:  fmt.Sprintf("📄 %s: %d split(s)", expenseID, len(splits)),
	})
	if err != nil {
		logger.Log.Error().Err(err).Msg("Failed to send CSV document")
		reply(ctx, tg, chatID, "❌ Failed to send the export. Please try again.")
	}
}
