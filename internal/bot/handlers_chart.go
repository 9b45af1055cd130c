package bot

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/shopspring/decimal"

	"gitlab.com/yelinaung/split-bot/internal/logger"
	domain "gitlab.com/yelinaung/split-bot/internal/models"
)

// handleOwed handles the /owed command.
func (b *Bot) handleOwed(ctx context.Context, tgBot *bot.Bot, update *models.Update) {
	b.handleOwedCore(ctx, tgBot, update)
}

// handleOwedCore lists unpaid balances per participant and attaches a pie
// chart of them.
func (b *Bot) handleOwedCore(ctx context.Context, tg TelegramAPI, update *models.Update) {
	if update.Message == nil {
		return
	}
	chatID := update.Message.Chat.ID

	owed, err := b.ledger.Outstanding(ctx)
	if err != nil {
		logger.Log.Error().Err(err).Msg("Failed to load outstanding balances")
		reply(ctx, tg, chatID, "❌ Failed to load balances. Please try again.")
		return
	}

	if len(owed) == 0 {
		reply(ctx, tg, chatID, "🎉 Nobody owes anything right now.")
		return
	}

	text := formatOutstanding(owed)
	_, err = tg.SendMessage(ctx, &bot.SendMessageParams{
		ChatID:    chatID,
		Text:      text,
		ParseMode: models.ParseModeHTML,
	})
	if err != nil {
		logger.Log.Error().Err(err).Msg("Failed to send outstanding balances")
		return
	}

	chartData, err := GenerateOutstandingChart(owed)
	if err != nil {
		logger.Log.Error().Err(err).Msg("Failed to generate chart")
		return
	}

	_, err = tg.SendDocument(ctx, &bot.SendDocumentParams{
		ChatID:   chatID,
		Document: &models.InputFileUpload{Filename: generateChartFilename(time.Now()), Data: bytes.NewReader(chartData)},
		Caption:  "📊 Outstanding balances",
	})
	if err != nil {
		logger.Log.Error().Err(err).Msg("Failed to send chart document")
		return
	}

	logger.Log.Info().Int("participants", len(owed)).Msg("Outstanding chart sent")
}

// formatOutstanding renders one line per debtor plus a grand total.
func formatOutstanding(owed []domain.Outstanding) string {
	var sb strings.Builder
	sb.WriteString("💰 <b>Outstanding</b>\n\n")

	total := decimal.Zero
	for _, o := range owed {
		fmt.Fprintf(&sb, "@%s owes %s (%d unpaid)\n", escapeHTML(o.Username), o.Amount.StringFixed(2), o.Splits)
		total = total.Add(o.Amount)
	}
	fmt.Fprintf(&sb, "\nTotal: <b>%s</b>", total.StringFixed(2))
	return sb.String()
}
