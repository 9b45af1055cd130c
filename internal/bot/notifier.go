package bot

import (
	"context"
	"fmt"

	"github.com/go-telegram/bot"
	tgmodels "github.com/go-telegram/bot/models"
	"golang.org/x/time/rate"

	"gitlab.com/yelinaung/split-bot/internal/apperr"
	"gitlab.com/yelinaung/split-bot/internal/ledger"
	"gitlab.com/yelinaung/split-bot/internal/models"
	"gitlab.com/yelinaung/split-bot/internal/telemetry"
)

// Notifier delivers split notifications and reminders, throttled to stay
// under Telegram's bulk sending limits.
type Notifier struct {
	tg      TelegramAPI
	limiter *rate.Limiter
	metrics *telemetry.Metrics
}

// NewNotifier creates a Notifier sending at most perSecond messages per
// second. A non-positive rate disables throttling.
func NewNotifier(tg TelegramAPI, perSecond float64, metrics *telemetry.Metrics) *Notifier {
	limiter := rate.NewLimiter(rate.Inf, 1)
	if perSecond > 0 {
		burst := max(int(perSecond), 1)
		limiter = rate.NewLimiter(rate.Limit(perSecond), burst)
	}
	return &Notifier{tg: tg, limiter: limiter, metrics: metrics}
}

// NotifySplit tells a participant what they owe for a new expense.
func (n *Notifier) NotifySplit(ctx context.Context, expense models.Expense, split models.Split) error {
	return n.send(ctx, "notify split", &bot.SendMessageParams{
		ChatID:      split.ParticipantChatID,
		Text:        formatSplitNotification(expense, split),
		ReplyMarkup: markPaidKeyboard(split.ID),
	})
}

// SendReminder reminds a participant of one unpaid split.
func (n *Notifier) SendReminder(ctx context.Context, split models.Split, board models.Board) error {
	return n.send(ctx, "send reminder", &bot.SendMessageParams{
		ChatID:      split.ParticipantChatID,
		Text:        formatReminder(split, board),
		ReplyMarkup: markPaidKeyboard(split.ID),
	})
}

func (n *Notifier) send(ctx context.Context, op string, params *bot.SendMessageParams) error {
	if err := n.limiter.Wait(ctx); err != nil {
		return apperr.Transport(op, err)
	}
	if _, err := n.tg.SendMessage(ctx, params); err != nil {
		return apperr.Transport(op, err)
	}
	return nil
}

func markPaidKeyboard(splitID string) *tgmodels.InlineKeyboardMarkup {
	return &tgmodels.InlineKeyboardMarkup{
		InlineKeyboard: [][]tgmodels.InlineKeyboardButton{
			{{Text: "✅ Mark as Paid", CallbackData: EncodePaid(splitID)}},
		},
	}
}

func formatSplitNotification(expense models.Expense, split models.Split) string {
	return fmt.Sprintf("🍱 Expense: %s\nPaid by: @%s\nTotal: %s\nYour share: %s",
		expense.ID, expense.PayerUsername, expense.Total.StringFixed(2), split.Amount.StringFixed(2))
}

func formatReminder(split models.Split, board models.Board) string {
	return fmt.Sprintf("⏰ Reminder: You still owe %s for %s\n\nSplit Status:\n%s",
		split.Amount.StringFixed(2), split.ExpenseID, ledger.RenderBoard(board))
}
