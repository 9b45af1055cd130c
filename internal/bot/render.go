package bot

import (
	"errors"
	"fmt"
	"strings"

	tgmodels "github.com/go-telegram/bot/models"

	"gitlab.com/yelinaung/split-bot/internal/apperr"
	"gitlab.com/yelinaung/split-bot/internal/conversation"
	"gitlab.com/yelinaung/split-bot/internal/ledger"
	"gitlab.com/yelinaung/split-bot/internal/models"
)

// selectionText renders the header of the participant menu.
func selectionText(r conversation.Reply) string {
	if len(r.Candidates) == 0 {
		return "Select participants:\nNobody is registered yet. Ask people to send /register, then /add again."
	}
	if len(r.Selected) == 0 {
		return "Select participants:\nNone selected"
	}
	names := make([]string, 0, len(r.Selected))
	for _, n := range r.Selected {
		names = append(names, "@"+n)
	}
	return "Select participants:\n" + strings.Join(names, ", ")
}

// selectionKeyboard renders one button per candidate plus Done.
func selectionKeyboard(r conversation.Reply) *tgmodels.InlineKeyboardMarkup {
	rows := make([][]tgmodels.InlineKeyboardButton, 0, len(r.Candidates)+1)
	for _, c := range r.Candidates {
		label := "@" + c.Username
		if c.Selected {
			label = "✅ " + label
		}
		rows = append(rows, []tgmodels.InlineKeyboardButton{{Text: label, CallbackData: EncodeSelect(c.Username)}})
	}
	rows = append(rows, []tgmodels.InlineKeyboardButton{{Text: "✅ Done", CallbackData: callbackDone}})
	return &tgmodels.InlineKeyboardMarkup{InlineKeyboard: rows}
}

// creationText confirms a recorded expense to its payer.
func creationText(r conversation.Reply) string {
	c := r.Creation
	text := fmt.Sprintf("✅ Expense recorded\nExpense: %s\nTotal: %s\nEach owes: %s",
		c.Expense.ID, c.Expense.Total.StringFixed(2), c.PerShare.StringFixed(2))
	if r.Failed > 0 {
		text += fmt.Sprintf("\n\n⚠️ %d participant(s) could not be notified.", r.Failed)
	}
	return text
}

// settledText is shown after a split is marked paid.
func settledText(board models.Board) string {
	text := "✅ Marked as paid.\n\nSplit Status:\n" + ledger.RenderBoard(board)
	if board.Settled() {
		text += "\n\n🎉 Everyone has paid."
	}
	return text
}

// userMessage maps an error to what the user sees.
func userMessage(err error) string {
	switch {
	case errors.Is(err, apperr.ErrEmptySelection):
		return "❌ You must select at least one participant."
	case errors.Is(err, apperr.ErrInvalidAmount):
		return "Invalid amount. Try again."
	case errors.Is(err, apperr.ErrUnknownParticipant):
		return "❌ That person is not in this menu. Use /add to start over."
	case errors.Is(err, apperr.ErrWrongState):
		return "That step has expired. Use /add to start a new expense."
	case errors.Is(err, apperr.ErrNotFound):
		return "❌ That expense or split no longer exists."
	case errors.Is(err, apperr.ErrStorage):
		return "❌ Storage is unavailable right now. Please try again."
	default:
		return "❌ Something went wrong. Please try again later."
	}
}
