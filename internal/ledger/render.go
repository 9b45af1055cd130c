package ledger

import (
	"strings"

	"gitlab.com/yelinaung/split-bot/internal/models"
)

// RenderBoard renders one line per participant, ✅ for paid and ❌ for
// pending, in creation order.
func RenderBoard(board models.Board) string {
	lines := make([]string, 0, len(board.Entries))
	for _, e := range board.Entries {
		mark := "❌"
		if e.Paid {
			mark = "✅"
		}
		lines = append(lines, mark+" @"+e.Username)
	}
	return strings.Join(lines, "\n")
}
