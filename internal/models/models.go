// Package models defines the domain entities for the shared expense ledger.
package models

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// MaxUsernameLength is the longest username Telegram allows.
const MaxUsernameLength = 32

// SplitStatus is the settlement state of a split.
type SplitStatus string

// Split statuses. A split only ever moves from pending to paid.
const (
	SplitStatusPending SplitStatus = "PENDING"
	SplitStatusPaid    SplitStatus = "PAID"
)

// Valid reports whether s is a known status.
func (s SplitStatus) Valid() bool {
	return s == SplitStatusPending || s == SplitStatusPaid
}

// User is a registered participant.
type User struct {
	Username  string
	ChatID    int64
	Active    bool
	CreatedAt time.Time
}

// Reachable reports whether the user can be offered as a participant.
func (u User) Reachable() bool {
	return u.Active && u.ChatID != 0
}

// Expense is one shared payment, immutable after creation.
type Expense struct {
	ID             string
	Date           time.Time
	PayerUsername  string
	PayerChatID    int64
	Total          decimal.Decimal
	Participants   []string
	PerShare       decimal.Decimal
	IdempotencyKey string
	CreatedAt      time.Time
}

// Split is one participant's obligation within an expense.
type Split struct {
	ID                  string
	ExpenseID           string
	Position            int
	ParticipantUsername string
	ParticipantChatID   int64
	Amount              decimal.Decimal
	Status              SplitStatus
	SettledAt           *time.Time
	CreatedAt           time.Time
}

// Paid reports whether the split has been settled.
func (s Split) Paid() bool {
	return s.Status == SplitStatusPaid
}

// BoardEntry is one line of a status board.
type BoardEntry struct {
	Username string
	Paid     bool
}

// Board is the ordered paid/unpaid view of all splits of one expense.
type Board struct {
	ExpenseID string
	Entries   []BoardEntry
}

// PaidCount returns how many participants have settled.
func (b Board) PaidCount() int {
	n := 0
	for _, e := range b.Entries {
		if e.Paid {
			n++
		}
	}
	return n
}

// Settled reports whether every participant has paid.
func (b Board) Settled() bool {
	return len(b.Entries) > 0 && b.PaidCount() == len(b.Entries)
}

// BoardFromSplits builds a board from splits already in creation order.
func BoardFromSplits(expenseID string, splits []Split) Board {
	board := Board{ExpenseID: expenseID, Entries: make([]BoardEntry, 0, len(splits))}
	for _, s := range splits {
		board.Entries = append(board.Entries, BoardEntry{Username: s.ParticipantUsername, Paid: s.Paid()})
	}
	return board
}

// Outstanding is the unpaid total one participant still owes across all
// expenses.
type Outstanding struct {
	Username string
	Amount   decimal.Decimal
	Splits   int
}

// PerShare splits total equally across n participants, rounded half-to-even
// to cents. The remainder is not redistributed, so n*PerShare may differ from
// total by up to one cent per participant.
func PerShare(total decimal.Decimal, n int) decimal.Decimal {
	if n <= 0 {
		return decimal.Zero
	}
	return total.Div(decimal.NewFromInt(int64(n))).RoundBank(2)
}

// NormalizeUsername trims whitespace and a leading @ and lowercases.
func NormalizeUsername(username string) string {
	username = strings.TrimSpace(username)
	username = strings.TrimPrefix(username, "@")
	return strings.ToLower(username)
}
