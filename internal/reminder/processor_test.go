package reminder

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"gitlab.com/yelinaung/split-bot/internal/apperr"
	"gitlab.com/yelinaung/split-bot/internal/ledger"
	"gitlab.com/yelinaung/split-bot/internal/ledger/ledgertest"
	"gitlab.com/yelinaung/split-bot/internal/models"
)

type sentReminder struct {
	split models.Split
	board models.Board
}

type fakeSender struct {
	mu     sync.Mutex
	sent   []sentReminder
	failOn map[int64]bool
}

func (f *fakeSender) SendReminder(_ context.Context, s models.Split, b models.Board) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failOn[s.ParticipantChatID] {
		return apperr.Transport("send reminder", errors.New("bot was blocked by the user"))
	}
	f.sent = append(f.sent, sentReminder{split: s, board: b})
	return nil
}

func (f *fakeSender) forChat(chatID int64) []sentReminder {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []sentReminder
	for _, r := range f.sent {
		if r.split.ParticipantChatID == chatID {
			out = append(out, r)
		}
	}
	return out
}

var (
	payer = models.User{Username: "alice", ChatID: 1}
	bob   = models.User{Username: "bob", ChatID: 2, Active: true}
	carol = models.User{Username: "carol", ChatID: 3, Active: true}
)

func newLedger(t *testing.T) (*ledger.Ledger, *ledgertest.Store) {
	t.Helper()
	store := ledgertest.NewStore()
	return ledger.New(store, store.Splits()), store
}

func TestProcessor_Run(t *testing.T) {
	ctx := context.Background()

	t.Run("one reminder per pending split across expenses", func(t *testing.T) {
		l, _ := newLedger(t)
		first, err := l.CreateExpense(ctx, payer, []models.User{bob}, decimal.NewFromInt(10), "k1")
		require.NoError(t, err)
		second, err := l.CreateExpense(ctx, payer, []models.User{bob}, decimal.NewFromInt(20), "k2")
		require.NoError(t, err)

		sender := &fakeSender{}
		report, err := NewProcessor(l, sender, 2, nil).Run(ctx)
		require.NoError(t, err)
		require.Equal(t, Report{Pending: 2, Recipients: 1, Sent: 2}, report)

		got := sender.forChat(bob.ChatID)
		require.Len(t, got, 2)
		require.Equal(t, first.Expense.ID, got[0].split.ExpenseID)
		require.Equal(t, second.Expense.ID, got[1].split.ExpenseID)
	})

	t.Run("settled splits are skipped", func(t *testing.T) {
		l, _ := newLedger(t)
		c, err := l.CreateExpense(ctx, payer, []models.User{bob, carol}, decimal.NewFromInt(10), "k")
		require.NoError(t, err)
		_, err = l.MarkPaid(ctx, c.Splits[0].ID)
		require.NoError(t, err)

		sender := &fakeSender{}
		report, err := NewProcessor(l, sender, 0, nil).Run(ctx)
		require.NoError(t, err)
		require.Equal(t, 1, report.Sent)

		got := sender.forChat(carol.ChatID)
		require.Len(t, got, 1)
		require.Equal(t, []models.BoardEntry{
			{Username: "bob", Paid: true},
			{Username: "carol", Paid: false},
		}, got[0].board.Entries)
		require.Empty(t, sender.forChat(bob.ChatID))
	})

	t.Run("delivery failure does not stop other recipients", func(t *testing.T) {
		l, _ := newLedger(t)
		_, err := l.CreateExpense(ctx, payer, []models.User{bob, carol}, decimal.NewFromInt(10), "k1")
		require.NoError(t, err)
		_, err = l.CreateExpense(ctx, payer, []models.User{bob, carol}, decimal.NewFromInt(4), "k2")
		require.NoError(t, err)

		sender := &fakeSender{failOn: map[int64]bool{bob.ChatID: true}}
		report, err := NewProcessor(l, sender, 1, nil).Run(ctx)
		require.NoError(t, err)
		require.Equal(t, 2, report.Sent)
		require.Equal(t, 2, report.Failed)
		require.Len(t, sender.forChat(carol.ChatID), 2)
	})

	t.Run("nothing pending sends nothing", func(t *testing.T) {
		l, _ := newLedger(t)
		sender := &fakeSender{}
		report, err := NewProcessor(l, sender, 4, nil).Run(ctx)
		require.NoError(t, err)
		require.Equal(t, Report{}, report)
	})

	t.Run("load failure is returned", func(t *testing.T) {
		l, store := newLedger(t)
		store.ListErr = apperr.Storage("list pending splits", errors.New("connection refused"))

		_, err := NewProcessor(l, &fakeSender{}, 4, nil).Run(ctx)
		require.True(t, apperr.IsStorage(err))
	})
}

type countingSource struct {
	splits []models.Split
	mu     sync.Mutex
	boards map[string]int
	fail   map[string]bool
}

func (c *countingSource) PendingSplits(context.Context) ([]models.Split, error) {
	return c.splits, nil
}

func (c *countingSource) StatusBoard(_ context.Context, id string) (models.Board, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.boards[id]++
	if c.fail[id] {
		return models.Board{}, apperr.NotFound("expense", id)
	}
	return models.Board{ExpenseID: id}, nil
}

func TestProcessor_BoardsLoadedOncePerExpense(t *testing.T) {
	src := &countingSource{
		splits: []models.Split{
			{ID: "S1", ExpenseID: "E1", ParticipantChatID: 2},
			{ID: "S2", ExpenseID: "E1", ParticipantChatID: 3},
			{ID: "S3", ExpenseID: "E2", ParticipantChatID: 2},
		},
		boards: map[string]int{},
		fail:   map[string]bool{"E2": true},
	}
	sender := &fakeSender{}

	report, err := NewProcessor(src, sender, 4, nil).Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, map[string]int{"E1": 1, "E2": 1}, src.boards)
	require.Equal(t, 2, report.Sent)
	require.Equal(t, 1, report.Failed)
	require.Equal(t, 2, report.Recipients)
}

func TestGroupByRecipient(t *testing.T) {
	t.Parallel()

	groups := groupByRecipient([]models.Split{
		{ID: "a", ParticipantChatID: 3},
		{ID: "b", ParticipantChatID: 2},
		{ID: "c", ParticipantChatID: 3},
	})
	require.Len(t, groups, 2)
	require.Equal(t, int64(3), groups[0].chatID)
	require.Equal(t, "a", groups[0].splits[0].ID)
	require.Equal(t, "c", groups[0].splits[1].ID)
	require.Equal(t, int64(2), groups[1].chatID)
}

func TestNextRun(t *testing.T) {
	t.Parallel()

	colombo, err := time.LoadLocation("Asia/Colombo")
	require.NoError(t, err)

	tests := []struct {
		name string
		now  time.Time
		want time.Time
	}{
		{
			name: "later today",
			now:  time.Date(2025, 5, 1, 9, 0, 0, 0, colombo),
			want: time.Date(2025, 5, 1, 20, 0, 0, 0, colombo),
		},
		{
			name: "exactly at the hour rolls to tomorrow",
			now:  time.Date(2025, 5, 1, 20, 0, 0, 0, colombo),
			want: time.Date(2025, 5, 2, 20, 0, 0, 0, colombo),
		},
		{
			name: "after the hour",
			now:  time.Date(2025, 5, 1, 21, 15, 0, 0, colombo),
			want: time.Date(2025, 5, 2, 20, 0, 0, 0, colombo),
		},
		{
			name: "month boundary",
			now:  time.Date(2025, 1, 31, 23, 0, 0, 0, colombo),
			want: time.Date(2025, 2, 1, 20, 0, 0, 0, colombo),
		},
		{
			name: "now in another zone",
			now:  time.Date(2025, 5, 1, 15, 0, 0, 0, time.UTC),
			want: time.Date(2025, 5, 2, 20, 0, 0, 0, colombo),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := NextRun(tt.now, 20, 0, colombo)
			require.True(t, tt.want.Equal(got), "got %s want %s", got, tt.want)
		})
	}
}
