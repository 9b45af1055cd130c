package bot

import (
	"context"
	"testing"
	"time"

	"github.com/go-telegram/bot/models"
	"github.com/stretchr/testify/require"

	"gitlab.com/yelinaung/split-bot/internal/bot/mocks"
	"gitlab.com/yelinaung/split-bot/internal/config"
	"gitlab.com/yelinaung/split-bot/internal/directory"
	"gitlab.com/yelinaung/split-bot/internal/directory/directorytest"
	"gitlab.com/yelinaung/split-bot/internal/ledger"
	"gitlab.com/yelinaung/split-bot/internal/ledger/ledgertest"
	appmodels "gitlab.com/yelinaung/split-bot/internal/models"
)

// Chat ids of the seeded participants. Private chat ids equal user ids.
const (
	aliceID int64 = 1001
	bobID   int64 = 1002
	carolID int64 = 1003
)

// testEnv is a Bot wired to in-memory stores and a MockBot.
type testEnv struct {
	bot    *Bot
	tg     *mocks.MockBot
	ledger *ledgertest.Store
	users  *directorytest.Store
}

// newTestBot creates a Bot with alice, bob and carol registered.
func newTestBot(t *testing.T) *testEnv {
	t.Helper()

	users := directorytest.NewStore(
		appmodels.User{Username: "alice", ChatID: aliceID, Active: true},
		appmodels.User{Username: "bob", ChatID: bobID, Active: true},
		appmodels.User{Username: "carol", ChatID: carolID, Active: true},
	)
	store := ledgertest.NewStore()

	cfg := &config.Config{
		TelegramBotToken:    "test-token",
		DatabaseURL:         "test-url",
		ReminderHour:        config.DefaultReminderHour,
		ReminderTimezone:    config.DefaultReminderTimezone,
		ReminderConcurrency: 2,
	}

	b := &Bot{
		cfg:       cfg,
		directory: directory.New(users),
		ledger: ledger.New(store, store.Splits(), ledger.WithClock(func() time.Time {
			return time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
		})),
	}
	tg := mocks.NewMockBot()
	b.wire(tg)

	return &testEnv{bot: b, tg: tg, ledger: store, users: users}
}

// send delivers a text message from a participant through the same routing
// the registered handlers use.
func (e *testEnv) send(t *testing.T, userID int64, username, text string) {
	t.Helper()
	update := mocks.MessageUpdate(userID, userID, username, text)
	ctx := context.Background()

	switch {
	case text == "/add":
		e.bot.handleAddCore(ctx, e.tg, update)
	case text == "/cancel" || text == "/back":
		e.bot.handleCancelCore(ctx, e.tg, update)
	default:
		e.bot.defaultHandlerCore(ctx, e.tg, update)
	}
}

// press delivers an inline button press.
func (e *testEnv) press(t *testing.T, userID int64, username string, messageID int, data string) {
	t.Helper()
	update := mocks.CallbackQueryUpdate(userID, userID, username, messageID, data)
	e.bot.handleCallbackCore(context.Background(), e.tg, update)
}

// recordExpense runs a whole /add dialog for alice splitting total between
// the given participants.
func (e *testEnv) recordExpense(t *testing.T, total string, participants ...string) {
	t.Helper()
	e.send(t, aliceID, "alice", "/add")
	for _, p := range participants {
		e.press(t, aliceID, "alice", 1, EncodeSelect(p))
	}
	e.press(t, aliceID, "alice", 1, callbackDone)
	e.send(t, aliceID, "alice", total)
}

// splitButton returns the "Mark as Paid" callback data in the last message
// sent to chatID.
func (e *testEnv) splitButton(t *testing.T, chatID int64) string {
	t.Helper()
	msgs := e.tg.MessagesTo(chatID)
	require.NotEmpty(t, msgs)
	_, data := mocks.InlineButtons(msgs[len(msgs)-1].ReplyMarkup)
	require.Len(t, data, 1)
	return data[0]
}

// keyboardOf returns the button labels of a reply markup.
func keyboardOf(markup models.ReplyMarkup) []string {
	texts, _ := mocks.InlineButtons(markup)
	return texts
}
