// Package bot provides the Telegram bot initialization and handlers.
package bot

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-telegram/bot"
	tgmodels "github.com/go-telegram/bot/models"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"gitlab.com/yelinaung/split-bot/internal/config"
	"gitlab.com/yelinaung/split-bot/internal/conversation"
	"gitlab.com/yelinaung/split-bot/internal/directory"
	"gitlab.com/yelinaung/split-bot/internal/ledger"
	"gitlab.com/yelinaung/split-bot/internal/logger"
	"gitlab.com/yelinaung/split-bot/internal/telemetry"
)

// pollTimeout is the long-polling timeout passed to the HTTP client.
const pollTimeout = time.Minute

// Deps are the application services the bot drives.
type Deps struct {
	Directory *directory.Directory
	Ledger    *ledger.Ledger
	Metrics   *telemetry.Metrics
}

// Bot wraps the Telegram bot with application dependencies.
type Bot struct {
	bot       *bot.Bot
	cfg       *config.Config
	directory *directory.Directory
	ledger    *ledger.Ledger
	engine    *conversation.Engine
	notifier  *Notifier
	metrics   *telemetry.Metrics
}

// New creates a new Bot instance.
func New(cfg *config.Config, deps Deps) (*Bot, error) {
	b := &Bot{
		cfg:       cfg,
		directory: deps.Directory,
		ledger:    deps.Ledger,
		metrics:   deps.Metrics,
	}

	httpClient := &http.Client{
		Timeout:   pollTimeout + 10*time.Second,
		Transport: otelhttp.NewTransport(http.DefaultTransport),
	}

	opts := []bot.Option{
		bot.WithMiddlewares(b.senderMiddleware),
		bot.WithDefaultHandler(b.defaultHandler),
		bot.WithHTTPClient(pollTimeout, httpClient),
	}

	telegramBot, err := bot.New(cfg.TelegramBotToken, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create bot: %w", err)
	}

	b.bot = telegramBot
	b.wire(telegramBot)
	b.registerHandlers()

	return b, nil
}

// wire builds the notifier and dialog engine on top of the given transport.
func (b *Bot) wire(tg TelegramAPI) {
	b.notifier = NewNotifier(tg, b.cfg.SendRatePerSecond, b.metrics)
	b.engine = conversation.NewEngine(b.directory, b.ledger, b.notifier, conversation.WithMetrics(b.metrics))
}

// Start runs the reminder scheduler and begins polling for updates. It
// blocks until ctx is cancelled.
func (b *Bot) Start(ctx context.Context) {
	go b.startDailyReminders(ctx)

	logger.Log.Info().Msg("Bot started polling")
	b.bot.Start(ctx)
}

// registerHandlers sets up command and callback handlers.
func (b *Bot) registerHandlers() {
	b.bot.RegisterHandler(bot.HandlerTypeMessageText, "/start", bot.MatchTypePrefix, b.handleStart)
	b.bot.RegisterHandler(bot.HandlerTypeMessageText, "/help", bot.MatchTypePrefix, b.handleHelp)
	b.bot.RegisterHandler(bot.HandlerTypeMessageText, "/register", bot.MatchTypePrefix, b.handleRegister)
	b.bot.RegisterHandler(bot.HandlerTypeMessageText, "/add", bot.MatchTypePrefix, b.handleAdd)
	b.bot.RegisterHandler(bot.HandlerTypeMessageText, "/cancel", bot.MatchTypePrefix, b.handleCancel)
	b.bot.RegisterHandler(bot.HandlerTypeMessageText, "/back", bot.MatchTypePrefix, b.handleCancel)
	b.bot.RegisterHandler(bot.HandlerTypeMessageText, "/leave", bot.MatchTypePrefix, b.handleLeave)
	b.bot.RegisterHandler(bot.HandlerTypeMessageText, "/join", bot.MatchTypePrefix, b.handleJoin)
	b.bot.RegisterHandler(bot.HandlerTypeMessageText, "/owed", bot.MatchTypePrefix, b.handleOwed)
	b.bot.RegisterHandler(bot.HandlerTypeMessageText, "/export", bot.MatchTypePrefix, b.handleExport)
	b.bot.RegisterHandler(bot.HandlerTypeCallbackQueryData, "", bot.MatchTypePrefix, b.handleCallback)
}

// senderMiddleware drops updates without a sender and logs the rest.
func (b *Bot) senderMiddleware(next bot.HandlerFunc) bot.HandlerFunc {
	return func(ctx context.Context, tgBot *bot.Bot, update *tgmodels.Update) {
		userID := extractUserID(update)
		if userID == 0 {
			return
		}

		logUserAction(userID, update)
		next(ctx, tgBot, update)
	}
}

// logUserAction logs the user's input or action without personal data.
func logUserAction(userID int64, update *tgmodels.Update) {
	switch {
	case update.Message != nil:
		logger.Log.Info().
			Str("user_hash", logger.HashChatID(userID)).
			Str("chat_id_hash", logger.HashChatID(update.Message.Chat.ID)).
			Str("text", logger.SanitizeText(update.Message.Text)).
			Msg("User input")

	case update.CallbackQuery != nil:
		logger.Log.Info().
			Str("user_hash", logger.HashChatID(userID)).
			Str("data", update.CallbackQuery.Data).
			Msg("Callback query")
	}
}

// extractUserID gets the user ID from various update types.
func extractUserID(update *tgmodels.Update) int64 {
	if update.Message != nil && update.Message.From != nil {
		return update.Message.From.ID
	}
	if update.EditedMessage != nil && update.EditedMessage.From != nil {
		return update.EditedMessage.From.ID
	}
	if update.CallbackQuery != nil {
		return update.CallbackQuery.From.ID
	}
	return 0
}

// messageInitiator builds the dialog initiator for a message update.
func messageInitiator(msg *tgmodels.Message) conversation.Initiator {
	who := conversation.Initiator{ChatID: msg.Chat.ID}
	if msg.From != nil {
		who.ID = msg.From.ID
		who.Username = msg.From.Username
	}
	return who
}

// callbackInitiator builds the dialog initiator for a callback query.
func callbackInitiator(q *tgmodels.CallbackQuery, chatID int64) conversation.Initiator {
	return conversation.Initiator{ID: q.From.ID, Username: q.From.Username, ChatID: chatID}
}

// defaultHandler routes free text to an open dialog waiting for an amount.
func (b *Bot) defaultHandler(ctx context.Context, tgBot *bot.Bot, update *tgmodels.Update) {
	b.defaultHandlerCore(ctx, tgBot, update)
}

// defaultHandlerCore is the testable implementation of defaultHandler.
func (b *Bot) defaultHandlerCore(ctx context.Context, tg TelegramAPI, update *tgmodels.Update) {
	if update.Message == nil || update.Message.From == nil {
		return
	}

	if b.engine.State(update.Message.From.ID) == conversation.StateEnteringAmount {
		b.handleAmountCore(ctx, tg, update)
		return
	}

	_, err := tg.SendMessage(ctx, &bot.SendMessageParams{
		ChatID: update.Message.Chat.ID,
		Text:   "I didn't understand that. Use /add to split an expense or /help to see all commands.",
	})
	if err != nil {
		logger.Log.Error().Err(err).Msg("Failed to send default response")
	}
}
