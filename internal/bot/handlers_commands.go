package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"gitlab.com/yelinaung/split-bot/internal/apperr"
	"gitlab.com/yelinaung/split-bot/internal/conversation"
	"gitlab.com/yelinaung/split-bot/internal/logger"
)

// extractCommandArgs strips the /command prefix (and optional @botname suffix)
// from a message and returns the remaining trimmed arguments.
func extractCommandArgs(text, command string) string {
	args := strings.TrimSpace(strings.TrimPrefix(text, command))
	if strings.HasPrefix(args, "@") {
		if spaceIdx := strings.Index(args, " "); spaceIdx != -1 {
			args = strings.TrimSpace(args[spaceIdx:])
		} else {
			args = ""
		}
	}
	return args
}

// escapeHTML escapes text for Telegram's HTML parse mode.
func escapeHTML(s string) string {
	s = strings.ReplaceAll(s, "&", "&amp;")
	s = strings.ReplaceAll(s, "<", "&lt;")
	s = strings.ReplaceAll(s, ">", "&gt;")
	return s
}

// reply sends a plain text message and logs delivery failures.
func reply(ctx context.Context, tg TelegramAPI, chatID int64, text string) {
	if _, err := tg.SendMessage(ctx, &bot.SendMessageParams{ChatID: chatID, Text: text}); err != nil {
		logger.Log.Error().Err(err).Str("chat_id_hash", logger.HashChatID(chatID)).Msg("Failed to send reply")
	}
}

// handleStart handles the /start command.
func (b *Bot) handleStart(ctx context.Context, tgBot *bot.Bot, update *models.Update) {
	b.handleStartCore(ctx, tgBot, update)
}

// handleStartCore greets the user, shows their chat id and registers them
// when they have a username.
func (b *Bot) handleStartCore(ctx context.Context, tg TelegramAPI, update *models.Update) {
	if update.Message == nil {
		return
	}
	chatID := update.Message.Chat.ID

	username := ""
	if update.Message.From != nil {
		username = update.Message.From.Username
	}

	greeting := "👋 Hello!"
	if username != "" {
		greeting = fmt.Sprintf("👋 Hello @%s!", escapeHTML(username))
	}
	text := fmt.Sprintf(`%s
Your chat ID is: <code>%d</code>

I split shared expenses equally and remind everyone who still owes.
Use /register to join the expense split system, or /help to see all commands.`, greeting, chatID)

	_, err := tg.SendMessage(ctx, &bot.SendMessageParams{
		ChatID:    chatID,
		Text:      text,
		ParseMode: models.ParseModeHTML,
	})
	if err != nil {
		logger.Log.Error().Err(err).Msg("Failed to send /start response")
	}

	if username == "" {
		return
	}
	_, err = b.directory.Register(ctx, username, chatID)
	switch {
	case err == nil:
		reply(ctx, tg, chatID, "✅ You've been auto-registered.")
	case errors.Is(err, apperr.ErrAlreadyRegistered):
	default:
		logger.Log.Error().Err(err).Msg("Error in /start auto-registration")
	}
}

// handleHelp handles the /help command.
func (b *Bot) handleHelp(ctx context.Context, tgBot *bot.Bot, update *models.Update) {
	b.handleHelpCore(ctx, tgBot, update)
}

// handleHelpCore is the testable implementation of handleHelp.
func (b *Bot) handleHelpCore(ctx context.Context, tg TelegramAPI, update *models.Update) {
	if update.Message == nil {
		return
	}

	text := `📚 <b>Available Commands</b>

<b>Participants:</b>
• <code>/register</code> - Join the split list
• <code>/leave</code> - Stop appearing in new splits
• <code>/join</code> - Appear in new splits again

<b>Expenses:</b>
• <code>/add</code> - Split a new expense: pick people, then send the total
• <code>/cancel</code> or <code>/back</code> - Abandon the current expense

<b>Settling up:</b>
• Press <b>✅ Mark as Paid</b> on a split message once it is paid
• <code>/owed</code> - Who still owes what, with a chart
• <code>/export &lt;expense id&gt;</code> - Download an expense as CSV

A reminder is sent every evening for each unpaid split.`

	_, err := tg.SendMessage(ctx, &bot.SendMessageParams{
		ChatID:    update.Message.Chat.ID,
		Text:      text,
		ParseMode: models.ParseModeHTML,
	})
	if err != nil {
		logger.Log.Error().Err(err).Msg("Failed to send /help response")
	}
}

// handleRegister handles the /register command.
func (b *Bot) handleRegister(ctx context.Context, tgBot *bot.Bot, update *models.Update) {
	b.handleRegisterCore(ctx, tgBot, update)
}

// handleRegisterCore is the testable implementation of handleRegister.
func (b *Bot) handleRegisterCore(ctx context.Context, tg TelegramAPI, update *models.Update) {
	if update.Message == nil || update.Message.From == nil {
		return
	}
	chatID := update.Message.Chat.ID

	user, err := b.directory.Register(ctx, update.Message.From.Username, chatID)
	switch {
	case err == nil:
		_, sendErr := tg.SendMessage(ctx, &bot.SendMessageParams{
			ChatID:    chatID,
			Text:      fmt.Sprintf("✅ Registered successfully!\nUsername: @%s\nChat ID: <code>%d</code>", escapeHTML(user.Username), chatID),
			ParseMode: models.ParseModeHTML,
		})
		if sendErr != nil {
			logger.Log.Error().Err(sendErr).Msg("Failed to send /register response")
		}
	case errors.Is(err, apperr.ErrAlreadyRegistered):
		reply(ctx, tg, chatID, fmt.Sprintf("👋 You're already registered as @%s.", user.Username))
	case errors.Is(err, apperr.ErrEmptyUsername):
		reply(ctx, tg, chatID, "❌ You must set a Telegram username to register.")
	case apperr.IsValidation(err):
		reply(ctx, tg, chatID, "❌ That username cannot be registered.")
	default:
		logger.Log.Error().Err(err).Msg("Error in /register")
		reply(ctx, tg, chatID, "❌ Something went wrong. Please try again later.")
	}
}

// handleAdd handles the /add command.
func (b *Bot) handleAdd(ctx context.Context, tgBot *bot.Bot, update *models.Update) {
	b.handleAddCore(ctx, tgBot, update)
}

// handleAddCore opens a new dialog and shows the participant menu.
func (b *Bot) handleAddCore(ctx context.Context, tg TelegramAPI, update *models.Update) {
	if update.Message == nil || update.Message.From == nil {
		return
	}
	chatID := update.Message.Chat.ID

	r, err := b.engine.Handle(ctx, messageInitiator(update.Message), conversation.StartAdd{})
	if err != nil {
		logger.Log.Error().Err(err).Msg("Failed to start expense dialog")
		reply(ctx, tg, chatID, userMessage(err))
		return
	}

	_, err = tg.SendMessage(ctx, &bot.SendMessageParams{
		ChatID:      chatID,
		Text:        selectionText(r),
		ReplyMarkup: selectionKeyboard(r),
	})
	if err != nil {
		logger.Log.Error().Err(err).Msg("Failed to send selection menu")
	}
}

// handleCancel handles the /cancel and /back commands.
func (b *Bot) handleCancel(ctx context.Context, tgBot *bot.Bot, update *models.Update) {
	b.handleCancelCore(ctx, tgBot, update)
}

// handleCancelCore is the testable implementation of handleCancel.
func (b *Bot) handleCancelCore(ctx context.Context, tg TelegramAPI, update *models.Update) {
	if update.Message == nil || update.Message.From == nil {
		return
	}

	_, _ = b.engine.Handle(ctx, messageInitiator(update.Message), conversation.Cancel{})
	reply(ctx, tg, update.Message.Chat.ID, "🔙 Okay, cancelled. You're back at the main menu.")
}

// handleLeave handles the /leave command.
func (b *Bot) handleLeave(ctx context.Context, tgBot *bot.Bot, update *models.Update) {
	b.setActiveCore(ctx, tgBot, update, false)
}

// handleJoin handles the /join command.
func (b *Bot) handleJoin(ctx context.Context, tgBot *bot.Bot, update *models.Update) {
	b.setActiveCore(ctx, tgBot, update, true)
}

// setActiveCore includes or excludes the sender from future selection menus.
func (b *Bot) setActiveCore(ctx context.Context, tg TelegramAPI, update *models.Update, active bool) {
	if update.Message == nil || update.Message.From == nil {
		return
	}
	chatID := update.Message.Chat.ID

	err := b.directory.SetActive(ctx, update.Message.From.Username, active)
	switch {
	case err == nil && active:
		reply(ctx, tg, chatID, "✅ You will appear in new splits again.")
	case err == nil:
		reply(ctx, tg, chatID, "👋 You will no longer appear in new splits. Existing splits are unchanged.")
	case errors.Is(err, apperr.ErrEmptyUsername):
		reply(ctx, tg, chatID, "❌ You must set a Telegram username first.")
	case errors.Is(err, apperr.ErrNotFound):
		reply(ctx, tg, chatID, "❌ You're not registered yet. Use /register first.")
	default:
		reply(ctx, tg, chatID, userMessage(err))
	}
}
