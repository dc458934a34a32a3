package bot

import (
	"context"
	"fmt"
	"strconv"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/aliiikrd/starsbot/internal/service"
	"github.com/aliiikrd/starsbot/utils"
)

type Bot struct {
	API     *tgbotapi.BotAPI
	service *service.Service
	logger  *utils.Logger
}

func NewBot(api *tgbotapi.BotAPI, service *service.Service, logger *utils.Logger) *Bot {
	return &Bot{
		API:     api,
		service: service,
		logger:  logger,
	}
}

func (b *Bot) Start() {
	b.logger.Infof("Starting bot as @%s...", b.API.Self.UserName)

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	u.AllowedUpdates = []string{"message", "callback_query"}

	updates := b.API.GetUpdatesChan(u)
	for update := range updates {
		if update.CallbackQuery != nil {
			b.handleCallbackQuery(update.CallbackQuery)
			continue
		}
		if update.Message != nil {
			b.handleMessage(update.Message)
		}
	}
}

// IsMember reports whether the user currently belongs to the channel. Channel
// ids come from task config and may be a @username or a numeric chat id.
func (b *Bot) IsMember(ctx context.Context, chatID string, userID int64) (bool, error) {
	cfg := tgbotapi.GetChatMemberConfig{
		ChatConfigWithUser: tgbotapi.ChatConfigWithUser{UserID: userID},
	}
	if numeric, err := strconv.ParseInt(chatID, 10, 64); err == nil {
		cfg.ChatID = numeric
	} else {
		cfg.SuperGroupUsername = chatID
	}

	member, err := b.API.GetChatMember(cfg)
	if err != nil {
		return false, fmt.Errorf("failed to get chat member: %w", err)
	}

	switch member.Status {
	case "member", "administrator", "creator":
		return true, nil
	}
	return false, nil
}

// Notify implements the service's notification sink.
func (b *Bot) Notify(chatID int64, text string) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeMarkdown
	if _, err := b.API.Send(msg); err != nil {
		return fmt.Errorf("failed to send message to %d: %w", chatID, err)
	}
	return nil
}

func (b *Bot) sendMessage(chatID int64, text string, replyMarkup interface{}) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeMarkdown
	if replyMarkup != nil {
		msg.ReplyMarkup = replyMarkup
	}
	if _, err := b.API.Send(msg); err != nil {
		b.logger.Errorf("Failed to send message: %v", err)
	}
}

func (b *Bot) editMessage(chatID int64, messageID int, text string, keyboard tgbotapi.InlineKeyboardMarkup) {
	edit := tgbotapi.NewEditMessageTextAndMarkup(chatID, messageID, text, keyboard)
	edit.ParseMode = tgbotapi.ModeMarkdown
	if _, err := b.API.Send(edit); err != nil {
		b.logger.Errorf("Failed to edit message: %v", err)
	}
}

func (b *Bot) answerCallback(callbackID string, text string, alert bool) {
	callback := tgbotapi.NewCallback(callbackID, text)
	callback.ShowAlert = alert
	if _, err := b.API.Request(callback); err != nil {
		b.logger.Errorf("Failed to answer callback: %v", err)
	}
}
