package bot

import (
	"context"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/shopspring/decimal"

	"github.com/aliiikrd/starsbot/internal/models"
)

const helpText = "📖 *Bot Help Guide*\n\n" +
	"🌟 *Available Commands:*\n" +
	"/start - Start the bot\n" +
	"/help - Show this help message\n" +
	"/account - View your account details\n\n" +
	"💫 *How to Use:*\n\n" +
	"1️⃣ *Daily Gift*: Claim your daily reward every 24 hours\n" +
	"2️⃣ *Tasks*: Join channels to earn stars\n" +
	"3️⃣ *Referral*: Share your link and earn from referrals\n" +
	"4️⃣ *Withdraw*: Request withdrawal when you have enough stars\n" +
	"5️⃣ *Account*: Check your balance and statistics\n\n" +
	"❓ *Need Support?* Contact admin for help!"

func (b *Bot) handleMessage(message *tgbotapi.Message) {
	if message.From == nil {
		return
	}
	ctx := context.Background()
	chatID := message.Chat.ID

	if !message.IsCommand() {
		b.sendMessage(chatID, "🎯 Choose an option below:", mainMenuKeyboard())
		return
	}

	switch message.Command() {
	case "start":
		b.handleStart(ctx, message)
	case "help":
		b.sendMessage(chatID, helpText, backKeyboard())
	case "account":
		user, err := b.resolveUser(ctx, message.From)
		if err != nil {
			b.logger.Errorf("Failed to resolve user %d: %v", message.From.ID, err)
			b.sendMessage(chatID, "Something went wrong. Please try again later.", nil)
			return
		}
		b.sendMessage(chatID, b.accountText(user), backKeyboard())
	default:
		b.sendMessage(chatID, "Unknown command. Use the menu below:", mainMenuKeyboard())
	}
}

func (b *Bot) handleStart(ctx context.Context, message *tgbotapi.Message) {
	from := message.From
	referralParam := strings.TrimSpace(message.CommandArguments())

	user, err := b.service.Register(ctx, from.ID, from.UserName, from.FirstName, referralParam)
	if err != nil {
		b.logger.Errorf("Failed to register user %d: %v", from.ID, err)
		b.sendMessage(message.Chat.ID, "Something went wrong. Please try again later.", nil)
		return
	}

	rules := b.service.Rules()
	tiers := make([]string, 0, len(rules.WithdrawalAmounts))
	for _, amount := range rules.WithdrawalAmounts {
		tiers = append(tiers, amount.String()+"⭐️")
	}

	welcome := fmt.Sprintf(
		"⭐️⭐️⭐️⭐️⭐️\n\n"+
			"🌟 *Welcome to Telegram Stars Bot!* 🌟\n\n"+
			"Hello, %s!\n\n"+
			"🎯 *Start earning Telegram Stars now!*\n\n"+
			"💫 *How to earn:*\n"+
			"🎁 Daily gifts - %s stars\n"+
			"📋 Complete tasks - up to %s stars each\n"+
			"👥 Refer friends - %s stars per referral\n\n"+
			"💰 *Withdraw your stars when you reach:*\n%s\n\n"+
			"🚀 Choose an option below to get started!",
		user.FirstName,
		rules.DailyReward.String(),
		maxTaskReward(b.service.Tasks(), rules.DailyReward).String(),
		rules.ReferralReward.String(),
		strings.Join(tiers, "  •  "),
	)
	b.sendMessage(message.Chat.ID, welcome, mainMenuKeyboard())
}

// resolveUser lazily creates the acting user's record and refreshes the
// display metadata on every interaction.
func (b *Bot) resolveUser(ctx context.Context, from *tgbotapi.User) (*models.UserRecord, error) {
	return b.service.Register(ctx, from.ID, from.UserName, from.FirstName, "")
}

func maxTaskReward(tasks []models.Task, fallback decimal.Decimal) decimal.Decimal {
	max := fallback
	for _, task := range tasks {
		if task.Reward.GreaterThan(max) {
			max = task.Reward
		}
	}
	return max
}
