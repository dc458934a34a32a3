package bot

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/shopspring/decimal"

	"github.com/aliiikrd/starsbot/internal/ledger"
	"github.com/aliiikrd/starsbot/internal/models"
	"github.com/aliiikrd/starsbot/internal/service"
)

func (b *Bot) handleCallbackQuery(callback *tgbotapi.CallbackQuery) {
	ctx := context.Background()
	chatID := callback.Message.Chat.ID
	messageID := callback.Message.MessageID

	user, err := b.resolveUser(ctx, callback.From)
	if err != nil {
		b.logger.Errorf("Failed to resolve user %d: %v", callback.From.ID, err)
		b.answerCallback(callback.ID, "Something went wrong. Please try again later.", true)
		return
	}

	data := callback.Data
	switch {
	case data == "main_menu":
		b.answerCallback(callback.ID, "", false)
		b.showMainMenu(chatID, messageID, user)
	case data == "account":
		b.answerCallback(callback.ID, "", false)
		b.editMessage(chatID, messageID, b.accountText(user), backKeyboard())
	case data == "daily_gift":
		b.answerCallback(callback.ID, "", false)
		b.claimDailyGift(ctx, chatID, messageID, user)
	case data == "tasks":
		b.answerCallback(callback.ID, "", false)
		b.showTasks(chatID, messageID, user)
	case strings.HasPrefix(data, "verify_"):
		b.verifyTask(ctx, callback, user, strings.TrimPrefix(data, "verify_"))
	case strings.HasPrefix(data, "task_"):
		b.answerCallback(callback.ID, "", false)
		b.showTaskDetail(callback, user, strings.TrimPrefix(data, "task_"))
	case data == "referral":
		b.answerCallback(callback.ID, "", false)
		b.showReferral(chatID, messageID, user)
	case data == "withdraw":
		b.answerCallback(callback.ID, "", false)
		b.showWithdraw(chatID, messageID, user)
	case strings.HasPrefix(data, "withdraw_"):
		b.processWithdrawal(ctx, callback, user, strings.TrimPrefix(data, "withdraw_"))
	case data == "help":
		b.answerCallback(callback.ID, "", false)
		b.editMessage(chatID, messageID, helpText, backKeyboard())
	default:
		b.answerCallback(callback.ID, "Unknown action.", false)
	}
}

func (b *Bot) showMainMenu(chatID int64, messageID int, user *models.UserRecord) {
	text := fmt.Sprintf(
		"⭐️ *Telegram Stars Bot* ⭐️\n\nHello, %s!\n\n🎯 Choose an option below:",
		user.FirstName,
	)
	b.editMessage(chatID, messageID, text, mainMenuKeyboard())
}

func (b *Bot) accountText(user *models.UserRecord) string {
	rules := b.service.Rules()
	referralEarned := rules.ReferralReward.Mul(decimalFromInt(len(user.Referrals)))

	taskEarned := decimalFromInt(0)
	for _, task := range b.service.Tasks() {
		if user.HasCompletedTask(task.ID) {
			taskEarned = taskEarned.Add(task.Reward)
		}
	}

	return fmt.Sprintf(
		"👤 *Your Account Details*\n\n"+
			"💰 *Balance:* %s ⭐️ Stars\n"+
			"👥 *Referrals:* %d users\n"+
			"✅ *Completed Tasks:* %d/%d\n"+
			"📅 *Member Since:* %s\n\n"+
			"🎯 *Total Earned:*\n"+
			"  • From referrals: %s ⭐️\n"+
			"  • From tasks: %s ⭐️\n\n"+
			"💡 Keep earning stars and withdraw when ready!",
		user.Stars.String(),
		len(user.Referrals),
		len(user.CompletedTasks), len(b.service.Tasks()),
		user.JoinDate.Format("2006-01-02"),
		referralEarned.String(),
		taskEarned.String(),
	)
}

func (b *Bot) claimDailyGift(ctx context.Context, chatID int64, messageID int, user *models.UserRecord) {
	userID := user.UserID
	user, result, err := b.service.ClaimDaily(ctx, userID, time.Now())
	if err != nil {
		b.logger.Errorf("Failed to claim daily gift for user %d: %v", userID, err)
		return
	}

	var text string
	if result.Claimed {
		text = fmt.Sprintf(
			"🎁 *Daily Gift Claimed!* 🎁\n\n"+
				"Congratulations! You received %s ⭐️ stars!\n\n"+
				"💰 *New Balance:* %s ⭐️\n\n"+
				"⏰ Come back in 24 hours for your next gift!",
			b.service.Rules().DailyReward.String(), user.Stars.String(),
		)
	} else {
		text = fmt.Sprintf(
			"⏰ *Daily Gift Not Ready* ⏰\n\n"+
				"You already claimed your daily gift today!\n\n"+
				"⏳ *Time until next gift:* %s\n\n"+
				"💡 Try completing tasks or referring friends meanwhile!",
			formatCooldown(result.Remaining),
		)
	}
	b.editMessage(chatID, messageID, text, backKeyboard())
}

func (b *Bot) showTasks(chatID int64, messageID int, user *models.UserRecord) {
	tasks := b.service.Tasks()
	text := fmt.Sprintf(
		"📋 *Available Tasks* 📋\n\n"+
			"Complete tasks to earn stars!\n\n"+
			"✅ *Completed:* %d/%d tasks\n\n"+
			"💡 Click on a task to complete it:",
		len(user.CompletedTasks), len(tasks),
	)
	b.editMessage(chatID, messageID, text, tasksKeyboard(user, tasks))
}

func (b *Bot) showTaskDetail(callback *tgbotapi.CallbackQuery, user *models.UserRecord, taskID string) {
	task, ok := b.service.TaskByID(taskID)
	if !ok {
		b.answerCallback(callback.ID, "Task not found!", false)
		return
	}
	if user.HasCompletedTask(taskID) {
		b.answerCallback(callback.ID, "✅ You already completed this task!", false)
		return
	}

	text := fmt.Sprintf(
		"📋 *Task: %s*\n\n"+
			"💰 *Reward:* %s ⭐️ stars\n\n"+
			"📝 *Instructions:*\n"+
			"1️⃣ Click 'Join Channel' button below\n"+
			"2️⃣ Join the channel\n"+
			"3️⃣ Click 'Verify' to check and get your reward\n\n"+
			"⚠️ Make sure you stay in the channel to receive your reward!",
		task.Name, task.Reward.String(),
	)
	b.editMessage(callback.Message.Chat.ID, callback.Message.MessageID, text, taskDetailKeyboard(task))
}

func (b *Bot) verifyTask(ctx context.Context, callback *tgbotapi.CallbackQuery, user *models.UserRecord, taskID string) {
	user, outcome, err := b.service.CompleteTask(ctx, user.UserID, taskID)
	if err != nil {
		if errors.Is(err, service.ErrTaskNotFound) {
			b.answerCallback(callback.ID, "Task not found!", false)
			return
		}
		b.logger.Errorf("Failed to verify task %s for user %d: %v", taskID, callback.From.ID, err)
		b.answerCallback(callback.ID, "⚠️ Could not verify membership. Make sure you joined the channel!", true)
		return
	}

	switch outcome {
	case ledger.TaskAlreadyCompleted:
		b.answerCallback(callback.ID, "✅ You already completed this task!", false)
		b.showTasks(callback.Message.Chat.ID, callback.Message.MessageID, user)
	case ledger.TaskNotJoined:
		b.answerCallback(callback.ID, "❌ You haven't joined the channel yet!", true)
	case ledger.TaskCompleted:
		b.answerCallback(callback.ID, "", false)
		task, _ := b.service.TaskByID(taskID)
		text := fmt.Sprintf(
			"✅ *Task Completed!* ✅\n\n"+
				"Congratulations! You earned %s ⭐️ stars!\n\n"+
				"💰 *New Balance:* %s ⭐️\n\n"+
				"🎯 Complete more tasks to earn more stars!",
			task.Reward.String(), user.Stars.String(),
		)
		b.editMessage(callback.Message.Chat.ID, callback.Message.MessageID, text, backKeyboard())
	}
}

func (b *Bot) showReferral(chatID int64, messageID int, user *models.UserRecord) {
	rules := b.service.Rules()
	link := fmt.Sprintf("https://t.me/%s?start=%d", b.API.Self.UserName, user.UserID)
	earned := rules.ReferralReward.Mul(decimalFromInt(len(user.Referrals)))

	text := fmt.Sprintf(
		"👥 *Referral Program* 👥\n\n"+
			"💰 Earn %s ⭐️ stars for each friend!\n\n"+
			"📊 *Your Statistics:*\n"+
			"  • Total Referrals: %d\n"+
			"  • Stars Earned: %s ⭐️\n\n"+
			"🔗 *Your Referral Link:*\n`%s`\n\n"+
			"📱 *How it works:*\n"+
			"1️⃣ Share your link with friends\n"+
			"2️⃣ They join using your link\n"+
			"3️⃣ You get %s ⭐️ stars instantly!\n\n"+
			"💡 The more friends you invite, the more you earn!",
		rules.ReferralReward.String(),
		len(user.Referrals),
		earned.String(),
		link,
		rules.ReferralReward.String(),
	)
	b.editMessage(chatID, messageID, text, backKeyboard())
}

func (b *Bot) showWithdraw(chatID int64, messageID int, user *models.UserRecord) {
	rules := b.service.Rules()

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf(
		"💰 *Withdraw Your Stars* 💰\n\n💎 *Your Balance:* %s ⭐️ stars\n\n📋 *Available Amounts:*\n",
		user.Stars.String(),
	))
	for _, amount := range rules.WithdrawalAmounts {
		if user.Stars.GreaterThanOrEqual(amount) {
			sb.WriteString(fmt.Sprintf("  ✅ %s stars\n", amount.String()))
		} else {
			sb.WriteString(fmt.Sprintf("  ❌ %s stars (Need %s more)\n",
				amount.String(), amount.Sub(user.Stars).String()))
		}
	}
	sb.WriteString(
		"\n💡 *Note:* Withdrawal requests are reviewed by admin.\n" +
			"⏰ Processing time: 24-48 hours\n\n" +
			"👇 Select amount to withdraw:",
	)
	b.editMessage(chatID, messageID, sb.String(), withdrawKeyboard(rules.WithdrawalAmounts))
}

func (b *Bot) processWithdrawal(ctx context.Context, callback *tgbotapi.CallbackQuery, user *models.UserRecord, amountStr string) {
	amount, err := strconv.ParseInt(amountStr, 10, 64)
	if err != nil {
		b.answerCallback(callback.ID, "Unknown withdrawal amount.", false)
		return
	}

	user, result, err := b.service.RequestWithdrawal(ctx, user.UserID, amount, time.Now())
	if err != nil {
		b.logger.Errorf("Failed to process withdrawal for user %d: %v", callback.From.ID, err)
		b.answerCallback(callback.ID, "Something went wrong. Please try again later.", true)
		return
	}

	if result.InvalidAmount {
		b.answerCallback(callback.ID, "Unknown withdrawal amount.", false)
		return
	}
	if !result.Accepted {
		b.answerCallback(callback.ID,
			fmt.Sprintf("❌ Insufficient balance! You need %s more stars.", result.Shortfall.String()),
			true,
		)
		return
	}

	b.answerCallback(callback.ID, "", false)
	text := fmt.Sprintf(
		"✅ *Withdrawal Request Submitted!* ✅\n\n"+
			"💎 *Amount:* %d ⭐️ stars\n"+
			"💰 *New Balance:* %s ⭐️\n\n"+
			"📝 *Your request has been sent to admin.*\n"+
			"⏰ Processing time: 24-48 hours\n\n"+
			"💡 You will be notified once processed!",
		amount, user.Stars.String(),
	)
	b.editMessage(callback.Message.Chat.ID, callback.Message.MessageID, text, backKeyboard())
}

func decimalFromInt(n int) decimal.Decimal {
	return decimal.NewFromInt(int64(n))
}

// formatCooldown renders a wait as whole hours and minutes, rounded down.
func formatCooldown(d time.Duration) string {
	hours := int(d.Hours())
	minutes := int(d.Minutes()) % 60
	return fmt.Sprintf("%dh %dm", hours, minutes)
}
