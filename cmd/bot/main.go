package main

import (
	"context"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/robfig/cron/v3"
	"github.com/shopspring/decimal"

	"github.com/aliiikrd/starsbot/config"
	"github.com/aliiikrd/starsbot/internal/bot"
	"github.com/aliiikrd/starsbot/internal/ledger"
	"github.com/aliiikrd/starsbot/internal/models"
	"github.com/aliiikrd/starsbot/internal/repository"
	"github.com/aliiikrd/starsbot/internal/service"
	"github.com/aliiikrd/starsbot/utils"
)

func main() {
	logger := utils.InitLogger()
	cfg, err := config.LoadConfig(".env")
	if err != nil {
		logger.Fatal("Failed to load config: ", err)
	}

	var store service.Store
	switch cfg.StoreBackend {
	case "sqlite":
		store, err = repository.NewSQLiteStore(cfg.DatabaseFile, logger)
		if err != nil {
			logger.Fatal("Failed to open store: ", err)
		}
	default:
		store = repository.NewFileStore(cfg.DatabaseFile, logger)
	}

	rules := ledger.NewRules(cfg.DailyReward, cfg.ReferralReward, cfg.WithdrawalAmounts, logger)
	svc := service.NewService(store, rules, taskList(cfg.Tasks), cfg.AdminChatID, logger)

	api, err := tgbotapi.NewBotAPI(cfg.TelegramBotToken)
	if err != nil {
		logger.Fatal("Failed to create bot API: ", err)
	}

	starsBot := bot.NewBot(api, svc, logger)
	svc.AttachTransport(starsBot, starsBot)

	if cfg.AdminChatID != 0 && cfg.ReportSchedule != "" {
		scheduler := cron.New()
		if _, err := scheduler.AddFunc(cfg.ReportSchedule, func() {
			if err := svc.SendAdminReport(context.Background()); err != nil {
				logger.Errorf("Failed to send admin report: %v", err)
			}
		}); err != nil {
			logger.Fatal("Invalid report schedule: ", err)
		}
		scheduler.Start()
		defer scheduler.Stop()
	} else {
		logger.Warn("ADMIN_CHAT_ID not set, withdrawal notifications and reports are disabled")
	}

	starsBot.Start()
}

func taskList(tasks []config.Task) []models.Task {
	out := make([]models.Task, 0, len(tasks))
	for _, t := range tasks {
		out = append(out, models.Task{
			ID:     t.ID,
			Type:   t.Type,
			Name:   t.Name,
			Link:   t.Link,
			ChatID: t.ChatID,
			Reward: decimal.NewFromFloat(t.Reward),
		})
	}
	return out
}
