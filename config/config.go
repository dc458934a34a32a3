package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/viper"
)

// Task describes one promoted channel a user can join for a reward.
type Task struct {
	ID     string  `mapstructure:"id"`
	Type   string  `mapstructure:"type"`
	Name   string  `mapstructure:"name"`
	Link   string  `mapstructure:"link"`
	ChatID string  `mapstructure:"chat_id"`
	Reward float64 `mapstructure:"reward"`
}

type Config struct {
	TelegramBotToken string `mapstructure:"TELEGRAM_BOT_TOKEN"`
	AdminChatID      int64  `mapstructure:"ADMIN_CHAT_ID"`
	DatabaseFile     string `mapstructure:"DATABASE_FILE"`
	StoreBackend     string `mapstructure:"STORE_BACKEND"`

	ReferralReward float64 `mapstructure:"REFERRAL_REWARD"`
	TaskReward     float64 `mapstructure:"TASK_REWARD"`
	DailyReward    float64 `mapstructure:"DAILY_REWARD"`

	// Comma-separated list of allowed withdrawal amounts, e.g. "50,100,200,300".
	WithdrawalAmountsRaw string `mapstructure:"WITHDRAWAL_AMOUNTS"`

	ReportSchedule string `mapstructure:"REPORT_SCHEDULE"`
	TasksFile      string `mapstructure:"TASKS_FILE"`

	WithdrawalAmounts []int64 `mapstructure:"-"`
	Tasks             []Task  `mapstructure:"-"`
}

func LoadConfig(path string) (config Config, err error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return config, fmt.Errorf("failed to resolve config path: %w", err)
	}

	viper.AddConfigPath(filepath.Dir(absPath))
	viper.SetConfigName(filepath.Base(absPath))
	viper.SetConfigType("env")
	viper.AutomaticEnv()

	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		// A missing .env is fine, the environment alone can carry the settings.
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok && !os.IsNotExist(err) {
			return config, fmt.Errorf("failed to read config: %w", err)
		}
	}

	if err := viper.Unmarshal(&config); err != nil {
		return config, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if config.TelegramBotToken == "" {
		return config, fmt.Errorf("TELEGRAM_BOT_TOKEN is not set")
	}

	config.WithdrawalAmounts, err = parseAmounts(config.WithdrawalAmountsRaw)
	if err != nil {
		return config, fmt.Errorf("invalid WITHDRAWAL_AMOUNTS: %w", err)
	}

	config.Tasks, err = loadTasks(config.TasksFile, config.TaskReward)
	if err != nil {
		return config, fmt.Errorf("failed to load task list: %w", err)
	}

	return config, nil
}

func setDefaults() {
	viper.SetDefault("TELEGRAM_BOT_TOKEN", "")
	viper.SetDefault("ADMIN_CHAT_ID", 0)
	viper.SetDefault("DATABASE_FILE", "bot_database.json")
	viper.SetDefault("STORE_BACKEND", "file")
	viper.SetDefault("REFERRAL_REWARD", 0.5)
	viper.SetDefault("TASK_REWARD", 2.0)
	viper.SetDefault("DAILY_REWARD", 2.0)
	viper.SetDefault("WITHDRAWAL_AMOUNTS", "50,100,200,300")
	viper.SetDefault("REPORT_SCHEDULE", "@daily")
	viper.SetDefault("TASKS_FILE", "tasks.yaml")
}

func parseAmounts(raw string) ([]int64, error) {
	var amounts []int64
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		amount, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("bad amount %q: %w", part, err)
		}
		if amount <= 0 {
			return nil, fmt.Errorf("amount %d must be positive", amount)
		}
		amounts = append(amounts, amount)
	}
	if len(amounts) == 0 {
		return nil, fmt.Errorf("at least one amount is required")
	}
	return amounts, nil
}

// loadTasks reads the promoted-channel list from a YAML file. When the file is
// absent the built-in example list is used.
func loadTasks(path string, defaultReward float64) ([]Task, error) {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return defaultTasks(defaultReward), nil
		}
		return nil, err
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	var tasks []Task
	if err := v.UnmarshalKey("tasks", &tasks); err != nil {
		return nil, fmt.Errorf("failed to unmarshal tasks: %w", err)
	}

	for i := range tasks {
		if tasks[i].ID == "" {
			return nil, fmt.Errorf("task #%d has no id", i+1)
		}
		if tasks[i].Reward == 0 {
			tasks[i].Reward = defaultReward
		}
		if tasks[i].Type == "" {
			tasks[i].Type = "channel"
		}
	}
	return tasks, nil
}

func defaultTasks(reward float64) []Task {
	return []Task{
		{
			ID:     "task_1",
			Type:   "channel",
			Name:   "Example Channel 1",
			Link:   "https://t.me/example_channel",
			ChatID: "@example_channel",
			Reward: reward,
		},
		{
			ID:     "task_2",
			Type:   "channel",
			Name:   "Example Channel 2",
			Link:   "https://t.me/example_channel2",
			ChatID: "@example_channel2",
			Reward: reward,
		},
	}
}
