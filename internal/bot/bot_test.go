package bot

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aliiikrd/starsbot/internal/models"
)

func TestFormatCooldown(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want string
	}{
		{23 * time.Hour, "23h 0m"},
		{23*time.Hour + 59*time.Minute, "23h 59m"},
		{90 * time.Minute, "1h 30m"},
		{45*time.Minute + 59*time.Second, "0h 45m"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, formatCooldown(tt.d))
	}
}

func TestTasksKeyboardMarksCompletion(t *testing.T) {
	user := models.NewUserRecord(1, time.Now())
	user.CompletedTasks = []string{"task_1"}
	tasks := []models.Task{
		{ID: "task_1", Name: "First", Reward: decimal.NewFromFloat(2.0)},
		{ID: "task_2", Name: "Second", Reward: decimal.NewFromFloat(2.0)},
	}

	keyboard := tasksKeyboard(user, tasks)
	require.Len(t, keyboard.InlineKeyboard, 3)

	assert.Equal(t, "✅ First", keyboard.InlineKeyboard[0][0].Text)
	require.NotNil(t, keyboard.InlineKeyboard[0][0].CallbackData)
	assert.Equal(t, "task_task_1", *keyboard.InlineKeyboard[0][0].CallbackData)

	assert.Equal(t, "❌ Second", keyboard.InlineKeyboard[1][0].Text)
	assert.Equal(t, "🔙 Back to Menu", keyboard.InlineKeyboard[2][0].Text)
}

func TestWithdrawKeyboardTiers(t *testing.T) {
	amounts := []decimal.Decimal{decimal.NewFromInt(50), decimal.NewFromInt(100)}

	keyboard := withdrawKeyboard(amounts)
	require.Len(t, keyboard.InlineKeyboard, 3)
	assert.Equal(t, "💎 50 Stars", keyboard.InlineKeyboard[0][0].Text)
	require.NotNil(t, keyboard.InlineKeyboard[1][0].CallbackData)
	assert.Equal(t, "withdraw_100", *keyboard.InlineKeyboard[1][0].CallbackData)
}
