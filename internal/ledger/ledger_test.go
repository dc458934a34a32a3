package ledger

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aliiikrd/starsbot/internal/models"
	"github.com/aliiikrd/starsbot/utils"
)

func testRules(t *testing.T) *Rules {
	t.Helper()
	return NewRules(2.0, 0.5, []int64{50, 100, 200, 300}, utils.InitLogger())
}

func testTask(reward float64) models.Task {
	return models.Task{
		ID:     "task_1",
		Type:   "channel",
		Name:   "Example Channel 1",
		Link:   "https://t.me/example_channel",
		ChatID: "@example_channel",
		Reward: decimal.NewFromFloat(reward),
	}
}

func TestGrantRoundsAfterEveryStep(t *testing.T) {
	rules := testRules(t)
	record := models.NewUserRecord(1, time.Now())

	rules.Grant(record, decimal.NewFromFloat(1.005), "bonus")
	assert.Equal(t, "1.01", record.Stars.String())

	rules.Grant(record, decimal.NewFromFloat(1.005), "bonus")
	// 1.01 + 1.005 rounds to 2.02; a single final rounding of the raw sum
	// would give 2.01 instead.
	assert.Equal(t, "2.02", record.Stars.String())
}

func TestClaimDailyCooldownCycle(t *testing.T) {
	rules := testRules(t)
	record := models.NewUserRecord(1, time.Now())
	t0 := time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)

	first := rules.ClaimDaily(record, t0)
	require.True(t, first.Claimed)
	assert.Equal(t, "2", record.Stars.String())
	require.NotNil(t, record.LastDailyReward)
	assert.True(t, record.LastDailyReward.Equal(t0))

	second := rules.ClaimDaily(record, t0.Add(time.Hour))
	assert.False(t, second.Claimed)
	assert.Equal(t, 23*time.Hour, second.Remaining)
	assert.Equal(t, "2", record.Stars.String(), "cooldown must not change the balance")
	assert.True(t, record.LastDailyReward.Equal(t0), "cooldown must not touch the timestamp")

	third := rules.ClaimDaily(record, t0.Add(25*time.Hour))
	require.True(t, third.Claimed)
	assert.Equal(t, "4", record.Stars.String())
	assert.True(t, record.LastDailyReward.Equal(t0.Add(25*time.Hour)))
}

func TestClaimDailyExactBoundary(t *testing.T) {
	rules := testRules(t)
	record := models.NewUserRecord(1, time.Now())
	t0 := time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)

	require.True(t, rules.ClaimDaily(record, t0).Claimed)
	assert.True(t, rules.ClaimDaily(record, t0.Add(24*time.Hour)).Claimed)
}

func TestCompleteTaskGrantsOnce(t *testing.T) {
	rules := testRules(t)
	record := models.NewUserRecord(1, time.Now())
	task := testTask(2.0)

	assert.Equal(t, TaskCompleted, rules.CompleteTask(record, task, true))
	assert.Equal(t, "2", record.Stars.String())
	assert.Equal(t, []string{"task_1"}, record.CompletedTasks)

	assert.Equal(t, TaskAlreadyCompleted, rules.CompleteTask(record, task, true))
	assert.Equal(t, "2", record.Stars.String())
	assert.Equal(t, []string{"task_1"}, record.CompletedTasks)
}

func TestCompleteTaskRequiresMembership(t *testing.T) {
	rules := testRules(t)
	record := models.NewUserRecord(1, time.Now())

	assert.Equal(t, TaskNotJoined, rules.CompleteTask(record, testTask(2.0), false))
	assert.Equal(t, "0", record.Stars.String())
	assert.Empty(t, record.CompletedTasks)
}

func TestAttributeReferral(t *testing.T) {
	rules := testRules(t)
	newUser := models.NewUserRecord(100, time.Now())
	referrer := models.NewUserRecord(200, time.Now())

	require.Equal(t, ReferralAttributed, rules.AttributeReferral(newUser, referrer))
	require.NotNil(t, newUser.ReferredBy)
	assert.Equal(t, int64(200), *newUser.ReferredBy)
	assert.Equal(t, []int64{100}, referrer.Referrals)
	assert.Equal(t, "0.5", referrer.Stars.String())
}

func TestAttributeReferralIgnoresSelf(t *testing.T) {
	rules := testRules(t)
	user := models.NewUserRecord(100, time.Now())

	assert.Equal(t, ReferralIgnored, rules.AttributeReferral(user, user))
	assert.Nil(t, user.ReferredBy)
	assert.Empty(t, user.Referrals)
	assert.Equal(t, "0", user.Stars.String())
}

func TestAttributeReferralIgnoresAlreadyReferred(t *testing.T) {
	rules := testRules(t)
	newUser := models.NewUserRecord(100, time.Now())
	first := models.NewUserRecord(200, time.Now())
	second := models.NewUserRecord(300, time.Now())

	require.Equal(t, ReferralAttributed, rules.AttributeReferral(newUser, first))
	assert.Equal(t, ReferralIgnored, rules.AttributeReferral(newUser, second))

	assert.Equal(t, int64(200), *newUser.ReferredBy)
	assert.Empty(t, second.Referrals)
	assert.Equal(t, "0", second.Stars.String())
}

func TestRequestWithdrawal(t *testing.T) {
	now := time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name          string
		balance       float64
		amount        int64
		wantAccepted  bool
		wantInvalid   bool
		wantShortfall string
		wantBalance   string
	}{
		{name: "accepted", balance: 150, amount: 100, wantAccepted: true, wantBalance: "50"},
		{name: "exact balance", balance: 100, amount: 100, wantAccepted: true, wantBalance: "0"},
		{name: "insufficient", balance: 50, amount: 100, wantShortfall: "50", wantBalance: "50"},
		{name: "unknown tier", balance: 500, amount: 75, wantInvalid: true, wantBalance: "500"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rules := testRules(t)
			record := models.NewUserRecord(1, now)
			record.Stars = decimal.NewFromFloat(tt.balance)

			result := rules.RequestWithdrawal(record, decimal.NewFromInt(tt.amount), now)

			assert.Equal(t, tt.wantAccepted, result.Accepted)
			assert.Equal(t, tt.wantInvalid, result.InvalidAmount)
			if tt.wantShortfall != "" {
				assert.Equal(t, tt.wantShortfall, result.Shortfall.String())
			}
			assert.Equal(t, tt.wantBalance, record.Stars.String())

			if tt.wantAccepted {
				require.Len(t, record.WithdrawalRequests, 1)
				w := record.WithdrawalRequests[0]
				assert.Equal(t, models.WithdrawalStatusPending, w.Status)
				assert.True(t, w.Amount.Equal(decimal.NewFromInt(tt.amount)))
				assert.True(t, w.Date.Equal(now))
			} else {
				assert.Empty(t, record.WithdrawalRequests)
			}
		})
	}
}

func TestRequestWithdrawalSequence(t *testing.T) {
	rules := testRules(t)
	now := time.Now()
	record := models.NewUserRecord(1, now)
	record.Stars = decimal.NewFromInt(150)

	first := rules.RequestWithdrawal(record, decimal.NewFromInt(100), now)
	require.True(t, first.Accepted)
	assert.Equal(t, "50", record.Stars.String())

	second := rules.RequestWithdrawal(record, decimal.NewFromInt(100), now)
	assert.False(t, second.Accepted)
	assert.Equal(t, "50", second.Shortfall.String())
	assert.Equal(t, "50", record.Stars.String())
	assert.Len(t, record.WithdrawalRequests, 1)
}

func TestBalanceMatchesGrantAndWithdrawalHistory(t *testing.T) {
	rules := testRules(t)
	now := time.Now()
	record := models.NewUserRecord(1, now)

	for i := 0; i < 120; i++ {
		rules.Grant(record, decimal.NewFromFloat(0.5), "referral")
	}
	rules.Grant(record, decimal.NewFromFloat(2.0), "task task_1")
	require.Equal(t, "62", record.Stars.String())

	require.True(t, rules.RequestWithdrawal(record, decimal.NewFromInt(50), now).Accepted)
	assert.Equal(t, "12", record.Stars.String())
}
