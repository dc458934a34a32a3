// Package ledger holds the reward rules: how a user's balance, referral list,
// completed-task set and withdrawal history are allowed to change. Rules only
// mutate the records passed in, persistence is the caller's job.
package ledger

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/aliiikrd/starsbot/internal/models"
	"github.com/aliiikrd/starsbot/utils"
)

const balancePrecision = 2

type Rules struct {
	DailyReward       decimal.Decimal
	ReferralReward    decimal.Decimal
	DailyCooldown     time.Duration
	WithdrawalAmounts []decimal.Decimal

	logger *utils.Logger
}

func NewRules(daily, referral float64, withdrawalAmounts []int64, logger *utils.Logger) *Rules {
	tiers := make([]decimal.Decimal, 0, len(withdrawalAmounts))
	for _, amount := range withdrawalAmounts {
		tiers = append(tiers, decimal.NewFromInt(amount))
	}
	return &Rules{
		DailyReward:       decimal.NewFromFloat(daily),
		ReferralReward:    decimal.NewFromFloat(referral),
		DailyCooldown:     24 * time.Hour,
		WithdrawalAmounts: tiers,
		logger:            logger,
	}
}

// ClaimResult reports a daily-gift attempt. Remaining is zero when the claim
// succeeded, otherwise the wait until the next claim.
type ClaimResult struct {
	Claimed   bool
	Remaining time.Duration
}

type TaskOutcome int

const (
	TaskCompleted TaskOutcome = iota
	TaskAlreadyCompleted
	TaskNotJoined
)

type ReferralOutcome int

const (
	ReferralAttributed ReferralOutcome = iota
	ReferralIgnored
)

// WithdrawalResult reports a withdrawal attempt. Shortfall is set only when
// the balance was insufficient.
type WithdrawalResult struct {
	Accepted      bool
	InvalidAmount bool
	Shortfall     decimal.Decimal
}

// Grant credits amount to the record and returns the new balance. The balance
// is re-rounded after every mutation so repeated arithmetic cannot drift.
func (r *Rules) Grant(record *models.UserRecord, amount decimal.Decimal, reason string) decimal.Decimal {
	record.Stars = record.Stars.Add(amount).Round(balancePrecision)
	r.logger.Infof("Added %s stars to user %d, balance now %s. Reason: %s",
		amount.String(), record.UserID, record.Stars.String(), reason)
	return record.Stars
}

// ClaimDaily grants the daily gift when at least DailyCooldown has passed
// since the previous claim. On cooldown nothing is mutated.
func (r *Rules) ClaimDaily(record *models.UserRecord, now time.Time) ClaimResult {
	if record.LastDailyReward != nil {
		elapsed := now.Sub(*record.LastDailyReward)
		if elapsed < r.DailyCooldown {
			return ClaimResult{Remaining: r.DailyCooldown - elapsed}
		}
	}

	claimedAt := now
	record.LastDailyReward = &claimedAt
	r.Grant(record, r.DailyReward, "daily gift")
	return ClaimResult{Claimed: true}
}

// CompleteTask marks the task done and grants its reward, at most once per
// user. joined is the externally verified channel-membership result.
func (r *Rules) CompleteTask(record *models.UserRecord, task models.Task, joined bool) TaskOutcome {
	if record.HasCompletedTask(task.ID) {
		return TaskAlreadyCompleted
	}
	if !joined {
		return TaskNotJoined
	}

	record.CompletedTasks = append(record.CompletedTasks, task.ID)
	r.Grant(record, task.Reward, "task "+task.ID)
	return TaskCompleted
}

// AttributeReferral links newUser to referrer and rewards the referrer.
// Self-referrals and users that already carry an attribution are ignored
// without any mutation.
func (r *Rules) AttributeReferral(newUser, referrer *models.UserRecord) ReferralOutcome {
	if newUser.ReferredBy != nil || referrer.UserID == newUser.UserID {
		return ReferralIgnored
	}
	if referrer.HasReferral(newUser.UserID) {
		return ReferralIgnored
	}

	referrerID := referrer.UserID
	newUser.ReferredBy = &referrerID
	referrer.Referrals = append(referrer.Referrals, newUser.UserID)
	r.Grant(referrer, r.ReferralReward, fmt.Sprintf("referral from %d", newUser.UserID))
	return ReferralAttributed
}

// RequestWithdrawal deducts amount and appends a pending request. The amount
// must be one of the configured tiers and covered by the current balance.
func (r *Rules) RequestWithdrawal(record *models.UserRecord, amount decimal.Decimal, now time.Time) WithdrawalResult {
	if !r.allowedAmount(amount) {
		return WithdrawalResult{InvalidAmount: true}
	}
	if record.Stars.LessThan(amount) {
		return WithdrawalResult{Shortfall: amount.Sub(record.Stars).Round(balancePrecision)}
	}

	record.Stars = record.Stars.Sub(amount).Round(balancePrecision)
	record.WithdrawalRequests = append(record.WithdrawalRequests, models.WithdrawalRequest{
		Amount: amount,
		Date:   now,
		Status: models.WithdrawalStatusPending,
	})
	r.logger.Infof("Deducted %s stars from user %d, balance now %s. Reason: withdrawal request",
		amount.String(), record.UserID, record.Stars.String())
	return WithdrawalResult{Accepted: true}
}

func (r *Rules) allowedAmount(amount decimal.Decimal) bool {
	for _, tier := range r.WithdrawalAmounts {
		if tier.Equal(amount) {
			return true
		}
	}
	return false
}
