package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Withdrawal request statuses. Only "pending" is ever set by the bot itself,
// the admin moves requests to a final status out of band.
const (
	WithdrawalStatusPending   = "pending"
	WithdrawalStatusCompleted = "completed"
	WithdrawalStatusRejected  = "rejected"
)

// UserRecord is the full persisted state of one bot user.
type UserRecord struct {
	UserID             int64               `json:"user_id" gorm:"primaryKey"`
	Stars              decimal.Decimal     `json:"stars" gorm:"type:text"`
	Referrals          []int64             `json:"referrals" gorm:"serializer:json"`
	CompletedTasks     []string            `json:"completed_tasks" gorm:"serializer:json"`
	LastDailyReward    *time.Time          `json:"last_daily_reward"`
	ReferredBy         *int64              `json:"referred_by"`
	Username           string              `json:"username"`
	FirstName          string              `json:"first_name"`
	JoinDate           time.Time           `json:"join_date"`
	WithdrawalRequests []WithdrawalRequest `json:"withdrawal_requests" gorm:"serializer:json"`
}

type WithdrawalRequest struct {
	Amount decimal.Decimal `json:"amount"`
	Date   time.Time       `json:"date"`
	Status string          `json:"status"`
}

// Task is a promoted channel with a fixed one-time join reward. The list is
// static configuration, tasks are never persisted per user beyond their id.
type Task struct {
	ID     string
	Type   string
	Name   string
	Link   string
	ChatID string
	Reward decimal.Decimal
}

// NewUserRecord returns a zeroed record for a first-seen user.
func NewUserRecord(userID int64, now time.Time) *UserRecord {
	return &UserRecord{
		UserID:             userID,
		Stars:              decimal.Zero,
		Referrals:          []int64{},
		CompletedTasks:     []string{},
		JoinDate:           now,
		WithdrawalRequests: []WithdrawalRequest{},
	}
}

func (u *UserRecord) HasCompletedTask(taskID string) bool {
	for _, id := range u.CompletedTasks {
		if id == taskID {
			return true
		}
	}
	return false
}

func (u *UserRecord) HasReferral(userID int64) bool {
	for _, id := range u.Referrals {
		if id == userID {
			return true
		}
	}
	return false
}

func (u *UserRecord) PendingWithdrawals() []WithdrawalRequest {
	var pending []WithdrawalRequest
	for _, w := range u.WithdrawalRequests {
		if w.Status == WithdrawalStatusPending {
			pending = append(pending, w)
		}
	}
	return pending
}
