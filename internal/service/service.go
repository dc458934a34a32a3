package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"github.com/aliiikrd/starsbot/internal/ledger"
	"github.com/aliiikrd/starsbot/internal/models"
	"github.com/aliiikrd/starsbot/utils"
)

var ErrTaskNotFound = errors.New("task not found")

// Store is the record store the service talks to. Both backends implement the
// same whole-record read-modify-write contract.
type Store interface {
	Get(ctx context.Context, userID int64) (*models.UserRecord, error)
	Put(ctx context.Context, record *models.UserRecord) error
	All(ctx context.Context) (map[int64]*models.UserRecord, error)
}

// MembershipChecker verifies that a user currently belongs to a channel.
type MembershipChecker interface {
	IsMember(ctx context.Context, chatID string, userID int64) (bool, error)
}

// Notifier delivers an out-of-band message to a chat (referrer congratulation,
// admin withdrawal alert). Delivery failures are the implementation's to log.
type Notifier interface {
	Notify(chatID int64, text string) error
}

type Service struct {
	store       Store
	rules       *ledger.Rules
	tasks       []models.Task
	adminChatID int64
	logger      *utils.Logger

	membership MembershipChecker
	notifier   Notifier
}

func NewService(store Store, rules *ledger.Rules, tasks []models.Task, adminChatID int64, logger *utils.Logger) *Service {
	return &Service{
		store:       store,
		rules:       rules,
		tasks:       tasks,
		adminChatID: adminChatID,
		logger:      logger,
	}
}

// AttachTransport wires the chat-platform capabilities. The bot implements
// both; tests substitute fakes.
func (s *Service) AttachTransport(membership MembershipChecker, notifier Notifier) {
	s.membership = membership
	s.notifier = notifier
}

func (s *Service) Rules() *ledger.Rules { return s.rules }

func (s *Service) Tasks() []models.Task { return s.tasks }

func (s *Service) TaskByID(taskID string) (models.Task, bool) {
	for _, task := range s.tasks {
		if task.ID == taskID {
			return task, true
		}
	}
	return models.Task{}, false
}

// Register resolves (and lazily creates) the acting user's record, refreshes
// display metadata and, when referralParam is present, attributes the
// referral. Malformed, self- and duplicate referrals are silent no-ops.
func (s *Service) Register(ctx context.Context, userID int64, username, firstName, referralParam string) (*models.UserRecord, error) {
	user, err := s.store.Get(ctx, userID)
	if err != nil {
		if user == nil {
			return nil, fmt.Errorf("failed to get user %d: %w", userID, err)
		}
		s.logger.Errorf("Failed to persist new user %d: %v", userID, err)
	}

	user.Username = username
	user.FirstName = firstName

	if referralParam != "" {
		s.attributeReferral(ctx, user, referralParam)
	}

	if err := s.store.Put(ctx, user); err != nil {
		s.logger.Errorf("Failed to persist user %d: %v", userID, err)
	}
	return user, nil
}

func (s *Service) attributeReferral(ctx context.Context, user *models.UserRecord, referralParam string) {
	referrerID, err := strconv.ParseInt(referralParam, 10, 64)
	if err != nil {
		s.logger.Debugf("Ignoring non-numeric referral parameter %q from user %d", referralParam, user.UserID)
		return
	}
	if user.ReferredBy != nil || referrerID == user.UserID {
		s.logger.Debugf("Ignoring referral %d -> %d", referrerID, user.UserID)
		return
	}

	referrer, err := s.store.Get(ctx, referrerID)
	if referrer == nil {
		s.logger.Errorf("Failed to get referrer %d: %v", referrerID, err)
		return
	}

	if s.rules.AttributeReferral(user, referrer) != ledger.ReferralAttributed {
		return
	}

	if err := s.store.Put(ctx, referrer); err != nil {
		s.logger.Errorf("Failed to persist referrer %d: %v", referrerID, err)
	}

	name := user.Username
	if name == "" {
		name = user.FirstName
	}
	text := fmt.Sprintf(
		"🎉 Great news! @%s joined using your referral link!\n💰 You earned %s stars!",
		name, s.rules.ReferralReward.String(),
	)
	if err := s.notify(referrerID, text); err != nil {
		s.logger.Errorf("Could not notify referrer %d: %v", referrerID, err)
	}
}

// ClaimDaily applies the 24-hour daily gift rule for userID.
func (s *Service) ClaimDaily(ctx context.Context, userID int64, now time.Time) (*models.UserRecord, ledger.ClaimResult, error) {
	user, err := s.store.Get(ctx, userID)
	if user == nil {
		return nil, ledger.ClaimResult{}, fmt.Errorf("failed to get user %d: %w", userID, err)
	}

	result := s.rules.ClaimDaily(user, now)
	if result.Claimed {
		if err := s.store.Put(ctx, user); err != nil {
			s.logger.Errorf("Failed to persist daily claim for user %d: %v", userID, err)
		}
	}
	return user, result, nil
}

// CompleteTask verifies channel membership and grants the task reward at most
// once. A verification transport failure is returned as an error so the
// presentation layer can ask the user to retry.
func (s *Service) CompleteTask(ctx context.Context, userID int64, taskID string) (*models.UserRecord, ledger.TaskOutcome, error) {
	task, ok := s.TaskByID(taskID)
	if !ok {
		return nil, 0, ErrTaskNotFound
	}

	user, err := s.store.Get(ctx, userID)
	if user == nil {
		return nil, 0, fmt.Errorf("failed to get user %d: %w", userID, err)
	}
	if user.HasCompletedTask(taskID) {
		return user, ledger.TaskAlreadyCompleted, nil
	}

	joined, err := s.membership.IsMember(ctx, task.ChatID, userID)
	if err != nil {
		return user, 0, fmt.Errorf("failed to verify membership in %s: %w", task.ChatID, err)
	}

	outcome := s.rules.CompleteTask(user, task, joined)
	if outcome == ledger.TaskCompleted {
		if err := s.store.Put(ctx, user); err != nil {
			s.logger.Errorf("Failed to persist task %s for user %d: %v", taskID, userID, err)
		}
	}
	return user, outcome, nil
}

// RequestWithdrawal deducts the amount, records a pending request and alerts
// the admin. On insufficient balance or an unknown tier nothing is mutated.
func (s *Service) RequestWithdrawal(ctx context.Context, userID int64, amount int64, now time.Time) (*models.UserRecord, ledger.WithdrawalResult, error) {
	user, err := s.store.Get(ctx, userID)
	if user == nil {
		return nil, ledger.WithdrawalResult{}, fmt.Errorf("failed to get user %d: %w", userID, err)
	}

	result := s.rules.RequestWithdrawal(user, decimal.NewFromInt(amount), now)
	if !result.Accepted {
		return user, result, nil
	}

	if err := s.store.Put(ctx, user); err != nil {
		s.logger.Errorf("Failed to persist withdrawal for user %d: %v", userID, err)
	}
	s.notifyAdminAboutWithdrawal(user, amount, now)
	return user, result, nil
}

func (s *Service) notifyAdminAboutWithdrawal(user *models.UserRecord, amount int64, now time.Time) {
	if s.adminChatID == 0 {
		return
	}

	username := user.Username
	if username == "" {
		username = "Not set"
	}
	text := fmt.Sprintf(
		"💰 *New Withdrawal Request* 💰\n\n"+
			"👤 *User Details:*\n"+
			"  • Name: %s\n"+
			"  • Username: @%s\n"+
			"  • User ID: `%d`\n\n"+
			"💎 *Amount:* %d ⭐️ stars\n"+
			"📅 *Date:* %s\n\n"+
			"⚠️ Please process this request.",
		user.FirstName, username, user.UserID, amount, now.Format("2006-01-02 15:04:05"),
	)
	if err := s.notify(s.adminChatID, text); err != nil {
		s.logger.Errorf("Could not send withdrawal alert to admin: %v", err)
	}
}

// Account returns the current record without mutating it beyond the lazy
// first-lookup creation.
func (s *Service) Account(ctx context.Context, userID int64) (*models.UserRecord, error) {
	user, err := s.store.Get(ctx, userID)
	if user == nil {
		return nil, fmt.Errorf("failed to get user %d: %w", userID, err)
	}
	return user, nil
}

func (s *Service) notify(chatID int64, text string) error {
	if s.notifier == nil {
		return nil
	}
	return s.notifier.Notify(chatID, text)
}
