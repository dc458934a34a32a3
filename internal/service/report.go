package service

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
)

// Stats is an aggregate snapshot of the whole store for the admin report.
type Stats struct {
	Users              int
	TotalStars         decimal.Decimal
	PendingWithdrawals int
	PendingAmount      decimal.Decimal
}

func (s *Service) CollectStats(ctx context.Context) (Stats, error) {
	records, err := s.store.All(ctx)
	if err != nil {
		return Stats{}, fmt.Errorf("failed to load store: %w", err)
	}

	stats := Stats{
		Users:         len(records),
		TotalStars:    decimal.Zero,
		PendingAmount: decimal.Zero,
	}
	for _, record := range records {
		stats.TotalStars = stats.TotalStars.Add(record.Stars)
		for _, w := range record.PendingWithdrawals() {
			stats.PendingWithdrawals++
			stats.PendingAmount = stats.PendingAmount.Add(w.Amount)
		}
	}
	return stats, nil
}

// SendAdminReport pushes the periodic summary to the admin chat. A no-op when
// no admin chat is configured.
func (s *Service) SendAdminReport(ctx context.Context) error {
	if s.adminChatID == 0 {
		return nil
	}

	stats, err := s.CollectStats(ctx)
	if err != nil {
		return err
	}

	text := fmt.Sprintf(
		"📊 *Bot Summary*\n\n"+
			"👥 Users: %d\n"+
			"⭐️ Stars outstanding: %s\n"+
			"💰 Pending withdrawals: %d (%s ⭐️)",
		stats.Users, stats.TotalStars.String(), stats.PendingWithdrawals, stats.PendingAmount.String(),
	)
	return s.notify(s.adminChatID, text)
}
