package services

import (
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"affiliate-ledger/internal/models"
)

// LedgerStats is the read-side view over a link's conversion entries. All
// values are derived on demand from the ledger rows; nothing here is stored.
type LedgerStats struct {
	TotalEarnings    decimal.Decimal `json:"total_earnings"`
	PendingEarnings  decimal.Decimal `json:"pending_earnings"`
	AvailableBalance decimal.Decimal `json:"available_balance"`
	PaidOut          decimal.Decimal `json:"paid_out"`
	ClickCount       int64           `json:"click_count"`
	ConversionCount  int64           `json:"conversion_count"`
	ConversionRate   decimal.Decimal `json:"conversion_rate"`
}

type LedgerService struct {
	db          *gorm.DB
	attribution *AttributionService
}

func NewLedgerService(db *gorm.DB) *LedgerService {
	return &LedgerService{
		db:          db,
		attribution: NewAttributionService(db),
	}
}

// Stats aggregates the commission ledger for an account's link
func (s *LedgerService) Stats(ownerAccountID uint) (*LedgerStats, error) {
	link, err := s.attribution.LinkForAccount(ownerAccountID)
	if err != nil {
		return nil, err
	}

	stats := &LedgerStats{}

	if stats.TotalEarnings, err = s.sumCommission(link.ID,
		models.ConversionStatusPending, models.ConversionStatusApproved, models.ConversionStatusPaid); err != nil {
		return nil, err
	}
	if stats.PendingEarnings, err = s.sumCommission(link.ID, models.ConversionStatusPending); err != nil {
		return nil, err
	}
	if stats.AvailableBalance, err = s.sumCommission(link.ID, models.ConversionStatusApproved); err != nil {
		return nil, err
	}
	if stats.PaidOut, err = s.sumCommission(link.ID, models.ConversionStatusPaid); err != nil {
		return nil, err
	}

	if err := s.db.Model(&models.ClickEvent{}).
		Where("link_id = ?", link.ID).
		Count(&stats.ClickCount).Error; err != nil {
		return nil, err
	}

	if err := s.db.Model(&models.ConversionEntry{}).
		Where("link_id = ? AND status <> ?", link.ID, models.ConversionStatusRejected).
		Count(&stats.ConversionCount).Error; err != nil {
		return nil, err
	}

	// Display metric only; zero clicks yields rate 0
	if stats.ClickCount > 0 {
		stats.ConversionRate = decimal.NewFromInt(stats.ConversionCount).
			Div(decimal.NewFromInt(stats.ClickCount)).Round(4)
	} else {
		stats.ConversionRate = decimal.Zero
	}

	return stats, nil
}

func (s *LedgerService) sumCommission(linkID uint, statuses ...models.ConversionStatus) (decimal.Decimal, error) {
	var sum decimal.Decimal
	row := s.db.Model(&models.ConversionEntry{}).
		Where("link_id = ? AND status IN ?", linkID, statuses).
		Select("COALESCE(SUM(commission_amount), 0)").Row()
	if err := row.Scan(&sum); err != nil {
		return decimal.Zero, err
	}
	return sum, nil
}

// History returns the per-referrer conversion history, newest first
func (s *LedgerService) History(ownerAccountID uint) ([]models.ConversionEntry, error) {
	link, err := s.attribution.LinkForAccount(ownerAccountID)
	if err != nil {
		return nil, err
	}

	var entries []models.ConversionEntry
	if err := s.db.Where("link_id = ?", link.ID).
		Order("created_at DESC").
		Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}

// Clicks returns recent click events for an account's link
func (s *LedgerService) Clicks(ownerAccountID uint, limit int) ([]models.ClickEvent, error) {
	link, err := s.attribution.LinkForAccount(ownerAccountID)
	if err != nil {
		return nil, err
	}

	var clicks []models.ClickEvent
	if err := s.db.Where("link_id = ?", link.ID).
		Order("created_at DESC").
		Limit(limit).
		Find(&clicks).Error; err != nil {
		return nil, err
	}
	return clicks, nil
}
