package services

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"affiliate-ledger/internal/models"
)

type SettingsService struct {
	db *gorm.DB
}

func NewSettingsService(db *gorm.DB) *SettingsService {
	return &SettingsService{
		db: db,
	}
}

// Get returns the ledger settings, creating the row with defaults if missing
func (s *SettingsService) Get() (*models.LedgerSettings, error) {
	return s.getTx(s.db)
}

// getTx reads the settings inside an existing transaction handle so that
// callers computing money inside a transaction see a consistent rate.
func (s *SettingsService) getTx(tx *gorm.DB) (*models.LedgerSettings, error) {
	var settings models.LedgerSettings
	result := tx.First(&settings)

	if result.Error == gorm.ErrRecordNotFound {
		settings = models.LedgerSettings{
			CommissionRatePercent: models.DefaultCommissionRatePercent,
			MinPayoutAmount:       models.DefaultMinPayoutAmount,
			CookieDurationDays:    models.DefaultCookieDurationDays,
		}
		if err := tx.Create(&settings).Error; err != nil {
			return nil, fmt.Errorf("failed to create default settings: %w", err)
		}
		return &settings, nil
	}

	if result.Error != nil {
		return nil, result.Error
	}

	return &settings, nil
}

// Update replaces the tunable parameters. Existing conversion entries keep the
// commission computed at their creation time.
func (s *SettingsService) Update(ratePercent, minPayout decimal.Decimal, cookieDays int) (*models.LedgerSettings, error) {
	settings, err := s.Get()
	if err != nil {
		return nil, err
	}

	if err := s.db.Model(settings).Updates(map[string]interface{}{
		"commission_rate_percent": ratePercent,
		"min_payout_amount":       minPayout,
		"cookie_duration_days":    cookieDays,
		"updated_at":              time.Now(),
	}).Error; err != nil {
		return nil, fmt.Errorf("failed to update settings: %w", err)
	}

	return s.Get()
}

// EffectiveRate returns the commission rate for a link: its override when set,
// otherwise the global rate.
func (s *SettingsService) EffectiveRate(tx *gorm.DB, link *models.ReferralLink) (decimal.Decimal, error) {
	if link.RateOverride != nil {
		return *link.RateOverride, nil
	}

	settings, err := s.getTx(tx)
	if err != nil {
		return decimal.Zero, err
	}
	return settings.CommissionRatePercent, nil
}
