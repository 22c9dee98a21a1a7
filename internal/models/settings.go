package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Defaults applied when the settings row has not been created yet
var (
	DefaultCommissionRatePercent = decimal.NewFromInt(10)
	DefaultMinPayoutAmount       = decimal.NewFromInt(50)
	DefaultCookieDurationDays    = 30
)

// LedgerSettings is the singleton row of tunable ledger parameters
type LedgerSettings struct {
	ID                    uint            `gorm:"primaryKey" json:"id"`
	CommissionRatePercent decimal.Decimal `gorm:"type:decimal(5,2);not null" json:"commission_rate_percent"`
	MinPayoutAmount       decimal.Decimal `gorm:"type:decimal(18,2);not null" json:"min_payout_amount"`
	CookieDurationDays    int             `gorm:"not null" json:"cookie_duration_days"`
	UpdatedAt             time.Time       `json:"updated_at"`
}

func (LedgerSettings) TableName() string {
	return "ledger_settings"
}
