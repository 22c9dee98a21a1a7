package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type ConversionStatus string

const (
	ConversionStatusPending  ConversionStatus = "PENDING"
	ConversionStatusApproved ConversionStatus = "APPROVED"
	ConversionStatusPaid     ConversionStatus = "PAID"
	ConversionStatusRejected ConversionStatus = "REJECTED"
)

// CanTransitionTo reports whether the status machine allows moving to next.
// REJECTED and PAID are terminal.
func (s ConversionStatus) CanTransitionTo(next ConversionStatus) bool {
	switch s {
	case ConversionStatusPending:
		return next == ConversionStatusApproved || next == ConversionStatusRejected
	case ConversionStatusApproved:
		return next == ConversionStatusPaid
	default:
		return false
	}
}

type PayoutStatus string

const (
	PayoutStatusPending  PayoutStatus = "PENDING"
	PayoutStatusApproved PayoutStatus = "APPROVED"
	PayoutStatusPaid     PayoutStatus = "PAID"
	PayoutStatusRejected PayoutStatus = "REJECTED"
)

func (s PayoutStatus) CanTransitionTo(next PayoutStatus) bool {
	switch s {
	case PayoutStatusPending:
		return next == PayoutStatusApproved || next == PayoutStatusRejected
	case PayoutStatusApproved:
		return next == PayoutStatusPaid
	default:
		return false
	}
}

// ReferralLink is the public referral token for an account. One link per
// account; links are deactivated, never deleted.
type ReferralLink struct {
	ID             uint             `gorm:"primaryKey" json:"id"`
	OwnerAccountID uint             `gorm:"uniqueIndex;not null" json:"owner_account_id"`
	OwnerAccount   *Account         `gorm:"foreignKey:OwnerAccountID" json:"owner_account,omitempty"`
	Code           string           `gorm:"uniqueIndex;size:20;not null" json:"code"`
	IsActive       bool             `gorm:"default:true" json:"is_active"`
	RateOverride   *decimal.Decimal `gorm:"type:decimal(5,2)" json:"rate_override,omitempty"`
	CreatedAt      time.Time        `json:"created_at"`
}

func (ReferralLink) TableName() string {
	return "referral_links"
}

// ClickEvent is an append-only record of a resolved referral visit
type ClickEvent struct {
	ID        uuid.UUID     `gorm:"type:uuid;primaryKey" json:"id"`
	LinkID    uint          `gorm:"not null;index" json:"link_id"`
	Link      *ReferralLink `gorm:"foreignKey:LinkID" json:"link,omitempty"`
	ClientIP  *string       `gorm:"size:45" json:"client_ip,omitempty"`
	UserAgent *string       `gorm:"size:500" json:"user_agent,omitempty"`
	CreatedAt time.Time     `json:"created_at"`
}

func (ClickEvent) TableName() string {
	return "click_events"
}

// ConversionEntry is one commission ledger line for a single order.
// At most one non-REJECTED entry may exist per order_id; that is enforced
// by a partial unique index created outside AutoMigrate (see database package).
// CommissionAmount is frozen at creation and never recomputed.
type ConversionEntry struct {
	ID               uint             `gorm:"primaryKey" json:"id"`
	LinkID           uint             `gorm:"not null;index" json:"link_id"`
	Link             *ReferralLink    `gorm:"foreignKey:LinkID" json:"link,omitempty"`
	OrderID          string           `gorm:"size:64;not null;index" json:"order_id"`
	GrossAmount      decimal.Decimal  `gorm:"type:decimal(18,2);not null" json:"gross_amount"`
	CommissionAmount decimal.Decimal  `gorm:"type:decimal(18,2);not null" json:"commission_amount"`
	Status           ConversionStatus `gorm:"size:20;not null;default:PENDING;index" json:"status"`
	RejectReason     string           `gorm:"size:255" json:"reject_reason,omitempty"`
	CustomerEmail    *string          `gorm:"size:255" json:"customer_email,omitempty"`
	PayoutID         *uuid.UUID       `gorm:"type:uuid;index" json:"payout_id,omitempty"`
	CreatedAt        time.Time        `json:"created_at"`
	UpdatedAt        time.Time        `json:"updated_at"`
}

func (ConversionEntry) TableName() string {
	return "conversion_entries"
}

// Payout is a settlement batch claiming a set of APPROVED conversion entries.
// Amount equals the sum of the claimed batch and is immutable after creation.
type Payout struct {
	ID                 uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	LinkOwnerAccountID uint            `gorm:"not null;index" json:"link_owner_account_id"`
	Amount             decimal.Decimal `gorm:"type:decimal(18,2);not null" json:"amount"`
	Method             string          `gorm:"size:50;not null" json:"method"`
	Status             PayoutStatus    `gorm:"size:20;not null;default:PENDING;index" json:"status"`
	RejectReason       string          `gorm:"size:255" json:"reject_reason,omitempty"`
	CreatedAt          time.Time       `json:"created_at"`
	UpdatedAt          time.Time       `json:"updated_at"`
}

func (Payout) TableName() string {
	return "payouts"
}
