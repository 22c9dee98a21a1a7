package services

import (
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"affiliate-ledger/internal/models"
)

// errDuplicateOrder signals that a concurrent insert for the same order won;
// the caller converges to the surviving row outside the aborted transaction.
var errDuplicateOrder = errors.New("duplicate live order entry")

// ConversionInput carries an order-completion event into the ledger. The
// referral code is threaded explicitly from wherever the client-side token was
// read; there is no ambient attribution state.
type ConversionInput struct {
	OrderID        string
	GrossAmount    decimal.Decimal
	ReferralCode   string
	BuyerAccountID *uint
	BuyerEmail     *string
}

type ConversionService struct {
	db          *gorm.DB
	attribution *AttributionService
	settings    *SettingsService
}

func NewConversionService(db *gorm.DB) *ConversionService {
	return &ConversionService{
		db:          db,
		attribution: NewAttributionService(db),
		settings:    NewSettingsService(db),
	}
}

// RecordConversion idempotently records at most one commission entry per
// order. Every trigger path (checkout, receipt upload, manual admin action,
// bulk approve) calls this; duplicates and races converge to the one surviving
// non-REJECTED entry. Returns (nil, true, nil) when the order carries no
// usable attribution: missing or unresolved code, or self-referral.
func (s *ConversionService) RecordConversion(input ConversionInput) (*models.ConversionEntry, bool, error) {
	if input.ReferralCode == "" {
		return nil, true, nil
	}

	link, err := s.attribution.ResolveAttribution(input.ReferralCode)
	if err != nil {
		return nil, false, err
	}
	if link == nil {
		return nil, true, nil
	}

	// No self-referral
	if input.BuyerAccountID != nil && *input.BuyerAccountID == link.OwnerAccountID {
		log.Printf("Skipping self-referral for order %s (account %d)", input.OrderID, link.OwnerAccountID)
		return nil, true, nil
	}

	var entry *models.ConversionEntry
	err = s.db.Transaction(func(tx *gorm.DB) error {
		existing, err := s.findLiveEntry(tx, input.OrderID)
		if err != nil {
			return err
		}
		if existing != nil {
			entry = existing
			return nil
		}

		rate, err := s.settings.EffectiveRate(tx, link)
		if err != nil {
			return err
		}
		commission := input.GrossAmount.Mul(rate).Div(decimal.NewFromInt(100)).RoundBank(2)

		created := models.ConversionEntry{
			LinkID:           link.ID,
			OrderID:          input.OrderID,
			GrossAmount:      input.GrossAmount,
			CommissionAmount: commission,
			Status:           models.ConversionStatusPending,
			CustomerEmail:    input.BuyerEmail,
		}
		if err := tx.Create(&created).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return errDuplicateOrder
			}
			return fmt.Errorf("failed to create conversion entry: %w", err)
		}

		entry = &created
		return nil
	})

	if errors.Is(err, errDuplicateOrder) {
		// Lost the insert race; the partial unique index guarantees the
		// surviving row exists, so re-read it on a fresh transaction.
		existing, err2 := s.findLiveEntry(s.db, input.OrderID)
		if err2 != nil {
			return nil, false, err2
		}
		if existing == nil {
			return nil, false, fmt.Errorf("conversion entry for order %s vanished after duplicate insert", input.OrderID)
		}
		return existing, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	return entry, false, nil
}

// findLiveEntry returns the non-REJECTED entry for an order, or nil
func (s *ConversionService) findLiveEntry(tx *gorm.DB, orderID string) (*models.ConversionEntry, error) {
	var existing models.ConversionEntry
	err := tx.Where("order_id = ? AND status <> ?", orderID, models.ConversionStatusRejected).First(&existing).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &existing, nil
}

// Approve moves a PENDING entry to APPROVED. Already APPROVED or PAID entries
// are a no-op; a REJECTED entry cannot come back.
func (s *ConversionService) Approve(entryID uint) (*models.ConversionEntry, error) {
	return s.transition(entryID, models.ConversionStatusApproved, "")
}

// Reject moves a PENDING entry to REJECTED with an audit reason. Already
// REJECTED entries are a no-op; APPROVED and PAID entries cannot be rejected.
func (s *ConversionService) Reject(entryID uint, reason string) (*models.ConversionEntry, error) {
	return s.transition(entryID, models.ConversionStatusRejected, reason)
}

func (s *ConversionService) transition(entryID uint, target models.ConversionStatus, reason string) (*models.ConversionEntry, error) {
	var entry models.ConversionEntry
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("id = ?", entryID).First(&entry).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrEntryNotFound
			}
			return err
		}

		if entry.Status == target {
			return nil
		}
		// Re-approving a PAID entry is a no-op, not an error: the entry has
		// already passed through APPROVED.
		if target == models.ConversionStatusApproved && entry.Status == models.ConversionStatusPaid {
			return nil
		}
		if !entry.Status.CanTransitionTo(target) {
			return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, entry.Status, target)
		}

		updates := map[string]interface{}{
			"status":     target,
			"updated_at": time.Now(),
		}
		if reason != "" {
			updates["reject_reason"] = reason
		}

		// Guard on the status read above so a concurrent transition loses
		// cleanly instead of overwriting a terminal state.
		result := tx.Model(&models.ConversionEntry{}).
			Where("id = ? AND status = ?", entryID, entry.Status).
			Updates(updates)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return fmt.Errorf("%w: entry %d changed state concurrently", ErrInvalidTransition, entryID)
		}

		entry.Status = target
		if reason != "" {
			entry.RejectReason = reason
		}
		return nil
	})

	if err != nil {
		return nil, err
	}
	return &entry, nil
}
