package services

import (
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"affiliate-ledger/internal/models"
)

type PayoutService struct {
	db       *gorm.DB
	settings *SettingsService
}

func NewPayoutService(db *gorm.DB) *PayoutService {
	return &PayoutService{
		db:       db,
		settings: NewSettingsService(db),
	}
}

// RequestPayout settles the account's APPROVED commission in one transaction:
// it locks the APPROVED rows, sums them, validates the minimum, creates the
// payout and marks exactly those rows PAID. Two concurrent requests serialize
// on the locked rows; the loser recomputes a smaller balance. Nothing is ever
// left half-transitioned.
func (ps *PayoutService) RequestPayout(ownerAccountID uint, method string) (*models.Payout, error) {
	var payout *models.Payout

	err := ps.db.Transaction(func(tx *gorm.DB) error {
		var link models.ReferralLink
		if err := tx.Where("owner_account_id = ?", ownerAccountID).First(&link).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrLinkNotFound
			}
			return err
		}

		query := tx.Where("link_id = ? AND status = ?", link.ID, models.ConversionStatusApproved)
		// SQLite serializes writers and cannot parse FOR UPDATE; the guarded
		// update below covers it there.
		if tx.Dialector.Name() == "postgres" {
			query = query.Clauses(clause.Locking{Strength: "UPDATE"})
		}

		var batch []models.ConversionEntry
		if err := query.Find(&batch).Error; err != nil {
			return err
		}

		available := decimal.Zero
		ids := make([]uint, 0, len(batch))
		for _, e := range batch {
			available = available.Add(e.CommissionAmount)
			ids = append(ids, e.ID)
		}

		settings, err := ps.settings.getTx(tx)
		if err != nil {
			return err
		}

		if len(batch) == 0 || available.LessThan(settings.MinPayoutAmount) {
			return &InsufficientBalanceError{Available: available, Minimum: settings.MinPayoutAmount}
		}

		p := models.Payout{
			ID:                 uuid.New(),
			LinkOwnerAccountID: ownerAccountID,
			Amount:             available,
			Method:             method,
			Status:             models.PayoutStatusPending,
		}
		if err := tx.Create(&p).Error; err != nil {
			return fmt.Errorf("failed to create payout: %w", err)
		}

		// Claim exactly the batch that was summed. The status guard makes a
		// concurrent settlement that slipped past the lock roll this one back
		// instead of double-paying.
		result := tx.Model(&models.ConversionEntry{}).
			Where("id IN ? AND status = ?", ids, models.ConversionStatusApproved).
			Updates(map[string]interface{}{
				"status":     models.ConversionStatusPaid,
				"payout_id":  p.ID,
				"updated_at": time.Now(),
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected != int64(len(ids)) {
			return fmt.Errorf("settlement batch changed concurrently: claimed %d of %d entries",
				result.RowsAffected, len(ids))
		}

		payout = &p
		return nil
	})

	if err != nil {
		return nil, err
	}

	log.Printf("Payout %s created: %s for account %d", payout.ID, payout.Amount.StringFixed(2), ownerAccountID)
	return payout, nil
}

// ListPayouts returns an account's payouts, newest first
func (ps *PayoutService) ListPayouts(ownerAccountID uint) ([]models.Payout, error) {
	var payouts []models.Payout
	if err := ps.db.Where("link_owner_account_id = ?", ownerAccountID).
		Order("created_at DESC").
		Find(&payouts).Error; err != nil {
		return nil, err
	}
	return payouts, nil
}

// ApprovePayout is the operator acknowledging a pending settlement batch
func (ps *PayoutService) ApprovePayout(payoutID uuid.UUID) (*models.Payout, error) {
	return ps.transition(payoutID, models.PayoutStatusApproved, "")
}

// MarkPayoutPaid records that the money for an approved payout actually moved
func (ps *PayoutService) MarkPayoutPaid(payoutID uuid.UUID) (*models.Payout, error) {
	return ps.transition(payoutID, models.PayoutStatusPaid, "")
}

// RejectPayout cancels a pending settlement batch and returns its claimed
// entries from PAID back to APPROVED, in one transaction, so the commission
// becomes claimable again. This is the only path out of a PAID entry.
func (ps *PayoutService) RejectPayout(payoutID uuid.UUID, reason string) (*models.Payout, error) {
	var payout models.Payout
	err := ps.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("id = ?", payoutID).First(&payout).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrPayoutNotFound
			}
			return err
		}

		if payout.Status == models.PayoutStatusRejected {
			return nil
		}
		if !payout.Status.CanTransitionTo(models.PayoutStatusRejected) {
			return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, payout.Status, models.PayoutStatusRejected)
		}

		if err := tx.Model(&models.Payout{}).
			Where("id = ? AND status = ?", payoutID, payout.Status).
			Updates(map[string]interface{}{
				"status":        models.PayoutStatusRejected,
				"reject_reason": reason,
				"updated_at":    time.Now(),
			}).Error; err != nil {
			return err
		}

		// Release the claimed batch
		if err := tx.Model(&models.ConversionEntry{}).
			Where("payout_id = ? AND status = ?", payoutID, models.ConversionStatusPaid).
			Updates(map[string]interface{}{
				"status":     models.ConversionStatusApproved,
				"payout_id":  nil,
				"updated_at": time.Now(),
			}).Error; err != nil {
			return err
		}

		payout.Status = models.PayoutStatusRejected
		payout.RejectReason = reason
		return nil
	})

	if err != nil {
		return nil, err
	}

	log.Printf("Payout %s rejected: %s", payoutID, reason)
	return &payout, nil
}

func (ps *PayoutService) transition(payoutID uuid.UUID, target models.PayoutStatus, reason string) (*models.Payout, error) {
	var payout models.Payout
	err := ps.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("id = ?", payoutID).First(&payout).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrPayoutNotFound
			}
			return err
		}

		if payout.Status == target {
			return nil
		}
		// Approving a payout that is already PAID is a no-op: it has passed
		// through APPROVED.
		if target == models.PayoutStatusApproved && payout.Status == models.PayoutStatusPaid {
			return nil
		}
		if !payout.Status.CanTransitionTo(target) {
			return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, payout.Status, target)
		}

		updates := map[string]interface{}{
			"status":     target,
			"updated_at": time.Now(),
		}
		if reason != "" {
			updates["reject_reason"] = reason
		}

		result := tx.Model(&models.Payout{}).
			Where("id = ? AND status = ?", payoutID, payout.Status).
			Updates(updates)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return fmt.Errorf("%w: payout %s changed state concurrently", ErrInvalidTransition, payoutID)
		}

		payout.Status = target
		return nil
	})

	if err != nil {
		return nil, err
	}
	return &payout, nil
}
