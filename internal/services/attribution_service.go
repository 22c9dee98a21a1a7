package services

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"log"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"affiliate-ledger/internal/models"
)

type AttributionService struct {
	db *gorm.DB
}

func NewAttributionService(db *gorm.DB) *AttributionService {
	return &AttributionService{
		db: db,
	}
}

// IssueToken returns the referral link for an account, creating it with a
// unique code if none exists. Idempotent per account: the unique index on
// owner_account_id is the authority, a lost race converges to the winner's row.
func (s *AttributionService) IssueToken(ownerAccountID uint) (*models.ReferralLink, error) {
	var link models.ReferralLink
	result := s.db.Where("owner_account_id = ?", ownerAccountID).First(&link)

	if result.Error == nil {
		return &link, nil
	}
	if !errors.Is(result.Error, gorm.ErrRecordNotFound) {
		return nil, result.Error
	}

	code, err := generateRandomCode()
	if err != nil {
		return nil, err
	}

	link = models.ReferralLink{
		OwnerAccountID: ownerAccountID,
		Code:           code,
		IsActive:       true,
	}

	if err := s.db.Create(&link).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			// Concurrent IssueToken won; return its link
			var existing models.ReferralLink
			if err2 := s.db.Where("owner_account_id = ?", ownerAccountID).First(&existing).Error; err2 == nil {
				return &existing, nil
			}
		}
		return nil, fmt.Errorf("failed to create referral link: %w", err)
	}

	log.Printf("Issued referral code %s for account %d", code, ownerAccountID)
	return &link, nil
}

// generateRandomCode generates a random 8-character URL-safe code
func generateRandomCode() (string, error) {
	b := make([]byte, 6)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.URLEncoding.EncodeToString(b)[:8], nil
}

// RecordClick appends a click event for a referral code. A code that does not
// resolve to an active link is swallowed: a stale or mistyped referral token
// must never break the buyer's browsing flow.
func (s *AttributionService) RecordClick(code string, clientIP, userAgent *string) error {
	link, err := s.ResolveAttribution(code)
	if err != nil {
		return err
	}
	if link == nil {
		log.Printf("Ignoring click for unresolved referral code %q", code)
		return nil
	}

	click := models.ClickEvent{
		ID:        uuid.New(),
		LinkID:    link.ID,
		ClientIP:  clientIP,
		UserAgent: userAgent,
	}

	if err := s.db.Create(&click).Error; err != nil {
		return fmt.Errorf("failed to record click: %w", err)
	}
	return nil
}

// ResolveAttribution resolves a referral code to its link. Returns (nil, nil)
// when the code does not resolve to an active link; callers treat nil as
// "no attribution".
func (s *AttributionService) ResolveAttribution(code string) (*models.ReferralLink, error) {
	if code == "" {
		return nil, nil
	}

	var link models.ReferralLink
	err := s.db.Where("code = ? AND is_active = ?", code, true).First(&link).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &link, nil
}

// DeactivateLink turns a link off. Links are never deleted, so historical
// conversions keep a valid link reference.
func (s *AttributionService) DeactivateLink(linkID uint) error {
	result := s.db.Model(&models.ReferralLink{}).Where("id = ?", linkID).Update("is_active", false)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrLinkNotFound
	}
	return nil
}

// LinkForAccount resolves the link owned by an account
func (s *AttributionService) LinkForAccount(ownerAccountID uint) (*models.ReferralLink, error) {
	var link models.ReferralLink
	err := s.db.Where("owner_account_id = ?", ownerAccountID).First(&link).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrLinkNotFound
	}
	if err != nil {
		return nil, err
	}
	return &link, nil
}
