package services

import (
	"testing"

	"affiliate-ledger/internal/models"
)

func TestIssueTokenIsIdempotent(t *testing.T) {
	db := setupTestDB(t)
	service := NewAttributionService(db)

	account := models.Account{Email: "owner@example.com"}
	if err := db.Create(&account).Error; err != nil {
		t.Fatalf("failed to create account: %v", err)
	}

	first, err := service.IssueToken(account.ID)
	if err != nil {
		t.Fatalf("IssueToken failed: %v", err)
	}
	if first.Code == "" {
		t.Fatal("expected a non-empty code")
	}
	if len(first.Code) != 8 {
		t.Errorf("expected 8-character code, got %q", first.Code)
	}

	second, err := service.IssueToken(account.ID)
	if err != nil {
		t.Fatalf("second IssueToken failed: %v", err)
	}
	if second.ID != first.ID || second.Code != first.Code {
		t.Errorf("expected the same link, got %d/%s then %d/%s",
			first.ID, first.Code, second.ID, second.Code)
	}

	var count int64
	db.Model(&models.ReferralLink{}).Where("owner_account_id = ?", account.ID).Count(&count)
	if count != 1 {
		t.Errorf("expected 1 link, found %d", count)
	}
}

func TestRecordClickAppendsEvent(t *testing.T) {
	db := setupTestDB(t)
	service := NewAttributionService(db)

	_, link := createLinkedAccount(t, db, "owner@example.com", "CLICK123")

	ip := "203.0.113.7"
	ua := "Mozilla/5.0"
	if err := service.RecordClick("CLICK123", &ip, &ua); err != nil {
		t.Fatalf("RecordClick failed: %v", err)
	}

	var clicks []models.ClickEvent
	if err := db.Where("link_id = ?", link.ID).Find(&clicks).Error; err != nil {
		t.Fatalf("failed to load clicks: %v", err)
	}
	if len(clicks) != 1 {
		t.Fatalf("expected 1 click, got %d", len(clicks))
	}
	if clicks[0].ClientIP == nil || *clicks[0].ClientIP != ip {
		t.Errorf("client ip not recorded")
	}
}

func TestRecordClickSwallowsUnknownCode(t *testing.T) {
	db := setupTestDB(t)
	service := NewAttributionService(db)

	if err := service.RecordClick("NOPE", nil, nil); err != nil {
		t.Fatalf("unknown code must not error, got: %v", err)
	}

	var count int64
	db.Model(&models.ClickEvent{}).Count(&count)
	if count != 0 {
		t.Errorf("expected no click events, found %d", count)
	}
}

func TestRecordClickSwallowsInactiveLink(t *testing.T) {
	db := setupTestDB(t)
	service := NewAttributionService(db)

	_, link := createLinkedAccount(t, db, "owner@example.com", "OFF12345")
	if err := service.DeactivateLink(link.ID); err != nil {
		t.Fatalf("DeactivateLink failed: %v", err)
	}

	if err := service.RecordClick("OFF12345", nil, nil); err != nil {
		t.Fatalf("inactive link must not error, got: %v", err)
	}

	var count int64
	db.Model(&models.ClickEvent{}).Count(&count)
	if count != 0 {
		t.Errorf("expected no click events for inactive link, found %d", count)
	}
}

func TestResolveAttribution(t *testing.T) {
	db := setupTestDB(t)
	service := NewAttributionService(db)

	_, link := createLinkedAccount(t, db, "owner@example.com", "LIVE1234")

	resolved, err := service.ResolveAttribution("LIVE1234")
	if err != nil {
		t.Fatalf("ResolveAttribution failed: %v", err)
	}
	if resolved == nil || resolved.ID != link.ID {
		t.Fatal("expected the active link to resolve")
	}

	none, err := service.ResolveAttribution("MISSING1")
	if err != nil {
		t.Fatalf("ResolveAttribution failed: %v", err)
	}
	if none != nil {
		t.Error("expected nil for an unknown code")
	}

	if err := service.DeactivateLink(link.ID); err != nil {
		t.Fatalf("DeactivateLink failed: %v", err)
	}
	gone, err := service.ResolveAttribution("LIVE1234")
	if err != nil {
		t.Fatalf("ResolveAttribution failed: %v", err)
	}
	if gone != nil {
		t.Error("expected nil for a deactivated link")
	}
}

func TestDeactivateMissingLink(t *testing.T) {
	db := setupTestDB(t)
	service := NewAttributionService(db)

	if err := service.DeactivateLink(9999); err != ErrLinkNotFound {
		t.Errorf("expected ErrLinkNotFound, got %v", err)
	}
}
