package services

import (
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"affiliate-ledger/internal/models"
)

func TestLedgerStatsAggregates(t *testing.T) {
	db := setupTestDB(t)
	service := NewLedgerService(db)

	account, link := createLinkedAccount(t, db, "owner@example.com", "AGG12345")

	entries := []models.ConversionEntry{
		{LinkID: link.ID, OrderID: "O-1", GrossAmount: decimal.NewFromInt(100), CommissionAmount: decimal.NewFromInt(10), Status: models.ConversionStatusPending},
		{LinkID: link.ID, OrderID: "O-2", GrossAmount: decimal.NewFromInt(200), CommissionAmount: decimal.NewFromInt(20), Status: models.ConversionStatusApproved},
		{LinkID: link.ID, OrderID: "O-3", GrossAmount: decimal.NewFromInt(300), CommissionAmount: decimal.NewFromInt(30), Status: models.ConversionStatusPaid},
		{LinkID: link.ID, OrderID: "O-4", GrossAmount: decimal.NewFromInt(400), CommissionAmount: decimal.NewFromInt(40), Status: models.ConversionStatusRejected},
	}
	for i := range entries {
		if err := db.Create(&entries[i]).Error; err != nil {
			t.Fatalf("failed to seed entry: %v", err)
		}
	}

	for i := 0; i < 4; i++ {
		click := models.ClickEvent{ID: uuid.New(), LinkID: link.ID}
		if err := db.Create(&click).Error; err != nil {
			t.Fatalf("failed to seed click: %v", err)
		}
	}

	stats, err := service.Stats(account.ID)
	if err != nil {
		t.Fatalf("Stats failed: %v", err)
	}

	// Rejected entries never count toward earnings
	if !stats.TotalEarnings.Equal(decimal.NewFromInt(60)) {
		t.Errorf("total earnings: expected 60, got %s", stats.TotalEarnings)
	}
	if !stats.PendingEarnings.Equal(decimal.NewFromInt(10)) {
		t.Errorf("pending earnings: expected 10, got %s", stats.PendingEarnings)
	}
	if !stats.AvailableBalance.Equal(decimal.NewFromInt(20)) {
		t.Errorf("available balance: expected 20, got %s", stats.AvailableBalance)
	}
	if !stats.PaidOut.Equal(decimal.NewFromInt(30)) {
		t.Errorf("paid out: expected 30, got %s", stats.PaidOut)
	}
	if stats.ClickCount != 4 {
		t.Errorf("click count: expected 4, got %d", stats.ClickCount)
	}
	if stats.ConversionCount != 3 {
		t.Errorf("conversion count: expected 3, got %d", stats.ConversionCount)
	}
	// 3 conversions over 4 clicks
	if !stats.ConversionRate.Equal(decimal.RequireFromString("0.75")) {
		t.Errorf("conversion rate: expected 0.75, got %s", stats.ConversionRate)
	}
}

func TestLedgerStatsZeroClicks(t *testing.T) {
	db := setupTestDB(t)
	service := NewLedgerService(db)

	account, _ := createLinkedAccount(t, db, "owner@example.com", "ZRO12345")

	stats, err := service.Stats(account.ID)
	if err != nil {
		t.Fatalf("Stats failed: %v", err)
	}
	if !stats.ConversionRate.Equal(decimal.Zero) {
		t.Errorf("expected rate 0 with no clicks, got %s", stats.ConversionRate)
	}
	if !stats.TotalEarnings.Equal(decimal.Zero) {
		t.Errorf("expected zero earnings, got %s", stats.TotalEarnings)
	}
}

func TestLedgerStatsMissingLink(t *testing.T) {
	db := setupTestDB(t)
	service := NewLedgerService(db)

	if _, err := service.Stats(404); !errors.Is(err, ErrLinkNotFound) {
		t.Errorf("expected ErrLinkNotFound, got %v", err)
	}
}

func TestLedgerHistoryNewestFirst(t *testing.T) {
	db := setupTestDB(t)
	service := NewLedgerService(db)

	account, link := createLinkedAccount(t, db, "owner@example.com", "HST12345")

	for _, orderID := range []string{"H-1", "H-2", "H-3"} {
		entry := models.ConversionEntry{
			LinkID:           link.ID,
			OrderID:          orderID,
			GrossAmount:      decimal.NewFromInt(100),
			CommissionAmount: decimal.NewFromInt(10),
			Status:           models.ConversionStatusPending,
		}
		if err := db.Create(&entry).Error; err != nil {
			t.Fatalf("failed to seed entry: %v", err)
		}
	}

	history, err := service.History(account.ID)
	if err != nil {
		t.Fatalf("History failed: %v", err)
	}
	if len(history) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(history))
	}
}
