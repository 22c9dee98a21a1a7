package services

import (
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"affiliate-ledger/internal/models"
)

func setupTestDB(t *testing.T) *gorm.DB {
	// :memory: is unique per connection; a shared-cache name keeps the pool on
	// one database for the duration of the test.
	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		t.Fatalf("failed to connect database: %v", err)
	}

	err = db.AutoMigrate(
		&models.Account{},
		&models.LedgerSettings{},
		&models.ReferralLink{},
		&models.ClickEvent{},
		&models.ConversionEntry{},
		&models.Payout{},
	)
	if err != nil {
		t.Fatalf("failed to migrate database: %v", err)
	}

	// Same partial unique index the production migration creates
	if err := db.Exec(
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_conversion_entries_live_order
		 ON conversion_entries (order_id) WHERE status <> 'REJECTED'`,
	).Error; err != nil {
		t.Fatalf("failed to create live-order index: %v", err)
	}

	// Clean all tables; the shared in-memory DB persists across tests
	db.Exec("DELETE FROM payouts")
	db.Exec("DELETE FROM conversion_entries")
	db.Exec("DELETE FROM click_events")
	db.Exec("DELETE FROM referral_links")
	db.Exec("DELETE FROM ledger_settings")
	db.Exec("DELETE FROM accounts")

	return db
}

// createLinkedAccount creates an account with an active referral link
func createLinkedAccount(t *testing.T, db *gorm.DB, email, code string) (*models.Account, *models.ReferralLink) {
	account := models.Account{Email: email, Name: email}
	if err := db.Create(&account).Error; err != nil {
		t.Fatalf("failed to create account: %v", err)
	}

	link := models.ReferralLink{
		OwnerAccountID: account.ID,
		Code:           code,
		IsActive:       true,
	}
	if err := db.Create(&link).Error; err != nil {
		t.Fatalf("failed to create link: %v", err)
	}

	return &account, &link
}
