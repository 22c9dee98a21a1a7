package database

import (
	"fmt"
	"log"

	"affiliate-ledger/internal/models"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var DB *gorm.DB

// Connect establishes a connection to the PostgreSQL database
func Connect(dsn string) error {
	var err error

	DB, err = gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger:                                   logger.Default.LogMode(logger.Error),
		TranslateError:                           true,
		DisableForeignKeyConstraintWhenMigrating: true,
	})

	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	log.Println("Database connection established successfully")
	return nil
}

// AutoMigrate runs automatic migrations for all models
func AutoMigrate() error {
	ledgerModels := []interface{}{
		&models.Account{},
		&models.LedgerSettings{},
		&models.ReferralLink{},
		&models.ClickEvent{},
		&models.ConversionEntry{},
		&models.Payout{},
	}

	for _, model := range ledgerModels {
		if err := DB.AutoMigrate(model); err != nil {
			log.Printf("Warning: migration issue for %T: %v", model, err)
		}
	}

	// One non-REJECTED entry per order. AutoMigrate cannot express a partial
	// unique index, so it is created here.
	if err := DB.Exec(
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_conversion_entries_live_order
		 ON conversion_entries (order_id) WHERE status <> 'REJECTED'`,
	).Error; err != nil {
		return fmt.Errorf("failed to create live-order unique index: %w", err)
	}

	log.Println("Database migrations completed successfully")
	return nil
}

// GetDB returns the database instance
func GetDB() *gorm.DB {
	return DB
}
