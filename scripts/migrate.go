package main

import (
	"database/sql"
	"fmt"
	"log"
	"os"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
)

// Applies the raw-SQL pieces AutoMigrate cannot express: the partial unique
// index that makes the store the authority for one live entry per order, and
// the default settings row.
func main() {
	// Load .env file
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	// Build connection string
	dbHost := os.Getenv("DB_HOST")
	dbPort := os.Getenv("DB_PORT")
	dbUser := os.Getenv("DB_USER")
	dbPassword := os.Getenv("DB_PASSWORD")
	dbName := os.Getenv("DB_NAME")

	connStr := fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		dbHost, dbPort, dbUser, dbPassword, dbName)

	// Connect to database
	db, err := sql.Open("postgres", connStr)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		log.Fatalf("Failed to ping database: %v", err)
	}

	log.Println("Connected to database successfully")

	log.Println("Creating live-order unique index...")
	_, err = db.Exec(`
		CREATE UNIQUE INDEX IF NOT EXISTS idx_conversion_entries_live_order
		ON conversion_entries (order_id)
		WHERE status <> 'REJECTED';
	`)
	if err != nil {
		log.Fatalf("Failed to create live-order unique index: %v", err)
	}

	log.Println("Seeding ledger settings defaults...")
	_, err = db.Exec(`
		INSERT INTO ledger_settings (commission_rate_percent, min_payout_amount, cookie_duration_days, updated_at)
		SELECT 10, 50, 30, NOW()
		WHERE NOT EXISTS (SELECT 1 FROM ledger_settings);
	`)
	if err != nil {
		log.Fatalf("Failed to seed ledger settings: %v", err)
	}

	log.Println("Migration completed successfully")
}
