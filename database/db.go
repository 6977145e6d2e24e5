package database

import (
	"database/sql"
	"embed"
	"fmt"
	"log"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

//go:embed schema.sql
var schemaSQL embed.FS

// DB is the global database connection
var DB *sql.DB

// Init initializes the database connection and runs migrations
func Init(dbPath string) error {
	var err error
	DB, err = sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	// Set connection pool settings for better concurrency
	DB.SetMaxOpenConns(25)
	DB.SetMaxIdleConns(25)
	DB.SetConnMaxLifetime(5 * time.Minute)

	// Enable foreign keys
	if _, err := DB.Exec("PRAGMA foreign_keys = ON"); err != nil {
		return fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	// Run migrations
	if err := runMigrations(); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	log.Println("✅ Database initialized")
	return nil
}

// runMigrations executes the schema SQL
func runMigrations() error {
	schema, err := schemaSQL.ReadFile("schema.sql")
	if err != nil {
		return fmt.Errorf("failed to read schema: %w", err)
	}

	if _, err := DB.Exec(string(schema)); err != nil {
		return fmt.Errorf("failed to execute schema: %w", err)
	}

	// Auto-migration for schema updates (safe for existing installs)
	if err := migrateSchema(); err != nil {
		log.Printf("Warning: Failed to migrate schema: %v", err)
		// Don't fail hard, as columns might already exist
	}

	return nil
}

// migrateSchema ensures database schema is up to date
func migrateSchema() error {
	// 1. Local-host execution flag on targets
	if err := addColumnIfNotExists("targets", "is_local", "BOOLEAN DEFAULT 0"); err != nil {
		log.Printf("Warning: Failed to add is_local: %v", err)
	}

	// 2. Typed alert subjects (older installs keyed everything by server id)
	if err := addColumnIfNotExists("alerts", "subject_type", "TEXT DEFAULT 'server'"); err != nil {
		log.Printf("Warning: Failed to add subject_type: %v", err)
	}

	// 3. SMTP relay columns on alert settings
	if err := addColumnIfNotExists("alert_settings", "smtp_server", "TEXT DEFAULT ''"); err != nil {
		return err
	}
	if err := addColumnIfNotExists("alert_settings", "smtp_port", "INTEGER DEFAULT 587"); err != nil {
		return err
	}
	if err := addColumnIfNotExists("alert_settings", "smtp_user", "TEXT DEFAULT ''"); err != nil {
		return err
	}
	return addColumnIfNotExists("alert_settings", "smtp_password", "TEXT DEFAULT ''")
}

// addColumnIfNotExists adds a column to a table if it doesn't exist
func addColumnIfNotExists(table, column, colType string) error {
	_, err := DB.Exec(fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s %s", table, column, colType))
	if err != nil {
		// Ignore "duplicate column name" error (SQLite)
		if err.Error() == fmt.Sprintf("duplicate column name: %s", column) {
			return nil
		}
		return err
	}
	log.Printf("✅ Added column %s to table %s", column, table)
	return nil
}

// Close closes the database connection
func Close() error {
	if DB != nil {
		return DB.Close()
	}
	return nil
}
