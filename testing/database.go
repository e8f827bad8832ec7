// Package testing provides throwaway PostgreSQL databases and fixtures for repository tests
package testing

import (
	"context"
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/amirphl/flashcall-auth/config"
	"github.com/amirphl/flashcall-auth/migrations"
	"github.com/google/uuid"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// maintenanceDB is connected to while creating and dropping per-test databases
const maintenanceDB = "postgres"

// TestDB is a migrated database that exists for the lifetime of one test
type TestDB struct {
	DB     *gorm.DB
	Name   string
	server config.DatabaseConfig
}

// serverConfig reads the TEST_DB_* environment; the database name is filled per test
func serverConfig() config.DatabaseConfig {
	port, err := strconv.Atoi(os.Getenv("TEST_DB_PORT"))
	if err != nil || port == 0 {
		port = 5432
	}
	return config.DatabaseConfig{
		Host:     envOr("TEST_DB_HOST", "localhost"),
		Port:     port,
		User:     envOr("TEST_DB_USER", "postgres"),
		Password: envOr("TEST_DB_PASSWORD", "postgres"),
		SSLMode:  envOr("TEST_DB_SSL_MODE", "disable"),
		Name:     maintenanceDB,
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func open(cfg config.DatabaseConfig) (*gorm.DB, error) {
	return gorm.Open(postgres.Open(cfg.DSN()), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
}

func closeDB(db *gorm.DB) {
	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
}

// SetupTestDB creates a uniquely named database and applies the embedded migrations to it
func SetupTestDB() (*TestDB, error) {
	server := serverConfig()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	admin, err := open(server)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to PostgreSQL: %w", err)
	}
	defer closeDB(admin)

	name := "flashcall_test_" + uuid.NewString()[:8]
	if err := admin.WithContext(ctx).Exec("CREATE DATABASE " + name).Error; err != nil {
		return nil, fmt.Errorf("failed to create test database %s: %w", name, err)
	}

	target := server
	target.Name = name
	if err := migrations.Apply(ctx, target.DSN()); err != nil {
		admin.Exec("DROP DATABASE IF EXISTS " + name)
		return nil, fmt.Errorf("failed to migrate test database %s: %w", name, err)
	}

	db, err := open(target)
	if err != nil {
		admin.Exec("DROP DATABASE IF EXISTS " + name)
		return nil, fmt.Errorf("failed to connect to test database %s: %w", name, err)
	}

	return &TestDB{DB: db, Name: name, server: server}, nil
}

// TeardownTestDB closes the connection pool and drops the database
func (tdb *TestDB) TeardownTestDB() error {
	if tdb.DB == nil {
		return nil
	}
	closeDB(tdb.DB)

	admin, err := open(tdb.server)
	if err != nil {
		return fmt.Errorf("failed to connect to PostgreSQL for cleanup: %w", err)
	}
	defer closeDB(admin)

	// Lingering pool connections block DROP DATABASE
	if err := admin.Exec(
		"SELECT pg_terminate_backend(pid) FROM pg_stat_activity WHERE datname = ? AND pid <> pg_backend_pid()",
		tdb.Name,
	).Error; err != nil {
		log.Printf("Warning: failed to terminate connections to %s: %v", tdb.Name, err)
	}

	if err := admin.Exec("DROP DATABASE IF EXISTS " + tdb.Name).Error; err != nil {
		return fmt.Errorf("failed to drop test database %s: %w", tdb.Name, err)
	}
	return nil
}

// Truncate empties the domain tables, children first
func (tdb *TestDB) Truncate() error {
	for _, table := range []string{"audit_log", "verification_sessions", "call_source_numbers", "admins"} {
		if err := tdb.DB.Exec("TRUNCATE TABLE " + table + " RESTART IDENTITY CASCADE").Error; err != nil {
			return fmt.Errorf("failed to truncate %s: %w", table, err)
		}
	}
	return nil
}
