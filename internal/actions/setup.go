// Package actions contains the core operations behind the CLI and the interactive menu.
package actions

import (
	"errors"
	"fmt"

	"github.com/ethpandaops/pageprobe/internal/config"
	"github.com/ethpandaops/pageprobe/internal/store"
	"github.com/sirupsen/logrus"
)

var (
	// ErrHostNotSet is returned when the ClickHouse host is not configured
	ErrHostNotSet = errors.New("ClickHouse host is not set (CLICKHOUSE_HOST)")
	// ErrPortNotSet is returned when the ClickHouse port is not configured
	ErrPortNotSet = errors.New("ClickHouse port is not set")
	// ErrUsernameNotSet is returned when the ClickHouse username is not configured
	ErrUsernameNotSet = errors.New("ClickHouse username is not set")
	// ErrDatabaseNotSet is returned when the ClickHouse database is not configured
	ErrDatabaseNotSet = errors.New("ClickHouse database is not set")
)

// Setup validates config and applies the report schema to ClickHouse.
// Without skipConfirm it only prints the target so the caller can confirm.
func Setup(log logrus.FieldLogger, isInteractive, skipConfirm bool) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if valErr := validateConfig(cfg); valErr != nil {
		return valErr
	}

	printTarget("📋 Setup Configuration:", cfg)

	if !skipConfirm {
		if isInteractive {
			fmt.Printf("⚠️  You are about to create the %s table in database: %s\n", config.ReportsTable, cfg.ClickhouseDatabase)
		}
		// Return here so the caller can handle confirmation
		return nil
	}

	fmt.Printf("\n🔄 Running database migrations...\n")

	status, err := store.Migrate(log, cfg)
	if err != nil {
		return err
	}

	if !status.Changed {
		fmt.Println("ℹ️  No new migrations to apply")
	} else if !status.Dirty {
		fmt.Printf("✅ Migrations applied successfully (current version: %d)\n", status.Version)
	}

	fmt.Println("\n🎉 Setup completed successfully!")
	return nil
}

func printTarget(title string, cfg *config.Config) {
	fmt.Println("\n" + title)
	fmt.Println("======================")
	fmt.Printf("ClickHouse Host: %s\n", cfg.ClickHouseAddr())
	fmt.Printf("Username:        %s\n", cfg.ClickhouseUsername)
	fmt.Printf("Database Name:   %s\n", cfg.ClickhouseDatabase)
	fmt.Printf("Table:           %s\n", config.ReportsTable)
	fmt.Println()
}

// validateConfig checks if the configuration is valid for schema changes
func validateConfig(cfg *config.Config) error {
	if cfg.ClickhouseHost == "" {
		return ErrHostNotSet
	}

	if cfg.ClickhousePort == 0 {
		return ErrPortNotSet
	}

	if cfg.ClickhouseUsername == "" {
		return ErrUsernameNotSet
	}

	if cfg.ClickhouseDatabase == "" {
		return ErrDatabaseNotSet
	}

	return nil
}
