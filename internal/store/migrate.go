package store

import (
	"embed"
	"errors"
	"fmt"

	"github.com/ethpandaops/pageprobe/internal/config"
	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/clickhouse" // clickhouse driver for migrations
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/sirupsen/logrus"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// MigrationStatus describes the schema version after Migrate.
type MigrationStatus struct {
	Version uint
	Dirty   bool
	Changed bool
}

// Migrate applies the embedded ClickHouse schema.
func Migrate(log logrus.FieldLogger, cfg *config.Config) (*MigrationStatus, error) {
	log = log.WithField("component", "migrate")

	m, err := newMigrate(cfg)
	if err != nil {
		return nil, err
	}

	defer func() {
		if srcErr, dbErr := m.Close(); srcErr != nil || dbErr != nil {
			log.WithError(errors.Join(srcErr, dbErr)).Warn("failed to close migration instance")
		}
	}()

	status := &MigrationStatus{Changed: true}

	if upErr := m.Up(); upErr != nil {
		if !errors.Is(upErr, migrate.ErrNoChange) {
			return nil, fmt.Errorf("failed to run migrations: %w", upErr)
		}

		status.Changed = false
	}

	version, dirty, err := m.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		return nil, fmt.Errorf("failed to get migration version: %w", err)
	}

	status.Version = version
	status.Dirty = dirty

	log.WithFields(logrus.Fields{
		"version": version,
		"dirty":   dirty,
		"changed": status.Changed,
	}).Info("migrations finished")

	return status, nil
}

// Rollback reverts every embedded migration, dropping the reports table.
func Rollback(log logrus.FieldLogger, cfg *config.Config) error {
	log = log.WithField("component", "migrate")

	m, err := newMigrate(cfg)
	if err != nil {
		return err
	}

	defer func() {
		if srcErr, dbErr := m.Close(); srcErr != nil || dbErr != nil {
			log.WithError(errors.Join(srcErr, dbErr)).Warn("failed to close migration instance")
		}
	}()

	if err := m.Down(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to roll back migrations: %w", err)
	}

	log.Info("migrations rolled back")

	return nil
}

func newMigrate(cfg *config.Config) (*migrate.Migrate, error) {
	if !cfg.ClickHouseEnabled() {
		return nil, errClickHouseDisabled
	}

	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return nil, fmt.Errorf("failed to open embedded migrations: %w", err)
	}

	m, err := migrate.NewWithSourceInstance("iofs", src, cfg.ClickHouseMigrateURL())
	if err != nil {
		return nil, fmt.Errorf("failed to create migration instance: %w", err)
	}

	return m, nil
}
