package config

import (
	"errors"
	"time"
)

const (
	// DefaultConcurrency is the number of tasks a suite runs at once.
	DefaultConcurrency = 2
	// DefaultRunTimeout is the outer deadline applied to every task run.
	DefaultRunTimeout = 2 * time.Minute
	// DefaultReportsDir is where the file store writes reports.
	DefaultReportsDir = "reports"
	// DefaultDatabase is the name of the default ClickHouse database.
	DefaultDatabase = "default"
	// DefaultNatsSubject is the base subject live snapshots are published under.
	DefaultNatsSubject = "pageprobe.live"
	// ReportsTable is the ClickHouse table holding one row per run.
	ReportsTable = "probe_reports"
	// SchemaMigrationsTable tracks applied ClickHouse migrations.
	SchemaMigrationsTable = "schema_migrations_pageprobe"
)

// ErrNonPositive is returned for numeric settings that must be greater than zero.
var ErrNonPositive = errors.New("must be greater than zero")
