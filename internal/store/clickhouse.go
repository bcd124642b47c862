package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
	"github.com/ethpandaops/pageprobe/internal/config"
	"github.com/ethpandaops/pageprobe/internal/probe"
	"github.com/sirupsen/logrus"
)

const pingTimeout = 5 * time.Second

// reportRow is one row of the probe_reports table.
type reportRow struct {
	TaskID           string
	URL              string
	Status           string
	Success          bool
	Verdict          string
	LastError        string
	DurationMs       int64
	StartedAt        time.Time
	FinishedAt       time.Time
	Steps            uint32
	ConsoleErrors    uint32
	NetworkRequests  uint32
	AssertionsTotal  uint32
	AssertionsPassed uint32
	Report           string
}

// ClickHouseStore inserts one row per run into ClickHouse.
type ClickHouseStore struct {
	log logrus.FieldLogger
	cfg *config.Config

	conn driver.Conn
}

// NewClickHouseStore creates a store for the ClickHouse server in cfg.
func NewClickHouseStore(log logrus.FieldLogger, cfg *config.Config) *ClickHouseStore {
	return &ClickHouseStore{
		log: log.WithField("component", "clickhouse_store"),
		cfg: cfg,
	}
}

// Start establishes a connection using the native protocol.
func (s *ClickHouseStore) Start(ctx context.Context) error {
	options := &clickhouse.Options{
		Addr: []string{s.cfg.ClickHouseAddr()},
		Auth: clickhouse.Auth{
			Database: s.cfg.ClickhouseDatabase,
			Username: s.cfg.ClickhouseUsername,
			Password: s.cfg.ClickhousePassword,
		},
		Settings: clickhouse.Settings{
			"max_execution_time": 60,
		},
		DialTimeout:     time.Second * 30,
		MaxOpenConns:    5,
		MaxIdleConns:    5,
		ConnMaxLifetime: time.Duration(10) * time.Minute,
		Compression: &clickhouse.Compression{
			Method: clickhouse.CompressionLZ4,
		},
	}

	conn, err := clickhouse.Open(options)
	if err != nil {
		return fmt.Errorf("failed to open connection: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	if err := conn.Ping(pingCtx); err != nil {
		_ = conn.Close()

		return fmt.Errorf("failed to ping ClickHouse: %w", err)
	}

	s.conn = conn
	s.log.WithField("addr", s.cfg.ClickHouseAddr()).Info("connected to ClickHouse")

	return nil
}

func (s *ClickHouseStore) Stop() error {
	if s.conn == nil {
		return nil
	}

	if err := s.conn.Close(); err != nil {
		return fmt.Errorf("closing ClickHouse connection: %w", err)
	}

	s.conn = nil

	return nil
}

// Save inserts the run into the reports table.
func (s *ClickHouseStore) Save(ctx context.Context, result *probe.RunResult) error {
	if s.conn == nil {
		return errNotStarted
	}

	row, err := rowFromResult(result)
	if err != nil {
		return err
	}

	batch, err := s.conn.PrepareBatch(ctx, fmt.Sprintf("INSERT INTO %s", config.ReportsTable))
	if err != nil {
		return fmt.Errorf("preparing insert: %w", err)
	}

	if err := batch.Append(
		row.TaskID,
		row.URL,
		row.Status,
		row.Success,
		row.Verdict,
		row.LastError,
		row.DurationMs,
		row.StartedAt,
		row.FinishedAt,
		row.Steps,
		row.ConsoleErrors,
		row.NetworkRequests,
		row.AssertionsTotal,
		row.AssertionsPassed,
		row.Report,
	); err != nil {
		_ = batch.Abort()

		return fmt.Errorf("appending report row: %w", err)
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("inserting report for %s: %w", row.TaskID, err)
	}

	s.log.WithField("task_id", row.TaskID).Debug("stored report")

	return nil
}

// ServerHostname returns hostName() as reported by the connected server.
func (s *ClickHouseStore) ServerHostname(ctx context.Context) (string, error) {
	if s.conn == nil {
		return "", errNotStarted
	}

	var hostname string
	if err := s.conn.QueryRow(ctx, "SELECT hostName()").Scan(&hostname); err != nil {
		return "", fmt.Errorf("failed to query ClickHouse hostname: %w", err)
	}

	return hostname, nil
}

// rowFromResult flattens a result into a row. The stored JSON report omits
// the screenshot.
func rowFromResult(result *probe.RunResult) (*reportRow, error) {
	if result == nil || result.Report == nil {
		return nil, errNilResult
	}

	report := *result.Report
	report.Screenshot = ""

	data, err := json.Marshal(report)
	if err != nil {
		return nil, fmt.Errorf("encoding report for %s: %w", report.TaskID, err)
	}

	row := &reportRow{
		TaskID:          report.TaskID,
		URL:             report.URL,
		Status:          string(result.Status),
		Success:         report.Success,
		Verdict:         string(report.Verdict),
		LastError:       result.LastError,
		DurationMs:      report.DurationMs,
		StartedAt:       report.StartedAt,
		FinishedAt:      report.FinishedAt,
		Steps:           count(len(report.Steps)),
		NetworkRequests: count(len(report.Network)),
		AssertionsTotal: count(len(report.Assertions)),
		Report:          string(data),
	}

	for _, entry := range report.ConsoleLogs {
		if entry.Level == probe.LevelError {
			row.ConsoleErrors++
		}
	}

	for _, a := range report.Assertions {
		if a.Passed {
			row.AssertionsPassed++
		}
	}

	return row, nil
}

func count(n int) uint32 {
	return uint32(n) //nolint:gosec // slice lengths of a single run
}

var _ Store = (*ClickHouseStore)(nil)
