// Package store persists finished probe reports.
package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/ethpandaops/pageprobe/internal/probe"
)

var (
	errNilResult  = errors.New("result has no report")
	errNotStarted = errors.New("store not started")

	errClickHouseDisabled = errors.New("clickhouse is not configured (set CLICKHOUSE_HOST)")
)

// Store persists run results.
type Store interface {
	Start(ctx context.Context) error
	Stop() error
	Save(ctx context.Context, result *probe.RunResult) error
}

// Multi saves to every store, joining their errors.
type Multi []Store

func (m Multi) Start(ctx context.Context) error {
	for i, s := range m {
		if err := s.Start(ctx); err != nil {
			for _, started := range m[:i] {
				_ = started.Stop()
			}

			return err
		}
	}

	return nil
}

func (m Multi) Stop() error {
	var errs []error

	for _, s := range m {
		if err := s.Stop(); err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}

func (m Multi) Save(ctx context.Context, result *probe.RunResult) error {
	var errs []error

	for _, s := range m {
		if err := s.Save(ctx, result); err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}

// baseName returns "<taskId>-<unixms>" with path separators removed from the id.
func baseName(report *probe.Report) string {
	id := strings.NewReplacer("/", "_", "\\", "_", "..", "_").Replace(report.TaskID)
	if id == "" {
		id = "task"
	}

	return fmt.Sprintf("%s-%d", id, report.StartedAt.UnixMilli())
}

var _ Store = Multi(nil)
