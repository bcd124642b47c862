// Package suite runs sets of probe tasks concurrently and reports on them.
package suite

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ethpandaops/pageprobe/internal/live"
	"github.com/ethpandaops/pageprobe/internal/metrics"
	"github.com/ethpandaops/pageprobe/internal/output"
	"github.com/ethpandaops/pageprobe/internal/probe"
	"github.com/ethpandaops/pageprobe/internal/store"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

var errNoRunner = errors.New("suite requires a runner")

// Config contains configuration for suite execution.
type Config struct {
	Logger      logrus.FieldLogger
	Runner      probe.Runner
	Collector   metrics.Collector
	Formatter   output.Formatter
	Store       store.Store
	Sinks       []live.Sink
	Concurrency int
	RunTimeout  time.Duration
}

// Suite coordinates concurrent task runs.
type Suite struct {
	log         logrus.FieldLogger
	runner      probe.Runner
	metrics     metrics.Collector
	formatter   output.Formatter
	store       store.Store
	sinks       []live.Sink
	live        probe.LiveUpdateFunc
	concurrency int
	runTimeout  time.Duration

	printMu sync.Mutex
}

// New creates a suite from cfg.
func New(cfg *Config) *Suite {
	concurrency := cfg.Concurrency
	if concurrency < 1 {
		concurrency = 1
	}

	return &Suite{
		log:         cfg.Logger.WithField("component", "suite"),
		runner:      cfg.Runner,
		metrics:     cfg.Collector,
		formatter:   cfg.Formatter,
		store:       cfg.Store,
		sinks:       cfg.Sinks,
		live:        live.Fanout(cfg.Sinks...),
		concurrency: concurrency,
		runTimeout:  cfg.RunTimeout,
	}
}

// Start initializes the suite and all its components.
func (s *Suite) Start(ctx context.Context) error {
	if s.runner == nil {
		return errNoRunner
	}

	if err := s.metrics.Start(ctx); err != nil {
		return fmt.Errorf("starting metrics collector: %w", err)
	}

	if s.store != nil {
		if err := s.store.Start(ctx); err != nil {
			_ = s.metrics.Stop()

			return fmt.Errorf("starting report store: %w", err)
		}
	}

	s.log.Debug("suite started")

	return nil
}

// Stop releases the store, live sinks and collector.
func (s *Suite) Stop() error {
	var errs []error

	if s.store != nil {
		if err := s.store.Stop(); err != nil {
			errs = append(errs, fmt.Errorf("stopping report store: %w", err))
		}
	}

	if err := live.CloseAll(s.sinks...); err != nil {
		errs = append(errs, fmt.Errorf("closing live sinks: %w", err))
	}

	if err := s.metrics.Stop(); err != nil {
		errs = append(errs, fmt.Errorf("stopping metrics collector: %w", err))
	}

	return errors.Join(errs...)
}

// Run executes tasks with bounded concurrency, each under the run timeout,
// then prints the results and summary tables. Results are returned in the
// order of tasks. Individual run failures are reported in the results, not
// as an error.
func (s *Suite) Run(ctx context.Context, tasks []*probe.TaskRecord) ([]*probe.RunResult, error) {
	s.log.WithFields(logrus.Fields{
		"tasks":       len(tasks),
		"concurrency": s.concurrency,
		"run_timeout": s.runTimeout,
	}).Info("running tasks")

	s.formatter.PrintPhase(fmt.Sprintf("Running %d task(s)", len(tasks)))

	start := time.Now()
	results := make([]*probe.RunResult, len(tasks))

	var g errgroup.Group

	g.SetLimit(s.concurrency)

	for i, task := range tasks {
		g.Go(func() error {
			results[i] = s.runTask(ctx, task)

			return nil
		})
	}

	_ = g.Wait()

	s.formatter.PrintResults()
	s.formatter.PrintSummary()

	s.log.WithFields(logrus.Fields{
		"tasks":    len(tasks),
		"passed":   countPassed(results),
		"duration": time.Since(start),
	}).Info("suite complete")

	if err := ctx.Err(); err != nil {
		return results, fmt.Errorf("suite interrupted: %w", err)
	}

	return results, nil
}

func (s *Suite) runTask(ctx context.Context, task *probe.TaskRecord) *probe.RunResult {
	runCtx := ctx

	if s.runTimeout > 0 {
		var cancel context.CancelFunc

		runCtx, cancel = context.WithTimeout(ctx, s.runTimeout)
		defer cancel()
	}

	result := s.runner.Run(runCtx, task, s.live)

	s.metrics.RecordRun(metrics.FromResult(result))

	if s.store != nil && result.Report != nil {
		// Runs that hit their deadline are still stored.
		if err := s.store.Save(context.WithoutCancel(ctx), result); err != nil {
			s.log.WithError(err).WithField("task_id", result.Report.TaskID).Warn("failed to store report")
		}
	}

	s.printMu.Lock()
	s.formatter.PrintRun(result)
	s.printMu.Unlock()

	return result
}

// Passed reports whether a run completed without failed assertions.
func Passed(result *probe.RunResult) bool {
	if result == nil || result.Status != probe.StatusCompleted {
		return false
	}

	return result.Report == nil || result.Report.Verdict != probe.VerdictFail
}

// AllPassed reports whether every run passed.
func AllPassed(results []*probe.RunResult) bool {
	return countPassed(results) == len(results)
}

func countPassed(results []*probe.RunResult) int {
	passed := 0

	for _, r := range results {
		if Passed(r) {
			passed++
		}
	}

	return passed
}
