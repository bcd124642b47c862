package actions

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	browserrod "github.com/ethpandaops/pageprobe/internal/browser/rod"
	"github.com/ethpandaops/pageprobe/internal/config"
	"github.com/ethpandaops/pageprobe/internal/live"
	"github.com/ethpandaops/pageprobe/internal/metrics"
	"github.com/ethpandaops/pageprobe/internal/output"
	"github.com/ethpandaops/pageprobe/internal/output/table"
	"github.com/ethpandaops/pageprobe/internal/probe"
	"github.com/ethpandaops/pageprobe/internal/store"
	"github.com/ethpandaops/pageprobe/internal/suite"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
)

// ErrRunsFailed is returned by RunTasks when at least one run did not pass.
var ErrRunsFailed = errors.New("one or more tasks failed")

// RunOptions tune a suite run on top of the loaded configuration.
type RunOptions struct {
	Verbose bool
	NoStore bool
	Writer  io.Writer
}

// RunTasks wires the browser launcher, stores, live sinks and metrics from
// cfg and runs tasks as a suite.
func RunTasks(
	ctx context.Context,
	log logrus.FieldLogger,
	cfg *config.Config,
	tasks []*probe.TaskRecord,
	opts RunOptions,
) ([]*probe.RunResult, error) {
	writer := opts.Writer
	if writer == nil {
		writer = os.Stdout
	}

	reg := prometheus.NewRegistry()
	collector := metrics.NewCollector(log, metrics.NewPrometheus(reg))

	if cfg.MetricsAddr != "" {
		srv := metrics.NewServer(log, cfg.MetricsAddr, reg)
		if err := srv.Start(ctx); err != nil {
			return nil, fmt.Errorf("starting metrics server: %w", err)
		}

		defer func() {
			if err := srv.Stop(); err != nil {
				log.WithError(err).Warn("failed to stop metrics server")
			}
		}()
	}

	renderer := table.NewRenderer(log)
	if err := renderer.Start(ctx); err != nil {
		return nil, fmt.Errorf("starting renderer: %w", err)
	}

	defer func() { _ = renderer.Stop() }()

	formatter := output.NewFormatter(
		writer,
		opts.Verbose,
		collector,
		table.NewResultsFormatter(log, renderer),
		table.NewSummaryFormatter(log, renderer),
	)

	launcher := browserrod.NewLauncher(log, browserrod.Config{
		ControlURL: cfg.BrowserControlURL,
		Bin:        cfg.BrowserBin,
		Flags:      cfg.BrowserFlags,
	})

	s := suite.New(&suite.Config{
		Logger:      log,
		Runner:      probe.NewRunner(log, launcher),
		Collector:   collector,
		Formatter:   formatter,
		Store:       buildStore(log, cfg, opts),
		Sinks:       buildSinks(log, cfg),
		Concurrency: cfg.Concurrency,
		RunTimeout:  cfg.RunTimeout,
	})

	if err := s.Start(ctx); err != nil {
		return nil, fmt.Errorf("starting suite: %w", err)
	}

	defer func() {
		if err := s.Stop(); err != nil {
			log.WithError(err).Warn("failed to stop suite")
		}
	}()

	results, err := s.Run(ctx, tasks)
	if err != nil {
		return results, err
	}

	if !suite.AllPassed(results) {
		return results, ErrRunsFailed
	}

	return results, nil
}

func buildStore(log logrus.FieldLogger, cfg *config.Config, opts RunOptions) store.Store {
	if opts.NoStore {
		return nil
	}

	stores := store.Multi{store.NewFileStore(log, cfg.ReportsDir)}

	if cfg.ClickHouseEnabled() {
		stores = append(stores, store.NewClickHouseStore(log, cfg))
	}

	return stores
}

func buildSinks(log logrus.FieldLogger, cfg *config.Config) []live.Sink {
	sinks := []live.Sink{live.NewLogSink(log)}

	if cfg.NatsURL == "" {
		return sinks
	}

	publisher, err := live.NewNATSPublisher(log, live.NATSConfig{
		URL:     cfg.NatsURL,
		Subject: cfg.NatsSubject,
	})
	if err != nil {
		log.WithError(err).Warn("live snapshots will not be published to NATS")

		return sinks
	}

	return append(sinks, publisher)
}

// ProbeOptions describe an ad hoc single-URL probe.
type ProbeOptions struct {
	URL       string
	Texts     []string
	Selectors []string
	Headful   bool
	TimeoutMs int
}

// NewProbeTask builds a task from ad hoc options.
func NewProbeTask(opts ProbeOptions) *probe.TaskRecord {
	headless := !opts.Headful

	task := &probe.TaskRecord{
		ID:        "adhoc",
		URL:       opts.URL,
		TimeoutMs: opts.TimeoutMs,
		Headless:  &headless,
	}

	for i, text := range opts.Texts {
		task.Assertions = append(task.Assertions, probe.AssertionDefinition{
			ID:    fmt.Sprintf("text-%d", i+1),
			Kind:  probe.AssertTextIncludes,
			Value: text,
		})
	}

	for i, sel := range opts.Selectors {
		task.Assertions = append(task.Assertions, probe.AssertionDefinition{
			ID:    fmt.Sprintf("selector-%d", i+1),
			Kind:  probe.AssertSelectorExists,
			Value: sel,
		})
	}

	return task
}
