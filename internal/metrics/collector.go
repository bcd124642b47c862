// Package metrics provides probe run metrics collection and aggregation.
package metrics

import (
	"context"
	"sync"
	"time"

	"github.com/ethpandaops/pageprobe/internal/probe"
	"github.com/sirupsen/logrus"
)

// FailedAssertionDetail captures details about a single failed assertion
type FailedAssertionDetail struct {
	ID      string
	Kind    string
	Value   string
	Details string
}

// RunMetric captures metrics about a single task run
type RunMetric struct {
	TaskID           string
	URL              string
	Status           probe.RunStatus
	Success          bool
	Verdict          probe.Verdict
	Duration         time.Duration
	AssertionsTotal  int
	AssertionsPassed int
	AssertionsFailed int
	ConsoleErrors    int
	Requests         int
	ErrorMessage     string // empty if completed
	FailedAssertions []FailedAssertionDetail
	Timestamp        time.Time
}

// SummaryMetric provides aggregate statistics across all runs
type SummaryMetric struct {
	TotalDuration    time.Duration
	TotalRuns        int
	CompletedRuns    int
	FailedRuns       int
	AssertionsTotal  int
	AssertionsPassed int
	ConsoleErrors    int
	PassRate         float64 // percentage of completed runs
}

// Observer receives every recorded run, e.g. to export it.
type Observer interface {
	Observe(metric *RunMetric)
}

// Collector interface for metrics collection
type Collector interface {
	Start(ctx context.Context) error
	Stop() error
	RecordRun(metric *RunMetric)
	GetRunMetrics() []RunMetric
	GetSummary() SummaryMetric
}

// collector implements Collector interface
type collector struct {
	log       logrus.FieldLogger
	observers []Observer

	mu         sync.RWMutex
	runMetrics []RunMetric
	startTime  time.Time
}

// NewCollector creates a new metrics collector. Every recorded run is also
// passed to observers.
func NewCollector(log logrus.FieldLogger, observers ...Observer) Collector {
	return &collector{
		log:        log.WithField("component", "metrics_collector"),
		observers:  observers,
		runMetrics: make([]RunMetric, 0, 50),
	}
}

func (c *collector) Start(_ context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.startTime = time.Now()

	c.log.Debug("metrics collector started")

	return nil
}

func (c *collector) Stop() error {
	c.log.Debug("metrics collector stopped")

	return nil
}

func (c *collector) RecordRun(metric *RunMetric) {
	if metric == nil {
		return
	}

	c.mu.Lock()
	c.runMetrics = append(c.runMetrics, *metric)
	c.mu.Unlock()

	for _, o := range c.observers {
		o.Observe(metric)
	}
}

func (c *collector) GetRunMetrics() []RunMetric {
	c.mu.RLock()
	defer c.mu.RUnlock()

	result := make([]RunMetric, len(c.runMetrics))
	copy(result, c.runMetrics)

	return result
}

func (c *collector) GetSummary() SummaryMetric {
	c.mu.RLock()
	defer c.mu.RUnlock()

	summary := SummaryMetric{
		TotalRuns: len(c.runMetrics),
	}

	if !c.startTime.IsZero() {
		summary.TotalDuration = time.Since(c.startTime)
	}

	for _, rm := range c.runMetrics {
		if rm.Status == probe.StatusCompleted {
			summary.CompletedRuns++
		} else {
			summary.FailedRuns++
		}

		summary.AssertionsTotal += rm.AssertionsTotal
		summary.AssertionsPassed += rm.AssertionsPassed
		summary.ConsoleErrors += rm.ConsoleErrors
	}

	if summary.TotalRuns > 0 {
		summary.PassRate = float64(summary.CompletedRuns) / float64(summary.TotalRuns) * 100.0
	}

	return summary
}

// FromResult derives a RunMetric from a finished run.
func FromResult(result *probe.RunResult) *RunMetric {
	if result == nil || result.Report == nil {
		return nil
	}

	report := result.Report

	metric := &RunMetric{
		TaskID:          report.TaskID,
		URL:             report.URL,
		Status:          result.Status,
		Success:         report.Success,
		Verdict:         report.Verdict,
		Duration:        time.Duration(report.DurationMs) * time.Millisecond,
		AssertionsTotal: len(report.Assertions),
		Requests:        len(report.Network),
		ErrorMessage:    result.LastError,
		Timestamp:       report.FinishedAt,
	}

	for _, a := range report.Assertions {
		if a.Passed {
			metric.AssertionsPassed++

			continue
		}

		metric.AssertionsFailed++
		metric.FailedAssertions = append(metric.FailedAssertions, FailedAssertionDetail{
			ID:      a.ID,
			Kind:    string(a.Kind),
			Value:   a.Value,
			Details: a.Details,
		})
	}

	for _, entry := range report.ConsoleLogs {
		if entry.Level == probe.LevelError {
			metric.ConsoleErrors++
		}
	}

	return metric
}

// Compile-time interface compliance check
var _ Collector = (*collector)(nil)
