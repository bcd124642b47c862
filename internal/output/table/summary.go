package table

import (
	"fmt"

	"github.com/ethpandaops/pageprobe/internal/format"
	"github.com/ethpandaops/pageprobe/internal/metrics"
	"github.com/sirupsen/logrus"
)

// SummaryFormatter formats summary statistics as a table.
type SummaryFormatter struct {
	log      logrus.FieldLogger
	renderer Renderer
	colors   *ColorHelper
}

// NewSummaryFormatter creates a new summary table formatter.
func NewSummaryFormatter(log logrus.FieldLogger, renderer Renderer) *SummaryFormatter {
	return &SummaryFormatter{
		log:      log.WithField("component", "table.summary_formatter"),
		renderer: renderer,
		colors:   NewColorHelper(),
	}
}

// Format converts summary metrics into a formatted table string.
func (f *SummaryFormatter) Format(summary metrics.SummaryMetric) string {
	completedValue := fmt.Sprintf("%d (%s)", summary.CompletedRuns, f.colors.FormatPercentage(summary.PassRate))
	if summary.CompletedRuns == summary.TotalRuns {
		completedValue = f.colors.Success(fmt.Sprintf("%d (%.1f%%)", summary.CompletedRuns, summary.PassRate))
	}

	failedRate := 0.0
	if summary.TotalRuns > 0 {
		failedRate = 100.0 - summary.PassRate
	}

	failedValue := fmt.Sprintf("%d (%.1f%%)", summary.FailedRuns, failedRate)
	if summary.FailedRuns > 0 {
		failedValue = f.colors.Failure(failedValue)
	} else {
		failedValue = f.colors.Success(failedValue)
	}

	consoleValue := fmt.Sprintf("%d", summary.ConsoleErrors)
	if summary.ConsoleErrors > 0 {
		consoleValue = f.colors.Warning(consoleValue)
	}

	return f.renderer.Render(Table{
		Title:   "Summary",
		Columns: []Column{{Header: "Metric"}, {Header: "Value", Numeric: true}},
		Rows: [][]string{
			{"Total Runs", f.colors.Bold(fmt.Sprintf("%d", summary.TotalRuns))},
			{"Completed", completedValue},
			{"Failed", failedValue},
			{"Assertions Passed", f.colors.FormatAssertions(summary.AssertionsPassed, summary.AssertionsTotal)},
			{"Console Errors", consoleValue},
			{"Total Duration", format.Duration(summary.TotalDuration)},
		},
	})
}
