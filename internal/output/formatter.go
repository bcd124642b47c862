// Package output prints human-friendly progress and results for probe runs.
package output

import (
	"fmt"
	"io"
	"time"

	"github.com/ethpandaops/pageprobe/internal/format"
	"github.com/ethpandaops/pageprobe/internal/metrics"
	"github.com/ethpandaops/pageprobe/internal/output/table"
	"github.com/ethpandaops/pageprobe/internal/probe"
	"github.com/fatih/color"
)

// Formatter provides clean, human-friendly output
type Formatter interface {
	PrintPhase(phase string)
	PrintProgress(message string, duration time.Duration)
	PrintSuccess(message string)
	PrintError(message string, err error)
	PrintRun(result *probe.RunResult)
	PrintResults()
	PrintSummary()
}

type formatter struct {
	writer  io.Writer
	verbose bool

	metrics          metrics.Collector
	resultsFormatter *table.ResultsFormatter
	summaryFormatter *table.SummaryFormatter

	green  *color.Color
	red    *color.Color
	yellow *color.Color
	blue   *color.Color
	gray   *color.Color
}

// NewFormatter creates a new output formatter
func NewFormatter(
	writer io.Writer,
	verbose bool,
	metricsCollector metrics.Collector,
	resultsFormatter *table.ResultsFormatter,
	summaryFormatter *table.SummaryFormatter,
) Formatter {
	return &formatter{
		writer:           writer,
		verbose:          verbose,
		metrics:          metricsCollector,
		resultsFormatter: resultsFormatter,
		summaryFormatter: summaryFormatter,
		green:            color.New(color.FgGreen),
		red:              color.New(color.FgRed),
		yellow:           color.New(color.FgYellow),
		blue:             color.New(color.FgBlue),
		gray:             color.New(color.FgHiBlack),
	}
}

// PrintPhase prints phase separator
func (f *formatter) PrintPhase(phase string) {
	f.blue.Fprintf(f.writer, "\n▸ %s\n", phase)
}

// PrintProgress prints progress with timing
func (f *formatter) PrintProgress(message string, duration time.Duration) {
	if duration > 0 {
		f.gray.Fprintf(f.writer, "%s (%s)\n", message, format.Duration(duration))
	} else {
		fmt.Fprintf(f.writer, "%s\n", message)
	}
}

// PrintSuccess prints a green message
func (f *formatter) PrintSuccess(message string) {
	f.green.Fprintf(f.writer, "%s\n", message)
}

// PrintError prints a red message with error details
func (f *formatter) PrintError(message string, err error) {
	f.red.Fprintf(f.writer, "%s", message)

	if err != nil {
		f.red.Fprintf(f.writer, ": %v", err)
	}

	fmt.Fprintf(f.writer, "\n")
}

// PrintRun prints a one-line outcome for a finished run. In verbose mode the
// captured errors follow.
func (f *formatter) PrintRun(result *probe.RunResult) {
	if result == nil || result.Report == nil {
		return
	}

	report := result.Report
	line := fmt.Sprintf("%s %s (%s)", report.TaskID, report.URL, format.Millis(report.DurationMs))

	switch {
	case result.Status != probe.StatusCompleted:
		f.red.Fprintf(f.writer, "✗ %s: %s\n", line, result.LastError)
	case report.Verdict == probe.VerdictFail:
		f.yellow.Fprintf(f.writer, "✗ %s: %d assertion(s) failed\n", line, len(report.FailedAssertions()))
	default:
		f.green.Fprintf(f.writer, "✓ %s\n", line)
	}

	if !f.verbose {
		return
	}

	for _, msg := range report.Errors {
		f.gray.Fprintf(f.writer, "    %s\n", msg)
	}
}

// PrintResults prints a table of run results
func (f *formatter) PrintResults() {
	fmt.Fprintln(f.writer, f.resultsFormatter.Format(f.metrics.GetRunMetrics()))
}

// PrintSummary prints a summary table with aggregate statistics
func (f *formatter) PrintSummary() {
	fmt.Fprintln(f.writer, f.summaryFormatter.Format(f.metrics.GetSummary()))
}
