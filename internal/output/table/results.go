package table

import (
	"fmt"
	"strings"
	"time"

	"github.com/ethpandaops/pageprobe/internal/format"
	"github.com/ethpandaops/pageprobe/internal/metrics"
	"github.com/ethpandaops/pageprobe/internal/probe"
	"github.com/sirupsen/logrus"
)

const maxDetailLength = 50

var resultColumns = []Column{
	{Header: "Task"},
	{Header: "Status"},
	{Header: "Verdict"},
	{Header: "Assertions", Numeric: true},
	{Header: "Duration", Numeric: true},
	{Header: "Details"},
}

// ResultsFormatter formats run results as a table.
type ResultsFormatter struct {
	log      logrus.FieldLogger
	renderer Renderer
	colors   *ColorHelper
}

// NewResultsFormatter creates a new results table formatter.
func NewResultsFormatter(log logrus.FieldLogger, renderer Renderer) *ResultsFormatter {
	return &ResultsFormatter{
		log:      log.WithField("component", "table.results_formatter"),
		renderer: renderer,
		colors:   NewColorHelper(),
	}
}

// Passed reports whether a run counts as a pass in result tables: it completed
// and no assertion failed.
func Passed(metric *metrics.RunMetric) bool {
	return metric.Status == probe.StatusCompleted && metric.Verdict != probe.VerdictFail
}

// Format converts run metrics into a formatted table string with failure details.
func (f *ResultsFormatter) Format(runMetrics []metrics.RunMetric) string {
	if len(runMetrics) == 0 {
		return "No tasks executed"
	}

	var (
		rows   = make([][]string, 0, len(runMetrics))
		failed = make([]metrics.RunMetric, 0)

		assertionsPassed, assertionsTotal int
		totalDuration                     time.Duration
	)

	for i := range runMetrics {
		metric := &runMetrics[i]
		passed := Passed(metric)

		assertionsPassed += metric.AssertionsPassed
		assertionsTotal += metric.AssertionsTotal
		totalDuration += metric.Duration

		var details string

		if !passed {
			failed = append(failed, *metric)

			if metric.AssertionsFailed > 0 {
				details = f.colors.Failure(fmt.Sprintf("%d/%d failed",
					metric.AssertionsFailed,
					metric.AssertionsTotal))
			}

			if metric.ErrorMessage != "" {
				if details != "" {
					details += " - "
				}

				details += f.colors.Muted(format.Truncate(metric.ErrorMessage, maxDetailLength))
			}
		}

		rows = append(rows, []string{
			metric.TaskID,
			f.colors.FormatStatus(passed),
			f.colors.FormatVerdict(string(metric.Verdict)),
			f.colors.FormatAssertions(metric.AssertionsPassed, metric.AssertionsTotal),
			format.Duration(metric.Duration),
			details,
		})
	}

	output := f.renderer.Render(Table{
		Title:   "Task Results",
		Columns: resultColumns,
		Rows:    rows,
		Footer: []string{
			fmt.Sprintf("%d tasks", len(runMetrics)),
			fmt.Sprintf("%d passed", len(runMetrics)-len(failed)),
			"",
			fmt.Sprintf("%d/%d", assertionsPassed, assertionsTotal),
			format.Duration(totalDuration),
			"",
		},
	})

	if len(failed) > 0 {
		output += f.formatFailureDetails(failed)
	}

	return output
}

// formatFailureDetails lists the error and every failed assertion of each failed run
func (f *ResultsFormatter) formatFailureDetails(failed []metrics.RunMetric) string {
	var builder strings.Builder

	builder.WriteString("\n\n" + f.colors.Header("▸ Failed Task Details") + "\n\n")

	for i, run := range failed {
		if i > 0 {
			builder.WriteString("\n")
		}

		fmt.Fprintf(&builder, "%s %s (%s)\n", run.TaskID, f.colors.Muted(run.URL), format.Duration(run.Duration))

		if run.ErrorMessage != "" {
			fmt.Fprintf(&builder, "  %s: %s\n", f.colors.Failure("Error"), run.ErrorMessage)
		}

		for _, assertion := range run.FailedAssertions {
			fmt.Fprintf(&builder, "  %s %s: %s\n",
				f.colors.Failure("✗"),
				f.colors.Bold("Assertion"),
				assertion.ID,
			)
			fmt.Fprintf(&builder, "    %s: %s %q\n", f.colors.Info("Expected"), assertion.Kind, assertion.Value)

			if assertion.Details != "" {
				fmt.Fprintf(&builder, "    %s: %s\n", f.colors.Warning("Actual"), assertion.Details)
			}
		}

		if run.ErrorMessage == "" && len(run.FailedAssertions) == 0 {
			fmt.Fprintf(&builder, "  %s: Task failed (no details available)\n", f.colors.Failure("Error"))
		}
	}

	return builder.String()
}
