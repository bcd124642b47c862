package table

import (
	"io"
	"strings"
	"testing"
	"time"

	"github.com/ethpandaops/pageprobe/internal/metrics"
	"github.com/ethpandaops/pageprobe/internal/probe"
	"github.com/fatih/color"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
)

func newTestLogger() logrus.FieldLogger {
	log := logrus.New()
	log.SetOutput(io.Discard)

	return log
}

func TestResultsFormatter_Format(t *testing.T) {
	color.NoColor = true
	defer func() { color.NoColor = false }()

	log := newTestLogger()
	formatter := NewResultsFormatter(log, NewRenderer(log))

	assert.Equal(t, "No tasks executed", formatter.Format(nil))

	out := formatter.Format([]metrics.RunMetric{
		{
			TaskID:           "home",
			URL:              "https://example.com",
			Status:           probe.StatusCompleted,
			Verdict:          probe.VerdictPass,
			Duration:         1200 * time.Millisecond,
			AssertionsTotal:  1,
			AssertionsPassed: 1,
		},
		{
			TaskID:           "checkout",
			URL:              "https://example.com/checkout",
			Status:           probe.StatusCompleted,
			Verdict:          probe.VerdictFail,
			Duration:         800 * time.Millisecond,
			AssertionsTotal:  2,
			AssertionsPassed: 1,
			AssertionsFailed: 1,
			FailedAssertions: []metrics.FailedAssertionDetail{
				{ID: "cart", Kind: "selectorExists", Value: "#cart", Details: "Selector not found"},
			},
		},
		{
			TaskID:       "down",
			URL:          "https://down.example.com",
			Status:       probe.StatusFailed,
			ErrorMessage: strings.Repeat("x", 80),
		},
	})

	assert.Contains(t, out, "▸ Task Results")
	assert.Contains(t, out, "ASSERTIONS")
	assert.Contains(t, out, "3 tasks")
	assert.Contains(t, out, "1 passed")
	assert.Contains(t, out, "2/3")
	assert.Contains(t, out, "✓ PASS")
	assert.Contains(t, out, "✗ FAIL")
	assert.Contains(t, out, "1/2 failed")
	assert.Contains(t, out, strings.Repeat("x", 47)+"...")
	assert.Contains(t, out, "▸ Failed Task Details")
	assert.Contains(t, out, "Assertion: cart")
	assert.Contains(t, out, `Expected: selectorExists "#cart"`)
	assert.Contains(t, out, "Actual: Selector not found")
	assert.Contains(t, out, "Error: "+strings.Repeat("x", 80))
	assert.NotContains(t, out, "home https://example.com (")
}

func TestSummaryFormatter_Format(t *testing.T) {
	color.NoColor = true
	defer func() { color.NoColor = false }()

	log := newTestLogger()
	out := NewSummaryFormatter(log, NewRenderer(log)).Format(metrics.SummaryMetric{
		TotalRuns:        4,
		CompletedRuns:    3,
		FailedRuns:       1,
		AssertionsTotal:  5,
		AssertionsPassed: 4,
		ConsoleErrors:    2,
		PassRate:         75,
		TotalDuration:    3 * time.Second,
	})

	assert.Contains(t, out, "▸ Summary")
	assert.Contains(t, out, "3 (75.0%)")
	assert.Contains(t, out, "1 (25.0%)")
	assert.Contains(t, out, "4/5")
	assert.Contains(t, out, "3.0s")
}
