package metrics

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ethpandaops/pageprobe/internal/probe"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLogger() logrus.FieldLogger {
	log := logrus.New()
	log.SetOutput(io.Discard)

	return log
}

func sampleResult() *probe.RunResult {
	return &probe.RunResult{
		Status: probe.StatusCompleted,
		Report: &probe.Report{
			TaskID:     "home",
			URL:        "https://example.com",
			Success:    true,
			DurationMs: 1500,
			FinishedAt: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
			Verdict:    probe.VerdictFail,
			Assertions: []probe.AssertionResult{
				{AssertionDefinition: probe.AssertionDefinition{ID: "a", Kind: probe.AssertTextIncludes, Value: "Welcome"}, Passed: true},
				{AssertionDefinition: probe.AssertionDefinition{ID: "b", Kind: probe.AssertSelectorExists, Value: "#x"}, Details: "Selector not found"},
			},
			ConsoleLogs: []probe.ConsoleLogEntry{
				{Level: probe.LevelError, Text: "boom"},
				{Level: probe.LevelWarn, Text: "careful"},
			},
			Network: []probe.NetworkRequestRecord{{Method: "GET", URL: "https://example.com", Status: 200}},
		},
	}
}

func TestFromResult(t *testing.T) {
	t.Parallel()

	metric := FromResult(sampleResult())
	require.NotNil(t, metric)

	assert.Equal(t, "home", metric.TaskID)
	assert.Equal(t, probe.StatusCompleted, metric.Status)
	assert.Equal(t, 1500*time.Millisecond, metric.Duration)
	assert.Equal(t, 2, metric.AssertionsTotal)
	assert.Equal(t, 1, metric.AssertionsPassed)
	assert.Equal(t, 1, metric.AssertionsFailed)
	assert.Equal(t, 1, metric.ConsoleErrors)
	assert.Equal(t, 1, metric.Requests)
	assert.Equal(t, []FailedAssertionDetail{{ID: "b", Kind: "selectorExists", Value: "#x", Details: "Selector not found"}}, metric.FailedAssertions)

	assert.Nil(t, FromResult(nil))
	assert.Nil(t, FromResult(&probe.RunResult{}))
}

type recordingObserver struct {
	seen []string
}

func (o *recordingObserver) Observe(metric *RunMetric) {
	o.seen = append(o.seen, metric.TaskID)
}

func TestCollectorSummary(t *testing.T) {
	t.Parallel()

	observer := &recordingObserver{}
	c := NewCollector(newTestLogger(), observer)
	require.NoError(t, c.Start(context.Background()))

	defer func() { require.NoError(t, c.Stop()) }()

	c.RecordRun(FromResult(sampleResult()))
	c.RecordRun(&RunMetric{TaskID: "broken", Status: probe.StatusFailed, ErrorMessage: "page_health_check_failed"})
	c.RecordRun(nil)

	runs := c.GetRunMetrics()
	require.Len(t, runs, 2)
	assert.Equal(t, []string{"home", "broken"}, observer.seen)

	summary := c.GetSummary()
	assert.Equal(t, 2, summary.TotalRuns)
	assert.Equal(t, 1, summary.CompletedRuns)
	assert.Equal(t, 1, summary.FailedRuns)
	assert.Equal(t, 2, summary.AssertionsTotal)
	assert.Equal(t, 1, summary.AssertionsPassed)
	assert.Equal(t, 1, summary.ConsoleErrors)
	assert.InDelta(t, 50.0, summary.PassRate, 0.001)

	runs[0].TaskID = "mutated"
	assert.Equal(t, "home", c.GetRunMetrics()[0].TaskID)
}

func TestPrometheusObserve(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	prom := NewPrometheus(reg)

	prom.Observe(FromResult(sampleResult()))
	prom.Observe(&RunMetric{Status: probe.StatusFailed, Duration: time.Second})

	families, err := reg.Gather()
	require.NoError(t, err)

	values := make(map[string]float64)

	for _, family := range families {
		for _, m := range family.GetMetric() {
			key := family.GetName()
			for _, label := range m.GetLabel() {
				key += "," + label.GetName() + "=" + label.GetValue()
			}

			switch {
			case m.GetCounter() != nil:
				values[key] = m.GetCounter().GetValue()
			case m.GetHistogram() != nil:
				values[key] = float64(m.GetHistogram().GetSampleCount())
			}
		}
	}

	assert.InDelta(t, 1, values["pageprobe_runs_total,status=completed"], 0)
	assert.InDelta(t, 1, values["pageprobe_runs_total,status=failed"], 0)
	assert.InDelta(t, 2, values["pageprobe_run_duration_seconds"], 0)
	assert.InDelta(t, 1, values["pageprobe_assertions_total,result=passed"], 0)
	assert.InDelta(t, 1, values["pageprobe_assertions_total,result=failed"], 0)
	assert.InDelta(t, 1, values["pageprobe_console_errors_total"], 0)
	assert.InDelta(t, 1, values["pageprobe_network_requests_total"], 0)
}

func TestServerRouter(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	NewPrometheus(reg).Observe(FromResult(sampleResult()))

	srv := httptest.NewServer(NewServer(newTestLogger(), "127.0.0.1:0", reg).Router())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/metrics")
	require.NoError(t, err)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.NoError(t, resp.Body.Close())

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `pageprobe_runs_total{status="completed"} 1`)

	resp, err = http.Get(srv.URL + "/healthz")
	require.NoError(t, err)
	require.NoError(t, resp.Body.Close())
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestServerStartStop(t *testing.T) {
	t.Parallel()

	srv := NewServer(newTestLogger(), "127.0.0.1:0", prometheus.NewRegistry())
	require.NoError(t, srv.Start(context.Background()))

	resp, err := http.Get("http://" + srv.Addr() + "/healthz")
	require.NoError(t, err)
	require.NoError(t, resp.Body.Close())
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	require.NoError(t, srv.Stop())
}
