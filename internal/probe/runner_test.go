package probe

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/ethpandaops/pageprobe/internal/browser"
	"github.com/ethpandaops/pageprobe/internal/browser/browsertest"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLogger() logrus.FieldLogger {
	log := logrus.New()
	log.SetOutput(io.Discard)

	return log
}

func newTestRunner(launcher browser.Launcher) *runner {
	return NewRunner(newTestLogger(), launcher).(*runner)
}

func healthyScript() browsertest.PageScript {
	return browsertest.PageScript{
		Status:     200,
		Title:      "Example Domain",
		Content:    "<html><body><h1>Welcome</h1></body></html>",
		Screenshot: []byte("png-bytes"),
	}
}

func boolPtr(v bool) *bool { return &v }

func TestRun_HealthyWithoutAssertions(t *testing.T) {
	t.Parallel()

	launcher := browsertest.NewLauncher(healthyScript())
	task := &TaskRecord{ID: "task-a", URL: "https://example.com", Description: "homepage"}

	result := newTestRunner(launcher).Run(context.Background(), task, nil)

	require.NotNil(t, result)
	require.NotNil(t, result.Report)
	assert.Equal(t, StatusCompleted, result.Status)
	assert.Empty(t, result.LastError)
	assert.True(t, result.Report.Success)
	assert.Equal(t, "task-a", result.Report.TaskID)
	assert.Equal(t, "https://example.com", result.Report.URL)
	assert.Equal(t, "homepage", result.Report.Task)
	assert.Empty(t, result.Report.Verdict)
	assert.Nil(t, result.Report.Assertions)
	assert.Equal(t, base64.StdEncoding.EncodeToString([]byte("png-bytes")), result.Report.Screenshot)

	require.Len(t, result.Report.Steps, 2)
	assert.Equal(t, StepGoto, result.Report.Steps[0].Action)
	assert.Equal(t, PhaseNav, result.Report.Steps[0].Phase)
	assert.Equal(t, StepCleanup, result.Report.Steps[1].Action)
	assert.Equal(t, PhaseCleanup, result.Report.Steps[1].Phase)

	browsers := launcher.Browsers()
	require.Len(t, browsers, 1)
	assert.True(t, browsers[0].Closed())
	require.Len(t, browsers[0].Pages(), 1)
	assert.True(t, browsers[0].Pages()[0].Closed())

	launches := launcher.Launches()
	require.Len(t, launches, 1)
	assert.True(t, launches[0].Headless)
}

func TestRun_BadStatusFailsHealthCheck(t *testing.T) {
	t.Parallel()

	script := healthyScript()
	script.Status = 404
	script.OnNavigate = func(p *browsertest.Page) {
		p.EmitRequest(&browsertest.Request{HTTPMethod: "GET", Address: "https://example.com/missing"})
		p.EmitRequestFinished(&browsertest.Request{HTTPMethod: "GET", Address: "https://example.com/missing", Status: 404})
	}

	task := &TaskRecord{
		ID:         "task-b",
		URL:        "https://example.com/missing",
		Assertions: []AssertionDefinition{{ID: "a", Kind: AssertTextIncludes, Value: "Welcome"}},
	}

	result := newTestRunner(browsertest.NewLauncher(script)).Run(context.Background(), task, nil)

	assert.Equal(t, StatusFailed, result.Status)
	assert.Equal(t, ErrHealthCheckFailed, result.LastError)
	assert.False(t, result.Report.Success)
	assert.Empty(t, result.Report.Verdict)
	assert.Nil(t, result.Report.Assertions)
	require.Len(t, result.Report.Network, 1)
	assert.Equal(t, 404, result.Report.Network[0].Status)
	require.Len(t, result.Report.Steps, 2)
	assert.Equal(t, StepCleanup, result.Report.Steps[1].Action)
}

func TestRun_AssertionVerdict(t *testing.T) {
	t.Parallel()

	task := &TaskRecord{
		ID:  "task-c",
		URL: "https://example.com",
		Assertions: []AssertionDefinition{
			{ID: "welcome", Kind: AssertTextIncludes, Value: "Welcome"},
			{ID: "missing", Kind: AssertSelectorExists, Value: "#missing"},
		},
	}

	result := newTestRunner(browsertest.NewLauncher(healthyScript())).Run(context.Background(), task, nil)

	assert.Equal(t, StatusCompleted, result.Status)
	assert.True(t, result.Report.Success)
	assert.Equal(t, VerdictFail, result.Report.Verdict)
	require.Len(t, result.Report.Assertions, 2)
	assert.True(t, result.Report.Assertions[0].Passed)
	assert.Empty(t, result.Report.Assertions[0].Details)
	assert.False(t, result.Report.Assertions[1].Passed)
	assert.Equal(t, "Selector not found", result.Report.Assertions[1].Details)

	require.Len(t, result.Report.Steps, 3)
	assert.Equal(t, StepAssertions, result.Report.Steps[1].Action)
	assert.Equal(t, PhaseAssertions, result.Report.Steps[1].Phase)
}

func TestRun_BackendUnavailable(t *testing.T) {
	t.Parallel()

	launcher := browsertest.NewLauncher(healthyScript())
	launcher.LaunchErr = errors.New("connect to wss://browsers.internal/v1/acquire: 503 Service Unavailable")

	task := &TaskRecord{ID: "task-d", URL: "https://example.com"}

	result := newTestRunner(launcher).Run(context.Background(), task, nil)

	assert.Equal(t, StatusFailed, result.Status)
	assert.Equal(t, ErrBackendUnavailable, result.LastError)
	assert.False(t, result.Report.Success)
	assert.Equal(t, []string{ErrBackendUnavailable}, result.Report.Errors)
	assert.Empty(t, result.Report.Steps)
	assert.Empty(t, result.Report.Screenshot)
	assert.Equal(t, "task-d", result.Report.TaskID)
}

func TestRun_SameOriginConsoleError(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		location    string
		fatal       *bool
		wantSuccess bool
	}{
		{
			name:        "same origin is fatal by default",
			location:    "https://example.com/static/app.js",
			wantSuccess: false,
		},
		{
			name:        "same origin with fatal disabled",
			location:    "https://example.com/static/app.js",
			fatal:       boolPtr(false),
			wantSuccess: true,
		},
		{
			name:        "cross origin is not fatal",
			location:    "https://cdn.example.net/lib.js",
			wantSuccess: true,
		},
		{
			name:        "missing location is ignored",
			location:    "",
			wantSuccess: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			script := healthyScript()
			script.OnNavigate = func(p *browsertest.Page) {
				p.EmitConsole("error", "Uncaught TypeError: x is undefined", tt.location)
			}

			task := &TaskRecord{ID: "task-e", URL: "https://example.com/", FatalSameOriginErrors: tt.fatal}

			result := newTestRunner(browsertest.NewLauncher(script)).Run(context.Background(), task, nil)

			assert.Equal(t, tt.wantSuccess, result.Report.Success)
			assert.Contains(t, result.Report.Errors, "console_error:Uncaught TypeError: x is undefined")
			require.Len(t, result.Report.ConsoleLogs, 1)
			assert.Equal(t, LevelError, result.Report.ConsoleLogs[0].Level)

			if tt.wantSuccess {
				assert.Equal(t, StatusCompleted, result.Status)
			} else {
				assert.Equal(t, StatusFailed, result.Status)
				assert.Equal(t, ErrHealthCheckFailed, result.LastError)
			}
		})
	}
}

func TestRun_HealthCheckInputs(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		mutate      func(s *browsertest.PageScript)
		wantSuccess bool
	}{
		{
			name:        "no document response counts as ok",
			mutate:      func(s *browsertest.PageScript) { s.NoResponse = true },
			wantSuccess: true,
		},
		{
			name:        "status 399 is ok",
			mutate:      func(s *browsertest.PageScript) { s.Status = 399 },
			wantSuccess: true,
		},
		{
			name:        "status 500 fails",
			mutate:      func(s *browsertest.PageScript) { s.Status = 500 },
			wantSuccess: false,
		},
		{
			name:        "whitespace title fails",
			mutate:      func(s *browsertest.PageScript) { s.Title = "  \n\t" },
			wantSuccess: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			script := healthyScript()
			tt.mutate(&script)

			task := &TaskRecord{ID: "health", URL: "https://example.com"}
			result := newTestRunner(browsertest.NewLauncher(script)).Run(context.Background(), task, nil)

			assert.Equal(t, tt.wantSuccess, result.Report.Success)
			assert.Equal(t, tt.wantSuccess, result.Status == StatusCompleted)
		})
	}
}

func TestRun_TitleErrorTakesFailurePath(t *testing.T) {
	t.Parallel()

	script := healthyScript()
	script.TitleErr = errors.New("target closed")

	result := newTestRunner(browsertest.NewLauncher(script)).Run(context.Background(),
		&TaskRecord{ID: "t", URL: "https://example.com"}, nil)

	assert.Equal(t, StatusFailed, result.Status)
	assert.Equal(t, "target closed", result.LastError)
	assert.Contains(t, result.Report.Errors, "target closed")
	assert.NotEmpty(t, result.Report.Screenshot)
}

func TestRun_NavigationError(t *testing.T) {
	t.Parallel()

	script := healthyScript()
	script.NavigateErr = errors.New("navigation timeout of 30000 ms exceeded")
	script.ScreenshotErr = errors.New("no frame")

	launcher := browsertest.NewLauncher(script)
	result := newTestRunner(launcher).Run(context.Background(), &TaskRecord{ID: "t", URL: "https://example.com"}, nil)

	assert.Equal(t, StatusFailed, result.Status)
	assert.Equal(t, "navigation timeout of 30000 ms exceeded", result.LastError)
	assert.Equal(t, []string{"navigation timeout of 30000 ms exceeded"}, result.Report.Errors)
	assert.Empty(t, result.Report.Screenshot)
	assert.Empty(t, result.Report.Verdict)
	require.Len(t, result.Report.Steps, 1)
	assert.Equal(t, StepGoto, result.Report.Steps[0].Action)

	browsers := launcher.Browsers()
	require.Len(t, browsers, 1)
	assert.True(t, browsers[0].Closed())
	assert.True(t, browsers[0].Pages()[0].Closed())
}

func TestRun_PanicIsRecovered(t *testing.T) {
	t.Parallel()

	script := healthyScript()
	script.NavigatePanic = "adapter exploded"

	launcher := browsertest.NewLauncher(script)
	result := newTestRunner(launcher).Run(context.Background(), &TaskRecord{ID: "t", URL: "https://example.com"}, nil)

	assert.Equal(t, StatusFailed, result.Status)
	assert.Equal(t, "panic: adapter exploded", result.LastError)
	assert.NotEmpty(t, result.Report.Screenshot)
	assert.True(t, launcher.Browsers()[0].Closed())
	assert.True(t, launcher.Browsers()[0].Pages()[0].Closed())
}

func TestRun_CloseErrorsAreIgnored(t *testing.T) {
	t.Parallel()

	script := healthyScript()
	script.CloseErr = errors.New("already closed")

	result := newTestRunner(browsertest.NewLauncher(script)).Run(context.Background(),
		&TaskRecord{ID: "t", URL: "https://example.com"}, nil)

	assert.Equal(t, StatusCompleted, result.Status)
	assert.NotContains(t, result.Report.Errors, "already closed")
}

func TestRun_NewPageErrorClosesBrowser(t *testing.T) {
	t.Parallel()

	r := newTestRunner(launcherFunc(func(context.Context, browser.LaunchOptions) (browser.Browser, error) {
		return &browsertest.Browser{NewPageErr: errors.New("too many tabs")}, nil
	}))

	result := r.Run(context.Background(), &TaskRecord{ID: "t", URL: "https://example.com"}, nil)

	assert.Equal(t, StatusFailed, result.Status)
	assert.Equal(t, "too many tabs", result.LastError)
}

func TestRun_HeadfulConfiguresDesktop(t *testing.T) {
	t.Parallel()

	script := healthyScript()
	script.ViewportErr = errors.New("emulation unsupported")

	launcher := browsertest.NewLauncher(script)
	task := &TaskRecord{ID: "t", URL: "https://example.com", Headless: boolPtr(false)}

	result := newTestRunner(launcher).Run(context.Background(), task, nil)

	assert.Equal(t, StatusCompleted, result.Status)
	assert.Empty(t, result.Report.Errors)
	assert.False(t, launcher.Launches()[0].Headless)

	page := launcher.Browsers()[0].Pages()[0]
	assert.Equal(t, browser.DesktopUserAgent, page.UserAgent())
	require.NotNil(t, page.Viewport())
	assert.Equal(t, 1366, page.Viewport().Width)
	assert.Equal(t, 768, page.Viewport().Height)
}

func TestRun_HeadlessSkipsDesktopSetup(t *testing.T) {
	t.Parallel()

	launcher := browsertest.NewLauncher(healthyScript())
	newTestRunner(launcher).Run(context.Background(), &TaskRecord{ID: "t", URL: "https://example.com", Headless: boolPtr(true)}, nil)

	page := launcher.Browsers()[0].Pages()[0]
	assert.Empty(t, page.UserAgent())
	assert.Nil(t, page.Viewport())
}

func TestRun_LiveUpdates(t *testing.T) {
	t.Parallel()

	script := healthyScript()
	script.OnNavigate = func(p *browsertest.Page) {
		p.EmitConsole("log", "booting", "")

		for i := 0; i < 25; i++ {
			p.EmitConsole("warning", fmt.Sprintf("warn %d", i), "")
		}
	}

	task := &TaskRecord{
		ID:         "live",
		URL:        "https://example.com",
		Assertions: []AssertionDefinition{{ID: "welcome", Kind: AssertTextIncludes, Value: "Welcome"}},
	}

	var (
		mu    sync.Mutex
		snaps []LiveSnapshot
	)

	live := func(_ context.Context, snap LiveSnapshot) error {
		mu.Lock()
		defer mu.Unlock()

		snaps = append(snaps, snap)

		return nil
	}

	result := newTestRunner(browsertest.NewLauncher(script)).Run(context.Background(), task, live)
	require.Equal(t, StatusCompleted, result.Status)

	require.Len(t, snaps, 3)

	for i, snap := range snaps {
		assert.Equal(t, "live", snap.TaskID)
		assert.Len(t, snap.Steps, i+1)
	}

	assert.Empty(t, snaps[0].Logs)

	// "warning" is not one of the known levels and coerces to log.
	assert.Empty(t, snaps[1].Logs)
	assert.Len(t, result.Report.ConsoleLogs, 26)
}

func TestRun_LiveSnapshotKeepsLastTwentyWarnings(t *testing.T) {
	t.Parallel()

	script := healthyScript()
	script.OnNavigate = func(p *browsertest.Page) {
		for i := 0; i < 30; i++ {
			p.EmitConsole("warn", fmt.Sprintf("warn %d", i), "")
			p.EmitConsole("info", "noise", "")
		}
	}

	var snaps []LiveSnapshot

	live := func(_ context.Context, snap LiveSnapshot) error {
		snaps = append(snaps, snap)

		return nil
	}

	newTestRunner(browsertest.NewLauncher(script)).Run(context.Background(), &TaskRecord{ID: "t", URL: "https://example.com"}, live)

	require.Len(t, snaps, 2)

	last := snaps[1]
	require.Len(t, last.Logs, 20)
	assert.Equal(t, "warn 10", last.Logs[0].Text)
	assert.Equal(t, "warn 29", last.Logs[19].Text)

	for _, entry := range last.Logs {
		assert.Equal(t, LevelWarn, entry.Level)
	}
}

func TestRun_LiveCallbackFailuresAreIsolated(t *testing.T) {
	t.Parallel()

	callbacks := map[string]LiveUpdateFunc{
		"error": func(context.Context, LiveSnapshot) error { return errors.New("observer offline") },
		"panic": func(context.Context, LiveSnapshot) error { panic("observer crashed") },
	}

	for name, live := range callbacks {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			task := &TaskRecord{
				ID:         "t",
				URL:        "https://example.com",
				Assertions: []AssertionDefinition{{ID: "welcome", Kind: AssertTextIncludes, Value: "Welcome"}},
			}

			result := newTestRunner(browsertest.NewLauncher(healthyScript())).Run(context.Background(), task, live)

			assert.Equal(t, StatusCompleted, result.Status)
			assert.True(t, result.Report.Success)
			assert.Equal(t, VerdictPass, result.Report.Verdict)
			assert.Empty(t, result.Report.Errors)
			assert.Len(t, result.Report.Steps, 3)
		})
	}
}

func TestRun_NetworkTelemetry(t *testing.T) {
	t.Parallel()

	script := healthyScript()
	script.OnNavigate = func(p *browsertest.Page) {
		p.EmitRequest(&browsertest.Request{HTTPMethod: "GET", Address: "https://example.com/"})
		p.EmitRequestFinished(&browsertest.Request{HTTPMethod: "GET", Address: "https://example.com/", Status: 200})
		p.EmitRequestFinished(&browsertest.Request{HTTPMethod: "POST", Address: "https://example.com/beacon"})
		p.EmitRequestFinished(&browsertest.Request{
			HTTPMethod:  "GET",
			Address:     "https://example.com/font.woff2",
			ResponseErr: errors.New("response gone"),
		})
	}

	r := newTestRunner(browsertest.NewLauncher(script))

	var tick time.Duration

	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	r.now = func() time.Time {
		tick += 10 * time.Millisecond

		return base.Add(tick)
	}

	result := r.Run(context.Background(), &TaskRecord{ID: "t", URL: "https://example.com"}, nil)

	require.Equal(t, StatusCompleted, result.Status)
	require.Len(t, result.Report.Network, 3)

	assert.Equal(t, NetworkRequestRecord{Method: "GET", URL: "https://example.com/", Status: 200, DurationMs: 10}, result.Report.Network[0])
	assert.Equal(t, NetworkRequestRecord{Method: "POST", URL: "https://example.com/beacon", Status: 0, DurationMs: 0}, result.Report.Network[1])
	assert.Equal(t, 0, result.Report.Network[2].Status)
	assert.Empty(t, result.Report.Errors)
}

func TestRun_DurationIsNeverNegative(t *testing.T) {
	t.Parallel()

	r := newTestRunner(browsertest.NewLauncher(healthyScript()))

	current := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	r.now = func() time.Time {
		current = current.Add(-time.Second)

		return current
	}

	result := r.Run(context.Background(), &TaskRecord{ID: "t", URL: "https://example.com"}, nil)

	assert.Equal(t, int64(0), result.Report.DurationMs)
	assert.True(t, result.Report.FinishedAt.Before(result.Report.StartedAt))
}

func TestRun_IndependentRuns(t *testing.T) {
	t.Parallel()

	script := healthyScript()
	script.OnNavigate = func(p *browsertest.Page) {
		p.EmitConsole("error", "boom", "https://other.example.org/x.js")
	}

	launcher := browsertest.NewLauncher(script)
	r := newTestRunner(launcher)
	task := &TaskRecord{ID: "same", URL: "https://example.com"}

	first := r.Run(context.Background(), task, nil)
	second := r.Run(context.Background(), task, nil)

	require.Len(t, first.Report.Errors, 1)
	require.Len(t, second.Report.Errors, 1)
	assert.NotSame(t, first.Report, second.Report)
	assert.Len(t, launcher.Browsers(), 2)

	first.Report.Errors[0] = "mutated"
	assert.Equal(t, "console_error:boom", second.Report.Errors[0])
}

func TestRun_CancelledContext(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result := newTestRunner(browsertest.NewLauncher(healthyScript())).Run(ctx, &TaskRecord{ID: "t", URL: "https://example.com"}, nil)

	assert.Equal(t, StatusFailed, result.Status)
	assert.Equal(t, context.Canceled.Error(), result.LastError)
}

func TestRun_NilTask(t *testing.T) {
	t.Parallel()

	result := newTestRunner(browsertest.NewLauncher(healthyScript())).Run(context.Background(), nil, nil)

	require.NotNil(t, result.Report)
	assert.Equal(t, StatusFailed, result.Status)
	assert.Equal(t, errNilTask.Error(), result.LastError)
}

func TestRun_InvalidURLStillRuns(t *testing.T) {
	t.Parallel()

	script := healthyScript()
	script.OnNavigate = func(p *browsertest.Page) {
		p.EmitConsole("error", "boom", "app.js")
	}

	result := newTestRunner(browsertest.NewLauncher(script)).Run(context.Background(), &TaskRecord{ID: "t", URL: "not a url"}, nil)

	assert.Equal(t, StatusCompleted, result.Status)
	assert.Equal(t, "not a url", result.Report.URL)
}

type launcherFunc func(ctx context.Context, opts browser.LaunchOptions) (browser.Browser, error)

func (f launcherFunc) Launch(ctx context.Context, opts browser.LaunchOptions) (browser.Browser, error) {
	return f(ctx, opts)
}
