// Package probe runs a single browser task: it navigates to a URL, collects
// console and network telemetry, checks page health, evaluates assertions and
// builds a report. A run never returns an error; every failure ends up in the
// returned RunResult.
package probe

import (
	"context"
	"encoding/base64"
	"fmt"
	"time"

	"github.com/ethpandaops/pageprobe/internal/browser"
	"github.com/sirupsen/logrus"
)

// Runner executes browser tasks.
type Runner interface {
	Run(ctx context.Context, task *TaskRecord, live LiveUpdateFunc) *RunResult
}

type runner struct {
	launcher browser.Launcher
	log      logrus.FieldLogger
	now      func() time.Time
}

// NewRunner creates a runner that obtains a fresh browser from launcher for every run.
func NewRunner(log logrus.FieldLogger, launcher browser.Launcher) Runner {
	return &runner{
		launcher: launcher,
		log:      log.WithField("component", "probe_runner"),
		now:      time.Now,
	}
}

// Run executes task. Page and browser are always closed before Run returns.
func (r *runner) Run(ctx context.Context, task *TaskRecord, live LiveUpdateFunc) *RunResult {
	if task == nil {
		now := r.now()

		return &RunResult{
			Report:    buildReport(&TaskRecord{}, newRunState(r.log, r.now, ""), now, now, reportOutcome{}),
			Status:    StatusFailed,
			LastError: errNilTask.Error(),
		}
	}

	log := r.log.WithFields(logrus.Fields{
		"task_id": task.ID,
		"url":     task.URL,
	})

	e := &execution{
		runner:    r,
		log:       log,
		task:      task,
		live:      live,
		state:     newRunState(log, r.now, Origin(task.URL)),
		startedAt: r.now(),
	}

	return e.run(ctx)
}

// execution is the per-run context. Nothing in it outlives a single Run call.
type execution struct {
	runner *runner
	log    logrus.FieldLogger
	task   *TaskRecord
	live   LiveUpdateFunc
	state  *runState

	browser    browser.Browser
	page       browser.Page
	screenshot string
	startedAt  time.Time
}

func (e *execution) run(ctx context.Context) (result *RunResult) {
	defer e.close()

	defer func() {
		if rec := recover(); rec != nil {
			result = e.fail(ctx, fmt.Errorf("panic: %v", rec))
		}
	}()

	e.log.Debug("starting task")

	result, err := e.execute(ctx)
	if err != nil {
		return e.fail(ctx, err)
	}

	e.log.WithFields(logrus.Fields{
		"status":      result.Status,
		"duration_ms": result.Report.DurationMs,
	}).Info("task finished")

	return result
}

func (e *execution) execute(ctx context.Context) (*RunResult, error) {
	b, err := e.runner.launcher.Launch(ctx, browser.LaunchOptions{Headless: e.task.IsHeadless()})
	if err != nil {
		return nil, err
	}

	e.browser = b

	page, err := b.NewPage(ctx)
	if err != nil {
		return nil, err
	}

	e.page = page

	if !e.task.IsHeadless() {
		attempt(e.log, "set user agent", func() error {
			return page.SetUserAgent(ctx, browser.DesktopUserAgent)
		})
		attempt(e.log, "set viewport", func() error {
			return page.SetViewport(ctx, browser.DesktopViewport)
		})
	}

	e.state.attach(page)

	e.step(ctx, StepGoto, PhaseNav)

	resp, err := page.Navigate(ctx, e.task.URL, browser.NavigateOptions{
		WaitUntil: browser.WaitDOMContentLoaded,
		Timeout:   e.task.Timeout(),
	})
	if err != nil {
		return nil, err
	}

	health, err := checkHealth(ctx, page, resp, e.state, e.task.FatalSameOrigin())
	if err != nil {
		return nil, err
	}

	out := reportOutcome{success: health.healthy()}

	if !out.success {
		e.log.WithFields(health.fields()).Info("page health check failed")
	}

	if out.success && len(e.task.Assertions) > 0 {
		e.step(ctx, StepAssertions, PhaseAssertions)

		out.assertions, out.verdict, err = evaluateAssertions(ctx, page, e.task.Assertions, e.state)
		if err != nil {
			return nil, err
		}
	}

	e.step(ctx, StepCleanup, PhaseCleanup)
	e.captureScreenshot(ctx)

	out.screenshot = e.screenshot

	result := &RunResult{
		Report: buildReport(e.task, e.state, e.startedAt, e.runner.now(), out),
		Status: StatusCompleted,
	}

	if !out.success {
		result.Status = StatusFailed
		result.LastError = ErrHealthCheckFailed
	}

	return result, nil
}

// fail builds the report for a run that raised an error.
func (e *execution) fail(ctx context.Context, err error) *RunResult {
	msg := normalizeError(err)

	e.log.WithError(err).Warn("task failed")
	e.state.addError(msg)
	e.captureScreenshot(ctx)

	return &RunResult{
		Report:    buildReport(e.task, e.state, e.startedAt, e.runner.now(), reportOutcome{screenshot: e.screenshot}),
		Status:    StatusFailed,
		LastError: msg,
	}
}

// step records a transition and pushes a live snapshot.
func (e *execution) step(ctx context.Context, action StepAction, phase Phase) {
	e.state.addStep(action, phase)

	if e.live == nil {
		return
	}

	snap := e.state.snapshot(e.task.ID)

	attempt(e.log, "live update", func() error {
		return e.live(ctx, snap)
	})
}

func (e *execution) captureScreenshot(ctx context.Context) {
	if e.page == nil || e.screenshot != "" {
		return
	}

	attempt(e.log, "screenshot", func() error {
		data, err := e.page.Screenshot(ctx)
		if err != nil {
			return err
		}

		e.screenshot = base64.StdEncoding.EncodeToString(data)

		return nil
	})
}

// close releases the page then the browser. Close errors are ignored.
func (e *execution) close() {
	if e.page != nil {
		attempt(e.log, "close page", e.page.Close)
	}

	if e.browser != nil {
		attempt(e.log, "close browser", e.browser.Close)
	}
}

var _ Runner = (*runner)(nil)
