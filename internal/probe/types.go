package probe

import (
	"context"
	"time"
)

// AssertionKind identifies a declarative post-navigation check.
type AssertionKind string

const (
	// AssertTextIncludes passes when the page content contains the value verbatim.
	AssertTextIncludes AssertionKind = "textIncludes"
	// AssertSelectorExists passes when the value selector matches an element.
	AssertSelectorExists AssertionKind = "selectorExists"
)

// AssertionDefinition is a single check declared on a task.
type AssertionDefinition struct {
	ID    string        `json:"id" yaml:"id"`
	Kind  AssertionKind `json:"kind" yaml:"kind"`
	Value string        `json:"value" yaml:"value"`
}

// AssertionResult is the outcome of one assertion.
type AssertionResult struct {
	AssertionDefinition
	Passed  bool   `json:"passed"`
	Details string `json:"details,omitempty"`
}

// ConsoleLevel is the closed set of console levels kept in reports.
type ConsoleLevel string

const (
	LevelLog   ConsoleLevel = "log"
	LevelError ConsoleLevel = "error"
	LevelWarn  ConsoleLevel = "warn"
	LevelInfo  ConsoleLevel = "info"
	LevelDebug ConsoleLevel = "debug"
)

// ParseConsoleLevel maps a runtime console type onto ConsoleLevel. Unknown
// types become LevelLog.
func ParseConsoleLevel(raw string) ConsoleLevel {
	switch ConsoleLevel(raw) {
	case LevelError, LevelWarn, LevelInfo, LevelDebug, LevelLog:
		return ConsoleLevel(raw)
	default:
		return LevelLog
	}
}

// ConsoleLogEntry is one captured console message.
type ConsoleLogEntry struct {
	Level     ConsoleLevel `json:"level"`
	Text      string       `json:"text"`
	Timestamp time.Time    `json:"timestamp"`
}

// NetworkRequestRecord is one finished network request.
type NetworkRequestRecord struct {
	Method     string `json:"method"`
	URL        string `json:"url"`
	Status     int    `json:"status"`
	DurationMs int64  `json:"durationMs"`
}

// StepAction tags a control-flow transition.
type StepAction string

const (
	StepGoto       StepAction = "goto"
	StepAssertions StepAction = "assertions"
	StepCleanup    StepAction = "cleanup"
)

// Phase labels the part of the run a step belongs to.
type Phase string

const (
	PhaseNav        Phase = "nav"
	PhaseAssertions Phase = "assertions"
	PhaseCleanup    Phase = "cleanup"
)

// Step records a major control-flow transition.
type Step struct {
	Action    StepAction `json:"action"`
	Timestamp time.Time  `json:"timestamp"`
	Phase     Phase      `json:"phase"`
}

// Verdict summarises assertion results.
type Verdict string

const (
	VerdictPass Verdict = "pass"
	VerdictFail Verdict = "fail"
)

// Report is the structured output of a run. It is built exactly once.
type Report struct {
	TaskID      string                 `json:"taskId"`
	URL         string                 `json:"url"`
	Task        string                 `json:"task"`
	Success     bool                   `json:"success"`
	Steps       []Step                 `json:"steps"`
	ConsoleLogs []ConsoleLogEntry      `json:"consoleLogs"`
	Network     []NetworkRequestRecord `json:"network"`
	Errors      []string               `json:"errors"`
	DurationMs  int64                  `json:"durationMs"`
	StartedAt   time.Time              `json:"startedAt"`
	FinishedAt  time.Time              `json:"finishedAt"`
	Verdict     Verdict                `json:"verdict,omitempty"`
	Assertions  []AssertionResult      `json:"assertions,omitempty"`
	Screenshot  string                 `json:"screenshot,omitempty"`
}

// FailedAssertions returns the results that did not pass.
func (r *Report) FailedAssertions() []AssertionResult {
	var failed []AssertionResult

	for _, a := range r.Assertions {
		if !a.Passed {
			failed = append(failed, a)
		}
	}

	return failed
}

// RunStatus is the terminal status of a run.
type RunStatus string

const (
	StatusCompleted RunStatus = "completed"
	StatusFailed    RunStatus = "failed"
)

// RunResult is returned by Runner.Run.
type RunResult struct {
	Report    *Report   `json:"report"`
	Status    RunStatus `json:"status"`
	LastError string    `json:"lastError,omitempty"`
}

// LiveSnapshot is a bounded, self-contained view of a run in progress.
type LiveSnapshot struct {
	TaskID string            `json:"taskId"`
	Steps  []Step            `json:"steps"`
	Errors []string          `json:"errors"`
	Logs   []ConsoleLogEntry `json:"logs"`
}

// LiveUpdateFunc receives live snapshots. Errors and panics are ignored by the runner.
type LiveUpdateFunc func(ctx context.Context, snap LiveSnapshot) error
