package probe

import "time"

type reportOutcome struct {
	success    bool
	verdict    Verdict
	assertions []AssertionResult
	screenshot string
}

// buildReport assembles the final report. The accumulators are copied so the
// report does not change if a late browser event arrives after the build.
func buildReport(task *TaskRecord, state *runState, startedAt, finishedAt time.Time, out reportOutcome) *Report {
	state.mu.Lock()
	defer state.mu.Unlock()

	duration := finishedAt.Sub(startedAt).Milliseconds()
	if duration < 0 {
		duration = 0
	}

	return &Report{
		TaskID:      task.ID,
		URL:         task.URL,
		Task:        task.Description,
		Success:     out.success,
		Steps:       append([]Step{}, state.steps...),
		ConsoleLogs: append([]ConsoleLogEntry{}, state.consoleLogs...),
		Network:     append([]NetworkRequestRecord{}, state.network...),
		Errors:      append([]string{}, state.errors...),
		DurationMs:  duration,
		StartedAt:   startedAt,
		FinishedAt:  finishedAt,
		Verdict:     out.verdict,
		Assertions:  out.assertions,
		Screenshot:  out.screenshot,
	}
}
