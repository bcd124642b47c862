package probe

import (
	"sync"
	"time"

	"github.com/ethpandaops/pageprobe/internal/browser"
	"github.com/sirupsen/logrus"
)

// liveLogLimit caps the console entries carried by a live snapshot.
const liveLogLimit = 20

// runState holds the accumulators of a single run. Browser events arrive on
// the adapter's goroutine, so every field is guarded by mu.
type runState struct {
	log    logrus.FieldLogger
	now    func() time.Time
	origin string

	mu                     sync.Mutex
	steps                  []Step
	consoleLogs            []ConsoleLogEntry
	network                []NetworkRequestRecord
	errors                 []string
	requestStarts          map[string]time.Time
	sameOriginConsoleError bool
}

func newRunState(log logrus.FieldLogger, now func() time.Time, origin string) *runState {
	return &runState{
		log:           log,
		now:           now,
		origin:        origin,
		steps:         []Step{},
		consoleLogs:   []ConsoleLogEntry{},
		network:       []NetworkRequestRecord{},
		errors:        []string{},
		requestStarts: make(map[string]time.Time),
	}
}

// attach registers the telemetry listeners on page.
func (s *runState) attach(page browser.Page) {
	page.OnConsole(s.handleConsole)
	page.OnRequest(s.handleRequest)
	page.OnRequestFinished(s.handleRequestFinished)
}

func (s *runState) handleConsole(msg browser.ConsoleMessage) {
	defer s.recoverHandler("console")

	level := ParseConsoleLevel(msg.Type())
	text := msg.Text()

	s.mu.Lock()
	s.consoleLogs = append(s.consoleLogs, ConsoleLogEntry{
		Level:     level,
		Text:      text,
		Timestamp: s.now(),
	})

	if level == LevelError {
		s.errors = append(s.errors, "console_error:"+text)
	}
	s.mu.Unlock()

	if level != LevelError {
		return
	}

	loc, err := msg.Location()
	if err != nil {
		return
	}

	if sameOrigin(s.origin, loc.URL) {
		s.mu.Lock()
		s.sameOriginConsoleError = true
		s.mu.Unlock()
	}
}

// handleRequest records the start time keyed by URL. Concurrent requests to
// the same URL overwrite each other's start.
func (s *runState) handleRequest(req browser.Request) {
	defer s.recoverHandler("request")

	now := s.now()

	s.mu.Lock()
	s.requestStarts[req.URL()] = now
	s.mu.Unlock()
}

func (s *runState) handleRequestFinished(req browser.Request) {
	defer s.recoverHandler("request_finished")

	status := 0
	if resp, err := req.Response(); err == nil && resp != nil {
		status = resp.Status()
	}

	now := s.now()
	url := req.URL()

	s.mu.Lock()
	defer s.mu.Unlock()

	start, ok := s.requestStarts[url]
	if !ok {
		start = now
	}

	s.network = append(s.network, NetworkRequestRecord{
		Method:     req.Method(),
		URL:        url,
		Status:     status,
		DurationMs: now.Sub(start).Milliseconds(),
	})
}

// recoverHandler keeps a misbehaving event from taking down the adapter's goroutine.
func (s *runState) recoverHandler(event string) {
	if r := recover(); r != nil {
		s.log.WithFields(logrus.Fields{
			"event": event,
			"panic": r,
		}).Debug("telemetry handler panicked")
	}
}

func (s *runState) addStep(action StepAction, phase Phase) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.steps = append(s.steps, Step{Action: action, Timestamp: s.now(), Phase: phase})
}

func (s *runState) addError(msg string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.errors = append(s.errors, msg)
}

func (s *runState) hasSameOriginConsoleError() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.sameOriginConsoleError
}

// snapshot copies the steps and errors so far plus the latest warn/error logs.
func (s *runState) snapshot(taskID string) LiveSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	logs := make([]ConsoleLogEntry, 0, liveLogLimit)
	for _, entry := range s.consoleLogs {
		if entry.Level == LevelWarn || entry.Level == LevelError {
			logs = append(logs, entry)
		}
	}

	if len(logs) > liveLogLimit {
		logs = logs[len(logs)-liveLogLimit:]
	}

	return LiveSnapshot{
		TaskID: taskID,
		Steps:  append([]Step{}, s.steps...),
		Errors: append([]string{}, s.errors...),
		Logs:   logs,
	}
}
