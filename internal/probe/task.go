package probe

import (
	"net/url"
	"strings"
	"time"
)

// DefaultTimeoutMs applies to navigation when a task sets no timeout.
const DefaultTimeoutMs = 30000

// TaskRecord describes one browser evaluation. The runner never modifies it.
type TaskRecord struct {
	ID          string `json:"id" yaml:"id"`
	URL         string `json:"url" yaml:"url"`
	Description string `json:"description" yaml:"description"`
	TimeoutMs   int    `json:"timeoutMs,omitempty" yaml:"timeout_ms"`
	// Headless defaults to true. An explicit false also applies a desktop
	// user agent and viewport.
	Headless *bool `json:"headless,omitempty" yaml:"headless"`
	// FatalSameOriginErrors defaults to true: a console error raised by a
	// same-origin script fails the health check.
	FatalSameOriginErrors *bool                 `json:"fatalSameOriginErrors,omitempty" yaml:"fatal_same_origin_errors"`
	Assertions            []AssertionDefinition `json:"assertions,omitempty" yaml:"assertions"`
}

// Timeout returns the navigation timeout.
func (t *TaskRecord) Timeout() time.Duration {
	ms := t.TimeoutMs
	if ms <= 0 {
		ms = DefaultTimeoutMs
	}

	return time.Duration(ms) * time.Millisecond
}

// IsHeadless reports the effective headless mode.
func (t *TaskRecord) IsHeadless() bool {
	return t.Headless == nil || *t.Headless
}

// FatalSameOrigin reports whether same-origin console errors fail the run.
func (t *TaskRecord) FatalSameOrigin() bool {
	return t.FatalSameOriginErrors == nil || *t.FatalSameOriginErrors
}

// Origin returns scheme://host[:port] of raw, or "" when raw is not an absolute URL.
func Origin(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return ""
	}

	return strings.ToLower(u.Scheme) + "://" + strings.ToLower(u.Host)
}

func sameOrigin(origin, raw string) bool {
	return origin != "" && Origin(raw) == origin
}
