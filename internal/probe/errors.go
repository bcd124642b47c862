package probe

import (
	"errors"
	"strings"
)

const (
	// ErrBackendUnavailable replaces any error raised while acquiring a browser from a remote backend.
	ErrBackendUnavailable = "browser_backend_unavailable"
	// ErrHealthCheckFailed is the LastError of a run whose page failed the health check.
	ErrHealthCheckFailed = "page_health_check_failed"

	backendAcquirePath = "/v1/acquire"
)

var errNilTask = errors.New("task record is nil")

// normalizeError turns err into the stable message stored in LastError.
func normalizeError(err error) string {
	if err == nil {
		return "unknown error"
	}

	msg := err.Error()
	if strings.Contains(msg, backendAcquirePath) {
		return ErrBackendUnavailable
	}

	return msg
}
