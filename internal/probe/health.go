package probe

import (
	"context"
	"strings"

	"github.com/ethpandaops/pageprobe/internal/browser"
	"github.com/sirupsen/logrus"
)

// healthCheck is the three-part success gate evaluated once after navigation.
type healthCheck struct {
	StatusOK          bool
	TitleOK           bool
	FatalConsoleError bool
}

func (h healthCheck) healthy() bool {
	return h.StatusOK && h.TitleOK && !h.FatalConsoleError
}

func (h healthCheck) fields() logrus.Fields {
	return logrus.Fields{
		"status_ok":           h.StatusOK,
		"title_ok":            h.TitleOK,
		"fatal_console_error": h.FatalConsoleError,
	}
}

// checkHealth reads the title and combines it with the navigation response and
// the sticky same-origin console error flag. A title read error is returned.
func checkHealth(ctx context.Context, page browser.Page, resp browser.Response, state *runState, fatalSameOrigin bool) (healthCheck, error) {
	check := healthCheck{
		StatusOK: resp == nil || resp.Status() < 400,
	}

	title, err := page.Title(ctx)
	if err != nil {
		return check, err
	}

	check.TitleOK = strings.TrimSpace(title) != ""
	check.FatalConsoleError = fatalSameOrigin && state.hasSameOriginConsoleError()

	return check, nil
}
