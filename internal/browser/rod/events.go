package rod

import (
	"github.com/ethpandaops/pageprobe/internal/browser"
	"github.com/go-rod/rod/lib/proto"
)

type consoleMessage struct {
	typ  string
	text string
	loc  *browser.Location
}

func (m *consoleMessage) Type() string { return m.typ }
func (m *consoleMessage) Text() string { return m.text }

func (m *consoleMessage) Location() (browser.Location, error) {
	if m.loc == nil || m.loc.URL == "" {
		return browser.Location{}, browser.ErrNoLocation
	}

	return *m.loc, nil
}

type response struct {
	status int
}

func (r *response) Status() int { return r.status }

type request struct {
	method string
	url    string
	resp   *response
}

func (r *request) Method() string { return r.method }
func (r *request) URL() string    { return r.url }

func (r *request) Response() (browser.Response, error) {
	if r.resp == nil {
		return nil, nil //nolint:nilnil // no response was received
	}

	return r.resp, nil
}

// consoleFromRuntime converts a console API call. Types keep CDP naming except
// "warning", which becomes "warn".
func consoleFromRuntime(e *proto.RuntimeConsoleAPICalled) *consoleMessage {
	msg := &consoleMessage{typ: string(e.Type)}
	if e.Type == proto.RuntimeConsoleAPICalledTypeWarning {
		msg.typ = "warn"
	}

	text := ""

	for i, arg := range e.Args {
		if i > 0 {
			text += " "
		}

		text += remoteObjectText(arg)
	}

	msg.text = text

	if e.StackTrace != nil && len(e.StackTrace.CallFrames) > 0 {
		frame := e.StackTrace.CallFrames[0]
		msg.loc = &browser.Location{
			URL:          frame.URL,
			LineNumber:   frame.LineNumber,
			ColumnNumber: frame.ColumnNumber,
		}
	}

	return msg
}

// consoleFromLog converts a browser log entry, which is how uncaught errors and
// failed resource loads are reported.
func consoleFromLog(e *proto.LogEntryAdded) *consoleMessage {
	if e.Entry == nil {
		return nil
	}

	msg := &consoleMessage{
		typ:  string(e.Entry.Level),
		text: e.Entry.Text,
	}

	switch e.Entry.Level {
	case proto.LogLogEntryLevelVerbose:
		msg.typ = "debug"
	case proto.LogLogEntryLevelWarning:
		msg.typ = "warn"
	}

	if e.Entry.URL != "" {
		msg.loc = &browser.Location{URL: e.Entry.URL}
	}

	return msg
}

func remoteObjectText(obj *proto.RuntimeRemoteObject) string {
	if obj == nil {
		return ""
	}

	if obj.Value.Nil() {
		if obj.Description != "" {
			return obj.Description
		}

		return string(obj.Type)
	}

	return obj.Value.Str()
}
