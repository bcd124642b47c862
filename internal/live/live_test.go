package live

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"testing"

	"github.com/ethpandaops/pageprobe/internal/probe"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLogger() logrus.FieldLogger {
	log := logrus.New()
	log.SetOutput(io.Discard)

	return log
}

type message struct {
	subject string
	data    []byte
}

type recordingConn struct {
	messages []message
	err      error
}

func (c *recordingConn) Publish(subject string, data []byte) error {
	if c.err != nil {
		return c.err
	}

	c.messages = append(c.messages, message{subject: subject, data: data})

	return nil
}

type funcSink struct {
	publish func(probe.LiveSnapshot) error
	closed  bool
}

func (s *funcSink) Publish(_ context.Context, snap probe.LiveSnapshot) error {
	return s.publish(snap)
}

func (s *funcSink) Close() error {
	s.closed = true

	return nil
}

func sampleSnapshot() probe.LiveSnapshot {
	return probe.LiveSnapshot{
		TaskID: "home",
		Steps:  []probe.Step{{Action: probe.StepGoto, Phase: probe.PhaseNav}},
		Errors: []string{"console_error:boom"},
		Logs:   []probe.ConsoleLogEntry{{Level: probe.LevelError, Text: "boom"}},
	}
}

func TestNATSPublisher_Publish(t *testing.T) {
	t.Parallel()

	conn := &recordingConn{}
	p := newNATSPublisher(newTestLogger(), conn, "probes.live")

	require.NoError(t, p.Publish(context.Background(), sampleSnapshot()))
	require.Len(t, conn.messages, 1)
	assert.Equal(t, "probes.live.home", conn.messages[0].subject)

	var decoded probe.LiveSnapshot
	require.NoError(t, json.Unmarshal(conn.messages[0].data, &decoded))
	assert.Equal(t, "home", decoded.TaskID)
	assert.Equal(t, []string{"console_error:boom"}, decoded.Errors)

	require.NoError(t, p.Close())
}

func TestNATSPublisher_PublishError(t *testing.T) {
	t.Parallel()

	conn := &recordingConn{err: errors.New("disconnected")}
	p := newNATSPublisher(newTestLogger(), conn, "")

	err := p.Publish(context.Background(), sampleSnapshot())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "pageprobe.live.home")
}

func TestSubjectToken(t *testing.T) {
	t.Parallel()

	tests := map[string]string{
		"home":        "home",
		"":            "_",
		"shop.cart":   "shop_cart",
		"a b*c>d":     "a_b_c_d",
		"uuid-1234-x": "uuid-1234-x",
	}

	for in, want := range tests {
		assert.Equal(t, want, subjectToken(in), in)
	}
}

func TestFanout(t *testing.T) {
	t.Parallel()

	assert.Nil(t, Fanout())
	assert.Nil(t, Fanout(nil))

	var got []string

	ok := &funcSink{publish: func(s probe.LiveSnapshot) error {
		got = append(got, s.TaskID)

		return nil
	}}
	failing := &funcSink{publish: func(probe.LiveSnapshot) error { return errors.New("sink down") }}
	panicking := &funcSink{publish: func(probe.LiveSnapshot) error { panic("boom") }}

	update := Fanout(failing, panicking, NewLogSink(newTestLogger()), ok)
	require.NotNil(t, update)

	err := update(context.Background(), sampleSnapshot())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "sink down")
	assert.Contains(t, err.Error(), "panicked")
	assert.Equal(t, []string{"home"}, got, "later sinks still receive the snapshot")

	require.NoError(t, CloseAll(ok, nil, failing))
	assert.True(t, ok.closed)
	assert.True(t, failing.closed)
}
