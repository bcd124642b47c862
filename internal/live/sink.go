// Package live delivers in-progress run snapshots to observers.
package live

import (
	"context"
	"errors"
	"fmt"

	"github.com/ethpandaops/pageprobe/internal/probe"
	"github.com/sirupsen/logrus"
)

// Sink receives live snapshots.
type Sink interface {
	Publish(ctx context.Context, snap probe.LiveSnapshot) error
	Close() error
}

// LogSink writes snapshots to the logger.
type LogSink struct {
	log logrus.FieldLogger
}

// NewLogSink creates a sink logging at debug level.
func NewLogSink(log logrus.FieldLogger) *LogSink {
	return &LogSink{log: log.WithField("component", "live_log")}
}

func (s *LogSink) Publish(_ context.Context, snap probe.LiveSnapshot) error {
	fields := logrus.Fields{
		"task_id": snap.TaskID,
		"steps":   len(snap.Steps),
		"errors":  len(snap.Errors),
		"logs":    len(snap.Logs),
	}

	if n := len(snap.Steps); n > 0 {
		fields["step"] = snap.Steps[n-1].Action
	}

	s.log.WithFields(fields).Debug("live snapshot")

	return nil
}

func (s *LogSink) Close() error {
	return nil
}

// Fanout combines sinks into a single live callback. A failing or
// panicking sink does not prevent delivery to the others. Returns nil when
// there are no sinks so the runner skips snapshot emission.
func Fanout(sinks ...Sink) probe.LiveUpdateFunc {
	active := make([]Sink, 0, len(sinks))

	for _, s := range sinks {
		if s != nil {
			active = append(active, s)
		}
	}

	if len(active) == 0 {
		return nil
	}

	return func(ctx context.Context, snap probe.LiveSnapshot) error {
		var errs []error

		for _, s := range active {
			if err := publish(ctx, s, snap); err != nil {
				errs = append(errs, err)
			}
		}

		return errors.Join(errs...)
	}
}

func publish(ctx context.Context, s Sink, snap probe.LiveSnapshot) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("live sink panicked: %v", r)
		}
	}()

	return s.Publish(ctx, snap)
}

// CloseAll closes every sink, joining their errors.
func CloseAll(sinks ...Sink) error {
	var errs []error

	for _, s := range sinks {
		if s == nil {
			continue
		}

		if err := s.Close(); err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}

var _ Sink = (*LogSink)(nil)
