package live

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/ethpandaops/pageprobe/internal/probe"
	"github.com/nats-io/nats.go"
	"github.com/sirupsen/logrus"
)

// NATSConfig configures the NATS connection.
type NATSConfig struct {
	// URL is the NATS server URL
	URL string

	// Subject is the base subject; snapshots go to <Subject>.<taskId>
	Subject string

	// ConnectTimeout is the connection timeout
	ConnectTimeout time.Duration
}

type msgPublisher interface {
	Publish(subject string, data []byte) error
}

// NATSPublisher publishes snapshots as JSON to NATS.
type NATSPublisher struct {
	log     logrus.FieldLogger
	conn    msgPublisher
	close   func()
	subject string
}

// NewNATSPublisher connects to NATS and returns a publishing sink.
func NewNATSPublisher(log logrus.FieldLogger, cfg NATSConfig) (*NATSPublisher, error) {
	if cfg.URL == "" {
		cfg.URL = nats.DefaultURL
	}
	if cfg.ConnectTimeout == 0 {
		cfg.ConnectTimeout = 5 * time.Second
	}

	conn, err := nats.Connect(cfg.URL,
		nats.Name("pageprobe"),
		nats.Timeout(cfg.ConnectTimeout),
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}

	p := newNATSPublisher(log, conn, cfg.Subject)
	p.close = conn.Close

	return p, nil
}

func newNATSPublisher(log logrus.FieldLogger, conn msgPublisher, subject string) *NATSPublisher {
	if subject == "" {
		subject = "pageprobe.live"
	}

	return &NATSPublisher{
		log:     log.WithField("component", "live_nats"),
		conn:    conn,
		subject: subject,
	}
}

// Publish sends the snapshot to <subject>.<taskId>.
func (p *NATSPublisher) Publish(_ context.Context, snap probe.LiveSnapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("encoding snapshot: %w", err)
	}

	subject := p.Subject(snap.TaskID)

	if err := p.conn.Publish(subject, data); err != nil {
		return fmt.Errorf("publishing to %s: %w", subject, err)
	}

	p.log.WithField("subject", subject).Debug("published snapshot")

	return nil
}

// Subject returns the subject snapshots of taskID are published on.
func (p *NATSPublisher) Subject(taskID string) string {
	return p.subject + "." + subjectToken(taskID)
}

// Close closes the NATS connection.
func (p *NATSPublisher) Close() error {
	if p.close != nil {
		p.close()
	}

	return nil
}

// subjectToken turns a task id into a single NATS subject token.
func subjectToken(id string) string {
	if id == "" {
		return "_"
	}

	return strings.Map(func(r rune) rune {
		switch r {
		case '.', '*', '>', ' ', '\t', '\r', '\n':
			return '_'
		default:
			return r
		}
	}, id)
}

var _ Sink = (*NATSPublisher)(nil)
