package store

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/sirupsen/logrus"
)

// ErrNonWhitelistedHost is returned when a destructive operation targets a
// ClickHouse host that is not in the safe list.
var ErrNonWhitelistedHost = errors.New("refusing to modify non-whitelisted ClickHouse host")

// HostGuard blocks destructive operations on ClickHouse servers whose
// reported hostname is not whitelisted.
type HostGuard struct {
	safeHostnames []string
	log           logrus.FieldLogger
}

// NewHostGuard creates a guard for the provided whitelist.
func NewHostGuard(log logrus.FieldLogger, safeHostnames []string) *HostGuard {
	return &HostGuard{
		safeHostnames: safeHostnames,
		log:           log.WithField("component", "host_guard"),
	}
}

// Check queries the server hostname over s and verifies it is whitelisted.
func (g *HostGuard) Check(ctx context.Context, s *ClickHouseStore) (string, error) {
	hostname, err := s.ServerHostname(ctx)
	if err != nil {
		return "", err
	}

	if err := g.Validate(hostname); err != nil {
		return hostname, err
	}

	return hostname, nil
}

// Validate checks hostname against the whitelist.
func (g *HostGuard) Validate(hostname string) error {
	hostname = strings.TrimSpace(hostname)

	if !slices.Contains(g.safeHostnames, hostname) {
		return fmt.Errorf(
			"SAFETY: ClickHouse host '%s' is not in PAGEPROBE_SAFE_HOSTS (current whitelist: %v): %w",
			hostname,
			g.safeHostnames,
			ErrNonWhitelistedHost,
		)
	}

	g.log.WithFields(logrus.Fields{
		"hostname":  hostname,
		"whitelist": g.safeHostnames,
	}).Info("ClickHouse hostname validated")

	return nil
}
