// Package rod implements the browser port on top of go-rod and the Chrome DevTools Protocol.
package rod

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/ethpandaops/pageprobe/internal/browser"
	gorod "github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/launcher/flags"
	"github.com/go-rod/rod/lib/proto"
	"github.com/sirupsen/logrus"
)

// Config configures how browsers are obtained.
type Config struct {
	// ControlURL is a remote DevTools endpoint. When empty a local browser is launched.
	ControlURL string
	// Bin is the browser binary used for local launches. Empty lets rod resolve one.
	Bin string
	// Flags are extra command line switches for local launches, e.g. "no-sandbox" or "lang=en-US".
	Flags []string
}

// Launcher starts or connects to Chrome instances.
type Launcher struct {
	cfg Config
	log logrus.FieldLogger
}

// NewLauncher creates a rod backed launcher.
func NewLauncher(log logrus.FieldLogger, cfg Config) *Launcher {
	return &Launcher{
		cfg: cfg,
		log: log.WithField("component", "rod_launcher"),
	}
}

// Launch connects to the configured browser and returns a handle owned by the caller.
func (l *Launcher) Launch(ctx context.Context, opts browser.LaunchOptions) (browser.Browser, error) {
	if l.cfg.ControlURL != "" {
		return l.connectRemote(ctx)
	}

	return l.launchLocal(ctx, opts)
}

func (l *Launcher) connectRemote(ctx context.Context) (browser.Browser, error) {
	controlURL := l.cfg.ControlURL
	if !strings.HasPrefix(controlURL, "ws://") && !strings.HasPrefix(controlURL, "wss://") {
		resolved, err := launcher.ResolveURL(controlURL)
		if err != nil {
			return nil, fmt.Errorf("resolve browser endpoint %s: %w", redactURL(controlURL), errors.Join(browser.ErrUnavailable, err))
		}

		controlURL = resolved
	}

	b := gorod.New().ControlURL(controlURL).Context(ctx)
	if err := b.Connect(); err != nil {
		return nil, fmt.Errorf("connect to browser at %s: %w", redactURL(l.cfg.ControlURL), errors.Join(browser.ErrUnavailable, err))
	}

	l.log.WithField("endpoint", redactURL(l.cfg.ControlURL)).Debug("connected to remote browser")

	return &Browser{
		browser: b.Context(context.WithoutCancel(ctx)),
		log:     l.log,
	}, nil
}

func (l *Launcher) launchLocal(ctx context.Context, opts browser.LaunchOptions) (browser.Browser, error) {
	ln := launcher.New().Context(ctx).Headless(opts.Headless)
	if l.cfg.Bin != "" {
		ln = ln.Bin(l.cfg.Bin)
	}

	for _, raw := range l.cfg.Flags {
		name, val, hasVal := strings.Cut(strings.TrimLeft(raw, "-"), "=")
		if hasVal {
			ln = ln.Set(flags.Flag(name), val)
		} else {
			ln = ln.Set(flags.Flag(name))
		}
	}

	controlURL, err := ln.Launch()
	if err != nil {
		return nil, fmt.Errorf("launch browser: %w", errors.Join(browser.ErrUnavailable, err))
	}

	b := gorod.New().ControlURL(controlURL).Context(ctx)
	if err := b.Connect(); err != nil {
		ln.Kill()

		return nil, fmt.Errorf("connect to launched browser: %w", errors.Join(browser.ErrUnavailable, err))
	}

	l.log.WithField("headless", opts.Headless).Debug("launched local browser")

	return &Browser{
		browser:  b.Context(context.WithoutCancel(ctx)),
		launcher: ln,
		log:      l.log,
	}, nil
}

// Browser wraps a connected rod browser.
type Browser struct {
	browser  *gorod.Browser
	launcher *launcher.Launcher
	log      logrus.FieldLogger
}

// NewPage opens a blank tab and starts its event stream.
func (b *Browser) NewPage(ctx context.Context) (browser.Page, error) {
	page, err := b.browser.Context(ctx).Page(proto.TargetCreateTarget{URL: "about:blank"})
	if err != nil {
		return nil, browser.WrapError("new page", err)
	}

	p, err := newPage(page.Context(context.WithoutCancel(ctx)), b.log)
	if err != nil {
		_ = page.Close()

		return nil, err
	}

	return p, nil
}

// Close disconnects from the browser and kills it when it was launched locally.
func (b *Browser) Close() error {
	err := b.browser.Close()

	if b.launcher != nil {
		b.launcher.Kill()
		b.launcher.Cleanup()
	}

	return browser.WrapError("close", err)
}

// redactURL drops credentials and query strings, which often carry tokens.
func redactURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return "(invalid url)"
	}

	u.User = nil
	u.RawQuery = ""

	return u.String()
}

// Compile-time interface compliance checks
var (
	_ browser.Launcher = (*Launcher)(nil)
	_ browser.Browser  = (*Browser)(nil)
)
