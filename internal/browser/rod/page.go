package rod

import (
	"context"
	"fmt"
	"sync"

	"github.com/ethpandaops/pageprobe/internal/browser"
	gorod "github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
	"github.com/sirupsen/logrus"
)

// Page adapts a rod page to the browser port. Telemetry events are consumed on
// a dedicated goroutine started in newPage and stopped by Close.
type Page struct {
	page *gorod.Page
	log  logrus.FieldLogger

	mu                sync.RWMutex
	onConsole         []func(browser.ConsoleMessage)
	onRequest         []func(browser.Request)
	onRequestFinished []func(browser.Request)

	pendingMu sync.Mutex
	pending   map[proto.NetworkRequestID]*request

	cancel    context.CancelFunc
	closeOnce sync.Once
}

func newPage(page *gorod.Page, log logrus.FieldLogger) (*Page, error) {
	p := &Page{
		log:     log.WithField("component", "rod_page"),
		pending: make(map[proto.NetworkRequestID]*request),
	}

	ctx, cancel := context.WithCancel(page.GetContext())
	p.cancel = cancel
	p.page = page.Context(ctx)

	// Enable through rod so that scoped EachEvent calls don't disable them again.
	p.page.EnableDomain(proto.RuntimeEnable{})
	p.page.EnableDomain(proto.LogEnable{})
	p.page.EnableDomain(proto.NetworkEnable{})
	p.page.EnableDomain(proto.PageEnable{})

	// Enabling replays the lifecycle of about:blank. Doing it here keeps those
	// events away from any navigation wait.
	if err := (proto.PageSetLifecycleEventsEnabled{Enabled: true}).Call(p.page); err != nil {
		cancel()

		return nil, browser.WrapError("enable lifecycle events", err)
	}

	wait := p.page.EachEvent(
		func(e *proto.RuntimeConsoleAPICalled) {
			p.emitConsole(consoleFromRuntime(e))
		},
		func(e *proto.LogEntryAdded) {
			if msg := consoleFromLog(e); msg != nil {
				p.emitConsole(msg)
			}
		},
		p.handleRequestWillBeSent,
		p.handleResponseReceived,
		p.handleLoadingFinished,
		p.handleLoadingFailed,
	)

	go wait()

	return p, nil
}

func (p *Page) OnConsole(handler func(browser.ConsoleMessage)) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.onConsole = append(p.onConsole, handler)
}

func (p *Page) OnRequest(handler func(browser.Request)) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.onRequest = append(p.onRequest, handler)
}

func (p *Page) OnRequestFinished(handler func(browser.Request)) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.onRequestFinished = append(p.onRequestFinished, handler)
}

func (p *Page) SetUserAgent(ctx context.Context, userAgent string) error {
	err := p.page.Context(ctx).SetUserAgent(&proto.NetworkSetUserAgentOverride{UserAgent: userAgent})

	return browser.WrapError("set user agent", err)
}

func (p *Page) SetViewport(ctx context.Context, viewport browser.Viewport) error {
	scale := viewport.DeviceScaleFactor
	if scale == 0 {
		scale = 1
	}

	err := proto.EmulationSetDeviceMetricsOverride{
		Width:             viewport.Width,
		Height:            viewport.Height,
		DeviceScaleFactor: scale,
		Mobile:            false,
	}.Call(p.page.Context(ctx))

	return browser.WrapError("set viewport", err)
}

// Navigate loads url and blocks until the lifecycle event selected by opts
// fires on the main frame, or the timeout expires.
func (p *Page) Navigate(ctx context.Context, url string, opts browser.NavigateOptions) (browser.Response, error) {
	var cancel context.CancelFunc
	if opts.Timeout > 0 {
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
	} else {
		ctx, cancel = context.WithCancel(ctx)
	}
	defer cancel()

	page := p.page.Context(ctx)
	nav := newNavigation(page.FrameID, lifecycleEvent(opts.WaitUntil))

	// Handlers only run inside wait, which starts after PageNavigate has
	// returned the loader id. One subscription keeps the document response
	// ordered before the lifecycle event that ends the wait.
	wait := page.EachEvent(nav.handleResponse, nav.handleLifecycle)

	res, err := proto.PageNavigate{URL: url}.Call(page)
	if err != nil {
		return nil, navigationError(ctx, url, opts, err)
	}

	if res.ErrorText != "" {
		return nil, browser.WrapError("navigate", fmt.Errorf("%w: %s at %s", browser.ErrNavigationFailed, res.ErrorText, url))
	}

	if res.LoaderID == "" {
		return nil, nil //nolint:nilnil // same-document navigation loads no new document
	}

	nav.expect(res.LoaderID)
	wait()

	if ctx.Err() != nil {
		return nil, navigationError(ctx, url, opts, ctx.Err())
	}

	status, ok := nav.status()
	if !ok {
		return nil, nil //nolint:nilnil // document served without a network response (e.g. from a service worker)
	}

	return &response{status: status}, nil
}

// Title evaluates document.title. Target info is not used because its title
// falls back to the URL for untitled documents.
func (p *Page) Title(ctx context.Context) (string, error) {
	res, err := p.page.Context(ctx).Eval(titleScript)
	if err != nil {
		return "", browser.WrapError("title", err)
	}

	return remoteString(res), nil
}

func (p *Page) Content(ctx context.Context) (string, error) {
	html, err := p.page.Context(ctx).HTML()
	if err != nil {
		return "", browser.WrapError("content", err)
	}

	return html, nil
}

func (p *Page) QuerySelector(ctx context.Context, selector string) (bool, error) {
	found, _, err := p.page.Context(ctx).Has(selector)
	if err != nil {
		return false, browser.WrapError("query selector", err)
	}

	return found, nil
}

func (p *Page) Screenshot(ctx context.Context) ([]byte, error) {
	data, err := p.page.Context(ctx).Screenshot(false, nil)
	if err != nil {
		return nil, browser.WrapError("screenshot", err)
	}

	return data, nil
}

// Close stops the event stream and closes the tab. Safe to call more than once.
func (p *Page) Close() error {
	var err error

	p.closeOnce.Do(func() {
		p.cancel()

		err = p.page.Context(context.Background()).Close()
	})

	return browser.WrapError("close page", err)
}

func (p *Page) emitConsole(msg *consoleMessage) {
	p.mu.RLock()
	handlers := append([]func(browser.ConsoleMessage){}, p.onConsole...)
	p.mu.RUnlock()

	for _, h := range handlers {
		h(msg)
	}
}

func (p *Page) emitRequest(req *request, finished bool) {
	p.mu.RLock()

	handlers := p.onRequest
	if finished {
		handlers = p.onRequestFinished
	}

	handlers = append([]func(browser.Request){}, handlers...)
	p.mu.RUnlock()

	for _, h := range handlers {
		h(req)
	}
}

func (p *Page) handleRequestWillBeSent(e *proto.NetworkRequestWillBeSent) {
	if e.Request == nil {
		return
	}

	p.pendingMu.Lock()

	// A redirect reuses the request id; the previous hop finishes here.
	var redirected *request

	if prev, ok := p.pending[e.RequestID]; ok && e.RedirectResponse != nil {
		prev.resp = &response{status: e.RedirectResponse.Status}
		redirected = prev
	}

	req := &request{method: e.Request.Method, url: e.Request.URL}
	p.pending[e.RequestID] = req
	p.pendingMu.Unlock()

	if redirected != nil {
		p.emitRequest(redirected, true)
	}

	p.emitRequest(req, false)
}

func (p *Page) handleResponseReceived(e *proto.NetworkResponseReceived) {
	if e.Response == nil {
		return
	}

	p.pendingMu.Lock()
	defer p.pendingMu.Unlock()

	if req, ok := p.pending[e.RequestID]; ok {
		req.resp = &response{status: e.Response.Status}
	}
}

func (p *Page) handleLoadingFinished(e *proto.NetworkLoadingFinished) {
	p.pendingMu.Lock()
	req, ok := p.pending[e.RequestID]
	delete(p.pending, e.RequestID)
	p.pendingMu.Unlock()

	if ok {
		p.emitRequest(req, true)
	}
}

func (p *Page) handleLoadingFailed(e *proto.NetworkLoadingFailed) {
	p.pendingMu.Lock()
	delete(p.pending, e.RequestID)
	p.pendingMu.Unlock()

	p.log.WithFields(logrus.Fields{
		"request_id": e.RequestID,
		"error":      e.ErrorText,
	}).Debug("request failed")
}

func lifecycleEvent(w browser.WaitUntil) proto.PageLifecycleEventName {
	if w == browser.WaitLoad {
		return proto.PageLifecycleEventNameLoad
	}

	return proto.PageLifecycleEventNameDOMContentLoaded
}

func navigationError(ctx context.Context, url string, opts browser.NavigateOptions, err error) error {
	if ctx.Err() == context.DeadlineExceeded && opts.Timeout > 0 {
		return browser.WrapError("navigate", fmt.Errorf("navigation timeout of %d ms exceeded at %s: %w",
			opts.Timeout.Milliseconds(), url, ctx.Err()))
	}

	return browser.WrapError("navigate", err)
}

var _ browser.Page = (*Page)(nil)
