// Package browsertest provides an in-memory implementation of the browser port
// for tests.
package browsertest

import (
	"context"
	"errors"
	"sync"

	"github.com/ethpandaops/pageprobe/internal/browser"
)

// PageScript describes how a fake page behaves.
type PageScript struct {
	// Status of the main document. Ignored when NoResponse is set.
	Status      int
	NoResponse  bool
	NavigateErr error

	// NavigatePanic makes Navigate panic with this value when non-nil.
	NavigatePanic any

	// OnNavigate runs inside Navigate before it returns, to emit events.
	OnNavigate func(p *Page)

	Title      string
	TitleErr   error
	Content    string
	ContentErr error

	// Selectors lists selectors that match. SelectorErrs fail the query.
	Selectors    map[string]bool
	SelectorErrs map[string]error

	Screenshot    []byte
	ScreenshotErr error

	UserAgentErr error
	ViewportErr  error
	CloseErr     error
}

// Launcher is a fake browser.Launcher. Each Launch returns a new Browser
// whose pages follow Script.
type Launcher struct {
	Script    PageScript
	LaunchErr error

	mu       sync.Mutex
	launches []browser.LaunchOptions
	browsers []*Browser
}

// NewLauncher returns a launcher serving pages that follow script.
func NewLauncher(script PageScript) *Launcher {
	return &Launcher{Script: script}
}

func (l *Launcher) Launch(_ context.Context, opts browser.LaunchOptions) (browser.Browser, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.launches = append(l.launches, opts)

	if l.LaunchErr != nil {
		return nil, l.LaunchErr
	}

	b := &Browser{script: l.Script}
	l.browsers = append(l.browsers, b)

	return b, nil
}

// Launches returns the options of every Launch call.
func (l *Launcher) Launches() []browser.LaunchOptions {
	l.mu.Lock()
	defer l.mu.Unlock()

	return append([]browser.LaunchOptions{}, l.launches...)
}

// Browsers returns every browser handed out so far.
func (l *Launcher) Browsers() []*Browser {
	l.mu.Lock()
	defer l.mu.Unlock()

	return append([]*Browser{}, l.browsers...)
}

// Browser is a fake browser.Browser.
type Browser struct {
	NewPageErr error

	script PageScript

	mu     sync.Mutex
	pages  []*Page
	closed bool
}

func (b *Browser) NewPage(_ context.Context) (browser.Page, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.NewPageErr != nil {
		return nil, b.NewPageErr
	}

	p := &Page{script: b.script}
	b.pages = append(b.pages, p)

	return p, nil
}

func (b *Browser) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.closed = true

	return b.script.CloseErr
}

// Closed reports whether Close was called.
func (b *Browser) Closed() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.closed
}

// Pages returns the pages opened on this browser.
func (b *Browser) Pages() []*Page {
	b.mu.Lock()
	defer b.mu.Unlock()

	return append([]*Page{}, b.pages...)
}

// Page is a fake browser.Page.
type Page struct {
	script PageScript

	mu        sync.Mutex
	console   []func(browser.ConsoleMessage)
	requests  []func(browser.Request)
	finished  []func(browser.Request)
	userAgent string
	viewport  *browser.Viewport
	closed    bool
}

func (p *Page) SetUserAgent(_ context.Context, userAgent string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.userAgent = userAgent

	return p.script.UserAgentErr
}

func (p *Page) SetViewport(_ context.Context, viewport browser.Viewport) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.viewport = &viewport

	return p.script.ViewportErr
}

func (p *Page) OnConsole(handler func(browser.ConsoleMessage)) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.console = append(p.console, handler)
}

func (p *Page) OnRequest(handler func(browser.Request)) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.requests = append(p.requests, handler)
}

func (p *Page) OnRequestFinished(handler func(browser.Request)) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.finished = append(p.finished, handler)
}

func (p *Page) Navigate(ctx context.Context, _ string, _ browser.NavigateOptions) (browser.Response, error) {
	if p.script.NavigatePanic != nil {
		panic(p.script.NavigatePanic)
	}

	if p.script.OnNavigate != nil {
		p.script.OnNavigate(p)
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if p.script.NavigateErr != nil {
		return nil, p.script.NavigateErr
	}

	if p.script.NoResponse {
		return nil, nil //nolint:nilnil // mirrors a navigation without a document response
	}

	return Response(p.script.Status), nil
}

func (p *Page) Title(_ context.Context) (string, error) {
	return p.script.Title, p.script.TitleErr
}

func (p *Page) Content(_ context.Context) (string, error) {
	return p.script.Content, p.script.ContentErr
}

func (p *Page) QuerySelector(_ context.Context, selector string) (bool, error) {
	if err, ok := p.script.SelectorErrs[selector]; ok {
		return false, err
	}

	return p.script.Selectors[selector], nil
}

func (p *Page) Screenshot(_ context.Context) ([]byte, error) {
	if p.script.ScreenshotErr != nil {
		return nil, p.script.ScreenshotErr
	}

	return p.script.Screenshot, nil
}

func (p *Page) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.closed = true

	return p.script.CloseErr
}

// Closed reports whether Close was called.
func (p *Page) Closed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.closed
}

// UserAgent returns the user agent set on the page, if any.
func (p *Page) UserAgent() string {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.userAgent
}

// Viewport returns the viewport set on the page, if any.
func (p *Page) Viewport() *browser.Viewport {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.viewport
}

// EmitConsole delivers a console message to the registered handlers. An empty
// location makes Location return an error.
func (p *Page) EmitConsole(typ, text, location string) {
	p.mu.Lock()
	handlers := append([]func(browser.ConsoleMessage){}, p.console...)
	p.mu.Unlock()

	msg := &ConsoleMessage{Kind: typ, Message: text, URL: location}
	for _, h := range handlers {
		h(msg)
	}
}

// EmitRequest delivers a request-sent event.
func (p *Page) EmitRequest(req *Request) {
	p.mu.Lock()
	handlers := append([]func(browser.Request){}, p.requests...)
	p.mu.Unlock()

	for _, h := range handlers {
		h(req)
	}
}

// EmitRequestFinished delivers a request-finished event.
func (p *Page) EmitRequestFinished(req *Request) {
	p.mu.Lock()
	handlers := append([]func(browser.Request){}, p.finished...)
	p.mu.Unlock()

	for _, h := range handlers {
		h(req)
	}
}

// Response is a fake browser.Response carrying a status code.
type Response int

func (r Response) Status() int { return int(r) }

// ConsoleMessage is a fake browser.ConsoleMessage.
type ConsoleMessage struct {
	Kind    string
	Message string
	URL     string
}

func (m *ConsoleMessage) Type() string { return m.Kind }
func (m *ConsoleMessage) Text() string { return m.Message }

func (m *ConsoleMessage) Location() (browser.Location, error) {
	if m.URL == "" {
		return browser.Location{}, browser.ErrNoLocation
	}

	return browser.Location{URL: m.URL}, nil
}

// Request is a fake browser.Request. A zero Status means no response.
type Request struct {
	HTTPMethod  string
	Address     string
	Status      int
	ResponseErr error
}

func (r *Request) Method() string { return r.HTTPMethod }
func (r *Request) URL() string    { return r.Address }

func (r *Request) Response() (browser.Response, error) {
	if r.ResponseErr != nil {
		return nil, r.ResponseErr
	}

	if r.Status == 0 {
		return nil, nil //nolint:nilnil // no response received
	}

	return Response(r.Status), nil
}

// ErrScripted is a generic error for scripted failures.
var ErrScripted = errors.New("scripted failure")

var (
	_ browser.Launcher = (*Launcher)(nil)
	_ browser.Browser  = (*Browser)(nil)
	_ browser.Page     = (*Page)(nil)
)
