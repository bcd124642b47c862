// Package browser defines the automation port used to drive a browser page.
// Concrete runtimes live under internal/browser/<name>.
package browser

import "context"

// Launcher starts browser instances.
type Launcher interface {
	Launch(ctx context.Context, opts LaunchOptions) (Browser, error)
}

// Browser is a running browser process or remote browser connection.
type Browser interface {
	NewPage(ctx context.Context) (Page, error)
	Close() error
}

// Page is a single browser tab.
type Page interface {
	SetUserAgent(ctx context.Context, userAgent string) error
	SetViewport(ctx context.Context, viewport Viewport) error

	// Event subscriptions. Handlers may be invoked from a goroutine other than
	// the caller's and must not block.
	OnConsole(handler func(ConsoleMessage))
	OnRequest(handler func(Request))
	OnRequestFinished(handler func(Request))

	// Navigate loads url and waits for opts.WaitUntil. The returned Response is
	// nil when the navigation produced no main document response.
	Navigate(ctx context.Context, url string, opts NavigateOptions) (Response, error)

	// Title returns document.title as the page script sees it. It is empty
	// for a document without a <title>, never the tab label the browser
	// derives from the URL.
	Title(ctx context.Context) (string, error)
	Content(ctx context.Context) (string, error)
	// QuerySelector reports whether selector matches at least one element.
	QuerySelector(ctx context.Context, selector string) (bool, error)
	// Screenshot returns a PNG of the current viewport.
	Screenshot(ctx context.Context) ([]byte, error)

	Close() error
}

// Response is the HTTP response for a navigation or request.
type Response interface {
	Status() int
}

// ConsoleMessage is a message the page wrote to the console.
type ConsoleMessage interface {
	// Type is the raw type reported by the runtime (log, error, warn, ...).
	Type() string
	Text() string
	// Location returns the URL of the script that produced the message.
	Location() (Location, error)
}

// Request is a network request issued by the page.
type Request interface {
	Method() string
	URL() string
	// Response returns the response, or nil when none was received.
	Response() (Response, error)
}
