package browser

import "time"

// Viewport defines the browser viewport size.
type Viewport struct {
	Width             int     `json:"width"`
	Height            int     `json:"height"`
	DeviceScaleFactor float64 `json:"device_scale_factor,omitempty"`
}

// DesktopViewport is the viewport applied to non-headless tasks.
var DesktopViewport = Viewport{Width: 1366, Height: 768, DeviceScaleFactor: 1}

// DesktopUserAgent is the user agent applied to non-headless tasks.
const DesktopUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 " +
	"(KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36"

// WaitUntil selects the page lifecycle event that ends a navigation.
type WaitUntil string

const (
	WaitDOMContentLoaded WaitUntil = "domcontentloaded"
	WaitLoad             WaitUntil = "load"
)

// NavigateOptions tunes a navigation.
type NavigateOptions struct {
	WaitUntil WaitUntil
	Timeout   time.Duration
}

// LaunchOptions configures a browser launch.
type LaunchOptions struct {
	Headless bool
}

// Location identifies the source of a console message.
type Location struct {
	URL          string `json:"url"`
	LineNumber   int    `json:"line_number,omitempty"`
	ColumnNumber int    `json:"column_number,omitempty"`
}
