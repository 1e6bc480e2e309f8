package wew

// PopupPolicy decides what happens when page content asks for a new
// top-level view.
type PopupPolicy int

const (
	// PopupRedirect loads the popup URL in the view's own main frame.
	// This is the default: the bridge never creates windows on its own.
	PopupRedirect PopupPolicy = iota

	// PopupBlock drops popup requests entirely.
	PopupBlock
)

// WebViewAttributes is the per-view configuration, copied at creation time.
// Use DefaultWebViewAttributes and override what you need.
type WebViewAttributes struct {
	// WindowHandle is the opaque native parent window handle. Zero under
	// windowless rendering.
	WindowHandle uintptr

	Width  int
	Height int

	// DeviceScaleFactor scales device-independent to physical pixels.
	DeviceScaleFactor float32

	// WindowlessFrameRate caps OnFrame delivery, frames per second.
	WindowlessFrameRate int

	DefaultFontSize      int
	DefaultFixedFontSize int

	JavascriptEnable          bool
	JavascriptAccessClipboard bool
	LocalStorage              bool

	// Popups selects the popup policy for this view.
	Popups PopupPolicy

	// AlwaysShowContextMenu disables the default suppression of context
	// menus over non-selected, non-editable content.
	AlwaysShowContextMenu bool

	// RequestHandler, when non-nil, intercepts this view's resource
	// requests before the default network pipeline.
	RequestHandler RequestHandler
}

// DefaultWebViewAttributes returns the stock view configuration: 800x600 at
// 30 fps, scale 1.0, 12pt fonts, javascript and local storage on, clipboard
// access off, popups redirected into the main frame.
func DefaultWebViewAttributes() WebViewAttributes {
	return WebViewAttributes{
		Width:                800,
		Height:               600,
		DeviceScaleFactor:    1.0,
		WindowlessFrameRate:  30,
		DefaultFontSize:      12,
		DefaultFixedFontSize: 12,
		JavascriptEnable:     true,
		LocalStorage:         true,
	}
}
