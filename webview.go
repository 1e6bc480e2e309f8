package wew

import (
	"sync/atomic"

	"github.com/mycrl/wew-go/internal/engine"
)

// WebViewState is an observable view lifecycle state. The numeric values
// are part of the bridge ABI.
type WebViewState int

const (
	// WebViewStateBeforeLoad fires when a main-frame navigation starts.
	WebViewStateBeforeLoad = WebViewState(engine.StateBeforeLoad)
	// WebViewStateLoaded fires when the main frame finishes loading.
	WebViewStateLoaded = WebViewState(engine.StateLoaded)
	// WebViewStateLoadError fires when a main-frame load fails. Superseded
	// navigations are not errors and never reach this state.
	WebViewStateLoadError = WebViewState(engine.StateLoadError)
	// WebViewStateRequestClose fires when a close has been requested and
	// teardown is about to begin.
	WebViewStateRequestClose = WebViewState(engine.StateRequestClose)
	// WebViewStateClose is terminal: the view is gone and every further
	// operation on the handle is a no-op.
	WebViewStateClose = WebViewState(engine.StateClose)
)

func (s WebViewState) String() string { return engine.State(s).String() }

// WebViewHandler receives one view's observable events. Every method is
// invoked on the engine thread and must not block.
type WebViewHandler interface {
	OnStateChange(state WebViewState)
	OnIMERect(rect Rect)
	OnFrame(buf []byte, width, height int)
	OnTitleChange(title string)
	OnFullscreenChange(fullscreen bool)
	OnMessage(message string)
}

// WebView is the host-side handle to one view. Methods are safe to call
// from any goroutine; after Close (or once WebViewStateClose has been
// observed) they are silent no-ops.
type WebView struct {
	rt         *Runtime
	handler    WebViewHandler
	attr       WebViewAttributes
	windowless bool
	browser    *engine.Browser

	closing atomic.Bool
	closed  atomic.Bool
}

// ID returns the view's identifier, stable for its lifetime.
func (v *WebView) ID() string { return v.browser.ID() }

// WindowHandle returns the native parent window handle. ok is false under
// windowless rendering, where no native window exists.
func (v *WebView) WindowHandle() (handle uintptr, ok bool) {
	if v.windowless {
		return 0, false
	}
	return v.attr.WindowHandle, v.attr.WindowHandle != 0
}

// SendMessage delivers text to the view's page-side message channel
// callback. Messages sent to a closing or closed view are dropped.
func (v *WebView) SendMessage(text string) {
	if v.gone() {
		return
	}
	v.browser.SendMessage(text)
}

// LoadURL navigates the main frame. An in-flight navigation is superseded
// without surfacing an error.
func (v *WebView) LoadURL(url string) {
	if v.gone() {
		return
	}
	v.browser.Navigate(url)
}

// Resize changes the view rect. Subsequent frames use the new dimensions.
func (v *WebView) Resize(width, height int) {
	if v.gone() {
		return
	}
	v.browser.Resize(width, height)
}

// SetRequestFilter installs handler as this view's resource intercept
// point, replacing any previous one. A nil handler removes it. In-flight
// requests keep the handler they started with.
func (v *WebView) SetRequestFilter(handler RequestHandler) {
	if v.gone() {
		return
	}
	v.browser.SetRequestFilter(newRequestSource(handler))
}

// SetDevToolsOpenState opens or closes the view's inspector endpoint.
func (v *WebView) SetDevToolsOpenState(open bool) {
	if v.gone() {
		return
	}
	v.browser.SetDevToolsOpen(open)
}

// DevToolsAddress returns the inspector endpoint's host:port, or "" when
// devtools are not open.
func (v *WebView) DevToolsAddress() string {
	if v.gone() {
		return ""
	}
	return v.browser.InspectorAddr()
}

// MouseClick injects a button transition at the current cursor position.
func (v *WebView) MouseClick(button MouseButton, pressed bool, modifiers EventFlags) {
	if v.gone() {
		return
	}
	v.browser.MouseClick(int(button), pressed, uint32(modifiers))
}

// MouseMove updates the tracked cursor position.
func (v *WebView) MouseMove(x, y int, modifiers EventFlags) {
	if v.gone() {
		return
	}
	v.browser.MouseMove(x, y, uint32(modifiers))
}

// MouseWheel injects a scroll at the current cursor position.
func (v *WebView) MouseWheel(deltaX, deltaY int) {
	if v.gone() {
		return
	}
	v.browser.MouseWheel(deltaX, deltaY)
}

// Keyboard injects one key event.
func (v *WebView) Keyboard(event KeyEvent) {
	if v.gone() {
		return
	}
	v.browser.Keyboard(engine.KeyEvent{
		Type:                 int(event.Type),
		Modifiers:            uint32(event.Modifiers),
		WindowsKeyCode:       event.WindowsKeyCode,
		NativeKeyCode:        event.NativeKeyCode,
		Character:            event.Character,
		UnmodifiedCharacter:  event.UnmodifiedCharacter,
		FocusOnEditableField: event.FocusOnEditableField,
	})
}

// Touch injects one touch point update.
func (v *WebView) Touch(event TouchEvent) {
	if v.gone() {
		return
	}
	v.browser.Touch(engine.TouchEvent{
		ID:            event.ID,
		X:             event.X,
		Y:             event.Y,
		RadiusX:       event.RadiusX,
		RadiusY:       event.RadiusY,
		RotationAngle: event.RotationAngle,
		Pressure:      event.Pressure,
		Phase:         int(event.Phase),
		PointerType:   int(event.PointerType),
		Modifiers:     uint32(event.Modifiers),
	})
}

// IMEComposition commits composed text.
func (v *WebView) IMEComposition(text string) {
	if v.gone() {
		return
	}
	v.browser.IMEComposition(text)
}

// IMESetComposition updates the in-progress composition at (x, y). The
// engine answers with OnIMERect for candidate window placement.
func (v *WebView) IMESetComposition(text string, x, y int) {
	if v.gone() {
		return
	}
	v.browser.IMESetComposition(text, x, y)
}

// PageChannel returns the page-side message endpoint for this view. Only
// available in single-process mode (no BrowserSubprocessPath); otherwise it
// returns nil, the endpoint living in the content subprocess.
func (v *WebView) PageChannel() *WebViewMessageChannel {
	if v.gone() {
		return nil
	}
	ctx := v.rt.engine.PageContext(v.browser.ID())
	if ctx == nil {
		return nil
	}
	return &WebViewMessageChannel{endpoint: ctx.Channel}
}

// Close requests a graceful close: WebViewStateRequestClose fires, teardown
// runs on the engine thread, and WebViewStateClose is the last event.
// Idempotent.
func (v *WebView) Close() {
	if !v.closing.CompareAndSwap(false, true) {
		return
	}
	v.browser.Close()
}

func (v *WebView) gone() bool {
	return v.closing.Load() || v.closed.Load()
}

// browserEvents adapts engine events to the public handler, maintaining the
// handle's closed flags as lifecycle states pass through.
type browserEvents struct {
	view *WebView
}

func (e *browserEvents) OnStateChange(state engine.State) {
	s := WebViewState(state)
	switch s {
	case WebViewStateRequestClose:
		e.view.closing.Store(true)
	case WebViewStateClose:
		e.view.closed.Store(true)
		e.view.rt.untrack(e.view)
	}
	e.view.handler.OnStateChange(s)
}

func (e *browserEvents) OnIMERect(rect engine.Rect) {
	e.view.handler.OnIMERect(Rect(rect))
}

func (e *browserEvents) OnFrame(buf []byte, width, height int) {
	e.view.handler.OnFrame(buf, width, height)
}

func (e *browserEvents) OnTitleChange(title string) {
	e.view.handler.OnTitleChange(title)
}

func (e *browserEvents) OnFullscreenChange(fullscreen bool) {
	e.view.handler.OnFullscreenChange(fullscreen)
}

func (e *browserEvents) OnMessage(message string) {
	e.view.handler.OnMessage(message)
}
