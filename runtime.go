package wew

import (
	"fmt"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/mycrl/wew-go/internal/engine"
)

// runtimeLive enforces the one-runtime-per-process rule. Close releases it
// after the engine has fully shut down.
var runtimeLive atomic.Bool

// Runtime is the process-wide bridge to the engine. At most one live
// Runtime exists per process.
type Runtime struct {
	settings RuntimeSettings
	handler  RuntimeHandler
	engine   *engine.Engine
	log      *zap.Logger

	mu     sync.Mutex
	views  map[*WebView]struct{}
	closed bool
}

// CreateRuntime initializes the engine. It fails with
// ErrRuntimeAlreadyExists when a live runtime exists, and with
// ErrInvalidSettings when the settings are inconsistent. handler may be nil
// when the host needs no runtime events.
//
// Under MultiThreadedMessageLoop the loop goroutine starts immediately and
// OnContextInitialized fires on it. Under the other regimes it fires from
// the first RunMessageLoop or PollMessageLoop call.
func CreateRuntime(settings RuntimeSettings, handler RuntimeHandler) (*Runtime, error) {
	if err := settings.validate(); err != nil {
		return nil, err
	}
	if !runtimeLive.CompareAndSwap(false, true) {
		return nil, ErrRuntimeAlreadyExists
	}

	log := settings.Logger
	if log == nil {
		log = zap.NewNop()
	}

	var schedulePump func(delayMS int64)
	if settings.ExternalMessagePump && handler != nil {
		schedulePump = handler.OnScheduleMessagePumpWork
	}

	eng, err := engine.New(engineSettings(&settings), log, schedulePump)
	if err != nil {
		runtimeLive.Store(false)
		return nil, fmt.Errorf("initializing engine: %w", err)
	}

	rt := &Runtime{
		settings: settings,
		handler:  handler,
		engine:   eng,
		log:      log,
		views:    make(map[*WebView]struct{}),
	}

	if handler != nil {
		eng.Loop().Post(handler.OnContextInitialized)
	}
	if settings.MultiThreadedMessageLoop {
		go eng.Loop().Run()
	}

	log.Info("runtime created",
		zap.Bool("multi_threaded", settings.MultiThreadedMessageLoop),
		zap.Bool("external_pump", settings.ExternalMessagePump),
		zap.Bool("windowless", settings.WindowlessRenderingEnabled))
	return rt, nil
}

func engineSettings(s *RuntimeSettings) engine.Settings {
	es := engine.Settings{
		CacheDir:       s.CacheDirPath,
		SubprocessPath: s.BrowserSubprocessPath,
		Windowless:     s.WindowlessRenderingEnabled,
		FetchTimeout:   s.FetchTimeout,
		MaxBodyBytes:   s.MaxBodyBytes,
	}
	if cs := s.CustomScheme; cs != nil {
		handler := cs.Handler
		if handler == nil {
			handler = newDirSchemeHandler(s.SchemeDirPath)
		}
		es.Scheme = &engine.SchemeBinding{
			Name:   cs.Name,
			Domain: cs.Domain,
			Source: newRequestSource(handler),
		}
	}
	return es
}

// RunMessageLoop drives the loop on the calling goroutine until
// QuitMessageLoop. It is a no-op under MultiThreadedMessageLoop and after
// Close.
func (rt *Runtime) RunMessageLoop() {
	if rt.settings.MultiThreadedMessageLoop || rt.isClosed() {
		return
	}
	rt.engine.Loop().Run()
}

// QuitMessageLoop makes RunMessageLoop return once current work is done.
func (rt *Runtime) QuitMessageLoop() {
	rt.engine.Loop().Quit()
}

// PollMessageLoop performs one batch of pending loop work without blocking.
// Meant for the external pump regime, paced by OnScheduleMessagePumpWork.
func (rt *Runtime) PollMessageLoop() {
	if rt.settings.MultiThreadedMessageLoop || rt.isClosed() {
		return
	}
	rt.engine.Loop().Poll()
}

// CreateWebView creates a view loading url. The handle is returned
// synchronously; surface creation and the initial navigation happen on the
// engine thread, with OnStateChange(WebViewStateBeforeLoad) as the first
// observable event. handler must be non-nil.
func (rt *Runtime) CreateWebView(url string, attr WebViewAttributes, handler WebViewHandler) (*WebView, error) {
	if handler == nil {
		return nil, fmt.Errorf("%w: nil handler", ErrCreateWebViewFailed)
	}

	rt.mu.Lock()
	if rt.closed {
		rt.mu.Unlock()
		return nil, ErrRuntimeClosed
	}
	rt.mu.Unlock()

	view := &WebView{
		rt:         rt,
		handler:    handler,
		attr:       attr,
		windowless: rt.settings.WindowlessRenderingEnabled,
	}

	browser, err := rt.engine.CreateBrowser(engine.BrowserOptions{
		URL:                   url,
		Width:                 attr.Width,
		Height:                attr.Height,
		DeviceScaleFactor:     attr.DeviceScaleFactor,
		FrameRate:             attr.WindowlessFrameRate,
		Javascript:            attr.JavascriptEnable,
		LocalStorage:          attr.LocalStorage,
		DefaultFontSize:       attr.DefaultFontSize,
		DefaultFixedFontSize:  attr.DefaultFixedFontSize,
		RedirectPopups:        attr.Popups == PopupRedirect,
		AlwaysShowContextMenu: attr.AlwaysShowContextMenu,
		Filter:                newRequestSource(attr.RequestHandler),
	}, &browserEvents{view: view})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCreateWebViewFailed, err)
	}
	view.browser = browser

	rt.mu.Lock()
	rt.views[view] = struct{}{}
	rt.mu.Unlock()
	return view, nil
}

func (rt *Runtime) untrack(view *WebView) {
	rt.mu.Lock()
	delete(rt.views, view)
	rt.mu.Unlock()
}

func (rt *Runtime) isClosed() bool {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	return rt.closed
}

// Close closes every live view, shuts the engine down, and releases the
// process singleton. Idempotent. All runtime and view operations afterwards
// are no-ops or typed errors.
func (rt *Runtime) Close() {
	rt.mu.Lock()
	if rt.closed {
		rt.mu.Unlock()
		return
	}
	rt.closed = true
	views := make([]*WebView, 0, len(rt.views))
	for v := range rt.views {
		views = append(views, v)
	}
	rt.mu.Unlock()

	for _, v := range views {
		v.Close()
	}
	rt.engine.Shutdown()
	rt.log.Info("runtime closed")
	runtimeLive.Store(false)
}
