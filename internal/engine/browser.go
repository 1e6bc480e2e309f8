package engine

import (
	"time"

	"go.uber.org/zap"

	"github.com/mycrl/wew-go/internal/devtools"
	"github.com/mycrl/wew-go/internal/ipc"
)

// BrowserOptions is the per-view configuration copied at creation time.
type BrowserOptions struct {
	URL                   string
	Width                 int
	Height                int
	DeviceScaleFactor     float32
	FrameRate             int
	Javascript            bool
	LocalStorage          bool
	DefaultFontSize       int
	DefaultFixedFontSize  int
	RedirectPopups        bool
	AlwaysShowContextMenu bool
	Filter                RequestSource
}

// Browser is the engine side of one view. All mutable state is confined to
// the engine thread: every entry point posts to the loop and re-checks the
// closed flags there, so callbacks racing a close resolve safely.
type Browser struct {
	id     string
	engine *Engine
	loop   *Loop
	events BrowserEvents
	opts   BrowserOptions
	log    *zap.Logger

	// Engine-thread state.
	url        string
	title      string
	width      int
	height     int
	fullscreen bool
	navSeq     uint64
	active     *resourceStream
	filter     RequestSource
	closing    bool
	closed     bool

	// Input model.
	mouseX, mouseY int
	modifiers      uint32
	leftDown       bool
	dragged        bool
	overEditable   bool
	lastChar       rune
	keysDown       map[int]struct{}
	touches        map[int32]touchPoint

	// Paint pacing.
	loaded       bool
	lastFrame    time.Time
	framePending bool

	inspector *devtools.Server
}

func (b *Browser) start() {
	if b.closed {
		return
	}
	// The native surface now exists; size events and paint delivery are
	// legal from this point.
	b.engine.link.attach(b.id)
	b.publishState()
	b.navigate(b.opts.URL)
}

// ID returns the view identifier used across the process boundary.
func (b *Browser) ID() string { return b.id }

// Navigate loads url in the main frame, superseding any in-flight
// navigation.
func (b *Browser) Navigate(url string) {
	b.loop.Post(func() { b.navigate(url) })
}

func (b *Browser) navigate(url string) {
	if b.closed || b.closing {
		return
	}

	b.navSeq++
	seq := b.navSeq
	if b.active != nil {
		// The superseded request is cancelled; its LoadError is the
		// routine aborted sub-case and is never surfaced.
		b.active.cancel()
		b.active = nil
	}

	b.events.OnStateChange(StateBeforeLoad)

	req := &ResourceRequest{URL: url, Method: "GET", Referrer: b.url}
	b.engine.resolve(b, seq, req)
}

// finishNavigation runs on the engine thread with the outcome of a resolved
// request.
func (b *Browser) finishNavigation(seq uint64, url string, res *loadResult, err error) {
	if b.closed || b.closing {
		// A stream cancelled by Close can resolve between the close request
		// and teardown; its outcome is not an event.
		return
	}
	if seq != b.navSeq {
		// Superseded by a newer navigation: the aborted case, suppressed.
		return
	}
	b.active = nil

	if err != nil {
		if err == errStreamAborted {
			// Cancellation is routine, never a load error.
			return
		}
		b.log.Debug("navigation failed", zap.String("url", url), zap.Error(err))
		b.events.OnStateChange(StateLoadError)
		b.publishState()
		return
	}

	b.url = url
	b.loaded = true
	b.engine.link.navigate(b.id)
	b.events.OnStateChange(StateLoaded)

	if res.Title != b.title {
		b.title = res.Title
		b.events.OnTitleChange(b.title)
	}
	b.publishState()
	b.schedulePaint()
}

// SendMessage delivers text to the view's content-side channel. Silently
// dropped once the view is closing.
func (b *Browser) SendMessage(text string) {
	b.loop.Post(func() {
		if b.closed || b.closing {
			return
		}
		b.engine.link.send(b.id, text)
	})
}

// handleContentSend runs on the engine thread with a content-side payload.
func (b *Browser) handleContentSend(text string) {
	if b.closed || b.closing {
		return
	}
	b.events.OnMessage(text)
}

// handleContentControl runs on the engine thread with a content-side
// fullscreen or popup request.
func (b *Browser) handleContentControl(kind, payload string) {
	if b.closed || b.closing {
		return
	}
	switch kind {
	case ipc.KindFullscreen:
		on := payload == "true"
		if on != b.fullscreen {
			b.fullscreen = on
			b.events.OnFullscreenChange(on)
			b.publishState()
		}
	case ipc.KindPopup:
		if b.opts.RedirectPopups {
			// Popups land in the existing main frame instead of a second
			// top-level view.
			b.navigate(payload)
		} else {
			b.log.Debug("popup blocked", zap.String("url", payload))
		}
	}
}

// Resize changes the view rectangle and repaints.
func (b *Browser) Resize(width, height int) {
	b.loop.Post(func() {
		if b.closed || b.closing {
			return
		}
		if width <= 0 || height <= 0 {
			return
		}
		b.width = width
		b.height = height
		b.publishState()
		if b.loaded {
			b.schedulePaint()
		}
	})
}

// SetRequestFilter installs the per-view interception source for subsequent
// requests.
func (b *Browser) SetRequestFilter(filter RequestSource) {
	b.loop.Post(func() {
		if b.closed {
			return
		}
		b.filter = filter
	})
}

// SetDevToolsOpen starts or stops the view's inspector endpoint.
func (b *Browser) SetDevToolsOpen(open bool) {
	b.loop.Post(func() {
		if b.closed || b.closing {
			return
		}
		if open && b.inspector == nil {
			srv, err := devtools.Start(b.log, b.snapshot)
			if err != nil {
				b.log.Warn("starting devtools endpoint", zap.Error(err))
				return
			}
			b.inspector = srv
			b.log.Info("devtools open", zap.String("addr", srv.Addr()))
		} else if !open && b.inspector != nil {
			b.inspector.Close()
			b.inspector = nil
		}
	})
}

// InspectorAddr returns the devtools listen address, or "" when closed.
// Blocks briefly on the engine thread.
func (b *Browser) InspectorAddr() string {
	addr := make(chan string, 1)
	b.loop.Post(func() {
		if b.inspector != nil {
			addr <- b.inspector.Addr()
		} else {
			addr <- ""
		}
	})
	select {
	case a := <-addr:
		return a
	case <-time.After(time.Second):
		return ""
	}
}

// Close runs the close sequence: RequestClose now, surface teardown in a
// follow-up task. Events remain legal between the two.
func (b *Browser) Close() {
	b.loop.Post(func() {
		if b.closed || b.closing {
			return
		}
		b.closing = true
		b.events.OnStateChange(StateRequestClose)
		if b.active != nil {
			b.active.cancel()
			b.active = nil
		}
		b.loop.Post(b.teardown)
	})
}

func (b *Browser) teardown() {
	if b.closed {
		return
	}
	b.closed = true
	if b.inspector != nil {
		b.inspector.Close()
		b.inspector = nil
	}
	b.engine.link.closeView(b.id)
	b.engine.remove(b.id)
	b.events.OnStateChange(StateClose)
}

// schedulePaint delivers a frame, pacing delivery to the configured
// windowless frame rate.
func (b *Browser) schedulePaint() {
	if !b.engine.settings.Windowless {
		return
	}

	interval := time.Second / time.Duration(b.opts.FrameRate)
	since := time.Since(b.lastFrame)
	if since >= interval {
		b.paint()
		return
	}
	if b.framePending {
		return
	}
	b.framePending = true
	b.loop.PostDelayed(func() {
		b.framePending = false
		if b.closed || b.closing {
			return
		}
		b.paint()
	}, interval-since)
}

func (b *Browser) paint() {
	buf := renderFrame(b.url, b.title, b.width, b.height)
	if buf == nil {
		return
	}
	b.lastFrame = time.Now()
	b.events.OnFrame(buf, b.width, b.height)
}

// snapshot is safe from any goroutine; it reads the engine-thread state via
// a posted task with a bounded wait so a stalled loop cannot hang the
// inspector.
func (b *Browser) snapshot() devtools.Snapshot {
	out := make(chan devtools.Snapshot, 1)
	b.loop.Post(func() {
		out <- devtools.Snapshot{
			ViewID:     b.id,
			URL:        b.url,
			Title:      b.title,
			Width:      b.width,
			Height:     b.height,
			Fullscreen: b.fullscreen,
			Closing:    b.closing,
		}
	})
	select {
	case s := <-out:
		return s
	case <-time.After(time.Second):
		return devtools.Snapshot{ViewID: b.id}
	}
}

func (b *Browser) publishState() {
	if b.inspector != nil {
		b.inspector.Publish(devtools.Snapshot{
			ViewID:     b.id,
			URL:        b.url,
			Title:      b.title,
			Width:      b.width,
			Height:     b.height,
			Fullscreen: b.fullscreen,
			Closing:    b.closing,
		})
	}
}
