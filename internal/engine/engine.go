package engine

import (
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mycrl/wew-go/internal/content"
)

// SchemeBinding routes every request for a registered custom scheme (and
// optional domain) to a handler source.
type SchemeBinding struct {
	Name   string
	Domain string
	Source RequestSource
}

// Settings is the process-wide engine configuration.
type Settings struct {
	CacheDir       string
	SubprocessPath string
	Windowless     bool
	Scheme         *SchemeBinding
	FetchTimeout   time.Duration
	MaxBodyBytes   int64
}

// Engine owns the loop, the stream pump, the default network pipeline, and
// the content link shared by every browser.
type Engine struct {
	loop     *Loop
	pump     *streamPump
	loader   *loader
	link     contentLink
	log      *zap.Logger
	settings Settings

	mu       sync.Mutex
	browsers map[string]*Browser
	closed   bool
}

// New builds an engine. When a subprocess path is configured the content
// process is launched immediately; otherwise content contexts run
// in-process.
func New(settings Settings, log *zap.Logger, schedulePump func(delayMS int64)) (*Engine, error) {
	if log == nil {
		log = zap.NewNop()
	}
	if settings.MaxBodyBytes <= 0 {
		settings.MaxBodyBytes = defaultMaxBodyBytes
	}

	e := &Engine{
		loop:     NewLoop(schedulePump),
		pump:     newStreamPump(),
		loader:   newLoader(settings.FetchTimeout, settings.MaxBodyBytes),
		log:      log,
		settings: settings,
		browsers: make(map[string]*Browser),
	}

	if settings.SubprocessPath != "" {
		link, err := newSubprocLink(settings.SubprocessPath, e, log)
		if err != nil {
			e.pump.close()
			return nil, fmt.Errorf("starting content process: %w", err)
		}
		e.link = link
	} else {
		e.link = newInprocLink(e)
	}
	return e, nil
}

// Loop exposes the message loop for the runtime layer to drive.
func (e *Engine) Loop() *Loop { return e.loop }

// CreateBrowser registers a view and schedules its surface creation and
// initial navigation on the engine thread.
func (e *Engine) CreateBrowser(opts BrowserOptions, events BrowserEvents) (*Browser, error) {
	if opts.Width <= 0 || opts.Height <= 0 {
		return nil, fmt.Errorf("view size %dx%d is not positive", opts.Width, opts.Height)
	}
	if opts.FrameRate <= 0 {
		opts.FrameRate = 30
	}

	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return nil, fmt.Errorf("engine is shut down")
	}
	id := uuid.NewString()
	b := &Browser{
		id:     id,
		engine: e,
		loop:   e.loop,
		events: events,
		opts:   opts,
		log:    e.log.With(zap.String("view", id)),
		width:  opts.Width,
		height: opts.Height,
		filter: opts.Filter,
	}
	e.browsers[b.id] = b
	e.mu.Unlock()

	e.loop.Post(b.start)
	return b, nil
}

func (e *Engine) browser(viewID string) *Browser {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.browsers[viewID]
}

func (e *Engine) remove(viewID string) {
	e.mu.Lock()
	delete(e.browsers, viewID)
	e.mu.Unlock()
}

// PageContext returns the in-process content context for a view, or nil
// when content runs in a subprocess.
func (e *Engine) PageContext(viewID string) *content.Context {
	if l, ok := e.link.(*inprocLink); ok {
		return l.context(viewID)
	}
	return nil
}

// contentSend implements contentDispatch: content-side payloads hop onto
// the engine thread before reaching the view's handler.
func (e *Engine) contentSend(viewID, text string) {
	if b := e.browser(viewID); b != nil {
		e.loop.Post(func() { b.handleContentSend(text) })
	}
}

func (e *Engine) contentControl(viewID, kind, payload string) {
	if b := e.browser(viewID); b != nil {
		e.loop.Post(func() { b.handleContentControl(kind, payload) })
	}
}

// resolve runs a request through the intercept chain: custom scheme, then
// the view's filter, then the default network pipeline. Streaming happens
// on the shared pump; the outcome is posted back to the engine thread.
func (e *Engine) resolve(b *Browser, seq uint64, req *ResourceRequest) {
	var handler ResourceHandler
	if e.settings.Scheme != nil && e.schemeMatches(req.URL) {
		handler = e.settings.Scheme.Source.OnRequest(req)
	}
	if handler == nil && b.filter != nil {
		handler = b.filter.OnRequest(req)
	}

	finish := func(res *loadResult, err error) {
		e.loop.Post(func() { b.finishNavigation(seq, req.URL, res, err) })
	}

	if handler != nil {
		stream := &resourceStream{handler: handler}
		b.active = stream
		maxBody := e.settings.MaxBodyBytes
		queued := e.pump.do(func() {
			res, err := stream.run(0, maxBody)
			if err == errNotHandled {
				// Open declined: the default pipeline proceeds.
				res, err = e.loader.fetch(req.URL, req.Referrer)
			}
			finish(res, err)
		})
		if !queued {
			finish(nil, errStreamAborted)
		}
		return
	}

	queued := e.pump.do(func() {
		res, err := e.loader.fetch(req.URL, req.Referrer)
		finish(res, err)
	})
	if !queued {
		finish(nil, errStreamAborted)
	}
}

func (e *Engine) schemeMatches(rawURL string) bool {
	s := e.settings.Scheme
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	if !strings.EqualFold(u.Scheme, s.Name) {
		return false
	}
	return s.Domain == "" || strings.EqualFold(u.Host, s.Domain)
}

// Shutdown closes every live browser gracefully, drains the loop, and stops
// the pump and content link. Idempotent.
func (e *Engine) Shutdown() {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return
	}
	e.closed = true
	browsers := make([]*Browser, 0, len(e.browsers))
	for _, b := range e.browsers {
		browsers = append(browsers, b)
	}
	e.mu.Unlock()

	for _, b := range browsers {
		b.Close()
	}
	e.loop.Shutdown()
	e.pump.close()
	e.link.shutdown()
}
