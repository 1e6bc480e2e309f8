package engine

import (
	"fmt"
	"io"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/bytedance/sonic"

	"github.com/mycrl/wew-go/internal/devtools"
)

// recorder collects a browser's observable events for assertions.
type recorder struct {
	mu         sync.Mutex
	states     []State
	titles     []string
	messages   []string
	fullscreen []bool
	imeRects   []Rect
	frames     []Rect
}

func (r *recorder) OnStateChange(state State) {
	r.mu.Lock()
	r.states = append(r.states, state)
	r.mu.Unlock()
}

func (r *recorder) OnIMERect(rect Rect) {
	r.mu.Lock()
	r.imeRects = append(r.imeRects, rect)
	r.mu.Unlock()
}

func (r *recorder) OnFrame(buf []byte, width, height int) {
	r.mu.Lock()
	r.frames = append(r.frames, Rect{Width: width, Height: height})
	r.mu.Unlock()
}

func (r *recorder) OnTitleChange(title string) {
	r.mu.Lock()
	r.titles = append(r.titles, title)
	r.mu.Unlock()
}

func (r *recorder) OnFullscreenChange(fullscreen bool) {
	r.mu.Lock()
	r.fullscreen = append(r.fullscreen, fullscreen)
	r.mu.Unlock()
}

func (r *recorder) OnMessage(message string) {
	r.mu.Lock()
	r.messages = append(r.messages, message)
	r.mu.Unlock()
}

func (r *recorder) stateSeq() []State {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]State, len(r.states))
	copy(out, r.states)
	return out
}

func (r *recorder) hasState(s State) bool {
	for _, st := range r.stateSeq() {
		if st == s {
			return true
		}
	}
	return false
}

func (r *recorder) countState(s State) int {
	n := 0
	for _, st := range r.stateSeq() {
		if st == s {
			n++
		}
	}
	return n
}

type sourceFunc func(request *ResourceRequest) ResourceHandler

func (f sourceFunc) OnRequest(request *ResourceRequest) ResourceHandler { return f(request) }

// pageSource serves a small per-URL text document for every request.
func pageSource() RequestSource {
	return sourceFunc(func(req *ResourceRequest) ResourceHandler {
		body := []byte("page at " + req.URL)
		return &scriptedHandler{
			resp: ResourceResponse{StatusCode: 200, MimeType: "text/plain", ContentLength: int64(len(body))},
			body: body,
		}
	})
}

func newTestEngine(t *testing.T, settings Settings) *Engine {
	t.Helper()
	settings.Windowless = true
	e, err := New(settings, nil, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(e.Shutdown)
	return e
}

// drive pumps the loop until cond holds or the deadline passes.
func drive(t *testing.T, e *Engine, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		e.Loop().Poll()
		if cond() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatal("loop condition not reached before deadline")
}

func newTestBrowser(t *testing.T, e *Engine, opts BrowserOptions, rec *recorder) *Browser {
	t.Helper()
	if opts.URL == "" {
		opts.URL = "app://start/"
	}
	if opts.Width == 0 {
		opts.Width = 800
		opts.Height = 600
	}
	if opts.Filter == nil {
		opts.Filter = pageSource()
	}
	b, err := e.CreateBrowser(opts, rec)
	if err != nil {
		t.Fatalf("CreateBrowser: %v", err)
	}
	return b
}

func TestBrowserLoadStates(t *testing.T) {
	e := newTestEngine(t, Settings{})
	rec := &recorder{}
	newTestBrowser(t, e, BrowserOptions{}, rec)

	drive(t, e, func() bool { return rec.hasState(StateLoaded) })

	got := rec.stateSeq()
	want := []State{StateBeforeLoad, StateLoaded}
	if len(got) != len(want) {
		t.Fatalf("states = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("states[%d] = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestBrowserLoadErrorOnStreamFailure(t *testing.T) {
	e := newTestEngine(t, Settings{})
	rec := &recorder{}
	newTestBrowser(t, e, BrowserOptions{
		Filter: sourceFunc(func(*ResourceRequest) ResourceHandler {
			return &scriptedHandler{
				resp:      ResourceResponse{StatusCode: 200, MimeType: "text/plain", ContentLength: -1},
				body:      []byte("truncated"),
				failAfter: 1,
			}
		}),
	}, rec)

	drive(t, e, func() bool { return rec.hasState(StateLoadError) })

	if rec.hasState(StateLoaded) {
		t.Error("failed load also reported Loaded")
	}
}

func TestBrowserSupersededNavigationIsSilent(t *testing.T) {
	e := newTestEngine(t, Settings{})
	rec := &recorder{}
	b := newTestBrowser(t, e, BrowserOptions{}, rec)

	drive(t, e, func() bool { return rec.hasState(StateLoaded) })

	b.Navigate("app://first/")
	b.Navigate("app://second/")
	drive(t, e, func() bool { return rec.countState(StateLoaded) == 2 })

	if rec.hasState(StateLoadError) {
		t.Errorf("states = %v: superseded navigation surfaced an error", rec.stateSeq())
	}
	if got := rec.countState(StateBeforeLoad); got != 3 {
		t.Errorf("BeforeLoad count = %d, want 3", got)
	}
}

func TestBrowserCloseSequence(t *testing.T) {
	e := newTestEngine(t, Settings{})
	rec := &recorder{}
	b := newTestBrowser(t, e, BrowserOptions{}, rec)

	drive(t, e, func() bool { return rec.hasState(StateLoaded) })
	b.Close()
	drive(t, e, func() bool { return rec.hasState(StateClose) })

	got := rec.stateSeq()
	if got[len(got)-1] != StateClose {
		t.Errorf("states = %v: Close is not last", got)
	}
	if got[len(got)-2] != StateRequestClose {
		t.Errorf("states = %v: RequestClose does not precede Close", got)
	}

	// A second close and post-close operations change nothing.
	before := len(rec.stateSeq())
	b.Close()
	b.Resize(100, 100)
	b.SendMessage("late")
	e.Loop().Poll()
	e.Loop().Poll()
	if after := len(rec.stateSeq()); after != before {
		t.Errorf("post-close operations produced %d new events", after-before)
	}
}

// gatedHandler blocks its first Read until release is closed, keeping the
// stream in flight for as long as a test needs.
type gatedHandler struct {
	release chan struct{}
}

func (h *gatedHandler) Open() bool { return true }

func (h *gatedHandler) GetResponse(r *ResourceResponse) {
	r.StatusCode = 200
	r.MimeType = "text/plain"
	r.ContentLength = -1
}

func (h *gatedHandler) Skip(n int64) (int64, bool) { return n, true }

func (h *gatedHandler) Read(p []byte) (int, bool) {
	<-h.release
	p[0] = 'x'
	return 1, true
}

func (h *gatedHandler) Cancel()  {}
func (h *gatedHandler) Destroy() {}

func TestBrowserCloseDuringActiveStream(t *testing.T) {
	e := newTestEngine(t, Settings{})
	rec := &recorder{}
	release := make(chan struct{})
	var once sync.Once
	openGate := func() { once.Do(func() { close(release) }) }
	t.Cleanup(openGate)
	b := newTestBrowser(t, e, BrowserOptions{
		Filter: sourceFunc(func(*ResourceRequest) ResourceHandler {
			return &gatedHandler{release: release}
		}),
	}, rec)

	drive(t, e, func() bool { return rec.hasState(StateBeforeLoad) })
	b.Close()
	drive(t, e, func() bool { return rec.hasState(StateRequestClose) })
	openGate()
	drive(t, e, func() bool { return rec.hasState(StateClose) })

	if rec.hasState(StateLoadError) {
		t.Errorf("states = %v: cancelled stream surfaced as load error", rec.stateSeq())
	}
	if rec.hasState(StateLoaded) {
		t.Errorf("states = %v: cancelled stream reported Loaded", rec.stateSeq())
	}
}

func TestBrowserCancelledStreamNeverSurfacesError(t *testing.T) {
	e := newTestEngine(t, Settings{})
	rec := &recorder{}
	b := newTestBrowser(t, e, BrowserOptions{}, rec)

	drive(t, e, func() bool { return rec.hasState(StateLoaded) })

	// A cancelled outcome for the current sequence, outside any close.
	e.Loop().Post(func() {
		b.finishNavigation(b.navSeq, "app://next/", nil, errStreamAborted)
	})
	// The same outcome landing between the close request and teardown.
	e.Loop().Post(func() {
		b.closing = true
		b.events.OnStateChange(StateRequestClose)
		b.finishNavigation(b.navSeq, "app://late/", nil, errStreamAborted)
		b.loop.Post(b.teardown)
	})
	drive(t, e, func() bool { return rec.hasState(StateClose) })

	if rec.hasState(StateLoadError) {
		t.Errorf("states = %v: cancelled stream surfaced as load error", rec.stateSeq())
	}
	if got := rec.countState(StateLoaded); got != 1 {
		t.Errorf("Loaded count = %d, want 1", got)
	}
}

func TestBrowserInputModelTracksEvents(t *testing.T) {
	e := newTestEngine(t, Settings{})
	rec := &recorder{}
	b := newTestBrowser(t, e, BrowserOptions{}, rec)

	drive(t, e, func() bool { return rec.hasState(StateLoaded) })

	b.Keyboard(KeyEvent{Type: KeyEventRawKeyDown, WindowsKeyCode: 0x41, Modifiers: 4})
	b.Keyboard(KeyEvent{Type: KeyEventChar, Character: 'a', Modifiers: 4, FocusOnEditableField: true})
	b.Touch(TouchEvent{ID: 7, X: 10, Y: 20, Pressure: 0.5, Phase: TouchPressed, Modifiers: 4})
	b.Touch(TouchEvent{ID: 9, X: 1, Y: 2, Phase: TouchPressed, Modifiers: 4})
	b.Touch(TouchEvent{ID: 9, Phase: TouchReleased, Modifiers: 4})

	var (
		done      bool
		modifiers uint32
		editable  bool
		lastChar  rune
		keyHeld   bool
		contacts  map[int32]touchPoint
	)
	e.Loop().Post(func() {
		modifiers = b.modifiers
		editable = b.overEditable
		lastChar = b.lastChar
		_, keyHeld = b.keysDown[0x41]
		contacts = make(map[int32]touchPoint, len(b.touches))
		for id, p := range b.touches {
			contacts[id] = p
		}
		done = true
	})
	drive(t, e, func() bool { return done })

	if modifiers != 4 {
		t.Errorf("modifiers = %d, want 4", modifiers)
	}
	if !editable {
		t.Error("editable-field focus not tracked")
	}
	if lastChar != 'a' {
		t.Errorf("last char = %q, want 'a'", lastChar)
	}
	if !keyHeld {
		t.Error("key 0x41 not held after key down")
	}
	if p, ok := contacts[7]; !ok || p.x != 10 || p.y != 20 || p.pressure != 0.5 {
		t.Errorf("contact 7 = %+v, want x=10 y=20 pressure=0.5", p)
	}
	if _, ok := contacts[9]; ok {
		t.Error("released contact 9 still tracked")
	}

	b.Keyboard(KeyEvent{Type: KeyEventKeyUp, WindowsKeyCode: 0x41, Modifiers: 4})
	released := false
	stillHeld := true
	e.Loop().Post(func() {
		_, stillHeld = b.keysDown[0x41]
		released = true
	})
	drive(t, e, func() bool { return released })
	if stillHeld {
		t.Error("key 0x41 still held after key up")
	}
}

func TestBrowserMessagesHostToPageFIFO(t *testing.T) {
	e := newTestEngine(t, Settings{})
	rec := &recorder{}
	b := newTestBrowser(t, e, BrowserOptions{}, rec)

	drive(t, e, func() bool { return e.PageContext(b.ID()) != nil })
	ctx := e.PageContext(b.ID())

	var mu sync.Mutex
	var got []string
	ctx.Channel.Recv(func(text string) {
		mu.Lock()
		got = append(got, text)
		mu.Unlock()
	})

	const n = 20
	for i := 0; i < n; i++ {
		b.SendMessage(fmt.Sprintf("msg-%d", i))
	}
	drive(t, e, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(got) == n
	})

	mu.Lock()
	defer mu.Unlock()
	for i, m := range got {
		if want := fmt.Sprintf("msg-%d", i); m != want {
			t.Fatalf("got[%d] = %q, want %q", i, m, want)
		}
	}
}

func TestBrowserMessagesPageToHostFIFO(t *testing.T) {
	e := newTestEngine(t, Settings{})
	rec := &recorder{}
	b := newTestBrowser(t, e, BrowserOptions{}, rec)

	drive(t, e, func() bool { return e.PageContext(b.ID()) != nil })
	ctx := e.PageContext(b.ID())

	const n = 20
	for i := 0; i < n; i++ {
		ctx.Channel.Send(fmt.Sprintf("up-%d", i))
	}
	drive(t, e, func() bool {
		rec.mu.Lock()
		defer rec.mu.Unlock()
		return len(rec.messages) == n
	})

	rec.mu.Lock()
	defer rec.mu.Unlock()
	for i, m := range rec.messages {
		if want := fmt.Sprintf("up-%d", i); m != want {
			t.Fatalf("messages[%d] = %q, want %q", i, m, want)
		}
	}
}

func TestBrowserRecvReplacement(t *testing.T) {
	e := newTestEngine(t, Settings{})
	rec := &recorder{}
	b := newTestBrowser(t, e, BrowserOptions{}, rec)

	drive(t, e, func() bool { return e.PageContext(b.ID()) != nil })
	ctx := e.PageContext(b.ID())

	var mu sync.Mutex
	firstFired := false
	var second []string
	ctx.Channel.Recv(func(string) {
		mu.Lock()
		firstFired = true
		mu.Unlock()
	})
	ctx.Channel.Recv(func(text string) {
		mu.Lock()
		second = append(second, text)
		mu.Unlock()
	})

	b.SendMessage("for-second-only")
	drive(t, e, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(second) == 1
	})

	mu.Lock()
	defer mu.Unlock()
	if firstFired {
		t.Error("replaced callback fired")
	}
	if second[0] != "for-second-only" {
		t.Errorf("second callback got %q", second[0])
	}
}

func TestBrowserFullscreenRoundTrip(t *testing.T) {
	e := newTestEngine(t, Settings{})
	rec := &recorder{}
	b := newTestBrowser(t, e, BrowserOptions{}, rec)

	drive(t, e, func() bool { return e.PageContext(b.ID()) != nil })
	ctx := e.PageContext(b.ID())

	ctx.RequestFullscreen(true)
	drive(t, e, func() bool {
		rec.mu.Lock()
		defer rec.mu.Unlock()
		return len(rec.fullscreen) == 1
	})
	ctx.RequestFullscreen(false)
	drive(t, e, func() bool {
		rec.mu.Lock()
		defer rec.mu.Unlock()
		return len(rec.fullscreen) == 2
	})

	rec.mu.Lock()
	defer rec.mu.Unlock()
	if !rec.fullscreen[0] || rec.fullscreen[1] {
		t.Errorf("fullscreen transitions = %v, want [true false]", rec.fullscreen)
	}
}

func TestBrowserPopupRedirectsMainFrame(t *testing.T) {
	e := newTestEngine(t, Settings{})
	rec := &recorder{}
	b := newTestBrowser(t, e, BrowserOptions{RedirectPopups: true}, rec)

	drive(t, e, func() bool { return rec.hasState(StateLoaded) })
	ctx := e.PageContext(b.ID())

	ctx.OpenPopup("app://popup/")
	drive(t, e, func() bool { return rec.countState(StateLoaded) == 2 })

	if rec.hasState(StateLoadError) {
		t.Errorf("states = %v after popup redirect", rec.stateSeq())
	}
}

func TestBrowserPopupBlocked(t *testing.T) {
	e := newTestEngine(t, Settings{})
	rec := &recorder{}
	b := newTestBrowser(t, e, BrowserOptions{RedirectPopups: false}, rec)

	drive(t, e, func() bool { return rec.hasState(StateLoaded) })
	ctx := e.PageContext(b.ID())

	ctx.OpenPopup("app://popup/")
	for i := 0; i < 20; i++ {
		e.Loop().Poll()
		time.Sleep(time.Millisecond)
	}

	if got := rec.countState(StateBeforeLoad); got != 1 {
		t.Errorf("BeforeLoad count = %d after blocked popup, want 1", got)
	}
}

func TestBrowserResizeChangesFrameSize(t *testing.T) {
	e := newTestEngine(t, Settings{})
	rec := &recorder{}
	b := newTestBrowser(t, e, BrowserOptions{}, rec)

	drive(t, e, func() bool { return rec.hasState(StateLoaded) })

	b.Resize(1024, 768)
	drive(t, e, func() bool {
		rec.mu.Lock()
		defer rec.mu.Unlock()
		for _, f := range rec.frames {
			if f.Width == 1024 && f.Height == 768 {
				return true
			}
		}
		return false
	})
}

func TestBrowserIMECompositionRect(t *testing.T) {
	e := newTestEngine(t, Settings{})
	rec := &recorder{}
	b := newTestBrowser(t, e, BrowserOptions{DefaultFontSize: 14}, rec)

	drive(t, e, func() bool { return rec.hasState(StateLoaded) })

	b.IMESetComposition("wo", 40, 60)
	drive(t, e, func() bool {
		rec.mu.Lock()
		defer rec.mu.Unlock()
		return len(rec.imeRects) == 1
	})

	rec.mu.Lock()
	defer rec.mu.Unlock()
	r := rec.imeRects[0]
	if r.X != 40 || r.Y != 60 || r.Height != 14 {
		t.Errorf("ime rect = %+v, want x=40 y=60 h=14", r)
	}
}

func TestContextMenuPolicy(t *testing.T) {
	tests := []struct {
		name     string
		always   bool
		dragged  bool
		editable bool
		want     bool
	}{
		{"plain content suppressed", false, false, false, false},
		{"selection allows", false, true, false, true},
		{"editable allows", false, false, true, true},
		{"opt-out always allows", true, false, false, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := &Browser{opts: BrowserOptions{AlwaysShowContextMenu: tt.always}}
			b.dragged = tt.dragged
			b.overEditable = tt.editable
			if got := b.contextMenuAllowed(); got != tt.want {
				t.Errorf("contextMenuAllowed() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestEngineSchemeBinding(t *testing.T) {
	e := newTestEngine(t, Settings{
		Scheme: &SchemeBinding{Name: "app", Domain: "local", Source: pageSource()},
	})
	rec := &recorder{}
	b, err := e.CreateBrowser(BrowserOptions{URL: "app://local/index", Width: 320, Height: 200}, rec)
	if err != nil {
		t.Fatalf("CreateBrowser: %v", err)
	}
	_ = b

	drive(t, e, func() bool { return rec.hasState(StateLoaded) })
	if rec.hasState(StateLoadError) {
		t.Errorf("states = %v", rec.stateSeq())
	}
}

func TestEngineRejectsBadViewSize(t *testing.T) {
	e := newTestEngine(t, Settings{})
	if _, err := e.CreateBrowser(BrowserOptions{URL: "app://x/", Width: 0, Height: 100}, &recorder{}); err == nil {
		t.Error("CreateBrowser accepted zero width")
	}
}

func TestDevToolsEndpoint(t *testing.T) {
	e := newTestEngine(t, Settings{})
	rec := &recorder{}
	b := newTestBrowser(t, e, BrowserOptions{}, rec)

	drive(t, e, func() bool { return rec.hasState(StateLoaded) })
	b.SetDevToolsOpen(true)

	var mu sync.Mutex
	var addr string
	go func() {
		a := b.InspectorAddr()
		mu.Lock()
		addr = a
		mu.Unlock()
	}()
	drive(t, e, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return addr != ""
	})

	mu.Lock()
	target := "http://" + addr + "/json"
	mu.Unlock()

	var body []byte
	done := false
	go func() {
		resp, err := http.Get(target)
		if err == nil {
			body, _ = io.ReadAll(resp.Body)
			resp.Body.Close()
		}
		mu.Lock()
		done = true
		mu.Unlock()
	}()
	drive(t, e, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return done
	})

	var snap devtools.Snapshot
	if err := sonic.Unmarshal(body, &snap); err != nil {
		t.Fatalf("unmarshal inspector snapshot: %v (%q)", err, body)
	}
	if snap.ViewID != b.ID() {
		t.Errorf("snapshot view id = %q, want %q", snap.ViewID, b.ID())
	}
	if snap.Width != 800 || snap.Height != 600 {
		t.Errorf("snapshot size = %dx%d, want 800x600", snap.Width, snap.Height)
	}

	b.SetDevToolsOpen(false)
	var closedAddr string
	closedDone := false
	go func() {
		a := b.InspectorAddr()
		mu.Lock()
		closedAddr = a
		closedDone = true
		mu.Unlock()
	}()
	drive(t, e, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return closedDone
	})
	if closedAddr != "" {
		t.Errorf("inspector addr after close = %q, want empty", closedAddr)
	}
}
