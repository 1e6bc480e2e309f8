package engine

// State is an observable view lifecycle state. Values are part of the
// bridge ABI and match the embedding layer's enumeration.
type State int

const (
	StateBeforeLoad State = iota + 1
	StateLoaded
	StateLoadError
	StateRequestClose
	StateClose
)

func (s State) String() string {
	switch s {
	case StateBeforeLoad:
		return "before-load"
	case StateLoaded:
		return "loaded"
	case StateLoadError:
		return "load-error"
	case StateRequestClose:
		return "request-close"
	case StateClose:
		return "close"
	}
	return "unknown"
}

// Rect is a view-relative rectangle in device-independent pixels.
type Rect struct {
	X      int
	Y      int
	Width  int
	Height int
}

// ResourceRequest is a read-only snapshot of an intercepted request.
type ResourceRequest struct {
	URL      string
	Method   string
	Referrer string
}

// ResourceResponse is the response descriptor a handler fills in before
// streaming begins. ContentLength -1 means unbounded/streamed.
type ResourceResponse struct {
	StatusCode    int
	MimeType      string
	ContentLength int64
}

// ResourceHandler supplies a synthetic response for one intercepted request.
//
// Open reports whether the handler takes the request at all; on false the
// default network pipeline proceeds and no further calls are made except
// Destroy. Skip and Read return ok=false to signal stream failure. A Read of
// (0, true) signals clean end-of-stream. Cancel may arrive at any point
// after Open; Destroy arrives exactly once, last.
//
// Skip serves consumers that start mid-resource. Main-frame navigation
// always reads from offset zero, so handlers only see Skip from offset
// consumers such as seekable media or range-resumed transfers.
//
// Steps are sequenced on a shared processing goroutine, never one thread per
// request: handler state needs no cross-request synchronization but must not
// assume a dedicated thread.
type ResourceHandler interface {
	Open() bool
	GetResponse(response *ResourceResponse)
	Skip(n int64) (skipped int64, ok bool)
	Read(p []byte) (n int, ok bool)
	Cancel()
	Destroy()
}

// RequestSource creates a handler per intercepted request. Returning nil
// lets the request fall through to the next intercept point.
type RequestSource interface {
	OnRequest(request *ResourceRequest) ResourceHandler
}

// BrowserEvents receives a browser's observable side effects. All methods
// are invoked on the engine thread.
type BrowserEvents interface {
	OnStateChange(state State)
	OnIMERect(rect Rect)
	OnFrame(buf []byte, width, height int)
	OnTitleChange(title string)
	OnFullscreenChange(fullscreen bool)
	OnMessage(message string)
}
