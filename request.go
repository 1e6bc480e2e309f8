package wew

import "github.com/mycrl/wew-go/internal/engine"

// ResourceRequest is a read-only snapshot of one intercepted request.
type ResourceRequest struct {
	URL      string
	Method   string
	Referrer string
}

// ResourceResponse is the response descriptor a handler fills in before
// streaming begins. ContentLength -1 means unbounded: the stream ends when
// Read reports end-of-stream.
type ResourceResponse struct {
	StatusCode    int
	MimeType      string
	ContentLength int64
}

// ResourceHandler supplies a synthetic response for one intercepted
// request.
//
// Open reports whether the handler takes the request; on false the default
// pipeline proceeds and the handler only sees Destroy. Skip and Read return
// ok=false to fail the stream. Read returning (0, true) signals clean
// end-of-stream, delivered exactly once. Cancel may arrive any time after
// Open. Destroy arrives exactly once, last, however the request ended.
//
// Skip is called only on behalf of consumers that start mid-resource;
// main-frame navigation reads from offset zero. Handlers still must
// implement it, a seek or counted discard both satisfy the contract.
//
// Skip and Read for all in-flight requests are sequenced on one shared
// goroutine, so handlers need no cross-call locking but must not assume a
// dedicated thread.
type ResourceHandler interface {
	Open() bool
	GetResponse(response *ResourceResponse)
	Skip(n int64) (skipped int64, ok bool)
	Read(p []byte) (n int, ok bool)
	Cancel()
	Destroy()
}

// RequestHandler creates a handler per intercepted request. Returning nil
// passes the request to the next intercept point (ultimately the default
// network pipeline).
type RequestHandler interface {
	OnRequest(request *ResourceRequest) ResourceHandler
}

// RequestHandlerFunc adapts a function to RequestHandler.
type RequestHandlerFunc func(request *ResourceRequest) ResourceHandler

func (f RequestHandlerFunc) OnRequest(request *ResourceRequest) ResourceHandler {
	return f(request)
}

// requestSource bridges a public RequestHandler into the engine.
type requestSource struct {
	handler RequestHandler
}

func newRequestSource(handler RequestHandler) engine.RequestSource {
	if handler == nil {
		return nil
	}
	return &requestSource{handler: handler}
}

func (s *requestSource) OnRequest(req *engine.ResourceRequest) engine.ResourceHandler {
	h := s.handler.OnRequest(&ResourceRequest{
		URL:      req.URL,
		Method:   req.Method,
		Referrer: req.Referrer,
	})
	if h == nil {
		return nil
	}
	return &resourceHandlerShim{inner: h}
}

type resourceHandlerShim struct {
	inner ResourceHandler
}

func (s *resourceHandlerShim) Open() bool { return s.inner.Open() }

func (s *resourceHandlerShim) GetResponse(response *engine.ResourceResponse) {
	pub := ResourceResponse{
		StatusCode:    response.StatusCode,
		MimeType:      response.MimeType,
		ContentLength: response.ContentLength,
	}
	s.inner.GetResponse(&pub)
	response.StatusCode = pub.StatusCode
	response.MimeType = pub.MimeType
	response.ContentLength = pub.ContentLength
}

func (s *resourceHandlerShim) Skip(n int64) (int64, bool) { return s.inner.Skip(n) }
func (s *resourceHandlerShim) Read(p []byte) (int, bool)  { return s.inner.Read(p) }
func (s *resourceHandlerShim) Cancel()                    { s.inner.Cancel() }
func (s *resourceHandlerShim) Destroy()                   { s.inner.Destroy() }

// BytesResourceHandler serves a fixed in-memory body. The zero StatusCode
// is sent as 200.
type BytesResourceHandler struct {
	Status int
	Mime   string
	Body   []byte

	off int64
	eof bool
}

// NewBytesResourceHandler builds a handler serving body with the given mime
// type and status 200.
func NewBytesResourceHandler(mime string, body []byte) *BytesResourceHandler {
	return &BytesResourceHandler{Mime: mime, Body: body}
}

func (h *BytesResourceHandler) Open() bool { return true }

func (h *BytesResourceHandler) GetResponse(response *ResourceResponse) {
	response.StatusCode = h.Status
	if response.StatusCode == 0 {
		response.StatusCode = 200
	}
	response.MimeType = h.Mime
	response.ContentLength = int64(len(h.Body))
}

func (h *BytesResourceHandler) Skip(n int64) (int64, bool) {
	remain := int64(len(h.Body)) - h.off
	if n > remain {
		n = remain
	}
	h.off += n
	return n, true
}

func (h *BytesResourceHandler) Read(p []byte) (int, bool) {
	if h.off >= int64(len(h.Body)) {
		if h.eof {
			return 0, false
		}
		h.eof = true
		return 0, true
	}
	n := copy(p, h.Body[h.off:])
	h.off += int64(n)
	return n, true
}

func (h *BytesResourceHandler) Cancel()  {}
func (h *BytesResourceHandler) Destroy() {}
