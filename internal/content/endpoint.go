// Package content implements the content-execution side of the bridge: the
// channel endpoint visible to page-side code and the minimal subprocess loop.
package content

import "sync"

// Endpoint is the per-context message channel primitive. Send pushes a
// payload toward the orchestrating process; Recv registers the single inbound
// callback. It mirrors the render-process WebViewMessageChannel object.
type Endpoint struct {
	mu   sync.Mutex
	recv func(string)
	gen  uint64
	out  func(string)

	inbox    chan inboundPayload
	stopOnce sync.Once
	stop     chan struct{}
}

type inboundPayload struct {
	text string
	gen  uint64
}

// NewEndpoint creates an endpoint whose Send delivers through out. Inbound
// payloads are dispatched FIFO on the endpoint's own goroutine.
func NewEndpoint(out func(string)) *Endpoint {
	e := &Endpoint{
		out:   out,
		inbox: make(chan inboundPayload, 256),
		stop:  make(chan struct{}),
	}
	go e.dispatch()
	return e
}

// Send pushes one payload to the orchestrating process. It never blocks on
// the receiving direction.
func (e *Endpoint) Send(text string) {
	e.mu.Lock()
	out := e.out
	e.mu.Unlock()
	if out != nil {
		out(text)
	}
}

// Recv registers the inbound callback, replacing any prior registration.
// A replaced callback never fires again, even for payloads already queued.
func (e *Endpoint) Recv(callback func(string)) {
	e.mu.Lock()
	e.recv = callback
	e.gen++
	e.mu.Unlock()
}

// Deliver queues an inbound payload. Payloads arriving before any Recv
// registration are dropped.
func (e *Endpoint) Deliver(text string) {
	e.mu.Lock()
	if e.recv == nil {
		e.mu.Unlock()
		return
	}
	gen := e.gen
	e.mu.Unlock()

	select {
	case e.inbox <- inboundPayload{text: text, gen: gen}:
	case <-e.stop:
	}
}

// Close stops the dispatch goroutine. Queued payloads are discarded.
func (e *Endpoint) Close() {
	e.stopOnce.Do(func() { close(e.stop) })
}

func (e *Endpoint) dispatch() {
	for {
		select {
		case p := <-e.inbox:
			e.mu.Lock()
			cb := e.recv
			gen := e.gen
			e.mu.Unlock()
			// A payload queued for an older registration must not reach
			// the newer callback.
			if cb != nil && gen == p.gen {
				cb(p.text)
			}
		case <-e.stop:
			return
		}
	}
}
