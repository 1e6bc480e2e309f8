package content

import (
	"errors"
	"io"

	"github.com/mycrl/wew-go/internal/ipc"
)

// Context is one content-execution context bound to a single view. Page-side
// code reaches the bridge through Channel and the request methods below.
type Context struct {
	ViewID  string
	Channel *Endpoint

	control func(kind, payload string)
}

// RequestFullscreen asks the orchestrating process to toggle fullscreen for
// this view.
func (c *Context) RequestFullscreen(on bool) {
	payload := "false"
	if on {
		payload = "true"
	}
	if c.control != nil {
		c.control(ipc.KindFullscreen, payload)
	}
}

// OpenPopup asks for a new top-level view at url. Whether it opens a window,
// redirects the main frame, or is dropped is the orchestrating side's policy.
func (c *Context) OpenPopup(url string) {
	if c.control != nil {
		c.control(ipc.KindPopup, url)
	}
}

// NewContext builds a context whose channel and control requests are routed
// through the given hooks. Used by the in-process engine link; the subprocess
// loop builds its own transport-backed contexts.
func NewContext(viewID string, send func(string), control func(kind, payload string)) *Context {
	return &Context{
		ViewID:  viewID,
		Channel: NewEndpoint(send),
		control: control,
	}
}

// Loop runs the subprocess side of the transport until the orchestrating
// process closes it or the stream ends. It returns the process exit code.
//
// setup, when non-nil, runs once per view context on the loop goroutine and
// is where embedder subprocess code registers its Recv callback.
func Loop(r io.Reader, w io.Writer, setup func(*Context)) int {
	t := ipc.NewTransport(r, w)

	contexts := make(map[string]*Context)
	lookup := func(viewID string) *Context {
		if c, ok := contexts[viewID]; ok {
			return c
		}
		c := NewContext(viewID,
			func(text string) {
				_ = t.Write(ipc.Frame{Kind: ipc.KindSend, ViewID: viewID, Payload: text})
			},
			func(kind, payload string) {
				_ = t.Write(ipc.Frame{Kind: kind, ViewID: viewID, Payload: payload})
			})
		contexts[viewID] = c
		if setup != nil {
			setup(c)
		}
		return c
	}

	if err := t.Write(ipc.Frame{Kind: ipc.KindHello}); err != nil {
		return 1
	}

	for {
		f, err := t.Read()
		if err != nil {
			for _, c := range contexts {
				c.Channel.Close()
			}
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
				return 0
			}
			return 1
		}

		switch f.Kind {
		case ipc.KindNavigate:
			lookup(f.ViewID)
		case ipc.KindMessage:
			lookup(f.ViewID).Channel.Deliver(f.Payload)
		case ipc.KindClose:
			for _, c := range contexts {
				c.Channel.Close()
			}
			return 0
		}
	}
}
