package engine

import (
	"fmt"
	"os/exec"
	"sync"

	"go.uber.org/zap"

	"github.com/mycrl/wew-go/internal/content"
	"github.com/mycrl/wew-go/internal/ipc"
)

// contentDispatch receives content-side traffic routed back to the
// orchestrating side. Implemented by Engine.
type contentDispatch interface {
	contentSend(viewID, text string)
	contentControl(viewID, kind, payload string)
}

// contentLink connects browsers to their content-execution contexts,
// either in-process or across a subprocess boundary.
type contentLink interface {
	// attach ensures a content context exists for the view.
	attach(viewID string)
	// navigate informs the content side that the main frame committed.
	navigate(viewID string)
	// send delivers a host payload to the view's content channel.
	send(viewID, text string)
	// closeView drops the view's content context.
	closeView(viewID string)
	// shutdown tears the whole link down.
	shutdown()
}

// inprocLink runs content contexts on goroutines inside the orchestrating
// process. This is the single-process mode used when no subprocess
// executable is configured.
type inprocLink struct {
	mu       sync.Mutex
	contexts map[string]*content.Context
	dispatch contentDispatch
}

func newInprocLink(dispatch contentDispatch) *inprocLink {
	return &inprocLink{
		contexts: make(map[string]*content.Context),
		dispatch: dispatch,
	}
}

// context returns the live content context for a view, or nil. Only
// meaningful in single-process mode; the public API surfaces it as the
// page-side channel endpoint.
func (l *inprocLink) context(viewID string) *content.Context {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.contexts[viewID]
}

func (l *inprocLink) attach(viewID string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.contexts[viewID]; ok {
		return
	}
	l.contexts[viewID] = content.NewContext(viewID,
		func(text string) { l.dispatch.contentSend(viewID, text) },
		func(kind, payload string) { l.dispatch.contentControl(viewID, kind, payload) },
	)
}

func (l *inprocLink) navigate(viewID string) {
	l.attach(viewID)
}

func (l *inprocLink) send(viewID, text string) {
	if c := l.context(viewID); c != nil {
		c.Channel.Deliver(text)
	}
}

func (l *inprocLink) closeView(viewID string) {
	l.mu.Lock()
	c := l.contexts[viewID]
	delete(l.contexts, viewID)
	l.mu.Unlock()
	if c != nil {
		c.Channel.Close()
	}
}

func (l *inprocLink) shutdown() {
	l.mu.Lock()
	contexts := l.contexts
	l.contexts = make(map[string]*content.Context)
	l.mu.Unlock()
	for _, c := range contexts {
		c.Channel.Close()
	}
}

// subprocLink speaks the stdio frame transport to a content-execution
// subprocess launched from the configured executable path. One process
// hosts the content contexts of all views, multiplexed by view ID.
type subprocLink struct {
	cmd      *exec.Cmd
	t        *ipc.Transport
	dispatch contentDispatch
	log      *zap.Logger

	mu     sync.Mutex
	closed bool
	exited chan struct{}
}

func newSubprocLink(path string, dispatch contentDispatch, log *zap.Logger) (*subprocLink, error) {
	cmd := exec.Command(path, "--type=renderer")

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("subprocess stdin: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("subprocess stdout: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("launching subprocess %s: %w", path, err)
	}

	l := &subprocLink{
		cmd:      cmd,
		t:        ipc.NewTransport(stdout, stdin),
		dispatch: dispatch,
		log:      log,
		exited:   make(chan struct{}),
	}
	go l.readLoop()
	return l, nil
}

func (l *subprocLink) readLoop() {
	defer close(l.exited)
	for {
		f, err := l.t.Read()
		if err != nil {
			l.mu.Lock()
			closed := l.closed
			l.mu.Unlock()
			if !closed {
				l.log.Warn("content subprocess transport ended", zap.Error(err))
			}
			return
		}

		switch f.Kind {
		case ipc.KindHello:
		case ipc.KindSend:
			l.dispatch.contentSend(f.ViewID, f.Payload)
		case ipc.KindFullscreen, ipc.KindPopup:
			l.dispatch.contentControl(f.ViewID, f.Kind, f.Payload)
		}
	}
}

func (l *subprocLink) write(f ipc.Frame) {
	if err := l.t.Write(f); err != nil {
		l.log.Warn("writing to content subprocess", zap.Error(err))
	}
}

func (l *subprocLink) attach(viewID string) {
	l.write(ipc.Frame{Kind: ipc.KindNavigate, ViewID: viewID})
}

func (l *subprocLink) navigate(viewID string) {
	l.write(ipc.Frame{Kind: ipc.KindNavigate, ViewID: viewID})
}

func (l *subprocLink) send(viewID, text string) {
	l.write(ipc.Frame{Kind: ipc.KindMessage, ViewID: viewID, Payload: text})
}

func (l *subprocLink) closeView(viewID string) {
	// The subprocess keeps its context until shutdown; payloads for a
	// closed view are dropped on the orchestrating side.
}

func (l *subprocLink) shutdown() {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return
	}
	l.closed = true
	l.mu.Unlock()

	l.write(ipc.Frame{Kind: ipc.KindClose})
	<-l.exited
	_ = l.cmd.Wait()
}
