// Package ipc implements the frame transport between the orchestrating
// process and content-execution subprocesses. Frames are length-prefixed
// JSON records written over the subprocess's stdio pipes.
package ipc

import (
	"encoding/binary"
	"fmt"
	"io"
	"sync"

	"github.com/bytedance/sonic"
)

// maxFramePayload bounds a single frame (1 MB). Oversized frames indicate a
// corrupted stream and fail the transport rather than allocate unbounded.
const maxFramePayload = 1 << 20

// Frame kinds.
const (
	// KindHello is sent by the content process once its loop is ready.
	KindHello = "hello"
	// KindMessage carries a host payload to the content-side channel.
	KindMessage = "message"
	// KindSend carries a content-side payload to the host view.
	KindSend = "send"
	// KindNavigate tells the content context the main frame committed a
	// new document.
	KindNavigate = "navigate"
	// KindFullscreen is a content-side request to toggle fullscreen.
	KindFullscreen = "fullscreen"
	// KindPopup is a content-side request to open a new top-level view.
	KindPopup = "popup"
	// KindClose asks the content loop to exit.
	KindClose = "close"
)

// Frame is a single transport record.
type Frame struct {
	Kind    string `json:"kind"`
	ViewID  string `json:"view_id,omitempty"`
	Payload string `json:"payload,omitempty"`
}

// Transport reads and writes frames over a byte stream pair. Writes are
// serialized internally; reads must come from a single goroutine.
type Transport struct {
	r  io.Reader
	w  io.Writer
	mu sync.Mutex
}

// NewTransport wraps a read/write stream pair.
func NewTransport(r io.Reader, w io.Writer) *Transport {
	return &Transport{r: r, w: w}
}

// Write encodes and sends one frame.
func (t *Transport) Write(f Frame) error {
	data, err := sonic.Marshal(f)
	if err != nil {
		return fmt.Errorf("encoding frame: %w", err)
	}
	if len(data) > maxFramePayload {
		return fmt.Errorf("frame too large: %d bytes", len(data))
	}

	var head [4]byte
	binary.BigEndian.PutUint32(head[:], uint32(len(data)))

	t.mu.Lock()
	defer t.mu.Unlock()
	if _, err := t.w.Write(head[:]); err != nil {
		return fmt.Errorf("writing frame header: %w", err)
	}
	if _, err := t.w.Write(data); err != nil {
		return fmt.Errorf("writing frame body: %w", err)
	}
	return nil
}

// Read blocks until the next frame arrives or the stream ends.
func (t *Transport) Read() (Frame, error) {
	var head [4]byte
	if _, err := io.ReadFull(t.r, head[:]); err != nil {
		return Frame{}, err
	}
	size := binary.BigEndian.Uint32(head[:])
	if size > maxFramePayload {
		return Frame{}, fmt.Errorf("frame too large: %d bytes", size)
	}

	data := make([]byte, size)
	if _, err := io.ReadFull(t.r, data); err != nil {
		return Frame{}, fmt.Errorf("reading frame body: %w", err)
	}

	var f Frame
	if err := sonic.Unmarshal(data, &f); err != nil {
		return Frame{}, fmt.Errorf("decoding frame: %w", err)
	}
	return f, nil
}
