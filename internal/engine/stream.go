package engine

import (
	"bytes"
	"errors"
	"sync/atomic"
)

// stream step errors. Aborted streams never surface as load errors.
var (
	errStreamFailed  = errors.New("resource handler signaled stream failure")
	errStreamAborted = errors.New("resource stream cancelled")
	errNotHandled    = errors.New("resource handler declined the request")
)

// streamChunkSize is how many bytes the engine asks for per Read step.
const streamChunkSize = 16 << 10

// resourceStream tracks one in-flight intercepted request. Cancellation can
// be requested from the engine thread while the pump is mid-sequence.
type resourceStream struct {
	handler   ResourceHandler
	cancelled atomic.Bool
}

func (s *resourceStream) cancel() {
	s.cancelled.Store(true)
}

// run drives the four-phase pull protocol to completion on the pump
// goroutine: open, header, read steps, destroy. skip is consumed first when
// non-zero. The engine controls backpressure by asking for one chunk at a
// time and never buffering past the declared length or maxBody.
func (s *resourceStream) run(skip int64, maxBody int64) (*loadResult, error) {
	h := s.handler

	if !h.Open() {
		h.Destroy()
		return nil, errNotHandled
	}

	var resp ResourceResponse
	resp.ContentLength = -1
	h.GetResponse(&resp)

	if s.cancelled.Load() {
		h.Cancel()
		h.Destroy()
		return nil, errStreamAborted
	}

	for skip > 0 {
		skipped, ok := h.Skip(skip)
		if !ok {
			h.Destroy()
			return nil, errStreamFailed
		}
		if skipped <= 0 {
			break
		}
		skip -= skipped
	}

	var body bytes.Buffer
	var total int64
	buf := make([]byte, streamChunkSize)
	for {
		if s.cancelled.Load() {
			h.Cancel()
			h.Destroy()
			return nil, errStreamAborted
		}

		want := int64(len(buf))
		if resp.ContentLength >= 0 {
			remain := resp.ContentLength - total
			if remain <= 0 {
				break
			}
			if want > remain {
				want = remain
			}
		}
		if total+want > maxBody {
			want = maxBody - total
			if want <= 0 {
				break
			}
		}

		n, ok := h.Read(buf[:want])
		if !ok {
			h.Destroy()
			return nil, errStreamFailed
		}
		if n == 0 {
			break
		}
		total += int64(n)
		body.Write(buf[:n])
	}

	h.Destroy()

	res := &loadResult{
		Status: resp.StatusCode,
		Mime:   resp.MimeType,
		Body:   body.Bytes(),
	}
	if isHTML(resp.MimeType) {
		res.Title = extractTitle(res.Body, resp.MimeType)
	}
	return res, nil
}
