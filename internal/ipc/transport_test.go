package ipc

import (
	"encoding/binary"
	"errors"
	"io"
	"strings"
	"testing"
)

func TestTransportRoundTrip(t *testing.T) {
	pr, pw := io.Pipe()
	sender := NewTransport(nil, pw)
	receiver := NewTransport(pr, nil)

	frames := []Frame{
		{Kind: KindHello},
		{Kind: KindMessage, ViewID: "v1", Payload: "hello page"},
		{Kind: KindSend, ViewID: "v1", Payload: `{"nested":"json"}`},
		{Kind: KindFullscreen, ViewID: "v2", Payload: "true"},
		{Kind: KindClose},
	}

	go func() {
		for _, f := range frames {
			if err := sender.Write(f); err != nil {
				t.Errorf("Write(%v): %v", f, err)
			}
		}
		pw.Close()
	}()

	for i, want := range frames {
		got, err := receiver.Read()
		if err != nil {
			t.Fatalf("Read #%d: %v", i, err)
		}
		if got != want {
			t.Errorf("frame #%d = %+v, want %+v", i, got, want)
		}
	}

	if _, err := receiver.Read(); !errors.Is(err, io.EOF) {
		t.Errorf("after close err = %v, want EOF", err)
	}
}

func TestTransportRejectsOversizedWrite(t *testing.T) {
	tr := NewTransport(nil, io.Discard)
	f := Frame{Kind: KindMessage, Payload: strings.Repeat("x", maxFramePayload+1)}
	if err := tr.Write(f); err == nil {
		t.Error("Write accepted an oversized frame")
	}
}

func TestTransportRejectsOversizedHeader(t *testing.T) {
	var head [4]byte
	binary.BigEndian.PutUint32(head[:], maxFramePayload+1)
	tr := NewTransport(strings.NewReader(string(head[:])), nil)
	if _, err := tr.Read(); err == nil {
		t.Error("Read accepted an oversized frame header")
	}
}

func TestTransportTruncatedBody(t *testing.T) {
	var head [4]byte
	binary.BigEndian.PutUint32(head[:], 100)
	tr := NewTransport(strings.NewReader(string(head[:])+"short"), nil)
	if _, err := tr.Read(); err == nil {
		t.Error("Read accepted a truncated frame body")
	}
}
