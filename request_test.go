package wew

import "testing"

func TestBytesResourceHandlerDefaults(t *testing.T) {
	h := NewBytesResourceHandler("text/plain", []byte("hello"))
	if !h.Open() {
		t.Fatal("Open = false")
	}

	var resp ResourceResponse
	resp.ContentLength = -1
	h.GetResponse(&resp)
	if resp.StatusCode != 200 {
		t.Errorf("status = %d, want 200", resp.StatusCode)
	}
	if resp.MimeType != "text/plain" {
		t.Errorf("mime = %q", resp.MimeType)
	}
	if resp.ContentLength != 5 {
		t.Errorf("length = %d, want 5", resp.ContentLength)
	}
}

func TestBytesResourceHandlerReadAndEOF(t *testing.T) {
	h := NewBytesResourceHandler("text/plain", []byte("hello"))
	h.Open()

	buf := make([]byte, 3)
	n, ok := h.Read(buf)
	if !ok || n != 3 || string(buf[:n]) != "hel" {
		t.Fatalf("first read = %d %v %q", n, ok, buf[:n])
	}
	n, ok = h.Read(buf)
	if !ok || n != 2 || string(buf[:n]) != "lo" {
		t.Fatalf("second read = %d %v %q", n, ok, buf[:n])
	}

	// Clean end-of-stream arrives exactly once.
	if n, ok = h.Read(buf); !ok || n != 0 {
		t.Errorf("eof read = %d %v, want 0 true", n, ok)
	}
	if _, ok = h.Read(buf); ok {
		t.Error("read past the clean EOF succeeded")
	}
}

func TestBytesResourceHandlerSkip(t *testing.T) {
	h := NewBytesResourceHandler("text/plain", []byte("0123456789"))
	h.Open()

	skipped, ok := h.Skip(4)
	if !ok || skipped != 4 {
		t.Fatalf("skip = %d %v, want 4 true", skipped, ok)
	}

	buf := make([]byte, 16)
	n, ok := h.Read(buf)
	if !ok || string(buf[:n]) != "456789" {
		t.Errorf("read after skip = %q", buf[:n])
	}

	// Skipping past the end clamps to what remains.
	h2 := NewBytesResourceHandler("text/plain", []byte("ab"))
	skipped, ok = h2.Skip(10)
	if !ok || skipped != 2 {
		t.Errorf("clamped skip = %d %v, want 2 true", skipped, ok)
	}
}

func TestBytesResourceHandlerCustomStatus(t *testing.T) {
	h := &BytesResourceHandler{Status: 404, Mime: "text/plain", Body: []byte("not found")}
	var resp ResourceResponse
	h.GetResponse(&resp)
	if resp.StatusCode != 404 {
		t.Errorf("status = %d, want 404", resp.StatusCode)
	}
}
