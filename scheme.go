package wew

import (
	"errors"
	"io"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// CustomSchemeAttributes registers one custom scheme intercept point at
// runtime creation. Requests whose scheme (and domain, when set) match are
// routed to Handler before any other interception. When Handler is nil the
// scheme serves files beneath RuntimeSettings.SchemeDirPath.
type CustomSchemeAttributes struct {
	Name   string
	Domain string

	Handler RequestHandler
}

// dirSchemeHandler serves a directory tree over a custom scheme. The URL
// path maps beneath the root; a missing or escaping path yields 404.
type dirSchemeHandler struct {
	root string
}

func newDirSchemeHandler(root string) RequestHandler {
	return &dirSchemeHandler{root: root}
}

func (d *dirSchemeHandler) OnRequest(request *ResourceRequest) ResourceHandler {
	u, err := url.Parse(request.URL)
	if err != nil {
		return notFoundHandler()
	}
	rel := path.Clean("/" + u.Path)
	if rel == "/" {
		rel = "/index.html"
	}
	full := filepath.Join(d.root, filepath.FromSlash(rel))

	info, err := os.Stat(full)
	if err != nil || info.IsDir() {
		return notFoundHandler()
	}

	f, err := os.Open(full)
	if err != nil {
		return notFoundHandler()
	}
	return &fileResourceHandler{file: f, size: info.Size(), path: full}
}

func notFoundHandler() ResourceHandler {
	return &BytesResourceHandler{Status: 404, Mime: "text/plain", Body: []byte("not found")}
}

// fileResourceHandler streams one file. The mime type is sniffed from the
// leading bytes, with the extension as a fallback for text formats the
// sniffer reports too generically.
type fileResourceHandler struct {
	file *os.File
	size int64
	path string
	eof  bool
}

func (h *fileResourceHandler) Open() bool { return true }

func (h *fileResourceHandler) GetResponse(response *ResourceResponse) {
	response.StatusCode = 200
	response.MimeType = h.detectMime()
	response.ContentLength = h.size
}

func (h *fileResourceHandler) detectMime() string {
	switch strings.ToLower(filepath.Ext(h.path)) {
	case ".html", ".htm":
		return "text/html"
	case ".css":
		return "text/css"
	case ".js", ".mjs":
		return "text/javascript"
	case ".json":
		return "application/json"
	case ".svg":
		return "image/svg+xml"
	}
	mt, err := mimetype.DetectReader(h.file)
	if _, serr := h.file.Seek(0, 0); err != nil || serr != nil {
		return "application/octet-stream"
	}
	return mt.String()
}

func (h *fileResourceHandler) Skip(n int64) (int64, bool) {
	pos, err := h.file.Seek(0, 1)
	if err != nil {
		return 0, false
	}
	remain := h.size - pos
	if n > remain {
		n = remain
	}
	if _, err := h.file.Seek(n, 1); err != nil {
		return 0, false
	}
	return n, true
}

func (h *fileResourceHandler) Read(p []byte) (int, bool) {
	n, err := h.file.Read(p)
	if n > 0 {
		return n, true
	}
	if errors.Is(err, io.EOF) {
		if h.eof {
			return 0, false
		}
		h.eof = true
		return 0, true
	}
	return 0, false
}

func (h *fileResourceHandler) Cancel() {}

func (h *fileResourceHandler) Destroy() {
	_ = h.file.Close()
}
