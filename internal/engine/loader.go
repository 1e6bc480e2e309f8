package engine

import (
	"bytes"
	"fmt"
	"io"
	"mime"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/brotli"
	"github.com/go-resty/resty/v2"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"golang.org/x/net/html/charset"
)

const defaultFetchTimeout = 30 * time.Second

// defaultMaxBodyBytes caps how much of a document the engine buffers (32 MB).
const defaultMaxBodyBytes = 32 << 20

// loadResult is a fetched and decoded document.
type loadResult struct {
	Status int
	Mime   string
	Body   []byte
	Title  string
}

// loader is the engine's default network pipeline, used when no intercept
// point takes a request.
type loader struct {
	client  *resty.Client
	maxBody int64
}

func newLoader(timeout time.Duration, maxBody int64) *loader {
	if timeout <= 0 {
		timeout = defaultFetchTimeout
	}
	if maxBody <= 0 {
		maxBody = defaultMaxBodyBytes
	}

	client := resty.New().
		SetTimeout(timeout).
		SetRedirectPolicy(resty.FlexibleRedirectPolicy(10)).
		SetDoNotParseResponse(true)

	return &loader{client: client, maxBody: maxBody}
}

// fetch retrieves url through the network, decodes the transfer encoding,
// and extracts the document title when the body is HTML.
func (l *loader) fetch(url, referrer string) (*loadResult, error) {
	req := l.client.R().
		SetHeader("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8").
		SetHeader("Accept-Encoding", "gzip, br, zstd")
	if referrer != "" {
		req.SetHeader("Referer", referrer)
	}

	resp, err := req.Get(url)
	if err != nil {
		return nil, fmt.Errorf("fetching %s: %w", url, err)
	}
	raw := resp.RawBody()
	defer raw.Close()

	body, err := decodeBody(raw, resp.Header().Get("Content-Encoding"), l.maxBody)
	if err != nil {
		return nil, fmt.Errorf("decoding %s: %w", url, err)
	}

	mimeType := "application/octet-stream"
	contentType := resp.Header().Get("Content-Type")
	if contentType != "" {
		if mt, _, err := mime.ParseMediaType(contentType); err == nil {
			mimeType = mt
		}
	}

	res := &loadResult{
		Status: resp.StatusCode(),
		Mime:   mimeType,
		Body:   body,
	}
	if isHTML(mimeType) {
		res.Title = extractTitle(body, contentType)
	}
	return res, nil
}

// decodeBody undoes the transfer content encoding and reads at most maxBody
// bytes.
func decodeBody(r io.Reader, encoding string, maxBody int64) ([]byte, error) {
	switch strings.ToLower(strings.TrimSpace(encoding)) {
	case "", "identity":
	case "gzip":
		gz, err := gzip.NewReader(r)
		if err != nil {
			return nil, fmt.Errorf("gzip: %w", err)
		}
		defer gz.Close()
		r = gz
	case "br":
		r = brotli.NewReader(r)
	case "zstd":
		zr, err := zstd.NewReader(r)
		if err != nil {
			return nil, fmt.Errorf("zstd: %w", err)
		}
		defer zr.Close()
		r = zr
	default:
		return nil, fmt.Errorf("unsupported content encoding %q", encoding)
	}

	body, err := io.ReadAll(io.LimitReader(r, maxBody))
	if err != nil {
		return nil, err
	}
	return body, nil
}

func isHTML(mimeType string) bool {
	return mimeType == "text/html" || mimeType == "application/xhtml+xml"
}

// extractTitle pulls the document title out of an HTML body, honoring the
// declared charset.
func extractTitle(body []byte, contentType string) string {
	r, err := charset.NewReader(bytes.NewReader(body), contentType)
	if err != nil {
		r = bytes.NewReader(body)
	}
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(doc.Find("title").First().Text())
}
