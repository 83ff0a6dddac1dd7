package httputil

import (
	"compress/gzip"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/andybalholm/brotli"
)

// maxBodySize caps how much of a response body is read into memory.
const maxBodySize = 32 << 20

// NewHTTPClient returns a client sending through transport (a pooled
// default when nil) with an overall per-request timeout.
func NewHTTPClient(transport http.RoundTripper, timeout time.Duration) *http.Client {
	if transport == nil {
		transport = &http.Transport{
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     90 * time.Second,
		}
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &http.Client{
		Transport: transport,
		Timeout:   timeout,
	}
}

// decoder wraps a response body for one Content-Encoding. Closing the
// decoder does not close body.
func decoder(encoding string, body io.Reader) (io.ReadCloser, error) {
	switch strings.ToLower(strings.TrimSpace(encoding)) {
	case "", "identity":
		return io.NopCloser(body), nil
	case "gzip", "x-gzip":
		zr, err := gzip.NewReader(body)
		if err != nil {
			return nil, fmt.Errorf("gzip reader: %w", err)
		}
		return zr, nil
	case "br":
		return io.NopCloser(brotli.NewReader(body)), nil
	default:
		return nil, fmt.Errorf("unsupported content encoding %q", encoding)
	}
}

// ReadBody reads at most maxBodySize bytes of a response body, undoing any
// gzip or brotli content encoding. A body larger than the cap is an error.
func ReadBody(resp *http.Response) ([]byte, error) {
	r, err := decoder(resp.Header.Get("Content-Encoding"), resp.Body)
	if err != nil {
		return nil, err
	}
	defer r.Close()
	body, err := io.ReadAll(io.LimitReader(r, maxBodySize+1))
	if err != nil {
		return nil, err
	}
	if len(body) > maxBodySize {
		return nil, fmt.Errorf("response body exceeds %d bytes", maxBodySize)
	}
	return body, nil
}

// ReadOK reads the body of resp and turns any non-2xx status into an error
// carrying a snippet of the body.
func ReadOK(resp *http.Response) ([]byte, error) {
	body, err := ReadBody(resp)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("http %d: %s", resp.StatusCode, truncate(string(body), 200))
	}
	return body, nil
}

func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max]) + "..."
}
