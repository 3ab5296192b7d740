package proxy

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

// passthroughHeaders is the fixed set of upstream response headers forwarded
// to the downstream client; everything else is dropped.
var passthroughHeaders = []string{
	"Content-Type",
	"Content-Length",
	"Content-Range",
	"Accept-Ranges",
	"Etag",
	"Last-Modified",
	"Cache-Control",
	"Content-Disposition",
}

const streamBufferSize = 32 * 1024

// StatusError reports an upstream response that arrived with an unusable
// status during stream-URL resolution.
type StatusError struct {
	Status int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("upstream returned status %d", e.Status)
}

// Upstream is an open upstream media response. The caller owns Body and must
// close it on every path.
type Upstream struct {
	Status int
	Header http.Header
	Body   io.ReadCloser
}

// Proxy relays byte ranges of remote media to downstream clients. Each
// request is independent; the proxy holds no per-request state.
type Proxy struct {
	allowlist *Allowlist

	// streamClient follows redirects and has no overall timeout because
	// media streams are long-lived; cancellation comes from the request
	// context instead.
	streamClient *http.Client

	// resolveClient never follows redirects so a provider's redirect-to-CDN
	// Location can be surfaced as data.
	resolveClient *http.Client
}

func New(allowlist *Allowlist) *Proxy {
	return &Proxy{
		allowlist:    allowlist,
		streamClient: &http.Client{},
		resolveClient: &http.Client{
			Timeout: 15 * time.Second,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
	}
}

// Allowed gates untrusted target URLs against the allowlist.
func (p *Proxy) Allowed(rawURL string) bool {
	return p.allowlist.Allowed(rawURL)
}

// Fetch opens the upstream resource, forwarding the Range header verbatim
// when one is present. The upstream status is whatever the origin said (200,
// 206, or an error status); only transport-level failures return an error.
func (p *Proxy) Fetch(ctx context.Context, target, rangeHeader string) (*Upstream, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("build upstream request: %w", err)
	}
	if rangeHeader != "" {
		req.Header.Set("Range", rangeHeader)
	}
	resp, err := p.streamClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("upstream fetch: %w", err)
	}
	header := make(http.Header, len(passthroughHeaders))
	for _, name := range passthroughHeaders {
		if value := resp.Header.Get(name); value != "" {
			header.Set(name, value)
		}
	}
	return &Upstream{Status: resp.StatusCode, Header: header, Body: resp.Body}, nil
}

// ServeStream streams the target to the HTTP client chunk by chunk and
// returns the number of body bytes written. A failure before the first byte
// yields 502; once streaming has begun, upstream termination or a downstream
// disconnect just ends the response. The deferred close plus the request
// context guarantee the upstream connection is released on every exit path.
func (p *Proxy) ServeStream(w http.ResponseWriter, r *http.Request, target string) int64 {
	upstream, err := p.Fetch(r.Context(), target, r.Header.Get("Range"))
	if err != nil {
		http.Error(w, "upstream fetch failed", http.StatusBadGateway)
		return 0
	}
	defer upstream.Body.Close()

	for name, values := range upstream.Header {
		for _, value := range values {
			w.Header().Add(name, value)
		}
	}
	w.WriteHeader(upstream.Status)

	flusher, _ := w.(http.Flusher)
	buf := make([]byte, streamBufferSize)
	var written int64
	for {
		n, readErr := upstream.Body.Read(buf)
		if n > 0 {
			wrote, writeErr := w.Write(buf[:n])
			written += int64(wrote)
			if writeErr != nil {
				// downstream went away; the deferred close tears down upstream.
				return written
			}
			if flusher != nil {
				flusher.Flush()
			}
		}
		if readErr != nil {
			return written
		}
	}
}

// ResolveRedirect asks the target for its stream location without following
// redirects: a 3xx Location is returned as the playable URL, a direct 200
// yields the final request URL, anything else is a StatusError.
func (p *Proxy) ResolveRedirect(ctx context.Context, target string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return "", fmt.Errorf("build resolve request: %w", err)
	}
	resp, err := p.resolveClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("resolve fetch: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode >= 300 && resp.StatusCode < 400:
		location := resp.Header.Get("Location")
		if location == "" {
			return "", &StatusError{Status: http.StatusBadGateway}
		}
		return location, nil
	case resp.StatusCode == http.StatusOK:
		return resp.Request.URL.String(), nil
	default:
		return "", &StatusError{Status: resp.StatusCode}
	}
}
