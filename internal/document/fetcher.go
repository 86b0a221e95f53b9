package document

import (
	"compress/gzip"
	"context"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/andybalholm/brotli"

	"edgerelay/internal/core"
)

// FetchResult is the outcome of an origin fetch or revalidation.
type FetchResult struct {
	Body       string
	Validators core.Validators

	// ServedFromCache is true when the body came from the cached entry,
	// either via a 304 or via stale fallback.
	ServedFromCache bool

	// Degraded is true when the cached body was served because the origin
	// was unreachable or failing, possibly past the freshness TTL.
	Degraded bool

	// StatusCode and Header describe the upstream response for pass-through.
	// On cache-served results they reflect the original 200.
	StatusCode  int
	Header      http.Header
	ContentType string
}

// Fetcher issues origin GETs with conditional revalidation and stale
// fallback. It performs no caching itself; the caller owns cache writes.
type Fetcher struct {
	client *http.Client
}

// NewFetcher creates a fetcher using the given HTTP client.
func NewFetcher(client *http.Client) *Fetcher {
	return &Fetcher{client: client}
}

// FetchWithRevalidation fetches targetURL. When cached carries validators, a
// conditional request is issued (entity-tag precondition preferred over the
// timestamp one). Outcomes:
//
//   - 304: the cached body is returned with ServedFromCache set; the caller
//     must not rewrite the cache (content is unchanged).
//   - 2xx: the new body and validators are returned; the caller should Put.
//   - network error or 5xx: the cached entry, even an expired one, is
//     returned with Degraded set; without one the failure propagates.
//
// Other statuses (3xx, 4xx) are returned as-is for pass-through
// without touching the cache.
func (f *Fetcher) FetchWithRevalidation(ctx context.Context, targetURL string, cached *Entry) (*FetchResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, targetURL, nil)
	if err != nil {
		return nil, core.NewInvalidRequestError("failed to build origin request", err)
	}
	// Manual Accept-Encoding: the transport's auto-gzip is disabled once the
	// header is set explicitly, so decoding below covers both codings.
	req.Header.Set("Accept-Encoding", "gzip, br")

	if cached != nil {
		switch {
		case cached.Validators.ETag != "":
			req.Header.Set("If-None-Match", cached.Validators.ETag)
		case cached.Validators.LastModified != "":
			req.Header.Set("If-Modified-Since", cached.Validators.LastModified)
		}
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return f.fallback(targetURL, cached, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	switch {
	case resp.StatusCode == http.StatusNotModified:
		if cached == nil {
			// 304 without a precondition from us; origin is misbehaving.
			return nil, core.NewOriginError("origin returned 304 without a cached entry", http.StatusBadGateway, nil)
		}
		return &FetchResult{
			Body:            cached.Body,
			Validators:      cached.Validators,
			ServedFromCache: true,
			StatusCode:      http.StatusOK,
			Header:          passthroughHeader(resp.Header),
			ContentType:     contentTypeOf(resp.Header, cached),
		}, nil

	case resp.StatusCode >= 500:
		return f.fallback(targetURL, cached,
			core.NewOriginError("origin returned server error", resp.StatusCode, nil))

	default:
		body, err := decodeBody(resp)
		if err != nil {
			return f.fallback(targetURL, cached, err)
		}
		return &FetchResult{
			Body: string(body),
			Validators: core.Validators{
				ETag:         resp.Header.Get("ETag"),
				LastModified: resp.Header.Get("Last-Modified"),
			},
			StatusCode:  resp.StatusCode,
			Header:      passthroughHeader(resp.Header),
			ContentType: resp.Header.Get("Content-Type"),
		}, nil
	}
}

// fallback serves the cached entry when the origin is unavailable. Network
// errors are never surfaced to the caller if a fallback exists.
func (f *Fetcher) fallback(targetURL string, cached *Entry, cause error) (*FetchResult, error) {
	if cached == nil {
		if relayErr, ok := cause.(*core.RelayError); ok {
			return nil, relayErr
		}
		return nil, core.NewOriginError("origin fetch failed", http.StatusBadGateway, cause)
	}

	slog.Warn("origin unavailable, serving cached document",
		"url", targetURL,
		"validator_backed", !cached.Validators.Empty(),
		"error", cause,
	)
	return &FetchResult{
		Body:            cached.Body,
		Validators:      cached.Validators,
		ServedFromCache: true,
		Degraded:        true,
		StatusCode:      http.StatusOK,
		Header:          http.Header{},
		ContentType:     "text/html",
	}, nil
}

// decodeBody reads the response body, decoding gzip or brotli content codings.
func decodeBody(resp *http.Response) ([]byte, error) {
	var reader io.Reader = resp.Body

	switch strings.ToLower(resp.Header.Get("Content-Encoding")) {
	case "gzip":
		gz, err := gzip.NewReader(resp.Body)
		if err != nil {
			return nil, core.NewOriginError("failed to decode gzip body", http.StatusBadGateway, err)
		}
		defer func() {
			_ = gz.Close()
		}()
		reader = gz
	case "br":
		reader = brotli.NewReader(resp.Body)
	}

	body, err := io.ReadAll(reader)
	if err != nil {
		return nil, core.NewOriginError("failed to read origin body", http.StatusBadGateway, err)
	}
	return body, nil
}

// passthroughHeader copies upstream headers, dropping hop-by-hop fields and
// the coding/length fields invalidated by decoding and rewriting.
func passthroughHeader(h http.Header) http.Header {
	out := http.Header{}
	for k, vals := range h {
		switch http.CanonicalHeaderKey(k) {
		case "Connection", "Keep-Alive", "Transfer-Encoding", "Upgrade",
			"Proxy-Authenticate", "Proxy-Authorization", "Te", "Trailer",
			"Content-Encoding", "Content-Length":
			continue
		}
		for _, v := range vals {
			out.Add(k, v)
		}
	}
	return out
}

func contentTypeOf(h http.Header, cached *Entry) string {
	if ct := h.Get("Content-Type"); ct != "" {
		return ct
	}
	if cached != nil {
		return "text/html"
	}
	return ""
}
