package relay

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"edgerelay/internal/classify"
	"edgerelay/internal/core"
	"edgerelay/internal/document"
	"edgerelay/internal/rewrite"
)

// deferredWriteTimeout bounds each deferred cache write. Writes run after the
// response is finalized, so this never adds client latency; a write lost to
// process teardown is only a future cache miss.
const deferredWriteTimeout = 5 * time.Second

// RequestContext carries the opaque request-shaping inputs extracted at the
// HTTP layer.
type RequestContext struct {
	UserAgent  string
	Geo        string
	Identities []classify.IdentityToken
}

// Result is the finalized relay response.
type Result struct {
	StatusCode  int
	Header      http.Header
	Body        []byte
	ContentType string

	// Diagnostics for observability headers and logs.
	DocCacheStatus core.CacheStatus
	SegCacheStatus core.CacheStatus
	ContentAge     int
	NoValidators   bool

	deferred []func(context.Context)
}

// Orchestrator drives one request through the relay pipeline:
//
//	CheckDocCache → Revalidate → CheckSegCache → Classify? → Rewrite → Respond
//
// with side exits for non-document resources (pass-through) and unrecoverable
// origin failures (error propagated to the handler).
type Orchestrator struct {
	docs       *document.Cache
	fetcher    *document.Fetcher
	segs       *classify.SegmentCache
	classifier *classify.Client

	// flight coalesces concurrent classification misses for the same
	// fingerprint; duplicate upstream calls are harmless but wasteful.
	flight singleflight.Group

	wg sync.WaitGroup
}

// New creates an orchestrator.
func New(docs *document.Cache, fetcher *document.Fetcher, segs *classify.SegmentCache, classifier *classify.Client) *Orchestrator {
	return &Orchestrator{
		docs:       docs,
		fetcher:    fetcher,
		segs:       segs,
		classifier: classifier,
	}
}

// Fetch produces the final response for targetURL. It only fails when the
// origin is unavailable and no cached fallback exists; every other failure
// mode degrades inside the pipeline.
func (o *Orchestrator) Fetch(ctx context.Context, targetURL string, rc RequestContext) (*Result, error) {
	u, err := url.Parse(targetURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, core.NewInvalidRequestError("unusable target URL: "+targetURL, err)
	}

	// Resource-like extensions bypass all cache and classification work.
	if looksLikeResource(u) {
		return o.passthrough(ctx, targetURL)
	}

	canonical := core.Canonicalize(u)

	// CheckDocCache. A fresh validator-less entry is served directly: it
	// cannot be revalidated cheaply, which is exactly what its TTL is for.
	cached := o.docs.Get(ctx, canonical)
	if cached != nil && cached.Validators.Empty() {
		return o.fromCache(ctx, u, canonical, cached, core.CacheHit, rc), nil
	}

	// Revalidate. Attempted even on a cache miss; an expired entry still
	// contributes its validators and serves as the stale fallback.
	stale := cached
	if stale == nil {
		stale = o.docs.GetStale(ctx, canonical)
	}

	fetched, err := o.fetcher.FetchWithRevalidation(ctx, targetURL, stale)
	if err != nil {
		return nil, err
	}

	docStatus := core.CacheMiss
	age := 0
	switch {
	case fetched.Degraded:
		docStatus = core.CacheHitFallback
		age = stale.Age(time.Now())
	case fetched.ServedFromCache:
		docStatus = core.CacheHitConditional
		age = stale.Age(time.Now())
	}

	res := &Result{
		StatusCode:     fetched.StatusCode,
		Header:         fetched.Header,
		ContentType:    fetched.ContentType,
		DocCacheStatus: docStatus,
		ContentAge:     age,
		NoValidators:   fetched.Validators.Empty(),
	}

	// Non-HTML responses and upstream errors stream through unmodified;
	// the document cache and the segment/rewrite stages apply to documents
	// only.
	if fetched.StatusCode != http.StatusOK || !isHTML(fetched.ContentType) {
		res.Body = []byte(fetched.Body)
		res.SegCacheStatus = core.CacheMiss
		return res, nil
	}

	if docStatus == core.CacheMiss {
		body, validators := fetched.Body, fetched.Validators
		res.deferred = append(res.deferred, func(ctx context.Context) {
			if err := o.docs.Put(ctx, canonical, body, validators); err != nil {
				slog.Warn("deferred document cache write failed", "url", canonical, "error", err)
			}
		})
	}

	segs, segStatus := o.segments(ctx, res, canonical, fetched.Validators, rc)
	res.SegCacheStatus = segStatus

	res.Body = []byte(rewrite.Rewrite(fetched.Body, rewrite.NewContext(u), segs))
	return res, nil
}

// fromCache serves a fresh cached entry without contacting the origin.
func (o *Orchestrator) fromCache(ctx context.Context, u *url.URL, canonical core.CanonicalURL, entry *document.Entry, status core.CacheStatus, rc RequestContext) *Result {
	res := &Result{
		StatusCode:     http.StatusOK,
		Header:         http.Header{},
		ContentType:    "text/html",
		DocCacheStatus: status,
		ContentAge:     entry.Age(time.Now()),
		NoValidators:   entry.Validators.Empty(),
	}

	segs, segStatus := o.segments(ctx, res, canonical, entry.Validators, rc)
	res.SegCacheStatus = segStatus
	res.Body = []byte(rewrite.Rewrite(entry.Body, rewrite.NewContext(u), segs))
	return res
}

// segments resolves classification results: cache first, then one
// single-flighted call under the classifier's own deadline. A successful call
// schedules a deferred cache write; empty results are valid rewrite input and
// are never cached.
func (o *Orchestrator) segments(ctx context.Context, res *Result, canonical core.CanonicalURL, validators core.Validators, rc RequestContext) (core.Segments, core.CacheStatus) {
	req := classify.Request{
		URL:        canonical,
		Validators: validators,
		Device:     classify.DeriveDevice(rc.UserAgent),
		Geo:        rc.Geo,
		Identities: rc.Identities,
	}
	key := req.Fingerprint()

	if segs, ok := o.segs.Get(ctx, key); ok {
		return segs, core.CacheHit
	}

	v, _, _ := o.flight.Do(key, func() (any, error) {
		return o.classifier.Classify(ctx, req), nil
	})
	segs := v.(core.Segments).Normalize()

	if !segs.Empty() {
		res.deferred = append(res.deferred, func(ctx context.Context) {
			if err := o.segs.Put(ctx, key, segs); err != nil {
				slog.Warn("deferred segment cache write failed", "key", key, "error", err)
			}
		})
	}

	return segs, core.CacheMiss
}

// passthrough fetches a non-document resource and returns it unmodified.
// No conditional headers are attached and nothing is cached.
func (o *Orchestrator) passthrough(ctx context.Context, targetURL string) (*Result, error) {
	fetched, err := o.fetcher.FetchWithRevalidation(ctx, targetURL, nil)
	if err != nil {
		return nil, err
	}
	return &Result{
		StatusCode:  fetched.StatusCode,
		Header:      fetched.Header,
		Body:        []byte(fetched.Body),
		ContentType: fetched.ContentType,
	}, nil
}

// Finish launches the result's deferred cache writes. Called by the HTTP
// layer after the response body is finalized; the writes are best-effort and
// idempotent full overwrites, so a crashed write never corrupts state.
func (o *Orchestrator) Finish(res *Result) {
	for _, write := range res.deferred {
		o.wg.Add(1)
		go func() {
			defer o.wg.Done()
			ctx, cancel := context.WithTimeout(context.Background(), deferredWriteTimeout)
			defer cancel()
			write(ctx)
		}()
	}
	res.deferred = nil
}

// Flush waits for all in-flight deferred writes; used by shutdown and tests.
func (o *Orchestrator) Flush() {
	o.wg.Wait()
}
