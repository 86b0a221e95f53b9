// Package core provides shared types for the relay: segments, validators,
// cache statuses and the error taxonomy.
package core

import (
	"net/url"
	"strings"
	"time"
)

// GlobalSlot is the reserved segments slot covering the page as a whole.
// It is always present in a Segments value, possibly empty, so consumers can
// rely on its presence rather than its truthiness.
const GlobalSlot = "global"

// Segments maps a slot ID to an ordered list of content-classification labels.
type Segments map[string][]string

// NewSegments returns an empty Segments value with the global slot present.
func NewSegments() Segments {
	return Segments{GlobalSlot: {}}
}

// Empty reports whether no slot carries any label.
func (s Segments) Empty() bool {
	for _, labels := range s {
		if len(labels) > 0 {
			return false
		}
	}
	return true
}

// Normalize ensures the global slot is present, returning the receiver.
func (s Segments) Normalize() Segments {
	if s == nil {
		return NewSegments()
	}
	if _, ok := s[GlobalSlot]; !ok {
		s[GlobalSlot] = []string{}
	}
	return s
}

// Validators holds the HTTP cache-consistency tokens for a document.
// An empty string means the validator is absent.
type Validators struct {
	ETag         string `json:"etag,omitempty"`
	LastModified string `json:"last_modified,omitempty"`
}

// Empty reports whether neither validator is present. Entries without
// validators are still cacheable for the TTL window but cannot be revalidated
// cheaply, so they are more likely to serve stale content.
func (v Validators) Empty() bool {
	return v.ETag == "" && v.LastModified == ""
}

// CacheStatus is the diagnostic cache-outcome label reported in response
// headers and logs.
type CacheStatus string

const (
	// CacheMiss: no usable cached entry, content fetched fresh.
	CacheMiss CacheStatus = "MISS"
	// CacheHit: served from cache within TTL without contacting the origin.
	CacheHit CacheStatus = "HIT"
	// CacheHitConditional: origin confirmed the cached entry via 304.
	CacheHitConditional CacheStatus = "HIT-CONDITIONAL"
	// CacheHitFallback: origin unreachable, cached entry (possibly expired)
	// served as a degraded fallback.
	CacheHitFallback CacheStatus = "HIT-FALLBACK"
)

// CanonicalURL is the cache identity of a document: scheme + host + path.
// Query parameters are excluded from cache identity to raise the hit rate;
// the original URL is still used for the upstream fetch itself.
type CanonicalURL string

// Canonicalize reduces an absolute URL to its cache identity. Two requests
// producing byte-identical canonical URLs are the same cache subject.
func Canonicalize(u *url.URL) CanonicalURL {
	c := url.URL{
		Scheme: strings.ToLower(u.Scheme),
		Host:   strings.ToLower(u.Host),
		Path:   u.Path,
	}
	if c.Path == "" {
		c.Path = "/"
	}
	return CanonicalURL(c.String())
}

// Age returns the whole-second age of a timestamp, for observability headers.
func Age(fetchedAt time.Time, now time.Time) int {
	age := int(now.Sub(fetchedAt) / time.Second)
	if age < 0 {
		return 0
	}
	return age
}
