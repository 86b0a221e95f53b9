// Package document provides the validator-backed document cache and the
// conditional origin fetcher.
package document

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"edgerelay/internal/cache"
	"edgerelay/internal/core"
)

// StaleRetentionFactor scales the backend retention window relative to the
// freshness TTL. Entries past the freshness TTL are absent for normal reads
// but stay retrievable via GetStale as origin-failure fallbacks until the
// backend evicts them.
const StaleRetentionFactor = 6

// Entry is a cached origin document together with its HTTP validators.
type Entry struct {
	URL        core.CanonicalURL `json:"url"`
	Body       string            `json:"body"`
	Validators core.Validators   `json:"validators"`
	FetchedAt  time.Time         `json:"fetched_at"`
}

// Age returns the entry's age in whole seconds.
func (e *Entry) Age(now time.Time) int {
	return core.Age(e.FetchedAt, now)
}

// Cache stores fetched documents keyed by canonical URL. Freshness is
// evaluated lazily on read against FetchedAt; nothing is ever actively
// evicted from this layer.
type Cache struct {
	store cache.Store
	ttl   time.Duration
	now   func() time.Time
}

// NewCache creates a document cache over the given store. ttl is the
// freshness window; the store's own retention should be longer (see
// StaleRetentionFactor) so expired entries remain available for fallback.
func NewCache(store cache.Store, ttl time.Duration) *Cache {
	return &Cache{store: store, ttl: ttl, now: time.Now}
}

// Get returns the entry for url only if it is present and fresh
// (now - FetchedAt <= ttl). Backend failures are logged and reported as
// misses; the cache is an accelerator, never a dependency.
func (c *Cache) Get(ctx context.Context, url core.CanonicalURL) *Entry {
	entry := c.load(ctx, url)
	if entry == nil {
		return nil
	}
	if c.now().Sub(entry.FetchedAt) > c.ttl {
		return nil
	}
	return entry
}

// GetStale returns the entry for url regardless of freshness, for use as an
// origin-failure fallback.
func (c *Cache) GetStale(ctx context.Context, url core.CanonicalURL) *Entry {
	return c.load(ctx, url)
}

// Put stores an entry, unconditionally overwriting any previous one. This is
// the single write path; revalidation hits never rewrite the entry, so the
// TTL clock is never reset without new content (bounding total staleness).
func (c *Cache) Put(ctx context.Context, url core.CanonicalURL, body string, validators core.Validators) error {
	entry := Entry{
		URL:        url,
		Body:       body,
		Validators: validators,
		FetchedAt:  c.now(),
	}
	data, err := json.Marshal(&entry)
	if err != nil {
		return fmt.Errorf("failed to marshal document entry: %w", err)
	}
	if err := c.store.Set(ctx, string(url), data); err != nil {
		return core.NewCacheError("document cache write failed", err)
	}
	return nil
}

func (c *Cache) load(ctx context.Context, url core.CanonicalURL) *Entry {
	data, err := c.store.Get(ctx, string(url))
	if err != nil {
		if !errors.Is(err, cache.ErrNotFound) {
			slog.Warn("document cache read failed, treating as miss", "url", url, "error", err)
		}
		return nil
	}

	var entry Entry
	if err := json.Unmarshal(data, &entry); err != nil {
		slog.Warn("document cache entry corrupt, treating as miss", "url", url, "error", err)
		return nil
	}
	return &entry
}
