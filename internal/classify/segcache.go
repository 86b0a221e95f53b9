package classify

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

// cacheEntry is the stored form of a classification result.
type cacheEntry struct {
	Key      string        `json:"key"`
	Segments core.Segments `json:"segments"`
	CachedAt time.Time     `json:"cached_at"`
}

// SegmentCache stores classification results keyed by request fingerprint.
// Its keying scheme is independent of the document cache's: the same page
// under different identity sets or device classes caches separately, so
// per-user and per-content-version results are never cross-contaminated.
type SegmentCache struct {
	store cache.Store
	ttl   time.Duration
	now   func() time.Time
}

// NewSegmentCache creates a segment cache over the given store.
func NewSegmentCache(store cache.Store, ttl time.Duration) *SegmentCache {
	return &SegmentCache{store: store, ttl: ttl, now: time.Now}
}

// Get returns the cached segments for key, TTL-gated lazily on read.
// Backend failures are logged and reported as misses.
func (c *SegmentCache) Get(ctx context.Context, key string) (core.Segments, bool) {
	data, err := c.store.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, cache.ErrNotFound) {
			slog.Warn("segment cache read failed, treating as miss", "key", key, "error", err)
		}
		return nil, false
	}

	var entry cacheEntry
	if err := json.Unmarshal(data, &entry); err != nil {
		slog.Warn("segment cache entry corrupt, treating as miss", "key", key, "error", err)
		return nil, false
	}
	if c.now().Sub(entry.CachedAt) > c.ttl {
		return nil, false
	}
	return entry.Segments.Normalize(), true
}

// Put stores segments under key. Entirely empty results are rejected: a
// call that errored, timed out, or genuinely returned no signal must not be
// cached as if "no segments" were a permanent fact. The caller may still use
// the empty result for the current response.
func (c *SegmentCache) Put(ctx context.Context, key string, segs core.Segments) error {
	if segs.Empty() {
		slog.Debug("skipping segment cache write for empty result", "key", key)
		return nil
	}

	entry := cacheEntry{
		Key:      key,
		Segments: segs.Normalize(),
		CachedAt: c.now(),
	}
	data, err := json.Marshal(&entry)
	if err != nil {
		return fmt.Errorf("failed to marshal segment entry: %w", err)
	}
	if err := c.store.Set(ctx, key, data); err != nil {
		return core.NewCacheError("segment cache write failed", err)
	}
	return nil
}
