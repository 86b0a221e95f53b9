// Package cache provides the key/value store abstraction backing the relay's
// two cache namespaces (documents and segments). Supports redis for
// multi-instance deployments and an in-process expirable LRU for
// single-instance use and tests.
//
// TTL is a property of the namespace, not of individual entries. All
// operations are single-key get/put with last-writer-wins semantics; there
// are no deletes and no compare-and-swap, so no read-modify-write races can
// occur by construction.
package cache

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned by Get when no live entry exists for the key.
var ErrNotFound = errors.New("cache: entry not found")

// Store defines a single cache namespace. Implementations must be safe for
// concurrent use.
type Store interface {
	// Get retrieves the value for key. Returns ErrNotFound when the key is
	// absent or its namespace TTL has elapsed.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores the value under key, unconditionally overwriting any
	// previous value. The namespace TTL starts from this write.
	Set(ctx context.Context, key string, value []byte) error
}

// Config holds settings shared by store constructors.
type Config struct {
	// Namespace prefixes every key, keeping the document and segment
	// namespaces independent even on a shared backend.
	Namespace string

	// TTL applies to every entry in the namespace.
	TTL time.Duration

	// LocalSize caps entry count for the in-process backend; ignored by redis.
	LocalSize int
}
