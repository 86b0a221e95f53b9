package cache

import (
	"context"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// LocalStore implements Store with an in-process expirable LRU.
// This is suitable for single-instance deployments and tests; entries do not
// survive a restart, which is acceptable since a lost entry is only a future
// cache miss.
type LocalStore struct {
	lru *expirable.LRU[string, []byte]
}

const defaultLocalSize = 4096

// NewLocalStore creates an in-process store for one namespace.
func NewLocalStore(cfg Config) *LocalStore {
	size := cfg.LocalSize
	if size <= 0 {
		size = defaultLocalSize
	}
	return &LocalStore{
		lru: expirable.NewLRU[string, []byte](size, nil, cfg.TTL),
	}
}

// Get retrieves a value from the LRU.
func (s *LocalStore) Get(_ context.Context, key string) ([]byte, error) {
	if value, ok := s.lru.Get(key); ok {
		return value, nil
	}
	return nil, ErrNotFound
}

// Set stores a value in the LRU, overwriting any previous value.
func (s *LocalStore) Set(_ context.Context, key string, value []byte) error {
	s.lru.Add(key, value)
	return nil
}
