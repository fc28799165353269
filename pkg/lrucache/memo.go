package lrucache

import (
	"context"
	"errors"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/singleflight"
)

var ErrInvalidSize = errors.New("cache size must be at least 1")

// Producer computes the value for a key on a cache miss. For the token
// relay this is the auth-server exchange, so it may block on network I/O.
type Producer[K comparable, V any] func(ctx context.Context, key K) (V, error)

// Memo is a bounded, memoizing LRU cache around a fallible producer.
// Lookups of existing keys count as a use and never re-invoke the
// producer; inserting past capacity evicts exactly the least-recently-used
// entry. Only successful producer results are stored.
//
// Concurrent callers for the same uncached key join a single in-flight
// producer call instead of issuing duplicates. The producer runs outside
// the LRU's internal lock, so a slow fetch for one key never blocks
// lookups for other keys.
type Memo[K comparable, V any] struct {
	store   *lru.Cache[K, V]
	flights *singleflight.Group
	produce Producer[K, V]
	keyFn   func(K) string
}

// New creates a Memo of capacity maxSize around produce. keyFn renders a
// key as a string for the in-flight dedup group; keys that render equal
// must compare equal.
func New[K comparable, V any](maxSize int, produce Producer[K, V], keyFn func(K) string) (*Memo[K, V], error) {
	if maxSize < 1 {
		return nil, ErrInvalidSize
	}
	store, err := lru.New[K, V](maxSize)
	if err != nil {
		return nil, err
	}
	return &Memo[K, V]{
		store:   store,
		flights: &singleflight.Group{},
		produce: produce,
		keyFn:   keyFn,
	}, nil
}

// Get returns the cached value for key, invoking the producer at most once
// per distinct uncached key. Producer failures propagate to every waiting
// caller and leave the cache unchanged.
func (m *Memo[K, V]) Get(ctx context.Context, key K) (V, error) {
	if v, ok := m.store.Get(key); ok {
		return v, nil
	}

	v, err, _ := m.flights.Do(m.keyFn(key), func() (any, error) {
		// Re-check under the flight: a previous flight for this key may
		// have populated the store between our miss and Do.
		if v, ok := m.store.Get(key); ok {
			return v, nil
		}
		v, err := m.produce(ctx, key)
		if err != nil {
			return *new(V), err
		}
		m.store.Add(key, v)
		return v, nil
	})
	if err != nil {
		return *new(V), err
	}
	return v.(V), nil
}

// Put stores a value directly, bypassing the producer. Used by tests and
// by warm-start paths.
func (m *Memo[K, V]) Put(key K, value V) {
	m.store.Add(key, value)
}

// Contains reports whether key is cached, without counting as a use.
func (m *Memo[K, V]) Contains(key K) bool {
	return m.store.Contains(key)
}

// Keys returns the cached keys, least-recently-used first.
func (m *Memo[K, V]) Keys() []K {
	return m.store.Keys()
}

// Len returns the number of cached entries.
func (m *Memo[K, V]) Len() int {
	return m.store.Len()
}

// Purge drops every entry.
func (m *Memo[K, V]) Purge() {
	m.store.Purge()
}
