package domain

import (
	"context"
	"errors"
	"time"
)

// ErrCacheMiss is returned by a SharedAuthDataStore when the key is absent.
var ErrCacheMiss = errors.New("auth data not found in shared cache")

// SharedAuthDataStore is the optional second-level cache for AuthData,
// shared across relay replicas (Redis-backed in production). The in-process
// LRU remains authoritative for the single-fetch guarantee; this store only
// saves auth-server exchanges after a replica restart or across pods.
type SharedAuthDataStore interface {
	// Get retrieves AuthData for a key, or ErrCacheMiss.
	Get(ctx context.Context, key string) (AuthData, error)

	// Set stores AuthData under key with a TTL.
	Set(ctx context.Context, key string, data AuthData, ttl time.Duration) error
}
