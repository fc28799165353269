package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"gitlab.com/timkado/api/daisi-token-relay/internal/domain"
)

// AuthDataCacheAdapter implements domain.SharedAuthDataStore using Redis.
// It is the optional second level behind the in-process LRU: entries here
// survive relay restarts and are visible to every replica.
type AuthDataCacheAdapter struct {
	redisClient *redis.Client
	logger      domain.Logger
}

// NewAuthDataCacheAdapter creates a new AuthDataCacheAdapter.
func NewAuthDataCacheAdapter(redisClient *redis.Client, logger domain.Logger) *AuthDataCacheAdapter {
	if redisClient == nil {
		panic("redisClient cannot be nil in NewAuthDataCacheAdapter")
	}
	if logger == nil {
		panic("logger cannot be nil in NewAuthDataCacheAdapter")
	}
	return &AuthDataCacheAdapter{
		redisClient: redisClient,
		logger:      logger,
	}
}

// Get retrieves AuthData from the Redis cache, or domain.ErrCacheMiss.
func (a *AuthDataCacheAdapter) Get(ctx context.Context, key string) (domain.AuthData, error) {
	val, err := a.redisClient.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		a.logger.Debug(ctx, "Shared auth data cache miss", "key", key)
		return nil, domain.ErrCacheMiss
	}
	if err != nil {
		a.logger.Error(ctx, "Failed to get auth data from Redis cache", "key", key, "error", err.Error())
		return nil, fmt.Errorf("redis GET for auth data key '%s' failed: %w", key, err)
	}

	var data domain.AuthData
	if err = json.Unmarshal([]byte(val), &data); err != nil {
		a.logger.Error(ctx, "Failed to unmarshal cached auth data", "key", key, "error", err.Error())
		return nil, fmt.Errorf("failed to unmarshal auth data for key '%s': %w", key, err)
	}

	a.logger.Debug(ctx, "Shared auth data cache hit", "key", key)
	return data, nil
}

// Set stores AuthData in the Redis cache with the given TTL.
func (a *AuthDataCacheAdapter) Set(ctx context.Context, key string, data domain.AuthData, ttl time.Duration) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to marshal auth data for key '%s': %w", key, err)
	}
	if err := a.redisClient.Set(ctx, key, payload, ttl).Err(); err != nil {
		a.logger.Error(ctx, "Failed to set auth data in Redis cache", "key", key, "error", err.Error())
		return fmt.Errorf("redis SET for auth data key '%s' failed: %w", key, err)
	}
	a.logger.Debug(ctx, "Auth data stored in shared cache", "key", key, "ttl", ttl.String())
	return nil
}
