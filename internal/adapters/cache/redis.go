package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/brickfield/appraisal/pkg/logger"
	"github.com/brickfield/appraisal/pkg/metrics"
)

// RedisStore implements Store over a Redis instance. Every Redis error
// degrades to absence or a reported failure; the caller path never breaks
// because Redis is down.
type RedisStore struct {
	client *redis.Client
	log    logger.Logger
}

// NewRedisStore connects a client to addr. The connection is verified
// lazily per operation, so an unreachable Redis at startup is tolerated.
func NewRedisStore(addr string) *RedisStore {
	return &RedisStore{
		client: redis.NewClient(&redis.Options{Addr: addr}),
		log:    logger.Get().Named("redis"),
	}
}

// Ping checks connectivity. Used by health reporting only.
func (r *RedisStore) Ping(ctx context.Context) bool {
	return r.client.Ping(ctx).Err() == nil
}

// Get returns the bytes stored under key, or false on absence or any error.
func (r *RedisStore) Get(ctx context.Context, key string) ([]byte, bool) {
	val, err := r.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return nil, false
	}
	if err != nil {
		r.log.Debug(ctx, "redis get failed; treating as miss",
			logger.String("key", key),
			logger.Error(err),
		)
		metrics.RecordCacheStoreFailure()
		return nil, false
	}
	return val, true
}

// Set stores value under key with a TTL.
func (r *RedisStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := r.client.Set(ctx, key, value, ttl).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return nil
}

// Close releases the client.
func (r *RedisStore) Close() error {
	if err := r.client.Close(); err != nil {
		return fmt.Errorf("close redis client: %w", err)
	}
	return nil
}
