// Package cache provides content-addressed memoization of valuation
// results over a pluggable byte store.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"

	"github.com/brickfield/appraisal/internal/domain/model"
	"github.com/brickfield/appraisal/pkg/logger"
	"github.com/brickfield/appraisal/pkg/metrics"
)

// DefaultTTL bounds cached valuations.
const DefaultTTL = 3600 * time.Second

const keyPrefix = "valuation:"

// Store is the underlying byte store. Both operations must be safely
// callable when the store is unreachable: absence and failure, never a
// panic or a caller-visible error.
type Store interface {
	// Get returns the stored bytes for key, or false when absent.
	Get(ctx context.Context, key string) ([]byte, bool)

	// Set stores value under key with a TTL. Failure is reported, not raised.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// Fingerprint digests the canonicalized normalized request. Map keys are
// sorted during JSON encoding, so raw-request key order never affects the
// result: two requests normalizing identically always collide.
func Fingerprint(attrs map[string]any) string {
	canonical, err := json.Marshal(attrs) // encoding/json sorts map keys
	if err != nil {
		// Attribute maps only hold strings and floats; this cannot fail in
		// practice, but a degenerate fingerprint must still be stable.
		return ""
	}
	sum := sha256.Sum256(canonical)
	return hex.EncodeToString(sum[:])
}

// Cache memoizes ensemble results by fingerprint. It is best-effort
// throughout: a broken store degrades to "always miss".
type Cache struct {
	store Store
	ttl   time.Duration
	log   logger.Logger
}

// New creates a Cache over the given store.
func New(store Store, opts ...Option) *Cache {
	c := &Cache{
		store: store,
		ttl:   DefaultTTL,
	}

	for _, opt := range opts {
		opt(c)
	}

	if c.log == nil {
		c.log = logger.Get().Named("cache")
	}

	return c
}

// Lookup returns the cached result for a fingerprint, if present and fresh.
// Undecodable entries count as misses.
func (c *Cache) Lookup(ctx context.Context, fingerprint string) (model.EnsembleResult, bool) {
	start := time.Now()
	defer func() {
		metrics.RecordCacheLookupLatency(float64(time.Since(start).Microseconds()) / 1000.0)
	}()

	data, ok := c.store.Get(ctx, keyPrefix+fingerprint)
	if !ok {
		metrics.RecordCacheMiss()
		return model.EnsembleResult{}, false
	}

	var result model.EnsembleResult
	if err := json.Unmarshal(data, &result); err != nil {
		c.log.Warn(ctx, "discarding undecodable cache entry",
			logger.String("fingerprint", fingerprint),
			logger.Error(err),
		)
		metrics.RecordCacheMiss()
		return model.EnsembleResult{}, false
	}

	metrics.RecordCacheHit()
	return result, true
}

// Put stores a result under a fingerprint with the configured TTL.
// Failures are logged and swallowed; callers never see them.
func (c *Cache) Put(ctx context.Context, fingerprint string, result model.EnsembleResult) {
	data, err := json.Marshal(result)
	if err != nil {
		c.log.Warn(ctx, "failed to encode result for caching", logger.Error(err))
		return
	}
	if err := c.store.Set(ctx, keyPrefix+fingerprint, data, c.ttl); err != nil {
		c.log.Warn(ctx, "cache store rejected entry; continuing uncached",
			logger.String("fingerprint", fingerprint),
			logger.Error(err),
		)
		metrics.RecordCacheStoreFailure()
	}
}
