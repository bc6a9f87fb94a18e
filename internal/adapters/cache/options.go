package cache

import (
	"time"

	"github.com/brickfield/appraisal/pkg/logger"
)

// Option applies a configuration option to the Cache.
type Option func(*Cache)

// WithTTL sets the entry time-to-live.
func WithTTL(ttl time.Duration) Option {
	return func(c *Cache) {
		if ttl > 0 {
			c.ttl = ttl
		}
	}
}

// WithLogger sets a custom logger for the Cache.
func WithLogger(log logger.Logger) Option {
	return func(c *Cache) {
		if log != nil {
			c.log = log
		}
	}
}
