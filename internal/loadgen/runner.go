package loadgen

import (
	"context"
	"fmt"
	"time"

	"github.com/brickfield/appraisal/pkg/logger"
)

// generatorSeed keeps runs reproducible across invocations.
const generatorSeed = 42

// Run executes a full load pass: health check, single valuations, cache
// replays, then one portfolio batch.
func Run(ctx context.Context, cfg *Config) (*Stats, error) {
	log := logger.Get()
	stats := &Stats{StartTime: time.Now()}

	c := newClient(cfg.BaseURL, cfg.Timeout)
	if !c.healthy(ctx) {
		return nil, fmt.Errorf("service at %s is not healthy", cfg.BaseURL)
	}

	reqs := generateRequests(ctx, cfg.NumRequests, generatorSeed)
	stats.Generated = len(reqs)

	submitRequests(ctx, cfg, c, reqs, stats)

	// Resubmit a prefix of the run verbatim; these must come back cached.
	if cfg.CacheReplays > 0 {
		replays := reqs[:min(cfg.CacheReplays, len(reqs))]
		log.Info(ctx, "replaying requests to exercise the cache", logger.Int("count", len(replays)))

		before := stats.CacheHits
		submitRequests(ctx, cfg, c, replays, stats)
		if stats.CacheHits == before {
			log.Warn(ctx, "no cache hits observed during replay; cache may be unavailable")
		}
	}

	if cfg.BatchSize > 0 {
		batch := generateRequests(ctx, cfg.BatchSize, generatorSeed+1)
		if err := submitBatch(ctx, c, batch, stats); err != nil {
			return nil, err
		}
	}

	stats.EndTime = time.Now()
	stats.Duration = stats.EndTime.Sub(stats.StartTime)

	log.Info(ctx, "load run complete",
		logger.Int("submitted", stats.Submitted),
		logger.Int("successful", stats.Successful),
		logger.Int("rejected", stats.Rejected),
		logger.Int("failed", stats.Failed),
		logger.Int("cacheHits", stats.CacheHits),
		logger.Int("fallbackResults", stats.FallbackResults),
		logger.Float64("durationSeconds", stats.Duration.Seconds()),
	)

	if stats.Failed > 0 {
		return stats, fmt.Errorf("%d of %d submissions failed", stats.Failed, stats.Submitted)
	}
	return stats, nil
}
