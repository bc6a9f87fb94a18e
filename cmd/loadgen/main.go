package main

import (
	"context"
	"flag"
	"os"
	"runtime"
	"time"

	"github.com/brickfield/appraisal/internal/loadgen"
	"github.com/brickfield/appraisal/pkg/logger"
)

// Default configuration constants.
const (
	defaultNumRequests  = 1000
	defaultBatchSize    = 25
	defaultCacheReplays = 100
	defaultWorkers      = 2 // multiplier for runtime.NumCPU()
	defaultTimeout      = 30 * time.Second
	defaultRunTimeout   = 10 * time.Minute
)

func main() {
	var (
		baseURL      = flag.String("url", "http://localhost:8090", "Base URL of the service")
		numRequests  = flag.Int("requests", defaultNumRequests, "Number of single valuations to submit")
		batchSize    = flag.Int("batch", defaultBatchSize, "Properties in the closing batch request (0 disables)")
		cacheReplays = flag.Int("replays", defaultCacheReplays, "Requests to resubmit verbatim to exercise the cache")
		workers      = flag.Int("workers", runtime.NumCPU()*defaultWorkers, "Number of concurrent workers")
		timeout      = flag.Duration("timeout", defaultTimeout, "HTTP request timeout")
		verbose      = flag.Bool("verbose", false, "Enable verbose logging")
	)
	flag.Parse()

	if err := logger.Init(); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	if *verbose {
		_ = logger.SetLevelString("debug")
	}

	ctx, cancel := context.WithTimeout(context.Background(), defaultRunTimeout)
	defer cancel()

	cfg := &loadgen.Config{
		BaseURL:      *baseURL,
		NumRequests:  *numRequests,
		BatchSize:    *batchSize,
		CacheReplays: *cacheReplays,
		Workers:      *workers,
		Timeout:      *timeout,
		Verbose:      *verbose,
	}

	if _, err := loadgen.Run(ctx, cfg); err != nil {
		os.Stderr.WriteString("load run failed: " + err.Error() + "\n")
		os.Exit(1)
	}
}
