package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/brickfield/appraisal/internal/adapters/cache"
	"github.com/brickfield/appraisal/internal/adapters/fanout"
	"github.com/brickfield/appraisal/internal/adapters/http/api"
	"github.com/brickfield/appraisal/internal/adapters/persistence"
	app "github.com/brickfield/appraisal/internal/app"
	"github.com/brickfield/appraisal/internal/config"
	"github.com/brickfield/appraisal/pkg/logger"
	"github.com/brickfield/appraisal/pkg/metrics"
)

// HTTP server timeout constants.
const (
	readTimeout           = 10 * time.Second
	writeTimeout          = 30 * time.Second
	idleTimeout           = 60 * time.Second
	readHeaderTimeout     = 5 * time.Second
	shutdownTimeout       = 30 * time.Second
	systemMetricsInterval = 10 * time.Second
)

func main() {
	// Disable default Go metrics collection to avoid duplicate metrics.
	// We collect our own custom system metrics instead.
	prometheus.Unregister(collectors.NewGoCollector())
	prometheus.Unregister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	// Initialize logging
	if err := logger.Init(); err != nil {
		// Use stderr for initialization errors since logger isn't available yet
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		return
	}
	defer func() { _ = logger.Sync() }()

	log := logger.Get()

	// Root context with cancel on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Load configuration (defaults -> optional file -> env)
	cfg, err := config.Load(ctx)
	if err != nil {
		os.Stderr.WriteString("failed to load config: " + err.Error() + "\n")
		return
	}

	// Apply configured log level (fallback to info on invalid input)
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		log.Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}

	// Create and start the service with configuration options
	opts := []app.Option{
		app.WithLogger(log),
		app.WithModelsDir(cfg.ModelsDir),
		app.WithModelWeights(cfg.ModelWeights),
		app.WithCacheTTL(time.Duration(cfg.CacheTTLSeconds) * time.Second),
		app.WithPersistQueueSize(cfg.PersistQueueSize),
		app.WithPersistWriters(cfg.PersistWriters),
	}
	if cfg.RedisAddr != "" {
		store := cache.NewRedisStore(cfg.RedisAddr)
		if !store.Ping(ctx) {
			log.Warn(ctx, "redis unreachable; valuations will miss the cache until it recovers",
				logger.String("addr", cfg.RedisAddr))
		}
		opts = append(opts, app.WithCacheStore(store))
		log.Info(ctx, "using redis cache store", logger.String("addr", cfg.RedisAddr))
	}
	if cfg.PostgresDSN != "" {
		store, err := persistence.NewPostgresStore(cfg.PostgresDSN)
		if err != nil {
			os.Stderr.WriteString("failed to open postgres store: " + err.Error() + "\n")
			return
		}
		opts = append(opts, app.WithPersistStore(store))
		log.Info(ctx, "using postgres persistence store")
	}

	svc := app.New(opts...)
	if err := svc.Start(ctx); err != nil {
		os.Stderr.WriteString("failed to start service: " + err.Error() + "\n")
		return
	}
	defer svc.Stop()

	// Start system metrics updater
	go startSystemMetricsUpdater(ctx)

	// HTTP mux and routes.
	mux := http.NewServeMux()

	// Prometheus metrics from the custom registry.
	mux.Handle("/metrics", metrics.Handler())

	// Live valuation updates over WebSocket.
	mux.HandleFunc("/ws", fanout.Handler(svc.Fanout()))

	// Register business API routes with the service dependency.
	apiServer := api.NewServer(svc, svc)
	apiServer.Register(ctx, mux)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           mux,
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	// Start the HTTP server
	go func() {
		log.Info(ctx, "starting HTTP server", logger.String("addr", cfg.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			os.Stderr.WriteString("HTTP server failed: " + err.Error() + "\n")
			return
		}
	}()

	// Wait for shutdown signal
	<-ctx.Done()
	log.Info(ctx, "shutting down server...")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error(ctx, "server shutdown failed", logger.Error(err))
	}

	log.Info(ctx, "server stopped")
}

// startSystemMetricsUpdater starts a background goroutine that updates system metrics.
func startSystemMetricsUpdater(ctx context.Context) {
	ticker := time.NewTicker(systemMetricsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			updateSystemMetrics()
		}
	}
}

// updateSystemMetrics updates system-level metrics.
func updateSystemMetrics() {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	metrics.UpdateSystemMemoryUsage(m.Alloc)
	metrics.UpdateSystemGoroutineCount(runtime.NumGoroutine())
}
