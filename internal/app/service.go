// Package service provides the core valuation service that implements
// the dependencies required by the HTTP API.
package service

import (
	"context"
	"fmt"
	"runtime"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/brickfield/appraisal/internal/adapters/cache"
	"github.com/brickfield/appraisal/internal/adapters/fanout"
	"github.com/brickfield/appraisal/internal/adapters/persistence"
	"github.com/brickfield/appraisal/internal/domain/ensemble"
	"github.com/brickfield/appraisal/internal/domain/features"
	"github.com/brickfield/appraisal/internal/domain/model"
	"github.com/brickfield/appraisal/internal/domain/predictor"
	"github.com/brickfield/appraisal/pkg/logger"
	"github.com/brickfield/appraisal/pkg/metrics"
)

// Service wires feature preparation, the predictor registry, the ensemble
// combiner, caching, write-behind persistence and live fanout into a single
// valuation pipeline.
type Service struct {
	mu sync.RWMutex

	// Core components
	normalizer *features.Normalizer
	registry   *predictor.Registry
	combiner   *ensemble.Combiner
	heuristic  *predictor.Fallback
	cache      *cache.Cache
	queue      *persistence.Queue
	writers    *persistence.WriterPool
	fanout     *fanout.Manager

	// Configuration
	modelsDir      string
	modelWeights   map[string]float64
	cacheStore     cache.Store
	cacheTTL       time.Duration
	persistStore   persistence.Store
	persistQueue   int
	persistWriters int

	// State
	started   bool
	startedAt time.Time

	// Counters for the stats endpoint. Prometheus carries the full set;
	// these are the handful surfaced over JSON.
	valuationCount atomic.Int64
	fallbackCount  atomic.Int64
	batchCount     atomic.Int64
	cacheHitCount  atomic.Int64

	// Logging
	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithModelsDir sets the directory model artifacts are loaded from.
func WithModelsDir(dir string) Option {
	return func(s *Service) {
		if dir != "" {
			s.modelsDir = dir
		}
	}
}

// WithModelWeights sets artifact file names and their combination weights.
func WithModelWeights(weights map[string]float64) Option {
	return func(s *Service) {
		if len(weights) > 0 {
			s.modelWeights = weights
		}
	}
}

// WithCacheStore sets the backing store for the valuation cache.
func WithCacheStore(store cache.Store) Option {
	return func(s *Service) {
		if store != nil {
			s.cacheStore = store
		}
	}
}

// WithCacheTTL sets how long cached valuations stay fresh.
func WithCacheTTL(ttl time.Duration) Option {
	return func(s *Service) {
		if ttl > 0 {
			s.cacheTTL = ttl
		}
	}
}

// WithPersistStore sets the backing store for valuation records.
func WithPersistStore(store persistence.Store) Option {
	return func(s *Service) {
		if store != nil {
			s.persistStore = store
		}
	}
}

// WithPersistQueueSize bounds the write-behind persistence queue.
func WithPersistQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.persistQueue = size
		}
	}
}

// WithPersistWriters sets the number of persistence writer goroutines.
func WithPersistWriters(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.persistWriters = count
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(log logger.Logger) Option {
	return func(s *Service) {
		if log != nil {
			s.logger = log
		}
	}
}

// New constructs a new Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		modelsDir:      "models",
		cacheTTL:       cache.DefaultTTL,
		persistQueue:   4096,
		persistWriters: runtime.NumCPU(),
		logger:         nil, // Will be replaced when service starts
	}

	// Apply all options
	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Start initializes and starts the service components.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}

	// Initialize logger if not already set
	if s.logger == nil {
		s.logger = logger.Get()
	}

	s.logger.Info(ctx, "starting valuation service...")

	// Initialize components
	s.combiner = ensemble.NewCombiner()
	s.heuristic = predictor.NewFallback()

	registryOpts := []predictor.Option{
		predictor.WithModelsDir(s.modelsDir),
		predictor.WithLogger(s.logger.Named("predictor")),
	}
	if specs := artifactSpecs(s.modelWeights); len(specs) > 0 {
		registryOpts = append(registryOpts, predictor.WithArtifacts(specs))
	}
	s.registry = predictor.NewRegistry(registryOpts...)
	s.registry.Load(ctx)

	// Vectors must follow the feature order the loaded models expect,
	// which model metadata may override.
	s.normalizer = features.NewNormalizer(features.WithFeatures(s.registry.Features()))

	if s.cacheStore == nil {
		s.cacheStore = cache.NewMemoryStore()
		s.logger.Info(ctx, "using in-memory cache store")
	}
	s.cache = cache.New(s.cacheStore,
		cache.WithTTL(s.cacheTTL),
		cache.WithLogger(s.logger.Named("cache")),
	)

	if s.persistStore == nil {
		s.persistStore = persistence.NewMemoryStore()
		s.logger.Info(ctx, "using in-memory persistence store")
	}
	s.queue = persistence.NewQueue(persistence.WithQueueCapacity(s.persistQueue))
	s.writers = persistence.NewWriterPool(s.persistWriters, s.queue, s.persistStore,
		persistence.WithWriterLogger(s.logger.Named("persist")),
	)
	s.writers.Start(ctx)

	s.fanout = fanout.NewManager(fanout.WithLogger(s.logger.Named("fanout")))

	s.started = true
	s.startedAt = time.Now()
	s.logger.Info(ctx, "valuation service started",
		logger.Int("predictors", s.registry.Count()),
		logger.Bool("degraded", s.registry.Degraded()),
		logger.Int("persistWriters", s.persistWriters),
		logger.Int("persistQueueSize", s.persistQueue),
	)

	return nil
}

// Stop gracefully shuts down the service.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}

	s.logger.Info(context.Background(), "stopping valuation service...")

	// Stop the writer pool; it closes the queue and drains remaining jobs.
	if s.writers != nil {
		s.writers.Stop()
	}

	if closer, ok := s.cacheStore.(interface{ Close() error }); ok {
		_ = closer.Close()
	}
	if closer, ok := s.persistStore.(interface{ Close() error }); ok {
		_ = closer.Close()
	}

	s.started = false
	s.logger.Info(context.Background(), "valuation service stopped")
}

// Fanout exposes the live update manager so transports can attach
// subscribers.
func (s *Service) Fanout() *fanout.Manager {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.fanout
}

// Ready reports whether the service has been started.
func (s *Service) Ready() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.started
}

// Degraded reports whether the predictor registry is running on the
// heuristic path only.
func (s *Service) Degraded() bool {
	s.mu.RLock()
	r := s.registry
	s.mu.RUnlock()
	if r == nil {
		return true
	}
	return r.Degraded()
}

// Predict produces a single valuation. Invalid input is the only error the
// caller sees; every downstream failure degrades to the heuristic estimate
// instead of propagating.
func (s *Service) Predict(ctx context.Context, req *model.ValuationRequest) (model.EnsembleResult, error) {
	start := time.Now()

	if err := req.Validate(); err != nil {
		metrics.RecordValuationError()
		return model.EnsembleResult{}, err
	}

	attrs := req.AttributeMap()
	fingerprint := cache.Fingerprint(attrs)

	if cached, ok := s.cache.Lookup(ctx, fingerprint); ok {
		s.cacheHitCount.Add(1)
		cached.Cached = true
		cached.ProcessingTimeMs = elapsedMs(start)
		s.logger.Debug(ctx, "serving cached valuation",
			logger.String("propertyID", req.PropertyID),
			logger.String("fingerprint", fingerprint),
		)
		return cached, nil
	}

	vec, err := s.normalizer.Vector(attrs)
	if err != nil {
		// A present non-numeric value is the caller's fault, like failed
		// validation; only downstream model failures degrade.
		metrics.RecordValuationError()
		return model.EnsembleResult{}, err
	}

	result := s.compute(ctx, req, vec)
	result.ValuationDate = time.Now().UTC()
	result.ProcessingTimeMs = elapsedMs(start)
	result.Cached = false

	s.valuationCount.Add(1)
	metrics.RecordValuation()
	metrics.RecordPredictionLatency(result.ProcessingTimeMs)
	metrics.RecordUncertainty(result.Interval.UncertaintyPercentage)

	s.cache.Put(ctx, fingerprint, result)
	s.queue.Enqueue(ctx, persistence.SaveJob{
		PropertyID: req.PropertyID,
		Result:     result,
		Raw:        attrs,
	})
	s.fanout.Broadcast(ctx, fanout.ValuationUpdate(req.PropertyID, result))

	return result, nil
}

// compute runs the ensemble path and falls back to the heuristic estimate
// when the registry or the combiner cannot produce a result.
func (s *Service) compute(ctx context.Context, req *model.ValuationRequest, vec []float64) model.EnsembleResult {
	outputs := s.registry.PredictAll(ctx, vec)
	result, err := s.combiner.Combine(outputs, req)
	if err == nil {
		return result
	}

	s.logger.Warn(ctx, "ensemble path unavailable, using heuristic estimate",
		logger.String("propertyID", req.PropertyID),
		logger.Error(err),
	)
	s.fallbackCount.Add(1)
	metrics.RecordFallbackValuation()

	estimate := s.heuristic.Estimate(req.NetOperatingIncome, req.CapRate)
	return s.combiner.Fallback(estimate, predictor.FallbackUncertainty, req)
}

// PredictBatch values every property in the slice. One bad property never
// aborts the batch; it is reported as a failed item in order. An empty
// slice yields an empty result with all counters at zero.
func (s *Service) PredictBatch(ctx context.Context, reqs []model.ValuationRequest) (model.BatchResult, error) {
	start := time.Now()

	s.batchCount.Add(1)
	metrics.RecordBatchRequest()
	metrics.RecordBatchItems(len(reqs))

	batch := model.BatchResult{
		BatchID:        newBatchID(),
		TotalSubmitted: len(reqs),
		Items:          make([]model.BatchItem, 0, len(reqs)),
	}

	for i := range reqs {
		req := &reqs[i]
		result, err := s.Predict(ctx, req)
		if err != nil {
			metrics.RecordBatchItemFailure()
			batch.Failed++
			batch.Items = append(batch.Items, model.BatchItem{
				PropertyID: req.PropertyID,
				Status:     model.BatchItemError,
				Error:      err.Error(),
			})
			continue
		}
		batch.Successful++
		batch.TotalValue += result.PredictedValue
		batch.Items = append(batch.Items, model.BatchItem{
			PropertyID: req.PropertyID,
			Status:     model.BatchItemSuccess,
			Valuation:  &result,
		})
	}

	batch.AverageValue = batch.TotalValue / float64(max(batch.Successful, 1))
	batch.ProcessingTimeMs = elapsedMs(start)

	s.logger.Info(ctx, "batch valuation complete",
		logger.String("batchID", batch.BatchID),
		logger.Int("submitted", batch.TotalSubmitted),
		logger.Int("successful", batch.Successful),
		logger.Int("failed", batch.Failed),
	)

	return batch, nil
}

// GetStats returns a snapshot of service level counters for the stats
// endpoint.
func (s *Service) GetStats(ctx context.Context) map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := map[string]any{
		"started":             s.started,
		"total_valuations":    s.valuationCount.Load(),
		"fallback_valuations": s.fallbackCount.Load(),
		"batch_requests":      s.batchCount.Load(),
		"cache_hits":          s.cacheHitCount.Load(),
	}
	if s.started {
		stats["uptime_seconds"] = time.Since(s.startedAt).Seconds()
		stats["predictors_loaded"] = s.registry.Count()
		stats["registry_degraded"] = s.registry.Degraded()
		stats["model_version"] = currentModelVersion(s.registry)
		stats["persist_queue_depth"] = s.queue.Len()
		stats["fanout"] = s.fanout.Stats()
	}
	return stats
}

// currentModelVersion reports which result tag the service is producing.
func currentModelVersion(r *predictor.Registry) string {
	if r.Degraded() {
		return ensemble.FallbackModelVersion
	}
	return ensemble.ModelVersion
}

// artifactSpecs converts a file-to-weight map into a deterministic spec
// slice ordered by file name.
func artifactSpecs(weights map[string]float64) []predictor.ArtifactSpec {
	if len(weights) == 0 {
		return nil
	}
	files := make([]string, 0, len(weights))
	for f := range weights {
		files = append(files, f)
	}
	sort.Strings(files)

	specs := make([]predictor.ArtifactSpec, 0, len(files))
	for _, f := range files {
		specs = append(specs, predictor.ArtifactSpec{File: f, Weight: weights[f]})
	}
	return specs
}

// newBatchID builds an identifier like batch_20260115T120000_1a2b3c4d.
func newBatchID() string {
	return fmt.Sprintf("batch_%s_%s",
		time.Now().UTC().Format("20060102T150405"),
		uuid.NewString()[:8],
	)
}

func elapsedMs(start time.Time) float64 {
	return float64(time.Since(start).Microseconds()) / 1000.0
}
