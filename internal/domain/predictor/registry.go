package predictor

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	"github.com/brickfield/appraisal/internal/domain/features"
	"github.com/brickfield/appraisal/internal/domain/model"
	"github.com/brickfield/appraisal/pkg/logger"
	"github.com/brickfield/appraisal/pkg/metrics"
)

// ArtifactSpec names one model file and its static combination weight.
type ArtifactSpec struct {
	File   string
	Weight float64
}

// defaultArtifacts mirrors the fitted ensemble layout: two tree-flavored
// models carry more weight than the neural one.
var defaultArtifacts = []ArtifactSpec{
	{File: "gradient_model.json", Weight: 0.4},
	{File: "boosted_model.json", Weight: 0.4},
	{File: "neural_model.json", Weight: 0.2},
}

const metadataFile = "model_metadata.json"

// Registry holds the loaded predictor set. Loading happens once, lazily,
// behind a sync.Once; after that the set is immutable for the process
// lifetime, so concurrent reads never race.
type Registry struct {
	modelsDir string
	specs     []ArtifactSpec
	log       logger.Logger

	loadOnce sync.Once
	loaded   bool

	predictors   []Predictor
	featureNames []string
}

// NewRegistry creates a Registry with configuration options. No models are
// loaded until Load or the first PredictAll call.
func NewRegistry(opts ...Option) *Registry {
	r := &Registry{
		modelsDir:    "models",
		specs:        defaultArtifacts,
		featureNames: features.DefaultFeatures,
	}

	for _, opt := range opts {
		opt(r)
	}

	return r
}

// Load loads every configured artifact exactly once. Each artifact loads
// independently: one failure never prevents the others. Concurrent first
// callers are serialized behind the single load.
func (r *Registry) Load(ctx context.Context) {
	r.loadOnce.Do(func() {
		if r.log == nil {
			r.log = logger.Get().Named("predictor")
		}

		r.loadMetadata(ctx)

		for _, spec := range r.specs {
			path := filepath.Join(r.modelsDir, spec.File)
			p, err := loadArtifact(path, spec.Weight)
			if err != nil {
				r.log.Warn(ctx, "model artifact not loaded",
					logger.String("file", spec.File),
					logger.Error(err),
				)
				continue
			}
			r.predictors = append(r.predictors, p)
			r.log.Info(ctx, "model artifact loaded",
				logger.String("name", p.Name()),
				logger.Float64("weight", p.Weight()),
			)
		}

		r.loaded = true
		metrics.UpdatePredictorsLoaded(len(r.predictors))
		metrics.UpdateRegistryDegraded(len(r.predictors) == 0)

		if len(r.predictors) == 0 {
			r.log.Warn(ctx, "no predictors loaded; running degraded with fallback heuristic")
		}
	})
}

// loadMetadata reads the feature-name list shipped next to the artifacts.
// Absence is fine: the documented default order applies.
func (r *Registry) loadMetadata(ctx context.Context) {
	data, err := os.ReadFile(filepath.Join(r.modelsDir, metadataFile))
	if err != nil {
		r.log.Info(ctx, "no model metadata; using default feature order")
		return
	}
	var meta struct {
		Features []string `json:"features"`
	}
	if err := json.Unmarshal(data, &meta); err != nil || len(meta.Features) == 0 {
		r.log.Warn(ctx, "ignoring malformed model metadata", logger.Error(err))
		return
	}
	r.featureNames = meta.Features
}

// Ready reports whether loading has been attempted. The fallback heuristic
// guarantees full coverage, so readiness does not depend on the outcome.
func (r *Registry) Ready() bool {
	r.Load(context.Background())
	return r.loaded
}

// Degraded reports whether zero predictors loaded.
func (r *Registry) Degraded() bool {
	r.Load(context.Background())
	return len(r.predictors) == 0
}

// Count returns the number of loaded predictors.
func (r *Registry) Count() int {
	r.Load(context.Background())
	return len(r.predictors)
}

// Features returns the ordered feature-name list the predictors expect.
func (r *Registry) Features() []string {
	r.Load(context.Background())
	out := make([]string, len(r.featureNames))
	copy(out, r.featureNames)
	return out
}

// PredictAll runs every loaded predictor over vec and collects the outputs
// that succeeded. A failing predictor is logged and skipped; its weight is
// re-normalized away by the combiner.
func (r *Registry) PredictAll(ctx context.Context, vec []float64) []model.PredictorOutput {
	r.Load(ctx)

	outputs := make([]model.PredictorOutput, 0, len(r.predictors))
	for _, p := range r.predictors {
		est, err := p.Predict(vec)
		if err != nil {
			r.log.Warn(ctx, "predictor failed; excluded from ensemble",
				logger.String("name", p.Name()),
				logger.Error(err),
			)
			continue
		}
		outputs = append(outputs, model.PredictorOutput{
			Name:     p.Name(),
			Estimate: est,
			Weight:   p.Weight(),
		})
	}
	return outputs
}
