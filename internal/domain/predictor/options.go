package predictor

import "github.com/brickfield/appraisal/pkg/logger"

// Option applies a configuration option to the Registry.
type Option func(*Registry)

// WithModelsDir sets the directory model artifacts are loaded from.
func WithModelsDir(dir string) Option {
	return func(r *Registry) {
		if dir != "" {
			r.modelsDir = dir
		}
	}
}

// WithArtifacts overrides the artifact file list and combination weights.
func WithArtifacts(specs []ArtifactSpec) Option {
	return func(r *Registry) {
		if len(specs) > 0 {
			r.specs = specs
		}
	}
}

// WithLogger sets a custom logger for the Registry.
func WithLogger(log logger.Logger) Option {
	return func(r *Registry) {
		if log != nil {
			r.log = log
		}
	}
}
