// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Provide New(...) to build a Config with defaults.
// - Load layers defaults, an optional YAML file, and environment variables.
package config

import (
	"context"
	"runtime"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// ModelsDir is the directory model artifacts are loaded from.
	ModelsDir string `koanf:"models_dir"`

	// ModelWeights maps artifact file names to their combination weights.
	ModelWeights map[string]float64 `koanf:"model_weights"`

	// RedisAddr points at the cache store. Empty selects the in-process
	// memory store.
	RedisAddr string `koanf:"redis_addr"`

	// CacheTTLSeconds bounds cached valuations.
	CacheTTLSeconds int `koanf:"cache_ttl_seconds"`

	// PostgresDSN points at the persistence store. Empty selects the
	// in-process memory store.
	PostgresDSN string `koanf:"postgres_dsn"`

	// PersistQueueSize bounds the write-behind persistence queue.
	PersistQueueSize int `koanf:"persist_queue_size"`

	// PersistWriters sets the number of persistence writer goroutines.
	PersistWriters int `koanf:"persist_workers"`
}

// New creates a Config with defaults. The context parameter is accepted to
// satisfy the project-wide convention and is reserved for future use.
func New(_ context.Context) *Config {
	return &Config{
		LogLevel:  "info",
		Addr:      ":8090",
		ModelsDir: "models",
		ModelWeights: map[string]float64{
			"gradient_model.json": 0.4,
			"boosted_model.json":  0.4,
			"neural_model.json":   0.2,
		},
		RedisAddr:        "",
		CacheTTLSeconds:  3600,
		PostgresDSN:      "",
		PersistQueueSize: 4096,
		PersistWriters:   runtime.NumCPU(),
	}
}
