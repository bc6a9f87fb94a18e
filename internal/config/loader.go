package config

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Load builds a Config by layering defaults, optional file, and env vars.
// Order of precedence (low -> high):.
//  1. defaults (New(ctx))
//  2. file (YAML) if APPRAISAL_CONFIG is set
//  3. env (prefix APPRAISAL_)
func Load(ctx context.Context) (*Config, error) {
	// Start with defaults
	base := New(ctx)

	k := koanf.New(".")

	// Load from file if provided
	if path := os.Getenv("APPRAISAL_CONFIG"); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
		}
	}

	// Environment variables: APPRAISAL_ADDR, APPRAISAL_MODELS_DIR, ...
	// Map env keys like APPRAISAL_MODELS_DIR -> models_dir (flat keys).
	// Preserve underscores to match koanf tags on the struct.
	envProvider := env.Provider("APPRAISAL_", ".", func(s string) string {
		s = strings.ToLower(s)
		s = strings.TrimPrefix(s, "appraisal_")
		return s
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
	}

	// Unmarshal into a copy
	cfg := *base
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
	}

	// Basic validation
	if cfg.Addr == "" {
		return nil, fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	}
	if cfg.CacheTTLSeconds <= 0 {
		return nil, fmt.Errorf("%w: cache_ttl_seconds must be positive", ErrInvalidConfig)
	}
	if cfg.PersistQueueSize <= 0 {
		return nil, fmt.Errorf("%w: persist_queue_size must be positive", ErrInvalidConfig)
	}
	if cfg.PersistWriters <= 0 {
		return nil, fmt.Errorf("%w: persist_workers must be positive", ErrInvalidConfig)
	}
	for name, w := range cfg.ModelWeights {
		if w < 0 {
			return nil, fmt.Errorf("%w: model weight for %s must not be negative", ErrInvalidConfig, name)
		}
	}
	return &cfg, nil
}
