package predictor

import (
	"math/rand"
	"sync"
)

// FallbackUncertainty is the fixed uncertainty reported for heuristic
// estimates.
const FallbackUncertainty = 0.02

const (
	fallbackJitter  = 0.05 // ±5% perturbation
	fallbackCapRate = 0.06 // guard for a non-positive cap rate
)

// Fallback is the income-capitalization heuristic used when no real
// predictors are available, or when the ensemble computation fails.
type Fallback struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewFallback creates a Fallback seeded from the shared source.
func NewFallback() *Fallback {
	return &Fallback{rng: rand.New(rand.NewSource(rand.Int63()))} //nolint:gosec // statistical jitter, not crypto
}

// Estimate approximates value as NOI / capRate, perturbed with fresh
// randomness per call so repeated degraded valuations do not collide.
func (f *Fallback) Estimate(netOperatingIncome, capRate float64) float64 {
	if capRate <= 0 {
		capRate = fallbackCapRate
	}
	base := netOperatingIncome / capRate

	f.mu.Lock()
	jitter := 1 - fallbackJitter + 2*fallbackJitter*f.rng.Float64()
	f.mu.Unlock()

	return base * jitter
}
