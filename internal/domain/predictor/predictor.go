// Package predictor loads fitted regression predictors and exposes them as
// an immutable, concurrently readable set.
package predictor

import (
	"encoding/json"
	"fmt"
	"os"
)

// Predictor exposes one fitted model's estimate capability. Implementations
// must be safe for concurrent use after construction.
type Predictor interface {
	// Name identifies the predictor in outputs and logs.
	Name() string

	// Weight is the static combination weight assigned to this predictor.
	Weight() float64

	// Predict returns a scalar estimate for an ordered feature vector.
	Predict(vec []float64) (float64, error)
}

// artifact is the on-disk JSON shape of a fitted model export. The fitting
// pipeline that produces these files is external to this service.
type artifact struct {
	Name         string      `json:"name"`
	Coefficients []float64   `json:"coefficients"`
	Intercept    float64     `json:"intercept"`
	Scaler       *scalerSpec `json:"scaler,omitempty"`
}

// scalerSpec is a standardization transform private to one predictor.
// It is applied only to that predictor's own input.
type scalerSpec struct {
	Mean []float64 `json:"mean"`
	Std  []float64 `json:"std"`
}

func (s *scalerSpec) transform(vec []float64) []float64 {
	out := make([]float64, len(vec))
	for i, v := range vec {
		std := s.Std[i]
		if std == 0 {
			std = 1
		}
		out[i] = (v - s.Mean[i]) / std
	}
	return out
}

// linearPredictor is an artifact-backed predictor computing a weighted sum
// of (optionally standardized) features.
type linearPredictor struct {
	name      string
	weight    float64
	coef      []float64
	intercept float64
	scaler    *scalerSpec
}

func (p *linearPredictor) Name() string    { return p.name }
func (p *linearPredictor) Weight() float64 { return p.weight }

func (p *linearPredictor) Predict(vec []float64) (float64, error) {
	if len(vec) != len(p.coef) {
		return 0, fmt.Errorf("%w: predictor %q expects %d features, got %d",
			ErrVectorLength, p.name, len(p.coef), len(vec))
	}
	in := vec
	if p.scaler != nil {
		in = p.scaler.transform(vec)
	}
	est := p.intercept
	for i, c := range p.coef {
		est += c * in[i]
	}
	return est, nil
}

// loadArtifact reads and validates one model file.
func loadArtifact(path string, weight float64) (Predictor, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read model file: %w", err)
	}

	var a artifact
	if err := json.Unmarshal(data, &a); err != nil {
		return nil, fmt.Errorf("parse model file %s: %w", path, err)
	}
	if len(a.Coefficients) == 0 {
		return nil, fmt.Errorf("%w: %s has no coefficients", ErrMalformedArtifact, path)
	}
	if a.Scaler != nil &&
		(len(a.Scaler.Mean) != len(a.Coefficients) || len(a.Scaler.Std) != len(a.Coefficients)) {
		return nil, fmt.Errorf("%w: %s scaler dimensions do not match coefficients", ErrMalformedArtifact, path)
	}

	return &linearPredictor{
		name:      a.Name,
		weight:    weight,
		coef:      a.Coefficients,
		intercept: a.Intercept,
		scaler:    a.Scaler,
	}, nil
}
