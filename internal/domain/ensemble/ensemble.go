// Package ensemble merges predictor outputs into a point estimate with a
// bounded uncertainty interval.
package ensemble

import (
	"fmt"
	"math"
	"time"

	"github.com/brickfield/appraisal/internal/domain/model"
)

// ModelVersion tags results produced by the weighted ensemble path;
// FallbackModelVersion tags heuristic results.
const (
	ModelVersion         = "v1.1.0"
	FallbackModelVersion = "fallback"
)

// Uncertainty contract constants. These are hand-tuned and preserved as a
// fixed, tested contract; do not adjust without new requirements.
const (
	maxBaseUncertainty  = 0.04
	minTotalUncertainty = 0.015
	maxTotalUncertainty = 0.04
	calibrationFactor   = 1.05

	occupancyPenaltyThreshold = 0.7
	occupancyPenaltyRate      = 0.05

	agePenaltyThreshold = 50.0
	agePenaltyPerYear   = 0.0002
	agePenaltyMax       = 0.01
	agePenaltyDefault   = 10.0

	capRatePenaltyThreshold = 0.12
	capRatePenalty          = 0.005
)

// Combiner computes ensemble results. It is stateless and safe for
// concurrent use.
type Combiner struct{}

// NewCombiner creates a Combiner.
func NewCombiner() *Combiner {
	return &Combiner{}
}

// Combine merges the outputs that produced an estimate into one
// EnsembleResult. Weights are re-normalized over those outputs only.
// Uncertainty penalties read the original request fields, not the feature
// vector. Errors here signal the caller to take the heuristic path; they
// never reach the API boundary.
func (c *Combiner) Combine(outputs []model.PredictorOutput, req *model.ValuationRequest) (model.EnsembleResult, error) {
	if len(outputs) == 0 {
		return model.EnsembleResult{}, ErrNoOutputs
	}

	var weightSum float64
	for _, o := range outputs {
		weightSum += o.Weight
	}
	if weightSum <= 0 {
		return model.EnsembleResult{}, fmt.Errorf("%w: non-positive weight sum", ErrInvalidEstimate)
	}

	var point float64
	for _, o := range outputs {
		point += o.Estimate * (o.Weight / weightSum)
	}
	if point <= 0 || math.IsNaN(point) || math.IsInf(point, 0) {
		return model.EnsembleResult{}, fmt.Errorf("%w: point estimate %v", ErrInvalidEstimate, point)
	}

	var variance float64
	for _, o := range outputs {
		dev := o.Estimate - point
		variance += dev * dev * (o.Weight / weightSum)
	}

	baseUncertainty := math.Min(math.Sqrt(variance)/point, maxBaseUncertainty)
	total := clamp(
		baseUncertainty+featurePenalties(req)*calibrationFactor,
		minTotalUncertainty,
		maxTotalUncertainty,
	)

	return c.build(point, total, len(outputs), ModelVersion, req)
}

// Fallback builds a well-formed result around a heuristic estimate with the
// fixed 2% uncertainty.
func (c *Combiner) Fallback(estimate, uncertainty float64, req *model.ValuationRequest) model.EnsembleResult {
	result, err := c.build(estimate, uncertainty, 0, FallbackModelVersion, req)
	if err != nil {
		// Area was validated upstream; a zero area here still must not
		// escape as a hard failure.
		result = model.EnsembleResult{
			PropertyID:     req.PropertyID,
			PredictedValue: estimate,
			Interval: model.ConfidenceInterval{
				Lower:                 estimate * (1 - uncertainty),
				Upper:                 estimate * (1 + uncertainty),
				ConfidenceLevel:       model.ConfidenceLevel,
				UncertaintyPercentage: round1(uncertainty * 100),
			},
			ModelAgreement: round1(100 - uncertainty*100),
			ModelVersion:   FallbackModelVersion,
			ValuationDate:  time.Now().UTC(),
		}
	}
	return result
}

func (c *Combiner) build(point, uncertainty float64, modelsUsed int, version string, req *model.ValuationRequest) (model.EnsembleResult, error) {
	if req.SquareFeet <= 0 {
		return model.EnsembleResult{}, fmt.Errorf("%w: %d", ErrInvalidArea, req.SquareFeet)
	}

	return model.EnsembleResult{
		PropertyID:     req.PropertyID,
		PredictedValue: point,
		Interval: model.ConfidenceInterval{
			Lower:                 point * (1 - uncertainty),
			Upper:                 point * (1 + uncertainty),
			ConfidenceLevel:       model.ConfidenceLevel,
			UncertaintyPercentage: round1(uncertainty * 100),
		},
		PricePerSqft:   point / float64(req.SquareFeet),
		ModelAgreement: round1(100 - uncertainty*100),
		ModelsUsed:     modelsUsed,
		ModelVersion:   version,
		ValuationDate:  time.Now().UTC(),
	}, nil
}

// featurePenalties accumulates independent, additive, non-negative
// adjustments from the original request fields.
func featurePenalties(req *model.ValuationRequest) float64 {
	var penalty float64

	if req.OccupancyRate < occupancyPenaltyThreshold {
		penalty += (occupancyPenaltyThreshold - req.OccupancyRate) * occupancyPenaltyRate
	}

	age := req.BuildingAgeOrDefault(agePenaltyDefault)
	if age > agePenaltyThreshold {
		penalty += math.Min((age-agePenaltyThreshold)*agePenaltyPerYear, agePenaltyMax)
	}

	if req.CapRate > capRatePenaltyThreshold {
		penalty += capRatePenalty
	}

	return penalty
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(v, hi))
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
