package model

import "time"

// ConfidenceLevel is the fixed confidence level reported with every
// interval. It is a display contract, not a statistical guarantee.
const ConfidenceLevel = 95

// PredictorOutput is one predictor's scalar estimate plus its static weight.
type PredictorOutput struct {
	Name     string
	Estimate float64
	Weight   float64
}

// ConfidenceInterval bounds an ensemble point estimate.
type ConfidenceInterval struct {
	Lower                 float64 `json:"lower"`
	Upper                 float64 `json:"upper"`
	ConfidenceLevel       int     `json:"confidence_level"`
	UncertaintyPercentage float64 `json:"uncertainty_percentage"`
}

// EnsembleResult is the immutable outcome of one valuation. It is cacheable
// as-is; Cached and ProcessingTimeMs are stamped per response.
type EnsembleResult struct {
	PropertyID       string             `json:"property_id,omitempty"`
	PredictedValue   float64            `json:"predicted_value"`
	Interval         ConfidenceInterval `json:"confidence_interval"`
	PricePerSqft     float64            `json:"price_per_sqft"`
	ModelAgreement   float64            `json:"model_agreement"`
	ModelsUsed       int                `json:"models_used"`
	ModelVersion     string             `json:"model_version"`
	ValuationDate    time.Time          `json:"valuation_date"`
	ProcessingTimeMs float64            `json:"processing_time_ms"`
	Cached           bool               `json:"cached"`
}

// BatchItemStatus tags a per-item batch outcome.
type BatchItemStatus string

const (
	BatchItemSuccess BatchItemStatus = "success"
	BatchItemError   BatchItemStatus = "error"
)

// BatchItem is one ordered outcome in a batch: either a valuation or a
// structured failure reason. A failure never aborts the batch.
type BatchItem struct {
	PropertyID string          `json:"property_id,omitempty"`
	Status     BatchItemStatus `json:"status"`
	Valuation  *EnsembleResult `json:"valuation,omitempty"`
	Error      string          `json:"error,omitempty"`
}

// BatchResult aggregates per-item outcomes. Totals accumulate only over
// successful items; Successful + Failed always equals TotalSubmitted.
type BatchResult struct {
	BatchID          string      `json:"batch_id"`
	TotalSubmitted   int         `json:"total_properties"`
	Successful       int         `json:"successful_valuations"`
	Failed           int         `json:"failed_valuations"`
	TotalValue       float64     `json:"total_portfolio_value"`
	AverageValue     float64     `json:"average_property_value"`
	Items            []BatchItem `json:"results"`
	ProcessingTimeMs float64     `json:"processing_time_ms"`
}
