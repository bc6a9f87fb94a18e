package ensemble

import "errors"

// Sentinel kinds for ensemble errors. These are recovered locally by the
// fallback path and never surface past the valuation boundary.
var (
	ErrNoOutputs       = errors.New("no predictor outputs")
	ErrInvalidEstimate = errors.New("invalid point estimate")
	ErrInvalidArea     = errors.New("invalid area")
)
