package features

import "errors"

// Sentinel kinds for feature preparation errors.
var (
	ErrInvalidFeatureValue = errors.New("invalid feature value")
)
