package predictor

import "errors"

// Sentinel kinds for predictor errors.
var (
	ErrVectorLength      = errors.New("feature vector length mismatch")
	ErrMalformedArtifact = errors.New("malformed model artifact")
)
