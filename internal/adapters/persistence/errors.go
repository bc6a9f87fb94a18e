package persistence

import "errors"

// Sentinel kinds for persistence errors. These stay inside the writer
// pipeline; callers of prediction never observe them.
var (
	ErrStoreUnavailable = errors.New("persistence store unavailable")
)
