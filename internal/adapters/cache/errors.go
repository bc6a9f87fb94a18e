package cache

import "errors"

// Sentinel kinds for cache errors. Store unavailability is always degraded
// to a miss before reaching any caller of the prediction path.
var (
	ErrStoreUnavailable = errors.New("cache store unavailable")
)
