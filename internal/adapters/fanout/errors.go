package fanout

import "errors"

// Sentinel kinds for fanout errors. A send failure is recovered by removing
// the subscriber; it never aborts the rest of a broadcast.
var (
	ErrSendFailed = errors.New("subscriber send failed")
)
