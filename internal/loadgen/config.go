package loadgen

import "time"

// Config holds configuration for a load run.
type Config struct {
	BaseURL      string        // Base URL of the service
	NumRequests  int           // Number of single valuations to submit
	BatchSize    int           // Number of properties in the closing batch request
	Workers      int           // Number of concurrent workers
	Timeout      time.Duration // HTTP request timeout
	CacheReplays int           // How many requests to resubmit verbatim to exercise the cache
	Verbose      bool          // Enable verbose logging
}

// Stats holds load run statistics.
type Stats struct {
	Generated       int
	Submitted       int
	Successful      int
	Rejected        int
	Failed          int
	CacheHits       int
	FallbackResults int
	BatchSubmitted  int
	BatchSuccessful int
	BatchFailed     int
	StartTime       time.Time
	EndTime         time.Time
	Duration        time.Duration
}
