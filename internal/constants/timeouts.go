// Package constants defines timeout values, freshness windows and retry limits used throughout the application.
package constants

import "time"

// Timeout constants for various operations
const (
	// Upper bound for a single metadata API request
	RequestTimeout = 10 * time.Second

	// Delay between the last input change and the search key update
	SearchDebounce = 300 * time.Millisecond

	// Interval of the query cache sweeper
	CacheCleanupInterval = 1 * time.Minute
)

// Freshness and retention windows for cached queries
const (
	ListStaleTime   = 5 * time.Minute
	ListGCTime      = 10 * time.Minute
	DetailStaleTime = 5 * time.Minute
	DetailGCTime    = 10 * time.Minute
	PersonStaleTime = 30 * time.Minute
	PersonGCTime    = 30 * time.Minute

	// Used when a query does not set its own windows
	DefaultStaleTime = 0
	DefaultGCTime    = 5 * time.Minute
)

// Retry policy for failed fetches
const (
	// Additional attempts after the first failure
	MaxFetchRetries = 2

	BaseRetryDelay = 1 * time.Second
	MaxRetryDelay  = 30 * time.Second
)
