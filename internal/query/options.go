package query

import (
	"time"

	"github.com/amaumene/movieshelf/internal/constants"
)

// Options controls freshness, retention and retry of a query.
// Start from DefaultOptions: the zero value is a disabled query.
type Options struct {
	// Data younger than StaleTime is served without a network call.
	StaleTime time.Duration
	// GCTime is how long an entry survives after its last observer detaches.
	GCTime time.Duration
	// Retry is the number of additional attempts after a failed fetch.
	Retry int
	// RetryDelay returns the wait before retry attempt n (0-based).
	RetryDelay func(attempt int) time.Duration
	// Enabled gates every automatic fetch.
	Enabled bool
}

func DefaultOptions() Options {
	return Options{
		StaleTime:  constants.DefaultStaleTime,
		GCTime:     constants.DefaultGCTime,
		Retry:      constants.MaxFetchRetries,
		RetryDelay: DefaultRetryDelay,
		Enabled:    true,
	}
}

// DefaultRetryDelay doubles from one second and caps at thirty.
func DefaultRetryDelay(attempt int) time.Duration {
	delay := constants.BaseRetryDelay
	for i := 0; i < attempt; i++ {
		delay *= 2
		if delay >= constants.MaxRetryDelay {
			return constants.MaxRetryDelay
		}
	}
	return delay
}

func (o Options) normalize() Options {
	if o.GCTime <= 0 {
		o.GCTime = constants.DefaultGCTime
	}
	if o.Retry < 0 {
		o.Retry = 0
	}
	if o.RetryDelay == nil {
		o.RetryDelay = DefaultRetryDelay
	}
	return o
}
