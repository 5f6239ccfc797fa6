package query

import (
	"context"
	"time"

	apperrors "github.com/amaumene/movieshelf/internal/errors"
)

// retryable reports whether a failed attempt should be repeated.
// Cancellation and contract violations fail immediately.
func retryable(ctx context.Context, err error) bool {
	if ctx.Err() != nil || apperrors.Is(err, context.Canceled) {
		return false
	}
	return apperrors.KindOf(err) != apperrors.KindContract
}

// withRetry runs fn up to retries+1 times, sleeping delay(n) between attempts.
func withRetry[T any](ctx context.Context, retries int, delay func(int) time.Duration, fn func(context.Context) (T, error)) (T, error) {
	var zero T
	for attempt := 0; ; attempt++ {
		v, err := fn(ctx)
		if err == nil {
			return v, nil
		}
		if attempt >= retries || !retryable(ctx, err) {
			return zero, err
		}

		timer := time.NewTimer(delay(attempt))
		select {
		case <-ctx.Done():
			timer.Stop()
			return zero, ctx.Err()
		case <-timer.C:
		}
	}
}
