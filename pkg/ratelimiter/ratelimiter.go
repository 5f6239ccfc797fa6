package ratelimiter

import (
	"context"

	"golang.org/x/time/rate"
)

type RateLimiter interface {
	TakeToken() bool
	Wait(ctx context.Context) error
}

// TokenBucket paces outgoing requests. refillRate is tokens per second.
type TokenBucket struct {
	limiter *rate.Limiter
}

func NewTokenBucket(capacity, refillRate int64) *TokenBucket {
	if capacity <= 0 {
		capacity = 1
	}
	if refillRate <= 0 {
		refillRate = 1
	}

	return &TokenBucket{
		limiter: rate.NewLimiter(rate.Limit(refillRate), int(capacity)),
	}
}

// Unlimited returns a bucket that never blocks.
func Unlimited() *TokenBucket {
	return &TokenBucket{limiter: rate.NewLimiter(rate.Inf, 1)}
}

func (tb *TokenBucket) TakeToken() bool {
	return tb.limiter.Allow()
}

// Wait blocks until a token is available or ctx is done.
func (tb *TokenBucket) Wait(ctx context.Context) error {
	return tb.limiter.Wait(ctx)
}
