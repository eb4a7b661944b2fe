package ulango

import (
	"context"
	"time"

	"github.com/mahendradw/ulango/internal/delay"
)

// retryDelayFor computes the backoff before the request's current attempt.
// A per-request DelayFunc wins; otherwise the delay law is
// RetryDelay * retryCount when RetryDelayRise is set, constant RetryDelay
// when it is not.
func retryDelayFor(req *Request) time.Duration {
	if req.RetryDelayFunc != nil {
		return req.RetryDelayFunc(req.retryCount)
	}
	return delay.ForRise(req.RetryDelayRise).Calculate(req.retryCount, req.RetryDelay)
}

// consumeRetry advances the request's retry counter against its budget.
// Returns false when the budget is spent.
func consumeRetry(req *Request) bool {
	if req.retryCount >= req.Retry {
		return false
	}
	req.retryCount++
	return true
}

// waitRetryDelay sleeps for d honoring context cancellation.
func waitRetryDelay(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
