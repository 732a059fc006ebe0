package ratelimiter

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/time/rate"
)

// RateLimiter enforces a per-minute token budget and a per-minute request
// budget. Both buckets start full and refill continuously.
type RateLimiter struct {
	tokens   *rate.Limiter
	requests *rate.Limiter
}

var _ Limiter = (*RateLimiter)(nil)

// New creates a limiter. A non-positive budget disables that dimension.
func New(tokensPerMinute, requestsPerMinute int) *RateLimiter {
	return &RateLimiter{
		tokens:   perMinute(tokensPerMinute),
		requests: perMinute(requestsPerMinute),
	}
}

func perMinute(n int) *rate.Limiter {
	if n <= 0 {
		return rate.NewLimiter(rate.Inf, 0)
	}
	return rate.NewLimiter(rate.Limit(float64(n)/60), n)
}

// TryConsume consumes tokens and one request if both are available right now.
// Nothing is consumed when either budget is short.
func (rl *RateLimiter) TryConsume(numTokens int) bool {
	now := time.Now()

	tr := rl.tokens.ReserveN(now, numTokens)
	if !tr.OK() || tr.DelayFrom(now) > 0 {
		tr.CancelAt(now)
		return false
	}

	rr := rl.requests.ReserveN(now, 1)
	if !rr.OK() || rr.DelayFrom(now) > 0 {
		rr.CancelAt(now)
		tr.CancelAt(now)
		return false
	}
	return true
}

// TimeUntilAvailable returns how long until the specified tokens would be available.
// This does not consume anything.
func (rl *RateLimiter) TimeUntilAvailable(tokens int) time.Duration {
	now := time.Now()
	return max(delay(rl.tokens, now, tokens), delay(rl.requests, now, 1))
}

func delay(l *rate.Limiter, now time.Time, n int) time.Duration {
	if l.Limit() == rate.Inf {
		return 0
	}
	r := l.ReserveN(now, n)
	if !r.OK() {
		// More than a full bucket; report the time to refill n from empty.
		return time.Duration(float64(n) / float64(l.Limit()) * float64(time.Second))
	}
	d := r.DelayFrom(now)
	r.CancelAt(now)
	return d
}

// WaitAndConsume waits until tokens are available (up to maxWait), then consumes them.
// If maxWait is 0, there is no limit on how long to wait.
// Returns an error if the context is cancelled or maxWait is exceeded.
func (rl *RateLimiter) WaitAndConsume(ctx context.Context, tokens int, maxWait time.Duration) error {
	if tokens > rl.tokens.Burst() && rl.tokens.Limit() != rate.Inf {
		return fmt.Errorf("request needs %d tokens, more than the per-minute budget of %d", tokens, rl.tokens.Burst())
	}

	waitDuration := rl.TimeUntilAvailable(tokens)
	if maxWait > 0 && waitDuration > maxWait {
		return fmt.Errorf("rate limit wait time %v exceeds max wait %v", waitDuration, maxWait)
	}

	if maxWait > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, maxWait)
		defer cancel()
	}

	if err := rl.tokens.WaitN(ctx, tokens); err != nil {
		return fmt.Errorf("waiting for tokens: %w", err)
	}
	if err := rl.requests.Wait(ctx); err != nil {
		return fmt.Errorf("waiting for request slot: %w", err)
	}
	return nil
}
