package providers

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// RateLimiter paces outbound LLM requests. The bucket holds one minute of
// requests and starts full. An upstream 429 empties it and holds further
// requests back for one refill interval.
type RateLimiter struct {
	limiter *rate.Limiter
	perMin  int

	mu       sync.Mutex
	consumed int64
	waited   time.Duration
	last429  time.Time
	retryAt  time.Time
}

// RateLimiterStatus reports current limiter state.
type RateLimiterStatus struct {
	TokensAvailable int           `json:"tokens_available"`
	TokensLimit     int           `json:"tokens_limit"`
	TotalConsumed   int64         `json:"total_consumed"`
	TotalWaited     time.Duration `json:"total_waited"`
	Last429Time     time.Time     `json:"last_429_time,omitempty"`
}

// NewRateLimiter allows requestsPerMinute requests per minute. Values <= 0
// mean 60.
func NewRateLimiter(requestsPerMinute int) *RateLimiter {
	if requestsPerMinute <= 0 {
		requestsPerMinute = 60
	}
	return &RateLimiter{
		limiter: rate.NewLimiter(rate.Limit(float64(requestsPerMinute)/60), requestsPerMinute),
		perMin:  requestsPerMinute,
	}
}

// interval is the time one token takes to refill.
func (r *RateLimiter) interval() time.Duration {
	return time.Minute / time.Duration(r.perMin)
}

// Wait blocks until a request may be sent or ctx is done.
func (r *RateLimiter) Wait(ctx context.Context) error {
	start := time.Now()

	r.mu.Lock()
	retryAt := r.retryAt
	r.mu.Unlock()
	if d := time.Until(retryAt); d > 0 {
		t := time.NewTimer(d)
		select {
		case <-ctx.Done():
			t.Stop()
			return ctx.Err()
		case <-t.C:
		}
	}

	if err := r.limiter.Wait(ctx); err != nil {
		return err
	}

	r.mu.Lock()
	r.consumed++
	r.waited += time.Since(start)
	r.mu.Unlock()
	return nil
}

// TryConsume takes a token without blocking.
func (r *RateLimiter) TryConsume() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if time.Now().Before(r.retryAt) || !r.limiter.Allow() {
		return false
	}
	r.consumed++
	return true
}

// Record429 empties the bucket after the upstream rejected a request.
func (r *RateLimiter) Record429() {
	now := time.Now()
	if n := int(r.limiter.TokensAt(now)); n > 0 {
		r.limiter.AllowN(now, n)
	}

	r.mu.Lock()
	r.last429 = now
	r.retryAt = now.Add(r.interval())
	r.mu.Unlock()
}

// Status returns current limiter status.
func (r *RateLimiter) Status() RateLimiterStatus {
	r.mu.Lock()
	defer r.mu.Unlock()
	return RateLimiterStatus{
		TokensAvailable: max(0, int(r.limiter.Tokens())),
		TokensLimit:     r.perMin,
		TotalConsumed:   r.consumed,
		TotalWaited:     r.waited,
		Last429Time:     r.last429,
	}
}
