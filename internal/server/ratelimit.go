package server

import (
	"fmt"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// RateLimiter keeps one token bucket per client.
type RateLimiter struct {
	mu       sync.Mutex
	limit    rate.Limit
	burst    int
	limiters map[string]*rate.Limiter
	now      func() time.Time
}

// NewRateLimiter allows requestsPerSecond per client with the given burst.
// A burst below one is raised to one.
func NewRateLimiter(requestsPerSecond float64, burst int) *RateLimiter {
	if burst < 1 {
		burst = 1
	}
	return &RateLimiter{
		limit:    rate.Limit(requestsPerSecond),
		burst:    burst,
		limiters: make(map[string]*rate.Limiter),
		now:      time.Now,
	}
}

// CheckRateLimit consumes a token for clientID or returns a *RateLimitError.
func (rl *RateLimiter) CheckRateLimit(clientID string) error {
	rl.mu.Lock()
	lim, ok := rl.limiters[clientID]
	if !ok {
		lim = rate.NewLimiter(rl.limit, rl.burst)
		rl.limiters[clientID] = lim
	}
	rl.mu.Unlock()

	now := rl.now()
	if lim.AllowN(now, 1) {
		return nil
	}
	return &RateLimitError{
		Limit:      float64(rl.limit),
		Burst:      rl.burst,
		RetryAfter: retryAfter(rl.limit),
	}
}

// Clients returns the number of tracked clients.
func (rl *RateLimiter) Clients() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.limiters)
}

func retryAfter(limit rate.Limit) time.Duration {
	if limit <= 0 {
		return time.Second
	}
	d := time.Duration(float64(time.Second) / float64(limit))
	if d < time.Second {
		return time.Second
	}
	return d
}

// RateLimitError represents a rate limit violation.
type RateLimitError struct {
	Limit      float64       // requests per second
	Burst      int           // bucket size
	RetryAfter time.Duration // how long to wait before retrying
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rate limit exceeded (limit: %.2f/s, burst: %d, retry after: %v)", e.Limit, e.Burst, e.RetryAfter)
}
