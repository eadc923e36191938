package discord

import (
	"context"
	"sync"
	"time"
)

// rateLimiter implements a simple sliding window rate limiter
type rateLimiter struct {
	mu          sync.Mutex
	requests    []time.Time
	maxRequests int
	window      time.Duration
}

// newRateLimiter creates a new rate limiter
func newRateLimiter(maxRequests int, window time.Duration) *rateLimiter {
	return &rateLimiter{
		maxRequests: maxRequests,
		window:      window,
		requests:    make([]time.Time, 0, maxRequests),
	}
}

// wait blocks until a request can be made within rate limits, or until the
// context is canceled
func (r *rateLimiter) wait(ctx context.Context) error {
	r.mu.Lock()

	now := time.Now()

	// Clean up old requests outside the window
	cutoff := now.Add(-r.window)
	validRequests := make([]time.Time, 0, r.maxRequests)
	for _, req := range r.requests {
		if req.After(cutoff) {
			validRequests = append(validRequests, req)
		}
	}
	r.requests = validRequests

	// If we're under the limit, allow the request immediately
	if len(r.requests) < r.maxRequests {
		r.requests = append(r.requests, now)
		r.mu.Unlock()
		return nil
	}

	// We need to wait. Calculate when the oldest request will expire
	oldestRequest := r.requests[0]
	waitTime := r.window - now.Sub(oldestRequest)

	// Add a small buffer to ensure the request has actually expired
	waitTime += 10 * time.Millisecond

	// Release the lock before sleeping
	r.mu.Unlock()

	timer := time.NewTimer(waitTime)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
	}

	// Re-acquire lock and record the request
	r.mu.Lock()
	defer r.mu.Unlock()

	// Clean up again after waiting
	now = time.Now()
	cutoff = now.Add(-r.window)
	validRequests = make([]time.Time, 0, r.maxRequests)
	for _, req := range r.requests {
		if req.After(cutoff) {
			validRequests = append(validRequests, req)
		}
	}
	r.requests = validRequests

	// Record this request
	r.requests = append(r.requests, now)

	return nil
}
