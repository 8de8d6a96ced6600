package server

import (
	"sync"

	"golang.org/x/time/rate"
)

// RateLimiter enforces a per-user token bucket.
type RateLimiter struct {
	mu      sync.Mutex
	users   map[string]*rate.Limiter
	perUser rate.Limit
	burst   int
}

// NewRateLimiter allows perMinute requests per user, with a burst of the same size.
func NewRateLimiter(perMinute int) *RateLimiter {
	burst := perMinute
	if burst < 1 {
		burst = 1
	}
	return &RateLimiter{
		users:   make(map[string]*rate.Limiter),
		perUser: rate.Limit(float64(perMinute) / 60.0),
		burst:   burst,
	}
}

// Allow reports whether userID may make a request now.
func (rl *RateLimiter) Allow(userID string) bool {
	rl.mu.Lock()
	limiter, ok := rl.users[userID]
	if !ok {
		limiter = rate.NewLimiter(rl.perUser, rl.burst)
		rl.users[userID] = limiter
	}
	rl.mu.Unlock()
	return limiter.Allow()
}
