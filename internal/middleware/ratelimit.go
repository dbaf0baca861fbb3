package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/wrohdewald/gpxity/pkg/response"
)

// rateLimiter counts requests per client in a sliding window.
type rateLimiter struct {
	mu     sync.Mutex
	seen   map[string][]time.Time
	limit  int
	window time.Duration
}

func newRateLimiter(limit int, window time.Duration) *rateLimiter {
	rl := &rateLimiter{
		seen:   make(map[string][]time.Time),
		limit:  limit,
		window: window,
	}
	go rl.expire()
	return rl
}

func (rl *rateLimiter) expire() {
	ticker := time.NewTicker(rl.window)
	defer ticker.Stop()
	for range ticker.C {
		rl.mu.Lock()
		now := time.Now()
		for client, times := range rl.seen {
			if kept := prune(times, now, rl.window); len(kept) == 0 {
				delete(rl.seen, client)
			} else {
				rl.seen[client] = kept
			}
		}
		rl.mu.Unlock()
	}
}

func (rl *rateLimiter) allow(client string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	now := time.Now()
	kept := prune(rl.seen[client], now, rl.window)
	if len(kept) >= rl.limit {
		rl.seen[client] = kept
		return false
	}
	rl.seen[client] = append(kept, now)
	return true
}

func prune(times []time.Time, now time.Time, window time.Duration) []time.Time {
	kept := times[:0]
	for _, t := range times {
		if now.Sub(t) < window {
			kept = append(kept, t)
		}
	}
	return kept
}

// RateLimit rejects clients exceeding limit requests per window.
func RateLimit(limit int, window time.Duration) gin.HandlerFunc {
	limiter := newRateLimiter(limit, window)
	return func(c *gin.Context) {
		if !limiter.allow(c.ClientIP()) {
			response.Error(c, http.StatusTooManyRequests, "rate limit exceeded")
			c.Abort()
			return
		}
		c.Next()
	}
}
