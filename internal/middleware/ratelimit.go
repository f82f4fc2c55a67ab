package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
)

type rateLimiter struct {
	requests map[string][]time.Time
	mu       sync.RWMutex
	window   time.Duration
	max      int
}

func newRateLimiter(window time.Duration, max int) *rateLimiter {
	rl := &rateLimiter{
		requests: make(map[string][]time.Time),
		window:   window,
		max:      max,
	}

	go func() {
		ticker := time.NewTicker(time.Minute)
		for range ticker.C {
			rl.cleanup()
		}
	}()

	return rl
}

func (rl *rateLimiter) cleanup() {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	cutoff := time.Now().Add(-rl.window)
	for key, times := range rl.requests {
		var valid []time.Time
		for _, t := range times {
			if t.After(cutoff) {
				valid = append(valid, t)
			}
		}
		if len(valid) == 0 {
			delete(rl.requests, key)
		} else {
			rl.requests[key] = valid
		}
	}
}

func (rl *rateLimiter) allow(key string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	cutoff := now.Add(-rl.window)

	var valid []time.Time
	for _, t := range rl.requests[key] {
		if t.After(cutoff) {
			valid = append(valid, t)
		}
	}

	if len(valid) >= rl.max {
		return false
	}

	valid = append(valid, now)
	rl.requests[key] = valid
	return true
}

// AuthRateLimitMiddleware throttles login attempts more tightly than
// general API traffic (20 requests / 15 minutes per client IP).
func AuthRateLimitMiddleware() gin.HandlerFunc {
	limiter := newRateLimiter(15*time.Minute, 20)

	return func(c *gin.Context) {
		if !limiter.allow(c.ClientIP()) {
			c.JSON(http.StatusTooManyRequests, gin.H{"ok": false, "message": "too many requests, try again later"})
			c.Abort()
			return
		}
		c.Next()
	}
}

// APIRateLimitMiddleware throttles general API traffic (100 requests / minute).
func APIRateLimitMiddleware() gin.HandlerFunc {
	limiter := newRateLimiter(time.Minute, 100)

	return func(c *gin.Context) {
		if !limiter.allow(c.ClientIP()) {
			c.JSON(http.StatusTooManyRequests, gin.H{"ok": false, "message": "too many requests, try again later"})
			c.Abort()
			return
		}
		c.Next()
	}
}
