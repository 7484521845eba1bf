package middleware

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/velopay/walletd/internal/adapters/http/common"
)

// RateLimit bounds requests per client IP with a fixed window counter.
// Limits are per process; a multi-instance deployment multiplies the
// effective limit by the instance count.
func RateLimit(limit int, window time.Duration) gin.HandlerFunc {
	if limit <= 0 {
		limit = 100
	}
	if window <= 0 {
		window = time.Minute
	}
	limiter := &rateLimiter{
		limit:   limit,
		window:  window,
		buckets: make(map[string]*rateBucket),
	}

	return func(c *gin.Context) {
		allowed, remaining, retryAfter := limiter.allow(c.ClientIP())

		c.Header("X-RateLimit-Limit", strconv.Itoa(limit))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(remaining))
		c.Header("X-RateLimit-Reset", strconv.FormatInt(time.Now().Add(retryAfter).Unix(), 10))

		if !allowed {
			retrySeconds := int(retryAfter.Seconds())
			if retrySeconds < 1 {
				retrySeconds = 1
			}
			c.Header("Retry-After", strconv.Itoa(retrySeconds))
			common.Error(c, http.StatusTooManyRequests, &common.APIError{
				Code:    "TOO_MANY_REQUESTS",
				Message: "rate limit exceeded, retry later",
			})
			c.Abort()
			return
		}

		c.Next()
	}
}

type rateLimiter struct {
	mu      sync.Mutex
	limit   int
	window  time.Duration
	buckets map[string]*rateBucket
}

type rateBucket struct {
	remaining   int
	windowStart time.Time
}

func (rl *rateLimiter) allow(key string) (bool, int, time.Duration) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	b, ok := rl.buckets[key]
	if !ok || now.Sub(b.windowStart) >= rl.window {
		rl.evictStale(now)
		b = &rateBucket{remaining: rl.limit, windowStart: now}
		rl.buckets[key] = b
	}

	retryAfter := rl.window - now.Sub(b.windowStart)
	if b.remaining <= 0 {
		return false, 0, retryAfter
	}
	b.remaining--
	return true, b.remaining, retryAfter
}

// evictStale drops buckets whose window ended more than one window ago.
// Runs under the mutex, only on the bucket-creation path.
func (rl *rateLimiter) evictStale(now time.Time) {
	for key, b := range rl.buckets {
		if now.Sub(b.windowStart) >= 2*rl.window {
			delete(rl.buckets, key)
		}
	}
}
