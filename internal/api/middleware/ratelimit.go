package middleware

import (
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/labstack/echo/v4"
	"golang.org/x/time/rate"

	"github.com/conversia/admin-platform/internal/core/domain"
	"github.com/conversia/admin-platform/internal/metrics"
)

const (
	limiterCacheSize = 10000
	limiterIdleTTL   = 10 * time.Minute
)

// LoginLimiter throttles login attempts per client IP with a token bucket.
// Idle buckets are evicted after ten minutes.
type LoginLimiter struct {
	mu       sync.Mutex
	limiters *expirable.LRU[string, *rate.Limiter]
	limit    rate.Limit
	burst    int
}

func NewLoginLimiter(perMinute, burst int) *LoginLimiter {
	return &LoginLimiter{
		limiters: expirable.NewLRU[string, *rate.Limiter](limiterCacheSize, nil, limiterIdleTTL),
		limit:    rate.Limit(float64(perMinute) / 60),
		burst:    burst,
	}
}

// Allow consumes one token from key's bucket.
func (l *LoginLimiter) Allow(key string) bool {
	l.mu.Lock()
	lim, ok := l.limiters.Get(key)
	if !ok {
		lim = rate.NewLimiter(l.limit, l.burst)
	}
	// Re-adding refreshes the idle TTL.
	l.limiters.Add(key, lim)
	l.mu.Unlock()

	return lim.Allow()
}

// Middleware rejects throttled requests with ErrTooManyRequests.
func (l *LoginLimiter) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if !l.Allow(c.RealIP()) {
				metrics.LoginAttemptsTotal.WithLabelValues("throttled").Inc()
				return domain.ErrTooManyRequests
			}
			return next(c)
		}
	}
}
