package middleware

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/pantryscout/backend/internal/cache"
	"github.com/pantryscout/backend/internal/logger"
	"go.uber.org/zap"
)

// RateLimitConfig defines configuration for rate limiting
type RateLimitConfig struct {
	// Window is the time window for rate limiting
	Window time.Duration
	// Limit is the maximum number of requests allowed in the window
	Limit int
	// KeyPrefix namespaces the counters
	KeyPrefix string
}

// RateLimiter is a fixed-window limiter keyed by client IP
type RateLimiter struct {
	store  cache.Store
	config RateLimitConfig
	now    func() time.Time
}

// NewRateLimiter creates a new rate limiter instance
func NewRateLimiter(store cache.Store, config RateLimitConfig) *RateLimiter {
	if config.Window <= 0 {
		config.Window = time.Hour
	}
	return &RateLimiter{store: store, config: config, now: time.Now}
}

// NewGenerateRateLimiter limits recipe generation requests per hour
func NewGenerateRateLimiter(store cache.Store, limit int) *RateLimiter {
	return NewRateLimiter(store, RateLimitConfig{
		Window:    time.Hour,
		Limit:     limit,
		KeyPrefix: "rate_limit:generate",
	})
}

// NewScrapeRateLimiter limits live retailer scrapes per hour
func NewScrapeRateLimiter(store cache.Store, limit int) *RateLimiter {
	return NewRateLimiter(store, RateLimitConfig{
		Window:    time.Hour,
		Limit:     limit,
		KeyPrefix: "rate_limit:scrape",
	})
}

// RateLimitMiddleware returns a Gin middleware that enforces rate limiting.
// A failing counter store lets the request through.
func (rl *RateLimiter) RateLimitMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		allowed, remaining, resetTime, err := rl.IsAllowed(c.Request.Context(), c.ClientIP())
		if err != nil {
			logger.L().Warn("rate limit check failed", zap.String("prefix", rl.config.KeyPrefix), zap.Error(err))
			c.Header("X-RateLimit-Error", "rate limit check failed")
			c.Next()
			return
		}

		c.Header("X-RateLimit-Limit", strconv.Itoa(rl.config.Limit))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(remaining))
		c.Header("X-RateLimit-Reset", strconv.FormatInt(resetTime.Unix(), 10))

		if !allowed {
			retryAfter := int(resetTime.Sub(rl.now()).Seconds())
			c.Header("Retry-After", strconv.Itoa(retryAfter))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error":                "rate limit exceeded",
				"message":              fmt.Sprintf("You have exceeded the rate limit of %d requests per %v", rl.config.Limit, rl.config.Window),
				"rate_limit_remaining": remaining,
				"rate_limit_reset":     resetTime.Unix(),
				"retry_after":          retryAfter,
			})
			return
		}

		c.Next()
	}
}

// IsAllowed counts a request from the given client.
// Returns: allowed, remaining requests, reset time, error
func (rl *RateLimiter) IsAllowed(ctx context.Context, clientID string) (bool, int, time.Time, error) {
	windowStart := rl.now().Truncate(rl.config.Window)
	key := fmt.Sprintf("%s:%s:%d", rl.config.KeyPrefix, clientID, windowStart.Unix())

	count, err := rl.store.Incr(ctx, key, rl.config.Window)
	if err != nil {
		return false, 0, time.Time{}, err
	}

	remaining := rl.config.Limit - int(count)
	if remaining < 0 {
		remaining = 0
	}
	resetTime := windowStart.Add(rl.config.Window)
	return int(count) <= rl.config.Limit, remaining, resetTime, nil
}
