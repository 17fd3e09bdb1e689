package api

import (
	"net/http"
	"time"

	"tripcast-service/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"
)

// RateLimiter keeps one token bucket per client IP. Idle buckets expire.
type RateLimiter struct {
	perMinute int
	limiters  *cache.Cache
	logger    logger.Logger
}

// NewRateLimiter allows perMinute requests per IP with an equal burst
func NewRateLimiter(perMinute int, logger logger.Logger) *RateLimiter {
	return &RateLimiter{
		perMinute: perMinute,
		limiters:  cache.New(10*time.Minute, 10*time.Minute),
		logger:    logger,
	}
}

func (r *RateLimiter) limiterFor(ip string) *rate.Limiter {
	if l, ok := r.limiters.Get(ip); ok {
		r.limiters.SetDefault(ip, l)
		return l.(*rate.Limiter)
	}
	l := rate.NewLimiter(rate.Every(time.Minute/time.Duration(r.perMinute)), r.perMinute)
	if err := r.limiters.Add(ip, l, cache.DefaultExpiration); err != nil {
		if existing, ok := r.limiters.Get(ip); ok {
			return existing.(*rate.Limiter)
		}
	}
	return l
}

// Middleware limits requests per IP address
func (r *RateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if r.perMinute <= 0 {
			c.Next()
			return
		}
		ip := c.ClientIP()
		if !r.limiterFor(ip).Allow() {
			r.logger.Warn("Rate limit exceeded", "ip", ip)
			JSONError(c, http.StatusTooManyRequests, CodeRateLimited, "Rate limit exceeded. Try again later.")
			return
		}
		c.Next()
	}
}

// RequestLogger logs each request with the service logger
func RequestLogger(log logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.Info("HTTP request",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"elapsed", time.Since(start),
			"ip", c.ClientIP())
	}
}
