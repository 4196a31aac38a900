package middleware

import (
	"context"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Limiter counts hits per key in a fixed window.
type Limiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, time.Duration, error)
}

// RateLimit limits requests per client IP. Limiter errors let the request
// through.
func RateLimit(l Limiter, name string, limit int, window time.Duration, log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		allowed, retryAfter, err := l.Allow(c.Request.Context(), name+":"+c.ClientIP(), limit, window)
		if err != nil {
			log.Warn("rate limiter unavailable", zap.String("limiter", name), zap.Error(err))
			c.Next()
			return
		}
		if !allowed {
			seconds := int(math.Ceil(retryAfter.Seconds()))
			if seconds < 1 {
				seconds = 1
			}
			c.Header("Retry-After", strconv.Itoa(seconds))
			abort(c, http.StatusTooManyRequests, "Too many requests. Please try again later.", nil)
			return
		}
		c.Next()
	}
}
