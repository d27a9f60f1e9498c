package middleware

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/emilythestrangee/storymap/backend/internal/metrics"
)

// Limiter is satisfied by *cache.RedisCache.
type Limiter interface {
	AllowRequest(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}

// RateLimit caps how often one caller may hit an action. It must run after
// an auth middleware; anonymous callers are keyed by client IP. Limiter
// failures let the request through.
func RateLimit(l Limiter, action string, limit int, window time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		if l == nil || limit <= 0 {
			c.Next()
			return
		}

		who := c.ClientIP()
		if actor := ActorFrom(c); actor.Authenticated() {
			who = fmt.Sprintf("u%d", actor.UserID)
		}
		key := fmt.Sprintf("rate:limit:%s:%s", who, action)

		allowed, err := l.AllowRequest(c.Request.Context(), key, limit, window)
		if err != nil {
			zap.L().Warn("rate limiter unavailable", zap.String("key", key), zap.Error(err))
			c.Next()
			return
		}
		if !allowed {
			metrics.RateLimited.WithLabelValues(action).Inc()
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "Too many requests, please slow down"})
			return
		}
		c.Next()
	}
}
