package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"mbs-coding-api/internal/config"
	"mbs-coding-api/internal/infrastructure/persistence/redis"
)

// RateLimit 限流中间件，按客户端 IP 限流
// 限流器故障时放行，避免影响业务
func RateLimit(cfg config.RateLimitConfig, limiter *redis.RateLimiter) gin.HandlerFunc {
	if !cfg.Enabled || limiter == nil {
		return func(c *gin.Context) {
			c.Next()
		}
	}

	return func(c *gin.Context) {
		key := redis.BuildRateLimitKey("http", c.ClientIP())

		allowed, err := limiter.Allow(c.Request.Context(), key)
		if err != nil {
			c.Next()
			return
		}

		if !allowed {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"code":     http.StatusTooManyRequests,
				"message":  "rate limit exceeded",
				"trace_id": c.GetString("trace_id"),
			})
			return
		}

		c.Next()
	}
}
