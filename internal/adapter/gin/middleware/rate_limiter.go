package middleware

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	grpcmiddleware "finance-account-service/internal/adapter/grpc/middleware"
)

// RateLimiter returns a Gin middleware sharing the fixed window counters of the gRPC limiter.
func RateLimiter(limiter *grpcmiddleware.RateLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		if limiter == nil || !limiter.Config().Enabled {
			c.Next()
			return
		}

		key := fmt.Sprintf("%s:%s:%s", c.Request.Method, c.FullPath(), c.ClientIP())
		allowed, count := limiter.Allow(c.Request.Context(), key)

		limit := limiter.Config().MaxRequests()
		remaining := limit - count
		if remaining < 0 {
			remaining = 0
		}
		c.Header("X-RateLimit-Limit", strconv.FormatInt(limit, 10))
		c.Header("X-RateLimit-Remaining", strconv.FormatInt(remaining, 10))

		if !allowed {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error":   "rate_limit_exceeded",
				"message": fmt.Sprintf("Rate limit exceeded: %d requests per %d seconds", limit, limiter.Config().WindowSeconds),
			})
			return
		}

		c.Next()
	}
}
