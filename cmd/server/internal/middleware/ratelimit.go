package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/scribeapp/scribe/cmd/server/internal/admission"
	"github.com/scribeapp/scribe/pkg/metrics"
)

// RateLimit rejects a request with 429 before any side effects when the
// client exhausted its sliding-window budget. Client identity is the source
// address.
func RateLimit(limiter *admission.RateLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := limiter.Allow(c.ClientIP()); err != nil {
			metrics.RecordRateLimitRejection()
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"success": false,
				"message": "rate limit exceeded, try again later",
			})
			return
		}
		c.Next()
	}
}
