package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/scribeapp/scribe/pkg/logger"
)

// RequestLogger tags each request with an ID and writes one access record when
// it completes. The client_ip attribute is the same identity the rate limiter
// keys on, so admitted and rejected traffic correlate in the logs. Requests
// carrying a body (media uploads, transcripts to summarize) also record its
// size.
func RequestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		requestID := uuid.NewString()
		c.Set("request_id", requestID)
		c.Writer.Header().Set("X-Request-ID", requestID)

		c.Next()

		status := c.Writer.Status()
		attrs := []any{
			"request_id", requestID,
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", status,
			"duration_ms", time.Since(start).Milliseconds(),
			"client_ip", c.ClientIP(),
		}
		if c.Request.ContentLength > 0 {
			attrs = append(attrs, "body_bytes", c.Request.ContentLength)
		}

		if status >= 500 {
			logger.L().Error("http_request", attrs...)
			return
		}
		logger.L().Info("http_request", attrs...)
	}
}
