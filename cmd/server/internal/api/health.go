// Package api contains the gin handlers for the transcription backend.
package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// HandleHealth reports liveness.
// GET /health
func HandleHealth(startTime time.Time) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":     "ok",
			"uptime_sec": int(time.Since(startTime).Seconds()),
		})
	}
}
