package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/scribeapp/scribe/cmd/server/internal/settings"
	"github.com/scribeapp/scribe/cmd/server/internal/summarize"
)

type summarizePayload struct {
	Transcript string `json:"transcript"`
	Prompt     string `json:"prompt"`
	Style      string `json:"style"`
	Length     string `json:"length"`
}

// HandleSummarize generates a summary from a transcript.
// POST /api/summarize
func HandleSummarize(client *summarize.Client, store *settings.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		var payload summarizePayload
		if err := c.ShouldBindJSON(&payload); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"success": false,
				"message": "invalid request body",
			})
			return
		}

		if strings.TrimSpace(payload.Transcript) == "" {
			c.JSON(http.StatusBadRequest, gin.H{
				"success": false,
				"message": "transcript is required",
			})
			return
		}

		snap := store.Current()
		if snap.SummarizerURL == "" {
			c.JSON(http.StatusBadRequest, gin.H{
				"success": false,
				"message": "Summarization endpoint not configured",
			})
			return
		}

		if payload.Style == "" {
			payload.Style = "concise"
		}
		if payload.Length == "" {
			payload.Length = "short"
		}

		summary, err := client.Summarize(c.Request.Context(), summarize.Request{
			Transcript: payload.Transcript,
			Prompt:     payload.Prompt,
			Style:      payload.Style,
			Length:     payload.Length,
		}, summarize.Options{
			URL:   snap.SummarizerURL,
			Token: snap.SummarizerToken,
			Model: snap.SummarizerModel,
		})
		if err != nil {
			var provErr *summarize.ProviderError
			if errors.As(err, &provErr) {
				c.JSON(http.StatusBadGateway, gin.H{
					"success": false,
					"message": provErr.Error(),
				})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{
				"success": false,
				"message": "summarization failed",
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{"summary": summary})
	}
}
