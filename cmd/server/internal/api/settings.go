package api

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/scribeapp/scribe/cmd/server/internal/settings"
)

// settingsPayload is the wire shape of the provider settings. Tokens are
// masked on the way out and taken verbatim on the way in.
type settingsPayload struct {
	WhisperURL      string `json:"whisper_url"`
	WhisperToken    string `json:"whisper_token"`
	WhisperModel    string `json:"whisper_model"`
	DiarizerURL     string `json:"diarizer_url"`
	DiarizerToken   string `json:"diarizer_token"`
	SummarizerURL   string `json:"summarizer_url"`
	SummarizerToken string `json:"summarizer_token"`
	SummarizerModel string `json:"summarizer_model"`
}

// HandleGetSettings returns the active provider settings with tokens masked.
// GET /api/settings
func HandleGetSettings(store *settings.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		snap := store.Current()
		c.JSON(http.StatusOK, settingsPayload{
			WhisperURL:      snap.WhisperURL,
			WhisperToken:    settings.Mask(snap.WhisperToken),
			WhisperModel:    snap.WhisperModel,
			DiarizerURL:     snap.DiarizerURL,
			DiarizerToken:   settings.Mask(snap.DiarizerToken),
			SummarizerURL:   snap.SummarizerURL,
			SummarizerToken: settings.Mask(snap.SummarizerToken),
			SummarizerModel: snap.SummarizerModel,
		})
	}
}

// HandleUpdateSettings replaces and persists the provider settings.
// POST /api/settings
func HandleUpdateSettings(store *settings.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		var payload settingsPayload
		if err := c.ShouldBindJSON(&payload); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"success": false,
				"message": fmt.Sprintf("invalid settings payload: %v", err),
			})
			return
		}

		next := settings.Snapshot{
			WhisperURL:      payload.WhisperURL,
			WhisperToken:    payload.WhisperToken,
			WhisperModel:    payload.WhisperModel,
			DiarizerURL:     payload.DiarizerURL,
			DiarizerToken:   payload.DiarizerToken,
			SummarizerURL:   payload.SummarizerURL,
			SummarizerToken: payload.SummarizerToken,
			SummarizerModel: payload.SummarizerModel,
		}
		if err := store.Replace(next); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{
				"success": false,
				"message": fmt.Sprintf("failed to save settings: %v", err),
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"message": "Settings saved",
		})
	}
}
