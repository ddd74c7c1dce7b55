package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/scribeapp/scribe/cmd/server/internal/asr"
	"github.com/scribeapp/scribe/cmd/server/internal/media"
	"github.com/scribeapp/scribe/cmd/server/internal/pipeline"
	"github.com/scribeapp/scribe/cmd/server/internal/settings"
)

const (
	// MaxUploadSize bounds one recording upload.
	MaxUploadSize = 500 * 1024 * 1024 // 500MB
)

// HandleTranscribe runs one blocking transcription job.
// POST /api/transcribe (multipart: file, language?, diarization?)
func HandleTranscribe(orch *pipeline.Orchestrator, store *settings.Store, tempDir string) gin.HandlerFunc {
	return func(c *gin.Context) {
		req, cleanup, ok := buildJobRequest(c, store, tempDir)
		if !ok {
			return
		}
		defer cleanup()

		result, err := orch.Run(c.Request.Context(), req)
		if err != nil {
			status, message := jobErrorResponse(err)
			c.JSON(status, gin.H{
				"success": false,
				"message": message,
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"transcript": result.Transcript,
			"duration":   result.DurationSec,
		})
	}
}

// HandleTranscribeStream runs one streaming transcription job over SSE.
// POST /api/transcribe/stream
func HandleTranscribeStream(orch *pipeline.Orchestrator, store *settings.Store, tempDir string) gin.HandlerFunc {
	return func(c *gin.Context) {
		req, cleanup, ok := buildJobRequest(c, store, tempDir)
		if !ok {
			return
		}
		defer cleanup()

		c.Header("Content-Type", "text/event-stream")
		c.Header("Cache-Control", "no-cache")
		c.Header("Connection", "keep-alive")

		emit := func(ev pipeline.Event) error {
			// A gone consumer shows up as a canceled request context; stop
			// issuing work instead of writing into the void.
			if err := c.Request.Context().Err(); err != nil {
				return err
			}
			c.SSEvent(ev.Name, ev.Data)
			c.Writer.Flush()
			return nil
		}

		orch.RunStream(c.Request.Context(), req, emit)
	}
}

// buildJobRequest validates the multipart upload, saves it to a scratch
// file, and assembles the pipeline request with the current settings
// snapshot. On failure the response is already written and ok is false.
func buildJobRequest(c *gin.Context, store *settings.Store, tempDir string) (pipeline.Request, func(), bool) {
	snap := store.Current()
	if snap.WhisperURL == "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"message": "Transcription endpoint not configured",
		})
		return pipeline.Request{}, nil, false
	}

	file, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"message": fmt.Sprintf("missing upload: %v", err),
		})
		return pipeline.Request{}, nil, false
	}
	if file.Size > MaxUploadSize {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{
			"success": false,
			"message": "upload exceeds 500MB limit",
		})
		return pipeline.Request{}, nil, false
	}

	jobID := uuid.NewString()
	inputPath := filepath.Join(tempDir, jobID+uploadExtension(file.Filename, file.Header.Get("Content-Type")))
	if err := c.SaveUploadedFile(file, inputPath); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"message": fmt.Sprintf("failed to save upload: %v", err),
		})
		return pipeline.Request{}, nil, false
	}

	req := pipeline.Request{
		JobID:       jobID,
		InputPath:   inputPath,
		Language:    c.PostForm("language"),
		Diarization: strings.EqualFold(c.PostForm("diarization"), "true"),
		Settings:    snap,
	}
	cleanup := func() { media.Remove(inputPath) }
	return req, cleanup, true
}

// uploadExtension picks a file extension for the saved upload: the
// filename's own extension when present, otherwise a sniff of the content
// type. Browser recordings commonly arrive with neither, hence the webm
// default.
func uploadExtension(filename, contentType string) string {
	if ext := filepath.Ext(filename); ext != "" {
		return ext
	}
	contentType = strings.ToLower(contentType)
	switch {
	case strings.Contains(contentType, "webm"):
		return ".webm"
	case strings.Contains(contentType, "mp4"), strings.Contains(contentType, "video"):
		return ".mp4"
	case strings.Contains(contentType, "wav"):
		return ".wav"
	case strings.Contains(contentType, "mp3"), strings.Contains(contentType, "mpeg"):
		return ".mp3"
	default:
		return ".webm"
	}
}

// jobErrorResponse maps a pipeline failure to an HTTP status and a message
// that does not relay the upstream body beyond its short excerpt.
func jobErrorResponse(err error) (int, string) {
	var normErr *media.NormalizationError
	if errors.As(err, &normErr) {
		return http.StatusInternalServerError, "audio normalization failed"
	}

	var provErr *asr.ProviderError
	if errors.As(err, &provErr) {
		return http.StatusBadGateway, fmt.Sprintf("transcription provider error (status %d)", provErr.Status)
	}

	var durErr *pipeline.InvalidDurationError
	if errors.As(err, &durErr) {
		return http.StatusUnprocessableEntity, "could not determine audio duration"
	}

	if errors.Is(err, context.Canceled) {
		return http.StatusRequestTimeout, "request canceled"
	}

	return http.StatusInternalServerError, "transcription failed"
}
