// Package diarize implements the HTTP client for the remote speaker
// diarization provider. Diarization is best-effort enrichment: failures here
// must never abort transcription.
package diarize

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"time"
)

const (
	maxBodyExcerpt = 400

	defaultTimeout = 120 * time.Second
)

// Segment is one speaker-labeled time span. Times are in seconds on the time
// base of the audio unit that was diarized; callers working with chunk files
// offset them to job-absolute time themselves.
type Segment struct {
	Speaker  string  `json:"speaker"`
	Start    float64 `json:"start_time"`
	End      float64 `json:"end_time"`
	Duration float64 `json:"duration"`
}

// ProviderError reports a non-success or malformed diarization response.
type ProviderError struct {
	Status      int
	BodyExcerpt string
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("diarization failed: %d %s", e.Status, e.BodyExcerpt)
}

// Options carries the per-job diarization provider configuration.
type Options struct {
	URL   string
	Token string
}

// Client posts audio units to the diarization provider.
type Client struct {
	httpClient *http.Client
}

// NewClient builds a Client. timeout <= 0 selects the default 120s transport
// timeout.
func NewClient(timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{httpClient: &http.Client{Timeout: timeout}}
}

// Diarize sends one audio unit and returns its speaker segments. The returned
// list is not assumed sorted.
func (c *Client) Diarize(ctx context.Context, audioPath string, opts Options) ([]Segment, error) {
	file, err := os.Open(audioPath)
	if err != nil {
		return nil, fmt.Errorf("open audio file: %w", err)
	}
	defer file.Close()

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	part, err := writer.CreateFormFile("file", filepath.Base(audioPath))
	if err != nil {
		return nil, fmt.Errorf("create form file: %w", err)
	}
	if _, err := io.Copy(part, file); err != nil {
		return nil, fmt.Errorf("copy audio data: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("close multipart writer: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, opts.URL, body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	if opts.Token != "" {
		req.Header.Set("Authorization", "Bearer "+opts.Token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("diarization request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read diarization response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &ProviderError{Status: resp.StatusCode, BodyExcerpt: excerpt(raw)}
	}

	var decoded struct {
		Success  bool      `json:"success"`
		Segments []Segment `json:"segments"`
	}
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return nil, &ProviderError{Status: resp.StatusCode, BodyExcerpt: excerpt(raw)}
	}
	if !decoded.Success {
		return nil, &ProviderError{Status: resp.StatusCode, BodyExcerpt: excerpt(raw)}
	}

	return decoded.Segments, nil
}

func excerpt(body []byte) string {
	if len(body) > maxBodyExcerpt {
		body = body[:maxBodyExcerpt]
	}
	return string(body)
}
