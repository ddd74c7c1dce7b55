// Package asr implements the HTTP client for the remote speech-recognition
// provider. The provider's response shape varies by deployment, so decoding
// runs an ordered list of extraction strategies and the first hit wins.
package asr

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
	"strings"
	"time"
)

const (
	// maxBodyExcerpt bounds how much of an upstream error body is kept.
	maxBodyExcerpt = 400

	defaultTimeout = 120 * time.Second
)

// ProviderError reports a non-success response from the transcription
// provider. Whether it is fatal for the whole job is the caller's decision.
type ProviderError struct {
	Status      int
	BodyExcerpt string
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("transcription failed: %d %s", e.Status, e.BodyExcerpt)
}

// Options carries the per-job provider configuration. An empty Token skips
// the Authorization header; an empty Language lets the provider auto-detect.
type Options struct {
	URL      string
	Token    string
	Model    string
	Language string
}

// Client posts audio units to the transcription provider.
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

// Transcribe sends one audio unit and returns its plain-text transcript.
func (c *Client) Transcribe(ctx context.Context, audioPath string, opts Options) (string, error) {
	file, err := os.Open(audioPath)
	if err != nil {
		return "", fmt.Errorf("open audio file: %w", err)
	}
	defer file.Close()

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	part, err := writer.CreateFormFile("file", filepath.Base(audioPath))
	if err != nil {
		return "", fmt.Errorf("create form file: %w", err)
	}
	if _, err := io.Copy(part, file); err != nil {
		return "", fmt.Errorf("copy audio data: %w", err)
	}

	// Keep the source language; never translate.
	if err := writer.WriteField("task", "transcribe"); err != nil {
		return "", fmt.Errorf("write task field: %w", err)
	}
	if opts.Model != "" {
		if err := writer.WriteField("model", opts.Model); err != nil {
			return "", fmt.Errorf("write model field: %w", err)
		}
	}
	if opts.Language != "" {
		if err := writer.WriteField("language", opts.Language); err != nil {
			return "", fmt.Errorf("write language field: %w", err)
		}
	}
	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("close multipart writer: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, opts.URL, body)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	if opts.Token != "" {
		req.Header.Set("Authorization", "Bearer "+opts.Token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("transcription request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read transcription response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", &ProviderError{Status: resp.StatusCode, BodyExcerpt: excerpt(raw)}
	}

	return ExtractText(raw), nil
}

// extraction strategies, tried in order against the decoded response
type extractor func(map[string]json.RawMessage) (string, bool)

var extractors = []extractor{
	extractSegments,
	stringField("transcription"),
	stringField("text"),
	stringField("result"),
}

// ExtractText normalizes the provider's response body into plain text. Bodies
// that are not JSON objects pass through verbatim as the fallback.
func ExtractText(raw []byte) string {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return string(raw)
	}
	for _, extract := range extractors {
		if text, ok := extract(fields); ok {
			return text
		}
	}
	return ""
}

// extractSegments joins a "segments" list into one line per segment, carrying
// each segment's embedded speaker label when present.
func extractSegments(fields map[string]json.RawMessage) (string, bool) {
	rawSegments, ok := fields["segments"]
	if !ok {
		return "", false
	}
	var segments []struct {
		Text    string `json:"text"`
		Speaker string `json:"speaker"`
	}
	if err := json.Unmarshal(rawSegments, &segments); err != nil {
		return "", false
	}
	lines := make([]string, 0, len(segments))
	for _, seg := range segments {
		speaker := seg.Speaker
		if speaker == "" {
			speaker = "Speaker"
		}
		lines = append(lines, fmt.Sprintf("[%s] %s", speaker, seg.Text))
	}
	return strings.Join(lines, "\n"), true
}

func stringField(name string) extractor {
	return func(fields map[string]json.RawMessage) (string, bool) {
		raw, ok := fields[name]
		if !ok {
			return "", false
		}
		var value string
		if err := json.Unmarshal(raw, &value); err != nil || value == "" {
			return "", false
		}
		return value, true
	}
}

func excerpt(body []byte) string {
	if len(body) > maxBodyExcerpt {
		body = body[:maxBodyExcerpt]
	}
	return string(body)
}
