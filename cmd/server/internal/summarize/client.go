// Package summarize calls the text-completion provider to turn a finished
// transcript into a summary. This is a single-shot request/response call;
// none of the pipeline's chunking or admission machinery applies.
package summarize

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

const (
	maxBodyExcerpt = 500

	defaultTimeout = 120 * time.Second
)

const systemPrompt = `You are a helpful assistant that summarizes meeting transcripts.
The transcript may include speaker labels such as [Speaker 1], [Speaker 2], etc.
Preserve speaker context when extracting decisions and action items.`

// Request describes one summarization call.
type Request struct {
	Transcript string
	Prompt     string
	Style      string
	Length     string
}

// Options carries the provider configuration captured from the settings
// snapshot.
type Options struct {
	URL   string
	Token string
	Model string
}

// ProviderError reports a non-success response from the summarizer.
type ProviderError struct {
	Status      int
	BodyExcerpt string
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("summarization failed: %d %s", e.Status, e.BodyExcerpt)
}

// Client posts chat-completion requests to the summarizer provider.
type Client struct {
	httpClient *http.Client
}

// NewClient builds a Client. timeout <= 0 selects the default 120s timeout.
func NewClient(timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{httpClient: &http.Client{Timeout: timeout}}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatPayload struct {
	Model    string        `json:"model,omitempty"`
	Messages []chatMessage `json:"messages"`
}

// Summarize performs the completion call and extracts the summary text.
// Transport-level failures get one retry; HTTP error statuses do not.
func (c *Client) Summarize(ctx context.Context, req Request, opts Options) (string, error) {
	userPrompt := fmt.Sprintf("%s\n\nTranscript:\n%s\n\nPlease produce a %s summary, %s length.",
		req.Prompt, req.Transcript, req.Style, req.Length)

	payload := chatPayload{
		Model: opts.Model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: userPrompt},
		},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal summarize payload: %w", err)
	}

	summary, err := c.post(ctx, body, opts)
	if err != nil && isTransport(err) {
		summary, err = c.post(ctx, body, opts)
	}
	return summary, err
}

func (c *Client) post(ctx context.Context, body []byte, opts Options) (string, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, opts.URL, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if opts.Token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+opts.Token)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("summarize request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read summarize response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", &ProviderError{Status: resp.StatusCode, BodyExcerpt: excerpt(raw)}
	}

	return extractSummary(raw), nil
}

// extractSummary tries the chat-completion shape first, then the flat
// summary/result/text fields.
func extractSummary(raw []byte) string {
	var decoded struct {
		Choices []struct {
			Message *struct {
				Content string `json:"content"`
			} `json:"message"`
			Text string `json:"text"`
		} `json:"choices"`
		Summary string `json:"summary"`
		Result  string `json:"result"`
		Text    string `json:"text"`
	}
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return ""
	}

	if len(decoded.Choices) > 0 {
		choice := decoded.Choices[0]
		if choice.Message != nil {
			return choice.Message.Content
		}
		return choice.Text
	}
	if decoded.Summary != "" {
		return decoded.Summary
	}
	if decoded.Result != "" {
		return decoded.Result
	}
	return decoded.Text
}

// isTransport reports whether the failure happened below the HTTP status
// layer; only those are worth one retry.
func isTransport(err error) bool {
	var providerErr *ProviderError
	return !errors.As(err, &providerErr)
}

func excerpt(body []byte) string {
	if len(body) > maxBodyExcerpt {
		body = body[:maxBodyExcerpt]
	}
	return string(body)
}
