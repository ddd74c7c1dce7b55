package summarize

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

func TestSummarize(t *testing.T) {
	t.Run("sends chat payload and decodes the completion", func(t *testing.T) {
		var got chatPayload
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
				t.Errorf("decode payload: %v", err)
			}
			if auth := r.Header.Get("Authorization"); auth != "Bearer sum-tok" {
				t.Errorf("auth = %q", auth)
			}
			w.Write([]byte(`{"choices":[{"message":{"content":"the summary"}}]}`))
		}))
		defer srv.Close()

		client := NewClient(5 * time.Second)
		summary, err := client.Summarize(context.Background(), Request{
			Transcript: "Speaker 1 [00:00:00] hello",
			Prompt:     "Focus on decisions",
			Style:      "concise",
			Length:     "short",
		}, Options{URL: srv.URL, Token: "sum-tok", Model: "gpt-test"})
		if err != nil {
			t.Fatalf("Summarize() failed: %v", err)
		}
		if summary != "the summary" {
			t.Errorf("summary = %q", summary)
		}

		if got.Model != "gpt-test" {
			t.Errorf("model = %q", got.Model)
		}
		if len(got.Messages) != 2 || got.Messages[0].Role != "system" || got.Messages[1].Role != "user" {
			t.Fatalf("messages = %+v", got.Messages)
		}
		user := got.Messages[1].Content
		for _, want := range []string{"Focus on decisions", "Speaker 1 [00:00:00] hello", "concise", "short"} {
			if !strings.Contains(user, want) {
				t.Errorf("user prompt missing %q:\n%s", want, user)
			}
		}
	})

	t.Run("retries once on transport failure", func(t *testing.T) {
		var calls atomic.Int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if calls.Add(1) == 1 {
				// Kill the connection so the client sees a transport error.
				hj, ok := w.(http.Hijacker)
				if !ok {
					t.Fatal("server does not support hijacking")
				}
				conn, _, _ := hj.Hijack()
				conn.Close()
				return
			}
			w.Write([]byte(`{"summary":"second try"}`))
		}))
		defer srv.Close()

		client := NewClient(5 * time.Second)
		summary, err := client.Summarize(context.Background(), Request{Transcript: "t"}, Options{URL: srv.URL})
		if err != nil {
			t.Fatalf("Summarize() failed after retry: %v", err)
		}
		if summary != "second try" {
			t.Errorf("summary = %q", summary)
		}
		if calls.Load() != 2 {
			t.Errorf("calls = %d, want 2", calls.Load())
		}
	})

	t.Run("does not retry on HTTP error status", func(t *testing.T) {
		var calls atomic.Int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls.Add(1)
			w.WriteHeader(http.StatusTooManyRequests)
			w.Write([]byte("slow down"))
		}))
		defer srv.Close()

		client := NewClient(5 * time.Second)
		_, err := client.Summarize(context.Background(), Request{Transcript: "t"}, Options{URL: srv.URL})

		var provErr *ProviderError
		if !errors.As(err, &provErr) {
			t.Fatalf("error = %v, want ProviderError", err)
		}
		if provErr.Status != http.StatusTooManyRequests {
			t.Errorf("Status = %d, want 429", provErr.Status)
		}
		if calls.Load() != 1 {
			t.Errorf("calls = %d, want 1 (no retry on status errors)", calls.Load())
		}
	})
}

func TestExtractSummary(t *testing.T) {
	cases := []struct {
		name string
		raw  string
		want string
	}{
		{"chat message content", `{"choices":[{"message":{"content":"a"}}]}`, "a"},
		{"choice text fallback", `{"choices":[{"text":"b"}]}`, "b"},
		{"summary field", `{"summary":"c"}`, "c"},
		{"result field", `{"result":"d"}`, "d"},
		{"text field", `{"text":"e"}`, "e"},
		{"summary beats result", `{"result":"d","summary":"c"}`, "c"},
		{"not json", `plain`, ""},
		{"empty object", `{}`, ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := extractSummary([]byte(tc.raw)); got != tc.want {
				t.Errorf("extractSummary(%s) = %q, want %q", tc.raw, got, tc.want)
			}
		})
	}
}
