// Package settings holds the runtime-editable provider endpoints (speech
// recognition, diarization, summarization). Updates replace the whole
// snapshot atomically so a job started under one configuration never
// observes a half-applied newer one.
package settings

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// Snapshot is one immutable view of the provider configuration. Jobs capture
// a Snapshot at start and keep it for their whole lifetime.
type Snapshot struct {
	WhisperURL      string `json:"WHISPER_API_URL"`
	WhisperToken    string `json:"WHISPER_API_TOKEN"`
	WhisperModel    string `json:"WHISPER_MODEL_NAME"`
	DiarizerURL     string `json:"DIARIZER_API_URL"`
	DiarizerToken   string `json:"DIARIZER_API_TOKEN"`
	SummarizerURL   string `json:"SUMMARIZER_API_URL"`
	SummarizerToken string `json:"SUMMARIZER_API_TOKEN"`
	SummarizerModel string `json:"SUMMARIZER_MODEL_NAME"`
}

// DefaultWhisperModel is used when no model was configured.
const DefaultWhisperModel = "whisper-large-v3"

// Store owns the current Snapshot and its JSON file persistence.
type Store struct {
	path string

	mu      sync.RWMutex
	current Snapshot
}

// NewStore creates a Store backed by the JSON file at path, loading the
// persisted snapshot when the file exists. A missing file is not an error;
// the store starts with defaults.
func NewStore(path string) (*Store, error) {
	s := &Store{
		path:    path,
		current: Snapshot{WhisperModel: DefaultWhisperModel},
	}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read settings file: %w", err)
	}

	var loaded Snapshot
	if err := json.Unmarshal(data, &loaded); err != nil {
		return nil, fmt.Errorf("parse settings file %s: %w", path, err)
	}
	if loaded.WhisperModel == "" {
		loaded.WhisperModel = DefaultWhisperModel
	}
	s.current = loaded
	return s, nil
}

// Current returns the active snapshot by value.
func (s *Store) Current() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// Replace swaps in a new snapshot and persists it.
func (s *Store) Replace(next Snapshot) error {
	if next.WhisperModel == "" {
		next.WhisperModel = DefaultWhisperModel
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.persist(next); err != nil {
		return err
	}
	s.current = next
	return nil
}

func (s *Store) persist(snap Snapshot) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("create settings dir: %w", err)
	}
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal settings: %w", err)
	}
	if err := os.WriteFile(s.path, data, 0o644); err != nil {
		return fmt.Errorf("write settings file: %w", err)
	}
	return nil
}

// Mask replaces a secret with "***" for API responses, keeping empty values
// empty so the UI can tell "unset" from "set".
func Mask(secret string) string {
	if secret == "" {
		return ""
	}
	return "***"
}
