package media

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"testing"
)

// fakeProbe writes an executable script that prints the given stdout, standing
// in for ffprobe.
func fakeProbe(t *testing.T, stdout string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("fake binaries use shell scripts")
	}
	path := filepath.Join(t.TempDir(), "ffprobe")
	script := "#!/bin/sh\nprintf '%s' '" + stdout + "'\n"
	if err := os.WriteFile(path, []byte(script), 0o755); err != nil {
		t.Fatalf("write fake ffprobe: %v", err)
	}
	return path
}

func TestNewNormalizer(t *testing.T) {
	n := NewNormalizer("", "  ")
	if n.FFmpegPath != "ffmpeg" || n.FFprobePath != "ffprobe" {
		t.Errorf("defaults = %q/%q", n.FFmpegPath, n.FFprobePath)
	}

	n = NewNormalizer("/opt/ffmpeg", "/opt/ffprobe")
	if n.FFmpegPath != "/opt/ffmpeg" || n.FFprobePath != "/opt/ffprobe" {
		t.Errorf("explicit paths = %q/%q", n.FFmpegPath, n.FFprobePath)
	}
}

func TestDuration(t *testing.T) {
	t.Run("parses ffprobe output", func(t *testing.T) {
		n := NewNormalizer("ffmpeg", fakeProbe(t, "137.482000\n"))
		got, err := n.Duration(context.Background(), "whatever.wav")
		if err != nil {
			t.Fatalf("Duration() failed: %v", err)
		}
		if got != 137.482 {
			t.Errorf("Duration() = %g, want 137.482", got)
		}
	})

	t.Run("unparsable output", func(t *testing.T) {
		n := NewNormalizer("ffmpeg", fakeProbe(t, "N/A"))
		_, err := n.Duration(context.Background(), "whatever.wav")
		var normErr *NormalizationError
		if !errors.As(err, &normErr) {
			t.Fatalf("error = %v, want NormalizationError", err)
		}
		if normErr.Op != "probe" {
			t.Errorf("Op = %q, want probe", normErr.Op)
		}
	})

	t.Run("non-positive duration", func(t *testing.T) {
		for _, out := range []string{"0.000000", "-2.5"} {
			n := NewNormalizer("ffmpeg", fakeProbe(t, out))
			_, err := n.Duration(context.Background(), "whatever.wav")
			var normErr *NormalizationError
			if !errors.As(err, &normErr) {
				t.Errorf("output %q: error = %v, want NormalizationError", out, err)
			}
		}
	})

	t.Run("missing binary", func(t *testing.T) {
		n := NewNormalizer("ffmpeg", filepath.Join(t.TempDir(), "no-such-ffprobe"))
		_, err := n.Duration(context.Background(), "whatever.wav")
		var normErr *NormalizationError
		if !errors.As(err, &normErr) {
			t.Fatalf("error = %v, want NormalizationError", err)
		}
	})
}

func TestNormalizationErrorMessage(t *testing.T) {
	withDetail := &NormalizationError{Op: "convert", Path: "in.webm", Detail: "invalid data"}
	if got := withDetail.Error(); got != "media convert failed for in.webm: invalid data" {
		t.Errorf("Error() = %q", got)
	}

	wrapped := errors.New("exit status 1")
	withErr := &NormalizationError{Op: "probe", Path: "a.wav", Err: wrapped}
	if !errors.Is(withErr, wrapped) {
		t.Error("Unwrap() does not expose the cause")
	}
}

func TestRemove(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scratch.wav")
	if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	Remove(path)
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("file still present after Remove")
	}

	// Idempotent on missing files and empty paths.
	Remove(path)
	Remove("")
}
