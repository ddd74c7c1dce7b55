// Package media wraps the external ffmpeg/ffprobe binaries used to normalize
// uploads into mono 16 kHz PCM and to slice chunk files out of them.
package media

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"
)

const (
	// TargetSampleRate is the sample rate every provider call expects.
	TargetSampleRate = 16000
)

// NormalizationError reports a failed or unusable media conversion. It is
// always fatal for the job that triggered it.
type NormalizationError struct {
	Op     string // "convert", "probe" or "cut"
	Path   string
	Detail string
	Err    error
}

func (e *NormalizationError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("media %s failed for %s: %s", e.Op, e.Path, e.Detail)
	}
	return fmt.Sprintf("media %s failed for %s: %v", e.Op, e.Path, e.Err)
}

func (e *NormalizationError) Unwrap() error { return e.Err }

// Normalizer shells out to ffmpeg and ffprobe. Binary paths are configurable
// so containers can mount their own builds.
type Normalizer struct {
	FFmpegPath  string
	FFprobePath string
}

// NewNormalizer returns a Normalizer using the given binary paths, defaulting
// to "ffmpeg"/"ffprobe" on PATH when empty.
func NewNormalizer(ffmpegPath, ffprobePath string) *Normalizer {
	if strings.TrimSpace(ffmpegPath) == "" {
		ffmpegPath = "ffmpeg"
	}
	if strings.TrimSpace(ffprobePath) == "" {
		ffprobePath = "ffprobe"
	}
	return &Normalizer{FFmpegPath: ffmpegPath, FFprobePath: ffprobePath}
}

// Normalize converts an arbitrary audio/video input into a mono 16 kHz PCM
// WAV file at outPath and returns the total duration in seconds. The duration
// must be positive; anything else is a NormalizationError.
func (n *Normalizer) Normalize(ctx context.Context, inputPath, outPath string) (float64, error) {
	cmd := exec.CommandContext(ctx, n.FFmpegPath,
		"-y", "-hide_banner", "-loglevel", "error",
		"-i", inputPath,
		"-ac", "1", "-ar", strconv.Itoa(TargetSampleRate),
		"-f", "wav", outPath,
	)
	if output, err := cmd.CombinedOutput(); err != nil {
		return 0, &NormalizationError{Op: "convert", Path: inputPath, Detail: strings.TrimSpace(string(output)), Err: err}
	}

	duration, err := n.Duration(ctx, outPath)
	if err != nil {
		return 0, err
	}
	return duration, nil
}

// Duration returns the duration of an audio file in seconds via ffprobe.
func (n *Normalizer) Duration(ctx context.Context, path string) (float64, error) {
	cmd := exec.CommandContext(ctx, n.FFprobePath,
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		path,
	)
	out, err := cmd.Output()
	if err != nil {
		return 0, &NormalizationError{Op: "probe", Path: path, Err: err}
	}

	duration, err := strconv.ParseFloat(strings.TrimSpace(string(out)), 64)
	if err != nil {
		return 0, &NormalizationError{Op: "probe", Path: path, Detail: "unparsable duration: " + strings.TrimSpace(string(out)), Err: err}
	}
	if duration <= 0 {
		return 0, &NormalizationError{Op: "probe", Path: path, Detail: fmt.Sprintf("non-positive duration %.3f", duration)}
	}
	return duration, nil
}

// Cut extracts [startSec, startSec+lengthSec) from a normalized WAV file into
// outPath, re-encoded as mono 16 kHz. The final chunk of a file may come out
// shorter than lengthSec; ffmpeg stops at end of input and no padding is added.
func (n *Normalizer) Cut(ctx context.Context, wavPath string, startSec, lengthSec float64, outPath string) error {
	cmd := exec.CommandContext(ctx, n.FFmpegPath,
		"-y", "-hide_banner", "-loglevel", "error",
		"-ss", formatSeconds(startSec),
		"-i", wavPath,
		"-t", formatSeconds(lengthSec),
		"-ac", "1", "-ar", strconv.Itoa(TargetSampleRate),
		"-f", "wav", outPath,
	)
	if output, err := cmd.CombinedOutput(); err != nil {
		return &NormalizationError{Op: "cut", Path: wavPath, Detail: strings.TrimSpace(string(output)), Err: err}
	}
	return nil
}

// Remove deletes a temp file, ignoring files that are already gone.
func Remove(path string) {
	if path == "" {
		return
	}
	_ = os.Remove(path)
}

func formatSeconds(sec float64) string {
	return strconv.FormatFloat(sec, 'f', 3, 64)
}
