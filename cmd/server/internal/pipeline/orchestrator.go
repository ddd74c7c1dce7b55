// Package pipeline sequences one transcription job end to end: normalization,
// chunk planning, bounded-concurrency dispatch to the transcription and
// diarization providers, fusion, and assembly. Both the blocking and the
// streaming entry points run the same state machine; they differ only in how
// progress leaves the process.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/scribeapp/scribe/cmd/server/internal/admission"
	"github.com/scribeapp/scribe/cmd/server/internal/asr"
	"github.com/scribeapp/scribe/cmd/server/internal/config"
	"github.com/scribeapp/scribe/cmd/server/internal/diarize"
	"github.com/scribeapp/scribe/cmd/server/internal/fusion"
	"github.com/scribeapp/scribe/cmd/server/internal/media"
	"github.com/scribeapp/scribe/cmd/server/internal/settings"
	"github.com/scribeapp/scribe/pkg/logger"
	"github.com/scribeapp/scribe/pkg/metrics"
)

// Normalizer converts an upload into mono 16 kHz PCM and slices chunk files
// out of it. *media.Normalizer is the production implementation.
type Normalizer interface {
	Normalize(ctx context.Context, inputPath, outPath string) (float64, error)
	Cut(ctx context.Context, wavPath string, startSec, lengthSec float64, outPath string) error
}

// Transcriber sends one audio unit to the speech-recognition provider.
type Transcriber interface {
	Transcribe(ctx context.Context, audioPath string, opts asr.Options) (string, error)
}

// Diarizer sends one audio unit to the speaker-diarization provider.
type Diarizer interface {
	Diarize(ctx context.Context, audioPath string, opts diarize.Options) ([]diarize.Segment, error)
}

// Request describes one transcription job. The settings Snapshot is captured
// at request arrival and never re-read mid-job.
type Request struct {
	JobID       string
	InputPath   string
	Language    string
	Diarization bool
	Settings    settings.Snapshot
}

// Result is the blocking-mode response.
type Result struct {
	Transcript  string
	DurationSec float64
}

// Orchestrator owns the collaborators shared by all jobs. Per-job state
// (temp files, speaker map, in-flight diarization calls) lives on the stack
// of one run call; two jobs never share any of it.
type Orchestrator struct {
	cfg         config.PipelineConfig
	normalizer  Normalizer
	transcriber Transcriber
	diarizer    Diarizer
	permits     *admission.Permits
	tempDir     string
	log         *slog.Logger
}

// NewOrchestrator wires an Orchestrator. tempDir receives all per-job scratch
// files and must be writable.
func NewOrchestrator(cfg config.PipelineConfig, n Normalizer, t Transcriber, d Diarizer, permits *admission.Permits, tempDir string, log *slog.Logger) *Orchestrator {
	return &Orchestrator{
		cfg:         cfg,
		normalizer:  n,
		transcriber: t,
		diarizer:    d,
		permits:     permits,
		tempDir:     tempDir,
		log:         log,
	}
}

// Run executes a job in blocking mode and returns the assembled transcript.
func (o *Orchestrator) Run(ctx context.Context, req Request) (Result, error) {
	started := time.Now()
	var result Result
	err := o.run(ctx, req, func(ev Event) error {
		if ev.Name == EventComplete {
			data := ev.Data.(CompleteData)
			result = Result{Transcript: data.Transcript, DurationSec: data.TotalDuration}
		}
		return nil
	})
	metrics.RecordJobDuration("blocking", err == nil, time.Since(started).Seconds())
	return result, err
}

// RunStream executes a job in streaming mode, delivering every event through
// emit. A failed job terminates the stream with an error event instead of
// complete; an emit failure (consumer gone) cancels outstanding work.
func (o *Orchestrator) RunStream(ctx context.Context, req Request, emit EmitFunc) {
	started := time.Now()
	err := o.run(ctx, req, emit)
	metrics.RecordJobDuration("streaming", err == nil, time.Since(started).Seconds())
	if err != nil {
		// The consumer may already be gone; the terminal event is best effort.
		_ = emit(Event{Name: EventError, Data: ErrorData{Message: err.Error()}})
	}
}

// run is the state machine: Normalizing, then the short or chunked path,
// then fusion and assembly. Every exit path releases the job permit and all
// scratch files.
func (o *Orchestrator) run(ctx context.Context, req Request, emit EmitFunc) error {
	if err := o.permits.AcquireJob(ctx); err != nil {
		return fmt.Errorf("acquire job permit: %w", err)
	}
	defer o.permits.ReleaseJob()
	metrics.JobsInFlight.Inc()
	defer metrics.JobsInFlight.Dec()

	// Normalizing
	wavPath := filepath.Join(o.tempDir, req.JobID+".wav")
	defer media.Remove(wavPath)
	duration, err := o.normalizer.Normalize(ctx, req.InputPath, wavPath)
	if err != nil {
		o.log.Error("normalization failed", "job_id", req.JobID, "error", err)
		return err
	}

	o.log.Info("job normalized",
		"job_id", req.JobID,
		"duration_sec", duration,
		"diarization", req.Diarization,
	)

	if err := emit(Event{Name: EventStart, Data: StartData{TotalDuration: duration}}); err != nil {
		return fmt.Errorf("emit start: %w", err)
	}

	var transcript string
	if duration <= o.cfg.MaxSingleChunkSec {
		transcript, err = o.shortPath(ctx, req, wavPath, emit)
	} else {
		transcript, err = o.chunkedPath(ctx, req, wavPath, duration, emit)
	}
	if err != nil {
		return err
	}

	// Assembled
	return emit(Event{Name: EventComplete, Data: CompleteData{Transcript: transcript, TotalDuration: duration}})
}

// shortPath transcribes the whole asset as one unit. Diarization, when
// requested, is a single whole-file call followed by whole-transcript
// alignment; its failure degrades the job to unlabeled text.
func (o *Orchestrator) shortPath(ctx context.Context, req Request, wavPath string, emit EmitFunc) (string, error) {
	transcript, err := o.transcribeUnit(ctx, req, 0, wavPath)
	if err != nil {
		return "", err
	}

	if req.Diarization {
		segments := o.diarizeUnit(ctx, req, 0, wavPath)
		if len(segments) > 0 {
			transcript = fusion.AlignTranscript(transcript, segments, fusion.NewSpeakerMap())
		}
	}

	if err := emit(Event{Name: EventChunk, Data: ChunkData{Index: 0, Total: 1, Text: transcript}}); err != nil {
		return "", fmt.Errorf("emit chunk: %w", err)
	}
	return transcript, nil
}

// diarOutcome joins one chunk's diarization sub-call back into the sequential
// chunk loop.
type diarOutcome struct {
	segments []diarize.Segment
	err      error
}

// chunkedPath runs the overlapping-window pipeline. Per chunk: the
// diarization sub-call is submitted to the bounded pool first, then the
// chunk transcription runs on the job's own goroutine, then both results are
// fused and the chunk file is released. A transcription failure aborts the
// job; a diarization failure only costs that chunk its label.
func (o *Orchestrator) chunkedPath(ctx context.Context, req Request, wavPath string, duration float64, emit EmitFunc) (string, error) {
	spans, err := PlanChunks(duration, o.cfg.ChunkLengthSec, o.cfg.OverlapSec)
	if err != nil {
		return "", err
	}

	speakers := fusion.NewSpeakerMap()
	lines := make([]string, 0, len(spans))
	var allSegments []diarize.Segment
	labeledAny := false

	for _, span := range spans {
		chunkPath := filepath.Join(o.tempDir, req.JobID+"_chunk_"+pad5(span.Index)+".wav")
		if err := o.normalizer.Cut(ctx, wavPath, span.StartSec, o.cfg.ChunkLengthSec, chunkPath); err != nil {
			media.Remove(chunkPath)
			return "", err
		}

		// Submit diarization before blocking on transcription so the two
		// provider calls overlap.
		var diarCh chan diarOutcome
		if req.Diarization {
			diarCh = make(chan diarOutcome, 1)
			go func(path string, index int) {
				if err := o.permits.AcquireDiarization(ctx); err != nil {
					diarCh <- diarOutcome{err: err}
					return
				}
				defer o.permits.ReleaseDiarization()
				segments := o.diarizeUnit(ctx, req, index, path)
				diarCh <- diarOutcome{segments: segments}
			}(chunkPath, span.Index)
		}

		text, asrErr := o.transcribeUnit(ctx, req, span.Index, chunkPath)

		var segments []diarize.Segment
		if diarCh != nil {
			// The sub-call reads the chunk file; join it before releasing
			// the file, on the failure path too.
			outcome := <-diarCh
			if outcome.err == nil {
				segments = outcome.segments
			}
		}
		media.Remove(chunkPath)

		if asrErr != nil {
			return "", asrErr
		}

		label := ""
		if len(segments) > 0 {
			if speakerID, ok := fusion.DominantSpeaker(segments); ok {
				label = speakers.Label(speakerID)
				labeledAny = true
			}
			for _, seg := range segments {
				seg.Start += span.StartSec
				seg.End += span.StartSec
				allSegments = append(allSegments, seg)
			}
		}

		line := fusion.ChunkLine(label, int(span.StartSec), text)
		lines = append(lines, line)

		if err := emit(Event{Name: EventChunk, Data: ChunkData{Index: span.Index, Total: len(spans), Text: line}}); err != nil {
			return "", fmt.Errorf("emit chunk: %w", err)
		}
	}

	transcript := strings.Join(lines, "\n")

	// Fusing: when diarization was requested but no chunk yielded a usable
	// dominant speaker, fall back to time alignment over the assembled
	// transcript.
	if req.Diarization && !labeledAny && len(allSegments) > 0 {
		transcript = fusion.AlignTranscript(transcript, allSegments, speakers)
	}

	return transcript, nil
}

// transcribeUnit runs one transcription provider call with logging and
// metrics. The error is returned as-is; the caller decides fatality.
func (o *Orchestrator) transcribeUnit(ctx context.Context, req Request, index int, path string) (string, error) {
	logger.LogChunkProcessing(o.log, "asr", "start", index, 0, "")
	started := time.Now()

	text, err := o.transcriber.Transcribe(ctx, path, asr.Options{
		URL:      req.Settings.WhisperURL,
		Token:    req.Settings.WhisperToken,
		Model:    req.Settings.WhisperModel,
		Language: req.Language,
	})
	elapsed := time.Since(started)

	if err != nil {
		logger.LogChunkProcessing(o.log, "asr", "error", index, elapsed.Milliseconds(), providerErrorCode(err))
		metrics.RecordChunkProcessed("asr", false)
		metrics.RecordProviderError("asr", providerErrorCode(err))
		return "", err
	}

	logger.LogChunkProcessing(o.log, "asr", "success", index, elapsed.Milliseconds(), "")
	metrics.RecordChunkProcessed("asr", true)
	metrics.RecordChunkDuration("asr", elapsed.Seconds())
	return text, nil
}

// diarizeUnit runs one diarization provider call. Failures are logged,
// counted, and swallowed: the unit simply yields no segments.
func (o *Orchestrator) diarizeUnit(ctx context.Context, req Request, index int, path string) []diarize.Segment {
	if req.Settings.DiarizerURL == "" {
		return nil
	}

	logger.LogChunkProcessing(o.log, "diarize", "start", index, 0, "")
	started := time.Now()

	segments, err := o.diarizer.Diarize(ctx, path, diarize.Options{
		URL:   req.Settings.DiarizerURL,
		Token: req.Settings.DiarizerToken,
	})
	elapsed := time.Since(started)

	if err != nil {
		logger.LogChunkProcessing(o.log, "diarize", "error", index, elapsed.Milliseconds(), providerErrorCode(err))
		metrics.RecordChunkProcessed("diarize", false)
		metrics.RecordProviderError("diarize", providerErrorCode(err))
		return nil
	}

	logger.LogChunkProcessing(o.log, "diarize", "success", index, elapsed.Milliseconds(), "")
	metrics.RecordChunkProcessed("diarize", true)
	metrics.RecordChunkDuration("diarize", elapsed.Seconds())
	return segments
}

// providerErrorCode maps an error to a short metric/log code: the upstream
// HTTP status when known, "transport" otherwise.
func providerErrorCode(err error) string {
	var asrErr *asr.ProviderError
	if errors.As(err, &asrErr) {
		return strconv.Itoa(asrErr.Status)
	}
	var diarErr *diarize.ProviderError
	if errors.As(err, &diarErr) {
		return strconv.Itoa(diarErr.Status)
	}
	return "transport"
}

func pad5(n int) string {
	return fmt.Sprintf("%05d", n)
}
