// Package metrics provides Prometheus metrics for monitoring the
// transcription pipeline.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ChunksProcessedTotal counts provider calls made for audio units.
	// Labels: component (asr/diarize), status (success/error)
	ChunksProcessedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scribe_chunks_processed_total",
			Help: "Total number of audio chunks processed by component",
		},
		[]string{"component", "status"},
	)

	// ProviderErrorsTotal counts upstream provider failures.
	// Labels: component (asr/diarize/summarize), code (HTTP status or transport)
	ProviderErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scribe_provider_errors_total",
			Help: "Total number of provider errors by component and error code",
		},
		[]string{"component", "code"},
	)

	// JobsInFlight tracks transcription jobs that hold an admission permit.
	JobsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "scribe_jobs_in_flight",
			Help: "Number of transcription jobs currently holding a permit",
		},
	)

	// JobDuration observes end-to-end job duration in seconds.
	// Labels: mode (blocking/streaming), outcome (success/error)
	JobDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "scribe_job_duration_seconds",
			Help:    "End-to-end transcription job duration in seconds",
			Buckets: []float64{0.5, 1, 2, 5, 10, 30, 60, 120, 300, 600},
		},
		[]string{"mode", "outcome"},
	)

	// ChunkDuration observes per-chunk provider call duration in seconds.
	// Labels: component (asr/diarize)
	ChunkDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "scribe_chunk_duration_seconds",
			Help:    "Per-chunk provider call duration in seconds by component",
			Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120},
		},
		[]string{"component"},
	)

	// RateLimitRejectionsTotal counts requests rejected by the sliding-window
	// rate limiter before any work was admitted.
	RateLimitRejectionsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "scribe_rate_limit_rejections_total",
			Help: "Total number of requests rejected by the per-client rate limiter",
		},
	)
)

// RecordChunkProcessed records completion of one provider call for a chunk.
func RecordChunkProcessed(component string, success bool) {
	status := "success"
	if !success {
		status = "error"
	}
	ChunksProcessedTotal.WithLabelValues(component, status).Inc()
}

// RecordProviderError records an upstream provider failure.
func RecordProviderError(component, code string) {
	ProviderErrorsTotal.WithLabelValues(component, code).Inc()
}

// RecordChunkDuration records a per-chunk provider call duration in seconds.
func RecordChunkDuration(component string, durationSeconds float64) {
	ChunkDuration.WithLabelValues(component).Observe(durationSeconds)
}

// RecordJobDuration records an end-to-end job duration in seconds.
func RecordJobDuration(mode string, success bool, durationSeconds float64) {
	outcome := "success"
	if !success {
		outcome = "error"
	}
	JobDuration.WithLabelValues(mode, outcome).Observe(durationSeconds)
}

// RecordRateLimitRejection records one rate-limited request.
func RecordRateLimitRejection() {
	RateLimitRejectionsTotal.Inc()
}
