// Package admission enforces the process-local limits that keep one busy
// deployment from eating itself: a job permit bounding concurrent pipelines,
// a separate permit pool for diarization sub-calls, and a per-client
// sliding-window rate limiter.
package admission

import (
	"context"

	"golang.org/x/sync/semaphore"
)

// Permits bounds concurrent transcription pipelines and diarization
// sub-calls with two independent counting semaphores. Jobs are memory- and
// CPU-heavy (media decode plus buffering) while diarization calls are plain
// network I/O, so the pools are sized independently.
type Permits struct {
	jobs        *semaphore.Weighted
	diarization *semaphore.Weighted
}

// NewPermits creates the two permit pools. Sizes below 1 are clamped to 1.
func NewPermits(jobSlots, diarizationSlots int) *Permits {
	if jobSlots < 1 {
		jobSlots = 1
	}
	if diarizationSlots < 1 {
		diarizationSlots = 1
	}
	return &Permits{
		jobs:        semaphore.NewWeighted(int64(jobSlots)),
		diarization: semaphore.NewWeighted(int64(diarizationSlots)),
	}
}

// AcquireJob blocks until a whole-pipeline slot is free or ctx is done.
// There is no admission timeout; jobs wait indefinitely.
func (p *Permits) AcquireJob(ctx context.Context) error {
	return p.jobs.Acquire(ctx, 1)
}

// ReleaseJob frees a pipeline slot. Call from a defer after AcquireJob
// succeeded.
func (p *Permits) ReleaseJob() {
	p.jobs.Release(1)
}

// AcquireDiarization blocks until a diarization worker slot is free or ctx
// is done.
func (p *Permits) AcquireDiarization(ctx context.Context) error {
	return p.diarization.Acquire(ctx, 1)
}

// ReleaseDiarization frees a diarization worker slot.
func (p *Permits) ReleaseDiarization() {
	p.diarization.Release(1)
}
