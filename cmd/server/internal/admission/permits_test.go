package admission

import (
	"context"
	"sync"
	"testing"
	"time"
)

func TestPermits(t *testing.T) {
	t.Run("acquire and release within limit", func(t *testing.T) {
		p := NewPermits(2, 2)
		ctx := context.Background()

		if err := p.AcquireJob(ctx); err != nil {
			t.Errorf("First AcquireJob() failed: %v", err)
		}
		if err := p.AcquireJob(ctx); err != nil {
			t.Errorf("Second AcquireJob() failed: %v", err)
		}

		p.ReleaseJob()
		p.ReleaseJob()

		if err := p.AcquireJob(ctx); err != nil {
			t.Errorf("AcquireJob() after release failed: %v", err)
		}
		p.ReleaseJob()
	})

	t.Run("blocks when the pool is full", func(t *testing.T) {
		p := NewPermits(1, 1)
		ctx := context.Background()

		if err := p.AcquireJob(ctx); err != nil {
			t.Fatalf("AcquireJob() failed: %v", err)
		}

		timeoutCtx, cancel := context.WithTimeout(ctx, 200*time.Millisecond)
		defer cancel()
		if err := p.AcquireJob(timeoutCtx); err == nil {
			t.Error("second AcquireJob() should have blocked until ctx expiry")
			p.ReleaseJob()
		}

		p.ReleaseJob()
	})

	t.Run("job and diarization pools are independent", func(t *testing.T) {
		p := NewPermits(1, 1)
		ctx := context.Background()

		if err := p.AcquireJob(ctx); err != nil {
			t.Fatalf("AcquireJob() failed: %v", err)
		}
		// Exhausting jobs must not block diarization.
		if err := p.AcquireDiarization(ctx); err != nil {
			t.Errorf("AcquireDiarization() failed: %v", err)
		}
		p.ReleaseDiarization()
		p.ReleaseJob()
	})

	t.Run("sizes below one are clamped", func(t *testing.T) {
		p := NewPermits(0, -3)
		ctx := context.Background()

		if err := p.AcquireJob(ctx); err != nil {
			t.Errorf("AcquireJob() on clamped pool failed: %v", err)
		}
		if err := p.AcquireDiarization(ctx); err != nil {
			t.Errorf("AcquireDiarization() on clamped pool failed: %v", err)
		}
		p.ReleaseDiarization()
		p.ReleaseJob()
	})

	t.Run("concurrent goroutines respect the diarization limit", func(t *testing.T) {
		const numGoroutines = 8
		const limit = 3
		p := NewPermits(1, limit)

		var wg sync.WaitGroup
		var mu sync.Mutex
		var active, maxActive int

		for i := 0; i < numGoroutines; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()

				if err := p.AcquireDiarization(context.Background()); err != nil {
					t.Errorf("AcquireDiarization() failed: %v", err)
					return
				}
				defer p.ReleaseDiarization()

				mu.Lock()
				active++
				if active > maxActive {
					maxActive = active
				}
				mu.Unlock()

				time.Sleep(20 * time.Millisecond)

				mu.Lock()
				active--
				mu.Unlock()
			}()
		}
		wg.Wait()

		if maxActive > limit {
			t.Errorf("max concurrent diarization = %d, want <= %d", maxActive, limit)
		}
	})
}
