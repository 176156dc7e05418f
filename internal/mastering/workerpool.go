package mastering

import (
	"context"
	"sync/atomic"

	"golang.org/x/sync/semaphore"

	"github.com/audiophile-labs/mastering-engine/internal/config"
	"github.com/audiophile-labs/mastering-engine/internal/cpuspec"
)

// ComponentMastering tags every error originating from this package for
// the shared internal/errors builder.
const ComponentMastering = "mastering"

// WorkerPool bounds the process-wide number of concurrent chunk builds
// (spec.md §5: "Parallel threads for chunk computation"), independent of
// the per-session semaphore in session.go. Sized from cpuspec's
// performance-core estimate the way the teacher sizes its BirdNET
// inference thread pool, clamped to config.WorkerPoolSettings.
type WorkerPool struct {
	sem      *semaphore.Weighted
	capacity atomic.Int64
}

// NewWorkerPool builds a pool sized from cpuspec.GetOptimalThreadCount(),
// clamped to [MinWorkers, MaxWorkers].
func NewWorkerPool(cfg config.WorkerPoolSettings) *WorkerPool {
	n := cpuspec.GetCPUSpec().GetOptimalThreadCount()
	if cfg.MinWorkers > 0 && n < cfg.MinWorkers {
		n = cfg.MinWorkers
	}
	if cfg.MaxWorkers > 0 && n > cfg.MaxWorkers {
		n = cfg.MaxWorkers
	}
	if n <= 0 {
		n = 1
	}

	p := &WorkerPool{sem: semaphore.NewWeighted(int64(n))}
	p.capacity.Store(int64(n))
	return p
}

// Capacity returns the current worker budget.
func (p *WorkerPool) Capacity() int64 { return p.capacity.Load() }

// Run blocks until a worker slot is free (or ctx is cancelled), then runs
// fn synchronously on the calling goroutine, freeing the slot on return.
// The DSP computation itself never cooperatively yields once started,
// per spec.md §5's "runs to completion on a worker thread without
// cooperative yields".
func (p *WorkerPool) Run(ctx context.Context, fn func() error) error {
	if err := p.sem.Acquire(ctx, 1); err != nil {
		return err
	}
	defer p.sem.Release(1)
	return fn()
}

// Resize changes the pool's capacity at runtime. Used by ResourceGovernor
// to shrink the pool under memory/CPU pressure and grow it back when
// pressure subsides. Shrinking does not preempt workers already running;
// it only reduces how many new Run calls can proceed concurrently, by
// holding the difference as permits until a later Resize grows the pool
// again. A shrink that cannot take those permits at once leaves the
// capacity unchanged.
func (p *WorkerPool) Resize(newCapacity int64) {
	if newCapacity <= 0 {
		newCapacity = 1
	}
	current := p.capacity.Load()
	delta := newCapacity - current
	switch {
	case delta > 0:
		p.sem.Release(delta)
	case delta < 0:
		// Best-effort: acquire the slack without blocking. If the slots are
		// busy right now, the capacity stays as it is and a later Resize
		// call tries again.
		if !p.sem.TryAcquire(-delta) {
			return
		}
	}
	p.capacity.Store(newCapacity)
}
