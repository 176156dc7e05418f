package mastering

import (
	"time"

	"github.com/audiophile-labs/mastering-engine/internal/config"
	"github.com/audiophile-labs/mastering-engine/internal/logger"
	"github.com/audiophile-labs/mastering-engine/internal/monitor"
)

const (
	highLoadPercent = 85.0
	lowLoadPercent  = 50.0
)

// ResourceGovernor watches system load via internal/monitor and shrinks
// or grows a WorkerPool in response, bounded by config.WorkerPoolSettings.
// This keeps a busy host from being driven into thrash by a flood of
// get_chunk/stream_track requests.
type ResourceGovernor struct {
	monitor *monitor.SystemMonitor
	pool    *WorkerPool
	bounds  config.WorkerPoolSettings
	log     logger.Logger

	stop chan struct{}
}

// NewResourceGovernor wires a monitor to a pool. Call Start to begin
// adjusting the pool on a timer; Stop to halt it.
func NewResourceGovernor(sysMonitor *monitor.SystemMonitor, pool *WorkerPool, bounds config.WorkerPoolSettings) *ResourceGovernor {
	return &ResourceGovernor{
		monitor: sysMonitor,
		pool:    pool,
		bounds:  bounds,
		log:     logger.Global().Module("mastering"),
		stop:    make(chan struct{}),
	}
}

// Start begins a background adjustment loop at the given interval.
func (g *ResourceGovernor) Start(interval time.Duration) {
	if interval <= 0 {
		interval = 10 * time.Second
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				g.adjustOnce()
			case <-g.stop:
				return
			}
		}
	}()
}

// Stop halts the adjustment loop.
func (g *ResourceGovernor) Stop() { close(g.stop) }

func (g *ResourceGovernor) adjustOnce() {
	sample := g.monitor.Latest()
	current := g.pool.Capacity()
	next := current

	switch {
	case sample.CPUPercent >= highLoadPercent || sample.MemoryPercent >= highLoadPercent:
		next = current - 1
	case sample.CPUPercent <= lowLoadPercent && sample.MemoryPercent <= lowLoadPercent:
		next = current + 1
	}

	if g.bounds.MinWorkers > 0 && next < int64(g.bounds.MinWorkers) {
		next = int64(g.bounds.MinWorkers)
	}
	if g.bounds.MaxWorkers > 0 && next > int64(g.bounds.MaxWorkers) {
		next = int64(g.bounds.MaxWorkers)
	}

	if next != current {
		g.log.Info("resizing worker pool",
			logger.Int64("from", current),
			logger.Int64("to", next),
			logger.Float64("cpu_percent", sample.CPUPercent),
			logger.Float64("memory_percent", sample.MemoryPercent))
		g.pool.Resize(next)
	}
}
