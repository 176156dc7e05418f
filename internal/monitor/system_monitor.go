// Package monitor samples system resource usage (CPU, memory) for
// internal/mastering's ResourceGovernor, which shrinks or grows the
// process-wide worker pool in response.
package monitor

import (
	"context"
	"sync"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"

	"github.com/audiophile-labs/mastering-engine/internal/logger"
)

// Sample is one point-in-time reading of system load.
type Sample struct {
	CPUPercent    float64
	MemoryPercent float64
	Time          time.Time
}

// SystemMonitor periodically samples CPU and memory usage and exposes the
// latest reading.
type SystemMonitor struct {
	interval time.Duration

	mu     sync.RWMutex
	latest Sample

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	log    logger.Logger
}

// NewSystemMonitor creates a monitor that samples at the given interval.
// A non-positive interval falls back to 5 seconds.
func NewSystemMonitor(interval time.Duration) *SystemMonitor {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &SystemMonitor{
		interval: interval,
		ctx:      ctx,
		cancel:   cancel,
		log:      logger.Global().Module("monitor"),
	}
}

// Start begins the sampling loop in a background goroutine.
func (m *SystemMonitor) Start() {
	m.wg.Add(1)
	go m.loop()
	m.log.Info("system monitor started", logger.Duration("interval", m.interval))
}

// Stop halts the sampling loop and waits for it to exit.
func (m *SystemMonitor) Stop() {
	m.cancel()
	m.wg.Wait()
	m.log.Info("system monitor stopped")
}

func (m *SystemMonitor) loop() {
	defer m.wg.Done()

	m.sampleOnce()

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.sampleOnce()
		case <-m.ctx.Done():
			return
		}
	}
}

func (m *SystemMonitor) sampleOnce() {
	s := Sample{Time: time.Now()}

	if pcts, err := cpu.Percent(0, false); err == nil && len(pcts) > 0 {
		s.CPUPercent = pcts[0]
	} else if err != nil {
		m.log.Warn("failed to sample CPU usage", logger.Error(err))
	}

	if vm, err := mem.VirtualMemory(); err == nil {
		s.MemoryPercent = vm.UsedPercent
	} else {
		m.log.Warn("failed to sample memory usage", logger.Error(err))
	}

	m.mu.Lock()
	m.latest = s
	m.mu.Unlock()
}

// Latest returns the most recent sample. Until the sampling loop started by
// Start has taken its first sample (it does so at once, before the first
// tick), this is the zero Sample.
func (m *SystemMonitor) Latest() Sample {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.latest
}
