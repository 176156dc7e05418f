package monitor

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSystemMonitorSamplesWithinOneTick(t *testing.T) {
	t.Parallel()

	m := NewSystemMonitor(20 * time.Millisecond)
	m.Start()
	defer m.Stop()

	assert.Eventually(t, func() bool {
		return !m.Latest().Time.IsZero()
	}, time.Second, 5*time.Millisecond)

	sample := m.Latest()
	assert.GreaterOrEqual(t, sample.CPUPercent, 0.0)
	assert.GreaterOrEqual(t, sample.MemoryPercent, 0.0)
}

func TestSystemMonitorDefaultInterval(t *testing.T) {
	t.Parallel()

	m := NewSystemMonitor(0)
	assert.Equal(t, 5*time.Second, m.interval)
}

func TestSystemMonitorStopIsIdempotentWithStart(t *testing.T) {
	t.Parallel()

	m := NewSystemMonitor(10 * time.Millisecond)
	m.Start()
	m.Stop()
	m.Stop()
}
