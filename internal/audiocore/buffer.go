package audiocore

import (
	"context"
	"log/slog"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/audiophile-labs/mastering-engine/internal/errors"
	"github.com/audiophile-labs/mastering-engine/internal/logger"
)

// bufferImpl is the concrete implementation of AudioBuffer, storing
// interleaved float32 samples.
type bufferImpl struct {
	data     []float32
	length   int
	refCount int32
	pool     *bufferPoolImpl
	trackID  string // ResourceTracker key, set by the pool on Get
	mu       sync.Mutex
}

// Data returns the underlying float32 slice
func (b *bufferImpl) Data() []float32 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.data[:b.length]
}

// Len returns the current length of valid data
func (b *bufferImpl) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.length
}

// Cap returns the capacity of the buffer
func (b *bufferImpl) Cap() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return cap(b.data)
}

// Reset clears the buffer
func (b *bufferImpl) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.length = 0
}

// Resize changes the buffer size
func (b *bufferImpl) Resize(newSize int) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if newSize < 0 {
		return errors.New(nil).
			Component(ComponentAudioCore).
			Category(errors.CategoryValidation).
			Context("operation", "buffer_resize").
			Context("new_size", newSize).
			Build()
	}

	if newSize <= cap(b.data) {
		b.length = newSize
		return nil
	}

	// Need to allocate a new buffer
	newData := make([]float32, newSize)
	copy(newData, b.data[:b.length])
	b.data = newData
	b.length = newSize

	return nil
}

// Slice returns a slice of the buffer
func (b *bufferImpl) Slice(start, end int) ([]float32, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if start < 0 || end > b.length || start > end {
		return nil, errors.Newf("invalid slice bounds [%d:%d] for buffer of length %d", start, end, b.length).
			Component(ComponentAudioCore).
			Category(errors.CategoryValidation).
			Context("operation", "buffer_slice").
			Context("start", start).
			Context("end", end).
			Context("length", b.length).
			Build()
	}

	return b.data[start:end], nil
}

// Acquire increments the reference count
func (b *bufferImpl) Acquire() {
	atomic.AddInt32(&b.refCount, 1)
}

// Release decrements the reference count and returns to pool if zero
func (b *bufferImpl) Release() {
	newCount := atomic.AddInt32(&b.refCount, -1)
	if newCount == 0 && b.pool != nil {
		b.pool.Put(b)
	}
}

// bufferPoolImpl manages reusable float32 audio buffers in size tiers,
// mirroring the mastering pipeline's working-set shapes: a single chunk
// (small), a chunk plus overlap tails (medium), and a full context window
// spanning several chunks (large).
type bufferPoolImpl struct {
	smallPool  sync.Pool
	mediumPool sync.Pool
	largePool  sync.Pool
	config     BufferPoolConfig
	tierStats  map[string]*BufferPoolStats
	statsMu    sync.RWMutex
	logger     *slog.Logger

	tracker *ResourceTracker
	nextID  atomic.Int64
}

// NewBufferPool creates a new buffer pool
func NewBufferPool(config BufferPoolConfig) BufferPool {
	log := logger.ForModule("audiocore").With("component", "buffer_pool")

	pool := &bufferPoolImpl{
		config:  config,
		logger:  log,
		tracker: NewResourceTracker(),
		tierStats: map[string]*BufferPoolStats{
			"small":  {},
			"medium": {},
			"large":  {},
			"custom": {},
		},
	}

	pool.smallPool.New = func() any {
		return &bufferImpl{
			data: make([]float32, config.SmallBufferSize),
			pool: pool,
		}
	}

	pool.mediumPool.New = func() any {
		return &bufferImpl{
			data: make([]float32, config.MediumBufferSize),
			pool: pool,
		}
	}

	pool.largePool.New = func() any {
		return &bufferImpl{
			data: make([]float32, config.LargeBufferSize),
			pool: pool,
		}
	}

	log.Info("buffer pool created",
		"small_size", config.SmallBufferSize,
		"medium_size", config.MediumBufferSize,
		"large_size", config.LargeBufferSize,
		"max_per_size", config.MaxBuffersPerSize)

	return pool
}

// Get retrieves a buffer of at least the specified number of samples
func (p *bufferPoolImpl) Get(size int) AudioBuffer {
	var buf *bufferImpl
	var poolTier string

	switch {
	case size <= p.config.SmallBufferSize:
		buf = p.smallPool.Get().(*bufferImpl)
		poolTier = "small"
	case size <= p.config.MediumBufferSize:
		buf = p.mediumPool.Get().(*bufferImpl)
		poolTier = "medium"
	case size <= p.config.LargeBufferSize:
		buf = p.largePool.Get().(*bufferImpl)
		poolTier = "large"
	default:
		buf = &bufferImpl{
			data: make([]float32, size),
			pool: p,
		}
		poolTier = "custom"
		p.logger.Debug("allocated custom-sized buffer", "size", size)
	}

	p.updateTierStats(poolTier, func(s *BufferPoolStats) {
		s.TotalBuffers++
		s.ActiveBuffers++
	})

	buf.length = size
	buf.refCount = 1
	buf.trackID = "buf-" + strconv.FormatInt(p.nextID.Add(1), 10)
	p.tracker.Track(buf.trackID, "audio_buffer:"+poolTier, func() {})

	if p.logger.Enabled(context.TODO(), slog.LevelDebug) {
		p.logger.Debug("buffer allocated",
			"tier", poolTier,
			"requested_samples", size,
			"actual_capacity", cap(buf.data))
	}

	return buf
}

// Put returns a buffer to the pool
func (p *bufferPoolImpl) Put(buffer AudioBuffer) {
	buf, ok := buffer.(*bufferImpl)
	if !ok {
		return
	}

	if buf.trackID != "" {
		if err := p.tracker.Release(buf.trackID); err != nil {
			p.logger.Debug("buffer release tracking miss", "track_id", buf.trackID, "error", err)
		}
		buf.trackID = ""
	}

	buf.Reset()
	buf.refCount = 0

	capacity := cap(buf.data)
	var poolTier string
	switch {
	case capacity <= p.config.SmallBufferSize:
		p.smallPool.Put(buf)
		poolTier = "small"
	case capacity <= p.config.MediumBufferSize:
		p.mediumPool.Put(buf)
		poolTier = "medium"
	case capacity <= p.config.LargeBufferSize:
		p.largePool.Put(buf)
		poolTier = "large"
	default:
		poolTier = "custom"
		p.logger.Debug("discarding custom-sized buffer", "capacity", capacity)
	}

	p.updateTierStats(poolTier, func(s *BufferPoolStats) {
		s.ActiveBuffers--
	})

	if p.logger.Enabled(context.TODO(), slog.LevelDebug) && poolTier != "custom" {
		p.logger.Debug("buffer returned to pool", "tier", poolTier, "capacity", capacity)
	}
}

// Stats returns aggregate statistics across all tiers.
func (p *bufferPoolImpl) Stats() BufferPoolStats {
	p.statsMu.RLock()
	defer p.statsMu.RUnlock()

	var agg BufferPoolStats
	for _, s := range p.tierStats {
		agg.TotalBuffers += s.TotalBuffers
		agg.ActiveBuffers += s.ActiveBuffers
		agg.TotalAllocated += s.TotalAllocated
	}
	return agg
}

// TierStats returns statistics for a specific tier.
func (p *bufferPoolImpl) TierStats(tier string) (BufferPoolStats, bool) {
	p.statsMu.RLock()
	defer p.statsMu.RUnlock()

	s, ok := p.tierStats[tier]
	if !ok {
		return BufferPoolStats{}, false
	}
	return *s, true
}

// ReportMetrics reports per-tier statistics to the metrics collector.
func (p *bufferPoolImpl) ReportMetrics() {
	metrics := GetMetrics()
	for _, tier := range [...]string{"small", "medium", "large", "custom"} {
		if stats, ok := p.TierStats(tier); ok {
			metrics.RecordBufferPoolStats(tier, stats)
		}
	}
}

// Close stops the pool's resource-leak detector.
func (p *bufferPoolImpl) Close() error {
	return p.tracker.Close()
}

// updateTierStats safely updates statistics for a single tier
func (p *bufferPoolImpl) updateTierStats(tier string, fn func(*BufferPoolStats)) {
	p.statsMu.Lock()
	defer p.statsMu.Unlock()
	fn(p.tierStats[tier])
}
