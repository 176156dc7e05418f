// Package audiocore provides the capability-set interfaces and pooled
// buffer primitives the mastering engine is built on. It has no notion of
// live capture devices or detection models; everything here operates on
// float32 planar PCM chunks already decoded from a local file.
//
// Architecture overview:
//
//	Chunk extraction -> AudioBuffer (pooled) -> ProcessorChain -> Session output
//
// Key interfaces:
//   - AudioBuffer: pooled, reference-counted float32 sample storage
//   - BufferPool: tiered allocation for AudioBuffer
//   - AudioProcessor / ProcessorChain: the capability set that
//     internal/pipeline's mastering stages implement
//   - ProcessorFactory: builds a session's processor chain once and hands
//     out the same instance on repeat lookups, replacing any global state
package audiocore

import (
	"context"
	"time"

	"github.com/audiophile-labs/mastering-engine/internal/target"
)

// AudioFormat describes the PCM layout of a buffer of samples.
type AudioFormat struct {
	SampleRate int    // Sample rate in Hz (e.g., 44100, 48000)
	Channels   int    // Number of channels (1 mono, 2 stereo)
	BitDepth   int    // Source bit depth before conversion to float32 (16, 24, 32)
	Encoding   string // Always "pcm_f32" internally; retained for provenance
}

// AudioData represents a chunk of interleaved float32 PCM with metadata.
type AudioData struct {
	Buffer       []float32     // Interleaved samples, len == FrameCount*Format.Channels
	Format       AudioFormat   // Audio format information
	Timestamp    time.Time     // Wall-clock time this chunk was produced
	Offset       time.Duration // Position within the source track
	Duration     time.Duration // Duration of the audio chunk
	SourceID     string        // Identifier of the track/session that produced this audio
	BufferHandle AudioBuffer   // Pooled buffer backing Buffer, if any; Release() returns it to the pool

	// Targets carries the per-chunk ProcessingTargets computed by
	// internal/target for this chunk's descriptor. nil before the first
	// stage that needs it runs; the orchestrator sets it once per chunk
	// before invoking the chain.
	Targets *target.ProcessingTargets

	// PeakAfterEQ is the post-EQ peak amplitude, set by the EQ stage and
	// read by later stages that need EQ's headroom impact (spec.md §4.4
	// step 1: "Output peak_after_eq tracked for the next stage").
	PeakAfterEQ float64
}

// FrameCount returns the number of sample frames (one sample per channel) in Buffer.
func (d *AudioData) FrameCount() int {
	if d.Format.Channels == 0 {
		return 0
	}
	return len(d.Buffer) / d.Format.Channels
}

// AudioProcessor transforms a chunk of audio. Mastering stages
// (internal/pipeline) implement this to be composable in a ProcessorChain.
type AudioProcessor interface {
	// ID returns a unique identifier for this processor
	ID() string

	// Process transforms audio data
	Process(ctx context.Context, input *AudioData) (*AudioData, error)

	// GetRequiredFormat returns the audio format this processor requires.
	// Returns nil if the processor can handle any format.
	GetRequiredFormat() *AudioFormat

	// GetOutputFormat returns the audio format this processor outputs
	// given an input format
	GetOutputFormat(inputFormat AudioFormat) AudioFormat
}

// ProcessorChain represents an ordered sequence of audio processors.
type ProcessorChain interface {
	// AddProcessor adds a processor to the chain
	AddProcessor(processor AudioProcessor) error

	// RemoveProcessor removes a processor from the chain
	RemoveProcessor(id string) error

	// Process runs audio through the entire chain, in order
	Process(ctx context.Context, input *AudioData) (*AudioData, error)

	// GetProcessors returns all processors in order
	GetProcessors() []AudioProcessor
}

// AudioBuffer represents a pooled, reference-counted float32 sample buffer.
type AudioBuffer interface {
	// Data returns the underlying float32 slice
	Data() []float32

	// Len returns the current length of valid data
	Len() int

	// Cap returns the capacity of the buffer
	Cap() int

	// Reset clears the buffer
	Reset()

	// Resize changes the buffer size
	Resize(newSize int) error

	// Slice returns a slice of the buffer
	Slice(start, end int) ([]float32, error)

	// Acquire increments the reference count
	Acquire()

	// Release decrements the reference count and returns to pool if zero
	Release()
}

// BufferPool manages reusable float32 audio buffers across tiers.
type BufferPool interface {
	// Get retrieves a buffer of at least the specified number of samples
	Get(size int) AudioBuffer

	// Put returns a buffer to the pool
	Put(buffer AudioBuffer)

	// Stats returns statistics about the pool
	Stats() BufferPoolStats

	// TierStats returns statistics for a specific tier
	TierStats(tier string) (BufferPoolStats, bool)

	// ReportMetrics reports per-tier metrics to the metrics collector
	ReportMetrics()

	// Close stops the pool's background leak detector. Safe to call once
	// when the pool is no longer needed.
	Close() error
}

// BufferPoolStats contains statistics about buffer pool usage.
type BufferPoolStats struct {
	TotalBuffers   int
	ActiveBuffers  int
	TotalAllocated int64
	HitRate        float64
}

// BufferPoolConfig contains configuration for buffer pools.
type BufferPoolConfig struct {
	SmallBufferSize   int // Samples for small buffers (single chunk, mono)
	MediumBufferSize  int // Samples for medium buffers (single chunk, stereo + overlap)
	LargeBufferSize   int // Samples for large buffers (context window)
	MaxBuffersPerSize int // Per-size-category limit; only logged, the sync.Pool tiers are not capped
	EnableMetrics     bool
}

// ProcessorFactory builds and caches a session's processor chain. It
// replaces ad hoc globals: each session ID maps to exactly one chain,
// built once under lock and reused for the session's lifetime.
type ProcessorFactory interface {
	// ChainFor returns the processor chain for a session, building it via
	// builder on first use and caching the result for subsequent calls.
	ChainFor(sessionID string, builder func() (ProcessorChain, error)) (ProcessorChain, error)

	// Release discards a session's cached chain.
	Release(sessionID string)

	// Metrics returns current metrics for the factory.
	Metrics() FactoryMetrics

	// Close releases the factory's buffer pool. Safe to call once.
	Close() error
}

// FactoryMetrics contains runtime metrics for a ProcessorFactory.
type FactoryMetrics struct {
	ActiveChains    int
	ChainsBuilt     int64
	ChainsReused    int64
	BufferPoolStats BufferPoolStats
	LastUpdate      time.Time
}
