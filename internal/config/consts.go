// config/consts.go hard coded constants
package config

import "time"

const (
	// DefaultChunkDuration is the length of one processing chunk.
	DefaultChunkDuration = 10 * time.Second

	// DefaultOverlapDuration is the crossfade overlap shared by neighboring chunks.
	DefaultOverlapDuration = 500 * time.Millisecond

	// DefaultContextDuration is extra audio analyzed on each side of a chunk
	// but not emitted, used to stabilize per-chunk feature extraction.
	DefaultContextDuration = 2 * time.Second

	// DefaultFingerprintDeadline bounds how long fingerprint extraction may run
	// before the orchestrator falls back to an on-the-fly estimate.
	DefaultFingerprintDeadline = 60 * time.Second

	// DefaultProcessingTimeout bounds a single chunk build per spec.md §7's
	// ProcessingTimeout error kind.
	DefaultProcessingTimeout = 60 * time.Second

	// BarkBands is the number of critical-band buckets used throughout the
	// content analyzer, target generator, and EQ stage.
	BarkBands = 26

	// DefaultIntensityQuantum is the step size presets/intensity sliders are
	// rounded to before use as a cache key component.
	DefaultIntensityQuantum = 0.1
)
