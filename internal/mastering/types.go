// Package mastering implements the chunked streaming orchestrator
// (spec.md §4.5): it partitions a track into overlapping fixed-duration
// chunks, runs each through internal/contentanalyzer, internal/target, and
// internal/pipeline, crossfades neighboring chunks, and serves the result
// progressively behind a multi-tier cache with bounded concurrency.
package mastering

import (
	"context"
	"fmt"
	"math"

	"github.com/audiophile-labs/mastering-engine/internal/config"
)

// TrackSource is the decoupling point between this package and whatever
// decodes a track into samples (cmd/mastercli/internal/sampleio for local
// files). It hands back planar float64 samples for an arbitrary frame
// range, zero-padding any part of the range that falls outside
// [0, TotalFrames()) so context padding at the start/end of a track never
// needs special-casing by the caller.
type TrackSource interface {
	ID() string
	SampleRate() float64
	Channels() int
	TotalFrames() int64
	ReadFrames(ctx context.Context, startFrame int64, frameCount int) ([][]float64, error)
}

// CacheKey identifies one mastered chunk. Intensity is quantized to
// config.ChunkingSettings.IntensityQuantum before it ever reaches a
// CacheKey, so two requests that round to the same quantum share a cache
// entry and a build lock (spec.md §4.5's "quantized CacheKey").
// PreserveCharacter (spec.md §4.3) is folded into the key alongside
// intensity because it independently changes the generated targets, even
// though §4.5's operation summary only names intensity explicitly.
type CacheKey struct {
	TrackID           string
	Preset            string
	Intensity         float64
	PreserveCharacter float64
	ChunkIndex        int
}

// String renders a stable map/cache key.
func (k CacheKey) String() string {
	return fmt.Sprintf("%s|%s|%.2f|%.2f|%d", k.TrackID, k.Preset, k.Intensity, k.PreserveCharacter, k.ChunkIndex)
}

// SessionKey identifies a (track, preset, intensity, preserve_character)
// stream: the unit the per-session concurrency bound and the L1/L2/L3
// cache tiers are scoped to.
type SessionKey struct {
	TrackID           string
	Preset            string
	Intensity         float64
	PreserveCharacter float64
}

func (k SessionKey) String() string {
	return fmt.Sprintf("%s|%s|%.2f|%.2f", k.TrackID, k.Preset, k.Intensity, k.PreserveCharacter)
}

// QuantizeIntensity rounds intensity to the nearest multiple of quantum, so
// the cache and build-lock keying is stable under floating point noise in
// the caller's requested value.
func QuantizeIntensity(intensity, quantum float64) float64 {
	if quantum <= 0 {
		return intensity
	}
	return math.Round(intensity/quantum) * quantum
}

// chunkGeometry is the frame-domain layout of one chunk derived from
// config.ChunkingSettings (spec.md §4.5).
type chunkGeometry struct {
	startFrame    int64 // first frame of the chunk's own audio, excluding context
	endFrame      int64 // one past the chunk's last own frame, excluding context
	contextFrames int64
	overlapFrames int64
}

// computeChunkGeometry returns the frame range for chunkIndex, given a
// sample rate and the chunking configuration. Consecutive chunks overlap
// by chunk_duration - chunk_interval, per spec.md §4.5.
func computeChunkGeometry(cfg config.ChunkingSettings, sampleRate float64, chunkIndex int) chunkGeometry {
	chunkIntervalSeconds := cfg.ChunkDuration.Seconds() - cfg.OverlapDuration.Seconds()
	if chunkIntervalSeconds <= 0 {
		chunkIntervalSeconds = cfg.ChunkDuration.Seconds()
	}

	start := float64(chunkIndex) * chunkIntervalSeconds
	startFrame := int64(math.Round(start * sampleRate))
	chunkFrames := int64(math.Round(cfg.ChunkDuration.Seconds() * sampleRate))

	return chunkGeometry{
		startFrame:    startFrame,
		endFrame:      startFrame + chunkFrames,
		contextFrames: int64(math.Round(cfg.ContextDuration.Seconds() * sampleRate)),
		overlapFrames: int64(math.Round(cfg.OverlapDuration.Seconds() * sampleRate)),
	}
}
