// Package pipeline implements the Adaptive Pipeline: the fixed-order
// sequence of DSP stages (EQ, dynamics, stereo width, limiter) that turns
// a chunk's ProcessingTargets into mastered audio. Every stage is an
// audiocore.AudioProcessor, composable in an audiocore.ProcessorChain.
package pipeline

import (
	"log/slog"
	"math"

	"github.com/audiophile-labs/mastering-engine/internal/audiocore"
	"github.com/audiophile-labs/mastering-engine/internal/dsp"
	"github.com/audiophile-labs/mastering-engine/internal/errors"
	"github.com/audiophile-labs/mastering-engine/internal/logger"
)

// ComponentPipeline identifies pipeline-originated errors.
const ComponentPipeline = "pipeline"

// silenceRMSFloor below which a chunk is treated as digital silence and
// every stage but the limiter's final scale is skipped (spec's failure
// semantics: "silence stays silence").
const silenceRMSFloor = 1e-6

// planarFromInterleaved deinterleaves a float32 buffer into one float64
// slice per channel.
func planarFromInterleaved(buf []float32, channels int) [][]float64 {
	if channels <= 0 {
		channels = 1
	}
	frames := len(buf) / channels
	planar := make([][]float64, channels)
	for c := range planar {
		planar[c] = make([]float64, frames)
	}
	for i := 0; i < frames; i++ {
		for c := 0; c < channels; c++ {
			planar[c][i] = float64(buf[i*channels+c])
		}
	}
	return planar
}

// interleaveInto writes planar float64 channel data back into an
// interleaved float32 buffer, soft-clipping any sample outside [-1,1]
// rather than aborting the chunk (spec's overflow failure semantics).
func interleaveInto(planar [][]float64, out []float32) {
	channels := len(planar)
	if channels == 0 {
		return
	}
	frames := len(planar[0])
	for i := 0; i < frames; i++ {
		for c := 0; c < channels; c++ {
			out[i*channels+c] = float32(softClip(planar[c][i]))
		}
	}
}

// softClip keeps x within [-1,1] using a tanh curve above the threshold
// rather than hard truncation, per the spec's numerical-overflow handling.
func softClip(x float64) float64 {
	const limit = 1.0
	if x > limit || x < -limit {
		return math.Tanh(x)
	}
	return x
}

// isSilent reports whether every channel's RMS is below the silence
// floor, in which case all stages but the limiter's final scale are
// skipped.
func isSilent(planar [][]float64) bool {
	for _, ch := range planar {
		if dsp.RMS(ch) > silenceRMSFloor {
			return false
		}
	}
	return true
}

func newPipelineLogger(stage string) *slog.Logger {
	return logger.ForModule("pipeline").With("stage", stage)
}

func errInvalidInput(stage, reason string) error {
	return errors.Newf("invalid input: %s", reason).
		Component(ComponentPipeline).
		Category(errors.CategoryValidation).
		Context("stage", stage).
		Build()
}
