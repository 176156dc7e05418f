package pipeline

import (
	"context"
	"log/slog"
	"math"

	"github.com/audiophile-labs/mastering-engine/internal/audiocore"
)

// StereoWidthStage scales the side channel of a mid/side decomposition
// toward TargetStereoWidth (spec.md §4.4 step 3). Mono input passes
// through unchanged: there is no side channel to scale.
type StereoWidthStage struct {
	id     string
	logger *slog.Logger
}

// NewStereoWidthStage creates a stereo width stage.
func NewStereoWidthStage(id string) *StereoWidthStage {
	return &StereoWidthStage{id: id, logger: newPipelineLogger("width")}
}

func (s *StereoWidthStage) ID() string { return s.id }

func (s *StereoWidthStage) GetRequiredFormat() *audiocore.AudioFormat { return nil }

func (s *StereoWidthStage) GetOutputFormat(in audiocore.AudioFormat) audiocore.AudioFormat { return in }

func (s *StereoWidthStage) Process(ctx context.Context, input *audiocore.AudioData) (*audiocore.AudioData, error) {
	if input == nil || input.Format.Channels <= 0 {
		return nil, errInvalidInput("width", "nil input or zero channels")
	}
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	if input.Format.Channels != 2 || input.Targets == nil {
		return input, nil
	}

	planar := planarFromInterleaved(input.Buffer, input.Format.Channels)
	if isSilent(planar) {
		return input, nil
	}

	left, right := planar[0], planar[1]
	currentWidth := estimateCurrentWidth(left, right)
	scale := 1.0
	if currentWidth > 0.05 {
		scale = input.Targets.TargetStereoWidth / currentWidth
	}
	scale = math.Min(scale, 4.0)

	for i := range left {
		mid := (left[i] + right[i]) / 2
		side := (left[i] - right[i]) / 2
		side *= scale
		left[i] = mid + side
		right[i] = mid - side
	}

	out := &audiocore.AudioData{
		Buffer:      make([]float32, len(input.Buffer)),
		Format:      input.Format,
		Timestamp:   input.Timestamp,
		Offset:      input.Offset,
		Duration:    input.Duration,
		SourceID:    input.SourceID,
		Targets:     input.Targets,
		PeakAfterEQ: input.PeakAfterEQ,
	}
	interleaveInto(planar, out.Buffer)

	if s.logger.Enabled(ctx, slog.LevelDebug) {
		s.logger.Debug("stereo width applied", "current_width", currentWidth, "target_width", input.Targets.TargetStereoWidth)
	}

	return out, nil
}

// estimateCurrentWidth mirrors contentanalyzer's correlation-based width
// measure (1 - Pearson correlation of L/R; 0 = mono, 1 = normal stereo,
// 2 = out of phase) so the stage's current_width is on the same scale as
// TargetStereoWidth, which the generator derives from that same measure.
func estimateCurrentWidth(left, right []float64) float64 {
	n := len(left)
	if n == 0 {
		return 0
	}

	var meanL, meanR float64
	for i := 0; i < n; i++ {
		meanL += left[i]
		meanR += right[i]
	}
	meanL /= float64(n)
	meanR /= float64(n)

	var cov, varL, varR float64
	for i := 0; i < n; i++ {
		dl := left[i] - meanL
		dr := right[i] - meanR
		cov += dl * dr
		varL += dl * dl
		varR += dr * dr
	}
	if varL < 1e-12 || varR < 1e-12 {
		return 0
	}

	rho := cov / math.Sqrt(varL*varR)
	return 1 - rho
}
