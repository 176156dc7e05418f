package pipeline

import (
	"context"
	"log/slog"
	"math"

	"github.com/audiophile-labs/mastering-engine/internal/audiocore"
	"github.com/audiophile-labs/mastering-engine/internal/dsp"
)

// limiterKneeDB is how far below the ceiling the tanh soft knee begins,
// per spec.md §4.4 step 4.
const limiterKneeDB = 3.0

// LimiterStage is the final stage: a two-step peak-normalizing soft
// limiter. It pre-boosts toward TargetLUFS if headroom allows, then
// scales so the final peak lands on TargetPeakDBFS, rounding the last
// few dB through a tanh curve instead of hard-clipping.
//
// Per spec.md §4.4's failure semantics, silence skips every stage except
// this one's final scale — which is itself a no-op on silence, since
// scaling zero by anything stays zero.
type LimiterStage struct {
	id     string
	logger *slog.Logger
}

// NewLimiterStage creates a peak-normalizing soft limiter stage.
func NewLimiterStage(id string) *LimiterStage {
	return &LimiterStage{id: id, logger: newPipelineLogger("limiter")}
}

func (s *LimiterStage) ID() string { return s.id }

func (s *LimiterStage) GetRequiredFormat() *audiocore.AudioFormat { return nil }

func (s *LimiterStage) GetOutputFormat(in audiocore.AudioFormat) audiocore.AudioFormat { return in }

func (s *LimiterStage) Process(ctx context.Context, input *audiocore.AudioData) (*audiocore.AudioData, error) {
	if input == nil || input.Format.Channels <= 0 {
		return nil, errInvalidInput("limiter", "nil input or zero channels")
	}
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	planar := planarFromInterleaved(input.Buffer, input.Format.Channels)

	if input.Targets == nil || isSilent(planar) {
		// input.PeakAfterEQ carries through from an earlier stage (or stays
		// zero if this is silence that was never EQ'd); the limiter never
		// sets it itself.
		return input, nil
	}

	t := input.Targets

	rms := combinedRMS(planar)
	rmsDB := dsp.LinearToDB(rms)
	if boostDB := t.TargetLUFS - rmsDB; boostDB > 0.5 &&
		combinedPeak(planar)*dsp.DBToLinear(boostDB) <= dsp.DBToLinear(t.TargetPeakDBFS) {
		boost := dsp.DBToLinear(boostDB)
		for c := range planar {
			for i := range planar[c] {
				planar[c][i] *= boost
			}
		}
	}

	peak := combinedPeak(planar)
	ceilingLin := dsp.DBToLinear(t.TargetPeakDBFS)
	if peak > 1e-9 {
		scale := ceilingLin / peak
		for c := range planar {
			for i := range planar[c] {
				planar[c][i] = softLimit(planar[c][i]*scale, ceilingLin)
			}
		}

		// softLimit's tanh knee pulls the loudest sample (sitting exactly
		// at ceilingLin going in) down to kneeStart+span*tanh(1), short of
		// the ceiling. Re-measure and trim linearly so the true output
		// peak lands on ceilingLin, per spec.md §4.4 step 4.
		if kneePeak := combinedPeak(planar); kneePeak > 1e-9 {
			trim := ceilingLin / kneePeak
			for c := range planar {
				for i := range planar[c] {
					planar[c][i] *= trim
				}
			}
		}
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
		s.logger.Debug("limiter applied", "target_lufs", t.TargetLUFS, "target_peak_dbfs", t.TargetPeakDBFS)
	}

	return out, nil
}

// softLimit passes x through unchanged until it enters the last
// limiterKneeDB before ceiling, then eases it toward the ceiling with a
// tanh curve so the output never exceeds ceiling (within float
// precision) without hard-clipping.
func softLimit(x, ceiling float64) float64 {
	kneeStart := ceiling * dsp.DBToLinear(-limiterKneeDB)
	mag := math.Abs(x)
	if mag <= kneeStart {
		return x
	}

	over := mag - kneeStart
	span := ceiling - kneeStart
	if span <= 0 {
		return math.Copysign(ceiling, x)
	}

	shaped := kneeStart + span*math.Tanh(over/span)
	return math.Copysign(shaped, x)
}

func combinedRMS(planar [][]float64) float64 {
	var sumSq float64
	var n int
	for _, ch := range planar {
		for _, v := range ch {
			sumSq += v * v
		}
		n += len(ch)
	}
	if n == 0 {
		return 0
	}
	return math.Sqrt(sumSq / float64(n))
}

func combinedPeak(planar [][]float64) float64 {
	var peak float64
	for _, ch := range planar {
		if p := dsp.Peak(ch); p > peak {
			peak = p
		}
	}
	return peak
}
