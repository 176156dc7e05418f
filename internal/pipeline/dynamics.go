package pipeline

import (
	"context"
	"log/slog"
	"math"

	"github.com/audiophile-labs/mastering-engine/internal/audiocore"
	"github.com/audiophile-labs/mastering-engine/internal/dsp"
	"github.com/audiophile-labs/mastering-engine/internal/target"
)

// softKneeDB is the compressor's soft-knee width, per spec.md §4.4 step 2.
const softKneeDB = 6.0

// DynamicsStage runs the mutually-exclusive compressor/expander state
// machine: at most one of CompressionAmount/ExpansionAmount is nonzero
// per chunk, chosen once and never switched mid-chunk (spec.md §4.4).
//
// Envelope/gain continuity across chunk boundaries is not stage-local
// state: the orchestrator feeds this stage context-padded audio
// (spec.md §4.5's context_duration), so the envelope follower converges
// during the padding before reaching the chunk's true start, and the
// orchestrator trims the padding back off afterward.
type DynamicsStage struct {
	id     string
	logger *slog.Logger
}

// NewDynamicsStage creates a dynamics stage.
func NewDynamicsStage(id string) *DynamicsStage {
	return &DynamicsStage{id: id, logger: newPipelineLogger("dynamics")}
}

func (s *DynamicsStage) ID() string { return s.id }

func (s *DynamicsStage) GetRequiredFormat() *audiocore.AudioFormat { return nil }

func (s *DynamicsStage) GetOutputFormat(in audiocore.AudioFormat) audiocore.AudioFormat { return in }

func (s *DynamicsStage) Process(ctx context.Context, input *audiocore.AudioData) (*audiocore.AudioData, error) {
	if input == nil || input.Format.Channels <= 0 {
		return nil, errInvalidInput("dynamics", "nil input or zero channels")
	}
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	planar := planarFromInterleaved(input.Buffer, input.Format.Channels)

	if isSilent(planar) || input.Targets == nil {
		// input.PeakAfterEQ passes through whatever the EQ stage left it as
		// (zero, for silence that reached here without ever being EQ'd).
		return input, nil
	}

	t := input.Targets
	sampleRate := float64(input.Format.SampleRate)

	switch {
	case t.CompressionAmount > 0:
		for c := range planar {
			planar[c] = compress(planar[c], sampleRate, *t)
		}
	case t.ExpansionAmount > 0:
		for c := range planar {
			planar[c] = expand(planar[c], sampleRate, *t)
		}
	default:
		return input, nil
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
		s.logger.Debug("dynamics applied",
			"compression_amount", t.CompressionAmount,
			"expansion_amount", t.ExpansionAmount,
			"ratio", t.CompressionRatio)
	}

	return out, nil
}

// compress runs a feed-forward, envelope-controlled compressor with a
// soft knee and auto makeup gain.
func compress(signal []float64, sampleRate float64, t target.ProcessingTargets) []float64 {
	env := dsp.NewEnvelopeFollower(sampleRate, t.AttackMs, t.ReleaseMs)
	makeupLin := dsp.DBToLinear(t.MakeupGainDB)
	ratio := t.CompressionRatio
	if ratio < 1 {
		ratio = 1
	}

	out := make([]float64, len(signal))
	for i, x := range signal {
		level := env.Process(math.Abs(x))
		gainDB := compressorGainDB(dsp.LinearToDB(level), t.ThresholdDBFS, ratio)
		out[i] = x * dsp.DBToLinear(gainDB) * makeupLin
	}
	return out
}

// compressorGainDB computes the gain reduction for one envelope sample,
// with a softKneeDB-wide quadratic knee centered on the threshold.
func compressorGainDB(levelDB, thresholdDB, ratio float64) float64 {
	overshoot := levelDB - thresholdDB
	half := softKneeDB / 2

	switch {
	case overshoot <= -half:
		return 0
	case overshoot >= half:
		return (thresholdDB + overshoot/ratio) - levelDB
	default:
		// Quadratic interpolation through the knee region.
		kneeOvershoot := overshoot + half
		reduced := kneeOvershoot * kneeOvershoot / (2 * softKneeDB) * (1 - 1/ratio)
		return -reduced
	}
}

// expand runs upward expansion: samples above threshold are amplified
// by (level_above_threshold)*(ratio-1) before being added back.
func expand(signal []float64, sampleRate float64, t target.ProcessingTargets) []float64 {
	env := dsp.NewEnvelopeFollower(sampleRate, t.AttackMs, t.ReleaseMs)
	thresholdLin := dsp.DBToLinear(t.ThresholdDBFS)
	ratio := t.CompressionRatio
	if ratio < 1 {
		ratio = 1
	}

	out := make([]float64, len(signal))
	for i, x := range signal {
		level := env.Process(math.Abs(x))
		if level <= thresholdLin {
			out[i] = x
			continue
		}
		levelAboveThreshold := level - thresholdLin
		boost := levelAboveThreshold * (ratio - 1)
		out[i] = x + math.Copysign(boost, x)
	}
	return out
}
