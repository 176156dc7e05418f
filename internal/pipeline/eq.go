package pipeline

import (
	"context"
	"log/slog"

	"github.com/audiophile-labs/mastering-engine/internal/audiocore"
	"github.com/audiophile-labs/mastering-engine/internal/contentanalyzer"
	"github.com/audiophile-labs/mastering-engine/internal/dsp"
)

const (
	eqFrameSize = 2048
	eqHopSize   = eqFrameSize / 2
)

// EQStage applies the per-band gains from ProcessingTargets.EQGainsDB in
// the frequency domain, reconstructed with weighted overlap-add so frame
// boundaries introduce no audible seams (spec.md §4.4 step 1).
type EQStage struct {
	id     string
	logger *slog.Logger
}

// NewEQStage creates a psychoacoustic EQ stage.
func NewEQStage(id string) *EQStage {
	return &EQStage{id: id, logger: newPipelineLogger("eq")}
}

func (s *EQStage) ID() string { return s.id }

func (s *EQStage) GetRequiredFormat() *audiocore.AudioFormat { return nil }

func (s *EQStage) GetOutputFormat(in audiocore.AudioFormat) audiocore.AudioFormat { return in }

func (s *EQStage) Process(ctx context.Context, input *audiocore.AudioData) (*audiocore.AudioData, error) {
	if input == nil || input.Format.Channels <= 0 {
		return nil, errInvalidInput("eq", "nil input or zero channels")
	}
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	planar := planarFromInterleaved(input.Buffer, input.Format.Channels)

	if isSilent(planar) || input.Targets == nil || len(input.Targets.EQGainsDB) == 0 {
		// input.PeakAfterEQ is left at its zero value on this path; silence
		// never sets it downstream either, so the zero stays meaningful.
		return input, nil
	}

	gains := input.Targets.EQGainsDB
	sampleRate := float64(input.Format.SampleRate)

	for c := range planar {
		planar[c] = applyBandGains(planar[c], sampleRate, gains)
	}

	out := &audiocore.AudioData{
		Buffer:    make([]float32, len(input.Buffer)),
		Format:    input.Format,
		Timestamp: input.Timestamp,
		Offset:    input.Offset,
		Duration:  input.Duration,
		SourceID:  input.SourceID,
		Targets:   input.Targets,
	}
	interleaveInto(planar, out.Buffer)

	var peak float64
	for _, ch := range planar {
		if p := dsp.Peak(ch); p > peak {
			peak = p
		}
	}
	out.PeakAfterEQ = peak

	if s.logger.Enabled(ctx, slog.LevelDebug) {
		s.logger.Debug("eq applied", "peak_after_eq", peak, "bands", len(gains))
	}

	return out, nil
}

// applyBandGains runs one channel through a windowed STFT, multiplies
// each bin by its Bark band's linear gain, and reconstructs via
// weighted overlap-add (accumulated synthesis window energy, not a
// fixed COLA constant, so it stays correct for any frame/hop choice).
func applyBandGains(signal []float64, sampleRate float64, gainsDB []float64) []float64 {
	n := len(signal)
	if n == 0 {
		return signal
	}

	window := dsp.HannWindow(eqFrameSize)
	linearGain := make([]float64, len(gainsDB))
	for i, g := range gainsDB {
		linearGain[i] = dsp.DBToLinear(g)
	}

	outAccum := make([]float64, n+eqFrameSize)
	winAccum := make([]float64, n+eqFrameSize)

	for start := 0; start < n; start += eqHopSize {
		frame := make([]float64, eqFrameSize)
		for j := 0; j < eqFrameSize; j++ {
			if idx := start + j; idx < n {
				frame[j] = signal[idx] * window[j]
			}
		}

		coeffs := dsp.RFFT(frame, eqFrameSize)
		binHz := sampleRate / float64(eqFrameSize)
		for k := range coeffs {
			band := bandForBin(k, binHz, len(linearGain))
			coeffs[k] *= complex(linearGain[band], 0)
		}
		reconstructed := dsp.IRFFT(coeffs, eqFrameSize)

		for j := 0; j < eqFrameSize; j++ {
			idx := start + j
			outAccum[idx] += reconstructed[j] * window[j]
			winAccum[idx] += window[j] * window[j]
		}
	}

	out := make([]float64, n)
	for i := range out {
		if winAccum[i] > 1e-9 {
			out[i] = outAccum[i] / winAccum[i]
		}
	}
	return out
}

// bandForBin maps an FFT bin's center frequency to a Bark band index,
// clamped to the caller's gain table length.
func bandForBin(bin int, binHz float64, numBands int) int {
	freq := float64(bin) * binHz
	edges := contentanalyzer.BarkBandEdges
	for b := 0; b < len(edges)-1; b++ {
		if freq >= edges[b] && freq < edges[b+1] {
			if b >= numBands {
				return numBands - 1
			}
			return b
		}
	}
	return numBands - 1
}
