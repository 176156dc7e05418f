package contentanalyzer

import (
	"math"

	"github.com/audiophile-labs/mastering-engine/internal/dsp"
)

// Analyzer extracts ContentDescriptors from decoded audio windows.
type Analyzer struct {
	sampleRate float64

	prevSpectrum []float64
}

// NewAnalyzer builds an analyzer for the given sample rate. prevSpectrum
// (spectral flux history) resets per Analyzer instance; callers that
// want flux continuity across chunks should reuse the same Analyzer.
func NewAnalyzer(sampleRate float64) *Analyzer {
	return &Analyzer{sampleRate: sampleRate}
}

// Analyze computes a ContentDescriptor for a window of channel-deinterleaved
// samples (channels[0] = left/mono, channels[1] = right if stereo).
// history, if non-nil, is updated in place with the new descriptor's
// exponential moving averages.
func (a *Analyzer) Analyze(channels [][]float64, history *History) ContentDescriptor {
	if len(channels) == 0 || len(channels[0]) == 0 {
		d := singleSampleOrSilence(channels)
		if history != nil {
			history.Update(d)
		}
		return d
	}

	mono := mixToMono(channels)
	if isSilence(mono) {
		d := SilenceDescriptor()
		if history != nil {
			history.Update(d)
		}
		return d
	}

	n := dsp.NextPowerOfTwo(len(mono))
	window := dsp.HannWindow(len(mono))
	windowed := make([]float64, len(mono))
	for i, s := range mono {
		windowed[i] = s * window[i]
	}

	coeffs := dsp.RFFT(windowed, n)
	mags := dsp.Magnitudes(coeffs)
	binHz := a.sampleRate / float64(n)

	d := ContentDescriptor{
		RMSEnergy:              dsp.RMS(mono),
		PeakEnergy:             dsp.Peak(mono),
		CrestFactorDB:          dsp.CrestFactorDB(mono),
		IntegratedLoudnessLUFS: dsp.IntegratedLUFS(mono, a.sampleRate, 1),
		BandEnergy:             bandEnergies(mags, binHz),
		SpectralCentroidHz:     spectralCentroid(mags, binHz),
		SpectralRolloffHz:      spectralRolloff(mags, binHz, 0.85),
		SpectralFlux:           spectralFlux(a.prevSpectrum, mags),
		ZeroCrossingRate:       dsp.ZeroCrossingRate(mono),
		AttackTimeMs:           attackTimeMs(mono, a.sampleRate),
		StereoWidth:            stereoWidth(channels),
	}

	a.prevSpectrum = mags

	if history != nil {
		history.Update(d)
	}
	return d
}

func singleSampleOrSilence(channels [][]float64) ContentDescriptor {
	if len(channels) == 0 || len(channels[0]) == 0 {
		return SilenceDescriptor()
	}
	d := SilenceDescriptor()
	sample := channels[0][0]
	d.RMSEnergy = math.Abs(sample)
	d.PeakEnergy = math.Abs(sample)
	return d
}

func mixToMono(channels [][]float64) []float64 {
	if len(channels) == 1 {
		return channels[0]
	}
	l, r := channels[0], channels[1]
	n := len(l)
	if len(r) < n {
		n = len(r)
	}
	mono := make([]float64, n)
	for i := 0; i < n; i++ {
		mono[i] = (l[i] + r[i]) / 2
	}
	return mono
}

func isSilence(samples []float64) bool {
	for _, s := range samples {
		if s != 0 {
			return false
		}
	}
	return true
}

func spectralCentroid(mags []float64, binHz float64) float64 {
	var weighted, total float64
	for i, m := range mags {
		power := m * m
		weighted += float64(i) * binHz * power
		total += power
	}
	if total == 0 {
		return 0
	}
	return weighted / total
}

func spectralRolloff(mags []float64, binHz float64, fraction float64) float64 {
	var total float64
	for _, m := range mags {
		total += m * m
	}
	if total == 0 {
		return 0
	}

	threshold := total * fraction
	var cumulative float64
	for i, m := range mags {
		cumulative += m * m
		if cumulative >= threshold {
			return float64(i) * binHz
		}
	}
	return float64(len(mags)-1) * binHz
}

func spectralFlux(prev, current []float64) float64 {
	if prev == nil || len(prev) != len(current) {
		return 0
	}
	var sum float64
	for i := range current {
		d := current[i] - prev[i]
		sum += d * d
	}
	return math.Sqrt(sum)
}

// stereoWidth maps L/R correlation to a [0,2] range: 0 = collapsed/mono,
// 1 = normal stereo, 2 = fully anti-correlated/phase-inverted. A dead
// channel (zero variance on either side) reports 0, a no-op for the
// width stage per the boundary behavior table.
func stereoWidth(channels [][]float64) float64 {
	if len(channels) < 2 {
		return 0
	}
	l, r := channels[0], channels[1]
	n := len(l)
	if len(r) < n {
		n = len(r)
	}
	if n == 0 {
		return 0
	}

	var meanL, meanR float64
	for i := 0; i < n; i++ {
		meanL += l[i]
		meanR += r[i]
	}
	meanL /= float64(n)
	meanR /= float64(n)

	var cov, varL, varR float64
	for i := 0; i < n; i++ {
		dl := l[i] - meanL
		dr := r[i] - meanR
		cov += dl * dr
		varL += dl * dl
		varR += dr * dr
	}

	if varL == 0 || varR == 0 {
		return 0
	}

	rho := cov / math.Sqrt(varL*varR)
	return 1 - rho
}

// attackTimeMs estimates time from silence to 90% of peak envelope using
// a fast-attack, slow-release envelope follower.
func attackTimeMs(samples []float64, sampleRate float64) float64 {
	follower := dsp.NewEnvelopeFollower(sampleRate, 1, 50)
	trace := follower.ApplyBatch(samples)

	peak := 0.0
	for _, v := range trace {
		if v > peak {
			peak = v
		}
	}
	if peak == 0 {
		return 0
	}

	target := peak * 0.9
	for i, v := range trace {
		if v >= target {
			return float64(i) / sampleRate * 1000
		}
	}
	return float64(len(trace)) / sampleRate * 1000
}
