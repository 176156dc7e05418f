package target

import (
	"math"

	"github.com/audiophile-labs/mastering-engine/internal/contentanalyzer"
)

// bandGroup classifies a Bark band index into the bass/mid/treble split
// used to redistribute energy toward the target bass_pct/mid_pct.
func bandGroup(b int) int {
	center := contentanalyzer.BandCenterHz(b)
	switch {
	case center < 300:
		return 0 // bass
	case center < 4000:
		return 1 // mid
	default:
		return 2 // treble
	}
}

// targetBandEnergies redistributes source band energy toward the target
// bass_pct/mid_pct/bass_mid_ratio, preserving the shape within each group
// and renormalizing so the result still sums to 1.
func targetBandEnergies(source []float64, target ParameterSpacePoint) []float64 {
	var groupSum [3]float64
	for b, e := range source {
		groupSum[bandGroup(b)] += e
	}

	treblePct := clamp(1-target.BassPct-target.MidPct, 0, 1)
	// bass_mid_ratio tilts the bass/mid split without touching treble.
	tilt := target.BassMidRatio * 0.1
	targetGroupPct := [3]float64{
		clamp(target.BassPct+tilt, 0, 1),
		clamp(target.MidPct-tilt, 0, 1),
		treblePct,
	}

	var scale [3]float64
	for g := 0; g < 3; g++ {
		if groupSum[g] > 1e-9 {
			scale[g] = targetGroupPct[g] / groupSum[g]
		} else {
			scale[g] = 1
		}
	}

	out := make([]float64, len(source))
	var total float64
	for b, e := range source {
		out[b] = e * scale[bandGroup(b)]
		total += out[b]
	}
	if total <= 0 {
		uniform := 1.0 / float64(len(out))
		for b := range out {
			out[b] = uniform
		}
		return out
	}
	for b := range out {
		out[b] /= total
	}
	return out
}

// maskingThreshold approximates the Zwicker spreading function with a
// simple neighbor-average over adjacent bands: energy a band's neighbors
// mask is energy the ear can't resolve independently from them.
func maskingThreshold(energies []float64, b int) float64 {
	var sum float64
	var n int
	if b > 0 {
		sum += energies[b-1]
		n++
	}
	if b < len(energies)-1 {
		sum += energies[b+1]
		n++
	}
	if n == 0 {
		return 0
	}
	return 0.5 * (sum / float64(n))
}

// eqGainsDB computes the per-band EQ gain, clamped to ±12dB, with the
// psychoacoustic masking guard: bands below their masking threshold get
// half gain, since the ear can't resolve a correction there anyway.
func eqGainsDB(source, targetEnergy []float64, intensity float64) []float64 {
	gains := make([]float64, len(source))
	for b := range source {
		src := math.Max(source[b], 1e-9)
		tgt := math.Max(targetEnergy[b], 1e-9)

		gain := 10 * math.Log10(tgt/src) * intensity
		gain = clamp(gain, -12, 12)

		if source[b] < maskingThreshold(source, b) {
			gain *= 0.5
		}
		gains[b] = gain
	}
	return gains
}
