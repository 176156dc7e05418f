package target

import "github.com/audiophile-labs/mastering-engine/internal/contentanalyzer"

// smoothstepNormalized is the classic 3t²-2t³ Hermite ease, the monotone
// shape used for every interior mapping between a physical unit (LUFS,
// crest dB) and its [0,1] parameter-space coordinate (spec.md §9 Open
// Question 2: interior shape is ours to choose, endpoints are fixed).
func smoothstepNormalized(t float64) float64 {
	t = clamp(t, 0, 1)
	return t * t * (3 - 2*t)
}

// invSmoothstepNormalized inverts smoothstepNormalized via a few Newton
// iterations; the forward function is monotone and C¹ on [0,1] so this
// converges quickly from the identity starting guess.
func invSmoothstepNormalized(s float64) float64 {
	s = clamp(s, 0, 1)
	t := s
	for i := 0; i < 8; i++ {
		f := t*t*(3-2*t) - s
		df := 6*t - 6*t*t
		if df == 0 {
			break
		}
		t -= f / df
		t = clamp(t, 0, 1)
	}
	return t
}

func normalize(x, lo, hi float64) float64 {
	if hi == lo {
		return 0.5
	}
	return clamp((x-lo)/(hi-lo), 0, 1)
}

func denormalize(t, lo, hi float64) float64 {
	return lo + t*(hi-lo)
}

// LUFSToInputLevel maps integrated loudness to the input_level coordinate.
func (b Bounds) LUFSToInputLevel(lufs float64) float64 {
	return smoothstepNormalized(normalize(lufs, b.LUFSMin, b.LUFSMax))
}

// InputLevelToLUFS inverts LUFSToInputLevel.
func (b Bounds) InputLevelToLUFS(inputLevel float64) float64 {
	return denormalize(invSmoothstepNormalized(inputLevel), b.LUFSMin, b.LUFSMax)
}

// CrestToDynamicRange maps crest factor to the dynamic_range coordinate.
// Extreme transient material (very large crest) saturates at 1.0 rather
// than overflowing, per the §8 boundary-behavior table.
func (b Bounds) CrestToDynamicRange(crestDB float64) float64 {
	return smoothstepNormalized(normalize(crestDB, b.CrestMin, b.CrestMax))
}

// DynamicRangeToCrest inverts CrestToDynamicRange.
func (b Bounds) DynamicRangeToCrest(dynamicRange float64) float64 {
	return denormalize(invSmoothstepNormalized(dynamicRange), b.CrestMin, b.CrestMax)
}

// Project maps a ContentDescriptor into the 5-D parameter space.
func (b Bounds) Project(d contentanalyzer.ContentDescriptor) ParameterSpacePoint {
	bassPct, midPct := contentanalyzer.BassMidPct(d.BandEnergy)

	var bassMidRatio float64
	if bassPct+midPct > 0 {
		bassMidRatio = clamp((bassPct-midPct)/(bassPct+midPct), -1, 1)
	}

	return ParameterSpacePoint{
		InputLevel:   b.LUFSToInputLevel(d.IntegratedLoudnessLUFS),
		DynamicRange: b.CrestToDynamicRange(d.CrestFactorDB),
		BassMidRatio: bassMidRatio,
		BassPct:      bassPct,
		MidPct:       midPct,
	}
}
