package dsp

import "math"

// RMS returns the root-mean-square level of samples, linear scale.
func RMS(samples []float64) float64 {
	if len(samples) == 0 {
		return 0
	}
	var sum float64
	for _, s := range samples {
		sum += s * s
	}
	return math.Sqrt(sum / float64(len(samples)))
}

// Peak returns the maximum absolute sample value, linear scale.
func Peak(samples []float64) float64 {
	var peak float64
	for _, s := range samples {
		if abs := math.Abs(s); abs > peak {
			peak = abs
		}
	}
	return peak
}

// CrestFactorDB returns the ratio of peak to RMS in dB, a measure of how
// spiky a signal is relative to its average level. Silent input reports 0.
func CrestFactorDB(samples []float64) float64 {
	rms := RMS(samples)
	if rms == 0 {
		return 0
	}
	return 20 * math.Log10(Peak(samples)/rms)
}

// LinearToDB converts a linear amplitude to dBFS, floored at -120dB for
// silence to keep it finite.
func LinearToDB(linear float64) float64 {
	if linear <= 0 {
		return -120
	}
	db := 20 * math.Log10(linear)
	if db < -120 {
		return -120
	}
	return db
}

// DBToLinear converts dBFS back to a linear amplitude multiplier.
func DBToLinear(db float64) float64 {
	return math.Pow(10, db/20)
}

// ZeroCrossingRate returns the fraction of adjacent sample pairs that
// cross zero, a cheap proxy for transient/noise density used by content
// analysis to distinguish percussive material from tonal sustain.
func ZeroCrossingRate(samples []float64) float64 {
	if len(samples) < 2 {
		return 0
	}
	var crossings int
	for i := 1; i < len(samples); i++ {
		if (samples[i-1] >= 0) != (samples[i] >= 0) {
			crossings++
		}
	}
	return float64(crossings) / float64(len(samples)-1)
}
