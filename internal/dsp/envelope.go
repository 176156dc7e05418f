package dsp

import "math"

// EnvelopeFollower tracks the amplitude envelope of a signal with
// independent attack and release time constants, the building block for
// the dynamics stage's gain computer.
type EnvelopeFollower struct {
	sampleRate   float64
	attackCoeff  float64
	releaseCoeff float64
	level        float64
}

// NewEnvelopeFollower builds a follower with the given attack/release
// times. Times of zero mean "instantaneous" for that direction.
func NewEnvelopeFollower(sampleRate, attackMs, releaseMs float64) *EnvelopeFollower {
	return &EnvelopeFollower{
		sampleRate:   sampleRate,
		attackCoeff:  timeConstantCoeff(sampleRate, attackMs),
		releaseCoeff: timeConstantCoeff(sampleRate, releaseMs),
	}
}

func timeConstantCoeff(sampleRate, timeMs float64) float64 {
	if timeMs <= 0 {
		return 0
	}
	return math.Exp(-1.0 / (sampleRate * timeMs / 1000.0))
}

// Process steps the follower forward one sample and returns the updated
// envelope level, tracking the absolute value of x.
func (e *EnvelopeFollower) Process(x float64) float64 {
	abs := math.Abs(x)
	var coeff float64
	if abs > e.level {
		coeff = e.attackCoeff
	} else {
		coeff = e.releaseCoeff
	}
	e.level = coeff*e.level + (1-coeff)*abs
	return e.level
}

// ApplyBatch runs Process over every sample and returns the resulting
// envelope trace, leaving samples unmodified.
func (e *EnvelopeFollower) ApplyBatch(samples []float64) []float64 {
	out := make([]float64, len(samples))
	for i, x := range samples {
		out[i] = e.Process(x)
	}
	return out
}

// Level returns the current envelope level without advancing it.
func (e *EnvelopeFollower) Level() float64 {
	return e.level
}

// Reset zeroes the tracked level, e.g. between unrelated streams.
func (e *EnvelopeFollower) Reset() {
	e.level = 0
}
