// Package target implements the Continuous Target Generator: it projects
// a ContentDescriptor into a 5-D parameter space, computes a target point
// via fixed mathematical relationships derived from a calibration set (no
// categorical/ML decision), and unprojects the blended result into
// per-chunk ProcessingTargets the pipeline stages consume directly.
package target

// ParameterSpacePoint is the 5-D coordinate descriptors and targets are
// expressed in, per spec.md §3.1.
type ParameterSpacePoint struct {
	InputLevel   float64 // 0 = very quiet, 1 = very loud
	DynamicRange float64 // 0 = heavily compressed, 1 = extreme dynamics
	BassMidRatio float64 // [-1,+1], negative = mid-forward, positive = bass-heavy
	BassPct      float64 // [0,1] fractional low-band energy
	MidPct       float64 // [0,1] fractional mid-band energy
}

// Add returns the component-wise sum of p and o.
func (p ParameterSpacePoint) Add(o ParameterSpacePoint) ParameterSpacePoint {
	return ParameterSpacePoint{
		InputLevel:   p.InputLevel + o.InputLevel,
		DynamicRange: p.DynamicRange + o.DynamicRange,
		BassMidRatio: p.BassMidRatio + o.BassMidRatio,
		BassPct:      p.BassPct + o.BassPct,
		MidPct:       p.MidPct + o.MidPct,
	}
}

// Blend returns w*p + (1-w)*o, component-wise (the preserve_character
// blend from spec.md §4.3 step 3).
func (p ParameterSpacePoint) Blend(o ParameterSpacePoint, w float64) ParameterSpacePoint {
	return ParameterSpacePoint{
		InputLevel:   w*p.InputLevel + (1-w)*o.InputLevel,
		DynamicRange: w*p.DynamicRange + (1-w)*o.DynamicRange,
		BassMidRatio: w*p.BassMidRatio + (1-w)*o.BassMidRatio,
		BassPct:      w*p.BassPct + (1-w)*o.BassPct,
		MidPct:       w*p.MidPct + (1-w)*o.MidPct,
	}
}

// Clamp keeps every coordinate within its documented range.
func (p ParameterSpacePoint) Clamp() ParameterSpacePoint {
	return ParameterSpacePoint{
		InputLevel:   clamp(p.InputLevel, 0, 1),
		DynamicRange: clamp(p.DynamicRange, 0, 1),
		BassMidRatio: clamp(p.BassMidRatio, -1, 1),
		BassPct:      clamp(p.BassPct, 0, 1),
		MidPct:       clamp(p.MidPct, 0, 1),
	}
}

// ProcessingTargets is the per-chunk output of the generator, consumed
// directly by the pipeline stages (spec.md §3.1).
type ProcessingTargets struct {
	TargetLUFS     float64
	TargetPeakDBFS float64

	EQGainsDB []float64 // len == contentanalyzer.BandCount(), each clamped to ±12dB

	CompressionAmount float64 // [0,1]
	ExpansionAmount   float64 // [0,1], mutually exclusive with CompressionAmount
	CompressionRatio  float64 // [1.0, 8.0]
	ThresholdDBFS     float64
	AttackMs          float64
	ReleaseMs         float64
	MakeupGainDB      float64

	TargetStereoWidth float64 // [0.5, 1.5]
	PreserveCharacter float64 // [0,1], blend weight used to compute this target
}

func clamp(x, lo, hi float64) float64 {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}
