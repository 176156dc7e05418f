package target

// dynamicsIntent carries the hard-content-rule outcome: which of
// compression/expansion (at most one) applies and how strongly, plus
// directional nudges to the target loudness/dynamics coordinates.
type dynamicsIntent struct {
	compressionAmount float64
	expansionAmount   float64
	lufsBias          float64 // added to target input_level before clamping
	crestBias         float64 // added to target dynamic_range before clamping
}

// classify applies spec.md §4.3 step 2's hard content rules, in order,
// first match wins.
func classify(p ParameterSpacePoint) dynamicsIntent {
	switch {
	case p.InputLevel < 0.5 && p.DynamicRange >= 0.5:
		// Aggressive upward LUFS correction; preserve/enhance crest.
		return dynamicsIntent{compressionAmount: 0, expansionAmount: 0, lufsBias: 0.25, crestBias: 0.05}

	case p.InputLevel > 0.85 && p.DynamicRange >= 0.45 && p.DynamicRange < 0.6:
		return dynamicsIntent{compressionAmount: 0.42, lufsBias: 0.05}

	case p.InputLevel > 0.85 && p.DynamicRange < 0.45:
		return dynamicsIntent{expansionAmount: 0.7, lufsBias: -0.05, crestBias: 0.15}

	case p.InputLevel > 0.7 && p.InputLevel <= 0.85 && p.DynamicRange >= 0.6:
		return dynamicsIntent{expansionAmount: 0.4}

	case p.DynamicRange > 0.9:
		return dynamicsIntent{compressionAmount: 0.85, lufsBias: 0.2}

	default:
		return dynamicsIntent{compressionAmount: 0.3}
	}
}

// continuousTarget computes the un-blended target position per spec.md
// §4.3 steps 1-2: the inverse loudness-dynamics relation, the hard
// content rules, and the mid-dominance preservation clamp.
func continuousTarget(source ParameterSpacePoint) (ParameterSpacePoint, dynamicsIntent) {
	intent := classify(source)

	target := source
	// Inverse loudness-dynamics relation (Pearson ≈ -0.85): quiet+dynamic
	// material gets a loudness lift, loud+compressed material gets a
	// dynamics lift, scaled by how far from the midpoint input_level sits.
	inverseRelation := (0.5 - source.InputLevel) * 0.6
	target.DynamicRange += inverseRelation
	target.InputLevel += -inverseRelation * 0.3

	target.InputLevel += intent.lufsBias
	target.DynamicRange += intent.crestBias

	// Mid-dominance preservation: rare, valuable mid-forward + dynamic
	// material keeps its tonal tilt close to source.
	if source.MidPct > 0.55 && source.DynamicRange > 0.65 {
		target.BassMidRatio = clamp(target.BassMidRatio, source.BassMidRatio-0.2, source.BassMidRatio+0.2)
	}

	return target.Clamp(), intent
}
