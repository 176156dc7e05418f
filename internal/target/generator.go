package target

import (
	"math"

	"github.com/audiophile-labs/mastering-engine/internal/config"
	"github.com/audiophile-labs/mastering-engine/internal/contentanalyzer"
	engerrors "github.com/audiophile-labs/mastering-engine/internal/errors"
)

// FingerprintSummary is the subset of a persisted MasteringFingerprint the
// generator needs. internal/fingerprint produces this from its own
// MasteringFingerprint type; target has no direct dependency on fingerprint
// storage, only on this small read-only view.
type FingerprintSummary struct {
	MeanLUFS    float64
	MeanCrestDB float64
	MeanBassPct float64
	MeanMidPct  float64
}

// Generator is the Continuous Target Generator: a pure function of
// (descriptor, fingerprint, preset, intensity, preserve_character) built
// once per process from the calibration-derived Bounds and the
// configured presets.
type Generator struct {
	Bounds  Bounds
	Presets map[string]config.PresetSettings
}

// NewGenerator builds a Generator from loaded Settings.
func NewGenerator(settings *config.Settings) *Generator {
	return &Generator{
		Bounds:  ComputeBounds(settings.Calibration.ReferencePoints),
		Presets: settings.Presets,
	}
}

// Generate computes ProcessingTargets for one chunk's descriptor. It is a
// pure function: identical inputs always produce identical output
// (spec.md §4.3's key invariant).
func (g *Generator) Generate(
	d contentanalyzer.ContentDescriptor,
	fp *FingerprintSummary,
	presetName string,
	intensity, preserveCharacter float64,
) (ProcessingTargets, error) {
	presetOffset, ok := g.Presets[presetName]
	if !ok {
		return ProcessingTargets{}, engerrors.Newf("unknown preset %q", presetName).
			Category(engerrors.CategoryTargetGeneration).
			Component("target").
			Build()
	}

	source := g.Bounds.Project(d)
	if fp != nil {
		fpPoint := ParameterSpacePoint{
			InputLevel:   g.Bounds.LUFSToInputLevel(fp.MeanLUFS),
			DynamicRange: g.Bounds.CrestToDynamicRange(fp.MeanCrestDB),
			BassPct:      fp.MeanBassPct,
			MidPct:       fp.MeanMidPct,
		}
		source = source.Blend(fpPoint, 0.8)
	}

	targetPos, intent := continuousTarget(source)
	blended := source.Blend(targetPos, preserveCharacter)

	offset := ParameterSpacePoint{
		InputLevel:   presetOffset.InputLevelDelta * intensity,
		DynamicRange: presetOffset.DynamicRangeDelta * intensity,
		BassMidRatio: presetOffset.BassMidRatioDelta * intensity,
		BassPct:      presetOffset.BassPctDelta * intensity,
		MidPct:       presetOffset.MidPctDelta * intensity,
	}
	final := blended.Add(offset).Clamp()

	targetLUFS := g.Bounds.InputLevelToLUFS(final.InputLevel)
	targetEnergies := targetBandEnergies(d.BandEnergy, final)
	gains := eqGainsDB(d.BandEnergy, targetEnergies, intensity)

	targets := ProcessingTargets{
		TargetLUFS:        targetLUFS,
		TargetPeakDBFS:    -0.1,
		EQGainsDB:         gains,
		CompressionAmount: intent.compressionAmount,
		ExpansionAmount:   intent.expansionAmount,
		TargetStereoWidth: computeTargetWidth(d.StereoWidth, final.InputLevel, preserveCharacter),
		PreserveCharacter: preserveCharacter,
	}

	switch {
	case intent.compressionAmount > 0:
		targets.ThresholdDBFS = targetLUFS - 4
		targets.CompressionRatio = 1 + 3*intent.compressionAmount
		targets.AttackMs = 3
		targets.ReleaseMs = 100
		targets.MakeupGainDB = math.Abs(targets.ThresholdDBFS) * (1 - 1/targets.CompressionRatio)

	case intent.expansionAmount > 0:
		targets.ThresholdDBFS = targetLUFS + 3
		targets.CompressionRatio = 1 + intent.expansionAmount
		targets.AttackMs = 3
		targets.ReleaseMs = 100
	}

	return targets, nil
}

// computeTargetWidth pulls the current stereo width toward "normal" (1.0)
// by preserve_character, with the loud-material clamp from spec.md §4.3
// step 5: above input_level 0.8, a width increase is capped at +0.3.
func computeTargetWidth(currentWidth, inputLevel, preserveCharacter float64) float64 {
	const normal = 1.0
	target := preserveCharacter*currentWidth + (1-preserveCharacter)*normal

	if inputLevel > 0.8 && target > currentWidth {
		if cap := currentWidth + 0.3; target > cap {
			target = cap
		}
	}

	return clamp(target, 0.5, 1.5)
}
