package target

import (
	"testing"

	"github.com/audiophile-labs/mastering-engine/internal/config"
	"github.com/audiophile-labs/mastering-engine/internal/contentanalyzer"
)

func testSettings() *config.Settings {
	s := &config.Settings{}
	s.Presets = map[string]config.PresetSettings{
		"adaptive": {},
		"gentle":   {InputLevelDelta: -0.05, DynamicRangeDelta: 0.1},
		"warm":     {BassPctDelta: 0.05, MidPctDelta: -0.02},
		"bright":   {MidPctDelta: 0.03},
		"punchy":   {DynamicRangeDelta: -0.1, BassMidRatioDelta: 0.1},
	}
	return s
}

func quietDynamicDescriptor() contentanalyzer.ContentDescriptor {
	bands := make([]float64, contentanalyzer.BandCount())
	uniform := 1.0 / float64(len(bands))
	for i := range bands {
		bands[i] = uniform
	}
	return contentanalyzer.ContentDescriptor{
		RMSEnergy:              0.05,
		PeakEnergy:             0.3,
		IntegratedLoudnessLUFS: -28,
		CrestFactorDB:          18,
		BandEnergy:             bands,
		StereoWidth:            1.0,
	}
}

func loudSquashedDescriptor() contentanalyzer.ContentDescriptor {
	bands := make([]float64, contentanalyzer.BandCount())
	uniform := 1.0 / float64(len(bands))
	for i := range bands {
		bands[i] = uniform
	}
	return contentanalyzer.ContentDescriptor{
		RMSEnergy:              0.5,
		PeakEnergy:             0.9,
		IntegratedLoudnessLUFS: -8,
		CrestFactorDB:          7,
		BandEnergy:             bands,
		StereoWidth:            1.0,
	}
}

func TestGenerate_UnknownPresetFails(t *testing.T) {
	g := NewGenerator(testSettings())
	_, err := g.Generate(quietDynamicDescriptor(), nil, "nonexistent", 0.7, 0.5)
	if err == nil {
		t.Fatal("expected an error for an unknown preset")
	}
}

func TestGenerate_IsDeterministic(t *testing.T) {
	g := NewGenerator(testSettings())
	d := quietDynamicDescriptor()

	t1, err := g.Generate(d, nil, "adaptive", 0.7, 0.5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	t2, err := g.Generate(d, nil, "adaptive", 0.7, 0.5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if t1.TargetLUFS != t2.TargetLUFS || t1.CompressionAmount != t2.CompressionAmount ||
		t1.ExpansionAmount != t2.ExpansionAmount || t1.TargetStereoWidth != t2.TargetStereoWidth {
		t.Fatalf("identical inputs produced different targets: %+v vs %+v", t1, t2)
	}
	for i := range t1.EQGainsDB {
		if t1.EQGainsDB[i] != t2.EQGainsDB[i] {
			t.Fatalf("EQ gain band %d differs across identical calls", i)
		}
	}
}

func TestGenerate_QuietDynamicGetsLoudnessLift(t *testing.T) {
	g := NewGenerator(testSettings())
	d := quietDynamicDescriptor()

	targets, err := g.Generate(d, nil, "adaptive", 1.0, 0.0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if targets.TargetLUFS <= d.IntegratedLoudnessLUFS {
		t.Fatalf("expected a loudness lift for quiet+dynamic material, got target %.2f from source %.2f",
			targets.TargetLUFS, d.IntegratedLoudnessLUFS)
	}
	if targets.CompressionAmount != 0 {
		t.Fatalf("quiet+dynamic material should not be compressed, got amount %.2f", targets.CompressionAmount)
	}
}

func TestGenerate_LoudSquashedGetsExpansion(t *testing.T) {
	g := NewGenerator(testSettings())
	d := loudSquashedDescriptor()

	targets, err := g.Generate(d, nil, "adaptive", 1.0, 0.0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if targets.ExpansionAmount <= 0 {
		t.Fatalf("expected expansion for loud+squashed material, got intent %+v", targets)
	}
	if targets.CompressionAmount != 0 {
		t.Fatalf("expansion and compression must be mutually exclusive, got both: %+v", targets)
	}
	if targets.AttackMs != 3 || targets.ReleaseMs != 100 {
		t.Fatalf("expected the fixed attack/release envelope, got attack=%.1f release=%.1f",
			targets.AttackMs, targets.ReleaseMs)
	}
}

func TestGenerate_MidDominantDynamicPreservesTilt(t *testing.T) {
	g := NewGenerator(testSettings())

	// The Bark table has 3 bands centered below 300 Hz, 14 below 4 kHz and
	// 9 above, so this gives bass 0.1, mid 0.7 and treble 0.2.
	bands := make([]float64, contentanalyzer.BandCount())
	for i := range bands {
		center := contentanalyzer.BandCenterHz(i)
		switch {
		case center < 300:
			bands[i] = 0.1 / 3
		case center < 4000:
			bands[i] = 0.7 / 14
		default:
			bands[i] = 0.2 / 9
		}
	}
	d := contentanalyzer.ContentDescriptor{
		IntegratedLoudnessLUFS: -18,
		CrestFactorDB:          17,
		BandEnergy:             bands,
		StereoWidth:            1.0,
	}

	source := g.Bounds.Project(d)
	targets, err := g.Generate(d, nil, "adaptive", 1.0, 0.0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if targets.TargetLUFS == 0 {
		t.Fatal("expected a non-zero target LUFS")
	}
	if source.MidPct <= 0.55 {
		t.Fatalf("fixture did not produce mid-dominant source, midPct=%.2f", source.MidPct)
	}
	tgt, _ := continuousTarget(source)
	if diff := tgt.BassMidRatio - source.BassMidRatio; diff < -0.2-1e-9 || diff > 0.2+1e-9 {
		t.Fatalf("expected target tilt within 0.2 of source %.2f, got %.2f", source.BassMidRatio, tgt.BassMidRatio)
	}
}

func TestGenerate_PreserveCharacterOneKeepsSourceLoudness(t *testing.T) {
	g := NewGenerator(testSettings())
	d := loudSquashedDescriptor()

	targets, err := g.Generate(d, nil, "adaptive", 1.0, 1.0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	diff := targets.TargetLUFS - d.IntegratedLoudnessLUFS
	if diff < -0.5 || diff > 0.5 {
		t.Fatalf("preserve_character=1 should barely move target loudness, source=%.2f target=%.2f",
			d.IntegratedLoudnessLUFS, targets.TargetLUFS)
	}
}

func TestGenerate_FingerprintBlendsTowardLongTerm(t *testing.T) {
	g := NewGenerator(testSettings())
	d := quietDynamicDescriptor()

	withoutFP, err := g.Generate(d, nil, "adaptive", 1.0, 0.5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	fp := &FingerprintSummary{MeanLUFS: -8, MeanCrestDB: 7, MeanBassPct: 0.3, MeanMidPct: 0.3}
	withFP, err := g.Generate(d, fp, "adaptive", 1.0, 0.5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if withFP.TargetLUFS == withoutFP.TargetLUFS {
		t.Fatal("a loud long-term fingerprint should shift the target away from the no-fingerprint case")
	}
}

func TestGenerate_StereoWidthClampedForLoudMaterial(t *testing.T) {
	g := NewGenerator(testSettings())
	d := loudSquashedDescriptor()
	d.StereoWidth = 0.6

	// preserve_character=0 pulls width all the way toward "normal" (1.0);
	// for loud material that pull must be capped at +0.3 over source.
	targets, err := g.Generate(d, nil, "adaptive", 1.0, 0.0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if targets.TargetStereoWidth > d.StereoWidth+0.3+1e-9 {
		t.Fatalf("expected width increase capped at +0.3 for loud material, got %.2f from source %.2f",
			targets.TargetStereoWidth, d.StereoWidth)
	}
	if targets.TargetStereoWidth <= d.StereoWidth {
		t.Fatalf("expected some width increase to be applied, got %.2f from source %.2f",
			targets.TargetStereoWidth, d.StereoWidth)
	}
}

func TestGenerate_EQGainsLenMatchesBandCount(t *testing.T) {
	g := NewGenerator(testSettings())
	targets, err := g.Generate(quietDynamicDescriptor(), nil, "adaptive", 0.5, 0.5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(targets.EQGainsDB) != contentanalyzer.BandCount() {
		t.Fatalf("expected %d EQ gains, got %d", contentanalyzer.BandCount(), len(targets.EQGainsDB))
	}
	for i, gain := range targets.EQGainsDB {
		if gain < -12 || gain > 12 {
			t.Fatalf("band %d gain %.2f exceeds +/-12dB", i, gain)
		}
	}
}
