package pipeline

import (
	"context"
	"math"
	"testing"

	"github.com/audiophile-labs/mastering-engine/internal/audiocore"
	"github.com/audiophile-labs/mastering-engine/internal/contentanalyzer"
	"github.com/audiophile-labs/mastering-engine/internal/target"
)

const testSampleRate = 44100

func sineBuffer(freq float64, seconds float64, channels int) []float32 {
	n := int(testSampleRate * seconds)
	buf := make([]float32, n*channels)
	for i := 0; i < n; i++ {
		v := float32(0.3 * math.Sin(2*math.Pi*freq*float64(i)/testSampleRate))
		for c := 0; c < channels; c++ {
			buf[i*channels+c] = v
		}
	}
	return buf
}

func testFormat(channels int) audiocore.AudioFormat {
	return audiocore.AudioFormat{SampleRate: testSampleRate, Channels: channels, BitDepth: 32, Encoding: "pcm_f32"}
}

func flatTargets() *target.ProcessingTargets {
	gains := make([]float64, contentanalyzer.BandCount())
	return &target.ProcessingTargets{
		TargetLUFS:        -14,
		TargetPeakDBFS:    -0.1,
		EQGainsDB:         gains,
		TargetStereoWidth: 1.0,
	}
}

func TestEQStage_FlatGainsLeavesSignalNearUnchanged(t *testing.T) {
	stage := NewEQStage("eq")
	input := &audiocore.AudioData{
		Buffer:  sineBuffer(440, 0.2, 1),
		Format:  testFormat(1),
		Targets: flatTargets(),
	}

	out, err := stage.Process(context.Background(), input)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(out.Buffer) != len(input.Buffer) {
		t.Fatalf("expected same buffer length, got %d want %d", len(out.Buffer), len(input.Buffer))
	}

	var origEnergy, outEnergy float64
	for i := range input.Buffer {
		origEnergy += float64(input.Buffer[i]) * float64(input.Buffer[i])
		outEnergy += float64(out.Buffer[i]) * float64(out.Buffer[i])
	}
	ratio := outEnergy / origEnergy
	if ratio < 0.7 || ratio > 1.3 {
		t.Fatalf("flat EQ gains should preserve signal energy approximately, ratio=%.3f", ratio)
	}
}

func TestEQStage_SilenceShortCircuits(t *testing.T) {
	stage := NewEQStage("eq")
	input := &audiocore.AudioData{
		Buffer:  make([]float32, 4410),
		Format:  testFormat(1),
		Targets: flatTargets(),
	}
	out, err := stage.Process(context.Background(), input)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, v := range out.Buffer {
		if v != 0 {
			t.Fatal("silence should stay silence")
		}
	}
}

func TestDynamicsStage_CompressionReducesSteadyStateLevel(t *testing.T) {
	stage := NewDynamicsStage("dynamics")
	targets := flatTargets()
	targets.CompressionAmount = 0.6
	targets.ThresholdDBFS = -20
	targets.CompressionRatio = 3
	targets.AttackMs = 3
	targets.ReleaseMs = 100
	targets.MakeupGainDB = 0

	// 0.3s gives the envelope follower many cycles to settle after its
	// short attack, so RMS over the whole buffer reflects steady-state
	// gain reduction rather than the brief initial attack transient.
	buf := sineBuffer(440, 0.3, 1)
	input := &audiocore.AudioData{Buffer: buf, Format: testFormat(1), Targets: targets}

	out, err := stage.Process(context.Background(), input)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var inSumSq, outSumSq float64
	for i := range buf {
		inSumSq += float64(buf[i]) * float64(buf[i])
		outSumSq += float64(out.Buffer[i]) * float64(out.Buffer[i])
	}
	if outSumSq >= inSumSq {
		t.Fatalf("expected compression to reduce overall level, in energy=%.6f out energy=%.6f", inSumSq, outSumSq)
	}
}

func TestDynamicsStage_CompressionAndExpansionMutuallyExclusive(t *testing.T) {
	stage := NewDynamicsStage("dynamics")
	targets := flatTargets()
	targets.CompressionAmount = 0.5
	targets.ExpansionAmount = 0.5 // should never happen upstream, but guard it here
	targets.ThresholdDBFS = -20
	targets.CompressionRatio = 2
	targets.AttackMs = 3
	targets.ReleaseMs = 100

	input := &audiocore.AudioData{Buffer: sineBuffer(440, 0.1, 1), Format: testFormat(1), Targets: targets}
	if _, err := stage.Process(context.Background(), input); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// The compress branch is checked first; this just exercises that the
	// switch picks exactly one path without panicking.
}

func TestStereoWidthStage_MonoPassesThrough(t *testing.T) {
	stage := NewStereoWidthStage("width")
	input := &audiocore.AudioData{
		Buffer:  sineBuffer(440, 0.1, 1),
		Format:  testFormat(1),
		Targets: flatTargets(),
	}
	out, err := stage.Process(context.Background(), input)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(out.Buffer) != len(input.Buffer) {
		t.Fatal("mono input should pass through with the same buffer length")
	}
}

func TestStereoWidthStage_NarrowsSideChannel(t *testing.T) {
	stage := NewStereoWidthStage("width")

	// Orthogonal frequencies over a multi-cycle window correlate near
	// zero, giving a correlation-based current_width near 1.0 (normal
	// stereo) — a reliable starting point to test narrowing toward 0.5.
	n := int(testSampleRate * 0.2)
	buf := make([]float32, n*2)
	for i := 0; i < n; i++ {
		l := float32(0.3 * math.Sin(2*math.Pi*440*float64(i)/testSampleRate))
		r := float32(0.3 * math.Sin(2*math.Pi*880*float64(i)/testSampleRate))
		buf[i*2] = l
		buf[i*2+1] = r
	}

	targets := flatTargets()
	targets.TargetStereoWidth = 0.5

	input := &audiocore.AudioData{Buffer: buf, Format: testFormat(2), Targets: targets}
	out, err := stage.Process(context.Background(), input)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	origSide := sideEnergy(buf)
	outSide := sideEnergy(out.Buffer)
	if outSide >= origSide {
		t.Fatalf("narrowing target width should reduce side-channel energy, orig=%.5f out=%.5f", origSide, outSide)
	}
}

func sideEnergy(interleaved []float32) float64 {
	var e float64
	for i := 0; i+1 < len(interleaved); i += 2 {
		side := (float64(interleaved[i]) - float64(interleaved[i+1])) / 2
		e += side * side
	}
	return e
}

func TestLimiterStage_PeakNeverExceedsCeiling(t *testing.T) {
	stage := NewLimiterStage("limiter")

	n := int(testSampleRate * 0.1)
	buf := make([]float32, n)
	for i := range buf {
		buf[i] = float32(0.98 * math.Sin(2*math.Pi*1000*float64(i)/testSampleRate))
	}

	targets := flatTargets()
	targets.TargetLUFS = -6
	targets.TargetPeakDBFS = -0.1

	input := &audiocore.AudioData{Buffer: buf, Format: testFormat(1), Targets: targets}
	out, err := stage.Process(context.Background(), input)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	ceiling := math.Pow(10, targets.TargetPeakDBFS/20)
	var peak float64
	for _, v := range out.Buffer {
		if a := math.Abs(float64(v)); a > peak {
			peak = a
		}
	}
	if peak > ceiling+0.0005 {
		t.Fatalf("post-limiter peak %.5f exceeds ceiling %.5f by more than the 0.0005 tolerance", peak, ceiling)
	}
}

func TestLimiterStage_SilenceStaysSilent(t *testing.T) {
	stage := NewLimiterStage("limiter")
	input := &audiocore.AudioData{
		Buffer:  make([]float32, 4410),
		Format:  testFormat(1),
		Targets: flatTargets(),
	}
	out, err := stage.Process(context.Background(), input)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, v := range out.Buffer {
		if v != 0 {
			t.Fatal("silence should stay silence through the limiter")
		}
	}
}

func TestNewMasteringChain_BuildsFourStagesInOrder(t *testing.T) {
	chain, err := NewMasteringChain("session-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	procs := chain.GetProcessors()
	if len(procs) != 4 {
		t.Fatalf("expected 4 stages, got %d", len(procs))
	}
	wantSuffixes := []string{":eq", ":dynamics", ":width", ":limiter"}
	for i, want := range wantSuffixes {
		if got := procs[i].ID(); len(got) < len(want) || got[len(got)-len(want):] != want {
			t.Fatalf("stage %d: expected ID ending in %q, got %q", i, want, got)
		}
	}
}

