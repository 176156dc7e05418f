package dsp

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewFilter_Coefficients(t *testing.T) {
	t.Parallel()

	f := NewFilter(LowPass, 1.0, 0.5, 0.25, 0.1, 0.2, 0.3, 2)

	assert.InDelta(t, 0.1, f.b0a0, 1e-9)
	assert.InDelta(t, 0.2, f.b1a0, 1e-9)
	assert.InDelta(t, 0.3, f.b2a0, 1e-9)
	assert.InDelta(t, 0.5, f.a1a0, 1e-9)
	assert.InDelta(t, 0.25, f.a2a0, 1e-9)
	assert.Len(t, f.in1, 2)
	assert.Len(t, f.in2, 2)
	assert.Len(t, f.out1, 2)
	assert.Len(t, f.out2, 2)
	assert.False(t, f.IsZero())
}

func TestFilter_IsZero(t *testing.T) {
	t.Parallel()

	var f Filter
	assert.True(t, f.IsZero())

	built, err := NewLowPass(48000, 1000, 0.707, 1)
	require.NoError(t, err)
	assert.False(t, built.IsZero())
}

func TestNewLowPass_InvalidPasses(t *testing.T) {
	t.Parallel()

	_, err := NewLowPass(48000, 1000, 0.707, 0)
	assert.Error(t, err)
}

func TestLowPass_AttenuatesAboveCutoff(t *testing.T) {
	t.Parallel()

	const sampleRate = 48000.0
	f, err := NewLowPass(sampleRate, 1000, 0.707, 1)
	require.NoError(t, err)

	input := sineWave(sampleRate, 8000, 2048)
	f.ApplyBatch(input)

	assert.Less(t, rmsOf(input[512:]), rmsOf(sineWave(sampleRate, 8000, 2048)[512:])*0.5)
}

func TestLowPass_MultiplePassesAttenuateMore(t *testing.T) {
	t.Parallel()

	const sampleRate = 48000.0

	single, err := NewLowPass(sampleRate, 1000, 0.707, 1)
	require.NoError(t, err)
	double, err := NewLowPass(sampleRate, 1000, 0.707, 2)
	require.NoError(t, err)

	in1 := sineWave(sampleRate, 8000, 4096)
	in2 := sineWave(sampleRate, 8000, 4096)

	single.ApplyBatch(in1)
	double.ApplyBatch(in2)

	assert.Less(t, rmsOf(in2[1024:]), rmsOf(in1[1024:]))
}

func TestHighPass_AttenuatesBelowCutoff(t *testing.T) {
	t.Parallel()

	const sampleRate = 48000.0
	f, err := NewHighPass(sampleRate, 2000, 0.707, 1)
	require.NoError(t, err)

	input := sineWave(sampleRate, 100, 4096)
	original := rmsOf(sineWave(sampleRate, 100, 4096)[1024:])
	f.ApplyBatch(input)

	assert.Less(t, rmsOf(input[1024:]), original*0.5)
}

func TestPeaking_BoostsNearCenter(t *testing.T) {
	t.Parallel()

	const sampleRate = 48000.0
	f, err := NewPeaking(sampleRate, 1000, 1.0, 6.0, 1)
	require.NoError(t, err)

	input := sineWave(sampleRate, 1000, 4096)
	before := rmsOf(sineWave(sampleRate, 1000, 4096)[1024:])
	f.ApplyBatch(input)

	assert.Greater(t, rmsOf(input[1024:]), before)
}

func TestLowShelf_BoostsLowEnd(t *testing.T) {
	t.Parallel()

	const sampleRate = 48000.0
	f, err := NewLowShelf(sampleRate, 200, 0.707, 6.0, 1)
	require.NoError(t, err)

	input := sineWave(sampleRate, 80, 4096)
	before := rmsOf(sineWave(sampleRate, 80, 4096)[1024:])
	f.ApplyBatch(input)

	assert.Greater(t, rmsOf(input[1024:]), before)
}

func TestHighShelf_BoostsHighEnd(t *testing.T) {
	t.Parallel()

	const sampleRate = 48000.0
	f, err := NewHighShelf(sampleRate, 4000, 0.707, 6.0, 1)
	require.NoError(t, err)

	input := sineWave(sampleRate, 12000, 4096)
	before := rmsOf(sineWave(sampleRate, 12000, 4096)[1024:])
	f.ApplyBatch(input)

	assert.Greater(t, rmsOf(input[1024:]), before)
}

func TestFilterChain_RejectsZeroFilter(t *testing.T) {
	t.Parallel()

	chain := NewFilterChain()
	assert.Error(t, chain.AddFilter(&Filter{}))
	assert.Equal(t, 0, chain.Length())
}

func TestFilterChain_AppliesInOrder(t *testing.T) {
	t.Parallel()

	const sampleRate = 48000.0
	low, err := NewLowPass(sampleRate, 4000, 0.707, 1)
	require.NoError(t, err)
	high, err := NewHighPass(sampleRate, 200, 0.707, 1)
	require.NoError(t, err)

	chain := NewFilterChain()
	require.NoError(t, chain.AddFilter(low))
	require.NoError(t, chain.AddFilter(high))
	assert.Equal(t, 2, chain.Length())

	input := sineWave(sampleRate, 1000, 2048)
	chain.ApplyBatch(input)
	assert.NotEmpty(t, input)
}

func sineWave(sampleRate, freq float64, n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = math.Sin(2 * math.Pi * freq * float64(i) / sampleRate)
	}
	return out
}

func rmsOf(samples []float64) float64 {
	var sum float64
	for _, s := range samples {
		sum += s * s
	}
	if len(samples) == 0 {
		return 0
	}
	return math.Sqrt(sum / float64(len(samples)))
}
