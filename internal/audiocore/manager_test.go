package audiocore

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testPoolConfig() BufferPoolConfig {
	return BufferPoolConfig{
		SmallBufferSize:   1024,
		MediumBufferSize:  4096,
		LargeBufferSize:   65536,
		MaxBuffersPerSize: 8,
	}
}

func TestProcessorFactory_ChainFor_BuildsOnce(t *testing.T) {
	factory := NewProcessorFactory(testPoolConfig())

	var builds int
	builder := func() (ProcessorChain, error) {
		builds++
		return NewProcessorChain(), nil
	}

	chain1, err := factory.ChainFor("session-a", builder)
	require.NoError(t, err)
	require.NotNil(t, chain1)

	chain2, err := factory.ChainFor("session-a", builder)
	require.NoError(t, err)
	assert.Same(t, chain1, chain2)
	assert.Equal(t, 1, builds)

	metrics := factory.Metrics()
	assert.Equal(t, int64(1), metrics.ChainsBuilt)
	assert.Equal(t, int64(1), metrics.ChainsReused)
	assert.Equal(t, 1, metrics.ActiveChains)
}

func TestProcessorFactory_ChainFor_PerSessionIsolation(t *testing.T) {
	factory := NewProcessorFactory(testPoolConfig())

	chainA, err := factory.ChainFor("a", func() (ProcessorChain, error) { return NewProcessorChain(), nil })
	require.NoError(t, err)
	chainB, err := factory.ChainFor("b", func() (ProcessorChain, error) { return NewProcessorChain(), nil })
	require.NoError(t, err)

	assert.NotSame(t, chainA, chainB)
	assert.Equal(t, 2, factory.Metrics().ActiveChains)
}

func TestProcessorFactory_Release(t *testing.T) {
	factory := NewProcessorFactory(testPoolConfig())

	_, err := factory.ChainFor("session", func() (ProcessorChain, error) { return NewProcessorChain(), nil })
	require.NoError(t, err)
	assert.Equal(t, 1, factory.Metrics().ActiveChains)

	factory.Release("session")
	assert.Equal(t, 0, factory.Metrics().ActiveChains)
}

func TestProcessorFactory_ConcurrentBuildIsSerialized(t *testing.T) {
	factory := NewProcessorFactory(testPoolConfig())

	var builds int32Counter
	const goroutines = 16

	var wg sync.WaitGroup
	wg.Add(goroutines)
	for range goroutines {
		go func() {
			defer wg.Done()
			_, err := factory.ChainFor("shared", func() (ProcessorChain, error) {
				builds.inc()
				return NewProcessorChain(), nil
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, builds.value())
}

// int32Counter is a minimal thread-safe counter used only to verify the
// factory's lock serializes concurrent builds for the same session ID.
type int32Counter struct {
	mu sync.Mutex
	n  int
}

func (c *int32Counter) inc() {
	c.mu.Lock()
	c.n++
	c.mu.Unlock()
}

func (c *int32Counter) value() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.n
}

func TestProcessorChain_ProcessPassesThroughWithNoProcessors(t *testing.T) {
	chain := NewProcessorChain()
	input := &AudioData{Buffer: []float32{0.1, 0.2, -0.1, -0.2}, Format: AudioFormat{SampleRate: 44100, Channels: 2}}

	out, err := chain.Process(context.Background(), input)
	require.NoError(t, err)
	assert.Same(t, input, out)
}
