package audiocore

import (
	"log/slog"
	"sync"
	"time"

	"github.com/audiophile-labs/mastering-engine/internal/errors"
	"github.com/audiophile-labs/mastering-engine/internal/logger"
)

// factoryImpl is the concrete implementation of ProcessorFactory. It
// replaces the ad hoc global processor-chain state the teacher's
// AudioManager used to hold per live source: a mastering session calls
// ChainFor exactly once per session ID, and every later call for that ID
// returns the cached chain instead of rebuilding it.
type factoryImpl struct {
	bufferPool BufferPool
	chains     map[string]ProcessorChain
	mu         sync.Mutex
	built      int64
	reused     int64
	logger     *slog.Logger
}

// NewProcessorFactory creates a new processor factory with the given
// buffer pool configuration.
func NewProcessorFactory(poolConfig BufferPoolConfig) ProcessorFactory {
	if poolConfig.SmallBufferSize == 0 {
		poolConfig.SmallBufferSize = 4096
		poolConfig.MediumBufferSize = 4096 * 4
		poolConfig.LargeBufferSize = 4096 * 32
		poolConfig.MaxBuffersPerSize = 64
	}

	return &factoryImpl{
		bufferPool: NewBufferPool(poolConfig),
		chains:     make(map[string]ProcessorChain),
		logger:     logger.ForModule("audiocore").With("component", "processor_factory"),
	}
}

// ChainFor returns the cached chain for sessionID, building it via builder
// under lock on first use.
func (f *factoryImpl) ChainFor(sessionID string, builder func() (ProcessorChain, error)) (ProcessorChain, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if chain, exists := f.chains[sessionID]; exists {
		f.reused++
		return chain, nil
	}

	chain, err := builder()
	if err != nil {
		return nil, errors.New(err).
			Component(ComponentAudioCore).
			Category(errors.CategoryMastering).
			Context("operation", "build_processor_chain").
			Context("session_id", sessionID).
			Build()
	}

	f.chains[sessionID] = chain
	f.built++
	f.logger.Info("processor chain built",
		"session_id", sessionID,
		"chain_length", len(chain.GetProcessors()))

	return chain, nil
}

// Release discards a session's cached chain.
func (f *factoryImpl) Release(sessionID string) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if _, exists := f.chains[sessionID]; exists {
		delete(f.chains, sessionID)
		f.logger.Debug("processor chain released", "session_id", sessionID)
	}
}

// Metrics returns current metrics for the factory.
func (f *factoryImpl) Metrics() FactoryMetrics {
	f.mu.Lock()
	defer f.mu.Unlock()

	return FactoryMetrics{
		ActiveChains:    len(f.chains),
		ChainsBuilt:     f.built,
		ChainsReused:    f.reused,
		BufferPoolStats: f.bufferPool.Stats(),
		LastUpdate:      time.Now(),
	}
}

// BufferPool exposes the factory's shared buffer pool so callers can
// acquire AudioBuffers outside of a processor chain (e.g. for chunk
// extraction before the chain runs).
func (f *factoryImpl) BufferPool() BufferPool {
	return f.bufferPool
}

// Close releases the factory's buffer pool.
func (f *factoryImpl) Close() error {
	return f.bufferPool.Close()
}
