// Package audiocore provides the core audio processing framework for the
// mastering engine. It implements a modular architecture for decoded PCM
// buffer management and processor-chain execution, shared by every
// mastering session.
//
// # Architecture Overview
//
// The audiocore package consists of several key components:
//
//   - ProcessorFactory: builds and caches a session's ProcessorChain exactly once
//   - ProcessorChain: an ordered pipeline of AudioProcessor stages (EQ, dynamics, etc.)
//   - BufferPool: tiered, allocation-free pooling of float32 PCM buffers
//   - SessionHealthMonitor: detects stalled sessions whose worker pool stopped progressing
//
// # Concurrency and Thread Safety
//
// All public types and methods in audiocore are designed to be thread-safe unless
// explicitly documented otherwise. The following guarantees are provided:
//
// ## Thread-Safe Components
//
//   - ProcessorFactory: ChainFor/Release/Metrics may be called concurrently from multiple goroutines
//   - ProcessorChain: AddProcessor/RemoveProcessor/Process are safe for concurrent use
//   - BufferPool: concurrent Get/Put operations are safe
//   - SessionHealthMonitor: thread-safe registration, progress updates, and removal
//
// ## Concurrency Patterns
//
// The package uses several concurrency patterns:
//
//   - Mutex-guarded build-once: ProcessorFactory serializes chain construction per session ID
//   - Tiered sync.Pool buffers: size-classed pools avoid GC pressure on the hot path
//   - Atomic-free counters under a single factory lock: built/reused/active chain counts
//
// ## Best Practices
//
// When using audiocore components:
//
//  1. Always release a buffer back to its pool when done with it
//  2. Use context.Context for cancellation on any blocking Process call
//  3. Monitor metrics for performance and health
//  4. Handle errors appropriately - all errors use the enhanced error system
//
// # Buffer Lifecycle
//
// Buffers obtained from BufferPool follow this lifecycle:
//
//  1. Get: Obtain buffer from pool (or allocate if pool is empty)
//  2. Use: Fill buffer with float32 PCM samples
//  3. Pass: Transfer ownership via AudioData.BufferHandle
//  4. Release: Consumer calls BufferHandle.Release() when done
//
// Example:
//
//	buffer := pool.Get(size)
//	defer buffer.Release() // Always release when done
//
//	// Use buffer...
//	data := &AudioData{
//	    Buffer:       buffer.Data(),
//	    BufferHandle: buffer, // Transfer ownership
//	}
//
//	// Consumer is now responsible for calling data.BufferHandle.Release()
//
// # Error Handling
//
// All errors in audiocore use the enhanced error system with proper
// component and category tagging. Always check errors and use the
// error context for debugging:
//
//	if err != nil {
//	    // Error will have component, category, and context
//	    logger.Error("operation failed", "error", err)
//	}
package audiocore
