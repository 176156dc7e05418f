package mastering

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"
	"golang.org/x/sync/singleflight"
)

// session holds the per-(track_id, preset, intensity_quantum,
// preserve_character) state the
// orchestrator needs: the build-lock group that collapses concurrent
// get_chunk calls on the same key into one computation (spec.md §4.5's
// "At-most-one build per key"), and the semaphore bounding how many
// chunks of this session may be in flight at once.
type session struct {
	id  string // unique per-session identifier, for log correlation
	key SessionKey

	buildGroup singleflight.Group
	inFlight   *semaphore.Weighted
	tail       contextWindow

	mu         sync.Mutex
	prefetched map[int]bool
}

func newSession(key SessionKey, maxConcurrentChunks int) *session {
	if maxConcurrentChunks <= 0 {
		maxConcurrentChunks = 2
	}
	return &session{
		id:         uuid.NewString(),
		key:        key,
		inFlight:   semaphore.NewWeighted(int64(maxConcurrentChunks)),
		prefetched: make(map[int]bool),
	}
}

// build runs fn for chunkIndex under the session's in-flight bound,
// sharing the result with any concurrent caller requesting the same
// index (spec.md §4.5/invariant 6: "exactly one underlying build is
// performed" for identical concurrent keys).
func (s *session) build(ctx context.Context, chunkIndex int, fn func() ([]byte, error)) ([]byte, error) {
	groupKey := CacheKey{TrackID: s.key.TrackID, Preset: s.key.Preset, Intensity: s.key.Intensity, ChunkIndex: chunkIndex}.String()

	v, err, _ := s.buildGroup.Do(groupKey, func() (any, error) {
		if err := s.inFlight.Acquire(ctx, 1); err != nil {
			return nil, err
		}
		defer s.inFlight.Release(1)
		return fn()
	})
	if err != nil {
		return nil, err
	}
	return v.([]byte), nil
}

// markPrefetched records that chunkIndex has already been triggered for
// speculative prefetch, so stream_track doesn't re-trigger the same
// build repeatedly as it advances.
func (s *session) markPrefetched(chunkIndex int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.prefetched[chunkIndex] {
		return false
	}
	s.prefetched[chunkIndex] = true
	return true
}
