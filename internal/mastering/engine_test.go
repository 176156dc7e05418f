package mastering

import (
	"context"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/audiophile-labs/mastering-engine/internal/config"
	"github.com/audiophile-labs/mastering-engine/internal/fingerprint"
)

// sineSource is a synthetic TrackSource: a fixed-frequency sine tone,
// long enough to span several chunks, used so the orchestrator's tests
// never need a real decoded file.
type sineSource struct {
	id         string
	sampleRate float64
	channels   int
	frames     int64
	freqHz     float64
}

func newSineSource(id string, seconds float64) *sineSource {
	const sr = 44100.0
	return &sineSource{
		id:         id,
		sampleRate: sr,
		channels:   2,
		frames:     int64(seconds * sr),
		freqHz:     440,
	}
}

func (s *sineSource) ID() string          { return s.id }
func (s *sineSource) SampleRate() float64 { return s.sampleRate }
func (s *sineSource) Channels() int       { return s.channels }
func (s *sineSource) TotalFrames() int64  { return s.frames }

func (s *sineSource) ReadFrames(_ context.Context, startFrame int64, frameCount int) ([][]float64, error) {
	out := make([][]float64, s.channels)
	for c := range out {
		out[c] = make([]float64, frameCount)
	}
	for i := 0; i < frameCount; i++ {
		frame := startFrame + int64(i)
		if frame < 0 || frame >= s.frames {
			continue // zero-padding outside the track's own range
		}
		v := 0.2 * math.Sin(2*math.Pi*s.freqHz*float64(frame)/s.sampleRate)
		for c := range out {
			out[c][i] = v
		}
	}
	return out, nil
}

// stallingSource wraps a sineSource but blocks on every ReadFrames call
// until delay elapses or ctx is cancelled, simulating a decoder stuck on
// a pathological file (spec.md §7's ProcessingTimeout scenario).
type stallingSource struct {
	*sineSource
	delay time.Duration
}

func (s *stallingSource) ReadFrames(ctx context.Context, startFrame int64, frameCount int) ([][]float64, error) {
	select {
	case <-time.After(s.delay):
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	return s.sineSource.ReadFrames(ctx, startFrame, frameCount)
}

func testEngineSettings() *config.Settings {
	s := &config.Settings{}
	s.Chunking = config.ChunkingSettings{
		ChunkDuration:                 15 * time.Second,
		OverlapDuration:               5 * time.Second,
		ContextDuration:               5 * time.Second,
		MaxConcurrentChunksPerSession: 2,
		IntensityQuantum:              0.05,
	}
	s.Presets = map[string]config.PresetSettings{
		"adaptive": {},
	}
	s.Cache = config.CacheSettings{}  // no L3 dir: memory tiers only
	s.WorkerPool = config.WorkerPoolSettings{MinWorkers: 2, MaxWorkers: 4}
	s.Chunking.ProcessingTimeout = 2 * time.Second
	return s
}

// nullFingerprintStore never has anything persisted, so EnsureFingerprint
// always falls through to descriptor-only targeting when there is no
// extractor either.
type nullFingerprintStore struct{}

func (nullFingerprintStore) Get(context.Context, string) (fingerprint.FingerprintBlob, error) {
	return nil, nil
}
func (nullFingerprintStore) Put(context.Context, string, fingerprint.FingerprintBlob) error {
	return nil
}

func newTestEngine(t *testing.T) (*Engine, *sineSource) {
	t.Helper()
	src := newSineSource("track-1", 40)
	e := NewEngine(testEngineSettings(), nullFingerprintStore{}, nil)
	t.Cleanup(e.Close)
	e.RegisterTrack(src)
	return e, src
}

func TestGetChunk_IsDeterministic(t *testing.T) {
	e, _ := newTestEngine(t)
	ctx := context.Background()

	a, err := e.GetChunk(ctx, "track-1", "adaptive", 0.7, 0.7, 0)
	if err != nil {
		t.Fatalf("GetChunk: %v", err)
	}
	e.ClearCache("track-1") // force a fresh build, not a cache hit
	b, err := e.GetChunk(ctx, "track-1", "adaptive", 0.7, 0.7, 0)
	if err != nil {
		t.Fatalf("GetChunk (rebuild): %v", err)
	}

	if len(a) == 0 || len(b) == 0 {
		t.Fatal("expected non-empty chunk bytes")
	}
	if string(a) != string(b) {
		t.Fatal("repeated GetChunk calls with identical arguments must produce byte-identical output")
	}
}

func TestGetChunk_ConcurrentIdenticalKeyBuildsOnce(t *testing.T) {
	e, _ := newTestEngine(t)
	ctx := context.Background()

	const n = 8
	results := make([][]byte, n)
	errs := make([]error, n)

	var wg sync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = e.GetChunk(ctx, "track-1", "adaptive", 0.7, 0.7, 1)
		}(i)
	}
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			t.Fatalf("GetChunk[%d]: %v", i, err)
		}
	}
	for i := 1; i < n; i++ {
		if string(results[i]) != string(results[0]) {
			t.Fatalf("concurrent GetChunk calls on an identical key diverged at index %d", i)
		}
	}
}

func TestGetChunk_UnknownPresetFails(t *testing.T) {
	e, _ := newTestEngine(t)
	if _, err := e.GetChunk(context.Background(), "track-1", "nonexistent", 0.7, 0.7, 0); err == nil {
		t.Fatal("expected an error for an unknown preset")
	}
}

func TestGetChunk_UnknownTrackFails(t *testing.T) {
	e, _ := newTestEngine(t)
	if _, err := e.GetChunk(context.Background(), "no-such-track", "adaptive", 0.7, 0.7, 0); err == nil {
		t.Fatal("expected an error for an unregistered track")
	}
}

func TestClearCache_SingleTrackScopesEviction(t *testing.T) {
	e, _ := newTestEngine(t)
	e.RegisterTrack(newSineSource("track-2", 40))
	ctx := context.Background()

	if _, err := e.GetChunk(ctx, "track-1", "adaptive", 0.7, 0.7, 0); err != nil {
		t.Fatalf("GetChunk track-1: %v", err)
	}
	if _, err := e.GetChunk(ctx, "track-2", "adaptive", 0.7, 0.7, 0); err != nil {
		t.Fatalf("GetChunk track-2: %v", err)
	}

	key1 := CacheKey{TrackID: "track-1", Preset: "adaptive", Intensity: QuantizeIntensity(0.7, e.settings.Chunking.IntensityQuantum), PreserveCharacter: 0.7, ChunkIndex: 0}
	key2 := CacheKey{TrackID: "track-2", Preset: "adaptive", Intensity: QuantizeIntensity(0.7, e.settings.Chunking.IntensityQuantum), PreserveCharacter: 0.7, ChunkIndex: 0}

	e.ClearCache("track-1")

	if _, ok := e.cache.Get(key1); ok {
		t.Fatal("expected track-1's cache entry to be evicted")
	}
	if _, ok := e.cache.Get(key2); !ok {
		t.Fatal("clearing track-1 must not evict track-2's cache entry")
	}
}

func TestClearCache_NoTrackIDEvictsEverything(t *testing.T) {
	e, _ := newTestEngine(t)
	ctx := context.Background()
	if _, err := e.GetChunk(ctx, "track-1", "adaptive", 0.7, 0.7, 0); err != nil {
		t.Fatalf("GetChunk: %v", err)
	}

	e.ClearCache("")

	key := CacheKey{TrackID: "track-1", Preset: "adaptive", Intensity: QuantizeIntensity(0.7, e.settings.Chunking.IntensityQuantum), PreserveCharacter: 0.7, ChunkIndex: 0}
	if _, ok := e.cache.Get(key); ok {
		t.Fatal("expected clear_cache() with no track_id to evict every entry")
	}
}

func TestStreamTrack_EmitsInOrderWithoutError(t *testing.T) {
	e, _ := newTestEngine(t)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	out := e.StreamTrack(ctx, "track-1", "adaptive", 0.7, 0.7)

	chunkCount := 0
	for chunk := range out {
		if chunk.Err != nil {
			t.Fatalf("StreamTrack: %v", chunk.Err)
		}
		if len(chunk.Data) == 0 {
			t.Fatal("expected non-empty streamed payload")
		}
		chunkCount++
	}
	if chunkCount == 0 {
		t.Fatal("expected at least one streamed chunk")
	}
}

func TestGetChunk_ProcessingTimeoutEmitsSilenceAndMarksUnhealthy(t *testing.T) {
	settings := testEngineSettings()
	settings.Chunking.ProcessingTimeout = 50 * time.Millisecond

	e := NewEngine(settings, nullFingerprintStore{}, nil)
	t.Cleanup(e.Close)

	base := newSineSource("track-1", 40)
	src := &stallingSource{sineSource: base, delay: 500 * time.Millisecond}
	e.RegisterTrack(src)

	if !e.SessionHealthy("track-1", "adaptive", 0.7, 0.7) {
		t.Fatal("a session that has never built a chunk must report healthy")
	}

	data, err := e.GetChunk(context.Background(), "track-1", "adaptive", 0.7, 0.7, 0)
	if err != nil {
		t.Fatalf("GetChunk: expected a silence fallback, got error: %v", err)
	}
	if len(data) == 0 {
		t.Fatal("expected a non-empty silence payload for the timed-out chunk")
	}
	samples := bytesToFloat32(data)
	for i, v := range samples {
		if v != 0 {
			t.Fatalf("expected digital silence at sample %d, got %v", i, v)
		}
	}

	if e.SessionHealthy("track-1", "adaptive", 0.7, 0.7) {
		t.Fatal("a session whose chunk build timed out must report unhealthy")
	}
}
