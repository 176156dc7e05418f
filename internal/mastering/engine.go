package mastering

import (
	"bytes"
	"context"
	"encoding/binary"
	"io"
	"sync"
	"time"

	"github.com/audiophile-labs/mastering-engine/internal/audiocore"
	"github.com/audiophile-labs/mastering-engine/internal/config"
	"github.com/audiophile-labs/mastering-engine/internal/contentanalyzer"
	"github.com/audiophile-labs/mastering-engine/internal/errors"
	"github.com/audiophile-labs/mastering-engine/internal/fingerprint"
	"github.com/audiophile-labs/mastering-engine/internal/logger"
	"github.com/audiophile-labs/mastering-engine/internal/monitor"
	"github.com/audiophile-labs/mastering-engine/internal/pipeline"
	"github.com/audiophile-labs/mastering-engine/internal/target"
)

// governorInterval is how often the ResourceGovernor re-samples load and
// reconsiders the worker pool's capacity.
const governorInterval = 5 * time.Second

// healthCheckInterval is how often SessionHealthMonitor's background loop
// sweeps for sessions that have gone quiet for longer than
// ChunkingSettings.ProcessingTimeout.
const healthCheckInterval = 5 * time.Second

// defaultPreserveCharacter matches spec.md §4.3's stated default blend
// weight between source and target position.
const defaultPreserveCharacter = 0.7

// Engine is the chunked streaming orchestrator (spec.md §4.5). It exposes
// the three host-facing operations (ensure_fingerprint, get_chunk /
// stream_track, clear_cache) and owns the cache tiers, build-lock
// sessions, and worker pool that make them safe under concurrency.
type Engine struct {
	settings *config.Settings

	sourcesMu sync.RWMutex
	sources   map[string]TrackSource

	fpStore     fingerprint.Store
	fpExtractor fingerprint.Extractor

	generator *target.Generator
	chains    audiocore.ProcessorFactory
	cache     *tieredCache
	pool      *WorkerPool
	sysMon    *monitor.SystemMonitor
	governor  *ResourceGovernor
	health    *audiocore.SessionHealthMonitor

	healthCtx    context.Context
	healthCancel context.CancelFunc

	sessionsMu sync.Mutex
	sessions   map[string]*session

	log logger.Logger
}

// NewEngine builds an Engine. fpExtractor may be nil if no remote
// extraction collaborator is configured; ensure_fingerprint then falls
// back to descriptor-only targeting whenever the store has no entry.
func NewEngine(settings *config.Settings, fpStore fingerprint.Store, fpExtractor fingerprint.Extractor) *Engine {
	pool := NewWorkerPool(settings.WorkerPool)
	sysMon := monitor.NewSystemMonitor(governorInterval)
	governor := NewResourceGovernor(sysMon, pool, settings.WorkerPool)

	timeout := settings.Chunking.ProcessingTimeout
	if timeout <= 0 {
		timeout = config.DefaultProcessingTimeout
	}
	health := audiocore.NewSessionHealthMonitor(audiocore.HealthMonitorConfig{
		StallTimeout:  timeout,
		CheckInterval: healthCheckInterval,
		OnStallAction: "cancel",
	})
	healthCtx, healthCancel := context.WithCancel(context.Background())

	sysMon.Start()
	governor.Start(governorInterval)
	go health.Start(healthCtx)

	return &Engine{
		settings:     settings,
		sources:      make(map[string]TrackSource),
		fpStore:      fpStore,
		fpExtractor:  fpExtractor,
		generator:    target.NewGenerator(settings),
		chains:       audiocore.NewProcessorFactory(audiocore.BufferPoolConfig{}),
		cache:        newTieredCache(settings.Cache),
		pool:         pool,
		sysMon:       sysMon,
		governor:     governor,
		health:       health,
		healthCtx:    healthCtx,
		healthCancel: healthCancel,
		sessions:     make(map[string]*session),
		log:          logger.Global().Module("mastering"),
	}
}

// Close stops the engine's background resource governor, system monitor,
// and session health monitor, and releases the buffer pool resources
// tracked by the processor factory. Safe to call once when the engine is
// no longer needed.
func (e *Engine) Close() {
	e.governor.Stop()
	e.sysMon.Stop()
	e.healthCancel()
	e.chains.Close()
}

// RegisterTrack makes a track available to EnsureFingerprint/GetChunk/
// StreamTrack under its ID. The host (cmd/mastercli) constructs the
// TrackSource from a decoded local file and registers it before use.
func (e *Engine) RegisterTrack(src TrackSource) {
	e.sourcesMu.Lock()
	defer e.sourcesMu.Unlock()
	e.sources[src.ID()] = src
}

func (e *Engine) trackSource(trackID string) (TrackSource, error) {
	e.sourcesMu.RLock()
	defer e.sourcesMu.RUnlock()
	src, ok := e.sources[trackID]
	if !ok {
		return nil, errors.Newf("unknown track %q", trackID).
			Component(ComponentMastering).
			Category(errors.CategoryValidation).
			Build()
	}
	return src, nil
}

func (e *Engine) sessionFor(key SessionKey) *session {
	e.sessionsMu.Lock()
	defer e.sessionsMu.Unlock()
	s, ok := e.sessions[key.String()]
	if !ok {
		s = newSession(key, e.settings.Chunking.MaxConcurrentChunksPerSession)
		e.sessions[key.String()] = s
		e.health.MonitorSession(key.String())
	}
	return s
}

// SessionHealthy reports whether the session identified by these
// coordinates has produced a chunk within ChunkingSettings.ProcessingTimeout
// of its predecessor, or has never been seen (no session has been created
// for this key yet, via GetChunk/StreamTrack).
func (e *Engine) SessionHealthy(trackID, preset string, intensity, preserveCharacter float64) bool {
	key := SessionKey{TrackID: trackID, Preset: preset, Intensity: intensity, PreserveCharacter: preserveCharacter}
	healthy, tracked := e.health.GetSessionHealth(key.String())
	if tracked == nil {
		return true
	}
	return healthy
}

// EnsureFingerprint resolves a track's MasteringFingerprint: persisted
// store, then on-demand remote extraction, then a null fingerprint
// (spec.md §4.5). It never returns FingerprintUnavailable to a caller
// that only wants best-effort targeting; callers that need the hard
// failure can check for a nil return explicitly.
func (e *Engine) EnsureFingerprint(ctx context.Context, trackID string) (*fingerprint.MasteringFingerprint, error) {
	blob, err := e.fpStore.Get(ctx, trackID)
	if err != nil {
		e.log.Warn("fingerprint store lookup failed", logger.String("track_id", trackID), logger.Error(err))
	}
	if blob != nil {
		fp, err := fingerprint.DecodeBlob(blob)
		if err == nil && fp != nil {
			return fp, nil
		}
	}

	if e.fpExtractor == nil {
		return nil, nil
	}

	src, err := e.trackSource(trackID)
	if err != nil {
		return nil, nil
	}
	audio, err := e.fullTrackReader(ctx, src)
	if err != nil {
		return nil, nil
	}

	newBlob, err := e.fpExtractor.Extract(ctx, trackID, audio)
	if err != nil {
		e.log.Warn("fingerprint extraction unavailable", logger.String("track_id", trackID), logger.Error(err))
		return nil, nil
	}

	fp, err := fingerprint.DecodeBlob(newBlob)
	if err != nil || fp == nil {
		return nil, nil
	}
	if err := e.fpStore.Put(ctx, trackID, newBlob); err != nil {
		e.log.Warn("fingerprint publish failed", logger.String("track_id", trackID), logger.Error(err))
	}
	return fp, nil
}

// fullTrackReader renders a whole track's decoded audio as a PCM byte
// stream for the remote extraction collaborator (spec.md §6.2's
// audio_stream input).
func (e *Engine) fullTrackReader(ctx context.Context, src TrackSource) (io.Reader, error) {
	total := src.TotalFrames()
	channels, err := src.ReadFrames(ctx, 0, int(total))
	if err != nil {
		return nil, err
	}
	buf := &bytes.Buffer{}
	interleaved := interleavePlanar(channels)
	if err := binary.Write(buf, binary.LittleEndian, interleaved); err != nil {
		return nil, err
	}
	return buf, nil
}

// GetChunk returns the mastered bytes for one chunk, building it if
// necessary. Concurrent calls with an identical key share the build
// (spec.md §4.5/invariant 6). preserveCharacter follows spec.md §4.3's
// default of 0.7 when the caller passes a value <= 0.
func (e *Engine) GetChunk(ctx context.Context, trackID, preset string, intensity, preserveCharacter float64, chunkIndex int) ([]byte, error) {
	intensity = QuantizeIntensity(intensity, e.settings.Chunking.IntensityQuantum)
	if preserveCharacter <= 0 {
		preserveCharacter = defaultPreserveCharacter
	}
	key := CacheKey{TrackID: trackID, Preset: preset, Intensity: intensity, PreserveCharacter: preserveCharacter, ChunkIndex: chunkIndex}

	if data, ok := e.cache.Get(key); ok {
		return data, nil
	}

	sess := e.sessionFor(SessionKey{TrackID: trackID, Preset: preset, Intensity: intensity, PreserveCharacter: preserveCharacter})
	data, err := sess.build(ctx, chunkIndex, func() ([]byte, error) {
		if cached, ok := e.cache.Get(key); ok {
			return cached, nil
		}
		built, err := e.buildChunk(ctx, key)
		if err != nil {
			return nil, err
		}
		if err := e.cache.Put(key, built); err != nil {
			e.log.Warn("chunk cache write failed", logger.String("key", key.String()), logger.Error(err))
		}
		return built, nil
	})
	if err != nil {
		return nil, err
	}
	return data, nil
}

// buildChunk runs the full per-chunk pipeline: extract context-padded
// audio, analyze, generate targets, process, trim context back off. A
// build that exceeds ChunkingSettings.ProcessingTimeout is aborted and
// replaced with silence of the chunk's own duration instead of failing
// the stream, per spec.md §7's ProcessingTimeout error kind.
func (e *Engine) buildChunk(ctx context.Context, key CacheKey) ([]byte, error) {
	src, err := e.trackSource(key.TrackID)
	if err != nil {
		return nil, err
	}
	sampleRate := src.SampleRate()
	channels := src.Channels()
	geom := computeChunkGeometry(e.settings.Chunking, sampleRate, key.ChunkIndex)

	sessionKey := SessionKey{TrackID: key.TrackID, Preset: key.Preset, Intensity: key.Intensity, PreserveCharacter: key.PreserveCharacter}
	healthID := sessionKey.String()

	timeout := e.settings.Chunking.ProcessingTimeout
	if timeout <= 0 {
		timeout = config.DefaultProcessingTimeout
	}
	chunkCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var result []byte
	err = e.pool.Run(chunkCtx, func() error {
		readStart := geom.startFrame - geom.contextFrames
		readLen := int((geom.endFrame - geom.startFrame) + 2*geom.contextFrames)
		padded, err := src.ReadFrames(chunkCtx, readStart, readLen)
		if err != nil {
			return err
		}

		var fp *fingerprint.MasteringFingerprint
		if blob, err := e.fpStore.Get(chunkCtx, key.TrackID); err == nil && blob != nil {
			fp, _ = fingerprint.DecodeBlob(blob)
		}

		chain, err := e.chains.ChainFor(healthID, func() (audiocore.ProcessorChain, error) {
			return pipeline.NewMasteringChain(healthID)
		})
		if err != nil {
			return err
		}

		ownCore := trimPlanar(padded, int(geom.contextFrames), int(geom.contextFrames))
		analyzer := contentanalyzer.NewAnalyzer(sampleRate)
		descriptor := analyzer.Analyze(ownCore, nil)

		targets, err := e.generator.Generate(descriptor, fp.Summary(), key.Preset, key.Intensity, key.PreserveCharacter)
		if err != nil {
			return err
		}

		format := audiocore.AudioFormat{SampleRate: int(sampleRate), Channels: len(padded), BitDepth: 32, Encoding: "pcm_f32"}
		interleaved := make([]float32, 0, len(padded[0])*len(padded))
		planarToInterleavedFloat32(padded, &interleaved)

		data := &audiocore.AudioData{
			Buffer:   interleaved,
			Format:   format,
			SourceID: key.TrackID,
			Targets:  &targets,
		}
		out, err := chain.Process(chunkCtx, data)
		if err != nil {
			return err
		}

		outPlanar := planarFromInterleavedFloat32(out.Buffer, format.Channels)
		trimmed := trimPlanar(outPlanar, int(geom.contextFrames), int(geom.contextFrames))

		buf := &bytes.Buffer{}
		flat := make([]float32, 0, len(trimmed)*len(trimmed[0]))
		planarToInterleavedFloat32(trimmed, &flat)
		if err := binary.Write(buf, binary.LittleEndian, flat); err != nil {
			return err
		}
		result = buf.Bytes()
		return nil
	})

	if err != nil {
		if chunkCtx.Err() == context.DeadlineExceeded && ctx.Err() == nil {
			e.log.Error("chunk processing timed out, emitting silence",
				logger.String("session_id", healthID), logger.Int("chunk_index", key.ChunkIndex))
			e.health.MarkStalled(healthID)
			return silencePCM(channels, int(geom.endFrame-geom.startFrame)), nil
		}
		return nil, err
	}

	progress := 0.0
	if total := src.TotalFrames(); total > 0 {
		progress = float64(geom.endFrame) / float64(total)
		if progress > 1 {
			progress = 1
		}
	}
	e.health.RecordProgress(healthID, progress)
	return result, nil
}

// ClearCache evicts chunk cache entries: all sessions if trackID is
// empty, or just the sessions for one track otherwise.
func (e *Engine) ClearCache(trackID string) {
	if trackID == "" {
		e.cache.ClearAll()
		e.sessionsMu.Lock()
		for k := range e.sessions {
			e.health.StopMonitoring(k)
		}
		e.sessions = make(map[string]*session)
		e.sessionsMu.Unlock()
		return
	}

	e.sessionsMu.Lock()
	for k, s := range e.sessions {
		if s.key.TrackID == trackID {
			e.cache.ClearSession(s.key)
			e.health.StopMonitoring(k)
			delete(e.sessions, k)
		}
	}
	e.sessionsMu.Unlock()
}
