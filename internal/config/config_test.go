package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validSettings() *Settings {
	s := &Settings{}
	s.Chunking = ChunkingSettings{
		ChunkDuration:                 10 * time.Second,
		OverlapDuration:               500 * time.Millisecond,
		ContextDuration:               2 * time.Second,
		MaxConcurrentChunksPerSession: 4,
		IntensityQuantum:              0.1,
		ProcessingTimeout:             60 * time.Second,
	}
	s.Cache = CacheSettings{L1Items: 64, L2Items: 512, L3Bytes: 1024}
	s.Fingerprint = FingerprintSettings{ExtractDeadline: 60 * time.Second}
	s.WorkerPool = WorkerPoolSettings{MinWorkers: 1, MaxWorkers: 0}
	s.Presets = map[string]PresetSettings{
		"adaptive": {},
	}
	return s
}

func TestValidateSettings(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		mutate  func(*Settings)
		wantErr bool
	}{
		{"valid defaults", func(*Settings) {}, false},
		{"zero chunk duration", func(s *Settings) { s.Chunking.ChunkDuration = 0 }, true},
		{"overlap exceeds chunk", func(s *Settings) { s.Chunking.OverlapDuration = s.Chunking.ChunkDuration }, true},
		{"negative context duration", func(s *Settings) { s.Chunking.ContextDuration = -1 }, true},
		{"zero concurrent chunks", func(s *Settings) { s.Chunking.MaxConcurrentChunksPerSession = 0 }, true},
		{"intensity quantum too large", func(s *Settings) { s.Chunking.IntensityQuantum = 1.5 }, true},
		{"zero processing timeout", func(s *Settings) { s.Chunking.ProcessingTimeout = 0 }, true},
		{"zero L1 cache items", func(s *Settings) { s.Cache.L1Items = 0 }, true},
		{"negative L3 bytes", func(s *Settings) { s.Cache.L3Bytes = -1 }, true},
		{"zero fingerprint deadline", func(s *Settings) { s.Fingerprint.ExtractDeadline = 0 }, true},
		{"zero min workers", func(s *Settings) { s.WorkerPool.MinWorkers = 0 }, true},
		{"max workers below min", func(s *Settings) {
			s.WorkerPool.MinWorkers = 4
			s.WorkerPool.MaxWorkers = 2
		}, true},
		{"preset delta out of range", func(s *Settings) {
			s.Presets["adaptive"] = PresetSettings{InputLevelDelta: 2}
		}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			s := validSettings()
			tt.mutate(s)
			err := validateSettings(s)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestGetDefaultConfigPaths(t *testing.T) {
	t.Parallel()
	paths, err := GetDefaultConfigPaths()
	require.NoError(t, err)
	assert.NotEmpty(t, paths)
}

func TestStructToMapRoundTrip(t *testing.T) {
	t.Parallel()
	s := validSettings()
	m, err := structToMap(s)
	require.NoError(t, err)
	assert.Contains(t, m, "Chunking")
}
