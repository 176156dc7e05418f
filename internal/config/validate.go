package config

import (
	"fmt"
)

// validateSettings checks inter-field invariants that viper's flat
// key/value model can't express on its own.
func validateSettings(s *Settings) error {
	if s.Chunking.ChunkDuration <= 0 {
		return fmt.Errorf("chunking.chunkduration must be positive")
	}
	if s.Chunking.OverlapDuration < 0 || s.Chunking.OverlapDuration >= s.Chunking.ChunkDuration {
		return fmt.Errorf("chunking.overlapduration must be in [0, chunkduration)")
	}
	if s.Chunking.ContextDuration < 0 {
		return fmt.Errorf("chunking.contextduration must be non-negative")
	}
	if s.Chunking.MaxConcurrentChunksPerSession <= 0 {
		return fmt.Errorf("chunking.maxconcurrentchunkspersession must be positive")
	}
	if s.Chunking.IntensityQuantum <= 0 || s.Chunking.IntensityQuantum > 1 {
		return fmt.Errorf("chunking.intensityquantum must be in (0, 1]")
	}
	if s.Chunking.ProcessingTimeout <= 0 {
		return fmt.Errorf("chunking.processingtimeout must be positive")
	}

	if s.Cache.L1Items <= 0 || s.Cache.L2Items <= 0 {
		return fmt.Errorf("cache.l1items and cache.l2items must be positive")
	}
	if s.Cache.L3Bytes < 0 {
		return fmt.Errorf("cache.l3bytes must be non-negative")
	}

	if s.Fingerprint.ExtractDeadline <= 0 {
		return fmt.Errorf("fingerprint.extractdeadline must be positive")
	}

	if s.WorkerPool.MinWorkers <= 0 {
		return fmt.Errorf("workerpool.minworkers must be positive")
	}
	if s.WorkerPool.MaxWorkers != 0 && s.WorkerPool.MaxWorkers < s.WorkerPool.MinWorkers {
		return fmt.Errorf("workerpool.maxworkers must be 0 (auto) or >= minworkers")
	}

	for name, p := range s.Presets {
		if p.InputLevelDelta < -1 || p.InputLevelDelta > 1 {
			return fmt.Errorf("preset %q: input_level_delta out of range", name)
		}
		if p.DynamicRangeDelta < -1 || p.DynamicRangeDelta > 1 {
			return fmt.Errorf("preset %q: dynamic_range_delta out of range", name)
		}
	}

	return nil
}
