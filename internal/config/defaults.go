// config/defaults.go
package config

import "github.com/spf13/viper"

// setDefaultConfig populates viper with defaults for every setting before
// the config file is read, so a partial user file still yields a complete
// Settings struct.
func setDefaultConfig() {
	viper.SetDefault("debug", false)

	viper.SetDefault("main.name", "mastering-engine")
	viper.SetDefault("main.log.enabled", true)
	viper.SetDefault("main.log.path", "logs/mastering-engine.log")
	viper.SetDefault("main.log.rotation", string(RotationDaily))
	viper.SetDefault("main.log.maxsize", int64(10*1024*1024))

	viper.SetDefault("chunking.chunkduration", DefaultChunkDuration)
	viper.SetDefault("chunking.overlapduration", DefaultOverlapDuration)
	viper.SetDefault("chunking.contextduration", DefaultContextDuration)
	viper.SetDefault("chunking.maxconcurrentchunkspersession", 4)
	viper.SetDefault("chunking.intensityquantum", DefaultIntensityQuantum)
	viper.SetDefault("chunking.processingtimeout", DefaultProcessingTimeout)

	viper.SetDefault("presets", defaultPresets())

	viper.SetDefault("cache.l1items", 64)
	viper.SetDefault("cache.l2items", 512)
	viper.SetDefault("cache.l3bytes", int64(2*1024*1024*1024))
	viper.SetDefault("cache.l3dir", "cache/chunks")
	viper.SetDefault("cache.chunkttl", "24h")

	viper.SetDefault("fingerprint.storepath", "fingerprints.db")
	viper.SetDefault("fingerprint.extractdeadline", DefaultFingerprintDeadline)
	viper.SetDefault("fingerprint.remoteextracturl", "")

	viper.SetDefault("workerpool.minworkers", 1)
	viper.SetDefault("workerpool.maxworkers", 0) // 0 => derived from cpuspec at startup

	viper.SetDefault("telemetry.enabled", false)
	viper.SetDefault("telemetry.listen", "0.0.0.0:9092")

	viper.SetDefault("sentry.enabled", false)
	viper.SetDefault("sentry.dsn", "")
}

// defaultPresets returns the built-in 5-D offsets layered onto the
// continuous target point before pipeline stages derive their parameters.
func defaultPresets() map[string]map[string]float64 {
	return map[string]map[string]float64{
		"adaptive": {
			"input_level_delta": 0, "dynamic_range_delta": 0,
			"bass_mid_ratio_delta": 0, "bass_pct_delta": 0, "mid_pct_delta": 0,
		},
		"gentle": {
			"input_level_delta": -0.1, "dynamic_range_delta": 0.15,
			"bass_mid_ratio_delta": 0, "bass_pct_delta": 0, "mid_pct_delta": 0,
		},
		"warm": {
			"input_level_delta": 0, "dynamic_range_delta": 0.05,
			"bass_mid_ratio_delta": 0.15, "bass_pct_delta": 0.05, "mid_pct_delta": -0.02,
		},
		"bright": {
			"input_level_delta": 0, "dynamic_range_delta": 0,
			"bass_mid_ratio_delta": -0.15, "bass_pct_delta": -0.05, "mid_pct_delta": 0.03,
		},
		"punchy": {
			"input_level_delta": 0.1, "dynamic_range_delta": -0.2,
			"bass_mid_ratio_delta": 0.05, "bass_pct_delta": 0.03, "mid_pct_delta": 0,
		},
	}
}
