// config/config.go
package config

import (
	"embed"
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/spf13/viper"
)

//go:embed config.yaml
var configFiles embed.FS

//go:embed calibration.yaml
var calibrationFile embed.FS

// Settings is the root configuration struct for the mastering engine,
// loaded from an embedded default, an optional user file, and
// MASTERING_-prefixed environment overrides.
type Settings struct {
	Debug bool // true to enable debug logging

	Main struct {
		Name string // identifies this engine instance in logs/metrics
		Log  LogConfig
	}

	Chunking ChunkingSettings

	Calibration CalibrationSettings

	Presets map[string]PresetSettings

	Cache CacheSettings

	Fingerprint FingerprintSettings

	WorkerPool WorkerPoolSettings

	Telemetry struct {
		Enabled bool   // true to enable Prometheus compatible telemetry endpoint
		Listen  string // IP address and port to listen on
	}

	Sentry struct {
		Enabled bool   // true to enable Sentry crash/error telemetry
		DSN     string // Sentry project DSN
	}
}

// ChunkingSettings controls how a track is partitioned into overlapping
// processing chunks by the orchestrator (spec.md §4.5 / §3.1 ProcessingChunk).
type ChunkingSettings struct {
	ChunkDuration               time.Duration
	OverlapDuration             time.Duration
	ContextDuration             time.Duration
	MaxConcurrentChunksPerSession int
	IntensityQuantum            float64

	// ProcessingTimeout bounds a single chunk build (spec.md §7's
	// ProcessingTimeout: >60s aborts the chunk, emits silence of its
	// duration, and marks the session unhealthy instead of failing the
	// stream).
	ProcessingTimeout time.Duration
}

// CalibrationSettings names the embedded reference set used to derive
// parameter-space bounds at startup (spec.md §3.1 ParameterSpacePoint).
type CalibrationSettings struct {
	ReferencePoints []CalibrationPoint
}

// CalibrationPoint is one reference recording's aggregate features, as
// loaded from the embedded calibration file.
type CalibrationPoint struct {
	RMS          float64    `yaml:"rms" mapstructure:"rms"`
	Peak         float64    `yaml:"peak" mapstructure:"peak"`
	LUFS         float64    `yaml:"lufs" mapstructure:"lufs"`
	CrestDB      float64    `yaml:"crest_db" mapstructure:"crest_db"`
	BandEnergies [BarkBands]float64 `yaml:"band_energies" mapstructure:"band_energies"`
}

// PresetSettings is a 5-D parameter-space offset applied on top of the
// continuous target point (spec.md §4.3 "adaptive", "gentle", "warm",
// "bright", "punchy" presets).
type PresetSettings struct {
	InputLevelDelta  float64 `mapstructure:"input_level_delta"`
	DynamicRangeDelta float64 `mapstructure:"dynamic_range_delta"`
	BassMidRatioDelta float64 `mapstructure:"bass_mid_ratio_delta"`
	BassPctDelta     float64 `mapstructure:"bass_pct_delta"`
	MidPctDelta      float64 `mapstructure:"mid_pct_delta"`
}

// CacheSettings sizes the orchestrator's L1/L2/L3 cache tiers (spec.md §4.5).
type CacheSettings struct {
	L1Items    int
	L2Items    int
	L3Bytes    int64
	L3Dir      string
	ChunkTTL   time.Duration
}

// FingerprintSettings configures fingerprint persistence and remote
// extraction (spec.md §3.1 MasteringFingerprint).
type FingerprintSettings struct {
	StorePath        string
	ExtractDeadline  time.Duration
	RemoteExtractURL string
}

// WorkerPoolSettings bounds the process-wide chunk-processing worker pool
// (independent of the per-session semaphore).
type WorkerPoolSettings struct {
	MinWorkers int
	MaxWorkers int
}

// LogConfig defines the configuration for a log file.
type LogConfig struct {
	Enabled     bool
	Path        string
	Rotation    RotationType
	MaxSize     int64
	RotationDay time.Weekday
}

// RotationType defines different types of log rotations.
type RotationType string

const (
	RotationDaily  RotationType = "daily"
	RotationWeekly RotationType = "weekly"
	RotationSize   RotationType = "size"
)

// buildDate is the time when the binary was built.
var buildDate string

var (
	settingsInstance *Settings
	once             sync.Once
	settingsMutex    sync.RWMutex
)

// Load reads the configuration file and environment variables into a fresh
// Settings instance, validates it, and stores it as the process-wide
// singleton.
func Load() (*Settings, error) {
	settingsMutex.Lock()
	defer settingsMutex.Unlock()

	settings := &Settings{}

	if err := initViper(); err != nil {
		return nil, fmt.Errorf("error initializing viper: %w", err)
	}

	if err := bindEnvVars(); err != nil {
		log.Printf("config: %v", err)
	}

	if err := viper.Unmarshal(settings); err != nil {
		return nil, fmt.Errorf("error unmarshaling config into struct: %w", err)
	}

	if err := loadCalibration(settings); err != nil {
		return nil, fmt.Errorf("error loading calibration set: %w", err)
	}

	if err := validateSettings(settings); err != nil {
		return nil, fmt.Errorf("invalid settings: %w", err)
	}

	settingsInstance = settings
	return settings, nil
}

// initViper initializes viper with default values and reads the
// configuration file.
func initViper() error {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.SetEnvPrefix("MASTERING")

	configPaths, err := GetDefaultConfigPaths()
	if err != nil {
		return fmt.Errorf("error getting default config paths: %w", err)
	}
	for _, path := range configPaths {
		viper.AddConfigPath(path)
	}

	setDefaultConfig()

	err = viper.ReadInConfig()
	if err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return createDefaultConfig()
		}
		return fmt.Errorf("fatal error reading config file: %w", err)
	}

	log.Printf("mastering-engine build %s, using config file: %s", buildDate, viper.ConfigFileUsed())
	return nil
}

// createDefaultConfig writes the embedded default config to the first
// default config path and loads it.
func createDefaultConfig() error {
	configPaths, err := GetDefaultConfigPaths()
	if err != nil {
		return fmt.Errorf("error getting default config paths: %w", err)
	}
	configPath := filepath.Join(configPaths[0], "config.yaml")
	defaultConfig := getDefaultConfig()

	if err := os.MkdirAll(filepath.Dir(configPath), 0o755); err != nil {
		return fmt.Errorf("error creating directories for config file: %w", err)
	}
	if err := os.WriteFile(configPath, []byte(defaultConfig), 0o644); err != nil {
		return fmt.Errorf("error writing default config file: %w", err)
	}

	return viper.ReadInConfig()
}

// getDefaultConfig reads the embedded default configuration.
func getDefaultConfig() string {
	data, err := fs.ReadFile(configFiles, "config.yaml")
	if err != nil {
		log.Fatalf("error reading embedded config: %v", err)
	}
	return string(data)
}

// loadCalibration unmarshals the embedded calibration reference set into
// settings.Calibration.ReferencePoints, unless a user config already
// supplied one.
func loadCalibration(settings *Settings) error {
	if len(settings.Calibration.ReferencePoints) > 0 {
		return nil
	}

	data, err := fs.ReadFile(calibrationFile, "calibration.yaml")
	if err != nil {
		return fmt.Errorf("reading embedded calibration file: %w", err)
	}

	cv := viper.New()
	cv.SetConfigType("yaml")
	if err := cv.ReadConfig(bytesReader(data)); err != nil {
		return fmt.Errorf("parsing embedded calibration file: %w", err)
	}

	var cal CalibrationSettings
	if err := cv.Unmarshal(&cal); err != nil {
		return fmt.Errorf("unmarshaling calibration file: %w", err)
	}
	settings.Calibration = cal
	return nil
}

// GetSettings returns the current settings instance.
func GetSettings() *Settings {
	settingsMutex.RLock()
	defer settingsMutex.RUnlock()
	return settingsInstance
}

// SaveSettings persists the current settings instance to the config file.
func SaveSettings() error {
	settingsMutex.RLock()
	defer settingsMutex.RUnlock()

	settingsMap, err := structToMap(settingsInstance)
	if err != nil {
		return fmt.Errorf("error converting settings to map: %w", err)
	}
	if err := viper.MergeConfigMap(settingsMap); err != nil {
		return fmt.Errorf("error merging settings with viper: %w", err)
	}
	return viper.WriteConfig()
}

// UpdateSettings validates and installs newSettings as the process-wide
// singleton, then persists it.
func UpdateSettings(newSettings *Settings) error {
	settingsMutex.Lock()
	defer settingsMutex.Unlock()

	if err := validateSettings(newSettings); err != nil {
		return fmt.Errorf("invalid settings: %w", err)
	}
	settingsInstance = newSettings

	settingsMap, err := structToMap(newSettings)
	if err != nil {
		return fmt.Errorf("error converting settings to map: %w", err)
	}
	if err := viper.MergeConfigMap(settingsMap); err != nil {
		return fmt.Errorf("error merging settings with viper: %w", err)
	}
	return viper.WriteConfig()
}

// Setting returns the current settings instance, loading it on first call.
func Setting() *Settings {
	once.Do(func() {
		if settingsInstance == nil {
			if _, err := Load(); err != nil {
				log.Fatalf("error loading settings: %v", err)
			}
		}
	})
	return GetSettings()
}
