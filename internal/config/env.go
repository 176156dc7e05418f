// config/env.go - environment variable bindings for the mastering engine
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// envBinding holds metadata for one MASTERING_-prefixed environment
// variable override.
type envBinding struct {
	ConfigKey string
	EnvVar    string
	Validate  func(string) error
}

func getEnvBindings() []envBinding {
	return []envBinding{
		{"chunking.chunkduration", "MASTERING_CHUNK_DURATION", validateEnvDuration},
		{"chunking.overlapduration", "MASTERING_OVERLAP_DURATION", validateEnvDuration},
		{"chunking.contextduration", "MASTERING_CONTEXT_DURATION", validateEnvDuration},
		{"chunking.maxconcurrentchunkspersession", "MASTERING_MAX_CONCURRENT_CHUNKS", validateEnvPositiveInt},
		{"chunking.intensityquantum", "MASTERING_INTENSITY_QUANTUM", validateEnvUnitFloat},

		{"cache.l1items", "MASTERING_CACHE_L1_ITEMS", validateEnvPositiveInt},
		{"cache.l2items", "MASTERING_CACHE_L2_ITEMS", validateEnvPositiveInt},
		{"cache.l3dir", "MASTERING_CACHE_L3_DIR", nil},

		{"fingerprint.storepath", "MASTERING_FINGERPRINT_STORE_PATH", nil},
		{"fingerprint.remoteextracturl", "MASTERING_FINGERPRINT_REMOTE_URL", nil},
		{"fingerprint.extractdeadline", "MASTERING_FINGERPRINT_DEADLINE", validateEnvDuration},

		{"workerpool.minworkers", "MASTERING_WORKERPOOL_MIN", validateEnvPositiveInt},
		{"workerpool.maxworkers", "MASTERING_WORKERPOOL_MAX", nil},

		{"telemetry.enabled", "MASTERING_TELEMETRY_ENABLED", nil},
		{"telemetry.listen", "MASTERING_TELEMETRY_LISTEN", nil},

		{"sentry.enabled", "MASTERING_SENTRY_ENABLED", nil},
		{"sentry.dsn", "MASTERING_SENTRY_DSN", nil},

		{"debug", "MASTERING_DEBUG", nil},
	}
}

// bindEnvVars wires each binding into viper and validates any value
// currently present in the environment, returning a combined error
// describing every invalid override found (callers log and continue).
func bindEnvVars() error {
	bindings := getEnvBindings()
	var warnings []string

	for _, binding := range bindings {
		if err := viper.BindEnv(binding.ConfigKey, binding.EnvVar); err != nil {
			warnings = append(warnings, fmt.Sprintf("failed to bind %s: %v", binding.EnvVar, err))
			continue
		}
		if binding.Validate == nil {
			continue
		}
		if envValue := os.Getenv(binding.EnvVar); envValue != "" {
			if err := binding.Validate(envValue); err != nil {
				warnings = append(warnings, fmt.Sprintf("invalid %s value %q: %v", binding.EnvVar, envValue, err))
			}
		}
	}

	if len(warnings) > 0 {
		return fmt.Errorf("environment variable issues:\n  - %s", strings.Join(warnings, "\n  - "))
	}
	return nil
}

func validateEnvDuration(value string) error {
	if _, err := time.ParseDuration(value); err != nil {
		return fmt.Errorf("must be a valid Go duration (e.g. \"10s\"): %w", err)
	}
	return nil
}

func validateEnvPositiveInt(value string) error {
	n, err := strconv.Atoi(value)
	if err != nil {
		return fmt.Errorf("must be an integer: %w", err)
	}
	if n <= 0 {
		return fmt.Errorf("must be positive, got %d", n)
	}
	return nil
}

func validateEnvUnitFloat(value string) error {
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return fmt.Errorf("must be a float: %w", err)
	}
	if f <= 0 || f > 1 {
		return fmt.Errorf("must be in (0, 1], got %v", f)
	}
	return nil
}
