// config/utils.go
package config

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"

	"github.com/go-viper/mapstructure/v2"
)

// GetDefaultConfigPaths returns a list of default configuration paths for
// the current operating system, most-specific first.
func GetDefaultConfigPaths() ([]string, error) {
	var configPaths []string

	exePath, err := os.Executable()
	if err != nil {
		return nil, fmt.Errorf("error fetching executable path: %w", err)
	}
	exeDir := filepath.Dir(exePath)

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("error fetching user home directory: %w", err)
	}

	switch runtime.GOOS {
	case "windows":
		configPaths = []string{
			exeDir,
			filepath.Join(homeDir, "AppData", "Roaming", "mastering-engine"),
		}
	default:
		configPaths = []string{
			filepath.Join(homeDir, ".config", "mastering-engine"),
			"/etc/mastering-engine",
		}
	}

	return configPaths, nil
}

// GetBasePath expands environment variables in path and, if relative,
// interprets it relative to the executable's directory.
func GetBasePath(path string) string {
	expanded := os.ExpandEnv(path)
	clean := filepath.Clean(expanded)
	if filepath.IsAbs(clean) {
		return clean
	}

	exePath, err := os.Executable()
	if err != nil {
		return clean
	}
	return filepath.Join(filepath.Dir(exePath), clean)
}

// structToMap converts a settings struct into a generic map suitable for
// viper.MergeConfigMap, via mapstructure's struct-to-map decode path.
func structToMap(v any) (map[string]any, error) {
	var out map[string]any
	if err := mapstructure.Decode(v, &out); err != nil {
		return nil, fmt.Errorf("decoding struct to map: %w", err)
	}
	return out, nil
}

// bytesReader adapts a byte slice to an io.Reader for viper.ReadConfig.
func bytesReader(b []byte) io.Reader {
	return bytes.NewReader(b)
}
