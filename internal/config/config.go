// Package config loads eyelet settings from the resolved config directory.
//
// Settings are optional: a missing eyelet.yaml yields the zero Config and
// every field has a sensible absence behavior. A .env file in the working
// directory is loaded first so containerized setups can inject the EYELET_*
// variables without a shell profile.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// FileName is the settings file looked up inside the config directory.
const FileName = "eyelet.yaml"

// Config holds the user-tunable settings.
type Config struct {
	// DatabasePath pins logging and metrics to one database file instead of
	// the resolved canonical location.
	DatabasePath string `yaml:"database_path"`

	// SearchPaths supplements the discovery walker's seed directories.
	SearchPaths []string `yaml:"search_paths"`

	// CacheTTL overrides the system-metrics cache window, e.g. "45s".
	// Zero keeps the default.
	CacheTTL Duration `yaml:"cache_ttl"`
}

// Duration decodes Go duration strings ("30s", "2m") from YAML.
type Duration time.Duration

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var text string
	if err := value.Decode(&text); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(text)
	if err != nil {
		return fmt.Errorf("parse duration %q: %w", text, err)
	}
	*d = Duration(parsed)
	return nil
}

// Load reads settings from configDir, after loading a .env file if one is
// present in the working directory. A missing settings file is not an error.
func Load(configDir string) (Config, error) {
	// Missing .env files are the normal case.
	_ = godotenv.Load()

	var cfg Config
	data, err := os.ReadFile(filepath.Join(configDir, FileName))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("read config: %w", err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse %s: %w", FileName, err)
	}
	return cfg, nil
}
