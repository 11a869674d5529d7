// Package config resolves where reading progress lives and how it is
// stored, from a YAML file in the user config dir plus BRP_* environment
// overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

const (
	appName          = "bible-reading-progress"
	progressFileName = "reading_progress.yaml"
	sqliteFileName   = "reading_progress.db"
)

// Storage selects the persistence backend.
type Storage string

const (
	StorageYAML   Storage = "yaml"
	StorageSQLite Storage = "sqlite"
)

// File is the on-disk config file.
type File struct {
	// ProgressPath may be absolute, start with ~, or be relative to the
	// config directory.
	ProgressPath string  `yaml:"progress_path,omitempty"`
	Storage      Storage `yaml:"storage,omitempty"`
	DebugLog     string  `yaml:"debug_log,omitempty"`
}

type overrides struct {
	ConfigPath   string  `env:"BRP_CONFIG"`
	ProgressPath string  `env:"BRP_PROGRESS_PATH"`
	Storage      Storage `env:"BRP_STORAGE"`
	DebugLog     string  `env:"BRP_DEBUG_LOG"`
}

// Config is the resolved configuration.
type Config struct {
	// File is the config file that was read (or created).
	File string
	// ProgressPath is the absolute path of the progress store.
	ProgressPath string
	Storage      Storage
	// DebugLog is the file diagnostic logs are appended to. Empty disables
	// logging.
	DebugLog string
}

const defaultFile = `# Bible reading progress configuration.
#
# progress_path: where reading progress is stored. Absolute, ~/..., or
#   relative to this file's directory.
# storage: yaml (default) or sqlite.
# debug_log: file to append diagnostic logs to.
#
# progress_path: ~/Documents/reading_progress.yaml
`

// Load reads the config file, creating it with commented defaults when it
// does not exist, and applies environment overrides.
func Load() (*Config, error) {
	var ov overrides
	if err := parseEnv(&ov); err != nil {
		return nil, err
	}

	path := findFile(configDir())
	if ov.ConfigPath != "" {
		var err error
		if path, err = expand(ov.ConfigPath, "."); err != nil {
			return nil, err
		}
	}

	file, err := readFile(path)
	if err != nil {
		return nil, err
	}

	cfg := &Config{File: path, Storage: StorageYAML}
	if file.Storage != "" {
		cfg.Storage = file.Storage
	}
	if ov.Storage != "" {
		cfg.Storage = ov.Storage
	}
	if cfg.Storage != StorageYAML && cfg.Storage != StorageSQLite {
		return nil, fmt.Errorf("unknown storage %q (want %q or %q)", cfg.Storage, StorageYAML, StorageSQLite)
	}

	base := filepath.Dir(path)
	switch {
	case ov.ProgressPath != "":
		cfg.ProgressPath, err = expand(ov.ProgressPath, ".")
	case file.ProgressPath != "":
		cfg.ProgressPath, err = expand(file.ProgressPath, base)
	default:
		name := progressFileName
		if cfg.Storage == StorageSQLite {
			name = sqliteFileName
		}
		cfg.ProgressPath = filepath.Join(dataDir(), appName, name)
	}
	if err != nil {
		return nil, err
	}

	switch {
	case ov.DebugLog != "":
		cfg.DebugLog, err = expand(ov.DebugLog, ".")
	case file.DebugLog != "":
		cfg.DebugLog, err = expand(file.DebugLog, base)
	}
	if err != nil {
		return nil, err
	}
	return cfg, nil
}

func parseEnv(target *overrides) error {
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// findFile prefers bible-reading-progress.yaml, falling back to .yml.
func findFile(dir string) string {
	yamlPath := filepath.Join(dir, appName+".yaml")
	if _, err := os.Stat(yamlPath); err == nil {
		return yamlPath
	}
	ymlPath := filepath.Join(dir, appName+".yml")
	if _, err := os.Stat(ymlPath); err == nil {
		return ymlPath
	}
	return yamlPath
}

func readFile(path string) (File, error) {
	var f File
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return f, fmt.Errorf("failed to create config dir: %w", err)
		}
		if err := os.WriteFile(path, []byte(defaultFile), 0644); err != nil {
			return f, fmt.Errorf("failed to write default config: %w", err)
		}
		return f, nil
	}
	if err != nil {
		return f, fmt.Errorf("failed to read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &f); err != nil {
		return f, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	return f, nil
}

// expand resolves ~ and makes path absolute, relative to base.
func expand(path, base string) (string, error) {
	if path == "~" || strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to find home directory: %w", err)
		}
		path = filepath.Join(home, strings.TrimPrefix(path[1:], "/"))
	}
	if !filepath.IsAbs(path) {
		path = filepath.Join(base, path)
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("failed to resolve %s: %w", path, err)
	}
	return abs, nil
}

// configDir returns XDG_CONFIG_HOME or ~/.config
func configDir() string {
	if dir := os.Getenv("XDG_CONFIG_HOME"); dir != "" {
		return dir
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config")
}

// dataDir returns XDG_DATA_HOME or ~/.local/share
func dataDir() string {
	if dir := os.Getenv("XDG_DATA_HOME"); dir != "" {
		return dir
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".local", "share")
}
