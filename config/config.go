// Package config handles configuration loading and defaults.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
)

// Default locations, relative to the user's home directory.
const (
	DefaultDataFile = "~/.taskman/tasks.json"
	DefaultIndexDir = "~/.taskman/index"
	DefaultLogLevel = "info"
)

// Config holds the full configuration for the taskman server.
type Config struct {
	// DataFile is the JSON file holding the task set and ID counter.
	DataFile string `toml:"data_file"`

	// IndexDir is the directory for the full-text search index.
	// Empty disables the on-disk index (an in-memory one is used).
	IndexDir string `toml:"index_dir"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `toml:"log_level"`

	// SearchEnabled toggles the search_tasks tool.
	SearchEnabled bool `toml:"search_enabled"`
}

// Default returns the configuration used when no config file exists.
func Default() *Config {
	return &Config{
		DataFile:      DefaultDataFile,
		IndexDir:      DefaultIndexDir,
		LogLevel:      DefaultLogLevel,
		SearchEnabled: true,
	}
}

// Load reads a TOML config file, applying defaults for missing fields.
// A missing file is not an error; the defaults are returned.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		return cfg.expand()
	}

	content, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg.expand()
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if _, err := toml.Decode(string(content), cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return cfg.expand()
}

// expand resolves ~ prefixes in configured paths.
func (c *Config) expand() (*Config, error) {
	var err error
	if c.DataFile, err = expandHome(c.DataFile); err != nil {
		return nil, err
	}
	if c.IndexDir, err = expandHome(c.IndexDir); err != nil {
		return nil, err
	}
	return c, nil
}

// expandHome replaces a leading ~ with the user's home directory.
func expandHome(path string) (string, error) {
	if path == "" || !strings.HasPrefix(path, "~") {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot resolve home directory: %w", err)
	}
	if path == "~" {
		return home, nil
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~/")), nil
}
