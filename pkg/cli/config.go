package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/goccy/go-yaml"

	"github.com/seisview/seisview/pkg/decomp"
	"github.com/seisview/seisview/pkg/quality"
	"github.com/seisview/seisview/pkg/tilewire"
)

const (
	// DefaultBaseDir is the configuration directory name under $HOME.
	DefaultBaseDir = ".seisview"
	// DefaultConfigFile is the configuration filename.
	DefaultConfigFile = "config.yaml"
)

// Config is the on-disk configuration for the seisview tools.
type Config struct {
	// Server is the websocket URL of the tile server.
	Server string `yaml:"server,omitempty"`

	// Limits bounds frame validation; zero fields take defaults.
	Limits tilewire.Limits `yaml:"limits,omitempty"`

	// Scheduler sizes the decompression pool.
	Scheduler decomp.Config `yaml:"scheduler,omitempty"`

	// Quality tunes the control loop.
	Quality quality.Config `yaml:"quality,omitempty"`

	// configPath is where the config was loaded from, for Save.
	configPath string
}

// DefaultConfigPath returns ~/.seisview/config.yaml.
func DefaultConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, DefaultBaseDir, DefaultConfigFile), nil
}

// LoadConfig reads the config from path, or from the default location when
// path is empty. A missing file yields a zero config, not an error.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		var err error
		path, err = DefaultConfigPath()
		if err != nil {
			return nil, err
		}
	}
	cfg := &Config{configPath: path}
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("cli: read config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("cli: parse config %s: %w", path, err)
	}
	return cfg, nil
}

// Save writes the config back to its load path, creating the directory if
// needed.
func (c *Config) Save() error {
	if c.configPath == "" {
		path, err := DefaultConfigPath()
		if err != nil {
			return err
		}
		c.configPath = path
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("cli: encode config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(c.configPath), 0o755); err != nil {
		return fmt.Errorf("cli: create config dir: %w", err)
	}
	if err := os.WriteFile(c.configPath, data, 0o644); err != nil {
		return fmt.Errorf("cli: write config: %w", err)
	}
	return nil
}

// Path returns where the config was loaded from.
func (c *Config) Path() string { return c.configPath }
