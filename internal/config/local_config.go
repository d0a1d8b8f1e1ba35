package config

import (
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// LocalConfig is the subset of config.yaml read directly from a data
// directory rather than through the viper singleton, for callers that need
// the settings of a directory other than the one viper was initialized in.
type LocalConfig struct {
	DB      string       `yaml:"db,omitempty"`
	Backend string       `yaml:"backend,omitempty"`
	Actor   string       `yaml:"actor,omitempty"`
	JSON    bool         `yaml:"json,omitempty"`
	Export  ExportConfig `yaml:"export,omitempty"`
}

// ExportConfig is the export section of config.yaml.
type ExportConfig struct {
	Dir string `yaml:"dir,omitempty"`
}

// LoadLocalConfig reads and parses config.yaml from dataDir.
// Returns an empty LocalConfig (not nil) if the file doesn't exist or can't be parsed.
func LoadLocalConfig(dataDir string) *LocalConfig {
	configPath := filepath.Join(dataDir, "config.yaml")
	data, err := os.ReadFile(configPath) // #nosec G304 - config file path from dataDir
	if err != nil {
		return &LocalConfig{}
	}

	var cfg LocalConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return &LocalConfig{}
	}
	return &cfg
}

// LoadLocalConfigWithEnv reads config.yaml and applies BB_BACKEND and
// BB_ACTOR overrides.
func LoadLocalConfigWithEnv(dataDir string) *LocalConfig {
	cfg := LoadLocalConfig(dataDir)
	if backend := os.Getenv("BB_BACKEND"); backend != "" {
		cfg.Backend = backend
	}
	if actor := os.Getenv("BB_ACTOR"); actor != "" {
		cfg.Actor = actor
	}
	return cfg
}

// WriteLocalConfig writes cfg as dataDir/config.yaml, creating the
// directory when needed.
func WriteLocalConfig(dataDir string, cfg *LocalConfig) error {
	if err := os.MkdirAll(dataDir, 0750); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dataDir, "config.yaml"), data, 0600)
}
