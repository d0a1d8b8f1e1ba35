// Package config loads bb settings from config.yaml and BB_* environment
// variables through a viper singleton.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// DataDirName is the per-project directory holding the database, config and
// event log.
const DataDirName = ".boards"

// DefaultDBName is the database file created inside the data directory.
const DefaultDBName = "boards.db"

var v *viper.Viper

// Initialize builds the viper instance. Config discovery walks up from the
// working directory looking for .boards/config.yaml, then falls back to
// ~/.config/bb/config.yaml. Environment variables (BB_JSON, BB_ACTOR,
// BB_SPRINT_DEFAULT_LENGTH, ...) override the file.
func Initialize() error {
	v = viper.New()
	v.SetConfigType("yaml")

	if path := findConfigFile(); path != "" {
		v.SetConfigFile(path)
	}

	v.SetEnvPrefix("BB")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	v.SetDefault("db", "")
	v.SetDefault("backend", "sqlite")
	v.SetDefault("actor", "")
	v.SetDefault("json", false)
	v.SetDefault("export.dir", "")
	v.SetDefault("sprint.default-length", 14*24*time.Hour)
	v.SetDefault("board.watch-debounce", 200*time.Millisecond)
	v.SetDefault("board.max-cards", 0)
	v.SetDefault("board.hide-columns", []string{})

	if v.ConfigFileUsed() != "" {
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("error reading config file: %w", err)
		}
	}
	return nil
}

// findConfigFile returns the first config.yaml found, or "".
func findConfigFile() string {
	if dir := FindDataDir(); dir != "" {
		path := filepath.Join(dir, "config.yaml")
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	if home, err := os.UserConfigDir(); err == nil {
		path := filepath.Join(home, "bb", "config.yaml")
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// FindDataDir walks up from the working directory and returns the first
// .boards directory found, or "".
func FindDataDir() string {
	cwd, err := os.Getwd()
	if err != nil {
		return ""
	}
	for dir := cwd; ; dir = filepath.Dir(dir) {
		candidate := filepath.Join(dir, DataDirName)
		if info, err := os.Stat(candidate); err == nil && info.IsDir() {
			return candidate
		}
		if dir == filepath.Dir(dir) {
			return ""
		}
	}
}

// DBPath resolves the database path: the db setting when set, otherwise
// boards.db inside the discovered data directory, otherwise
// ./.boards/boards.db.
func DBPath() string {
	if p := GetString("db"); p != "" {
		return p
	}
	if dir := FindDataDir(); dir != "" {
		return filepath.Join(dir, DefaultDBName)
	}
	return filepath.Join(DataDirName, DefaultDBName)
}

// ConfigFileUsed returns the path of the loaded config file, or "".
func ConfigFileUsed() string {
	if v == nil {
		return ""
	}
	return v.ConfigFileUsed()
}

// GetString retrieves a string configuration value
func GetString(key string) string {
	if v == nil {
		return ""
	}
	return v.GetString(key)
}

// GetBool retrieves a boolean configuration value
func GetBool(key string) bool {
	if v == nil {
		return false
	}
	return v.GetBool(key)
}

// GetInt retrieves an integer configuration value
func GetInt(key string) int {
	if v == nil {
		return 0
	}
	return v.GetInt(key)
}

// GetDuration retrieves a duration configuration value
func GetDuration(key string) time.Duration {
	if v == nil {
		return 0
	}
	return v.GetDuration(key)
}

// GetStringSlice retrieves a string slice configuration value
func GetStringSlice(key string) []string {
	if v == nil {
		return []string{}
	}
	return v.GetStringSlice(key)
}

// Set sets a configuration value
func Set(key string, value interface{}) {
	if v != nil {
		v.Set(key, value)
	}
}

// AllSettings returns all configuration settings as a map
func AllSettings() map[string]interface{} {
	if v == nil {
		return map[string]interface{}{}
	}
	return v.AllSettings()
}

// ResetForTesting drops the singleton so the next Initialize starts clean.
func ResetForTesting() {
	v = nil
}
