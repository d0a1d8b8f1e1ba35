package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// YamlOnlyKeys are the keys `bb config set` writes to config.yaml. They are
// read before any store is opened, so they cannot live in the settings table.
var YamlOnlyKeys = map[string]bool{
	"db":                    true,
	"backend":               true,
	"actor":                 true,
	"json":                  true,
	"export.dir":            true,
	"sprint.default-length": true,
	"board.watch-debounce":  true,
	"board.max-cards":       true,
	"board.hide-columns":    true,
}

// IsYamlOnlyKey reports whether key belongs in config.yaml rather than the
// settings table.
func IsYamlOnlyKey(key string) bool {
	if YamlOnlyKeys[key] {
		return true
	}
	for _, section := range []string{"export.", "sprint.", "board."} {
		if strings.HasPrefix(key, section) {
			return true
		}
	}
	return false
}

// SetYamlConfig sets key in the nearest .boards/config.yaml, updating an
// existing (possibly commented) line in place or appending a new one.
func SetYamlConfig(key, value string) error {
	path, err := findProjectConfigYaml()
	if err != nil {
		return err
	}
	content, err := os.ReadFile(path) //nolint:gosec // path comes from FindDataDir
	if err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}
	updated, err := updateYamlKey(string(content), key, value)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, []byte(updated), 0600); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}

// GetYamlConfig returns the effective value of a config.yaml key (env
// overrides and defaults included), or "" when unset.
func GetYamlConfig(key string) string {
	if v == nil {
		return ""
	}
	return v.GetString(key)
}

// findProjectConfigYaml returns the config.yaml of the nearest .boards
// directory, creating an empty file there if it does not exist yet.
func findProjectConfigYaml() (string, error) {
	dir := FindDataDir()
	if dir == "" {
		return "", fmt.Errorf("no %s directory found (run 'bb init' first)", DataDirName)
	}
	configPath := filepath.Join(dir, "config.yaml")
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		if err := os.WriteFile(configPath, nil, 0600); err != nil {
			return "", fmt.Errorf("failed to create config.yaml: %w", err)
		}
	}
	return configPath, nil
}

// updateYamlKey sets key in yaml content. An existing line for the key,
// commented out or not, is replaced in place keeping its indentation;
// otherwise the key is appended after a blank line.
func updateYamlKey(content, key, value string) (string, error) {
	if strings.TrimSpace(key) == "" {
		return "", fmt.Errorf("config key is required")
	}
	line := key + ": " + formatYamlValue(value)
	keyLine := regexp.MustCompile(`^(\s*)(?:#\s*)?` + regexp.QuoteMeta(key) + `\s*:`)

	var lines []string
	if content != "" {
		lines = strings.Split(strings.TrimSuffix(content, "\n"), "\n")
	}
	for i, l := range lines {
		if m := keyLine.FindStringSubmatch(l); m != nil {
			lines[i] = m[1] + line
			return strings.Join(lines, "\n"), nil
		}
	}
	if n := len(lines); n > 0 && lines[n-1] != "" {
		lines = append(lines, "")
	}
	return strings.Join(append(lines, line), "\n"), nil
}

var (
	numberRe = regexp.MustCompile(`^-?[0-9.]+$`)
	// yamlIndicators are characters that make a plain scalar ambiguous.
	yamlIndicators = ":#[]{},&*!|>'\"%@`"
)

// formatYamlValue renders a CLI string as a YAML scalar: booleans are
// lowercased, numbers and durations stay bare, and strings that YAML would
// misread are double-quoted.
func formatYamlValue(value string) string {
	switch lower := strings.ToLower(value); {
	case lower == "true" || lower == "false":
		return lower
	case numberRe.MatchString(value):
		return value
	}
	if _, err := time.ParseDuration(value); err == nil {
		return value
	}
	if strings.ContainsAny(value, yamlIndicators) || strings.TrimSpace(value) != value {
		return strconv.Quote(value)
	}
	return value
}
