package config

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"
)

// TestMain isolates tests from any .boards/config.yaml above the working
// directory and from the user's own ~/.config/bb/config.yaml.
func TestMain(m *testing.M) {
	tmp, err := os.MkdirTemp("", "boards-config-tests-*")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create temp dir: %v\n", err)
		os.Exit(1)
	}

	oldWD, _ := os.Getwd()

	_ = os.Chdir(tmp)
	_ = os.Setenv("HOME", tmp)
	_ = os.Setenv("USERPROFILE", tmp)
	_ = os.Setenv("XDG_CONFIG_HOME", filepath.Join(tmp, "xdg-config"))

	code := m.Run()

	_ = os.Chdir(oldWD)
	_ = os.RemoveAll(tmp)
	os.Exit(code)
}

// writeDataDir creates dir/.boards/config.yaml with content and returns the
// .boards path.
func writeDataDir(t *testing.T, dir, content string) string {
	t.Helper()
	dataDir := filepath.Join(dir, DataDirName)
	if err := os.MkdirAll(dataDir, 0750); err != nil {
		t.Fatalf("failed to create %s: %v", DataDirName, err)
	}
	if err := os.WriteFile(filepath.Join(dataDir, "config.yaml"), []byte(content), 0600); err != nil {
		t.Fatalf("failed to write config.yaml: %v", err)
	}
	return dataDir
}
