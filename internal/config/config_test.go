package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestInitialize(t *testing.T) {
	if err := Initialize(); err != nil {
		t.Fatalf("Initialize() returned error: %v", err)
	}
	if v == nil {
		t.Fatal("viper instance is nil after Initialize()")
	}
	if got := ConfigFileUsed(); got != "" {
		t.Errorf("ConfigFileUsed() = %q, want empty outside a data dir", got)
	}
}

func TestDefaults(t *testing.T) {
	if err := Initialize(); err != nil {
		t.Fatalf("Initialize() returned error: %v", err)
	}

	tests := []struct {
		key      string
		expected interface{}
		getter   func(string) interface{}
	}{
		{"json", false, func(k string) interface{} { return GetBool(k) }},
		{"db", "", func(k string) interface{} { return GetString(k) }},
		{"backend", "sqlite", func(k string) interface{} { return GetString(k) }},
		{"actor", "", func(k string) interface{} { return GetString(k) }},
		{"export.dir", "", func(k string) interface{} { return GetString(k) }},
		{"sprint.default-length", 14 * 24 * time.Hour, func(k string) interface{} { return GetDuration(k) }},
		{"board.watch-debounce", 200 * time.Millisecond, func(k string) interface{} { return GetDuration(k) }},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			got := tt.getter(tt.key)
			if got != tt.expected {
				t.Errorf("GetXXX(%q) = %v, want %v", tt.key, got, tt.expected)
			}
		})
	}
}

func TestEnvironmentBinding(t *testing.T) {
	tests := []struct {
		envVar   string
		key      string
		value    string
		expected interface{}
		getter   func(string) interface{}
	}{
		{"BB_JSON", "json", "true", true, func(k string) interface{} { return GetBool(k) }},
		{"BB_ACTOR", "actor", "alice", "alice", func(k string) interface{} { return GetString(k) }},
		{"BB_DB", "db", "/tmp/test.db", "/tmp/test.db", func(k string) interface{} { return GetString(k) }},
		{"BB_BACKEND", "backend", "memory", "memory", func(k string) interface{} { return GetString(k) }},
		{"BB_EXPORT_DIR", "export.dir", "/tmp/out", "/tmp/out", func(k string) interface{} { return GetString(k) }},
		{"BB_SPRINT_DEFAULT_LENGTH", "sprint.default-length", "168h", 7 * 24 * time.Hour, func(k string) interface{} { return GetDuration(k) }},
	}

	for _, tt := range tests {
		t.Run(tt.envVar, func(t *testing.T) {
			t.Setenv(tt.envVar, tt.value)

			if err := Initialize(); err != nil {
				t.Fatalf("Initialize() returned error: %v", err)
			}

			got := tt.getter(tt.key)
			if got != tt.expected {
				t.Errorf("GetXXX(%q) with %s=%s = %v, want %v", tt.key, tt.envVar, tt.value, got, tt.expected)
			}
		})
	}
}

func TestConfigFile(t *testing.T) {
	tmpDir := t.TempDir()
	dataDir := writeDataDir(t, tmpDir, `
json: true
actor: configuser
sprint:
  default-length: 240h
`)

	// Discovery walks up, so start from a nested directory.
	nested := filepath.Join(tmpDir, "src", "pkg")
	if err := os.MkdirAll(nested, 0750); err != nil {
		t.Fatalf("failed to create nested dir: %v", err)
	}
	t.Chdir(nested)

	if err := Initialize(); err != nil {
		t.Fatalf("Initialize() returned error: %v", err)
	}

	if got := GetBool("json"); got != true {
		t.Errorf("GetBool(json) = %v, want true", got)
	}
	if got := GetString("actor"); got != "configuser" {
		t.Errorf("GetString(actor) = %q, want \"configuser\"", got)
	}
	if got := GetDuration("sprint.default-length"); got != 240*time.Hour {
		t.Errorf("GetDuration(sprint.default-length) = %v, want 240h", got)
	}

	wantPath, _ := filepath.EvalSymlinks(filepath.Join(dataDir, "config.yaml"))
	gotPath, _ := filepath.EvalSymlinks(ConfigFileUsed())
	if gotPath != wantPath {
		t.Errorf("ConfigFileUsed() = %q, want %q", gotPath, wantPath)
	}
}

func TestUserConfigFallback(t *testing.T) {
	tmpDir := t.TempDir()
	t.Chdir(tmpDir)

	xdg := filepath.Join(tmpDir, "xdg")
	t.Setenv("XDG_CONFIG_HOME", xdg)
	if err := os.MkdirAll(filepath.Join(xdg, "bb"), 0750); err != nil {
		t.Fatalf("failed to create user config dir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(xdg, "bb", "config.yaml"), []byte("actor: homeuser\n"), 0600); err != nil {
		t.Fatalf("failed to write user config: %v", err)
	}

	if err := Initialize(); err != nil {
		t.Fatalf("Initialize() returned error: %v", err)
	}
	if got := GetString("actor"); got != "homeuser" {
		t.Errorf("GetString(actor) = %q, want \"homeuser\"", got)
	}
}

func TestConfigPrecedence(t *testing.T) {
	tmpDir := t.TempDir()
	writeDataDir(t, tmpDir, "json: false\nactor: fromfile\n")
	t.Chdir(tmpDir)

	if err := Initialize(); err != nil {
		t.Fatalf("Initialize() returned error: %v", err)
	}
	if got := GetString("actor"); got != "fromfile" {
		t.Errorf("GetString(actor) = %q, want \"fromfile\"", got)
	}

	t.Setenv("BB_ACTOR", "fromenv")
	if err := Initialize(); err != nil {
		t.Fatalf("Initialize() returned error: %v", err)
	}
	if got := GetString("actor"); got != "fromenv" {
		t.Errorf("GetString(actor) = %q, want env to override file", got)
	}

	// Explicit Set (used for flags) wins over both.
	Set("actor", "fromflag")
	if got := GetString("actor"); got != "fromflag" {
		t.Errorf("GetString(actor) = %q, want \"fromflag\"", got)
	}
}

func TestSetAndGet(t *testing.T) {
	if err := Initialize(); err != nil {
		t.Fatalf("Initialize() returned error: %v", err)
	}

	Set("test-key", "test-value")
	if got := GetString("test-key"); got != "test-value" {
		t.Errorf("GetString(test-key) = %q, want \"test-value\"", got)
	}
	Set("test-int", 42)
	if got := GetInt("test-int"); got != 42 {
		t.Errorf("GetInt(test-int) = %d, want 42", got)
	}
}

func TestAllSettings(t *testing.T) {
	if err := Initialize(); err != nil {
		t.Fatalf("Initialize() returned error: %v", err)
	}
	Set("custom-key", "custom-value")

	settings := AllSettings()
	if settings["custom-key"] != "custom-value" {
		t.Errorf("AllSettings()[custom-key] = %v, want \"custom-value\"", settings["custom-key"])
	}
	if settings["backend"] != "sqlite" {
		t.Errorf("AllSettings()[backend] = %v, want \"sqlite\"", settings["backend"])
	}
}

func TestGetStringSlice(t *testing.T) {
	if err := Initialize(); err != nil {
		t.Fatalf("Initialize() returned error: %v", err)
	}
	Set("test-slice", []string{"a", "b"})

	got := GetStringSlice("test-slice")
	if len(got) != 2 || got[0] != "a" || got[1] != "b" {
		t.Errorf("GetStringSlice(test-slice) = %v, want [a b]", got)
	}
	if got := GetStringSlice("missing-slice"); len(got) != 0 {
		t.Errorf("GetStringSlice(missing-slice) = %v, want empty", got)
	}
}

func TestDBPath(t *testing.T) {
	tmpDir := t.TempDir()
	t.Chdir(tmpDir)

	if err := Initialize(); err != nil {
		t.Fatalf("Initialize() returned error: %v", err)
	}
	if got, want := DBPath(), filepath.Join(DataDirName, DefaultDBName); got != want {
		t.Errorf("DBPath() without data dir = %q, want %q", got, want)
	}

	dataDir := writeDataDir(t, tmpDir, "")
	got, _ := filepath.EvalSymlinks(filepath.Dir(DBPath()))
	want, _ := filepath.EvalSymlinks(dataDir)
	if got != want {
		t.Errorf("DBPath() dir = %q, want %q", got, want)
	}

	Set("db", "/tmp/explicit.db")
	if got := DBPath(); got != "/tmp/explicit.db" {
		t.Errorf("DBPath() = %q, want explicit db setting", got)
	}
}

func TestNilViperBehavior(t *testing.T) {
	ResetForTesting()
	defer func() { _ = Initialize() }()

	if got := GetString("any"); got != "" {
		t.Errorf("GetString on nil viper = %q, want empty", got)
	}
	if got := GetBool("any"); got {
		t.Error("GetBool on nil viper = true, want false")
	}
	if got := GetInt("any"); got != 0 {
		t.Errorf("GetInt on nil viper = %d, want 0", got)
	}
	if got := GetDuration("any"); got != 0 {
		t.Errorf("GetDuration on nil viper = %v, want 0", got)
	}
	if got := GetStringSlice("any"); got == nil || len(got) != 0 {
		t.Errorf("GetStringSlice on nil viper = %v, want empty slice", got)
	}
	if got := AllSettings(); len(got) != 0 {
		t.Errorf("AllSettings on nil viper = %v, want empty", got)
	}
	if got := ConfigFileUsed(); got != "" {
		t.Errorf("ConfigFileUsed on nil viper = %q, want empty", got)
	}

	// Set must not panic.
	Set("any", "value")
}
