package debug

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestEnabled(t *testing.T) {
	tests := []struct {
		name    string
		env     bool
		verbose bool
		want    bool
	}{
		{"enabled by env", true, false, true},
		{"enabled by verbose", false, true, true},
		{"disabled", false, false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			oldEnabled, oldVerbose := enabled, verbose
			defer func() { enabled, verbose = oldEnabled, oldVerbose }()

			enabled = tt.env
			SetVerbose(tt.verbose)

			if got := Enabled(); got != tt.want {
				t.Errorf("Enabled() = %v, want %v", got, tt.want)
			}
		})
	}
}

// swap points w at a fresh buffer for the duration of the test.
func swap(t *testing.T, w *io.Writer) *bytes.Buffer {
	t.Helper()
	old := *w
	buf := &bytes.Buffer{}
	*w = buf
	t.Cleanup(func() { *w = old })
	return buf
}

func TestLogf(t *testing.T) {
	oldEnabled := enabled
	defer func() { enabled = oldEnabled }()
	buf := swap(t, &stderr)

	enabled = true
	Logf("test message: %s\n", "hello")
	if got := buf.String(); got != "test message: hello\n" {
		t.Errorf("Logf() output = %q", got)
	}

	buf.Reset()
	enabled = false
	Logf("test message: %s\n", "hello")
	if got := buf.String(); got != "" {
		t.Errorf("Logf() should be silent when disabled, got %q", got)
	}
}

func TestPrintNormalRespectsQuiet(t *testing.T) {
	defer SetQuiet(false)
	buf := swap(t, &stdout)

	SetQuiet(true)
	PrintNormal("hi %s\n", "there")
	if got := buf.String(); got != "" {
		t.Errorf("quiet output = %q, want empty", got)
	}

	SetQuiet(false)
	PrintNormal("hi %s\n", "there")
	if got := buf.String(); got != "hi there\n" {
		t.Errorf("normal output = %q", got)
	}
}

func TestLogEvent(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "nested", "events.log")
	SetEventLog(logPath)
	defer SetEventLog("")

	LogEvent("issue.created", "i-1", "alice", "TP-1")
	LogEvent("project.deleted", "", "bob", "")

	data, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read events log: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d: %q", len(lines), data)
	}
	fields := strings.Split(lines[0], "|")
	if len(fields) != 5 || fields[1] != "issue.created" || fields[2] != "i-1" || fields[3] != "alice" || fields[4] != "TP-1" {
		t.Errorf("unexpected first entry: %q", lines[0])
	}
	if !strings.Contains(lines[1], "|project.deleted|none|bob|") {
		t.Errorf("unexpected second entry: %q", lines[1])
	}
}

func TestFindDataDir(t *testing.T) {
	root := t.TempDir()
	if err := os.MkdirAll(filepath.Join(root, ".boards"), 0o750); err != nil {
		t.Fatal(err)
	}
	sub := filepath.Join(root, "a", "b")
	if err := os.MkdirAll(sub, 0o750); err != nil {
		t.Fatal(err)
	}
	t.Chdir(sub)

	got, err := findDataDir()
	if err != nil {
		t.Fatalf("findDataDir() error = %v", err)
	}
	want, _ := filepath.EvalSymlinks(filepath.Join(root, ".boards"))
	if resolved, _ := filepath.EvalSymlinks(got); resolved != want {
		t.Errorf("findDataDir() = %q, want %q", got, want)
	}
}
