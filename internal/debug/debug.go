// Package debug provides env-gated diagnostic output and the events log.
package debug

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"
)

var (
	enabled = os.Getenv("BB_DEBUG") != ""
	verbose bool
	quiet   bool

	// stderr and stdout are swapped by tests.
	stderr io.Writer = os.Stderr
	stdout io.Writer = os.Stdout

	logMu    sync.Mutex
	eventLog string
)

// Enabled reports whether Logf output is on, via BB_DEBUG or --verbose.
func Enabled() bool {
	return enabled || verbose
}

func SetVerbose(on bool) { verbose = on }

// SetQuiet suppresses PrintNormal output (--quiet).
func SetQuiet(on bool) { quiet = on }

// Logf writes diagnostics to stderr when Enabled.
func Logf(format string, args ...any) {
	if Enabled() {
		fmt.Fprintf(stderr, format, args...)
	}
}

// PrintNormal writes confirmation output to stdout unless quiet.
func PrintNormal(format string, args ...any) {
	if !quiet {
		fmt.Fprintf(stdout, format, args...)
	}
}

// SetEventLog directs LogEvent to path. An empty path restores discovery of
// .boards/events.log from the working directory.
func SetEventLog(path string) {
	logMu.Lock()
	defer logMu.Unlock()
	eventLog = path
}

// LogEvent appends TIMESTAMP|EVENT|ENTITY_ID|ACTOR|DETAILS to the events log.
// Failures are ignored; the log is best effort.
func LogEvent(event, entityID, actor, details string) {
	logMu.Lock()
	defer logMu.Unlock()

	path := eventLog
	if path == "" {
		dir, err := findDataDir()
		if err != nil {
			return
		}
		path = filepath.Join(dir, "events.log")
	}
	if entityID == "" {
		entityID = "none"
	}
	if actor == "" {
		actor = firstSet(os.Getenv("USER"), "unknown")
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return
	}
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600) //nolint:gosec // path is the project data dir
	if err != nil {
		return
	}
	defer f.Close()
	fmt.Fprintf(f, "%s|%s|%s|%s|%s\n", time.Now().UTC().Format(time.RFC3339), event, entityID, actor, details)
}

var errNoDataDir = errors.New("no .boards directory above the working directory")

// findDataDir walks up from the working directory to the nearest .boards.
func findDataDir() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", err
	}
	for {
		candidate := filepath.Join(dir, ".boards")
		if info, err := os.Stat(candidate); err == nil && info.IsDir() {
			return candidate, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", errNoDataDir
		}
		dir = parent
	}
}

func firstSet(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
