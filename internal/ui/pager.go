package ui

import (
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
)

// PagerOptions controls pager behavior
type PagerOptions struct {
	// NoPager disables pager for this command (--no-pager flag)
	NoPager bool
}

// shouldUsePager is false with --no-pager, BB_NO_PAGER, agent mode, or
// when stdout is not a TTY.
func shouldUsePager(opts PagerOptions) bool {
	if opts.NoPager || os.Getenv("BB_NO_PAGER") != "" || IsAgentMode() {
		return false
	}
	return IsTerminal()
}

// pagerCommand checks BB_PAGER, then PAGER, and defaults to "less".
func pagerCommand() string {
	if pager := os.Getenv("BB_PAGER"); pager != "" {
		return pager
	}
	if pager := os.Getenv("PAGER"); pager != "" {
		return pager
	}
	return "less"
}

func contentHeight(content string) int {
	if content == "" {
		return 0
	}
	return strings.Count(content, "\n") + 1
}

// ToPager pipes long output (activity feeds, velocity history) through a
// pager. Content that fits the terminal, or any output when paging is off,
// is written to w directly.
func ToPager(w io.Writer, content string, opts PagerOptions) error {
	if !shouldUsePager(opts) {
		_, err := fmt.Fprint(w, content)
		return err
	}

	if _, height, err := termSize(); err == nil && contentHeight(content) < height {
		_, err := fmt.Fprint(w, content)
		return err
	}

	parts := strings.Fields(pagerCommand())
	if len(parts) == 0 {
		_, err := fmt.Fprint(w, content)
		return err
	}

	cmd := exec.Command(parts[0], parts[1:]...) // #nosec G204 - pager command is user-configurable by design
	cmd.Stdin = strings.NewReader(content)
	cmd.Stdout = w
	cmd.Stderr = os.Stderr
	cmd.Env = os.Environ()
	// -R keeps ANSI colors, -F quits when the content fits, -X keeps the screen.
	if os.Getenv("LESS") == "" {
		cmd.Env = append(cmd.Env, "LESS=-RFX")
	}
	return cmd.Run()
}
