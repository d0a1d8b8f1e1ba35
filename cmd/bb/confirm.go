package main

import (
	"errors"
	"fmt"

	"github.com/charmbracelet/huh"

	"github.com/steveyegge/boards/internal/ui"
)

// confirmDestructive asks before a delete or import. --force skips the
// prompt; without a terminal the command refuses instead of guessing.
func confirmDestructive(title, description string, force bool) error {
	if force {
		return nil
	}
	if !ui.IsTerminal() || jsonOutput {
		return fmt.Errorf("%s: pass --force to confirm in non-interactive mode", title)
	}

	var ok bool
	err := huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title(title).
				Description(description).
				Affirmative("Yes").
				Negative("Cancel").
				Value(&ok),
		),
	).WithTheme(huh.ThemeDracula()).Run()
	if errors.Is(err, huh.ErrUserAborted) || (err == nil && !ok) {
		return errCancelled
	}
	return err
}

var errCancelled = errors.New("cancelled")
