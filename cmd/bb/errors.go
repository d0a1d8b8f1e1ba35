package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/steveyegge/boards/internal/types"
	"github.com/steveyegge/boards/internal/ui"
)

// FatalError writes an error message to stderr and exits with code 1.
func FatalError(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "%s %s\n", ui.RenderFail("Error:"), fmt.Sprintf(format, args...))
	os.Exit(1)
}

// FatalErrorWithHint writes an error message with a hint to stderr and exits.
func FatalErrorWithHint(message, hint string) {
	fmt.Fprintf(os.Stderr, "%s %s\n", ui.RenderFail("Error:"), message)
	fmt.Fprintf(os.Stderr, "Hint: %s\n", hint)
	os.Exit(1)
}

// FatalErrorRespectJSON reports err as JSON on stderr in --json mode and as
// text otherwise, then exits with code 1.
func FatalErrorRespectJSON(err error) {
	if jsonOutput {
		outputJSONError(err, errorCode(err))
		return
	}
	if hint := errorHint(err); hint != "" {
		FatalErrorWithHint(err.Error(), hint)
	}
	FatalError("%v", err)
}

// WarnError writes a warning message to stderr and returns.
func WarnError(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "Warning: "+format+"\n", args...)
}

// errorCode classifies err for --json consumers.
func errorCode(err error) string {
	switch {
	case errors.Is(err, types.ErrInvalidTransition):
		return "invalid_transition"
	case errors.Is(err, types.ErrNotFound):
		return "not_found"
	case errors.Is(err, types.ErrValidation):
		return "validation"
	case errors.Is(err, types.ErrImportFormat):
		return "import_format"
	}
	return ""
}

func errorHint(err error) string {
	switch {
	case errors.Is(err, types.ErrProjectNotFound):
		return "Run 'bb project list' to see project keys"
	case errors.Is(err, types.ErrSprintNotFound):
		return "Run 'bb sprint list -p KEY' to see sprint ids"
	case errors.Is(err, types.ErrInvalidTransition):
		return "Sprints move future -> active -> completed"
	case errors.Is(err, types.ErrImportFormat):
		return "The file must be a bb export (version 1)"
	}
	return ""
}
