package ui

import (
	"charm.land/glamour/v2"
	"github.com/charmbracelet/lipgloss"
)

// maxReadableWidth caps wrapping for issue descriptions and comments.
const maxReadableWidth = 100

// RenderMarkdown renders issue descriptions and comment bodies with glamour.
// It returns the input unchanged in agent mode, without color, or when
// rendering fails.
func RenderMarkdown(markdown string) string {
	if IsAgentMode() || !ShouldUseColor() {
		return markdown
	}

	wrapWidth := TerminalWidth(80)
	if wrapWidth > maxReadableWidth {
		wrapWidth = maxReadableWidth
	}

	style := "light"
	if lipgloss.HasDarkBackground() {
		style = "dark"
	}
	renderer, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle(style),
		glamour.WithWordWrap(wrapWidth),
	)
	if err != nil {
		return markdown
	}

	rendered, err := renderer.Render(markdown)
	if err != nil {
		return markdown
	}
	return rendered
}
