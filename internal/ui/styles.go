// Package ui provides terminal styling for bb CLI output.
// Uses the Ayu color theme with adaptive light/dark mode support.
package ui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/steveyegge/boards/internal/types"
)

// Ayu theme color palette
var (
	ColorPass     = lipgloss.AdaptiveColor{Light: "#86b300", Dark: "#c2d94c"}
	ColorWarn     = lipgloss.AdaptiveColor{Light: "#f2ae49", Dark: "#ffb454"}
	ColorFail     = lipgloss.AdaptiveColor{Light: "#f07171", Dark: "#f07178"}
	ColorMuted    = lipgloss.AdaptiveColor{Light: "#828c99", Dark: "#6c7680"}
	ColorAccent   = lipgloss.AdaptiveColor{Light: "#399ee6", Dark: "#59c2ff"}
	ColorProgress = lipgloss.AdaptiveColor{Light: "#a37acc", Dark: "#d2a6ff"}
)

var (
	PassStyle     = lipgloss.NewStyle().Foreground(ColorPass)
	WarnStyle     = lipgloss.NewStyle().Foreground(ColorWarn)
	FailStyle     = lipgloss.NewStyle().Foreground(ColorFail)
	MutedStyle    = lipgloss.NewStyle().Foreground(ColorMuted)
	AccentStyle   = lipgloss.NewStyle().Foreground(ColorAccent)
	ProgressStyle = lipgloss.NewStyle().Foreground(ColorProgress)
	KeyStyle      = lipgloss.NewStyle().Bold(true).Foreground(ColorAccent)
)

// CategoryStyle for section headers - bold with accent color
var CategoryStyle = lipgloss.NewStyle().Bold(true).Foreground(ColorAccent)

const (
	IconPass = "✓"
	IconWarn = "⚠"
	IconFail = "✗"
	IconInfo = "ℹ"
)

// SeparatorLight is the rule printed between sections.
const SeparatorLight = "──────────────────────────────────────────"

func RenderPass(s string) string   { return PassStyle.Render(s) }
func RenderWarn(s string) string   { return WarnStyle.Render(s) }
func RenderFail(s string) string   { return FailStyle.Render(s) }
func RenderMuted(s string) string  { return MutedStyle.Render(s) }
func RenderAccent(s string) string { return AccentStyle.Render(s) }

// RenderKey renders an issue key such as TP-12.
func RenderKey(s string) string { return KeyStyle.Render(s) }

// RenderCategory renders a category header in uppercase with accent color
func RenderCategory(s string) string {
	return CategoryStyle.Render(strings.ToUpper(s))
}

// RenderSeparator renders the light separator line in muted color
func RenderSeparator() string {
	return MutedStyle.Render(SeparatorLight)
}

// RenderStatus colors a status name by the category of its column.
func RenderStatus(name string, category types.StatusCategory) string {
	switch category {
	case types.CategoryDone:
		return PassStyle.Render(name)
	case types.CategoryInProgress:
		return ProgressStyle.Render(name)
	default:
		return MutedStyle.Render(name)
	}
}

// RenderPriority colors a priority from red (highest) to muted (lowest).
func RenderPriority(p types.Priority) string {
	switch p {
	case types.PriorityHighest:
		return FailStyle.Bold(true).Render(string(p))
	case types.PriorityHigh:
		return FailStyle.Render(string(p))
	case types.PriorityMedium:
		return WarnStyle.Render(string(p))
	default:
		return MutedStyle.Render(string(p))
	}
}

// RenderSprintStatus colors a sprint lifecycle state.
func RenderSprintStatus(s types.SprintStatus) string {
	switch s {
	case types.SprintActive:
		return ProgressStyle.Render(string(s))
	case types.SprintCompleted:
		return PassStyle.Render(string(s))
	default:
		return MutedStyle.Render(string(s))
	}
}
