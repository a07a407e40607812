// Package tui renders the planning, refinement and execution flow as
// an interactive Bubble Tea app. It is a pure read-only consumer of
// engine snapshots: all state transitions happen inside the refinement
// and execution engines.
package tui

import "github.com/charmbracelet/lipgloss"

// Task status glyphs — convey meaning without relying on color alone.
const (
	GlyphPending   = "○"
	GlyphRunning   = "▸"
	GlyphSuccess   = "✓"
	GlyphFailed    = "✗"
	GlyphAborted   = "⊘"
	GlyphCancelled = "·"
)

// Palette adapts to terminal capabilities via lipgloss.
var (
	colorGreen  = lipgloss.Color("42")
	colorRed    = lipgloss.Color("196")
	colorYellow = lipgloss.Color("214")
	colorCyan   = lipgloss.Color("51")
	colorDim    = lipgloss.Color("240")
	colorWhite  = lipgloss.Color("255")
)

var headerStyle = lipgloss.NewStyle().
	Bold(true).
	Foreground(colorCyan).
	Padding(0, 1)

// --- Task list styles ---

var (
	taskNormal = lipgloss.NewStyle().
			Foreground(colorWhite)

	taskRunning = lipgloss.NewStyle().
			Bold(true).
			Foreground(colorYellow)

	taskSuccess = lipgloss.NewStyle().
			Foreground(colorGreen)

	taskFailed = lipgloss.NewStyle().
			Foreground(colorRed)

	taskDim = lipgloss.NewStyle().
		Foreground(colorDim)
)

// --- Panels and overlays ---

var panelBorder = lipgloss.NewStyle().
	Border(lipgloss.RoundedBorder()).
	BorderForeground(colorDim).
	Padding(0, 1)

var panelTitle = lipgloss.NewStyle().
	Bold(true).
	Foreground(colorCyan)

var overlayBorder = lipgloss.NewStyle().
	Border(lipgloss.DoubleBorder()).
	BorderForeground(colorCyan).
	Padding(1, 2)

var overlayTitle = lipgloss.NewStyle().
	Bold(true).
	Foreground(colorYellow)

// --- Footer ---

var (
	keyStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colorCyan)

	keyDescStyle = lipgloss.NewStyle().
			Foreground(colorDim)

	errorStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colorRed)

	completionStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colorGreen)
)
