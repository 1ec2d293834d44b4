// Package display renders answers, probe catalogs and live progress for the
// terminal front ends.
package display

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/jjgarcianorway/anna-assistant-sub000/pkg/engine"
)

// Status glyphs convey meaning without relying on color alone.
const (
	GlyphOK      = "✓"
	GlyphFailed  = "✗"
	GlyphRefusal = "⊘"
	GlyphProblem = "!"
	GlyphProbe   = "›"
)

var (
	colorGreen  = lipgloss.Color("42")
	colorRed    = lipgloss.Color("196")
	colorYellow = lipgloss.Color("214")
	colorBlue   = lipgloss.Color("39")
	colorCyan   = lipgloss.Color("51")
	colorDim    = lipgloss.Color("240")
	colorWhite  = lipgloss.Color("255")
)

var badgeBase = lipgloss.NewStyle().
	Bold(true).
	Foreground(lipgloss.Color("0")).
	Padding(0, 1)

var (
	badgeGreen  = badgeBase.Background(colorGreen)
	badgeYellow = badgeBase.Background(colorYellow)
	badgeRed    = badgeBase.Background(colorRed)
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colorCyan)

	labelStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colorBlue)

	dimStyle = lipgloss.NewStyle().
			Foreground(colorDim)

	bodyStyle = lipgloss.NewStyle().
			Foreground(colorWhite)

	okStyle = lipgloss.NewStyle().
		Foreground(colorGreen)

	failStyle = lipgloss.NewStyle().
			Foreground(colorRed)

	problemStyle = lipgloss.NewStyle().
			Foreground(colorYellow)

	spinnerStyle = lipgloss.NewStyle().
			Foreground(colorYellow)

	refusalBox = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorRed).
			Padding(0, 1)
)

func badge(level engine.ConfidenceLevel) string {
	switch level {
	case engine.Green:
		return badgeGreen.Render("GREEN")
	case engine.Yellow:
		return badgeYellow.Render("YELLOW")
	default:
		return badgeRed.Render("RED")
	}
}
