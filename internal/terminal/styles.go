package terminal

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Vercel-inspired color palette
var (
	// Base colors
	colorFg        = lipgloss.Color("#EDEDED")
	colorMuted     = lipgloss.Color("#666666")
	colorBorder    = lipgloss.Color("#333333")
	colorHighlight = lipgloss.Color("#0070F3") // Vercel blue

	// Status colors
	colorSuccess = lipgloss.Color("#50E3C2")
	colorError   = lipgloss.Color("#E00")
	colorWarning = lipgloss.Color("#F5A623")
)

// Layout styles
var (
	containerStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(colorBorder).
			Padding(0, 1)

	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colorFg).
			Padding(0, 1)

	mutedStyle = lipgloss.NewStyle().
			Foreground(colorMuted)

	hintStyle = lipgloss.NewStyle().
			Foreground(colorMuted).
			Italic(true)
)

// List styles
var (
	selectedItemStyle = lipgloss.NewStyle().
				Foreground(colorHighlight).
				Bold(true)

	normalItemStyle = lipgloss.NewStyle().
			Foreground(colorFg)

	cursorStyle = lipgloss.NewStyle().
			Foreground(colorHighlight).
			Bold(true)
)

// Reading styles
var (
	successStyle = lipgloss.NewStyle().
			Foreground(colorSuccess).
			Bold(true)

	errorStyle = lipgloss.NewStyle().
			Foreground(colorError).
			Bold(true)

	warningStyle = lipgloss.NewStyle().
			Foreground(colorWarning)
)

// volts bar width at full scale
const barWidth = 20

func renderCursor(active bool) string {
	if active {
		return cursorStyle.Render("▸")
	}
	return " "
}

func renderItem(text string, active bool) string {
	if active {
		return selectedItemStyle.Render(text)
	}
	return normalItemStyle.Render(text)
}

func renderVolts(r channelReading) string {
	if r.err != nil {
		return errorStyle.Render("  error")
	}
	if !r.valid {
		return mutedStyle.Render("    ---")
	}
	return successStyle.Render(fmt.Sprintf("%6.3fV", r.volts))
}

func renderBar(r channelReading, fullScale float64) string {
	if !r.valid || r.err != nil || fullScale <= 0 {
		return mutedStyle.Render(strings.Repeat("·", barWidth))
	}
	filled := int(r.volts / fullScale * barWidth)
	if filled < 0 {
		filled = 0
	}
	if filled > barWidth {
		filled = barWidth
	}
	return selectedItemStyle.Render(strings.Repeat("█", filled)) + mutedStyle.Render(strings.Repeat("·", barWidth-filled))
}

func renderHint(text string) string {
	return hintStyle.Render(text)
}
