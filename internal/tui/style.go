package tui

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
)

var (
	appStyle    = lipgloss.NewStyle().Margin(0, trackMargin)
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#e0e0e0"))
	dimStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	trackStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	tickStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("243"))
	hoverStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#f5c542"))
	remoteBadge = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	cacheBadge  = lipgloss.NewStyle().Foreground(lipgloss.Color("3"))

	tooltipStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("245")).
			Padding(0, 1)
)

// markerStyle shades a marker by opacity on the 24-step grey ramp of the
// 256-colour palette.
func markerStyle(opacity float64) lipgloss.Style {
	step := int(opacity * 23)
	step = max(0, min(23, step))
	return lipgloss.NewStyle().Foreground(lipgloss.Color(fmt.Sprint(232 + step)))
}

// glyph picks a marker character by rendered size.
func glyph(size float64) string {
	switch {
	case size < 11:
		return "·"
	case size < 15:
		return "•"
	case size < 20:
		return "●"
	default:
		return "◉"
	}
}
