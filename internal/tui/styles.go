package tui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/jsimonrichard/bible-reading-progress/internal/report"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FFFFFF")).
			Padding(0, 1)

	statusStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#888888")).
			Padding(0, 1)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF5555")).
			Bold(true)

	plainStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFFFFF"))

	aheadStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#00FF00"))

	partialStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFAA00"))

	mutedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666"))

	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#888888")).
			Width(34)

	selectedBookStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#00FF00")).
				Bold(true)

	confirmStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#FFAA00")).
			Padding(1, 2)
)

func shadeStyle(s report.Shade) lipgloss.Style {
	switch s {
	case report.Ahead:
		return aheadStyle
	case report.Partial:
		return partialStyle
	default:
		return plainStyle
	}
}
