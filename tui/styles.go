package tui

import (
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/lipgloss"
)

const (
	cyan     = lipgloss.Color("#79c3ee")
	black    = lipgloss.Color("#101419")
	green    = lipgloss.Color("#78dba9")
	hotPink  = lipgloss.Color("#FF06B7")
	darkGray = lipgloss.Color("#767676")
	red      = lipgloss.Color("#e05f65")
)

var (
	inputStyle = lipgloss.NewStyle().Foreground(cyan)
	titleStyle = lipgloss.NewStyle().Foreground(hotPink).Bold(true)
	labelStyle = lipgloss.NewStyle().Foreground(darkGray)

	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.DoubleBorder()).
			BorderForeground(hotPink).
			Padding(1, 2).
			Align(lipgloss.Left).
			Width(100)

	detailStyle = lipgloss.NewStyle().
			Border(lipgloss.NormalBorder(), true, false, false, false).
			BorderForeground(darkGray).
			MarginTop(1)

	buttonStyle        = lipgloss.NewStyle().Bold(true).Foreground(green)
	buttonFocusedStyle = lipgloss.NewStyle().Background(green).Foreground(black).Bold(true)
	errorStyle         = lipgloss.NewStyle().Foreground(red).Bold(true)
	okStyle            = lipgloss.NewStyle().Foreground(green)
	helpStyle          = lipgloss.NewStyle().Foreground(darkGray)
)

func tableStyles() table.Styles {
	s := table.DefaultStyles()
	s.Header = s.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(darkGray).
		BorderBottom(true).
		Bold(true)
	s.Selected = s.Selected.
		Foreground(black).
		Background(cyan).
		Bold(false)
	return s
}
