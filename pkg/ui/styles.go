package ui

import (
	"github.com/charmbracelet/lipgloss"
)

var (
	// Color scheme
	PrimaryColor = lipgloss.Color("39")  // Blue
	SuccessColor = lipgloss.Color("42")  // Green
	ErrorColor   = lipgloss.Color("196") // Red
	WarningColor = lipgloss.Color("214") // Orange
	MutedColor   = lipgloss.Color("243") // Gray
	BorderColor  = lipgloss.Color("238") // Dark gray

	BaseStyle = lipgloss.NewStyle()

	TitleStyle = BaseStyle.
			Bold(true).
			Foreground(PrimaryColor).
			Padding(0, 1)

	PaneStyle = BaseStyle.
			Border(lipgloss.RoundedBorder()).
			BorderForeground(BorderColor).
			Padding(0, 1)

	StatePlayingStyle = BaseStyle.
				Bold(true).
				Foreground(SuccessColor)

	StatePausedStyle = BaseStyle.
				Bold(true).
				Foreground(WarningColor)

	StateOfflineStyle = BaseStyle.
				Bold(true).
				Foreground(ErrorColor)

	TimeStyle = BaseStyle.
			Foreground(MutedColor)

	ShortcutKeyStyle = BaseStyle.
				Foreground(PrimaryColor).
				Bold(true)

	ShortcutDescStyle = BaseStyle.
				Foreground(lipgloss.Color("252"))

	ErrorStyle = BaseStyle.
			Foreground(ErrorColor)

	FooterStyle = BaseStyle.
			Foreground(MutedColor).
			Padding(0, 1)
)
