package tui

import "github.com/charmbracelet/lipgloss"

var (
	// Colors
	primaryColor   = lipgloss.Color("#7C3AED") // purple
	secondaryColor = lipgloss.Color("#10B981") // green
	mutedColor     = lipgloss.Color("#6B7280") // gray
	dangerColor    = lipgloss.Color("#EF4444") // red
	warnColor      = lipgloss.Color("#F59E0B") // yellow

	appStyle = lipgloss.NewStyle().Padding(1, 2)

	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FFFFFF")).
			Background(primaryColor).
			Padding(0, 1)

	// Status panel
	panelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(primaryColor).
			Padding(0, 2)

	labelStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(primaryColor).
			Width(14)

	valueStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#E5E7EB"))

	editStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(warnColor)

	// Log viewport
	logStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(mutedColor).
			Padding(0, 1)

	// Result dialog
	dialogStyle = lipgloss.NewStyle().
			Border(lipgloss.DoubleBorder()).
			Padding(1, 3)

	statusOkStyle = lipgloss.NewStyle().
			Foreground(secondaryColor)

	statusWarnStyle = lipgloss.NewStyle().
			Foreground(warnColor)

	statusErrorStyle = lipgloss.NewStyle().
				Foreground(dangerColor)

	mutedStyle = lipgloss.NewStyle().
			Foreground(mutedColor)

	helpStyle = lipgloss.NewStyle().
			Foreground(mutedColor).
			Padding(1, 0, 0, 0)
)
