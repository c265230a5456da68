package dashboard

import "github.com/charmbracelet/lipgloss"

var (
	cyan    = lipgloss.Color("#22d3ee")
	gray    = lipgloss.Color("#9ca3af")
	dimGray = lipgloss.Color("#6b7280")
	yellow  = lipgloss.Color("#facc15")
	green   = lipgloss.Color("#4ade80")
	red     = lipgloss.Color("#f87171")
	blue    = lipgloss.Color("#60a5fa")
	magenta = lipgloss.Color("#e879f9")

	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(cyan).
			Border(lipgloss.RoundedBorder()).
			BorderForeground(cyan).
			Padding(0, 1)

	panelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(dimGray).
			Padding(0, 1)

	labelStyle = lipgloss.NewStyle().Foreground(gray)

	idleStyle     = lipgloss.NewStyle().Foreground(gray).Bold(true)
	buildingStyle = lipgloss.NewStyle().Foreground(yellow).Bold(true)
	successStyle  = lipgloss.NewStyle().Foreground(green).Bold(true)
	failedStyle   = lipgloss.NewStyle().Foreground(red).Bold(true)

	urlStyle     = lipgloss.NewStyle().Foreground(blue).Underline(true)
	changedStyle = lipgloss.NewStyle().Foreground(magenta)
	timeStyle    = lipgloss.NewStyle().Foreground(green)

	controlsStyle = lipgloss.NewStyle().Foreground(dimGray)
	noticeStyle   = lipgloss.NewStyle().Foreground(yellow)
)
