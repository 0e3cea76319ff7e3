package tui

import "github.com/charmbracelet/lipgloss"

var (
	colorAccent = lipgloss.Color("#10b981")
	colorMuted  = lipgloss.Color("#9ca3af")
	colorDanger = lipgloss.Color("#ef4444")

	titleStyle    = lipgloss.NewStyle().Foreground(colorMuted)
	totalStyle    = lipgloss.NewStyle().Bold(true).Foreground(colorAccent)
	dayStyle      = lipgloss.NewStyle().Foreground(colorMuted).MarginTop(1)
	selectedStyle = lipgloss.NewStyle().Bold(true).Reverse(true)
	pendingStyle  = lipgloss.NewStyle().Foreground(colorDanger).Strikethrough(true)
	amountStyle   = lipgloss.NewStyle().Bold(true)
	toastStyle    = lipgloss.NewStyle().Padding(0, 1).Background(lipgloss.Color("#374151"))
	warnStyle     = lipgloss.NewStyle().Foreground(colorDanger)
	helpStyle     = lipgloss.NewStyle().Foreground(colorMuted).MarginTop(1)
	promptStyle   = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(colorAccent).Padding(0, 1)
)
