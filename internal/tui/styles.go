package tui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/meekotharaccoon-cell/meeko-nerve-center-sub002/internal/models"
)

var (
	// Colors
	primaryColor = lipgloss.Color("#7C3AED")
	successColor = lipgloss.Color("#10B981")
	warningColor = lipgloss.Color("#F59E0B")
	errorColor   = lipgloss.Color("#EF4444")
	mutedColor   = lipgloss.Color("#6B7280")
	fgColor      = lipgloss.Color("#F9FAFB")
	cyanColor    = lipgloss.Color("#06B6D4")

	// Styles
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(primaryColor).
			Padding(0, 1)

	statusBarStyle = lipgloss.NewStyle().
			Background(lipgloss.Color("#374151")).
			Foreground(fgColor).
			Padding(0, 1)

	helpStyle = lipgloss.NewStyle().
			Foreground(mutedColor).
			Italic(true)

	panelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(mutedColor).
			Padding(0, 1)

	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("205")).
			BorderStyle(lipgloss.NormalBorder()).
			BorderBottom(true).
			BorderForeground(lipgloss.Color("240"))

	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241"))

	valueStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("255"))

	sectionStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("99")).
			MarginTop(1)
)

var statusStyles = map[models.IdeaStatus]lipgloss.Style{
	models.StatusGenerated: lipgloss.NewStyle().Foreground(mutedColor),
	models.StatusTested:    lipgloss.NewStyle().Foreground(cyanColor),
	models.StatusWorking:   lipgloss.NewStyle().Foreground(warningColor),
	models.StatusFailed:    lipgloss.NewStyle().Foreground(errorColor),
	models.StatusDeadEnd:   lipgloss.NewStyle().Foreground(lipgloss.Color("240")),
	models.StatusWiredIn:   lipgloss.NewStyle().Foreground(successColor).Bold(true),
}

// FormatStatus renders a status with its colour.
func FormatStatus(status models.IdeaStatus) string {
	style, ok := statusStyles[status]
	if !ok {
		return string(status)
	}
	return style.Render("● " + string(status))
}
