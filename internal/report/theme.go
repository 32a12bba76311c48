package report

import (
	"image/color"
	"strings"

	"charm.land/lipgloss/v2"
)

// Colors
var (
	Primary = lipgloss.Color("#33A8FF")
	Muted   = lipgloss.Color("#6B7280")
	Success = lipgloss.Color("#10B981")
	Warning = lipgloss.Color("#F59E0B")
	Error   = lipgloss.Color("#EF4444")
)

var (
	TitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(Primary)

	HeaderStyle = lipgloss.NewStyle().
			Bold(true).
			Padding(0, 1)

	CellStyle = lipgloss.NewStyle().
			Padding(0, 1)

	MutedStyle = lipgloss.NewStyle().
			Foreground(Muted)

	ErrorStyle = lipgloss.NewStyle().
			Foreground(Error).
			Bold(true)

	SummaryStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(Primary).
			Padding(0, 1)
)

// StatusColor maps delete outcomes and fetch kinds to theme colors.
func StatusColor(status string) color.Color {
	switch strings.ToLower(status) {
	case "deleted", "success", "available":
		return Success
	case "failed", "http_error", "transport_error":
		return Error
	case "already_gone", "skipped", "deleting", "pending":
		return Warning
	default:
		return Muted
	}
}

// RenderStatus renders a status string with a colored bullet.
func RenderStatus(status string) string {
	bullet := lipgloss.NewStyle().Foreground(StatusColor(status)).Render("●")
	return bullet + " " + status
}
