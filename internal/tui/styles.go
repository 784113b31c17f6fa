// Package tui implements the interactive sprint board.
package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/colonyops/backlog/internal/core/board"
)

const (
	iconInfo    = "✔"
	iconWarning = "!"
	iconError   = "✘"
	iconCursor  = "▸"
)

var (
	colorPrimary = lipgloss.AdaptiveColor{Light: "#2E5C9A", Dark: "#7AA2F7"}
	colorMuted   = lipgloss.AdaptiveColor{Light: "#6B7280", Dark: "#565F89"}
	colorSuccess = lipgloss.AdaptiveColor{Light: "#2F7D32", Dark: "#9ECE6A"}
	colorWarning = lipgloss.AdaptiveColor{Light: "#B26A00", Dark: "#E0AF68"}
	colorError   = lipgloss.AdaptiveColor{Light: "#B3261E", Dark: "#F7768E"}
)

var (
	titleStyle    = lipgloss.NewStyle().Foreground(colorPrimary).Bold(true)
	mutedStyle    = lipgloss.NewStyle().Foreground(colorMuted)
	selectedStyle = lipgloss.NewStyle().Foreground(colorPrimary).Bold(true)

	columnStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorMuted).
			Padding(0, 1)
	focusedColumnStyle = columnStyle.BorderForeground(colorPrimary)

	toastBaseStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			Padding(0, 1)
	toastInfoStyle    = toastBaseStyle.BorderForeground(colorSuccess)
	toastWarningStyle = toastBaseStyle.BorderForeground(colorWarning)
	toastErrorStyle   = toastBaseStyle.BorderForeground(colorError)

	barFullStyle  = lipgloss.NewStyle().Foreground(colorSuccess)
	barEmptyStyle = lipgloss.NewStyle().Foreground(colorMuted)
)

func statusStyle(s board.Status) lipgloss.Style {
	switch s {
	case board.StatusDone:
		return lipgloss.NewStyle().Foreground(colorSuccess)
	case board.StatusInProgress:
		return lipgloss.NewStyle().Foreground(colorWarning)
	default:
		return lipgloss.NewStyle()
	}
}

func progressBar(percent, width int) string {
	percent = max(0, min(percent, 100))
	filled := width * percent / 100
	return fmt.Sprintf("%s%s %3d%%",
		barFullStyle.Render(strings.Repeat("█", filled)),
		barEmptyStyle.Render(strings.Repeat("░", width-filled)),
		percent,
	)
}
