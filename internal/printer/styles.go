package printer

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/colonyops/backlog/internal/core/board"
)

var (
	colorPrimary = lipgloss.AdaptiveColor{Light: "#2E5C9A", Dark: "#7AA2F7"}
	colorMuted   = lipgloss.AdaptiveColor{Light: "#6B7280", Dark: "#565F89"}
	colorSuccess = lipgloss.AdaptiveColor{Light: "#2F7D32", Dark: "#9ECE6A"}
	colorWarning = lipgloss.AdaptiveColor{Light: "#B26A00", Dark: "#E0AF68"}
	colorError   = lipgloss.AdaptiveColor{Light: "#B3261E", Dark: "#F7768E"}
)

type styles struct {
	info        lipgloss.Style
	success     lipgloss.Style
	warn        lipgloss.Style
	err         lipgloss.Style
	muted       lipgloss.Style
	heading     lipgloss.Style
	border      lipgloss.Style
	tableHeader lipgloss.Style
	tableCell   lipgloss.Style
	barFull     lipgloss.Style
	barEmpty    lipgloss.Style
}

func newStyles() styles {
	return styles{
		info:        lipgloss.NewStyle().Foreground(colorPrimary),
		success:     lipgloss.NewStyle().Foreground(colorSuccess).Bold(true),
		warn:        lipgloss.NewStyle().Foreground(colorWarning).Bold(true),
		err:         lipgloss.NewStyle().Foreground(colorError).Bold(true),
		muted:       lipgloss.NewStyle().Foreground(colorMuted),
		heading:     lipgloss.NewStyle().Foreground(colorPrimary).Bold(true),
		border:      lipgloss.NewStyle().Foreground(colorMuted),
		tableHeader: lipgloss.NewStyle().Foreground(colorPrimary).Bold(true).Padding(0, 1),
		tableCell:   lipgloss.NewStyle().Padding(0, 1),
		barFull:     lipgloss.NewStyle().Foreground(colorSuccess),
		barEmpty:    lipgloss.NewStyle().Foreground(colorMuted),
	}
}

// ProgressBar renders percent (0-100) as a bar of the given width followed
// by the percentage.
func (p *Printer) ProgressBar(percent, width int) string {
	percent = max(0, min(percent, 100))
	if width < 1 {
		width = 20
	}
	filled := width * percent / 100

	full := strings.Repeat("█", filled)
	empty := strings.Repeat("░", width-filled)
	if !p.styled {
		full = strings.Repeat("#", filled)
		empty = strings.Repeat("-", width-filled)
	}

	return fmt.Sprintf("%s%s %3d%%", p.render(p.st.barFull, full), p.render(p.st.barEmpty, empty), percent)
}

// Status renders a task status with its color.
func (p *Printer) Status(s board.Status) string {
	switch s {
	case board.StatusDone:
		return p.render(p.st.success, string(s))
	case board.StatusInProgress:
		return p.render(p.st.warn, string(s))
	default:
		return p.render(p.st.muted, string(s))
	}
}

// Priority renders a task priority with its color.
func (p *Printer) Priority(pr board.Priority) string {
	switch pr {
	case board.PriorityHigh:
		return p.render(p.st.err, string(pr))
	case board.PriorityLow:
		return p.render(p.st.muted, string(pr))
	default:
		return p.render(p.st.info, string(pr))
	}
}

// FormTheme returns the huh theme used by interactive forms.
func FormTheme() *huh.Theme {
	t := huh.ThemeCharm()
	t.Focused.Title = t.Focused.Title.Foreground(colorPrimary)
	t.Focused.Description = t.Focused.Description.Foreground(colorMuted)
	t.Focused.ErrorMessage = t.Focused.ErrorMessage.Foreground(colorError)
	t.Blurred.Title = t.Blurred.Title.Foreground(colorMuted)
	return t
}
