package tui

import "github.com/charmbracelet/lipgloss"

type styles struct {
	Title       lipgloss.Style
	Input       lipgloss.Style
	Date        lipgloss.Style
	Line        lipgloss.Style
	Item        lipgloss.Style
	Dim         lipgloss.Style
	StatusReady lipgloss.Style
	StatusBusy  lipgloss.Style
	StatusError lipgloss.Style
	Help        lipgloss.Style
}

func newStyles() styles {
	return styles{
		Title: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("99")).
			MarginBottom(1),
		Input: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("241")).
			Padding(0, 1),
		Date: lipgloss.NewStyle().Foreground(lipgloss.Color("244")),
		Line: lipgloss.NewStyle().PaddingLeft(2),
		Item: lipgloss.NewStyle().
			MarginBottom(1),
		Dim:         lipgloss.NewStyle().Faint(true),
		StatusReady: lipgloss.NewStyle().Foreground(lipgloss.Color("42")),
		StatusBusy:  lipgloss.NewStyle().Foreground(lipgloss.Color("214")),
		StatusError: lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true),
		Help:        lipgloss.NewStyle().Faint(true).MarginTop(1),
	}
}
