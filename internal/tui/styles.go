package tui

import (
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/lipgloss"
)

type styles struct {
	base      lipgloss.Style
	header    lipgloss.Style
	title     lipgloss.Style
	subtitle  lipgloss.Style
	status    lipgloss.Style
	muted     lipgloss.Style
	accent    lipgloss.Style
	safe      lipgloss.Style
	danger    lipgloss.Style
	warning   lipgloss.Style
	confirm   lipgloss.Style
	chip      lipgloss.Style
	button    lipgloss.Style
	disabled  lipgloss.Style
	notice    lipgloss.Style
	container lipgloss.Style
}

var ui = styles{
	base: lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("238")),
	container: lipgloss.NewStyle().Padding(0, 1),
	header:    lipgloss.NewStyle().Padding(0, 1),
	title:     lipgloss.NewStyle().Foreground(lipgloss.Color("86")).Bold(true),
	subtitle:  lipgloss.NewStyle().Foreground(lipgloss.Color("245")),
	status:    lipgloss.NewStyle().Foreground(lipgloss.Color("252")),
	muted:     lipgloss.NewStyle().Foreground(lipgloss.Color("242")),
	accent:    lipgloss.NewStyle().Foreground(lipgloss.Color("86")).Bold(true),
	safe:      lipgloss.NewStyle().Foreground(lipgloss.Color("42")),
	danger:    lipgloss.NewStyle().Foreground(lipgloss.Color("203")).Bold(true),
	warning:   lipgloss.NewStyle().Foreground(lipgloss.Color("214")).Bold(true),
	confirm:   lipgloss.NewStyle().Foreground(lipgloss.Color("231")).Background(lipgloss.Color("203")).Bold(true).Padding(0, 1),
	chip:      lipgloss.NewStyle().Foreground(lipgloss.Color("231")).Background(lipgloss.Color("62")).Padding(0, 1),
	button:    lipgloss.NewStyle().Foreground(lipgloss.Color("231")).Background(lipgloss.Color("160")).Padding(0, 1),
	disabled:  lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Background(lipgloss.Color("238")).Padding(0, 1),
	notice: lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("86")).
		Padding(1, 2),
}

func tableStyles() table.Styles {
	s := table.DefaultStyles()
	s.Header = s.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(lipgloss.Color("238")).
		BorderBottom(true).
		Bold(true)
	s.Selected = s.Selected.
		Foreground(lipgloss.Color("229")).
		Background(lipgloss.Color("57")).
		Bold(true)
	return s
}
