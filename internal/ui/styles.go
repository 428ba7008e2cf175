package ui

import (
	"github.com/charmbracelet/lipgloss"
)

// Styles contains all the style definitions for the UI
type Styles struct {
	Title       lipgloss.Style
	Prompt      lipgloss.Style
	GroupHeader lipgloss.Style
	Dim         lipgloss.Style
	Status      lipgloss.Style
	StatusError lipgloss.Style
	Searching   lipgloss.Style
	Highlight   lipgloss.Style
	SelectedBg  lipgloss.Style
	Function    lipgloss.Style
	LineNumber  lipgloss.Style
	PreviewBox  lipgloss.Style
	PreviewHit  lipgloss.Style
	Help        lipgloss.Style
}

// NewStyles creates a new Styles instance with default values
func NewStyles() *Styles {
	return &Styles{
		Title: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("99")),
		Prompt:      lipgloss.NewStyle().Foreground(lipgloss.Color("39")).Bold(true),
		GroupHeader: lipgloss.NewStyle().Foreground(lipgloss.Color("33")).Bold(true),
		Dim:         lipgloss.NewStyle().Faint(true),
		Status:      lipgloss.NewStyle().Foreground(lipgloss.Color("241")),
		StatusError: lipgloss.NewStyle().Foreground(lipgloss.Color("203")), // red
		Searching:   lipgloss.NewStyle().Foreground(lipgloss.Color("214")), // yellow
		Highlight:   lipgloss.NewStyle().Foreground(lipgloss.Color("226")).Bold(true),
		SelectedBg:  lipgloss.NewStyle().Background(lipgloss.Color("238")),
		Function:    lipgloss.NewStyle().Foreground(lipgloss.Color("78")), // green
		LineNumber:  lipgloss.NewStyle().Foreground(lipgloss.Color("241")),
		PreviewBox: lipgloss.NewStyle().
			Border(lipgloss.NormalBorder()).
			Padding(0, 1).
			BorderForeground(lipgloss.Color("241")),
		PreviewHit: lipgloss.NewStyle().Background(lipgloss.Color("236")).Bold(true),
		Help:       lipgloss.NewStyle().Faint(true),
	}
}
