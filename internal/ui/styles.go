package ui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/mermaidchart/mmdsync/internal/config"
)

// StyleManager holds the browse view styles
type StyleManager struct {
	// List view styles
	Path     lipgloss.Style
	Keyword  lipgloss.Style
	Linked   lipgloss.Style
	Unlinked lipgloss.Style
	Selected lipgloss.Style
	Cursor   lipgloss.Style
	Dim      lipgloss.Style

	// Preview styles
	PreviewHeader lipgloss.Style
	PreviewBody   lipgloss.Style
	PreviewLink   lipgloss.Style

	Divider lipgloss.Style

	SelectedBg lipgloss.Color
}

// DefaultStyles returns the default color scheme
func DefaultStyles() *StyleManager {
	return &StyleManager{
		Path:          lipgloss.NewStyle().Foreground(lipgloss.Color("6")),
		Keyword:       lipgloss.NewStyle().Bold(true),
		Linked:        lipgloss.NewStyle().Foreground(lipgloss.Color("2")),
		Unlinked:      lipgloss.NewStyle().Foreground(lipgloss.Color("8")),
		Selected:      lipgloss.NewStyle().Background(lipgloss.Color("236")),
		Cursor:        lipgloss.NewStyle().Foreground(lipgloss.Color("212")),
		Dim:           lipgloss.NewStyle().Foreground(lipgloss.Color("241")),
		PreviewHeader: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("6")),
		PreviewBody:   lipgloss.NewStyle().Foreground(lipgloss.Color("2")),
		PreviewLink:   lipgloss.NewStyle().Foreground(lipgloss.Color("12")).Underline(true),
		Divider:       lipgloss.NewStyle().Foreground(lipgloss.Color("240")),
		SelectedBg:    lipgloss.Color("236"),
	}
}

// plainStyles renders everything without color
func plainStyles() *StyleManager {
	plain := lipgloss.NewStyle()
	return &StyleManager{
		Path:          plain,
		Keyword:       plain,
		Linked:        plain,
		Unlinked:      plain,
		Selected:      plain,
		Cursor:        plain,
		Dim:           plain,
		PreviewHeader: plain,
		PreviewBody:   plain,
		PreviewLink:   plain,
		Divider:       plain,
	}
}

// WithSelection returns a copy of the given style with the selected background applied
func (s *StyleManager) WithSelection(style lipgloss.Style) lipgloss.Style {
	if s.SelectedBg == "" {
		return style
	}
	return style.Background(s.SelectedBg)
}

var styles = DefaultStyles()

// RefreshStyles applies the configured color mode
func RefreshStyles() {
	if config.GetColor() == "never" {
		styles = plainStyles()
		return
	}
	styles = DefaultStyles()
}
