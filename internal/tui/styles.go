// Package tui renders restaurant collections in the terminal: the theme and
// styles, a pure projection of collection state into a list view, and the
// interactive browse program.
package tui

import (
	"github.com/charmbracelet/lipgloss"
)

// Theme defines the color palette for the TUI.
type Theme struct {
	Primary    lipgloss.AdaptiveColor
	Secondary  lipgloss.AdaptiveColor
	Success    lipgloss.AdaptiveColor
	Warning    lipgloss.AdaptiveColor
	Error      lipgloss.AdaptiveColor
	Muted      lipgloss.AdaptiveColor
	Background lipgloss.AdaptiveColor
	Foreground lipgloss.AdaptiveColor
	Border     lipgloss.AdaptiveColor
}

// DefaultTheme returns the default lunchbox theme.
func DefaultTheme() Theme {
	return Theme{
		Primary:    lipgloss.AdaptiveColor{Light: "#c2410c", Dark: "#fb923c"},
		Secondary:  lipgloss.AdaptiveColor{Light: "#5f6368", Dark: "#9aa0a6"},
		Success:    lipgloss.AdaptiveColor{Light: "#1e8e3e", Dark: "#81c995"},
		Warning:    lipgloss.AdaptiveColor{Light: "#f9ab00", Dark: "#fdd663"},
		Error:      lipgloss.AdaptiveColor{Light: "#d93025", Dark: "#f28b82"},
		Muted:      lipgloss.AdaptiveColor{Light: "#80868b", Dark: "#6e7681"},
		Background: lipgloss.AdaptiveColor{Light: "#ffffff", Dark: "#1f1f1f"},
		Foreground: lipgloss.AdaptiveColor{Light: "#202124", Dark: "#e8eaed"},
		Border:     lipgloss.AdaptiveColor{Light: "#dadce0", Dark: "#3c4043"},
	}
}

// Styles are the lipgloss styles the list and browse views draw with.
type Styles struct {
	Title    lipgloss.Style
	Subtitle lipgloss.Style
	Body     lipgloss.Style
	Muted    lipgloss.Style
	Warning  lipgloss.Style
	Error    lipgloss.Style
	Help     lipgloss.Style

	// Rows
	Cursor    lipgloss.Style
	Selected  lipgloss.Style
	Favourite lipgloss.Style
	Closed    lipgloss.Style
	Pending   lipgloss.Style
}

// NewStyles builds styles from the resolved theme.
func NewStyles() *Styles {
	return NewStylesWithTheme(ResolveTheme())
}

// NewStylesWithTheme builds styles from theme.
func NewStylesWithTheme(theme Theme) *Styles {
	fg := func(c lipgloss.AdaptiveColor) lipgloss.Style {
		return lipgloss.NewStyle().Foreground(c)
	}
	return &Styles{
		Title:    fg(theme.Primary).Bold(true),
		Subtitle: fg(theme.Secondary),
		Body:     fg(theme.Foreground),
		Muted:    fg(theme.Muted),
		Warning:  fg(theme.Warning),
		Error:    fg(theme.Error).Bold(true),
		Help:     fg(theme.Muted).PaddingTop(1),

		Cursor:    fg(theme.Primary).Bold(true),
		Selected:  fg(theme.Primary).Bold(true).Underline(true),
		Favourite: fg(theme.Warning),
		Closed:    fg(theme.Muted).Strikethrough(true),
		Pending:   fg(theme.Muted).Italic(true),
	}
}

// RenderTitle renders a title with the query description under it.
func (s *Styles) RenderTitle(title, subtitle string) string {
	if subtitle == "" {
		return s.Title.Render(title)
	}
	return s.Title.Render(title) + "\n" + s.Subtitle.Render(subtitle)
}
