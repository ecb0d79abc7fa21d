package ui

import "github.com/charmbracelet/lipgloss"

// Theme holds the lipgloss styles of the terminal chrome. The graph itself
// takes its colours from the render palette.
type Theme struct {
	Renderer *lipgloss.Renderer

	Primary   lipgloss.AdaptiveColor
	Secondary lipgloss.AdaptiveColor
	Subtext   lipgloss.AdaptiveColor
	Muted     lipgloss.AdaptiveColor
	Border    lipgloss.AdaptiveColor
	Error     lipgloss.AdaptiveColor
	Warning   lipgloss.AdaptiveColor
	Success   lipgloss.AdaptiveColor
	BarBg     lipgloss.AdaptiveColor

	Base lipgloss.Style
}

// DefaultTheme returns the dark chrome theme.
func DefaultTheme(r *lipgloss.Renderer) Theme {
	t := Theme{
		Renderer:  r,
		Primary:   lipgloss.AdaptiveColor{Light: "#7D56F4", Dark: "#BD93F9"},
		Secondary: lipgloss.AdaptiveColor{Light: "#0969DA", Dark: "#8BE9FD"},
		Subtext:   lipgloss.AdaptiveColor{Light: "#555555", Dark: "#BFBFBF"},
		Muted:     lipgloss.AdaptiveColor{Light: "#888888", Dark: "#6272A4"},
		Border:    lipgloss.AdaptiveColor{Light: "#D0D7DE", Dark: "#44475A"},
		Error:     lipgloss.AdaptiveColor{Light: "#CF222E", Dark: "#FF5555"},
		Warning:   lipgloss.AdaptiveColor{Light: "#9A6700", Dark: "#FFB86C"},
		Success:   lipgloss.AdaptiveColor{Light: "#1A7F37", Dark: "#50FA7B"},
		BarBg:     lipgloss.AdaptiveColor{Light: "#EAEEF2", Dark: "#282A36"},
	}
	t.Base = r.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#1F2328", Dark: "#F8F8F2"})
	return t
}

// chip renders a short status label on a coloured background.
func (t Theme) chip(text string, bg lipgloss.AdaptiveColor) string {
	return t.Renderer.NewStyle().
		Background(bg).
		Foreground(lipgloss.AdaptiveColor{Light: "#FFFFFF", Dark: "#282A36"}).
		Bold(true).
		Padding(0, 1).
		Render(text)
}
