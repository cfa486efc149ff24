package ui

import (
	"io"

	"github.com/charmbracelet/lipgloss"
)

// Adaptive colors for light and dark terminals.
var (
	ColorText    = lipgloss.AdaptiveColor{Light: "#1A1A1A", Dark: "#F8F8F2"}
	ColorMuted   = lipgloss.AdaptiveColor{Light: "#666666", Dark: "#6272A4"}
	ColorPrimary = lipgloss.AdaptiveColor{Light: "#6B47D9", Dark: "#BD93F9"}
	ColorInfo    = lipgloss.AdaptiveColor{Light: "#006080", Dark: "#8BE9FD"}
	ColorMatch   = lipgloss.AdaptiveColor{Light: "#7A5600", Dark: "#F1FA8C"}
	ColorMatchBg = lipgloss.AdaptiveColor{Light: "#FFF3CD", Dark: "#3D3D1A"}
	ColorClosed  = lipgloss.AdaptiveColor{Light: "#555555", Dark: "#6272A4"}
	ColorWarning = lipgloss.AdaptiveColor{Light: "#B06800", Dark: "#FFB86C"}
)

// Theme holds the styles of one output stream. Styles come from a renderer
// bound to the writer, so piping to a file drops the escape codes.
type Theme struct {
	Renderer *lipgloss.Renderer

	Branch    lipgloss.Style
	Indicator lipgloss.Style
	ID        lipgloss.Style
	Title     lipgloss.Style
	Dimmed    lipgloss.Style
	Closed    lipgloss.Style
	Match     lipgloss.Style
	Dates     lipgloss.Style
	Header    lipgloss.Style
	Warning   lipgloss.Style
}

// NewTheme returns the default theme for w.
func NewTheme(w io.Writer) Theme {
	r := lipgloss.NewRenderer(w)
	return Theme{
		Renderer:  r,
		Branch:    r.NewStyle().Foreground(ColorMuted),
		Indicator: r.NewStyle().Foreground(ColorPrimary),
		ID:        r.NewStyle().Foreground(ColorInfo),
		Title:     r.NewStyle().Foreground(ColorText),
		Dimmed:    r.NewStyle().Foreground(ColorMuted).Faint(true),
		Closed:    r.NewStyle().Foreground(ColorClosed).Strikethrough(true),
		Match:     r.NewStyle().Foreground(ColorMatch).Background(ColorMatchBg).Bold(true),
		Dates:     r.NewStyle().Foreground(ColorMuted),
		Header:    r.NewStyle().Foreground(ColorPrimary).Bold(true),
		Warning:   r.NewStyle().Foreground(ColorWarning),
	}
}
