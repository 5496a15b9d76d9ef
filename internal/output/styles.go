package output

import "github.com/charmbracelet/lipgloss"

// ── Color Palette ──

var (
	ColorTextDim = lipgloss.Color("#6b6b7b")
	ColorAccent  = lipgloss.Color("#5eead4")
	ColorWarn    = lipgloss.Color("#f59e0b")
	ColorError   = lipgloss.Color("#ef4444")
	ColorSuccess = lipgloss.Color("#22c55e")
)

// styles are bound to the renderer of one writer so that color is only
// emitted when that writer is a terminal.
type styles struct {
	label    lipgloss.Style
	headline lipgloss.Style
	clean    lipgloss.Style
	warn     lipgloss.Style
}

func newStyles(r *lipgloss.Renderer) styles {
	return styles{
		label:    r.NewStyle().Foreground(ColorTextDim),
		headline: r.NewStyle().Foreground(ColorError).Bold(true),
		clean:    r.NewStyle().Foreground(ColorSuccess),
		warn:     r.NewStyle().Foreground(ColorWarn).Bold(true),
	}
}
