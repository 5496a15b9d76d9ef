package output

import (
	"fmt"
	"io"
	"path/filepath"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/lipgloss"
)

// Progress draws a single-line directory scan progress bar
type Progress struct {
	w   io.Writer
	bar progress.Model
	dim lipgloss.Style
}

// NewProgress creates a progress bar writing to w (normally stderr)
func NewProgress(w io.Writer) *Progress {
	bar := progress.New(
		progress.WithScaledGradient(string(ColorAccent), string(ColorSuccess)),
		progress.WithoutPercentage(),
	)
	bar.Width = 30
	return &Progress{
		w:   w,
		bar: bar,
		dim: lipgloss.NewRenderer(w).NewStyle().Foreground(ColorTextDim),
	}
}

// Update redraws the bar for file current of total
func (p *Progress) Update(current, total int, path string) {
	pct := 0.0
	if total > 0 {
		pct = float64(current) / float64(total)
	}
	fmt.Fprintf(p.w, "\r%s  %d/%d %s\x1b[K", p.bar.ViewAs(pct), current, total, p.dim.Render(filepath.Base(path)))
}

// Done draws the completed bar and ends the line
func (p *Progress) Done(total int) {
	fmt.Fprintf(p.w, "\r%s  %d/%d\x1b[K\n", p.bar.ViewAs(1), total, total)
}
