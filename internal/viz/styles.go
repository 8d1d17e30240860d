package viz

import (
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/san-kum/dogleg/internal/solver"
)

func header() lipgloss.Style {
	return lipgloss.NewStyle().
		Bold(true).
		Foreground(CurrentTheme.Primary).
		BorderStyle(lipgloss.NormalBorder()).
		BorderBottom(true).
		BorderForeground(CurrentTheme.Muted)
}

func label() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(CurrentTheme.Muted)
}

func value() lipgloss.Style {
	return lipgloss.NewStyle().Bold(true).Foreground(CurrentTheme.Accent)
}

// StatusStyle colors converged statuses as success, the iteration budget as
// a warning and everything else as an error.
func StatusStyle(st solver.Status) lipgloss.Style {
	s := lipgloss.NewStyle().Bold(true)
	switch {
	case st.Converged():
		return s.Foreground(CurrentTheme.Success)
	case st == solver.MaxIterationsReached:
		return s.Foreground(CurrentTheme.Warning)
	case st.Terminal():
		return s.Foreground(CurrentTheme.Error)
	}
	return s.Foreground(CurrentTheme.Muted)
}

func RenderStatus(st solver.Status) string {
	return StatusStyle(st).Render(st.String())
}

// ProgressBar renders a bar filled to fraction, colored by how full it is.
func ProgressBar(fraction float64, width int) string {
	filled := int(fraction * float64(width))
	filled = max(0, min(filled, width))

	bar := strings.Repeat("█", filled) + strings.Repeat("░", width-filled)

	c := CurrentTheme.Error
	if fraction > 0.8 {
		c = CurrentTheme.Success
	} else if fraction > 0.4 {
		c = CurrentTheme.Warning
	}
	return lipgloss.NewStyle().Foreground(c).Render(bar)
}

// Sparkline renders log10 of the residual history as block characters,
// sampled to fit width.
func Sparkline(residuals []float64, width int) string {
	vals := logResiduals(residuals)
	if len(vals) == 0 || width <= 0 {
		return strings.Repeat("─", max(width, 0))
	}

	chars := []rune{'▁', '▂', '▃', '▄', '▅', '▆', '▇', '█'}
	lo, hi := vals[0], vals[0]
	for _, v := range vals {
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	rng := hi - lo
	if rng == 0 {
		rng = 1
	}

	step := len(vals) / width
	if step < 1 {
		step = 1
	}

	var b strings.Builder
	for i := 0; i < width && i*step < len(vals); i++ {
		idx := int((vals[i*step] - lo) / rng * float64(len(chars)-1))
		idx = max(0, min(idx, len(chars)-1))
		b.WriteRune(chars[idx])
	}
	return lipgloss.NewStyle().Foreground(CurrentTheme.Accent).Render(b.String())
}

func Separator(width int) string {
	return label().Render(strings.Repeat("─", max(width, 0)))
}
