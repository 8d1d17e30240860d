package viz

import (
	"math"

	"github.com/guptarohit/asciigraph"

	"github.com/san-kum/dogleg/internal/analysis"
)

// residualFloor stands in for a zero residual on the log scale.
const residualFloor = 1e-300

func logResiduals(residuals []float64) []float64 {
	out := make([]float64, 0, len(residuals))
	for _, r := range residuals {
		if math.IsNaN(r) || math.IsInf(r, 0) {
			continue
		}
		out = append(out, math.Log10(math.Max(r, residualFloor)))
	}
	return out
}

// ResidualPlot draws log10 of the residual history. It returns the empty
// string when there is nothing finite to plot.
func ResidualPlot(residuals []float64, width, height int) string {
	data := logResiduals(residuals)
	if len(data) == 0 {
		return ""
	}
	if len(data) == 1 {
		data = append(data, data[0])
	}
	return asciigraph.Plot(data,
		asciigraph.Height(height),
		asciigraph.Width(width),
		asciigraph.Precision(1),
		asciigraph.Caption("log10 |F(x)|"),
	)
}

// SweepPlot draws evaluations used at each point of a parameter sweep.
func SweepPlot(points []analysis.SweepPoint, name string, width, height int) string {
	if len(points) == 0 {
		return ""
	}
	data := make([]float64, len(points))
	for i, p := range points {
		data[i] = float64(p.FEvals)
	}
	if len(data) == 1 {
		data = append(data, data[0])
	}
	return asciigraph.Plot(data,
		asciigraph.Height(height),
		asciigraph.Width(width),
		asciigraph.Precision(0),
		asciigraph.Caption("evaluations vs "+name),
	)
}
