package viz

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/san-kum/dogleg/internal/analysis"
	"github.com/san-kum/dogleg/internal/batch"
	"github.com/san-kum/dogleg/internal/dogleg"
	"github.com/san-kum/dogleg/internal/metrics"
	"github.com/san-kum/dogleg/internal/solver"
)

func row(b *strings.Builder, name, v string) {
	fmt.Fprintf(b, "%s %s\n", label().Render(fmt.Sprintf("%-11s", name)), v)
}

// RenderResult formats the final state of one solve.
func RenderResult(title string, r solver.Result) string {
	var b strings.Builder
	b.WriteString(header().Render(title))
	b.WriteString("\n")
	row(&b, "status", RenderStatus(r.Status))
	row(&b, "residual", value().Render(fmt.Sprintf("%.6e", r.Residual)))
	row(&b, "fevals", value().Render(fmt.Sprintf("%d", r.FEvals)))
	row(&b, "iterations", value().Render(fmt.Sprintf("%d", r.Iterations)))
	row(&b, "delta", value().Render(fmt.Sprintf("%.4e", r.Delta)))
	row(&b, "x", formatVector(r.X))
	return b.String()
}

func formatVector(x []float64) string {
	parts := make([]string, len(x))
	for i, v := range x {
		parts[i] = fmt.Sprintf("%.10g", v)
	}
	return "[" + strings.Join(parts, " ") + "]"
}

// RenderTrace formats one line per iteration record.
func RenderTrace(iters []solver.Iteration) string {
	var b strings.Builder
	b.WriteString(header().Render(fmt.Sprintf("%4s %5s %-14s %11s %11s %11s %9s  %s",
		"iter", "fevals", "step", "delta", "|s|", "|F(x+s)|", "rho", "")))
	b.WriteString("\n")
	for _, it := range iters {
		if it.Iteration == 0 {
			fmt.Fprintf(&b, "%4d %5d %-14s %11.4e %11s %11.4e %9s  %s\n",
				0, it.FEvals, "initial", it.Delta, "", it.Residual, "", "")
			continue
		}
		mark := StatusStyle(solver.Converged).Render("accept")
		if !it.Accepted {
			mark = StatusStyle(solver.DeltaFailure).Render("reject")
		}
		rho := fmt.Sprintf("%9.3f", it.Rho)
		if math.IsNaN(it.TrialResidual) {
			rho = fmt.Sprintf("%9s", "-")
		}
		fmt.Fprintf(&b, "%4d %5d %-14s %11.4e %11.4e %11.4e %s  %s\n",
			it.Iteration, it.FEvals, it.Kind, it.Delta, it.StepNorm, it.TrialResidual, rho, mark)
	}
	return b.String()
}

// RenderSummary formats the status counts and evaluation costs of a batch.
func RenderSummary(s batch.Summary) string {
	var b strings.Builder
	b.WriteString(header().Render("batch summary"))
	b.WriteString("\n")

	frac := 0.0
	if s.Total > 0 {
		frac = float64(s.Converged) / float64(s.Total)
	}
	row(&b, "converged", fmt.Sprintf("%s %d/%d", ProgressBar(frac, 20), s.Converged, s.Total))

	statuses := make([]solver.Status, 0, len(s.ByStatus))
	for st := range s.ByStatus {
		statuses = append(statuses, st)
	}
	sort.Slice(statuses, func(i, j int) bool { return statuses[i] < statuses[j] })
	for _, st := range statuses {
		row(&b, "", fmt.Sprintf("%-24s %d", RenderStatus(st), s.ByStatus[st]))
	}

	row(&b, "fevals", value().Render(fmt.Sprintf("min %d  mean %.1f  max %d", s.MinFEvals, s.MeanFEvals, s.MaxFEvals)))
	if s.Converged > 0 {
		row(&b, "max resid", value().Render(fmt.Sprintf("%.3e", s.MaxResidual)))
	}
	return b.String()
}

// RenderSweep formats a parameter sweep as a table.
func RenderSweep(points []analysis.SweepPoint, name string) string {
	var b strings.Builder
	b.WriteString(header().Render(fmt.Sprintf("%14s  %-24s %6s %6s %11s %6s", name, "status", "fevals", "iters", "residual", "order")))
	b.WriteString("\n")
	for _, p := range points {
		order := "-"
		if !math.IsNaN(p.Order) {
			order = fmt.Sprintf("%.2f", p.Order)
		}
		fmt.Fprintf(&b, "%14.8g  %-24s %6d %6d %11.3e %6s\n",
			p.Param, RenderStatus(p.Status), p.FEvals, p.Iterations, p.Residual, order)
	}
	return b.String()
}

// RenderProfile formats step statistics of one solve.
func RenderProfile(p analysis.Profile, residuals []float64) string {
	var b strings.Builder
	row(&b, "steps", value().Render(fmt.Sprintf("%d (%d accepted, %d rejected, %d failed)", p.Steps, p.Accepted, p.Rejected, p.Failed)))
	kinds := make([]string, 0, len(p.ByKind))
	for k, n := range p.ByKind {
		kinds = append(kinds, fmt.Sprintf("%s=%d", k, n))
	}
	sort.Strings(kinds)
	row(&b, "kinds", strings.Join(kinds, " "))
	if q, ok := analysis.Order(residuals); ok {
		row(&b, "order", value().Render(fmt.Sprintf("%.2f", q)))
	}
	row(&b, "history", Sparkline(residuals, 40))
	return b.String()
}

// RenderStepStats formats the per-branch step counts and rejection rate
// collected during one solve.
func RenderStepStats(s *metrics.StepStats) string {
	var b strings.Builder
	kinds := make([]string, 0, 5)
	for _, k := range []dogleg.Kind{dogleg.Zero, dogleg.Newton, dogleg.Cauchy, dogleg.ClippedCauchy, dogleg.Dogleg} {
		if n := s.Count(k); n > 0 {
			kinds = append(kinds, fmt.Sprintf("%s=%d", k, n))
		}
	}
	row(&b, "branches", strings.Join(kinds, " "))
	row(&b, s.Name(), value().Render(fmt.Sprintf("%.3f (%d of %d)", s.Value(), s.Rejected(), s.Steps())))
	if s.Steps() > 0 {
		row(&b, "min delta", value().Render(fmt.Sprintf("%.4e", s.MinDelta())))
	}
	return b.String()
}
