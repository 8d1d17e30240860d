package viz

import (
	"math"
	"strings"
	"testing"

	"github.com/san-kum/dogleg/internal/analysis"
	"github.com/san-kum/dogleg/internal/batch"
	"github.com/san-kum/dogleg/internal/dogleg"
	"github.com/san-kum/dogleg/internal/metrics"
	"github.com/san-kum/dogleg/internal/solver"
)

func TestGetTheme(t *testing.T) {
	if GetTheme("ocean").Name != "ocean" {
		t.Error("expected ocean theme")
	}
	if GetTheme("nope").Name != "default" {
		t.Error("unknown theme should fall back to default")
	}
	if len(ThemeNames()) != len(Themes) {
		t.Error("theme names incomplete")
	}
}

func TestRenderResult(t *testing.T) {
	out := RenderResult("broyden", solver.Result{
		Status: solver.Converged, X: []float64{1, 2}, Residual: 1e-13, FEvals: 19, Iterations: 18, Delta: 1,
	})
	for _, want := range []string{"broyden", "converged", "19", "[1 2]"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestRenderTrace(t *testing.T) {
	out := RenderTrace([]solver.Iteration{
		{FEvals: 1, Delta: 1, Residual: 2, TrialResidual: 2, Accepted: true},
		{Iteration: 1, FEvals: 2, Delta: 1, Kind: dogleg.Dogleg, StepNorm: 1, TrialResidual: 3, Residual: 2, Rho: -2},
		{Iteration: 2, FEvals: 3, Delta: 0.25, Kind: dogleg.Newton, StepNorm: 0.1, TrialResidual: math.NaN(), Residual: 2},
	})
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	if len(lines) < 4 {
		t.Fatalf("got %d lines:\n%s", len(lines), out)
	}
	if !strings.Contains(out, "dogleg") || !strings.Contains(out, "reject") {
		t.Errorf("unexpected trace:\n%s", out)
	}
}

func TestRenderSummary(t *testing.T) {
	s := batch.Summary{
		Total: 4, Converged: 3,
		ByStatus:  map[solver.Status]int{solver.Converged: 3, solver.DeltaFailure: 1},
		MinFEvals: 10, MaxFEvals: 30, MeanFEvals: 17.5, MaxResidual: 1e-13,
	}
	out := RenderSummary(s)
	for _, want := range []string{"3/4", "delta-failure", "17.5"} {
		if !strings.Contains(out, want) {
			t.Errorf("summary missing %q:\n%s", want, out)
		}
	}
}

func TestResidualPlot(t *testing.T) {
	if ResidualPlot(nil, 40, 5) != "" {
		t.Error("empty history should give empty plot")
	}
	out := ResidualPlot([]float64{1, 1e-2, 1e-6, 0, math.Inf(1)}, 40, 5)
	if !strings.Contains(out, "log10") {
		t.Errorf("missing caption:\n%s", out)
	}
}

func TestSweepPlot(t *testing.T) {
	pts := []analysis.SweepPoint{{Param: 0, FEvals: 5}, {Param: 1, FEvals: 19}}
	if !strings.Contains(SweepPlot(pts, "lambda", 40, 5), "lambda") {
		t.Error("missing caption")
	}
	if !strings.Contains(RenderSweep(pts, "lambda"), "19") {
		t.Error("missing fevals")
	}
}

func TestSparkline(t *testing.T) {
	if got := Sparkline(nil, 5); got != "─────" {
		t.Errorf("empty sparkline = %q", got)
	}
	if Sparkline([]float64{1, 0.1, 0.01}, 10) == "" {
		t.Error("empty sparkline for history")
	}
}

func TestRenderStepStats(t *testing.T) {
	stats := metrics.NewStepStats()
	for _, it := range []solver.Iteration{
		{Iteration: 0, Delta: 1, Accepted: true},
		{Iteration: 1, Delta: 1, Kind: dogleg.Dogleg},
		{Iteration: 2, Delta: 0.25, Kind: dogleg.Newton, Accepted: true},
	} {
		stats.OnIteration(it)
	}
	out := RenderStepStats(stats)
	for _, want := range []string{"dogleg=1", "newton=1", "rejection_rate", "0.500", "1 of 2", "2.5000e-01"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}
