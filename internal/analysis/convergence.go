package analysis

import (
	"math"

	"github.com/san-kum/dogleg/internal/dogleg"
	"github.com/san-kum/dogleg/internal/solver"
)

// Rates returns r[k+1]/r[k] for each pair of successive distinct residual
// norms. Repeated values from rejected steps are skipped.
func Rates(residuals []float64) []float64 {
	seq := distinct(residuals)
	if len(seq) < 2 {
		return nil
	}
	out := make([]float64, 0, len(seq)-1)
	for k := 1; k < len(seq); k++ {
		out = append(out, seq[k]/seq[k-1])
	}
	return out
}

// Order estimates the order of convergence q from the last three distinct
// positive residual norms, using
//
//	q ≈ ln(r[k+1]/r[k]) / ln(r[k]/r[k-1])
//
// ok is false when the history is too short or not decreasing.
func Order(residuals []float64) (q float64, ok bool) {
	seq := distinct(residuals)
	for len(seq) > 0 && !(seq[len(seq)-1] > 0) {
		seq = seq[:len(seq)-1]
	}
	if len(seq) < 3 {
		return 0, false
	}
	r0, r1, r2 := seq[len(seq)-3], seq[len(seq)-2], seq[len(seq)-1]
	if !(r2 < r1 && r1 < r0) {
		return 0, false
	}
	den := math.Log(r1 / r0)
	if den == 0 {
		return 0, false
	}
	return math.Log(r2/r1) / den, true
}

func distinct(residuals []float64) []float64 {
	out := make([]float64, 0, len(residuals))
	for _, r := range residuals {
		if math.IsNaN(r) || math.IsInf(r, 0) {
			continue
		}
		if len(out) > 0 && out[len(out)-1] == r {
			continue
		}
		out = append(out, r)
	}
	return out
}

// Profile summarizes the steps of one solve.
type Profile struct {
	Steps    int
	Accepted int
	Rejected int
	Failed   int // trial evaluations that failed
	ByKind   map[dogleg.Kind]int
	MinDelta float64
	MaxDelta float64
}

// Summarize builds a Profile from a solve's iteration records. The record
// for the initial point is ignored.
func Summarize(iters []solver.Iteration) Profile {
	p := Profile{ByKind: make(map[dogleg.Kind]int)}
	for _, it := range iters {
		if it.Iteration == 0 {
			continue
		}
		p.Steps++
		p.ByKind[it.Kind]++
		switch {
		case it.Accepted:
			p.Accepted++
		default:
			p.Rejected++
		}
		if math.IsNaN(it.TrialResidual) {
			p.Failed++
		}
		if p.Steps == 1 || it.Delta < p.MinDelta {
			p.MinDelta = it.Delta
		}
		if it.Delta > p.MaxDelta {
			p.MaxDelta = it.Delta
		}
	}
	return p
}

var nan = math.NaN()
