package batch

import (
	"math"

	"github.com/san-kum/dogleg/internal/solver"
)

// Summary aggregates a batch.
type Summary struct {
	Total       int
	Converged   int
	ByStatus    map[solver.Status]int
	MinFEvals   int
	MaxFEvals   int
	MeanFEvals  float64
	MaxResidual float64 // over converged instances
}

// Summarize counts statuses and evaluation costs. Instances that never ran
// are counted under solver.Unset and excluded from the cost figures.
func Summarize(outcomes []Outcome) Summary {
	s := Summary{Total: len(outcomes), ByStatus: make(map[solver.Status]int)}
	ran, sum := 0, 0
	for _, o := range outcomes {
		s.ByStatus[o.Status]++
		if o.Status == solver.Unset {
			continue
		}
		if o.Status.Converged() {
			s.Converged++
			s.MaxResidual = math.Max(s.MaxResidual, o.Residual)
		}
		if ran == 0 || o.FEvals < s.MinFEvals {
			s.MinFEvals = o.FEvals
		}
		if o.FEvals > s.MaxFEvals {
			s.MaxFEvals = o.FEvals
		}
		ran++
		sum += o.FEvals
	}
	if ran > 0 {
		s.MeanFEvals = float64(sum) / float64(ran)
	}
	return s
}

// Failed returns the outcomes that did not converge.
func Failed(outcomes []Outcome) []Outcome {
	var out []Outcome
	for _, o := range outcomes {
		if !o.Status.Converged() {
			out = append(out, o)
		}
	}
	return out
}
