package metrics

import (
	"github.com/san-kum/dogleg/internal/dogleg"
	"github.com/san-kum/dogleg/internal/solver"
)

// StepStats tallies the steps of one solve by dogleg branch.
type StepStats struct {
	name     string
	kinds    map[dogleg.Kind]int
	steps    int
	rejected int
	minDelta float64
}

func NewStepStats() *StepStats {
	return &StepStats{name: "rejection_rate", kinds: make(map[dogleg.Kind]int)}
}

func (s *StepStats) Name() string { return s.name }

func (s *StepStats) OnIteration(it solver.Iteration) {
	if it.Iteration == 0 {
		s.Reset()
		return
	}
	s.steps++
	s.kinds[it.Kind]++
	if !it.Accepted {
		s.rejected++
	}
	if s.minDelta == 0 || it.Delta < s.minDelta {
		s.minDelta = it.Delta
	}
}

// Value returns the fraction of rejected steps.
func (s *StepStats) Value() float64 {
	if s.steps == 0 {
		return 0
	}
	return float64(s.rejected) / float64(s.steps)
}

func (s *StepStats) Reset() {
	s.steps, s.rejected, s.minDelta = 0, 0, 0
	clear(s.kinds)
}

func (s *StepStats) Steps() int    { return s.steps }
func (s *StepStats) Rejected() int { return s.rejected }

// Count returns the number of steps of kind k.
func (s *StepStats) Count(k dogleg.Kind) int { return s.kinds[k] }

// MinDelta returns the smallest trust radius a step was computed for.
func (s *StepStats) MinDelta() float64 { return s.minDelta }
