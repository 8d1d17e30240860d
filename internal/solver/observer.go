package solver

import "github.com/san-kum/dogleg/internal/dogleg"

// Iteration records one step of a solve. The record with Iteration == 0
// describes the initial point.
type Iteration struct {
	Iteration int
	FEvals    int
	// Delta is the trust radius the step was computed for.
	Delta float64
	Rho   float64
	Kind  dogleg.Kind

	StepNorm      float64
	PredResidual  float64
	TrialResidual float64 // NaN if the trial evaluation failed
	// Residual is the residual norm at the iterate after the decision.
	Residual float64
	Accepted bool
}

// Observer receives iteration records as a solve progresses. OnIteration is
// called synchronously from Solve.
type Observer interface {
	OnIteration(Iteration)
}

// ObserverFunc adapts a function to the Observer interface.
type ObserverFunc func(Iteration)

func (f ObserverFunc) OnIteration(it Iteration) { f(it) }

// History records every iteration it observes.
type History struct {
	Iterations []Iteration
}

func (h *History) OnIteration(it Iteration) {
	if it.Iteration == 0 {
		h.Iterations = h.Iterations[:0]
	}
	h.Iterations = append(h.Iterations, it)
}

// Residuals returns the residual norm after each iteration, starting with
// the initial point.
func (h *History) Residuals() []float64 {
	out := make([]float64, len(h.Iterations))
	for i, it := range h.Iterations {
		out[i] = it.Residual
	}
	return out
}

// Rejected counts the steps that were not accepted.
func (h *History) Rejected() int {
	n := 0
	for _, it := range h.Iterations {
		if !it.Accepted {
			n++
		}
	}
	return n
}

// Observers fans each record out to every element in order.
type Observers []Observer

func (os Observers) OnIteration(it Iteration) {
	for _, o := range os {
		o.OnIteration(it)
	}
}
