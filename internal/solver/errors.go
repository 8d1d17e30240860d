package solver

import (
	"errors"
	"fmt"
)

var (
	// ErrDimension indicates a problem or vector of unsupported size.
	ErrDimension = errors.New("solver: dimension out of range")

	// ErrConfig indicates an invalid solver configuration.
	ErrConfig = errors.New("solver: invalid configuration")

	// ErrDeltaFailure indicates the trust region collapsed before convergence.
	ErrDeltaFailure = errors.New("solver: trust region collapsed")

	// ErrMaxIterations indicates the iteration or evaluation budget ran out.
	ErrMaxIterations = errors.New("solver: iteration budget exhausted")

	// ErrEvaluation indicates the problem could not be evaluated.
	ErrEvaluation = errors.New("solver: residual evaluation failed")
)

// SolveError reports a solve that ended without convergence.
type SolveError struct {
	Status     Status
	Iterations int
	FEvals     int
	Residual   float64
}

func (e *SolveError) Error() string {
	return fmt.Sprintf("%v (status %s, %d iterations, %d evaluations, residual %.3e)",
		e.Status.Err(), e.Status, e.Iterations, e.FEvals, e.Residual)
}

func (e *SolveError) Unwrap() error {
	return e.Status.Err()
}
