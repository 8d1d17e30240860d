// Package numdiff approximates Jacobians by finite differences and compares
// them with the analytic Jacobians that problems provide.
package numdiff

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/diff/fd"
	"gonum.org/v1/gonum/mat"

	"github.com/san-kum/dogleg/internal/solver"
)

var (
	ErrDimension  = errors.New("numdiff: dimension mismatch")
	ErrEvaluation = errors.New("numdiff: evaluation failed")
)

type Method int

const (
	// Forward uses the first order forward difference.
	Forward Method = iota
	// Central uses the second order central difference.
	Central
)

func (m Method) formula() fd.Formula {
	if m == Central {
		return fd.Central
	}
	return fd.Forward
}

// Jacobian returns the row-major finite-difference Jacobian of p at x.
func Jacobian(p solver.Problem, x []float64, m Method) ([]float64, error) {
	n := p.Dim()
	if len(x) != n {
		return nil, fmt.Errorf("%w: len(x)=%d, want %d", ErrDimension, len(x), n)
	}

	failed := false
	f := func(y, x []float64) {
		if !p.Evaluate(y, nil, x) {
			failed = true
		}
	}

	x0 := make([]float64, n)
	copy(x0, x)
	dst := mat.NewDense(n, n, nil)
	fd.Jacobian(dst, f, x0, &fd.JacobianSettings{Formula: m.formula()})
	if failed {
		return nil, fmt.Errorf("%w: near x=%v", ErrEvaluation, x)
	}
	return dst.RawMatrix().Data, nil
}

// Report compares an analytic Jacobian with its approximation.
type Report struct {
	Analytic []float64
	Approx   []float64
	// MaxErr is the largest entry of |analytic - approx| / max(1, |analytic|),
	// found at (Row, Col).
	MaxErr   float64
	Row, Col int
}

// OK reports whether every entry agrees within tol.
func (r Report) OK(tol float64) bool { return r.MaxErr <= tol }

// Check evaluates p at x with its analytic Jacobian and compares it with
// the finite-difference approximation.
func Check(p solver.Problem, x []float64, m Method) (Report, error) {
	n := p.Dim()
	if len(x) != n {
		return Report{}, fmt.Errorf("%w: len(x)=%d, want %d", ErrDimension, len(x), n)
	}
	r := make([]float64, n)
	J := make([]float64, n*n)
	if !p.Evaluate(r, J, x) {
		return Report{}, fmt.Errorf("%w: at x=%v", ErrEvaluation, x)
	}
	approx, err := Jacobian(p, x, m)
	if err != nil {
		return Report{}, err
	}

	rep := Report{Analytic: J, Approx: approx}
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			a := J[i*n+j]
			e := math.Abs(a-approx[i*n+j]) / math.Max(1, math.Abs(a))
			if e > rep.MaxErr || math.IsNaN(e) {
				rep.MaxErr, rep.Row, rep.Col = e, i, j
			}
		}
	}
	return rep, nil
}
