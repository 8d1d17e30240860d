package problems

import (
	"fmt"

	"github.com/san-kum/dogleg/internal/linalg"
)

// Linear is the affine system F(x) = A·x - b with A row-major.
type Linear struct {
	A []float64
	B []float64
	n int
}

// NewLinear returns the system A·x = b. A must hold len(b)² entries.
func NewLinear(A, b []float64) (*Linear, error) {
	n := len(b)
	if n == 0 || len(A) != n*n {
		return nil, fmt.Errorf("problems: linear system needs an %d×%d matrix, got %d entries", n, n, len(A))
	}
	return &Linear{A: A, B: b, n: n}, nil
}

func (l *Linear) Dim() int { return l.n }

func (l *Linear) Evaluate(r, J, x []float64) bool {
	linalg.MatVec(r, l.A, x, l.n)
	linalg.Axpy(r, -1, l.B)
	if J != nil {
		copy(J, l.A)
	}
	return true
}
