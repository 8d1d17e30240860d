package problems

import (
	"math"

	"github.com/san-kum/dogleg/internal/linalg"
)

// PowellSingular is Powell's four-equation system. Its Jacobian is singular
// at the root x = 0, so convergence there is linear rather than quadratic.
type PowellSingular struct{}

func NewPowellSingular() *PowellSingular { return &PowellSingular{} }

func (*PowellSingular) Dim() int { return 4 }

func (*PowellSingular) DefaultX() []float64 { return []float64{3, -1, 0, 1} }

var (
	sqrt5  = math.Sqrt(5)
	sqrt10 = math.Sqrt(10)
)

func (*PowellSingular) Evaluate(r, J, x []float64) bool {
	a := x[1] - 2*x[2]
	b := x[0] - x[3]

	r[0] = x[0] + 10*x[1]
	r[1] = sqrt5 * (x[2] - x[3])
	r[2] = a * a
	r[3] = sqrt10 * b * b

	if J == nil {
		return true
	}
	linalg.Zero(J[:16])
	J[0], J[1] = 1, 10
	J[6], J[7] = sqrt5, -sqrt5
	J[9], J[10] = 2*a, -4*a
	J[12], J[15] = 2*sqrt10*b, -2*sqrt10*b
	return true
}
