package problems

import (
	"github.com/san-kum/dogleg/internal/linalg"
)

// BroydenDim is the conventional dimension of the Broyden system.
const BroydenDim = 8

// Broyden is the Broyden tridiagonal system with its last equation f
// replaced by (1-λ)·f + λ·f². λ = 0 is the classic problem; λ close to 1
// makes the Jacobian increasingly ill-conditioned near the root.
type Broyden struct {
	Lambda float64
	N      int
}

func NewBroyden(lambda float64) *Broyden {
	return &Broyden{Lambda: lambda, N: BroydenDim}
}

func (b *Broyden) Dim() int { return b.N }

// DefaultX returns the zero vector, the start that exercises the trust
// region. The textbook start is x = -1.
func (b *Broyden) DefaultX() []float64 { return make([]float64, b.N) }

func (b *Broyden) Evaluate(r, J, x []float64) bool {
	n := b.N
	lam := b.Lambda

	r[0] = (3-2*x[0])*x[0] - 2*x[1] + 1
	for i := 1; i < n-1; i++ {
		r[i] = (3-2*x[i])*x[i] - x[i-1] - 2*x[i+1] + 1
	}
	fn := (3-2*x[n-1])*x[n-1] - x[n-2] + 1
	r[n-1] = (1-lam)*fn + lam*fn*fn

	if J == nil {
		return true
	}
	linalg.Zero(J[:n*n])

	J[linalg.Idx(0, 0, n)] = 3 - 4*x[0]
	J[linalg.Idx(0, 1, n)] = -2
	for i := 1; i < n-1; i++ {
		J[linalg.Idx(i, i-1, n)] = -1
		J[linalg.Idx(i, i, n)] = 3 - 4*x[i]
		J[linalg.Idx(i, i+1, n)] = -2
	}
	dfn := 3 - 4*x[n-1]
	J[linalg.Idx(n-1, n-1, n)] = (1-lam)*dfn + lam*2*dfn*fn
	J[linalg.Idx(n-1, n-2, n)] = -(1 - lam) - lam*2*fn
	return true
}

func (b *Broyden) GetParams() map[string]float64 {
	return map[string]float64{"lambda": b.Lambda, "n": float64(b.N)}
}

func (b *Broyden) SetParam(name string, v float64) error {
	switch name {
	case "lambda":
		if v < 0 || v > 1 {
			return outOfBounds("broyden", name, v)
		}
		b.Lambda = v
	case "n":
		if v < 2 || v > linalg.MaxDim || v != float64(int(v)) {
			return outOfBounds("broyden", name, v)
		}
		b.N = int(v)
	default:
		return unknownParam("broyden", name)
	}
	return nil
}
