package dogleg

import (
	"math"

	"github.com/san-kum/dogleg/internal/linalg"
)

// Kind identifies which branch of the dogleg path produced a step.
type Kind int

const (
	// Zero is a null step: the gradient Jᵀr vanished.
	Zero Kind = iota
	// Newton is the full Newton step, inside the trust region.
	Newton
	// Cauchy is the unclipped Cauchy step, taken when the Newton step is
	// unavailable and the Cauchy point lies inside the trust region.
	Cauchy
	// ClippedCauchy is the steepest-descent direction cut to the radius.
	ClippedCauchy
	// Dogleg is the point of norm delta on the segment from the Cauchy
	// point to the Newton step.
	Dogleg
)

var kindNames = [...]string{"zero", "newton", "cauchy", "clipped-cauchy", "dogleg"}

func (k Kind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return "unknown"
	}
	return kindNames[k]
}

// OnBoundary reports whether steps of this kind have length equal to the
// trust radius.
func (k Kind) OnBoundary() bool { return k == ClippedCauchy || k == Dogleg }

// Step summarizes a computed step.
type Step struct {
	Kind Kind
	// Norm is the Euclidean length of the step.
	Norm float64
	// PredResidual is ‖r + J·s‖, the residual norm predicted by the local
	// linear model at the trial point.
	PredResidual float64
}

// Calculator computes dogleg steps for one solver. All storage is sized at
// construction; Prepare and Step never allocate.
type Calculator struct {
	n        int
	pivotTol float64

	grad   []float64 // Jᵀr
	jg     []float64 // J·grad
	sd     []float64 // Cauchy step, -alpha·grad
	newton []float64 // solution of J·s = -r
	p      []float64 // newton - sd
	lu     []float64
	piv    []int

	res0       float64
	grad2      float64
	gradNorm   float64
	jg2        float64
	alpha      float64
	sdNorm     float64
	sdPred     float64
	newtonNorm float64
	newtonOK   bool
}

// New returns a calculator for systems of dimension n. pivotTol is the
// relative pivot threshold handed to the linear kernel.
func New(n int, pivotTol float64) *Calculator {
	buf := make([]float64, 5*n+n*n)
	return &Calculator{
		n:        n,
		pivotTol: pivotTol,
		grad:     buf[0*n : 1*n],
		jg:       buf[1*n : 2*n],
		sd:       buf[2*n : 3*n],
		newton:   buf[3*n : 4*n],
		p:        buf[4*n : 5*n],
		lu:       buf[5*n:],
		piv:      make([]int, n),
	}
}

// Prepare computes everything that depends only on the residual r and the
// row-major Jacobian J at the current iterate: the gradient of ½‖r‖², the
// Cauchy point and the Newton step. After Prepare, Step may be called any
// number of times with different radii.
//
// A numerically singular J is not an error: the Newton step is marked
// unavailable and Step falls back to the steepest-descent direction.
func (c *Calculator) Prepare(r, J []float64) {
	n := c.n

	c.res0 = linalg.Norm(r[:n])

	linalg.MatTVec(c.grad, J, r, n)
	c.grad2 = linalg.Dot(c.grad, c.grad)
	c.gradNorm = math.Sqrt(c.grad2)

	linalg.MatVec(c.jg, J, c.grad, n)
	c.jg2 = linalg.Dot(c.jg, c.jg)

	c.alpha = 1
	if c.jg2 > 0 {
		c.alpha = c.grad2 / c.jg2
	}
	c.sdNorm = c.alpha * c.gradNorm
	for i, g := range c.grad {
		c.sd[i] = -c.alpha * g
	}
	// ‖r - alpha·J·g‖, using r·(J·g) = ‖g‖²
	c.sdPred = math.Sqrt(math.Max(c.res0*c.res0-2*c.alpha*c.grad2+c.alpha*c.alpha*c.jg2, 0))

	copy(c.lu, J[:n*n])
	for i := 0; i < n; i++ {
		c.newton[i] = -r[i]
	}
	c.newtonOK = linalg.Solve(c.lu, c.newton, n, c.piv, c.pivotTol) && linalg.IsFinite(c.newton)
	if c.newtonOK {
		c.newtonNorm = linalg.Norm(c.newton)
		for i := range c.p {
			c.p[i] = c.newton[i] - c.sd[i]
		}
	} else {
		c.newtonNorm = math.Inf(1)
	}
}

// Step writes into s the dogleg step for trust radius delta and returns its
// description. It must follow a call to Prepare.
func (c *Calculator) Step(delta float64, s []float64) Step {
	s = s[:c.n]

	if c.gradNorm == 0 {
		linalg.Zero(s)
		return Step{Kind: Zero, PredResidual: c.res0}
	}

	if c.newtonOK && c.newtonNorm <= delta {
		copy(s, c.newton)
		return Step{Kind: Newton, Norm: c.newtonNorm, PredResidual: 0}
	}

	if c.sdNorm >= delta {
		t := delta / c.gradNorm
		for i, g := range c.grad {
			s[i] = -t * g
		}
		pred := math.Sqrt(math.Max(c.res0*c.res0-2*t*c.grad2+t*t*c.jg2, 0))
		return Step{Kind: ClippedCauchy, Norm: linalg.Norm(s), PredResidual: pred}
	}

	if !c.newtonOK {
		copy(s, c.sd)
		return Step{Kind: Cauchy, Norm: c.sdNorm, PredResidual: c.sdPred}
	}

	beta := c.boundaryParam(delta)
	for i := range s {
		s[i] = c.sd[i] + beta*c.p[i]
	}
	// r + J·s = (1-beta)·(r + J·sd) because J·newton = -r
	return Step{Kind: Dogleg, Norm: linalg.Norm(s), PredResidual: (1 - beta) * c.sdPred}
}

// boundaryParam returns beta in [0,1] with ‖sd + beta·p‖ = delta, given
// ‖sd‖ < delta < ‖newton‖.
func (c *Calculator) boundaryParam(delta float64) float64 {
	qa := linalg.Dot(c.p, c.p)
	qb := 2 * linalg.Dot(c.p, c.sd)
	qc := c.sdNorm*c.sdNorm - delta*delta

	// qc < 0 so the roots have opposite signs; pick the stable form of the
	// positive one
	disc := math.Sqrt(math.Max(qb*qb-4*qa*qc, 0))
	var beta float64
	if qb <= 0 {
		beta = (-qb + disc) / (2 * qa)
	} else {
		beta = -2 * qc / (qb + disc)
	}
	return math.Min(math.Max(beta, 0), 1)
}

// Dim returns the system dimension.
func (c *Calculator) Dim() int { return c.n }

// NewtonOK reports whether the last Prepare produced a Newton step.
func (c *Calculator) NewtonOK() bool { return c.newtonOK }

// NewtonNorm returns the length of the Newton step, +Inf when unavailable.
func (c *Calculator) NewtonNorm() float64 { return c.newtonNorm }

// CauchyNorm returns the length of the Cauchy step.
func (c *Calculator) CauchyNorm() float64 { return c.sdNorm }

// GradientNorm returns ‖Jᵀr‖.
func (c *Calculator) GradientNorm() float64 { return c.gradNorm }
