package solver

import (
	"encoding/json"
	"fmt"
	"math"

	"github.com/san-kum/dogleg/internal/dogleg"
	"github.com/san-kum/dogleg/internal/linalg"
	"github.com/san-kum/dogleg/internal/trust"
)

// Problem is a square nonlinear system F(x) = 0.
//
// Evaluate writes F(x) into r and, when J is non-nil, the row-major Jacobian
// into J (entry (i, j) at J[linalg.Idx(i, j, n)]). It returns false when F
// cannot be computed at x. Evaluate must not retain r, J or x.
type Problem interface {
	Dim() int
	Evaluate(r, J, x []float64) bool
}

// workspace is the solver's single arena: the committed triple (x, r, J),
// the trial triple and the step.
type workspace struct {
	x, r, J    []float64
	xt, rt, Jt []float64
	s          []float64
}

func newWorkspace(n int) workspace {
	nn := n * n
	buf := make([]float64, 5*n+2*nn)
	return workspace{
		x:  buf[0*n : 1*n],
		r:  buf[1*n : 2*n],
		xt: buf[2*n : 3*n],
		rt: buf[3*n : 4*n],
		s:  buf[4*n : 5*n],
		J:  buf[5*n : 5*n+nn],
		Jt: buf[5*n+nn:],
	}
}

// Solver runs the trust-region dogleg iteration for one problem. All
// storage is allocated by New; Solve does not allocate.
type Solver[P Problem] struct {
	p    P
	n    int
	cfg  Config
	ctrl *trust.Controller
	calc *dogleg.Calculator
	ws   workspace
	obs  Observer

	status Status
	fevals int
	iters  int
	res    float64
}

// New returns a solver for p. A nil cfg selects DefaultConfig. The
// configuration is copied; later changes to *cfg do not affect the solver.
func New[P Problem](p P, cfg *Config) (*Solver[P], error) {
	c := DefaultConfig()
	if cfg != nil {
		c = *cfg
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	n := p.Dim()
	if n < 1 || n > linalg.MaxDim {
		return nil, fmt.Errorf("%w: n=%d, want 1..%d", ErrDimension, n, linalg.MaxDim)
	}

	s := &Solver[P]{
		p:      p,
		n:      n,
		cfg:    c,
		calc:   dogleg.New(n, c.PivotTolerance),
		ws:     newWorkspace(n),
		res:    math.Inf(1),
		status: Unset,
	}
	s.ctrl = trust.NewController(&s.cfg.Delta)
	return s, nil
}

// Problem returns the system being solved.
func (s *Solver[P]) Problem() P { return s.p }

// Dim returns the system dimension.
func (s *Solver[P]) Dim() int { return s.n }

// Config returns a copy of the solver's configuration.
func (s *Solver[P]) Config() Config { return s.cfg }

// X returns the iterate. Before Solve it may be written to seed the initial
// guess (zero by default); after Solve it holds the final iterate. The slice
// stays valid for the solver's lifetime.
func (s *Solver[P]) X() []float64 { return s.ws.x }

// SetX copies x0 into the iterate.
func (s *Solver[P]) SetX(x0 []float64) error {
	if len(x0) != s.n {
		return fmt.Errorf("%w: len(x0)=%d, want %d", ErrDimension, len(x0), s.n)
	}
	copy(s.ws.x, x0)
	return nil
}

// SetObserver installs o to receive iteration records; nil removes it.
func (s *Solver[P]) SetObserver(o Observer) { s.obs = o }

// Solve iterates from the current X until a terminal status is reached and
// returns that status. Solve may be called again after reseeding X.
func (s *Solver[P]) Solve() Status {
	w := &s.ws
	tol := s.cfg.Tolerance

	s.fevals, s.iters = 0, 0
	s.ctrl.Initialize()
	s.status = Unconverged
	s.res = math.Inf(1)

	if !s.evaluate(w.r, w.J, w.x) {
		return s.finish(EvaluationFailure)
	}
	s.res = linalg.Norm(w.r)
	if !(s.res < math.Inf(1)) {
		return s.finish(EvaluationFailure)
	}
	s.notify(Iteration{FEvals: s.fevals, Delta: s.ctrl.Delta(), Residual: s.res, TrialResidual: s.res, Accepted: true})
	if s.res <= tol {
		return s.finish(Converged)
	}

	stale := true
	for {
		if s.iters >= s.cfg.MaxIterations || (s.cfg.MaxFEvals > 0 && s.fevals >= s.cfg.MaxFEvals) {
			return s.finish(MaxIterationsReached)
		}
		s.iters++

		if stale {
			s.calc.Prepare(w.r, w.J)
			stale = false
		}
		delta := s.ctrl.Delta()
		st := s.calc.Step(delta, w.s)
		ts := trust.Step{Norm: st.Norm, Newton: st.Kind == dogleg.Newton}

		for i := range w.xt {
			w.xt[i] = w.x[i] + w.s[i]
		}
		it := Iteration{
			Iteration:    s.iters,
			Delta:        delta,
			Kind:         st.Kind,
			StepNorm:     st.Norm,
			PredResidual: st.PredResidual,
		}

		trialRes := math.NaN()
		ok := s.evaluate(w.rt, w.Jt, w.xt)
		if ok {
			trialRes = linalg.Norm(w.rt)
			ok = trialRes < math.Inf(1)
		}
		it.FEvals = s.fevals
		it.TrialResidual = trialRes

		if !ok {
			if !s.cfg.ShrinkOnEvalFailure {
				it.Residual = s.res
				s.notify(it)
				return s.finish(EvaluationFailure)
			}
			collapsed := !s.ctrl.Shrink(ts)
			it.Residual = s.res
			s.notify(it)
			if collapsed {
				return s.finish(DeltaFailure)
			}
			continue
		}

		d := s.ctrl.Update(trialRes, s.res, st.PredResidual, ts)
		converged := trialRes <= tol
		if d.Accept || converged {
			s.commit(trialRes)
			stale = true
		}
		it.Rho = s.ctrl.Rho()
		it.Residual, it.Accepted = s.res, d.Accept || converged
		s.notify(it)

		switch {
		case converged && d.Failed:
			return s.finish(ConvergedDeltaFailure)
		case converged:
			return s.finish(Converged)
		case d.Failed:
			return s.finish(DeltaFailure)
		}
	}
}

func (s *Solver[P]) evaluate(r, J, x []float64) bool {
	s.fevals++
	return s.p.Evaluate(r, J, x)
}

// commit makes the trial triple the current one.
func (s *Solver[P]) commit(res float64) {
	w := &s.ws
	copy(w.x, w.xt)
	copy(w.r, w.rt)
	copy(w.J, w.Jt)
	s.res = res
}

func (s *Solver[P]) notify(it Iteration) {
	if s.obs != nil {
		s.obs.OnIteration(it)
	}
}

func (s *Solver[P]) finish(st Status) Status {
	s.status = st
	return st
}

// Status returns the status of the last Solve, Unset before the first.
func (s *Solver[P]) Status() Status { return s.status }

// FEvals returns the number of residual evaluations in the last Solve.
func (s *Solver[P]) FEvals() int { return s.fevals }

// Iterations returns the number of steps tried in the last Solve.
func (s *Solver[P]) Iterations() int { return s.iters }

// Residual returns ‖F(x)‖ at the current iterate.
func (s *Solver[P]) Residual() float64 { return s.res }

// Delta returns the current trust radius.
func (s *Solver[P]) Delta() float64 { return s.ctrl.Delta() }

// RhoLast returns the last actual-to-predicted reduction ratio.
func (s *Solver[P]) RhoLast() float64 { return s.ctrl.Rho() }

// R returns the residual at the current iterate. The slice is owned by the
// solver.
func (s *Solver[P]) R() []float64 { return s.ws.r }

// J returns the row-major Jacobian at the current iterate. The slice is
// owned by the solver.
func (s *Solver[P]) J() []float64 { return s.ws.J }

// Result returns a snapshot of the last solve.
func (s *Solver[P]) Result() Result {
	x := make([]float64, s.n)
	copy(x, s.ws.x)
	return Result{
		Status:     s.status,
		X:          x,
		Residual:   s.res,
		FEvals:     s.fevals,
		Iterations: s.iters,
		Delta:      s.ctrl.Delta(),
	}
}

// Err returns nil when the last solve converged and a *SolveError otherwise.
func (s *Solver[P]) Err() error {
	if s.status.Converged() {
		return nil
	}
	return &SolveError{Status: s.status, Iterations: s.iters, FEvals: s.fevals, Residual: s.res}
}

// Result is a copy of a solver's final state.
type Result struct {
	Status     Status    `json:"status"`
	X          []float64 `json:"x"`
	Residual   float64   `json:"residual"`
	FEvals     int       `json:"fevals"`
	Iterations int       `json:"iterations"`
	Delta      float64   `json:"delta"`
}

type resultJSON struct {
	Status     Status    `json:"status"`
	X          []float64 `json:"x"`
	Residual   *float64  `json:"residual"`
	FEvals     int       `json:"fevals"`
	Iterations int       `json:"iterations"`
	Delta      float64   `json:"delta"`
}

// MarshalJSON encodes a non-finite residual, left by a failed initial
// evaluation, as null.
func (r Result) MarshalJSON() ([]byte, error) {
	out := resultJSON{Status: r.Status, X: r.X, FEvals: r.FEvals, Iterations: r.Iterations, Delta: r.Delta}
	if !math.IsInf(r.Residual, 0) && !math.IsNaN(r.Residual) {
		out.Residual = &r.Residual
	}
	return json.Marshal(out)
}

// UnmarshalJSON decodes a null residual as +Inf.
func (r *Result) UnmarshalJSON(b []byte) error {
	var in resultJSON
	if err := json.Unmarshal(b, &in); err != nil {
		return err
	}
	*r = Result{Status: in.Status, X: in.X, Residual: math.Inf(1), FEvals: in.FEvals, Iterations: in.Iterations, Delta: in.Delta}
	if in.Residual != nil {
		r.Residual = *in.Residual
	}
	return nil
}

// Solve is a convenience wrapper that builds a solver for p, seeds it with
// x0 (zero when nil) and runs it.
func Solve[P Problem](p P, x0 []float64, cfg *Config) (Result, error) {
	s, err := New(p, cfg)
	if err != nil {
		return Result{}, err
	}
	if x0 != nil {
		if err := s.SetX(x0); err != nil {
			return Result{}, err
		}
	}
	s.Solve()
	return s.Result(), s.Err()
}
