package solver

import (
	"errors"
	"math"
	"testing"

	"github.com/san-kum/dogleg/internal/dogleg"
	"github.com/san-kum/dogleg/internal/problems"
)

func broydenConfig(deltaInit float64) *Config {
	cfg := DefaultConfig()
	cfg.MaxIterations = 200
	cfg.Tolerance = 1e-12
	cfg.Delta.DeltaInit = deltaInit
	return &cfg
}

func TestSolve_Broyden(t *testing.T) {
	tests := []struct {
		name       string
		lambda     float64
		deltaInit  float64
		wantFEvals int
	}{
		{"mildly ill-conditioned", 0.9999, 1, 19},
		{"severely ill-conditioned", 0.99999999, 100, 23},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := problems.NewBroyden(tt.lambda)
			s, err := New(p, broydenConfig(tt.deltaInit))
			if err != nil {
				t.Fatal(err)
			}

			st := s.Solve()
			if st != Converged {
				t.Fatalf("status = %v, want converged (residual %g after %d evaluations)", st, s.Residual(), s.FEvals())
			}
			if s.FEvals() != tt.wantFEvals {
				t.Errorf("fevals = %d, want %d", s.FEvals(), tt.wantFEvals)
			}
			if s.Residual() > 1e-12 {
				t.Errorf("residual = %g", s.Residual())
			}
			if s.Err() != nil {
				t.Errorf("Err() = %v on convergence", s.Err())
			}
		})
	}
}

func TestSolve_EvaluationFailure(t *testing.T) {
	s, err := New(problems.AlwaysFail{N: 3}, nil)
	if err != nil {
		t.Fatal(err)
	}
	x0 := []float64{1, 2, 3}
	if err := s.SetX(x0); err != nil {
		t.Fatal(err)
	}

	if st := s.Solve(); st != EvaluationFailure {
		t.Fatalf("status = %v, want evaluation-failure", st)
	}
	if s.FEvals() != 1 {
		t.Errorf("fevals = %d, want 1", s.FEvals())
	}
	for i, v := range s.X() {
		if v != x0[i] {
			t.Errorf("x[%d] = %v, want %v", i, v, x0[i])
		}
	}
	if !errors.Is(s.Err(), ErrEvaluation) {
		t.Errorf("Err() = %v, want ErrEvaluation", s.Err())
	}
}

// failAfter succeeds for the first ok evaluations, then fails.
type failAfter struct {
	inner problems.Rosenbrock
	ok    int
	calls int
}

func (f *failAfter) Dim() int { return 2 }

func (f *failAfter) Evaluate(r, J, x []float64) bool {
	f.calls++
	if f.calls > f.ok {
		return false
	}
	return f.inner.Evaluate(r, J, x)
}

func TestSolve_TrialEvaluationFailure(t *testing.T) {
	p := &failAfter{inner: *problems.NewRosenbrock(), ok: 1}
	s, err := New(p, nil)
	if err != nil {
		t.Fatal(err)
	}
	x0 := []float64{-1.2, 1}
	s.SetX(x0)

	if st := s.Solve(); st != EvaluationFailure {
		t.Fatalf("status = %v, want evaluation-failure", st)
	}
	if s.FEvals() != 2 || s.Iterations() != 1 {
		t.Errorf("fevals = %d, iterations = %d, want 2 and 1", s.FEvals(), s.Iterations())
	}
	if s.X()[0] != x0[0] || s.X()[1] != x0[1] {
		t.Errorf("x = %v, want the last accepted iterate %v", s.X(), x0)
	}
}

func TestSolve_ShrinkOnEvalFailure(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ShrinkOnEvalFailure = true
	cfg.Delta.DeltaInit = 1
	cfg.Delta.DeltaMin = 1e-3

	p := &failAfter{inner: *problems.NewRosenbrock(), ok: 1}
	s, err := New(p, &cfg)
	if err != nil {
		t.Fatal(err)
	}
	s.SetX([]float64{-1.2, 1})

	// every trial fails, so the radius shrinks by 4 until it collapses:
	// 1 -> 0.25 -> 0.0625 -> 0.015625 -> 0.00390625 -> clamp
	if st := s.Solve(); st != DeltaFailure {
		t.Fatalf("status = %v, want delta-failure", st)
	}
	if s.FEvals() != 6 {
		t.Errorf("fevals = %d, want 6", s.FEvals())
	}
	if s.Delta() != cfg.Delta.DeltaMin {
		t.Errorf("delta = %v, want %v", s.Delta(), cfg.Delta.DeltaMin)
	}
}

// logProblem is F(x) = ln(x), undefined for x <= 0. From x = 5 the Newton
// step lands at a negative x.
type logProblem struct{}

func (logProblem) Dim() int { return 1 }

func (logProblem) Evaluate(r, J, x []float64) bool {
	if x[0] <= 0 {
		return false
	}
	r[0] = math.Log(x[0])
	if J != nil {
		J[0] = 1 / x[0]
	}
	return true
}

func TestSolve_DomainViolation(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Delta.DeltaInit = 100

	s, _ := New(logProblem{}, &cfg)
	s.SetX([]float64{5})
	if st := s.Solve(); st != EvaluationFailure {
		t.Fatalf("status = %v, want evaluation-failure", st)
	}
	if s.X()[0] != 5 {
		t.Errorf("x = %v, want 5", s.X()[0])
	}

	cfg.ShrinkOnEvalFailure = true
	s, _ = New(logProblem{}, &cfg)
	s.SetX([]float64{5})
	if st := s.Solve(); st != Converged {
		t.Fatalf("status = %v after %d evaluations", st, s.FEvals())
	}
	if math.Abs(s.X()[0]-1) > 1e-12 {
		t.Errorf("x = %v, want 1", s.X()[0])
	}
}

func TestSolve_LinearTakesOneNewtonStep(t *testing.T) {
	p, err := problems.NewLinear([]float64{4, 1, 0, 1, 3, 1, 0, 1, 2}, []float64{1, 2, 3})
	if err != nil {
		t.Fatal(err)
	}
	cfg := DefaultConfig()
	cfg.Delta.DeltaInit = 10
	s, err := New(p, &cfg)
	if err != nil {
		t.Fatal(err)
	}

	var h History
	s.SetObserver(&h)
	if st := s.Solve(); st != Converged {
		t.Fatalf("status = %v", st)
	}
	if s.FEvals() != 2 || s.Iterations() != 1 {
		t.Errorf("fevals = %d, iterations = %d, want 2 and 1", s.FEvals(), s.Iterations())
	}
	if len(h.Iterations) != 2 || h.Iterations[1].Kind != dogleg.Newton {
		t.Errorf("history = %+v", h.Iterations)
	}
}

func TestSolve_AlreadyConverged(t *testing.T) {
	p, _ := problems.NewLinear([]float64{1, 0, 0, 1}, []float64{1, 1})
	s, _ := New(p, nil)
	s.SetX([]float64{1, 1})
	if st := s.Solve(); st != Converged || s.FEvals() != 1 || s.Iterations() != 0 {
		t.Errorf("status %v, fevals %d, iterations %d", st, s.FEvals(), s.Iterations())
	}
}

func TestSolve_MaxIterations(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxIterations = 3
	s, err := New(problems.NewPowellSingular(), &cfg)
	if err != nil {
		t.Fatal(err)
	}
	s.SetX([]float64{3, -1, 0, 1})
	if st := s.Solve(); st != MaxIterationsReached {
		t.Fatalf("status = %v", st)
	}
	if s.Iterations() != 3 || s.FEvals() != 4 {
		t.Errorf("iterations = %d, fevals = %d, want 3 and 4", s.Iterations(), s.FEvals())
	}
	var se *SolveError
	if !errors.As(s.Err(), &se) || se.Status != MaxIterationsReached || !errors.Is(s.Err(), ErrMaxIterations) {
		t.Errorf("Err() = %v", s.Err())
	}
}

func TestSolve_MaxFEvals(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxFEvals = 5
	s, _ := New(problems.NewPowellSingular(), &cfg)
	s.SetX([]float64{3, -1, 0, 1})
	if st := s.Solve(); st != MaxIterationsReached {
		t.Fatalf("status = %v", st)
	}
	if s.FEvals() != 5 {
		t.Errorf("fevals = %d, want 5", s.FEvals())
	}
}

func TestSolve_Idempotent(t *testing.T) {
	p := problems.NewBroyden(0.9999)
	cfg := broydenConfig(1)

	run := func() Result {
		s, err := New(p, cfg)
		if err != nil {
			t.Fatal(err)
		}
		s.Solve()
		return s.Result()
	}
	a, b := run(), run()
	if a.FEvals != b.FEvals || a.Status != b.Status {
		t.Fatalf("runs differ: %+v vs %+v", a, b)
	}
	for i := range a.X {
		if math.Float64bits(a.X[i]) != math.Float64bits(b.X[i]) {
			t.Errorf("x[%d]: %v vs %v", i, a.X[i], b.X[i])
		}
	}

	// a second Solve on the same solver from the same seed matches too
	s, _ := New(p, cfg)
	s.Solve()
	s.SetX(make([]float64, p.Dim()))
	s.Solve()
	if s.FEvals() != a.FEvals {
		t.Errorf("resolve fevals = %d, want %d", s.FEvals(), a.FEvals)
	}
}

// atanProblem is F(x) = atan(x). Newton's method diverges from |x| > 1.39.
type atanProblem struct{}

func (atanProblem) Dim() int { return 1 }

func (atanProblem) Evaluate(r, J, x []float64) bool {
	r[0] = math.Atan(x[0])
	if J != nil {
		J[0] = 1 / (1 + x[0]*x[0])
	}
	return true
}

func TestSolve_RejectedStepsKeepIterate(t *testing.T) {
	tests := []struct {
		name string
		p    Problem
		x0   []float64
		cfg  *Config
	}{
		{"atan", atanProblem{}, []float64{3}, broydenConfig(100)},
		{"broyden", problems.NewBroyden(0.99999999), make([]float64, problems.BroydenDim), broydenConfig(100)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := New(tt.p, tt.cfg)
			if err != nil {
				t.Fatal(err)
			}
			s.SetX(tt.x0)

			prev := make([]float64, tt.p.Dim())
			rejected := 0
			s.SetObserver(ObserverFunc(func(it Iteration) {
				x := s.X()
				if !it.Accepted {
					rejected++
					for i := range x {
						if x[i] != prev[i] {
							t.Fatalf("iteration %d rejected but x[%d] changed", it.Iteration, i)
						}
					}
				}
				if it.Delta < tt.cfg.Delta.DeltaMin {
					t.Fatalf("delta %g below minimum", it.Delta)
				}
				copy(prev, x)
			}))
			if st := s.Solve(); st != Converged {
				t.Fatalf("status = %v", st)
			}
			t.Logf("%d rejected steps", rejected)
			if tt.name == "atan" && rejected < 2 {
				t.Errorf("rejected = %d, want at least 2", rejected)
			}
		})
	}
}

func TestSolve_HistoryResiduals(t *testing.T) {
	s, _ := New(problems.NewRosenbrock(), nil)
	s.SetX([]float64{-1.2, 1})
	var h History
	s.SetObserver(&h)
	s.Solve()

	res := h.Residuals()
	if len(res) != s.Iterations()+1 {
		t.Fatalf("len = %d, want %d", len(res), s.Iterations()+1)
	}
	for i := 1; i < len(res); i++ {
		if res[i] > res[i-1] {
			t.Errorf("committed residual increased at %d: %g -> %g", i, res[i-1], res[i])
		}
	}
	if res[len(res)-1] != s.Residual() {
		t.Errorf("last residual %g, solver %g", res[len(res)-1], s.Residual())
	}
}

func TestNew_Errors(t *testing.T) {
	bad := DefaultConfig()
	bad.Tolerance = 0
	if _, err := New(problems.NewRosenbrock(), &bad); !errors.Is(err, ErrConfig) {
		t.Errorf("got %v, want ErrConfig", err)
	}
	if _, err := New(problems.AlwaysFail{N: 0}, nil); !errors.Is(err, ErrDimension) {
		t.Errorf("got %v, want ErrDimension", err)
	}
	if _, err := New(problems.AlwaysFail{N: 65}, nil); !errors.Is(err, ErrDimension) {
		t.Errorf("got %v, want ErrDimension", err)
	}

	s, _ := New(problems.NewRosenbrock(), nil)
	if err := s.SetX([]float64{1}); !errors.Is(err, ErrDimension) {
		t.Errorf("got %v, want ErrDimension", err)
	}
	if s.Status() != Unset {
		t.Errorf("status before solve = %v", s.Status())
	}
}

func TestNew_CopiesConfig(t *testing.T) {
	cfg := DefaultConfig()
	s, _ := New(problems.NewRosenbrock(), &cfg)
	cfg.MaxIterations = 1
	cfg.Delta.DeltaInit = 1e-6
	if s.Config().MaxIterations != DefaultMaxIterations || s.Delta() != 1 {
		t.Error("solver observed a change to the caller's config")
	}
}

func TestSolve_NoAllocations(t *testing.T) {
	s, _ := New(problems.NewBroyden(0.9999), broydenConfig(1))
	x0 := make([]float64, problems.BroydenDim)
	allocs := testing.AllocsPerRun(10, func() {
		copy(s.X(), x0)
		s.Solve()
	})
	if allocs != 0 {
		t.Errorf("Solve allocated %v times per run", allocs)
	}
}

func TestSolveHelper(t *testing.T) {
	res, err := Solve(problems.NewRosenbrock(), []float64{-1.2, 1}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(res.X[0]-1) > 1e-10 || math.Abs(res.X[1]-1) > 1e-10 {
		t.Errorf("x = %v, want [1 1]", res.X)
	}
}

func TestSolve_ConvergedDeltaFailure(t *testing.T) {
	// The Newton step from 1 lands inside the tolerance, but its ratio is
	// poor enough that the shrink hits DeltaMin.
	cfg := DefaultConfig()
	cfg.Tolerance = 0.6
	cfg.Delta.DeltaInit = 2
	cfg.Delta.DeltaMin = 0.5

	s, err := New(atanProblem{}, &cfg)
	if err != nil {
		t.Fatal(err)
	}
	s.SetX([]float64{1})

	st := s.Solve()
	if st != ConvergedDeltaFailure {
		t.Fatalf("status = %v, want converged-delta-failure", st)
	}
	if !st.Converged() || s.Err() != nil {
		t.Errorf("converged-delta-failure should count as converged, err = %v", s.Err())
	}
	if s.FEvals() != 2 {
		t.Errorf("fevals = %d, want 2", s.FEvals())
	}
	if s.Delta() != 0.5 {
		t.Errorf("delta = %g, want clamped to 0.5", s.Delta())
	}
	if want := 1 - math.Pi/2; math.Abs(s.X()[0]-want) > 1e-15 {
		t.Errorf("x = %g, want committed trial point %g", s.X()[0], want)
	}
}

// noRootProblem is F(x) = x² + 1.
type noRootProblem struct{}

func (noRootProblem) Dim() int { return 1 }

func (noRootProblem) Evaluate(r, J, x []float64) bool {
	r[0] = x[0]*x[0] + 1
	if J != nil {
		J[0] = 2 * x[0]
	}
	return true
}

// flatProblem has a constant nonzero residual and a zero Jacobian.
type flatProblem struct{}

func (flatProblem) Dim() int { return 2 }

func (flatProblem) Evaluate(r, J, x []float64) bool {
	r[0], r[1] = 2, -1
	if J != nil {
		for i := range J[:4] {
			J[i] = 0
		}
	}
	return true
}

func TestSolve_DeltaFailure(t *testing.T) {
	tests := []struct {
		name       string
		p          Problem
		x0         []float64
		wantFEvals int
	}{
		{"no real root", noRootProblem{}, []float64{0.5}, 64},
		{"zero jacobian", flatProblem{}, []float64{0.7, -3}, 53},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := New(tt.p, nil)
			if err != nil {
				t.Fatal(err)
			}
			s.SetX(tt.x0)

			prev := append([]float64(nil), tt.x0...)
			s.SetObserver(ObserverFunc(func(it Iteration) {
				x := s.X()
				if !it.Accepted {
					for i := range x {
						if x[i] != prev[i] {
							t.Fatalf("iteration %d rejected but x[%d] changed", it.Iteration, i)
						}
					}
				}
				copy(prev, x)
			}))

			if st := s.Solve(); st != DeltaFailure {
				t.Fatalf("status = %v, want delta-failure", st)
			}
			if s.FEvals() != tt.wantFEvals {
				t.Errorf("fevals = %d, want %d", s.FEvals(), tt.wantFEvals)
			}
			if s.Delta() != s.Config().Delta.DeltaMax {
				t.Errorf("delta = %g, want %g", s.Delta(), s.Config().Delta.DeltaMax)
			}
			if !errors.Is(s.Err(), ErrDeltaFailure) {
				t.Errorf("err = %v, want ErrDeltaFailure", s.Err())
			}
		})
	}

	t.Run("zero jacobian keeps x", func(t *testing.T) {
		s, _ := New(flatProblem{}, nil)
		s.SetX([]float64{0.7, -3})
		s.Solve()
		if x := s.X(); x[0] != 0.7 || x[1] != -3 {
			t.Errorf("x = %v, want unchanged", x)
		}
	})
}
