package experiment

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"math/rand"

	"github.com/san-kum/dogleg/internal/batch"
	"github.com/san-kum/dogleg/internal/compute"
	"github.com/san-kum/dogleg/internal/config"
	"github.com/san-kum/dogleg/internal/metrics"
	"github.com/san-kum/dogleg/internal/problems"
	"github.com/san-kum/dogleg/internal/solver"
)

// Experiment turns a Config into solves.
type Experiment struct {
	cfg        *config.Config
	registry   *Registry
	randSource *rand.Rand
	logger     *slog.Logger
	recorder   *metrics.Recorder
}

func New(cfg *config.Config, registry *Registry) *Experiment {
	return &Experiment{
		cfg:        cfg,
		registry:   registry,
		randSource: rand.New(rand.NewSource(cfg.Batch.Seed)),
		logger:     slog.New(slog.DiscardHandler),
	}
}

func (e *Experiment) SetLogger(l *slog.Logger)        { e.logger = l }
func (e *Experiment) SetRecorder(r *metrics.Recorder) { e.recorder = r }

func (e *Experiment) Config() *config.Config { return e.cfg }

// Problem builds a fresh instance of the configured problem.
func (e *Experiment) Problem() (solver.Problem, error) {
	return e.registry.GetProblem(e.cfg.Problem, e.cfg.Params)
}

// InitialX returns the configured start, falling back to the problem's
// default start and then to zero.
func (e *Experiment) InitialX(p solver.Problem) ([]float64, error) {
	n := p.Dim()
	if len(e.cfg.X0) > 0 {
		if len(e.cfg.X0) != n {
			return nil, fmt.Errorf("%w: x0 has %d entries, %s needs %d", solver.ErrDimension, len(e.cfg.X0), e.cfg.Problem, n)
		}
		return append([]float64(nil), e.cfg.X0...), nil
	}
	if s, ok := p.(problems.Starter); ok {
		return s.DefaultX(), nil
	}
	return make([]float64, n), nil
}

// Solve runs a single solve, reporting every iteration to obs when non-nil.
func (e *Experiment) Solve(obs solver.Observer) (*solver.Solver[solver.Problem], error) {
	p, err := e.Problem()
	if err != nil {
		return nil, err
	}
	x0, err := e.InitialX(p)
	if err != nil {
		return nil, err
	}
	s, err := solver.New(p, &e.cfg.Solver)
	if err != nil {
		return nil, err
	}
	if err := s.SetX(x0); err != nil {
		return nil, err
	}

	var observers solver.Observers
	if obs != nil {
		observers = append(observers, obs)
	}
	if e.recorder != nil {
		observers = append(observers, e.recorder.StepObserver())
	}
	if len(observers) > 0 {
		s.SetObserver(observers)
	}

	st := s.Solve()
	if e.recorder != nil {
		e.recorder.ObserveResult(s.Result())
	}
	e.logger.Info("solve finished",
		slog.String("problem", e.cfg.Problem),
		slog.String("status", st.String()),
		slog.Int("iterations", s.Iterations()),
		slog.Int("fevals", s.FEvals()),
		slog.Float64("residual", s.Residual()),
	)
	return s, nil
}

// Batch builds Batch.Instances independent instances, perturbs each start by
// Gaussian jitter of relative size Batch.Jitter, and solves them all.
func (e *Experiment) Batch(ctx context.Context) ([]batch.Outcome, error) {
	bc := e.cfg.Batch
	ps := make([]solver.Problem, bc.Instances)
	x0 := make([][]float64, bc.Instances)
	for i := range ps {
		p, err := e.Problem()
		if err != nil {
			return nil, err
		}
		start, err := e.InitialX(p)
		if err != nil {
			return nil, err
		}
		if bc.Jitter > 0 {
			for j := range start {
				start[j] += bc.Jitter * (1 + math.Abs(start[j])) * e.randSource.NormFloat64()
			}
		}
		ps[i], x0[i] = p, start
	}

	backend, err := compute.New(bc.Backend, bc.Workers, bc.Instances)
	if err != nil {
		return nil, err
	}
	opts := []batch.Option{batch.WithBackend(backend), batch.WithLogger(e.logger)}
	if e.recorder != nil {
		opts = append(opts, batch.WithRecorder(e.recorder))
	}
	return batch.Run(ctx, ps, x0, &e.cfg.Solver, opts...)
}
