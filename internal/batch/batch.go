// Package batch solves many independent problem instances with one
// configuration.
//
// Every instance gets its own solver and storage. The configuration is
// shared read-only, and instances never observe each other: a failed or
// diverging instance only affects its own Outcome.
package batch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/san-kum/dogleg/internal/compute"
	"github.com/san-kum/dogleg/internal/metrics"
	"github.com/san-kum/dogleg/internal/solver"
)

// ErrInput indicates x0 does not match the problems.
var ErrInput = errors.New("batch: invalid input")

// Outcome is the result of one instance.
type Outcome struct {
	Index int `json:"index"`
	solver.Result
}

type outcomeJSON struct {
	Index  int           `json:"index"`
	Result solver.Result `json:"result"`
}

// MarshalJSON nests the result so its own encoding is not promoted over
// the index.
func (o Outcome) MarshalJSON() ([]byte, error) {
	return json.Marshal(outcomeJSON{Index: o.Index, Result: o.Result})
}

func (o *Outcome) UnmarshalJSON(b []byte) error {
	var in outcomeJSON
	if err := json.Unmarshal(b, &in); err != nil {
		return err
	}
	o.Index, o.Result = in.Index, in.Result
	return nil
}

// Options configures a batch run.
type Options struct {
	Backend  compute.Backend
	Logger   *slog.Logger
	Recorder *metrics.Recorder
}

type Option func(*Options)

// WithBackend selects the execution backend. The default is
// compute.Auto(len(problems)).
func WithBackend(b compute.Backend) Option {
	return func(o *Options) { o.Backend = b }
}

// WithLogger sets the logger for per-instance and summary records.
func WithLogger(l *slog.Logger) Option {
	return func(o *Options) { o.Logger = l }
}

// WithRecorder records every outcome and step on r.
func WithRecorder(r *metrics.Recorder) Option {
	return func(o *Options) { o.Recorder = r }
}

type starter interface {
	DefaultX() []float64
}

// Run solves problems[i] from x0[i]. x0 may be nil (each problem's default
// start, or zero), a single vector used for every instance, or one vector
// per instance. cfg nil selects solver.DefaultConfig.
//
// Run returns an error only for invalid input or when ctx is canceled; in
// the latter case outcomes for instances that did not run are Unset.
func Run[P solver.Problem](ctx context.Context, problems []P, x0 [][]float64, cfg *solver.Config, opts ...Option) ([]Outcome, error) {
	o := Options{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.Backend == nil {
		o.Backend = compute.Auto(len(problems))
	}
	if o.Logger == nil {
		o.Logger = slog.New(slog.DiscardHandler)
	}
	if len(x0) > 1 && len(x0) != len(problems) {
		return nil, fmt.Errorf("%w: %d starting points for %d problems", ErrInput, len(x0), len(problems))
	}

	solvers := make([]*solver.Solver[P], len(problems))
	outcomes := make([]Outcome, len(problems))
	for i, p := range problems {
		s, err := solver.New(p, cfg)
		if err != nil {
			return nil, fmt.Errorf("instance %d: %w", i, err)
		}
		if start := startFor(p, x0, i); start != nil {
			if err := s.SetX(start); err != nil {
				return nil, fmt.Errorf("instance %d: %w", i, err)
			}
		}
		if o.Recorder != nil {
			s.SetObserver(o.Recorder.StepObserver())
		}
		solvers[i] = s
		outcomes[i] = Outcome{Index: i}
	}

	start := time.Now()
	err := o.Backend.Run(ctx, len(solvers), func(i int) {
		s := solvers[i]
		s.Solve()
		outcomes[i].Result = s.Result()
	})
	elapsed := time.Since(start)

	for i := range outcomes {
		out := &outcomes[i]
		if out.Status == solver.Unset {
			continue
		}
		if o.Recorder != nil {
			o.Recorder.ObserveResult(out.Result)
		}
		if !out.Status.Converged() {
			o.Logger.Debug("instance did not converge",
				slog.Int("index", i),
				slog.String("status", out.Status.String()),
				slog.Int("fevals", out.FEvals),
				slog.Float64("residual", out.Residual),
			)
		}
	}
	if o.Recorder != nil {
		o.Recorder.ObserveBatch(o.Backend.Name(), elapsed)
	}

	sum := Summarize(outcomes)
	o.Logger.Info("batch finished",
		slog.String("backend", o.Backend.Name()),
		slog.Int("workers", o.Backend.Workers()),
		slog.Int("instances", sum.Total),
		slog.Int("converged", sum.Converged),
		slog.Duration("elapsed", elapsed),
	)

	if err != nil {
		return outcomes, fmt.Errorf("batch interrupted: %w", err)
	}
	return outcomes, nil
}

func startFor[P solver.Problem](p P, x0 [][]float64, i int) []float64 {
	switch {
	case len(x0) == 1:
		return x0[0]
	case len(x0) > 1:
		return x0[i]
	}
	if s, ok := any(p).(starter); ok {
		return s.DefaultX()
	}
	return nil
}
