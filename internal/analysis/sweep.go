package analysis

import (
	"context"
	"fmt"

	"github.com/san-kum/dogleg/internal/problems"
	"github.com/san-kum/dogleg/internal/solver"
)

// Tunable is a problem whose parameters can be changed between solves.
type Tunable interface {
	solver.Problem
	problems.Configurable
}

// SweepPoint is the outcome of one solve in a sweep.
type SweepPoint struct {
	Param      float64
	Status     solver.Status
	FEvals     int
	Iterations int
	Residual   float64
	Order      float64 // NaN when no estimate was possible
}

// Sweep solves p at steps evenly spaced values of the named parameter in
// [lo, hi], each from x0, and restores its previous value afterwards. One
// solver is reused for every point.
func Sweep(ctx context.Context, p Tunable, name string, lo, hi float64, steps int, x0 []float64, cfg *solver.Config) ([]SweepPoint, error) {
	orig, ok := p.GetParams()[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", problems.ErrUnknownParam, name)
	}
	if steps < 2 {
		steps = 2
	}

	s, err := solver.New(p, cfg)
	if err != nil {
		return nil, err
	}
	var hist solver.History
	s.SetObserver(&hist)

	defer p.SetParam(name, orig)

	step := (hi - lo) / float64(steps-1)
	out := make([]SweepPoint, 0, steps)
	for i := 0; i < steps; i++ {
		if err := ctx.Err(); err != nil {
			return out, err
		}
		v := lo + float64(i)*step
		if err := p.SetParam(name, v); err != nil {
			return out, err
		}
		if p.Dim() != s.Dim() {
			return out, fmt.Errorf("%w: sweeping %q changed the dimension", solver.ErrDimension, name)
		}
		if err := s.SetX(x0); err != nil {
			return out, err
		}
		st := s.Solve()
		q, ok := Order(hist.Residuals())
		if !ok {
			q = nan
		}
		out = append(out, SweepPoint{
			Param:      v,
			Status:     st,
			FEvals:     s.FEvals(),
			Iterations: s.Iterations(),
			Residual:   s.Residual(),
			Order:      q,
		})
	}
	return out, nil
}
