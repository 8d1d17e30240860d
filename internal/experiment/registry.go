package experiment

import (
	"fmt"
	"sort"

	"github.com/san-kum/dogleg/internal/problems"
	"github.com/san-kum/dogleg/internal/solver"
)

// Factory builds a fresh problem instance from parameters.
type Factory func(params map[string]float64) (solver.Problem, error)

type Registry struct {
	problems     map[string]Factory
	descriptions map[string]string
}

func NewRegistry() *Registry {
	r := &Registry{
		problems:     make(map[string]Factory),
		descriptions: make(map[string]string),
	}

	r.Register("broyden", "modified Broyden tridiagonal system (params: lambda, n)",
		configurable(func() configurableProblem { return problems.NewBroyden(0.9999) }))
	r.Register("rosenbrock", "two-equation Rosenbrock system (params: a)",
		configurable(func() configurableProblem { return problems.NewRosenbrock() }))
	r.Register("powell", "Powell singular system",
		func(params map[string]float64) (solver.Problem, error) {
			if len(params) > 0 {
				return nil, fmt.Errorf("%w: powell takes no parameters", problems.ErrUnknownParam)
			}
			return problems.NewPowellSingular(), nil
		})
	r.Register("viscoplastic", "rate-dependent material point update (params: modulus, strain, resistance, exponent, rate, dt, hardening)",
		configurable(func() configurableProblem { return problems.NewViscoplastic() }))

	return r
}

type configurableProblem interface {
	solver.Problem
	problems.Configurable
}

func configurable(newProblem func() configurableProblem) Factory {
	return func(params map[string]float64) (solver.Problem, error) {
		p := newProblem()
		if err := problems.SetParams(p, params); err != nil {
			return nil, err
		}
		return p, nil
	}
}

// Register adds or replaces a problem.
func (r *Registry) Register(name, description string, f Factory) {
	r.problems[name] = f
	r.descriptions[name] = description
}

func (r *Registry) GetProblem(name string, params map[string]float64) (solver.Problem, error) {
	fn, ok := r.problems[name]
	if !ok {
		return nil, fmt.Errorf("unknown problem: %s", name)
	}
	return fn(params)
}

func (r *Registry) Describe(name string) string {
	return r.descriptions[name]
}

func (r *Registry) ListProblems() []string {
	names := make([]string, 0, len(r.problems))
	for name := range r.problems {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
