package solver

import (
	"fmt"

	"github.com/san-kum/dogleg/internal/linalg"
	"github.com/san-kum/dogleg/internal/trust"
)

const (
	DefaultMaxIterations = 200
	DefaultTolerance     = 1e-12
)

// Config controls a solve. A Config is copied when a Solver is built, so one
// value can seed any number of concurrently running solvers.
type Config struct {
	MaxIterations int     `yaml:"max_iterations" json:"max_iterations" validate:"gt=0"`
	Tolerance     float64 `yaml:"tolerance" json:"tolerance" validate:"gt=0"`
	// MaxFEvals caps residual evaluations; zero means no cap beyond
	// MaxIterations.
	MaxFEvals int `yaml:"max_fevals" json:"max_fevals" validate:"gte=0"`
	// PivotTolerance is the relative threshold below which the Jacobian is
	// treated as singular and the Newton step is skipped.
	PivotTolerance float64 `yaml:"pivot_tolerance" json:"pivot_tolerance" validate:"gte=0"`
	// ShrinkOnEvalFailure turns a failed trial evaluation into a rejected
	// step with a shrunk radius instead of a terminal EvaluationFailure.
	ShrinkOnEvalFailure bool `yaml:"shrink_on_eval_failure" json:"shrink_on_eval_failure"`

	Delta trust.Control `yaml:"delta" json:"delta"`
}

// DefaultConfig returns the standard configuration.
func DefaultConfig() Config {
	return Config{
		MaxIterations:  DefaultMaxIterations,
		Tolerance:      DefaultTolerance,
		PivotTolerance: linalg.PivotTolerance,
		Delta:          trust.DefaultControl(),
	}
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	if c.MaxIterations <= 0 {
		return fmt.Errorf("%w: max iterations must be positive, got %d", ErrConfig, c.MaxIterations)
	}
	if !(c.Tolerance > 0) {
		return fmt.Errorf("%w: tolerance must be positive, got %g", ErrConfig, c.Tolerance)
	}
	if c.MaxFEvals < 0 {
		return fmt.Errorf("%w: max evaluations must be non-negative, got %d", ErrConfig, c.MaxFEvals)
	}
	if !(c.PivotTolerance >= 0) {
		return fmt.Errorf("%w: pivot tolerance must be non-negative, got %g", ErrConfig, c.PivotTolerance)
	}
	if err := c.Delta.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrConfig, err)
	}
	return nil
}
