package problems

import (
	"errors"
	"fmt"
)

// ErrUnknownParam is returned by SetParam for a name the problem does not
// have.
var ErrUnknownParam = errors.New("problems: unknown parameter")

// ErrParamBounds is returned by SetParam for a value outside the valid
// range.
var ErrParamBounds = errors.New("problems: parameter out of valid bounds")

// Configurable is implemented by problems with tunable parameters.
type Configurable interface {
	GetParams() map[string]float64
	SetParam(name string, value float64) error
}

// Starter is implemented by problems with a conventional initial guess.
type Starter interface {
	DefaultX() []float64
}

// SetParams applies every entry of params to p.
func SetParams(p Configurable, params map[string]float64) error {
	for name, v := range params {
		if err := p.SetParam(name, v); err != nil {
			return err
		}
	}
	return nil
}

func unknownParam(problem, name string) error {
	return fmt.Errorf("%w: %s has no parameter %q", ErrUnknownParam, problem, name)
}

func outOfBounds(problem, name string, v float64) error {
	return fmt.Errorf("%w: %s.%s = %g", ErrParamBounds, problem, name, v)
}
