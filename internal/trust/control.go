package trust

import (
	"errors"
	"fmt"
)

// Parameter errors returned by Control.Validate.
var (
	ErrDeltaBounds = errors.New("trust: delta bounds must satisfy 0 < min <= init <= max")
	ErrRatioBands  = errors.New("trust: ratio bands must satisfy shrinkLow <= acceptLow < acceptHigh <= shrinkHigh")
	ErrFactor      = errors.New("trust: shrink factor must be in (0,1) and grow factors must exceed 1")
)

// Control holds the trust-radius policy. A Control is read-only once a solve
// begins and may be shared by any number of concurrently running solvers.
//
// The ratio bands act on rho = actual change / predicted change of the
// residual norm:
//
//	rho in (AcceptRatioLow, AcceptRatioHigh) and norm decreased -> grow
//	rho < ShrinkRatioLow or rho > ShrinkRatioHigh               -> shrink
//	otherwise                                                   -> keep
type Control struct {
	DeltaInit float64 `yaml:"delta_init" json:"delta_init" validate:"gt=0"`
	DeltaMin  float64 `yaml:"delta_min" json:"delta_min" validate:"gt=0"`
	DeltaMax  float64 `yaml:"delta_max" json:"delta_max" validate:"gt=0"`

	AcceptRatioLow  float64 `yaml:"accept_ratio_low" json:"accept_ratio_low"`
	AcceptRatioHigh float64 `yaml:"accept_ratio_high" json:"accept_ratio_high"`
	ShrinkRatioLow  float64 `yaml:"shrink_ratio_low" json:"shrink_ratio_low"`
	ShrinkRatioHigh float64 `yaml:"shrink_ratio_high" json:"shrink_ratio_high"`

	GrowFactor       float64 `yaml:"grow_factor" json:"grow_factor" validate:"gt=1"`
	ShrinkFactor     float64 `yaml:"shrink_factor" json:"shrink_factor" validate:"gt=0,lt=1"`
	ForcedGrowFactor float64 `yaml:"forced_grow_factor" json:"forced_grow_factor" validate:"gt=1"`

	// RejectResidualIncrease rejects any step that increases the residual
	// norm, whatever its ratio.
	RejectResidualIncrease bool `yaml:"reject_residual_increase" json:"reject_residual_increase"`
}

// DefaultControl returns the standard policy.
func DefaultControl() Control {
	return Control{
		DeltaInit:              1.0,
		DeltaMin:               1e-12,
		DeltaMax:               1e4,
		AcceptRatioLow:         0.75,
		AcceptRatioHigh:        1.4,
		ShrinkRatioLow:         0.35,
		ShrinkRatioHigh:        5.0,
		GrowFactor:             1.5,
		ShrinkFactor:           0.25,
		ForcedGrowFactor:       1.2,
		RejectResidualIncrease: true,
	}
}

// Validate checks the parameters for internal consistency.
func (c *Control) Validate() error {
	if !(c.DeltaMin > 0 && c.DeltaMin <= c.DeltaInit && c.DeltaInit <= c.DeltaMax) {
		return fmt.Errorf("%w: min=%g init=%g max=%g", ErrDeltaBounds, c.DeltaMin, c.DeltaInit, c.DeltaMax)
	}
	if !(c.ShrinkRatioLow <= c.AcceptRatioLow && c.AcceptRatioLow < c.AcceptRatioHigh && c.AcceptRatioHigh <= c.ShrinkRatioHigh) {
		return fmt.Errorf("%w: %g <= %g < %g <= %g", ErrRatioBands,
			c.ShrinkRatioLow, c.AcceptRatioLow, c.AcceptRatioHigh, c.ShrinkRatioHigh)
	}
	if !(c.ShrinkFactor > 0 && c.ShrinkFactor < 1) || !(c.GrowFactor > 1) || !(c.ForcedGrowFactor > 1) {
		return fmt.Errorf("%w: shrink=%g grow=%g forced=%g", ErrFactor, c.ShrinkFactor, c.GrowFactor, c.ForcedGrowFactor)
	}
	return nil
}
