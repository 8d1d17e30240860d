package trust

import "math"

// Step describes the step whose outcome is being judged.
type Step struct {
	// Norm is the Euclidean length of the step.
	Norm float64
	// Newton is set when the step was the full Newton step.
	Newton bool
}

// Decision is the controller's verdict on a step.
type Decision struct {
	// Accept reports whether the trial point should replace the iterate.
	Accept bool
	// Failed reports that the radius collapsed to DeltaMin, or that the
	// model predicts no change while the radius is already at DeltaMax.
	Failed bool
}

// Controller owns the trust radius of one solve. It is not safe for
// concurrent use; each solver holds its own.
type Controller struct {
	ctl   *Control
	delta float64
	rho   float64
}

// NewController returns a controller bound to ctl, initialized to
// ctl.DeltaInit.
func NewController(ctl *Control) *Controller {
	c := &Controller{ctl: ctl}
	c.Initialize()
	return c
}

// Initialize resets the radius to DeltaInit.
func (c *Controller) Initialize() {
	c.delta = c.ctl.DeltaInit
	c.rho = 0
}

// Delta returns the current trust radius.
func (c *Controller) Delta() float64 { return c.delta }

// Rho returns the last computed reduction ratio.
func (c *Controller) Rho() float64 { return c.rho }

// Update adapts the radius from the outcome of a step. res0 is the residual
// norm at the current iterate, res the norm at the trial point and predRes
// the norm predicted by the local linear model.
func (c *Controller) Update(res, res0, predRes float64, s Step) Decision {
	ctl := c.ctl
	actual := res - res0
	predicted := predRes - res0

	d := Decision{Accept: !(actual > 0 && ctl.RejectResidualIncrease)}

	if predicted == 0 {
		// the model sees no progress at all; widen the region or give up
		d.Accept = false
		if c.delta >= ctl.DeltaMax {
			d.Failed = true
			return d
		}
		c.delta = math.Min(c.delta*ctl.ForcedGrowFactor, ctl.DeltaMax)
		return d
	}

	c.rho = actual / predicted
	switch {
	case c.rho > ctl.AcceptRatioLow && c.rho < ctl.AcceptRatioHigh && actual < 0:
		if !s.Newton {
			c.grow()
		}
	case c.rho < ctl.ShrinkRatioLow || c.rho > ctl.ShrinkRatioHigh:
		if !c.Shrink(s) {
			d.Failed = true
		}
	}
	return d
}

// Shrink reduces the radius after a poor step. After a full Newton step the
// radius becomes the geometric mean of the shrunk radius and the shrunk
// Newton length, which guarantees the next step is shorter than the one
// just tried. Shrink reports false once the radius reaches DeltaMin.
func (c *Controller) Shrink(s Step) bool {
	ctl := c.ctl
	if s.Newton {
		c.delta = math.Sqrt((c.delta * ctl.ShrinkFactor) * (s.Norm * ctl.ShrinkFactor))
	} else {
		c.delta *= ctl.ShrinkFactor
	}
	if c.delta < ctl.DeltaMin {
		c.delta = ctl.DeltaMin
		return false
	}
	return true
}

func (c *Controller) grow() {
	c.delta = math.Min(c.delta*c.ctl.GrowFactor, c.ctl.DeltaMax)
}
