package problems

import "math"

// Viscoplastic is the implicit update of a one-dimensional rate-dependent
// material point over one time increment. The unknowns are the stress σ
// and the plastic slip increment Δγ:
//
//	r0 = σ - E·(ε - Δγ)
//	r1 = Δγ - dt·γ̇0·sgn(σ)·|σ/g|^m,   g = g0 + h·Δγ
//
// Evaluation fails when the slip resistance g is not positive, which makes
// this a natural test of domain violations during a solve.
type Viscoplastic struct {
	Modulus    float64 // E
	Strain     float64 // ε, total strain at the end of the increment
	Resistance float64 // g0
	Exponent   float64 // m
	RefRate    float64 // γ̇0
	Dt         float64
	Hardening  float64 // h
}

func NewViscoplastic() *Viscoplastic {
	return &Viscoplastic{
		Modulus:    10,
		Strain:     0.2,
		Resistance: 1,
		Exponent:   2,
		RefRate:    0.1,
		Dt:         1,
		Hardening:  1,
	}
}

func (v *Viscoplastic) Dim() int { return 2 }

// DefaultX is the elastic predictor.
func (v *Viscoplastic) DefaultX() []float64 {
	return []float64{v.Modulus * v.Strain, 0}
}

func (v *Viscoplastic) Evaluate(r, J, x []float64) bool {
	sigma, dg := x[0], x[1]
	g := v.Resistance + v.Hardening*dg
	if !(g > 0) {
		return false
	}

	u := sigma / g
	au := math.Abs(u)
	rate := v.RefRate * math.Copysign(math.Pow(au, v.Exponent), u)

	r[0] = sigma - v.Modulus*(v.Strain-dg)
	r[1] = dg - v.Dt*rate

	if J != nil {
		// d rate / d u = γ̇0·m·|u|^(m-1)
		drate := v.RefRate * v.Exponent * math.Pow(au, v.Exponent-1)
		J[0], J[1] = 1, v.Modulus
		J[2] = -v.Dt * drate / g
		J[3] = 1 + v.Dt*drate*sigma*v.Hardening/(g*g)
	}
	return true
}

func (v *Viscoplastic) GetParams() map[string]float64 {
	return map[string]float64{
		"modulus":    v.Modulus,
		"strain":     v.Strain,
		"resistance": v.Resistance,
		"exponent":   v.Exponent,
		"rate":       v.RefRate,
		"dt":         v.Dt,
		"hardening":  v.Hardening,
	}
}

func (v *Viscoplastic) SetParam(name string, val float64) error {
	switch name {
	case "modulus":
		if !(val > 0) {
			return outOfBounds("viscoplastic", name, val)
		}
		v.Modulus = val
	case "strain":
		v.Strain = val
	case "resistance":
		if !(val > 0) {
			return outOfBounds("viscoplastic", name, val)
		}
		v.Resistance = val
	case "exponent":
		if !(val >= 1) {
			return outOfBounds("viscoplastic", name, val)
		}
		v.Exponent = val
	case "rate":
		if val < 0 {
			return outOfBounds("viscoplastic", name, val)
		}
		v.RefRate = val
	case "dt":
		if !(val > 0) {
			return outOfBounds("viscoplastic", name, val)
		}
		v.Dt = val
	case "hardening":
		v.Hardening = val
	default:
		return unknownParam("viscoplastic", name)
	}
	return nil
}
