package problems

// Rosenbrock is F(x) = (A·(x1 - x0²), 1 - x0), whose only root is (1, 1).
type Rosenbrock struct {
	A float64
}

func NewRosenbrock() *Rosenbrock { return &Rosenbrock{A: 10} }

func (p *Rosenbrock) Dim() int { return 2 }

func (p *Rosenbrock) DefaultX() []float64 { return []float64{-1.2, 1} }

func (p *Rosenbrock) Evaluate(r, J, x []float64) bool {
	r[0] = p.A * (x[1] - x[0]*x[0])
	r[1] = 1 - x[0]
	if J != nil {
		J[0], J[1] = -2*p.A*x[0], p.A
		J[2], J[3] = -1, 0
	}
	return true
}

func (p *Rosenbrock) GetParams() map[string]float64 {
	return map[string]float64{"a": p.A}
}

func (p *Rosenbrock) SetParam(name string, v float64) error {
	if name != "a" {
		return unknownParam("rosenbrock", name)
	}
	if v == 0 {
		return outOfBounds("rosenbrock", name, v)
	}
	p.A = v
	return nil
}
