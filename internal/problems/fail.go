package problems

// AlwaysFail reports failure at every point without touching its outputs.
type AlwaysFail struct {
	N int
}

func (f AlwaysFail) Dim() int { return f.N }

func (AlwaysFail) Evaluate(_, _, _ []float64) bool { return false }
