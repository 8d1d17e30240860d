package linalg

import "math"

// Dot returns the inner product of a and b over len(a) entries.
func Dot(a, b []float64) float64 {
	b = b[:len(a)]
	sum := 0.0
	for i, v := range a {
		sum += v * b[i]
	}
	return sum
}

// Norm returns the Euclidean norm of v.
func Norm(v []float64) float64 {
	return math.Sqrt(Dot(v, v))
}

// Axpy computes y += alpha·x.
func Axpy(y []float64, alpha float64, x []float64) {
	x = x[:len(y)]
	for i := range y {
		y[i] += alpha * x[i]
	}
}

// Scale multiplies every entry of v by alpha.
func Scale(v []float64, alpha float64) {
	for i := range v {
		v[i] *= alpha
	}
}

// Zero clears v.
func Zero(v []float64) {
	for i := range v {
		v[i] = 0
	}
}

// MatVec computes y = A·x for the n×n row-major matrix a.
func MatVec(y, a, x []float64, n int) {
	y = y[:n]
	x = x[:n]
	for i := 0; i < n; i++ {
		y[i] = Dot(a[i*n:i*n+n], x)
	}
}

// MatTVec computes y = Aᵀ·x for the n×n row-major matrix a.
func MatTVec(y, a, x []float64, n int) {
	y = y[:n]
	x = x[:n]
	Zero(y)
	for i := 0; i < n; i++ {
		xi := x[i]
		if xi == 0 {
			continue
		}
		Axpy(y, xi, a[i*n:i*n+n])
	}
}

// IsFinite reports whether every entry of v is neither NaN nor infinite.
func IsFinite(v []float64) bool {
	for _, x := range v {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return false
		}
	}
	return true
}
