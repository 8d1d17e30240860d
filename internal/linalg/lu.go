package linalg

import "math"

// MaxDim is the largest system dimension the solver accepts.
const MaxDim = 64

// PivotTolerance is the default relative pivot threshold. A pivot whose
// magnitude is at most PivotTolerance times the largest entry of the
// matrix marks the matrix as numerically singular.
const PivotTolerance = 1e-14

// Idx returns the flat row-major offset of entry (i, j) in an n×n matrix.
func Idx(i, j, n int) int { return i*n + j }

// Factor computes the LU factorization with partial pivoting P·A = L·U of
// the n×n matrix a in place. On return the strict lower triangle of a holds
// the multipliers of L (unit diagonal implied), the upper triangle holds U,
// and piv[k] records the row swapped with row k at elimination step k.
//
// Factor reports false when a contains a non-finite entry, is identically
// zero, or meets a pivot with |pivot| <= tol·max|a_ij|. The contents of a
// are unspecified after a failure.
func Factor(a []float64, n int, piv []int, tol float64) bool {
	a = a[:n*n]
	piv = piv[:n]

	scale := 0.0
	for _, v := range a {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
		if av := math.Abs(v); av > scale {
			scale = av
		}
	}
	if scale == 0 {
		return false
	}
	thresh := tol * scale

	for k := 0; k < n; k++ {
		p := k
		pmax := math.Abs(a[k*n+k])
		for i := k + 1; i < n; i++ {
			if v := math.Abs(a[i*n+k]); v > pmax {
				p, pmax = i, v
			}
		}
		if pmax <= thresh {
			return false
		}

		piv[k] = p
		if p != k {
			rk := a[k*n : k*n+n]
			rp := a[p*n : p*n+n]
			for j := range rk {
				rk[j], rp[j] = rp[j], rk[j]
			}
		}

		pivot := a[k*n+k]
		for i := k + 1; i < n; i++ {
			l := a[i*n+k] / pivot
			a[i*n+k] = l
			if l == 0 {
				continue
			}
			for j := k + 1; j < n; j++ {
				a[i*n+j] -= l * a[k*n+j]
			}
		}
	}
	return true
}

// SolveFactored overwrites b with the solution of A·x = b, where lu and piv
// come from a successful call to Factor.
func SolveFactored(lu []float64, n int, piv []int, b []float64) {
	lu = lu[:n*n]
	b = b[:n]

	for k := 0; k < n; k++ {
		if p := piv[k]; p != k {
			b[k], b[p] = b[p], b[k]
		}
	}

	// L·y = P·b, unit diagonal
	for i := 1; i < n; i++ {
		sum := b[i]
		row := lu[i*n : i*n+i]
		for j, l := range row {
			sum -= l * b[j]
		}
		b[i] = sum
	}

	// U·x = y
	for i := n - 1; i >= 0; i-- {
		sum := b[i]
		for j := i + 1; j < n; j++ {
			sum -= lu[i*n+j] * b[j]
		}
		b[i] = sum / lu[i*n+i]
	}
}

// Solve factors a in place and overwrites b with the solution of a·x = b.
// It reports false, leaving b untouched, when a is numerically singular.
func Solve(a, b []float64, n int, piv []int, tol float64) bool {
	if !Factor(a, n, piv, tol) {
		return false
	}
	SolveFactored(a, n, piv, b)
	return true
}
