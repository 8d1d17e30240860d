// Package linalg provides the dense kernels used by the nonlinear solver.
//
// Every routine works in place on caller-provided storage and never
// allocates, so the same code path is used whether a solve runs alone on
// one goroutine or as one of thousands of instances in a batch.
//
// Matrices are square and stored row-major in a flat slice; entry (i, j)
// of an n×n matrix lives at [Idx](i, j, n).
//
//	piv := make([]int, n)
//	if !linalg.Solve(a, b, n, piv, linalg.PivotTolerance) {
//	    // near-singular: a is destroyed, b is unspecified
//	}
package linalg
