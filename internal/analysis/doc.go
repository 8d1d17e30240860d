// Package analysis characterizes solver runs.
//
// The package includes tools for looking at how a solve converged and how
// that changes with a problem parameter:
//
//   - [Rates]: ratio of successive residual norms
//   - [Order]: empirical order of convergence from the residual history
//   - [Summarize]: step counts by kind and acceptance for one solve
//   - [Sweep]: solve a configurable problem across a parameter range
//
// # Convergence Order
//
// Newton-like iterations near a regular root show order close to 2:
//
//	q, ok := analysis.Order(hist.Residuals())
//	if ok && q > 1.8 {
//	    // quadratic tail
//	}
package analysis
