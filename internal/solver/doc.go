// Package solver drives the trust-region dogleg Newton iteration for small
// dense nonlinear systems F(x) = 0.
//
// A Solver owns a fixed arena sized from the problem dimension. Each call
// to Solve evaluates the problem at the current iterate, then repeatedly
// computes a dogleg step for the current trust radius, evaluates the trial
// point, and lets the trust controller accept or reject it. The committed
// iterate, residual and Jacobian always come from the same evaluation.
//
// The outcome of a solve is its Status. Only Converged and
// ConvergedDeltaFailure mean the final iterate satisfies the tolerance;
// anything else leaves a best-effort iterate.
//
//	s, err := solver.New(problems.NewBroyden(0.9999), nil)
//	if err != nil {
//		return err
//	}
//	if st := s.Solve(); !st.Converged() {
//		return s.Err()
//	}
//
// # Thread Safety
//
// A Solver is not safe for concurrent use. Distinct solvers share nothing
// and may run on separate goroutines, including solvers built from the same
// Config value.
package solver
