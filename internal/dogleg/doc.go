// Package dogleg computes trust-region dogleg steps for F(x) = 0.
//
// Given the residual r and Jacobian J at the current iterate, the step
// follows the piecewise-linear path from the origin through the Cauchy
// point (the minimizer of ‖r + J·s‖ along -Jᵀr) to the Newton step
// (J·s = -r), stopping where the path leaves the trust region:
//
//	‖newton‖ <= delta      -> full Newton step
//	‖cauchy‖ >= delta      -> steepest descent cut to delta
//	otherwise              -> the segment point with ‖s‖ = delta
//
// When J is numerically singular the Newton step is skipped and the step
// stays on the steepest-descent direction. Nothing in this package reports
// an error; degenerate inputs only degrade the step.
package dogleg
