// Package problems provides nonlinear systems for exercising the solver.
//
// Each problem implements [solver.Problem]:
//
//   - [Broyden]: modified Broyden tridiagonal system with a homotopy
//     parameter that squares the last equation
//   - [Rosenbrock]: the two-equation Rosenbrock system
//   - [PowellSingular]: Powell's system with a singular Jacobian at the root
//   - [Viscoplastic]: implicit update of a one-dimensional rate-dependent
//     material point
//   - [Linear]: A·x = b
//   - [AlwaysFail]: an evaluator that never succeeds
//
// Most problems also implement [Configurable] for parameter adjustment and
// [Starter] for a conventional initial guess.
package problems
