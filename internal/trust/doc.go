// Package trust implements the trust-region radius controller.
//
// A [Control] carries the policy (radius bounds, ratio bands, growth and
// shrink factors) and is shared read-only; a [Controller] carries the
// radius of a single solve. The controller only sees residual norms and a
// short description of the step, so it works with any step generator.
package trust
