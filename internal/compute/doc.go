// Package compute provides execution backends for batches of independent
// solves.
//
//   - Serial: every instance on the calling goroutine
//   - Parallel: contiguous chunks of instances on a bounded errgroup
//
// Auto picks Parallel for batches of at least MinParallelBatch instances:
//
//	backend := compute.Auto(len(problems))
//	err := backend.Run(ctx, len(problems), func(i int) {
//	    outcomes[i] = solve(i)
//	})
//
// Both backends check the context between instances, never inside one.
package compute
