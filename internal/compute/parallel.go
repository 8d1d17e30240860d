package compute

import (
	"context"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// Parallel fans instances out over a bounded set of goroutines. Indices are
// split into contiguous chunks, one per worker.
type Parallel struct {
	workers int
}

// NewParallel returns a parallel backend with the given worker count; zero
// or negative selects runtime.NumCPU.
func NewParallel(workers int) *Parallel {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	return &Parallel{workers: workers}
}

func (p *Parallel) Name() string { return "parallel" }
func (p *Parallel) Workers() int { return p.workers }

func (p *Parallel) Run(ctx context.Context, n int, fn func(i int)) error {
	if n == 0 {
		return ctx.Err()
	}
	workers := p.workers
	if workers > n {
		workers = n
	}
	chunkSize := (n + workers - 1) / workers

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for start := 0; start < n; start += chunkSize {
		end := start + chunkSize
		if end > n {
			end = n
		}
		g.Go(func() error {
			for i := start; i < end; i++ {
				if err := ctx.Err(); err != nil {
					return err
				}
				fn(i)
			}
			return nil
		})
	}
	return g.Wait()
}
