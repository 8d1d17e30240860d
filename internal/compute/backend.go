package compute

import (
	"context"
	"errors"
	"fmt"
	"runtime"
)

// MinParallelBatch is the smallest batch Auto hands to the parallel backend.
const MinParallelBatch = 16

var ErrUnknownBackend = errors.New("compute: unknown backend")

// Backend runs fn for every index in [0, n). Implementations may call fn
// concurrently for distinct indices; fn must not touch state belonging to
// another index.
type Backend interface {
	Name() string
	Workers() int
	Run(ctx context.Context, n int, fn func(i int)) error
}

// Auto returns the backend suited to a batch of n instances.
func Auto(n int) Backend {
	if n >= MinParallelBatch && runtime.NumCPU() > 1 {
		return NewParallel(0)
	}
	return NewSerial()
}

// New returns the backend called name. workers applies to the parallel
// backend; zero selects runtime.NumCPU. "auto" picks by batch size n.
func New(name string, workers, n int) (Backend, error) {
	switch name {
	case "serial":
		return NewSerial(), nil
	case "parallel":
		return NewParallel(workers), nil
	case "auto", "":
		b := Auto(n)
		if p, ok := b.(*Parallel); ok && workers > 0 {
			p.workers = workers
		}
		return b, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, name)
}

// Names lists the accepted backend names.
func Names() []string { return []string{"auto", "serial", "parallel"} }
