package compute

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
)

func TestBackendsVisitEveryIndexOnce(t *testing.T) {
	backends := []Backend{NewSerial(), NewParallel(1), NewParallel(3), NewParallel(64)}
	for _, b := range backends {
		for _, n := range []int{0, 1, 7, 100} {
			counts := make([]int32, n)
			if err := b.Run(context.Background(), n, func(i int) {
				atomic.AddInt32(&counts[i], 1)
			}); err != nil {
				t.Fatalf("%s/%d: %v", b.Name(), b.Workers(), err)
			}
			for i, c := range counts {
				if c != 1 {
					t.Errorf("%s/%d n=%d: index %d visited %d times", b.Name(), b.Workers(), n, i, c)
				}
			}
		}
	}
}

func TestBackendsStopOnCancel(t *testing.T) {
	for _, b := range []Backend{NewSerial(), NewParallel(2)} {
		ctx, cancel := context.WithCancel(context.Background())
		var visited int32
		err := b.Run(ctx, 1000, func(i int) {
			if atomic.AddInt32(&visited, 1) == 1 {
				cancel()
			}
		})
		if !errors.Is(err, context.Canceled) {
			t.Errorf("%s: err = %v, want context.Canceled", b.Name(), err)
		}
		if visited >= 1000 {
			t.Errorf("%s: visited all instances after cancel", b.Name())
		}
		cancel()
	}
}

func TestNew(t *testing.T) {
	tests := []struct {
		name     string
		workers  int
		n        int
		wantName string
		wantErr  bool
	}{
		{"serial", 4, 100, "serial", false},
		{"parallel", 3, 1, "parallel", false},
		{"auto", 0, 1, "serial", false},
		{"", 0, 1, "serial", false},
		{"gpu", 0, 1, "", true},
	}
	for _, tt := range tests {
		b, err := New(tt.name, tt.workers, tt.n)
		if tt.wantErr {
			if !errors.Is(err, ErrUnknownBackend) {
				t.Errorf("%q: err = %v", tt.name, err)
			}
			continue
		}
		if err != nil || b.Name() != tt.wantName {
			t.Errorf("%q: got %v, %v", tt.name, b, err)
		}
	}

	p, _ := New("parallel", 3, 1)
	if p.Workers() != 3 {
		t.Errorf("workers = %d, want 3", p.Workers())
	}
	if NewParallel(0).Workers() < 1 {
		t.Error("default worker count must be positive")
	}
}
