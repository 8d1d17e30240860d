package batch_test

import (
	"context"
	"testing"

	"github.com/san-kum/dogleg/internal/batch"
	"github.com/san-kum/dogleg/internal/compute"
	"github.com/san-kum/dogleg/internal/problems"
)

func benchBatch(b *testing.B, backend compute.Backend) {
	ps := make([]*problems.Broyden, 256)
	for i := range ps {
		ps[i] = problems.NewBroyden(0.9999)
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := batch.Run(context.Background(), ps, nil, nil, batch.WithBackend(backend)); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkBatchSerial(b *testing.B) {
	benchBatch(b, compute.NewSerial())
}

func BenchmarkBatchParallel(b *testing.B) {
	benchBatch(b, compute.NewParallel(0))
}
