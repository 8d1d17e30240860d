package batch_test

import (
	"context"
	"math/rand"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/san-kum/dogleg/internal/batch"
	"github.com/san-kum/dogleg/internal/compute"
	"github.com/san-kum/dogleg/internal/metrics"
	"github.com/san-kum/dogleg/internal/problems"
	"github.com/san-kum/dogleg/internal/solver"
)

func broydenBatch(n int) []*problems.Broyden {
	ps := make([]*problems.Broyden, n)
	for i := range ps {
		ps[i] = problems.NewBroyden(0.9999)
	}
	return ps
}

func broydenConfig() *solver.Config {
	cfg := solver.DefaultConfig()
	cfg.Delta.DeltaInit = 1
	return &cfg
}

var _ = Describe("Run", func() {
	ctx := context.Background()

	Context("with identical Broyden instances", func() {
		for _, backend := range []compute.Backend{compute.NewSerial(), compute.NewParallel(4)} {
			It("reproduces the single-solve result on the "+backend.Name()+" backend", func() {
				outcomes, err := batch.Run(ctx, broydenBatch(40), nil, broydenConfig(), batch.WithBackend(backend))
				Expect(err).NotTo(HaveOccurred())
				Expect(outcomes).To(HaveLen(40))

				for i, o := range outcomes {
					Expect(o.Index).To(Equal(i))
					Expect(o.Status).To(Equal(solver.Converged))
					Expect(o.FEvals).To(Equal(19))
				}
			})
		}

		It("gives bit-identical iterates on both backends", func() {
			serial, err := batch.Run(ctx, broydenBatch(20), nil, broydenConfig(), batch.WithBackend(compute.NewSerial()))
			Expect(err).NotTo(HaveOccurred())
			parallel, err := batch.Run(ctx, broydenBatch(20), nil, broydenConfig(), batch.WithBackend(compute.NewParallel(3)))
			Expect(err).NotTo(HaveOccurred())

			for i := range serial {
				Expect(parallel[i].X).To(Equal(serial[i].X))
			}
		})
	})

	Context("with failing instances mixed in", func() {
		It("isolates each failure to its own outcome", func() {
			ps := []solver.Problem{
				problems.NewRosenbrock(),
				problems.AlwaysFail{N: 2},
				problems.NewRosenbrock(),
				problems.AlwaysFail{N: 2},
			}
			x0 := [][]float64{{-1.2, 1}}

			outcomes, err := batch.Run(ctx, ps, x0, nil, batch.WithBackend(compute.NewParallel(4)))
			Expect(err).NotTo(HaveOccurred())

			Expect(outcomes[0].Status).To(Equal(solver.Converged))
			Expect(outcomes[2].Status).To(Equal(solver.Converged))
			Expect(outcomes[0].X).To(Equal(outcomes[2].X))
			for _, i := range []int{1, 3} {
				Expect(outcomes[i].Status).To(Equal(solver.EvaluationFailure))
				Expect(outcomes[i].FEvals).To(Equal(1))
				Expect(outcomes[i].X).To(Equal([]float64{-1.2, 1}))
			}

			sum := batch.Summarize(outcomes)
			Expect(sum.Converged).To(Equal(2))
			Expect(sum.ByStatus[solver.EvaluationFailure]).To(Equal(2))
			Expect(sum.MinFEvals).To(Equal(1))
			Expect(batch.Failed(outcomes)).To(HaveLen(2))
		})
	})

	Context("with per-instance starting points", func() {
		It("solves each from its own start", func() {
			rng := rand.New(rand.NewSource(7))
			n := 25
			ps := make([]*problems.Rosenbrock, n)
			x0 := make([][]float64, n)
			for i := range ps {
				ps[i] = problems.NewRosenbrock()
				x0[i] = []float64{-1.2 + 0.2*rng.NormFloat64(), 1 + 0.2*rng.NormFloat64()}
			}

			outcomes, err := batch.Run(ctx, ps, x0, nil)
			Expect(err).NotTo(HaveOccurred())
			for _, o := range outcomes {
				Expect(o.Status.Converged()).To(BeTrue())
				Expect(o.X[0]).To(BeNumerically("~", 1, 1e-9))
				Expect(o.X[1]).To(BeNumerically("~", 1, 1e-9))
			}
		})

		It("uses each problem's default start when x0 is nil", func() {
			outcomes, err := batch.Run(ctx, []*problems.Viscoplastic{problems.NewViscoplastic()}, nil, nil)
			Expect(err).NotTo(HaveOccurred())
			Expect(outcomes[0].Status).To(Equal(solver.Converged))
			Expect(outcomes[0].X[0]).To(BeNumerically(">", 0))
		})
	})

	Context("with invalid input", func() {
		It("rejects a starting point count that matches neither one nor all", func() {
			_, err := batch.Run(ctx, broydenBatch(3), make([][]float64, 2), nil)
			Expect(err).To(MatchError(batch.ErrInput))
		})

		It("rejects a starting point of the wrong length", func() {
			_, err := batch.Run(ctx, broydenBatch(2), [][]float64{{0, 0}}, nil)
			Expect(err).To(MatchError(solver.ErrDimension))
		})

		It("rejects an invalid configuration", func() {
			cfg := solver.DefaultConfig()
			cfg.MaxIterations = 0
			_, err := batch.Run(ctx, broydenBatch(2), nil, &cfg)
			Expect(err).To(MatchError(solver.ErrConfig))
		})
	})

	Context("when the context is canceled", func() {
		It("stops and reports the cancellation", func() {
			cctx, cancel := context.WithCancel(ctx)
			cancel()

			outcomes, err := batch.Run(cctx, broydenBatch(5), nil, nil, batch.WithBackend(compute.NewSerial()))
			Expect(err).To(MatchError(context.Canceled))
			Expect(outcomes).To(HaveLen(5))
			Expect(batch.Summarize(outcomes).ByStatus[solver.Unset]).To(Equal(5))
		})
	})

	Context("with a recorder", func() {
		It("records every outcome", func() {
			reg := prometheus.NewRegistry()
			rec := metrics.NewRecorder(reg)

			_, err := batch.Run(ctx, broydenBatch(8), nil, broydenConfig(),
				batch.WithRecorder(rec), batch.WithBackend(compute.NewParallel(2)))
			Expect(err).NotTo(HaveOccurred())

			Expect(testutil.ToFloat64(rec.SolvesTotal.WithLabelValues("converged"))).To(Equal(8.0))
			Expect(testutil.CollectAndCount(rec.BatchDuration)).To(Equal(1))
		})
	})
})
