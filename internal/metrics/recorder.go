// Package metrics records solver outcomes as Prometheus metrics and keeps
// per-solve step statistics.
//
// # Thread Safety
//
// Recorder methods are safe for concurrent use. StepStats is not; attach one
// per solver.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/san-kum/dogleg/internal/solver"
)

const namespace = "dogleg"

// Recorder holds the Prometheus collectors for solves and batches.
type Recorder struct {
	// SolvesTotal counts finished solves. Labels: status
	SolvesTotal *prometheus.CounterVec
	// FEvals is the distribution of residual evaluations per solve.
	FEvals prometheus.Histogram
	// Iterations is the distribution of steps per solve.
	Iterations prometheus.Histogram
	// FinalResidual is the distribution of final residual norms.
	FinalResidual prometheus.Histogram
	// StepsTotal counts trial steps. Labels: kind, decision (accepted, rejected)
	StepsTotal *prometheus.CounterVec
	// BatchDuration measures batch wall time. Labels: backend
	BatchDuration *prometheus.HistogramVec
}

// NewRecorder registers the collectors on reg. Use a fresh
// prometheus.NewRegistry per recorder in tests.
func NewRecorder(reg prometheus.Registerer) *Recorder {
	f := promauto.With(reg)
	return &Recorder{
		SolvesTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "solver",
			Name:      "solves_total",
			Help:      "Finished solves by terminal status",
		}, []string{"status"}),
		FEvals: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "solver",
			Name:      "fevals",
			Help:      "Residual evaluations per solve",
			Buckets:   prometheus.ExponentialBuckets(1, 2, 9),
		}),
		Iterations: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "solver",
			Name:      "iterations",
			Help:      "Trust-region steps per solve",
			Buckets:   prometheus.ExponentialBuckets(1, 2, 9),
		}),
		FinalResidual: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "solver",
			Name:      "final_residual",
			Help:      "Residual norm at the end of each solve",
			Buckets:   prometheus.ExponentialBuckets(1e-16, 100, 10),
		}),
		StepsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "solver",
			Name:      "steps_total",
			Help:      "Trial steps by dogleg branch and decision",
		}, []string{"kind", "decision"}),
		BatchDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "batch",
			Name:      "duration_seconds",
			Help:      "Wall time of a batch run",
			Buckets:   prometheus.ExponentialBuckets(1e-4, 4, 10),
		}, []string{"backend"}),
	}
}

// ObserveResult records one finished solve.
func (r *Recorder) ObserveResult(res solver.Result) {
	r.SolvesTotal.WithLabelValues(res.Status.String()).Inc()
	r.FEvals.Observe(float64(res.FEvals))
	r.Iterations.Observe(float64(res.Iterations))
	r.FinalResidual.Observe(res.Residual)
}

// ObserveBatch records the wall time of a batch.
func (r *Recorder) ObserveBatch(backend string, d time.Duration) {
	r.BatchDuration.WithLabelValues(backend).Observe(d.Seconds())
}

// StepObserver returns an observer that counts the steps of a solve.
func (r *Recorder) StepObserver() solver.Observer {
	return solver.ObserverFunc(func(it solver.Iteration) {
		if it.Iteration == 0 {
			return
		}
		r.StepsTotal.WithLabelValues(it.Kind.String(), decision(it.Accepted)).Inc()
	})
}

func decision(accepted bool) string {
	if accepted {
		return "accepted"
	}
	return "rejected"
}
