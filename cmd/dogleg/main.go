package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
	"github.com/spf13/cobra"

	"github.com/san-kum/dogleg/internal/analysis"
	"github.com/san-kum/dogleg/internal/batch"
	"github.com/san-kum/dogleg/internal/compute"
	"github.com/san-kum/dogleg/internal/config"
	"github.com/san-kum/dogleg/internal/experiment"
	"github.com/san-kum/dogleg/internal/metrics"
	"github.com/san-kum/dogleg/internal/numdiff"
	"github.com/san-kum/dogleg/internal/solver"
	"github.com/san-kum/dogleg/internal/storage"
	"github.com/san-kum/dogleg/internal/viz"
)

var (
	dataDir     string
	verbose     bool
	theme       string
	metricsDump bool

	configFile string
	preset     string
	params     map[string]string
	x0         []float64

	deltaInit     float64
	tolerance     float64
	maxIterations int
	maxFEvals     int
	shrinkOnFail  bool

	instances int
	backend   string
	workers   int
	jitter    float64
	seed      int64

	trace     bool
	plot      bool
	save      bool
	batchSave bool
	outFile   string

	central    bool
	checkTol   float64
	sweepPlot  bool
	sweepName  string
	sweepFrom  float64
	sweepTo    float64
	sweepSteps int
)

var (
	logger   = slog.New(slog.DiscardHandler)
	registry = prometheus.NewRegistry()
	recorder = metrics.NewRecorder(registry)
)

func main() {
	rootCmd := &cobra.Command{
		Use:           "dogleg",
		Short:         "trust-region dogleg solver for small nonlinear systems",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			level := slog.LevelWarn
			if verbose {
				level = slog.LevelDebug
			}
			logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
			viz.SetTheme(theme)
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if !metricsDump {
				return nil
			}
			return dumpMetrics()
		},
	}

	rootCmd.PersistentFlags().StringVar(&dataDir, "data", ".dogleg", "data directory")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging on stderr")
	rootCmd.PersistentFlags().StringVar(&theme, "theme", "default", fmt.Sprintf("color theme %v", viz.ThemeNames()))
	rootCmd.PersistentFlags().BoolVar(&metricsDump, "metrics", false, "print Prometheus metrics after the command")

	solveCmd := &cobra.Command{
		Use:   "solve [problem]",
		Short: "solve one problem instance",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runSolve,
	}
	addConfigFlags(solveCmd)
	solveCmd.Flags().BoolVar(&trace, "trace", false, "print every iteration")
	solveCmd.Flags().BoolVar(&plot, "plot", false, "plot the residual history")
	solveCmd.Flags().BoolVar(&save, "save", false, "store the run")

	batchCmd := &cobra.Command{
		Use:   "batch [problem]",
		Short: "solve many perturbed instances",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runBatch,
	}
	addConfigFlags(batchCmd)
	addBatchFlags(batchCmd)
	batchCmd.Flags().BoolVar(&batchSave, "save", true, "store the run")

	checkCmd := &cobra.Command{
		Use:   "check [problem]",
		Short: "compare the analytic Jacobian with finite differences",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runCheck,
	}
	addConfigFlags(checkCmd)
	checkCmd.Flags().BoolVar(&central, "central", true, "central differences (forward otherwise)")
	checkCmd.Flags().Float64Var(&checkTol, "max-err", 1e-6, "relative tolerance per entry")

	sweepCmd := &cobra.Command{
		Use:   "sweep [problem]",
		Short: "solve across a range of one parameter",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runSweep,
	}
	addConfigFlags(sweepCmd)
	sweepCmd.Flags().StringVar(&sweepName, "name", "lambda", "parameter to sweep")
	sweepCmd.Flags().Float64Var(&sweepFrom, "from", 0, "first value")
	sweepCmd.Flags().Float64Var(&sweepTo, "to", 1, "last value")
	sweepCmd.Flags().IntVar(&sweepSteps, "steps", 11, "number of values")
	sweepCmd.Flags().BoolVar(&sweepPlot, "plot", true, "plot evaluations against the parameter")

	benchCmd := &cobra.Command{
		Use:   "bench [problem]",
		Short: "time batches on each backend",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runBench,
	}
	addConfigFlags(benchCmd)
	benchCmd.Flags().Float64Var(&jitter, "jitter", 0.1, "relative start perturbation")

	problemsCmd := &cobra.Command{
		Use:   "problems",
		Short: "list available problems",
		RunE: func(cmd *cobra.Command, args []string) error {
			reg := experiment.NewRegistry()
			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			for _, name := range reg.ListProblems() {
				fmt.Fprintf(w, "%s\t%s\n", name, reg.Describe(name))
			}
			return w.Flush()
		},
	}

	presetsCmd := &cobra.Command{
		Use:   "presets [problem]",
		Short: "list available presets for a problem",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			presets := config.ListPresets(args[0])
			if len(presets) == 0 {
				fmt.Printf("no presets for problem: %s\n", args[0])
				return nil
			}
			fmt.Printf("presets for %s:\n", args[0])
			for _, p := range presets {
				fmt.Printf("  %s\n", p)
			}
			return nil
		},
	}

	initCmd := &cobra.Command{
		Use:   "init-config [file]",
		Short: "write a configuration file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := resolveConfig(cmd, nil)
			if err != nil {
				return err
			}
			return config.Save(args[0], cfg)
		},
	}
	addConfigFlags(initCmd)
	addBatchFlags(initCmd)

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list stored runs",
		RunE:  listRuns,
	}

	showCmd := &cobra.Command{
		Use:   "show [run_id]",
		Short: "summarize a stored run",
		Args:  cobra.ExactArgs(1),
		RunE:  showRun,
	}

	exportCmd := &cobra.Command{
		Use:   "export [run_id]",
		Short: "export a stored run to JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st := storage.New(dataDir)
			if outFile != "" {
				return st.ExportJSONFile(outFile, args[0])
			}
			return st.ExportJSON(os.Stdout, args[0])
		},
	}
	exportCmd.Flags().StringVarP(&outFile, "out", "o", "", "output file (stdout if empty)")

	rootCmd.AddCommand(solveCmd, batchCmd, checkCmd, sweepCmd, benchCmd, problemsCmd, presetsCmd, initCmd, listCmd, showCmd, exportCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func addConfigFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&configFile, "config", "", "config file path (yaml)")
	cmd.Flags().StringVar(&preset, "preset", "", "use preset configuration")
	cmd.Flags().StringToStringVarP(&params, "param", "p", nil, "problem parameter name=value")
	cmd.Flags().Float64SliceVar(&x0, "x0", nil, "initial guess")
	cmd.Flags().Float64Var(&deltaInit, "delta", 1, "initial trust radius")
	cmd.Flags().Float64Var(&tolerance, "tol", solver.DefaultTolerance, "residual norm tolerance")
	cmd.Flags().IntVar(&maxIterations, "max-iter", solver.DefaultMaxIterations, "iteration limit")
	cmd.Flags().IntVar(&maxFEvals, "max-fevals", 0, "evaluation limit (0 for none)")
	cmd.Flags().BoolVar(&shrinkOnFail, "shrink-on-fail", false, "shrink the radius when a trial point cannot be evaluated")
}

func addBatchFlags(cmd *cobra.Command) {
	cmd.Flags().IntVar(&instances, "instances", 100, "number of instances")
	cmd.Flags().StringVar(&backend, "backend", "auto", fmt.Sprintf("execution backend %v", compute.Names()))
	cmd.Flags().IntVar(&workers, "workers", 0, "parallel workers (0 for GOMAXPROCS)")
	cmd.Flags().Float64Var(&jitter, "jitter", 0.1, "relative start perturbation")
	cmd.Flags().Int64Var(&seed, "seed", time.Now().UnixNano(), "random seed")
}

// resolveConfig layers the config file or preset, then any explicitly set
// flags, over the defaults.
func resolveConfig(cmd *cobra.Command, args []string) (*config.Config, error) {
	problem := ""
	if len(args) > 0 {
		problem = args[0]
	}

	cfg := config.DefaultConfig()
	switch {
	case configFile != "":
		loaded, err := config.Load(configFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		cfg = loaded
	case preset != "":
		if problem == "" {
			return nil, fmt.Errorf("--preset needs a problem")
		}
		p := config.GetPreset(problem, preset)
		if p == nil {
			return nil, fmt.Errorf("unknown preset: %s (available: %v)", preset, config.ListPresets(problem))
		}
		cfg = p
	}
	if problem != "" {
		cfg.Problem = problem
	}

	flags := cmd.Flags()
	if flags.Changed("param") {
		if cfg.Params == nil {
			cfg.Params = make(map[string]float64, len(params))
		}
		for name, raw := range params {
			v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
			if err != nil {
				return nil, fmt.Errorf("parameter %s: %w", name, err)
			}
			cfg.Params[name] = v
		}
	}
	if flags.Changed("x0") {
		cfg.X0 = x0
	}
	if flags.Changed("delta") {
		cfg.Solver.Delta.DeltaInit = deltaInit
		if deltaInit > cfg.Solver.Delta.DeltaMax {
			cfg.Solver.Delta.DeltaMax = deltaInit
		}
	}
	if flags.Changed("tol") {
		cfg.Solver.Tolerance = tolerance
	}
	if flags.Changed("max-iter") {
		cfg.Solver.MaxIterations = maxIterations
	}
	if flags.Changed("max-fevals") {
		cfg.Solver.MaxFEvals = maxFEvals
	}
	if flags.Changed("shrink-on-fail") {
		cfg.Solver.ShrinkOnEvalFailure = shrinkOnFail
	}
	if flags.Lookup("instances") != nil {
		if flags.Changed("instances") || cfg.Batch.Instances <= 1 {
			cfg.Batch.Instances = instances
		}
		if flags.Changed("backend") {
			cfg.Batch.Backend = backend
		}
		if flags.Changed("workers") {
			cfg.Batch.Workers = workers
		}
	}
	if flags.Lookup("jitter") != nil {
		if flags.Changed("jitter") || cfg.Batch.Jitter == 0 {
			cfg.Batch.Jitter = jitter
		}
		if flags.Changed("seed") || cfg.Batch.Seed == 0 {
			cfg.Batch.Seed = seed
		}
		if cfg.Batch.Seed == 0 {
			cfg.Batch.Seed = time.Now().UnixNano()
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func newExperiment(cfg *config.Config) *experiment.Experiment {
	exp := experiment.New(cfg, experiment.NewRegistry())
	exp.SetLogger(logger)
	exp.SetRecorder(recorder)
	return exp
}

func runSolve(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(cmd, args)
	if err != nil {
		return err
	}

	var hist solver.History
	stats := metrics.NewStepStats()
	start := time.Now()
	s, err := newExperiment(cfg).Solve(solver.Observers{&hist, stats})
	if err != nil {
		return err
	}
	elapsed := time.Since(start)

	res := s.Result()
	fmt.Print(viz.RenderResult(cfg.Problem, res))
	fmt.Print(viz.RenderProfile(analysis.Summarize(hist.Iterations), hist.Residuals()))
	fmt.Printf("completed in %v\n", elapsed)

	if trace {
		fmt.Println()
		fmt.Print(viz.RenderTrace(hist.Iterations))
		fmt.Print(viz.RenderStepStats(stats))
	}
	if plot {
		fmt.Println()
		fmt.Println(viz.ResidualPlot(hist.Residuals(), 60, 10))
	}

	if save {
		st := storage.New(dataDir)
		if err := st.Init(); err != nil {
			return err
		}
		runID, err := st.Save(cfg, []batch.Outcome{{Index: 0, Result: res}})
		if err != nil {
			return err
		}
		if err := st.SaveHistory(runID, hist.Iterations); err != nil {
			return err
		}
		fmt.Printf("run id: %s\n", runID)
	}
	return s.Err()
}

func runBatch(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(cmd, args)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	fmt.Printf("solving %d %s instances...\n", cfg.Batch.Instances, cfg.Problem)
	start := time.Now()
	outcomes, err := newExperiment(cfg).Batch(ctx)
	if err != nil {
		return err
	}
	elapsed := time.Since(start)

	fmt.Print(viz.RenderSummary(batch.Summarize(outcomes)))
	fmt.Printf("completed in %v\n", elapsed)

	if batchSave {
		st := storage.New(dataDir)
		if err := st.Init(); err != nil {
			return err
		}
		runID, err := st.Save(cfg, outcomes)
		if err != nil {
			return err
		}
		fmt.Printf("run id: %s\n", runID)
	}
	return nil
}

func runCheck(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(cmd, args)
	if err != nil {
		return err
	}
	exp := newExperiment(cfg)
	p, err := exp.Problem()
	if err != nil {
		return err
	}
	x, err := exp.InitialX(p)
	if err != nil {
		return err
	}

	m := numdiff.Forward
	if central {
		m = numdiff.Central
	}
	rep, err := numdiff.Check(p, x, m)
	if err != nil {
		return err
	}

	fmt.Printf("problem: %s (n=%d)\n", cfg.Problem, p.Dim())
	fmt.Printf("max relative error: %.3e at (%d, %d)\n", rep.MaxErr, rep.Row, rep.Col)
	if !rep.OK(checkTol) {
		n := p.Dim()
		return fmt.Errorf("jacobian mismatch: analytic %g, finite difference %g",
			rep.Analytic[rep.Row*n+rep.Col], rep.Approx[rep.Row*n+rep.Col])
	}
	fmt.Println(viz.RenderStatus(solver.Converged) + " jacobian agrees")
	return nil
}

func runSweep(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(cmd, args)
	if err != nil {
		return err
	}
	exp := newExperiment(cfg)
	p, err := exp.Problem()
	if err != nil {
		return err
	}
	tp, ok := p.(analysis.Tunable)
	if !ok {
		return fmt.Errorf("%s has no tunable parameters", cfg.Problem)
	}
	x, err := exp.InitialX(p)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	points, err := analysis.Sweep(ctx, tp, sweepName, sweepFrom, sweepTo, sweepSteps, x, &cfg.Solver)
	if err != nil {
		return err
	}
	fmt.Print(viz.RenderSweep(points, sweepName))
	if sweepPlot {
		fmt.Println()
		fmt.Println(viz.SweepPlot(points, sweepName, 60, 10))
	}
	return nil
}

func runBench(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(cmd, args)
	if err != nil {
		return err
	}

	fmt.Printf("benchmarking %s\n\n", cfg.Problem)
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "INSTANCES\tBACKEND\tTIME\tSOLVES/SEC\tCONVERGED")

	for _, n := range []int{10, 100, 1000} {
		for _, name := range []string{"serial", "parallel"} {
			run := cfg.Clone()
			run.Batch.Instances = n
			run.Batch.Backend = name

			start := time.Now()
			outcomes, err := newExperiment(run).Batch(context.Background())
			if err != nil {
				return err
			}
			elapsed := time.Since(start)

			sum := batch.Summarize(outcomes)
			fmt.Fprintf(w, "%d\t%s\t%v\t%.0f\t%d/%d\n",
				n, name, elapsed, float64(n)/elapsed.Seconds(), sum.Converged, sum.Total)
		}
	}
	return w.Flush()
}

func listRuns(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	runs, err := st.List()
	if err != nil {
		return err
	}

	if len(runs) == 0 {
		fmt.Println("no runs found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tPROBLEM\tTIME\tINSTANCES\tCONVERGED\tMEAN FEVALS")

	for _, run := range runs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%d\t%.1f\n",
			run.ID,
			run.Problem,
			run.Timestamp.Format("2006-01-02 15:04:05"),
			run.Instances,
			run.Converged,
			run.MeanFEvals,
		)
	}

	return w.Flush()
}

func showRun(cmd *cobra.Command, args []string) error {
	runID := args[0]

	st := storage.New(dataDir)
	meta, err := st.Load(runID)
	if err != nil {
		return err
	}
	outcomes, err := st.LoadOutcomes(runID)
	if err != nil {
		return err
	}

	fmt.Printf("run: %s\n", meta.ID)
	fmt.Printf("problem: %s %v\n", meta.Problem, meta.Params)
	fmt.Printf("time: %s\n\n", meta.Timestamp.Format("2006-01-02 15:04:05"))

	if len(outcomes) == 1 {
		fmt.Print(viz.RenderResult(meta.Problem, outcomes[0].Result))
		return nil
	}
	fmt.Print(viz.RenderSummary(batch.Summarize(outcomes)))

	failed := batch.Failed(outcomes)
	if len(failed) > 0 {
		fmt.Printf("\nfirst failures:\n")
		for _, o := range failed[:min(len(failed), 5)] {
			fmt.Printf("  #%d %s after %d evaluations, residual %.3e\n", o.Index, viz.RenderStatus(o.Status), o.FEvals, o.Residual)
		}
	}
	return nil
}

func dumpMetrics() error {
	families, err := registry.Gather()
	if err != nil {
		return err
	}
	enc := expfmt.NewEncoder(os.Stderr, expfmt.NewFormat(expfmt.TypeTextPlain))
	for _, mf := range families {
		if err := enc.Encode(mf); err != nil {
			return err
		}
	}
	return nil
}
