package storage

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/san-kum/dogleg/internal/batch"
	"github.com/san-kum/dogleg/internal/config"
	"github.com/san-kum/dogleg/internal/solver"
)

const (
	metadataFile = "metadata.json"
	outcomesFile = "outcomes.csv"
	historyFile  = "history.csv"
)

var ErrCorrupt = errors.New("storage: corrupt run data")

type Store struct {
	baseDir string
}

func New(baseDir string) *Store {
	return &Store{baseDir: baseDir}
}

func (s *Store) Init() error {
	return os.MkdirAll(s.baseDir, 0755)
}

type RunMetadata struct {
	ID         string             `json:"id"`
	Problem    string             `json:"problem"`
	Timestamp  time.Time          `json:"timestamp"`
	Params     map[string]float64 `json:"params,omitempty"`
	Solver     solver.Config      `json:"solver"`
	Backend    string             `json:"backend"`
	Seed       int64              `json:"seed"`
	Jitter     float64            `json:"jitter"`
	Instances  int                `json:"instances"`
	Converged  int                `json:"converged"`
	MeanFEvals float64            `json:"mean_fevals"`
	Statuses   map[string]int     `json:"statuses"`
}

// Save writes a run's metadata and outcomes under a new run id.
func (s *Store) Save(cfg *config.Config, outcomes []batch.Outcome) (string, error) {
	runID := fmt.Sprintf("%s_%s", cfg.Problem, uuid.NewString())
	runDir := filepath.Join(s.baseDir, runID)

	if err := os.MkdirAll(runDir, 0755); err != nil {
		return "", err
	}

	sum := batch.Summarize(outcomes)
	meta := RunMetadata{
		ID:         runID,
		Problem:    cfg.Problem,
		Timestamp:  time.Now(),
		Params:     cfg.Params,
		Solver:     cfg.Solver,
		Backend:    cfg.Batch.Backend,
		Seed:       cfg.Batch.Seed,
		Jitter:     cfg.Batch.Jitter,
		Instances:  sum.Total,
		Converged:  sum.Converged,
		MeanFEvals: sum.MeanFEvals,
		Statuses:   make(map[string]int, len(sum.ByStatus)),
	}
	for st, n := range sum.ByStatus {
		meta.Statuses[st.String()] = n
	}

	if err := writeJSON(filepath.Join(runDir, metadataFile), meta); err != nil {
		return "", err
	}
	if err := writeOutcomes(filepath.Join(runDir, outcomesFile), outcomes); err != nil {
		return "", err
	}
	return runID, nil
}

func writeJSON(path string, v any) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

func writeOutcomes(path string, outcomes []batch.Outcome) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	header := []string{"index", "status", "fevals", "iterations", "residual", "delta"}
	if len(outcomes) > 0 {
		for i := range outcomes[0].X {
			header = append(header, fmt.Sprintf("x%d", i))
		}
	}
	if err := w.Write(header); err != nil {
		return err
	}

	for _, o := range outcomes {
		row := []string{
			strconv.Itoa(o.Index),
			o.Status.String(),
			strconv.Itoa(o.FEvals),
			strconv.Itoa(o.Iterations),
			formatFloat(o.Residual),
			formatFloat(o.Delta),
		}
		for _, v := range o.X {
			row = append(row, formatFloat(v))
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

// SaveHistory writes the iteration records of a single solve into an
// existing run.
func (s *Store) SaveHistory(runID string, iters []solver.Iteration) error {
	f, err := os.Create(filepath.Join(s.baseDir, runID, historyFile))
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write([]string{"iteration", "fevals", "kind", "delta", "rho", "step_norm", "trial_residual", "residual", "accepted"}); err != nil {
		return err
	}
	for _, it := range iters {
		row := []string{
			strconv.Itoa(it.Iteration),
			strconv.Itoa(it.FEvals),
			it.Kind.String(),
			formatFloat(it.Delta),
			formatFloat(it.Rho),
			formatFloat(it.StepNorm),
			formatFloat(it.TrialResidual),
			formatFloat(it.Residual),
			strconv.FormatBool(it.Accepted),
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

// List returns the metadata of every readable run, newest first.
func (s *Store) List() ([]RunMetadata, error) {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []RunMetadata{}, nil
		}
		return nil, err
	}

	runs := make([]RunMetadata, 0)
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		meta, err := s.Load(entry.Name())
		if err != nil {
			continue
		}
		runs = append(runs, *meta)
	}

	sort.Slice(runs, func(i, j int) bool { return runs[i].Timestamp.After(runs[j].Timestamp) })
	return runs, nil
}

func (s *Store) Load(runID string) (*RunMetadata, error) {
	data, err := os.ReadFile(filepath.Join(s.baseDir, runID, metadataFile))
	if err != nil {
		return nil, err
	}

	var meta RunMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrCorrupt, runID, err)
	}
	return &meta, nil
}

func (s *Store) LoadOutcomes(runID string) ([]batch.Outcome, error) {
	file, err := os.Open(filepath.Join(s.baseDir, runID, outcomesFile))
	if err != nil {
		return nil, err
	}
	defer file.Close()

	records, err := csv.NewReader(file).ReadAll()
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrCorrupt, runID, err)
	}
	if len(records) < 2 {
		return []batch.Outcome{}, nil
	}

	const fixed = 6
	outcomes := make([]batch.Outcome, 0, len(records)-1)
	for line, rec := range records[1:] {
		o, err := parseOutcome(rec, fixed)
		if err != nil {
			return nil, fmt.Errorf("%w: %s line %d: %w", ErrCorrupt, runID, line+2, err)
		}
		outcomes = append(outcomes, o)
	}
	return outcomes, nil
}

func parseOutcome(rec []string, fixed int) (batch.Outcome, error) {
	var o batch.Outcome
	if len(rec) < fixed {
		return o, fmt.Errorf("want at least %d fields, got %d", fixed, len(rec))
	}

	var err error
	if o.Index, err = strconv.Atoi(rec[0]); err != nil {
		return o, err
	}
	if o.Status, err = solver.ParseStatus(rec[1]); err != nil {
		return o, err
	}
	if o.FEvals, err = strconv.Atoi(rec[2]); err != nil {
		return o, err
	}
	if o.Iterations, err = strconv.Atoi(rec[3]); err != nil {
		return o, err
	}
	if o.Residual, err = strconv.ParseFloat(rec[4], 64); err != nil {
		return o, err
	}
	if o.Delta, err = strconv.ParseFloat(rec[5], 64); err != nil {
		return o, err
	}
	o.X = make([]float64, len(rec)-fixed)
	for i, field := range rec[fixed:] {
		if o.X[i], err = strconv.ParseFloat(field, 64); err != nil {
			return o, err
		}
	}
	return o, nil
}
