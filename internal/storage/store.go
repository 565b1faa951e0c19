package storage

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/san-kum/sdesim/internal/dynamo"
)

const (
	metadataFile = "metadata.json"
	statesFile   = "X.txt"
	timesFile    = "T.txt"
	controlFile  = "U.txt"
	reportsFile  = "reports.json"
)

type Store struct {
	baseDir string
}

func New(baseDir string) *Store {
	return &Store{baseDir: baseDir}
}

func (s *Store) Init() error {
	return os.MkdirAll(s.baseDir, 0755)
}

func (s *Store) Dir(runID string) string {
	return filepath.Join(s.baseDir, runID)
}

// Run carries what a saved batch was produced from.
type Run struct {
	Model     string
	Stepper   string
	Solver    string
	Seed      uint32
	TimeScale float64
	Params    map[string]float64
	// Control is the per-sample input in the units the user gave it.
	Control []float64
}

type RunMetadata struct {
	ID             string             `json:"id"`
	Model          string             `json:"model"`
	Stepper        string             `json:"stepper"`
	Solver         string             `json:"solver"`
	Mode           string             `json:"mode"`
	Timestamp      time.Time          `json:"timestamp"`
	Seed           uint32             `json:"seed"`
	StateDim       int                `json:"state_dim"`
	Steps          int                `json:"steps"`
	Points         int                `json:"points"`
	Realizations   int                `json:"realizations"`
	FinalTime      float64            `json:"final_time"`
	TimeScale      float64            `json:"time_scale"`
	ElapsedSeconds float64            `json:"elapsed_seconds"`
	Failed         int                `json:"failed"`
	NonConverged   int                `json:"non_converged"`
	Params         map[string]float64 `json:"params,omitempty"`
}

// Save writes a batch under a new run id: metadata.json, the flat state buffer X.txt,
// the time grid T.txt divided by the time scale, the control U.txt and reports.json.
// Numbers are written one per line with 15 decimals.
func (s *Store) Save(run Run, result *dynamo.Result) (string, error) {
	runID := fmt.Sprintf("%s_%s", run.Model, uuid.New().String()[:8])
	runDir := s.Dir(runID)

	if err := os.MkdirAll(runDir, 0755); err != nil {
		return "", err
	}

	scale := run.TimeScale
	if scale == 0 {
		scale = 1
	}

	meta := RunMetadata{
		ID:             runID,
		Model:          run.Model,
		Stepper:        run.Stepper,
		Solver:         run.Solver,
		Mode:           result.Mode.String(),
		Timestamp:      time.Now(),
		Seed:           run.Seed,
		StateDim:       result.StateDim,
		Steps:          result.Steps,
		Points:         result.Points(),
		Realizations:   result.Realizations,
		TimeScale:      scale,
		ElapsedSeconds: result.Elapsed.Seconds(),
		Failed:         result.Failed(),
		NonConverged:   result.NonConverged(),
		Params:         run.Params,
	}
	if n := len(result.Times); n > 0 {
		meta.FinalTime = result.Times[n-1]
	}

	if err := writeJSON(filepath.Join(runDir, metadataFile), meta); err != nil {
		return "", err
	}
	if err := writeJSON(filepath.Join(runDir, reportsFile), result.Reports); err != nil {
		return "", err
	}

	if err := writeValues(filepath.Join(runDir, statesFile), result.States, 1); err != nil {
		return "", err
	}
	if err := writeValues(filepath.Join(runDir, timesFile), result.Times, scale); err != nil {
		return "", err
	}
	if err := writeValues(filepath.Join(runDir, controlFile), run.Control, 1); err != nil {
		return "", err
	}

	return runID, nil
}

func writeJSON(path string, v interface{}) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func writeValues(path string, values []float64, divisor float64) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}

	w := bufio.NewWriter(f)
	for _, v := range values {
		if _, err := fmt.Fprintf(w, "%1.15f\n", v/divisor); err != nil {
			f.Close()
			return err
		}
	}
	if err := w.Flush(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func readValues(path string) ([]float64, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	values := make([]float64, 0)
	sc := bufio.NewScanner(f)
	line := 0
	for sc.Scan() {
		line++
		text := strings.TrimSpace(sc.Text())
		if text == "" {
			continue
		}
		v, err := strconv.ParseFloat(text, 64)
		if err != nil {
			return nil, fmt.Errorf("%s:%d: %w", filepath.Base(path), line, err)
		}
		values = append(values, v)
	}
	return values, sc.Err()
}

// List returns the saved runs, newest first.
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

	sort.Slice(runs, func(i, j int) bool {
		return runs[i].Timestamp.After(runs[j].Timestamp)
	})
	return runs, nil
}

func (s *Store) Load(runID string) (*RunMetadata, error) {
	data, err := os.ReadFile(filepath.Join(s.Dir(runID), metadataFile))
	if err != nil {
		return nil, err
	}

	var meta RunMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, err
	}

	return &meta, nil
}

// LoadStates returns the flat state buffer of a run.
func (s *Store) LoadStates(runID string) ([]float64, error) {
	return readValues(filepath.Join(s.Dir(runID), statesFile))
}

// LoadTimes returns the scaled time grid of a run.
func (s *Store) LoadTimes(runID string) ([]float64, error) {
	return readValues(filepath.Join(s.Dir(runID), timesFile))
}

func (s *Store) LoadControl(runID string) ([]float64, error) {
	return readValues(filepath.Join(s.Dir(runID), controlFile))
}

func (s *Store) LoadReports(runID string) ([]dynamo.RealizationReport, error) {
	data, err := os.ReadFile(filepath.Join(s.Dir(runID), reportsFile))
	if err != nil {
		return nil, err
	}
	var reports []dynamo.RealizationReport
	if err := json.Unmarshal(data, &reports); err != nil {
		return nil, err
	}
	return reports, nil
}

// LoadResult rebuilds a dynamo.Result from a saved run. Times are in the saved
// (scaled) units and reports carry only their string errors.
func (s *Store) LoadResult(runID string) (*RunMetadata, *dynamo.Result, error) {
	meta, err := s.Load(runID)
	if err != nil {
		return nil, nil, err
	}
	states, err := s.LoadStates(runID)
	if err != nil {
		return nil, nil, err
	}
	times, err := s.LoadTimes(runID)
	if err != nil {
		return nil, nil, err
	}
	reports, err := s.LoadReports(runID)
	if err != nil {
		return nil, nil, err
	}
	mode, err := dynamo.ParseMode(meta.Mode)
	if err != nil {
		return nil, nil, err
	}

	if want := meta.Realizations * meta.Points * meta.StateDim; len(states) != want {
		return nil, nil, fmt.Errorf("%w: run %s has %d state values, metadata says %d", dynamo.ErrDimensionMismatch, runID, len(states), want)
	}

	res := &dynamo.Result{
		Times:        times,
		States:       states,
		StateDim:     meta.StateDim,
		Steps:        meta.Steps,
		Realizations: meta.Realizations,
		Mode:         mode,
		Reports:      reports,
		Elapsed:      time.Duration(meta.ElapsedSeconds * float64(time.Second)),
	}
	return meta, res, nil
}
