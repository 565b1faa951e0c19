package dynamo

import (
	"fmt"
	"math"
	"time"
)

type State []float64

func (s State) Clone() State {
	c := make(State, len(s))
	copy(c, s)
	return c
}

func (s State) IsValid() bool {
	for _, v := range s {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// InfNorm returns the largest absolute component. NaN components propagate.
func (s State) InfNorm() float64 {
	norm := 0.0
	for _, v := range s {
		a := math.Abs(v)
		if math.IsNaN(a) {
			return a
		}
		if a > norm {
			norm = a
		}
	}
	return norm
}

func (s State) Fill(v float64) {
	for i := range s {
		s[i] = v
	}
}

// Model is the capability an SDE system dx = f(x)dt + g(x)dω offers the integrator.
//
// u is the scalar control input active for the current step and d is an optional
// disturbance vector (nil when the model has none). Drift and Diffusion write n values
// into out. Jacobian writes the n×n derivative of the drift in column-major order:
// out[j*n+i] = ∂f_i/∂x_j. The dense solver consumes that layout directly.
//
// Implementations carry their own parameters and must not mutate them while a batch
// is running; one Model value is read concurrently by every worker.
type Model interface {
	StateDim() int
	NoiseDim() int
	Drift(t float64, x State, u float64, d State, out State)
	Diffusion(t float64, x State, u float64, d State, out State)
	Jacobian(t float64, x State, u float64, d State, out []float64)
}

// Configurable models expose named parameters for presets and config files.
type Configurable interface {
	GetParams() map[string]float64
	SetParam(name string, value float64) error
}

// Schedule yields the control input applied during a step.
type Schedule interface {
	At(step int) float64
}

type Constant float64

func (c Constant) At(int) float64 { return float64(c) }

// PiecewiseConstant holds Values[j] for steps [j*StepsPerSample, (j+1)*StepsPerSample).
// Steps past the last sample keep the last value.
type PiecewiseConstant struct {
	Values         []float64
	StepsPerSample int
}

func (p PiecewiseConstant) At(step int) float64 {
	if len(p.Values) == 0 {
		return 0
	}
	if p.StepsPerSample <= 0 {
		return p.Values[0]
	}
	j := step / p.StepsPerSample
	if j >= len(p.Values) {
		j = len(p.Values) - 1
	}
	return p.Values[j]
}

type Mode int

const (
	FullTrajectory Mode = iota
	FinalState
)

func (m Mode) String() string {
	switch m {
	case FullTrajectory:
		return "full"
	case FinalState:
		return "final"
	default:
		return fmt.Sprintf("mode(%d)", int(m))
	}
}

func ParseMode(s string) (Mode, error) {
	switch s {
	case "full", "":
		return FullTrajectory, nil
	case "final":
		return FinalState, nil
	default:
		return 0, fmt.Errorf("%w: unknown mode %q", ErrInvalidConfig, s)
	}
}

// Points is the number of stored states per realization.
func (m Mode) Points(steps int) int {
	if m == FinalState {
		return 1
	}
	return steps + 1
}

type Config struct {
	Seed           uint32
	T0             float64
	FinalTime      float64
	Steps          int
	Realizations   int
	MaxIterations  int
	Tolerance      float64
	NoiseIncrement bool
	ParamIncrement bool
	Workers        int
	Mode           Mode
}

func DefaultConfig() Config {
	return Config{
		Seed:           12345,
		FinalTime:      2100,
		Steps:          2100,
		Realizations:   1,
		MaxIterations:  20,
		Tolerance:      1e-5,
		NoiseIncrement: true,
		Mode:           FullTrajectory,
	}
}

func (c Config) Dt() float64 {
	return c.FinalTime / float64(c.Steps)
}

func (c Config) Validate() error {
	if c.Steps <= 0 {
		return fmt.Errorf("%w: steps must be positive, got %d", ErrInvalidConfig, c.Steps)
	}
	if c.FinalTime <= 0 {
		return fmt.Errorf("%w: final time must be positive, got %g", ErrInvalidConfig, c.FinalTime)
	}
	if c.Realizations <= 0 {
		return fmt.Errorf("%w: realizations must be positive, got %d", ErrInvalidConfig, c.Realizations)
	}
	if c.MaxIterations < 0 {
		return fmt.Errorf("%w: max iterations must not be negative, got %d", ErrInvalidConfig, c.MaxIterations)
	}
	if c.Tolerance <= 0 {
		return fmt.Errorf("%w: tolerance must be positive, got %g", ErrInvalidConfig, c.Tolerance)
	}
	if c.Workers < 0 {
		return fmt.Errorf("%w: workers must not be negative, got %d", ErrInvalidConfig, c.Workers)
	}
	if c.Mode != FullTrajectory && c.Mode != FinalState {
		return fmt.Errorf("%w: unknown mode %d", ErrInvalidConfig, int(c.Mode))
	}
	return nil
}

// RealizationReport summarizes the numerical health of one realization.
type RealizationReport struct {
	Realization  int     `json:"realization"`
	Steps        int     `json:"steps"`
	Iterations   int     `json:"iterations"`
	MaxResidual  float64 `json:"max_residual"`
	NonConverged []int   `json:"non_converged,omitempty"`
	Err          error   `json:"-"`
	Error        string  `json:"error,omitempty"`
}

func (r RealizationReport) Failed() bool { return r.Err != nil }

func (r RealizationReport) Converged() bool { return r.Err == nil && len(r.NonConverged) == 0 }

type Result struct {
	Times        []float64
	States       []float64
	StateDim     int
	Steps        int
	Realizations int
	Mode         Mode
	Reports      []RealizationReport
	Elapsed      time.Duration
}

// Points is the number of stored states per realization.
func (r *Result) Points() int {
	return r.Mode.Points(r.Steps)
}

// Realization returns realization i's slice of the state buffer.
func (r *Result) Realization(i int) []float64 {
	size := r.Points() * r.StateDim
	return r.States[i*size : (i+1)*size]
}

// Final returns the terminal state of realization i.
func (r *Result) Final(i int) State {
	path := r.Realization(i)
	return State(path[len(path)-r.StateDim:])
}

func (r *Result) Failed() int {
	n := 0
	for _, rep := range r.Reports {
		if rep.Failed() {
			n++
		}
	}
	return n
}

func (r *Result) NonConverged() int {
	n := 0
	for _, rep := range r.Reports {
		n += len(rep.NonConverged)
	}
	return n
}
