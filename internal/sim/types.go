package sim

import (
	"fmt"

	"github.com/san-kum/sdesim/internal/dynamo"
)

// Observer is notified once per finished realization. It is called from worker
// goroutines and must be safe for concurrent use.
type Observer interface {
	OnRealization(idx int, rep dynamo.RealizationReport)
}

type ObserverFunc func(idx int, rep dynamo.RealizationReport)

func (f ObserverFunc) OnRealization(idx int, rep dynamo.RealizationReport) { f(idx, rep) }

type observerList []Observer

func (l observerList) OnRealization(idx int, rep dynamo.RealizationReport) {
	for _, o := range l {
		o.OnRealization(idx, rep)
	}
}

// Job is one batch of realizations over caller-owned buffers.
//
// Noise holds one block of len(Grid)-1 increments per realization when NoiseIncrement
// is set and a single shared block otherwise. Models holds one model per realization
// when ParamIncrement is set; otherwise Models[0] drives every realization.
type Job struct {
	Models   []dynamo.Model
	Grid     []float64
	Schedule dynamo.Schedule
	X0       dynamo.State
	Noise    []float64
	Out      []float64

	Realizations   int
	NoiseIncrement bool
	ParamIncrement bool
	Workers        int
	Observer       Observer
}

func (j *Job) steps() int { return len(j.Grid) - 1 }

func (j *Job) model(r int) dynamo.Model {
	if j.ParamIncrement {
		return j.Models[r]
	}
	return j.Models[0]
}

func (j *Job) noiseBlock(r, n int) []float64 {
	size := j.steps() * n
	if !j.NoiseIncrement {
		r = 0
	}
	return j.Noise[r*size : (r+1)*size]
}

// checkModels validates what a batch needs from its models independent of buffers.
func checkModels(models []dynamo.Model, x0 dynamo.State, realizations int, paramIncrement bool) error {
	if len(models) == 0 {
		return fmt.Errorf("%w: no model", dynamo.ErrInvalidConfig)
	}
	if paramIncrement && len(models) < realizations {
		return fmt.Errorf("%w: %d models for %d realizations with parameter increment", dynamo.ErrInvalidConfig, len(models), realizations)
	}

	n := models[0].StateDim()
	for i, m := range models {
		if m.StateDim() != n {
			return fmt.Errorf("%w: model %d has state dim %d, want %d", dynamo.ErrDimensionMismatch, i, m.StateDim(), n)
		}
		if m.NoiseDim() != m.StateDim() {
			return fmt.Errorf("%w: model %d has noise dim %d for state dim %d, diffusion must be diagonal", dynamo.ErrDimensionMismatch, i, m.NoiseDim(), m.StateDim())
		}
	}
	if len(x0) != n {
		return fmt.Errorf("%w: initial state has %d values, model has %d states", dynamo.ErrDimensionMismatch, len(x0), n)
	}
	if !x0.IsValid() {
		return fmt.Errorf("%w: initial state %v", dynamo.ErrInvalidState, x0)
	}
	return nil
}

func (j *Job) validate(outputLen func(n, steps int) int) error {
	if j.Realizations <= 0 {
		return fmt.Errorf("%w: realizations must be positive, got %d", dynamo.ErrInvalidConfig, j.Realizations)
	}
	if len(j.Grid) < 2 {
		return fmt.Errorf("%w: time grid needs at least two points", dynamo.ErrInvalidConfig)
	}
	if j.Schedule == nil {
		return fmt.Errorf("%w: no control schedule", dynamo.ErrInvalidConfig)
	}
	if err := checkModels(j.Models, j.X0, j.Realizations, j.ParamIncrement); err != nil {
		return err
	}

	n := j.Models[0].StateDim()
	blocks := 1
	if j.NoiseIncrement {
		blocks = j.Realizations
	}
	if want := blocks * j.steps() * n; len(j.Noise) < want {
		return fmt.Errorf("%w: noise buffer has %d values, need %d", dynamo.ErrDimensionMismatch, len(j.Noise), want)
	}
	if want := j.Realizations * outputLen(n, j.steps()); len(j.Out) < want {
		return fmt.Errorf("%w: output buffer has %d values, need %d", dynamo.ErrDimensionMismatch, len(j.Out), want)
	}
	return nil
}
