package experiment

import (
	"fmt"
	"sort"

	"github.com/san-kum/sdesim/internal/compute"
	"github.com/san-kum/sdesim/internal/dynamo"
	"github.com/san-kum/sdesim/internal/integrators"
	"github.com/san-kum/sdesim/internal/models"
)

// ModelSpec knows how to build a model and its default inputs.
type ModelSpec struct {
	New func() dynamo.Model
	// InitialState is the state used when the config gives none.
	InitialState func(m dynamo.Model) dynamo.State
	// DefaultControl is the per-sample control used when the config gives none.
	DefaultControl func() []float64
	// Schedule turns per-sample control values into a per-step schedule.
	Schedule func(control []float64, stepsPerSample int) dynamo.Schedule
}

type Registry struct {
	models   map[string]ModelSpec
	steppers map[string]func() integrators.Stepper
}

func NewRegistry() *Registry {
	r := &Registry{
		models:   make(map[string]ModelSpec),
		steppers: make(map[string]func() integrators.Stepper),
	}

	r.models["cstr"] = ModelSpec{
		New:            func() dynamo.Model { return models.NewCSTR() },
		InitialState:   func(m dynamo.Model) dynamo.State { return m.(*models.CSTR).DefaultState() },
		DefaultControl: models.FlowRateProfile,
		Schedule: func(control []float64, sps int) dynamo.Schedule {
			return models.FlowSchedule(control, sps)
		},
	}
	r.models["linear"] = ModelSpec{
		New:            func() dynamo.Model { return models.NewLinear(1) },
		InitialState:   func(m dynamo.Model) dynamo.State { return m.(*models.Linear).DefaultState() },
		DefaultControl: func() []float64 { return nil },
		Schedule:       piecewise,
	}

	r.steppers["implicit"] = func() integrators.Stepper { return integrators.NewImplicitEuler() }
	r.steppers["explicit"] = func() integrators.Stepper { return integrators.NewExplicitEuler() }

	return r
}

func piecewise(control []float64, sps int) dynamo.Schedule {
	if len(control) == 0 {
		return dynamo.Constant(0)
	}
	return dynamo.PiecewiseConstant{Values: control, StepsPerSample: sps}
}

func (r *Registry) GetModel(name string) (ModelSpec, error) {
	spec, ok := r.models[name]
	if !ok {
		return ModelSpec{}, fmt.Errorf("unknown model: %s", name)
	}
	return spec, nil
}

func (r *Registry) GetStepper(name string) (integrators.Stepper, error) {
	fn, ok := r.steppers[name]
	if !ok {
		return nil, fmt.Errorf("unknown stepper: %s", name)
	}
	return fn(), nil
}

func (r *Registry) GetSolver(name string) (compute.Backend, error) {
	return compute.New(name)
}

func (r *Registry) ListModels() []string {
	return sortedKeys(r.models)
}

func (r *Registry) ListSteppers() []string {
	return sortedKeys(r.steppers)
}

func (r *Registry) ListSolvers() []string {
	return compute.Names()
}

func sortedKeys[V any](m map[string]V) []string {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
