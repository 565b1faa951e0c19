package experiment

import (
	"context"
	"fmt"

	"github.com/san-kum/sdesim/internal/config"
	"github.com/san-kum/sdesim/internal/dynamo"
	"github.com/san-kum/sdesim/internal/rng"
	"github.com/san-kum/sdesim/internal/sim"
	"github.com/san-kum/sdesim/internal/storage"
)

// paramSeedOffset decorrelates the parameter draws from the noise stream of the same seed.
const paramSeedOffset = 0x5bd1e995

// Experiment binds a config to the registry entries it names.
type Experiment struct {
	cfg       *config.Config
	spec      ModelSpec
	base      dynamo.Model
	models    []dynamo.Model
	x0        dynamo.State
	control   []float64
	schedule  dynamo.Schedule
	simulator *sim.Simulator
}

func New(cfg *config.Config) *Experiment {
	return &Experiment{cfg: cfg}
}

// Setup validates the config and builds the models, inputs and simulator.
func (e *Experiment) Setup(reg *Registry) error {
	if err := e.cfg.Validate(); err != nil {
		return err
	}

	spec, err := reg.GetModel(e.cfg.Model)
	if err != nil {
		return err
	}
	stepper, err := reg.GetStepper(e.cfg.Stepper)
	if err != nil {
		return err
	}
	backend, err := reg.GetSolver(e.cfg.Solver)
	if err != nil {
		return err
	}
	e.spec = spec

	base := spec.New()
	if err := applyParams(base, e.cfg.Params); err != nil {
		return err
	}

	e.base = base
	e.models = []dynamo.Model{base}
	if e.cfg.ParamIncrement {
		if e.models, err = e.perturbedModels(); err != nil {
			return err
		}
	}

	if len(e.cfg.InitState) > 0 {
		e.x0 = dynamo.State(e.cfg.InitState).Clone()
	} else {
		e.x0 = spec.InitialState(base)
	}

	e.control = e.cfg.Control
	if len(e.control) == 0 {
		e.control = spec.DefaultControl()
	}
	e.schedule = spec.Schedule(e.control, e.cfg.StepsPerSample)

	e.simulator = sim.New(e.models, stepper, backend)
	return nil
}

func applyParams(m dynamo.Model, params map[string]float64) error {
	if len(params) == 0 {
		return nil
	}
	c, ok := m.(dynamo.Configurable)
	if !ok {
		return fmt.Errorf("%w: model has no parameters", dynamo.ErrInvalidConfig)
	}
	// dimension first, so vector models size themselves before anything else
	if v, ok := params["n"]; ok {
		if err := c.SetParam("n", v); err != nil {
			return err
		}
	}
	for k, v := range params {
		if k == "n" {
			continue
		}
		if err := c.SetParam(k, v); err != nil {
			return err
		}
	}
	return nil
}

// perturbedModels builds one model per realization with every parameter scaled by
// (1 + ParamSpread·z), z standard normal from a stream derived from the seed.
func (e *Experiment) perturbedModels() ([]dynamo.Model, error) {
	n := e.cfg.Realizations
	ms := make([]dynamo.Model, n)

	probe, ok := e.spec.New().(dynamo.Configurable)
	if !ok {
		return nil, fmt.Errorf("%w: parameter increment needs a configurable model", dynamo.ErrInvalidConfig)
	}
	names := sortedKeys(probe.GetParams())

	gen := rng.New(e.cfg.Seed + paramSeedOffset)
	z := make([]float64, n*len(names))
	gen.StandardNormal(z)

	for r := 0; r < n; r++ {
		m := e.spec.New()
		if err := applyParams(m, e.cfg.Params); err != nil {
			return nil, err
		}
		c := m.(dynamo.Configurable)
		params := c.GetParams()
		for i, name := range names {
			if name == "n" || e.cfg.ParamSpread == 0 {
				continue
			}
			v := params[name] * (1 + e.cfg.ParamSpread*z[r*len(names)+i])
			if err := c.SetParam(name, v); err != nil {
				return nil, fmt.Errorf("realization %d: %w", r, err)
			}
		}
		ms[r] = m
	}
	return ms, nil
}

func (e *Experiment) Run(ctx context.Context) (*dynamo.Result, error) {
	if e.simulator == nil {
		return nil, fmt.Errorf("experiment not setup")
	}
	simCfg, err := e.cfg.SimConfig()
	if err != nil {
		return nil, err
	}
	return e.simulator.Run(ctx, simCfg, e.x0, e.schedule)
}

func (e *Experiment) Config() *config.Config { return e.cfg }

func (e *Experiment) Models() []dynamo.Model { return e.models }

func (e *Experiment) InitialState() dynamo.State { return e.x0 }

// Control returns the per-sample control values, as given in the config or the model default.
func (e *Experiment) Control() []float64 { return e.control }

// Record describes the experiment for the run store. Params are those of the
// unperturbed model.
func (e *Experiment) Record() storage.Run {
	run := storage.Run{
		Model:     e.cfg.Model,
		Stepper:   e.cfg.Stepper,
		Solver:    e.cfg.Solver,
		Seed:      e.cfg.Seed,
		TimeScale: e.cfg.TimeScale,
		Control:   e.control,
	}
	if e.base != nil {
		if c, ok := e.base.(dynamo.Configurable); ok {
			run.Params = c.GetParams()
		}
	}
	return run
}

// GetSimulator returns the underlying simulator for adding observers
func (e *Experiment) GetSimulator() *sim.Simulator {
	return e.simulator
}
