package sim

import (
	"context"
	"sync"
	"time"

	"github.com/san-kum/sdesim/internal/compute"
	"github.com/san-kum/sdesim/internal/dynamo"
	"github.com/san-kum/sdesim/internal/integrators"
	"github.com/san-kum/sdesim/internal/noise"
	"github.com/san-kum/sdesim/internal/rng"
)

// Simulator runs seeded batches of one model family with one stepping scheme.
type Simulator struct {
	models    []dynamo.Model
	stepper   integrators.Stepper
	backend   compute.Backend
	observers []Observer

	mu   sync.Mutex
	pool *WorkspacePool
}

// New returns a simulator over models. A single model drives every realization
// unless the config sets ParamIncrement, in which case models[r] drives realization r.
func New(models []dynamo.Model, stepper integrators.Stepper, backend compute.Backend) *Simulator {
	if stepper == nil {
		stepper = integrators.NewImplicitEuler()
	}
	if backend == nil {
		backend = compute.Default()
	}
	return &Simulator{
		models:    models,
		stepper:   stepper,
		backend:   backend,
		observers: make([]Observer, 0),
	}
}

func (s *Simulator) AddObserver(o Observer) { s.observers = append(s.observers, o) }

func (s *Simulator) Stepper() integrators.Stepper { return s.stepper }

func (s *Simulator) Backend() compute.Backend { return s.backend }

// Run validates cfg, draws the noise for cfg.Seed and integrates the batch.
// Configuration errors are returned before anything is allocated.
func (s *Simulator) Run(ctx context.Context, cfg dynamo.Config, x0 dynamo.State, u dynamo.Schedule) (*dynamo.Result, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := checkModels(s.models, x0, cfg.Realizations, cfg.ParamIncrement); err != nil {
		return nil, err
	}
	if u == nil {
		u = dynamo.Constant(0)
	}

	n := s.models[0].StateDim()
	start := time.Now()

	grid := noise.TimeGrid(cfg.T0, cfg.FinalTime, cfg.Steps)

	// every block is drawn even when only block 0 is read, so block 0 holds the
	// same variates in both increment modes
	gen := rng.New(cfg.Seed)
	dW := noise.ScaledNoise(gen, cfg.FinalTime, cfg.Steps, n, cfg.Realizations)

	integ := integrators.New(s.stepper, cfg.Mode)
	out := make([]float64, cfg.Realizations*integ.OutputLen(n, cfg.Steps))

	job := &Job{
		Models:         s.models,
		Grid:           grid,
		Schedule:       u,
		X0:             x0,
		Noise:          dW,
		Out:            out,
		Realizations:   cfg.Realizations,
		NoiseIncrement: cfg.NoiseIncrement,
		ParamIncrement: cfg.ParamIncrement,
		Workers:        cfg.Workers,
	}
	if len(s.observers) > 0 {
		job.Observer = observerList(s.observers)
	}

	reports, err := Integrate(ctx, job, integ, s.workspaces(n, cfg))

	result := &dynamo.Result{
		Times:        grid,
		States:       out,
		StateDim:     n,
		Steps:        cfg.Steps,
		Realizations: cfg.Realizations,
		Mode:         cfg.Mode,
		Reports:      reports,
		Elapsed:      time.Since(start),
	}
	return result, err
}

func (s *Simulator) workspaces(n int, cfg dynamo.Config) *WorkspacePool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.pool == nil || !s.pool.matches(n, cfg.MaxIterations, cfg.Tolerance, s.backend.Name()) {
		s.pool = NewWorkspacePool(n, cfg.MaxIterations, cfg.Tolerance, s.backend)
	}
	return s.pool
}
