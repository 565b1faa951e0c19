package sim_test

import (
	"context"
	"math"
	"sync/atomic"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/sdesim/internal/compute"
	"github.com/san-kum/sdesim/internal/dynamo"
	"github.com/san-kum/sdesim/internal/integrators"
	"github.com/san-kum/sdesim/internal/models"
	"github.com/san-kum/sdesim/internal/sim"
)

// skewed reports a noise dimension that does not match its state.
type skewed struct{ *models.Linear }

func (s skewed) NoiseDim() int { return s.N + 1 }

func cstrConfig(realizations, workers int) dynamo.Config {
	cfg := dynamo.DefaultConfig()
	cfg.FinalTime = 3 * models.SampleSeconds
	cfg.Steps = 3 * 60
	cfg.Realizations = realizations
	cfg.Workers = workers
	return cfg
}

var _ = Describe("Simulator", func() {
	var (
		ctx  context.Context
		cstr *models.CSTR
		flow dynamo.Schedule
	)

	BeforeEach(func() {
		ctx = context.Background()
		cstr = models.NewCSTR()
		flow = models.FlowSchedule(models.FlowRateProfile(), 60)
	})

	Describe("determinism", func() {
		It("produces identical output for any worker count", func() {
			s := sim.New([]dynamo.Model{cstr}, integrators.NewImplicitEuler(), nil)

			one, err := s.Run(ctx, cstrConfig(7, 1), cstr.DefaultState(), flow)
			Expect(err).NotTo(HaveOccurred())
			three, err := s.Run(ctx, cstrConfig(7, 3), cstr.DefaultState(), flow)
			Expect(err).NotTo(HaveOccurred())
			many, err := s.Run(ctx, cstrConfig(7, 16), cstr.DefaultState(), flow)
			Expect(err).NotTo(HaveOccurred())

			Expect(three.States).To(Equal(one.States))
			Expect(many.States).To(Equal(one.States))
		})

		It("produces identical output for the same seed", func() {
			s := sim.New([]dynamo.Model{cstr}, nil, nil)
			a, err := s.Run(ctx, cstrConfig(2, 2), cstr.DefaultState(), flow)
			Expect(err).NotTo(HaveOccurred())
			b, err := s.Run(ctx, cstrConfig(2, 2), cstr.DefaultState(), flow)
			Expect(err).NotTo(HaveOccurred())
			Expect(a.States).To(Equal(b.States))

			cfg := cstrConfig(2, 2)
			cfg.Seed = 99
			c, err := s.Run(ctx, cfg, cstr.DefaultState(), flow)
			Expect(err).NotTo(HaveOccurred())
			Expect(c.States).NotTo(Equal(a.States))
		})

		It("agrees between full-trajectory and final-state modes", func() {
			s := sim.New([]dynamo.Model{cstr}, nil, compute.NewGonumBackend())

			full, err := s.Run(ctx, cstrConfig(4, 2), cstr.DefaultState(), flow)
			Expect(err).NotTo(HaveOccurred())

			cfg := cstrConfig(4, 2)
			cfg.Mode = dynamo.FinalState
			final, err := s.Run(ctx, cfg, cstr.DefaultState(), flow)
			Expect(err).NotTo(HaveOccurred())

			Expect(final.States).To(HaveLen(4 * 3))
			for r := 0; r < 4; r++ {
				Expect(final.Final(r)).To(Equal(full.Final(r)))
			}
		})
	})

	Describe("batch layout", func() {
		It("stores the initial state and a grid of N+1 points", func() {
			s := sim.New([]dynamo.Model{cstr}, nil, nil)
			res, err := s.Run(ctx, cstrConfig(3, 2), cstr.DefaultState(), flow)
			Expect(err).NotTo(HaveOccurred())

			Expect(res.Times).To(HaveLen(181))
			Expect(res.Times[0]).To(Equal(0.0))
			Expect(res.Times[180]).To(BeNumerically("~", 180, 1e-9))
			Expect(res.States).To(HaveLen(3 * 181 * 3))
			for r := 0; r < 3; r++ {
				Expect(res.Realization(r)[:3]).To(Equal([]float64(cstr.DefaultState())))
			}
			Expect(res.Failed()).To(BeZero())
			Expect(dynamo.State(res.States).IsValid()).To(BeTrue())
		})

		It("keeps the reactor temperature physical", func() {
			s := sim.New([]dynamo.Model{cstr}, nil, nil)
			res, err := s.Run(ctx, cstrConfig(2, 1), cstr.DefaultState(), flow)
			Expect(err).NotTo(HaveOccurred())
			for r := 0; r < 2; r++ {
				x := res.Final(r)
				Expect(x[0]).To(BeNumerically(">=", 0))
				Expect(x[2]).To(BeNumerically(">", 250))
				Expect(x[2]).To(BeNumerically("<", 400))
			}
		})
	})

	Describe("increments", func() {
		It("reuses one noise block when noise increment is off", func() {
			cfg := cstrConfig(3, 3)
			cfg.NoiseIncrement = false

			res, err := sim.New([]dynamo.Model{cstr}, nil, nil).Run(ctx, cfg, cstr.DefaultState(), flow)
			Expect(err).NotTo(HaveOccurred())
			Expect(res.Realization(1)).To(Equal(res.Realization(0)))
			Expect(res.Realization(2)).To(Equal(res.Realization(0)))
		})

		It("shares the first block of the fresh-noise draw, also for an odd block length", func() {
			m := models.NewLinear(1)
			m.Sigma = 0.5

			cfg := dynamo.DefaultConfig()
			cfg.FinalTime = 1
			cfg.Steps = 51
			cfg.Realizations = 3

			fresh, err := sim.New([]dynamo.Model{m}, nil, nil).Run(ctx, cfg, dynamo.State{1}, nil)
			Expect(err).NotTo(HaveOccurred())

			cfg.NoiseIncrement = false
			shared, err := sim.New([]dynamo.Model{m}, nil, nil).Run(ctx, cfg, dynamo.State{1}, nil)
			Expect(err).NotTo(HaveOccurred())

			for r := 0; r < cfg.Realizations; r++ {
				Expect(shared.Realization(r)).To(Equal(fresh.Realization(0)))
			}
		})

		It("draws a fresh noise block per realization otherwise", func() {
			res, err := sim.New([]dynamo.Model{cstr}, nil, nil).Run(ctx, cstrConfig(2, 1), cstr.DefaultState(), flow)
			Expect(err).NotTo(HaveOccurred())
			Expect(res.Realization(1)).NotTo(Equal(res.Realization(0)))
		})

		It("uses one model per realization when parameter increment is on", func() {
			ms := make([]dynamo.Model, 3)
			lambdas := []float64{0.5, 1, 2}
			for i, l := range lambdas {
				m := models.NewLinear(1)
				m.Lambda = l
				m.Sigma = 0
				ms[i] = m
			}

			cfg := dynamo.DefaultConfig()
			cfg.FinalTime = 1
			cfg.Steps = 50
			cfg.Realizations = 3
			cfg.ParamIncrement = true
			cfg.Tolerance = 1e-12

			res, err := sim.New(ms, nil, nil).Run(ctx, cfg, dynamo.State{1}, nil)
			Expect(err).NotTo(HaveOccurred())

			for r, l := range lambdas {
				want := 1.0
				for k := 0; k < cfg.Steps; k++ {
					want /= 1 + l*(res.Times[k+1]-res.Times[k])
				}
				Expect(res.Final(r)[0]).To(BeNumerically("~", want, 1e-10))
			}
		})
	})

	Describe("failures", func() {
		It("isolates a singular realization", func() {
			good := models.NewLinear(1)
			good.Sigma = 0
			bad := models.NewLinear(1)
			bad.Sigma = 0
			bad.Lambda = -10 // I - hJ vanishes for h = 0.1

			cfg := dynamo.DefaultConfig()
			cfg.FinalTime = 1
			cfg.Steps = 10
			cfg.Realizations = 2
			cfg.ParamIncrement = true
			cfg.Workers = 2

			res, err := sim.New([]dynamo.Model{good, bad}, nil, nil).Run(ctx, cfg, dynamo.State{1}, nil)
			Expect(err).NotTo(HaveOccurred())

			Expect(res.Reports[0].Failed()).To(BeFalse())
			Expect(res.Reports[1].Err).To(MatchError(dynamo.ErrSingularSystem))
			Expect(res.Failed()).To(Equal(1))

			Expect(dynamo.State(res.Realization(0)).IsValid()).To(BeTrue())
			Expect(res.Realization(1)[0]).To(Equal(1.0))
			Expect(math.IsNaN(res.Final(1)[0])).To(BeTrue())
		})

		It("flags steps that hit the iteration cap", func() {
			cfg := cstrConfig(1, 1)
			cfg.MaxIterations = 1
			cfg.Tolerance = 1e-14

			res, err := sim.New([]dynamo.Model{cstr}, nil, nil).Run(ctx, cfg, cstr.DefaultState(), flow)
			Expect(err).NotTo(HaveOccurred())
			Expect(res.NonConverged()).To(BeNumerically(">", 0))
			Expect(res.Reports[0].Failed()).To(BeFalse())
		})

		It("rejects invalid configurations before running", func() {
			cfg := cstrConfig(1, 1)
			cfg.Steps = 0
			res, err := sim.New([]dynamo.Model{cstr}, nil, nil).Run(ctx, cfg, cstr.DefaultState(), flow)
			Expect(err).To(MatchError(dynamo.ErrInvalidConfig))
			Expect(res).To(BeNil())

			cfg = cstrConfig(2, 1)
			cfg.ParamIncrement = true
			_, err = sim.New([]dynamo.Model{cstr}, nil, nil).Run(ctx, cfg, cstr.DefaultState(), flow)
			Expect(err).To(MatchError(dynamo.ErrInvalidConfig))

			_, err = sim.New(nil, nil, nil).Run(ctx, cstrConfig(1, 1), cstr.DefaultState(), flow)
			Expect(err).To(MatchError(dynamo.ErrInvalidConfig))
		})

		It("rejects mismatched dimensions", func() {
			_, err := sim.New([]dynamo.Model{cstr}, nil, nil).Run(ctx, cstrConfig(1, 1), dynamo.State{1, 2}, flow)
			Expect(err).To(MatchError(dynamo.ErrDimensionMismatch))

			m := skewed{models.NewLinear(2)}
			_, err = sim.New([]dynamo.Model{m}, nil, nil).Run(ctx, cstrConfig(1, 1), dynamo.State{1, 1}, nil)
			Expect(err).To(MatchError(dynamo.ErrDimensionMismatch))

			_, err = sim.New([]dynamo.Model{cstr}, nil, nil).Run(ctx, cstrConfig(1, 1), dynamo.State{math.NaN(), 0, 300}, flow)
			Expect(err).To(MatchError(dynamo.ErrInvalidState))
		})

		It("stops on a canceled context", func() {
			canceled, cancel := context.WithCancel(ctx)
			cancel()

			_, err := sim.New([]dynamo.Model{cstr}, nil, nil).Run(canceled, cstrConfig(4, 2), cstr.DefaultState(), flow)
			Expect(err).To(MatchError(dynamo.ErrContextCanceled))
			Expect(err).To(MatchError(context.Canceled))
		})
	})

	Describe("observers", func() {
		It("sees every realization once", func() {
			var calls, seen int64
			s := sim.New([]dynamo.Model{cstr}, nil, nil)
			s.AddObserver(sim.ObserverFunc(func(idx int, rep dynamo.RealizationReport) {
				atomic.AddInt64(&calls, 1)
				atomic.AddInt64(&seen, int64(1<<idx))
			}))

			_, err := s.Run(ctx, cstrConfig(5, 3), cstr.DefaultState(), flow)
			Expect(err).NotTo(HaveOccurred())
			Expect(atomic.LoadInt64(&calls)).To(Equal(int64(5)))
			Expect(atomic.LoadInt64(&seen)).To(Equal(int64(31)))
		})
	})
})

var _ = Describe("Integrate", func() {
	It("validates caller buffers", func() {
		m := models.NewLinear(2)
		integ := integrators.New(integrators.NewImplicitEuler(), dynamo.FullTrajectory)
		pool := sim.NewWorkspacePool(2, 20, 1e-8, nil)

		job := &sim.Job{
			Models:       []dynamo.Model{m},
			Grid:         []float64{0, 0.5, 1},
			Schedule:     dynamo.Constant(0),
			X0:           dynamo.State{1, 1},
			Noise:        make([]float64, 4),
			Out:          make([]float64, 5),
			Realizations: 1,
		}
		_, err := sim.Integrate(context.Background(), job, integ, pool)
		Expect(err).To(MatchError(dynamo.ErrDimensionMismatch))

		job.Out = make([]float64, 6)
		job.NoiseIncrement = true
		job.Realizations = 2
		job.Out = make([]float64, 12)
		_, err = sim.Integrate(context.Background(), job, integ, pool)
		Expect(err).To(MatchError(dynamo.ErrDimensionMismatch))

		job.Noise = make([]float64, 8)
		reports, err := sim.Integrate(context.Background(), job, integ, pool)
		Expect(err).NotTo(HaveOccurred())
		Expect(reports).To(HaveLen(2))
		Expect(job.Out[6:8]).To(Equal([]float64{1, 1}))
	})
})
