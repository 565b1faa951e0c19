package metrics

import (
	"sync"

	"github.com/san-kum/sdesim/internal/dynamo"
	"github.com/san-kum/sdesim/internal/sim"
)

// Metric aggregates realization reports as they arrive. Every metric is a
// sim.Observer and safe for concurrent use.
type Metric interface {
	sim.Observer
	Name() string
	Value() float64
	Reset()
}

// Stability is the fraction of realizations that ran to the end of the horizon.
type Stability struct {
	mu       sync.Mutex
	failures int
	samples  int
}

func NewStability() *Stability {
	return &Stability{}
}

func (s *Stability) Name() string { return "stability" }

func (s *Stability) OnRealization(_ int, rep dynamo.RealizationReport) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.samples++
	// stored reports only keep the message
	if rep.Failed() || rep.Error != "" {
		s.failures++
	}
}

func (s *Stability) Value() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.samples == 0 {
		return 1.0
	}
	return 1.0 - float64(s.failures)/float64(s.samples)
}

func (s *Stability) Reset() {
	s.mu.Lock()
	s.failures = 0
	s.samples = 0
	s.mu.Unlock()
}

// NewtonEffort is the mean number of Newton iterations per accepted step.
type NewtonEffort struct {
	mu         sync.Mutex
	iterations int
	steps      int
}

func NewNewtonEffort() *NewtonEffort {
	return &NewtonEffort{}
}

func (n *NewtonEffort) Name() string { return "newton_effort" }

func (n *NewtonEffort) OnRealization(_ int, rep dynamo.RealizationReport) {
	n.mu.Lock()
	n.iterations += rep.Iterations
	n.steps += rep.Steps
	n.mu.Unlock()
}

func (n *NewtonEffort) Value() float64 {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.steps == 0 {
		return 0
	}
	return float64(n.iterations) / float64(n.steps)
}

func (n *NewtonEffort) Reset() {
	n.mu.Lock()
	n.iterations = 0
	n.steps = 0
	n.mu.Unlock()
}

// Convergence is the fraction of accepted steps whose Newton iteration met the
// tolerance before the cap.
type Convergence struct {
	mu     sync.Mutex
	capped int
	steps  int
}

func NewConvergence() *Convergence {
	return &Convergence{}
}

func (c *Convergence) Name() string { return "convergence" }

func (c *Convergence) OnRealization(_ int, rep dynamo.RealizationReport) {
	c.mu.Lock()
	c.capped += len(rep.NonConverged)
	c.steps += rep.Steps
	c.mu.Unlock()
}

func (c *Convergence) Value() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.steps == 0 {
		return 1.0
	}
	return 1.0 - float64(c.capped)/float64(c.steps)
}

func (c *Convergence) Reset() {
	c.mu.Lock()
	c.capped = 0
	c.steps = 0
	c.mu.Unlock()
}

// Standard returns the solver health metrics reported after every run.
func Standard() []Metric {
	return []Metric{NewStability(), NewConvergence(), NewNewtonEffort()}
}

// Collect replays stored reports through ms and returns their values by name.
func Collect(reports []dynamo.RealizationReport, ms ...Metric) map[string]float64 {
	for _, r := range reports {
		for _, m := range ms {
			m.OnRealization(r.Realization, r)
		}
	}
	return Values(ms...)
}

func Values(ms ...Metric) map[string]float64 {
	out := make(map[string]float64, len(ms))
	for _, m := range ms {
		out[m.Name()] = m.Value()
	}
	return out
}
