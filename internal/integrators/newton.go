package integrators

import (
	"errors"
	"fmt"
	"math"

	"github.com/san-kum/sdesim/internal/compute"
	"github.com/san-kum/sdesim/internal/dynamo"
)

type Status int

const (
	Converged Status = iota
	IterationCap
	Singular
)

func (s Status) String() string {
	switch s {
	case Converged:
		return "converged"
	case IterationCap:
		return "iteration cap reached"
	case Singular:
		return "singular system"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

// Result describes one Newton correction.
type Result struct {
	Status     Status
	Iterations int
	Residual   float64
}

// Corrector resolves the implicit step x - h f(x) - psi = 0 by Newton-Raphson.
type Corrector struct {
	maxIterations int
	tolerance     float64
	backend       compute.Backend

	f   dynamo.State
	jac []float64
	a   []float64
	r   dynamo.State
	piv []int
}

func NewCorrector(maxIterations int, tolerance float64, backend compute.Backend) *Corrector {
	if backend == nil {
		backend = compute.Default()
	}
	return &Corrector{
		maxIterations: maxIterations,
		tolerance:     tolerance,
		backend:       backend,
	}
}

func (c *Corrector) ensureScratch(n int) {
	if len(c.f) != n {
		c.f = make(dynamo.State, n)
		c.jac = make([]float64, n*n)
		c.a = make([]float64, n*n)
		c.r = make(dynamo.State, n)
		c.piv = make([]int, n)
	}
}

// residual refreshes r = x - h f(x) - psi and reports whether every |r_i| < tol.
func (c *Corrector) residual(m dynamo.Model, t, h, u float64, x, psi dynamo.State) bool {
	m.Drift(t, x, u, nil, c.f)
	converged := true
	for i := range c.r {
		c.r[i] = x[i] - c.f[i]*h - psi[i]
		converged = converged && math.Abs(c.r[i]) < c.tolerance
	}
	return converged
}

// Correct refines x in place. The order per pass is solve, update, residual,
// convergence test, then a Jacobian refresh only if not converged. With a zero
// cap the guess is returned untouched. On IterationCap the last iterate is kept in x.
// On Singular x holds the iterate before the failed solve and the error wraps
// dynamo.ErrSingularSystem.
func (c *Corrector) Correct(m dynamo.Model, t, h, u float64, x, psi dynamo.State) (Result, error) {
	n := len(x)
	c.ensureScratch(n)

	converged := c.residual(m, t, h, u, x, psi)
	m.Jacobian(t, x, u, nil, c.jac)

	// one solve is made whenever the cap allows it, converged predictor or not
	res := Result{Status: IterationCap}
	for res.Iterations < c.maxIterations {
		// A = I - h J, column-major
		for j := 0; j < n; j++ {
			for i := 0; i < n; i++ {
				k := j*n + i
				if i == j {
					c.a[k] = 1 - c.jac[k]*h
				} else {
					c.a[k] = -c.jac[k] * h
				}
			}
		}

		if err := c.backend.Solve(c.a, c.r, n, c.piv); err != nil {
			res.Status = Singular
			res.Residual = math.NaN()
			if errors.Is(err, compute.ErrSingular) {
				return res, fmt.Errorf("%w: %v", dynamo.ErrSingularSystem, err)
			}
			return res, err
		}
		res.Iterations++

		for i := range x {
			x[i] -= c.r[i]
		}

		converged = c.residual(m, t, h, u, x, psi)
		if converged {
			break
		}

		m.Jacobian(t, x, u, nil, c.jac)
	}

	if converged {
		res.Status = Converged
	}
	res.Residual = c.r.InfNorm()
	return res, nil
}
