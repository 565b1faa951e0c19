package compute

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// GonumBackend solves through gonum's LU factorization and rejects systems whose
// condition number exceeds mat.ConditionTolerance, not only exactly singular ones.
type GonumBackend struct {
	n   int
	a   *mat.Dense
	rhs *mat.VecDense
	x   *mat.VecDense
	lu  mat.LU
}

func NewGonumBackend() *GonumBackend {
	return &GonumBackend{}
}

func (g *GonumBackend) Name() string { return "gonum" }

func (g *GonumBackend) ensureScratch(n int) {
	if g.n != n {
		g.n = n
		g.a = mat.NewDense(n, n, nil)
		g.rhs = mat.NewVecDense(n, nil)
		g.x = mat.NewVecDense(n, nil)
	}
}

func (g *GonumBackend) Solve(a, b []float64, n int, piv []int) error {
	g.ensureScratch(n)

	for j := 0; j < n; j++ {
		for i := 0; i < n; i++ {
			g.a.Set(i, j, a[j*n+i])
		}
	}
	for i := 0; i < n; i++ {
		g.rhs.SetVec(i, b[i])
	}

	g.lu.Factorize(g.a)
	if err := g.lu.SolveVecTo(g.x, false, g.rhs); err != nil {
		var cond mat.Condition
		if errors.As(err, &cond) {
			return fmt.Errorf("%w: condition number %g", ErrSingular, float64(cond))
		}
		return err
	}

	for i := 0; i < n; i++ {
		b[i] = g.x.AtVec(i)
		piv[i] = i
	}
	return nil
}
