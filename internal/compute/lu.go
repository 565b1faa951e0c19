package compute

import "math"

// LUBackend is an allocation-free Gaussian elimination with partial pivoting that
// works directly on column-major storage, following the LAPACK dgesv contract.
type LUBackend struct{}

func NewLUBackend() *LUBackend {
	return &LUBackend{}
}

func (l *LUBackend) Name() string { return "lu" }

func (l *LUBackend) Solve(a, b []float64, n int, piv []int) error {
	if err := l.Factorize(a, n, piv); err != nil {
		return err
	}
	l.SolveFactored(a, b, n, piv)
	return nil
}

// Factorize computes P A = L U in place. L has a unit diagonal and is stored below it.
func (l *LUBackend) Factorize(a []float64, n int, piv []int) error {
	for k := 0; k < n; k++ {
		col := a[k*n : (k+1)*n]

		p := k
		maxAbs := math.Abs(col[k])
		for i := k + 1; i < n; i++ {
			if v := math.Abs(col[i]); v > maxAbs {
				maxAbs = v
				p = i
			}
		}
		piv[k] = p

		if maxAbs == 0 || math.IsNaN(maxAbs) || math.IsInf(maxAbs, 0) {
			return ErrSingular
		}

		if p != k {
			for j := 0; j < n; j++ {
				a[j*n+k], a[j*n+p] = a[j*n+p], a[j*n+k]
			}
		}

		inv := 1 / col[k]
		for i := k + 1; i < n; i++ {
			col[i] *= inv
		}

		for j := k + 1; j < n; j++ {
			cj := a[j*n : (j+1)*n]
			f := cj[k]
			if f == 0 {
				continue
			}
			for i := k + 1; i < n; i++ {
				cj[i] -= f * col[i]
			}
		}
	}
	return nil
}

// SolveFactored applies a factorization from Factorize to b in place.
func (l *LUBackend) SolveFactored(a, b []float64, n int, piv []int) {
	for k := 0; k < n; k++ {
		if p := piv[k]; p != k {
			b[k], b[p] = b[p], b[k]
		}
	}

	// forward substitution, unit lower triangle
	for j := 0; j < n; j++ {
		bj := b[j]
		if bj == 0 {
			continue
		}
		col := a[j*n : (j+1)*n]
		for i := j + 1; i < n; i++ {
			b[i] -= bj * col[i]
		}
	}

	// back substitution
	for j := n - 1; j >= 0; j-- {
		col := a[j*n : (j+1)*n]
		b[j] /= col[j]
		bj := b[j]
		for i := 0; i < j; i++ {
			b[i] -= bj * col[i]
		}
	}
}
