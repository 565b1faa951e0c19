package compute

import (
	"errors"
	"fmt"
	"sort"
)

// ErrSingular is returned when a system cannot be solved to working precision.
var ErrSingular = errors.New("compute: matrix is singular")

// Backend solves dense square systems A x = b.
//
// a holds A in column-major order (a[j*n+i] = A_ij) and is overwritten with its
// factorization. b is overwritten with the solution. piv must have length n.
// A backend instance may keep scratch and is owned by a single worker.
type Backend interface {
	Name() string
	Solve(a, b []float64, n int, piv []int) error
}

var backends = map[string]func() Backend{
	"lu":    func() Backend { return NewLUBackend() },
	"gonum": func() Backend { return NewGonumBackend() },
}

// New returns a fresh backend by name.
func New(name string) (Backend, error) {
	fn, ok := backends[name]
	if !ok {
		return nil, fmt.Errorf("unknown solver backend: %s (available: %v)", name, Names())
	}
	return fn(), nil
}

// Default returns the native LU backend.
func Default() Backend {
	return NewLUBackend()
}

func Names() []string {
	names := make([]string, 0, len(backends))
	for name := range backends {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
