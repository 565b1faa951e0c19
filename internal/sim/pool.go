package sim

import (
	"sync"

	"github.com/san-kum/sdesim/internal/compute"
	"github.com/san-kum/sdesim/internal/integrators"
)

// WorkspacePool recycles integrator workspaces of one shape between batches.
// A workspace taken from the pool belongs to a single goroutine until it is put back.
type WorkspacePool struct {
	pool          sync.Pool
	size          int
	maxIterations int
	tolerance     float64
	backendName   string
}

func NewWorkspacePool(stateSize, maxIterations int, tolerance float64, backend compute.Backend) *WorkspacePool {
	if backend == nil {
		backend = compute.Default()
	}
	p := &WorkspacePool{
		size:          stateSize,
		maxIterations: maxIterations,
		tolerance:     tolerance,
		backendName:   backend.Name(),
	}
	p.pool.New = func() interface{} {
		// backends keep factorization scratch, so every workspace gets its own
		b, err := compute.New(p.backendName)
		if err != nil {
			b = compute.Default()
		}
		return integrators.NewWorkspace(stateSize, maxIterations, tolerance, b)
	}
	return p
}

func (p *WorkspacePool) Get() *integrators.Workspace {
	return p.pool.Get().(*integrators.Workspace)
}

func (p *WorkspacePool) Put(ws *integrators.Workspace) {
	if ws != nil && ws.StateDim() == p.size {
		p.pool.Put(ws)
	}
}

func (p *WorkspacePool) matches(stateSize, maxIterations int, tolerance float64, backend string) bool {
	return p.size == stateSize && p.maxIterations == maxIterations && p.tolerance == tolerance && p.backendName == backend
}
