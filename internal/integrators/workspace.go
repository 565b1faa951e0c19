package integrators

import (
	"github.com/san-kum/sdesim/internal/compute"
	"github.com/san-kum/sdesim/internal/dynamo"
)

// Workspace is the scratch of one worker. It must never be shared between goroutines.
type Workspace struct {
	n   int
	f   dynamo.State
	g   dynamo.State
	psi dynamo.State

	// states holds the previous and next state of final-state mode; cur indexes
	// the one holding the accepted state.
	states [2]dynamo.State
	cur    int

	corrector *Corrector
}

func NewWorkspace(n, maxIterations int, tolerance float64, backend compute.Backend) *Workspace {
	return &Workspace{
		n:         n,
		f:         make(dynamo.State, n),
		g:         make(dynamo.State, n),
		psi:       make(dynamo.State, n),
		states:    [2]dynamo.State{make(dynamo.State, n), make(dynamo.State, n)},
		corrector: NewCorrector(maxIterations, tolerance, backend),
	}
}

func (w *Workspace) StateDim() int { return w.n }

func (w *Workspace) current() dynamo.State { return w.states[w.cur] }

func (w *Workspace) next() dynamo.State { return w.states[1-w.cur] }

func (w *Workspace) swap() { w.cur = 1 - w.cur }
