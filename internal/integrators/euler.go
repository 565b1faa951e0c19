package integrators

import "github.com/san-kum/sdesim/internal/dynamo"

// Stepper advances one state by one time step of length h using the noise
// increment dw. next must not alias x.
type Stepper interface {
	Name() string
	Step(ws *Workspace, m dynamo.Model, t, h, u float64, x, dw, next dynamo.State) (Result, error)
}

// ImplicitEuler treats drift implicitly and diffusion explicitly:
//
//	psi  = x + g(x) dw
//	next = psi + h f(next), solved by Newton from the guess psi + h f(x)
type ImplicitEuler struct{}

func NewImplicitEuler() *ImplicitEuler {
	return &ImplicitEuler{}
}

func (e *ImplicitEuler) Name() string { return "implicit" }

func (e *ImplicitEuler) Step(ws *Workspace, m dynamo.Model, t, h, u float64, x, dw, next dynamo.State) (Result, error) {
	m.Drift(t, x, u, nil, ws.f)
	m.Diffusion(t, x, u, nil, ws.g)

	for i := range x {
		ws.psi[i] = x[i] + ws.g[i]*dw[i]
		next[i] = ws.psi[i] + h*ws.f[i]
	}

	return ws.corrector.Correct(m, t, h, u, next, ws.psi)
}

// ExplicitEuler is the plain Euler-Maruyama step next = x + h f(x) + g(x) dw.
type ExplicitEuler struct{}

func NewExplicitEuler() *ExplicitEuler {
	return &ExplicitEuler{}
}

func (e *ExplicitEuler) Name() string { return "explicit" }

func (e *ExplicitEuler) Step(ws *Workspace, m dynamo.Model, t, h, u float64, x, dw, next dynamo.State) (Result, error) {
	m.Drift(t, x, u, nil, ws.f)
	m.Diffusion(t, x, u, nil, ws.g)

	for i := range x {
		next[i] = x[i] + ws.g[i]*dw[i] + h*ws.f[i]
	}
	return Result{Status: Converged}, nil
}
