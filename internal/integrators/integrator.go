package integrators

import (
	"math"

	"github.com/san-kum/sdesim/internal/dynamo"
)

// Integrator drives a Stepper over a time grid for one realization at a time.
type Integrator struct {
	stepper Stepper
	mode    dynamo.Mode
}

func New(stepper Stepper, mode dynamo.Mode) *Integrator {
	return &Integrator{stepper: stepper, mode: mode}
}

func (in *Integrator) Stepper() Stepper { return in.stepper }

func (in *Integrator) Mode() dynamo.Mode { return in.mode }

// OutputLen is the number of values one realization writes.
func (in *Integrator) OutputLen(n, steps int) int {
	return in.mode.Points(steps) * n
}

// Integrate runs len(grid)-1 steps from x0 using increments dW ([step][dim]) and
// writes the realization into out: every state in full-trajectory mode, only the
// terminal one in final-state mode. x0 may alias the head of out.
//
// Steps whose Newton iteration hits its cap are listed in the report and their last
// iterate is kept. A singular step aborts the realization: the unwritten part of out
// is set to NaN and the report carries the error.
func (in *Integrator) Integrate(ws *Workspace, m dynamo.Model, realization int, grid []float64, u dynamo.Schedule, x0, dW, out []float64) dynamo.RealizationReport {
	if in.mode == dynamo.FinalState {
		return in.integrateFinal(ws, m, realization, grid, u, x0, dW, out)
	}
	return in.integrateFull(ws, m, realization, grid, u, x0, dW, out)
}

func (in *Integrator) integrateFull(ws *Workspace, m dynamo.Model, realization int, grid []float64, u dynamo.Schedule, x0, dW, out []float64) dynamo.RealizationReport {
	n := ws.n
	steps := len(grid) - 1
	rep := dynamo.RealizationReport{Realization: realization}

	copy(out[:n], x0)

	for k := 0; k < steps; k++ {
		x := dynamo.State(out[k*n : (k+1)*n])
		next := dynamo.State(out[(k+1)*n : (k+2)*n])
		dw := dynamo.State(dW[k*n : (k+1)*n])

		if !in.step(ws, m, &rep, k, grid, u, x, dw, next) {
			dynamo.State(out[(k+1)*n:]).Fill(math.NaN())
			return rep
		}
	}
	return rep
}

func (in *Integrator) integrateFinal(ws *Workspace, m dynamo.Model, realization int, grid []float64, u dynamo.Schedule, x0, dW, out []float64) dynamo.RealizationReport {
	n := ws.n
	steps := len(grid) - 1
	rep := dynamo.RealizationReport{Realization: realization}

	ws.cur = 0
	copy(ws.current(), x0)

	for k := 0; k < steps; k++ {
		dw := dynamo.State(dW[k*n : (k+1)*n])

		if !in.step(ws, m, &rep, k, grid, u, ws.current(), dw, ws.next()) {
			dynamo.State(out[:n]).Fill(math.NaN())
			return rep
		}
		ws.swap()
	}

	copy(out[:n], ws.current())
	return rep
}

// step advances one step and records it in rep. It returns false when the
// realization has to be aborted.
func (in *Integrator) step(ws *Workspace, m dynamo.Model, rep *dynamo.RealizationReport, k int, grid []float64, u dynamo.Schedule, x, dw, next dynamo.State) bool {
	t := grid[k]
	h := grid[k+1] - grid[k]

	res, err := in.stepper.Step(ws, m, t, h, u.At(k), x, dw, next)
	rep.Iterations += res.Iterations
	if err != nil {
		rep.Err = &dynamo.SimulationError{Realization: rep.Realization, Step: k, Time: t, Wrapped: err}
		rep.Error = rep.Err.Error()
		return false
	}

	rep.Steps++
	if res.Status == IterationCap {
		rep.NonConverged = append(rep.NonConverged, k)
	}
	if res.Residual > rep.MaxResidual {
		rep.MaxResidual = res.Residual
	}
	return true
}
