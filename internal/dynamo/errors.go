package dynamo

import (
	"errors"
	"fmt"
)

// Domain errors for simulation operations.
var (
	// ErrInvalidConfig indicates a configuration rejected before any allocation.
	ErrInvalidConfig = errors.New("dynamo: invalid configuration")

	// ErrDimensionMismatch indicates mismatched state/noise/buffer dimensions.
	ErrDimensionMismatch = errors.New("dynamo: dimension mismatch between state and system")

	// ErrSingularSystem indicates the Newton linear system could not be factorized.
	ErrSingularSystem = errors.New("dynamo: singular linear system")

	// ErrNotConverged indicates Newton iteration hit its cap. Reported, not fatal.
	ErrNotConverged = errors.New("dynamo: newton iteration did not converge")

	// ErrInvalidState indicates a state vector with NaN or Inf values.
	ErrInvalidState = errors.New("dynamo: invalid state (NaN or Inf detected)")

	// ErrContextCanceled indicates the batch was interrupted between realizations.
	ErrContextCanceled = errors.New("dynamo: simulation canceled by context")
)

// SimulationError wraps an error with the realization and step it occurred at.
type SimulationError struct {
	Realization int
	Step        int
	Time        float64
	Wrapped     error
}

func (e *SimulationError) Error() string {
	return fmt.Sprintf("realization %d step %d (t=%.4f): %v", e.Realization, e.Step, e.Time, e.Wrapped)
}

func (e *SimulationError) Unwrap() error {
	return e.Wrapped
}

// NonConvergence returns an error wrapping ErrNotConverged when any step of the
// realization stopped at the Newton cap, and nil otherwise. It never marks the
// report as failed.
func (r RealizationReport) NonConvergence() error {
	if len(r.NonConverged) == 0 {
		return nil
	}
	return fmt.Errorf("%w: realization %d, %d steps at the iteration cap (first at step %d)",
		ErrNotConverged, r.Realization, len(r.NonConverged), r.NonConverged[0])
}
