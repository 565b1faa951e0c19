package sim

import (
	"context"
	"fmt"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/san-kum/sdesim/internal/dynamo"
	"github.com/san-kum/sdesim/internal/integrators"
)

// Integrate runs every realization of job. Realizations are split into contiguous
// ranges, one goroutine and one workspace per range, and each writes only its own
// slice of job.Out, so the output does not depend on the worker count.
//
// A failed realization is reported in its RealizationReport and does not stop the
// others. The returned error is non-nil only for an invalid job or a canceled context,
// which is checked between realizations.
func Integrate(ctx context.Context, job *Job, integ *integrators.Integrator, pool *WorkspacePool) ([]dynamo.RealizationReport, error) {
	if err := job.validate(integ.OutputLen); err != nil {
		return nil, err
	}

	n := job.Models[0].StateDim()
	if pool == nil || pool.size != n {
		return nil, fmt.Errorf("%w: workspace pool does not fit state dim %d", dynamo.ErrDimensionMismatch, n)
	}

	workers := job.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	steps := job.steps()
	size := integ.OutputLen(n, steps)
	reports := make([]dynamo.RealizationReport, job.Realizations)

	g, ctx := errgroup.WithContext(ctx)
	for _, r := range dynamo.Partition(job.Realizations, workers) {
		g.Go(func() error {
			ws := pool.Get()
			defer pool.Put(ws)

			for i := r.Start; i < r.End; i++ {
				if err := ctx.Err(); err != nil {
					return fmt.Errorf("%w: %w", dynamo.ErrContextCanceled, err)
				}

				out := job.Out[i*size : (i+1)*size]
				reports[i] = integ.Integrate(ws, job.model(i), i, job.Grid, job.Schedule, job.X0, job.noiseBlock(i, n), out)
				if job.Observer != nil {
					job.Observer.OnRealization(i, reports[i])
				}
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return reports, err
	}
	return reports, nil
}
