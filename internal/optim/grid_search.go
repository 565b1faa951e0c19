package optim

import (
	"context"
	"fmt"
	"math"

	"github.com/san-kum/sdesim/internal/analysis"
	"github.com/san-kum/sdesim/internal/dynamo"
	"github.com/san-kum/sdesim/internal/experiment"
)

// Objective scores a finished batch; lower is better. NaN marks a point that
// produced no usable realization.
type Objective func(res *dynamo.Result) float64

// TerminalMean is the ensemble mean of one state at the end of the horizon.
func TerminalMean(state int) Objective {
	return func(res *dynamo.Result) float64 {
		return terminal(res, state, func(s analysis.StateSummary) float64 { return s.FinalMean })
	}
}

// TerminalStd is the ensemble spread of one state at the end of the horizon.
func TerminalStd(state int) Objective {
	return func(res *dynamo.Result) float64 {
		return terminal(res, state, func(s analysis.StateSummary) float64 { return s.FinalStd })
	}
}

// TargetError is the mean squared distance of one terminal state to target,
// i.e. squared bias plus variance.
func TargetError(state int, target float64) Objective {
	return func(res *dynamo.Result) float64 {
		return terminal(res, state, func(s analysis.StateSummary) float64 {
			d := s.FinalMean - target
			return d*d + s.FinalStd*s.FinalStd
		})
	}
}

func terminal(res *dynamo.Result, state int, pick func(analysis.StateSummary) float64) float64 {
	if state < 0 || state >= res.StateDim {
		return math.NaN()
	}
	stats := analysis.Ensemble(res, 0)
	if stats.Used == 0 {
		return math.NaN()
	}
	return pick(stats.Summary()[state])
}

// GridSearch evaluates every combination of the given parameter values.
type GridSearch struct {
	paramNames []string
	ranges     [][]float64
}

func NewGridSearch(params []string, ranges [][]float64) *GridSearch {
	return &GridSearch{paramNames: params, ranges: ranges}
}

// Points is the number of combinations the search evaluates.
func (g *GridSearch) Points() int {
	if len(g.ranges) == 0 {
		return 0
	}
	n := 1
	for _, r := range g.ranges {
		n *= len(r)
	}
	return n
}

// Search returns the combination with the lowest objective. Combinations whose
// objective is NaN never win; if none is finite the best value is +Inf and the
// params are nil.
func (g *GridSearch) Search(
	ctx context.Context,
	buildExperiment func(params map[string]float64) (*experiment.Experiment, error),
	objective Objective,
) (map[string]float64, float64, error) {
	if len(g.paramNames) == 0 || len(g.paramNames) != len(g.ranges) {
		return nil, 0, fmt.Errorf("%w: %d parameters with %d value ranges", dynamo.ErrInvalidConfig, len(g.paramNames), len(g.ranges))
	}

	best := math.Inf(1)
	var bestParams map[string]float64

	err := g.searchRecursive(ctx, 0, make(map[string]float64), buildExperiment, objective, &best, &bestParams)
	if err != nil {
		return bestParams, best, err
	}
	return bestParams, best, nil
}

func (g *GridSearch) searchRecursive(
	ctx context.Context,
	depth int,
	current map[string]float64,
	buildExperiment func(map[string]float64) (*experiment.Experiment, error),
	objective Objective,
	best *float64,
	bestParams *map[string]float64,
) error {
	if depth == len(g.paramNames) {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("%w: %w", dynamo.ErrContextCanceled, err)
		}

		exp, err := buildExperiment(current)
		if err != nil {
			return err
		}

		result, err := exp.Run(ctx)
		if err != nil {
			return err
		}

		val := objective(result)
		if val < *best {
			*best = val
			*bestParams = make(map[string]float64)
			for k, v := range current {
				(*bestParams)[k] = v
			}
		}
		return nil
	}

	paramName := g.paramNames[depth]
	for _, val := range g.ranges[depth] {
		newParams := make(map[string]float64)
		for k, v := range current {
			newParams[k] = v
		}
		newParams[paramName] = val

		if err := g.searchRecursive(ctx, depth+1, newParams, buildExperiment, objective, best, bestParams); err != nil {
			return err
		}
	}
	return nil
}
