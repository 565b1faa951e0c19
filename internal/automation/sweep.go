package automation

import (
	"context"
	"fmt"
	"log"
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/san-kum/sdesim/internal/analysis"
	"github.com/san-kum/sdesim/internal/config"
	"github.com/san-kum/sdesim/internal/dynamo"
	"github.com/san-kum/sdesim/internal/experiment"
)

// ParameterSweep runs the base experiment once per value of one model parameter.
// Every point reuses the base seed, so the points differ only in the parameter.
type ParameterSweep struct {
	Base      *config.Config
	ParamName string
	Values    []float64
	// State is the state index whose terminal distribution is summarized.
	State int
}

// SweepResult holds the terminal ensemble statistics of one sweep point.
type SweepResult struct {
	ParamValue   float64
	FinalMean    float64
	FinalStd     float64
	Used         int
	Failed       int
	NonConverged int
	Iterations   int
}

// Linspace returns n evenly spaced values from min to max inclusive.
func Linspace(min, max float64, n int) []float64 {
	if n <= 0 {
		return nil
	}
	if n == 1 {
		return []float64{min}
	}
	return floats.Span(make([]float64, n), min, max)
}

// RunSweep executes a parameter sweep.
func RunSweep(ctx context.Context, sweep *ParameterSweep, registry *experiment.Registry) ([]SweepResult, error) {
	if sweep.ParamName == "" || len(sweep.Values) == 0 {
		return nil, fmt.Errorf("%w: sweep needs a parameter and at least one value", dynamo.ErrInvalidConfig)
	}
	if sweep.ParamName == "n" {
		return nil, fmt.Errorf("%w: the state dimension cannot be swept", dynamo.ErrInvalidConfig)
	}

	results := make([]SweepResult, 0, len(sweep.Values))

	for i, v := range sweep.Values {
		cfg := sweep.Base.Clone()
		if cfg.Params == nil {
			cfg.Params = make(map[string]float64)
		}
		cfg.Params[sweep.ParamName] = v

		exp := experiment.New(cfg)
		if err := exp.Setup(registry); err != nil {
			return results, fmt.Errorf("%s=%g: %w", sweep.ParamName, v, err)
		}
		if dim := len(exp.InitialState()); sweep.State < 0 || sweep.State >= dim {
			return results, fmt.Errorf("%w: state %d out of range [0, %d)", dynamo.ErrInvalidConfig, sweep.State, dim)
		}

		result, err := exp.Run(ctx)
		if err != nil {
			return results, fmt.Errorf("%s=%g: %w", sweep.ParamName, v, err)
		}

		results = append(results, summarize(v, result, sweep.State, cfg.Workers))
		log.Printf("sweep %d/%d: %s=%.4g", i+1, len(sweep.Values), sweep.ParamName, v)
	}

	return results, nil
}

func summarize(v float64, result *dynamo.Result, state, workers int) SweepResult {
	sr := SweepResult{
		ParamValue:   v,
		FinalMean:    math.NaN(),
		FinalStd:     math.NaN(),
		Failed:       result.Failed(),
		NonConverged: result.NonConverged(),
	}
	for _, rep := range result.Reports {
		sr.Iterations += rep.Iterations
	}

	stats := analysis.Ensemble(result, workers)
	sr.Used = stats.Used
	if stats.Used > 0 {
		s := stats.Summary()[state]
		sr.FinalMean, sr.FinalStd = s.FinalMean, s.FinalStd
	}
	return sr
}

// SweepStats counts points whose ensemble kept every realization and points
// that lost at least one.
func SweepStats(results []SweepResult) (clean int, degraded int) {
	for _, r := range results {
		if r.Failed == 0 {
			clean++
		} else {
			degraded++
		}
	}
	return
}
