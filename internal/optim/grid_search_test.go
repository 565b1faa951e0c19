package optim

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/san-kum/sdesim/internal/config"
	"github.com/san-kum/sdesim/internal/dynamo"
	"github.com/san-kum/sdesim/internal/experiment"
)

func decayBuilder(reg *experiment.Registry) func(map[string]float64) (*experiment.Experiment, error) {
	return func(params map[string]float64) (*experiment.Experiment, error) {
		cfg := config.GetPreset("linear", "decay")
		for k, v := range params {
			cfg.Params[k] = v
		}
		exp := experiment.New(cfg)
		if err := exp.Setup(reg); err != nil {
			return nil, err
		}
		return exp, nil
	}
}

func TestGridSearch_TerminalMean(t *testing.T) {
	g := NewGridSearch([]string{"lambda"}, [][]float64{{0.5, 2, 1}})
	if g.Points() != 3 {
		t.Errorf("points = %d", g.Points())
	}

	best, val, err := g.Search(context.Background(), decayBuilder(experiment.NewRegistry()), TerminalMean(0))
	if err != nil {
		t.Fatal(err)
	}
	if best["lambda"] != 2 {
		t.Errorf("best lambda = %v, want 2", best["lambda"])
	}
	if want := math.Pow(1/1.02, 100); math.Abs(val-want) > 1e-9 {
		t.Errorf("best value = %v, want %v", val, want)
	}
}

func TestGridSearch_TargetError(t *testing.T) {
	target := math.Pow(1/1.01, 100)
	g := NewGridSearch([]string{"lambda", "x0"}, [][]float64{{0.5, 1, 2}, {1, 2}})
	if g.Points() != 6 {
		t.Errorf("points = %d", g.Points())
	}

	best, val, err := g.Search(context.Background(), decayBuilder(experiment.NewRegistry()), TargetError(0, target))
	if err != nil {
		t.Fatal(err)
	}
	if best["lambda"] != 1 || best["x0"] != 1 {
		t.Errorf("best = %v, want lambda=1 x0=1", best)
	}
	if val > 1e-18 {
		t.Errorf("best error = %v", val)
	}
}

func TestGridSearch_Errors(t *testing.T) {
	reg := experiment.NewRegistry()

	g := NewGridSearch([]string{"lambda"}, nil)
	if _, _, err := g.Search(context.Background(), decayBuilder(reg), TerminalStd(0)); !errors.Is(err, dynamo.ErrInvalidConfig) {
		t.Errorf("expected ErrInvalidConfig, got %v", err)
	}

	g = NewGridSearch([]string{"bogus"}, [][]float64{{1}})
	if _, _, err := g.Search(context.Background(), decayBuilder(reg), TerminalStd(0)); err == nil {
		t.Error("expected error for unknown parameter")
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	g = NewGridSearch([]string{"lambda"}, [][]float64{{1, 2}})
	if _, _, err := g.Search(ctx, decayBuilder(reg), TerminalStd(0)); !errors.Is(err, dynamo.ErrContextCanceled) {
		t.Errorf("expected ErrContextCanceled, got %v", err)
	}
}

func TestObjectiveOutOfRange(t *testing.T) {
	res := &dynamo.Result{
		Times:        []float64{0, 1},
		States:       []float64{1, 2},
		StateDim:     1,
		Steps:        1,
		Realizations: 1,
		Mode:         dynamo.FullTrajectory,
		Reports:      []dynamo.RealizationReport{{Realization: 0, Steps: 1}},
	}
	if v := TerminalMean(3)(res); !math.IsNaN(v) {
		t.Errorf("out of range state = %v, want NaN", v)
	}
	if v := TerminalMean(0)(res); v != 2 {
		t.Errorf("terminal mean = %v, want 2", v)
	}
}
