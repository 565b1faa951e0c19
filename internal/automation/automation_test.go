package automation

import (
	"context"
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/san-kum/sdesim/internal/config"
	"github.com/san-kum/sdesim/internal/dynamo"
	"github.com/san-kum/sdesim/internal/experiment"
	"github.com/san-kum/sdesim/internal/storage"
)

const scenarioYAML = `
name: decay-rates
description: deterministic decay at two rates
steps:
  - name: slow
    model: linear
    preset: decay
    params:
      lambda: 0.5
      sigma: 0
      x0: 1
  - model: linear
    preset: decay
    realizations: 3
    params:
      lambda: 2
      sigma: 0
      x0: 1
`

// decayed is the implicit Euler value of x' = -λx after 100 steps of 0.01 from 1.
func decayed(lambda float64) float64 {
	return math.Pow(1/(1+0.01*lambda), 100)
}

func TestParseScenario(t *testing.T) {
	sc, err := ParseScenario([]byte(scenarioYAML))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if sc.Name != "decay-rates" || len(sc.Steps) != 2 {
		t.Fatalf("unexpected scenario %+v", sc)
	}

	slow := sc.Steps[0]
	if slow.Name != "slow" || slow.Preset != "decay" {
		t.Errorf("step 0 = %q/%q", slow.Name, slow.Preset)
	}
	if slow.Config.Model != "linear" || slow.Config.StepsPerSample != 100 || slow.Config.Params["lambda"] != 0.5 {
		t.Errorf("step 0 config not layered on preset: %+v", slow.Config)
	}

	fast := sc.Steps[1]
	if fast.Name != "step2" {
		t.Errorf("unnamed step got %q", fast.Name)
	}
	if fast.Config.Realizations != 3 || fast.Config.Tolerance != 1e-12 {
		t.Errorf("step 1 realizations %d tolerance %g", fast.Config.Realizations, fast.Config.Tolerance)
	}
}

func TestParseScenario_DefaultsWithoutPreset(t *testing.T) {
	sc, err := ParseScenario([]byte("name: x\nsteps:\n  - realizations: 2\n"))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	cfg := sc.Steps[0].Config
	def := config.DefaultConfig()
	if cfg.Model != def.Model || cfg.Samples != def.Samples || cfg.Realizations != 2 {
		t.Errorf("defaults not applied: %+v", cfg)
	}
}

func TestParseScenario_Errors(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"no steps", "name: empty\n"},
		{"unknown preset", "steps:\n  - model: linear\n    preset: nope\n"},
		{"bad yaml", "steps: [\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ParseScenario([]byte(tt.yaml)); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestRunScenario(t *testing.T) {
	sc, err := ParseScenario([]byte(scenarioYAML))
	if err != nil {
		t.Fatal(err)
	}
	store := storage.New(t.TempDir())
	if err := store.Init(); err != nil {
		t.Fatal(err)
	}

	results, err := RunScenario(context.Background(), sc, experiment.NewRegistry(), store)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("got %d results", len(results))
	}

	for i, lambda := range []float64{0.5, 2} {
		r := results[i]
		if !strings.HasPrefix(r.RunID, "linear_") {
			t.Errorf("step %d run id %q", i, r.RunID)
		}
		if r.Failed != 0 || len(r.Summary) != 1 {
			t.Fatalf("step %d: failed %d summary %v", i, r.Failed, r.Summary)
		}
		if got, want := r.Summary[0].FinalMean, decayed(lambda); math.Abs(got-want) > 1e-9 {
			t.Errorf("step %d final mean %v, want %v", i, got, want)
		}
	}
	if results[1].Used != 3 {
		t.Errorf("step 2 used %d realizations, want 3", results[1].Used)
	}

	runs, err := store.List()
	if err != nil {
		t.Fatal(err)
	}
	if len(runs) != 2 {
		t.Errorf("store holds %d runs, want 2", len(runs))
	}
}

func TestRunScenario_NoStore(t *testing.T) {
	sc, err := ParseScenario([]byte(scenarioYAML))
	if err != nil {
		t.Fatal(err)
	}
	results, err := RunScenario(context.Background(), sc, experiment.NewRegistry(), nil)
	if err != nil {
		t.Fatal(err)
	}
	for _, r := range results {
		if r.RunID != "" {
			t.Errorf("unexpected run id %q", r.RunID)
		}
	}
}

func TestRunScenario_StopsAtFailingStep(t *testing.T) {
	sc, err := ParseScenario([]byte(`
steps:
  - model: linear
    preset: decay
  - model: linear
    preset: decay
    params:
      bogus: 1
`))
	if err != nil {
		t.Fatal(err)
	}
	results, err := RunScenario(context.Background(), sc, experiment.NewRegistry(), nil)
	if err == nil {
		t.Fatal("expected error from the second step")
	}
	if len(results) != 1 {
		t.Errorf("got %d completed steps, want 1", len(results))
	}
}

func TestLinspace(t *testing.T) {
	got := Linspace(0, 1, 5)
	want := []float64{0, 0.25, 0.5, 0.75, 1}
	for i := range want {
		if math.Abs(got[i]-want[i]) > 1e-15 {
			t.Errorf("linspace[%d] = %v, want %v", i, got[i], want[i])
		}
	}
	if got := Linspace(3, 9, 1); len(got) != 1 || got[0] != 3 {
		t.Errorf("single point = %v", got)
	}
	if Linspace(0, 1, 0) != nil {
		t.Error("expected nil for zero points")
	}
}

func TestRunSweep(t *testing.T) {
	sweep := &ParameterSweep{
		Base:      config.GetPreset("linear", "decay"),
		ParamName: "lambda",
		Values:    []float64{0.5, 1, 2},
	}

	results, err := RunSweep(context.Background(), sweep, experiment.NewRegistry())
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if len(results) != 3 {
		t.Fatalf("got %d points", len(results))
	}
	for _, r := range results {
		if math.Abs(r.FinalMean-decayed(r.ParamValue)) > 1e-9 {
			t.Errorf("lambda=%g: mean %v, want %v", r.ParamValue, r.FinalMean, decayed(r.ParamValue))
		}
		if r.FinalStd != 0 || r.Used != 1 || r.Iterations == 0 {
			t.Errorf("lambda=%g: %+v", r.ParamValue, r)
		}
	}

	clean, degraded := SweepStats(results)
	if clean != 3 || degraded != 0 {
		t.Errorf("stats = %d clean, %d degraded", clean, degraded)
	}

	if sweep.Base.Params["lambda"] != 1 {
		t.Error("sweep modified the base config")
	}
}

func TestRunSweep_Invalid(t *testing.T) {
	reg := experiment.NewRegistry()
	base := config.GetPreset("linear", "decay")

	tests := []struct {
		name  string
		sweep ParameterSweep
	}{
		{"no values", ParameterSweep{Base: base, ParamName: "lambda"}},
		{"dimension", ParameterSweep{Base: base, ParamName: "n", Values: []float64{2}}},
		{"state out of range", ParameterSweep{Base: base, ParamName: "lambda", Values: []float64{1}, State: 4}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := RunSweep(context.Background(), &tt.sweep, reg)
			if !errors.Is(err, dynamo.ErrInvalidConfig) {
				t.Errorf("expected ErrInvalidConfig, got %v", err)
			}
		})
	}

	_, err := RunSweep(context.Background(), &ParameterSweep{Base: base, ParamName: "bogus", Values: []float64{1}}, reg)
	if err == nil {
		t.Error("expected error for unknown parameter")
	}
}
