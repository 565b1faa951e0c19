package config

import "sort"

var Presets = map[string]map[string]*Config{
	"cstr": {
		"default": {
			Model: "cstr", Stepper: "implicit", Solver: "lu", Mode: "full", Seed: DefaultSeed,
			Samples: 35, StepsPerSample: 60, SampleTime: 60, Realizations: 10,
			MaxIterations: 20, Tolerance: 1e-5, NoiseIncrement: true, TimeScale: 60,
		},
		"short": {
			Model: "cstr", Stepper: "implicit", Solver: "lu", Mode: "full", Seed: DefaultSeed,
			Samples: 5, StepsPerSample: 60, SampleTime: 60, Realizations: 4,
			MaxIterations: 20, Tolerance: 1e-5, NoiseIncrement: true, TimeScale: 60,
		},
		"noisefree": {
			Model: "cstr", Stepper: "implicit", Solver: "lu", Mode: "full", Seed: DefaultSeed,
			Samples: 35, StepsPerSample: 60, SampleTime: 60, Realizations: 1,
			MaxIterations: 20, Tolerance: 1e-8, NoiseIncrement: true, TimeScale: 60,
			Params: map[string]float64{"sigma": 0},
		},
		"montecarlo": {
			Model: "cstr", Stepper: "implicit", Solver: "lu", Mode: "final", Seed: DefaultSeed,
			Samples: 35, StepsPerSample: 60, SampleTime: 60, Realizations: 1000,
			MaxIterations: 20, Tolerance: 1e-5, NoiseIncrement: true, TimeScale: 60,
			ParamIncrement: true, ParamSpread: 0.01,
		},
	},
	"linear": {
		"decay": {
			Model: "linear", Stepper: "implicit", Solver: "lu", Mode: "full", Seed: DefaultSeed,
			Samples: 1, StepsPerSample: 100, SampleTime: 1, Realizations: 1,
			MaxIterations: 20, Tolerance: 1e-12, NoiseIncrement: true, TimeScale: 1,
			Params: map[string]float64{"lambda": 1, "sigma": 0, "x0": 1},
		},
		"ou": {
			Model: "linear", Stepper: "implicit", Solver: "lu", Mode: "full", Seed: DefaultSeed,
			Samples: 10, StepsPerSample: 100, SampleTime: 1, Realizations: 200,
			MaxIterations: 20, Tolerance: 1e-10, NoiseIncrement: true, TimeScale: 1,
			Params: map[string]float64{"n": 2, "lambda": 2, "sigma": 0.5, "x0": 1},
		},
	},
}

// GetPreset returns a copy of the named preset, or nil.
func GetPreset(model, preset string) *Config {
	modelPresets, ok := Presets[model]
	if !ok {
		return nil
	}
	cfg, ok := modelPresets[preset]
	if !ok {
		return nil
	}
	return cfg.Clone()
}

func ListPresets(model string) []string {
	modelPresets, ok := Presets[model]
	if !ok {
		return nil
	}
	names := make([]string, 0, len(modelPresets))
	for name := range modelPresets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
