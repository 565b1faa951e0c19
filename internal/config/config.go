package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/san-kum/sdesim/internal/dynamo"
)

const (
	DefaultSeed           = 12345
	DefaultSamples        = 35
	DefaultStepsPerSample = 60
	DefaultSampleTime     = 60.0
	DefaultRealizations   = 10
	DefaultMaxIterations  = 20
	DefaultTolerance      = 1e-5
	DefaultTimeScale      = 60.0
)

// Config describes one batch experiment. The horizon is Samples sample periods of
// SampleTime seconds, each split into StepsPerSample integration steps, and the
// control is held constant over a sample.
type Config struct {
	Model          string             `yaml:"model"`
	Stepper        string             `yaml:"stepper"`
	Solver         string             `yaml:"solver"`
	Mode           string             `yaml:"mode"`
	Seed           uint32             `yaml:"seed"`
	Samples        int                `yaml:"samples"`
	StepsPerSample int                `yaml:"steps_per_sample"`
	SampleTime     float64            `yaml:"sample_time"`
	T0             float64            `yaml:"t0"`
	Realizations   int                `yaml:"realizations"`
	Workers        int                `yaml:"workers"`
	MaxIterations  int                `yaml:"max_iterations"`
	Tolerance      float64            `yaml:"tolerance"`
	NoiseIncrement bool               `yaml:"noise_increment"`
	ParamIncrement bool               `yaml:"param_increment"`
	ParamSpread    float64            `yaml:"param_spread,omitempty"`
	TimeScale      float64            `yaml:"time_scale"`
	InitState      []float64          `yaml:"init_state,omitempty"`
	Params         map[string]float64 `yaml:"params,omitempty"`
	Control        []float64          `yaml:"control,omitempty"`
}

// DefaultConfig is the reference CSTR experiment: 35 one-minute samples of 60 steps,
// seed 12345, and the model's own initial state and flow profile.
func DefaultConfig() *Config {
	return &Config{
		Model:          "cstr",
		Stepper:        "implicit",
		Solver:         "lu",
		Mode:           "full",
		Seed:           DefaultSeed,
		Samples:        DefaultSamples,
		StepsPerSample: DefaultStepsPerSample,
		SampleTime:     DefaultSampleTime,
		Realizations:   DefaultRealizations,
		MaxIterations:  DefaultMaxIterations,
		Tolerance:      DefaultTolerance,
		NoiseIncrement: true,
		TimeScale:      DefaultTimeScale,
	}
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return cfg, nil
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

func (c *Config) Steps() int {
	return c.Samples * c.StepsPerSample
}

func (c *Config) FinalTime() float64 {
	return float64(c.Samples) * c.SampleTime
}

func (c *Config) Clone() *Config {
	out := *c
	out.InitState = append([]float64(nil), c.InitState...)
	out.Control = append([]float64(nil), c.Control...)
	if c.Params != nil {
		out.Params = make(map[string]float64, len(c.Params))
		for k, v := range c.Params {
			out.Params[k] = v
		}
	}
	return &out
}

func (c *Config) Validate() error {
	if c.Model == "" {
		return fmt.Errorf("%w: model is required", dynamo.ErrInvalidConfig)
	}
	if c.Samples <= 0 || c.StepsPerSample <= 0 {
		return fmt.Errorf("%w: samples (%d) and steps per sample (%d) must be positive", dynamo.ErrInvalidConfig, c.Samples, c.StepsPerSample)
	}
	if c.SampleTime <= 0 {
		return fmt.Errorf("%w: sample time must be positive, got %g", dynamo.ErrInvalidConfig, c.SampleTime)
	}
	if c.TimeScale <= 0 {
		return fmt.Errorf("%w: time scale must be positive, got %g", dynamo.ErrInvalidConfig, c.TimeScale)
	}
	if c.ParamSpread < 0 {
		return fmt.Errorf("%w: param spread must not be negative, got %g", dynamo.ErrInvalidConfig, c.ParamSpread)
	}
	if len(c.Control) > 0 && len(c.Control) < c.Samples {
		return fmt.Errorf("%w: %d control values for %d samples", dynamo.ErrInvalidConfig, len(c.Control), c.Samples)
	}
	_, err := c.SimConfig()
	return err
}

// SimConfig translates the experiment into the integrator's run configuration.
func (c *Config) SimConfig() (dynamo.Config, error) {
	mode, err := dynamo.ParseMode(c.Mode)
	if err != nil {
		return dynamo.Config{}, err
	}
	cfg := dynamo.Config{
		Seed:           c.Seed,
		T0:             c.T0,
		FinalTime:      c.FinalTime(),
		Steps:          c.Steps(),
		Realizations:   c.Realizations,
		MaxIterations:  c.MaxIterations,
		Tolerance:      c.Tolerance,
		NoiseIncrement: c.NoiseIncrement,
		ParamIncrement: c.ParamIncrement,
		Workers:        c.Workers,
		Mode:           mode,
	}
	return cfg, cfg.Validate()
}
