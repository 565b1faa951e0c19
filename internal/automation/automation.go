package automation

import (
	"context"
	"fmt"
	"log"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/san-kum/sdesim/internal/analysis"
	"github.com/san-kum/sdesim/internal/config"
	"github.com/san-kum/sdesim/internal/dynamo"
	"github.com/san-kum/sdesim/internal/experiment"
	"github.com/san-kum/sdesim/internal/storage"
)

// Scenario is a scripted sequence of batch runs.
type Scenario struct {
	Name        string         `yaml:"name"`
	Description string         `yaml:"description"`
	Steps       []ScenarioStep `yaml:"steps"`
}

// ScenarioStep is one batch run. In YAML a step carries the experiment config
// keys next to name and preset; the preset (or the default config) is the base
// the keys are applied on.
type ScenarioStep struct {
	Name   string
	Preset string
	Config *config.Config
}

func (s *ScenarioStep) UnmarshalYAML(node *yaml.Node) error {
	var head struct {
		Name   string `yaml:"name"`
		Preset string `yaml:"preset"`
		Model  string `yaml:"model"`
	}
	if err := node.Decode(&head); err != nil {
		return err
	}

	cfg := config.DefaultConfig()
	if head.Preset != "" {
		model := head.Model
		if model == "" {
			model = cfg.Model
		}
		cfg = config.GetPreset(model, head.Preset)
		if cfg == nil {
			return fmt.Errorf("%w: no preset %q for model %s", dynamo.ErrInvalidConfig, head.Preset, model)
		}
	}
	if err := node.Decode(cfg); err != nil {
		return err
	}

	s.Name = head.Name
	s.Preset = head.Preset
	s.Config = cfg
	return nil
}

// StepResult is the outcome of one scenario step.
type StepResult struct {
	Name    string
	RunID   string
	Summary []analysis.StateSummary
	Used    int
	Failed  int
}

// LoadScenario loads a scenario from a YAML file.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseScenario(data)
}

func ParseScenario(data []byte) (*Scenario, error) {
	var scenario Scenario
	if err := yaml.Unmarshal(data, &scenario); err != nil {
		return nil, err
	}
	if len(scenario.Steps) == 0 {
		return nil, fmt.Errorf("%w: scenario %q has no steps", dynamo.ErrInvalidConfig, scenario.Name)
	}
	for i := range scenario.Steps {
		if scenario.Steps[i].Name == "" {
			scenario.Steps[i].Name = fmt.Sprintf("step%d", i+1)
		}
	}
	return &scenario, nil
}

// RunScenario executes all steps in order. Runs are persisted when store is not nil.
// On error the results of the completed steps are returned with it.
func RunScenario(ctx context.Context, scenario *Scenario, registry *experiment.Registry, store *storage.Store) ([]StepResult, error) {
	results := make([]StepResult, 0, len(scenario.Steps))

	for i, step := range scenario.Steps {
		log.Printf("scenario %s: step %d/%d %s (%s, %d realizations)", scenario.Name, i+1, len(scenario.Steps), step.Name, step.Config.Model, step.Config.Realizations)

		exp := experiment.New(step.Config)
		if err := exp.Setup(registry); err != nil {
			return results, fmt.Errorf("step %s setup: %w", step.Name, err)
		}

		result, err := exp.Run(ctx)
		if err != nil {
			return results, fmt.Errorf("step %s run: %w", step.Name, err)
		}

		sr := StepResult{Name: step.Name, Failed: result.Failed()}
		stats := analysis.Ensemble(result, step.Config.Workers)
		sr.Used = stats.Used
		if stats.Used > 0 {
			sr.Summary = stats.Summary()
		}

		if store != nil {
			id, err := store.Save(exp.Record(), result)
			if err != nil {
				return results, fmt.Errorf("step %s save: %w", step.Name, err)
			}
			sr.RunID = id
		}

		results = append(results, sr)
	}

	return results, nil
}
