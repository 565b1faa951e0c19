package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"sort"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/san-kum/sdesim/internal/analysis"
	"github.com/san-kum/sdesim/internal/config"
	"github.com/san-kum/sdesim/internal/dynamo"
	"github.com/san-kum/sdesim/internal/experiment"
	"github.com/san-kum/sdesim/internal/metrics"
	"github.com/san-kum/sdesim/internal/noise"
	"github.com/san-kum/sdesim/internal/rng"
	"github.com/san-kum/sdesim/internal/sim"
	"github.com/san-kum/sdesim/internal/storage"
	"github.com/san-kum/sdesim/internal/tui"
)

// buildConfig resolves the experiment config: defaults, then preset, then config
// file, then explicitly set flags.
func buildConfig(cmd *cobra.Command, model string) (*config.Config, error) {
	cfg := config.DefaultConfig()

	if preset != "" {
		p := config.GetPreset(model, preset)
		if p == nil {
			return nil, fmt.Errorf("unknown preset: %s (available: %v)", preset, config.ListPresets(model))
		}
		cfg = p
	}

	if configFile != "" {
		loaded, err := config.Load(configFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		cfg = loaded
	}
	cfg.Model = model

	flags := cmd.Flags()
	if flags.Changed("seed") {
		cfg.Seed = seed
	}
	if flags.Changed("realizations") {
		cfg.Realizations = realizations
	}
	if flags.Changed("workers") {
		cfg.Workers = workers
	} else if viper.IsSet("workers") {
		cfg.Workers = viper.GetInt("workers")
	}
	if flags.Changed("mode") {
		cfg.Mode = mode
	}
	if flags.Changed("stepper") {
		cfg.Stepper = stepper
	}
	if flags.Changed("solver") {
		cfg.Solver = solver
	}
	if flags.Changed("samples") {
		cfg.Samples = samples
		if len(cfg.Control) > samples {
			cfg.Control = cfg.Control[:samples]
		}
	}
	if flags.Changed("steps") {
		cfg.StepsPerSample = stepsPerSample
	}
	if flags.Changed("sample-time") {
		cfg.SampleTime = sampleTime
	}
	if flags.Changed("tolerance") {
		cfg.Tolerance = tolerance
	}
	if flags.Changed("iterations") {
		cfg.MaxIterations = maxIterations
	}
	if flags.Changed("noise-increment") {
		cfg.NoiseIncrement = noiseIncrement
	}
	if flags.Changed("param-increment") {
		cfg.ParamIncrement = paramIncrement
	}
	if flags.Changed("param-spread") {
		cfg.ParamSpread = paramSpread
	}
	if len(paramFlags) > 0 {
		if cfg.Params == nil {
			cfg.Params = make(map[string]float64)
		}
		for name, raw := range paramFlags {
			v, err := strconv.ParseFloat(raw, 64)
			if err != nil {
				return nil, fmt.Errorf("param %s: %w", name, err)
			}
			cfg.Params[name] = v
		}
	}

	return cfg, cfg.Validate()
}

func runBatch(cmd *cobra.Command, args []string) error {
	model := args[0]

	cfg, err := buildConfig(cmd, model)
	if err != nil {
		return err
	}
	if saveConfig != "" {
		if err := config.Save(saveConfig, cfg); err != nil {
			return err
		}
	}

	exp := experiment.New(cfg)
	if err := exp.Setup(experiment.NewRegistry()); err != nil {
		return err
	}
	health := metrics.Standard()
	for _, m := range health {
		exp.GetSimulator().AddObserver(m)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	var result *dynamo.Result
	if progress {
		title := fmt.Sprintf("%s · %s · seed %d", model, cfg.Stepper, cfg.Seed)
		result, err = tui.RunWithProgress(ctx, title, cfg.Realizations, func(ctx context.Context, obs sim.Observer) (*dynamo.Result, error) {
			exp.GetSimulator().AddObserver(obs)
			return exp.Run(ctx)
		})
	} else {
		fmt.Printf("running %s: %d realizations x %d steps...\n", model, cfg.Realizations, cfg.Steps())
		result, err = exp.Run(ctx)
	}
	if err != nil {
		return err
	}

	warnReports(result)

	fmt.Printf("completed in %v\n", result.Elapsed)

	if !noSave {
		st := storage.New(dataDir)
		if err := st.Init(); err != nil {
			return err
		}
		runID, err := st.Save(exp.Record(), result)
		if err != nil {
			return err
		}
		fmt.Printf("run id: %s\n", runID)
	}

	printSummary(model, result, health)
	return nil
}

const maxCapWarnings = 5

func warnReports(res *dynamo.Result) {
	capped := 0
	for _, rep := range res.Reports {
		if rep.Failed() {
			log.Printf("realization %d failed: %v", rep.Realization, rep.Err)
		}
		if err := rep.NonConvergence(); err != nil {
			if capped < maxCapWarnings {
				log.Println(err)
			}
			capped++
		}
	}
	if capped > 0 {
		log.Printf("%d realizations had %d steps stop at the newton iteration cap", capped, res.NonConverged())
	}
}

func printSummary(model string, res *dynamo.Result, health []metrics.Metric) {
	stats := analysis.Ensemble(res, 0)
	labels := stateLabels(model, res.StateDim)

	fmt.Printf("\n%s\n", tui.Title("terminal state"))
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "STATE\tMEAN\tSTD\tMIN MEAN\tMAX MEAN")
	for _, s := range stats.Summary() {
		fmt.Fprintf(w, "%s\t%.6f\t%.6f\t%.6f\t%.6f\n", labels[s.State], s.FinalMean, s.FinalStd, s.MinMean, s.MaxMean)
	}
	w.Flush()

	failed := tui.Good("0")
	if n := res.Failed(); n > 0 {
		failed = tui.Bad(strconv.Itoa(n))
	}
	fmt.Printf("\n%s %d   %s %s   %s %d\n",
		tui.Label("realizations"), res.Realizations,
		tui.Label("failed"), failed,
		tui.Label("capped steps"), res.NonConverged())
	for _, m := range health {
		fmt.Printf("%s %.4f\n", tui.Label(m.Name()), m.Value())
	}
}

var modelLabels = map[string][]string{
	"cstr": {"CA [mol/L]", "CB [mol/L]", "T [K]"},
}

func stateLabels(model string, n int) []string {
	if l, ok := modelLabels[model]; ok && len(l) == n {
		return l
	}
	labels := make([]string, n)
	for i := range labels {
		labels[i] = fmt.Sprintf("x%d", i)
	}
	return labels
}

func compareSteppers(cmd *cobra.Command, args []string) error {
	model := args[0]

	base, err := buildConfig(cmd, model)
	if err != nil {
		return err
	}

	reg := experiment.NewRegistry()
	steppers := reg.ListSteppers()
	sort.Sort(sort.Reverse(sort.StringSlice(steppers)))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	fmt.Printf("comparing %v on %s (%d realizations, seed %d)\n\n", steppers, model, base.Realizations, base.Seed)

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "STEPPER\tSTATE\tMEAN\tSTD\tFAILED\tCAPPED\tTIME")
	for _, name := range steppers {
		cfg := base.Clone()
		cfg.Stepper = name
		cfg.Mode = dynamo.FinalState.String()

		exp := experiment.New(cfg)
		if err := exp.Setup(reg); err != nil {
			return err
		}
		res, err := exp.Run(ctx)
		if err != nil {
			return err
		}

		labels := stateLabels(model, res.StateDim)
		for _, s := range analysis.Ensemble(res, cfg.Workers).Summary() {
			fmt.Fprintf(w, "%s\t%s\t%.6f\t%.6f\t%d\t%d\t%v\n",
				name, labels[s.State], s.FinalMean, s.FinalStd, res.Failed(), res.NonConverged(), res.Elapsed)
		}
	}
	return w.Flush()
}

func dumpNoise(cmd *cobra.Command, args []string) error {
	if noiseCount < 0 {
		return fmt.Errorf("count must not be negative")
	}
	gen := rng.New(seed)

	switch noiseKind {
	case "words":
		words := make([]uint32, noiseCount)
		gen.Words(words)
		for _, v := range words {
			fmt.Println(v)
		}
		return nil
	case "uniform":
		u := make([]float64, noiseCount)
		gen.Uniforms(u)
		printValues(u)
	case "normal":
		z := make([]float64, noiseCount)
		gen.StandardNormal(z)
		printValues(z)
	case "wiener":
		if err := writeWienerPath(os.Stdout, gen, noiseHorizon, noiseCount); err != nil {
			return err
		}
	default:
		return fmt.Errorf("unknown kind: %s (words, uniform, normal, wiener)", noiseKind)
	}
	fmt.Fprintf(os.Stderr, "next seed: %d\n", gen.Seed())
	return nil
}

// writeWienerPath prints one scalar Wiener path on [0, horizon] as t and W(t) per line.
func writeWienerPath(w io.Writer, gen *rng.MersenneTwister, horizon float64, steps int) error {
	if steps < 1 || horizon <= 0 {
		return fmt.Errorf("a wiener path needs a positive horizon and at least one step")
	}
	grid := noise.TimeGrid(0, horizon, steps)
	dW := noise.ScaledNoise(gen, horizon, steps, 1, 1)
	path := noise.CumulativePath(dW, steps, 1, 1)
	for k, t := range grid {
		if _, err := fmt.Fprintf(w, "%1.15f\t%1.15f\n", t, path[k]); err != nil {
			return err
		}
	}
	return nil
}

func printValues(values []float64) {
	for _, v := range values {
		fmt.Printf("%1.15f\n", v)
	}
}
