package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/guptarohit/asciigraph"
	"github.com/spf13/cobra"

	"github.com/san-kum/sdesim/internal/automation"
	"github.com/san-kum/sdesim/internal/experiment"
	"github.com/san-kum/sdesim/internal/optim"
	"github.com/san-kum/sdesim/internal/storage"
	"github.com/san-kum/sdesim/internal/tui"
)

func stateLabel(model string, i int) string {
	if l, ok := modelLabels[model]; ok && i < len(l) {
		return l[i]
	}
	return fmt.Sprintf("x%d", i)
}

func sweepParameter(cmd *cobra.Command, args []string) error {
	model := args[0]

	base, err := buildConfig(cmd, model)
	if err != nil {
		return err
	}
	if sweepPoints < 1 {
		return fmt.Errorf("points must be positive, got %d", sweepPoints)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	sweep := &automation.ParameterSweep{
		Base:      base,
		ParamName: sweepParam,
		Values:    automation.Linspace(sweepFrom, sweepTo, sweepPoints),
		State:     sweepState,
	}
	results, err := automation.RunSweep(ctx, sweep, experiment.NewRegistry())
	if err != nil {
		return err
	}

	label := stateLabel(model, sweepState)
	fmt.Printf("\n%s %s over %s\n", tui.Title("sweep"), sweepParam, label)

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "VALUE\tMEAN\tSTD\tUSED\tFAILED\tCAPPED")
	means := make([]float64, 0, len(results))
	for _, r := range results {
		fmt.Fprintf(w, "%.6g\t%.6f\t%.6f\t%d\t%d\t%d\n", r.ParamValue, r.FinalMean, r.FinalStd, r.Used, r.Failed, r.NonConverged)
		if r.Used > 0 {
			means = append(means, r.FinalMean)
		}
	}
	w.Flush()

	clean, degraded := automation.SweepStats(results)
	fmt.Printf("\n%s %d   %s %d\n", tui.Label("clean points"), clean, tui.Label("degraded points"), degraded)

	if len(means) > 1 {
		fmt.Println()
		fmt.Println(asciigraph.Plot(means,
			asciigraph.Height(10),
			asciigraph.Width(60),
			asciigraph.Caption(fmt.Sprintf("terminal mean of %s vs %s", label, sweepParam)),
		))
	}
	return nil
}

// parseGrid reads name=from:to:points into an evenly spaced value range.
func parseGrid(spec string) (string, []float64, error) {
	name, rng, ok := strings.Cut(spec, "=")
	if !ok || name == "" {
		return "", nil, fmt.Errorf("grid %q: want name=from:to:points", spec)
	}
	parts := strings.Split(rng, ":")
	if len(parts) != 3 {
		return "", nil, fmt.Errorf("grid %q: want name=from:to:points", spec)
	}
	from, err := strconv.ParseFloat(parts[0], 64)
	if err != nil {
		return "", nil, fmt.Errorf("grid %s from: %w", name, err)
	}
	to, err := strconv.ParseFloat(parts[1], 64)
	if err != nil {
		return "", nil, fmt.Errorf("grid %s to: %w", name, err)
	}
	points, err := strconv.Atoi(parts[2])
	if err != nil || points < 1 {
		return "", nil, fmt.Errorf("grid %s: points must be a positive integer, got %q", name, parts[2])
	}
	return name, automation.Linspace(from, to, points), nil
}

func searchParameters(cmd *cobra.Command, args []string) error {
	model := args[0]

	base, err := buildConfig(cmd, model)
	if err != nil {
		return err
	}

	names := make([]string, 0, len(gridFlags))
	ranges := make([][]float64, 0, len(gridFlags))
	for _, g := range gridFlags {
		name, values, err := parseGrid(g)
		if err != nil {
			return err
		}
		names = append(names, name)
		ranges = append(ranges, values)
	}

	var obj optim.Objective
	switch objective {
	case "mean":
		obj = optim.TerminalMean(sweepState)
	case "std":
		obj = optim.TerminalStd(sweepState)
	case "target":
		obj = optim.TargetError(sweepState, target)
	default:
		return fmt.Errorf("unknown objective: %s (mean, std, target)", objective)
	}

	reg := experiment.NewRegistry()
	build := func(params map[string]float64) (*experiment.Experiment, error) {
		cfg := base.Clone()
		if cfg.Params == nil {
			cfg.Params = make(map[string]float64, len(params))
		}
		for k, v := range params {
			cfg.Params[k] = v
		}
		exp := experiment.New(cfg)
		if err := exp.Setup(reg); err != nil {
			return nil, err
		}
		return exp, nil
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	search := optim.NewGridSearch(names, ranges)
	fmt.Printf("searching %d combinations of %v (%s of %s)\n", search.Points(), names, objective, stateLabel(model, sweepState))

	best, value, err := search.Search(ctx, build, obj)
	if err != nil {
		return err
	}
	if best == nil {
		return fmt.Errorf("no combination produced a usable ensemble")
	}

	fmt.Printf("\n%s %.6g\n", tui.Title("best objective"), value)
	keys := make([]string, 0, len(best))
	for k := range best {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Printf("  %s %s\n", tui.Label(k), tui.Value(strconv.FormatFloat(best[k], 'g', 6, 64)))
	}
	return nil
}

func runScenario(cmd *cobra.Command, args []string) error {
	sc, err := automation.LoadScenario(args[0])
	if err != nil {
		return err
	}

	var st *storage.Store
	if !noSave {
		st = storage.New(dataDir)
		if err := st.Init(); err != nil {
			return err
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	results, runErr := automation.RunScenario(ctx, sc, experiment.NewRegistry(), st)

	fmt.Printf("\n%s %s\n", tui.Title("scenario"), sc.Name)
	if sc.Description != "" {
		fmt.Println(sc.Description)
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "STEP\tRUN\tSTATE\tMEAN\tSTD\tFAILED")
	for i, r := range results {
		model := sc.Steps[i].Config.Model
		run := r.RunID
		if run == "" {
			run = "-"
		}
		for _, s := range r.Summary {
			fmt.Fprintf(w, "%s\t%s\t%s\t%.6f\t%.6f\t%d\n", r.Name, run, stateLabel(model, s.State), s.FinalMean, s.FinalStd, r.Failed)
		}
		if len(r.Summary) == 0 {
			fmt.Fprintf(w, "%s\t%s\t-\t-\t-\t%d\n", r.Name, run, r.Failed)
		}
	}
	w.Flush()
	return runErr
}
