package main

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/guptarohit/asciigraph"
	"github.com/spf13/cobra"

	"github.com/san-kum/sdesim/internal/analysis"
	"github.com/san-kum/sdesim/internal/config"
	"github.com/san-kum/sdesim/internal/dynamo"
	"github.com/san-kum/sdesim/internal/export"
	"github.com/san-kum/sdesim/internal/metrics"
	"github.com/san-kum/sdesim/internal/storage"
	"github.com/san-kum/sdesim/internal/tui"
)

const maxPlots = 6

func listRuns(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	runs, err := st.List()
	if err != nil {
		return err
	}

	if len(runs) == 0 {
		fmt.Println("no runs found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tMODEL\tTIME\tMODE\tREALIZATIONS\tSTEPS\tSTEPPER\tSEED\tFAILED\tCAPPED")

	for _, run := range runs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%d\t%s\t%d\t%d\t%d\n",
			run.ID,
			run.Model,
			run.Timestamp.Format("2006-01-02 15:04:05"),
			run.Mode,
			run.Realizations,
			run.Steps,
			run.Stepper,
			run.Seed,
			run.Failed,
			run.NonConverged,
		)
	}

	return w.Flush()
}

func plotRun(cmd *cobra.Command, args []string) error {
	runID := args[0]

	st := storage.New(dataDir)
	meta, res, err := st.LoadResult(runID)
	if err != nil {
		return err
	}

	fmt.Printf("run: %s\n", meta.ID)
	fmt.Printf("model: %s\n", meta.Model)
	fmt.Printf("realizations: %d\n\n", meta.Realizations)

	labels := stateLabels(meta.Model, res.StateDim)

	if scatter {
		sc := analysis.FinalScatter(res, xAxis, yAxis)
		if sc == nil || len(sc.Points) == 0 {
			return fmt.Errorf("nothing to scatter for axes %d and %d", xAxis, yAxis)
		}
		fmt.Printf("%s vs %s at t=%g\n", labels[yAxis], labels[xAxis], res.Times[len(res.Times)-1])
		fmt.Print(sc.ASCII(70, 20))
		return nil
	}

	if res.Mode == dynamo.FinalState {
		return fmt.Errorf("run %s kept only terminal states; use stats or plot --scatter", runID)
	}

	numVars := res.StateDim
	if numVars > maxPlots {
		numVars = maxPlots
	}

	if realization >= 0 {
		if realization >= res.Realizations {
			return fmt.Errorf("realization %d out of range [0, %d)", realization, res.Realizations)
		}
		path := res.Realization(realization)
		for i := 0; i < numVars; i++ {
			data := make([]float64, res.Points())
			for p := range data {
				data[p] = path[p*res.StateDim+i]
			}
			graph := asciigraph.Plot(data,
				asciigraph.Height(10),
				asciigraph.Width(80),
				asciigraph.Caption(fmt.Sprintf("%s, realization %d", labels[i], realization)),
			)
			fmt.Println(graph)
			fmt.Println()
		}
		return nil
	}

	stats := analysis.Ensemble(res, 0)
	if stats.Used == 0 {
		return fmt.Errorf("every realization of %s failed", runID)
	}
	for i := 0; i < numVars; i++ {
		mean, lower, upper := stats.Series(i, 2)
		graph := asciigraph.PlotMany([][]float64{lower, mean, upper},
			asciigraph.Height(10),
			asciigraph.Width(80),
			asciigraph.Caption(fmt.Sprintf("%s mean ± 2σ over %d realizations", labels[i], stats.Used)),
		)
		fmt.Println(graph)
		fmt.Println()
	}

	return nil
}

func statsRun(cmd *cobra.Command, args []string) error {
	runID := args[0]

	st := storage.New(dataDir)
	meta, res, err := st.LoadResult(runID)
	if err != nil {
		return err
	}

	labels := stateLabels(meta.Model, res.StateDim)
	stats := analysis.Ensemble(res, 0)
	quantiles := analysis.FinalQuantiles(res, []float64{0.05, 0.5, 0.95})

	fmt.Printf("%s %s\n", tui.Title("run"), meta.ID)
	fmt.Printf("%s %s  %s %s  %s %s  %s %d\n",
		tui.Label("model"), tui.Value(meta.Model),
		tui.Label("stepper"), tui.Value(meta.Stepper),
		tui.Label("solver"), tui.Value(meta.Solver),
		tui.Label("seed"), meta.Seed)
	fmt.Println(tui.Rule(60))

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "STATE\tMEAN\tSTD\tP05\tP50\tP95")
	for _, s := range stats.Summary() {
		q := quantiles[s.State]
		fmt.Fprintf(w, "%s\t%.6f\t%.6f\t%.6f\t%.6f\t%.6f\n", labels[s.State], s.FinalMean, s.FinalStd, q[0], q[1], q[2])
	}
	w.Flush()

	health := metrics.Collect(res.Reports, metrics.Standard()...)
	maxResidual := 0.0
	for _, rep := range res.Reports {
		if rep.MaxResidual > maxResidual {
			maxResidual = rep.MaxResidual
		}
	}

	fmt.Println(tui.Rule(60))
	fmt.Printf("%s %d of %d\n", tui.Label("usable realizations"), stats.Used, res.Realizations)
	fmt.Printf("%s %.2f\n", tui.Label("newton iterations per step"), health["newton_effort"])
	fmt.Printf("%s %.4f\n", tui.Label("converged step fraction"), health["convergence"])
	fmt.Printf("%s %.3e\n", tui.Label("largest accepted residual"), maxResidual)
	if res.NonConverged() > 0 {
		fmt.Println(tui.Warn(fmt.Sprintf("%d steps stopped at the iteration cap", res.NonConverged())))
	}
	for _, rep := range res.Reports {
		if rep.Error != "" {
			fmt.Println(tui.Bad(fmt.Sprintf("realization %d: %s", rep.Realization, rep.Error)))
		}
	}
	fmt.Printf("%s %.3fs\n", tui.Label("elapsed"), meta.ElapsedSeconds)
	return nil
}

func exportRun(cmd *cobra.Command, args []string) error {
	runID := args[0]
	st := storage.New(dataDir)

	var out io.Writer = os.Stdout
	if outFile != "" {
		f, err := os.Create(outFile)
		if err != nil {
			return err
		}
		defer f.Close()
		out = f
	}

	switch format {
	case "json":
		return st.ExportJSON(out, runID, withStates)
	case "csv":
		return st.ExportCSV(out, runID, realization)
	case "svg":
		return exportSVG(out, st, runID)
	default:
		return fmt.Errorf("unknown format: %s (json, csv, svg)", format)
	}
}

// exportSVG draws the ensemble mean ± 2σ of the state selected by --state.
func exportSVG(out io.Writer, st *storage.Store, runID string) error {
	_, res, err := st.LoadResult(runID)
	if err != nil {
		return err
	}
	if res.Mode == dynamo.FinalState {
		return fmt.Errorf("run %s kept only terminal states, nothing to draw over time", runID)
	}
	if svgState < 0 || svgState >= res.StateDim {
		return fmt.Errorf("state %d out of range [0, %d)", svgState, res.StateDim)
	}
	stats := analysis.Ensemble(res, 0)
	if stats.Used == 0 {
		return fmt.Errorf("every realization of %s failed", runID)
	}
	_, err = io.WriteString(out, export.EnsembleToSVG(stats, svgState, 2, 800, 400))
	return err
}

func listPresets(cmd *cobra.Command, args []string) error {
	presets := config.ListPresets(args[0])
	if len(presets) == 0 {
		fmt.Printf("no presets for model: %s\n", args[0])
		return nil
	}
	fmt.Printf("presets for %s:\n", args[0])
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	for _, name := range presets {
		p := config.GetPreset(args[0], name)
		fmt.Fprintf(w, "  %s\t%d realizations\t%d x %d steps\t%s\n", name, p.Realizations, p.Samples, p.StepsPerSample, p.Mode)
	}
	return w.Flush()
}
