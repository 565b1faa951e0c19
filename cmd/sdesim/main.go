package main

import (
	"fmt"
	"log"
	"os"
	"strings"

	homedir "github.com/mitchellh/go-homedir"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	cfgFile string
	dataDir string

	// run flags
	configFile     string
	preset         string
	seed           uint32
	realizations   int
	workers        int
	mode           string
	stepper        string
	solver         string
	samples        int
	stepsPerSample int
	sampleTime     float64
	tolerance      float64
	maxIterations  int
	noiseIncrement bool
	paramIncrement bool
	paramSpread    float64
	paramFlags     map[string]string
	progress       bool
	noSave         bool
	saveConfig     string

	// inspection flags
	realization int
	scatter     bool
	xAxis       int
	yAxis       int
	format      string
	withStates  bool
	outFile     string

	svgState int

	// sweep and search flags
	sweepParam  string
	sweepFrom   float64
	sweepTo     float64
	sweepPoints int
	sweepState  int
	gridFlags   []string
	objective   string
	target      float64

	// noise flags
	noiseKind    string
	noiseCount   int
	noiseHorizon float64
)

func main() {
	log.SetFlags(0)
	log.SetPrefix("sdesim: ")

	rootCmd := &cobra.Command{
		Use:   "sdesim",
		Short: "stochastic differential equation batch simulator",
		Long: `Simulates ensembles of Itô SDEs with an implicit-explicit Euler-Maruyama scheme.
Each run draws its noise from a seeded Mersenne Twister, so a run is reproducible
from its seed regardless of the number of workers. For example:
  sdesim run cstr --realizations 100 --workers 8
  sdesim run linear --preset ou --mode final
  sdesim plot cstr_1a2b3c4d`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return initConfig()
		},
	}

	rootCmd.PersistentFlags().StringVar(&cfgFile, "settings", "", "settings file (default is $HOME/.sdesim.yaml)")
	rootCmd.PersistentFlags().StringVar(&dataDir, "data", ".sdesim", "data directory")
	_ = viper.BindPFlag("data", rootCmd.PersistentFlags().Lookup("data"))

	runCmd := &cobra.Command{
		Use:   "run [model]",
		Short: "run a batch of realizations",
		Args:  cobra.ExactArgs(1),
		RunE:  runBatch,
	}
	addRunFlags(runCmd)
	runCmd.Flags().BoolVar(&progress, "progress", false, "show live progress")
	runCmd.Flags().BoolVar(&noSave, "no-save", false, "do not persist the run")
	runCmd.Flags().StringVar(&saveConfig, "save-config", "", "write the effective config to this yaml file")
	_ = viper.BindPFlag("workers", runCmd.Flags().Lookup("workers"))

	compareCmd := &cobra.Command{
		Use:   "compare [model]",
		Short: "compare implicit and explicit stepping on the same noise",
		Args:  cobra.ExactArgs(1),
		RunE:  compareSteppers,
	}
	addRunFlags(compareCmd)

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list runs",
		RunE:  listRuns,
	}

	plotCmd := &cobra.Command{
		Use:   "plot [run_id]",
		Short: "plot ensemble mean and spread",
		Args:  cobra.ExactArgs(1),
		RunE:  plotRun,
	}
	plotCmd.Flags().IntVar(&realization, "realization", -1, "plot a single realization instead of the ensemble")
	plotCmd.Flags().BoolVar(&scatter, "scatter", false, "scatter terminal states instead of time series")
	plotCmd.Flags().IntVar(&xAxis, "x-axis", 0, "state index for x-axis (scatter)")
	plotCmd.Flags().IntVar(&yAxis, "y-axis", 2, "state index for y-axis (scatter)")

	statsCmd := &cobra.Command{
		Use:   "stats [run_id]",
		Short: "terminal statistics and solver health of a run",
		Args:  cobra.ExactArgs(1),
		RunE:  statsRun,
	}

	exportCmd := &cobra.Command{
		Use:   "export [run_id]",
		Short: "export a run as json or csv",
		Args:  cobra.ExactArgs(1),
		RunE:  exportRun,
	}
	exportCmd.Flags().StringVar(&format, "format", "json", "json, csv or svg")
	exportCmd.Flags().BoolVar(&withStates, "states", false, "include state buffers (json)")
	exportCmd.Flags().IntVar(&realization, "realization", 0, "realization to export (csv)")
	exportCmd.Flags().StringVarP(&outFile, "output", "o", "", "output file (default stdout)")
	exportCmd.Flags().IntVar(&svgState, "state", 0, "state index to draw (svg)")

	sweepCmd := &cobra.Command{
		Use:   "sweep [model]",
		Short: "run the experiment across a range of one model parameter",
		Args:  cobra.ExactArgs(1),
		RunE:  sweepParameter,
	}
	addRunFlags(sweepCmd)
	sweepCmd.Flags().StringVar(&sweepParam, "sweep", "", "parameter to sweep")
	sweepCmd.Flags().Float64Var(&sweepFrom, "from", 0, "first value")
	sweepCmd.Flags().Float64Var(&sweepTo, "to", 1, "last value")
	sweepCmd.Flags().IntVar(&sweepPoints, "points", 5, "number of values")
	sweepCmd.Flags().IntVar(&sweepState, "state", 0, "state index to summarize")
	_ = sweepCmd.MarkFlagRequired("sweep")

	searchCmd := &cobra.Command{
		Use:   "search [model]",
		Short: "grid search model parameters for the best terminal statistic",
		Args:  cobra.ExactArgs(1),
		RunE:  searchParameters,
	}
	addRunFlags(searchCmd)
	searchCmd.Flags().StringArrayVar(&gridFlags, "grid", nil, "parameter grid, name=from:to:points (repeatable)")
	searchCmd.Flags().StringVar(&objective, "objective", "mean", "mean, std or target")
	searchCmd.Flags().Float64Var(&target, "target", 0, "terminal value aimed at by the target objective")
	searchCmd.Flags().IntVar(&sweepState, "state", 0, "state index the objective is computed on")
	_ = searchCmd.MarkFlagRequired("grid")

	scenarioCmd := &cobra.Command{
		Use:   "scenario [file]",
		Short: "run every step of a yaml scenario",
		Args:  cobra.ExactArgs(1),
		RunE:  runScenario,
	}
	scenarioCmd.Flags().BoolVar(&noSave, "no-save", false, "do not persist the runs")

	presetsCmd := &cobra.Command{
		Use:   "presets [model]",
		Short: "list available presets for a model",
		Args:  cobra.ExactArgs(1),
		RunE:  listPresets,
	}

	noiseCmd := &cobra.Command{
		Use:   "noise",
		Short: "print the generator output for a seed",
		RunE:  dumpNoise,
	}
	noiseCmd.Flags().Uint32Var(&seed, "seed", 12345, "generator seed")
	noiseCmd.Flags().StringVar(&noiseKind, "kind", "normal", "words, uniform, normal or wiener")
	noiseCmd.Flags().IntVarP(&noiseCount, "count", "n", 10, "number of values (steps for wiener)")
	noiseCmd.Flags().Float64Var(&noiseHorizon, "horizon", 1, "final time of the wiener path")

	rootCmd.AddCommand(runCmd, compareCmd, sweepCmd, searchCmd, scenarioCmd, listCmd, plotCmd, statsCmd, exportCmd, presetsCmd, noiseCmd)

	if err := rootCmd.Execute(); err != nil {
		log.Println(err)
		os.Exit(1)
	}
}

func addRunFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.StringVar(&configFile, "config", "", "experiment config file (yaml)")
	f.StringVar(&preset, "preset", "", "use preset configuration")
	f.Uint32Var(&seed, "seed", 12345, "noise seed")
	f.IntVarP(&realizations, "realizations", "r", 10, "number of noise realizations")
	f.IntVarP(&workers, "workers", "w", 0, "worker goroutines (0 = one per cpu)")
	f.StringVar(&mode, "mode", "full", "storage mode: full or final")
	f.StringVar(&stepper, "stepper", "implicit", "stepping scheme: implicit or explicit")
	f.StringVar(&solver, "solver", "lu", "linear solver backend: lu or gonum")
	f.IntVar(&samples, "samples", 35, "number of control samples")
	f.IntVar(&stepsPerSample, "steps", 60, "integration steps per sample")
	f.Float64Var(&sampleTime, "sample-time", 60, "sample duration")
	f.Float64Var(&tolerance, "tolerance", 1e-5, "newton residual tolerance")
	f.IntVar(&maxIterations, "iterations", 20, "newton iteration cap")
	f.BoolVar(&noiseIncrement, "noise-increment", true, "fresh noise per realization")
	f.BoolVar(&paramIncrement, "param-increment", false, "perturbed parameters per realization")
	f.Float64Var(&paramSpread, "param-spread", 0, "relative std of parameter perturbations")
	f.StringToStringVar(&paramFlags, "param", nil, "model parameter overrides, name=value")
}

// initConfig reads the settings file and SDESIM_* environment variables.
func initConfig() error {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := homedir.Dir()
		if err != nil {
			return err
		}
		viper.AddConfigPath(home)
		viper.SetConfigName(".sdesim")
	}

	viper.SetEnvPrefix("SDESIM")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		log.Println("using settings file:", viper.ConfigFileUsed())
	} else if cfgFile != "" {
		return fmt.Errorf("read settings: %w", err)
	}

	dir, err := homedir.Expand(viper.GetString("data"))
	if err != nil {
		return err
	}
	dataDir = dir
	return nil
}
