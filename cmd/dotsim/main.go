package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/san-kum/dotsim/internal/config"
	"github.com/san-kum/dotsim/internal/experiment"
	"github.com/san-kum/dotsim/internal/gui"
	"github.com/san-kum/dotsim/internal/viz"
)

var (
	dataDir   string
	logLevel  string
	logFormat string
	logFile   string
	logger    = slog.Default()

	// simulation config
	presetName string
	configFile string
	seed       uint64
	particles  int
	duration   float64
	mode       string
	sets       []string

	// outputs
	noSave     bool
	saveRuns   bool
	outFile    string
	svgFile    string
	snapshotAt float64
	svgSize    int
	jsonOut    bool

	// ensembles and sweeps
	runs       int
	seedStart  uint64
	workers    int
	sweepParam string
	sweepMin   float64
	sweepMax   float64
	sweepSteps int
)

// main is the entry point for the dotsim CLI; it cancels running commands on
// interrupt and exits with status 1 if the command returns an error.
func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := newRootCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:               "dotsim",
		Short:             "particle epidemic simulator",
		SilenceUsage:      true,
		PersistentPreRunE: setupLogging,
		RunE: func(cmd *cobra.Command, args []string) error {
			// Default to the terminal preset picker when no command given
			return viz.RunInteractive(uiLogger())
		},
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&dataDir, "data", ".dotsim", "data directory")
	pf.StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	pf.StringVar(&logFormat, "log-format", "text", "log format (text, json)")
	pf.StringVar(&logFile, "log-file", "", "write logs to this file instead of stderr")

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "run a headless simulation and store its series",
		Args:  cobra.NoArgs,
		RunE:  runSimulation,
	}
	addConfigFlags(runCmd)
	runCmd.Flags().BoolVar(&noSave, "no-save", false, "do not write a run record")

	liveCmd := &cobra.Command{
		Use:   "live [preset]",
		Short: "watch a simulation in the terminal",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runLive,
	}
	addConfigFlags(liveCmd)

	guiCmd := &cobra.Command{
		Use:   "gui [preset]",
		Short: "watch a simulation in a window",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runGUI,
	}
	addConfigFlags(guiCmd)

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list runs",
		Args:  cobra.NoArgs,
		RunE:  listRuns,
	}

	plotCmd := &cobra.Command{
		Use:   "plot [run_id|latest]",
		Short: "plot the compartment curves of a run",
		Args:  cobra.MaximumNArgs(1),
		RunE:  plotRun,
	}
	plotCmd.Flags().StringVar(&svgFile, "svg", "", "also write the curves as SVG to this file")

	analyzeCmd := &cobra.Command{
		Use:   "analyze [run_id...]",
		Short: "summarize epidemic curves; several runs are aggregated",
		RunE:  analyzeRuns,
	}
	analyzeCmd.Flags().BoolVar(&jsonOut, "json", false, "print JSON")

	exportCSVCmd := &cobra.Command{
		Use:   "export-csv [run_id|latest]",
		Short: "export run series to CSV",
		Args:  cobra.MaximumNArgs(1),
		RunE:  exportCSV,
	}
	exportCSVCmd.Flags().StringVarP(&outFile, "output", "o", "", "output file (default stdout)")

	exportJSONCmd := &cobra.Command{
		Use:   "export-json [run_id|latest]",
		Short: "export run metadata and series to JSON",
		Args:  cobra.MaximumNArgs(1),
		RunE:  exportJSON,
	}
	exportJSONCmd.Flags().StringVarP(&outFile, "output", "o", "", "output file (default stdout)")

	exportSVGCmd := &cobra.Command{
		Use:   "export-svg",
		Short: "render the particles after a given time as SVG",
		Args:  cobra.NoArgs,
		RunE:  exportSVG,
	}
	addConfigFlags(exportSVGCmd)
	exportSVGCmd.Flags().Float64Var(&snapshotAt, "at", 10, "simulated seconds before the snapshot")
	exportSVGCmd.Flags().IntVar(&svgSize, "size", 800, "image size in pixels")
	exportSVGCmd.Flags().StringVarP(&outFile, "output", "o", "", "output file (default stdout)")

	presetsCmd := &cobra.Command{
		Use:   "presets",
		Short: "list available presets",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			for _, name := range config.ListPresets() {
				fmt.Fprintf(out, "  %-12s %s\n", name, config.Presets[name].Description)
			}
			return nil
		},
	}

	paramsCmd := &cobra.Command{
		Use:   "params",
		Short: "list parameters accepted by --set and sweep",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			for _, p := range experiment.ListParams() {
				fmt.Fprintf(out, "  %-26s %s\n", p.Name, p.Description)
			}
			return nil
		},
	}

	initConfigCmd := &cobra.Command{
		Use:   "init-config [file]",
		Short: "write the resolved configuration as YAML",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := resolveConfig(cmd, nil)
			if err != nil {
				return err
			}
			if err := config.Save(args[0], cfg); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", args[0])
			return nil
		},
	}
	addConfigFlags(initConfigCmd)

	ensembleCmd := &cobra.Command{
		Use:   "ensemble",
		Short: "run consecutive seeds in parallel and aggregate them",
		Args:  cobra.NoArgs,
		RunE:  runEnsemble,
	}
	addConfigFlags(ensembleCmd)
	addEnsembleFlags(ensembleCmd)
	ensembleCmd.Flags().BoolVar(&saveRuns, "save", false, "write a run record per seed")

	sweepCmd := &cobra.Command{
		Use:   "sweep",
		Short: "vary one parameter and run an ensemble at every value",
		Args:  cobra.NoArgs,
		RunE:  runSweep,
	}
	addConfigFlags(sweepCmd)
	addEnsembleFlags(sweepCmd)
	sweepCmd.Flags().StringVar(&sweepParam, "param", "fatality_probability", "parameter to vary (see params)")
	sweepCmd.Flags().Float64Var(&sweepMin, "min", 0, "first value")
	sweepCmd.Flags().Float64Var(&sweepMax, "max", 1, "last value")
	sweepCmd.Flags().IntVar(&sweepSteps, "steps", 5, "number of values")

	rootCmd.AddCommand(runCmd, liveCmd, guiCmd, listCmd, plotCmd, analyzeCmd,
		exportCSVCmd, exportJSONCmd, exportSVGCmd, presetsCmd, paramsCmd,
		initConfigCmd, ensembleCmd, sweepCmd)
	return rootCmd
}

func addConfigFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.StringVar(&presetName, "preset", "", "start from a named preset")
	f.StringVar(&configFile, "config", "", "config file path (yaml)")
	f.Uint64Var(&seed, "seed", config.DefaultSeed, "random seed")
	f.IntVar(&particles, "particles", config.DefaultParticles, "particle count")
	f.Float64Var(&duration, "time", config.DefaultDuration, "simulated seconds")
	f.StringVar(&mode, "mode", config.ModeStochastic, "stochastic or deterministic")
	f.StringArrayVar(&sets, "set", nil, "override a parameter, name=value (repeatable)")
	cmd.MarkFlagsMutuallyExclusive("preset", "config")
}

func addEnsembleFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.IntVar(&runs, "runs", 8, "seeds per ensemble")
	f.Uint64Var(&seedStart, "seed-start", 1, "first seed")
	f.IntVar(&workers, "workers", 0, "parallel runs (default GOMAXPROCS)")
	f.BoolVar(&jsonOut, "json", false, "print JSON")
}

// setupLogging installs the slog default from the persistent flags.
func setupLogging(cmd *cobra.Command, _ []string) error {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(logLevel)); err != nil {
		return fmt.Errorf("log level %q: %w", logLevel, err)
	}

	var w io.Writer = cmd.ErrOrStderr()
	if logFile != "" {
		f, err := os.OpenFile(logFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return err
		}
		w = f
	}

	opts := &slog.HandlerOptions{Level: lvl}
	switch logFormat {
	case "text":
		logger = slog.New(slog.NewTextHandler(w, opts))
	case "json":
		logger = slog.New(slog.NewJSONHandler(w, opts))
	default:
		return fmt.Errorf("unknown log format %q", logFormat)
	}
	slog.SetDefault(logger)
	return nil
}

// uiLogger keeps full-screen views clean unless logs go to a file.
func uiLogger() *slog.Logger {
	if logFile == "" {
		return slog.New(slog.DiscardHandler)
	}
	return logger
}

// resolveConfig builds the configuration from, in order: defaults, the
// preset (flag or positional), the config file, then explicitly set flags.
// The returned name labels the run.
func resolveConfig(cmd *cobra.Command, args []string) (*config.Config, string, error) {
	name := "default"
	if len(args) > 0 {
		if presetName != "" && presetName != args[0] {
			return nil, "", fmt.Errorf("preset given twice: %q and %q", args[0], presetName)
		}
		presetName = args[0]
	}

	cfg := config.DefaultConfig()
	var err error
	switch {
	case presetName != "":
		cfg, err = config.GetPreset(presetName)
		if err != nil {
			return nil, "", fmt.Errorf("%w (available: %s)", err, strings.Join(config.ListPresets(), ", "))
		}
		name = presetName
	case configFile != "":
		cfg, err = config.Load(configFile)
		if err != nil {
			return nil, "", fmt.Errorf("failed to load config: %w", err)
		}
		name = strings.TrimSuffix(filepath.Base(configFile), filepath.Ext(configFile))
	}

	f := cmd.Flags()
	if f.Changed("seed") {
		cfg.Seed = seed
	}
	if f.Changed("particles") {
		cfg.ParticleCount = particles
	}
	if f.Changed("time") {
		cfg.Duration = duration
	}
	if f.Changed("mode") {
		cfg.Mode = mode
	}
	if err := applySets(cfg, sets); err != nil {
		return nil, "", err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", err
	}
	return cfg, name, nil
}

// applySets applies name=value overrides through the parameter registry.
func applySets(cfg *config.Config, kvs []string) error {
	var errs []error
	for _, kv := range kvs {
		k, v, ok := strings.Cut(kv, "=")
		if !ok {
			errs = append(errs, fmt.Errorf("--set %q: want name=value", kv))
			continue
		}
		x, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			errs = append(errs, fmt.Errorf("--set %s: %w", k, err))
			continue
		}
		if err := experiment.SetParam(cfg, strings.TrimSpace(k), x); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func runLive(cmd *cobra.Command, args []string) error {
	if len(args) == 0 && !anyConfigFlag(cmd) {
		return viz.RunInteractive(uiLogger())
	}
	cfg, name, err := resolveConfig(cmd, args)
	if err != nil {
		return err
	}
	return viz.Run(name, cfg, uiLogger())
}

func runGUI(cmd *cobra.Command, args []string) error {
	if len(args) == 0 && !anyConfigFlag(cmd) {
		return gui.RunInteractive(logger)
	}
	cfg, name, err := resolveConfig(cmd, args)
	if err != nil {
		return err
	}
	return gui.Run(name, cfg, logger)
}

func anyConfigFlag(cmd *cobra.Command) bool {
	for _, f := range []string{"preset", "config", "seed", "particles", "time", "mode", "set"} {
		if cmd.Flags().Changed(f) {
			return true
		}
	}
	return false
}
