package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"text/tabwriter"
	"time"

	"github.com/guptarohit/asciigraph"
	"github.com/spf13/cobra"

	"github.com/san-kum/dotsim/internal/analysis"
	"github.com/san-kum/dotsim/internal/config"
	"github.com/san-kum/dotsim/internal/experiment"
	"github.com/san-kum/dotsim/internal/export"
	"github.com/san-kum/dotsim/internal/metrics"
	"github.com/san-kum/dotsim/internal/sim"
	"github.com/san-kum/dotsim/internal/storage"
)

func runSimulation(cmd *cobra.Command, args []string) error {
	cfg, name, err := resolveConfig(cmd, args)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()

	exp := experiment.New(name, cfg)
	exp.Logger = logger

	fmt.Fprintf(out, "running %s (%s, %d particles, seed %d, %gs)...\n",
		name, cfg.Mode, cfg.ParticleCount, cfg.Seed, cfg.Duration)

	res, err := exp.Run(cmd.Context())
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "completed in %v\n", res.Duration.Round(time.Millisecond))
	if !noSave {
		st := storage.New(dataDir)
		if err := st.Init(); err != nil {
			return err
		}
		runID, err := res.Save(st)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "run id: %s\n", runID)
	}

	c := res.Stats.Counts
	fmt.Fprintf(out, "epochs: %d\n", res.Stats.Epochs)
	fmt.Fprintf(out, "final: S %d  A %d  I %d  R %d  D %d\n",
		c.Susceptible, c.Asymptomatic, c.Infected, c.Recovered, c.Dead)
	fmt.Fprintln(out, "\nsummary:")
	printSummary(out, res.Summary)
	fmt.Fprintln(out, "\nmetrics:")
	printMetrics(out, res.Metrics)
	return nil
}

func printMetrics(w io.Writer, m map[string]float64) {
	names := make([]string, 0, len(m))
	for k := range m {
		names = append(names, k)
	}
	sort.Strings(names)
	for _, k := range names {
		fmt.Fprintf(w, "  %s: %.6g\n", k, m[k])
	}
}

// resolveRunID resolves an optional run argument; no argument or "latest" picks
// the most recent run.
func resolveRunID(st *storage.Store, args []string) (string, error) {
	if len(args) == 0 || args[0] == "latest" {
		return st.Latest()
	}
	return args[0], nil
}

func loadRun(args []string) (*storage.RunMetadata, []metrics.Sample, error) {
	st := storage.New(dataDir)
	id, err := resolveRunID(st, args)
	if err != nil {
		return nil, nil, err
	}
	meta, err := st.Load(id)
	if err != nil {
		return nil, nil, err
	}
	samples, err := st.LoadSeries(id)
	if err != nil {
		return nil, nil, err
	}
	return meta, samples, nil
}

func listRuns(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	runs, err := st.List()
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if len(runs) == 0 {
		fmt.Fprintln(out, "no runs found")
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tTIME\tMODE\tN\tSEED\tDURATION\tDEAD")
	for _, run := range runs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%d\t%.1fs\t%d\n",
			run.ID,
			run.Name,
			run.Timestamp.Format("2006-01-02 15:04:05"),
			run.Mode,
			run.Particles,
			run.Seed,
			run.Duration,
			run.Final.Dead,
		)
	}
	return w.Flush()
}

func plotRun(cmd *cobra.Command, args []string) error {
	meta, samples, err := loadRun(args)
	if err != nil {
		return err
	}
	if len(samples) < 2 {
		return fmt.Errorf("run %s: %w", meta.ID, analysis.ErrNoData)
	}
	out := cmd.OutOrStdout()

	fmt.Fprintf(out, "run: %s\n", meta.ID)
	fmt.Fprintf(out, "mode: %s  particles: %d  seed: %d\n", meta.Mode, meta.Particles, meta.Seed)
	fmt.Fprintf(out, "samples: %d\n\n", len(samples))

	var sus, active, rec, dead, acc []float64
	for _, s := range samples {
		sus = append(sus, float64(s.Susceptible))
		active = append(active, float64(s.Asymptomatic+s.Infected))
		rec = append(rec, float64(s.Recovered))
		dead = append(dead, float64(s.Dead))
		acc = append(acc, s.Acceptance)
	}

	graph := asciigraph.PlotMany([][]float64{sus, active, rec, dead},
		asciigraph.Height(12),
		asciigraph.Width(80),
		asciigraph.SeriesColors(asciigraph.White, asciigraph.Red, asciigraph.Green, asciigraph.Magenta),
		asciigraph.Caption("susceptible (white)  active (red)  recovered (green)  dead (magenta)"),
	)
	fmt.Fprintln(out, graph)

	if meta.Mode == config.ModeStochastic {
		fmt.Fprintln(out)
		fmt.Fprintln(out, asciigraph.Plot(acc,
			asciigraph.Height(6),
			asciigraph.Width(80),
			asciigraph.Caption("metropolis acceptance"),
		))
	}

	if svgFile != "" {
		pc := config.DefaultPalette()
		if meta.Config != nil {
			pc = meta.Config.Palette
		}
		pal, err := sim.NewPalette(pc)
		if err != nil {
			return err
		}
		svg := export.Curves(samples, export.CompartmentSeries(pal), 800, 400)
		if err := os.WriteFile(svgFile, []byte(svg), 0o644); err != nil {
			return err
		}
		fmt.Fprintf(out, "\nwrote %s\n", svgFile)
	}
	return nil
}

func analyzeRuns(cmd *cobra.Command, args []string) error {
	if len(args) == 0 {
		args = []string{"latest"}
	}
	out := cmd.OutOrStdout()

	var sums []analysis.Summary
	for _, a := range args {
		meta, samples, err := loadRun([]string{a})
		if err != nil {
			return err
		}
		sum, err := analysis.Summarize(samples)
		if err != nil {
			return fmt.Errorf("run %s: %w", meta.ID, err)
		}
		sums = append(sums, sum)
		if !jsonOut {
			fmt.Fprintf(out, "run: %s\n", meta.ID)
			printSummary(out, sum)
			fmt.Fprintln(out)
		}
	}

	if jsonOut {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		if len(sums) == 1 {
			return enc.Encode(sums[0])
		}
		agg, err := analysis.AggregateSummaries(sums)
		if err != nil {
			return err
		}
		return enc.Encode(struct {
			Runs      []analysis.Summary `json:"runs"`
			Aggregate analysis.Aggregate `json:"aggregate"`
		}{sums, agg})
	}

	if len(sums) > 1 {
		agg, err := analysis.AggregateSummaries(sums)
		if err != nil {
			return err
		}
		printAggregate(out, agg)
	}
	return nil
}

func printSummary(w io.Writer, s analysis.Summary) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "  population\t%d\n", s.Population)
	fmt.Fprintf(tw, "  epochs\t%d over %.1fs\n", s.Epochs, s.Duration)
	fmt.Fprintf(tw, "  peak active\t%d at %.1fs\n", s.PeakActive, s.PeakTime)
	fmt.Fprintf(tw, "  attack rate\t%.1f%%\n", s.AttackRate*100)
	fmt.Fprintf(tw, "  recovered\t%d\n", s.FinalRecovered)
	fmt.Fprintf(tw, "  dead\t%d (case fatality %.1f%%)\n", s.FinalDead, s.CaseFatality*100)
	if s.EndTime >= 0 {
		fmt.Fprintf(tw, "  outbreak over\tat %.1fs\n", s.EndTime)
	} else {
		fmt.Fprintf(tw, "  outbreak over\tno\n")
	}
	fmt.Fprintf(tw, "  mean acceptance\t%.3f\n", s.MeanAcceptance)
	fmt.Fprintf(tw, "  mean kinetic\t%.4g\n", s.MeanKinetic)
	tw.Flush()
}

func printAggregate(w io.Writer, a analysis.Aggregate) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "aggregate of %d runs\tmean\tstd\n", a.Runs)
	row := func(name string, s analysis.Spread) {
		fmt.Fprintf(tw, "  %s\t%.4g\t%.4g\n", name, s.Mean, s.Std)
	}
	row("peak active", a.PeakActive)
	row("peak time", a.PeakTime)
	row("attack rate", a.AttackRate)
	row("deaths", a.Deaths)
	row("case fatality", a.CaseFatality)
	row("acceptance", a.Acceptance)
	fmt.Fprintf(tw, "  contained\t%.0f%%\t\n", a.Contained*100)
	tw.Flush()
}

// writeOut sends fn's output to path, or to stdout when path is empty.
func writeOut(cmd *cobra.Command, path string, fn func(io.Writer) error) error {
	if path == "" || path == "-" {
		return fn(cmd.OutOrStdout())
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := fn(f); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "exported to %s\n", path)
	return nil
}

func exportCSV(cmd *cobra.Command, args []string) error {
	_, samples, err := loadRun(args)
	if err != nil {
		return err
	}
	return writeOut(cmd, outFile, func(w io.Writer) error {
		return storage.ExportCSV(w, samples)
	})
}

func exportJSON(cmd *cobra.Command, args []string) error {
	meta, samples, err := loadRun(args)
	if err != nil {
		return err
	}
	return writeOut(cmd, outFile, func(w io.Writer) error {
		return storage.ExportJSON(w, *meta, samples)
	})
}

func exportSVG(cmd *cobra.Command, args []string) error {
	cfg, _, err := resolveConfig(cmd, args)
	if err != nil {
		return err
	}
	s, err := sim.New(cfg, sim.WithLogger(logger))
	if err != nil {
		return err
	}
	if snapshotAt > 0 {
		if err := s.Run(cmd.Context(), snapshotAt, experiment.DefaultFrameDt); err != nil {
			return err
		}
	}
	svg := export.Snapshot(s.RenderState(), s.Domain(), svgSize)
	return writeOut(cmd, outFile, func(w io.Writer) error {
		_, err := io.WriteString(w, svg)
		return err
	})
}

func runEnsemble(cmd *cobra.Command, args []string) error {
	cfg, name, err := resolveConfig(cmd, args)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()

	base := experiment.New(name, cfg)
	base.Logger = logger
	ens := experiment.NewEnsemble(base, runs, seedStart)
	if workers > 0 {
		ens.Workers = workers
	}

	start := time.Now()
	results, err := ens.Run(cmd.Context())
	if err != nil {
		return err
	}
	agg, err := analysis.AggregateSummaries(experiment.Summaries(results))
	if err != nil {
		return err
	}

	if saveRuns {
		st := storage.New(dataDir)
		if err := st.Init(); err != nil {
			return err
		}
		for _, r := range results {
			if _, err := r.Save(st); err != nil {
				return err
			}
		}
	}

	if jsonOut {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(agg)
	}

	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "SEED\tPEAK\tPEAK T\tATTACK\tDEAD\tENDED")
	for _, r := range results {
		s := r.Summary
		ended := "-"
		if s.EndTime >= 0 {
			ended = fmt.Sprintf("%.1fs", s.EndTime)
		}
		fmt.Fprintf(tw, "%d\t%d\t%.1fs\t%.1f%%\t%d\t%s\n",
			r.Config.Seed, s.PeakActive, s.PeakTime, s.AttackRate*100, s.FinalDead, ended)
	}
	tw.Flush()
	fmt.Fprintln(out)
	printAggregate(out, agg)
	fmt.Fprintf(out, "\n%d runs in %v\n", len(results), time.Since(start).Round(time.Millisecond))
	return nil
}

func runSweep(cmd *cobra.Command, args []string) error {
	cfg, name, err := resolveConfig(cmd, args)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()

	base := experiment.New(name, cfg)
	base.Logger = logger
	sw := &experiment.Sweep{
		Base:      base,
		Param:     sweepParam,
		Min:       sweepMin,
		Max:       sweepMax,
		Steps:     sweepSteps,
		Seeds:     runs,
		SeedStart: seedStart,
		Workers:   workers,
	}
	points, err := sw.Run(cmd.Context())
	if err != nil {
		return err
	}

	if jsonOut {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(points)
	}

	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "%s\tPEAK\tATTACK\tDEATHS\tCONTAINED\n", sweepParam)
	for _, p := range points {
		a := p.Aggregate
		fmt.Fprintf(tw, "%.4g\t%.1f ± %.1f\t%.1f%% ± %.1f\t%.1f ± %.1f\t%.0f%%\n",
			p.Value,
			a.PeakActive.Mean, a.PeakActive.Std,
			a.AttackRate.Mean*100, a.AttackRate.Std*100,
			a.Deaths.Mean, a.Deaths.Std,
			a.Contained*100)
	}
	return tw.Flush()
}
