// Package experiment runs headless simulations: single runs, parallel seed
// ensembles and parameter sweeps.
package experiment

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/san-kum/dotsim/internal/analysis"
	"github.com/san-kum/dotsim/internal/config"
	"github.com/san-kum/dotsim/internal/metrics"
	"github.com/san-kum/dotsim/internal/sim"
	"github.com/san-kum/dotsim/internal/storage"
)

const DefaultFrameDt = 1.0 / 60

type Experiment struct {
	Name    string
	Config  *config.Config
	FrameDt float64
	Logger  *slog.Logger
	// Observers are attached to the simulation of a single Run. Ensembles
	// and sweeps do not forward them since their runs are concurrent.
	Observers []sim.Observer
}

func New(name string, cfg *config.Config) *Experiment {
	return &Experiment{
		Name:    name,
		Config:  cfg,
		FrameDt: DefaultFrameDt,
		Logger:  slog.Default(),
	}
}

type Result struct {
	Name     string
	Config   *config.Config
	Stats    sim.Stats
	Samples  []metrics.Sample
	Metrics  map[string]float64
	Summary  analysis.Summary
	Duration time.Duration
}

// Run executes the configured duration on a manual clock.
func (e *Experiment) Run(ctx context.Context) (*Result, error) {
	if e.Config == nil {
		return nil, fmt.Errorf("experiment %q: %w: nil config", e.Name, sim.ErrInvalidConfig)
	}
	rec := metrics.NewRecorder(metrics.Standard()...)
	opts := []sim.Option{sim.WithLogger(e.logger()), sim.WithObserver(rec)}
	for _, o := range e.Observers {
		opts = append(opts, sim.WithObserver(o))
	}

	s, err := sim.New(e.Config, opts...)
	if err != nil {
		return nil, err
	}

	frame := e.FrameDt
	if frame <= 0 {
		frame = DefaultFrameDt
	}
	start := time.Now()
	if err := s.Run(ctx, e.Config.Duration, frame); err != nil {
		return nil, err
	}

	res := &Result{
		Name:     e.Name,
		Config:   e.Config.Clone(),
		Stats:    s.Stats(),
		Samples:  rec.Samples(),
		Metrics:  rec.Values(),
		Duration: time.Since(start),
	}
	res.Summary, err = analysis.Summarize(res.Samples)
	if err != nil && !errors.Is(err, analysis.ErrNoData) {
		return nil, err
	}

	e.logger().Info("run complete",
		"name", e.Name,
		"seed", e.Config.Seed,
		"epochs", res.Stats.Epochs,
		"attack_rate", res.Summary.AttackRate,
		"dead", res.Stats.Counts.Dead,
		"wall", res.Duration.Round(time.Millisecond),
	)
	return res, nil
}

func (e *Experiment) logger() *slog.Logger {
	if e.Logger == nil {
		return slog.Default()
	}
	return e.Logger
}

// Metadata describes the result as a storage record.
func (r *Result) Metadata() storage.RunMetadata {
	return storage.RunMetadata{
		Name:      r.Name,
		Seed:      r.Config.Seed,
		Mode:      r.Config.Mode,
		Particles: r.Config.ParticleCount,
		Duration:  r.Stats.Elapsed.Seconds(),
		Epochs:    r.Stats.Epochs,
		Final:     r.Stats.Counts,
		Metrics:   r.Metrics,
		Config:    r.Config,
	}
}

// Save writes the result into st and returns the run id.
func (r *Result) Save(st *storage.Store) (string, error) {
	return st.Save(r.Metadata(), r.Samples)
}
