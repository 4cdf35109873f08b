package experiment

import (
	"context"
	"fmt"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/san-kum/dotsim/internal/analysis"
)

// Ensemble runs the same experiment over consecutive seeds. Each run owns
// its simulation, so runs proceed in parallel while every simulation stays
// single-threaded.
type Ensemble struct {
	Base      *Experiment
	Runs      int
	SeedStart uint64
	Workers   int
}

func NewEnsemble(base *Experiment, runs int, seedStart uint64) *Ensemble {
	return &Ensemble{Base: base, Runs: runs, SeedStart: seedStart, Workers: runtime.GOMAXPROCS(0)}
}

// Run returns results in seed order. The first failure cancels the rest.
func (e *Ensemble) Run(ctx context.Context) ([]*Result, error) {
	results := make([]*Result, e.Runs)

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(max(e.Workers, 1))
	for i := range e.Runs {
		g.Go(func() error {
			cfg := e.Base.Config.Clone()
			cfg.Seed = e.SeedStart + uint64(i)

			run := *e.Base
			run.Config = cfg
			run.Observers = nil
			run.Logger = e.Base.logger().With("member", i)

			res, err := run.Run(ctx)
			if err != nil {
				return fmt.Errorf("seed %d: %w", cfg.Seed, err)
			}
			results[i] = res
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func Summaries(results []*Result) []analysis.Summary {
	out := make([]analysis.Summary, 0, len(results))
	for _, r := range results {
		if r != nil {
			out = append(out, r.Summary)
		}
	}
	return out
}
