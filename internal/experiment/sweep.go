package experiment

import (
	"context"
	"fmt"

	"github.com/san-kum/dotsim/internal/analysis"
)

type SweepPoint struct {
	Param     string             `json:"param"`
	Value     float64            `json:"value"`
	Aggregate analysis.Aggregate `json:"aggregate"`
}

// Sweep varies one parameter over an inclusive linear range and runs a seed
// ensemble at every value.
type Sweep struct {
	Base      *Experiment
	Param     string
	Min, Max  float64
	Steps     int
	Seeds     int
	SeedStart uint64
	Workers   int
}

func (s *Sweep) Values() []float64 {
	steps := s.Steps
	if steps < 2 {
		return []float64{s.Min}
	}
	step := (s.Max - s.Min) / float64(steps-1)
	out := make([]float64, steps)
	for i := range out {
		out[i] = s.Min + float64(i)*step
	}
	out[steps-1] = s.Max
	return out
}

func (s *Sweep) Run(ctx context.Context) ([]SweepPoint, error) {
	if _, ok := params[s.Param]; !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownParam, s.Param)
	}

	var points []SweepPoint
	for _, v := range s.Values() {
		cfg := s.Base.Config.Clone()
		if err := SetParam(cfg, s.Param, v); err != nil {
			return nil, err
		}

		base := *s.Base
		base.Config = cfg
		base.Logger = s.Base.logger().With(s.Param, v)
		ens := NewEnsemble(&base, max(s.Seeds, 1), s.SeedStart)
		if s.Workers > 0 {
			ens.Workers = s.Workers
		}

		results, err := ens.Run(ctx)
		if err != nil {
			return nil, fmt.Errorf("%s=%g: %w", s.Param, v, err)
		}
		agg, err := analysis.AggregateSummaries(Summaries(results))
		if err != nil {
			return nil, fmt.Errorf("%s=%g: %w", s.Param, v, err)
		}
		points = append(points, SweepPoint{Param: s.Param, Value: v, Aggregate: agg})
	}
	return points, nil
}
