package analysis

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

// Spread is a sample mean with its standard deviation.
type Spread struct {
	Mean float64 `json:"mean"`
	Std  float64 `json:"std"`
}

// Aggregate holds the across-run statistics of many summaries.
type Aggregate struct {
	Runs         int    `json:"runs"`
	PeakActive   Spread `json:"peak_active"`
	PeakTime     Spread `json:"peak_time"`
	AttackRate   Spread `json:"attack_rate"`
	Deaths       Spread `json:"deaths"`
	CaseFatality Spread `json:"case_fatality"`
	Acceptance   Spread `json:"acceptance"`
	// Contained is the fraction of runs whose outbreak ended.
	Contained float64 `json:"contained"`
}

func AggregateSummaries(sums []Summary) (Aggregate, error) {
	if len(sums) == 0 {
		return Aggregate{}, ErrNoData
	}

	col := func(f func(Summary) float64) Spread {
		xs := make([]float64, len(sums))
		for i, s := range sums {
			xs[i] = f(s)
		}
		if len(xs) == 1 {
			return Spread{Mean: xs[0]}
		}
		m, sd := stat.MeanStdDev(xs, nil)
		if math.IsNaN(sd) {
			sd = 0
		}
		return Spread{Mean: m, Std: sd}
	}

	contained := 0
	for _, s := range sums {
		if s.EndTime >= 0 {
			contained++
		}
	}

	return Aggregate{
		Runs:         len(sums),
		PeakActive:   col(func(s Summary) float64 { return float64(s.PeakActive) }),
		PeakTime:     col(func(s Summary) float64 { return s.PeakTime }),
		AttackRate:   col(func(s Summary) float64 { return s.AttackRate }),
		Deaths:       col(func(s Summary) float64 { return float64(s.FinalDead) }),
		CaseFatality: col(func(s Summary) float64 { return s.CaseFatality }),
		Acceptance:   col(func(s Summary) float64 { return s.MeanAcceptance }),
		Contained:    float64(contained) / float64(len(sums)),
	}, nil
}
