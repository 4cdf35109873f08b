// Package metrics turns epoch reports into scalar run summaries and a
// per-epoch time series.
package metrics

import "github.com/san-kum/dotsim/internal/sim"

type Metric interface {
	Name() string
	Observe(r sim.EpochReport)
	Value() float64
	Reset()
}

// Standard is the metric set recorded for every headless run.
func Standard() []Metric {
	return []Metric{
		NewPeakActive(),
		NewAttackRate(),
		NewDeaths(),
		NewAcceptance(),
		NewKineticEnergy(),
		NewEnergyDrift(),
		NewMomentumDrift(),
	}
}
