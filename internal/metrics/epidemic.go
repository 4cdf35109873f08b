package metrics

import (
	"gonum.org/v1/gonum/stat"

	"github.com/san-kum/dotsim/internal/sim"
)

// PeakActive is the largest asymptomatic plus infected fraction.
type PeakActive struct {
	name string
	peak float64
}

func NewPeakActive() *PeakActive { return &PeakActive{name: "peak_active"} }

func (p *PeakActive) Name() string { return p.name }

func (p *PeakActive) Observe(r sim.EpochReport) {
	n := r.Counts.Total()
	if n == 0 {
		return
	}
	p.peak = max(p.peak, float64(r.Counts.Active())/float64(n))
}

func (p *PeakActive) Value() float64 { return p.peak }
func (p *PeakActive) Reset()         { p.peak = 0 }

// AttackRate is the fraction of the population that has left Susceptible
// by the latest observation.
type AttackRate struct {
	name string
	rate float64
}

func NewAttackRate() *AttackRate { return &AttackRate{name: "attack_rate"} }

func (a *AttackRate) Name() string { return a.name }

func (a *AttackRate) Observe(r sim.EpochReport) {
	n := r.Counts.Total()
	if n == 0 {
		return
	}
	a.rate = float64(n-r.Counts.Susceptible) / float64(n)
}

func (a *AttackRate) Value() float64 { return a.rate }
func (a *AttackRate) Reset()         { a.rate = 0 }

type Deaths struct {
	name string
	dead int
}

func NewDeaths() *Deaths { return &Deaths{name: "deaths"} }

func (d *Deaths) Name() string { return d.name }

func (d *Deaths) Observe(r sim.EpochReport) { d.dead = r.Counts.Dead }

func (d *Deaths) Value() float64 { return float64(d.dead) }
func (d *Deaths) Reset()         { d.dead = 0 }

// Acceptance is the Metropolis acceptance rate averaged over passes,
// weighted by the number of proposals in each.
type Acceptance struct {
	name    string
	rates   []float64
	weights []float64
}

func NewAcceptance() *Acceptance { return &Acceptance{name: "acceptance"} }

func (a *Acceptance) Name() string { return a.name }

func (a *Acceptance) Observe(r sim.EpochReport) {
	if r.Pass.Proposed == 0 {
		return
	}
	a.rates = append(a.rates, r.Pass.AcceptanceRate())
	a.weights = append(a.weights, float64(r.Pass.Proposed))
}

func (a *Acceptance) Value() float64 {
	if len(a.rates) == 0 {
		return 0
	}
	return stat.Mean(a.rates, a.weights)
}

func (a *Acceptance) Reset() {
	a.rates = a.rates[:0]
	a.weights = a.weights[:0]
}
