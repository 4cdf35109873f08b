package metrics

import (
	"math"

	"gonum.org/v1/gonum/spatial/r2"

	"github.com/san-kum/dotsim/internal/particle"
	"github.com/san-kum/dotsim/internal/sim"
)

// Kinetic is the total kinetic energy of the store, unit masses.
func Kinetic(s *particle.Store) float64 {
	e := 0.0
	for _, p := range s.All() {
		e += 0.5 * r2.Norm2(p.Velocity)
	}
	return e
}

// Momentum is the total momentum of the store, unit masses.
func Momentum(s *particle.Store) r2.Vec {
	var m r2.Vec
	for _, p := range s.All() {
		m = r2.Add(m, p.Velocity)
	}
	return m
}

type KineticEnergy struct {
	name    string
	samples int
	total   float64
}

func NewKineticEnergy() *KineticEnergy {
	return &KineticEnergy{name: "kinetic_energy"}
}

func (e *KineticEnergy) Name() string { return e.name }

func (e *KineticEnergy) Observe(r sim.EpochReport) {
	if r.Store == nil {
		return
	}
	e.total += Kinetic(r.Store)
	e.samples++
}

func (e *KineticEnergy) Value() float64 {
	if e.samples == 0 {
		return 0
	}
	return e.total / float64(e.samples)
}

func (e *KineticEnergy) Reset() {
	e.total = 0
	e.samples = 0
}

// EnergyDrift is the largest relative kinetic energy change seen since the
// first observation. Elastic runs should keep it at rounding level.
type EnergyDrift struct {
	name     string
	initial  float64
	maxDrift float64
	samples  int
}

func NewEnergyDrift() *EnergyDrift {
	return &EnergyDrift{name: "energy_drift"}
}

func (e *EnergyDrift) Name() string { return e.name }

func (e *EnergyDrift) Observe(r sim.EpochReport) {
	if r.Store == nil {
		return
	}
	energy := Kinetic(r.Store)
	if e.samples == 0 {
		e.initial = energy
	}
	e.samples++

	if e.initial != 0 {
		drift := math.Abs(energy-e.initial) / math.Abs(e.initial)
		e.maxDrift = math.Max(e.maxDrift, drift)
	}
}

func (e *EnergyDrift) Value() float64 { return e.maxDrift }

func (e *EnergyDrift) Reset() {
	e.initial = 0
	e.maxDrift = 0
	e.samples = 0
}

// MomentumDrift is the largest absolute change of total momentum.
type MomentumDrift struct {
	name     string
	initial  r2.Vec
	maxDrift float64
	samples  int
}

func NewMomentumDrift() *MomentumDrift {
	return &MomentumDrift{name: "momentum_drift"}
}

func (m *MomentumDrift) Name() string { return m.name }

func (m *MomentumDrift) Observe(r sim.EpochReport) {
	if r.Store == nil {
		return
	}
	p := Momentum(r.Store)
	if m.samples == 0 {
		m.initial = p
	}
	m.samples++
	m.maxDrift = math.Max(m.maxDrift, r2.Norm(r2.Sub(p, m.initial)))
}

func (m *MomentumDrift) Value() float64 { return m.maxDrift }

func (m *MomentumDrift) Reset() {
	m.initial = r2.Vec{}
	m.maxDrift = 0
	m.samples = 0
}
