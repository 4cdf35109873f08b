package metrics

import (
	"context"
	"io"
	"log/slog"
	"math"
	"testing"
	"time"

	"gonum.org/v1/gonum/spatial/r2"

	"github.com/san-kum/dotsim/internal/config"
	"github.com/san-kum/dotsim/internal/montecarlo"
	"github.com/san-kum/dotsim/internal/particle"
	"github.com/san-kum/dotsim/internal/sim"
)

func report(c particle.Counts) sim.EpochReport {
	return sim.EpochReport{Counts: c}
}

func TestPeakActive(t *testing.T) {
	m := NewPeakActive()
	m.Observe(report(particle.Counts{Susceptible: 8, Infected: 2}))
	m.Observe(report(particle.Counts{Susceptible: 5, Asymptomatic: 1, Infected: 4}))
	m.Observe(report(particle.Counts{Susceptible: 5, Recovered: 5}))

	if v := m.Value(); math.Abs(v-0.5) > 1e-12 {
		t.Errorf("expected peak 0.5, got %v", v)
	}
	m.Reset()
	if m.Value() != 0 {
		t.Error("expected zero after reset")
	}
}

func TestAttackRateAndDeaths(t *testing.T) {
	ar, d := NewAttackRate(), NewDeaths()
	for _, c := range []particle.Counts{
		{Susceptible: 10},
		{Susceptible: 7, Infected: 3},
		{Susceptible: 6, Recovered: 2, Dead: 2},
	} {
		ar.Observe(report(c))
		d.Observe(report(c))
	}
	if v := ar.Value(); math.Abs(v-0.4) > 1e-12 {
		t.Errorf("attack rate %v, want 0.4", v)
	}
	if d.Value() != 2 {
		t.Errorf("deaths %v, want 2", d.Value())
	}
}

func TestAcceptanceWeighted(t *testing.T) {
	m := NewAcceptance()
	m.Observe(sim.EpochReport{Pass: montecarlo.PassStats{Proposed: 10, Accepted: 10}})
	m.Observe(sim.EpochReport{Pass: montecarlo.PassStats{Proposed: 30, Accepted: 0}})
	m.Observe(sim.EpochReport{})

	if v := m.Value(); math.Abs(v-0.25) > 1e-12 {
		t.Errorf("acceptance %v, want 0.25", v)
	}
}

func TestEnergyAndMomentumDrift(t *testing.T) {
	now := time.Date(2020, time.March, 1, 0, 0, 0, 0, time.UTC)
	ps := []particle.Particle{particle.New(r2.Vec{}, 0.02, now), particle.New(r2.Vec{X: 1}, 0.02, now)}
	ps[0].Velocity = r2.Vec{X: 1}
	ps[1].Velocity = r2.Vec{X: -1}
	s := particle.NewStore(ps)

	ke, ed, md := NewKineticEnergy(), NewEnergyDrift(), NewMomentumDrift()
	rep := sim.EpochReport{Store: s}
	for _, m := range []Metric{ke, ed, md} {
		m.Observe(rep)
	}
	if ke.Value() != 1 {
		t.Errorf("kinetic %v, want 1", ke.Value())
	}

	s.At(0).Velocity = r2.Vec{X: 2}
	ed.Observe(rep)
	md.Observe(rep)
	if math.Abs(ed.Value()-1.5) > 1e-12 {
		t.Errorf("energy drift %v, want 1.5", ed.Value())
	}
	if md.Value() != 1 {
		t.Errorf("momentum drift %v, want 1", md.Value())
	}
}

func TestRecorderOnSimulation(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.ParticleCount = 80
	cfg.DomainSize = 0.5
	cfg.StepCadenceSeconds = 0.5

	rec := NewRecorder(Standard()...)
	s, err := sim.New(cfg,
		sim.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		sim.WithObserver(rec),
	)
	if err != nil {
		t.Fatal(err)
	}
	if err := s.Run(context.Background(), 5, 0.25); err != nil {
		t.Fatal(err)
	}

	samples := rec.Samples()
	if len(samples) != 10 {
		t.Fatalf("expected 10 samples, got %d", len(samples))
	}
	for i, smp := range samples {
		total := smp.Susceptible + smp.Asymptomatic + smp.Infected + smp.Recovered + smp.Dead
		if total != 80 {
			t.Errorf("sample %d: population %d", i, total)
		}
		if want := 0.5 * float64(i+1); math.Abs(smp.Time-want) > 1e-9 {
			t.Errorf("sample %d: time %v, want %v", i, smp.Time, want)
		}
	}

	vals := rec.Values()
	if len(vals) != len(Standard()) {
		t.Errorf("expected %d metrics, got %d", len(Standard()), len(vals))
	}
	if a := vals["acceptance"]; a <= 0 || a > 1 {
		t.Errorf("acceptance out of range: %v", a)
	}
	if vals["attack_rate"] < 1.0/80 {
		t.Errorf("attack rate should include the seed carrier: %v", vals["attack_rate"])
	}

	rec.Reset()
	if len(rec.Samples()) != 0 {
		t.Error("expected no samples after reset")
	}
}
