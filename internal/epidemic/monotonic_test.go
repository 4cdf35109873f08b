package epidemic

import (
	"math/rand/v2"
	"testing"
	"time"

	"github.com/san-kum/dotsim/internal/clock"
	"github.com/san-kum/dotsim/internal/particle"
)

func TestPhasesNeverMoveBackward(t *testing.T) {
	rng := rand.New(rand.NewPCG(2020, 3))
	clk := clock.NewManual(time.Time{})
	s := particle.NewStore(particle.Seed(particle.Layout{
		Count:           300,
		Radius:          0.02,
		Distribution:    particle.DistDisk,
		DomainSize:      1,
		InitialInfected: 3,
		Incubation:      2 * time.Second,
	}, rng, clk.Now()))

	params := defaultParams()
	params.Incubation = 2 * time.Second
	params.Infectious = 3 * time.Second
	params.InteractionRadius = 0.2
	m := NewMachine(params, rng)

	prev := make([]int, s.Len())
	for epoch := 0; epoch < 100; epoch++ {
		clk.Advance(300 * time.Millisecond)
		m.Step(s, clk.Now())
		for i := 0; i < s.Len(); i++ {
			r := s.At(i).Health.Phase.Rank()
			if r < prev[i] {
				t.Fatalf("epoch %d: particle %d moved back to %v", epoch, i, s.At(i).Health)
			}
			prev[i] = r
		}
	}

	c := s.CountByPhase()
	if c.Total() != 300 {
		t.Fatalf("population changed: %+v", c)
	}
	if c.Recovered+c.Dead == 0 {
		t.Errorf("expected some resolved infections, got %+v", c)
	}
}

func TestStepOrderIndependent(t *testing.T) {
	// Reversing the particle order must expose the same set.
	clk := clock.NewManual(time.Time{})
	build := func(rev bool) *particle.Store {
		rng := rand.New(rand.NewPCG(8, 8))
		ps := particle.Seed(particle.Layout{
			Count:           200,
			Radius:          0.02,
			Distribution:    particle.DistSquare,
			DomainSize:      2,
			InitialInfected: 20,
			Incubation:      time.Hour,
		}, rng, clk.Now())
		if rev {
			for i, j := 0, len(ps)-1; i < j; i, j = i+1, j-1 {
				ps[i], ps[j] = ps[j], ps[i]
			}
		}
		return particle.NewStore(ps)
	}

	params := defaultParams()
	params.InteractionRadius = 0.15
	fwd, bwd := build(false), build(true)
	a := NewMachine(params, rand.New(rand.NewPCG(1, 1))).Step(fwd, clk.Now())
	b := NewMachine(params, rand.New(rand.NewPCG(1, 1))).Step(bwd, clk.Now())

	if a.Exposed != b.Exposed {
		t.Fatalf("exposed %d forward vs %d reversed", a.Exposed, b.Exposed)
	}
	n := fwd.Len()
	for i := 0; i < n; i++ {
		if fwd.At(i).Health != bwd.At(n-1-i).Health {
			t.Errorf("particle %d: %v vs %v", i, fwd.At(i).Health, bwd.At(n-1-i).Health)
		}
	}
}
