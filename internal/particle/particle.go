// Package particle holds the particle data model and the store that owns it.
//
// Positions are not integrated continuously: every particle carries a
// committed origin and a target with timestamps, and the render position is
// a clamped linear blend between the two. Physics and relaxation commit new
// targets at their own cadence while renderers sample [RenderPosition] at
// any rate.
package particle

import (
	"time"

	"gonum.org/v1/gonum/spatial/r2"
)

type Particle struct {
	// Target is the authoritative position the particle is moving toward,
	// reached at TargetTime.
	Target     r2.Vec
	TargetTime time.Time

	// Committed is the interpolation origin at CommittedTime.
	Committed     r2.Vec
	CommittedTime time.Time

	// Velocity is only used by the deterministic collision dynamics.
	Velocity r2.Vec

	Anchored bool
	Health   Health
	Radius   float64
}

// New places a resting particle at pos.
func New(pos r2.Vec, radius float64, now time.Time) Particle {
	return Particle{
		Target:        pos,
		TargetTime:    now,
		Committed:     pos,
		CommittedTime: now,
		Health:        Susceptible(),
		Radius:        radius,
	}
}

// Fraction is the clamped interpolation parameter at now. A zero-length
// window yields 1.
func (p *Particle) Fraction(now time.Time) float64 {
	window := p.TargetTime.Sub(p.CommittedTime)
	if window <= 0 {
		return 1
	}
	f := float64(now.Sub(p.CommittedTime)) / float64(window)
	if f < 0 {
		return 0
	}
	if f > 1 {
		return 1
	}
	return f
}

// RenderPosition returns f*Target + (1-f)*Committed. It never mutates p.
func RenderPosition(p *Particle, now time.Time) r2.Vec {
	f := p.Fraction(now)
	if f == 1 {
		return p.Target
	}
	return r2.Add(r2.Scale(f, p.Target), r2.Scale(1-f, p.Committed))
}

// Position is shorthand for RenderPosition(p, now).
func (p *Particle) Position(now time.Time) r2.Vec {
	return RenderPosition(p, now)
}
