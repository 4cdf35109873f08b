package particle

import (
	"time"

	"gonum.org/v1/gonum/spatial/r2"
)

// Store owns the ordered particle collection. Indices are stable for the
// lifetime of a run; particles are never removed.
type Store struct {
	particles []Particle
}

func NewStore(particles []Particle) *Store {
	return &Store{particles: particles}
}

func (s *Store) Len() int { return len(s.particles) }

// At returns a pointer into the store. Callers must keep i in [0, Len()).
func (s *Store) At(i int) *Particle { return &s.particles[i] }

// All exposes the backing slice for read-mostly iteration.
func (s *Store) All() []Particle { return s.particles }

// Pair returns two distinct particles for simultaneous mutation.
// It reports false when a == b or either index is out of range, so the two
// pointers are always disjoint when ok is true.
func (s *Store) Pair(a, b int) (*Particle, *Particle, bool) {
	if a == b || a < 0 || b < 0 || a >= len(s.particles) || b >= len(s.particles) {
		return nil, nil, false
	}
	return &s.particles[a], &s.particles[b], true
}

// CommitMove starts a new interpolation segment toward target. The origin is
// the position the particle is currently rendered at, not the stale target,
// so consecutive commits never produce a visible jump.
func (s *Store) CommitMove(i int, target r2.Vec, duration time.Duration, now time.Time) {
	p := &s.particles[i]
	p.Committed = RenderPosition(p, now)
	p.CommittedTime = now
	if duration < 0 {
		duration = 0
	}
	p.Target = target
	p.TargetTime = now.Add(duration)
}

// Teleport places the particle at pos with no interpolation segment.
func (s *Store) Teleport(i int, pos r2.Vec, now time.Time) {
	p := &s.particles[i]
	p.Committed, p.Target = pos, pos
	p.CommittedTime, p.TargetTime = now, now
}

// Targets copies every particle's target position into dst.
func (s *Store) Targets(dst []r2.Vec) []r2.Vec {
	dst = dst[:0]
	for i := range s.particles {
		dst = append(dst, s.particles[i].Target)
	}
	return dst
}

// Positions copies every particle's rendered position at now into dst.
func (s *Store) Positions(dst []r2.Vec, now time.Time) []r2.Vec {
	dst = dst[:0]
	for i := range s.particles {
		dst = append(dst, RenderPosition(&s.particles[i], now))
	}
	return dst
}

// Counts is a compartment census.
type Counts struct {
	Susceptible  int `json:"susceptible" csv:"susceptible"`
	Asymptomatic int `json:"asymptomatic" csv:"asymptomatic"`
	Infected     int `json:"infected" csv:"infected"`
	Recovered    int `json:"recovered" csv:"recovered"`
	Dead         int `json:"dead" csv:"dead"`
}

func (c Counts) Total() int {
	return c.Susceptible + c.Asymptomatic + c.Infected + c.Recovered + c.Dead
}

// Active is the number of particles still carrying the infection.
func (c Counts) Active() int { return c.Asymptomatic + c.Infected }

func (s *Store) CountByPhase() Counts {
	var c Counts
	for i := range s.particles {
		switch s.particles[i].Health.Phase {
		case PhaseSusceptible:
			c.Susceptible++
		case PhaseAsymptomatic:
			c.Asymptomatic++
		case PhaseInfected:
			c.Infected++
		case PhaseRecovered:
			c.Recovered++
		case PhaseDead:
			c.Dead++
		}
	}
	return c
}

// MaxRadius is the largest particle radius in the store.
func (s *Store) MaxRadius() float64 {
	m := 0.0
	for i := range s.particles {
		if s.particles[i].Radius > m {
			m = s.particles[i].Radius
		}
	}
	return m
}
