// Package montecarlo implements Metropolis relaxation of the particle
// configuration under state-dependent pair potentials and a global field.
package montecarlo

import (
	"math"
	"math/rand/v2"
	"time"

	"gonum.org/v1/gonum/spatial/r2"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/san-kum/dotsim/internal/particle"
	"github.com/san-kum/dotsim/internal/spatial"
)

// DefaultMaxResample bounds the proposal loop for a particle sitting
// outside the domain, where no proposal could ever be accepted.
const DefaultMaxResample = 10000

// PassStats summarises one relaxation pass.
type PassStats struct {
	Proposed  int
	Accepted  int
	Resamples int
	Stuck     int
}

// AcceptanceRate is Accepted/Proposed, or 0 when nothing was proposed.
func (s PassStats) AcceptanceRate() float64 {
	if s.Proposed == 0 {
		return 0
	}
	return float64(s.Accepted) / float64(s.Proposed)
}

// Relaxer performs single-particle Metropolis moves.
type Relaxer struct {
	Domain         spatial.Domain
	Potential      *Potential
	CommitDuration time.Duration
	MaxResample    int

	rng   *rand.Rand
	angle distuv.Uniform
	step  distuv.StudentsT
}

// NewRelaxer draws every random number from rng. Step magnitudes follow a
// Cauchy distribution with the given scale.
func NewRelaxer(domain spatial.Domain, pot *Potential, stepScale float64, commit time.Duration, rng *rand.Rand) *Relaxer {
	return &Relaxer{
		Domain:         domain,
		Potential:      pot,
		CommitDuration: commit,
		MaxResample:    DefaultMaxResample,
		rng:            rng,
		angle:          distuv.Uniform{Min: 0, Max: 2 * math.Pi, Src: rng},
		step:           distuv.StudentsT{Mu: 0, Sigma: stepScale, Nu: 1, Src: rng},
	}
}

// Acceptance is the Metropolis acceptance probability for an energy change
// dE = E(before) - E(after). Moves with dE > 0 are always taken.
func Acceptance(dE float64) float64 {
	if dE > 0 {
		return 1
	}
	if math.IsNaN(dE) {
		return 0
	}
	return math.Exp(dE)
}

// Pass visits every particle once in index order. Each move sees the
// targets already committed earlier in the same pass, so the loop must stay
// sequential.
func (r *Relaxer) Pass(s *particle.Store, now time.Time) PassStats {
	var st PassStats
	for i := 0; i < s.Len(); i++ {
		a := s.At(i)
		if a.Health.Phase == particle.PhaseDead {
			continue
		}

		dx, tries, ok := r.Propose(a.Target)
		st.Resamples += tries
		if !ok {
			st.Stuck++
			continue
		}
		st.Proposed++

		p := Acceptance(r.DeltaEnergy(s, i, dx))
		accept := distuv.Bernoulli{P: p, Src: r.rng}
		if accept.Rand() == 1 {
			s.CommitMove(i, r2.Add(a.Target, dx), r.CommitDuration, now)
			st.Accepted++
		}
	}
	return st
}

// Propose draws an isotropic heavy-tailed displacement whose destination
// lies inside the domain. Proposals outside are redrawn, never clamped.
// It returns the number of redraws and false if MaxResample was hit.
func (r *Relaxer) Propose(from r2.Vec) (r2.Vec, int, bool) {
	limit := r.MaxResample
	if limit <= 0 {
		limit = DefaultMaxResample
	}
	for tries := 0; tries < limit; tries++ {
		phi := r.angle.Rand()
		dx := r2.Scale(r.step.Rand(), r2.Vec{X: math.Cos(phi), Y: math.Sin(phi)})
		if r.Domain.Contains(r2.Add(from, dx)) {
			return dx, tries, true
		}
	}
	return r2.Vec{}, limit, false
}

// DeltaEnergy is E(before) - E(after) for moving particle i by dx, summed
// over every other particle plus the global term. Pairs at exactly zero
// distance on either side of the move are skipped.
func (r *Relaxer) DeltaEnergy(s *particle.Store, i int, dx r2.Vec) float64 {
	a := s.At(i)
	from := a.Target
	to := r2.Add(from, dx)

	dE := 0.0
	for j := 0; j < s.Len(); j++ {
		if j == i {
			continue
		}
		b := s.At(j)
		r1 := r2.Norm(r2.Sub(from, b.Target))
		r2d := r2.Norm(r2.Sub(to, b.Target))
		if r1 == 0 || r2d == 0 {
			continue
		}
		dE += r.Potential.Pairwise(r1, a.Health, b.Health) -
			r.Potential.Pairwise(r2d, a.Health, b.Health)
	}
	return dE + r.Potential.Global(from) - r.Potential.Global(to)
}

// Energy is the total configuration energy: every unordered pair once plus
// the global term of each particle.
func Energy(s *particle.Store, pot *Potential) float64 {
	e := 0.0
	for i := 0; i < s.Len(); i++ {
		a := s.At(i)
		e += pot.Global(a.Target)
		for j := i + 1; j < s.Len(); j++ {
			b := s.At(j)
			d := r2.Norm(r2.Sub(a.Target, b.Target))
			if d == 0 {
				continue
			}
			e += pot.Pairwise(d, a.Health, b.Health)
		}
	}
	return e
}
