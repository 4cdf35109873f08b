// Package epidemic advances the Susceptible, Asymptomatic, Infected,
// Recovered and Dead compartments of a particle population.
package epidemic

import (
	"math/rand/v2"
	"time"

	"gonum.org/v1/gonum/spatial/r2"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/san-kum/dotsim/internal/particle"
	"github.com/san-kum/dotsim/internal/spatial"
)

// Params configures the disease course.
type Params struct {
	// InteractionRadius is the transmission distance.
	InteractionRadius   float64
	Incubation          time.Duration
	Infectious          time.Duration
	FatalityProbability float64

	Periodic bool
	Extent   float64
}

// Transitions counts the state changes of one epoch.
type Transitions struct {
	Exposed   int `json:"exposed"`
	Onset     int `json:"onset"`
	Recovered int `json:"recovered"`
	Died      int `json:"died"`
}

// Total is the number of transitions of any kind.
func (t Transitions) Total() int {
	return t.Exposed + t.Onset + t.Recovered + t.Died
}

// Machine applies the proximity, timer and outcome rules.
type Machine struct {
	Params

	fatal distuv.Bernoulli
	index *spatial.Index

	alive     []int
	positions []r2.Vec
	source    []bool
	exposed   []bool
	hits      []int
}

func NewMachine(p Params, rng *rand.Rand) *Machine {
	return &Machine{
		Params: p,
		fatal:  distuv.Bernoulli{P: p.FatalityProbability, Src: rng},
	}
}

// Step runs one epoch at now. Transmission reads the phases as they were
// when the epoch started, so a particle exposed during this epoch cannot
// pass the infection on before the next one and pair order is irrelevant.
func (m *Machine) Step(s *particle.Store, now time.Time) Transitions {
	var tr Transitions
	tr.Exposed = m.proximity(s, now)

	for i := 0; i < s.Len(); i++ {
		p := s.At(i)
		next, changed := m.Advance(&p.Health, now)
		if !changed {
			continue
		}
		switch next {
		case particle.PhaseInfected:
			tr.Onset++
		case particle.PhaseRecovered:
			tr.Recovered++
		case particle.PhaseDead:
			tr.Died++
		}
	}
	return tr
}

func (m *Machine) proximity(s *particle.Store, now time.Time) int {
	if m.InteractionRadius <= 0 {
		return 0
	}

	m.alive = m.alive[:0]
	m.positions = m.positions[:0]
	m.source = m.source[:0]
	anySource, anyTarget := false, false
	for i := 0; i < s.Len(); i++ {
		p := s.At(i)
		if p.Health.Phase == particle.PhaseDead {
			continue
		}
		m.alive = append(m.alive, i)
		m.positions = append(m.positions, p.Target)
		inf := p.Health.Infectious()
		m.source = append(m.source, inf)
		anySource = anySource || inf
		anyTarget = anyTarget || p.Health.Phase == particle.PhaseSusceptible
	}
	if !anySource || !anyTarget {
		return 0
	}

	opts := spatial.Options{Radius: m.InteractionRadius, Periodic: m.Periodic, Extent: m.Extent}
	if m.index == nil {
		m.index = spatial.Build(m.positions, opts)
	} else {
		m.index.Rebuild(m.positions, opts)
	}

	m.exposed = append(m.exposed[:0], make([]bool, len(m.alive))...)
	r2max := m.InteractionRadius * m.InteractionRadius
	m.index.ForEachPair(func(a, b int) {
		if m.source[a] == m.source[b] {
			return
		}
		if r2.Norm2(m.index.Delta(m.positions[a], m.positions[b])) >= r2max {
			return
		}
		if m.source[a] {
			m.exposed[b] = true
		} else {
			m.exposed[a] = true
		}
	})

	n := 0
	for k, hit := range m.exposed {
		if hit && m.expose(&s.At(m.alive[k]).Health, now) {
			n++
		}
	}
	return n
}

// Contacts applies the proximity rule to touching pairs of one tick.
// Sources are read before any pair is applied, so a particle exposed by one
// contact cannot pass the infection on through another in the same call.
// It returns the number of newly exposed particles.
func (m *Machine) Contacts(s *particle.Store, pairs [][2]int, now time.Time) int {
	m.hits = m.hits[:0]
	for _, pr := range pairs {
		a, b, ok := s.Pair(pr[0], pr[1])
		if !ok {
			continue
		}
		switch {
		case a.Health.Infectious() && b.Health.Phase == particle.PhaseSusceptible:
			m.hits = append(m.hits, pr[1])
		case b.Health.Infectious() && a.Health.Phase == particle.PhaseSusceptible:
			m.hits = append(m.hits, pr[0])
		}
	}

	n := 0
	for _, i := range m.hits {
		if m.expose(&s.At(i).Health, now) {
			n++
		}
	}
	return n
}

func (m *Machine) expose(h *particle.Health, now time.Time) bool {
	if h.Phase != particle.PhaseSusceptible {
		return false
	}
	*h = particle.Asymptomatic(now.Add(m.Incubation))
	return true
}

// Advance applies the timer and outcome rules to h and returns the
// resulting phase.
func (m *Machine) Advance(h *particle.Health, now time.Time) (particle.Phase, bool) {
	if !h.Timed() || !h.Expired(now) {
		return h.Phase, false
	}
	switch h.Phase {
	case particle.PhaseAsymptomatic:
		*h = particle.Infected(now.Add(m.Infectious))
	case particle.PhaseInfected:
		if m.FatalityProbability > 0 && m.fatal.Rand() == 1 {
			*h = particle.Dead()
		} else {
			*h = particle.Recovered()
		}
	}
	return h.Phase, true
}
