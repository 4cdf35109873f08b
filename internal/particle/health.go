package particle

import (
	"fmt"
	"time"
)

// Phase is the epidemic compartment of a particle.
type Phase uint8

const (
	PhaseSusceptible Phase = iota
	PhaseAsymptomatic
	PhaseInfected
	PhaseRecovered
	PhaseDead
)

var phaseNames = [...]string{"susceptible", "asymptomatic", "infected", "recovered", "dead"}

func (p Phase) String() string {
	if int(p) < len(phaseNames) {
		return phaseNames[p]
	}
	return fmt.Sprintf("phase(%d)", uint8(p))
}

// Rank orders phases along the only allowed direction of travel.
// Recovered and Dead are both terminal and share a rank.
func (p Phase) Rank() int {
	switch p {
	case PhaseSusceptible:
		return 0
	case PhaseAsymptomatic:
		return 1
	case PhaseInfected:
		return 2
	default:
		return 3
	}
}

// ParsePhase is the inverse of Phase.String.
func ParsePhase(s string) (Phase, bool) {
	for i, name := range phaseNames {
		if name == s {
			return Phase(i), true
		}
	}
	return 0, false
}

// Health is a tagged union over the phases. Deadline is only set for the
// time-bounded phases (Asymptomatic, Infected) and is the absolute time at
// which the phase expires.
type Health struct {
	Phase    Phase
	Deadline time.Time
}

func Susceptible() Health { return Health{Phase: PhaseSusceptible} }

func Asymptomatic(deadline time.Time) Health {
	return Health{Phase: PhaseAsymptomatic, Deadline: deadline}
}

func Infected(deadline time.Time) Health {
	return Health{Phase: PhaseInfected, Deadline: deadline}
}

func Recovered() Health { return Health{Phase: PhaseRecovered} }

func Dead() Health { return Health{Phase: PhaseDead} }

// Infectious reports whether the particle can transmit.
func (h Health) Infectious() bool {
	return h.Phase == PhaseAsymptomatic || h.Phase == PhaseInfected
}

func (h Health) Terminal() bool {
	return h.Phase == PhaseRecovered || h.Phase == PhaseDead
}

// Timed reports whether the phase carries a deadline.
func (h Health) Timed() bool {
	return h.Phase == PhaseAsymptomatic || h.Phase == PhaseInfected
}

// Expired reports whether a timed phase has reached its deadline at now.
func (h Health) Expired(now time.Time) bool {
	return h.Timed() && !now.Before(h.Deadline)
}

func (h Health) String() string {
	if h.Timed() {
		return fmt.Sprintf("%s(until %s)", h.Phase, h.Deadline.Format(time.RFC3339Nano))
	}
	return h.Phase.String()
}
