package particle

import (
	"math"
	"math/rand/v2"
	"time"

	"gonum.org/v1/gonum/spatial/r2"
	"gonum.org/v1/gonum/stat/distuv"
)

// Distribution selects how initial positions and velocities are drawn.
type Distribution string

const (
	// DistDisk draws a uniform angle and a uniform radius in [0, size).
	// Density therefore peaks toward the centre.
	DistDisk Distribution = "disk"
	// DistSquare draws positions uniformly in [-size/2, size/2)^2.
	DistSquare Distribution = "square"
	// DistNormal uses square positions with per-axis normal velocities.
	DistNormal Distribution = "normal"
)

// Layout describes the initial population.
type Layout struct {
	Count            int
	Radius           float64
	Distribution     Distribution
	DomainSize       float64
	VelocityScale    float64
	InitialInfected  int
	Incubation       time.Duration
	AnchoredFraction float64
}

// Seed creates the initial particles. Every draw comes from rng so a fixed
// seed always produces the same population.
func Seed(l Layout, rng *rand.Rand, now time.Time) []Particle {
	angle := distuv.Uniform{Min: 0, Max: 2 * math.Pi, Src: rng}
	radial := distuv.Uniform{Min: 0, Max: l.DomainSize, Src: rng}
	side := distuv.Uniform{Min: -l.DomainSize / 2, Max: l.DomainSize / 2, Src: rng}
	normal := distuv.Normal{Mu: 0, Sigma: l.VelocityScale, Src: rng}
	anchor := distuv.Bernoulli{P: l.AnchoredFraction, Src: rng}

	out := make([]Particle, l.Count)
	for i := range out {
		var pos, vel r2.Vec
		switch l.Distribution {
		case DistSquare, DistNormal:
			pos = r2.Vec{X: side.Rand(), Y: side.Rand()}
		default:
			phi := angle.Rand()
			pos = r2.Scale(radial.Rand(), r2.Vec{X: math.Cos(phi), Y: math.Sin(phi)})
		}

		switch {
		case l.Distribution == DistNormal:
			vel = r2.Vec{X: normal.Rand(), Y: normal.Rand()}
		case l.VelocityScale > 0:
			phi := angle.Rand()
			vel = r2.Scale(l.VelocityScale, r2.Vec{X: math.Cos(phi), Y: math.Sin(phi)})
		}

		out[i] = New(pos, l.Radius, now)
		out[i].Velocity = vel
		if l.AnchoredFraction > 0 {
			out[i].Anchored = anchor.Rand() == 1
		}
	}

	infected := min(l.InitialInfected, len(out))
	for i := 0; i < infected; i++ {
		out[i].Health = Asymptomatic(now.Add(l.Incubation))
	}
	return out
}
