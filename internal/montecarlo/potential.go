package montecarlo

import (
	"math"

	"github.com/aquilax/go-perlin"
	"gonum.org/v1/gonum/spatial/r2"

	"github.com/san-kum/dotsim/internal/particle"
)

// GlobalShape selects the external potential landscape.
type GlobalShape string

const (
	GlobalCosine GlobalShape = "cosine"
	GlobalPerlin GlobalShape = "perlin"
	GlobalNone   GlobalShape = "none"
)

// Potential defines the pairwise and global energy terms.
type Potential struct {
	// PairStrength (k) and PairLength (d) parametrise both pair shapes.
	PairStrength float64
	PairLength   float64

	GlobalStrength  float64
	GlobalShape     GlobalShape
	GlobalFrequency float64

	noise *perlin.Perlin
}

// NewPotential builds a potential. seed only matters for the perlin shape.
func NewPotential(k, d, g float64, shape GlobalShape, freq float64, seed int64) *Potential {
	p := &Potential{
		PairStrength:    k,
		PairLength:      d,
		GlobalStrength:  g,
		GlobalShape:     shape,
		GlobalFrequency: freq,
	}
	if shape == GlobalPerlin {
		p.noise = perlin.NewPerlin(2, 2, 3, seed)
	}
	return p
}

// Pairwise is the interaction energy at distance r between particles in
// phases a and b. Infected pairs attract, a mixed pair where exactly one
// side is infected repels, and everything else falls back to the
// attractive form.
func (p *Potential) Pairwise(r float64, a, b particle.Health) float64 {
	if (a.Phase == particle.PhaseInfected) != (b.Phase == particle.PhaseInfected) {
		return p.Repulsive(r)
	}
	return p.Attractive(r)
}

// Attractive is the Lennard-Jones-like form k((d/r)^12 - (d/r)^6).
func (p *Potential) Attractive(r float64) float64 {
	s := p.PairLength / r
	s2 := s * s
	s6 := s2 * s2 * s2
	return p.PairStrength * (s6*s6 - s6)
}

// Repulsive is k(d/r)^2.
func (p *Potential) Repulsive(r float64) float64 {
	s := p.PairLength / r
	return p.PairStrength * s * s
}

// Global is the external potential at x.
func (p *Potential) Global(x r2.Vec) float64 {
	if p.GlobalStrength == 0 {
		return 0
	}
	f := p.GlobalFrequency
	switch p.GlobalShape {
	case GlobalCosine:
		return p.GlobalStrength * (math.Cos(f*x.X) + math.Cos(f*x.Y))
	case GlobalPerlin:
		if p.noise == nil {
			return 0
		}
		return 2 * p.GlobalStrength * p.noise.Noise2D(f*x.X, f*x.Y)
	default:
		return 0
	}
}
