package config

import (
	"errors"
	"fmt"
	"sort"
)

var ErrUnknownPreset = errors.New("config: unknown preset")

type Preset struct {
	Description string
	Apply       func(*Config)
}

var Presets = map[string]Preset{
	"outbreak": {
		Description: "stochastic relaxation with one carrier in a disk (the defaults)",
		Apply:       func(*Config) {},
	},
	"gas": {
		Description: "elastic hard-disk gas in a periodic box, no epidemic",
		Apply: func(c *Config) {
			c.Mode = ModeDeterministic
			c.DomainShape, c.DomainSize, c.Boundary = "square", 4, "periodic"
			c.Distribution, c.VelocityScale = "square", 0.5
			c.ParticleCount, c.ParticleRadius = 400, 0.03
			c.Epidemic, c.InitialInfected = false, 0
		},
	},
	"billiards": {
		Description: "reflecting box with anchored obstacles spreading infection on contact",
		Apply: func(c *Config) {
			c.Mode = ModeDeterministic
			c.DomainShape, c.DomainSize, c.Boundary = "square", 3, "reflecting"
			c.Distribution, c.VelocityScale = "square", 0.6
			c.ParticleCount, c.ParticleRadius = 300, 0.03
			c.InteractionRadius = 0.09
			c.AnchoredFraction = 0.1
			c.InitialInfected = 3
		},
	},
	"quarantine": {
		Description: "strong mutual repulsion between infected and healthy",
		Apply: func(c *Config) {
			c.Potential.PairStrength = 12
			c.Potential.PairLength = 0.08
			c.GlobalPotentialStrength = 1
			c.FatalityProbability = 0.2
			c.InitialInfected = 5
		},
	},
	"calm": {
		Description: "stochastic relaxation without a global landscape",
		Apply: func(c *Config) {
			c.GlobalPotentialStrength = 0
			c.Potential.GlobalShape = "none"
		},
	},
	"terrain": {
		Description: "perlin-noise landscape instead of the cosine lattice",
		Apply: func(c *Config) {
			c.Potential.GlobalShape = "perlin"
			c.Potential.GlobalFrequency = 0.8
		},
	},
}

// GetPreset returns the defaults with the named preset applied.
func GetPreset(name string) (*Config, error) {
	p, ok := Presets[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownPreset, name)
	}
	cfg := DefaultConfig()
	p.Apply(cfg)
	return cfg, nil
}

func ListPresets() []string {
	names := make([]string, 0, len(Presets))
	for name := range Presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
