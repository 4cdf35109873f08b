package experiment

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/san-kum/dotsim/internal/config"
)

var ErrUnknownParam = errors.New("experiment: unknown parameter")

// Param is a scalar configuration knob that sweeps can vary.
type Param struct {
	Name        string
	Description string
	get         func(*config.Config) float64
	set         func(*config.Config, float64)
}

var params = map[string]Param{}

func register(name, desc string, get func(*config.Config) float64, set func(*config.Config, float64)) {
	params[name] = Param{Name: name, Description: desc, get: get, set: set}
}

func init() {
	register("fatality_probability", "chance an infection ends in death",
		func(c *config.Config) float64 { return c.FatalityProbability },
		func(c *config.Config, v float64) { c.FatalityProbability = v })
	register("incubation_duration", "seconds from exposure to symptoms",
		func(c *config.Config) float64 { return c.IncubationDuration },
		func(c *config.Config, v float64) { c.IncubationDuration = v })
	register("infectious_duration", "seconds from symptoms to outcome",
		func(c *config.Config) float64 { return c.InfectiousDuration },
		func(c *config.Config, v float64) { c.InfectiousDuration = v })
	register("interaction_radius", "transmission distance",
		func(c *config.Config) float64 { return c.InteractionRadius },
		func(c *config.Config, v float64) { c.InteractionRadius = v })
	register("monte_carlo_step_scale", "Cauchy scale of relaxation moves",
		func(c *config.Config) float64 { return c.MonteCarloStepScale },
		func(c *config.Config, v float64) { c.MonteCarloStepScale = v })
	register("global_potential_strength", "amplitude of the external landscape",
		func(c *config.Config) float64 { return c.GlobalPotentialStrength },
		func(c *config.Config, v float64) { c.GlobalPotentialStrength = v })
	register("pair_strength", "pair potential strength k",
		func(c *config.Config) float64 { return c.Potential.PairStrength },
		func(c *config.Config, v float64) { c.Potential.PairStrength = v })
	register("pair_length", "pair potential length d",
		func(c *config.Config) float64 { return c.Potential.PairLength },
		func(c *config.Config, v float64) { c.Potential.PairLength = v })
	register("particle_count", "population size",
		func(c *config.Config) float64 { return float64(c.ParticleCount) },
		func(c *config.Config, v float64) { c.ParticleCount = int(math.Round(v)) })
	register("velocity_scale", "initial speed in deterministic mode",
		func(c *config.Config) float64 { return c.VelocityScale },
		func(c *config.Config, v float64) { c.VelocityScale = v })
	register("anchored_fraction", "share of pinned particles",
		func(c *config.Config) float64 { return c.AnchoredFraction },
		func(c *config.Config, v float64) { c.AnchoredFraction = v })
	register("step_cadence_seconds", "seconds between epochs",
		func(c *config.Config) float64 { return c.StepCadenceSeconds },
		func(c *config.Config, v float64) { c.StepCadenceSeconds = v })
}

func SetParam(cfg *config.Config, name string, v float64) error {
	p, ok := params[name]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownParam, name)
	}
	p.set(cfg, v)
	return nil
}

// GetParam reads the current value of a registered parameter.
func GetParam(cfg *config.Config, name string) (float64, error) {
	p, ok := params[name]
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrUnknownParam, name)
	}
	return p.get(cfg), nil
}

func ListParams() []Param {
	out := make([]Param, 0, len(params))
	for _, p := range params {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
