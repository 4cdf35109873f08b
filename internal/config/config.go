package config

import (
	"errors"
	"fmt"
	"math"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/san-kum/dotsim/internal/clock"
)

const (
	DefaultParticles     = 1000
	DefaultRadius        = 0.02
	DefaultDomainSize    = 5.0
	DefaultCadence       = 0.3
	DefaultPhysicsDt     = 1.0 / 60
	DefaultCommit        = 0.2
	DefaultIncubation    = 5.0
	DefaultInfectious    = 10.0
	DefaultFatality      = 0.5
	DefaultStepScale     = 0.10
	DefaultGlobal        = 3.0
	DefaultPairStrength  = 3.0
	DefaultPairLength    = 0.04
	DefaultDuration      = 60.0
	DefaultSeed          = 1
	interactionPerRadius = 3
)

const (
	ModeStochastic    = "stochastic"
	ModeDeterministic = "deterministic"
)

type Config struct {
	Mode     string  `yaml:"mode"`
	Seed     uint64  `yaml:"seed"`
	Duration float64 `yaml:"duration"`

	ParticleCount     int     `yaml:"particle_count"`
	ParticleRadius    float64 `yaml:"particle_radius"`
	InteractionRadius float64 `yaml:"interaction_radius"`
	Distribution      string  `yaml:"distribution"`
	VelocityScale     float64 `yaml:"velocity_scale"`
	InitialInfected   int     `yaml:"initial_infected"`
	AnchoredFraction  float64 `yaml:"anchored_fraction"`

	DomainShape string  `yaml:"domain_shape"`
	DomainSize  float64 `yaml:"domain_size"`
	Boundary    string  `yaml:"boundary"`

	StepCadenceSeconds float64 `yaml:"step_cadence_seconds"`
	PhysicsDt          float64 `yaml:"physics_dt"`
	CommitDuration     float64 `yaml:"commit_duration"`

	Epidemic            bool    `yaml:"epidemic"`
	DeadCollide         bool    `yaml:"dead_collide"`
	IncubationDuration  float64 `yaml:"incubation_duration"`
	InfectiousDuration  float64 `yaml:"infectious_duration"`
	FatalityProbability float64 `yaml:"fatality_probability"`

	MonteCarloStepScale     float64         `yaml:"monte_carlo_step_scale"`
	GlobalPotentialStrength float64         `yaml:"global_potential_strength"`
	Potential               PotentialConfig `yaml:"potential"`

	Palette PaletteConfig `yaml:"palette"`
}

type PotentialConfig struct {
	PairStrength    float64 `yaml:"pair_strength"`
	PairLength      float64 `yaml:"pair_length"`
	GlobalShape     string  `yaml:"global_shape"`
	GlobalFrequency float64 `yaml:"global_frequency"`
}

// PaletteConfig holds hex colours per health phase.
type PaletteConfig struct {
	Susceptible  string `yaml:"susceptible"`
	Asymptomatic string `yaml:"asymptomatic"`
	Infected     string `yaml:"infected"`
	Recovered    string `yaml:"recovered"`
	Dead         string `yaml:"dead"`
	Anchored     string `yaml:"anchored"`
}

func DefaultPalette() PaletteConfig {
	return PaletteConfig{
		Susceptible:  "#ffffff",
		Asymptomatic: "#ffffff",
		Infected:     "#ff3030",
		Recovered:    "#30ff60",
		Dead:         "#ff00ff",
		Anchored:     "#808080",
	}
}

// DefaultConfig reproduces the stochastic outbreak: a thousand dots in a
// disk of radius 5 with one asymptomatic carrier.
func DefaultConfig() *Config {
	return &Config{
		Mode:     ModeStochastic,
		Seed:     DefaultSeed,
		Duration: DefaultDuration,

		ParticleCount:     DefaultParticles,
		ParticleRadius:    DefaultRadius,
		InteractionRadius: interactionPerRadius * DefaultRadius,
		Distribution:      "disk",
		InitialInfected:   1,

		DomainShape: "disk",
		DomainSize:  DefaultDomainSize,
		Boundary:    "reflecting",

		StepCadenceSeconds: DefaultCadence,
		PhysicsDt:          DefaultPhysicsDt,
		CommitDuration:     DefaultCommit,

		Epidemic:            true,
		DeadCollide:         true,
		IncubationDuration:  DefaultIncubation,
		InfectiousDuration:  DefaultInfectious,
		FatalityProbability: DefaultFatality,

		MonteCarloStepScale:     DefaultStepScale,
		GlobalPotentialStrength: DefaultGlobal,
		Potential: PotentialConfig{
			PairStrength:    DefaultPairStrength,
			PairLength:      DefaultPairLength,
			GlobalShape:     "cosine",
			GlobalFrequency: math.Pi,
		},
		Palette: DefaultPalette(),
	}
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return cfg, nil
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// Clone returns a deep copy; Config holds no reference fields.
func (c *Config) Clone() *Config {
	cp := *c
	return &cp
}

func (c *Config) Incubation() time.Duration  { return clock.Seconds(c.IncubationDuration) }
func (c *Config) Infectious() time.Duration  { return clock.Seconds(c.InfectiousDuration) }
func (c *Config) Cadence() time.Duration     { return clock.Seconds(c.StepCadenceSeconds) }
func (c *Config) PhysicsStep() time.Duration { return clock.Seconds(c.PhysicsDt) }
func (c *Config) Commit() time.Duration      { return clock.Seconds(c.CommitDuration) }

// Validate reports every problem at once.
func (c *Config) Validate() error {
	var errs []error
	check := func(ok bool, format string, args ...any) {
		if !ok {
			errs = append(errs, fmt.Errorf(format, args...))
		}
	}

	check(c.Mode == ModeStochastic || c.Mode == ModeDeterministic,
		"mode must be %q or %q, got %q", ModeStochastic, ModeDeterministic, c.Mode)
	check(c.ParticleCount > 0, "particle_count must be positive, got %d", c.ParticleCount)
	check(c.ParticleRadius > 0, "particle_radius must be positive, got %g", c.ParticleRadius)
	check(c.InteractionRadius > 0, "interaction_radius must be positive, got %g", c.InteractionRadius)
	check(c.DomainShape == "disk" || c.DomainShape == "square",
		"domain_shape must be disk or square, got %q", c.DomainShape)
	check(c.DomainSize > 0, "domain_size must be positive, got %g", c.DomainSize)
	check(c.Boundary == "periodic" || c.Boundary == "reflecting",
		"boundary must be periodic or reflecting, got %q", c.Boundary)
	check(c.Boundary != "periodic" || c.DomainShape == "square",
		"periodic boundary needs a square domain")
	check(c.Distribution == "disk" || c.Distribution == "square" || c.Distribution == "normal",
		"distribution must be disk, square or normal, got %q", c.Distribution)
	check(c.StepCadenceSeconds > 0, "step_cadence_seconds must be positive, got %g", c.StepCadenceSeconds)
	check(c.PhysicsDt > 0, "physics_dt must be positive, got %g", c.PhysicsDt)
	check(c.CommitDuration >= 0, "commit_duration must not be negative, got %g", c.CommitDuration)
	check(c.IncubationDuration >= 0, "incubation_duration must not be negative, got %g", c.IncubationDuration)
	check(c.InfectiousDuration >= 0, "infectious_duration must not be negative, got %g", c.InfectiousDuration)
	check(c.FatalityProbability >= 0 && c.FatalityProbability <= 1,
		"fatality_probability must be in [0, 1], got %g", c.FatalityProbability)
	check(c.AnchoredFraction >= 0 && c.AnchoredFraction <= 1,
		"anchored_fraction must be in [0, 1], got %g", c.AnchoredFraction)
	check(c.InitialInfected >= 0, "initial_infected must not be negative, got %d", c.InitialInfected)
	check(c.VelocityScale >= 0, "velocity_scale must not be negative, got %g", c.VelocityScale)
	check(c.Duration >= 0, "duration must not be negative, got %g", c.Duration)

	if c.Mode == ModeStochastic {
		// The relaxer never wraps, so a torus would only exist for the epidemic.
		check(c.Boundary != "periodic", "periodic boundary requires deterministic mode")
		check(c.MonteCarloStepScale > 0, "monte_carlo_step_scale must be positive, got %g", c.MonteCarloStepScale)
		check(c.Potential.PairLength > 0, "potential.pair_length must be positive, got %g", c.Potential.PairLength)
		s := c.Potential.GlobalShape
		check(s == "cosine" || s == "perlin" || s == "none",
			"potential.global_shape must be cosine, perlin or none, got %q", s)
	}
	return errors.Join(errs...)
}
