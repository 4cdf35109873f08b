// Package sim drives the particle engine: it owns the store, schedules the
// physics ticks and the coarse relaxation/epidemic epochs, and exposes the
// interpolated draw list to whatever renders it.
package sim

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"math/rand/v2"
	"time"

	"gonum.org/v1/gonum/spatial/r2"

	"github.com/san-kum/dotsim/internal/clock"
	"github.com/san-kum/dotsim/internal/collision"
	"github.com/san-kum/dotsim/internal/config"
	"github.com/san-kum/dotsim/internal/epidemic"
	"github.com/san-kum/dotsim/internal/montecarlo"
	"github.com/san-kum/dotsim/internal/particle"
	"github.com/san-kum/dotsim/internal/spatial"
)

// maxCatchUp bounds the ticks replayed in one Advance on a wall clock, so a
// stalled window does not freeze the next frame.
const maxCatchUp = 240

// DrawCommand is one particle as the renderer should draw it.
type DrawCommand struct {
	Position r2.Vec
	Radius   float64
	Color    Color
	Phase    particle.Phase
	Anchored bool
}

// EpochReport is passed to observers after every epoch. Store is read-only
// for observers.
type EpochReport struct {
	Epoch       int
	Time        time.Time
	Elapsed     time.Duration
	Counts      particle.Counts
	Pass        montecarlo.PassStats
	Transitions epidemic.Transitions
	Collisions  collision.StepStats
	Store       *particle.Store
}

type Observer interface {
	OnEpoch(r EpochReport)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(EpochReport)

func (f ObserverFunc) OnEpoch(r EpochReport) { f(r) }

// Stats is a snapshot of the run so far.
type Stats struct {
	Elapsed     time.Duration
	Epochs      int
	Ticks       int
	Counts      particle.Counts
	LastPass    montecarlo.PassStats
	Transitions epidemic.Transitions
	Collisions  collision.StepStats
}

type Option func(*Simulation)

func WithClock(c clock.Clock) Option {
	return func(s *Simulation) { s.clk = c }
}

func WithLogger(l *slog.Logger) Option {
	return func(s *Simulation) { s.log = l }
}

func WithObserver(o Observer) Option {
	return func(s *Simulation) { s.observers = append(s.observers, o) }
}

// Simulation is single-threaded; callers must not use it from more than one
// goroutine at a time.
type Simulation struct {
	cfg       *config.Config
	clk       clock.Clock
	log       *slog.Logger
	rng       *rand.Rand
	observers []Observer

	store    *particle.Store
	domain   spatial.Domain
	palette  Palette
	collider *collision.Resolver
	relaxer  *montecarlo.Relaxer
	disease  *epidemic.Machine

	start     time.Time
	nextTick  time.Time
	nextEpoch time.Time
	tickAt    time.Time
	tickDt    time.Duration
	cadence   time.Duration

	epochs      int
	ticks       int
	lastPass    montecarlo.PassStats
	transitions epidemic.Transitions
	collisions  collision.StepStats

	sawDeath  bool
	sawActive bool
	sawEnd    bool
}

// New validates cfg and seeds the population. Configuration problems are
// returned wrapped in ErrInvalidConfig.
func New(cfg *config.Config, opts ...Option) (*Simulation, error) {
	if cfg == nil {
		return nil, fmt.Errorf("%w: nil config", ErrInvalidConfig)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	palette, err := NewPalette(cfg.Palette)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}

	s := &Simulation{
		cfg:     cfg.Clone(),
		palette: palette,
		tickDt:  cfg.PhysicsStep(),
		cadence: cfg.Cadence(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.clk == nil {
		s.clk = clock.NewManual(time.Time{})
	}
	if s.log == nil {
		s.log = slog.Default()
	}
	s.rng = rand.New(rand.NewPCG(cfg.Seed, cfg.Seed^0x5eed))

	s.domain = spatial.Domain{Shape: spatial.Shape(cfg.DomainShape), Size: cfg.DomainSize}
	s.start = s.clk.Now()
	s.nextTick = s.start.Add(s.tickDt)
	s.nextEpoch = s.start.Add(s.cadence)
	s.tickAt = s.start

	s.store = particle.NewStore(particle.Seed(particle.Layout{
		Count:            cfg.ParticleCount,
		Radius:           cfg.ParticleRadius,
		Distribution:     particle.Distribution(cfg.Distribution),
		DomainSize:       seedSize(cfg),
		VelocityScale:    cfg.VelocityScale,
		InitialInfected:  cfg.InitialInfected,
		Incubation:       cfg.Incubation(),
		AnchoredFraction: cfg.AnchoredFraction,
	}, s.rng, s.start))

	if cfg.Epidemic {
		s.disease = epidemic.NewMachine(epidemic.Params{
			InteractionRadius:   cfg.InteractionRadius,
			Incubation:          cfg.Incubation(),
			Infectious:          cfg.Infectious(),
			FatalityProbability: cfg.FatalityProbability,
			Periodic:            cfg.Boundary == string(collision.BoundaryPeriodic),
			Extent:              s.domain.Extent(),
		}, s.rng)
	}

	switch cfg.Mode {
	case config.ModeDeterministic:
		s.collider = collision.NewResolver(s.domain, collision.Boundary(cfg.Boundary))
		s.collider.DeadCollide = cfg.DeadCollide
		if s.disease != nil {
			s.collider.OnContact = func(st *particle.Store, pairs [][2]int) {
				s.transitions.Exposed += s.disease.Contacts(st, pairs, s.tickAt)
			}
		}
	default:
		pot := montecarlo.NewPotential(
			cfg.Potential.PairStrength,
			cfg.Potential.PairLength,
			cfg.GlobalPotentialStrength,
			montecarlo.GlobalShape(cfg.Potential.GlobalShape),
			cfg.Potential.GlobalFrequency,
			int64(cfg.Seed),
		)
		s.relaxer = montecarlo.NewRelaxer(s.domain, pot, cfg.MonteCarloStepScale, cfg.Commit(), s.rng)
	}

	s.log.Info("simulation ready",
		"mode", cfg.Mode,
		"particles", cfg.ParticleCount,
		"domain", cfg.DomainShape,
		"seed", cfg.Seed,
		"epidemic", cfg.Epidemic,
	)
	return s, nil
}

// seedSize converts the domain size into the extent the initial
// distribution is drawn over, keeping every seed inside the domain.
func seedSize(cfg *config.Config) float64 {
	if cfg.Distribution == string(particle.DistDisk) && cfg.DomainShape == string(spatial.ShapeSquare) {
		return cfg.DomainSize / 2
	}
	return cfg.DomainSize
}

// Advance moves time forward by dt seconds and runs every physics tick and
// epoch that became due, in time order. A tick due at the same instant as an
// epoch runs first. With a wall clock dt is ignored and the clock is read
// instead.
func (s *Simulation) Advance(dt float64) {
	if m, ok := s.clk.(interface{ Advance(time.Duration) }); ok {
		m.Advance(clock.Seconds(dt))
	}
	now := s.clk.Now()
	_, manual := s.clk.(*clock.Manual)

	ticks, epochs := 0, 0
	for {
		tickDue := s.collider != nil && !now.Before(s.nextTick)
		epochDue := !now.Before(s.nextEpoch)
		switch {
		case tickDue && (!epochDue || !s.nextEpoch.Before(s.nextTick)):
			if !manual && ticks == maxCatchUp {
				s.log.Debug("dropping physics backlog", "behind", now.Sub(s.nextTick))
				s.nextTick = now.Add(s.tickDt)
				continue
			}
			s.tick(s.nextTick)
			s.nextTick = s.nextTick.Add(s.tickDt)
			ticks++
		case epochDue:
			if !manual && epochs == maxCatchUp {
				s.nextEpoch = now.Add(s.cadence)
				continue
			}
			s.epoch(s.nextEpoch)
			s.nextEpoch = s.nextEpoch.Add(s.cadence)
			epochs++
		default:
			return
		}
	}
}

func (s *Simulation) tick(at time.Time) {
	s.tickAt = at
	st := s.collider.Step(s.store, at, s.tickDt)
	s.collisions.Moved += st.Moved
	s.collisions.Wrapped += st.Wrapped
	s.collisions.Bounced += st.Bounced
	s.collisions.Contacts += st.Contacts
	s.ticks++
}

func (s *Simulation) epoch(at time.Time) {
	var rep EpochReport
	if s.relaxer != nil {
		s.lastPass = s.relaxer.Pass(s.store, at)
		rep.Pass = s.lastPass
	}
	if s.disease != nil {
		tr := s.disease.Step(s.store, at)
		s.transitions.Exposed += tr.Exposed
		s.transitions.Onset += tr.Onset
		s.transitions.Recovered += tr.Recovered
		s.transitions.Died += tr.Died
		rep.Transitions = tr
	}
	s.epochs++

	rep.Epoch = s.epochs
	rep.Time = at
	rep.Elapsed = at.Sub(s.start)
	rep.Counts = s.store.CountByPhase()
	rep.Collisions = s.collisions
	rep.Store = s.store

	s.log.Debug("epoch",
		"epoch", rep.Epoch,
		"elapsed", rep.Elapsed,
		"infected", rep.Counts.Infected,
		"dead", rep.Counts.Dead,
		"accepted", rep.Pass.Accepted,
	)
	s.milestones(rep)

	for _, o := range s.observers {
		o.OnEpoch(rep)
	}
}

func (s *Simulation) milestones(rep EpochReport) {
	if rep.Counts.Dead > 0 && !s.sawDeath {
		s.sawDeath = true
		s.log.Info("first death", "elapsed", rep.Elapsed, "epoch", rep.Epoch)
	}
	active := rep.Counts.Active()
	if active > 0 {
		s.sawActive = true
	}
	if s.sawActive && active == 0 && !s.sawEnd {
		s.sawEnd = true
		s.log.Info("outbreak over",
			"elapsed", rep.Elapsed,
			"recovered", rep.Counts.Recovered,
			"dead", rep.Counts.Dead,
		)
	}
}

// RenderState returns the interpolated draw list at the current clock time.
// It never mutates the simulation.
func (s *Simulation) RenderState() []DrawCommand {
	return s.AppendRenderState(nil)
}

// AppendRenderState is RenderState appending into dst for reuse across frames.
func (s *Simulation) AppendRenderState(dst []DrawCommand) []DrawCommand {
	now := s.clk.Now()
	dst = dst[:0]
	for i := 0; i < s.store.Len(); i++ {
		p := s.store.At(i)
		dst = append(dst, DrawCommand{
			Position: p.Position(now),
			Radius:   p.Radius,
			Color:    s.palette.For(p.Health, p.Anchored),
			Phase:    p.Health.Phase,
			Anchored: p.Anchored,
		})
	}
	return dst
}

func (s *Simulation) Stats() Stats {
	return Stats{
		Elapsed:     s.clk.Now().Sub(s.start),
		Epochs:      s.epochs,
		Ticks:       s.ticks,
		Counts:      s.store.CountByPhase(),
		LastPass:    s.lastPass,
		Transitions: s.transitions,
		Collisions:  s.collisions,
	}
}

// Run advances in frameDt steps until duration seconds have elapsed or ctx
// is done.
func (s *Simulation) Run(ctx context.Context, duration, frameDt float64) error {
	if frameDt <= 0 || math.IsNaN(frameDt) {
		return fmt.Errorf("frame dt must be positive, got %g", frameDt)
	}
	frames := int(math.Ceil(duration/frameDt - 1e-9))
	for i := 0; i < frames; i++ {
		if err := ctx.Err(); err != nil {
			return &RunError{Epoch: s.epochs, Elapsed: s.clk.Now().Sub(s.start), Wrapped: err}
		}
		s.Advance(frameDt)
	}
	return nil
}

// SetAnchored pins or releases particle i.
func (s *Simulation) SetAnchored(i int, anchored bool) error {
	if i < 0 || i >= s.store.Len() {
		return fmt.Errorf("%w: %d", ErrIndexOutOfRange, i)
	}
	s.store.At(i).Anchored = anchored
	return nil
}

// Store exposes the particles to collaborators such as metrics and export.
func (s *Simulation) Store() *particle.Store { return s.store }

func (s *Simulation) Config() *config.Config { return s.cfg }

func (s *Simulation) Domain() spatial.Domain { return s.domain }

func (s *Simulation) Palette() Palette { return s.palette }

// Rand is the simulation's random source, for collaborators that must stay
// on the same replayable stream.
func (s *Simulation) Rand() *rand.Rand { return s.rng }

func (s *Simulation) Now() time.Time { return s.clk.Now() }
