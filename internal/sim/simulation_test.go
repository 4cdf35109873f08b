package sim

import (
	"context"
	"errors"
	"io"
	"log/slog"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"gonum.org/v1/gonum/spatial/r2"

	"github.com/san-kum/dotsim/internal/config"
	"github.com/san-kum/dotsim/internal/particle"
)

var quiet = slog.New(slog.NewTextHandler(io.Discard, nil))

func smallOutbreak() *config.Config {
	cfg := config.DefaultConfig()
	cfg.ParticleCount = 150
	cfg.DomainSize = 0.6
	cfg.StepCadenceSeconds = 0.25
	cfg.IncubationDuration = 1
	cfg.InfectiousDuration = 2
	cfg.InitialInfected = 5
	return cfg
}

func gas() *config.Config {
	cfg, err := config.GetPreset("gas")
	Expect(err).NotTo(HaveOccurred())
	cfg.ParticleCount = 120
	cfg.DomainSize = 2
	cfg.PhysicsDt = 0.0078125
	return cfg
}

func momentum(s *particle.Store) r2.Vec {
	var p r2.Vec
	for _, q := range s.All() {
		p = r2.Add(p, q.Velocity)
	}
	return p
}

func kinetic(s *particle.Store) float64 {
	e := 0.0
	for _, q := range s.All() {
		e += 0.5 * r2.Norm2(q.Velocity)
	}
	return e
}

var _ = Describe("Simulation", func() {
	Describe("New", func() {
		It("rejects a non-positive particle count as invalid config", func() {
			cfg := config.DefaultConfig()
			cfg.ParticleCount = 0
			_, err := New(cfg, WithLogger(quiet))
			Expect(errors.Is(err, ErrInvalidConfig)).To(BeTrue())
			Expect(err.Error()).To(ContainSubstring("particle_count"))
		})

		It("rejects an unparsable palette", func() {
			cfg := config.DefaultConfig()
			cfg.Palette.Infected = "not-a-colour"
			_, err := New(cfg, WithLogger(quiet))
			Expect(err).To(MatchError(ErrInvalidConfig))
		})

		It("rejects a nil config", func() {
			_, err := New(nil)
			Expect(err).To(MatchError(ErrInvalidConfig))
		})

		It("does not alias the caller's config", func() {
			cfg := smallOutbreak()
			s, err := New(cfg, WithLogger(quiet))
			Expect(err).NotTo(HaveOccurred())
			cfg.ParticleCount = 1
			Expect(s.Config().ParticleCount).To(Equal(150))
		})
	})

	Describe("scheduling", func() {
		It("runs epochs at the configured cadence regardless of frame size", func() {
			s, err := New(smallOutbreak(), WithLogger(quiet))
			Expect(err).NotTo(HaveOccurred())

			s.Advance(0.125)
			Expect(s.Stats().Epochs).To(Equal(0))
			s.Advance(0.125)
			Expect(s.Stats().Epochs).To(Equal(1))
			s.Advance(1)
			Expect(s.Stats().Epochs).To(Equal(5))
		})

		It("interleaves ticks and epochs in time order within one Advance", func() {
			cfg, err := config.GetPreset("billiards")
			Expect(err).NotTo(HaveOccurred())
			cfg.StepCadenceSeconds = 0.5
			cfg.PhysicsDt = 0.0625

			var s *Simulation
			var ticksAtEpoch []int
			s, err = New(cfg, WithLogger(quiet), WithObserver(ObserverFunc(func(r EpochReport) {
				ticksAtEpoch = append(ticksAtEpoch, s.Stats().Ticks)
			})))
			Expect(err).NotTo(HaveOccurred())

			s.Advance(4)
			Expect(ticksAtEpoch).To(Equal([]int{8, 16, 24, 32, 40, 48, 56, 64}))
		})

		It("gives the same deterministic outcome for any frame size", func() {
			cfg, err := config.GetPreset("billiards")
			Expect(err).NotTo(HaveOccurred())
			cfg.ParticleCount = 200
			cfg.StepCadenceSeconds = 0.5
			cfg.PhysicsDt = 0.0625

			fine, err := New(cfg, WithLogger(quiet))
			Expect(err).NotTo(HaveOccurred())
			for range 32 {
				fine.Advance(0.125)
			}
			coarse, err := New(cfg, WithLogger(quiet))
			Expect(err).NotTo(HaveOccurred())
			coarse.Advance(4)

			Expect(coarse.Stats().Epochs).To(Equal(fine.Stats().Epochs))
			Expect(coarse.Stats().Ticks).To(Equal(fine.Stats().Ticks))
			for i := 0; i < cfg.ParticleCount; i++ {
				Expect(coarse.Store().At(i).Health).To(Equal(fine.Store().At(i).Health), "particle %d", i)
				Expect(coarse.Store().At(i).Target).To(Equal(fine.Store().At(i).Target), "particle %d", i)
			}
		})

		It("reports every epoch to observers", func() {
			var seen []int
			s, err := New(smallOutbreak(), WithLogger(quiet), WithObserver(ObserverFunc(func(r EpochReport) {
				seen = append(seen, r.Epoch)
				Expect(r.Counts.Total()).To(Equal(150))
			})))
			Expect(err).NotTo(HaveOccurred())

			Expect(s.Run(context.Background(), 2, 0.125)).To(Succeed())
			Expect(seen).To(HaveLen(s.Stats().Epochs))
			Expect(seen).To(HaveLen(8))
			for i, e := range seen {
				Expect(e).To(Equal(i + 1))
			}
		})

		It("runs physics ticks only in deterministic mode", func() {
			st, err := New(smallOutbreak(), WithLogger(quiet))
			Expect(err).NotTo(HaveOccurred())
			st.Advance(1)
			Expect(st.Stats().Ticks).To(Equal(0))

			dt, err := New(gas(), WithLogger(quiet))
			Expect(err).NotTo(HaveOccurred())
			dt.Advance(1)
			Expect(dt.Stats().Ticks).To(Equal(128))
		})
	})

	Describe("determinism", func() {
		It("replays the same trajectory for the same seed", func() {
			run := func(seed uint64) []DrawCommand {
				cfg := smallOutbreak()
				cfg.Seed = seed
				s, err := New(cfg, WithLogger(quiet))
				Expect(err).NotTo(HaveOccurred())
				Expect(s.Run(context.Background(), 3, 0.05)).To(Succeed())
				return s.RenderState()
			}
			Expect(run(7)).To(Equal(run(7)))
			Expect(run(7)).NotTo(Equal(run(8)))
		})
	})

	Describe("RenderState", func() {
		It("is read-only and colours by phase", func() {
			s, err := New(smallOutbreak(), WithLogger(quiet))
			Expect(err).NotTo(HaveOccurred())
			s.Advance(0.1)

			before := append([]particle.Particle(nil), s.Store().All()...)
			a := s.RenderState()
			b := s.RenderState()
			Expect(a).To(Equal(b))
			Expect(s.Store().All()).To(Equal(before))

			Expect(a).To(HaveLen(150))
			Expect(a[0].Phase).To(Equal(particle.PhaseAsymptomatic))
			Expect(a[0].Color.Hex()).To(Equal("#ffffff"))
		})
	})

	Describe("stochastic outbreak", func() {
		It("keeps the population and resolves infections", func() {
			s, err := New(smallOutbreak(), WithLogger(quiet))
			Expect(err).NotTo(HaveOccurred())
			Expect(s.Run(context.Background(), 20, 0.1)).To(Succeed())

			st := s.Stats()
			Expect(st.Counts.Total()).To(Equal(150))
			Expect(st.Counts.Recovered + st.Counts.Dead).To(BeNumerically(">", 0))
			Expect(st.LastPass.Proposed).To(BeNumerically(">", 0))
		})

		It("accepts every move of a lone particle on a flat landscape", func() {
			cfg, err := config.GetPreset("calm")
			Expect(err).NotTo(HaveOccurred())
			cfg.ParticleCount = 1
			cfg.Epidemic = false

			var passes int
			s, err := New(cfg, WithLogger(quiet), WithObserver(ObserverFunc(func(r EpochReport) {
				passes++
				Expect(r.Pass.Accepted).To(Equal(r.Pass.Proposed))
				Expect(r.Pass.Proposed).To(Equal(1))
			})))
			Expect(err).NotTo(HaveOccurred())
			Expect(s.Run(context.Background(), 30, 0.5)).To(Succeed())
			Expect(passes).To(Equal(100))
		})
	})

	Describe("deterministic gas", func() {
		It("conserves momentum and kinetic energy on a periodic box", func() {
			s, err := New(gas(), WithLogger(quiet))
			Expect(err).NotTo(HaveOccurred())
			p0, e0 := momentum(s.Store()), kinetic(s.Store())

			Expect(s.Run(context.Background(), 5, 1.0/30)).To(Succeed())
			p1, e1 := momentum(s.Store()), kinetic(s.Store())

			Expect(p1.X).To(BeNumerically("~", p0.X, 1e-9))
			Expect(p1.Y).To(BeNumerically("~", p0.Y, 1e-9))
			Expect(e1).To(BeNumerically("~", e0, 1e-9))
			Expect(s.Stats().Collisions.Contacts).To(BeNumerically(">", 0))
		})

		It("keeps anchored particles in place", func() {
			cfg := gas()
			s, err := New(cfg, WithLogger(quiet))
			Expect(err).NotTo(HaveOccurred())
			Expect(s.SetAnchored(3, true)).To(Succeed())
			s.Store().At(3).Velocity = r2.Vec{X: 1}
			pos := s.Store().At(3).Target

			s.Advance(2)
			Expect(s.Store().At(3).Target).To(Equal(pos))
		})

		It("rejects anchoring an unknown particle", func() {
			s, err := New(gas(), WithLogger(quiet))
			Expect(err).NotTo(HaveOccurred())
			Expect(s.SetAnchored(-1, true)).To(MatchError(ErrIndexOutOfRange))
			Expect(s.SetAnchored(120, true)).To(MatchError(ErrIndexOutOfRange))
		})
	})

	Describe("Run", func() {
		It("stops on a cancelled context with a run error", func() {
			s, err := New(smallOutbreak(), WithLogger(quiet))
			Expect(err).NotTo(HaveOccurred())
			ctx, cancel := context.WithCancel(context.Background())
			cancel()

			err = s.Run(ctx, 10, 0.1)
			Expect(errors.Is(err, context.Canceled)).To(BeTrue())
			var re *RunError
			Expect(errors.As(err, &re)).To(BeTrue())
			Expect(re.Epoch).To(Equal(0))
		})

		It("counts the same epochs for 60 fps frames as for coarse frames", func() {
			cfg := smallOutbreak()
			cfg.StepCadenceSeconds = 0.3

			fine, err := New(cfg, WithLogger(quiet))
			Expect(err).NotTo(HaveOccurred())
			Expect(fine.Run(context.Background(), 12, 1.0/60)).To(Succeed())

			coarse, err := New(cfg, WithLogger(quiet))
			Expect(err).NotTo(HaveOccurred())
			Expect(coarse.Run(context.Background(), 12, 3)).To(Succeed())

			Expect(coarse.Stats().Epochs).To(Equal(40))
			Expect(fine.Stats().Epochs).To(Equal(40))
		})

		It("rejects a non-positive frame step", func() {
			s, err := New(smallOutbreak(), WithLogger(quiet))
			Expect(err).NotTo(HaveOccurred())
			Expect(s.Run(context.Background(), 1, 0)).NotTo(Succeed())
		})
	})
})
