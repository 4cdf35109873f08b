package epidemic

import (
	"math/rand/v2"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"gonum.org/v1/gonum/spatial/r2"

	"github.com/san-kum/dotsim/internal/clock"
	"github.com/san-kum/dotsim/internal/collision"
	"github.com/san-kum/dotsim/internal/particle"
	"github.com/san-kum/dotsim/internal/spatial"
)

func defaultParams() Params {
	return Params{
		InteractionRadius:   0.06,
		Incubation:          5 * time.Second,
		Infectious:          10 * time.Second,
		FatalityProbability: 0.5,
		Extent:              10,
	}
}

func storeAt(now time.Time, pos ...r2.Vec) *particle.Store {
	ps := make([]particle.Particle, len(pos))
	for i, p := range pos {
		ps[i] = particle.New(p, 0.02, now)
	}
	return particle.NewStore(ps)
}

var _ = Describe("Machine", func() {
	var (
		clk *clock.Manual
		m   *Machine
	)

	BeforeEach(func() {
		clk = clock.NewManual(time.Time{})
		m = NewMachine(defaultParams(), rand.New(rand.NewPCG(1, 2)))
	})

	Describe("timer rule", func() {
		It("turns an asymptomatic particle infected once the deadline passes", func() {
			s := storeAt(clk.Now(), r2.Vec{})
			s.At(0).Health = particle.Asymptomatic(clk.Now().Add(5 * time.Second))

			clk.Advance(4 * time.Second)
			Expect(m.Step(s, clk.Now()).Onset).To(Equal(0))
			Expect(s.At(0).Health.Phase).To(Equal(particle.PhaseAsymptomatic))

			clk.Advance(time.Second)
			tr := m.Step(s, clk.Now())
			Expect(tr.Onset).To(Equal(1))
			Expect(s.At(0).Health.Phase).To(Equal(particle.PhaseInfected))
			Expect(s.At(0).Health.Deadline).To(Equal(clk.Now().Add(10 * time.Second)))
		})

		It("resolves every infection to a terminal phase", func() {
			s := storeAt(clk.Now(), r2.Vec{}, r2.Vec{X: 1}, r2.Vec{X: 2})
			for i := 0; i < s.Len(); i++ {
				s.At(i).Health = particle.Infected(clk.Now())
			}
			tr := m.Step(s, clk.Now())
			Expect(tr.Recovered + tr.Died).To(Equal(3))
			for i := 0; i < s.Len(); i++ {
				Expect(s.At(i).Health.Terminal()).To(BeTrue())
			}
		})

		It("always kills at fatality 1 and never at fatality 0", func() {
			for _, tc := range []struct {
				p    float64
				want particle.Phase
			}{{1, particle.PhaseDead}, {0, particle.PhaseRecovered}} {
				params := defaultParams()
				params.FatalityProbability = tc.p
				mm := NewMachine(params, rand.New(rand.NewPCG(3, 3)))
				for i := 0; i < 50; i++ {
					h := particle.Infected(clk.Now())
					next, changed := mm.Advance(&h, clk.Now())
					Expect(changed).To(BeTrue())
					Expect(next).To(Equal(tc.want))
				}
			}
		})
	})

	Describe("proximity rule", func() {
		It("exposes a susceptible neighbour within the interaction radius", func() {
			s := storeAt(clk.Now(), r2.Vec{}, r2.Vec{X: 0.05}, r2.Vec{X: 0.5})
			s.At(0).Health = particle.Infected(clk.Now().Add(time.Hour))

			tr := m.Step(s, clk.Now())
			Expect(tr.Exposed).To(Equal(1))
			Expect(s.At(1).Health).To(Equal(particle.Asymptomatic(clk.Now().Add(5 * time.Second))))
			Expect(s.At(2).Health.Phase).To(Equal(particle.PhaseSusceptible))
		})

		It("does not chain through particles exposed in the same epoch", func() {
			s := storeAt(clk.Now(), r2.Vec{}, r2.Vec{X: 0.05}, r2.Vec{X: 0.10})
			s.At(0).Health = particle.Asymptomatic(clk.Now().Add(time.Hour))

			Expect(m.Step(s, clk.Now()).Exposed).To(Equal(1))
			Expect(s.At(2).Health.Phase).To(Equal(particle.PhaseSusceptible))

			clk.Advance(300 * time.Millisecond)
			Expect(m.Step(s, clk.Now()).Exposed).To(Equal(1))
			Expect(s.At(2).Health.Phase).To(Equal(particle.PhaseAsymptomatic))
		})

		It("ignores dead carriers", func() {
			s := storeAt(clk.Now(), r2.Vec{}, r2.Vec{X: 0.01})
			s.At(0).Health = particle.Dead()
			Expect(m.Step(s, clk.Now()).Exposed).To(Equal(0))
			Expect(s.At(1).Health.Phase).To(Equal(particle.PhaseSusceptible))
		})

		It("never re-exposes recovered particles", func() {
			s := storeAt(clk.Now(), r2.Vec{}, r2.Vec{X: 0.01})
			s.At(0).Health = particle.Infected(clk.Now().Add(time.Hour))
			s.At(1).Health = particle.Recovered()
			Expect(m.Step(s, clk.Now()).Exposed).To(Equal(0))
			Expect(s.At(1).Health).To(Equal(particle.Recovered()))
		})

		It("reaches across a periodic seam", func() {
			params := defaultParams()
			params.Periodic = true
			params.Extent = 2
			mm := NewMachine(params, rand.New(rand.NewPCG(1, 1)))

			s := storeAt(clk.Now(), r2.Vec{X: -0.99}, r2.Vec{X: 0.99})
			s.At(1).Health = particle.Infected(clk.Now().Add(time.Hour))
			Expect(mm.Step(s, clk.Now()).Exposed).To(Equal(1))
			Expect(s.At(0).Health.Phase).To(Equal(particle.PhaseAsymptomatic))
		})
	})

	Describe("Contacts", func() {
		It("is idempotent for a pair", func() {
			s := storeAt(clk.Now(), r2.Vec{}, r2.Vec{X: 0.03})
			s.At(0).Health = particle.Infected(clk.Now().Add(time.Hour))
			pairs := [][2]int{{0, 1}}

			Expect(m.Contacts(s, pairs, clk.Now())).To(Equal(1))
			first := s.At(1).Health
			clk.Advance(time.Second)
			Expect(m.Contacts(s, pairs, clk.Now())).To(Equal(0))
			Expect(s.At(1).Health).To(Equal(first))
		})

		It("ignores a particle paired with itself", func() {
			s := storeAt(clk.Now(), r2.Vec{})
			s.At(0).Health = particle.Infected(clk.Now().Add(time.Hour))
			Expect(m.Contacts(s, [][2]int{{0, 0}}, clk.Now())).To(Equal(0))
		})

		It("does not chain through a particle exposed in the same call", func() {
			s := storeAt(clk.Now(), r2.Vec{}, r2.Vec{X: 0.03}, r2.Vec{X: 0.06})
			s.At(0).Health = particle.Asymptomatic(clk.Now().Add(time.Hour))

			Expect(m.Contacts(s, [][2]int{{0, 1}, {1, 2}}, clk.Now())).To(Equal(1))
			Expect(s.At(1).Health.Phase).To(Equal(particle.PhaseAsymptomatic))
			Expect(s.At(2).Health.Phase).To(Equal(particle.PhaseSusceptible))
		})

		DescribeTable("collision coupling is independent of particle order",
			func(carrier int) {
				xs := []float64{0, 0.03, 0.06}
				if carrier == 2 {
					xs = []float64{0.06, 0.03, 0}
				}
				ps := make([]particle.Particle, len(xs))
				for i, x := range xs {
					ps[i] = particle.New(r2.Vec{X: x}, 0.02, clk.Now())
				}
				ps[carrier].Health = particle.Asymptomatic(clk.Now().Add(time.Hour))
				s := particle.NewStore(ps)

				r := collision.NewResolver(spatial.Domain{Shape: spatial.ShapeSquare, Size: 2}, collision.BoundaryReflecting)
				r.OnContact = func(st *particle.Store, pairs [][2]int) {
					m.Contacts(st, pairs, clk.Now())
				}
				r.Step(s, clk.Now(), 10*time.Millisecond)

				Expect(s.CountByPhase().Asymptomatic).To(Equal(2))
				Expect(s.At(2 - carrier).Health.Phase).To(Equal(particle.PhaseSusceptible))
			},
			Entry("carrier first", 0),
			Entry("carrier last", 2),
		)
	})
})
