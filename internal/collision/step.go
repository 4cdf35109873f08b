package collision

import (
	"cmp"
	"math"
	"slices"
	"time"

	"gonum.org/v1/gonum/spatial/r2"

	"github.com/san-kum/dotsim/internal/particle"
	"github.com/san-kum/dotsim/internal/spatial"
)

// Boundary is the domain edge policy for free flight.
type Boundary string

const (
	BoundaryPeriodic   Boundary = "periodic"
	BoundaryReflecting Boundary = "reflecting"
)

// ContactFunc receives every overlapping pair of a tick once the whole
// overlap pass is done, sorted by index with the lower index first.
type ContactFunc func(s *particle.Store, pairs [][2]int)

// StepStats summarises one deterministic tick.
type StepStats struct {
	Moved    int
	Wrapped  int
	Bounced  int
	Contacts int
}

// Resolver advances the deterministic dynamics. The zero value is not
// usable; set Domain and Boundary.
type Resolver struct {
	Domain   spatial.Domain
	Boundary Boundary
	// DeadCollide keeps dead particles in the collision broad-phase.
	DeadCollide bool
	OnContact   ContactFunc

	index     *spatial.Index
	targets   []r2.Vec
	contacted map[[2]int]struct{}
	pairs     [][2]int
}

func NewResolver(domain spatial.Domain, boundary Boundary) *Resolver {
	return &Resolver{
		Domain:      domain,
		Boundary:    boundary,
		DeadCollide: true,
		contacted:   make(map[[2]int]struct{}),
	}
}

// Step moves every free particle by v*dt, applies the boundary policy and
// resolves the overlaps found through the spatial index.
func (r *Resolver) Step(s *particle.Store, now time.Time, dt time.Duration) StepStats {
	var st StepStats
	secs := dt.Seconds()

	for i := 0; i < s.Len(); i++ {
		p := s.At(i)
		if p.Anchored || (p.Velocity == r2.Vec{}) {
			continue
		}
		next := r2.Add(p.Target, r2.Scale(secs, p.Velocity))
		st.Moved++

		switch r.Boundary {
		case BoundaryPeriodic:
			if !r.Domain.Contains(next) {
				s.Teleport(i, spatial.Wrap(next, r.Domain.Extent()), now)
				st.Wrapped++
				continue
			}
		default:
			var bounced bool
			next, p.Velocity, bounced = r.reflect(next, p.Velocity)
			if bounced {
				st.Bounced++
			}
		}
		s.CommitMove(i, next, dt, now)
	}

	st.Contacts = r.resolveOverlaps(s)
	return st
}

func (r *Resolver) resolveOverlaps(s *particle.Store) int {
	reach := 2 * s.MaxRadius()
	if reach <= 0 || s.Len() < 2 {
		return 0
	}
	opts := spatial.Options{
		Radius:   reach,
		Periodic: r.Boundary == BoundaryPeriodic,
		Extent:   r.Domain.Extent(),
	}
	r.targets = s.Targets(r.targets)
	if r.index == nil {
		r.index = spatial.Build(r.targets, opts)
	} else {
		r.index.Rebuild(r.targets, opts)
	}
	clear(r.contacted)
	r.pairs = r.pairs[:0]

	r.index.ForEachPair(func(ia, ib int) {
		a, b, ok := s.Pair(ia, ib)
		if !ok {
			return
		}
		if !r.DeadCollide && (a.Health.Phase == particle.PhaseDead || b.Health.Phase == particle.PhaseDead) {
			return
		}
		if !Resolve(a, b, r.index.Delta(a.Target, b.Target)) {
			return
		}
		key := [2]int{ia, ib}
		if _, dup := r.contacted[key]; dup {
			return
		}
		r.contacted[key] = struct{}{}
		r.pairs = append(r.pairs, key)
	})

	if r.OnContact != nil && len(r.pairs) > 0 {
		slices.SortFunc(r.pairs, func(x, y [2]int) int {
			if c := cmp.Compare(x[0], y[0]); c != 0 {
				return c
			}
			return cmp.Compare(x[1], y[1])
		})
		r.OnContact(s, r.pairs)
	}
	return len(r.pairs)
}

// reflect folds a position that crossed the wall back inside and flips the
// outward velocity component.
func (r *Resolver) reflect(p, v r2.Vec) (r2.Vec, r2.Vec, bool) {
	if r.Domain.Contains(p) {
		return p, v, false
	}
	if r.Domain.Shape == spatial.ShapeSquare {
		h := r.Domain.Size / 2
		if p.X >= h {
			p.X, v.X = 2*h-p.X, -math.Abs(v.X)
		} else if p.X <= -h {
			p.X, v.X = -2*h-p.X, math.Abs(v.X)
		}
		if p.Y >= h {
			p.Y, v.Y = 2*h-p.Y, -math.Abs(v.Y)
		} else if p.Y <= -h {
			p.Y, v.Y = -2*h-p.Y, math.Abs(v.Y)
		}
		return p, v, true
	}

	d := r2.Norm(p)
	if d == 0 {
		return p, v, false
	}
	normal := r2.Scale(1/d, p)
	if vn := r2.Dot(v, normal); vn > 0 {
		v = r2.Sub(v, r2.Scale(2*vn, normal))
	}
	p = r2.Scale(math.Max(2*r.Domain.Size-d, 0), normal)
	return p, v, true
}
