// Package collision implements the deterministic dynamics: free flight,
// boundary handling and elastic impulse response between overlapping
// particles of equal mass.
package collision

import (
	"gonum.org/v1/gonum/spatial/r2"

	"github.com/san-kum/dotsim/internal/particle"
)

// Resolve applies the elastic response to one candidate pair. n is the
// separation pos(b) - pos(a). It reports whether the pair overlaps.
//
// Only approaching velocity components are reflected, so resolving a pair
// that has already been handled is a no-op. Anchored particles keep their
// velocity untouched.
func Resolve(a, b *particle.Particle, n r2.Vec) bool {
	nn := r2.Norm2(n)
	reach := a.Radius + b.Radius
	if nn == 0 || nn >= reach*reach {
		return false
	}

	switch {
	case a.Anchored && b.Anchored:
	case a.Anchored:
		b.Velocity = reflectIfApproaching(b.Velocity, r2.Scale(-1, n), nn)
	case b.Anchored:
		a.Velocity = reflectIfApproaching(a.Velocity, n, nn)
	default:
		vf := r2.Scale(0.5, r2.Add(a.Velocity, b.Velocity))
		rel := r2.Sub(a.Velocity, vf)
		if r2.Dot(rel, n) > 0 {
			rel = reflect(rel, n, nn)
			a.Velocity = r2.Add(vf, rel)
			b.Velocity = r2.Sub(vf, rel)
		}
	}
	return true
}

// reflectIfApproaching mirrors v about the plane normal to n when v points
// along n, i.e. toward the obstacle.
func reflectIfApproaching(v, n r2.Vec, nn float64) r2.Vec {
	if r2.Dot(v, n) <= 0 {
		return v
	}
	return reflect(v, n, nn)
}

func reflect(v, n r2.Vec, nn float64) r2.Vec {
	return r2.Sub(v, r2.Scale(2*r2.Dot(v, n)/nn, n))
}
