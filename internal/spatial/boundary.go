package spatial

import (
	"math"

	"gonum.org/v1/gonum/spatial/r2"
)

// Delta returns b - a. On a periodic square of side extent it returns the
// minimum-image separation instead.
func Delta(a, b r2.Vec, periodic bool, extent float64) r2.Vec {
	d := r2.Sub(b, a)
	if !periodic || extent <= 0 {
		return d
	}
	d.X -= extent * math.Round(d.X/extent)
	d.Y -= extent * math.Round(d.Y/extent)
	return d
}

// Wrap maps p into the square [-extent/2, extent/2)^2.
func Wrap(p r2.Vec, extent float64) r2.Vec {
	return r2.Vec{X: wrap1(p.X, extent), Y: wrap1(p.Y, extent)}
}

func wrap1(v, extent float64) float64 {
	h := extent / 2
	v = math.Mod(v+h, extent)
	if v < 0 {
		v += extent
	}
	return v - h
}
