package spatial

import (
	"math"

	"gonum.org/v1/gonum/spatial/r2"
)

// Shape is the outline of the simulation domain.
type Shape string

const (
	ShapeDisk   Shape = "disk"
	ShapeSquare Shape = "square"
)

// Domain is centred on the origin. Size is the radius of a disk or the side
// length of a square.
type Domain struct {
	Shape Shape
	Size  float64
}

// Contains reports whether p lies strictly inside the domain.
func (d Domain) Contains(p r2.Vec) bool {
	if d.Shape == ShapeSquare {
		h := d.Size / 2
		return math.Abs(p.X) < h && math.Abs(p.Y) < h
	}
	return r2.Norm(p) < d.Size
}

// Extent is the side of the smallest origin-centred square covering the domain.
func (d Domain) Extent() float64 {
	if d.Shape == ShapeSquare {
		return d.Size
	}
	return 2 * d.Size
}
