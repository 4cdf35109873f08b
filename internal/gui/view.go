package gui

import (
	"gonum.org/v1/gonum/spatial/r2"

	"github.com/san-kum/dotsim/internal/sim"
	"github.com/san-kum/dotsim/internal/spatial"
)

// fill is the share of the shorter window side the domain occupies.
const fill = 0.9

// view maps world coordinates (origin centred, y up) to window pixels
// (origin top left, y down).
type view struct {
	cx, cy, zoom float64
}

func fitView(d spatial.Domain, w, h int) view {
	ext := d.Extent()
	if ext <= 0 {
		ext = 1
	}
	return view{
		cx:   float64(w) / 2,
		cy:   float64(h) / 2,
		zoom: fill * float64(min(w, h)) / ext,
	}
}

func (v view) toScreen(p r2.Vec) r2.Vec {
	return r2.Vec{X: v.cx + p.X*v.zoom, Y: v.cy - p.Y*v.zoom}
}

func (v view) toWorld(s r2.Vec) r2.Vec {
	return r2.Vec{X: (s.X - v.cx) / v.zoom, Y: (v.cy - s.Y) / v.zoom}
}

// nearest returns the index of the particle closest to p within reach, or -1.
func nearest(cmds []sim.DrawCommand, p r2.Vec, reach float64) int {
	best, bestD := -1, reach*reach
	for i, c := range cmds {
		if d := r2.Norm2(r2.Sub(c.Position, p)); d <= bestD {
			best, bestD = i, d
		}
	}
	return best
}

// ring keeps the last n values.
type ring struct {
	n    int
	vals []float64
}

func (r *ring) push(v float64) {
	r.vals = append(r.vals, v)
	if len(r.vals) > r.n {
		r.vals = r.vals[len(r.vals)-r.n:]
	}
}

func (r *ring) reset() { r.vals = r.vals[:0] }
