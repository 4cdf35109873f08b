// Package spatial implements the grid broad-phase used to find interacting
// particle pairs without an all-pairs scan.
//
// Every position is inserted into each cell overlapped by a square of
// half-width Radius/2 centred on it. Cells are at least Radius wide, so a
// position lands in at most 2x2 cells, and any two positions closer than
// Radius share the cell that contains their midpoint. Consumers may see the
// same pair in more than one bucket and must tolerate repeats.
package spatial

import (
	"math"

	"gonum.org/v1/gonum/spatial/r2"
)

// Options configures an index build.
type Options struct {
	// Radius is the interaction distance. Must be positive.
	Radius float64
	// Periodic wraps cells on a square torus of side Extent centred on the
	// origin. Distances then use the minimum image.
	Periodic bool
	Extent   float64
}

// Cell is an integer grid coordinate.
type Cell struct {
	X, Y int
}

type Index struct {
	opts     Options
	cellSize float64
	cols     int
	buckets  map[Cell][]int
	order    []Cell
}

// Build indexes positions; the index of each position in the slice is the
// particle index reported back to consumers.
func Build(positions []r2.Vec, opts Options) *Index {
	ix := &Index{buckets: make(map[Cell][]int)}
	ix.configure(opts)
	ix.insertAll(positions)
	return ix
}

// Rebuild discards the previous contents and indexes positions again,
// reusing bucket storage.
func (ix *Index) Rebuild(positions []r2.Vec, opts Options) {
	for _, c := range ix.order {
		ix.buckets[c] = ix.buckets[c][:0]
	}
	ix.order = ix.order[:0]
	ix.configure(opts)
	ix.insertAll(positions)
}

func (ix *Index) configure(opts Options) {
	ix.opts = opts
	ix.cellSize = opts.Radius
	ix.cols = 0
	if opts.Periodic && opts.Extent > 0 {
		ix.cols = max(1, int(math.Floor(opts.Extent/opts.Radius)))
		ix.cellSize = opts.Extent / float64(ix.cols)
	}
}

func (ix *Index) insertAll(positions []r2.Vec) {
	var cells [4]Cell
	for i, p := range positions {
		for _, c := range ix.cover(p, cells[:0]) {
			ix.insert(c, i)
		}
	}
}

func (ix *Index) insert(c Cell, i int) {
	members, ok := ix.buckets[c]
	if !ok || len(members) == 0 {
		ix.order = append(ix.order, c)
	}
	ix.buckets[c] = append(members, i)
}

// cover appends the distinct cells overlapped by the half-box around p.
func (ix *Index) cover(p r2.Vec, dst []Cell) []Cell {
	h := ix.opts.Radius / 2
	x0, x1 := ix.coord(p.X-h), ix.coord(p.X+h)
	y0, y1 := ix.coord(p.Y-h), ix.coord(p.Y+h)

	for _, x := range [2]int{x0, x1} {
		for _, y := range [2]int{y0, y1} {
			c := Cell{X: x, Y: y}
			dup := false
			for _, seen := range dst {
				if seen == c {
					dup = true
					break
				}
			}
			if !dup {
				dst = append(dst, c)
			}
		}
	}
	return dst
}

func (ix *Index) coord(v float64) int {
	if ix.cols == 0 {
		return int(math.Floor(v / ix.cellSize))
	}
	u := v + ix.opts.Extent/2
	c := int(math.Floor(u/ix.cellSize)) % ix.cols
	if c < 0 {
		c += ix.cols
	}
	return c
}

// CellOf returns the cell containing p.
func (ix *Index) CellOf(p r2.Vec) Cell {
	return Cell{X: ix.coord(p.X), Y: ix.coord(p.Y)}
}

func (ix *Index) CellSize() float64 { return ix.cellSize }

func (ix *Index) Options() Options { return ix.opts }

// Len is the number of non-empty buckets.
func (ix *Index) Len() int { return len(ix.order) }

// Bucket returns the particle indices stored in c, in ascending order.
func (ix *Index) Bucket(c Cell) []int { return ix.buckets[c] }

// Buckets calls fn for every non-empty bucket in first-insertion order.
// The order is deterministic for a given input.
func (ix *Index) Buckets(fn func(c Cell, members []int)) {
	for _, c := range ix.order {
		fn(c, ix.buckets[c])
	}
}

// ForEachPair visits every pair sharing a bucket with a < b. A pair may be
// visited once per shared bucket (up to four times).
func (ix *Index) ForEachPair(fn func(a, b int)) {
	for _, c := range ix.order {
		members := ix.buckets[c]
		for x := 0; x < len(members); x++ {
			for y := x + 1; y < len(members); y++ {
				fn(members[x], members[y])
			}
		}
	}
}

// Within returns the indices other than i whose distance to positions[i]
// is below Radius, without duplicates. positions must be the slice the
// index was built from.
func (ix *Index) Within(positions []r2.Vec, i int) []int {
	var cells [4]Cell
	r2max := ix.opts.Radius * ix.opts.Radius
	var out []int
	for _, c := range ix.cover(positions[i], cells[:0]) {
		for _, j := range ix.buckets[c] {
			if j == i || contains(out, j) {
				continue
			}
			d := ix.Delta(positions[i], positions[j])
			if r2.Norm2(d) < r2max {
				out = append(out, j)
			}
		}
	}
	return out
}

// Delta is the separation b - a under the index boundary policy.
func (ix *Index) Delta(a, b r2.Vec) r2.Vec {
	return Delta(a, b, ix.opts.Periodic, ix.opts.Extent)
}

func contains(s []int, v int) bool {
	for _, x := range s {
		if x == v {
			return true
		}
	}
	return false
}
