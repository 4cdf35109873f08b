package spatial

import (
	"math"
	"math/rand/v2"
	"sort"
	"testing"

	"gonum.org/v1/gonum/spatial/r2"
)

type pair struct{ a, b int }

func randomPositions(rng *rand.Rand, n int, extent float64) []r2.Vec {
	ps := make([]r2.Vec, n)
	for i := range ps {
		ps[i] = r2.Vec{
			X: (rng.Float64() - 0.5) * extent,
			Y: (rng.Float64() - 0.5) * extent,
		}
	}
	return ps
}

func bruteForce(ps []r2.Vec, opts Options) map[pair]bool {
	out := make(map[pair]bool)
	for a := range ps {
		for b := a + 1; b < len(ps); b++ {
			d := Delta(ps[a], ps[b], opts.Periodic, opts.Extent)
			if r2.Norm(d) < opts.Radius {
				out[pair{a, b}] = true
			}
		}
	}
	return out
}

func TestIndexCompleteness(t *testing.T) {
	rng := rand.New(rand.NewPCG(42, 1))

	for trial := 0; trial < 60; trial++ {
		extent := 0.5 + rng.Float64()*4
		opts := Options{
			Radius:   0.01 + rng.Float64()*0.4,
			Periodic: trial%2 == 1,
			Extent:   extent,
		}
		ps := randomPositions(rng, 50+rng.IntN(250), extent)

		ix := Build(ps, opts)
		seen := make(map[pair]bool)
		ix.ForEachPair(func(a, b int) {
			if a >= b {
				t.Fatalf("pair not ordered: %d, %d", a, b)
			}
			seen[pair{a, b}] = true
		})

		for p := range bruteForce(ps, opts) {
			if !seen[p] {
				t.Fatalf("trial %d (%+v): pair %v at distance %.5f missing from every bucket",
					trial, opts, p, r2.Norm(Delta(ps[p.a], ps[p.b], opts.Periodic, opts.Extent)))
			}
		}
	}
}

func TestIndexBoundaryStraddle(t *testing.T) {
	opts := Options{Radius: 1}
	ps := []r2.Vec{{X: 0.999, Y: 0.999}, {X: 1.001, Y: 1.001}, {X: -0.0001, Y: 0}, {X: 0.0001, Y: 0}}

	found := make(map[pair]int)
	Build(ps, opts).ForEachPair(func(a, b int) { found[pair{a, b}]++ })

	if found[pair{0, 1}] == 0 {
		t.Error("diagonal straddling pair missed")
	}
	if found[pair{2, 3}] == 0 {
		t.Error("pair across the origin missed")
	}
}

func TestIndexPeriodicWrap(t *testing.T) {
	opts := Options{Radius: 0.1, Periodic: true, Extent: 2}
	ps := []r2.Vec{{X: -0.99, Y: 0}, {X: 0.99, Y: 0}, {X: 0, Y: 0}}

	ix := Build(ps, opts)
	if ix.CellSize() < opts.Radius {
		t.Fatalf("cell size %v smaller than radius", ix.CellSize())
	}

	got := ix.Within(ps, 0)
	if len(got) != 1 || got[0] != 1 {
		t.Errorf("expected wrap neighbour [1], got %v", got)
	}
}

func TestWithinMatchesBruteForce(t *testing.T) {
	rng := rand.New(rand.NewPCG(3, 9))
	opts := Options{Radius: 0.2}
	ps := randomPositions(rng, 300, 3)
	ix := Build(ps, opts)

	for i := range ps {
		got := ix.Within(ps, i)
		sort.Ints(got)

		var want []int
		for j := range ps {
			if j != i && r2.Norm(r2.Sub(ps[j], ps[i])) < opts.Radius {
				want = append(want, j)
			}
		}
		if len(got) != len(want) {
			t.Fatalf("particle %d: got %v, want %v", i, got, want)
		}
		for k := range got {
			if got[k] != want[k] {
				t.Fatalf("particle %d: got %v, want %v", i, got, want)
			}
		}
	}
}

func TestRebuildReusesBuckets(t *testing.T) {
	opts := Options{Radius: 0.5}
	ix := Build([]r2.Vec{{X: 0.1, Y: 0.1}, {X: 0.2, Y: 0.2}}, opts)
	ix.Rebuild([]r2.Vec{{X: 5, Y: 5}}, opts)

	count := 0
	ix.ForEachPair(func(a, b int) { count++ })
	if count != 0 {
		t.Errorf("stale pairs after rebuild: %d", count)
	}
	if n := len(ix.Bucket(ix.CellOf(r2.Vec{X: 5, Y: 5}))); n != 1 {
		t.Errorf("expected one member in rebuilt cell, got %d", n)
	}
}

func TestReplicationBound(t *testing.T) {
	rng := rand.New(rand.NewPCG(5, 5))
	ps := randomPositions(rng, 500, 10)
	ix := Build(ps, Options{Radius: 0.3})

	total := 0
	ix.Buckets(func(_ Cell, members []int) { total += len(members) })
	if total > 4*len(ps) {
		t.Errorf("each position should occupy at most 4 buckets, got %d entries for %d positions", total, len(ps))
	}
}

func TestWrapAndDelta(t *testing.T) {
	w := Wrap(r2.Vec{X: 1.25, Y: -1.75}, 2)
	if math.Abs(w.X+0.75) > 1e-12 || math.Abs(w.Y-0.25) > 1e-12 {
		t.Errorf("unexpected wrap %v", w)
	}

	d := Delta(r2.Vec{X: -0.9}, r2.Vec{X: 0.9}, true, 2)
	if math.Abs(d.X+0.2) > 1e-12 {
		t.Errorf("expected minimum image -0.2, got %v", d.X)
	}
	d = Delta(r2.Vec{X: -0.9}, r2.Vec{X: 0.9}, false, 2)
	if math.Abs(d.X-1.8) > 1e-12 {
		t.Errorf("expected open separation 1.8, got %v", d.X)
	}
}
