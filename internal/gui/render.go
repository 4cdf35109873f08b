package gui

import (
	"fmt"
	"time"

	rl "github.com/gen2brain/raylib-go/raylib"
	"gonum.org/v1/gonum/spatial/r2"

	"github.com/san-kum/dotsim/internal/particle"
	"github.com/san-kum/dotsim/internal/sim"
	"github.com/san-kum/dotsim/internal/spatial"
)

func rgba(c sim.Color) rl.Color { return rl.NewColor(c.R, c.G, c.B, c.A) }

func vec(p r2.Vec) rl.Vector2 { return rl.NewVector2(float32(p.X), float32(p.Y)) }

func (a *App) drawDomain() {
	d := a.Sim.Domain()
	centre := a.view.toScreen(r2.Vec{})
	switch d.Shape {
	case spatial.ShapeSquare:
		side := float32(d.Size * a.view.zoom)
		rec := rl.NewRectangle(float32(centre.X)-side/2, float32(centre.Y)-side/2, side, side)
		rl.DrawRectangleLinesEx(rec, 1, ColAccent)
	default:
		r := float32(d.Size * a.view.zoom)
		rl.DrawRing(vec(centre), r-1, r, 0, 360, 128, ColAccent)
	}
}

// drawParticles draws the interpolated draw list. Anchored particles get a
// white halo; at least one pixel is drawn however small the radius.
func (a *App) drawParticles() {
	for _, c := range a.cmds {
		p := vec(a.view.toScreen(c.Position))
		r := float32(max(c.Radius*a.view.zoom, 1))
		if c.Anchored {
			rl.DrawCircleV(p, r+1.5, ColSelect)
		}
		rl.DrawCircleV(p, r, rgba(c.Color))
	}
}

// DrawTelemetry plots the active and dead curves against a shared scale.
func (a *App) DrawTelemetry() {
	if len(a.Active.vals) < 2 {
		return
	}

	rectX, rectY := 30, 200
	width, height := 300, 80

	maxVal := 1.0
	for _, v := range a.Active.vals {
		maxVal = max(maxVal, v)
	}
	for _, v := range a.Dead.vals {
		maxVal = max(maxVal, v)
	}

	strip := func(vals []float64, col rl.Color) {
		points := make([]rl.Vector2, len(vals))
		for i, val := range vals {
			px := float32(rectX) + (float32(i)/float32(a.Active.n))*float32(width)
			py := float32(rectY+height) - float32(val/maxVal)*float32(height)
			points[i] = rl.NewVector2(px, py)
		}
		rl.DrawLineStrip(points, col)
	}

	pal := a.Sim.Palette()
	active := rgba(pal.For(particle.Infected(time.Time{}), false))
	dead := rgba(pal.For(particle.Dead(), false))
	strip(a.Active.vals, active)
	strip(a.Dead.vals, dead)
	rl.DrawLine(int32(rectX), int32(rectY+height), int32(rectX+width), int32(rectY+height), ColGrid)
	a.drawText(fmt.Sprintf("active %.0f", a.Active.vals[len(a.Active.vals)-1]), rectX, rectY+height+8, 14, active)
	a.drawText(fmt.Sprintf("dead %.0f", a.Dead.vals[len(a.Dead.vals)-1]), rectX+120, rectY+height+8, 14, dead)
}
