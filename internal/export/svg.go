package export

import (
	"fmt"
	"strings"

	"github.com/san-kum/dotsim/internal/metrics"
	"github.com/san-kum/dotsim/internal/particle"
	"github.com/san-kum/dotsim/internal/sim"
	"github.com/san-kum/dotsim/internal/spatial"
)

const background = "#0a0a0a"

// Snapshot renders a draw list as a square SVG of size pixels. The domain is
// outlined and fills the picture; y grows upward in world space.
func Snapshot(cmds []sim.DrawCommand, domain spatial.Domain, size int) string {
	if size <= 0 {
		return ""
	}
	extent := domain.Extent()
	if extent <= 0 {
		extent = 1
	}
	px := float64(size)
	scale := px / extent
	toScreen := func(x, y float64) (float64, float64) {
		return (x + extent/2) * scale, px - (y+extent/2)*scale
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8"?>
<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d">
<rect width="100%%" height="100%%" fill="%s"/>
`, size, size, size, size, background))

	switch domain.Shape {
	case spatial.ShapeSquare:
		sb.WriteString(fmt.Sprintf(`<rect class="domain" x="0.5" y="0.5" width="%.1f" height="%.1f" fill="none" stroke="#444466"/>
`, px-1, px-1))
	default:
		sb.WriteString(fmt.Sprintf(`<circle class="domain" cx="%.1f" cy="%.1f" r="%.1f" fill="none" stroke="#444466"/>
`, px/2, px/2, px/2-0.5))
	}

	for _, c := range cmds {
		x, y := toScreen(c.Position.X, c.Position.Y)
		r := c.Radius * scale
		if r < 0.5 {
			r = 0.5
		}
		stroke := ""
		if c.Anchored {
			stroke = ` stroke="#ffffff" stroke-width="0.5"`
		}
		sb.WriteString(fmt.Sprintf(`<circle class="particle %s" cx="%.2f" cy="%.2f" r="%.2f" fill="%s"%s/>
`, c.Phase, x, y, r, c.Color.Hex(), stroke))
	}

	sb.WriteString("</svg>")
	return sb.String()
}

// Series names one compartment curve of a Curves chart.
type Series struct {
	Name  string
	Color string
	Value func(metrics.Sample) float64
}

// CompartmentSeries returns the susceptible, active, recovered and dead
// curves coloured from p.
func CompartmentSeries(p sim.Palette) []Series {
	hex := func(ph particle.Phase) string {
		return p.For(particle.Health{Phase: ph}, false).Hex()
	}
	return []Series{
		{"susceptible", hex(particle.PhaseSusceptible), func(s metrics.Sample) float64 { return float64(s.Susceptible) }},
		{"active", hex(particle.PhaseInfected), func(s metrics.Sample) float64 { return float64(s.Asymptomatic + s.Infected) }},
		{"recovered", hex(particle.PhaseRecovered), func(s metrics.Sample) float64 { return float64(s.Recovered) }},
		{"dead", hex(particle.PhaseDead), func(s metrics.Sample) float64 { return float64(s.Dead) }},
	}
}

// Curves plots each series against sample time. All series share the y
// range from zero to the largest value.
func Curves(samples []metrics.Sample, series []Series, width, height int) string {
	if len(samples) < 2 || len(series) == 0 || width <= 0 || height <= 0 {
		return ""
	}

	minT, maxT := samples[0].Time, samples[len(samples)-1].Time
	maxY := 0.0
	for _, s := range samples {
		for _, ser := range series {
			if v := ser.Value(s); v > maxY {
				maxY = v
			}
		}
	}
	rangeT := maxT - minT
	if rangeT == 0 {
		rangeT = 1
	}
	if maxY == 0 {
		maxY = 1
	}
	// headroom
	maxY *= 1.05

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8"?>
<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d">
<rect width="100%%" height="100%%" fill="%s"/>
`, width, height, width, height, background))

	for _, ser := range series {
		sb.WriteString(fmt.Sprintf(`<path class="%s" fill="none" stroke="%s" stroke-width="1.5" d="M`, ser.Name, ser.Color))
		for i, s := range samples {
			x := (s.Time - minT) / rangeT * float64(width)
			y := float64(height) - ser.Value(s)/maxY*float64(height)
			if i == 0 {
				sb.WriteString(fmt.Sprintf("%.1f,%.1f", x, y))
			} else {
				sb.WriteString(fmt.Sprintf(" L%.1f,%.1f", x, y))
			}
		}
		sb.WriteString("\"/>\n")
	}

	sb.WriteString("</svg>")
	return sb.String()
}
