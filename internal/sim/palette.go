package sim

import (
	"fmt"

	"github.com/lucasb-eyer/go-colorful"

	"github.com/san-kum/dotsim/internal/config"
	"github.com/san-kum/dotsim/internal/particle"
)

// Color is 8-bit RGBA.
type Color struct {
	R, G, B, A uint8
}

// Hex formats the colour as #rrggbb.
func (c Color) Hex() string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}

func fromColorful(c colorful.Color) Color {
	r, g, b := c.Clamped().RGB255()
	return Color{R: r, G: g, B: b, A: 255}
}

// Palette maps health phase and the anchored flag to a display colour.
type Palette struct {
	phase    [particle.PhaseDead + 1]Color
	anchored [particle.PhaseDead + 1]Color
}

// NewPalette parses the hex colours in pc. Anchored particles get their
// phase colour blended halfway toward the anchored tint.
func NewPalette(pc config.PaletteConfig) (Palette, error) {
	var p Palette
	tint, err := colorful.Hex(pc.Anchored)
	if err != nil {
		return p, fmt.Errorf("palette anchored %q: %w", pc.Anchored, err)
	}

	entries := []struct {
		phase particle.Phase
		hex   string
	}{
		{particle.PhaseSusceptible, pc.Susceptible},
		{particle.PhaseAsymptomatic, pc.Asymptomatic},
		{particle.PhaseInfected, pc.Infected},
		{particle.PhaseRecovered, pc.Recovered},
		{particle.PhaseDead, pc.Dead},
	}
	for _, e := range entries {
		c, err := colorful.Hex(e.hex)
		if err != nil {
			return p, fmt.Errorf("palette %s %q: %w", e.phase, e.hex, err)
		}
		p.phase[e.phase] = fromColorful(c)
		p.anchored[e.phase] = fromColorful(c.BlendRgb(tint, 0.5))
	}
	return p, nil
}

// For returns the colour of h, tinted when anchored.
func (p Palette) For(h particle.Health, anchored bool) Color {
	if int(h.Phase) >= len(p.phase) {
		return Color{A: 255}
	}
	if anchored {
		return p.anchored[h.Phase]
	}
	return p.phase[h.Phase]
}
