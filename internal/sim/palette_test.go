package sim

import (
	"testing"
	"time"

	"github.com/san-kum/dotsim/internal/config"
	"github.com/san-kum/dotsim/internal/particle"
)

func TestPaletteDefaults(t *testing.T) {
	p, err := NewPalette(config.DefaultPalette())
	if err != nil {
		t.Fatal(err)
	}

	deadline := time.Date(2020, time.March, 1, 0, 0, 5, 0, time.UTC)
	tests := []struct {
		name string
		h    particle.Health
		want string
	}{
		{"susceptible", particle.Susceptible(), "#ffffff"},
		{"asymptomatic", particle.Asymptomatic(deadline), "#ffffff"},
		{"infected", particle.Infected(deadline), "#ff3030"},
		{"recovered", particle.Recovered(), "#30ff60"},
		{"dead", particle.Dead(), "#ff00ff"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := p.For(tt.h, false).Hex(); got != tt.want {
				t.Errorf("got %s, want %s", got, tt.want)
			}
		})
	}
}

func TestPaletteAnchoredTint(t *testing.T) {
	p, err := NewPalette(config.DefaultPalette())
	if err != nil {
		t.Fatal(err)
	}

	free := p.For(particle.Susceptible(), false)
	pinned := p.For(particle.Susceptible(), true)
	if pinned == free {
		t.Fatal("anchored particle should be tinted")
	}
	if pinned.R >= free.R || pinned.A != 255 {
		t.Errorf("expected a darker opaque tint, got %+v", pinned)
	}
}

func TestPaletteRejectsBadHex(t *testing.T) {
	pc := config.DefaultPalette()
	pc.Dead = "#zzzzzz"
	if _, err := NewPalette(pc); err == nil {
		t.Error("expected parse error")
	}
}
