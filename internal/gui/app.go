package gui

import (
	"fmt"
	"log/slog"
	"os"

	rl "github.com/gen2brain/raylib-go/raylib"
	"gonum.org/v1/gonum/spatial/r2"

	"github.com/san-kum/dotsim/internal/clock"
	"github.com/san-kum/dotsim/internal/config"
	"github.com/san-kum/dotsim/internal/sim"
)

// Theme Colors (Monochrome Hyper-Minimalist)
var (
	ColBg      = rl.NewColor(10, 10, 10, 255)
	ColAccent  = rl.NewColor(180, 180, 180, 255)
	ColSelect  = rl.NewColor(255, 255, 255, 255)
	ColText    = rl.NewColor(140, 140, 140, 255)
	ColTextDim = rl.NewColor(60, 60, 60, 255)
	ColGrid    = rl.NewColor(30, 30, 30, 255)
)

const (
	screenW, screenH = 1280, 720
	fontPath         = "/usr/share/fonts/liberation/LiberationMono-Regular.ttf"
	telemetryLen     = 400
	maxRate          = 16.0
	minRate          = 0.125
	// pickRadius is in pixels.
	pickRadius = 12.0
)

type App struct {
	Name   string
	Config *config.Config
	Logger *slog.Logger
	Sim    *sim.Simulation
	Clock  *clock.Scaled
	Font   rl.Font

	InMenu      bool
	Interactive bool
	Presets     []string
	Selected    int

	Active ring
	Dead   ring

	view view
	cmds []sim.DrawCommand
	quit bool
	msg  string
}

// initWindow initializes the Raylib window with size 1280×720 and title "dotsim", sets the target FPS to 60, and disables the default exit key.
func initWindow() {
	rl.SetConfigFlags(rl.FlagWindowResizable)
	rl.InitWindow(screenW, screenH, "dotsim")
	rl.SetTargetFPS(60)
	rl.SetExitKey(0)
}

// loadFont loads Liberation Mono when installed and falls back to raylib's
// built-in font.
func loadFont() rl.Font {
	if _, err := os.Stat(fontPath); err != nil {
		return rl.GetFontDefault()
	}
	font := rl.LoadFontEx(fontPath, 32, nil, 0)
	rl.SetTextureFilter(font.Texture, rl.FilterBilinear)
	return font
}

func newApp(logger *slog.Logger, interactive bool) *App {
	return &App{
		Logger:      logger,
		Font:        loadFont(),
		InMenu:      interactive,
		Interactive: interactive,
		Presets:     config.ListPresets(),
		Active:      ring{n: telemetryLen},
		Dead:        ring{n: telemetryLen},
	}
}

// RunInteractive opens the window on the preset menu and blocks until it is
// closed.
func RunInteractive(logger *slog.Logger) error {
	initWindow()
	defer rl.CloseWindow()
	app := newApp(logger, true)
	app.RunLoop()
	return nil
}

// Run opens the window on cfg and blocks until it is closed.
func Run(name string, cfg *config.Config, logger *slog.Logger) error {
	initWindow()
	defer rl.CloseWindow()
	app := newApp(logger, false)
	if err := app.load(name, cfg); err != nil {
		return err
	}
	app.RunLoop()
	return nil
}

func (a *App) RunLoop() {
	for !rl.WindowShouldClose() && !a.quit {
		a.Update()
		a.Draw()
	}
}

// load builds a fresh simulation on a scaled wall clock, keeping the current
// speed.
func (a *App) load(name string, cfg *config.Config) error {
	rate := 1.0
	if a.Clock != nil {
		rate = a.Clock.Rate()
	}
	clk := clock.NewScaled(clock.NewReal())
	clk.SetRate(rate)

	a.Active.reset()
	a.Dead.reset()
	s, err := sim.New(cfg,
		sim.WithClock(clk),
		sim.WithLogger(a.Logger),
		sim.WithObserver(sim.ObserverFunc(func(r sim.EpochReport) {
			a.Active.push(float64(r.Counts.Active()))
			a.Dead.push(float64(r.Counts.Dead))
		})),
	)
	if err != nil {
		return err
	}
	a.Name, a.Config, a.Sim, a.Clock = name, cfg.Clone(), s, clk
	a.cmds = a.Sim.AppendRenderState(a.cmds)
	a.InMenu, a.msg = false, ""
	return nil
}

func (a *App) Update() {
	if rl.IsKeyPressed(rl.KeyQ) {
		a.quit = true
		return
	}

	if a.InMenu {
		a.updateMenu()
		return
	}

	if rl.IsKeyPressed(rl.KeyEscape) && a.Interactive {
		a.InMenu = true
		a.Clock.SetPaused(true)
		return
	}

	switch {
	case rl.IsKeyPressed(rl.KeySpace):
		a.Clock.SetPaused(!a.Clock.Paused())
	case rl.IsKeyPressed(rl.KeyR):
		a.reload(a.Config)
	case rl.IsKeyPressed(rl.KeyN):
		next := a.Config.Clone()
		next.Seed++
		a.reload(next)
	case rl.IsKeyPressed(rl.KeyEqual), rl.IsKeyPressed(rl.KeyKpAdd):
		a.Clock.SetRate(min(a.Clock.Rate()*2, maxRate))
	case rl.IsKeyPressed(rl.KeyMinus), rl.IsKeyPressed(rl.KeyKpSubtract):
		a.Clock.SetRate(max(a.Clock.Rate()/2, minRate))
	}

	a.view = fitView(a.Sim.Domain(), rl.GetScreenWidth(), rl.GetScreenHeight())

	// Left click pins or releases the particle under the cursor.
	if rl.IsMouseButtonPressed(rl.MouseLeftButton) {
		m := rl.GetMousePosition()
		p := a.view.toWorld(r2.Vec{X: float64(m.X), Y: float64(m.Y)})
		if i := nearest(a.cmds, p, pickRadius/a.view.zoom); i >= 0 {
			if err := a.Sim.SetAnchored(i, !a.cmds[i].Anchored); err != nil {
				a.msg = err.Error()
			}
		}
	}

	if !a.Clock.Paused() {
		a.Sim.Advance(float64(rl.GetFrameTime()))
	}
	a.cmds = a.Sim.AppendRenderState(a.cmds)
}

func (a *App) reload(cfg *config.Config) {
	if err := a.load(a.Name, cfg); err != nil {
		a.msg = err.Error()
	}
}

func (a *App) updateMenu() {
	if rl.IsKeyPressed(rl.KeyDown) || rl.IsKeyPressed(rl.KeyJ) {
		a.Selected++
	}
	if rl.IsKeyPressed(rl.KeyUp) || rl.IsKeyPressed(rl.KeyK) {
		a.Selected--
	}

	// Wrap selection
	if a.Selected >= len(a.Presets) {
		a.Selected = 0
	}
	if a.Selected < 0 {
		a.Selected = len(a.Presets) - 1
	}

	if rl.IsKeyPressed(rl.KeyEnter) || rl.IsKeyPressed(rl.KeySpace) {
		name := a.Presets[a.Selected]
		cfg, err := config.GetPreset(name)
		if err == nil {
			err = a.load(name, cfg)
		}
		if err != nil {
			a.msg = err.Error()
		}
	}
}

func (a *App) Draw() {
	rl.BeginDrawing()
	rl.ClearBackground(ColBg)

	if a.InMenu || a.Sim == nil {
		a.drawMenu()
	} else {
		a.drawDomain()
		a.drawParticles()
		a.DrawHUD()
	}

	rl.EndDrawing()
}

func (a *App) drawText(text string, x, y int, size int, color rl.Color) {
	rl.DrawTextEx(a.Font, text, rl.NewVector2(float32(x), float32(y)), float32(size), 1, color)
}

func (a *App) DrawHUD() {
	a.drawText("dotsim", 30, 30, 24, ColSelect)
	a.drawText(fmt.Sprintf(":: %s", a.Name), 130, 34, 16, ColText)

	st := a.Sim.Stats()
	c := st.Counts
	lines := []string{
		fmt.Sprintf("t %6.1fs  epoch %d", st.Elapsed.Seconds(), st.Epochs),
		fmt.Sprintf("S %d  A %d  I %d", c.Susceptible, c.Asymptomatic, c.Infected),
		fmt.Sprintf("R %d  D %d", c.Recovered, c.Dead),
	}
	if a.Config.Mode == config.ModeStochastic {
		lines = append(lines, fmt.Sprintf("acceptance %.0f%%", st.LastPass.AcceptanceRate()*100))
	} else {
		lines = append(lines, fmt.Sprintf("ticks %d  contacts %d", st.Ticks, st.Collisions.Contacts))
	}
	for i, l := range lines {
		a.drawText(l, 30, 80+i*22, 16, ColText)
	}

	a.DrawTelemetry()

	status, col := "RUNNING", ColSelect
	if a.Clock.Paused() {
		status, col = "PAUSED", ColTextDim
	}
	w, h := rl.GetScreenWidth(), rl.GetScreenHeight()
	a.drawText(fmt.Sprintf("%s  x%g", status, a.Clock.Rate()), w-180, 30, 16, col)

	help := "[SPACE] PAUSE  [R] RESET  [N] NEXT SEED  [+/-] SPEED  [CLICK] ANCHOR  [Q] QUIT"
	if a.Interactive {
		help += "  [ESC] MENU"
	}
	a.drawText(help, 30, h-40, 14, ColTextDim)
	a.drawText(fmt.Sprintf("%d FPS", int32(rl.GetFPS())), w-90, h-40, 14, ColTextDim)
	if a.msg != "" {
		a.drawText(a.msg, 30, h-70, 14, rl.Red)
	}
}

func (a *App) drawMenu() {
	a.drawText("dotsim", 50, 50, 40, ColSelect)
	a.drawText("Select Preset", 50, 100, 16, ColTextDim)

	y := 160
	for i, name := range a.Presets {
		desc := ""
		if p, ok := config.Presets[name]; ok {
			desc = p.Description
		}
		if i == a.Selected {
			a.drawText(fmt.Sprintf("> %-12s %s", name, desc), 50, y, 20, ColSelect)
		} else {
			a.drawText(fmt.Sprintf("  %-12s %s", name, desc), 50, y, 20, ColText)
		}
		y += 28
	}
	if a.msg != "" {
		a.drawText(a.msg, 50, y+20, 16, rl.Red)
	}

	a.drawText("ARROWS: NAVIGATE  ENTER: SELECT  Q: QUIT", 50, rl.GetScreenHeight()-40, 14, ColTextDim)
}
