package viz

import (
	"fmt"
	"image"
	"image/color"
	"image/gif"
	"log/slog"
	"math/rand/v2"
	"os"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/guptarohit/asciigraph"
	"github.com/lucasb-eyer/go-colorful"
	"gonum.org/v1/gonum/spatial/r2"

	"github.com/san-kum/dotsim/internal/config"
	"github.com/san-kum/dotsim/internal/particle"
	"github.com/san-kum/dotsim/internal/sim"
	"github.com/san-kum/dotsim/internal/spatial"
)

const (
	canvasCols      = 60
	canvasRows      = 24
	historyCapacity = 600
	frameRate       = 60
	minSpeed        = 0.125
	maxSpeed        = 16
	gifPath         = "dotsim.gif"
)

// phaseInk orders phases by how much they stand out when sharing a cell.
var phaseInk = [...]Ink{
	particle.PhaseSusceptible:  1,
	particle.PhaseRecovered:    2,
	particle.PhaseAsymptomatic: 3,
	particle.PhaseInfected:     4,
	particle.PhaseDead:         5,
}

var phases = []particle.Phase{
	particle.PhaseSusceptible,
	particle.PhaseAsymptomatic,
	particle.PhaseInfected,
	particle.PhaseRecovered,
	particle.PhaseDead,
}

// TickMsg drives one frame. Gen ties it to the model that scheduled it.
type TickMsg struct {
	Time time.Time
	Gen  int
}

func tick(gen int) tea.Cmd {
	return tea.Tick(time.Second/frameRate, func(t time.Time) tea.Msg { return TickMsg{Time: t, Gen: gen} })
}

// curves is the per-epoch history fed by the simulation's observer hook.
type curves struct {
	active, dead, acceptance []float64
}

func (c *curves) OnEpoch(r sim.EpochReport) {
	c.active = push(c.active, float64(r.Counts.Active()))
	c.dead = push(c.dead, float64(r.Counts.Dead))
	if r.Pass.Proposed > 0 {
		c.acceptance = push(c.acceptance, r.Pass.AcceptanceRate())
	}
}

func push(s []float64, v float64) []float64 {
	s = append(s, v)
	if len(s) > historyCapacity {
		s = s[len(s)-historyCapacity:]
	}
	return s
}

// Model is the live viewer of one simulation. The simulation runs on its
// own manual clock, advanced by speed/frameRate seconds per frame.
type Model struct {
	name   string
	cfg    *config.Config
	logger *slog.Logger
	sim    *sim.Simulation
	hist   *curves
	canvas *Canvas
	view   Viewport
	inks   []lipgloss.Color
	cmds   []sim.DrawCommand
	rng    *rand.Rand
	theme  Theme

	gen       int
	frame     int
	speed     float64
	running   bool
	showHelp  bool
	recording bool
	frames    []*image.Paletted
	status    string
}

// NewModel builds the viewer for cfg. The config is copied, so reset and
// new-seed never touch the caller's value.
func NewModel(name string, cfg *config.Config, logger *slog.Logger) (Model, error) {
	m := Model{
		name:    name,
		cfg:     cfg.Clone(),
		logger:  logger,
		hist:    &curves{},
		canvas:  NewCanvas(canvasCols, canvasRows),
		rng:     rand.New(rand.NewPCG(cfg.Seed, 0xa11c4)),
		theme:   ThemeCyberpunk,
		speed:   1,
		running: true,
	}
	if err := m.rebuild(); err != nil {
		return Model{}, err
	}
	return m, nil
}

func (m *Model) rebuild() error {
	*m.hist = curves{}
	s, err := sim.New(m.cfg, sim.WithLogger(m.logger), sim.WithObserver(m.hist))
	if err != nil {
		return err
	}
	m.sim = s
	m.view = Viewport{Extent: s.Domain().Extent(), Cols: m.canvas.Width, Rows: m.canvas.Height}
	m.inks = inkColors(s.Palette(), m.theme)
	m.draw()
	return nil
}

func inkColors(p sim.Palette, t Theme) []lipgloss.Color {
	inks := make([]lipgloss.Color, len(phaseInk)+1)
	inks[0] = t.Muted
	for ph, ink := range phaseInk {
		inks[ink] = lipgloss.Color(p.For(particle.Health{Phase: particle.Phase(ph)}, false).Hex())
	}
	return inks
}

func (m Model) Init() tea.Cmd { return tick(m.gen) }

// Update handles input events and advances the simulation.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case " ":
			m.running = !m.running
		case "r":
			m.reset(false)
		case "n":
			m.reset(true)
		case "+", "=":
			m.speed = min(m.speed*2, maxSpeed)
		case "-", "_":
			m.speed = max(m.speed/2, minSpeed)
		case "a":
			m.toggleAnchor()
		case "t":
			m.theme = NextTheme(m.theme.Name)
			m.inks[0] = m.theme.Muted
		case "g":
			if m.recording {
				m.saveGIF()
				m.recording = false
				m.frames = nil
			} else {
				m.recording = true
				m.frames = make([]*image.Paletted, 0)
			}
		case "?":
			m.showHelp = !m.showHelp
		}
	case tea.WindowSizeMsg:
		m.resize(msg.Width, msg.Height)
	case TickMsg:
		if msg.Gen != m.gen {
			return m, nil
		}
		if m.running {
			m.sim.Advance(m.speed / frameRate)
		}
		m.frame++
		m.draw()
		if m.recording {
			m.captureFrame()
		}
		return m, tick(m.gen)
	}
	return m, nil
}

// resize fits the canvas into a terminal of w x h cells next to the panel.
func (m *Model) resize(w, h int) {
	cols := max(20, w-54)
	rows := max(10, h-3)
	if cols == m.canvas.Width && rows == m.canvas.Height {
		return
	}
	m.canvas = NewCanvas(cols, rows)
	m.view.Cols, m.view.Rows = cols, rows
	m.frames = nil
	m.draw()
}

// reset restarts the run from the configured seed, or from the next seed.
func (m *Model) reset(newSeed bool) {
	if newSeed {
		m.cfg.Seed++
	}
	if err := m.rebuild(); err != nil {
		m.status = err.Error()
		return
	}
	m.status = fmt.Sprintf("seed %d", m.cfg.Seed)
}

// toggleAnchor pins or releases one particle chosen at random.
func (m *Model) toggleAnchor() {
	st := m.sim.Store()
	if st.Len() == 0 {
		return
	}
	i := m.rng.IntN(st.Len())
	pinned := !st.At(i).Anchored
	if err := m.sim.SetAnchored(i, pinned); err != nil {
		m.status = err.Error()
		return
	}
	if pinned {
		m.status = fmt.Sprintf("particle %d anchored", i)
	} else {
		m.status = fmt.Sprintf("particle %d released", i)
	}
}

func (m *Model) draw() {
	m.canvas.Clear()
	m.drawDomain()
	m.cmds = m.sim.AppendRenderState(m.cmds)
	s := m.view.Scale()
	for _, c := range m.cmds {
		x, y := m.view.Project(c.Position)
		m.canvas.FillDisc(x, y, c.Radius*s, phaseInk[c.Phase])
	}
}

func (m *Model) drawDomain() {
	d := m.sim.Domain()
	switch d.Shape {
	case spatial.ShapeSquare:
		h := d.Size / 2
		x0, y0 := m.view.Project(r2.Vec{X: -h, Y: h})
		x1, y1 := m.view.Project(r2.Vec{X: h, Y: -h})
		x1 = min(x1, m.canvas.Width*2-1)
		y1 = min(y1, m.canvas.Height*4-1)
		m.canvas.DrawLine(x0, y0, x1, y0)
		m.canvas.DrawLine(x1, y0, x1, y1)
		m.canvas.DrawLine(x1, y1, x0, y1)
		m.canvas.DrawLine(x0, y1, x0, y0)
	default:
		cx, cy := m.view.Project(r2.Vec{})
		m.canvas.DrawCircle(cx, cy, d.Size*m.view.Scale()-1)
	}
}

func (m Model) statusLine() string {
	var s string
	switch {
	case m.recording:
		s = StatusRecording.Render("● REC")
	case m.running:
		s = StatusRunning.Render(AnimatedSpinner(m.frame) + " RUNNING")
	default:
		s = StatusPaused.Render("PAUSED")
	}
	if m.cfg.Epidemic && m.sim.Stats().Counts.Active() == 0 {
		s += "  outbreak over"
	}
	return s
}

func phaseCount(c particle.Counts, ph particle.Phase) int {
	switch ph {
	case particle.PhaseSusceptible:
		return c.Susceptible
	case particle.PhaseAsymptomatic:
		return c.Asymptomatic
	case particle.PhaseInfected:
		return c.Infected
	case particle.PhaseRecovered:
		return c.Recovered
	default:
		return c.Dead
	}
}

// View renders the TUI interface.
func (m Model) View() string {
	st := m.theme.styles()
	canvasView := st.canvas.Render(m.canvas.Render(m.inks))

	var s strings.Builder
	s.WriteString(GradientText(strings.ToUpper(m.name), m.theme.Primary, m.theme.Accent) + "\n\n")
	s.WriteString(m.statusLine() + "\n\n")

	row := func(label, value string) {
		s.WriteString(st.label.Render(label) + st.value.Render(value) + "\n")
	}
	stats := m.sim.Stats()
	row("Time", fmt.Sprintf("%.1fs", stats.Elapsed.Seconds()))
	row("Epochs", fmt.Sprint(stats.Epochs))
	row("Speed", fmt.Sprintf("%gx", m.speed))
	row("Mode", m.cfg.Mode)
	s.WriteString("\n")

	total := stats.Counts.Total()
	for _, ph := range phases {
		n := phaseCount(stats.Counts, ph)
		frac := 0.0
		if total > 0 {
			frac = float64(n) / float64(total)
		}
		s.WriteString(st.label.Render(ph.String()) + ProgressBar(frac, 16, m.inks[phaseInk[ph]]) + st.value.Render(fmt.Sprintf(" %d", n)) + "\n")
	}

	if len(m.hist.active) > 1 {
		chart := asciigraph.PlotMany([][]float64{m.hist.active, m.hist.dead},
			asciigraph.Height(5), asciigraph.Width(30),
			asciigraph.SeriesColors(asciigraph.Red, asciigraph.Magenta),
			asciigraph.Caption("active / dead"))
		s.WriteString("\n" + chart + "\n\n")
	}

	if m.cfg.Mode == config.ModeStochastic {
		row("Acceptance", fmt.Sprintf("%.0f%%", stats.LastPass.AcceptanceRate()*100))
		s.WriteString(SparklineChart(m.hist.acceptance, 30) + "\n")
	} else {
		row("Contacts", fmt.Sprint(stats.Collisions.Contacts))
	}
	if m.status != "" {
		s.WriteString("\n" + st.muted.Render(m.status) + "\n")
	}

	s.WriteString("\n" + Separator(40, st.muted) + "\n")
	s.WriteString(st.key.Render("SP:Pause R:Reset N:Next seed Q:Quit\n+/-:Speed A:Anchor T:Theme G:Record ?:Help"))

	mainView := lipgloss.JoinHorizontal(lipgloss.Top, canvasView, st.panel.Render(s.String()))
	if m.showHelp {
		themes := st.muted.Render("Themes: " + strings.Join(ThemeNames(), ", ") + " (now " + m.theme.Name + ")")
		return helpText + "\n" + themes + "\n\n" + mainView
	}
	return mainView
}

const helpText = `
╔══════════════════════════════════════╗
║          KEYBOARD SHORTCUTS          ║
╠══════════════════════════════════════╣
║  Space    - Pause/Resume simulation  ║
║  R        - Reset to the same seed   ║
║  N        - Reset with the next seed ║
║  + / -    - Double / halve speed     ║
║  A        - Anchor a random particle ║
║  G        - Toggle GIF recording     ║
║  T        - Cycle themes             ║
║  ?        - Toggle this help         ║
║  Q        - Quit                     ║
╚══════════════════════════════════════╝`

// gifPalette is the background followed by one colour per ink.
func (m *Model) gifPalette() color.Palette {
	pal := color.Palette{color.Black}
	for _, ink := range m.inks {
		c, err := colorful.Hex(string(ink))
		if err != nil {
			pal = append(pal, color.White)
			continue
		}
		r, g, b := c.RGB255()
		pal = append(pal, color.RGBA{R: r, G: g, B: b, A: 255})
	}
	return pal
}

func (m *Model) captureFrame() {
	const dot = 4
	imgW, imgH := m.canvas.Width*2*dot, m.canvas.Height*4*dot
	img := image.NewPaletted(image.Rect(0, 0, imgW, imgH), m.gifPalette())
	for y := 0; y < m.canvas.Height*4; y++ {
		for x := 0; x < m.canvas.Width*2; x++ {
			if !m.canvas.Lit(x, y) {
				continue
			}
			idx := uint8(m.canvas.Ink[y/4][x/2]) + 1
			for py := 0; py < dot; py++ {
				for px := 0; px < dot; px++ {
					img.SetColorIndex(x*dot+px, y*dot+py, idx)
				}
			}
		}
	}
	m.frames = append(m.frames, img)
}

func (m *Model) saveGIF() {
	if len(m.frames) == 0 {
		return
	}
	anim := gif.GIF{LoopCount: 0}
	for _, frame := range m.frames {
		anim.Image = append(anim.Image, frame)
		anim.Delay = append(anim.Delay, 2)
	}
	f, err := os.Create(gifPath)
	if err != nil {
		m.status = err.Error()
		return
	}
	defer f.Close()
	if err := gif.EncodeAll(f, &anim); err != nil {
		m.status = err.Error()
		return
	}
	m.status = fmt.Sprintf("saved %d frames to %s", len(m.frames), gifPath)
}

// Run opens the viewer full screen until the user quits.
func Run(name string, cfg *config.Config, logger *slog.Logger) error {
	m, err := NewModel(name, cfg, logger)
	if err != nil {
		return err
	}
	_, err = tea.NewProgram(m, tea.WithAltScreen()).Run()
	return err
}
