package viz

import (
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/san-kum/dotsim/internal/config"
	"github.com/san-kum/dotsim/internal/experiment"
)

var (
	cyan    = lipgloss.NewStyle().Foreground(lipgloss.Color("#00ffff")).Bold(true)
	white   = lipgloss.NewStyle().Foreground(lipgloss.Color("#ffffff")).Bold(true)
	dim     = lipgloss.NewStyle().Foreground(lipgloss.Color("#555566"))
	dimmer  = lipgloss.NewStyle().Foreground(lipgloss.Color("#444455"))
	magenta = lipgloss.NewStyle().Foreground(lipgloss.Color("#ff88ff"))
	title   = lipgloss.NewStyle().Foreground(lipgloss.Color("#00cccc")).Bold(true)
	sub     = lipgloss.NewStyle().Foreground(lipgloss.Color("#666688"))
	keyName = lipgloss.NewStyle().Foreground(lipgloss.Color("#00aaaa")).Bold(true)
)

const (
	stateMenu = iota
	stateConfig
	stateSim
)

// App picks a preset, tunes its parameters and then hands over to the live
// viewer. Esc in the viewer returns to the parameter screen.
type App struct {
	state, cursor int
	presets       []string
	selected      string
	cfg           *config.Config
	params        []experiment.Param
	paramCursor   int
	editing       bool
	editBuf       string
	logger        *slog.Logger
	live          Model
	launches      int
	width, height int
	err           error
}

func NewApp(logger *slog.Logger) App {
	return App{
		state:   stateMenu,
		presets: config.ListPresets(),
		params:  experiment.ListParams(),
		logger:  logger,
	}
}

func (a App) Init() tea.Cmd { return nil }

func (a App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return a.handleKey(msg)
	case tea.WindowSizeMsg:
		a.width, a.height = msg.Width, msg.Height
		if a.state == stateSim {
			return a.forward(msg)
		}
	default:
		if a.state == stateSim {
			return a.forward(msg)
		}
	}
	return a, nil
}

func (a App) forward(msg tea.Msg) (App, tea.Cmd) {
	next, cmd := a.live.Update(msg)
	a.live = next.(Model)
	return a, cmd
}

func (a App) handleKey(msg tea.KeyMsg) (App, tea.Cmd) {
	switch a.state {
	case stateMenu:
		return a.menuKey(msg)
	case stateConfig:
		return a.configKey(msg)
	case stateSim:
		if msg.String() == "esc" {
			a.state = stateConfig
			return a, nil
		}
		return a.forward(msg)
	}
	return a, nil
}

func (a App) menuKey(msg tea.KeyMsg) (App, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		return a, tea.Quit
	case "up", "k":
		if a.cursor > 0 {
			a.cursor--
		}
	case "down", "j":
		if a.cursor < len(a.presets)-1 {
			a.cursor++
		}
	case "enter", " ":
		cfg, err := config.GetPreset(a.presets[a.cursor])
		if err != nil {
			a.err = err
			return a, nil
		}
		a.selected, a.cfg, a.err = a.presets[a.cursor], cfg, nil
		a.state, a.paramCursor = stateConfig, 0
	}
	return a, nil
}

func (a App) configKey(msg tea.KeyMsg) (App, tea.Cmd) {
	if a.editing {
		switch msg.String() {
		case "enter":
			v, err := strconv.ParseFloat(a.editBuf, 64)
			if err == nil {
				a.set(v)
			}
			a.editing, a.editBuf = false, ""
		case "esc":
			a.editing, a.editBuf = false, ""
		case "backspace":
			if len(a.editBuf) > 0 {
				a.editBuf = a.editBuf[:len(a.editBuf)-1]
			}
		default:
			if s := msg.String(); len(s) == 1 && strings.ContainsAny(s, "0123456789.-e") {
				a.editBuf += s
			}
		}
		return a, nil
	}
	switch msg.String() {
	case "ctrl+c":
		return a, tea.Quit
	case "q", "esc":
		a.state = stateMenu
	case "up", "k":
		if a.paramCursor > 0 {
			a.paramCursor--
		}
	case "down", "j":
		if a.paramCursor < len(a.params)-1 {
			a.paramCursor++
		}
	case "enter", " ":
		a.editing, a.editBuf = true, strconv.FormatFloat(a.value(a.paramCursor), 'g', -1, 64)
	case "left", "h":
		a.set(a.value(a.paramCursor) * 0.9)
	case "right", "l":
		a.set(a.value(a.paramCursor) * 1.1)
	case "s":
		return a.start()
	}
	return a, nil
}

func (a *App) value(i int) float64 {
	v, _ := experiment.GetParam(a.cfg, a.params[i].Name)
	return v
}

func (a *App) set(v float64) {
	a.err = experiment.SetParam(a.cfg, a.params[a.paramCursor].Name, v)
}

func (a App) start() (App, tea.Cmd) {
	m, err := NewModel(a.selected, a.cfg, a.logger)
	if err != nil {
		a.err = err
		return a, nil
	}
	a.launches++
	m.gen = a.launches
	if a.width > 0 {
		m.resize(a.width, a.height)
	}
	a.live, a.state, a.err = m, stateSim, nil
	return a, m.Init()
}

func (a App) View() string {
	switch a.state {
	case stateMenu:
		return a.viewMenu()
	case stateConfig:
		return a.viewConfig()
	case stateSim:
		return a.live.View()
	}
	return ""
}

func (a App) hints(pairs ...string) string {
	var b strings.Builder
	b.WriteString("\n    ")
	for i := 0; i+1 < len(pairs); i += 2 {
		b.WriteString(keyName.Render(pairs[i]) + dim.Render(" "+pairs[i+1]+"  "))
	}
	if a.err != nil {
		b.WriteString("\n\n    " + StatusRecording.UnsetBlink().Render(a.err.Error()))
	}
	return b.String() + "\n"
}

func (a App) viewMenu() string {
	var b strings.Builder
	b.WriteString("\n\n    " + title.Render("DOTSIM") + "\n    " + sub.Render("particle epidemic simulator") + "\n    " + sub.Render("─────────────────────────") + "\n\n")
	for i, name := range a.presets {
		desc := ""
		if p, ok := config.Presets[name]; ok {
			desc = p.Description
		}
		if len(desc) > 48 {
			desc = desc[:45] + "..."
		}
		if i == a.cursor {
			b.WriteString(fmt.Sprintf("    %s %s  %s\n", cyan.Render("▸"), white.Render(fmt.Sprintf("%-12s", name)), magenta.Render(desc)))
		} else {
			b.WriteString(fmt.Sprintf("    %s  %s\n", dim.Render(fmt.Sprintf("  %-12s", name)), dimmer.Render(desc)))
		}
	}
	b.WriteString(a.hints("j/k", "navigate", "enter", "select", "q", "quit"))
	return b.String()
}

func (a App) viewConfig() string {
	var b strings.Builder
	b.WriteString("\n\n    " + title.Render(strings.ToUpper(a.selected)) + "\n    " + sub.Render(a.cfg.Mode+" mode") + "\n    " + sub.Render("─────────────────────────") + "\n\n")
	for i, p := range a.params {
		valStr := fmt.Sprintf("%10.4g", a.value(i))
		if a.editing && i == a.paramCursor {
			valStr = fmt.Sprintf("%10s", a.editBuf+"_")
		}
		if i == a.paramCursor {
			b.WriteString(fmt.Sprintf("    %s %s %s  %s\n", cyan.Render("▸"), white.Render(fmt.Sprintf("%-26s", p.Name)), magenta.Render(valStr), dim.Render(p.Description)))
		} else {
			b.WriteString(fmt.Sprintf("    %s %s\n", dim.Render(fmt.Sprintf("  %-26s", p.Name)), dimmer.Render(valStr)))
		}
	}
	b.WriteString(a.hints("j/k", "select", "h/l", "adjust", "enter", "edit", "s", "start", "esc", "back"))
	return b.String()
}

// RunInteractive opens the preset picker full screen.
func RunInteractive(logger *slog.Logger) error {
	_, err := tea.NewProgram(NewApp(logger), tea.WithAltScreen()).Run()
	return err
}
