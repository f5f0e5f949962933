package viz

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/guptarohit/asciigraph"
	"github.com/san-kum/delaynet/internal/network"
)

const (
	canvasWidth     = 40
	canvasHeight    = 16
	historyCapacity = 400
	maxRows         = 12
	frameRate       = time.Second / 30
)

type TickMsg time.Time

// Model steps a network a few min_delays per frame and draws the recent
// activity of its units, plus the phase trail of the first plant.
type Model struct {
	name  string
	net   *network.Network
	step  func() error
	until float64

	running bool
	speed   int
	steps   int
	err     error

	selected int
	history  [][]float64
	plantX   []float64
	plantY   []float64
	canvas   *Canvas
	showHelp bool
}

// NewModel prepares net for live stepping until time until, or forever if
// until is zero. A flat network is stepped with FlatUpdate.
func NewModel(name string, net *network.Network, until float64) Model {
	m := Model{
		name:    name,
		net:     net,
		step:    net.Update,
		until:   until,
		running: true,
		speed:   1,
		history: make([][]float64, min(net.NumUnits(), maxRows)),
		canvas:  NewCanvas(canvasWidth, canvasHeight),
	}
	if net.IsFlat() {
		m.step = net.FlatUpdate
	}
	m.record()
	return m
}

func tick() tea.Cmd {
	return tea.Tick(frameRate, func(t time.Time) tea.Msg { return TickMsg(t) })
}

func (m Model) Init() tea.Cmd { return tick() }

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case " ":
			m.running = !m.running
		case "tab", "down", "j":
			if len(m.history) > 0 {
				m.selected = (m.selected + 1) % len(m.history)
			}
		case "shift+tab", "up", "k":
			if len(m.history) > 0 {
				m.selected = (m.selected + len(m.history) - 1) % len(m.history)
			}
		case "+", "=":
			m.speed = min(m.speed*2, 256)
		case "-", "_":
			m.speed = max(m.speed/2, 1)
		case "?":
			m.showHelp = !m.showHelp
		}
	case TickMsg:
		if m.running && m.err == nil {
			m.advance()
		}
		return m, tick()
	}
	return m, nil
}

func (m *Model) advance() {
	for i := 0; i < m.speed; i++ {
		if m.done() {
			m.running = false
			return
		}
		if err := m.step(); err != nil {
			m.err = err
			m.running = false
			return
		}
		m.steps++
		m.record()
	}
}

func (m *Model) done() bool {
	return m.until > 0 && m.net.SimTime() >= m.until-m.net.Config().MinDelay/2
}

func (m *Model) record() {
	for uid := range m.history {
		m.history[uid] = appendCapped(m.history[uid], m.net.Act(uid))
	}
	if m.net.NumPlants() > 0 {
		x := m.net.PlantState(0)
		y := 0.0
		if len(x) > 1 {
			y = x[1]
		}
		m.plantX = appendCapped(m.plantX, x[0])
		m.plantY = appendCapped(m.plantY, y)
	}
}

func appendCapped(s []float64, v float64) []float64 {
	s = append(s, v)
	if len(s) > historyCapacity {
		s = s[1:]
	}
	return s
}

func (m Model) status() string {
	switch {
	case m.err != nil:
		return errorStyle.Render("ERROR")
	case m.done():
		return "DONE"
	case !m.running:
		return "PAUSED"
	}
	return "RUNNING"
}

func (m Model) View() string {
	var s strings.Builder
	s.WriteString(headerStyle.Render(strings.ToUpper(m.name)) + "\n")
	s.WriteString(m.status() + "\n\n")

	if len(m.history) > 0 {
		series := m.history[m.selected]
		if len(series) > 1 {
			chart := asciigraph.Plot(series, asciigraph.Height(6), asciigraph.Width(40),
				asciigraph.Caption(fmt.Sprintf("unit %d", m.selected)))
			s.WriteString(graphStyle.Render(chart) + "\n")
		}
	}

	s.WriteString(labelStyle.Render("Time") + valueStyle.Render(fmt.Sprintf("%.3f", m.net.SimTime())) + "\n")
	s.WriteString(labelStyle.Render("Steps") + valueStyle.Render(fmt.Sprintf("%d (x%d)", m.steps, m.speed)) + "\n")
	mode := "per-object"
	if m.net.IsFlat() {
		mode = "flat"
	}
	s.WriteString(labelStyle.Render("Mode") + valueStyle.Render(mode) + "\n")
	if m.until > 0 {
		s.WriteString(labelStyle.Render("Progress") + ProgressBar(m.net.SimTime()/m.until, 24) + "\n")
	}
	if m.err != nil {
		s.WriteString(errorStyle.Render(m.err.Error()) + "\n")
	}

	s.WriteString("\nUNITS\n")
	for uid, series := range m.history {
		line := fmt.Sprintf("%3d %8.4f ", uid, m.net.Act(uid))
		spark := Sparkline(series, 24, minOf(series), maxOf(series))
		if uid == m.selected {
			s.WriteString(selectedStyle.Render("> "+line) + spark + "\n")
		} else {
			s.WriteString("  " + labelStyle.Render(line) + spark + "\n")
		}
	}
	if n := m.net.NumUnits(); n > len(m.history) {
		s.WriteString(labelStyle.Render(fmt.Sprintf("  ... %d more", n-len(m.history))) + "\n")
	}
	s.WriteString(helpStyle.Render("SP:Pause Q:Quit ↑↓:Unit +/-:Speed ?:Help"))
	stats := statsStyle.Render(s.String())

	if m.showHelp {
		return helpText + "\n" + stats
	}
	if len(m.plantX) < 2 {
		return stats
	}
	m.canvas.Clear()
	m.canvas.Trace(m.plantX, m.plantY)
	return lipgloss.JoinHorizontal(lipgloss.Top, canvasStyle.Render("plant 0\n"+m.canvas.String()), stats)
}

const helpText = `
  Space      Pause/Resume
  Up/Down    Select unit
  +/-        Steps per frame
  Q          Quit
  ?          Toggle this help
`

func minOf(vs []float64) float64 {
	lo := vs[0]
	for _, v := range vs {
		lo = min(lo, v)
	}
	return lo
}

func maxOf(vs []float64) float64 {
	hi := vs[0]
	for _, v := range vs {
		hi = max(hi, v)
	}
	return hi
}
