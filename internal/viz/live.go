package viz

import (
	"fmt"
	"math"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/guptarohit/asciigraph"
	"gonum.org/v1/gonum/num/quat"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/RaccoonlabDev/inno-vtol-dynamics/internal/control"
	"github.com/RaccoonlabDev/inno-vtol-dynamics/internal/csconv"
	"github.com/RaccoonlabDev/inno-vtol-dynamics/internal/dynamo"
)

const (
	frameRate     = 30
	trackCapacity = 400
	altCapacity   = 120
	canvasWidth   = 40
	canvasHeight  = 14
	trackSpan     = 40.0
)

type frameMsg time.Time

// Live flies a dynamics backend under a controller in real time.
type Live struct {
	dyn  dynamo.Dynamics
	ctrl dynamo.Controller
	name string

	dt            float64
	stepsPerFrame int
	t             float64

	running     bool
	armed       bool
	calibration dynamo.CalibrationCase
	lastCmd     dynamo.Control

	initialPosition r3.Vec
	initialAttitude quat.Number

	track    []r3.Vec
	altitude []float64
	canvas   *Canvas
}

func NewLive(dyn dynamo.Dynamics, ctrl dynamo.Controller, dt float64, name string) Live {
	steps := int(math.Round(1 / (frameRate * dt)))
	if steps < 1 {
		steps = 1
	}
	return Live{
		dyn:             dyn,
		ctrl:            ctrl,
		name:            name,
		dt:              dt,
		stepsPerFrame:   steps,
		running:         true,
		armed:           true,
		initialPosition: dyn.Position(),
		initialAttitude: dyn.Attitude(),
		track:           make([]r3.Vec, 0, trackCapacity),
		altitude:        make([]float64, 0, altCapacity),
		canvas:          NewCanvas(canvasWidth, canvasHeight),
	}
}

func (m Live) Init() tea.Cmd { return nextFrame() }

func nextFrame() tea.Cmd {
	return tea.Tick(time.Second/frameRate, func(t time.Time) tea.Msg { return frameMsg(t) })
}

func (m Live) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case " ":
			m.running = !m.running
		case "a":
			m.armed = !m.armed
		case "c":
			m.calibration = (m.calibration + 1) % (dynamo.Airspeed + 1)
		case "r":
			m.reset()
		case "up", "k":
			m.adjustTarget(1)
		case "down", "j":
			m.adjustTarget(-1)
		}
	case frameMsg:
		if m.running {
			m.advance()
		}
		return m, nextFrame()
	}
	return m, nil
}

// advance runs one frame worth of physics steps and records the track.
func (m *Live) advance() {
	for i := 0; i < m.stepsPerFrame; i++ {
		switch {
		case m.calibration != dynamo.WorkMode:
			m.dyn.Calibrate(m.calibration)
		case m.armed:
			m.lastCmd = m.ctrl.Compute(dynamo.Snapshot(m.dyn), m.t)
			m.dyn.Process(m.dt, m.lastCmd, true)
		default:
			m.dyn.Land()
		}
		m.t += m.dt
	}

	pose := csconv.ToEnu(m.dyn)
	m.track = appendCapped(m.track, pose.Position, trackCapacity)
	m.altitude = appendCapped(m.altitude, pose.Position.Z, altCapacity)
}

func (m *Live) reset() {
	m.dyn.Land()
	m.dyn.SetInitialPosition(m.initialPosition, m.initialAttitude)
	m.dyn.SetInitialVelocity(r3.Vec{}, r3.Vec{})
	m.t = 0
	m.armed = false
	m.calibration = dynamo.WorkMode
	m.lastCmd = nil
	m.track = m.track[:0]
	m.altitude = m.altitude[:0]
}

func (m *Live) adjustTarget(delta float64) {
	if h, ok := m.ctrl.(*control.Hover); ok {
		h.Altitude().Target = math.Max(0, h.Altitude().Target+delta)
	}
}

func appendCapped[T any](s []T, v T, capacity int) []T {
	if len(s) == capacity {
		copy(s, s[1:])
		s = s[:len(s)-1]
	}
	return append(s, v)
}

func (m Live) View() string {
	header := titleStyle.Render(m.name) + fmt.Sprintf("  t=%.2fs  ", m.t)
	if m.armed {
		header += armedStyle.Render("[Armed]")
	} else {
		header += "[Disarmed]"
	}
	if !m.running {
		header += " " + pausedStyle.Render("[Paused]")
	}
	if m.calibration != dynamo.WorkMode {
		header += " " + warnStyle.Render(fmt.Sprintf("[Calibration %d]", m.calibration))
	}

	body := lipgloss.JoinHorizontal(lipgloss.Top,
		panelStyle.Render(m.renderTrack()),
		panelStyle.Render(m.renderTelemetry()),
	)

	var b strings.Builder
	b.WriteString(header + "\n")
	b.WriteString(body + "\n")
	if len(m.altitude) > 1 {
		b.WriteString(asciigraph.Plot(m.altitude,
			asciigraph.Height(6),
			asciigraph.Width(70),
			asciigraph.Caption("altitude, m")))
		b.WriteString("\n")
	}
	b.WriteString(helpStyle.Render("space pause · a arm · c calibrate · r reset · ↑/↓ target · q quit"))
	return b.String()
}

// renderTrack draws the recent ground track, north up, centred on the
// vehicle.
func (m Live) renderTrack() string {
	m.canvas.Clear()
	if len(m.track) == 0 {
		return m.canvas.String()
	}
	cur := m.track[len(m.track)-1]
	view := View{CenterEast: cur.X, CenterNorth: cur.Y, Span: trackSpan}
	px, py := m.canvas.Pixel(view, m.track[0].X, m.track[0].Y)
	for _, p := range m.track[1:] {
		x, y := m.canvas.Pixel(view, p.X, p.Y)
		m.canvas.DrawLine(px, py, x, y)
		px, py = x, y
	}
	return trackStyle.Render(strings.TrimRight(m.canvas.String(), "\n"))
}

func (m Live) renderTelemetry() string {
	enu := csconv.ToEnu(m.dyn)
	roll, pitch, yaw := csconv.Euler(csconv.ToNed(m.dyn).Attitude)
	p, v := enu.Position, enu.Velocity

	rows := []string{
		row("alt", fmt.Sprintf("%.2f m", p.Z)),
		row("enu", fmt.Sprintf("%.1f %.1f %.1f", p.X, p.Y, p.Z)),
		row("vel", fmt.Sprintf("%.1f %.1f %.1f", v.X, v.Y, v.Z)),
		row("rpy", fmt.Sprintf("%.1f %.1f %.1f°", deg(roll), deg(pitch), deg(yaw))),
		row("rpm", formatSlice(m.dyn.MotorsRPM(), "%.0f")),
		row("cmd", formatSlice(m.lastCmd, "%.2f")),
	}
	if h, ok := m.ctrl.(*control.Hover); ok {
		rows = append(rows, row("target", fmt.Sprintf("%.1f m", h.Altitude().Target)))
	}
	return lipgloss.JoinVertical(lipgloss.Left, rows...)
}

func deg(rad float64) float64 { return rad * 180 / math.Pi }

func formatSlice(v []float64, format string) string {
	parts := make([]string, len(v))
	for i, x := range v {
		parts[i] = fmt.Sprintf(format, x)
	}
	return "[" + strings.Join(parts, " ") + "]"
}

// Time returns the simulated time flown so far.
func (m Live) Time() float64 { return m.t }
