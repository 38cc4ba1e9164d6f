package node

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/RaccoonlabDev/inno-vtol-dynamics/internal/csconv"
)

var (
	styleArmed = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#00ff88"))
	styleBad   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#ff4444"))
	styleBold  = lipgloss.NewStyle().Bold(true)
)

// completenessOK is the share of expected loop iterations below which a
// ratio is highlighted.
const completenessOK = 0.9

// Status is one logging-period snapshot of node health.
type Status struct {
	Armed      bool
	Dynamics   string
	Dyn        float64
	Pub        float64
	Setpoints  int
	SetpointOK bool
	Actuators  []float64
	Position   csconv.Pose
}

func (s Status) String() string {
	var b strings.Builder
	if s.Armed {
		b.WriteString(styleArmed.Render("[Armed]"))
	} else {
		b.WriteString("[Disarmed]")
	}
	fmt.Fprintf(&b, ", %s. ", s.Dynamics)
	b.WriteString(colorize(fmt.Sprintf("dyn=%.6f", s.Dyn), s.Dyn >= completenessOK))
	b.WriteString(", ")
	b.WriteString(colorize(fmt.Sprintf("pub=%.6f", s.Pub), s.Pub >= completenessOK))
	b.WriteString(", ")
	b.WriteString(colorize(fmt.Sprintf("setpoint=%d", s.Setpoints), s.SetpointOK))
	b.WriteString(" msg/sec.\n")

	b.WriteString(styleBold.Render("mc"))
	fmt.Fprintf(&b, " %s ", channels(s.Actuators, 0, 4))
	if len(s.Actuators) >= 8 {
		b.WriteString(styleBold.Render("fw rpy"))
		fmt.Fprintf(&b, " %s", channels(s.Actuators, 4, 7))
		b.WriteString(styleBold.Render(" throttle"))
		fmt.Fprintf(&b, " %s ", channels(s.Actuators, 7, 8))
	}
	p := s.Position.Position
	b.WriteString(styleBold.Render("enu pose"))
	fmt.Fprintf(&b, " [%.1f, %.1f, %.1f].", p.X, p.Y, p.Z)
	return b.String()
}

func colorize(s string, ok bool) string {
	if ok {
		return s
	}
	return styleBad.Render(s)
}

func channels(u []float64, from, to int) string {
	parts := make([]string, 0, to-from)
	for i := from; i < to; i++ {
		v := 0.0
		if i < len(u) {
			v = u[i]
		}
		parts = append(parts, fmt.Sprintf("%.2f", v))
	}
	return "[" + strings.Join(parts, ", ") + "]"
}
