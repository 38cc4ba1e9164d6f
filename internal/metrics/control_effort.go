package metrics

import (
	"math"

	"github.com/RaccoonlabDev/inno-vtol-dynamics/internal/dynamo"
)

// Channel groups of the 8-channel VTOL command. Multirotor commands carry
// the lift group only.
var (
	LiftChannels    = []int{0, 1, 2, 3}
	PusherChannels  = []int{4}
	SurfaceChannels = []int{5, 6, 7}
)

// ControlEffort is the mean absolute command of one actuator group. Steps
// whose command does not reach the group, calibration steps included, are
// skipped.
type ControlEffort struct {
	name     string
	channels []int
	last     int
	sum      float64
	samples  int
}

func NewControlEffort(name string, channels []int) *ControlEffort {
	last := -1
	for _, ch := range channels {
		last = max(last, ch)
	}
	return &ControlEffort{name: name, channels: channels, last: last}
}

func NewLiftEffort() *ControlEffort    { return NewControlEffort("lift_effort", LiftChannels) }
func NewPusherEffort() *ControlEffort  { return NewControlEffort("pusher_effort", PusherChannels) }
func NewSurfaceEffort() *ControlEffort { return NewControlEffort("surface_effort", SurfaceChannels) }

func (c *ControlEffort) Name() string { return c.name }

func (c *ControlEffort) Observe(x dynamo.State, u dynamo.Control, t float64) {
	if c.last < 0 || len(u) <= c.last {
		return
	}
	var group float64
	for _, ch := range c.channels {
		group += math.Abs(u[ch])
	}
	c.sum += group / float64(len(c.channels))
	c.samples++
}

func (c *ControlEffort) Value() float64 {
	if c.samples == 0 {
		return 0
	}
	return c.sum / float64(c.samples)
}

func (c *ControlEffort) Reset() {
	c.sum = 0
	c.samples = 0
}

// LiftSaturation is the fraction of commanded steps where a lift motor
// is at or beyond full throttle.
type LiftSaturation struct {
	saturated int
	samples   int
}

func NewLiftSaturation() *LiftSaturation { return &LiftSaturation{} }

func (l *LiftSaturation) Name() string { return "lift_saturation" }

func (l *LiftSaturation) Observe(x dynamo.State, u dynamo.Control, t float64) {
	if len(u) < len(LiftChannels) {
		return
	}
	l.samples++
	for _, ch := range LiftChannels {
		if u[ch] >= 1 {
			l.saturated++
			return
		}
	}
}

func (l *LiftSaturation) Value() float64 {
	if l.samples == 0 {
		return 0
	}
	return float64(l.saturated) / float64(l.samples)
}

func (l *LiftSaturation) Reset() {
	l.saturated = 0
	l.samples = 0
}
