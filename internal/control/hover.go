package control

import (
	"math"

	"gonum.org/v1/gonum/num/quat"

	"github.com/RaccoonlabDev/inno-vtol-dynamics/internal/csconv"
	"github.com/RaccoonlabDev/inno-vtol-dynamics/internal/dynamo"
)

// Layout is the actuator command vector a Hover controller emits.
type Layout int

const (
	// LayoutQuad is four lift motors in autopilot order: front right, tail
	// left, front left, tail right.
	LayoutQuad Layout = iota
	// LayoutInno adds aileron (centred at 0.5), elevator, rudder and pusher
	// throttle on channels 4-7.
	LayoutInno
	// LayoutStandard adds pusher throttle on 4, left and right aileron on
	// 5-6 and elevator on 7.
	LayoutStandard
)

func (l Layout) Channels() int {
	if l == LayoutQuad {
		return 4
	}
	return 8
}

// Lift motor geometry in FRD, autopilot order. yaw is the sign of the
// reaction torque.
var (
	liftX   = [4]float64{1, -1, 1, -1}
	liftY   = [4]float64{1, -1, -1, 1}
	liftYaw = [4]float64{1, 1, -1, -1}
)

type HoverParams struct {
	TargetAltitude float64
	HoverThrottle  float64
	AltitudeKp     float64
	AltitudeKi     float64
	AltitudeKd     float64
	AttitudeKp     float64
	AttitudeKd     float64
	// Throttle is the pusher command for the 8-channel layouts.
	Throttle float64
}

// Hover holds altitude with collective thrust and levels the vehicle with
// differential thrust. Internally it works in NED/FRD.
type Hover struct {
	layout   Layout
	notation dynamo.Notation
	params   HoverParams
	altitude *PID
}

var _ dynamo.Controller = (*Hover)(nil)

func NewHover(layout Layout, notation dynamo.Notation, p HoverParams) *Hover {
	return &Hover{
		layout:   layout,
		notation: notation,
		params:   p,
		altitude: NewPID(p.AltitudeKp, p.AltitudeKi, p.AltitudeKd, p.TargetAltitude).
			WithLimits(-p.HoverThrottle, 1-p.HoverThrottle),
	}
}

// Altitude exposes the altitude loop for live tuning.
func (h *Hover) Altitude() *PID { return h.altitude }

func (h *Hover) Compute(x dynamo.State, t float64) dynamo.Control {
	pos, q, w := x.Position(), x.Attitude(), x.AngularVelocity()
	if h.notation == dynamo.NotationENU {
		pos = csconv.EnuToNed(pos)
		q = csconv.EnuFluToNedFrd(q)
		w = csconv.FluToFrd(w)
	}

	collective := h.params.HoverThrottle + h.altitude.Update(-pos.Z, t)
	roll, pitch := tilt(q)
	mx := -(h.params.AttitudeKp*roll + h.params.AttitudeKd*w.X)
	my := -(h.params.AttitudeKp*pitch + h.params.AttitudeKd*w.Y)
	mz := -h.params.AttitudeKd * w.Z

	u := make(dynamo.Control, h.layout.Channels())
	for i := range liftX {
		m := collective - liftY[i]*mx + liftX[i]*my + liftYaw[i]*mz
		u[i] = math.Max(0, math.Min(1, m))
	}

	switch h.layout {
	case LayoutInno:
		u[4] = 0.5
		u[7] = h.params.Throttle
	case LayoutStandard:
		u[4] = h.params.Throttle
	}
	return u
}

// tilt returns roll and pitch of an FRD body in NED.
func tilt(q quat.Number) (roll, pitch float64) {
	w, x, y, z := q.Real, q.Imag, q.Jmag, q.Kmag
	roll = math.Atan2(2*(w*x+y*z), 1-2*(x*x+y*y))
	pitch = math.Asin(math.Max(-1, math.Min(1, 2*(w*y-z*x))))
	return roll, pitch
}
