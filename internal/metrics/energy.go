package metrics

import (
	"github.com/RaccoonlabDev/inno-vtol-dynamics/internal/dynamo"
	"github.com/RaccoonlabDev/inno-vtol-dynamics/internal/observability"
)

// Energy is the mean mechanical energy of the vehicle over a run, kinetic
// translation plus potential above the ground plane. Rotation is ignored.
type Energy struct {
	name        string
	mass        float64
	gravity     float64
	notation    dynamo.Notation
	samples     int
	totalEnergy float64
}

func NewEnergy(mass, gravity float64, notation dynamo.Notation) *Energy {
	return &Energy{
		name:     "energy",
		mass:     mass,
		gravity:  gravity,
		notation: notation,
	}
}

func (e *Energy) Name() string { return e.name }

func (e *Energy) Observe(x dynamo.State, u dynamo.Control, t float64) {
	if len(x) < dynamo.StateDim {
		return
	}
	v := x.Velocity()
	ke := 0.5 * e.mass * (v.X*v.X + v.Y*v.Y + v.Z*v.Z)
	pe := e.mass * e.gravity * observability.Altitude(e.notation, x)
	e.totalEnergy += ke + pe
	e.samples++
}

func (e *Energy) Value() float64 {
	if e.samples == 0 {
		return 0
	}
	return e.totalEnergy / float64(e.samples)
}

func (e *Energy) Reset() {
	e.totalEnergy = 0
	e.samples = 0
}
