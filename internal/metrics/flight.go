// Package metrics holds per-run flight statistics computed from the state
// snapshots of a dynamo.Simulator.
package metrics

import (
	"math"

	"gonum.org/v1/gonum/num/quat"

	"github.com/RaccoonlabDev/inno-vtol-dynamics/internal/dynamo"
	"github.com/RaccoonlabDev/inno-vtol-dynamics/internal/observability"
)

type MaxAltitude struct {
	notation dynamo.Notation
	max      float64
}

func NewMaxAltitude(notation dynamo.Notation) *MaxAltitude {
	return &MaxAltitude{notation: notation}
}

func (m *MaxAltitude) Name() string { return "max_altitude" }

func (m *MaxAltitude) Observe(x dynamo.State, u dynamo.Control, t float64) {
	m.max = math.Max(m.max, observability.Altitude(m.notation, x))
}

func (m *MaxAltitude) Value() float64 { return m.max }
func (m *MaxAltitude) Reset()         { m.max = 0 }

// AttitudeDrift is the largest deviation of the attitude quaternion norm
// from one. Backends renormalize every step, so anything above rounding
// noise means an integration fault.
type AttitudeDrift struct {
	max float64
}

func NewAttitudeDrift() *AttitudeDrift { return &AttitudeDrift{} }

func (a *AttitudeDrift) Name() string { return "attitude_norm_drift" }

func (a *AttitudeDrift) Observe(x dynamo.State, u dynamo.Control, t float64) {
	a.max = math.Max(a.max, math.Abs(quat.Abs(x.Attitude())-1))
}

func (a *AttitudeDrift) Value() float64 { return a.max }
func (a *AttitudeDrift) Reset()         { a.max = 0 }

// GroundContacts counts touchdowns: transitions from above the ground plane
// to on it.
type GroundContacts struct {
	notation dynamo.Notation
	airborne bool
	count    int
}

func NewGroundContacts(notation dynamo.Notation) *GroundContacts {
	return &GroundContacts{notation: notation}
}

func (g *GroundContacts) Name() string { return "ground_contacts" }

func (g *GroundContacts) Observe(x dynamo.State, u dynamo.Control, t float64) {
	alt := observability.Altitude(g.notation, x)
	if g.airborne && alt <= 0 {
		g.count++
	}
	g.airborne = alt > 0
}

func (g *GroundContacts) Value() float64 { return float64(g.count) }

func (g *GroundContacts) Reset() {
	g.count = 0
	g.airborne = false
}

// AltitudeError is the mean absolute distance from a target altitude.
type AltitudeError struct {
	notation dynamo.Notation
	target   float64
	sum      float64
	n        int
}

func NewAltitudeError(notation dynamo.Notation, target float64) *AltitudeError {
	return &AltitudeError{notation: notation, target: target}
}

func (a *AltitudeError) Name() string { return "altitude_error" }

func (a *AltitudeError) Observe(x dynamo.State, u dynamo.Control, t float64) {
	a.sum += math.Abs(observability.Altitude(a.notation, x) - a.target)
	a.n++
}

func (a *AltitudeError) Value() float64 {
	if a.n == 0 {
		return 0
	}
	return a.sum / float64(a.n)
}

func (a *AltitudeError) Reset() {
	a.sum = 0
	a.n = 0
}

// Flight returns the standard metric set recorded with every run.
func Flight(notation dynamo.Notation, mass, gravity float64) []dynamo.Metric {
	return []dynamo.Metric{
		NewMaxAltitude(notation),
		NewAttitudeDrift(),
		NewGroundContacts(notation),
		NewLiftEffort(),
		NewPusherEffort(),
		NewSurfaceEffort(),
		NewLiftSaturation(),
		NewFlightEnvelope(notation, math.Pi/3, math.Pi),
		NewEnergy(mass, gravity, notation),
	}
}
