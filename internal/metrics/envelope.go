package metrics

import (
	"math"

	"github.com/RaccoonlabDev/inno-vtol-dynamics/internal/dynamo"
	"github.com/RaccoonlabDev/inno-vtol-dynamics/internal/observability"
)

// Tilt returns the angle between the body vertical axis and the world
// vertical in radians. It holds for FRD in NED and FLU in ENU alike.
func Tilt(x dynamo.State) float64 {
	a := x.Attitude()
	n := a.Real*a.Real + a.Imag*a.Imag + a.Jmag*a.Jmag + a.Kmag*a.Kmag
	if n == 0 {
		return 0
	}
	cos := 1 - 2*(a.Imag*a.Imag+a.Jmag*a.Jmag)/n
	return math.Acos(math.Max(-1, math.Min(1, cos)))
}

// FlightEnvelope is the fraction of airborne samples with tilt below
// maxTilt and every body rate below maxRate. Samples on the ground are
// not counted.
type FlightEnvelope struct {
	notation   dynamo.Notation
	maxTilt    float64
	maxRate    float64
	violations int
	samples    int
}

func NewFlightEnvelope(notation dynamo.Notation, maxTilt, maxRate float64) *FlightEnvelope {
	return &FlightEnvelope{notation: notation, maxTilt: maxTilt, maxRate: maxRate}
}

func (f *FlightEnvelope) Name() string { return "flight_envelope" }

func (f *FlightEnvelope) Observe(x dynamo.State, u dynamo.Control, t float64) {
	if len(x) < dynamo.StateDim || observability.Altitude(f.notation, x) <= 0 {
		return
	}
	f.samples++
	w := x.AngularVelocity()
	rate := math.Max(math.Abs(w.X), math.Max(math.Abs(w.Y), math.Abs(w.Z)))
	if Tilt(x) > f.maxTilt || rate > f.maxRate {
		f.violations++
	}
}

func (f *FlightEnvelope) Value() float64 {
	if f.samples == 0 {
		return 1
	}
	return 1 - float64(f.violations)/float64(f.samples)
}

func (f *FlightEnvelope) Reset() {
	f.violations = 0
	f.samples = 0
}
