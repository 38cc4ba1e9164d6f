// Package csconv converts vectors and attitudes between the PX4 NED/FRD
// convention and the ROS ENU/FLU convention.
package csconv

import (
	"math"

	"gonum.org/v1/gonum/num/quat"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/RaccoonlabDev/inno-vtol-dynamics/internal/dynamo"
)

var (
	// nedEnu swaps north and east and flips down to up.
	nedEnu = quat.Number{Imag: math.Sqrt2 / 2, Jmag: math.Sqrt2 / 2}
	// frdFlu is a half turn about the forward axis.
	frdFlu = quat.Number{Imag: 1}
)

func NedToEnu(v r3.Vec) r3.Vec { return r3.Vec{X: v.Y, Y: v.X, Z: -v.Z} }
func EnuToNed(v r3.Vec) r3.Vec { return r3.Vec{X: v.Y, Y: v.X, Z: -v.Z} }
func FrdToFlu(v r3.Vec) r3.Vec { return r3.Vec{X: v.X, Y: -v.Y, Z: -v.Z} }
func FluToFrd(v r3.Vec) r3.Vec { return r3.Vec{X: v.X, Y: -v.Y, Z: -v.Z} }

// NedFrdToEnuFlu converts the attitude of an FRD body in a NED world into
// the attitude of the same body as FLU in ENU.
func NedFrdToEnuFlu(q quat.Number) quat.Number {
	return quat.Mul(quat.Mul(nedEnu, q), frdFlu)
}

// EnuFluToNedFrd is the inverse of NedFrdToEnuFlu. Both fixed rotations are
// half turns, so the same product applies.
func EnuFluToNedFrd(q quat.Number) quat.Number {
	return quat.Mul(quat.Mul(nedEnu, q), frdFlu)
}

// Pose is the kinematic state of a vehicle in one notation. Linear velocity
// is in the world frame, angular velocity in the body frame.
type Pose struct {
	Position        r3.Vec
	Attitude        quat.Number
	Velocity        r3.Vec
	AngularVelocity r3.Vec
}

// ToEnu reads d and returns its pose in ENU/FLU whatever the backend uses.
func ToEnu(d dynamo.Dynamics) Pose {
	p := Pose{
		Position:        d.Position(),
		Attitude:        d.Attitude(),
		Velocity:        d.Velocity(),
		AngularVelocity: d.AngularVelocity(),
	}
	if d.Notation() == dynamo.NotationENU {
		return p
	}
	return Pose{
		Position:        NedToEnu(p.Position),
		Attitude:        NedFrdToEnuFlu(p.Attitude),
		Velocity:        NedToEnu(p.Velocity),
		AngularVelocity: FrdToFlu(p.AngularVelocity),
	}
}

// ToNed reads d and returns its pose in NED/FRD.
func ToNed(d dynamo.Dynamics) Pose {
	p := Pose{
		Position:        d.Position(),
		Attitude:        d.Attitude(),
		Velocity:        d.Velocity(),
		AngularVelocity: d.AngularVelocity(),
	}
	if d.Notation() == dynamo.NotationNED {
		return p
	}
	return Pose{
		Position:        EnuToNed(p.Position),
		Attitude:        EnuFluToNedFrd(p.Attitude),
		Velocity:        EnuToNed(p.Velocity),
		AngularVelocity: FluToFrd(p.AngularVelocity),
	}
}

// Euler returns roll, pitch and yaw (Z-Y-X) of an FRD body attitude in NED.
func Euler(q quat.Number) (roll, pitch, yaw float64) {
	w, x, y, z := q.Real, q.Imag, q.Jmag, q.Kmag
	roll = math.Atan2(2*(w*x+y*z), 1-2*(x*x+y*y))
	pitch = math.Asin(math.Max(-1, math.Min(1, 2*(w*y-z*x))))
	yaw = math.Atan2(2*(w*z+x*y), 1-2*(y*y+z*z))
	return roll, pitch, yaw
}
