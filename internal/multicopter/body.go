package multicopter

import (
	"math"

	"github.com/RaccoonlabDev/inno-vtol-dynamics/internal/dynamo"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/num/quat"
	"gonum.org/v1/gonum/spatial/r3"
)

const rotorCount = 4

// rotor geometry in model order: front left, tail left, tail right, front
// right. spin is the sign of the reaction torque about body z (up).
var (
	rotorX    = [rotorCount]float64{1, -1, -1, 1}
	rotorY    = [rotorCount]float64{1, 1, -1, -1}
	rotorSpin = [rotorCount]float64{1, -1, 1, -1}
)

// rigidBody is the 13-state equation of motion of the quadrotor in ENU/FLU.
// The control is the four rotor speeds in rad/s, model order.
type rigidBody struct {
	p *Params
}

var _ dynamo.System = (*rigidBody)(nil)

func (b *rigidBody) StateDim() int   { return dynamo.StateDim }
func (b *rigidBody) ControlDim() int { return rotorCount }

// wrench returns the body force and moment produced by the rotors.
func (b *rigidBody) wrench(rotors dynamo.Control) (force, moment r3.Vec) {
	arm := b.p.ArmLength / math.Sqrt2
	for i := 0; i < rotorCount && i < len(rotors); i++ {
		w2 := rotors[i] * rotors[i]
		thrust := b.p.ThrustCoefficient * w2
		force.Z += thrust
		moment.X += arm * rotorY[i] * thrust
		moment.Y -= arm * rotorX[i] * thrust
		moment.Z += rotorSpin[i] * b.p.TorqueCoefficient * w2
	}
	return force, moment
}

// acceleration is the world-frame linear acceleration, gravity included.
func (b *rigidBody) acceleration(x dynamo.State, rotors dynamo.Control) r3.Vec {
	force, _ := b.wrench(rotors)
	q := unit(x.Attitude())
	thrust := r3.Scale(1/b.p.Mass, rotate(q, force))
	drag := r3.Scale(-b.p.DragCoefficient/b.p.Mass, x.Velocity())
	return r3.Add(r3.Add(thrust, drag), r3.Vec{Z: -b.p.Gravity})
}

func (b *rigidBody) Derive(x dynamo.State, u dynamo.Control, t float64) dynamo.State {
	dx := make(dynamo.State, dynamo.StateDim)

	v := x.Velocity()
	dx[dynamo.StatePX], dx[dynamo.StatePY], dx[dynamo.StatePZ] = v.X, v.Y, v.Z

	a := b.acceleration(x, u)
	dx[dynamo.StateVX], dx[dynamo.StateVY], dx[dynamo.StateVZ] = a.X, a.Y, a.Z

	w := x.AngularVelocity()
	qdot := quat.Scale(0.5, quat.Mul(x.Attitude(), quat.Number{Imag: w.X, Jmag: w.Y, Kmag: w.Z}))
	dx[dynamo.StateQW], dx[dynamo.StateQX] = qdot.Real, qdot.Imag
	dx[dynamo.StateQY], dx[dynamo.StateQZ] = qdot.Jmag, qdot.Kmag

	_, moment := b.wrench(u)
	gyroscopic := r3.Cross(w, mulVec(b.p.Inertia, w))
	alpha := mulVec(b.p.InertiaInv, r3.Sub(moment, gyroscopic))
	dx[dynamo.StateWX], dx[dynamo.StateWY], dx[dynamo.StateWZ] = alpha.X, alpha.Y, alpha.Z

	return dx
}

// rotate maps a body vector into the world frame: q (0, v) q*.
func rotate(q quat.Number, v r3.Vec) r3.Vec {
	r := quat.Mul(quat.Mul(q, quat.Number{Imag: v.X, Jmag: v.Y, Kmag: v.Z}), quat.Conj(q))
	return r3.Vec{X: r.Imag, Y: r.Jmag, Z: r.Kmag}
}

// rotateInverse maps a world vector into the body frame.
func rotateInverse(q quat.Number, v r3.Vec) r3.Vec {
	return rotate(quat.Conj(q), v)
}

func unit(q quat.Number) quat.Number {
	n := quat.Abs(q)
	if n == 0 {
		return quat.Number{Real: 1}
	}
	return quat.Scale(1/n, q)
}

func mulVec(m mat.Matrix, v r3.Vec) r3.Vec {
	var out mat.VecDense
	out.MulVec(m, mat.NewVecDense(3, []float64{v.X, v.Y, v.Z}))
	return r3.Vec{X: out.AtVec(0), Y: out.AtVec(1), Z: out.AtVec(2)}
}
