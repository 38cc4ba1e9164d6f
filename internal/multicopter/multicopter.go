// Package multicopter is a quadrotor backend in ENU/FLU notation. Rotor
// speeds follow a first-order lag and the rigid body is advanced by a
// fixed-step integrator over the dynamo.System derivative.
package multicopter

import (
	"context"
	"math"
	"time"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/num/quat"
	"gonum.org/v1/gonum/spatial/r3"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/RaccoonlabDev/inno-vtol-dynamics/internal/config"
	"github.com/RaccoonlabDev/inno-vtol-dynamics/internal/dynamo"
	"github.com/RaccoonlabDev/inno-vtol-dynamics/internal/integrators"
	"github.com/RaccoonlabDev/inno-vtol-dynamics/internal/logging"
)

const Name = "flightgoggles_multicopter"

// inputOrder maps model rotor i to the autopilot channel that drives it.
// Autopilot: front right, tail left, front left, tail right.
// Model: front left, tail left, tail right, front right.
var inputOrder = [rotorCount]int{2, 1, 3, 0}

type Option func(*Dynamics)

func WithLogger(l logging.Logger) Option {
	return func(d *Dynamics) { d.log = l }
}

func WithSeed(seed int64) Option {
	return func(d *Dynamics) {
		d.noise = distuv.Normal{Mu: 0, Sigma: 1, Src: rand.NewSource(uint64(seed))}
	}
}

// WithIntegrator replaces the default RK4 stepper.
func WithIntegrator(integ dynamo.Integrator) Option {
	return func(d *Dynamics) { d.integ = integ }
}

// Dynamics is the quadrotor backend. It is not safe for concurrent use.
type Dynamics struct {
	params *Params
	body   *rigidBody
	integ  dynamo.Integrator

	x      dynamo.State
	rotors dynamo.Control
	t      float64

	initialPosition r3.Vec
	initialAttitude quat.Number
	specificForce   r3.Vec

	log      logging.Logger
	throttle *logging.Throttle
	noise    distuv.Normal
}

var _ dynamo.Dynamics = (*Dynamics)(nil)

func New(opts ...Option) *Dynamics {
	d := &Dynamics{
		integ:           integrators.NewRK4(),
		x:               make(dynamo.State, dynamo.StateDim),
		rotors:          make(dynamo.Control, rotorCount),
		initialAttitude: quat.Number{Real: 1},
		log:             logging.Noop(),
		throttle:        logging.NewThrottle(time.Second),
	}
	d.x[dynamo.StateQW] = 1
	WithSeed(0)(d)
	for _, opt := range opts {
		opt(d)
	}
	return d
}

func (d *Dynamics) Init(src config.Source) error {
	p, err := LoadParams(src)
	if err != nil {
		return err
	}
	d.params = p
	d.body = &rigidBody{p: p}
	d.specificForce = rotateInverse(d.Attitude(), r3.Vec{Z: p.Gravity})
	return nil
}

func (d *Dynamics) Params() *Params { return d.params }

func (d *Dynamics) SetInitialPosition(p r3.Vec, q quat.Number) {
	d.initialPosition = p
	d.initialAttitude = q
	d.setPose(p, q)
}

func (d *Dynamics) SetInitialVelocity(v, w r3.Vec) {
	d.x[dynamo.StateVX], d.x[dynamo.StateVY], d.x[dynamo.StateVZ] = v.X, v.Y, v.Z
	d.x[dynamo.StateWX], d.x[dynamo.StateWY], d.x[dynamo.StateWZ] = w.X, w.Y, w.Z
}

func (d *Dynamics) setPose(p r3.Vec, q quat.Number) {
	d.x[dynamo.StatePX], d.x[dynamo.StatePY], d.x[dynamo.StatePZ] = p.X, p.Y, p.Z
	d.x[dynamo.StateQW], d.x[dynamo.StateQX] = q.Real, q.Imag
	d.x[dynamo.StateQY], d.x[dynamo.StateQZ] = q.Jmag, q.Kmag
}

// Process maps the four autopilot channels to rotor speed targets, lags the
// rotors toward them and integrates the body over dt. Percent commands are
// fractions of MaxRotorSpeed; raw commands are rotor speeds in rad/s.
func (d *Dynamics) Process(dt float64, cmd []float64, isCmdPercent bool) {
	if d.params == nil {
		d.warn("not-initialized", "process called before init")
		return
	}
	if err := dynamo.CheckCommandSize(cmd, rotorCount); err != nil {
		d.warn("cmd-size", err.Error())
	}

	var alpha float64
	if dt > 0 {
		alpha = 1 - math.Exp(-dt/d.params.MotorTimeConstant)
	}
	for i, ch := range inputOrder {
		var target float64
		if ch < len(cmd) {
			target = cmd[ch]
		}
		if isCmdPercent {
			target *= d.params.MaxRotorSpeed
		}
		target = math.Max(0, math.Min(target, d.params.MaxRotorSpeed))
		d.rotors[i] += (target - d.rotors[i]) * alpha
	}

	d.x = d.integ.Step(d.body, d.x, d.rotors, d.t, dt)
	d.t += dt
	q := unit(d.x.Attitude())
	d.x[dynamo.StateQW], d.x[dynamo.StateQX] = q.Real, q.Imag
	d.x[dynamo.StateQY], d.x[dynamo.StateQZ] = q.Jmag, q.Kmag

	if d.x[dynamo.StatePZ] <= 0 {
		d.x[dynamo.StatePZ] = 0
		for _, i := range []int{dynamo.StateVX, dynamo.StateVY, dynamo.StateVZ, dynamo.StateWX, dynamo.StateWY, dynamo.StateWZ} {
			d.x[i] = 0
		}
		d.specificForce = rotateInverse(q, r3.Vec{Z: d.params.Gravity})
		return
	}
	acc := d.body.acceleration(d.x, d.rotors)
	d.specificForce = rotateInverse(q, r3.Add(acc, r3.Vec{Z: d.params.Gravity}))
}

// Calibrate is not supported by this backend; the vehicle keeps its state.
func (d *Dynamics) Calibrate(c dynamo.CalibrationCase) {
	d.warn("calibrate", "calibration is not supported by the multicopter dynamics",
		logging.Int("case", int(c)))
}

// Land puts the vehicle on the ground below its initial position.
func (d *Dynamics) Land() {
	p := d.initialPosition
	p.Z = 0
	d.setPose(p, d.initialAttitude)
	d.SetInitialVelocity(r3.Vec{}, r3.Vec{})
	for i := range d.rotors {
		d.rotors[i] = 0
	}
	if d.params != nil {
		d.specificForce = rotateInverse(unit(d.initialAttitude), r3.Vec{Z: d.params.Gravity})
	}
}

func (d *Dynamics) Notation() dynamo.Notation { return dynamo.NotationENU }

func (d *Dynamics) Position() r3.Vec        { return d.x.Position() }
func (d *Dynamics) Attitude() quat.Number   { return d.x.Attitude() }
func (d *Dynamics) Velocity() r3.Vec        { return d.x.Velocity() }
func (d *Dynamics) AngularVelocity() r3.Vec { return d.x.AngularVelocity() }
func (d *Dynamics) SpecificForce() r3.Vec   { return d.specificForce }

// IMU returns FLU specific force and angular velocity with Gaussian noise.
func (d *Dynamics) IMU() (acc, gyro r3.Vec) {
	var accVar, gyroVar float64
	if d.params != nil {
		accVar, gyroVar = d.params.AccVariance, d.params.GyroVariance
	}
	return r3.Add(d.specificForce, d.sample(accVar)), r3.Add(d.AngularVelocity(), d.sample(gyroVar))
}

func (d *Dynamics) sample(variance float64) r3.Vec {
	s := math.Sqrt(variance)
	return r3.Vec{X: s * d.noise.Rand(), Y: s * d.noise.Rand(), Z: s * d.noise.Rand()}
}

// MotorsRPM reports rotor speeds in autopilot channel order.
func (d *Dynamics) MotorsRPM() []float64 {
	rpm := make([]float64, rotorCount)
	for i, ch := range inputOrder {
		rpm[ch] = d.rotors[i] * 60 / (2 * math.Pi)
	}
	return rpm
}

// RotorSpeeds returns rad/s in model order.
func (d *Dynamics) RotorSpeeds() []float64 {
	return append([]float64(nil), d.rotors...)
}

func (d *Dynamics) warn(key, msg string, fields ...logging.Field) {
	if d.throttle.Allow(key) {
		d.log.Warn(context.Background(), msg, fields...)
	}
}
