// Package vtol implements the flight dynamics of a hybrid VTOL: four lift
// rotors, a pusher engine and aileron, elevator and rudder surfaces driven
// by tabulated aerodynamics. World frame is NED, body frame is FRD.
package vtol

import (
	"context"
	"time"

	"github.com/RaccoonlabDev/inno-vtol-dynamics/internal/config"
	"github.com/RaccoonlabDev/inno-vtol-dynamics/internal/dynamo"
	"github.com/RaccoonlabDev/inno-vtol-dynamics/internal/logging"
	"gonum.org/v1/gonum/num/quat"
	"gonum.org/v1/gonum/spatial/r3"
)

const Name = "inno_vtol"

// Mixer selects how percent commands are mapped to actuators.
type Mixer string

const (
	MixerInno     Mixer = "inno"
	MixerStandard Mixer = "standard"
)

type Option func(*Dynamics)

func WithLogger(l logging.Logger) Option {
	return func(d *Dynamics) { d.log = l }
}

func WithMixer(m Mixer) Option {
	return func(d *Dynamics) { d.mixer = m }
}

func WithSeed(seed int64) Option {
	return func(d *Dynamics) { d.noise = newNoise(seed) }
}

type state struct {
	position     r3.Vec
	linearVel    r3.Vec
	linearAccel  r3.Vec
	attitude     quat.Number
	angularVel   r3.Vec
	angularAccel r3.Vec

	initialPosition r3.Vec
	initialAttitude quat.Number

	fspecific     r3.Vec
	faero, maero  r3.Vec
	flift, fside  r3.Vec
	fdrag         r3.Vec
	msteer        r3.Vec
	mairspeed     r3.Vec
	ftotal        r3.Vec
	mtotal        r3.Vec
	mmotorsTotal  r3.Vec
	bodyLinearVel r3.Vec
	fmotors       [motorCount]r3.Vec
	mmotors       [motorCount]r3.Vec
	motorsRPM     [motorCount]float64

	// Lagged actuator values. The lag reads the previous values from here
	// and overwrites them with the new ones.
	actuators [actuatorChannels]float64

	windMean     r3.Vec
	windVariance float64
	accBias      r3.Vec
	gyroBias     r3.Vec
}

// Dynamics is the VTOL backend. It is not safe for concurrent use.
type Dynamics struct {
	params *Params
	tables *Tables
	mixer  Mixer
	state  state

	prevCalibration dynamo.CalibrationCase

	log      logging.Logger
	throttle *logging.Throttle
	noise    *noise
	failed   map[string]bool
}

var _ dynamo.Dynamics = (*Dynamics)(nil)

func New(opts ...Option) *Dynamics {
	d := &Dynamics{
		mixer:    MixerInno,
		log:      logging.Noop(),
		throttle: logging.NewThrottle(time.Second),
		noise:    newNoise(0),
		failed:   make(map[string]bool),
	}
	d.state.attitude = quat.Number{Real: 1}
	d.state.initialAttitude = d.state.attitude
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Init loads tables and vehicle parameters from src.
func (d *Dynamics) Init(src config.Source) error {
	tables, err := LoadTables(src)
	if err != nil {
		return err
	}
	params, err := LoadParams(src)
	if err != nil {
		return err
	}
	d.tables = tables
	d.params = params
	d.state.fspecific = r3.Vec{Z: -params.Gravity}
	return nil
}

func (d *Dynamics) initialized() bool { return d.params != nil && d.tables != nil }

// SetInitialPosition sets the pose and remembers the attitude restored on
// landing. The attitude is stored as given.
func (d *Dynamics) SetInitialPosition(p r3.Vec, q quat.Number) {
	d.state.position = p
	d.state.attitude = q
	d.state.initialPosition = p
	d.state.initialAttitude = q
}

func (d *Dynamics) SetInitialVelocity(v, w r3.Vec) {
	d.state.linearVel = v
	d.state.angularVel = w
}

// SetWind sets the mean wind velocity (world frame) and its per-axis variance.
func (d *Dynamics) SetWind(mean r3.Vec, variance float64) {
	d.state.windMean = mean
	d.state.windVariance = variance
}

func (d *Dynamics) SetIMUBias(acc, gyro r3.Vec) {
	d.state.accBias = acc
	d.state.gyroBias = gyro
}

func (d *Dynamics) SetMixer(m Mixer) { d.mixer = m }

// Land puts the vehicle at rest on the ground: specific force equals
// -gravity, velocities are zeroed, z is zero and the initial attitude is
// restored.
func (d *Dynamics) Land() {
	s := &d.state
	s.fspecific = r3.Vec{Z: -d.gravity()}
	s.linearVel = r3.Vec{}
	s.position.Z = 0
	s.attitude = s.initialAttitude
	s.angularVel = r3.Vec{}
	for i := range s.motorsRPM {
		s.motorsRPM[i] = 0
	}
}

func (d *Dynamics) gravity() float64 {
	if d.params == nil {
		return 0
	}
	return d.params.Gravity
}

func (d *Dynamics) Notation() dynamo.Notation { return dynamo.NotationNED }

func (d *Dynamics) Position() r3.Vec        { return d.state.position }
func (d *Dynamics) Attitude() quat.Number   { return d.state.attitude }
func (d *Dynamics) Velocity() r3.Vec        { return d.state.linearVel }
func (d *Dynamics) AngularVelocity() r3.Vec { return d.state.angularVel }

func (d *Dynamics) MotorsRPM() []float64 {
	out := make([]float64, motorCount)
	copy(out, d.state.motorsRPM[:])
	return out
}

// Diagnostics.

func (d *Dynamics) Faero() r3.Vec               { return d.state.faero }
func (d *Dynamics) Maero() r3.Vec               { return d.state.maero }
func (d *Dynamics) Flift() r3.Vec               { return d.state.flift }
func (d *Dynamics) Fside() r3.Vec               { return d.state.fside }
func (d *Dynamics) Fdrag() r3.Vec               { return d.state.fdrag }
func (d *Dynamics) Msteer() r3.Vec              { return d.state.msteer }
func (d *Dynamics) Mairspeed() r3.Vec           { return d.state.mairspeed }
func (d *Dynamics) Ftotal() r3.Vec              { return d.state.ftotal }
func (d *Dynamics) Mtotal() r3.Vec              { return d.state.mtotal }
func (d *Dynamics) MmotorsTotal() r3.Vec        { return d.state.mmotorsTotal }
func (d *Dynamics) BodyLinearVelocity() r3.Vec  { return d.state.bodyLinearVel }
func (d *Dynamics) LinearAcceleration() r3.Vec  { return d.state.linearAccel }
func (d *Dynamics) AngularAcceleration() r3.Vec { return d.state.angularAccel }
func (d *Dynamics) SpecificForce() r3.Vec       { return d.state.fspecific }

func (d *Dynamics) Fmotors() []r3.Vec {
	return append([]r3.Vec(nil), d.state.fmotors[:]...)
}

func (d *Dynamics) Mmotors() []r3.Vec {
	return append([]r3.Vec(nil), d.state.mmotors[:]...)
}

// Actuators returns the lagged actuator values of the last Process call.
func (d *Dynamics) Actuators() []float64 {
	return append([]float64(nil), d.state.actuators[:]...)
}

func (d *Dynamics) Params() *Params { return d.params }
func (d *Dynamics) Tables() *Tables { return d.tables }

// warnThrottled logs at most once per second per key.
func (d *Dynamics) warnThrottled(key, msg string, fields ...logging.Field) {
	if d.throttle.Allow(key) {
		d.log.Warn(context.Background(), msg, fields...)
	}
}

// warnOnce logs the first failure of a table lookup channel.
func (d *Dynamics) warnOnce(key string, err error) {
	if d.failed[key] {
		return
	}
	d.failed[key] = true
	d.log.Error(context.Background(), "aerodynamic table lookup failed",
		logging.String("table", key), logging.String("error", err.Error()))
}
