package dynamo

import (
	"math"

	"github.com/RaccoonlabDev/inno-vtol-dynamics/internal/config"
	"gonum.org/v1/gonum/num/quat"
	"gonum.org/v1/gonum/spatial/r3"
)

// Notation names the world and body frames a backend works in.
type Notation string

const (
	NotationNED Notation = "NED/FRD"
	NotationENU Notation = "ENU/FLU"
)

// CalibrationCase selects a sensor calibration pose. Identifiers match the
// ground station protocol.
type CalibrationCase int

const (
	WorkMode CalibrationCase = iota
	Mag1Normal
	Mag2Overturned
	Mag3HeadDown
	Mag4HeadUp
	Mag5TurnedLeft
	Mag6TurnedRight
	Mag7ArdupilotGreen
	Mag8ArdupilotBlue
	Mag9ArdupilotRed
	Acc1Normal
	Acc2Overturned
	Acc3HeadDown
	Acc4HeadUp
	Acc5TurnedLeft
	Acc6TurnedRight
	Airspeed
)

// Dynamics is a flight dynamics backend. Implementations are not safe for
// concurrent use.
type Dynamics interface {
	Init(src config.Source) error
	SetInitialPosition(p r3.Vec, q quat.Number)
	SetInitialVelocity(v, w r3.Vec)

	Process(dt float64, cmd []float64, isCmdPercent bool)
	Calibrate(c CalibrationCase)
	Land()

	Position() r3.Vec
	Attitude() quat.Number
	Velocity() r3.Vec
	AngularVelocity() r3.Vec
	IMU() (acc, gyro r3.Vec)
	MotorsRPM() []float64
	Notation() Notation
}

// State is a flat snapshot of a vehicle: position, world velocity, attitude
// quaternion (w, x, y, z) and body angular velocity.
type State []float64

const (
	StatePX = iota
	StatePY
	StatePZ
	StateVX
	StateVY
	StateVZ
	StateQW
	StateQX
	StateQY
	StateQZ
	StateWX
	StateWY
	StateWZ
	StateDim
)

var stateNames = [StateDim]string{
	"px", "py", "pz", "vx", "vy", "vz", "qw", "qx", "qy", "qz", "wx", "wy", "wz",
}

// StateNames returns column labels in State order.
func StateNames() []string { return stateNames[:] }

// Snapshot reads the current state of d.
func Snapshot(d Dynamics) State {
	p, v, w := d.Position(), d.Velocity(), d.AngularVelocity()
	q := d.Attitude()
	return State{
		p.X, p.Y, p.Z,
		v.X, v.Y, v.Z,
		q.Real, q.Imag, q.Jmag, q.Kmag,
		w.X, w.Y, w.Z,
	}
}

func (s State) Position() r3.Vec        { return r3.Vec{X: s[StatePX], Y: s[StatePY], Z: s[StatePZ]} }
func (s State) Velocity() r3.Vec        { return r3.Vec{X: s[StateVX], Y: s[StateVY], Z: s[StateVZ]} }
func (s State) AngularVelocity() r3.Vec { return r3.Vec{X: s[StateWX], Y: s[StateWY], Z: s[StateWZ]} }

func (s State) Attitude() quat.Number {
	return quat.Number{Real: s[StateQW], Imag: s[StateQX], Jmag: s[StateQY], Kmag: s[StateQZ]}
}

func (s State) Clone() State {
	c := make(State, len(s))
	copy(c, s)
	return c
}

func (s State) IsValid() bool {
	for _, v := range s {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

func (s State) Norm() float64 {
	sum := 0.0
	for _, v := range s {
		sum += v * v
	}
	return math.Sqrt(sum)
}

func (s State) Add(other State) State {
	result := make(State, len(s))
	for i := range s {
		if i < len(other) {
			result[i] = s[i] + other[i]
		} else {
			result[i] = s[i]
		}
	}
	return result
}

func (s State) Scale(factor float64) State {
	result := make(State, len(s))
	for i := range s {
		result[i] = s[i] * factor
	}
	return result
}

// Control is an actuator command vector.
type Control []float64

// System is an ODE right-hand side dX/dt = f(X, u, t).
type System interface {
	Derive(x State, u Control, t float64) State
	StateDim() int
	ControlDim() int
}

type Integrator interface {
	Step(sys System, x State, u Control, t float64, dt float64) State
}

// Controller produces an actuator command from the latest snapshot.
type Controller interface {
	Compute(x State, t float64) Control
}

type Metric interface {
	Name() string
	Observe(x State, u Control, t float64)
	Value() float64
	Reset()
}

type Observer interface {
	OnStep(x State, u Control, t float64)
}

type Config struct {
	Dt            float64
	Duration      float64
	Seed          int64
	RecordEvery   int
	Percent       bool
	Calibration   CalibrationCase
	ValidateState bool
}

func DefaultConfig() Config {
	return Config{
		Dt:            config.DefaultDt,
		Duration:      config.DefaultDuration,
		RecordEvery:   10,
		Percent:       true,
		ValidateState: true,
	}
}

type Result struct {
	States     []State
	Controls   []Control
	Times      []float64
	Metrics    map[string]float64
	StepsTaken int
	Errors     []error
}
