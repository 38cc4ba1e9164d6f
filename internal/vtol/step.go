package vtol

import (
	"context"

	"github.com/RaccoonlabDev/inno-vtol-dynamics/internal/dynamo"
	"gonum.org/v1/gonum/spatial/r3"
)

// Process advances the vehicle by dt seconds under cmd. With isCmdPercent
// the command is a normalized mixer output and goes through the configured
// mixer; otherwise it is taken as actuator values in physical units.
func (d *Dynamics) Process(dt float64, cmd []float64, isCmdPercent bool) {
	if !d.initialized() {
		d.warnThrottled("not-initialized", dynamo.ErrNotInitialized.Error())
		return
	}

	wind := d.wind()
	rbw := worldToBody(d.state.attitude)
	airspeed := d.bodyAirspeed(rbw, d.state.linearVel, wind)
	aoa := AngleOfAttack(airspeed)
	aos := AngleOfSideslip(airspeed)

	mapped := d.mapCommand(cmd, isCmdPercent)
	act := d.updateActuators(mapped, dt)

	faero, maero := d.Aerodynamics(airspeed, aoa, aos, act[actAileron], act[actElevator], act[actRudder])
	d.state.faero, d.state.maero = faero, maero
	d.Step(maero, faero, act[:], dt)
}

// Step integrates the rigid body one explicit Euler step under the given
// aerodynamic moment and force (body frame) and actuator values. Touching
// the ground (z >= 0 in NED) lands the vehicle.
func (d *Dynamics) Step(maero, faero r3.Vec, actuators []float64, dt float64) {
	p := d.params
	s := &d.state

	var act [actuatorChannels]float64
	copy(act[:], actuators)

	var thrust, torque [motorCount]float64
	for i := 0; i < motorCount; i++ {
		thrust[i], torque[i], s.motorsRPM[i] = d.tables.Thruster(act[i])
	}

	for i := 0; i < pusherMotor; i++ {
		s.fmotors[i] = r3.Vec{Z: -thrust[i]}
	}
	s.fmotors[pusherMotor] = r3.Vec{X: thrust[pusherMotor]}

	// Rotors 0 and 1 spin opposite to rotors 2 and 3.
	motorTorques := [motorCount]r3.Vec{
		{Z: torque[0]},
		{Z: torque[1]},
		{Z: -torque[2]},
		{Z: -torque[3]},
		{X: -torque[pusherMotor]},
	}

	mtotal := maero
	fsum := faero
	s.mmotorsTotal = r3.Vec{}
	for i := 0; i < motorCount; i++ {
		s.mmotors[i] = r3.Add(motorTorques[i], r3.Cross(p.PropellersLocation[i], s.fmotors[i]))
		s.mmotorsTotal = r3.Add(s.mmotorsTotal, s.mmotors[i])
		fsum = r3.Add(fsum, s.fmotors[i])
	}
	mtotal = r3.Add(mtotal, s.mmotorsTotal)

	s.angularAccel = angularAcceleration(p, mtotal, s.angularVel)
	s.angularVel = r3.Add(s.angularVel, r3.Scale(dt, s.angularAccel))
	s.attitude = integrateAttitude(s.attitude, s.angularVel, dt)

	rbw := worldToBody(s.attitude)
	fspecific := r3.Scale(1/p.Mass, fsum)
	gravity := mulVec(rbw, r3.Vec{Z: p.Gravity})
	ftotal := r3.Scale(p.Mass, r3.Add(fspecific, gravity))

	s.ftotal = ftotal
	s.mtotal = mtotal

	// R_b_w is orthonormal, its inverse is the transpose.
	s.linearAccel = r3.Scale(1/p.Mass, mulVec(rbw.T(), ftotal))
	s.linearVel = r3.Add(s.linearVel, r3.Scale(dt, s.linearAccel))
	s.position = r3.Add(s.position, r3.Scale(dt, s.linearVel))

	if s.position.Z >= 0 {
		d.Land()
	} else {
		s.fspecific = fspecific
	}

	s.bodyLinearVel = mulVec(rbw, s.linearVel)
}

// Calibrate holds the vehicle in the pose of calibration case c. Attitudes
// of the six-face cases are only reset when the case changes, so the
// vehicle keeps turning between calls.
func (d *Dynamics) Calibrate(c dynamo.CalibrationCase) {
	if !d.initialized() {
		d.warnThrottled("not-initialized", dynamo.ErrNotInitialized.Error())
		return
	}
	s := &d.state
	s.linearVel = r3.Vec{}
	s.position.Z = 0

	changed := d.prevCalibration != c
	if pose, ok := calibrationPoses[c]; ok {
		if pose.alwaysReset || changed {
			if pose.hasAttitude {
				s.attitude = pose.attitude
			}
		}
		s.angularVel = pose.rate
		if c == dynamo.Airspeed {
			s.linearVel = r3.Vec{X: 10, Y: 10}
		}
	}

	if changed {
		if d.throttle.Allow("init-cal") {
			d.log.Warn(context.Background(), "init cal", logFields(c)...)
		}
		d.prevCalibration = c
	} else if d.throttle.Allow("cal") {
		d.log.Warn(context.Background(), "cal", logFields(c)...)
	}

	s.fspecific = mulVec(worldToBody(s.attitude), r3.Vec{Z: -d.params.Gravity})
	s.attitude = integrateAttitude(s.attitude, s.angularVel, calibrationDt)
}
