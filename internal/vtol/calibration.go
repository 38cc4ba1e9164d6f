package vtol

import (
	"math"

	"github.com/RaccoonlabDev/inno-vtol-dynamics/internal/dynamo"
	"github.com/RaccoonlabDev/inno-vtol-dynamics/internal/logging"
	"gonum.org/v1/gonum/num/quat"
	"gonum.org/v1/gonum/spatial/r3"
)

const (
	calibrationDt = 1e-3

	// magRotationSpeed turns the vehicle once every 10 s.
	magRotationSpeed = 2 * math.Pi / 10
)

type calibrationPose struct {
	attitude    quat.Number
	hasAttitude bool
	alwaysReset bool
	rate        r3.Vec
}

var (
	attNormal     = quat.Number{Real: 1}
	attOverturned = quat.Number{Imag: 1}
	attHeadDown   = quat.Number{Real: 0.707, Jmag: -0.707}
	attHeadUp     = quat.Number{Real: 0.707, Jmag: 0.707}
	attLeft       = quat.Number{Real: 0.707, Imag: -0.707}
	attRight      = quat.Number{Real: 0.707, Imag: 0.707}
)

func face(att quat.Number, rate r3.Vec) calibrationPose {
	return calibrationPose{attitude: att, hasAttitude: true, rate: rate}
}

var calibrationPoses = map[dynamo.CalibrationCase]calibrationPose{
	dynamo.WorkMode: {attitude: attNormal, hasAttitude: true, alwaysReset: true},

	dynamo.Mag1Normal:      face(attNormal, r3.Vec{Z: -magRotationSpeed}),
	dynamo.Mag2Overturned:  face(attOverturned, r3.Vec{Z: magRotationSpeed}),
	dynamo.Mag3HeadDown:    face(attHeadDown, r3.Vec{X: -magRotationSpeed}),
	dynamo.Mag4HeadUp:      face(attHeadUp, r3.Vec{X: magRotationSpeed}),
	dynamo.Mag5TurnedLeft:  face(attLeft, r3.Vec{Y: magRotationSpeed}),
	dynamo.Mag6TurnedRight: face(attRight, r3.Vec{Y: -magRotationSpeed}),

	dynamo.Mag7ArdupilotGreen: {rate: r3.Vec{X: magRotationSpeed, Y: magRotationSpeed, Z: magRotationSpeed}},
	dynamo.Mag8ArdupilotBlue:  {rate: r3.Vec{X: -magRotationSpeed, Y: magRotationSpeed, Z: magRotationSpeed}},
	dynamo.Mag9ArdupilotRed:   {rate: r3.Vec{X: magRotationSpeed, Y: -magRotationSpeed, Z: magRotationSpeed}},

	dynamo.Acc1Normal:      face(attNormal, r3.Vec{}),
	dynamo.Acc2Overturned:  face(attOverturned, r3.Vec{}),
	dynamo.Acc3HeadDown:    face(attHeadDown, r3.Vec{}),
	dynamo.Acc4HeadUp:      face(attHeadUp, r3.Vec{}),
	dynamo.Acc5TurnedLeft:  face(attLeft, r3.Vec{}),
	dynamo.Acc6TurnedRight: face(attRight, r3.Vec{}),

	dynamo.Airspeed: {attitude: attNormal, hasAttitude: true, alwaysReset: true},
}

func logFields(c dynamo.CalibrationCase) []logging.Field {
	return []logging.Field{logging.Int("case", int(c))}
}

// PreviousCalibration returns the case of the last Calibrate call.
func (d *Dynamics) PreviousCalibration() dynamo.CalibrationCase { return d.prevCalibration }
