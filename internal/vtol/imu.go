package vtol

import (
	"gonum.org/v1/gonum/spatial/r3"
)

// IMU returns the accelerometer and gyroscope readings in FRD: specific
// force and angular velocity plus bias and Gaussian noise. The IMU is
// mounted aligned with the body frame.
func (d *Dynamics) IMU() (acc, gyro r3.Vec) {
	var accVar, gyroVar float64
	if d.params != nil {
		accVar, gyroVar = d.params.AccVariance, d.params.GyroVariance
	}
	acc = r3.Add(r3.Add(d.state.fspecific, d.state.accBias), d.noise.vec(accVar))
	gyro = r3.Add(r3.Add(d.state.angularVel, d.state.gyroBias), d.noise.vec(gyroVar))
	return acc, gyro
}
