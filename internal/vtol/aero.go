package vtol

import (
	"math"

	"github.com/RaccoonlabDev/inno-vtol-dynamics/internal/numeric"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r3"
)

const (
	minAirspeed      = 1e-3
	maxAirspeedAxis  = 40.0
	tableMinAirspeed = 5.0
	tableMaxAirspeed = 40.0
	maxAoADeg        = 45.0
	maxAoSDeg        = 90.0
)

// AngleOfAttack returns the angle of attack of a body-frame airspeed in
// radians, in (-pi, pi]. Airspeed along the body x-z plane below 1 mm/s
// gives 0.
func AngleOfAttack(airspeed r3.Vec) float64 {
	a := math.Hypot(airspeed.X, airspeed.Z)
	if a < minAirspeed {
		return 0
	}
	s := numeric.Clamp(airspeed.Z/a, -1, 1)
	var aoa float64
	if airspeed.X > 0 {
		aoa = math.Asin(s)
	} else {
		aoa = math.Pi - math.Asin(s)
	}
	if aoa > math.Pi {
		aoa -= 2 * math.Pi
	}
	return aoa
}

// AngleOfSideslip returns asin(vy/|v|), or 0 for airspeeds below 1 mm/s.
func AngleOfSideslip(airspeed r3.Vec) float64 {
	n := r3.Norm(airspeed)
	if n < minAirspeed {
		return 0
	}
	return math.Asin(numeric.Clamp(airspeed.Y/n, -1, 1))
}

// bodyAirspeed rotates the relative wind into the body frame and clamps
// each axis to the table range.
func (d *Dynamics) bodyAirspeed(rbw mat.Matrix, vel, wind r3.Vec) r3.Vec {
	air := mulVec(rbw, r3.Sub(vel, wind))
	if math.Abs(air.X) > maxAirspeedAxis || math.Abs(air.Y) > maxAirspeedAxis || math.Abs(air.Z) > maxAirspeedAxis {
		air.X = numeric.Clamp(air.X, -maxAirspeedAxis, maxAirspeedAxis)
		air.Y = numeric.Clamp(air.Y, -maxAirspeedAxis, maxAirspeedAxis)
		air.Z = numeric.Clamp(air.Z, -maxAirspeedAxis, maxAirspeedAxis)
		d.warnThrottled("airspeed", "airspeed is out of limit")
	}
	return air
}

// polynomial evaluates the coefficient polynomial of table at angle,
// interpolated for the given airspeed. Only the first n coefficients are
// used when n > 0. A broken table yields 0.
func (d *Dynamics) polynomial(name string, table [][]float64, airspeed, angle float64, n int) float64 {
	coeffs, err := numeric.PolynomialFromTable(table, airspeed)
	if err != nil {
		d.warnOnce(name, err)
		return 0
	}
	if n > 0 && n < len(coeffs) {
		coeffs = coeffs[:n]
	}
	return numeric.Polyval(coeffs, angle)
}

func (d *Dynamics) grid(name string, x []float64, z [][]float64, xv, airspeed float64) float64 {
	v, err := numeric.Griddata(x, d.tables.Airspeed, z, xv, airspeed)
	if err != nil {
		d.warnOnce(name, err)
		return 0
	}
	return v
}

// Aerodynamics computes the aerodynamic force and moment in the body frame
// for the given airspeed, flow angles and surface deflections, and records
// the per-component breakdown.
func (d *Dynamics) Aerodynamics(airspeed r3.Vec, aoa, aos, aileron, elevator, rudder float64) (faero, maero r3.Vec) {
	t := d.tables
	p := d.params

	aoaDeg := numeric.Clamp(aoa*180/math.Pi, -maxAoADeg, maxAoADeg)
	aosDeg := numeric.Clamp(aos*180/math.Pi, -maxAoSDeg, maxAoSDeg)
	speed := r3.Norm(airspeed)
	dynamicPressure := p.AtmoRho * speed * speed * p.WingArea
	clamped := numeric.Clamp(speed, tableMinAirspeed, tableMaxAirspeed)

	var unit r3.Vec
	if speed > 0 {
		unit = r3.Scale(1/speed, airspeed)
	}
	liftDir := r3.Cross(r3.Vec{Y: 1}, unit)

	cl := d.polynomial("CLPolynomial", t.CL, clamped, aoaDeg, 0)
	fl := r3.Scale(cl, liftDir)

	cs := d.polynomial("CSPolynomial", t.CS, clamped, aoaDeg, 0)
	csRudder := d.grid("CS_rudder_table", t.negActuator, t.CSRudder, rudder, clamped)
	csBeta := d.grid("CS_beta", t.negAoS, t.CSBeta, aosDeg, clamped)
	fs := r3.Scale(cs+csRudder+csBeta, r3.Cross(airspeed, liftDir))

	cd := d.polynomial("CDPolynomial", t.CD, clamped, aoaDeg, 5)
	fd := r3.Scale(-cd, unit)

	half := 0.5 * dynamicPressure
	faero = r3.Scale(half, r3.Add(r3.Add(fl, fs), fd))

	cmx := d.polynomial("CmxPolynomial", t.Cmx, clamped, aoaDeg, 0)
	cmy := d.polynomial("CmyPolynomial", t.Cmy, clamped, aoaDeg, 0)
	cmz := -d.polynomial("CmzPolynomial", t.Cmz, clamped, aoaDeg, 0)

	cmxAileron := d.grid("CmxAileron", t.Actuator, t.CmxAileron, aileron, clamped)
	// The elevator table is symmetric: the deflection sign is applied below.
	cmyElevator := d.grid("CmyElevator", t.Actuator, t.CmyElevator, math.Abs(elevator), clamped)
	cmzRudder := d.grid("CmzRudder", t.Actuator, t.CmzRudder, rudder, clamped)

	steer := r3.Vec{X: cmxAileron * aileron, Y: cmyElevator * elevator, Z: cmzRudder * rudder}
	base := r3.Vec{X: cmx, Y: cmy, Z: cmz}

	halfL := half * p.CharacteristicLength
	maero = r3.Scale(halfL, r3.Add(base, steer))

	s := &d.state
	s.flift = r3.Scale(half, fl)
	s.fside = r3.Scale(half, fs)
	s.fdrag = r3.Scale(half, fd)
	s.msteer = r3.Scale(halfL, steer)
	s.mairspeed = r3.Scale(halfL, base)
	return faero, maero
}
