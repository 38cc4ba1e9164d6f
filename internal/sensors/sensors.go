// Package sensors turns the state of a dynamics backend into periodic
// sensor messages. Each sensor publishes at its own period; all of them are
// sampled from the same publication loop.
package sensors

import (
	"math"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/num/quat"
	"gonum.org/v1/gonum/spatial/r3"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/RaccoonlabDev/inno-vtol-dynamics/internal/config"
	"github.com/RaccoonlabDev/inno-vtol-dynamics/internal/csconv"
	"github.com/RaccoonlabDev/inno-vtol-dynamics/internal/dynamo"
)

// Publication periods in seconds.
const (
	PeriodAttitude = 0.005
	PeriodIMU      = 0.00333
	PeriodVelocity = 0.05
	PeriodMag      = 0.03
	PeriodAirData  = 0.05
	PeriodGPS      = 0.1
	PeriodESC      = 0.25
	PeriodICE      = 0.25
	PeriodFuel     = 2.0
	PeriodBattery  = 1.0
)

const (
	fuelDrainPerCycle = 0.002
	batteryPercent    = 90.0
	magNoiseVariance  = 1e-8
)

// earthField is the reference magnetic field in NED, Gauss.
var earthField = r3.Vec{X: 0.21, Y: 0.01, Z: 0.42}

type sensor struct {
	period  float64
	next    float64
	enabled bool
}

// due reports whether the sensor should publish at now and schedules the
// next publication on a fixed grid. A sensor that fell more than a period
// behind restarts its grid at now.
func (s *sensor) due(now float64) bool {
	if !s.enabled || now < s.next {
		return false
	}
	s.next += s.period
	if s.next <= now {
		s.next = now + s.period
	}
	return true
}

// Suite holds every sensor of the vehicle. It is not safe for concurrent use.
type Suite struct {
	sink Sink
	ref  config.GeoReference

	attitude, imu, velocity, mag, airData, gps sensor
	esc, ice, fuel, battery                    sensor

	nextESC int
	fuelPct float64
	engine  *engine
	noise   distuv.Normal
}

func New(sink Sink, sc config.SensorsConfig, ref config.GeoReference, seed int64) *Suite {
	return &Suite{
		sink:     sink,
		ref:      ref,
		attitude: sensor{period: PeriodAttitude, enabled: true},
		imu:      sensor{period: PeriodIMU, enabled: true},
		velocity: sensor{period: PeriodVelocity, enabled: true},
		mag:      sensor{period: PeriodMag, enabled: true},
		airData:  sensor{period: PeriodAirData, enabled: true},
		gps:      sensor{period: PeriodGPS, enabled: true},
		esc:      sensor{period: PeriodESC, enabled: sc.EscStatus},
		ice:      sensor{period: PeriodICE, enabled: sc.IceStatus},
		fuel:     sensor{period: PeriodFuel, enabled: sc.FuelTank},
		battery:  sensor{period: PeriodBattery, enabled: sc.BatteryStatus},
		fuelPct:  100,
		engine:   &engine{},
		noise:    distuv.Normal{Mu: 0, Sigma: 1, Src: rand.NewSource(uint64(seed))},
	}
}

// StartStallEmulation makes the engine status report a stall from now on
// for StallDuration seconds.
func (s *Suite) StartStallEmulation(now float64) { s.engine.startStall(now) }

// StopStallEmulation ends an emulated stall early.
func (s *Suite) StopStallEmulation() { s.engine.stopStall() }

func (s *Suite) FuelPercent() float64 { return s.fuelPct }

// Publish samples d at time now and emits every sensor that is due.
// Backends in ENU/FLU are converted to NED/FRD first.
func (s *Suite) Publish(now float64, d dynamo.Dynamics) {
	pose := csconv.ToNed(d)
	acc, gyro := d.IMU()
	if d.Notation() == dynamo.NotationENU {
		acc, gyro = csconv.FluToFrd(acc), csconv.FluToFrd(gyro)
	}
	rpm := d.MotorsRPM()

	lat, lon, alt := s.geodetic(csconv.NedToEnu(pose.Position))

	if s.attitude.due(now) {
		s.sink.Publish(TopicAttitude, Attitude{FrdToNed: pose.Attitude})
	}
	if s.imu.due(now) {
		s.sink.Publish(TopicIMU, IMU{Acc: acc, Gyro: gyro})
	}
	if s.velocity.due(now) {
		s.sink.Publish(TopicVelocity, Velocity{Linear: pose.Velocity, Angular: pose.AngularVelocity})
	}
	if s.mag.due(now) {
		field := rotateInverse(pose.Attitude, earthField)
		s.sink.Publish(TopicMag, Mag{Field: r3.Add(field, s.sample(magNoiseVariance))})
	}
	if s.airData.due(now) {
		s.sink.Publish(TopicAirData, Atmosphere(alt, r3.Norm(pose.Velocity)))
	}
	if s.gps.due(now) {
		s.sink.Publish(TopicGPS, GPS{Lat: lat, Lon: lon, Alt: alt, Velocity: pose.Velocity})
	}
	if len(rpm) > 0 && s.esc.due(now) {
		idx := s.nextESC % len(rpm)
		s.sink.Publish(TopicESC, ESCStatus{Index: idx, RPM: rpm[idx]})
		s.nextESC = (idx + 1) % len(rpm)
	}

	var pusher float64
	hasPusher := len(rpm) == 5
	if hasPusher {
		pusher = rpm[4]
		if s.ice.due(now) {
			s.sink.Publish(TopicICE, s.engine.status(now, pusher))
		}
		if pusher >= 1 {
			s.fuelPct = math.Max(0, s.fuelPct-fuelDrainPerCycle)
		}
	}
	if s.fuel.due(now) {
		s.sink.Publish(TopicFuel, FuelTank{Percent: s.fuelPct})
	}
	if s.battery.due(now) {
		s.sink.Publish(TopicBattery, Battery{Percent: batteryPercent})
	}
}

const earthRadius = 6378137.0

// geodetic maps a local ENU offset to latitude, longitude and altitude about
// the reference point with a flat-earth approximation.
func (s *Suite) geodetic(enu r3.Vec) (lat, lon, alt float64) {
	lat = s.ref.Lat + enu.Y/earthRadius*180/math.Pi
	lon = s.ref.Lon + enu.X/(earthRadius*math.Cos(s.ref.Lat*math.Pi/180))*180/math.Pi
	alt = s.ref.Alt + enu.Z
	return lat, lon, alt
}

func (s *Suite) sample(variance float64) r3.Vec {
	sigma := math.Sqrt(variance)
	return r3.Vec{X: sigma * s.noise.Rand(), Y: sigma * s.noise.Rand(), Z: sigma * s.noise.Rand()}
}

func rotateInverse(q quat.Number, v r3.Vec) r3.Vec {
	r := quat.Mul(quat.Mul(quat.Conj(q), quat.Number{Imag: v.X, Jmag: v.Y, Kmag: v.Z}), q)
	n := quat.Abs(q)
	if n == 0 {
		return v
	}
	return r3.Scale(1/(n*n), r3.Vec{X: r.Imag, Y: r.Jmag, Z: r.Kmag})
}
