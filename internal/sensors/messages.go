package sensors

import (
	"gonum.org/v1/gonum/num/quat"
	"gonum.org/v1/gonum/spatial/r3"
)

// Topics the sensors publish on.
const (
	TopicAttitude = "/uav/attitude"
	TopicIMU      = "/uav/imu"
	TopicVelocity = "/uav/velocity"
	TopicMag      = "/uav/mag"
	TopicAirData  = "/uav/raw_air_data"
	TopicGPS      = "/uav/gps_position"
	TopicESC      = "/uav/esc_status"
	TopicICE      = "/uav/ice_status"
	TopicFuel     = "/uav/fuel_tank"
	TopicBattery  = "/uav/battery"
)

// Sink receives sensor messages. Publish is called from the publication
// loop only.
type Sink interface {
	Publish(topic string, msg any)
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(topic string, msg any)

func (f SinkFunc) Publish(topic string, msg any) { f(topic, msg) }

// Tee fans a message out to every sink.
type Tee []Sink

func (t Tee) Publish(topic string, msg any) {
	for _, s := range t {
		s.Publish(topic, msg)
	}
}

// All messages are in PX4 notation: NED world, FRD body.

type Attitude struct {
	FrdToNed quat.Number
}

type IMU struct {
	Acc  r3.Vec
	Gyro r3.Vec
}

type Velocity struct {
	Linear  r3.Vec // NED
	Angular r3.Vec // FRD
}

// Mag is the magnetic field in FRD, Gauss.
type Mag struct {
	Field r3.Vec
}

type AirData struct {
	AbsPressureHpa  float64
	DiffPressureHpa float64
	TemperatureK    float64
}

type GPS struct {
	Lat, Lon, Alt float64
	Velocity      r3.Vec // NED
}

type ESCStatus struct {
	Index int
	RPM   float64
}

// ICEState follows the reciprocating engine status codes.
type ICEState int

const (
	ICEStopped ICEState = iota
	ICEStarting
	ICERunning
	ICEFault
)

func (s ICEState) String() string {
	switch s {
	case ICEStopped:
		return "stopped"
	case ICEStarting:
		return "starting"
	case ICERunning:
		return "running"
	case ICEFault:
		return "fault"
	}
	return "unknown"
}

type ICEStatus struct {
	State ICEState
	RPM   float64
}

type FuelTank struct {
	Percent float64
}

type Battery struct {
	Percent float64
}
