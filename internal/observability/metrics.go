// Package observability exposes the simulator's runtime counters as
// Prometheus metrics.
package observability

import (
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/RaccoonlabDev/inno-vtol-dynamics/internal/dynamo"
)

// Physics step modes.
const (
	ModeProcess   = "process"
	ModeCalibrate = "calibrate"
	ModeLand      = "land"
)

// Collector bundles the simulator metrics. A nil *Collector is a valid
// no-op recorder.
type Collector struct {
	gatherer prometheus.Gatherer

	PhysicsSteps     *prometheus.CounterVec
	StepDuration     prometheus.Histogram
	TimeJumps        prometheus.Counter
	GroundContacts   prometheus.Counter
	ActuatorMessages prometheus.Counter
	SensorMessages   *prometheus.CounterVec
	Armed            prometheus.Gauge
	Altitude         prometheus.Gauge
	SimTime          prometheus.Gauge
}

// NewCollector registers the metrics against reg, defaulting to the global
// registry when nil. Registering twice against one registry reuses the
// existing collectors.
func NewCollector(reg prometheus.Registerer) (*Collector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	steps, err := registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "vtolsim_physics_steps_total",
		Help: "Physics updates, labeled by mode (process, calibrate, land).",
	}, []string{"mode"}), "vtolsim_physics_steps_total")
	if err != nil {
		return nil, err
	}
	duration, err := registerHistogram(reg, prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "vtolsim_physics_step_duration_seconds",
		Help:    "Wall time spent in one physics update.",
		Buckets: []float64{1e-6, 5e-6, 1e-5, 5e-5, 1e-4, 5e-4, 1e-3, 5e-3},
	}), "vtolsim_physics_step_duration_seconds")
	if err != nil {
		return nil, err
	}
	jumps, err := registerCounter(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "vtolsim_time_jumps_total",
		Help: "Physics updates whose measured dt exceeded ten periods and was clamped.",
	}), "vtolsim_time_jumps_total")
	if err != nil {
		return nil, err
	}
	contacts, err := registerCounter(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "vtolsim_ground_contacts_total",
		Help: "Transitions from flight to ground contact.",
	}), "vtolsim_ground_contacts_total")
	if err != nil {
		return nil, err
	}
	actuators, err := registerCounter(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "vtolsim_actuator_messages_total",
		Help: "Actuator setpoint messages received.",
	}), "vtolsim_actuator_messages_total")
	if err != nil {
		return nil, err
	}
	sensors, err := registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "vtolsim_sensor_messages_total",
		Help: "Sensor messages published, labeled by topic.",
	}, []string{"topic"}), "vtolsim_sensor_messages_total")
	if err != nil {
		return nil, err
	}
	armed, err := registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "vtolsim_armed",
		Help: "1 while the vehicle is armed.",
	}), "vtolsim_armed")
	if err != nil {
		return nil, err
	}
	altitude, err := registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "vtolsim_altitude_meters",
		Help: "Altitude above the ground plane.",
	}), "vtolsim_altitude_meters")
	if err != nil {
		return nil, err
	}
	simTime, err := registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "vtolsim_sim_time_seconds",
		Help: "Simulated time of the last physics update.",
	}), "vtolsim_sim_time_seconds")
	if err != nil {
		return nil, err
	}

	return &Collector{
		gatherer:         gatherer,
		PhysicsSteps:     steps,
		StepDuration:     duration,
		TimeJumps:        jumps,
		GroundContacts:   contacts,
		ActuatorMessages: actuators,
		SensorMessages:   sensors,
		Armed:            armed,
		Altitude:         altitude,
		SimTime:          simTime,
	}, nil
}

// Handler exposes a ready-to-use /metrics handler.
func (c *Collector) Handler() http.Handler {
	gatherer := c.gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

func (c *Collector) ObserveStep(mode string, elapsed time.Duration) {
	if c == nil {
		return
	}
	c.PhysicsSteps.WithLabelValues(mode).Inc()
	c.StepDuration.Observe(elapsed.Seconds())
}

func (c *Collector) IncTimeJump() {
	if c != nil {
		c.TimeJumps.Inc()
	}
}

func (c *Collector) IncActuatorMessage() {
	if c != nil {
		c.ActuatorMessages.Inc()
	}
}

func (c *Collector) SetArmed(armed bool) {
	if c == nil {
		return
	}
	if armed {
		c.Armed.Set(1)
	} else {
		c.Armed.Set(0)
	}
}

// Publish counts a sensor message; it satisfies sensors.Sink.
func (c *Collector) Publish(topic string, _ any) {
	if c != nil {
		c.SensorMessages.WithLabelValues(topic).Inc()
	}
}

// StepObserver tracks altitude and ground contacts of a run. It satisfies
// dynamo.Observer.
type StepObserver struct {
	c        *Collector
	notation dynamo.Notation
	airborne bool
}

func (c *Collector) Observer(notation dynamo.Notation) *StepObserver {
	return &StepObserver{c: c, notation: notation}
}

var _ dynamo.Observer = (*StepObserver)(nil)

func (o *StepObserver) OnStep(x dynamo.State, u dynamo.Control, t float64) {
	alt := Altitude(o.notation, x)
	if o.c != nil {
		o.c.Altitude.Set(alt)
		o.c.SimTime.Set(t)
	}
	if o.airborne && alt <= 0 && o.c != nil {
		o.c.GroundContacts.Inc()
	}
	o.airborne = alt > 0
}

// Altitude is the height above the ground plane of a state in notation n.
func Altitude(n dynamo.Notation, x dynamo.State) float64 {
	if n == dynamo.NotationENU {
		return x[dynamo.StatePZ]
	}
	return -x[dynamo.StatePZ]
}

func registerCounterVec(reg prometheus.Registerer, vec *prometheus.CounterVec, name string) (*prometheus.CounterVec, error) {
	if err := reg.Register(vec); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(*prometheus.CounterVec); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return vec, nil
}

func registerCounter(reg prometheus.Registerer, counter prometheus.Counter, name string) (prometheus.Counter, error) {
	if err := reg.Register(counter); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Counter); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return counter, nil
}

func registerHistogram(reg prometheus.Registerer, h prometheus.Histogram, name string) (prometheus.Histogram, error) {
	if err := reg.Register(h); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Histogram); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return h, nil
}

func registerGauge(reg prometheus.Registerer, gauge prometheus.Gauge, name string) (prometheus.Gauge, error) {
	if err := reg.Register(gauge); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Gauge); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return gauge, nil
}
