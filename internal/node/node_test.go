package node

import (
	"bytes"
	"context"
	"strings"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"gonum.org/v1/gonum/num/quat"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/RaccoonlabDev/inno-vtol-dynamics/internal/config"
	"github.com/RaccoonlabDev/inno-vtol-dynamics/internal/control"
	"github.com/RaccoonlabDev/inno-vtol-dynamics/internal/dynamo"
	"github.com/RaccoonlabDev/inno-vtol-dynamics/internal/logging"
	"github.com/RaccoonlabDev/inno-vtol-dynamics/internal/observability"
	"github.com/RaccoonlabDev/inno-vtol-dynamics/internal/sensors"
)

type call struct {
	kind string
	dt   float64
	cmd  []float64
	c    dynamo.CalibrationCase
}

type fakeDynamics struct {
	calls    []call
	position r3.Vec
	rpm      []float64
}

func (f *fakeDynamics) Init(config.Source) error { return nil }
func (f *fakeDynamics) SetInitialPosition(p r3.Vec, q quat.Number) { f.position = p }
func (f *fakeDynamics) SetInitialVelocity(v, w r3.Vec) {}

func (f *fakeDynamics) Process(dt float64, cmd []float64, isCmdPercent bool) {
	f.calls = append(f.calls, call{kind: "process", dt: dt, cmd: append([]float64(nil), cmd...)})
}

func (f *fakeDynamics) Calibrate(c dynamo.CalibrationCase) {
	f.calls = append(f.calls, call{kind: "calibrate", c: c})
}

func (f *fakeDynamics) Land() { f.calls = append(f.calls, call{kind: "land"}) }

func (f *fakeDynamics) Position() r3.Vec { return f.position }
func (f *fakeDynamics) Attitude() quat.Number { return quat.Number{Real: 1} }
func (f *fakeDynamics) Velocity() r3.Vec { return r3.Vec{} }
func (f *fakeDynamics) AngularVelocity() r3.Vec { return r3.Vec{} }
func (f *fakeDynamics) IMU() (acc, gyro r3.Vec) { return r3.Vec{Z: -9.8}, r3.Vec{} }
func (f *fakeDynamics) MotorsRPM() []float64 { return f.rpm }
func (f *fakeDynamics) Notation() dynamo.Notation { return dynamo.NotationNED }

func (f *fakeDynamics) last() call { return f.calls[len(f.calls)-1] }

type recorder struct{ msgs map[string][]any }

func (r *recorder) Publish(topic string, msg any) { r.msgs[topic] = append(r.msgs[topic], msg) }

type observerFunc func(x dynamo.State, u dynamo.Control, t float64)

func (f observerFunc) OnStep(x dynamo.State, u dynamo.Control, t float64) { f(x, u, t) }

const period = 0.001

var _ = Describe("Node", func() {
	var (
		dyn   *fakeDynamics
		sink  *recorder
		suite *sensors.Suite
		n     *Node
	)

	BeforeEach(func() {
		dyn = &fakeDynamics{rpm: []float64{0, 0, 0, 0, 4000}}
		sink = &recorder{msgs: map[string][]any{}}
		suite = sensors.New(sink, config.DefaultConfig().Sensors, config.DefaultConfig().Reference, 1)
		var err error
		n, err = New(dyn, Options{
			Name:    "fake",
			Period:  period,
			Clock:   NewClock(true, 1),
			Sensors: suite,
		})
		Expect(err).NotTo(HaveOccurred())
	})

	It("rejects a non-positive period", func() {
		_, err := New(dyn, Options{})
		Expect(err).To(MatchError(dynamo.ErrConfig))
	})

	Describe("Tick", func() {
		It("lands the vehicle while disarmed", func() {
			n.SetActuators([]float64{1, 1, 1, 1}, time.Now())
			n.Tick()
			Expect(dyn.last().kind).To(Equal("land"))
		})

		It("processes the latest command with the period as dt on sim time", func() {
			n.Arm(true)
			n.SetActuators([]float64{0.1, 0.2, 0.3, 0.4}, time.Now())
			n.Tick()
			Expect(dyn.last()).To(Equal(call{kind: "process", dt: period, cmd: []float64{0.1, 0.2, 0.3, 0.4}}))
			Expect(n.Clock().Now()).To(BeNumerically("~", period, 1e-12))
		})

		It("calibrates before anything else", func() {
			n.Arm(true)
			n.SetCalibration(dynamo.Acc3HeadDown)
			n.Tick()
			Expect(dyn.last()).To(Equal(call{kind: "calibrate", c: dynamo.Acc3HeadDown}))
			Expect(n.Calibration()).To(Equal(dynamo.Acc3HeadDown))

			n.SetCalibration(dynamo.WorkMode)
			n.Tick()
			Expect(dyn.last().kind).To(Equal("process"))
		})

		It("feeds the sensors", func() {
			for i := 0; i < 100; i++ {
				n.Tick()
			}
			Expect(sink.msgs[sensors.TopicIMU]).NotTo(BeEmpty())
			Expect(sink.msgs[sensors.TopicAttitude]).NotTo(BeEmpty())
		})
	})

	Describe("wall clock", func() {
		var (
			wall time.Time
			reg  *prometheus.Registry
			col  *observability.Collector
			buf  *bytes.Buffer
		)

		BeforeEach(func() {
			wall = time.Unix(1000, 0)
			reg = prometheus.NewRegistry()
			var err error
			col, err = observability.NewCollector(reg)
			Expect(err).NotTo(HaveOccurred())
			buf = &bytes.Buffer{}
			n, err = New(dyn, Options{
				Period:    period,
				Clock:     newClock(false, 1, func() time.Time { return wall }),
				Collector: col,
				Logger:    logging.New(logging.Config{Level: "debug", Output: buf}),
			})
			Expect(err).NotTo(HaveOccurred())
			n.Arm(true)
		})

		It("uses the measured interval", func() {
			n.Tick()
			wall = wall.Add(3 * time.Millisecond)
			n.Tick()
			Expect(dyn.last().dt).To(BeNumerically("~", 0.003, 1e-12))
		})

		It("clamps a time jump to ten periods", func() {
			n.Tick()
			wall = wall.Add(time.Second)
			n.Tick()
			wall = wall.Add(time.Second)
			n.Tick()
			Expect(dyn.last().dt).To(BeNumerically("~", 10*period, 1e-12))
			Expect(testutil.ToFloat64(col.TimeJumps)).To(Equal(2.0))
			Expect(strings.Count(buf.String(), "time jumping")).To(Equal(1))
		})

		It("counts steps per mode", func() {
			n.Tick()
			n.Arm(false)
			n.Tick()
			n.Tick()
			Expect(testutil.ToFloat64(col.PhysicsSteps.WithLabelValues(observability.ModeProcess))).To(Equal(1.0))
			Expect(testutil.ToFloat64(col.PhysicsSteps.WithLabelValues(observability.ModeLand))).To(Equal(2.0))
			Expect(testutil.ToFloat64(col.Armed)).To(Equal(0.0))
		})
	})

	Describe("scenarios", func() {
		It("forces the throttle to zero during an engine stall", func() {
			n.SetScenario(ScenarioICEStall)
			n.SetActuators([]float64{0.5, 0.5, 0.5, 0.5, 0.5, 0, 0, 0.9}, time.Now())
			Expect(n.Actuators()[7]).To(Equal(0.0))

			n.SetScenario(ScenarioNone)
			n.SetActuators([]float64{0.5, 0.5, 0.5, 0.5, 0.5, 0, 0, 0.9}, time.Now())
			Expect(n.Actuators()[7]).To(Equal(0.9))
		})

		It("leaves short commands alone", func() {
			n.SetScenario(ScenarioICEStall)
			n.SetActuators([]float64{0.5, 0.5, 0.5, 0.5}, time.Now())
			Expect(n.Actuators()).To(Equal([]float64{0.5, 0.5, 0.5, 0.5}))
		})

		It("reports an engine fault while the stall lasts", func() {
			n.SetScenario(ScenarioICEStall)
			for i := 0; i < 300; i++ {
				n.Tick()
			}
			ice := sink.msgs[sensors.TopicICE]
			Expect(ice).NotTo(BeEmpty())
			Expect(ice[len(ice)-1].(sensors.ICEStatus).State).To(Equal(sensors.ICEFault))

			n.SetScenario(ScenarioNone)
			for i := 0; i < 300; i++ {
				n.Tick()
			}
			ice = sink.msgs[sensors.TopicICE]
			Expect(ice[len(ice)-1].(sensors.ICEStatus).State).To(Equal(sensors.ICERunning))
		})
	})

	Describe("Status", func() {
		It("reports full completeness for a full second of ticks", func() {
			for i := 0; i < 1000; i++ {
				n.Tick()
			}
			for i := 0; i < 20; i++ {
				n.PublishTick()
			}
			s := n.Status(1)
			Expect(s.Dyn).To(BeNumerically("~", 1, 1e-9))
			Expect(s.Pub).To(BeNumerically("~", 1, 1e-9))
			Expect(s.String()).To(ContainSubstring("dyn=1.000000"))
			Expect(s.String()).To(ContainSubstring("[Disarmed]"))

			Expect(n.Status(1).Dyn).To(Equal(0.0))
		})

		It("judges the setpoint stream by count and delay", func() {
			stamp := time.Unix(0, 0)
			for i := 0; i < 150; i++ {
				stamp = stamp.Add(5 * time.Millisecond)
				n.SetActuators(make([]float64, 8), stamp)
			}
			s := n.Status(1)
			Expect(s.Setpoints).To(Equal(150))
			Expect(s.SetpointOK).To(BeTrue())

			n.SetActuators(make([]float64, 8), stamp.Add(50*time.Millisecond))
			n.SetActuators(make([]float64, 8), stamp.Add(100*time.Millisecond))
			Expect(n.Status(1).SetpointOK).To(BeFalse())
		})

		It("shows the pose in ENU", func() {
			dyn.position = r3.Vec{X: 1, Y: 2, Z: -3}
			s := n.Status(1)
			Expect(s.Position.Position).To(Equal(r3.Vec{X: 2, Y: 1, Z: 3}))
			Expect(s.String()).To(ContainSubstring("[2.0, 1.0, 3.0]"))
		})

		It("prints the fixed-wing channels only for eight-channel commands", func() {
			n.SetActuators([]float64{0.1, 0.2, 0.3, 0.4}, time.Now())
			Expect(n.Status(1).String()).NotTo(ContainSubstring("throttle"))
			n.SetActuators([]float64{0.1, 0.2, 0.3, 0.4, 0.5, 0.6, 0.7, 0.8}, time.Now())
			Expect(n.Status(1).String()).To(ContainSubstring("[0.80]"))
		})
	})

	It("hands snapshots to observers on publish", func() {
		var got dynamo.State
		n, _ = New(dyn, Options{
			Period:    period,
			Clock:     NewClock(true, 1),
			Observers: []dynamo.Observer{observerFunc(func(x dynamo.State, u dynamo.Control, t float64) { got = x })},
		})
		dyn.position = r3.Vec{Z: -4}
		n.PublishTick()
		Expect(got[dynamo.StatePZ]).To(Equal(-4.0))
	})

	It("flies with an internal autopilot", func() {
		var err error
		n, err = New(dyn, Options{
			Period:    period,
			Clock:     NewClock(true, 1),
			Autopilot: control.NewManual([]float64{0.3, 0.3, 0.3, 0.3}),
		})
		Expect(err).NotTo(HaveOccurred())
		n.Arm(true)
		n.AutopilotTick()
		n.Tick()
		Expect(dyn.last().cmd).To(Equal([]float64{0.3, 0.3, 0.3, 0.3}))
	})

	It("runs until the context ends", func() {
		buf := &bytes.Buffer{}
		n, _ = New(dyn, Options{
			Name:      "fake",
			Period:    period,
			LogPeriod: 0.05,
			Clock:     NewClock(true, 1),
			Status:    buf,
		})
		ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
		defer cancel()
		Expect(n.Run(ctx)).To(Succeed())
		Expect(n.Clock().Now()).To(BeNumerically(">", 0))
		Expect(buf.String()).To(ContainSubstring("fake"))
	})
})
