package vtol_test

import (
	"bytes"
	"math"
	"os"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"gonum.org/v1/gonum/num/quat"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/RaccoonlabDev/inno-vtol-dynamics/internal/config"
	"github.com/RaccoonlabDev/inno-vtol-dynamics/internal/dynamo"
	"github.com/RaccoonlabDev/inno-vtol-dynamics/internal/logging"
	"github.com/RaccoonlabDev/inno-vtol-dynamics/internal/vtol"
)

const g = 9.8066

func quietVehicle() config.MapSource {
	src, err := config.LoadVehicle(config.VehicleInnopolisVTOL)
	Expect(err).NotTo(HaveOccurred())
	src.Merge(config.MapSource{
		"/uav/vtol_params/accVariance":  0.0,
		"/uav/vtol_params/gyroVariance": 0.0,
	})
	return src
}

func vecNear(v r3.Vec, tol float64, want r3.Vec) {
	ExpectWithOffset(1, v.X).To(BeNumerically("~", want.X, tol))
	ExpectWithOffset(1, v.Y).To(BeNumerically("~", want.Y, tol))
	ExpectWithOffset(1, v.Z).To(BeNumerically("~", want.Z, tol))
}

var _ = Describe("Dynamics", func() {
	var (
		d   *vtol.Dynamics
		buf *bytes.Buffer
	)

	BeforeEach(func() {
		buf = &bytes.Buffer{}
		log := logging.New(logging.Config{Level: "debug", Output: buf})
		d = vtol.New(vtol.WithLogger(log), vtol.WithSeed(7))
		Expect(d.Init(quietVehicle())).To(Succeed())
	})

	It("reports NED notation", func() {
		Expect(d.Notation()).To(Equal(dynamo.NotationNED))
	})

	Describe("Process", func() {
		It("rests on the ground with an idle command", func() {
			idle := []float64{0, 0, 0, 0, 0.5, 0, 0, 0}
			for i := 0; i < 100; i++ {
				d.Process(0.01, idle, true)
			}
			Expect(d.Position().Z).To(Equal(0.0))
			Expect(d.Velocity()).To(Equal(r3.Vec{}))
			acc, gyro := d.IMU()
			vecNear(acc, 1e-9, r3.Vec{Z: -g})
			vecNear(gyro, 1e-9, r3.Vec{})
		})

		It("climbs under full lift", func() {
			full := []float64{1, 1, 1, 1, 0.5, 0, 0, 0}
			for i := 0; i < 300; i++ {
				d.Process(0.001, full, true)
			}
			Expect(d.Position().Z).To(BeNumerically("<", -0.3))
			Expect(d.Velocity().Z).To(BeNumerically("<", 0))
			Expect(d.MotorsRPM()[0]).To(BeNumerically(">", 5000))
			Expect(quat.Abs(d.Attitude())).To(BeNumerically("~", 1, 1e-9))
		})

		It("accelerates forward under the pusher", func() {
			d.SetInitialPosition(r3.Vec{Z: -50}, quat.Number{Real: 1})
			cruise := []float64{0.55, 0.55, 0.55, 0.55, 0.5, 0, 0, 0.8}
			for i := 0; i < 1000; i++ {
				d.Process(0.001, cruise, true)
			}
			Expect(d.Velocity().X).To(BeNumerically(">", 1))
			Expect(d.BodyLinearVelocity().X).To(BeNumerically(">", 0))
			Expect(r3.Norm(d.Faero())).To(BeNumerically(">", 0))
		})

		It("clamps extreme airspeed and warns once per second", func() {
			d.SetInitialPosition(r3.Vec{Z: -500}, quat.Number{Real: 1})
			d.SetInitialVelocity(r3.Vec{X: 120}, r3.Vec{})
			for i := 0; i < 3; i++ {
				d.Process(0.001, make([]float64, 8), true)
			}
			Expect(strings.Count(buf.String(), "airspeed is out of limit")).To(Equal(1))
			Expect(math.IsNaN(d.Faero().X)).To(BeFalse())
		})

		It("feels a side force in a crosswind", func() {
			d.SetInitialPosition(r3.Vec{Z: -100}, quat.Number{Real: 1})
			d.SetWind(r3.Vec{X: -10, Y: 5}, 0)
			d.Process(0.001, []float64{0.5, 0.5, 0.5, 0.5, 0.5, 0, 0, 0}, true)
			Expect(d.Fside().Y).NotTo(BeZero())
			Expect(d.Fdrag().X).To(BeNumerically("<", 0))
		})

		It("maps percent commands through the standard mixer when selected", func() {
			d.SetMixer(vtol.MixerStandard)
			d.Process(10, []float64{0, 0, 0, 0, 0, 1, 0, 0}, true)
			Expect(d.Actuators()[5]).To(BeNumerically("~", 10, 1e-6))
		})

		It("adds bias to the IMU", func() {
			d.SetIMUBias(r3.Vec{X: 0.1}, r3.Vec{Z: -0.01})
			acc, gyro := d.IMU()
			vecNear(acc, 1e-12, r3.Vec{X: 0.1, Z: -g})
			vecNear(gyro, 1e-12, r3.Vec{Z: -0.01})
		})
	})

	Describe("Calibrate", func() {
		It("spins about yaw in the first magnetometer case", func() {
			for i := 0; i < 500; i++ {
				d.Calibrate(dynamo.Mag1Normal)
			}
			Expect(d.PreviousCalibration()).To(Equal(dynamo.Mag1Normal))
			vecNear(d.AngularVelocity(), 1e-12, r3.Vec{Z: -2 * math.Pi / 10})

			// 500 updates of 1 ms turn the vehicle by half the rate in radians.
			yaw := 2 * math.Atan2(d.Attitude().Kmag, d.Attitude().Real)
			Expect(yaw).To(BeNumerically("~", -0.5*2*math.Pi/10, 1e-3))
			Expect(d.Position().Z).To(Equal(0.0))
		})

		It("resets the attitude only when the case changes", func() {
			d.Calibrate(dynamo.Mag3HeadDown)
			first := d.Attitude()
			Expect(first.Jmag).To(BeNumerically("~", -math.Sqrt2/2, 1e-3))
			d.Calibrate(dynamo.Mag3HeadDown)
			Expect(d.Attitude()).NotTo(Equal(first))
			Expect(strings.Count(buf.String(), "init cal")).To(Equal(1))
		})

		It("points gravity along the nose when head down", func() {
			d.Calibrate(dynamo.Acc3HeadDown)
			acc, _ := d.IMU()
			vecNear(acc, 1e-2, r3.Vec{X: -g})
		})

		It("measures upward gravity when overturned", func() {
			d.Calibrate(dynamo.Acc2Overturned)
			acc, _ := d.IMU()
			vecNear(acc, 1e-9, r3.Vec{Z: g})
		})

		It("moves forward for the airspeed case", func() {
			d.Calibrate(dynamo.Mag2Overturned)
			d.Calibrate(dynamo.Airspeed)
			Expect(d.Velocity()).To(Equal(r3.Vec{X: 10, Y: 10}))
			Expect(d.Attitude()).To(Equal(quat.Number{Real: 1}))
			Expect(d.AngularVelocity()).To(Equal(r3.Vec{}))
		})

		It("always levels the vehicle in work mode", func() {
			d.Calibrate(dynamo.Acc5TurnedLeft)
			d.Calibrate(dynamo.WorkMode)
			d.Calibrate(dynamo.WorkMode)
			Expect(d.Attitude()).To(Equal(quat.Number{Real: 1}))
		})

		It("keeps the attitude for the ardupilot cases", func() {
			d.Calibrate(dynamo.Acc4HeadUp)
			before := d.Attitude()
			d.Calibrate(dynamo.Mag7ArdupilotGreen)
			Expect(d.Attitude().Jmag).To(BeNumerically("~", before.Jmag, 1e-3))
			vecNear(d.AngularVelocity(), 1e-12, r3.Vec{X: 2 * math.Pi / 10, Y: 2 * math.Pi / 10, Z: 2 * math.Pi / 10})
		})
	})

	Describe("Land", func() {
		It("restores the initial attitude", func() {
			initial := quat.Number{Real: 0.9, Kmag: 0.1}
			d.SetInitialPosition(r3.Vec{X: 1, Z: -5}, initial)
			d.SetInitialVelocity(r3.Vec{X: 2}, r3.Vec{Y: 1})
			d.Land()
			Expect(d.Attitude()).To(Equal(initial))
			Expect(d.Position()).To(Equal(r3.Vec{X: 1}))
			Expect(d.Velocity()).To(Equal(r3.Vec{}))
		})
	})
})

var _ = Describe("Noise", func() {
	It("keeps instances independent for equal seeds", func() {
		a := vtol.New(vtol.WithSeed(3))
		b := vtol.New(vtol.WithSeed(3))
		src, err := config.LoadVehicle(config.VehicleInnopolisVTOL)
		Expect(err).NotTo(HaveOccurred())
		Expect(a.Init(src)).To(Succeed())
		Expect(b.Init(src)).To(Succeed())

		accA, _ := a.IMU()
		accA2, _ := a.IMU()
		accB, _ := b.IMU()
		Expect(accA).To(Equal(accB))
		Expect(accA).NotTo(Equal(accA2))
	})
})

var _ = Describe("Reference vehicle", func() {
	var d *vtol.Dynamics

	BeforeEach(func() {
		path := os.Getenv("VTOL_REFERENCE_CONFIG")
		if path == "" {
			Skip("VTOL_REFERENCE_CONFIG is not set")
		}
		src, err := config.LoadFile(path)
		Expect(err).NotTo(HaveOccurred())
		d = vtol.New()
		Expect(d.Init(src)).To(Succeed())
	})

	It("matches the reference thruster rows", func() {
		thrust, torque, rpm := d.Tables().Thruster(134.254698)
		Expect(thrust).To(BeNumerically("~", 3.5908, 1e-3))
		Expect(torque).To(BeNumerically("~", 0.013696, 1e-5))
		Expect(rpm).To(BeNumerically("~", 732.298, 1e-2))
	})

	It("hovers level under four equal motors", func() {
		d.SetInitialPosition(r3.Vec{Z: -10}, quat.Number{Real: 1})
		d.Step(r3.Vec{}, r3.Vec{}, []float64{700, 700, 700, 700, 0, 0, 0, 0}, 0.001)
		vecNear(d.LinearAcceleration(), 6e-5, r3.Vec{Z: -6.36769})
	})

	It("reproduces the sideways aerodynamic reference point", func() {
		faero, maero := d.Aerodynamics(r3.Vec{X: 1e-6, Y: -10, Z: 1e-6}, 0.958191, -1.570796, 0, 0, 0)
		vecNear(faero, 1e-2, r3.Vec{Y: 29.513})
		vecNear(maero, 1e-3, r3.Vec{X: 0.2147, Y: 0.6948, Z: -0.3163})
	})

	It("reproduces the unequal lift motors step", func() {
		d.SetInitialPosition(r3.Vec{Z: -10}, quat.Number{Real: 1})
		d.Step(r3.Vec{}, r3.Vec{}, []float64{700, 680, 660, 640, 0, 0, 0, 0}, 0.0025)
		vecNear(d.AngularAcceleration(), 6e-5, r3.Vec{X: 0.1354, Y: 1.2944, Z: 0.10723})
		vecNear(d.LinearAcceleration(), 6e-5, r3.Vec{X: -1.3753e-04, Y: 1.2938e-05, Z: -5.0505})
	})

	It("reproduces the mixed motors step from level attitude", func() {
		d.SetInitialPosition(r3.Vec{Z: -10}, quat.Number{Real: 1})
		d.SetInitialVelocity(r3.Vec{X: 15, Y: 3, Z: 1}, r3.Vec{X: 0.5, Y: 0.4, Z: 0.3})
		d.Step(r3.Vec{X: 5, Y: 10, Z: 15}, r3.Vec{X: 15, Y: 10, Z: 5},
			[]float64{600, 550, 450, 500, 650, 0, 0, 0}, 0.0025)
		vecNear(d.AngularAcceleration(), 1e-3, r3.Vec{X: 5.1203, Y: 16.15784, Z: 11.9625})
		vecNear(d.LinearAcceleration(), 1e-3, r3.Vec{X: 5.60908, Y: 1.44474, Z: 0.80233})
	})

	It("reproduces the mixed actuator reference step", func() {
		d.SetInitialPosition(r3.Vec{Z: -10}, quat.Number{Real: 0.9833, Imag: 0.1436, Jmag: 0.106, Kmag: 0.03427})
		d.SetInitialVelocity(r3.Vec{X: 15, Y: 3, Z: 1}, r3.Vec{X: 0.5, Y: 0.4, Z: 0.3})
		d.Step(r3.Vec{X: 5, Y: 10, Z: 15}, r3.Vec{X: 15, Y: 10, Z: 5},
			[]float64{600, 550, 450, 500, 650, 4, 7, 11}, 0.0025)
		vecNear(d.AngularAcceleration(), 1e-2, r3.Vec{X: 5.1202, Y: 16.15784, Z: 11.9625})
		vecNear(d.LinearAcceleration(), 1e-2, r3.Vec{X: 3.45031, Y: 4.40765, Z: 0.68005})
	})
})
