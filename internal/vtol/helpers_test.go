package vtol

import (
	"bytes"
	"math"
	"testing"

	"github.com/RaccoonlabDev/inno-vtol-dynamics/internal/config"
	"github.com/RaccoonlabDev/inno-vtol-dynamics/internal/logging"
	"gonum.org/v1/gonum/num/quat"
	"gonum.org/v1/gonum/spatial/r3"
)

// fixtureSource returns the shipped Innopolis VTOL parameters. It is a
// synthetic fixture: only mass, inertia and the hover propeller rows follow
// the real airframe.
func fixtureSource(tb testing.TB) config.MapSource {
	tb.Helper()
	src, err := config.LoadVehicle(config.VehicleInnopolisVTOL)
	if err != nil {
		tb.Fatalf("load vehicle: %v", err)
	}
	return src
}

// quietSource is fixtureSource without IMU noise.
func quietSource(tb testing.TB) config.MapSource {
	src := fixtureSource(tb)
	src.Merge(config.MapSource{
		"/uav/vtol_params/accVariance":  0.0,
		"/uav/vtol_params/gyroVariance": 0.0,
	})
	return src
}

func newFixture(tb testing.TB, src config.MapSource, opts ...Option) *Dynamics {
	tb.Helper()
	d := New(opts...)
	if err := d.Init(src); err != nil {
		tb.Fatalf("init: %v", err)
	}
	return d
}

func newLoggedFixture(tb testing.TB) (*Dynamics, *bytes.Buffer) {
	var buf bytes.Buffer
	log := logging.New(logging.Config{Level: "debug", Output: &buf})
	return newFixture(tb, quietSource(tb), WithLogger(log)), &buf
}

var identity = quat.Number{Real: 1}

func near(a, b, tol float64) bool { return math.Abs(a-b) <= tol }

func nearVec(a, b r3.Vec, tol float64) bool {
	return near(a.X, b.X, tol) && near(a.Y, b.Y, tol) && near(a.Z, b.Z, tol)
}

func zeros(n int) []float64 { return make([]float64, n) }
