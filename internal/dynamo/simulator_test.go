package dynamo

import (
	"context"
	"errors"
	"math"
	"sync/atomic"
	"testing"

	"github.com/RaccoonlabDev/inno-vtol-dynamics/internal/config"
	"gonum.org/v1/gonum/num/quat"
	"gonum.org/v1/gonum/spatial/r3"
)

// fallingBody drops along z with constant acceleration.
type fallingBody struct {
	p, v       r3.Vec
	q          quat.Number
	processed  int
	calibrated []CalibrationCase
	lastCmd    []float64
	poison     bool
}

func newFallingBody() *fallingBody { return &fallingBody{q: quat.Number{Real: 1}} }

func (f *fallingBody) Init(config.Source) error               { return nil }
func (f *fallingBody) SetInitialPosition(p r3.Vec, q quat.Number) { f.p, f.q = p, q }
func (f *fallingBody) SetInitialVelocity(v, w r3.Vec)          { f.v = v }
func (f *fallingBody) Process(dt float64, cmd []float64, _ bool) {
	f.processed++
	f.lastCmd = cmd
	f.v.Z += 9.8 * dt
	f.p.Z += f.v.Z * dt
	if f.poison {
		f.p.X = math.NaN()
	}
}
func (f *fallingBody) Calibrate(c CalibrationCase) { f.calibrated = append(f.calibrated, c) }
func (f *fallingBody) Land()                       { f.v = r3.Vec{} }
func (f *fallingBody) Position() r3.Vec            { return f.p }
func (f *fallingBody) Attitude() quat.Number       { return f.q }
func (f *fallingBody) Velocity() r3.Vec            { return f.v }
func (f *fallingBody) AngularVelocity() r3.Vec     { return r3.Vec{} }
func (f *fallingBody) IMU() (r3.Vec, r3.Vec)       { return r3.Vec{}, r3.Vec{} }
func (f *fallingBody) MotorsRPM() []float64        { return nil }
func (f *fallingBody) Notation() Notation          { return NotationNED }

type constController struct{ u Control }

func (c constController) Compute(State, float64) Control { return c.u }

type countMetric struct{ n int }

func (c *countMetric) Name() string                     { return "count" }
func (c *countMetric) Observe(State, Control, float64)  { c.n++ }
func (c *countMetric) Value() float64                   { return float64(c.n) }
func (c *countMetric) Reset()                           { c.n = 0 }

func TestSimulatorRun(t *testing.T) {
	dyn := newFallingBody()
	sim := New(dyn, constController{u: Control{1, 2}})
	metric := &countMetric{}
	sim.AddMetric(metric)

	cfg := Config{Dt: 0.01, Duration: 1.0, RecordEvery: 10, Percent: true, ValidateState: true}
	result, err := sim.Run(context.Background(), cfg)
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}

	if result.StepsTaken != 100 {
		t.Errorf("expected 100 steps, got %d", result.StepsTaken)
	}
	if len(result.States) != 11 {
		t.Errorf("expected 11 states, got %d", len(result.States))
	}
	if len(result.Controls) != 10 {
		t.Errorf("expected 10 controls, got %d", len(result.Controls))
	}
	if dyn.lastCmd[1] != 2 {
		t.Errorf("expected controller command to reach the backend, got %v", dyn.lastCmd)
	}
	if result.Metrics["count"] != 100 {
		t.Errorf("expected metric 100, got %f", result.Metrics["count"])
	}

	final := result.States[len(result.States)-1]
	if math.Abs(final[StateVZ]-9.8) > 1e-9 {
		t.Errorf("expected vz 9.8, got %f", final[StateVZ])
	}
}

func TestSimulatorCalibration(t *testing.T) {
	dyn := newFallingBody()
	sim := New(dyn, nil)

	cfg := Config{Dt: 0.01, Duration: 0.05, Calibration: Mag3HeadDown}
	if _, err := sim.Run(context.Background(), cfg); err != nil {
		t.Fatal(err)
	}
	if dyn.processed != 0 {
		t.Errorf("expected no Process calls while calibrating, got %d", dyn.processed)
	}
	if len(dyn.calibrated) != 5 || dyn.calibrated[0] != Mag3HeadDown {
		t.Errorf("expected 5 calibration calls, got %v", dyn.calibrated)
	}
}

func TestSimulatorInvalidState(t *testing.T) {
	dyn := newFallingBody()
	dyn.poison = true
	sim := New(dyn, nil)

	cfg := DefaultConfig()
	result, err := sim.Run(context.Background(), cfg)
	if err != nil {
		t.Fatal(err)
	}
	if len(result.Errors) != 1 {
		t.Fatalf("expected one error, got %d", len(result.Errors))
	}
	var simErr *SimulationError
	if !errors.As(result.Errors[0], &simErr) || !errors.Is(simErr, ErrInvalidState) {
		t.Errorf("expected SimulationError wrapping ErrInvalidState, got %v", result.Errors[0])
	}
	if result.StepsTaken != 1 {
		t.Errorf("expected run to stop after first step, got %d", result.StepsTaken)
	}
}

func TestSimulatorCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := New(newFallingBody(), nil).Run(ctx, DefaultConfig())
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestSimulatorValidation(t *testing.T) {
	sim := New(newFallingBody(), nil)
	bad := []Config{
		{Dt: 0, Duration: 1},
		{Dt: 0.01, Duration: 0},
		{Dt: 0.01, Duration: 1, Calibration: 42},
	}
	for _, cfg := range bad {
		if _, err := sim.Run(context.Background(), cfg); !errors.Is(err, ErrConfig) {
			t.Errorf("expected ErrConfig for %+v, got %v", cfg, err)
		}
	}
}

func TestCheckCommandSize(t *testing.T) {
	if err := CheckCommandSize(make([]float64, 8), 8); err != nil {
		t.Errorf("expected no error for a full command, got %v", err)
	}
	for _, n := range []int{0, 4, 9} {
		err := CheckCommandSize(make([]float64, n), 8)
		if !errors.Is(err, ErrWrongCommandSize) {
			t.Errorf("size %d: expected ErrWrongCommandSize, got %v", n, err)
		}
	}
}

func TestEnsemble(t *testing.T) {
	var built atomic.Int64
	factory := func(seed int64) (*Simulator, error) {
		built.Add(1)
		return New(newFallingBody(), nil), nil
	}

	results, err := NewEnsemble(factory, 6, 100).Run(context.Background(), Config{Dt: 0.01, Duration: 0.1})
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 6 {
		t.Errorf("expected 6 results, got %d", len(results))
	}
	if built.Load() != 6 {
		t.Errorf("expected 6 simulators, got %d", built.Load())
	}
	for i, r := range results {
		if r == nil || r.StepsTaken != 10 {
			t.Errorf("run %d: unexpected result %+v", i, r)
		}
	}
}

func TestEnsembleFactoryError(t *testing.T) {
	boom := errors.New("boom")
	factory := func(seed int64) (*Simulator, error) {
		if seed == 3 {
			return nil, boom
		}
		return New(newFallingBody(), nil), nil
	}
	_, err := NewEnsemble(factory, 4, 0).Run(context.Background(), Config{Dt: 0.01, Duration: 0.1})
	if !errors.Is(err, boom) {
		t.Errorf("expected factory error, got %v", err)
	}
}

func TestParallelForCoversRange(t *testing.T) {
	seen := make([]int32, 37)
	ParallelFor(len(seen), 4, func(start, end int) {
		for i := start; i < end; i++ {
			atomic.AddInt32(&seen[i], 1)
		}
	})
	for i, n := range seen {
		if n != 1 {
			t.Errorf("index %d visited %d times", i, n)
		}
	}
}

func TestSnapshotRoundTrip(t *testing.T) {
	dyn := newFallingBody()
	q := quat.Number{Real: 0.5, Imag: 0.5, Jmag: 0.5, Kmag: 0.5}
	dyn.SetInitialPosition(r3.Vec{X: 1, Y: 2, Z: 3}, q)

	x := Snapshot(dyn)
	if len(x) != StateDim || len(StateNames()) != StateDim {
		t.Fatalf("expected %d entries, got %d", StateDim, len(x))
	}
	if x.Position() != (r3.Vec{X: 1, Y: 2, Z: 3}) {
		t.Errorf("expected position (1,2,3), got %v", x.Position())
	}
	if x.Attitude() != q {
		t.Errorf("expected attitude %v, got %v", q, x.Attitude())
	}
}
