// Package node runs a dynamics backend in real time. Three loops share it:
// physics steps the vehicle and feeds the sensors at the physics period,
// publication hands state snapshots to observers, and logging prints a
// health line once per second. Commands arrive through SetActuators, Arm,
// SetCalibration and SetScenario from any goroutine.
package node

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/RaccoonlabDev/inno-vtol-dynamics/internal/csconv"
	"github.com/RaccoonlabDev/inno-vtol-dynamics/internal/dynamo"
	"github.com/RaccoonlabDev/inno-vtol-dynamics/internal/logging"
	"github.com/RaccoonlabDev/inno-vtol-dynamics/internal/observability"
	"github.com/RaccoonlabDev/inno-vtol-dynamics/internal/sensors"
)

const (
	DefaultPublishPeriod = 0.05
	DefaultLogPeriod     = 1.0

	// maxJumpPeriods bounds the measured physics dt in periods.
	maxJumpPeriods = 10

	// ScenarioNone clears any emulated fault.
	ScenarioNone = 0
	// ScenarioICEStall stalls the pusher engine: its status reports a fault
	// and the throttle channel is forced to zero.
	ScenarioICEStall = 1

	throttleChannel = 7
)

type Options struct {
	Name          string
	Period        float64
	PublishPeriod float64
	LogPeriod     float64
	Clock         *Clock
	Sensors       *sensors.Suite
	Collector     *observability.Collector
	Logger        logging.Logger
	// Status receives the colored health line. Nil disables it.
	Status    io.Writer
	Observers []dynamo.Observer
	// Autopilot, when set, flies the vehicle from inside the node at
	// AutopilotPeriod, standing in for an external flight stack.
	Autopilot       dynamo.Controller
	AutopilotPeriod float64
}

type Node struct {
	name      string
	period    float64
	pubPeriod float64
	logPeriod float64

	clock     *Clock
	collector *observability.Collector
	log       logging.Logger
	throttle  *logging.Throttle
	status    io.Writer
	observers []dynamo.Observer
	autopilot dynamo.Controller
	apPeriod  float64

	// mu serializes every call into dyn and suite.
	mu       sync.Mutex
	dyn      dynamo.Dynamics
	suite    *sensors.Suite
	lastWall time.Time

	armed       atomic.Bool
	calibration atomic.Int32
	scenario    atomic.Int32

	cmdMu     sync.Mutex
	actuators []float64
	lastCmd   time.Time
	maxDelay  time.Duration
	setpoints int

	dynCount atomic.Int64
	pubCount atomic.Int64
}

func New(dyn dynamo.Dynamics, opts Options) (*Node, error) {
	if dyn == nil {
		return nil, dynamo.ErrNotInitialized
	}
	if opts.Period <= 0 {
		return nil, fmt.Errorf("%w: period must be positive, got %f", dynamo.ErrConfig, opts.Period)
	}
	if opts.PublishPeriod <= 0 {
		opts.PublishPeriod = DefaultPublishPeriod
	}
	if opts.LogPeriod <= 0 {
		opts.LogPeriod = DefaultLogPeriod
	}
	if opts.Clock == nil {
		opts.Clock = NewClock(false, 1)
	}
	if opts.Logger == nil {
		opts.Logger = logging.Noop()
	}
	if opts.AutopilotPeriod <= 0 {
		opts.AutopilotPeriod = opts.Period
	}
	return &Node{
		name:      opts.Name,
		period:    opts.Period,
		pubPeriod: opts.PublishPeriod,
		logPeriod: opts.LogPeriod,
		clock:     opts.Clock,
		collector: opts.Collector,
		log:       opts.Logger.With(logging.String("dynamics", opts.Name)),
		throttle:  logging.NewThrottle(time.Second),
		status:    opts.Status,
		observers: opts.Observers,
		autopilot: opts.Autopilot,
		apPeriod:  opts.AutopilotPeriod,
		dyn:       dyn,
		suite:     opts.Sensors,
	}, nil
}

// Run starts the loops and blocks until ctx is done.
func (n *Node) Run(ctx context.Context) error {
	n.log.Info(ctx, "node started",
		logging.Float("period", n.period),
		logging.Float("clock_scale", n.clock.Scale()),
		logging.Any("use_sim_time", n.clock.UseSimTime()))

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return n.loop(ctx, n.period, n.Tick) })
	g.Go(func() error { return n.loop(ctx, n.pubPeriod, n.PublishTick) })
	g.Go(func() error {
		return n.loop(ctx, n.logPeriod, func() { n.writeStatus(n.Status(n.logPeriod)) })
	})
	if n.autopilot != nil {
		g.Go(func() error { return n.loop(ctx, n.apPeriod, n.AutopilotTick) })
	}
	err := g.Wait()
	n.log.Info(context.Background(), "node stopped")
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return nil
	}
	return err
}

func (n *Node) loop(ctx context.Context, period float64, fn func()) error {
	ticker := time.NewTicker(n.clock.Period(period))
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			fn()
		}
	}
}

// Tick runs one physics iteration: calibrate when a calibration case is
// active, process the latest command when armed, land otherwise. The
// sensors are fed afterwards.
func (n *Node) Tick() {
	n.dynCount.Add(1)
	dt := n.stepDt()

	calib := dynamo.CalibrationCase(n.calibration.Load())
	armed := n.armed.Load()
	var cmd []float64
	if armed {
		cmd = n.Actuators()
	}

	n.mu.Lock()
	start := time.Now()
	var mode string
	switch {
	case calib != dynamo.WorkMode:
		n.dyn.Calibrate(calib)
		mode = observability.ModeCalibrate
	case armed:
		n.dyn.Process(dt, cmd, true)
		mode = observability.ModeProcess
	default:
		n.dyn.Land()
		mode = observability.ModeLand
	}
	elapsed := time.Since(start)
	if n.suite != nil {
		n.suite.Publish(n.clock.Now(), n.dyn)
	}
	n.mu.Unlock()

	n.collector.ObserveStep(mode, elapsed)
}

// stepDt is the physics dt: one period on sim time, the measured wall
// interval otherwise, clamped to maxJumpPeriods periods.
func (n *Node) stepDt() float64 {
	if n.clock.UseSimTime() {
		n.clock.Advance(n.period)
		return n.period
	}

	now := n.clock.wallNow()
	n.mu.Lock()
	last := n.lastWall
	n.lastWall = now
	n.mu.Unlock()
	if last.IsZero() {
		return n.period
	}

	dt := now.Sub(last).Seconds() / n.clock.Scale()
	if limit := maxJumpPeriods * n.period; dt > limit {
		if n.throttle.Allow("time-jump") {
			n.log.Error(context.Background(), "time jumping", logging.Float("seconds", dt))
		}
		n.collector.IncTimeJump()
		dt = limit
	}
	return dt
}

// PublishTick hands a state snapshot to every observer.
func (n *Node) PublishTick() {
	n.pubCount.Add(1)
	n.mu.Lock()
	x := dynamo.Snapshot(n.dyn)
	n.mu.Unlock()
	u := n.Actuators()
	t := n.clock.Now()
	for _, o := range n.observers {
		o.OnStep(x, u, t)
	}
}

// AutopilotTick computes one command from the current state and sends it
// like an external autopilot would.
func (n *Node) AutopilotTick() {
	if n.autopilot == nil {
		return
	}
	u := n.autopilot.Compute(n.Snapshot(), n.clock.Now())
	n.SetActuators(u, n.clock.wallNow())
}

// SetActuators stores the latest autopilot command. stamp is the send time
// of the command and feeds the setpoint delay statistics.
func (n *Node) SetActuators(cmd []float64, stamp time.Time) {
	n.cmdMu.Lock()
	if !n.lastCmd.IsZero() {
		if d := stamp.Sub(n.lastCmd); d > n.maxDelay {
			n.maxDelay = d
		}
	}
	n.lastCmd = stamp
	n.setpoints++
	n.actuators = append(n.actuators[:0], cmd...)
	if n.scenario.Load() == ScenarioICEStall && len(n.actuators) > throttleChannel {
		n.actuators[throttleChannel] = 0
	}
	n.cmdMu.Unlock()

	n.collector.IncActuatorMessage()
}

// Actuators returns a copy of the latest command.
func (n *Node) Actuators() []float64 {
	n.cmdMu.Lock()
	defer n.cmdMu.Unlock()
	return append([]float64(nil), n.actuators...)
}

func (n *Node) Arm(armed bool) {
	if n.armed.Swap(armed) != armed && n.throttle.Allow("arm") {
		msg := "cmd: Disarm"
		if armed {
			msg = "cmd: Arm"
		}
		n.log.Info(context.Background(), msg)
	}
	n.collector.SetArmed(armed)
}

func (n *Node) Armed() bool { return n.armed.Load() }

func (n *Node) SetCalibration(c dynamo.CalibrationCase) {
	if dynamo.CalibrationCase(n.calibration.Swap(int32(c))) != c && n.throttle.Allow("calibration") {
		n.log.Info(context.Background(), "calibration type", logging.Int("case", int(c)))
	}
}

func (n *Node) Calibration() dynamo.CalibrationCase {
	return dynamo.CalibrationCase(n.calibration.Load())
}

func (n *Node) SetScenario(id int) {
	n.scenario.Store(int32(id))
	if n.suite == nil {
		return
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	switch id {
	case ScenarioNone:
		n.suite.StopStallEmulation()
	case ScenarioICEStall:
		n.suite.StartStallEmulation(n.clock.Now())
	}
}

// Status collects the loop statistics of the last interval seconds of
// sim time and resets the counters.
func (n *Node) Status(interval float64) Status {
	dyn := float64(n.dynCount.Swap(0)) * n.period / interval
	pub := float64(n.pubCount.Swap(0)) * n.pubPeriod / interval

	n.cmdMu.Lock()
	setpoints, maxDelay := n.setpoints, n.maxDelay
	act := append([]float64(nil), n.actuators...)
	n.setpoints, n.maxDelay = 0, 0
	n.cmdMu.Unlock()

	n.mu.Lock()
	pose := csconv.ToEnu(n.dyn)
	n.mu.Unlock()

	return Status{
		Armed:      n.armed.Load(),
		Dynamics:   n.name,
		Dyn:        dyn,
		Pub:        pub,
		Setpoints:  setpoints,
		SetpointOK: setpoints > 100 && maxDelay > 0 && maxDelay < 20*time.Millisecond,
		Actuators:  act,
		Position:   pose,
	}
}

func (n *Node) writeStatus(s Status) {
	n.log.Debug(context.Background(), "status",
		logging.Any("armed", s.Armed),
		logging.Float("dyn", s.Dyn),
		logging.Float("pub", s.Pub),
		logging.Int("setpoints", s.Setpoints))
	if n.status != nil {
		fmt.Fprintln(n.status, s.String())
	}
}

// Snapshot reads the vehicle state under the dynamics lock.
func (n *Node) Snapshot() dynamo.State {
	n.mu.Lock()
	defer n.mu.Unlock()
	return dynamo.Snapshot(n.dyn)
}

func (n *Node) Clock() *Clock { return n.clock }
