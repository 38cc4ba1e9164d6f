// Package experiment turns a run configuration into a ready simulator: it
// resolves the dynamics backend, loads the vehicle, places it at the
// initial pose and attaches the controller and flight metrics.
package experiment

import (
	"context"
	"fmt"

	"gonum.org/v1/gonum/num/quat"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/RaccoonlabDev/inno-vtol-dynamics/internal/config"
	"github.com/RaccoonlabDev/inno-vtol-dynamics/internal/control"
	"github.com/RaccoonlabDev/inno-vtol-dynamics/internal/dynamo"
	"github.com/RaccoonlabDev/inno-vtol-dynamics/internal/logging"
	"github.com/RaccoonlabDev/inno-vtol-dynamics/internal/metrics"
)

type Experiment struct {
	cfg       *config.Config
	dyn       dynamo.Dynamics
	simulator *dynamo.Simulator
}

// NewDynamics builds and initializes the backend named by cfg.Dynamics.
func NewDynamics(reg *Registry, cfg *config.Config, log logging.Logger) (dynamo.Dynamics, error) {
	if log == nil {
		log = logging.Noop()
	}
	backend, err := reg.Backend(cfg.Dynamics)
	if err != nil {
		return nil, err
	}
	dyn, err := backend.New(cfg, log)
	if err != nil {
		return nil, err
	}

	src, err := cfg.VehicleSource()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", dynamo.ErrConfig, err)
	}
	// Built-in vehicles carry default sim params; only a user file may
	// override the run configuration.
	if cfg.VehicleFile != "" {
		if err := cfg.ApplySimParams(src); err != nil {
			return nil, fmt.Errorf("%w: %v", dynamo.ErrConfig, err)
		}
	}
	if err := dyn.Init(src); err != nil {
		return nil, err
	}

	p, q := cfg.InitPosition(), cfg.InitAttitude()
	dyn.SetInitialPosition(
		r3.Vec{X: p[0], Y: p[1], Z: p[2]},
		quat.Number{Real: q[0], Imag: q[1], Jmag: q[2], Kmag: q[3]},
	)
	if len(cfg.InitVelocity) == 6 {
		v := cfg.InitVelocity
		dyn.SetInitialVelocity(r3.Vec{X: v[0], Y: v[1], Z: v[2]}, r3.Vec{X: v[3], Y: v[4], Z: v[5]})
	}
	return dyn, nil
}

func New(reg *Registry, cfg *config.Config, log logging.Logger) (*Experiment, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", dynamo.ErrConfig, err)
	}
	backend, err := reg.Backend(cfg.Dynamics)
	if err != nil {
		return nil, err
	}
	dyn, err := NewDynamics(reg, cfg, log)
	if err != nil {
		return nil, err
	}
	ctrl, err := control.FromConfig(cfg, backend.Layout(cfg), dyn.Notation())
	if err != nil {
		return nil, err
	}

	sim := dynamo.New(dyn, ctrl)
	mass, g := backend.Mass(dyn)
	for _, m := range metrics.Flight(dyn.Notation(), mass, g) {
		sim.AddMetric(m)
	}
	if cfg.Controller == control.NameHover {
		sim.AddMetric(metrics.NewAltitudeError(dyn.Notation(), cfg.ControllerParams.TargetAltitude))
	}
	return &Experiment{cfg: cfg, dyn: dyn, simulator: sim}, nil
}

// SimConfig is the run-loop configuration derived from the experiment.
func (e *Experiment) SimConfig() dynamo.Config {
	c := dynamo.DefaultConfig()
	c.Dt = e.cfg.Dt
	c.Duration = e.cfg.Duration
	c.Seed = e.cfg.Seed
	c.Calibration = dynamo.CalibrationCase(e.cfg.Calibration)
	return c
}

func (e *Experiment) Run(ctx context.Context) (*dynamo.Result, error) {
	return e.simulator.Run(ctx, e.SimConfig())
}

func (e *Experiment) Simulator() *dynamo.Simulator { return e.simulator }
func (e *Experiment) Dynamics() dynamo.Dynamics    { return e.dyn }

func vec(v []float64) r3.Vec {
	if len(v) != 3 {
		return r3.Vec{}
	}
	return r3.Vec{X: v[0], Y: v[1], Z: v[2]}
}
