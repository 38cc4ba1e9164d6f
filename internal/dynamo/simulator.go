package dynamo

import (
	"context"
	"fmt"
)

// Simulator runs a Dynamics backend at a fixed step under a controller.
type Simulator struct {
	dyn        Dynamics
	controller Controller
	metrics    []Metric
	observers  []Observer
}

func New(dyn Dynamics, controller Controller) *Simulator {
	return &Simulator{
		dyn:        dyn,
		controller: controller,
		metrics:    make([]Metric, 0),
		observers:  make([]Observer, 0),
	}
}

func (s *Simulator) AddMetric(m Metric)     { s.metrics = append(s.metrics, m) }
func (s *Simulator) AddObserver(o Observer) { s.observers = append(s.observers, o) }

func (s *Simulator) Dynamics() Dynamics { return s.dyn }

// Run steps the backend for cfg.Duration seconds. A non-WorkMode
// cfg.Calibration holds the vehicle in that calibration case instead of
// flying it. Every RecordEvery-th state is kept in the result.
func (s *Simulator) Run(ctx context.Context, cfg Config) (*Result, error) {
	if err := validateConfig(cfg); err != nil {
		return nil, err
	}

	steps := int(cfg.Duration/cfg.Dt + 0.5)
	every := cfg.RecordEvery
	if every < 1 {
		every = 1
	}

	result := &Result{
		States:   make([]State, 0, steps/every+1),
		Controls: make([]Control, 0, steps/every),
		Times:    make([]float64, 0, steps/every+1),
		Metrics:  make(map[string]float64),
		Errors:   make([]error, 0),
	}

	for _, m := range s.metrics {
		m.Reset()
	}

	x := Snapshot(s.dyn)
	t := 0.0
	result.States = append(result.States, x.Clone())
	result.Times = append(result.Times, t)

	for i := 0; i < steps; i++ {
		select {
		case <-ctx.Done():
			return result, ctx.Err()
		default:
		}

		var u Control
		if cfg.Calibration != WorkMode {
			s.dyn.Calibrate(cfg.Calibration)
		} else {
			if s.controller != nil {
				u = s.controller.Compute(x, t)
			}
			s.dyn.Process(cfg.Dt, u, cfg.Percent)
		}

		x = Snapshot(s.dyn)
		t += cfg.Dt
		result.StepsTaken++

		if cfg.ValidateState && !x.IsValid() {
			err := &SimulationError{Step: i, Time: t, State: x.Clone(), Wrapped: ErrInvalidState}
			result.Errors = append(result.Errors, err)
			break
		}

		for _, m := range s.metrics {
			m.Observe(x, u, t)
		}
		for _, obs := range s.observers {
			obs.OnStep(x, u, t)
		}

		if (i+1)%every == 0 {
			result.States = append(result.States, x.Clone())
			result.Controls = append(result.Controls, append(Control(nil), u...))
			result.Times = append(result.Times, t)
		}
	}

	for _, m := range s.metrics {
		result.Metrics[m.Name()] = m.Value()
	}

	return result, nil
}

func validateConfig(cfg Config) error {
	if cfg.Dt <= 0 {
		return fmt.Errorf("%w: dt must be positive, got %f", ErrConfig, cfg.Dt)
	}
	if cfg.Duration <= 0 {
		return fmt.Errorf("%w: duration must be positive, got %f", ErrConfig, cfg.Duration)
	}
	if cfg.Calibration < WorkMode || cfg.Calibration > Airspeed {
		return fmt.Errorf("%w: unknown calibration case %d", ErrConfig, cfg.Calibration)
	}
	return nil
}
