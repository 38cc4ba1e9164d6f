// Package dynamo holds the contracts shared by the flight dynamics backends
// and the fixed-step run loop that drives them.
//
//   - [Dynamics]: a backend (VTOL or multicopter) stepped by Process
//   - [State]: flat snapshot of position, velocity, attitude and rates
//   - [System], [Integrator]: ODE contract used by integrator-based backends
//   - [Controller]: produces actuator commands from snapshots
//   - [Simulator]: runs a backend under a controller
//
// # Example
//
//	dyn := vtol.New(vtol.WithLogger(logger))
//	_ = dyn.Init(src)
//	sim := dynamo.New(dyn, control.NewHover(control.LayoutInno, dyn.Notation(), params))
//	result, _ := sim.Run(ctx, dynamo.DefaultConfig())
//
// Simulator instances are not thread-safe. [Ensemble] builds one simulator
// per run.
package dynamo
