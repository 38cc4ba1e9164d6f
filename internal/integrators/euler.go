package integrators

import "github.com/RaccoonlabDev/inno-vtol-dynamics/internal/dynamo"

// Euler is the explicit first-order stepper. The VTOL engine integrates this
// way internally; here it is offered to the state-space backends as well.
type Euler struct{}

func NewEuler() *Euler {
	return &Euler{}
}

func (e *Euler) Step(sys dynamo.System, x dynamo.State, u dynamo.Control, t, dt float64) dynamo.State {
	return x.Add(sys.Derive(x, u, t).Scale(dt))
}
