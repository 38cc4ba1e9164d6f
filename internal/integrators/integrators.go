// Package integrators holds fixed-step ODE steppers for backends that expose
// their equations of motion as a dynamo.System.
package integrators

import (
	"fmt"
	"sort"

	"github.com/RaccoonlabDev/inno-vtol-dynamics/internal/dynamo"
)

const (
	NameEuler = "euler"
	NameRK4   = "rk4"
	NameRK45  = "rk45"
)

var registry = map[string]func() dynamo.Integrator{
	NameEuler: func() dynamo.Integrator { return NewEuler() },
	NameRK4:   func() dynamo.Integrator { return NewRK4() },
	NameRK45:  func() dynamo.Integrator { return NewRK45() },
}

// New returns a fresh stepper by name. An empty name selects RK4.
func New(name string) (dynamo.Integrator, error) {
	if name == "" {
		name = NameRK4
	}
	ctor, ok := registry[name]
	if !ok {
		return nil, fmt.Errorf("%w: integrator %q", dynamo.ErrConfig, name)
	}
	return ctor(), nil
}

func Names() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
