package dynamo

import (
	"errors"
	"fmt"
)

var (
	// ErrConfig indicates a missing or mis-shaped parameter or an unknown component name.
	ErrConfig = errors.New("dynamo: bad configuration")

	// ErrWrongCommandSize indicates an actuator command whose length differs
	// from the channel count of the backend.
	ErrWrongCommandSize = errors.New("dynamo: wrong actuator command size")

	// ErrUnknownBackend indicates a dynamics name with no registered backend.
	ErrUnknownBackend = errors.New("dynamo: unknown dynamics backend")

	ErrNotInitialized = errors.New("dynamo: dynamics not initialized")

	// ErrInvalidState indicates a state vector with NaN or Inf values.
	ErrInvalidState = errors.New("dynamo: invalid state (NaN or Inf detected)")
)

// CheckCommandSize returns an error wrapping ErrWrongCommandSize when cmd
// does not carry exactly n channels.
func CheckCommandSize(cmd []float64, n int) error {
	if len(cmd) != n {
		return fmt.Errorf("%w: got %d, expected %d", ErrWrongCommandSize, len(cmd), n)
	}
	return nil
}

// SimulationError wraps an error with run-loop context.
type SimulationError struct {
	Step    int
	Time    float64
	State   State
	Wrapped error
}

func (e *SimulationError) Error() string {
	return fmt.Sprintf("step %d (t=%.4f): %v", e.Step, e.Time, e.Wrapped)
}

func (e *SimulationError) Unwrap() error {
	return e.Wrapped
}
