package control

import (
	"sync"

	"github.com/RaccoonlabDev/inno-vtol-dynamics/internal/dynamo"
)

// Manual replays the last command it was given. SetControl may be called
// from another goroutine while a run is in progress.
type Manual struct {
	mu sync.RWMutex
	u  dynamo.Control
}

func NewManual(u []float64) *Manual {
	return &Manual{u: append(dynamo.Control(nil), u...)}
}

func (m *Manual) SetControl(u []float64) {
	m.mu.Lock()
	m.u = append(m.u[:0], u...)
	m.mu.Unlock()
}

// Compute returns a copy of the stored command.
func (m *Manual) Compute(x dynamo.State, t float64) dynamo.Control {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append(dynamo.Control(nil), m.u...)
}
