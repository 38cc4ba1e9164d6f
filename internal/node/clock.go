package node

import (
	"sync"
	"time"
)

// Clock is the time base of a node. With sim time it starts at zero and
// moves only by Advance; otherwise it reads the wall clock. Scale stretches
// every wall-clock period: 2 runs the loops at half speed.
type Clock struct {
	mu         sync.RWMutex
	useSimTime bool
	scale      float64
	wall       func() time.Time
	start      time.Time
	sim        float64
}

func NewClock(useSimTime bool, scale float64) *Clock {
	return newClock(useSimTime, scale, time.Now)
}

func newClock(useSimTime bool, scale float64, wall func() time.Time) *Clock {
	if scale <= 0 {
		scale = 1
	}
	return &Clock{
		useSimTime: useSimTime,
		scale:      scale,
		wall:       wall,
		start:      wall(),
	}
}

// Now returns seconds since the clock started.
func (c *Clock) Now() float64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.useSimTime {
		return c.sim
	}
	return c.wall().Sub(c.start).Seconds()
}

// Advance moves sim time forward by dt. It is a no-op on a wall clock.
func (c *Clock) Advance(dt float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.useSimTime {
		c.sim += dt
	}
}

func (c *Clock) UseSimTime() bool { return c.useSimTime }
func (c *Clock) Scale() float64   { return c.scale }

// Period converts a period in seconds of sim time into a wall duration.
func (c *Clock) Period(seconds float64) time.Duration {
	d := time.Duration(seconds * c.scale * float64(time.Second))
	if d <= 0 {
		d = time.Microsecond
	}
	return d
}

func (c *Clock) wallNow() time.Time { return c.wall() }
