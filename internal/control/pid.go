package control

import "math"

// PID is a scalar loop on Target - measured. The integral stops growing
// while the output is saturated.
type PID struct {
	Kp     float64
	Ki     float64
	Kd     float64
	Target float64
	Min    float64
	Max    float64

	integral float64
	prevErr  float64
	prevT    float64
	first    bool
}

// NewPID returns an unbounded loop.
func NewPID(kp, ki, kd, target float64) *PID {
	return &PID{
		Kp:     kp,
		Ki:     ki,
		Kd:     kd,
		Target: target,
		Min:    math.Inf(-1),
		Max:    math.Inf(1),
		first:  true,
	}
}

// WithLimits bounds the output.
func (p *PID) WithLimits(lo, hi float64) *PID {
	p.Min, p.Max = lo, hi
	return p
}

func (p *PID) Update(measured, t float64) float64 {
	err := p.Target - measured

	if p.first {
		p.prevErr = err
		p.prevT = t
		p.first = false
		return p.clamp(p.Kp * err)
	}

	dt := t - p.prevT
	if dt <= 0 {
		return p.clamp(p.Kp*err + p.Ki*p.integral)
	}

	derivative := (err - p.prevErr) / dt
	p.prevErr = err
	p.prevT = t

	integral := p.integral + err*dt
	u := p.Kp*err + p.Ki*integral + p.Kd*derivative
	if out := p.clamp(u); out != u {
		return out
	}
	p.integral = integral
	return u
}

func (p *PID) clamp(u float64) float64 {
	return math.Max(p.Min, math.Min(p.Max, u))
}

// Reset clears integral and derivative state
func (p *PID) Reset() {
	p.integral = 0
	p.prevErr = 0
	p.first = true
}

// GetParams returns tunable parameters for live adjustment
func (p *PID) GetParams() map[string]float64 {
	return map[string]float64{
		"Kp":     p.Kp,
		"Ki":     p.Ki,
		"Kd":     p.Kd,
		"Target": p.Target,
	}
}

// SetParam adjusts a PID parameter
func (p *PID) SetParam(name string, value float64) {
	switch name {
	case "Kp":
		p.Kp = value
	case "Ki":
		p.Ki = value
	case "Kd":
		p.Kd = value
	case "Target":
		p.Target = value
	}
}
