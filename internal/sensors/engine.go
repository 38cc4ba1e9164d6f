package sensors

// StallDuration is how long an emulated stall is reported, seconds.
const StallDuration = 10.0

// startingRPM separates a cranking engine from a running one.
const startingRPM = 1500.0

type engine struct {
	stalling   bool
	stallStart float64
}

func (e *engine) startStall(now float64) {
	e.stalling = true
	e.stallStart = now
}

func (e *engine) stopStall() { e.stalling = false }

// status derives the engine state from the pusher RPM, or reports a fault
// with a dead engine while a stall is emulated.
func (e *engine) status(now, rpm float64) ICEStatus {
	if e.stalling {
		if now-e.stallStart < StallDuration {
			return ICEStatus{State: ICEFault}
		}
		e.stalling = false
	}
	switch {
	case rpm < 1:
		return ICEStatus{State: ICEStopped}
	case rpm < startingRPM:
		return ICEStatus{State: ICEStarting, RPM: rpm}
	}
	return ICEStatus{State: ICERunning, RPM: rpm}
}
