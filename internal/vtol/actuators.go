package vtol

import (
	"math"

	"github.com/RaccoonlabDev/inno-vtol-dynamics/internal/dynamo"
	"github.com/RaccoonlabDev/inno-vtol-dynamics/internal/numeric"
)

// Internal actuator layout.
const (
	actAileron  = 5
	actElevator = 6
	actRudder   = 7
)

// MapStandard maps a StandardVTOL mixer output (0-3 copter, 4 throttle,
// 5-6 left and right aileron, 7 elevator) onto the internal actuator layout.
// Commands of the wrong length are returned unchanged.
func MapStandard(p *Params, cmd []float64) []float64 {
	if len(cmd) != actuatorChannels {
		return cmd
	}
	act := make([]float64, actuatorChannels)
	copy(act[:5], cmd[:5])
	act[actAileron] = (cmd[5] - cmd[6]) / 2
	act[actElevator] = -cmd[7]
	act[actRudder] = 0
	scale(p, act)
	return act
}

// MapInno maps an InnoVTOL mixer output (0-3 copter, 4 aileron centred at
// 0.5, 5 elevator, 6 rudder, 7 throttle) onto the internal actuator layout.
// Commands of the wrong length are returned unchanged.
func MapInno(p *Params, cmd []float64) []float64 {
	if len(cmd) != actuatorChannels {
		return cmd
	}
	act := make([]float64, actuatorChannels)
	copy(act[:4], cmd[:4])
	act[pusherMotor] = cmd[7]
	act[actAileron] = (cmd[4] - 0.5) * 2
	act[actElevator] = cmd[5]
	act[actRudder] = cmd[6]
	scale(p, act)
	return act
}

// scale turns normalized motor [0, 1] and surface [-1, 1] values into
// physical units.
func scale(p *Params, act []float64) {
	for i := 0; i <= pusherMotor; i++ {
		act[i] = numeric.Clamp(act[i], 0, 1) * p.ActuatorMax[i]
	}
	for i := actAileron; i <= actRudder; i++ {
		v := numeric.Clamp(act[i], -1, 1)
		if v >= 0 {
			act[i] = v * p.ActuatorMax[i]
		} else {
			act[i] = v * -p.ActuatorMin[i]
		}
	}
}

func (d *Dynamics) mapCommand(cmd []float64, isCmdPercent bool) []float64 {
	if err := dynamo.CheckCommandSize(cmd, actuatorChannels); err != nil {
		d.warnThrottled("cmd-size", err.Error())
	}
	if !isCmdPercent {
		return cmd
	}
	if d.mixer == MixerStandard {
		return MapStandard(d.params, cmd)
	}
	return MapInno(d.params, cmd)
}

// updateActuators moves every channel toward cmd through a first-order lag
// with the channel's time constant and returns the new values. Missing
// channels are treated as zero and extra ones are dropped.
func (d *Dynamics) updateActuators(cmd []float64, dt float64) [actuatorChannels]float64 {
	var target [actuatorChannels]float64
	copy(target[:], cmd)

	for i := range d.state.actuators {
		decay := math.Exp(-dt / d.tables.ActuatorTimeConstants[i])
		d.state.actuators[i] = target[i] + (d.state.actuators[i]-target[i])*decay
	}
	return d.state.actuators
}
