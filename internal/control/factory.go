package control

import (
	"fmt"

	"github.com/RaccoonlabDev/inno-vtol-dynamics/internal/config"
	"github.com/RaccoonlabDev/inno-vtol-dynamics/internal/dynamo"
)

const (
	NameNone   = "none"
	NameManual = "manual"
	NameHover  = "hover"
)

// FromConfig builds the controller named by cfg.Controller.
func FromConfig(cfg *config.Config, layout Layout, notation dynamo.Notation) (dynamo.Controller, error) {
	cp := cfg.ControllerParams
	switch cfg.Controller {
	case NameNone, "":
		return NewNone(layout.Channels()), nil
	case NameManual:
		u := cp.Command
		if len(u) == 0 {
			u = make([]float64, layout.Channels())
		}
		return NewManual(u), nil
	case NameHover:
		return NewHover(layout, notation, HoverParams{
			TargetAltitude: cp.TargetAltitude,
			HoverThrottle:  cp.HoverThrottle,
			AltitudeKp:     cp.Kp,
			AltitudeKi:     cp.Ki,
			AltitudeKd:     cp.Kd,
			AttitudeKp:     cp.AttitudeKp,
			AttitudeKd:     cp.AttitudeKd,
			Throttle:       cp.Throttle,
		}), nil
	}
	return nil, fmt.Errorf("%w: unknown controller %q", dynamo.ErrConfig, cfg.Controller)
}
