package config

import "sort"

func preset(mutate func(c *Config)) *Config {
	c := DefaultConfig()
	mutate(c)
	return c
}

var Presets = map[string]map[string]*Config{
	DynamicsInnoVTOL: {
		"hover": preset(func(c *Config) {
			c.Duration = 20.0
			c.ControllerParams.TargetAltitude = 10.0
		}),
		"climb": preset(func(c *Config) {
			c.Duration = 30.0
			c.ControllerParams.TargetAltitude = 50.0
		}),
		"cruise": preset(func(c *Config) {
			c.Duration = 30.0
			c.ControllerParams.TargetAltitude = 30.0
			c.ControllerParams.Throttle = 0.6
			c.Wind = WindConfig{Mean: []float64{0, 3, 0}, Variance: 0.2}
		}),
		"drop": preset(func(c *Config) {
			c.Controller = "none"
			c.Duration = 5.0
			c.InitPose = []float64{0, 0, -20, 0, 0, 0, 1}
		}),
		"calibrate": preset(func(c *Config) {
			c.Controller = "none"
			c.Duration = 10.0
			c.Calibration = 1
		}),
	},
	DynamicsMulticopter: {
		"hover": preset(func(c *Config) {
			c.Dynamics = DynamicsMulticopter
			c.Vehicle = VehicleIris
			c.Duration = 20.0
			c.ControllerParams.TargetAltitude = 5.0
			c.ControllerParams.HoverThrottle = 0.66
		}),
		"drop": preset(func(c *Config) {
			c.Dynamics = DynamicsMulticopter
			c.Vehicle = VehicleIris
			c.Controller = "none"
			c.Duration = 5.0
			c.InitPose = []float64{0, 0, 10, 0, 0, 0, 1}
			c.ControllerParams.HoverThrottle = 0.66
		}),
	},
}

func GetPreset(dynamics, name string) *Config {
	dynPresets, ok := Presets[dynamics]
	if !ok {
		return nil
	}
	cfg, ok := dynPresets[name]
	if !ok {
		return nil
	}
	return cfg.Clone()
}

func ListPresets(dynamics string) []string {
	dynPresets, ok := Presets[dynamics]
	if !ok {
		return nil
	}
	names := make([]string, 0, len(dynPresets))
	for name := range dynPresets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Clone returns a deep copy so presets stay untouched by callers.
func (c *Config) Clone() *Config {
	out := *c
	out.InitPose = append([]float64(nil), c.InitPose...)
	out.InitVelocity = append([]float64(nil), c.InitVelocity...)
	out.Wind.Mean = append([]float64(nil), c.Wind.Mean...)
	out.ControllerParams.Command = append([]float64(nil), c.ControllerParams.Command...)
	return &out
}
