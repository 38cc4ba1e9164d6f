package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

const (
	DynamicsInnoVTOL    = "inno_vtol"
	DynamicsMulticopter = "flightgoggles_multicopter"

	VehicleInnopolisVTOL = "innopolis_vtol"
	VehicleIris          = "iris"

	DefaultDt         = 0.001
	DefaultDuration   = 10.0
	DefaultClockScale = 1.0
	DefaultAltitude   = 10.0
	DefaultKp         = 0.35
	DefaultKi         = 0.05
	DefaultKd         = 0.25
)

const simParamsPath = "/uav/sim_params/"

// Config is the run-level configuration of the simulator: which dynamics to
// load, how to step it and what to do around it.
type Config struct {
	Dynamics         string           `yaml:"dynamics"`
	Vehicle          string           `yaml:"vehicle"`
	VehicleFile      string           `yaml:"vehicle_file,omitempty"`
	Integrator       string           `yaml:"integrator"`
	Controller       string           `yaml:"controller"`
	Mixer            string           `yaml:"mixer"`
	Dt               float64          `yaml:"dt"`
	Duration         float64          `yaml:"duration"`
	Seed             int64            `yaml:"seed"`
	ClockScale       float64          `yaml:"clock_scale"`
	UseSimTime       bool             `yaml:"use_sim_time"`
	InitPose         []float64        `yaml:"init_pose"`
	InitVelocity     []float64        `yaml:"init_velocity,omitempty"`
	Calibration      int              `yaml:"calibration"`
	Wind             WindConfig       `yaml:"wind"`
	ControllerParams ControllerConfig `yaml:"controller_params"`
	Sensors          SensorsConfig    `yaml:"sensors"`
	Reference        GeoReference     `yaml:"reference"`
}

type WindConfig struct {
	Mean     []float64 `yaml:"mean"`
	Variance float64   `yaml:"variance"`
}

type ControllerConfig struct {
	Kp             float64   `yaml:"kp"`
	Ki             float64   `yaml:"ki"`
	Kd             float64   `yaml:"kd"`
	TargetAltitude float64   `yaml:"target_altitude"`
	HoverThrottle  float64   `yaml:"hover_throttle"`
	AttitudeKp     float64   `yaml:"attitude_kp"`
	AttitudeKd     float64   `yaml:"attitude_kd"`
	Throttle       float64   `yaml:"throttle"`
	Command        []float64 `yaml:"command,omitempty"`
}

type SensorsConfig struct {
	EscStatus     bool `yaml:"esc_status"`
	IceStatus     bool `yaml:"ice_status"`
	FuelTank      bool `yaml:"fuel_tank_status"`
	BatteryStatus bool `yaml:"battery_status"`
}

type GeoReference struct {
	Lat float64 `yaml:"lat_ref"`
	Lon float64 `yaml:"lon_ref"`
	Alt float64 `yaml:"alt_ref"`
}

func DefaultConfig() *Config {
	return &Config{
		Dynamics:   DynamicsInnoVTOL,
		Vehicle:    VehicleInnopolisVTOL,
		Integrator: "rk4",
		Controller: "hover",
		Mixer:      "inno",
		Dt:         DefaultDt,
		Duration:   DefaultDuration,
		ClockScale: DefaultClockScale,
		InitPose:   []float64{0, 0, 0, 0, 0, 0, 1},
		Wind: WindConfig{
			Mean: []float64{0, 0, 0},
		},
		ControllerParams: ControllerConfig{
			Kp:             DefaultKp,
			Ki:             DefaultKi,
			Kd:             DefaultKd,
			TargetAltitude: DefaultAltitude,
			HoverThrottle:  0.52,
			AttitudeKp:     0.5,
			AttitudeKd:     0.15,
		},
		Sensors: SensorsConfig{
			EscStatus:     true,
			IceStatus:     true,
			FuelTank:      true,
			BatteryStatus: true,
		},
		Reference: GeoReference{
			Lat: 55.7531869,
			Lon: 48.7510025,
			Alt: -6.5,
		},
	}
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	return cfg, cfg.Validate()
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

func (c *Config) Validate() error {
	if c.Dt <= 0 {
		return fmt.Errorf("config: dt must be positive, got %f", c.Dt)
	}
	if c.Duration <= 0 {
		return fmt.Errorf("config: duration must be positive, got %f", c.Duration)
	}
	if c.ClockScale <= 0 {
		return fmt.Errorf("config: clock_scale must be positive, got %f", c.ClockScale)
	}
	if len(c.InitPose) != 7 {
		return fmt.Errorf("config: init_pose needs 7 values (x y z qx qy qz qw), got %d", len(c.InitPose))
	}
	if len(c.Wind.Mean) != 0 && len(c.Wind.Mean) != 3 {
		return fmt.Errorf("config: wind.mean needs 3 values, got %d", len(c.Wind.Mean))
	}
	if c.Wind.Variance < 0 {
		return fmt.Errorf("config: wind.variance must be non-negative")
	}
	switch c.Mixer {
	case "inno", "standard":
	default:
		return fmt.Errorf("config: unknown mixer %q", c.Mixer)
	}
	return nil
}

// ApplySimParams overrides fields from the /uav/sim_params/ section of src.
// Keys that are absent keep their current value.
func (c *Config) ApplySimParams(src Source) error {
	if v, err := src.Bool(simParamsPath + "use_sim_time"); err == nil {
		c.UseSimTime = v
	} else if !errors.Is(err, ErrMissingKey) {
		return err
	}

	if pose, err := src.Floats(simParamsPath + "init_pose"); err == nil {
		if len(pose) != 7 {
			return fmt.Errorf("%w: init_pose has %d values", ErrWrongType, len(pose))
		}
		c.InitPose = pose
	} else if !errors.Is(err, ErrMissingKey) {
		return err
	}

	floats := map[string]*float64{
		"lat_ref": &c.Reference.Lat,
		"lon_ref": &c.Reference.Lon,
		"alt_ref": &c.Reference.Alt,
	}
	for key, dst := range floats {
		v, err := src.Float(simParamsPath + key)
		if errors.Is(err, ErrMissingKey) {
			continue
		}
		if err != nil {
			return err
		}
		*dst = v
	}

	flags := map[string]*bool{
		"esc_status":       &c.Sensors.EscStatus,
		"ice_status":       &c.Sensors.IceStatus,
		"fuel_tank_status": &c.Sensors.FuelTank,
		"battery_status":   &c.Sensors.BatteryStatus,
	}
	for key, dst := range flags {
		v, err := src.Bool(simParamsPath + key)
		if errors.Is(err, ErrMissingKey) {
			continue
		}
		if err != nil {
			return err
		}
		*dst = v
	}
	return nil
}

// InitPosition returns the x, y, z part of InitPose.
func (c *Config) InitPosition() [3]float64 {
	return [3]float64{c.InitPose[0], c.InitPose[1], c.InitPose[2]}
}

// InitAttitude returns InitPose's quaternion as (w, x, y, z).
func (c *Config) InitAttitude() [4]float64 {
	return [4]float64{c.InitPose[6], c.InitPose[3], c.InitPose[4], c.InitPose[5]}
}
