package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Dynamics != DynamicsInnoVTOL {
		t.Errorf("expected dynamics %s, got %s", DynamicsInnoVTOL, cfg.Dynamics)
	}
	if cfg.Dt <= 0 {
		t.Error("dt should be positive")
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should validate, got %v", err)
	}
	att := cfg.InitAttitude()
	if att != [4]float64{1, 0, 0, 0} {
		t.Errorf("expected identity attitude, got %v", att)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Config)
	}{
		{"zero dt", func(c *Config) { c.Dt = 0 }},
		{"negative duration", func(c *Config) { c.Duration = -1 }},
		{"short pose", func(c *Config) { c.InitPose = []float64{0, 0, 0} }},
		{"wind mean", func(c *Config) { c.Wind.Mean = []float64{1, 2} }},
		{"wind variance", func(c *Config) { c.Wind.Variance = -0.1 }},
		{"mixer", func(c *Config) { c.Mixer = "tricopter" }},
	}
	for _, tt := range tests {
		cfg := DefaultConfig()
		tt.mutate(cfg)
		if err := cfg.Validate(); err == nil {
			t.Errorf("%s: expected validation error", tt.name)
		}
	}
}

func TestGetPreset(t *testing.T) {
	cfg := GetPreset(DynamicsInnoVTOL, "drop")
	if cfg == nil {
		t.Fatal("expected preset, got nil")
	}
	if cfg.InitPose[2] != -20 {
		t.Errorf("expected z -20, got %f", cfg.InitPose[2])
	}

	cfg.InitPose[2] = 5
	again := GetPreset(DynamicsInnoVTOL, "drop")
	if again.InitPose[2] != -20 {
		t.Error("preset should not be modified through a returned copy")
	}
}

func TestGetPreset_NotFound(t *testing.T) {
	if GetPreset(DynamicsInnoVTOL, "nonexistent") != nil {
		t.Error("expected nil for nonexistent preset")
	}
	if GetPreset("nonexistent", "hover") != nil {
		t.Error("expected nil for nonexistent dynamics")
	}
}

func TestListPresets(t *testing.T) {
	presets := ListPresets(DynamicsInnoVTOL)
	if len(presets) != 5 {
		t.Errorf("expected 5 presets, got %d", len(presets))
	}
	if presets[0] != "calibrate" {
		t.Errorf("expected sorted names, got %v", presets)
	}
	if ListPresets("nonexistent") != nil {
		t.Error("expected nil for nonexistent dynamics")
	}
}

func TestParseFlattensKeys(t *testing.T) {
	src, err := Parse([]byte(`
uav:
  vtol_params:
    mass: 7
    inertia:
      - [1, 0]
      - [0, 2]
    name: inno
    armed: true
`))
	if err != nil {
		t.Fatal(err)
	}

	mass, err := src.Float("/uav/vtol_params/mass")
	if err != nil || mass != 7 {
		t.Errorf("expected mass 7, got %f (%v)", mass, err)
	}
	inertia, err := src.Floats("uav/vtol_params/inertia")
	if err != nil {
		t.Fatal(err)
	}
	want := []float64{1, 0, 0, 2}
	for i := range want {
		if inertia[i] != want[i] {
			t.Errorf("inertia[%d]: expected %f, got %f", i, want[i], inertia[i])
		}
	}
	if s, _ := src.String("/uav/vtol_params/name"); s != "inno" {
		t.Errorf("expected name inno, got %s", s)
	}
	if b, _ := src.Bool("/uav/vtol_params/armed"); !b {
		t.Error("expected armed true")
	}
}

func TestSourceErrors(t *testing.T) {
	src := MapSource{"/a": "text"}

	if _, err := src.Float("/missing"); !errors.Is(err, ErrMissingKey) {
		t.Errorf("expected ErrMissingKey, got %v", err)
	}
	if _, err := src.Float("/a"); !errors.Is(err, ErrWrongType) {
		t.Errorf("expected ErrWrongType, got %v", err)
	}
	if _, err := src.Bool("/a"); !errors.Is(err, ErrWrongType) {
		t.Errorf("expected ErrWrongType, got %v", err)
	}
}

func TestApplySimParams(t *testing.T) {
	cfg := DefaultConfig()
	src := MapSource{
		"/uav/sim_params/init_pose":  []float64{1, 2, -3, 0, 0, 0, 1},
		"/uav/sim_params/ice_status": false,
		"/uav/sim_params/lat_ref":    10.5,
	}
	if err := cfg.ApplySimParams(src); err != nil {
		t.Fatal(err)
	}
	if cfg.InitPosition() != [3]float64{1, 2, -3} {
		t.Errorf("expected pose override, got %v", cfg.InitPosition())
	}
	if cfg.Sensors.IceStatus {
		t.Error("expected ice status disabled")
	}
	if !cfg.Sensors.EscStatus {
		t.Error("absent keys should keep defaults")
	}
	if cfg.Reference.Lat != 10.5 {
		t.Errorf("expected lat 10.5, got %f", cfg.Reference.Lat)
	}

	bad := MapSource{"/uav/sim_params/init_pose": []float64{1, 2}}
	if err := cfg.ApplySimParams(bad); !errors.Is(err, ErrWrongType) {
		t.Errorf("expected ErrWrongType, got %v", err)
	}
}

func TestLoadVehicle(t *testing.T) {
	src, err := LoadVehicle(VehicleInnopolisVTOL)
	if err != nil {
		t.Fatal(err)
	}
	prop, err := src.Floats("/uav/aerodynamics_coeffs/prop")
	if err != nil {
		t.Fatal(err)
	}
	if len(prop) != 40*5 {
		t.Errorf("expected 200 prop values, got %d", len(prop))
	}
	mass, _ := src.Float("/uav/vtol_params/mass")
	if mass != 7 {
		t.Errorf("expected mass 7, got %f", mass)
	}

	if _, err := LoadVehicle("nonexistent"); err == nil {
		t.Error("expected error for unknown vehicle")
	}
	names := ListVehicles()
	if len(names) != 2 || names[0] != VehicleInnopolisVTOL {
		t.Errorf("expected shipped vehicles, got %v", names)
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.yaml")
	cfg := GetPreset(DynamicsInnoVTOL, "cruise")
	if err := Save(path, cfg); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatal(err)
	}
	loaded, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if loaded.Wind.Mean[1] != 3 {
		t.Errorf("expected wind y 3, got %f", loaded.Wind.Mean[1])
	}
}
