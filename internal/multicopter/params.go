package multicopter

import (
	"errors"
	"fmt"

	"github.com/RaccoonlabDev/inno-vtol-dynamics/internal/config"
	"github.com/RaccoonlabDev/inno-vtol-dynamics/internal/dynamo"
	"gonum.org/v1/gonum/mat"
)

const paramsPath = "/uav/multicopter_params/"

// Params describe an X-layout quadrotor in FLU body axes.
type Params struct {
	Mass              float64
	Gravity           float64
	ArmLength         float64
	ThrustCoefficient float64 // N/(rad/s)^2
	TorqueCoefficient float64 // N*m/(rad/s)^2
	MaxRotorSpeed     float64 // rad/s
	MotorTimeConstant float64 // s
	DragCoefficient   float64 // N/(m/s)
	AccVariance       float64
	GyroVariance      float64

	Inertia    *mat.Dense
	InertiaInv *mat.Dense
}

// DefaultParams is a 1.5 kg Iris-class quadrotor.
func DefaultParams() *Params {
	p := &Params{
		Mass:              1.5,
		Gravity:           9.81,
		ArmLength:         0.25,
		ThrustCoefficient: 5.0e-6,
		TorqueCoefficient: 8.0e-8,
		MaxRotorSpeed:     1300,
		MotorTimeConstant: 0.02,
		DragCoefficient:   0.1,
		AccVariance:       0.001,
		GyroVariance:      0.0001,
		Inertia:           mat.NewDense(3, 3, []float64{0.029, 0, 0, 0, 0.029, 0, 0, 0, 0.055}),
	}
	p.InertiaInv = mat.NewDense(3, 3, nil)
	_ = p.InertiaInv.Inverse(p.Inertia)
	return p
}

// LoadParams reads /uav/multicopter_params/ from src. Keys that are absent
// keep their DefaultParams value.
func LoadParams(src config.Source) (*Params, error) {
	p := DefaultParams()

	for _, s := range []struct {
		key string
		dst *float64
	}{
		{"mass", &p.Mass},
		{"gravity", &p.Gravity},
		{"arm_length", &p.ArmLength},
		{"thrust_coefficient", &p.ThrustCoefficient},
		{"torque_coefficient", &p.TorqueCoefficient},
		{"max_rotor_speed", &p.MaxRotorSpeed},
		{"motor_time_constant", &p.MotorTimeConstant},
		{"drag_coefficient", &p.DragCoefficient},
		{"acc_variance", &p.AccVariance},
		{"gyro_variance", &p.GyroVariance},
	} {
		v, err := src.Float(paramsPath + s.key)
		switch {
		case errors.Is(err, config.ErrMissingKey):
			continue
		case err != nil:
			return nil, fmt.Errorf("%w: %v", dynamo.ErrConfig, err)
		}
		*s.dst = v
	}

	if p.Mass <= 0 || p.MaxRotorSpeed <= 0 || p.MotorTimeConstant <= 0 {
		return nil, fmt.Errorf("%w: mass, max_rotor_speed and motor_time_constant must be positive", dynamo.ErrConfig)
	}
	if p.AccVariance < 0 || p.GyroVariance < 0 {
		return nil, fmt.Errorf("%w: noise variances must be non-negative", dynamo.ErrConfig)
	}

	inertia, err := src.Floats(paramsPath + "inertia")
	switch {
	case errors.Is(err, config.ErrMissingKey):
		return p, nil
	case err != nil:
		return nil, fmt.Errorf("%w: %v", dynamo.ErrConfig, err)
	case len(inertia) != 9:
		return nil, fmt.Errorf("%w: inertia needs 9 values, got %d", dynamo.ErrConfig, len(inertia))
	}
	p.Inertia = mat.NewDense(3, 3, inertia)
	p.InertiaInv = mat.NewDense(3, 3, nil)
	if err := p.InertiaInv.Inverse(p.Inertia); err != nil {
		return nil, fmt.Errorf("%w: inertia is not invertible: %v", dynamo.ErrConfig, err)
	}
	return p, nil
}
