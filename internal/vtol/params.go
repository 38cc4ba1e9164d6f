package vtol

import (
	"fmt"

	"github.com/RaccoonlabDev/inno-vtol-dynamics/internal/config"
	"github.com/RaccoonlabDev/inno-vtol-dynamics/internal/dynamo"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r3"
)

const paramsPath = "/uav/vtol_params/"

const (
	actuatorChannels = 8
	motorCount       = 5
	pusherMotor      = 4
)

// Params are the rigid-body and actuator constants of the vehicle.
type Params struct {
	Mass                 float64
	Gravity              float64
	AtmoRho              float64
	WingArea             float64
	CharacteristicLength float64
	AccVariance          float64
	GyroVariance         float64

	PropellersLocation [motorCount]r3.Vec
	ActuatorMin        [actuatorChannels]float64
	ActuatorMax        [actuatorChannels]float64

	Inertia    *mat.Dense
	InertiaInv *mat.Dense
}

// LoadParams reads /uav/vtol_params/ from src.
func LoadParams(src config.Source) (*Params, error) {
	p := &Params{}

	scalars := []struct {
		key string
		dst *float64
	}{
		{"mass", &p.Mass},
		{"gravity", &p.Gravity},
		{"atmoRho", &p.AtmoRho},
		{"wingArea", &p.WingArea},
		{"characteristicLength", &p.CharacteristicLength},
		{"accVariance", &p.AccVariance},
		{"gyroVariance", &p.GyroVariance},
	}
	for _, s := range scalars {
		v, err := src.Float(paramsPath + s.key)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", dynamo.ErrConfig, err)
		}
		*s.dst = v
	}
	if p.Mass <= 0 {
		return nil, fmt.Errorf("%w: mass must be positive", dynamo.ErrConfig)
	}
	if p.AccVariance < 0 || p.GyroVariance < 0 {
		return nil, fmt.Errorf("%w: noise variances must be non-negative", dynamo.ErrConfig)
	}

	var loc [4]float64
	for i, key := range []string{"propellersLocationX", "propellersLocationY", "propellersLocationZ", "mainEngineLocationX"} {
		v, err := src.Float(paramsPath + key)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", dynamo.ErrConfig, err)
		}
		loc[i] = v
	}
	x, y, z := loc[0], loc[1], loc[2]
	p.PropellersLocation = [motorCount]r3.Vec{
		{X: x, Y: y, Z: z},
		{X: -x, Y: -y, Z: z},
		{X: x, Y: -y, Z: z},
		{X: -x, Y: y, Z: z},
		{X: loc[3]},
	}

	for _, lim := range []struct {
		key string
		dst *[actuatorChannels]float64
	}{
		{"actuatorMin", &p.ActuatorMin},
		{"actuatorMax", &p.ActuatorMax},
	} {
		data, err := src.Floats(paramsPath + lim.key)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", dynamo.ErrConfig, err)
		}
		if len(data) != actuatorChannels {
			return nil, fmt.Errorf("%w: %s needs %d values, got %d",
				dynamo.ErrConfig, lim.key, actuatorChannels, len(data))
		}
		copy(lim.dst[:], data)
	}

	inertia, err := src.Floats(paramsPath + "inertia")
	if err != nil {
		return nil, fmt.Errorf("%w: %v", dynamo.ErrConfig, err)
	}
	if len(inertia) != 9 {
		return nil, fmt.Errorf("%w: inertia needs 9 values, got %d", dynamo.ErrConfig, len(inertia))
	}
	p.Inertia = mat.NewDense(3, 3, inertia)
	p.InertiaInv = mat.NewDense(3, 3, nil)
	if err := p.InertiaInv.Inverse(p.Inertia); err != nil {
		return nil, fmt.Errorf("%w: inertia is not invertible: %v", dynamo.ErrConfig, err)
	}
	return p, nil
}
