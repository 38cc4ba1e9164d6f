package vtol

import (
	"fmt"

	"github.com/RaccoonlabDev/inno-vtol-dynamics/internal/config"
	"github.com/RaccoonlabDev/inno-vtol-dynamics/internal/dynamo"
	"github.com/RaccoonlabDev/inno-vtol-dynamics/internal/numeric"
)

const tablesPath = "/uav/aerodynamics_coeffs/"

const (
	propControl = 0
	propThrust  = 1
	propTorque  = 2
	propRPM     = 4
)

// Tables holds the aerodynamic and propeller lookup data of a vehicle.
// Grid tables are indexed [airspeed][column].
type Tables struct {
	CSRudder    [][]float64
	CSBeta      [][]float64
	AoA         []float64
	AoS         []float64
	Actuator    []float64
	Airspeed    []float64
	CL          [][]float64
	CS          [][]float64
	CD          [][]float64
	Cmx         [][]float64
	Cmy         [][]float64
	Cmz         [][]float64
	CmxAileron  [][]float64
	CmyElevator [][]float64
	CmzRudder   [][]float64
	Prop        [][]float64

	ActuatorTimeConstants []float64

	negActuator []float64
	negAoS      []float64
	propCol     []float64
}

type tableShape struct {
	key        string
	rows, cols int
	dst        *[][]float64
}

type vectorShape struct {
	key string
	n   int
	dst *[]float64
}

// LoadTables reads every table from src and checks its shape. Errors wrap
// dynamo.ErrConfig.
func LoadTables(src config.Source) (*Tables, error) {
	t := &Tables{}

	grids := []tableShape{
		{"CS_rudder_table", 8, 20, &t.CSRudder},
		{"CS_beta", 8, 90, &t.CSBeta},
		{"CLPolynomial", 8, 8, &t.CL},
		{"CSPolynomial", 8, 8, &t.CS},
		{"CDPolynomial", 8, 6, &t.CD},
		{"CmxPolynomial", 8, 8, &t.Cmx},
		{"CmyPolynomial", 8, 8, &t.Cmy},
		{"CmzPolynomial", 8, 8, &t.Cmz},
		{"CmxAileron", 8, 20, &t.CmxAileron},
		{"CmyElevator", 8, 20, &t.CmyElevator},
		{"CmzRudder", 8, 20, &t.CmzRudder},
		{"prop", 40, 5, &t.Prop},
	}
	for _, g := range grids {
		data, err := src.Floats(tablesPath + g.key)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", dynamo.ErrConfig, err)
		}
		table, err := numeric.Reshape(data, g.rows, g.cols)
		if err != nil {
			return nil, fmt.Errorf("%w: %s needs %dx%d values, got %d",
				dynamo.ErrConfig, g.key, g.rows, g.cols, len(data))
		}
		*g.dst = table
	}

	vectors := []vectorShape{
		{"AoA", 47, &t.AoA},
		{"AoS", 90, &t.AoS},
		{"actuator_table", 20, &t.Actuator},
		{"airspeed_table", 8, &t.Airspeed},
		{"actuatorTimeConstants", actuatorChannels, &t.ActuatorTimeConstants},
	}
	for _, v := range vectors {
		data, err := src.Floats(tablesPath + v.key)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", dynamo.ErrConfig, err)
		}
		if len(data) != v.n {
			return nil, fmt.Errorf("%w: %s needs %d values, got %d", dynamo.ErrConfig, v.key, v.n, len(data))
		}
		*v.dst = data
	}

	for i, tau := range t.ActuatorTimeConstants {
		if tau <= 0 {
			return nil, fmt.Errorf("%w: actuatorTimeConstants[%d] must be positive", dynamo.ErrConfig, i)
		}
	}

	t.negActuator = numeric.Negate(t.Actuator)
	t.negAoS = numeric.Negate(t.AoS)
	t.propCol = numeric.Column(t.Prop, propControl)
	return t, nil
}

// Thruster maps a motor actuator value to thrust, torque and rpm by
// interpolating the propeller table. Inputs outside the table are clamped
// to its first or last row.
func (t *Tables) Thruster(actuator float64) (thrust, torque, rpm float64) {
	prev := numeric.PrevIndex(t.propCol, actuator)
	next := prev + 1
	if next >= len(t.Prop) {
		return 0, 0, 0
	}
	lo, hi := t.Prop[prev], t.Prop[next]
	step := hi[propControl] - lo[propControl]
	if step == 0 {
		return lo[propThrust], lo[propTorque], lo[propRPM]
	}
	s := numeric.Clamp((actuator-lo[propControl])/step, 0, 1)
	thrust = numeric.Lerp(lo[propThrust], hi[propThrust], s)
	torque = numeric.Lerp(lo[propTorque], hi[propTorque], s)
	rpm = numeric.Lerp(lo[propRPM], hi[propRPM], s)
	return thrust, torque, rpm
}
