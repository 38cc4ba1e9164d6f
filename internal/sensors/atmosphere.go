package sensors

import "math"

// International standard atmosphere, troposphere only.
const (
	seaLevelPressure    = 101325.0 // Pa
	seaLevelTemperature = 288.15   // K
	lapseRate           = 0.0065   // K/m
	gasConstant         = 287.05   // J/(kg*K)
	pressureExponent    = 5.25588
)

// Atmosphere returns static pressure, dynamic pressure of the given airspeed
// and static temperature at altitude alt (m above sea level).
func Atmosphere(alt, airspeed float64) AirData {
	temperature := seaLevelTemperature - lapseRate*alt
	pressure := seaLevelPressure * math.Pow(temperature/seaLevelTemperature, pressureExponent)
	rho := pressure / (gasConstant * temperature)
	return AirData{
		AbsPressureHpa:  pressure / 100,
		DiffPressureHpa: 0.5 * rho * airspeed * airspeed / 100,
		TemperatureK:    temperature,
	}
}
