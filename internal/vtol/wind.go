package vtol

import "gonum.org/v1/gonum/spatial/r3"

// wind samples the world-frame wind: mean plus Gaussian noise per axis.
func (d *Dynamics) wind() r3.Vec {
	return r3.Add(d.state.windMean, d.noise.vec(d.state.windVariance))
}
